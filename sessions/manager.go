package sessions

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const defaultSessionTTL = 24 * time.Hour

// Manager maintains server-side sessions. It is the only way session
// records are read or written; handlers never touch the repo directly.
type Manager struct {
	repo    Repo
	ttl     time.Duration
	nowTime func() time.Time
}

// ManagerOption defines a function type to modify the Manager instance.
type ManagerOption func(*Manager)

// WithTTL overrides the default 24h session lifetime.
func WithTTL(d time.Duration) ManagerOption {
	return func(m *Manager) {
		m.ttl = d
	}
}

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.nowTime = nowFunc
	}
}

// NewManager creates a session manager over the given repo.
func NewManager(repo Repo, options ...ManagerOption) (*Manager, error) {
	if repo == nil {
		return nil, errors.New("[NewManager] repo is required")
	}

	m := &Manager{
		repo:    repo,
		ttl:     defaultSessionTTL,
		nowTime: time.Now,
	}
	for _, opt := range options {
		opt(m)
	}
	return m, nil
}

// Establish writes a new session whose canonical field is the identity ID
// and returns the session ID for the cookie.
func (m *Manager) Establish(ctx context.Context, userID string) (string, error) {
	if userID == "" {
		return "", errors.New("[Establish] userID is required")
	}

	sessionID, err := GenerateID()
	if err != nil {
		return "", errors.Wrap(err, "[Establish] GenerateID")
	}

	now := m.nowTime()
	session := &Session{
		ID:        sessionID,
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(m.ttl),
	}
	if err := m.repo.Upsert(ctx, session); err != nil {
		return "", errors.Wrap(err, "[Establish] repo.Upsert")
	}
	return sessionID, nil
}

// Resolve returns the identity ID for a session. The canonical field wins;
// if it is empty but the interop alias is set, the alias is backfilled into
// the canonical field through the repo's atomic update (self-healing,
// idempotent). Expired sessions are deleted and reported as not found.
func (m *Manager) Resolve(ctx context.Context, sessionID string) (string, error) {
	session, err := m.repo.Get(ctx, sessionID)
	if err != nil {
		return "", err
	}

	if session.Expired(m.nowTime()) {
		if err := m.repo.Delete(ctx, sessionID); err != nil {
			log.Debug().Err(err).Msg("failed to delete expired session")
		}
		return "", ErrSessionNotFound
	}

	if session.UserID != "" {
		return session.UserID, nil
	}
	if session.AltUserID == "" {
		return "", ErrSessionNotFound
	}

	userID := session.AltUserID
	err = m.repo.Update(ctx, sessionID, func(s *Session) error {
		if s.UserID == "" {
			s.UserID = s.AltUserID
		}
		return nil
	})
	if err != nil {
		return "", errors.Wrap(err, "[Resolve] backfill canonical user id")
	}
	return userID, nil
}

// Destroy invalidates a single session. Other sessions are unaffected.
func (m *Manager) Destroy(ctx context.Context, sessionID string) error {
	return m.repo.Delete(ctx, sessionID)
}

// GenerateID generates a cryptographically secure session ID.
// 32 bytes = 256 bits of entropy.
func GenerateID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", errors.Wrap(err, "failed to generate session id")
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
