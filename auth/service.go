package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/steadmanrj/linkfolio/authflow"
	"github.com/steadmanrj/linkfolio/identity"
	"github.com/steadmanrj/linkfolio/internal/utils"
	"github.com/steadmanrj/linkfolio/provider"
	"github.com/steadmanrj/linkfolio/sessions"
	"github.com/steadmanrj/linkfolio/token"
)

const (
	stateLength = 32
	// stateTimeout is the validity window of an in-flight OAuth state.
	// A callback arriving later than this is treated as a replay.
	stateTimeout = 10 * time.Minute
)

// Repos holds all repository dependencies for the Service
type Repos struct {
	Identities identity.Store // Durable account records
	Flow       authflow.Repo  // In-flight OAuth states
}

// Service reduces every credential representation the system accepts - a
// session cookie, a bearer token, or a mid-flight OAuth code exchange - to
// one canonical, freshly fetched identity.
type Service struct {
	repos    Repos
	sessions *sessions.Manager
	minter   *token.Minter
	idp      provider.Client
	nowTime  func() time.Time // nowTime function (injectable for testing)
}

// Result carries everything a completed authentication produces.
type Result struct {
	Identity  *identity.Identity
	Token     string
	SessionID string
}

// ServiceOption defines a function type to modify the Service instance.
type ServiceOption func(*Service)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) ServiceOption {
	return func(s *Service) {
		s.nowTime = nowFunc
	}
}

// NewService initializes a new Service with required dependencies.
func NewService(repos Repos, sessionManager *sessions.Manager, minter *token.Minter, idp provider.Client, options ...ServiceOption) (*Service, error) {
	if repos.Identities == nil {
		return nil, errors.New("[NewService] Identities store is required")
	}
	if repos.Flow == nil {
		return nil, errors.New("[NewService] Flow repo is required")
	}
	if sessionManager == nil {
		return nil, errors.New("[NewService] session manager is required")
	}
	if minter == nil {
		return nil, errors.New("[NewService] minter is required")
	}
	if idp == nil {
		return nil, errors.New("[NewService] provider client is required")
	}

	s := &Service{
		repos:    repos,
		sessions: sessionManager,
		minter:   minter,
		idp:      idp,
		nowTime:  time.Now,
	}
	for _, opt := range options {
		opt(s)
	}
	return s, nil
}

// ResolveRequest reduces a request's credentials to a canonical identity:
// session cookie first, bearer token second. Whatever matched, the identity
// is re-fetched live from the store by ID, so claims cached in a token or a
// session payload are never served to handlers.
func (s *Service) ResolveRequest(ctx context.Context, sessionID, bearerToken string) (*identity.Identity, error) {
	if sessionID != "" {
		ident, err := s.resolveSession(ctx, sessionID)
		if err == nil {
			return ident, nil
		}
		if !errors.Is(err, ErrUnauthenticated) {
			return nil, err
		}
	}
	if bearerToken != "" {
		return s.resolveBearer(ctx, bearerToken)
	}
	return nil, ErrUnauthenticated
}

func (s *Service) resolveSession(ctx context.Context, sessionID string) (*identity.Identity, error) {
	userID, err := s.sessions.Resolve(ctx, sessionID)
	if err != nil {
		if errors.Is(err, sessions.ErrSessionNotFound) {
			return nil, ErrUnauthenticated
		}
		return nil, errors.Wrap(err, "[resolveSession] sessions.Resolve")
	}
	return s.fetchLive(ctx, userID)
}

func (s *Service) resolveBearer(ctx context.Context, rawToken string) (*identity.Identity, error) {
	claims, err := s.minter.Verify(rawToken)
	if err != nil {
		return nil, ErrInvalidCredential
	}
	// Claims are a snapshot only. Fetching by ID here is what makes a token
	// minted before a username rename resolve to the new username.
	return s.fetchLive(ctx, claims.UserID)
}

func (s *Service) fetchLive(ctx context.Context, userID string) (*identity.Identity, error) {
	ident, err := s.repos.Identities.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			return nil, ErrUnauthenticated
		}
		return nil, errors.Wrap(err, "[fetchLive] Identities.GetByID")
	}
	return ident, nil
}

// BeginOAuth generates the CSRF state and nonce, persists the flow state
// (including any pending username the visitor picked), and returns the
// provider redirect URL.
func (s *Service) BeginOAuth(pendingUsername string) (string, error) {
	state := utils.RandomString(stateLength)
	nonce := utils.RandomString(stateLength)
	correlation := uuid.New().String()

	err := s.repos.Flow.Save(state, &authflow.State{
		CSRF:            state,
		Nonce:           nonce,
		PendingUsername: pendingUsername,
		Correlation:     correlation,
		CreatedAt:       s.nowTime(),
	})
	if err != nil {
		return "", errors.Wrap(err, "[BeginOAuth] Flow.Save")
	}

	log.Info().
		Str("flow", correlation).
		Bool("pending_username", pendingUsername != "").
		Msg("oauth flow started")

	return s.idp.AuthCodeURL(state, nonce), nil
}

// CompleteOAuth handles the provider callback: consumes the single-use
// state, exchanges the code, and resolves or creates the identity. A state
// or nonce mismatch aborts the flow hard - there is no advisory mode.
func (s *Service) CompleteOAuth(ctx context.Context, state, code string) (*Result, error) {
	flowState, err := s.repos.Flow.Consume(state)
	if err != nil {
		return nil, ErrStateMismatch
	}
	if flowState.CSRF != state || s.nowTime().Sub(flowState.CreatedAt) > stateTimeout {
		return nil, ErrStateMismatch
	}

	profile, err := s.idp.Exchange(ctx, code)
	if err != nil {
		log.Warn().Str("flow", flowState.Correlation).Err(err).Msg("provider exchange failed")
		return nil, ErrProviderAuthFailed
	}
	if profile.Nonce != flowState.Nonce {
		return nil, ErrStateMismatch
	}

	ident, err := s.resolveProfile(ctx, profile, flowState.PendingUsername)
	if err != nil {
		log.Error().Str("flow", flowState.Correlation).Err(err).Msg("identity resolution failed")
		return nil, err
	}

	result, err := s.finishLogin(ctx, ident)
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("flow", flowState.Correlation).
		Str("user_id", ident.ID).
		Msg("oauth flow complete")
	return result, nil
}

// resolveProfile maps a verified provider profile to an identity record:
// by provider subject first, then by email (binding the subject to the
// existing record), and finally by creating a new account. The pending
// username is validated lazily here, at consumption time, and applied only
// to a newly created identity.
func (s *Service) resolveProfile(ctx context.Context, profile *provider.Profile, pendingUsername string) (*identity.Identity, error) {
	ident, err := s.repos.Identities.GetByProviderID(ctx, profile.Subject)
	if err == nil {
		return ident, nil
	}
	if !errors.Is(err, identity.ErrNotFound) {
		return nil, errors.Wrap(err, "[resolveProfile] GetByProviderID")
	}

	if profile.Email != "" {
		ident, err = s.repos.Identities.GetByEmail(ctx, profile.Email)
		if err == nil {
			ident.ProviderID = profile.Subject
			if err := s.repos.Identities.Update(ctx, ident); err != nil {
				return nil, errors.Wrap(err, "[resolveProfile] bind provider id")
			}
			return ident, nil
		}
		if !errors.Is(err, identity.ErrNotFound) {
			return nil, errors.Wrap(err, "[resolveProfile] GetByEmail")
		}
	}

	return s.createFromProfile(ctx, profile, pendingUsername)
}

func (s *Service) createFromProfile(ctx context.Context, profile *provider.Profile, pendingUsername string) (*identity.Identity, error) {
	username := identity.NormalizeUsername(pendingUsername)
	if !identity.ValidUsername(username) {
		username = identity.FallbackUsername()
	}

	newIdent := &identity.Identity{
		Email:      profile.Email,
		Username:   username,
		Name:       profile.Name,
		Avatar:     profile.Picture,
		ProviderID: profile.Subject,
		// No password: accounts created via the OAuth path never have one
	}

	err := s.repos.Identities.Create(ctx, newIdent)
	if errors.Is(err, identity.ErrUsernameTaken) {
		// Availability changed during the round trip; discard the claim
		// in favor of a synthesized handle.
		newIdent.Username = identity.FallbackUsername()
		err = s.repos.Identities.Create(ctx, newIdent)
	}
	if err != nil {
		return nil, errors.Wrap(ErrIdentityCreationFailed, err.Error())
	}
	return newIdent, nil
}

// LoginWithPassword authenticates an email/password pair. Every failure
// mode collapses to ErrInvalidCredential so responses cannot be used to
// enumerate accounts.
func (s *Service) LoginWithPassword(ctx context.Context, email, password string) (*Result, error) {
	ident, err := s.repos.Identities.GetByEmail(ctx, email)
	if err != nil {
		return nil, ErrInvalidCredential
	}
	if !ident.HasPassword() || !identity.CheckPasswordHash(password, ident.PasswordHash) {
		return nil, ErrInvalidCredential
	}
	return s.finishLogin(ctx, ident)
}

// Logout invalidates a single session; other sessions and previously
// minted tokens for other identities are untouched.
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	return s.sessions.Destroy(ctx, sessionID)
}

// Rename changes an identity's handle, subject to format and uniqueness,
// and remints a token carrying the new snapshot.
func (s *Service) Rename(ctx context.Context, ident *identity.Identity, candidate string) (*Result, error) {
	username := identity.NormalizeUsername(candidate)
	if !identity.ValidUsername(username) {
		return nil, identity.ErrInvalidUsername
	}

	updated := *ident
	updated.Username = username
	if err := s.repos.Identities.Update(ctx, &updated); err != nil {
		return nil, err
	}

	minted, err := s.minter.Mint(&updated)
	if err != nil {
		return nil, errors.Wrap(err, "[Rename] minter.Mint")
	}
	return &Result{Identity: &updated, Token: minted}, nil
}

func (s *Service) finishLogin(ctx context.Context, ident *identity.Identity) (*Result, error) {
	minted, err := s.minter.Mint(ident)
	if err != nil {
		return nil, errors.Wrap(err, "[finishLogin] minter.Mint")
	}

	sessionID, err := s.sessions.Establish(ctx, ident.ID)
	if err != nil {
		return nil, errors.Wrap(err, "[finishLogin] sessions.Establish")
	}

	return &Result{
		Identity:  ident,
		Token:     minted,
		SessionID: sessionID,
	}, nil
}
