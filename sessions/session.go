package sessions

import "time"

// Session is a server-side authentication record keyed by a cookie value.
//
// UserID is the single canonical identity reference. AltUserID exists only
// for interop with records written by the third-party OAuth library the
// original frontend used: it is a read-through alias that Resolve backfills
// into UserID, never an independent source of truth.
type Session struct {
	ID        string    `json:"id"`                    // Cookie value, 256 bits of entropy
	UserID    string    `json:"user_id"`               // Canonical identity reference
	AltUserID string    `json:"alt_user_id,omitempty"` // Interop alias, read-through only
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"` // Absolute expiry
}

// Expired reports whether the session is past its absolute expiry.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
