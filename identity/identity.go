package identity

import (
	"regexp"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Identity is the canonical account record. Tokens and sessions carry
// snapshots of it; anything that makes an authorization decision must
// re-fetch the record from the Store by ID first.
type Identity struct {
	ID           string `json:"id,omitempty"`       // Unique identifier for the account
	Email        string `json:"email,omitempty"`    // Account email, unique when present
	Username     string `json:"username,omitempty"` // Unique handle, [a-z0-9_]{3,20}
	Name         string `json:"name,omitempty"`     // Display name
	Avatar       string `json:"avatar,omitempty"`   // Avatar URL from the provider
	ProviderID   string `json:"-"`                  // External IdP subject, unique when present
	PasswordHash string `json:"-"`                  // Empty for accounts created via OAuth - never serialize
}

var usernamePattern = regexp.MustCompile(`^[a-z0-9_]{3,20}$`)

// ValidUsername reports whether a candidate handle matches the allowed format.
func ValidUsername(candidate string) bool {
	return usernamePattern.MatchString(candidate)
}

// NormalizeUsername lowercases and trims a candidate handle before validation.
func NormalizeUsername(candidate string) string {
	return strings.ToLower(strings.TrimSpace(candidate))
}

// FallbackUsername synthesizes a handle for accounts created without a usable
// candidate. The uuid suffix keeps collisions effectively impossible, and the
// result always passes ValidUsername.
func FallbackUsername() string {
	return "user_" + strings.ReplaceAll(uuid.New().String(), "-", "")[:12]
}

// HasPassword reports whether the account can authenticate with a password.
func (i *Identity) HasPassword() bool {
	return i.PasswordHash != ""
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}
