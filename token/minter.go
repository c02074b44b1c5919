package token

import (
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/steadmanrj/linkfolio/identity"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

const defaultExpiry = 7 * 24 * time.Hour

// Claims is the identity snapshot carried inside a bearer token. The
// username and email are what the identity looked like at mint time;
// resolvers must re-fetch the live record by UserID before trusting them.
type Claims struct {
	UserID    string
	Email     string
	Username  string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Minter issues and verifies stateless signed bearer tokens. It is pure:
// no repo access, no side effects, so verification needs no synchronization.
type Minter struct {
	signer Signer
	expiry time.Duration
}

// MinterOption defines a function type to modify the Minter instance.
type MinterOption func(*Minter)

// WithExpiry overrides the default 7 day token lifetime.
func WithExpiry(d time.Duration) MinterOption {
	return func(m *Minter) {
		m.expiry = d
	}
}

// NewMinter creates a new token minter backed by the given signer.
func NewMinter(signer Signer, options ...MinterOption) (*Minter, error) {
	if signer == nil {
		return nil, errors.New("[NewMinter] signer is required")
	}

	m := &Minter{
		signer: signer,
		expiry: defaultExpiry,
	}
	for _, opt := range options {
		opt(m)
	}
	return m, nil
}

// Mint signs an identity snapshot into a compact bearer token.
func (m *Minter) Mint(ident *identity.Identity) (string, error) {
	if ident == nil || ident.ID == "" {
		return "", errors.New("[Mint] identity with ID is required")
	}

	now := NowTimeFunc()
	claims := jwtlib.MapClaims{
		"sub":      ident.ID,
		"email":    ident.Email,
		"username": ident.Username,
		"iat":      now.Unix(),
		"exp":      now.Add(m.expiry).Unix(),
		"jti":      uuid.New().String(),
	}

	signedToken, err := m.signer.Sign(claims)
	if err != nil {
		return "", errors.Wrap(err, "[Mint] signer.Sign")
	}
	return signedToken, nil
}

// Verify checks the signature and expiry of a raw token and returns its
// claims. Expiry is checked explicitly so an expired-but-well-signed token
// yields ErrTokenExpired rather than the generic ErrTokenInvalid.
func (m *Minter) Verify(rawToken string) (*Claims, error) {
	parsed, err := jwtlib.ParseWithClaims(
		rawToken,
		jwtlib.MapClaims{},
		m.signer.GetVerificationKey,
		jwtlib.WithoutClaimsValidation(),
	)
	if err != nil || !parsed.Valid {
		return nil, ErrTokenInvalid
	}

	mapClaims, ok := parsed.Claims.(jwtlib.MapClaims)
	if !ok {
		return nil, ErrTokenInvalid
	}

	sub, _ := mapClaims["sub"].(string)
	email, _ := mapClaims["email"].(string)
	username, _ := mapClaims["username"].(string)
	iat, _ := mapClaims["iat"].(float64)
	exp, _ := mapClaims["exp"].(float64)

	if sub == "" || exp == 0 {
		return nil, ErrTokenInvalid
	}

	claims := &Claims{
		UserID:    sub,
		Email:     email,
		Username:  username,
		IssuedAt:  time.Unix(int64(iat), 0),
		ExpiresAt: time.Unix(int64(exp), 0),
	}

	if !NowTimeFunc().Before(claims.ExpiresAt) {
		return nil, ErrTokenExpired
	}
	return claims, nil
}
