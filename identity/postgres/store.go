package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/steadmanrj/linkfolio/identity"
)

var _ identity.Store = (*Store)(nil)

// Constraint names on the identities table. The unique indexes are what make
// concurrent Create calls race-safe; this store only translates violations
// into the typed errors callers switch on.
const (
	usernameConstraint = "identities_username_key"
	emailConstraint    = "identities_email_key"
	providerConstraint = "identities_provider_id_key"
)

const uniqueViolation = "23505"

// Store is a Postgres-backed identity store using lib/pq.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Open connects to Postgres and pings it.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	return NewStore(db), nil
}

const selectColumns = `id, email, username, name, avatar, provider_id, password_hash`

func (s *Store) GetByID(ctx context.Context, id string) (*identity.Identity, error) {
	return s.getBy(ctx, "id", id)
}

func (s *Store) GetByUsername(ctx context.Context, username string) (*identity.Identity, error) {
	return s.getBy(ctx, "username", username)
}

func (s *Store) GetByEmail(ctx context.Context, email string) (*identity.Identity, error) {
	return s.getBy(ctx, "email", email)
}

func (s *Store) GetByProviderID(ctx context.Context, providerID string) (*identity.Identity, error) {
	return s.getBy(ctx, "provider_id", providerID)
}

func (s *Store) getBy(ctx context.Context, column, value string) (*identity.Identity, error) {
	query := fmt.Sprintf(`SELECT %s FROM identities WHERE %s = $1`, selectColumns, column)

	var ident identity.Identity
	var email, name, avatar, providerID, passwordHash sql.NullString
	err := s.db.QueryRowContext(ctx, query, value).Scan(
		&ident.ID,
		&email,
		&ident.Username,
		&name,
		&avatar,
		&providerID,
		&passwordHash,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, identity.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: get by %s: %w", column, err)
	}

	ident.Email = email.String
	ident.Name = name.String
	ident.Avatar = avatar.String
	ident.ProviderID = providerID.String
	ident.PasswordHash = passwordHash.String
	return &ident, nil
}

func (s *Store) Create(ctx context.Context, ident *identity.Identity) error {
	if ident.ID == "" {
		ident.ID = uuid.New().String()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO identities (id, email, username, name, avatar, provider_id, password_hash)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		ident.ID,
		nullable(ident.Email),
		ident.Username,
		nullable(ident.Name),
		nullable(ident.Avatar),
		nullable(ident.ProviderID),
		nullable(ident.PasswordHash),
	)
	if err != nil {
		return mapConstraintError(err, "create")
	}
	return nil
}

func (s *Store) Update(ctx context.Context, ident *identity.Identity) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE identities
		SET email = $2, username = $3, name = $4, avatar = $5, provider_id = $6, password_hash = $7
		WHERE id = $1
	`,
		ident.ID,
		nullable(ident.Email),
		ident.Username,
		nullable(ident.Name),
		nullable(ident.Avatar),
		nullable(ident.ProviderID),
		nullable(ident.PasswordHash),
	)
	if err != nil {
		return mapConstraintError(err, "update")
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("postgres: update rows affected: %w", err)
	}
	if rows == 0 {
		return identity.ErrNotFound
	}
	return nil
}

func mapConstraintError(err error, op string) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		switch pqErr.Constraint {
		case usernameConstraint:
			return identity.ErrUsernameTaken
		case emailConstraint:
			return identity.ErrEmailTaken
		case providerConstraint:
			return identity.ErrProviderIDTaken
		}
	}
	return fmt.Errorf("postgres: %s: %w", op, err)
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
