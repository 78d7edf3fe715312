package identity

import (
	"context"
	"database/sql"
	"errors"
)

// SQLCredentialStore reads provider credentials from a database table.
type SQLCredentialStore struct {
	db *sql.DB
}

// NewSQLCredentialStore creates a credential store on an open connection.
func NewSQLCredentialStore(db *sql.DB) *SQLCredentialStore {
	return &SQLCredentialStore{db: db}
}

// GetByEmail retrieves a credential by email.
func (s *SQLCredentialStore) GetByEmail(ctx context.Context, email string) (*Credential, error) {
	query := `
		SELECT id, email, password_hash
		FROM credentials
		WHERE lower(email) = lower($1)
	`

	var c Credential
	err := s.db.QueryRowContext(ctx, query, email).Scan(&c.ID, &c.Email, &c.PasswordHash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCredentialNotFound
		}
		return nil, err
	}

	return &c, nil
}
