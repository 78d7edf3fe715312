package identity

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// ErrCredentialNotFound is returned by credential stores when no credential
// exists for an email. The gateway folds it into ErrInvalidCredential so
// callers cannot distinguish an unknown account from a wrong password.
var ErrCredentialNotFound = errors.New("credential not found")

// Credential is one provider-side account record.
type Credential struct {
	ID           string
	Email        string
	PasswordHash string
}

// CredentialStore looks up provider credentials by email.
type CredentialStore interface {
	GetByEmail(ctx context.Context, email string) (*Credential, error)
}

// MemoryCredentialStore is an in-process credential store for tests and
// embedded deployments.
type MemoryCredentialStore struct {
	mu    sync.RWMutex
	creds map[string]Credential // keyed by normalized email
}

// NewMemoryCredentialStore creates an empty credential store.
func NewMemoryCredentialStore() *MemoryCredentialStore {
	return &MemoryCredentialStore{creds: make(map[string]Credential)}
}

// Register adds a credential, hashing the password. Returns the identity id.
func (s *MemoryCredentialStore) Register(email, password string) (string, error) {
	hash, err := HashPassword(password)
	if err != nil {
		return "", err
	}

	email = strings.ToLower(strings.TrimSpace(email))
	id := uuid.New().String()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds[email] = Credential{ID: id, Email: email, PasswordHash: hash}
	return id, nil
}

// GetByEmail retrieves a credential by email.
func (s *MemoryCredentialStore) GetByEmail(_ context.Context, email string) (*Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.creds[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return nil, ErrCredentialNotFound
	}
	return &c, nil
}
