// Package identity wraps the external identity provider: credential
// submission, sign-out, and the identity-changed event stream the session
// resolver consumes.
package identity

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/seoportal/sessionbind/pkg/domain"
)

// Listener receives identity-changed events. A nil identity means
// unauthenticated.
type Listener func(*domain.Identity)

// Gateway authenticates credentials and publishes identity changes.
// Events are delivered serially: a listener never observes two deliveries
// interleaved, and delivery order matches the order of state changes.
type Gateway struct {
	creds  CredentialStore
	logger *slog.Logger

	// mu serializes state changes together with their event delivery.
	mu        sync.Mutex
	current   *domain.Identity
	listeners map[int]Listener
	nextID    int
}

// NewGateway creates a gateway over a credential store.
func NewGateway(creds CredentialStore, logger *slog.Logger) *Gateway {
	return &Gateway{
		creds:     creds,
		logger:    logger,
		listeners: make(map[int]Listener),
	}
}

// OnIdentityChanged registers a listener. The listener is invoked immediately
// with the current identity, then on every subsequent change. The returned
// cancel releases the registration.
func (g *Gateway) OnIdentityChanged(fn Listener) (cancel func()) {
	g.mu.Lock()
	id := g.nextID
	g.nextID++
	g.listeners[id] = fn
	fn(g.current)
	g.mu.Unlock()

	return func() {
		g.mu.Lock()
		delete(g.listeners, id)
		g.mu.Unlock()
	}
}

// SignIn verifies credentials and, on success, publishes the new identity.
// Unknown accounts and wrong passwords are indistinguishable to the caller.
func (g *Gateway) SignIn(ctx context.Context, email, password string) (*domain.Identity, error) {
	cred, err := g.creds.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrCredentialNotFound) {
			// Burn comparable time so the lookup miss is not observable.
			VerifyPassword(password, dummyHash)
			return nil, domain.ErrInvalidCredential
		}
		return nil, err
	}

	if !VerifyPassword(password, cred.PasswordHash) {
		return nil, domain.ErrInvalidCredential
	}

	ident := &domain.Identity{ID: cred.ID, Email: cred.Email}

	g.mu.Lock()
	g.current = ident
	g.emitLocked(ident)
	g.mu.Unlock()

	g.logger.Info("identity signed in", "identity_id", ident.ID)
	return ident, nil
}

// SignOut destroys the current identity and publishes the change. Signing out
// while unauthenticated is a no-op.
func (g *Gateway) SignOut(ctx context.Context) error {
	g.mu.Lock()
	wasSignedIn := g.current != nil
	g.current = nil
	if wasSignedIn {
		g.emitLocked(nil)
	}
	g.mu.Unlock()

	if wasSignedIn {
		g.logger.Info("identity signed out")
	}
	return nil
}

// Current returns the identity of the signed-in user, or nil.
func (g *Gateway) Current() *domain.Identity {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.current
}

// emitLocked delivers an event to every listener while holding mu, which is
// what makes delivery serial. Listeners must not call back into the gateway.
func (g *Gateway) emitLocked(ident *domain.Identity) {
	for _, fn := range g.listeners {
		fn(ident)
	}
}

// dummyHash is a valid Argon2id encoding of an unguessable value, used to
// equalize timing when the email lookup misses.
var dummyHash = func() string {
	h, err := HashPassword("sessionbind-dummy-credential")
	if err != nil {
		panic(err)
	}
	return h
}()
