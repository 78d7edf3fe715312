// Package binding implements the session & tenant-binding layer: resolving
// an authenticated identity into an application session, subscribing to the
// tenant records that session may observe, reconciling the active tenant
// selection against the live list, and gating protected views on a
// consistent, loaded state.
package binding

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/seoportal/sessionbind/pkg/domain"
)

// ProfileReader fetches the application profile document for an identity.
type ProfileReader interface {
	GetProfile(ctx context.Context, identityID string) (*domain.Profile, error)
}

// SelectionAdopter receives the resolver's auto-selection signal on client
// login and the clear signal on sign-out.
type SelectionAdopter interface {
	AdoptAffiliation(affiliation string)
	Clear()
}

// Resolver turns identity-changed events into sessions. A session exists only
// when the identity has a well-formed profile document; an identity without
// one resolves to nil with a warning, never to a role-less session.
type Resolver struct {
	profiles ProfileReader
	adopter  SelectionAdopter // may be nil
	logger   *slog.Logger

	mu      sync.Mutex
	session *domain.Session
	loading bool
	epoch   uint64

	onSession []func(*domain.Session)
}

// NewResolver creates a resolver. adopter may be nil when no selector is
// wired (tests).
func NewResolver(profiles ProfileReader, adopter SelectionAdopter, logger *slog.Logger) *Resolver {
	return &Resolver{profiles: profiles, adopter: adopter, logger: logger}
}

// OnSession registers a callback invoked after every resolution completes,
// with the resulting session (nil when unauthenticated). Register before
// binding the resolver to a gateway.
func (r *Resolver) OnSession(fn func(*domain.Session)) {
	r.onSession = append(r.onSession, fn)
}

// HandleIdentity processes one identity-changed event. Events must be
// delivered serially (the gateway guarantees this); the epoch guard
// additionally discards a resolution superseded while its fetch was in
// flight, so a stale profile can never overwrite fresh state.
func (r *Resolver) HandleIdentity(ctx context.Context, ident *domain.Identity) {
	r.mu.Lock()
	r.epoch++
	epoch := r.epoch

	if ident == nil {
		hadSession := r.session != nil
		r.session = nil
		r.loading = false
		r.mu.Unlock()

		// Only a real sign-out clears the selection; the boot-time nil event
		// must leave a persisted selection in place for the next login.
		if hadSession && r.adopter != nil {
			r.adopter.Clear()
		}
		r.notify(nil)
		return
	}

	r.loading = true
	r.mu.Unlock()

	profile, err := r.profiles.GetProfile(ctx, ident.ID)

	r.mu.Lock()
	if epoch != r.epoch {
		r.mu.Unlock()
		return
	}

	var sess *domain.Session
	if err != nil {
		if errors.Is(err, domain.ErrProfileMissing) {
			r.logger.Warn("identity authenticated but has no profile document", "identity_id", ident.ID)
		} else {
			r.logger.Error("profile fetch failed", "identity_id", ident.ID, "error", err)
		}
	} else {
		sess = &domain.Session{
			Identity:          *ident,
			Role:              profile.Role,
			TenantAffiliation: profile.TenantAffiliation,
		}
	}
	r.session = sess
	r.loading = false
	r.mu.Unlock()

	if sess != nil && sess.Role == domain.RoleClient && sess.TenantAffiliation != "" && r.adopter != nil {
		r.adopter.AdoptAffiliation(sess.TenantAffiliation)
	}
	r.notify(sess)
}

// State returns the current session (nil while unauthenticated) and whether
// a resolution is in flight.
func (r *Resolver) State() (*domain.Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.session, r.loading
}

func (r *Resolver) notify(sess *domain.Session) {
	for _, fn := range r.onSession {
		fn(sess)
	}
}
