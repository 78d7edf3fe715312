// Package portal wires the session & tenant-binding core of the reporting
// portal into a single embeddable instance.
//
// Setup:
//
//	docs := store.NewMemoryStore()
//	creds := identity.NewMemoryCredentialStore()
//
//	p, err := portal.New(portal.Config{
//	    Store:       docs,
//	    KV:          kv.NewMemoryStore(),
//	    Credentials: creds,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer p.Close()
//
//	sess, err := p.SignIn(ctx, "admin@x.com", "password")
//
// The instance owns the live wiring: identity events flow into the session
// resolver, each resolved session re-scopes the tenant directory, every
// directory emission is reconciled against the active selection, and the
// access gate reads all three when asked about a route.
package portal

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"github.com/seoportal/sessionbind/pkg/binding"
	"github.com/seoportal/sessionbind/pkg/domain"
	"github.com/seoportal/sessionbind/pkg/identity"
	"github.com/seoportal/sessionbind/pkg/kv"
	"github.com/seoportal/sessionbind/pkg/store"
)

// Config holds the configuration for a portal instance.
type Config struct {
	// Store is the document store backing profiles and tenants (required).
	Store store.Store

	// KV is the persisted slot for the active tenant selection (required).
	KV kv.Store

	// Credentials authenticates sign-in attempts (required).
	Credentials identity.CredentialStore

	// Gate holds the redirect targets (defaults applied per field).
	Gate binding.GateConfig

	// Logger is the structured logger (default: slog JSON to stdout).
	Logger *slog.Logger
}

// Portal is a wired session & tenant-binding instance.
type Portal struct {
	config    Config
	gateway   *identity.Gateway
	resolver  *binding.Resolver
	directory *binding.Directory
	selector  *binding.Selector
	gate      *binding.Gate

	unsubscribe func()
}

// New creates a portal instance, opens the boot-time tenant subscription and
// binds the identity gateway to the resolver. The boot event is delivered
// before New returns, so a persisted selection is already reconciled against
// the first list emission once it arrives.
func New(cfg Config) (*Portal, error) {
	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)

	ctx := context.Background()

	gateway := identity.NewGateway(cfg.Credentials, cfg.Logger)
	selector := binding.NewSelector(ctx, cfg.KV, cfg.Logger)
	directory := binding.NewDirectory(cfg.Store, selector, cfg.Logger)
	resolver := binding.NewResolver(cfg.Store, selector, cfg.Logger)
	resolver.OnSession(func(sess *domain.Session) {
		directory.Apply(ctx, sess)
	})

	// The gateway delivers the current (nil) identity synchronously on
	// registration, which drives the initial all-tenants subscription.
	unsubscribe := gateway.OnIdentityChanged(func(ident *domain.Identity) {
		resolver.HandleIdentity(ctx, ident)
	})

	return &Portal{
		config:      cfg,
		gateway:     gateway,
		resolver:    resolver,
		directory:   directory,
		selector:    selector,
		gate:        binding.NewGate(cfg.Gate, resolver, directory, selector),
		unsubscribe: unsubscribe,
	}, nil
}

// Close detaches from the gateway and releases the live tenant subscription.
func (p *Portal) Close() {
	p.unsubscribe()
	p.directory.Close()
}

// SignIn authenticates a credential and returns the resolved session. The
// full chain runs before SignIn returns: profile fetch, directory re-scope
// and, for client roles, affiliation adoption. The tenant list itself arrives
// asynchronously on the new subscription.
func (p *Portal) SignIn(ctx context.Context, email, password string) (*domain.Session, error) {
	if _, err := p.gateway.SignIn(ctx, email, password); err != nil {
		return nil, err
	}
	sess, _ := p.resolver.State()
	if sess == nil {
		// Authenticated but no profile document: roll the gateway back so
		// the caller is not left half signed in.
		p.gateway.SignOut(ctx)
		return nil, domain.ErrProfileMissing
	}
	return sess, nil
}

// SignOut ends the session, clears the active selection and re-scopes the
// directory back to the unauthenticated view.
func (p *Portal) SignOut(ctx context.Context) {
	p.gateway.SignOut(ctx)
}

// Session returns the current session (nil while unauthenticated) and
// whether a resolution is in flight.
func (p *Portal) Session() (*domain.Session, bool) {
	return p.resolver.State()
}

// Tenants returns the current role-scoped tenant list and whether the first
// emission of the current subscription is still pending.
func (p *Portal) Tenants() (domain.TenantList, bool) {
	return p.directory.State()
}

// Select sets the active tenant. The id is accepted and persisted even
// before the list confirms it exists; a later emission without it clears the
// selection again.
func (p *Portal) Select(id string) {
	p.selector.Select(id)
}

// ClearSelection drops the active selection.
func (p *Portal) ClearSelection() {
	p.selector.Clear()
}

// ActiveTenant resolves the current selection against the current list.
// It returns nil when nothing is selected or the selection is not (or not
// yet) present in the list.
func (p *Portal) ActiveTenant() *domain.TenantRecord {
	tenants, _ := p.directory.State()
	return p.selector.Resolve(tenants)
}

// ActiveSelectionID returns the raw selected tenant id, which may not be
// backed by the current list yet.
func (p *Portal) ActiveSelectionID() string {
	return p.selector.ActiveID()
}

// Evaluate returns the access gate's verdict for a route.
func (p *Portal) Evaluate(route binding.Route) binding.Decision {
	return p.gate.Evaluate(route)
}

// Orphaned reports whether the signed-in client's affiliation matched no
// tenant record after the list finished loading.
func (p *Portal) Orphaned() bool {
	return p.directory.Orphaned()
}

func validateConfig(cfg *Config) error {
	if cfg.Store == nil {
		return errors.New("portal: Store is required")
	}
	if cfg.KV == nil {
		return errors.New("portal: KV is required")
	}
	if cfg.Credentials == nil {
		return errors.New("portal: Credentials is required")
	}
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewJSONHandler(os.Stdout, nil))
	}
}
