package binding

import (
	"net/url"
)

// GateState is the access gate's verdict for a requested view.
type GateState string

const (
	// StateBooting: session or tenant state is still loading. No redirect;
	// the caller shows a neutral loading view.
	StateBooting GateState = "booting"
	// StateUnauthenticated: no session after loading completed. Redirect to
	// sign-in, carrying the originally requested route.
	StateUnauthenticated GateState = "unauthenticated"
	// StateDenied: the session's role lacks the route's capability. Redirect
	// to the default landing route; the user is authenticated.
	StateDenied GateState = "denied"
	// StateAwaitingTenant: an admin session with no active tenant. Redirect
	// to the tenant management route to pick one.
	StateAwaitingTenant GateState = "awaiting_tenant"
	// StateNoTenantForClient: a client session whose tenant list finished
	// loading empty. Terminal; a client has no self-service path to another
	// tenant, so the caller shows a support-contact message instead of
	// redirecting.
	StateNoTenantForClient GateState = "no_tenant_for_client"
	// StateReady: render the requested view.
	StateReady GateState = "ready"
)

// Route describes the requirements of a requested view.
type Route struct {
	Path          string
	Public        bool // renders without a session (sign-in page)
	AdminOnly     bool
	RequireTenant bool
}

// Decision is the gate's verdict plus the redirect target implied by every
// non-Ready, non-terminal state.
type Decision struct {
	State    GateState `json:"state"`
	Redirect string    `json:"redirect,omitempty"`
}

// GateConfig holds the redirect targets.
type GateConfig struct {
	SignInPath        string
	DefaultLanding    string
	TenantManagerPath string
}

func (c *GateConfig) applyDefaults() {
	if c.SignInPath == "" {
		c.SignInPath = "/login"
	}
	if c.DefaultLanding == "" {
		c.DefaultLanding = "/dashboard/overview"
	}
	if c.TenantManagerPath == "" {
		c.TenantManagerPath = "/admin/clients"
	}
}

// Gate decides whether a protected view may render. It holds no state of its
// own: every evaluation reads the resolver, directory and selector afresh.
type Gate struct {
	cfg       GateConfig
	resolver  *Resolver
	directory *Directory
	selector  *Selector
}

// NewGate creates a gate over the three state holders.
func NewGate(cfg GateConfig, resolver *Resolver, directory *Directory, selector *Selector) *Gate {
	cfg.applyDefaults()
	return &Gate{cfg: cfg, resolver: resolver, directory: directory, selector: selector}
}

// Evaluate returns the gate's verdict for a route.
//
// AwaitingTenant and NoTenantForClient are only ever produced once the
// directory has finished loading; before that the verdict is Booting, so
// "not yet loaded" is never mistaken for "no tenant found".
func (g *Gate) Evaluate(route Route) Decision {
	if route.Public {
		return Decision{State: StateReady}
	}

	sess, sessLoading := g.resolver.State()
	if sessLoading {
		return Decision{State: StateBooting}
	}

	if sess == nil {
		return Decision{
			State:    StateUnauthenticated,
			Redirect: g.signInRedirect(route.Path),
		}
	}

	if route.AdminOnly && !sess.IsAdmin() {
		return Decision{State: StateDenied, Redirect: g.cfg.DefaultLanding}
	}

	if route.RequireTenant {
		tenants, tenantsLoading := g.directory.State()
		if tenantsLoading {
			return Decision{State: StateBooting}
		}

		if g.selector.Resolve(tenants) == nil {
			if sess.IsAdmin() {
				return Decision{State: StateAwaitingTenant, Redirect: g.cfg.TenantManagerPath}
			}
			return Decision{State: StateNoTenantForClient}
		}
	}

	return Decision{State: StateReady}
}

// signInRedirect builds the sign-in target carrying the originally requested
// route for post-login return.
func (g *Gate) signInRedirect(from string) string {
	if from == "" {
		return g.cfg.SignInPath
	}
	return g.cfg.SignInPath + "?from=" + url.QueryEscape(from)
}
