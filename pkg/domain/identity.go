package domain

// Identity is the credential-provider identifier for an authenticated user.
// It is issued by the identity gateway on sign-in and destroyed on sign-out;
// the ID and the tenant affiliation key live in independent namespaces.
type Identity struct {
	ID    string
	Email string
}

// Role determines which tenant records a session may observe.
type Role string

const (
	// RoleAdmin may observe every tenant.
	RoleAdmin Role = "admin"
	// RoleClient may observe the single tenant matching its affiliation.
	RoleClient Role = "client"
)

// Valid reports whether the role is one of the known application roles.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleClient
}

// Profile is the persisted application profile for an identity, keyed by
// the identity ID. It is owned by the document store and read-only here.
type Profile struct {
	IdentityID        string `json:"identity_id" validate:"required"`
	Role              Role   `json:"role" validate:"required,oneof=admin client"`
	TenantAffiliation string `json:"tenant_affiliation,omitempty" validate:"omitempty,email"`
}

// Session is the resolved (identity, role, affiliation) triple. It is held
// in memory only and recomputed whenever the identity changes.
type Session struct {
	Identity          Identity
	Role              Role
	TenantAffiliation string
}

// IsAdmin reports whether the session carries the administrator role.
func (s *Session) IsAdmin() bool {
	return s != nil && s.Role == RoleAdmin
}
