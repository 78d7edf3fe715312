// Package store defines the document-store collaborator: profile lookup,
// tenant mutations, and live tenant subscriptions delivering full-collection
// snapshots. Every emission replaces the previous list wholesale, which keeps
// downstream reconciliation stateless and idempotent.
package store

import (
	"context"
	"encoding/json"

	"github.com/seoportal/sessionbind/pkg/domain"
)

// TenantQuery selects the live subset a subscription observes.
// The zero value observes the entire tenant collection.
type TenantQuery struct {
	// ContactEmail, when non-empty, restricts the subscription to the single
	// tenant whose affiliation key matches. The affiliation key is a business
	// identifier, independent from the authentication id namespace.
	ContactEmail string
}

// Snapshot is one full-replace emission of the subscribed tenant set.
// A non-nil Err marks a stream fault; Tenants is empty in that case.
type Snapshot struct {
	Tenants domain.TenantList
	Err     error
}

// Subscription is a live stream of snapshots. The first snapshot follows
// promptly after SubscribeTenants; Close releases the stream and no snapshot
// is delivered afterwards.
type Subscription interface {
	Snapshots() <-chan Snapshot
	Close()
}

// TenantUpdate is a partial tenant mutation. Nil fields are left untouched.
type TenantUpdate struct {
	Name         *string
	ContactEmail *string
	LogoURL      *string
	Geo          *domain.GeoSettings
	Report       json.RawMessage
}

// Store is the document-store port consumed by the session layer. Mutations
// are invoked by admin editors outside this layer; subscribers merely
// re-observe them through snapshot emissions.
type Store interface {
	// GetProfile returns the profile document for an identity id.
	// A missing or malformed document yields domain.ErrProfileMissing.
	GetProfile(ctx context.Context, identityID string) (*domain.Profile, error)

	// PutProfile creates or replaces a profile document.
	PutProfile(ctx context.Context, p *domain.Profile) error

	// SubscribeTenants opens a live subscription for the given query.
	SubscribeTenants(ctx context.Context, q TenantQuery) (Subscription, error)

	AddTenant(ctx context.Context, t *domain.TenantRecord) error
	UpdateTenant(ctx context.Context, id string, u TenantUpdate) error
	DeleteTenant(ctx context.Context, id string) error
}
