package binding

import (
	"context"
	"log/slog"
	"sync"

	"github.com/seoportal/sessionbind/pkg/domain"
	"github.com/seoportal/sessionbind/pkg/store"
)

// TenantSubscriber is the slice of the document store the directory needs.
type TenantSubscriber interface {
	SubscribeTenants(ctx context.Context, q store.TenantQuery) (store.Subscription, error)
}

// ListSink receives every applied list emission, in order.
type ListSink interface {
	ApplyList(list domain.TenantList)
}

// Directory maintains the live, role-scoped tenant list. Administrators (and
// the unauthenticated boot state) observe the whole collection; client
// sessions observe the single tenant matching their affiliation key.
//
// Emissions are epoch-tagged: Apply bumps the epoch before tearing down the
// old subscription, so a late emission from a replaced stream is discarded
// rather than overwriting fresh state.
type Directory struct {
	store  TenantSubscriber
	sink   ListSink // may be nil
	logger *slog.Logger

	mu          sync.Mutex
	epoch       uint64
	sub         store.Subscription
	tenants     domain.TenantList
	loading     bool
	orphaned    bool
	clientQuery bool

	// sinkMu serializes sink delivery across pump goroutines.
	sinkMu sync.Mutex
}

// NewDirectory creates a directory. Call Apply to open the first
// subscription. sink may be nil when no selector is wired (tests).
func NewDirectory(st TenantSubscriber, sink ListSink, logger *slog.Logger) *Directory {
	return &Directory{store: st, sink: sink, logger: logger, loading: true}
}

// Apply re-scopes the live subscription to a session. The previous
// subscription's delivery is cut off (epoch bump) before the new one opens,
// and loading is true again until the new subscription's first emission.
func (d *Directory) Apply(ctx context.Context, sess *domain.Session) {
	q := store.TenantQuery{}
	client := false
	if sess != nil && sess.Role == domain.RoleClient {
		q.ContactEmail = sess.TenantAffiliation
		client = true
	}

	d.mu.Lock()
	d.epoch++
	epoch := d.epoch
	old := d.sub
	d.sub = nil
	d.loading = true
	d.orphaned = false
	d.clientQuery = client
	d.mu.Unlock()

	if old != nil {
		old.Close()
	}

	sub, err := d.store.SubscribeTenants(ctx, q)
	if err != nil {
		// Absorbed: the presentation layer cannot usefully retry a live
		// subscription itself, so the state is terminal-but-empty.
		d.logger.Error("tenant subscription failed", "error", err)
		d.mu.Lock()
		if epoch == d.epoch {
			d.tenants = nil
			d.loading = false
		}
		d.mu.Unlock()
		d.deliver(epoch, nil)
		return
	}

	d.mu.Lock()
	if epoch != d.epoch {
		d.mu.Unlock()
		sub.Close()
		return
	}
	d.sub = sub
	d.mu.Unlock()

	go d.pump(epoch, sub)
}

// Close releases the live subscription. No state is written afterwards.
func (d *Directory) Close() {
	d.mu.Lock()
	d.epoch++
	old := d.sub
	d.sub = nil
	d.mu.Unlock()

	if old != nil {
		old.Close()
	}
}

// State returns the current list and whether the first emission of the
// current subscription is still pending.
func (d *Directory) State() (domain.TenantList, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.tenants, d.loading
}

// Orphaned reports whether an authenticated client's affiliation matched no
// tenant record after the list finished loading.
func (d *Directory) Orphaned() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.orphaned
}

func (d *Directory) pump(epoch uint64, sub store.Subscription) {
	for snap := range sub.Snapshots() {
		d.mu.Lock()
		if epoch != d.epoch {
			d.mu.Unlock()
			return
		}

		if snap.Err != nil {
			d.logger.Error("tenant subscription stream error", "error", snap.Err)
			d.tenants = nil
			d.loading = false
			d.orphaned = false
			d.mu.Unlock()
			d.deliver(epoch, nil)
			continue
		}

		d.tenants = snap.Tenants
		d.loading = false
		orphaned := d.clientQuery && len(snap.Tenants) == 0
		d.orphaned = orphaned
		d.mu.Unlock()

		if orphaned {
			d.logger.Warn("authenticated client has no backing tenant record")
		}
		d.deliver(epoch, snap.Tenants)
	}
}

// deliver forwards a list to the sink unless the emission's epoch has been
// superseded. sinkMu keeps deliveries from a replaced pump and the current
// one from interleaving.
func (d *Directory) deliver(epoch uint64, list domain.TenantList) {
	if d.sink == nil {
		return
	}

	d.sinkMu.Lock()
	defer d.sinkMu.Unlock()

	d.mu.Lock()
	current := epoch == d.epoch
	d.mu.Unlock()
	if current {
		d.sink.ApplyList(list)
	}
}
