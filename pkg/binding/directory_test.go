package binding

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/seoportal/sessionbind/pkg/domain"
	"github.com/seoportal/sessionbind/pkg/store"
)

type listSinkSpy struct {
	mu    sync.Mutex
	lists []domain.TenantList
}

func (s *listSinkSpy) ApplyList(list domain.TenantList) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lists = append(s.lists, list)
}

func (s *listSinkSpy) last() (domain.TenantList, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.lists) == 0 {
		return nil, false
	}
	return s.lists[len(s.lists)-1], true
}

func seedTenants(t *testing.T, docs *store.MemoryStore, tenants ...domain.TenantRecord) {
	t.Helper()
	for i := range tenants {
		if err := docs.AddTenant(context.Background(), &tenants[i]); err != nil {
			t.Fatalf("AddTenant(%s) error = %v", tenants[i].ID, err)
		}
	}
}

func TestDirectory_AllTenantsForAdmin(t *testing.T) {
	ctx := context.Background()
	docs := store.NewMemoryStore()
	seedTenants(t, docs,
		domain.TenantRecord{ID: "t1", Name: "One", ContactEmail: "one@x.com"},
		domain.TenantRecord{ID: "t2", Name: "Two", ContactEmail: "two@x.com"},
	)

	d := NewDirectory(docs, nil, discardLogger())
	defer d.Close()
	d.Apply(ctx, &domain.Session{Identity: domain.Identity{ID: "u1"}, Role: domain.RoleAdmin})

	waitFor(t, func() bool {
		list, loading := d.State()
		return !loading && len(list) == 2
	}, "admin directory loads all tenants")
}

func TestDirectory_AllTenantsWithoutSession(t *testing.T) {
	ctx := context.Background()
	docs := store.NewMemoryStore()
	seedTenants(t, docs, domain.TenantRecord{ID: "t1", Name: "One", ContactEmail: "one@x.com"})

	d := NewDirectory(docs, nil, discardLogger())
	defer d.Close()
	d.Apply(ctx, nil)

	waitFor(t, func() bool {
		list, loading := d.State()
		return !loading && len(list) == 1
	}, "unauthenticated directory observes all tenants")
}

func TestDirectory_ClientScopedToAffiliation(t *testing.T) {
	ctx := context.Background()
	docs := store.NewMemoryStore()
	seedTenants(t, docs,
		domain.TenantRecord{ID: "t1", Name: "One", ContactEmail: "one@x.com"},
		domain.TenantRecord{ID: "t9", Name: "Nine", ContactEmail: "a@x.com"},
	)

	d := NewDirectory(docs, nil, discardLogger())
	defer d.Close()
	d.Apply(ctx, &domain.Session{
		Identity:          domain.Identity{ID: "u2"},
		Role:              domain.RoleClient,
		TenantAffiliation: "a@x.com",
	})

	waitFor(t, func() bool {
		list, loading := d.State()
		return !loading && len(list) == 1 && list[0].ID == "t9"
	}, "client directory scoped to affiliation key")

	if d.Orphaned() {
		t.Error("Orphaned() = true for a client with a backing tenant")
	}
}

func TestDirectory_OrphanedClient(t *testing.T) {
	ctx := context.Background()
	docs := store.NewMemoryStore()
	seedTenants(t, docs, domain.TenantRecord{ID: "t1", Name: "One", ContactEmail: "one@x.com"})

	d := NewDirectory(docs, nil, discardLogger())
	defer d.Close()
	d.Apply(ctx, &domain.Session{
		Identity:          domain.Identity{ID: "u3"},
		Role:              domain.RoleClient,
		TenantAffiliation: "b@x.com",
	})

	// An empty result is a real emission, not "not yet loaded".
	waitFor(t, func() bool {
		_, loading := d.State()
		return !loading
	}, "client directory finishes loading")

	list, _ := d.State()
	if len(list) != 0 {
		t.Errorf("list = %+v, want empty", list)
	}
	if !d.Orphaned() {
		t.Error("Orphaned() = false, want true for client with no backing tenant")
	}
}

func TestDirectory_ReapplyResetsLoading(t *testing.T) {
	ctx := context.Background()
	docs := store.NewMemoryStore()
	seedTenants(t, docs, domain.TenantRecord{ID: "t1", Name: "One", ContactEmail: "one@x.com"})

	d := NewDirectory(docs, nil, discardLogger())
	defer d.Close()

	d.Apply(ctx, nil)
	waitFor(t, func() bool {
		_, loading := d.State()
		return !loading
	}, "first subscription loads")

	// Role change re-scopes; orphaned client sees an empty list, not t1.
	d.Apply(ctx, &domain.Session{
		Identity:          domain.Identity{ID: "u2"},
		Role:              domain.RoleClient,
		TenantAffiliation: "nobody@x.com",
	})
	waitFor(t, func() bool {
		list, loading := d.State()
		return !loading && len(list) == 0
	}, "re-scoped subscription replaces the list")
}

func TestDirectory_LiveMutationsReachSink(t *testing.T) {
	ctx := context.Background()
	docs := store.NewMemoryStore()
	sink := &listSinkSpy{}

	d := NewDirectory(docs, sink, discardLogger())
	defer d.Close()
	d.Apply(ctx, nil)

	waitFor(t, func() bool {
		_, ok := sink.last()
		return ok
	}, "sink receives the initial emission")

	seedTenants(t, docs, domain.TenantRecord{ID: "t1", Name: "One", ContactEmail: "one@x.com"})
	waitFor(t, func() bool {
		list, ok := sink.last()
		return ok && len(list) == 1
	}, "sink receives the post-mutation emission")
}

// fakeSubscriber hands out subscriptions whose emissions the test controls.
// Close only marks the subscription, leaving the channel open, to model a
// naive unsubscribe that is not instantaneous: the stale pump stays alive
// and the epoch guard alone must protect the directory.
type fakeSubscriber struct {
	mu   sync.Mutex
	subs []*fakeSubscription
}

type fakeSubscription struct {
	ch     chan store.Snapshot
	closed bool
}

func (f *fakeSubscriber) SubscribeTenants(ctx context.Context, q store.TenantQuery) (store.Subscription, error) {
	sub := &fakeSubscription{ch: make(chan store.Snapshot, 4)}
	f.mu.Lock()
	f.subs = append(f.subs, sub)
	f.mu.Unlock()
	return sub, nil
}

func (s *fakeSubscription) Snapshots() <-chan store.Snapshot { return s.ch }
func (s *fakeSubscription) Close()                           { s.closed = true }

func TestDirectory_StaleEmissionDropped(t *testing.T) {
	ctx := context.Background()
	fake := &fakeSubscriber{}

	d := NewDirectory(fake, nil, discardLogger())

	d.Apply(ctx, nil)
	stale := fake.subs[0]

	d.Apply(ctx, nil)
	fresh := fake.subs[1]

	fresh.ch <- store.Snapshot{Tenants: domain.TenantList{{ID: "fresh", Name: "F", ContactEmail: "f@x.com"}}}
	waitFor(t, func() bool {
		list, loading := d.State()
		return !loading && len(list) == 1 && list[0].ID == "fresh"
	}, "fresh subscription emission applied")

	// A late emission arriving on the replaced stream must be discarded.
	stale.ch <- store.Snapshot{Tenants: domain.TenantList{{ID: "stale", Name: "S", ContactEmail: "s@x.com"}}}
	stale.ch <- store.Snapshot{} // second marker so the first was surely drained

	waitFor(t, func() bool { return stale.closed }, "replaced subscription was closed")
	list, _ := d.State()
	if len(list) != 1 || list[0].ID != "fresh" {
		t.Errorf("list = %+v, stale emission must not overwrite fresh state", list)
	}
}

func TestDirectory_StreamErrorAbsorbed(t *testing.T) {
	ctx := context.Background()
	fake := &fakeSubscriber{}
	sink := &listSinkSpy{}

	d := NewDirectory(fake, sink, discardLogger())
	defer d.Close()
	d.Apply(ctx, nil)

	fake.subs[0].ch <- store.Snapshot{Err: errors.New("stream torn down")}

	// loading is forced false so the gate cannot hang forever, and the list
	// is treated as empty.
	waitFor(t, func() bool {
		list, loading := d.State()
		return !loading && len(list) == 0
	}, "stream error yields terminal-but-empty state")

	waitFor(t, func() bool {
		list, ok := sink.last()
		return ok && len(list) == 0
	}, "sink observes the empty list")
}

func TestDirectory_CloseReleasesSubscription(t *testing.T) {
	ctx := context.Background()
	docs := store.NewMemoryStore()

	d := NewDirectory(docs, nil, discardLogger())
	d.Apply(ctx, nil)
	waitFor(t, func() bool {
		_, loading := d.State()
		return !loading
	}, "subscription loads")

	d.Close()

	// A mutation after Close must not reach the directory.
	seedTenants(t, docs, domain.TenantRecord{ID: "t1", Name: "One", ContactEmail: "one@x.com"})
	list, _ := d.State()
	if len(list) != 0 {
		t.Errorf("list after Close = %+v, want unchanged empty list", list)
	}
}
