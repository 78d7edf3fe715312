package binding

import (
	"context"
	"errors"
	"testing"

	"github.com/seoportal/sessionbind/pkg/domain"
	"github.com/seoportal/sessionbind/pkg/kv"
)

func newTestSelector(t *testing.T) (*Selector, *kv.MemoryStore) {
	t.Helper()
	store := kv.NewMemoryStore()
	return NewSelector(context.Background(), store, discardLogger()), store
}

func persistedSelection(t *testing.T, store kv.Store) (string, bool) {
	t.Helper()
	v, err := store.Get(context.Background(), ActiveSelectionKey)
	if errors.Is(err, kv.ErrNotFound) {
		return "", false
	}
	if err != nil {
		t.Fatalf("Get(%s) error = %v", ActiveSelectionKey, err)
	}
	return v, true
}

func TestSelector_BootsFromPersistedSlot(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemoryStore()
	if err := store.Set(ctx, ActiveSelectionKey, "t7"); err != nil {
		t.Fatal(err)
	}

	s := NewSelector(ctx, store, discardLogger())
	if s.ActiveID() != "t7" {
		t.Errorf("ActiveID() = %q, want t7", s.ActiveID())
	}
}

func TestSelector_SelectPersistsImmediately(t *testing.T) {
	s, store := newTestSelector(t)

	// Accepted even though no list has been applied yet.
	s.Select("t1")

	if s.ActiveID() != "t1" {
		t.Errorf("ActiveID() = %q, want t1", s.ActiveID())
	}
	if v, ok := persistedSelection(t, store); !ok || v != "t1" {
		t.Errorf("persisted selection = %q, %v; want t1", v, ok)
	}
}

func TestSelector_SelectIsIdempotent(t *testing.T) {
	s, store := newTestSelector(t)

	s.Select("t1")
	s.Select("t1")

	if s.ActiveID() != "t1" {
		t.Errorf("ActiveID() = %q, want t1", s.ActiveID())
	}
	if v, _ := persistedSelection(t, store); v != "t1" {
		t.Errorf("persisted selection = %q, want t1", v)
	}
}

func TestSelector_IntegrityCheckClearsStaleSelection(t *testing.T) {
	s, store := newTestSelector(t)

	s.Select("t2")
	s.ApplyList(domain.TenantList{
		{ID: "t1", Name: "One", ContactEmail: "one@x.com"},
		{ID: "t2", Name: "Two", ContactEmail: "two@x.com"},
	})
	if s.ActiveID() != "t2" {
		t.Fatalf("ActiveID() = %q, want t2", s.ActiveID())
	}

	// t2 deleted out from under the session.
	s.ApplyList(domain.TenantList{
		{ID: "t1", Name: "One", ContactEmail: "one@x.com"},
	})

	if s.ActiveID() != "" {
		t.Errorf("ActiveID() = %q, want cleared", s.ActiveID())
	}
	if _, ok := persistedSelection(t, store); ok {
		t.Error("persisted selection should be cleared with the in-memory one")
	}
}

// The integrity invariant: after every emission the selection is either
// empty or present in the list, for any sequence of emissions.
func TestSelector_IntegrityInvariant(t *testing.T) {
	s, _ := newTestSelector(t)

	emissions := []domain.TenantList{
		{{ID: "a", Name: "A", ContactEmail: "a@x.com"}},
		{{ID: "a", Name: "A", ContactEmail: "a@x.com"}, {ID: "b", Name: "B", ContactEmail: "b@x.com"}},
		{{ID: "b", Name: "B", ContactEmail: "b@x.com"}},
		nil,
		{{ID: "c", Name: "C", ContactEmail: "c@x.com"}},
	}

	s.Select("a")
	for i, list := range emissions {
		s.ApplyList(list)
		if id := s.ActiveID(); id != "" && list.FindByID(id) == nil {
			t.Fatalf("after emission %d: selection %q not in list %+v", i, id, list)
		}
	}
}

func TestSelector_AdoptAffiliationBeforeList(t *testing.T) {
	s, _ := newTestSelector(t)

	// Affiliation known before the directory's first emission.
	s.AdoptAffiliation("a@x.com")
	if s.ActiveID() != "" {
		t.Fatalf("ActiveID() = %q before any list", s.ActiveID())
	}

	s.ApplyList(domain.TenantList{{ID: "t9", Name: "Nine", ContactEmail: "a@x.com"}})
	if s.ActiveID() != "t9" {
		t.Errorf("ActiveID() = %q, want t9 (adopted from affiliation)", s.ActiveID())
	}
}

func TestSelector_AdoptAffiliationWithListPresent(t *testing.T) {
	s, _ := newTestSelector(t)

	s.ApplyList(domain.TenantList{{ID: "t9", Name: "Nine", ContactEmail: "a@x.com"}})
	s.AdoptAffiliation("a@x.com")

	if s.ActiveID() != "t9" {
		t.Errorf("ActiveID() = %q, want t9", s.ActiveID())
	}
}

func TestSelector_AdoptOverridesStalePersistedSelection(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemoryStore()
	// A selection left over from a previous admin session.
	if err := store.Set(ctx, ActiveSelectionKey, "t1"); err != nil {
		t.Fatal(err)
	}
	s := NewSelector(ctx, store, discardLogger())

	s.AdoptAffiliation("a@x.com")
	// Client-scoped list: only the client's own tenant.
	s.ApplyList(domain.TenantList{{ID: "t9", Name: "Nine", ContactEmail: "a@x.com"}})

	if s.ActiveID() != "t9" {
		t.Errorf("ActiveID() = %q, want t9", s.ActiveID())
	}
	if v, _ := persistedSelection(t, store); v != "t9" {
		t.Errorf("persisted selection = %q, want t9", v)
	}
}

func TestSelector_ClearDropsPendingAdoption(t *testing.T) {
	s, _ := newTestSelector(t)

	s.AdoptAffiliation("a@x.com")
	s.Clear()
	s.ApplyList(domain.TenantList{{ID: "t9", Name: "Nine", ContactEmail: "a@x.com"}})

	if s.ActiveID() != "" {
		t.Errorf("ActiveID() = %q, want empty after Clear", s.ActiveID())
	}
}

func TestSelector_ResolveIsPure(t *testing.T) {
	s, _ := newTestSelector(t)
	list := domain.TenantList{{ID: "t1", Name: "One", ContactEmail: "one@x.com"}}

	if rec := s.Resolve(list); rec != nil {
		t.Errorf("Resolve() with no selection = %+v, want nil", rec)
	}

	s.Select("t1")
	if rec := s.Resolve(list); rec == nil || rec.ID != "t1" {
		t.Errorf("Resolve() = %+v, want t1", rec)
	}

	s.Select("t2")
	if rec := s.Resolve(list); rec != nil {
		t.Errorf("Resolve() with absent selection = %+v, want nil", rec)
	}
}
