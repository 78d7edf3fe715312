package binding

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/seoportal/sessionbind/pkg/domain"
	"github.com/seoportal/sessionbind/pkg/kv"
)

// ActiveSelectionKey is the fixed key-value slot holding the last active
// tenant id, read at boot so the selection survives reloads.
const ActiveSelectionKey = "seo_portal_active_tenant"

// Selector owns the active tenant selection: the id of the tenant currently
// being viewed. All writes (user selection, login adoption, list
// reconciliation) go through one mutex, so the integrity check never
// interleaves with a concurrent Select call.
type Selector struct {
	kv     kv.Store
	logger *slog.Logger

	mu                 sync.Mutex
	id                 string // "" means no selection
	pendingAffiliation string
	list               domain.TenantList
}

// NewSelector creates a selector, seeding the in-memory selection from the
// persisted slot.
func NewSelector(ctx context.Context, store kv.Store, logger *slog.Logger) *Selector {
	s := &Selector{kv: store, logger: logger}

	id, err := store.Get(ctx, ActiveSelectionKey)
	switch {
	case err == nil:
		s.id = id
	case !errors.Is(err, kv.ErrNotFound):
		logger.Error("reading persisted tenant selection failed", "error", err)
	}
	return s
}

// Select sets the active tenant and persists it immediately. The id is
// accepted even if the live list does not (yet) contain it; the next list
// emission validates it.
func (s *Selector) Select(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setLocked(id)
}

// Clear drops the selection, in memory and in the persisted slot, along with
// any pending login adoption.
func (s *Selector) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pendingAffiliation = ""
	s.clearLocked()
}

// AdoptAffiliation records a client session's affiliation key for
// auto-selection. The matching tenant id is adopted on the next list emission
// (or immediately, if the current list already contains it), overriding any
// stale persisted selection.
func (s *Selector) AdoptAffiliation(affiliation string) {
	if affiliation == "" {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if rec := s.list.FindByContactEmail(affiliation); rec != nil {
		s.setLocked(rec.ID)
		return
	}
	s.pendingAffiliation = affiliation
}

// ApplyList reconciles the selection against a fresh full-replace emission:
// a pending affiliation is resolved to its tenant id, then the integrity
// check clears any selection whose tenant is absent from the new list.
func (s *Selector) ApplyList(list domain.TenantList) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.list = list

	if s.pendingAffiliation != "" {
		if rec := list.FindByContactEmail(s.pendingAffiliation); rec != nil {
			s.setLocked(rec.ID)
			s.pendingAffiliation = ""
		}
	}

	if s.id != "" && list.FindByID(s.id) == nil {
		s.logger.Info("selected tenant no longer in live list, clearing selection", "tenant_id", s.id)
		s.clearLocked()
	}
}

// ActiveID returns the current selection, or "" when none.
func (s *Selector) ActiveID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

// Resolve derives the active tenant record from a list. Absence is a
// legitimate value, not an error.
func (s *Selector) Resolve(list domain.TenantList) *domain.TenantRecord {
	s.mu.Lock()
	id := s.id
	s.mu.Unlock()

	if id == "" {
		return nil
	}
	return list.FindByID(id)
}

// Active derives the active tenant record from the last applied list.
func (s *Selector) Active() *domain.TenantRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.id == "" {
		return nil
	}
	return s.list.FindByID(s.id)
}

func (s *Selector) setLocked(id string) {
	s.id = id
	if err := s.kv.Set(context.Background(), ActiveSelectionKey, id); err != nil {
		s.logger.Error("persisting tenant selection failed", "tenant_id", id, "error", err)
	}
}

func (s *Selector) clearLocked() {
	s.id = ""
	if err := s.kv.Delete(context.Background(), ActiveSelectionKey); err != nil {
		s.logger.Error("clearing persisted tenant selection failed", "error", err)
	}
}
