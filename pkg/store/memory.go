package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/seoportal/sessionbind/pkg/domain"
)

// MemoryStore is an in-process document store. It backs tests and embedded
// deployments, and delivers the same full-snapshot subscription semantics as
// the Postgres store.
type MemoryStore struct {
	mu       sync.Mutex
	profiles map[string]domain.Profile
	tenants  []domain.TenantRecord
	subs     map[int]*memorySubscription
	nextSub  int
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		profiles: make(map[string]domain.Profile),
		subs:     make(map[int]*memorySubscription),
	}
}

// GetProfile returns the profile document for an identity id.
func (s *MemoryStore) GetProfile(_ context.Context, identityID string) (*domain.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.profiles[identityID]
	if !ok {
		return nil, domain.ErrProfileMissing
	}
	if err := domain.ValidateProfile(&p); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrProfileMissing, err)
	}
	return &p, nil
}

// PutProfile creates or replaces a profile document.
func (s *MemoryStore) PutProfile(_ context.Context, p *domain.Profile) error {
	if err := domain.ValidateProfile(p); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[p.IdentityID] = *p
	return nil
}

// SubscribeTenants opens a live subscription. The initial snapshot is queued
// before SubscribeTenants returns.
func (s *MemoryStore) SubscribeTenants(_ context.Context, q TenantQuery) (Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub := &memorySubscription{
		store: s,
		query: q,
		ch:    make(chan Snapshot, 1),
	}
	sub.id = s.nextSub
	s.nextSub++
	s.subs[sub.id] = sub

	sub.push(Snapshot{Tenants: s.viewLocked(q)})
	return sub, nil
}

// AddTenant inserts a tenant record and notifies subscribers.
func (s *MemoryStore) AddTenant(_ context.Context, t *domain.TenantRecord) error {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}
	if err := domain.ValidateTenant(t); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if domain.TenantList(s.tenants).FindByID(t.ID) != nil {
		return fmt.Errorf("tenant %s already exists", t.ID)
	}
	s.tenants = append(s.tenants, *t)
	s.broadcastLocked()
	return nil
}

// UpdateTenant applies a partial mutation and notifies subscribers.
func (s *MemoryStore) UpdateTenant(_ context.Context, id string, u TenantUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.tenants {
		if s.tenants[i].ID != id {
			continue
		}
		t := s.tenants[i]
		if u.Name != nil {
			t.Name = *u.Name
		}
		if u.ContactEmail != nil {
			t.ContactEmail = *u.ContactEmail
		}
		if u.LogoURL != nil {
			t.LogoURL = *u.LogoURL
		}
		if u.Geo != nil {
			t.Geo = u.Geo
		}
		if u.Report != nil {
			t.Report = u.Report
		}
		if err := domain.ValidateTenant(&t); err != nil {
			return err
		}
		s.tenants[i] = t
		s.broadcastLocked()
		return nil
	}
	return domain.ErrTenantNotFound
}

// DeleteTenant removes a tenant record and notifies subscribers. Subscribers
// holding the deleted tenant as their active selection observe the deletion
// on the next emission.
func (s *MemoryStore) DeleteTenant(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.tenants {
		if s.tenants[i].ID == id {
			s.tenants = append(s.tenants[:i], s.tenants[i+1:]...)
			s.broadcastLocked()
			return nil
		}
	}
	return domain.ErrTenantNotFound
}

// viewLocked computes the full snapshot list for a query. Order is arrival
// order. A contact-email query yields at most one record: the earliest
// arrival wins, even when several tenants share the contact email.
func (s *MemoryStore) viewLocked(q TenantQuery) domain.TenantList {
	var list domain.TenantList
	for _, t := range s.tenants {
		if q.ContactEmail != "" {
			if t.ContactEmail != q.ContactEmail {
				continue
			}
			return domain.TenantList{t}
		}
		list = append(list, t)
	}
	return list
}

func (s *MemoryStore) broadcastLocked() {
	for _, sub := range s.subs {
		sub.push(Snapshot{Tenants: s.viewLocked(sub.query)})
	}
}

type memorySubscription struct {
	store *MemoryStore
	query TenantQuery
	id    int

	ch     chan Snapshot
	closeO sync.Once
}

func (sub *memorySubscription) Snapshots() <-chan Snapshot {
	return sub.ch
}

// push coalesces emissions: only the latest snapshot matters, since every
// emission is a full replace.
func (sub *memorySubscription) push(snap Snapshot) {
	for {
		select {
		case sub.ch <- snap:
			return
		default:
			select {
			case <-sub.ch:
			default:
			}
		}
	}
}

func (sub *memorySubscription) Close() {
	sub.closeO.Do(func() {
		sub.store.mu.Lock()
		delete(sub.store.subs, sub.id)
		sub.store.mu.Unlock()
		close(sub.ch)
	})
}
