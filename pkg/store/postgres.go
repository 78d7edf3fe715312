package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/lib/pq"

	"github.com/seoportal/sessionbind/pkg/domain"
)

// tenantsChannel is the NOTIFY channel raised by the tenants table trigger
// (see migrations/). Any insert, update or delete lands here; subscribers
// respond by re-reading their full view, so the channel payload is unused.
const tenantsChannel = "tenants_changed"

// PostgresStore implements Store on Postgres. Live subscriptions are driven
// by LISTEN/NOTIFY: each notification triggers a full re-read of the
// subscription's view, preserving the full-replace emission contract.
type PostgresStore struct {
	db        *sql.DB
	listenDSN string
	logger    *slog.Logger
}

// NewPostgresStore creates a store on an open connection. listenDSN is used
// to open the dedicated LISTEN connections backing subscriptions.
func NewPostgresStore(db *sql.DB, listenDSN string, logger *slog.Logger) *PostgresStore {
	return &PostgresStore{db: db, listenDSN: listenDSN, logger: logger}
}

// GetProfile returns the profile document for an identity id.
func (s *PostgresStore) GetProfile(ctx context.Context, identityID string) (*domain.Profile, error) {
	query := `
		SELECT identity_id, role, COALESCE(tenant_affiliation, '')
		FROM profiles
		WHERE identity_id = $1
	`

	var p domain.Profile
	err := s.db.QueryRowContext(ctx, query, identityID).Scan(
		&p.IdentityID,
		&p.Role,
		&p.TenantAffiliation,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrProfileMissing
		}
		return nil, fmt.Errorf("get profile: %w", err)
	}

	if err := domain.ValidateProfile(&p); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrProfileMissing, err)
	}
	return &p, nil
}

// PutProfile creates or replaces a profile document.
func (s *PostgresStore) PutProfile(ctx context.Context, p *domain.Profile) error {
	if err := domain.ValidateProfile(p); err != nil {
		return err
	}

	query := `
		INSERT INTO profiles (identity_id, role, tenant_affiliation)
		VALUES ($1, $2, NULLIF($3, ''))
		ON CONFLICT (identity_id)
		DO UPDATE SET role = EXCLUDED.role, tenant_affiliation = EXCLUDED.tenant_affiliation
	`
	_, err := s.db.ExecContext(ctx, query, p.IdentityID, p.Role, p.TenantAffiliation)
	return err
}

// AddTenant inserts a tenant record. The table trigger notifies subscribers.
func (s *PostgresStore) AddTenant(ctx context.Context, t *domain.TenantRecord) error {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}
	if err := domain.ValidateTenant(t); err != nil {
		return err
	}

	query := `
		INSERT INTO tenants (id, name, contact_email, logo_url, geo_settings, report_data, created_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7)
	`
	var geo []byte
	if t.Geo != nil {
		geo, _ = json.Marshal(t.Geo)
	}
	_, err := s.db.ExecContext(ctx, query,
		t.ID,
		t.Name,
		t.ContactEmail,
		t.LogoURL,
		geo,
		[]byte(t.Report),
		t.CreatedAt,
	)
	return err
}

// UpdateTenant applies a partial mutation.
func (s *PostgresStore) UpdateTenant(ctx context.Context, id string, u TenantUpdate) error {
	sets := make([]string, 0, 5)
	args := make([]any, 0, 6)

	add := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}

	if u.Name != nil {
		add("name", *u.Name)
	}
	if u.ContactEmail != nil {
		add("contact_email", *u.ContactEmail)
	}
	if u.LogoURL != nil {
		add("logo_url", *u.LogoURL)
	}
	if u.Geo != nil {
		geo, _ := json.Marshal(u.Geo)
		add("geo_settings", geo)
	}
	if u.Report != nil {
		add("report_data", []byte(u.Report))
	}
	if len(sets) == 0 {
		return nil
	}

	args = append(args, id)
	query := fmt.Sprintf("UPDATE tenants SET %s WHERE id = $%d", strings.Join(sets, ", "), len(args))

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrTenantNotFound
	}
	return nil
}

// DeleteTenant removes a tenant record.
func (s *PostgresStore) DeleteTenant(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM tenants WHERE id = $1", id)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrTenantNotFound
	}
	return nil
}

// SubscribeTenants opens a live subscription backed by a dedicated LISTEN
// connection. The initial snapshot is read before the listener loop starts.
func (s *PostgresStore) SubscribeTenants(ctx context.Context, q TenantQuery) (Subscription, error) {
	listener := pq.NewListener(s.listenDSN, time.Second, time.Minute, nil)
	if err := listener.Listen(tenantsChannel); err != nil {
		listener.Close()
		return nil, fmt.Errorf("listen %s: %w", tenantsChannel, err)
	}

	sub := &pgSubscription{
		store:    s,
		query:    q,
		listener: listener,
		ch:       make(chan Snapshot, 1),
		done:     make(chan struct{}),
	}

	list, err := s.queryTenants(ctx, q)
	if err != nil {
		listener.Close()
		return nil, err
	}
	sub.push(Snapshot{Tenants: list})

	go sub.run()
	return sub, nil
}

// queryTenants reads the full view for a query, in arrival order. A
// contact-email query is capped at one record, the earliest arrival.
func (s *PostgresStore) queryTenants(ctx context.Context, q TenantQuery) (domain.TenantList, error) {
	query := `
		SELECT id, name, contact_email, COALESCE(logo_url, ''), geo_settings, report_data, created_at
		FROM tenants
	`
	var args []any
	if q.ContactEmail != "" {
		query += " WHERE contact_email = $1"
		args = append(args, q.ContactEmail)
	}
	query += " ORDER BY created_at ASC"
	if q.ContactEmail != "" {
		query += " LIMIT 1"
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list domain.TenantList
	for rows.Next() {
		var t domain.TenantRecord
		var geo, report []byte
		if err := rows.Scan(&t.ID, &t.Name, &t.ContactEmail, &t.LogoURL, &geo, &report, &t.CreatedAt); err != nil {
			return nil, err
		}
		if len(geo) > 0 {
			var g domain.GeoSettings
			if err := json.Unmarshal(geo, &g); err == nil {
				t.Geo = &g
			}
		}
		t.Report = report
		list = append(list, t)
	}
	return list, rows.Err()
}

type pgSubscription struct {
	store    *PostgresStore
	query    TenantQuery
	listener *pq.Listener

	ch     chan Snapshot
	done   chan struct{}
	closeO sync.Once
}

func (sub *pgSubscription) Snapshots() <-chan Snapshot {
	return sub.ch
}

// run re-reads the full view on every notification. A nil notification is
// pq's reconnect marker; the view is re-read then too, since changes may have
// been missed while disconnected.
func (sub *pgSubscription) run() {
	defer close(sub.ch)
	for {
		select {
		case <-sub.done:
			return
		case _, ok := <-sub.listener.Notify:
			if !ok {
				return
			}
			list, err := sub.store.queryTenants(context.Background(), sub.query)
			if err != nil {
				sub.store.logger.Error("tenant subscription query failed", "error", err)
				sub.push(Snapshot{Err: err})
				continue
			}
			sub.push(Snapshot{Tenants: list})
		}
	}
}

func (sub *pgSubscription) push(snap Snapshot) {
	select {
	case <-sub.done:
		return
	default:
	}
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

func (sub *pgSubscription) Close() {
	sub.closeO.Do(func() {
		close(sub.done)
		sub.listener.Close()
	})
}
