package common

import (
	"encoding/json"
	"time"

	"github.com/seoportal/sessionbind/pkg/domain"
)

// SessionPayload is the wire shape of a resolved session.
type SessionPayload struct {
	IdentityID        string `json:"identity_id"`
	Email             string `json:"email"`
	Role              string `json:"role"`
	TenantAffiliation string `json:"tenant_affiliation,omitempty"`
}

// FromSession converts a session for the wire. Returns nil for nil.
func FromSession(sess *domain.Session) *SessionPayload {
	if sess == nil {
		return nil
	}
	return &SessionPayload{
		IdentityID:        sess.Identity.ID,
		Email:             sess.Identity.Email,
		Role:              string(sess.Role),
		TenantAffiliation: sess.TenantAffiliation,
	}
}

// TenantPayload is the wire shape of a tenant record.
type TenantPayload struct {
	ID           string              `json:"id"`
	Name         string              `json:"name"`
	ContactEmail string              `json:"contact_email"`
	LogoURL      string              `json:"logo_url,omitempty"`
	Geo          *domain.GeoSettings `json:"geo,omitempty"`
	Report       json.RawMessage     `json:"report,omitempty"`
	CreatedAt    time.Time           `json:"created_at,omitempty"`
}

// FromTenant converts a tenant record for the wire.
func FromTenant(rec *domain.TenantRecord) *TenantPayload {
	if rec == nil {
		return nil
	}
	return &TenantPayload{
		ID:           rec.ID,
		Name:         rec.Name,
		ContactEmail: rec.ContactEmail,
		LogoURL:      rec.LogoURL,
		Geo:          rec.Geo,
		Report:       rec.Report,
		CreatedAt:    rec.CreatedAt,
	}
}

// FromTenantList converts a list for the wire. A nil list marshals as [].
func FromTenantList(list domain.TenantList) []*TenantPayload {
	out := make([]*TenantPayload, 0, len(list))
	for i := range list {
		out = append(out, FromTenant(&list[i]))
	}
	return out
}
