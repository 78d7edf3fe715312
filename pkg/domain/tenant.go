package domain

import (
	"encoding/json"
	"time"
)

// GeoSettings holds the map configuration for a tenant's local reports.
type GeoSettings struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Zoom      int     `json:"zoom,omitempty"`
}

// TenantRecord is one customer account whose report data is isolated from
// others. The record is owned by the document store; this layer holds a read
// replica and re-observes mutations through its live subscription.
type TenantRecord struct {
	ID           string          `json:"id" validate:"required"`
	Name         string          `json:"name" validate:"required"`
	ContactEmail string          `json:"contact_email" validate:"required,email"`
	LogoURL      string          `json:"logo_url,omitempty"`
	Geo          *GeoSettings    `json:"geo,omitempty"`
	Report       json.RawMessage `json:"report,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

// TenantList is the ordered-by-arrival collection of records a session may
// observe: every tenant for administrators, at most one for client sessions.
type TenantList []TenantRecord

// FindByID returns the record with the given id, or nil if absent.
// Absence is a legitimate value, not an error.
func (l TenantList) FindByID(id string) *TenantRecord {
	for i := range l {
		if l[i].ID == id {
			return &l[i]
		}
	}
	return nil
}

// FindByContactEmail returns the record whose affiliation key matches, or nil.
func (l TenantList) FindByContactEmail(email string) *TenantRecord {
	for i := range l {
		if l[i].ContactEmail == email {
			return &l[i]
		}
	}
	return nil
}
