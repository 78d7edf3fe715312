// Package tenants implements the admin tenant management endpoints. The
// session layer re-observes every mutation made here through its live
// subscription; nothing in this package touches the in-memory list directly.
package tenants

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/seoportal/sessionbind/internal/http/features/common"
	"github.com/seoportal/sessionbind/internal/httputil"
	"github.com/seoportal/sessionbind/pkg/domain"
	"github.com/seoportal/sessionbind/pkg/store"
	"github.com/seoportal/sessionbind/portal"
)

// Handler handles tenant management endpoints.
type Handler struct {
	logger *slog.Logger
	portal *portal.Portal
	docs   store.Store
}

// NewHandler creates a new tenants handler.
func NewHandler(logger *slog.Logger, p *portal.Portal, docs store.Store) *Handler {
	return &Handler{logger: logger, portal: p, docs: docs}
}

// CreateRequest represents a new tenant.
type CreateRequest struct {
	Name         string              `json:"name"`
	ContactEmail string              `json:"contact_email"`
	LogoURL      string              `json:"logo_url,omitempty"`
	Geo          *domain.GeoSettings `json:"geo,omitempty"`
	Report       json.RawMessage     `json:"report,omitempty"`
}

// UpdateRequest represents a partial tenant update. Absent fields are left
// untouched.
type UpdateRequest struct {
	Name         *string             `json:"name,omitempty"`
	ContactEmail *string             `json:"contact_email,omitempty"`
	LogoURL      *string             `json:"logo_url,omitempty"`
	Geo          *domain.GeoSettings `json:"geo,omitempty"`
	Report       json.RawMessage     `json:"report,omitempty"`
}

// Create adds a tenant record.
// POST /v1/tenants
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w) {
		return
	}

	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	rec := domain.TenantRecord{
		ID:           uuid.New().String(),
		Name:         req.Name,
		ContactEmail: req.ContactEmail,
		LogoURL:      req.LogoURL,
		Geo:          req.Geo,
		Report:       req.Report,
		CreatedAt:    time.Now(),
	}
	if err := domain.ValidateTenant(&rec); err != nil {
		httputil.Error(w, http.StatusBadRequest, "name and a valid contact_email are required")
		return
	}

	if err := h.docs.AddTenant(r.Context(), &rec); err != nil {
		h.logger.Error("tenant create failed", "error", err)
		httputil.Error(w, http.StatusInternalServerError, "failed to create tenant")
		return
	}

	httputil.JSON(w, http.StatusCreated, common.FromTenant(&rec))
}

// Update applies a partial mutation to a tenant record.
// PATCH /v1/tenants/{id}
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w) {
		return
	}

	id := chi.URLParam(r, "id")

	var req UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	update := store.TenantUpdate{
		Name:         req.Name,
		ContactEmail: req.ContactEmail,
		LogoURL:      req.LogoURL,
		Geo:          req.Geo,
		Report:       req.Report,
	}

	if err := h.docs.UpdateTenant(r.Context(), id, update); err != nil {
		if errors.Is(err, domain.ErrTenantNotFound) {
			httputil.Error(w, http.StatusNotFound, "tenant not found")
			return
		}
		h.logger.Error("tenant update failed", "tenant_id", id, "error", err)
		httputil.Error(w, http.StatusInternalServerError, "failed to update tenant")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Delete removes a tenant record. If it is the active selection, the next
// subscription emission clears that selection.
// DELETE /v1/tenants/{id}
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w) {
		return
	}

	id := chi.URLParam(r, "id")

	if err := h.docs.DeleteTenant(r.Context(), id); err != nil {
		if errors.Is(err, domain.ErrTenantNotFound) {
			httputil.Error(w, http.StatusNotFound, "tenant not found")
			return
		}
		h.logger.Error("tenant delete failed", "tenant_id", id, "error", err)
		httputil.Error(w, http.StatusInternalServerError, "failed to delete tenant")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// requireAdmin writes the error response and returns false unless the
// current session is an administrator.
func (h *Handler) requireAdmin(w http.ResponseWriter) bool {
	sess, _ := h.portal.Session()
	if sess == nil {
		httputil.Error(w, http.StatusUnauthorized, "not signed in")
		return false
	}
	if !sess.IsAdmin() {
		httputil.Error(w, http.StatusForbidden, "administrator role required")
		return false
	}
	return true
}
