// Package state exposes the resolved session, the live tenant list, the
// active selection and the access gate to the presentation layer.
package state

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/seoportal/sessionbind/internal/http/features/common"
	"github.com/seoportal/sessionbind/internal/httputil"
	"github.com/seoportal/sessionbind/pkg/binding"
	"github.com/seoportal/sessionbind/portal"
)

// Handler handles session/tenant state endpoints.
type Handler struct {
	logger *slog.Logger
	portal *portal.Portal
}

// NewHandler creates a new state handler.
func NewHandler(logger *slog.Logger, p *portal.Portal) *Handler {
	return &Handler{logger: logger, portal: p}
}

// SessionResponse carries the session and its loading flag.
type SessionResponse struct {
	Session *common.SessionPayload `json:"session"`
	Loading bool                   `json:"loading"`
}

// GetSession returns the current session state.
// GET /v1/session
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	sess, loading := h.portal.Session()
	httputil.JSON(w, http.StatusOK, SessionResponse{
		Session: common.FromSession(sess),
		Loading: loading,
	})
}

// TenantsResponse carries the role-scoped list and its loading flag.
type TenantsResponse struct {
	Tenants []*common.TenantPayload `json:"tenants"`
	Loading bool                    `json:"loading"`
}

// GetTenants returns the live tenant list.
// GET /v1/tenants
func (h *Handler) GetTenants(w http.ResponseWriter, r *http.Request) {
	tenants, loading := h.portal.Tenants()
	httputil.JSON(w, http.StatusOK, TenantsResponse{
		Tenants: common.FromTenantList(tenants),
		Loading: loading,
	})
}

// ActiveTenantResponse carries the raw selection and, when the list backs it,
// the resolved record. ActiveTenantID may be set while Tenant is null: the
// selection is accepted before the list confirms it.
type ActiveTenantResponse struct {
	ActiveTenantID string                `json:"active_tenant_id,omitempty"`
	Tenant         *common.TenantPayload `json:"tenant"`
}

// GetActiveTenant returns the active tenant selection.
// GET /v1/tenants/active
func (h *Handler) GetActiveTenant(w http.ResponseWriter, r *http.Request) {
	httputil.JSON(w, http.StatusOK, ActiveTenantResponse{
		ActiveTenantID: h.portal.ActiveSelectionID(),
		Tenant:         common.FromTenant(h.portal.ActiveTenant()),
	})
}

// SelectRequest represents a selection change. An empty tenant_id clears the
// selection.
type SelectRequest struct {
	TenantID string `json:"tenant_id"`
}

// SelectTenant sets or clears the active tenant.
// PUT /v1/tenants/active
func (h *Handler) SelectTenant(w http.ResponseWriter, r *http.Request) {
	var req SelectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.TenantID == "" {
		h.portal.ClearSelection()
	} else {
		h.portal.Select(req.TenantID)
	}

	httputil.JSON(w, http.StatusOK, ActiveTenantResponse{
		ActiveTenantID: h.portal.ActiveSelectionID(),
		Tenant:         common.FromTenant(h.portal.ActiveTenant()),
	})
}

// GetReport returns the active tenant's report payload.
// GET /v1/report
func (h *Handler) GetReport(w http.ResponseWriter, r *http.Request) {
	rec := h.portal.ActiveTenant()
	if rec == nil {
		httputil.Error(w, http.StatusNotFound, "no active tenant")
		return
	}
	if len(rec.Report) == 0 {
		httputil.JSON(w, http.StatusOK, map[string]interface{}{"tenant_id": rec.ID, "report": nil})
		return
	}
	httputil.JSON(w, http.StatusOK, map[string]interface{}{"tenant_id": rec.ID, "report": rec.Report})
}

// EvaluateGate returns the gate's verdict for a requested route.
// GET /v1/gate?route=/dashboard/reports&admin=false&tenant=true
func (h *Handler) EvaluateGate(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	route := binding.Route{
		Path:          q.Get("route"),
		Public:        parseBool(q.Get("public")),
		AdminOnly:     parseBool(q.Get("admin")),
		RequireTenant: parseBool(q.Get("tenant")),
	}

	httputil.JSON(w, http.StatusOK, h.portal.Evaluate(route))
}

func parseBool(s string) bool {
	b, err := strconv.ParseBool(s)
	return err == nil && b
}
