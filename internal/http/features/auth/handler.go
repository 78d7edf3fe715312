// Package auth implements the sign-in and sign-out endpoints.
package auth

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/seoportal/sessionbind/internal/http/features/common"
	"github.com/seoportal/sessionbind/internal/httputil"
	"github.com/seoportal/sessionbind/pkg/domain"
	"github.com/seoportal/sessionbind/pkg/identity"
	"github.com/seoportal/sessionbind/portal"
)

// Handler handles authentication endpoints.
type Handler struct {
	logger       *slog.Logger
	portal       *portal.Portal
	tokens       *identity.TokenService
	cookieConfig httputil.CookieConfig
}

// NewHandler creates a new auth handler.
func NewHandler(logger *slog.Logger, p *portal.Portal, tokens *identity.TokenService) *Handler {
	return &Handler{
		logger:       logger,
		portal:       p,
		tokens:       tokens,
		cookieConfig: httputil.DefaultCookieConfig(),
	}
}

// LoginRequest represents a login request.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse carries the access token and the resolved session.
type LoginResponse struct {
	AccessToken string                 `json:"access_token"`
	TokenType   string                 `json:"token_type"`
	ExpiresIn   int                    `json:"expires_in"`
	Session     *common.SessionPayload `json:"session"`
}

// Login authenticates a credential and resolves the session.
// POST /v1/auth/login
//
// Failures surface inline as 401: the sign-in view renders them next to the
// form rather than redirecting anywhere.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Email == "" || req.Password == "" {
		httputil.Error(w, http.StatusBadRequest, "email and password are required")
		return
	}

	sess, err := h.portal.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredential) {
			httputil.Error(w, http.StatusUnauthorized, "invalid email or password")
			return
		}
		if errors.Is(err, domain.ErrProfileMissing) {
			// Authenticated but unprovisioned; indistinguishable from a bad
			// credential to the form, but worth a server-side trace.
			h.logger.Warn("login rejected: no profile document", "email", req.Email)
			httputil.Error(w, http.StatusUnauthorized, "invalid email or password")
			return
		}
		h.logger.Error("login failed", "error", err)
		httputil.Error(w, http.StatusInternalServerError, "login failed")
		return
	}

	accessToken, err := h.tokens.IssueAccessToken(&sess.Identity)
	if err != nil {
		h.logger.Error("token issuance failed", "error", err)
		httputil.Error(w, http.StatusInternalServerError, "login failed")
		return
	}

	httputil.SetAuthCookie(w, accessToken, h.tokens.AccessTokenTTL(), h.cookieConfig)
	httputil.JSON(w, http.StatusOK, LoginResponse{
		AccessToken: accessToken,
		TokenType:   "Bearer",
		ExpiresIn:   int(h.tokens.AccessTokenTTL().Seconds()),
		Session:     common.FromSession(sess),
	})
}

// Logout ends the session and clears the selection.
// POST /v1/auth/logout
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	h.portal.SignOut(r.Context())
	httputil.ClearAuthCookie(w, h.cookieConfig)
	w.WriteHeader(http.StatusNoContent)
}
