package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"ylabs/internal/app"
	"ylabs/internal/http/middleware"
	"ylabs/internal/http/response"
)

// TicketValidator checks a CAS service ticket and returns the netid.
type TicketValidator interface {
	LoginURL(service string) string
	Validate(ctx context.Context, ticket, service string) (string, error)
}

type AuthHandler struct {
	cas       TicketValidator
	sessions  *middleware.SessionAuth
	users     *app.UserService
	serverURL string
	clientURL string
	logger    *slog.Logger
}

func NewAuthHandler(cas TicketValidator, sessions *middleware.SessionAuth, users *app.UserService, serverURL, clientURL string, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		cas:       cas,
		sessions:  sessions,
		users:     users,
		serverURL: strings.TrimRight(serverURL, "/"),
		clientURL: strings.TrimRight(clientURL, "/"),
		logger:    logger,
	}
}

// CAS starts the single sign-on round trip, or finishes it when the
// identity provider redirects back with a ticket.
func (h *AuthHandler) CAS(w http.ResponseWriter, r *http.Request) {
	redirect := r.URL.Query().Get("redirect")
	service := h.serverURL + "/cas"
	if redirect != "" {
		service += "?redirect=" + url.QueryEscape(redirect)
	}
	ticket := r.URL.Query().Get("ticket")
	if ticket == "" {
		http.Redirect(w, r, h.cas.LoginURL(service), http.StatusFound)
		return
	}
	netid, err := h.cas.Validate(r.Context(), ticket, service)
	if err != nil {
		response.Error(w, err)
		return
	}
	if _, err := h.users.Login(r.Context(), netid); err != nil {
		response.Error(w, err)
		return
	}
	if err := h.sessions.SetSession(w, netid); err != nil {
		response.Error(w, err)
		return
	}
	h.logger.Info("user logged in", "netid", netid)
	http.Redirect(w, r, h.safeRedirect(redirect), http.StatusFound)
}

// Check reports whether the request carries a valid session.
func (h *AuthHandler) Check(w http.ResponseWriter, r *http.Request) {
	caller, err := h.sessions.Resolve(r)
	if err != nil {
		response.JSON(w, http.StatusOK, map[string]any{"auth": false})
		return
	}
	account, err := h.users.Current(r.Context(), caller)
	if err != nil {
		response.JSON(w, http.StatusOK, map[string]any{"auth": false})
		return
	}
	response.JSON(w, http.StatusOK, map[string]any{"auth": true, "user": account})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if caller, err := h.sessions.Resolve(r); err == nil {
		h.users.Logout(r.Context(), caller)
	}
	h.sessions.ClearSession(w)
	response.JSON(w, http.StatusOK, map[string]any{"success": true})
}

// safeRedirect only follows relative paths and client URLs.
func (h *AuthHandler) safeRedirect(target string) string {
	switch {
	case target == "":
		return h.clientURL
	case strings.HasPrefix(target, "/") && !strings.HasPrefix(target, "//"):
		return h.clientURL + target
	case h.clientURL != "" && (target == h.clientURL || strings.HasPrefix(target, h.clientURL+"/")):
		return target
	default:
		return h.clientURL
	}
}

