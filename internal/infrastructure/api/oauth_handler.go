package api

import (
	"errors"
	"net/http"

	"storefront-identity-layer/internal/application"
	"storefront-identity-layer/internal/domain"

	"github.com/rs/zerolog"
)

// StateCookieName carries the install state between install and callback
const StateCookieName = "shopify_oauth_state"

// OAuthHandler serves the install redirect and the OAuth callback
type OAuthHandler struct {
	flow       *application.OAuthFlow
	cookiePath string
	logger     zerolog.Logger
}

// NewOAuthHandler creates the OAuth HTTP handler. cookiePath scopes the state
// cookie to the routes that read it.
func NewOAuthHandler(flow *application.OAuthFlow, cookiePath string, logger zerolog.Logger) *OAuthHandler {
	if cookiePath == "" {
		cookiePath = "/"
	}
	return &OAuthHandler{flow: flow, cookiePath: cookiePath, logger: logger}
}

// Install godoc
// GET /auth/shopify/install?shop=<domain>
func (h *OAuthHandler) Install(w http.ResponseWriter, r *http.Request) {
	redirect, err := h.flow.BeginInstall(r.Context(), r.URL.Query().Get("shop"))
	if err != nil {
		if errors.Is(err, domain.ErrValidation) {
			writeMessage(w, http.StatusBadRequest, "invalid shop domain")
			return
		}
		writeError(w, h.logger, err)
		return
	}

	if !redirect.Fallback {
		http.SetCookie(w, &http.Cookie{
			Name:     StateCookieName,
			Value:    redirect.State,
			Path:     h.cookiePath,
			MaxAge:   int(domain.InstallStateTTL.Seconds()),
			Expires:  redirect.ExpiresAt,
			HttpOnly: true,
			Secure:   true,
			SameSite: http.SameSiteLaxMode,
		})
	}
	http.Redirect(w, r, redirect.URL, http.StatusFound)
}

// Callback godoc
// GET /auth/shopify/callback?shop&code&state&hmac
// Every exit is a 302 to the portal and expires the state cookie once.
func (h *OAuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	cookieState := ""
	if c, err := r.Cookie(StateCookieName); err == nil {
		cookieState = c.Value
	}

	flow := h.flow.HandleCallback(r.Context(), r.URL.Query(), cookieState)

	http.SetCookie(w, &http.Cookie{
		Name:     StateCookieName,
		Value:    "",
		Path:     h.cookiePath,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	})
	w.Header().Set("Cache-Control", "no-store")
	http.Redirect(w, r, flow.RedirectURL(h.flow.PortalRedirectURL()), http.StatusFound)
}
