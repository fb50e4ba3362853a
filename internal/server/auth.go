package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotstat/internal/services"
	"github.com/desertthunder/spotstat/internal/shared"
)

// Authorizer runs the authorization-code flow. [*services.TokenManager] implements it.
type Authorizer interface {
	AuthorizationURL() string
	ExchangeCode(ctx context.Context, code string) (*services.TokenPair, error)
}

// callbackBody is the success response of /callback.
type callbackBody struct {
	Message string              `json:"message"`
	Tokens  *services.TokenPair `json:"tokens"`
}

// AuthHandler serves /login and /callback.
type AuthHandler struct {
	auth   Authorizer
	logger *log.Logger
}

func NewAuthHandler(auth Authorizer, logger *log.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, logger: logger}
}

func (h *AuthHandler) Routes() []Route {
	return []Route{
		{Method: http.MethodGet, Path: "/login", Handler: h.Login},
		{Method: http.MethodGet, Path: "/callback", Handler: h.Callback},
	}
}

// Login redirects the user agent to the provider's consent page.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, h.auth.AuthorizationURL(), http.StatusFound)
}

// Callback exchanges the authorization code and returns the token pair.
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	code := q.Get("code")
	if code == "" {
		if errParam := q.Get("error"); errParam != "" {
			h.logger.Warn("authorization denied",
				"request_id", RequestIDFromContext(r.Context()),
				"error", errParam,
				"description", q.Get("error_description"))
		}
		writeError(w, http.StatusBadRequest, "Authorization code is missing")
		return
	}

	pair, err := h.auth.ExchangeCode(r.Context(), code)
	switch {
	case errors.Is(err, shared.ErrPrecondition):
		writeError(w, http.StatusBadRequest, "Authorization code is missing")
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, errorMessage(err))
		return
	}

	writeJSON(w, http.StatusOK, callbackBody{Message: "Authorization successful", Tokens: pair})
}
