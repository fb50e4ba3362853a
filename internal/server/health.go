package server

import (
	"net/http"

	"github.com/desertthunder/spotstat/internal/services"
)

// StatusReporter exposes the token state. [*services.TokenManager] implements it.
type StatusReporter interface {
	Status() services.TokenStatus
}

type healthBody struct {
	Status string               `json:"status"`
	Token  services.TokenStatus `json:"token"`
}

// HealthHandler serves /health.
type HealthHandler struct {
	status StatusReporter
}

func NewHealthHandler(status StatusReporter) *HealthHandler {
	return &HealthHandler{status: status}
}

func (h *HealthHandler) Routes() []Route {
	return []Route{{Method: http.MethodGet, Path: "/health", Handler: h.Health}}
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthBody{Status: "ok", Token: h.status.Status()})
}
