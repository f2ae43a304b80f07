package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/render"
)

// StoreChecker reports whether the storage backend is connected.
type StoreChecker interface {
	Connected() bool
}

// HealthHandler serves liveness and readiness information.
type HealthHandler struct {
	store   StoreChecker
	logger  *slog.Logger
	started time.Time
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(store StoreChecker, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{
		store:   store,
		logger:  logger.With(slog.String("handler", "health")),
		started: time.Now(),
	}
}

// HealthResponse is the health check payload.
type HealthResponse struct {
	Status    string    `json:"status"`
	Store     string    `json:"store"`
	Uptime    string    `json:"uptime"`
	Timestamp time.Time `json:"timestamp"`
}

// Check handles GET /healthz
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	storeStatus := "connected"
	status := "ok"
	code := http.StatusOK

	if !h.store.Connected() {
		storeStatus = "disconnected"
		status = "degraded"
		code = http.StatusServiceUnavailable
	}

	render.Status(r, code)
	render.JSON(w, r, HealthResponse{
		Status:    status,
		Store:     storeStatus,
		Uptime:    time.Since(h.started).Round(time.Second).String(),
		Timestamp: time.Now().UTC(),
	})
}
