package handlers

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/questlines/engine/internal/api/types"
	"github.com/questlines/engine/pkg/logger"
)

// Pinger reports whether a dependency is reachable.
type Pinger func(ctx context.Context) error

type HealthHandler struct {
	ready Pinger
}

// NewHealthHandler builds the health endpoints. A nil ready check always
// reports ready.
func NewHealthHandler(ready Pinger) *HealthHandler { return &HealthHandler{ready: ready} }

func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, types.APIResponse{Success: true, Data: map[string]string{"status": "ok"}})
}

func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	if h.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.ready(ctx); err != nil {
			logger.L().Warn("readiness check failed", zap.Error(err))
			writeJSON(w, http.StatusServiceUnavailable, types.APIResponse{
				Success: false,
				Error:   &types.APIError{Code: "unavailable", Message: "database unreachable"},
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, types.APIResponse{Success: true, Data: map[string]string{"status": "ready"}})
}
