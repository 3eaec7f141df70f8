package api

import (
	"context"
	"net/http"

	"github.com/phrazzld/taskman-api/internal/api/shared"
	"github.com/phrazzld/taskman-api/internal/composition"
)

// WiringVerifier reports whether the application core is wired correctly.
// Satisfied by *composition.Container.
type WiringVerifier interface {
	VerifyWiring() composition.WiringReport
}

// HealthResponse is the body of the health endpoint.
type HealthResponse struct {
	Status string                   `json:"status"`
	Wiring composition.WiringReport `json:"wiring"`
}

// HealthHandler serves the health endpoint, surfacing the container's
// wiring self-check so misconfiguration is visible without log access.
type HealthHandler struct {
	verifier WiringVerifier
}

// NewHealthHandler creates a new HealthHandler
func NewHealthHandler(verifier WiringVerifier) *HealthHandler {
	return &HealthHandler{verifier: verifier}
}

// Health handles GET /healthz requests. A complete wiring reports 200 ok;
// an incomplete one reports 503 degraded with the full report.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	report := h.verifier.VerifyWiring()

	response := HealthResponse{Status: "ok", Wiring: report}
	status := http.StatusOK
	if !report.OK() {
		response.Status = "degraded"
		status = http.StatusServiceUnavailable
	}

	shared.RespondWithJSON(w, r, status, response)
}

// StorageRefresher re-probes durable storage availability on demand.
// Satisfied by *composition.Container.
type StorageRefresher interface {
	RefreshStorage(ctx context.Context) bool
}

// StorageRefreshResponse is the body of the storage refresh endpoint.
type StorageRefreshResponse struct {
	Available bool `json:"available"`
}

// StorageHandler serves the storage re-probe endpoint, the manual trigger
// for recovering from fallback mode after the backend comes back.
type StorageHandler struct {
	refresher StorageRefresher
}

// NewStorageHandler creates a new StorageHandler
func NewStorageHandler(refresher StorageRefresher) *StorageHandler {
	return &StorageHandler{refresher: refresher}
}

// Refresh handles POST /api/storage/refresh requests
func (h *StorageHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	available := h.refresher.RefreshStorage(r.Context())
	shared.RespondWithJSON(w, r, http.StatusOK, StorageRefreshResponse{Available: available})
}
