package reminders

import (
	"encoding/json"
	"net/http"

	"github.com/studioxv/booking-platform/pkg/logging"
)

// RunHandler exposes a single reminder scan over HTTP, for deployments that
// drive the cadence from an external scheduler instead of the worker binary.
type RunHandler struct {
	worker *Worker
	logger *logging.Logger
}

// NewRunHandler creates the manual-run handler.
func NewRunHandler(worker *Worker, logger *logging.Logger) *RunHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &RunHandler{worker: worker, logger: logger}
}

// Run handles POST /internal/reminders/run.
func (h *RunHandler) Run(w http.ResponseWriter, r *http.Request) {
	summary, err := h.worker.RunOnce(r.Context())
	if err != nil {
		h.logger.Error("reminder run failed", "error", err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "reminder run failed"})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(summary)
}
