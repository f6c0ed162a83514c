package calendar

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/studioxv/booking-platform/pkg/logging"
)

// availabilitySource lets tests stand in for the Graph client.
type availabilitySource interface {
	DayAvailability(ctx context.Context, date string) (*Availability, error)
}

// AvailabilityHandler serves GET /api/availability?date=YYYY-MM-DD for the
// booking form's time picker.
type AvailabilityHandler struct {
	client availabilitySource
	logger *logging.Logger
}

// NewAvailabilityHandler creates the availability lookup handler.
func NewAvailabilityHandler(client availabilitySource, logger *logging.Logger) *AvailabilityHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &AvailabilityHandler{client: client, logger: logger}
}

// Get handles an availability lookup.
func (h *AvailabilityHandler) Get(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" {
		writeError(w, http.StatusBadRequest, "date is required")
		return
	}
	if _, err := time.Parse("2006-01-02", date); err != nil {
		writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}

	availability, err := h.client.DayAvailability(r.Context(), date)
	if err != nil {
		h.logger.Error("availability lookup failed", "date", date, "error", err)
		writeError(w, http.StatusBadGateway, "availability lookup failed")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(availability)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
