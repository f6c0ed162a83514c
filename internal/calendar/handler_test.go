package calendar

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAvailability struct {
	availability *Availability
	err          error
}

func (s *stubAvailability) DayAvailability(_ context.Context, date string) (*Availability, error) {
	if s.err != nil {
		return nil, s.err
	}
	a := *s.availability
	a.Date = date
	return &a, nil
}

func TestAvailabilityHandler(t *testing.T) {
	h := NewAvailabilityHandler(&stubAvailability{availability: &Availability{
		AvailableSlots: []string{"09:00", "10:00"},
		TotalEvents:    3,
	}}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/availability?date=2026-03-15", nil)
	rr := httptest.NewRecorder()
	h.Get(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var got Availability
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, "2026-03-15", got.Date)
	assert.Equal(t, []string{"09:00", "10:00"}, got.AvailableSlots)
}

func TestAvailabilityHandlerValidation(t *testing.T) {
	h := NewAvailabilityHandler(&stubAvailability{availability: &Availability{}}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/availability", nil)
	rr := httptest.NewRecorder()
	h.Get(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/availability?date=15-03-2026", nil)
	rr = httptest.NewRecorder()
	h.Get(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestAvailabilityHandlerUpstreamFailure(t *testing.T) {
	h := NewAvailabilityHandler(&stubAvailability{err: errors.New("graph 503")}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/availability?date=2026-03-15", nil)
	rr := httptest.NewRecorder()
	h.Get(rr, req)
	assert.Equal(t, http.StatusBadGateway, rr.Code)
}
