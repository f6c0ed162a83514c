package reminders

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunHandlerReturnsSummary(t *testing.T) {
	store := &fakeStore{}
	worker := NewWorker(store, &recordingSender{}, nil, 0, nil)
	h := NewRunHandler(worker, nil)

	req := httptest.NewRequest(http.MethodPost, "/internal/reminders/run", nil)
	rr := httptest.NewRecorder()
	h.Run(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var summary Summary
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &summary))
	assert.Zero(t, summary.Scanned)
	assert.Zero(t, summary.SentCount)
}

func TestRunHandlerSurfacesScanFailure(t *testing.T) {
	store := &fakeStore{listErr: errors.New("dynamo unavailable")}
	worker := NewWorker(store, &recordingSender{}, nil, 0, nil)
	h := NewRunHandler(worker, nil)

	req := httptest.NewRequest(http.MethodPost, "/internal/reminders/run", nil)
	rr := httptest.NewRecorder()
	h.Run(rr, req)

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}
