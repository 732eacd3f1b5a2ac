package restapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthHandlerOK(t *testing.T) {
	api := newTestAPI(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	api.healthHandler(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var health HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &health))
	assert.Equal(t, "ok", health.Status)
}

func TestHealthHandlerUnavailableWithoutStations(t *testing.T) {
	api := newTestAPI(t)
	api.Application.Stations = nil

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	api.healthHandler(w, req)

	require.Equal(t, http.StatusServiceUnavailable, w.Code)

	var health HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &health))
	assert.Equal(t, "starting", health.Status)
}

func TestHealthHandlerUnavailableWithClosedDB(t *testing.T) {
	api := newTestAPI(t)
	require.NoError(t, api.tripDB.Close())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	api.healthHandler(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestCurrentTimeHandler(t *testing.T) {
	api := newTestAPI(t)

	req := httptest.NewRequest(http.MethodGet, "/api/current-time", nil)
	w := httptest.NewRecorder()
	api.currentTimeHandler(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Data currentTimeData `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, api.clock.NowUnixMilli(), envelope.Data.Time)
	assert.NotEmpty(t, envelope.Data.ReadableTime)
}
