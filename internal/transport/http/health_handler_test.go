package http

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubStore struct {
	connected bool
}

func (s *stubStore) Connected() bool { return s.connected }

func TestHealthHandler_Check(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tests := []struct {
		name       string
		connected  bool
		wantStatus int
		wantBody   string
	}{
		{"store connected", true, http.StatusOK, "ok"},
		{"store disconnected", false, http.StatusServiceUnavailable, "degraded"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler(&stubStore{connected: tt.connected}, logger)

			req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
			rr := httptest.NewRecorder()
			h.Check(rr, req)

			assert.Equal(t, tt.wantStatus, rr.Code)

			var body HealthResponse
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
			assert.Equal(t, tt.wantBody, body.Status)
		})
	}
}
