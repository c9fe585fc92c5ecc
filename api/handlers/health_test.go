package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestHealthHandler() *HealthHandler {
	return NewHealthHandler(VersionInfo{Version: "1.2.3", BuildTime: "now", GitCommit: "abc"}, zap.NewNop())
}

func TestHealthHandler_HandleHealth(t *testing.T) {
	h := newTestHealthHandler()
	h.RegisterCheck(NewPingCheck("broken", func(context.Context) error { return errors.New("down") }))

	w := httptest.NewRecorder()
	h.HandleHealth(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	// 存活探针不执行依赖检查
	assert.Equal(t, http.StatusOK, w.Code)
	var resp ServiceHealthResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, "1.2.3", resp.Version)
	assert.Empty(t, resp.Checks)
}

func TestHealthHandler_HandleReady(t *testing.T) {
	tests := []struct {
		name       string
		checks     map[string]error
		wantStatus int
		wantHealth string
	}{
		{name: "no checks", wantStatus: http.StatusOK, wantHealth: "healthy"},
		{
			name:       "all pass",
			checks:     map[string]error{"retriever": nil, "redis": nil},
			wantStatus: http.StatusOK,
			wantHealth: "healthy",
		},
		{
			name:       "one fails",
			checks:     map[string]error{"retriever": nil, "database": errors.New("connection refused")},
			wantStatus: http.StatusServiceUnavailable,
			wantHealth: "unhealthy",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHealthHandler()
			for name, err := range tt.checks {
				err := err
				h.RegisterCheck(NewPingCheck(name, func(context.Context) error { return err }))
			}

			w := httptest.NewRecorder()
			h.HandleReady(w, httptest.NewRequest(http.MethodGet, "/ready", nil))

			assert.Equal(t, tt.wantStatus, w.Code)
			var resp ServiceHealthResponse
			require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
			assert.Equal(t, tt.wantHealth, resp.Status)
			assert.Len(t, resp.Checks, len(tt.checks))
			for name, err := range tt.checks {
				if err != nil {
					assert.Equal(t, "fail", resp.Checks[name].Status)
					assert.Equal(t, err.Error(), resp.Checks[name].Message)
				} else {
					assert.Equal(t, "pass", resp.Checks[name].Status)
				}
			}
		})
	}
}

func TestHealthHandler_HandleVersion(t *testing.T) {
	h := newTestHealthHandler()
	w := httptest.NewRecorder()
	h.HandleVersion(w, httptest.NewRequest(http.MethodGet, "/version", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Success bool        `json:"success"`
		Data    VersionInfo `json:"data"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "abc", resp.Data.GitCommit)
}

func TestHealthHandler_ConcurrentChecks(t *testing.T) {
	h := newTestHealthHandler()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			h.RegisterCheck(NewPingCheck("noop", func(context.Context) error { return nil }))
		}()
		go func() {
			defer wg.Done()
			w := httptest.NewRecorder()
			h.HandleReady(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
		}()
	}
	wg.Wait()

	w := httptest.NewRecorder()
	h.HandleReady(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
