package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/square-listmonk-sync/internal/domain"
	"github.com/ignite/square-listmonk-sync/internal/syncer"
)

type fakeController struct {
	triggerErr error
	triggered  int
	report     *domain.RunReport
	skipped    int64
}

func (f *fakeController) TriggerNow() error {
	f.triggered++
	return f.triggerErr
}

func (f *fakeController) LastReport() (domain.RunReport, bool) {
	if f.report == nil {
		return domain.RunReport{}, false
	}
	return *f.report, true
}

func (f *fakeController) SkippedTicks() int64 { return f.skipped }

func serve(t *testing.T, ctrl *fakeController, method, path string, origins ...string) *httptest.ResponseRecorder {
	t.Helper()
	router := SetupRoutes(NewHandlers(ctrl, "1.2.3"), origins)
	req := httptest.NewRequest(method, path, nil)
	req.Header.Set("Origin", "https://dash.example.com")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHealthCheck(t *testing.T) {
	rec := serve(t, &fakeController{}, http.MethodGet, "/health")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","version":"1.2.3"}`, rec.Body.String())
}

func TestGetStatus_NoRunYet(t *testing.T) {
	rec := serve(t, &fakeController{}, http.MethodGet, "/api/sync/status")
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestGetStatus_LastRun(t *testing.T) {
	started := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ctrl := &fakeController{
		skipped: 2,
		report: &domain.RunReport{
			RunID:      "run-1",
			StartedAt:  started,
			FinishedAt: started.Add(time.Minute),
			Fetched:    10,
			Unique:     8,
			Uploaded:   map[domain.ImportMode]int{domain.ModeSubscribe: 6, domain.ModeBlocklist: 2},
		},
	}

	rec := serve(t, ctrl, http.MethodGet, "/api/sync/status")
	require.Equal(t, http.StatusOK, rec.Code)

	var body StatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Succeeded)
	assert.Equal(t, int64(2), body.SkippedTicks)
	assert.Equal(t, "run-1", body.LastRun.RunID)
	assert.Equal(t, 6, body.LastRun.Uploaded[domain.ModeSubscribe])
}

func TestTriggerRun(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"started", nil, http.StatusAccepted},
		{"busy", syncer.ErrRunInProgress, http.StatusConflict},
		{"stopped", syncer.ErrStopped, http.StatusServiceUnavailable},
		{"lock backend down", errors.New("redis: connection refused"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := &fakeController{triggerErr: tt.err}
			rec := serve(t, ctrl, http.MethodPost, "/api/sync/run")

			assert.Equal(t, tt.code, rec.Code)
			assert.Equal(t, 1, ctrl.triggered)
		})
	}
}

func TestTriggerRun_RequiresPost(t *testing.T) {
	ctrl := &fakeController{}
	rec := serve(t, ctrl, http.MethodGet, "/api/sync/run")

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Zero(t, ctrl.triggered)
}

func TestCORS(t *testing.T) {
	rec := serve(t, &fakeController{}, http.MethodGet, "/health", "https://dash.example.com")
	assert.Equal(t, "https://dash.example.com", rec.Header().Get("Access-Control-Allow-Origin"))

	rec = serve(t, &fakeController{}, http.MethodGet, "/health")
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestStartServer(t *testing.T) {
	router := SetupRoutes(NewHandlers(&fakeController{}, "1.2.3"), nil)

	server, err := StartServer("127.0.0.1:0", router)
	require.NoError(t, err)
	defer server.Shutdown(context.Background())

	resp, err := http.Get("http://" + server.Addr + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	_, err = StartServer(server.Addr, router)
	assert.Error(t, err, "binding an address in use must fail synchronously")
}
