package api

import (
	"errors"
	"net/http"

	"github.com/ignite/square-listmonk-sync/internal/domain"
	"github.com/ignite/square-listmonk-sync/internal/pkg/httputil"
	"github.com/ignite/square-listmonk-sync/internal/syncer"
)

// SyncController is the part of the scheduler the API drives.
type SyncController interface {
	TriggerNow() error
	LastReport() (domain.RunReport, bool)
	SkippedTicks() int64
}

// Handlers serves the status endpoints.
type Handlers struct {
	sync    SyncController
	version string
}

// NewHandlers creates the status handlers.
func NewHandlers(sync SyncController, version string) *Handlers {
	return &Handlers{sync: sync, version: version}
}

// StatusResponse is the body of GET /api/sync/status.
type StatusResponse struct {
	LastRun      domain.RunReport `json:"last_run"`
	Succeeded    bool             `json:"succeeded"`
	SkippedTicks int64            `json:"skipped_ticks"`
}

// HealthCheck reports liveness.
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	httputil.OK(w, map[string]string{"status": "ok", "version": h.version})
}

// GetStatus returns the last finished run, or 204 before the first one.
func (h *Handlers) GetStatus(w http.ResponseWriter, r *http.Request) {
	report, ok := h.sync.LastReport()
	if !ok {
		httputil.NoContent(w)
		return
	}
	httputil.OK(w, StatusResponse{
		LastRun:      report,
		Succeeded:    report.Succeeded(),
		SkippedTicks: h.sync.SkippedTicks(),
	})
}

// TriggerRun starts a sync outside the schedule.
func (h *Handlers) TriggerRun(w http.ResponseWriter, r *http.Request) {
	err := h.sync.TriggerNow()
	switch {
	case err == nil:
		httputil.Accepted(w, map[string]string{"status": "started"})
	case errors.Is(err, syncer.ErrRunInProgress):
		httputil.Conflict(w, "run_in_progress", err.Error())
	case errors.Is(err, syncer.ErrStopped):
		httputil.ServiceUnavailable(w, "stopped", err.Error())
	default:
		httputil.InternalError(w, err)
	}
}
