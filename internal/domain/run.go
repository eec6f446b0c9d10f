package domain

import "time"

// RunReport summarizes one sync run. Only the latest report is kept, in
// memory, for the status API.
type RunReport struct {
	RunID      string             `json:"run_id"`
	StartedAt  time.Time          `json:"started_at"`
	FinishedAt time.Time          `json:"finished_at"`
	Fetched    int                `json:"fetched"`
	Unique     int                `json:"unique"`
	Uploaded   map[ImportMode]int `json:"uploaded"`
	Error      string             `json:"error,omitempty"`
}

// Succeeded reports whether the run completed without error.
func (r RunReport) Succeeded() bool {
	return r.Error == "" && !r.FinishedAt.IsZero()
}

// Duration returns how long the run took.
func (r RunReport) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
