package syncer

import (
	"errors"
	"fmt"
)

// Sentinel errors for the sync orchestrator.
var (
	ErrRunInProgress = errors.New("sync run already in progress")
	ErrStopped       = errors.New("scheduler stopped")
)

// Stage names the step of a run that failed.
type Stage string

const (
	StageFetch  Stage = "fetch"
	StageEncode Stage = "encode"
	StageUpload Stage = "upload"
)

// RunError is a recoverable failure of one sync run. The scheduler logs it
// and carries on with the next tick.
type RunError struct {
	Stage  Stage
	Bucket string
	Err    error
}

func (e *RunError) Error() string {
	if e.Bucket != "" {
		return fmt.Sprintf("sync %s (%s) failed: %v", e.Stage, e.Bucket, e.Err)
	}
	return fmt.Sprintf("sync %s failed: %v", e.Stage, e.Err)
}

func (e *RunError) Unwrap() error {
	return e.Err
}
