package model

import "time"

// JobStatus is the terminal classification of one scheduled job.
type JobStatus string

const (
	StatusSucceeded JobStatus = "succeeded"
	StatusFailed    JobStatus = "failed"
	StatusNotRun    JobStatus = "not-run"
)

// ExecutionRecord captures the outcome and timing of one scheduled job.
// Jobs that never started carry StatusNotRun and a synthetic exit code of 1.
type ExecutionRecord struct {
	Index    int           `json:"index"`
	Label    string        `json:"label"`
	Status   JobStatus     `json:"status"`
	ExitCode int           `json:"exitCode"`
	Fault    string        `json:"fault,omitempty"` // engine fault detail, empty for clean exits
	Started  time.Time     `json:"started"`
	Finished time.Time     `json:"finished"`
	Duration time.Duration `json:"duration"`
	LogPath  string        `json:"logPath,omitempty"`
}
