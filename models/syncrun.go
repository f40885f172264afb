package models

import "time"

// RunStatus is the lifecycle state of a sync run.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// SyncError is one per-candidate failure folded into a run's statistics.
type SyncError struct {
	Slug    string `json:"slug"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// SyncStats aggregates the outcome of one orchestrator run. The invariant
// Created+Updated+Unchanged+len(Errors) == Processed holds for every
// completed run.
type SyncStats struct {
	Processed int
	Created   int
	Updated   int
	Unchanged int
	Errors    []SyncError
}

// ErrorCount returns the number of per-candidate failures.
func (s SyncStats) ErrorCount() int { return len(s.Errors) }

// SyncRun records one orchestrator execution in the ledger.
type SyncRun struct {
	ID           int64
	Source       string
	Strategy     string
	Stats        SyncStats
	Status       RunStatus
	ErrorMessage string
	StartedAt    time.Time
	CompletedAt  *time.Time
}
