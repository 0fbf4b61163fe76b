package events

import (
	"time"

	"github.com/kilianp07/foodredist/core/model"
)

// Event is any of the types below.
type Event interface {
	Run() string
}

// RunStarted is published once the snapshots are fetched.
type RunStarted struct {
	RunID     string
	Items     int
	Charities int
	At        time.Time
}

// ItemFailed is published for each surplus item that could not be planned.
type ItemFailed struct {
	RunID  string
	ItemID string
	Err    error
}

// BatchCommitted is published after the allocation batch was persisted.
type BatchCommitted struct {
	RunID string
	At    time.Time
	Batch model.AllocationBatch
}

// RunFinished closes every run, whatever its outcome.
type RunFinished struct {
	RunID    string
	Status   string
	Duration time.Duration
	Err      error
}

func (e RunStarted) Run() string     { return e.RunID }
func (e ItemFailed) Run() string     { return e.RunID }
func (e BatchCommitted) Run() string { return e.RunID }
func (e RunFinished) Run() string    { return e.RunID }
