package pipeline

import (
	"time"

	"github.com/kilianp07/foodredist/core/allocation"
	"github.com/kilianp07/foodredist/core/model"
)

// Status is the outcome of a run.
type Status string

const (
	// StatusNothingToDo means one of the snapshots was empty.
	StatusNothingToDo Status = "nothing_to_do"
	// StatusNoMatches means items were planned but none found a charity.
	StatusNoMatches Status = "no_matches"
	// StatusCommitted means the batch was persisted.
	StatusCommitted Status = "committed"
	// StatusPersistFailed means planning succeeded but the batch was not stored.
	StatusPersistFailed Status = "persist_failed"
	// StatusUpstreamFailed means a snapshot could not be fetched.
	StatusUpstreamFailed Status = "upstream_failed"
)

// ItemOutcome reports what happened to one surplus item.
type ItemOutcome struct {
	ItemID     string          `json:"item_id"`
	Candidates int             `json:"candidates"`
	Plan       allocation.Plan `json:"plan"`
	Err        error           `json:"-"`
	Error      string          `json:"error,omitempty"`
}

func (o *ItemOutcome) fail(err error) {
	o.Err = err
	o.Error = err.Error()
}

// RunResult is returned by every run, including failed ones.
type RunResult struct {
	RunID       string                `json:"run_id"`
	StartedAt   time.Time             `json:"started_at"`
	FinishedAt  time.Time             `json:"finished_at"`
	Status      Status                `json:"status"`
	Charities   int                   `json:"charities"`
	Items       []ItemOutcome         `json:"items"`
	Batch       model.AllocationBatch `json:"allocations"`
	RequestedKG float64               `json:"requested_kg"`
	AllocatedKG float64               `json:"allocated_kg"`
	Persisted   bool                  `json:"persisted"`
	Err         error                 `json:"-"`
	Error       string                `json:"error,omitempty"`
}

// Failed lists the items that could not be planned.
func (r RunResult) Failed() []ItemOutcome {
	var out []ItemOutcome
	for _, o := range r.Items {
		if o.Err != nil {
			out = append(out, o)
		}
	}
	return out
}

// ShortfallKG is the requested quantity that found no charity.
func (r RunResult) ShortfallKG() float64 {
	s := r.RequestedKG - r.AllocatedKG
	if s < 0 {
		return 0
	}
	return s
}
