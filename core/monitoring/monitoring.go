package monitoring

import "time"

// Monitor reports errors to an external tracker.
type Monitor interface {
	CaptureException(err error, tags map[string]string)
	Flush(timeout time.Duration)
}

// NopMonitor drops everything.
type NopMonitor struct{}

func (NopMonitor) CaptureException(error, map[string]string) {}
func (NopMonitor) Flush(time.Duration)                       {}

// Tags for a failed run or item. Empty values are omitted.
func Tags(component, runID, itemID string) map[string]string {
	tags := map[string]string{"component": component}
	if runID != "" {
		tags["run_id"] = runID
	}
	if itemID != "" {
		tags["item_id"] = itemID
	}
	return tags
}
