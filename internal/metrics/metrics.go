// Package metrics records allocation activity.
package metrics

// Collector receives allocation metrics.  The service depends on this
// interface so tests and deployments without Prometheus can use Nop.
type Collector interface {
	// RecordAssignmentRun records one auto-assignment run by outcome
	// (applied, no_change, no_seats, dry_run).
	RecordAssignmentRun(outcome string)
	// RecordAssignmentWrites adds persisted and failed hall seat writes.
	RecordAssignmentWrites(succeeded, failed int)
	// ObservePersistDuration observes the duration of the write phase.
	ObservePersistDuration(seconds float64)
	// RecordMove records a move by pool, kind and result.
	RecordMove(pool, kind, result string)
	// RecordSelection records a selector click by outcome.
	RecordSelection(pool, outcome string)
	// RecordEvent records an event publication by result.
	RecordEvent(result string)
}

// NopMetrics discards everything.
type NopMetrics struct{}

var _ Collector = (*NopMetrics)(nil)

// NewNop creates a new no-op collector.
func NewNop() *NopMetrics { return &NopMetrics{} }

func (n *NopMetrics) RecordAssignmentRun(string) {}
func (n *NopMetrics) RecordAssignmentWrites(int, int) {}
func (n *NopMetrics) ObservePersistDuration(float64) {}
func (n *NopMetrics) RecordMove(string, string, string) {}
func (n *NopMetrics) RecordSelection(string, string) {}
func (n *NopMetrics) RecordEvent(string) {}
