package allocation

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// DefaultBatchSize is the number of concurrent writes per batch.
const DefaultBatchSize = 10

// Failure is one write that did not go through.
type Failure struct {
	ParticipantID uint64 `json:"participant_id"`
	Label         string `json:"label"`
	Err           error  `json:"-"`
	Message       string `json:"error"`
}

// Outcome reports what a persistence run achieved.
type Outcome struct {
	Planned        int          `json:"planned"`
	Succeeded      int          `json:"succeeded"`
	Failed         int          `json:"failed"`
	Failures       []Failure    `json:"failures,omitempty"`
	Written        []Assignment `json:"-"`
	NoChangeNeeded bool         `json:"no_change_needed"`
}

// PersistAssignments writes the planned changes in batches of batchSize.
// Writes inside a batch run concurrently, batches run one after another and
// a failed write never stops the remaining ones.  Zero changes is reported
// through NoChangeNeeded, not as an error.
func PersistAssignments(ctx context.Context, store Store, changes []Assignment, batchSize int) Outcome {
	out := Outcome{Planned: len(changes), NoChangeNeeded: len(changes) == 0}
	if out.NoChangeNeeded {
		return out
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	work := make([]Assignment, len(changes))
	copy(work, changes)
	errs := make([]error, len(work))
	for start := 0; start < len(work); start += batchSize {
		end := min(start+batchSize, len(work))
		var g errgroup.Group
		for i := start; i < end; i++ {
			i := i
			g.Go(func() error {
				if err := store.UpdateParticipant(ctx, &work[i].Participant); err != nil {
					errs[i] = storeError("persist assignments", StepNone, work[i].Participant.ID, err)
				}
				return nil
			})
		}
		_ = g.Wait()
	}

	for i, err := range errs {
		if err != nil {
			out.Failed++
			out.Failures = append(out.Failures, Failure{
				ParticipantID: work[i].Participant.ID,
				Label:         work[i].To,
				Err:           err,
				Message:       err.Error(),
			})
			continue
		}
		out.Succeeded++
		out.Written = append(out.Written, work[i])
	}
	return out
}
