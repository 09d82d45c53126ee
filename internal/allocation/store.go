package allocation

import (
	"context"

	"github.com/iliyamo/retreat-allocation/internal/model"
)

// Store is the write side of the participant collaborator.  UpdateParticipant
// replaces the whole record; implementations bump p.Version on success and
// may reject a stale version with an error wrapping ErrConflict.
type Store interface {
	UpdateParticipant(ctx context.Context, p *model.Participant) error
}

// AtomicSwapper is implemented by stores that can exchange two labels in a
// single conditional write.  a and b carry their new labels; the write
// succeeds only if both records still have the versions they were read with.
type AtomicSwapper interface {
	SwapLabels(ctx context.Context, pool model.PoolType, a, b *model.Participant) error
}

// Journal persists the progress of move operations keyed by operation id so
// that a retried request resumes instead of starting over.
type Journal interface {
	Load(ctx context.Context, opID string) (*SwapRecord, bool, error)
	Save(ctx context.Context, rec *SwapRecord) error
}
