package allocation

import (
	"sort"

	"github.com/iliyamo/retreat-allocation/internal/model"
)

// Collision records two live participants whose labels normalize to the
// same resource.  The index keeps the first one in snapshot order.
type Collision struct {
	Label   string
	Kept    *model.Participant
	Dropped *model.Participant
}

// Index maps normalized labels of one pool to the participant holding them.
// It refers to the records of the snapshot it was built from and must be
// rebuilt, never patched, after a mutation.
type Index struct {
	pool       model.PoolType
	occupants  map[string]*model.Participant
	collisions []Collision
}

// BuildIndex builds the occupancy index of pool from a snapshot.
// Cancelled participants, empty labels and records parked on the swap
// sentinel are skipped.
func BuildIndex(participants []model.Participant, pool model.PoolType) *Index {
	return buildIndex(participants, pool, nil)
}

// buildIndex is BuildIndex with an extra filter; records for which skip
// returns true are left out.
func buildIndex(participants []model.Participant, pool model.PoolType, skip func(*model.Participant) bool) *Index {
	ix := &Index{pool: pool, occupants: make(map[string]*model.Participant, len(participants))}
	for i := range participants {
		p := &participants[i]
		if p.Status == model.StatusCancelled {
			continue
		}
		if skip != nil && skip(p) {
			continue
		}
		key := NormalizeLabel(p.Label(pool))
		if key == "" || key == sentinelKey {
			continue
		}
		if kept, ok := ix.occupants[key]; ok {
			ix.collisions = append(ix.collisions, Collision{Label: key, Kept: kept, Dropped: p})
			continue
		}
		ix.occupants[key] = p
	}
	return ix
}

// Pool returns the pool the index was built for.
func (ix *Index) Pool() model.PoolType { return ix.pool }

// Len returns the number of occupied labels.
func (ix *Index) Len() int { return len(ix.occupants) }

// Occupant returns the participant holding label, if any.
func (ix *Index) Occupant(label string) (*model.Participant, bool) {
	p, ok := ix.occupants[NormalizeLabel(label)]
	return p, ok
}

// Occupied reports whether label is held.
func (ix *Index) Occupied(label string) bool {
	_, ok := ix.occupants[NormalizeLabel(label)]
	return ok
}

// Labels returns the occupied normalized labels in sorted order.
func (ix *Index) Labels() []string {
	out := make([]string, 0, len(ix.occupants))
	for k := range ix.occupants {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Collisions returns the double occupancies found in the snapshot.
func (ix *Index) Collisions() []Collision { return ix.collisions }

// Available returns the labels of allLabels that are not held in ix, in
// input order.  A label listed twice is returned once.
func Available(allLabels []string, ix *Index) []string {
	out := make([]string, 0, len(allLabels))
	seen := make(map[string]struct{}, len(allLabels))
	for _, l := range allLabels {
		key := NormalizeLabel(l)
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		if ix != nil && ix.Occupied(key) {
			continue
		}
		out = append(out, l)
	}
	return out
}
