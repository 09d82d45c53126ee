package allocation

import "github.com/iliyamo/retreat-allocation/internal/model"

// SelectState is the state of the interactive move selector.
type SelectState string

const (
	StateIdle           SelectState = "IDLE"
	StateSourceSelected SelectState = "SOURCE_SELECTED"
)

// SelectOutcome says what a click did.
type SelectOutcome string

const (
	OutcomeIgnored        SelectOutcome = "IGNORED"
	OutcomeSourceSelected SelectOutcome = "SOURCE_SELECTED"
	OutcomeCancelled      SelectOutcome = "CANCELLED"
	OutcomeResolved       SelectOutcome = "RESOLVED"
)

// Selection is the selector state of one administrator for one pool.  The
// zero value is Idle.
type Selection struct {
	State      SelectState    `json:"state"`
	Pool       model.PoolType `json:"pool"`
	Label      string         `json:"label,omitempty"`
	OccupantID uint64         `json:"occupant_id,omitempty"`
}

// Idle reports whether no source is selected.
func (s Selection) Idle() bool { return s.State != StateSourceSelected }

// Select feeds one selected label into the state machine.
//
// From Idle an occupied label becomes the source and an empty one is
// ignored.  From SourceSelected the same label cancels the selection and
// any other label resolves it into a MoveRequest carrying the occupants
// seen in ix, so a stale selection is caught when the move is planned.
func (s Selection) Select(pool model.PoolType, label string, ix *Index) (Selection, *MoveRequest, SelectOutcome, error) {
	if NormalizeLabel(label) == "" {
		return s, nil, OutcomeIgnored, newError(ErrValidation, "select", "label is required")
	}
	idle := Selection{State: StateIdle, Pool: pool}
	if s.Idle() || s.Pool != pool {
		occ, ok := ix.Occupant(label)
		if !ok {
			return idle, nil, OutcomeIgnored, nil
		}
		return Selection{State: StateSourceSelected, Pool: pool, Label: label, OccupantID: occ.ID}, nil, OutcomeSourceSelected, nil
	}
	if SameLabel(s.Label, label) {
		return idle, nil, OutcomeCancelled, nil
	}
	var targetID uint64
	if occ, ok := ix.Occupant(label); ok {
		targetID = occ.ID
	}
	req := &MoveRequest{
		Pool:             pool,
		Source:           s.Label,
		Target:           label,
		ExpectedSourceID: s.OccupantID,
		ExpectedTargetID: &targetID,
	}
	return idle, req, OutcomeResolved, nil
}
