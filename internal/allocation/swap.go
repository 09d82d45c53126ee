package allocation

import (
	"context"
	"strings"
	"sync"

	"github.com/iliyamo/retreat-allocation/internal/model"
)

// SwapSentinel is the temporary label a source participant holds between
// the first and the last write of a three-step swap.
const SwapSentinel = "__SWAP__"

var sentinelKey = NormalizeLabel(SwapSentinel)

// MoveKind classifies a planned move.
type MoveKind string

const (
	MoveNoop     MoveKind = "NOOP"
	MoveRelocate MoveKind = "RELOCATE"
	MoveSwap     MoveKind = "SWAP"
)

// MoveRequest asks to move the occupant of Source onto Target.
//
// ExpectedSourceID, when non-zero, is the participant the caller saw on
// Source.  ExpectedTargetID, when set, is the participant the caller saw on
// Target (0 meaning empty).  Catalog, when set, restricts targets to known
// labels of the pool.
type MoveRequest struct {
	Pool             model.PoolType
	Source           string
	Target           string
	OpID             string
	ExpectedSourceID uint64
	ExpectedTargetID *uint64
	Catalog          *Catalog
}

// MovePlan is a validated move ready for execution.  Source and Target are
// copies of the snapshot records; Target is nil unless Kind is MoveSwap.
type MovePlan struct {
	Kind        MoveKind
	Pool        model.PoolType
	OpID        string
	SourceLabel string
	TargetLabel string
	Source      *model.Participant
	Target      *model.Participant
}

// PlanMove validates req against a fresh snapshot and decides between a
// no-op, a single relocation and a swap.  It performs no writes.
func PlanMove(snapshot []model.Participant, req MoveRequest) (*MovePlan, error) {
	const op = "plan move"
	if !validPool(req.Pool) {
		return nil, newError(ErrValidation, op, "unknown pool %q", req.Pool)
	}
	src, tgt := NormalizeLabel(req.Source), NormalizeLabel(req.Target)
	if src == "" {
		return nil, newError(ErrValidation, op, "source label is required")
	}
	if tgt == "" {
		return nil, newError(ErrValidation, op, "target label is required")
	}
	if src == tgt {
		return nil, newError(ErrValidation, op, "source and target are the same label %q", src)
	}
	if tgt == sentinelKey {
		return nil, newError(ErrValidation, op, "label %q is reserved", req.Target)
	}

	ix := BuildIndex(snapshot, req.Pool)
	source, occupied := ix.Occupant(src)
	if req.ExpectedSourceID != 0 {
		if p := findParticipant(snapshot, req.ExpectedSourceID); p == nil || p.Status == model.StatusCancelled {
			return nil, &Error{Kind: ErrNotFound, Op: op, ParticipantID: req.ExpectedSourceID, Msg: "participant no longer exists"}
		}
		if !occupied || source.ID != req.ExpectedSourceID {
			return nil, &Error{Kind: ErrConflict, Op: op, ParticipantID: req.ExpectedSourceID, Msg: "participant is no longer on " + req.Source}
		}
	}
	if !occupied {
		return &MovePlan{Kind: MoveNoop, Pool: req.Pool, OpID: req.OpID, SourceLabel: req.Source, TargetLabel: req.Target}, nil
	}

	var targetWing model.Gender
	if req.Catalog != nil {
		w, ok := req.Catalog.WingOf(tgt)
		if !ok {
			return nil, newError(ErrNotFound, op, "label %q does not exist in pool %s", req.Target, req.Pool)
		}
		targetWing = w
	}

	target, taken := ix.Occupant(tgt)
	if req.ExpectedTargetID != nil {
		want := *req.ExpectedTargetID
		switch {
		case want == 0 && taken:
			return nil, &Error{Kind: ErrConflict, Op: op, ParticipantID: target.ID, Msg: "target " + req.Target + " has been taken"}
		case want != 0 && (!taken || target.ID != want):
			return nil, &Error{Kind: ErrConflict, Op: op, ParticipantID: want, Msg: "participant is no longer on " + req.Target}
		}
	}

	plan := &MovePlan{
		Pool:        req.Pool,
		OpID:        req.OpID,
		SourceLabel: source.Label(req.Pool),
		Source:      cloneParticipant(source),
	}
	if !taken {
		if req.Pool.GenderPartitioned() && targetWing != "" && targetWing != source.Gender {
			return nil, &Error{Kind: ErrValidation, Op: op, ParticipantID: source.ID,
				Msg: "label " + req.Target + " belongs to the " + strings.ToLower(string(targetWing)) + " wing"}
		}
		plan.Kind = MoveRelocate
		plan.TargetLabel = strings.TrimSpace(req.Target)
		return plan, nil
	}
	if req.Pool.GenderPartitioned() && source.Gender != target.Gender {
		return nil, &Error{Kind: ErrValidation, Op: op, ParticipantID: source.ID,
			Msg: "cannot swap across wings in pool " + string(req.Pool)}
	}
	plan.Kind = MoveSwap
	plan.TargetLabel = target.Label(req.Pool)
	plan.Target = cloneParticipant(target)
	return plan, nil
}

func validPool(pool model.PoolType) bool {
	for _, p := range model.Pools {
		if p == pool {
			return true
		}
	}
	return false
}

func findParticipant(snapshot []model.Participant, id uint64) *model.Participant {
	for i := range snapshot {
		if snapshot[i].ID == id {
			return &snapshot[i]
		}
	}
	return nil
}

func cloneParticipant(p *model.Participant) *model.Participant {
	c := *p
	return &c
}

// SwapRecord is the journal entry of one move operation.
type SwapRecord struct {
	OpID        string         `json:"op_id"`
	Kind        MoveKind       `json:"kind"`
	Pool        model.PoolType `json:"pool"`
	SourceID    uint64         `json:"source_id"`
	TargetID    uint64         `json:"target_id,omitempty"`
	SourceLabel string         `json:"source_label"`
	TargetLabel string         `json:"target_label"`
	Completed   Step           `json:"completed"`
	Done        bool           `json:"done"`
}

// SwapResult describes an executed move.
type SwapResult struct {
	Kind           MoveKind           `json:"kind"`
	OpID           string             `json:"op_id,omitempty"`
	Pool           model.PoolType     `json:"pool"`
	Source         *model.Participant `json:"source,omitempty"`
	Target         *model.Participant `json:"target,omitempty"`
	Steps          []Step             `json:"steps"`
	Atomic         bool               `json:"atomic"`
	Resumed        bool               `json:"resumed"`
	AlreadyApplied bool               `json:"already_applied"`
	Warnings       []string           `json:"warnings,omitempty"`
}

// Executor carries out move plans against a store.  The journal is optional;
// without it a failed three-step swap cannot be resumed automatically.
type Executor struct {
	store   Store
	journal Journal
}

// NewExecutor returns an executor writing to store and recording progress
// in journal (which may be nil).
func NewExecutor(store Store, journal Journal) *Executor {
	return &Executor{store: store, journal: journal}
}

// Move plans and executes req against snapshot.  A request whose OpID is
// already journaled resumes that operation instead of planning a new one;
// the request must then name the same pool and labels.
func (e *Executor) Move(ctx context.Context, snapshot []model.Participant, req MoveRequest) (*SwapResult, error) {
	if req.OpID != "" && e.journal != nil {
		rec, ok, err := e.journal.Load(ctx, req.OpID)
		if err != nil {
			return nil, storeError("load swap journal", StepNone, 0, err)
		}
		if ok {
			if rec.Pool != req.Pool || !SameLabel(rec.SourceLabel, req.Source) || !SameLabel(rec.TargetLabel, req.Target) {
				return nil, newError(ErrValidation, "move", "operation %s already moved %s to %s in pool %s",
					req.OpID, rec.SourceLabel, rec.TargetLabel, rec.Pool)
			}
			return e.Resume(ctx, rec, snapshot)
		}
	}
	plan, err := PlanMove(snapshot, req)
	if err != nil {
		return nil, err
	}
	return e.Execute(ctx, plan)
}

// Execute runs a plan produced by PlanMove.
func (e *Executor) Execute(ctx context.Context, plan *MovePlan) (*SwapResult, error) {
	res := &SwapResult{Kind: plan.Kind, OpID: plan.OpID, Pool: plan.Pool, Steps: []Step{}}
	switch plan.Kind {
	case MoveNoop:
		return res, nil
	case MoveRelocate:
		rec := e.newRecord(plan)
		e.save(ctx, rec, res)
		src := cloneParticipant(plan.Source)
		if err := e.relocate(ctx, rec, src, res); err != nil {
			return res, err
		}
		res.Source = src
		return res, nil
	}

	rec := e.newRecord(plan)
	src, tgt := cloneParticipant(plan.Source), cloneParticipant(plan.Target)
	if sw, ok := e.store.(AtomicSwapper); ok {
		if err := e.atomicSwap(ctx, sw, rec, src, tgt, res); err != nil {
			return res, err
		}
	} else {
		e.save(ctx, rec, res)
		if err := e.threeStep(ctx, rec, src, tgt, res); err != nil {
			return res, err
		}
	}
	res.Source, res.Target = src, tgt
	return res, nil
}

// Resume continues a journaled operation.  Progress is derived from the
// fresh snapshot rather than trusted from the journal, so a write that
// landed before its journal update is not repeated.
func (e *Executor) Resume(ctx context.Context, rec *SwapRecord, snapshot []model.Participant) (*SwapResult, error) {
	const op = "resume move"
	res := &SwapResult{Kind: rec.Kind, OpID: rec.OpID, Pool: rec.Pool, Steps: []Step{}, Resumed: true}

	source := findParticipant(snapshot, rec.SourceID)
	if source == nil {
		return res, &Error{Kind: ErrNotFound, Op: op, ParticipantID: rec.SourceID, Msg: "participant no longer exists"}
	}
	src := cloneParticipant(source)
	cur := src.Label(rec.Pool)
	if rec.Done {
		res.AlreadyApplied, res.Source = true, src
		if t := findParticipant(snapshot, rec.TargetID); t != nil && rec.TargetID != 0 {
			res.Target = cloneParticipant(t)
		}
		return res, nil
	}

	if rec.Kind == MoveRelocate {
		switch {
		case SameLabel(cur, rec.TargetLabel):
			res.AlreadyApplied, res.Source = true, src
			e.markDone(ctx, rec, res)
			return res, nil
		case SameLabel(cur, rec.SourceLabel):
			if err := e.relocate(ctx, rec, src, res); err != nil {
				return res, err
			}
			res.Source = src
			return res, nil
		}
		return res, &Error{Kind: ErrConflict, Op: op, ParticipantID: src.ID, Msg: "participant was moved by another operation"}
	}

	target := findParticipant(snapshot, rec.TargetID)
	if target == nil {
		return res, &Error{Kind: ErrNotFound, Op: op, ParticipantID: rec.TargetID, Msg: "participant no longer exists"}
	}
	tgt := cloneParticipant(target)
	tcur := tgt.Label(rec.Pool)
	parked := SameLabel(cur, SwapSentinel)

	var done Step
	switch {
	case SameLabel(cur, rec.TargetLabel) && SameLabel(tcur, rec.SourceLabel):
		res.AlreadyApplied, res.Source, res.Target = true, src, tgt
		e.markDone(ctx, rec, res)
		return res, nil
	case SameLabel(cur, rec.SourceLabel) && SameLabel(tcur, rec.TargetLabel):
		done = StepNone
	case parked && SameLabel(tcur, rec.TargetLabel):
		done = StepParkSource
	case parked && SameLabel(tcur, rec.SourceLabel):
		done = StepMoveTarget
	default:
		return res, &Error{Kind: ErrConflict, Op: op, ParticipantID: src.ID, Msg: "records were changed by another operation"}
	}

	if done == StepNone {
		if sw, ok := e.store.(AtomicSwapper); ok {
			if err := e.atomicSwap(ctx, sw, rec, src, tgt, res); err != nil {
				return res, err
			}
			res.Source, res.Target = src, tgt
			return res, nil
		}
	}
	rec.Completed = done
	if err := e.threeStep(ctx, rec, src, tgt, res); err != nil {
		return res, err
	}
	res.Source, res.Target = src, tgt
	return res, nil
}

func (e *Executor) newRecord(plan *MovePlan) *SwapRecord {
	rec := &SwapRecord{
		OpID:        plan.OpID,
		Kind:        plan.Kind,
		Pool:        plan.Pool,
		SourceID:    plan.Source.ID,
		SourceLabel: plan.SourceLabel,
		TargetLabel: plan.TargetLabel,
	}
	if plan.Target != nil {
		rec.TargetID = plan.Target.ID
	}
	return rec
}

func (e *Executor) relocate(ctx context.Context, rec *SwapRecord, src *model.Participant, res *SwapResult) error {
	src.SetLabel(rec.Pool, rec.TargetLabel)
	src.IsSeatLocked = true
	if err := e.store.UpdateParticipant(ctx, src); err != nil {
		return storeError("relocate", StepRelocate, src.ID, err)
	}
	res.Steps = append(res.Steps, StepRelocate)
	rec.Completed = StepRelocate
	e.markDone(ctx, rec, res)
	return nil
}

func (e *Executor) atomicSwap(ctx context.Context, sw AtomicSwapper, rec *SwapRecord, src, tgt *model.Participant, res *SwapResult) error {
	src.SetLabel(rec.Pool, rec.TargetLabel)
	src.IsSeatLocked = true
	tgt.SetLabel(rec.Pool, rec.SourceLabel)
	tgt.IsSeatLocked = true
	if err := sw.SwapLabels(ctx, rec.Pool, src, tgt); err != nil {
		return storeError("swap", StepAtomicSwap, src.ID, err)
	}
	res.Atomic = true
	res.Steps = append(res.Steps, StepAtomicSwap)
	rec.Completed = StepAtomicSwap
	e.markDone(ctx, rec, res)
	return nil
}

// threeStep runs the steps after rec.Completed: park the source on the
// sentinel, move the target onto the vacated label, place the source.
func (e *Executor) threeStep(ctx context.Context, rec *SwapRecord, src, tgt *model.Participant, res *SwapResult) error {
	const op = "swap"
	if rec.Completed < StepParkSource {
		src.SetLabel(rec.Pool, SwapSentinel)
		if err := e.store.UpdateParticipant(ctx, src); err != nil {
			return storeError(op, StepParkSource, src.ID, err)
		}
		e.advance(ctx, rec, StepParkSource, res)
	}
	if rec.Completed < StepMoveTarget {
		tgt.SetLabel(rec.Pool, rec.SourceLabel)
		tgt.IsSeatLocked = true
		if err := e.store.UpdateParticipant(ctx, tgt); err != nil {
			return storeError(op, StepMoveTarget, tgt.ID, err)
		}
		e.advance(ctx, rec, StepMoveTarget, res)
	}
	src.SetLabel(rec.Pool, rec.TargetLabel)
	src.IsSeatLocked = true
	if err := e.store.UpdateParticipant(ctx, src); err != nil {
		return storeError(op, StepPlaceSource, src.ID, err)
	}
	res.Steps = append(res.Steps, StepPlaceSource)
	rec.Completed = StepPlaceSource
	e.markDone(ctx, rec, res)
	return nil
}

func (e *Executor) advance(ctx context.Context, rec *SwapRecord, step Step, res *SwapResult) {
	res.Steps = append(res.Steps, step)
	rec.Completed = step
	e.save(ctx, rec, res)
}

func (e *Executor) markDone(ctx context.Context, rec *SwapRecord, res *SwapResult) {
	rec.Done = true
	e.save(ctx, rec, res)
}

// save journals rec.  A journal failure does not undo a completed write; it
// is surfaced as a warning on the result.
func (e *Executor) save(ctx context.Context, rec *SwapRecord, res *SwapResult) {
	if e.journal == nil || rec.OpID == "" {
		return
	}
	if err := e.journal.Save(ctx, rec); err != nil {
		res.Warnings = append(res.Warnings, "journal: "+err.Error())
	}
}

// MemoryJournal is an in-process Journal.
type MemoryJournal struct {
	mu   sync.Mutex
	recs map[string]SwapRecord
}

// NewMemoryJournal returns an empty journal.
func NewMemoryJournal() *MemoryJournal {
	return &MemoryJournal{recs: make(map[string]SwapRecord)}
}

func (j *MemoryJournal) Load(_ context.Context, opID string) (*SwapRecord, bool, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	rec, ok := j.recs[opID]
	if !ok {
		return nil, false, nil
	}
	return &rec, true, nil
}

func (j *MemoryJournal) Save(_ context.Context, rec *SwapRecord) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.recs[rec.OpID] = *rec
	return nil
}
