package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/iliyamo/retreat-allocation/internal/allocation"
	"github.com/iliyamo/retreat-allocation/internal/model"
	"github.com/iliyamo/retreat-allocation/internal/queue"
	"github.com/iliyamo/retreat-allocation/internal/repository"
)

// MoveInput is a direct move request of the admin API.
type MoveInput struct {
	Pool             model.PoolType
	Source           string
	Target           string
	OpID             string
	ExpectedSourceID uint64
	ExpectedTargetID *uint64
}

// Move relocates the occupant of Source onto Target, swapping with the
// occupant of Target if there is one.  Repeating a request with the same
// OpID resumes or confirms the earlier operation instead of applying it
// twice.
func (s *AllocationService) Move(ctx context.Context, courseID, actorID uint64, in MoveInput) (*allocation.SwapResult, error) {
	c, _, err := s.course(ctx, courseID)
	if err != nil {
		return nil, err
	}
	req := allocation.MoveRequest{
		Pool:             in.Pool,
		Source:           in.Source,
		Target:           in.Target,
		OpID:             strings.TrimSpace(in.OpID),
		ExpectedSourceID: in.ExpectedSourceID,
		ExpectedTargetID: in.ExpectedTargetID,
	}
	res, err := s.move(ctx, c, actorID, req)
	if err == nil {
		s.clearSelection(ctx, repository.SelectionKey{AdminID: actorID, CourseID: courseID, Pool: in.Pool})
	}
	return res, err
}

func (s *AllocationService) move(ctx context.Context, c *model.Course, actorID uint64, req allocation.MoveRequest) (*allocation.SwapResult, error) {
	if req.OpID == "" {
		req.OpID = uuid.NewString()
	}
	cat, err := s.catalog(ctx, c, req.Pool)
	if err != nil {
		return nil, err
	}
	req.Catalog = cat
	ps, err := s.snapshot(ctx, c.ID)
	if err != nil {
		return nil, err
	}

	wctx, cancel := s.writeContext(ctx)
	defer cancel()
	exec := allocation.NewExecutor(s.participants, s.journal)
	res, err := exec.Move(wctx, ps, req)

	kind := ""
	if res != nil {
		kind = string(res.Kind)
		for _, w := range res.Warnings {
			s.log.Warn("move journal", zap.String("op_id", req.OpID), zap.String("warning", w))
		}
	}
	if err != nil {
		s.metrics.RecordMove(string(req.Pool), kind, "failure")
		step := allocation.FailedStep(err)
		s.log.Error("move failed", zap.Uint64("course_id", c.ID), zap.String("pool", string(req.Pool)),
			zap.String("op_id", req.OpID), zap.String("source", req.Source), zap.String("target", req.Target),
			zap.Stringer("step", step), zap.String("side", step.Side()), zap.Error(err))
		return res, err
	}
	s.metrics.RecordMove(string(req.Pool), kind, "success")
	s.log.Info("move applied", zap.Uint64("course_id", c.ID), zap.String("pool", string(req.Pool)),
		zap.String("op_id", res.OpID), zap.String("kind", kind), zap.Bool("atomic", res.Atomic),
		zap.Bool("resumed", res.Resumed), zap.Bool("already_applied", res.AlreadyApplied))

	if res.Kind != allocation.MoveNoop && !res.AlreadyApplied && res.Source != nil {
		s.publish(ctx, moveEvent(c.ID, actorID, req, res))
	}
	return res, nil
}

func moveEvent(courseID, actorID uint64, req allocation.MoveRequest, res *allocation.SwapResult) queue.AllocationChangedEvent {
	ev := queue.AllocationChangedEvent{
		Kind:     queue.KindMove,
		CourseID: courseID,
		Pool:     string(res.Pool),
		OpID:     res.OpID,
		MoveKind: string(res.Kind),
		ActorID:  actorID,
	}
	src := res.Source
	ev.Changes = append(ev.Changes, queue.LabelChange{ParticipantID: src.ID, ConfNo: src.ConfNo, From: req.Source, To: src.Label(res.Pool)})
	if tgt := res.Target; tgt != nil {
		ev.Changes = append(ev.Changes, queue.LabelChange{ParticipantID: tgt.ID, ConfNo: tgt.ConfNo, From: req.Target, To: tgt.Label(res.Pool)})
	}
	ev.Succeeded = len(ev.Changes)
	return ev
}

// SelectResult is the response to one selector click.
type SelectResult struct {
	Outcome   allocation.SelectOutcome `json:"outcome"`
	Selection allocation.Selection     `json:"selection"`
	Move      *allocation.SwapResult   `json:"move,omitempty"`
}

// Select feeds one label into the selector of the administrator for the
// course and pool.  A second, different label resolves the selection into
// a move which runs immediately.
func (s *AllocationService) Select(ctx context.Context, courseID, actorID uint64, pool model.PoolType, label string) (*SelectResult, error) {
	const op = "select"
	c, _, err := s.course(ctx, courseID)
	if err != nil {
		return nil, err
	}
	key := repository.SelectionKey{AdminID: actorID, CourseID: courseID, Pool: pool}
	cur, err := s.selections.Get(ctx, key)
	if err != nil {
		return nil, classify(op, err)
	}
	ps, err := s.snapshot(ctx, courseID)
	if err != nil {
		return nil, err
	}
	next, req, outcome, err := cur.Select(pool, label, allocation.BuildIndex(ps, pool))
	if err != nil {
		return nil, err
	}
	if err := s.selections.Save(ctx, key, next); err != nil {
		return nil, classify(op, err)
	}
	s.metrics.RecordSelection(string(pool), string(outcome))

	out := &SelectResult{Outcome: outcome, Selection: next}
	if req == nil {
		return out, nil
	}
	res, err := s.move(ctx, c, actorID, *req)
	out.Move = res
	if err != nil {
		return out, err
	}
	return out, nil
}

func (s *AllocationService) clearSelection(ctx context.Context, key repository.SelectionKey) {
	if err := s.selections.Clear(ctx, key); err != nil {
		s.log.Warn("selection not cleared", zap.Uint64("admin_id", key.AdminID), zap.Error(err))
	}
}
