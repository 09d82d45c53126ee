package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/iliyamo/retreat-allocation/internal/allocation"
	"github.com/iliyamo/retreat-allocation/internal/model"
	"github.com/iliyamo/retreat-allocation/internal/queue"
)

// Auto-assignment outcomes.
const (
	OutcomeApplied  = "applied"
	OutcomeNoChange = "no_change"
	OutcomeNoSeats  = "no_seats"
	OutcomeDryRun   = "dry_run"
)

// PlannedChange is one hall seat change of a run.
type PlannedChange struct {
	ParticipantID uint64       `json:"participant_id"`
	ConfNo        string       `json:"conf_no"`
	FullName      string       `json:"full_name"`
	Gender        model.Gender `json:"gender"`
	From          string       `json:"from"`
	To            string       `json:"to"`
}

// CollisionView reports two live participants holding the same label.
type CollisionView struct {
	Label     string `json:"label"`
	KeptID    uint64 `json:"kept_id"`
	DroppedID uint64 `json:"dropped_id"`
}

// AssignReport is the response of an auto-assignment run.
type AssignReport struct {
	CourseID       uint64                  `json:"course_id"`
	Outcome        string                  `json:"outcome"`
	SeatsAvailable int                     `json:"seats_available"`
	Wings          []allocation.WingReport `json:"wings"`
	Changes        []PlannedChange         `json:"changes"`
	Collisions     []CollisionView         `json:"collisions,omitempty"`
	Persist        *allocation.Outcome     `json:"persist,omitempty"`
}

func collisionViews(cs []allocation.Collision) []CollisionView {
	out := make([]CollisionView, 0, len(cs))
	for _, c := range cs {
		out = append(out, CollisionView{Label: c.Label, KeptID: c.Kept.ID, DroppedID: c.Dropped.ID})
	}
	return out
}

// AutoAssign runs hall seat auto-assignment for a course.  With dryRun the
// plan is returned without writing.  A configuration that generates no
// seats and a run with nothing to change are reported through the
// outcome, not as errors.
func (s *AllocationService) AutoAssign(ctx context.Context, courseID, actorID uint64, dryRun bool) (*AssignReport, error) {
	c, _, err := s.course(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if err := checkWingsDisjoint("auto-assign", c.Seating); err != nil {
		return nil, err
	}
	ps, err := s.snapshot(ctx, courseID)
	if err != nil {
		return nil, err
	}

	plan := allocation.PlanHallSeating(ps, c.Seating)
	rep := &AssignReport{
		CourseID:       courseID,
		SeatsAvailable: plan.SeatsAvailable(),
		Wings:          plan.Wings,
		Changes:        make([]PlannedChange, 0, len(plan.Changes)),
		Collisions:     collisionViews(plan.Collisions),
	}
	for _, ch := range plan.Changes {
		rep.Changes = append(rep.Changes, PlannedChange{
			ParticipantID: ch.Participant.ID,
			ConfNo:        ch.Participant.ConfNo,
			FullName:      ch.Participant.FullName,
			Gender:        ch.Participant.Gender,
			From:          ch.From,
			To:            ch.To,
		})
	}
	for _, col := range rep.Collisions {
		s.log.Warn("hall seat held twice", zap.Uint64("course_id", courseID), zap.String("label", col.Label),
			zap.Uint64("kept_id", col.KeptID), zap.Uint64("dropped_id", col.DroppedID))
	}

	switch {
	case plan.NoSeats():
		rep.Outcome = OutcomeNoSeats
	case len(plan.Changes) == 0:
		rep.Outcome = OutcomeNoChange
	case dryRun:
		rep.Outcome = OutcomeDryRun
	}
	if rep.Outcome != "" {
		s.metrics.RecordAssignmentRun(rep.Outcome)
		s.log.Info("auto-assignment finished", zap.Uint64("course_id", courseID), zap.String("outcome", rep.Outcome),
			zap.Int("planned", len(plan.Changes)))
		return rep, nil
	}

	wctx, cancel := s.writeContext(ctx)
	defer cancel()
	start := s.now()
	out := allocation.PersistAssignments(wctx, s.participants, plan.Changes, s.cfg.BatchSize)
	s.metrics.ObservePersistDuration(s.now().Sub(start).Seconds())
	s.metrics.RecordAssignmentWrites(out.Succeeded, out.Failed)
	s.metrics.RecordAssignmentRun(OutcomeApplied)

	rep.Outcome = OutcomeApplied
	rep.Persist = &out
	for _, f := range out.Failures {
		s.log.Warn("hall seat write failed", zap.Uint64("course_id", courseID), zap.Uint64("participant_id", f.ParticipantID),
			zap.String("label", f.Label), zap.Error(f.Err))
	}
	s.log.Info("auto-assignment finished", zap.Uint64("course_id", courseID), zap.String("outcome", rep.Outcome),
		zap.Int("planned", out.Planned), zap.Int("succeeded", out.Succeeded), zap.Int("failed", out.Failed))

	if out.Succeeded > 0 {
		ev := queue.AllocationChangedEvent{
			Kind:      queue.KindAutoAssign,
			CourseID:  courseID,
			Pool:      string(model.PoolHallSeat),
			ActorID:   actorID,
			Succeeded: out.Succeeded,
			Failed:    out.Failed,
		}
		for _, w := range out.Written {
			ev.Changes = append(ev.Changes, queue.LabelChange{
				ParticipantID: w.Participant.ID, ConfNo: w.Participant.ConfNo, From: w.From, To: w.To,
			})
		}
		s.publish(ctx, ev)
	}
	return rep, nil
}
