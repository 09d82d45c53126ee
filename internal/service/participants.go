package service

import (
	"context"
	"errors"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/iliyamo/retreat-allocation/internal/allocation"
	"github.com/iliyamo/retreat-allocation/internal/model"
	"github.com/iliyamo/retreat-allocation/internal/queue"
	"github.com/iliyamo/retreat-allocation/internal/repository"
)

// StatusChange asks to move a participant to Status.  Version, when set,
// must equal the stored version.
type StatusChange struct {
	Status  model.Status
	Version *uint32
}

// ChangeStatus updates the attendance status of a participant.  Moving a
// participant to Cancelled releases all four resources and the lock unless
// the service is configured otherwise.  Bringing a cancelled participant
// back drops the labels a live participant took in the meantime.
func (s *AllocationService) ChangeStatus(ctx context.Context, courseID, participantID, actorID uint64, req StatusChange) (*model.Participant, error) {
	const op = "change status"
	if !req.Status.Valid() {
		return nil, invalid(op, "unknown status %q", req.Status)
	}
	p, err := s.participants.GetByID(ctx, participantID)
	if err != nil {
		return nil, classify(op, err)
	}
	if p.CourseID != courseID {
		return nil, notFound(op, "participant %d is not registered for course %d", participantID, courseID)
	}
	if req.Version != nil && *req.Version != p.Version {
		return nil, &allocation.Error{Kind: allocation.ErrConflict, Op: op, ParticipantID: p.ID, Msg: "participant was changed by someone else"}
	}
	var live []model.Participant
	if reviving(p.Status, req.Status) {
		if live, err = s.snapshot(ctx, courseID); err != nil {
			return nil, err
		}
	}

	released := s.applyStatus(p, req.Status, live)

	wctx, cancel := s.writeContext(ctx)
	defer cancel()
	if err := s.participants.UpdateParticipant(wctx, p); err != nil {
		return nil, classify(op, err)
	}
	s.log.Info("participant status changed", zap.Uint64("course_id", courseID), zap.Uint64("participant_id", p.ID),
		zap.String("status", string(p.Status)), zap.Int("released", len(released)))
	s.publishReleases(ctx, courseID, actorID, p, released)
	return p, nil
}

func reviving(from, to model.Status) bool {
	return from == model.StatusCancelled && to != model.StatusCancelled
}

// applyStatus sets p's status to st and clears the labels the change gives
// up: every label on a cancel when ReleaseOnCancel is set, and on a revival
// the labels another participant in live holds.  It returns the cleared
// labels by pool.
func (s *AllocationService) applyStatus(p *model.Participant, st model.Status, live []model.Participant) map[model.PoolType]string {
	released := map[model.PoolType]string{}
	switch {
	case st == model.StatusCancelled && s.cfg.ReleaseOnCancel:
		for _, pool := range model.Pools {
			if l := p.Label(pool); l != "" {
				released[pool] = l
			}
		}
		p.ReleaseResources()
	case reviving(p.Status, st):
		for _, pool := range model.Pools {
			l := p.Label(pool)
			if l == "" {
				continue
			}
			if other, ok := allocation.BuildIndex(live, pool).Occupant(l); ok && other.ID != p.ID {
				released[pool] = l
				p.SetLabel(pool, "")
			}
		}
		if _, ok := released[model.PoolHallSeat]; ok {
			p.IsSeatLocked = false
		}
	}
	p.Status = st
	return released
}

func (s *AllocationService) publishReleases(ctx context.Context, courseID, actorID uint64, p *model.Participant, released map[model.PoolType]string) {
	for _, pool := range model.Pools {
		l, ok := released[pool]
		if !ok {
			continue
		}
		s.publish(ctx, queue.AllocationChangedEvent{
			Kind:      queue.KindRelease,
			CourseID:  courseID,
			Pool:      string(pool),
			ActorID:   actorID,
			Succeeded: 1,
			Changes:   []queue.LabelChange{{ParticipantID: p.ID, ConfNo: p.ConfNo, From: l}},
		})
	}
}

// Rejection is an import candidate that was not stored.
type Rejection struct {
	ID     string `json:"id,omitempty"`
	ConfNo string `json:"conf_no"`
	Reason string `json:"reason"`
}

// ImportReport summarizes an import.  Unsettled lists stored rows whose
// status change could not release or drop their labels; they need the
// status endpoint.
type ImportReport struct {
	Inserted  int         `json:"inserted"`
	Updated   int         `json:"updated"`
	Released  int         `json:"released"`
	Rejected  []Rejection `json:"rejected"`
	Unsettled []Rejection `json:"unsettled,omitempty"`
}

// Import stores candidates produced by the CSV import collaborator.  Rows
// are matched by confirmation code; existing participants keep their
// resource labels, lock and special seating request, except that a status
// change goes through the same release rules as ChangeStatus.  Invalid rows
// and repeated confirmation codes are rejected individually.
func (s *AllocationService) Import(ctx context.Context, courseID, actorID uint64, cands []model.ImportCandidate) (*ImportReport, error) {
	const op = "import participants"
	if _, _, err := s.course(ctx, courseID); err != nil {
		return nil, err
	}
	rep := &ImportReport{Rejected: []Rejection{}}
	seen := map[string]bool{}
	ps := make([]model.Participant, 0, len(cands))
	for _, c := range cands {
		c.ConfNo = strings.TrimSpace(c.ConfNo)
		c.FullName = strings.TrimSpace(c.FullName)
		reject := func(reason string) {
			rep.Rejected = append(rep.Rejected, Rejection{ID: c.ID, ConfNo: c.ConfNo, Reason: reason})
		}
		if err := s.validate.Struct(c); err != nil {
			reject(validationReason(err))
			continue
		}
		g, ok := model.ParseGender(c.Gender)
		if !ok {
			reject("unknown gender " + c.Gender)
			continue
		}
		status := model.StatusNoResponse
		if c.Status != "" {
			if status, ok = model.ParseStatus(c.Status); !ok {
				reject("unknown status " + c.Status)
				continue
			}
		}
		if seen[c.ConfNo] {
			reject("duplicate confirmation code in import")
			continue
		}
		seen[c.ConfNo] = true
		ps = append(ps, model.Participant{
			CourseID:        courseID,
			FullName:        c.FullName,
			Gender:          g,
			ConfNo:          c.ConfNo,
			CoursesInfoText: c.CoursesInfoText,
			Age:             c.Age,
			Status:          status,
			SpecialSeating:  model.SeatingNone,
		})
	}

	live, err := s.snapshot(ctx, courseID)
	if err != nil {
		return nil, err
	}
	byConf := make(map[string]model.Participant, len(live))
	for _, p := range live {
		byConf[p.ConfNo] = p
	}
	var settle []uint64
	for _, p := range ps {
		cur, ok := byConf[p.ConfNo]
		if ok && cur.Status != p.Status && (p.Status == model.StatusCancelled || cur.Status == model.StatusCancelled) {
			settle = append(settle, cur.ID)
		}
	}

	wctx, cancel := s.writeContext(ctx)
	defer cancel()
	res, err := s.participants.UpsertCandidates(wctx, courseID, ps)
	if err != nil {
		return nil, classify(op, err)
	}
	rep.Inserted, rep.Updated = res.Inserted, res.Updated
	for _, id := range settle {
		s.settleImported(ctx, wctx, courseID, actorID, id, live, rep)
	}
	s.log.Info("participants imported", zap.Uint64("course_id", courseID), zap.Int("inserted", rep.Inserted),
		zap.Int("updated", rep.Updated), zap.Int("released", rep.Released), zap.Int("rejected", len(rep.Rejected)))
	return rep, nil
}

// settleImported applies the release rules to participant id, whose status
// the import has just changed from or to Cancelled.  before is the course
// as it was ahead of the import; it is updated in place so that two revived
// participants cannot keep the same label.
func (s *AllocationService) settleImported(ctx, wctx context.Context, courseID, actorID, id uint64, before []model.Participant, rep *ImportReport) {
	i := slices.IndexFunc(before, func(p model.Participant) bool { return p.ID == id })
	prev := before[i]
	p, err := s.participants.GetByID(wctx, id)
	if err == nil {
		// Replay the change on the stored row so the rules see where it came from.
		st := p.Status
		p.Status = prev.Status
		released := s.applyStatus(p, st, before)
		if len(released) == 0 {
			before[i] = *p
			return
		}
		if err = s.participants.UpdateParticipant(wctx, p); err == nil {
			before[i] = *p
			rep.Released += len(released)
			s.publishReleases(ctx, courseID, actorID, p, released)
			return
		}
	}
	s.log.Warn("imported status change left labels in place", zap.Uint64("course_id", courseID),
		zap.Uint64("participant_id", id), zap.Error(err))
	rep.Unsettled = append(rep.Unsettled, Rejection{ConfNo: prev.ConfNo, Reason: classify("import participants", err).Error()})
}

func validationReason(err error) string {
	var ves validator.ValidationErrors
	if errors.As(err, &ves) {
		parts := make([]string, 0, len(ves))
		for _, fe := range ves {
			parts = append(parts, strings.ToLower(fe.Field())+" failed "+fe.Tag())
		}
		return strings.Join(parts, "; ")
	}
	return err.Error()
}

// Occupant is one row of an occupancy view.
type Occupant struct {
	Label         string       `json:"label"`
	ParticipantID uint64       `json:"participant_id"`
	ConfNo        string       `json:"conf_no"`
	FullName      string       `json:"full_name"`
	Gender        model.Gender `json:"gender"`
	Locked        bool         `json:"locked"`
}

// OccupancyView is the occupancy index of one pool.
type OccupancyView struct {
	CourseID   uint64          `json:"course_id"`
	Pool       model.PoolType  `json:"pool"`
	Occupants  []Occupant      `json:"occupants"`
	Collisions []CollisionView `json:"collisions,omitempty"`
}

// Occupancy builds the occupancy index of pool from a fresh snapshot.
func (s *AllocationService) Occupancy(ctx context.Context, courseID uint64, pool model.PoolType) (*OccupancyView, error) {
	ps, err := s.Snapshot(ctx, courseID)
	if err != nil {
		return nil, err
	}
	ix := allocation.BuildIndex(ps, pool)
	view := &OccupancyView{
		CourseID:   courseID,
		Pool:       pool,
		Occupants:  make([]Occupant, 0, ix.Len()),
		Collisions: collisionViews(ix.Collisions()),
	}
	for _, l := range ix.Labels() {
		p, _ := ix.Occupant(l)
		view.Occupants = append(view.Occupants, Occupant{
			Label:         p.Label(pool),
			ParticipantID: p.ID,
			ConfNo:        p.ConfNo,
			FullName:      p.FullName,
			Gender:        p.Gender,
			Locked:        p.IsSeatLocked,
		})
	}
	return view, nil
}

// AvailableView lists free labels of a pool.
type AvailableView struct {
	CourseID uint64         `json:"course_id"`
	Pool     model.PoolType `json:"pool"`
	Wing     model.Gender   `json:"wing,omitempty"`
	Labels   []string       `json:"labels"`
}

// Available returns the catalog labels of pool no live participant holds,
// in catalog order.  A wing restricts the result to that wing and shared
// labels.
func (s *AllocationService) Available(ctx context.Context, courseID uint64, pool model.PoolType, wing model.Gender) (*AvailableView, error) {
	c, _, err := s.course(ctx, courseID)
	if err != nil {
		return nil, err
	}
	cat, err := s.catalog(ctx, c, pool)
	if err != nil {
		return nil, err
	}
	view := &AvailableView{CourseID: courseID, Pool: pool, Wing: wing, Labels: []string{}}
	if cat == nil {
		return view, nil
	}
	ps, err := s.snapshot(ctx, courseID)
	if err != nil {
		return nil, err
	}
	view.Labels = allocation.Available(cat.Labels(wing), allocation.BuildIndex(ps, pool))
	return view, nil
}

var _ ParticipantStore = (*repository.ParticipantRepo)(nil)
