// Package service wires the allocation engine to its collaborators: it reads
// a fresh snapshot before every mutation, runs the engine, writes the result
// back and announces what changed.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/iliyamo/retreat-allocation/internal/allocation"
	"github.com/iliyamo/retreat-allocation/internal/config"
	"github.com/iliyamo/retreat-allocation/internal/metrics"
	"github.com/iliyamo/retreat-allocation/internal/model"
	"github.com/iliyamo/retreat-allocation/internal/queue"
	"github.com/iliyamo/retreat-allocation/internal/repository"
)

// ParticipantStore is the participant collaborator.  The MySQL repository
// also implements allocation.AtomicSwapper, which the executor picks up.
type ParticipantStore interface {
	allocation.Store
	ListByCourse(ctx context.Context, courseID uint64) ([]model.Participant, error)
	GetByID(ctx context.Context, id uint64) (*model.Participant, error)
	UpsertCandidates(ctx context.Context, courseID uint64, ps []model.Participant) (repository.UpsertResult, error)
}

// CourseStore reads courses and stores their seating configuration.
type CourseStore interface {
	Get(ctx context.Context, id uint64) (*model.Course, bool, error)
	UpdateSeating(ctx context.Context, id uint64, cfg model.SeatingConfig) error
}

// ResourceStore reads the room / dining / pagoda catalog.
type ResourceStore interface {
	ListByPool(ctx context.Context, pool model.PoolType) ([]model.Resource, error)
	CreateBulk(ctx context.Context, resources []model.Resource) error
}

// SelectionStore keeps the interactive selector state per administrator,
// course and pool.
type SelectionStore interface {
	Get(ctx context.Context, k repository.SelectionKey) (allocation.Selection, error)
	Save(ctx context.Context, k repository.SelectionKey, sel allocation.Selection) error
	Clear(ctx context.Context, k repository.SelectionKey) error
}

// EventPublisher announces allocation changes.
type EventPublisher interface {
	PublishAllocationChanged(ctx context.Context, ev queue.AllocationChangedEvent) error
}

// Deps groups the collaborators of AllocationService.  Journal, Events and
// Metrics are optional.
type Deps struct {
	Participants ParticipantStore
	Courses      CourseStore
	Resources    ResourceStore
	Selections   SelectionStore
	Journal      allocation.Journal
	Events       EventPublisher
	Metrics      metrics.Collector
	Log          *zap.Logger
	Config       config.AllocationConfig
	Defaults     model.SeatingConfig
}

// AllocationService is the application service behind the admin API.
type AllocationService struct {
	participants ParticipantStore
	courses      CourseStore
	resources    ResourceStore
	selections   SelectionStore
	journal      allocation.Journal
	events       EventPublisher
	metrics      metrics.Collector
	log          *zap.Logger
	cfg          config.AllocationConfig
	defaults     model.SeatingConfig
	validate     *validator.Validate
	now          func() time.Time
}

// New builds the service.  Missing optional collaborators are replaced by
// in-process or no-op implementations.
func New(d Deps) *AllocationService {
	s := &AllocationService{
		participants: d.Participants,
		courses:      d.Courses,
		resources:    d.Resources,
		selections:   d.Selections,
		journal:      d.Journal,
		events:       d.Events,
		metrics:      d.Metrics,
		log:          d.Log,
		cfg:          d.Config,
		defaults:     d.Defaults,
		validate:     validator.New(),
		now:          time.Now,
	}
	if s.selections == nil {
		s.selections = repository.NewMemorySelectionStore()
	}
	if s.journal == nil {
		s.journal = allocation.NewMemoryJournal()
	}
	if s.metrics == nil {
		s.metrics = metrics.NewNop()
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	if s.cfg.BatchSize < 1 {
		s.cfg.BatchSize = allocation.DefaultBatchSize
	}
	if s.cfg.WriteTimeout <= 0 {
		s.cfg.WriteTimeout = 30 * time.Second
	}
	return s
}

// classify tags a collaborator error with an engine error kind.  Errors
// that already carry a kind keep it; anything else means the store could
// not be reached.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if allocation.KindOf(err) != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return &allocation.Error{Kind: allocation.ErrCommunication, Op: op, Err: err}
}

func invalid(op, format string, args ...any) error {
	return &allocation.Error{Kind: allocation.ErrValidation, Op: op, Msg: fmt.Sprintf(format, args...)}
}

func notFound(op, format string, args ...any) error {
	return &allocation.Error{Kind: allocation.ErrNotFound, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// writeContext detaches the write phase from the request so a client
// disconnect cannot stop a run halfway.
func (s *AllocationService) writeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), s.cfg.WriteTimeout)
}

// course loads the course and its effective seating configuration.
func (s *AllocationService) course(ctx context.Context, courseID uint64) (*model.Course, bool, error) {
	c, own, err := s.courses.Get(ctx, courseID)
	if err != nil {
		return nil, false, classify("load course", err)
	}
	if !own {
		c.Seating = s.defaults
	}
	return c, own, nil
}

// Snapshot returns every participant of the course in store order.
func (s *AllocationService) Snapshot(ctx context.Context, courseID uint64) ([]model.Participant, error) {
	if _, _, err := s.course(ctx, courseID); err != nil {
		return nil, err
	}
	return s.snapshot(ctx, courseID)
}

func (s *AllocationService) snapshot(ctx context.Context, courseID uint64) ([]model.Participant, error) {
	ps, err := s.participants.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, classify("read participants", err)
	}
	return ps, nil
}

func (s *AllocationService) publish(ctx context.Context, ev queue.AllocationChangedEvent) {
	if s.events == nil {
		return
	}
	ev.OccurredAt = s.now().UTC().Format(time.RFC3339)
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.events.PublishAllocationChanged(pctx, ev); err != nil {
		s.metrics.RecordEvent("failure")
		s.log.Warn("allocation event not published", zap.String("kind", ev.Kind), zap.Uint64("course_id", ev.CourseID), zap.Error(err))
		return
	}
	s.metrics.RecordEvent("success")
}
