package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/iliyamo/retreat-allocation/internal/allocation"
	"github.com/iliyamo/retreat-allocation/internal/config"
	"github.com/iliyamo/retreat-allocation/internal/i18n"
	"github.com/iliyamo/retreat-allocation/internal/middleware"
	"github.com/iliyamo/retreat-allocation/internal/model"
	"github.com/iliyamo/retreat-allocation/internal/service"
)

// Allocator is the part of the allocation service the admin API calls.
type Allocator interface {
	Snapshot(ctx context.Context, courseID uint64) ([]model.Participant, error)
	Import(ctx context.Context, courseID, actorID uint64, cands []model.ImportCandidate) (*service.ImportReport, error)
	ChangeStatus(ctx context.Context, courseID, participantID, actorID uint64, req service.StatusChange) (*model.Participant, error)
	Seating(ctx context.Context, courseID uint64) (*service.SeatingView, error)
	UpdateSeating(ctx context.Context, courseID uint64, cfg model.SeatingConfig) (*service.SeatingView, error)
	Layout(ctx context.Context, courseID uint64) (*service.LayoutView, error)
	AutoAssign(ctx context.Context, courseID, actorID uint64, dryRun bool) (*service.AssignReport, error)
	Occupancy(ctx context.Context, courseID uint64, pool model.PoolType) (*service.OccupancyView, error)
	Available(ctx context.Context, courseID uint64, pool model.PoolType, wing model.Gender) (*service.AvailableView, error)
	Select(ctx context.Context, courseID, actorID uint64, pool model.PoolType, label string) (*service.SelectResult, error)
	Move(ctx context.Context, courseID, actorID uint64, in service.MoveInput) (*allocation.SwapResult, error)
	ImportResources(ctx context.Context, pool model.PoolType, rs []model.Resource) (int, error)
}

var _ Allocator = (*service.AllocationService)(nil)

// AdminHandler serves the course administration endpoints.  All methods
// assume JWTAuth and RequireRole have run.
type AdminHandler struct {
	Svc      Allocator
	Tr       *i18n.Translator
	Log      *zap.Logger
	CacheCfg config.CacheConfig
	Redis    *redis.Client // optional; used to purge cached layouts

	validate *validator.Validate
}

// NewAdminHandler constructs an AdminHandler and panics if the service or
// translator is nil.
func NewAdminHandler(svc Allocator, tr *i18n.Translator, log *zap.Logger, cacheCfg config.CacheConfig, rdb *redis.Client) *AdminHandler {
	if svc == nil || tr == nil {
		panic("nil dependency passed to NewAdminHandler")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &AdminHandler{Svc: svc, Tr: tr, Log: log, CacheCfg: cacheCfg, Redis: rdb, validate: validator.New()}
}

// courseID parses the :id path parameter.
func courseID(c echo.Context) (uint64, error) {
	return idParam(c, "id", "course id")
}

func idParam(c echo.Context, name, field string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, badRequest(i18n.MsgInvalidID, map[string]any{"Field": field})
	}
	return id, nil
}

// poolParam parses the :pool path parameter.
func poolParam(c echo.Context) (model.PoolType, error) {
	p, ok := model.ParsePoolType(c.Param("pool"))
	if !ok {
		return "", badRequest(i18n.MsgInvalidPool, map[string]any{"Pool": c.Param("pool")})
	}
	return p, nil
}

// actor returns the authenticated administrator id, 0 when unknown.
func actor(c echo.Context) uint64 {
	id, _ := middleware.AdminID(c)
	return id
}

// bind decodes and validates the request body into v.
func (h *AdminHandler) bind(c echo.Context, v any) error {
	if err := c.Bind(v); err != nil {
		return badRequest(i18n.MsgInvalidBody, nil)
	}
	if err := h.validate.Struct(v); err != nil {
		return &requestError{status: http.StatusUnprocessableEntity, id: i18n.MsgValidationFailed, data: map[string]any{"Detail": validationDetail(err)}}
	}
	return nil
}
