package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/retreat-allocation/internal/i18n"
	"github.com/iliyamo/retreat-allocation/internal/middleware"
	"github.com/iliyamo/retreat-allocation/internal/model"
	"github.com/iliyamo/retreat-allocation/internal/service"
)

// GetSeating handles GET /v1/courses/:id/seating.
func (h *AdminHandler) GetSeating(c echo.Context) error {
	id, err := courseID(c)
	if err != nil {
		return h.fail(c, err)
	}
	view, err := h.Svc.Seating(c.Request().Context(), id)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, view)
}

type wingRequest struct {
	Columns       int    `json:"columns" validate:"gte=0,lte=52"`
	ChowkyColumns int    `json:"chowky_columns" validate:"gte=0,lte=52"`
	Rows          int    `json:"rows" validate:"gte=0,lte=500"`
	Prefix        string `json:"prefix" validate:"max=8"`
}

type seatingRequest struct {
	Male   wingRequest `json:"male"`
	Female wingRequest `json:"female"`
}

func (w wingRequest) model() model.WingSeating {
	return model.WingSeating{Columns: w.Columns, ChowkyColumns: w.ChowkyColumns, Rows: w.Rows, Prefix: w.Prefix}
}

// PutSeating handles PUT /v1/courses/:id/seating.  Cached layouts of the
// course are purged after a successful update.
func (h *AdminHandler) PutSeating(c echo.Context) error {
	id, err := courseID(c)
	if err != nil {
		return h.fail(c, err)
	}
	var body seatingRequest
	if err := h.bind(c, &body); err != nil {
		return h.fail(c, err)
	}
	ctx := c.Request().Context()
	view, err := h.Svc.UpdateSeating(ctx, id, model.SeatingConfig{Male: body.Male.model(), Female: body.Female.model()})
	if err != nil {
		return h.fail(c, err)
	}
	if err := middleware.PurgeCourse(ctx, h.CacheCfg, h.Redis, id); err != nil {
		h.Log.Warn("layout cache not purged", zap.Uint64("course_id", id), zap.Error(err))
	}
	return c.JSON(http.StatusOK, view)
}

// Layout handles GET /v1/courses/:id/seating/layout.
func (h *AdminHandler) Layout(c echo.Context) error {
	id, err := courseID(c)
	if err != nil {
		return h.fail(c, err)
	}
	view, err := h.Svc.Layout(c.Request().Context(), id)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, view)
}

// AutoAssign handles POST /v1/courses/:id/seating/auto-assign.  With
// ?dry_run=true the plan is returned without writing.
func (h *AdminHandler) AutoAssign(c echo.Context) error {
	id, err := courseID(c)
	if err != nil {
		return h.fail(c, err)
	}
	dryRun := false
	if v := c.QueryParam("dry_run"); v != "" {
		if dryRun, err = strconv.ParseBool(v); err != nil {
			return h.fail(c, badRequest(i18n.MsgInvalidID, map[string]any{"Field": "dry_run"}))
		}
	}
	rep, err := h.Svc.AutoAssign(c.Request().Context(), id, actor(c), dryRun)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, assignResponse{AssignReport: rep, Message: h.assignMessage(c, rep)})
}

type assignResponse struct {
	*service.AssignReport
	Message string `json:"message"`
}

func (h *AdminHandler) assignMessage(c echo.Context, rep *service.AssignReport) string {
	lang := c.Request().Header.Get("Accept-Language")
	switch rep.Outcome {
	case service.OutcomeNoSeats:
		return h.Tr.T(lang, i18n.MsgNoSeatsAvailable, nil)
	case service.OutcomeNoChange:
		return h.Tr.T(lang, i18n.MsgNoAssignmentNeeded, nil)
	case service.OutcomeApplied:
		return h.Tr.T(lang, i18n.MsgAssignmentCompleted, map[string]any{"Succeeded": rep.Persist.Succeeded, "Planned": rep.Persist.Planned})
	}
	return ""
}
