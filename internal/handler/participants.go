package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/retreat-allocation/internal/i18n"
	"github.com/iliyamo/retreat-allocation/internal/model"
	"github.com/iliyamo/retreat-allocation/internal/service"
)

// ListParticipants handles GET /v1/courses/:id/participants and returns the
// snapshot of the course in store order.
func (h *AdminHandler) ListParticipants(c echo.Context) error {
	id, err := courseID(c)
	if err != nil {
		return h.fail(c, err)
	}
	ps, err := h.Svc.Snapshot(c.Request().Context(), id)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"course_id": id, "participants": ps})
}

type importRequest struct {
	Candidates []model.ImportCandidate `json:"candidates" validate:"required,max=5000"`
}

// ImportParticipants handles POST /v1/courses/:id/participants/import.
// Candidates are validated one by one; rejected rows are listed in the
// report and do not fail the request.
func (h *AdminHandler) ImportParticipants(c echo.Context) error {
	id, err := courseID(c)
	if err != nil {
		return h.fail(c, err)
	}
	var body importRequest
	if err := h.bind(c, &body); err != nil {
		return h.fail(c, err)
	}
	rep, err := h.Svc.Import(c.Request().Context(), id, actor(c), body.Candidates)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, rep)
}

type statusRequest struct {
	Status  string  `json:"status" validate:"required"`
	Version *uint32 `json:"version"`
}

// ChangeStatus handles PATCH /v1/courses/:id/participants/:pid/status.
func (h *AdminHandler) ChangeStatus(c echo.Context) error {
	id, err := courseID(c)
	if err != nil {
		return h.fail(c, err)
	}
	pid, err := idParam(c, "pid", "participant id")
	if err != nil {
		return h.fail(c, err)
	}
	var body statusRequest
	if err := h.bind(c, &body); err != nil {
		return h.fail(c, err)
	}
	status, ok := model.ParseStatus(body.Status)
	if !ok {
		return h.fail(c, badRequest(i18n.MsgInvalidStatus, map[string]any{"Status": body.Status}))
	}
	p, err := h.Svc.ChangeStatus(c.Request().Context(), id, pid, actor(c), service.StatusChange{Status: status, Version: body.Version})
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, p)
}
