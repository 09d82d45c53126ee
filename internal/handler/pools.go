package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/retreat-allocation/internal/i18n"
	"github.com/iliyamo/retreat-allocation/internal/model"
	"github.com/iliyamo/retreat-allocation/internal/service"
)

// Occupancy handles GET /v1/courses/:id/pools/:pool/occupancy.
func (h *AdminHandler) Occupancy(c echo.Context) error {
	id, err := courseID(c)
	if err != nil {
		return h.fail(c, err)
	}
	pool, err := poolParam(c)
	if err != nil {
		return h.fail(c, err)
	}
	view, err := h.Svc.Occupancy(c.Request().Context(), id, pool)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, view)
}

// Available handles GET /v1/courses/:id/pools/:pool/available[?wing=M|F].
func (h *AdminHandler) Available(c echo.Context) error {
	id, err := courseID(c)
	if err != nil {
		return h.fail(c, err)
	}
	pool, err := poolParam(c)
	if err != nil {
		return h.fail(c, err)
	}
	var wing model.Gender
	if v := c.QueryParam("wing"); v != "" {
		g, ok := model.ParseGender(v)
		if !ok {
			return h.fail(c, badRequest(i18n.MsgInvalidID, map[string]any{"Field": "wing"}))
		}
		wing = g
	}
	view, err := h.Svc.Available(c.Request().Context(), id, pool, wing)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, view)
}

type selectRequest struct {
	Label string `json:"label" validate:"required,max=64"`
}

// Select handles POST /v1/courses/:id/pools/:pool/select.  The first label
// picks the source; a second, different label runs the move.
func (h *AdminHandler) Select(c echo.Context) error {
	id, err := courseID(c)
	if err != nil {
		return h.fail(c, err)
	}
	pool, err := poolParam(c)
	if err != nil {
		return h.fail(c, err)
	}
	var body selectRequest
	if err := h.bind(c, &body); err != nil {
		return h.fail(c, err)
	}
	res, err := h.Svc.Select(c.Request().Context(), id, actor(c), pool, body.Label)
	if err != nil {
		if res != nil && res.Move != nil {
			return h.failWith(c, err, echo.Map{"op_id": res.Move.OpID})
		}
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

type moveRequest struct {
	Source           string  `json:"source" validate:"required,max=64"`
	Target           string  `json:"target" validate:"required,max=64"`
	OpID             string  `json:"op_id" validate:"max=64"`
	ExpectedSourceID uint64  `json:"expected_source_id"`
	ExpectedTargetID *uint64 `json:"expected_target_id"`
}

// Move handles POST /v1/courses/:id/pools/:pool/moves.  A failed swap
// reports its op_id; repeating the request with it resumes the swap.
func (h *AdminHandler) Move(c echo.Context) error {
	id, err := courseID(c)
	if err != nil {
		return h.fail(c, err)
	}
	pool, err := poolParam(c)
	if err != nil {
		return h.fail(c, err)
	}
	var body moveRequest
	if err := h.bind(c, &body); err != nil {
		return h.fail(c, err)
	}
	res, err := h.Svc.Move(c.Request().Context(), id, actor(c), service.MoveInput{
		Pool:             pool,
		Source:           body.Source,
		Target:           body.Target,
		OpID:             body.OpID,
		ExpectedSourceID: body.ExpectedSourceID,
		ExpectedTargetID: body.ExpectedTargetID,
	})
	if err != nil {
		if res != nil && res.OpID != "" {
			return h.failWith(c, err, echo.Map{"op_id": res.OpID})
		}
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

type resourceRequest struct {
	Label    string `json:"label" validate:"required,max=64"`
	Wing     string `json:"wing"`
	IsActive *bool  `json:"is_active"`
}

type resourcesRequest struct {
	Resources []resourceRequest `json:"resources" validate:"required,max=5000,dive"`
}

// ImportResources handles POST /v1/pools/:pool/resources and upserts the
// room, dining seat or pagoda cell catalog.
func (h *AdminHandler) ImportResources(c echo.Context) error {
	pool, err := poolParam(c)
	if err != nil {
		return h.fail(c, err)
	}
	var body resourcesRequest
	if err := h.bind(c, &body); err != nil {
		return h.fail(c, err)
	}
	rs := make([]model.Resource, 0, len(body.Resources))
	for _, r := range body.Resources {
		res := model.Resource{PoolType: pool, Label: r.Label, IsActive: r.IsActive == nil || *r.IsActive}
		if r.Wing != "" {
			g, ok := model.ParseGender(r.Wing)
			if !ok {
				return h.fail(c, badRequest(i18n.MsgInvalidID, map[string]any{"Field": "wing"}))
			}
			res.Wing = g
		}
		rs = append(rs, res)
	}
	n, err := h.Svc.ImportResources(c.Request().Context(), pool, rs)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"pool": pool, "stored": n})
}
