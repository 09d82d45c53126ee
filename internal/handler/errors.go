package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/retreat-allocation/internal/allocation"
	"github.com/iliyamo/retreat-allocation/internal/i18n"
)

// requestError is a malformed request detected by the handler itself.
type requestError struct {
	status int
	id     string
	data   map[string]any
}

func (e *requestError) Error() string { return e.id }

func badRequest(id string, data map[string]any) error {
	return &requestError{status: http.StatusBadRequest, id: id, data: data}
}

func validationDetail(err error) string {
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) {
		return err.Error()
	}
	parts := make([]string, 0, len(ves))
	for _, fe := range ves {
		parts = append(parts, strings.ToLower(fe.Field())+" failed "+fe.Tag())
	}
	return strings.Join(parts, "; ")
}

// fail writes the localized error response for err.
func (h *AdminHandler) fail(c echo.Context, err error) error {
	return h.failWith(c, err, nil)
}

// failWith is fail with additional response fields, e.g. the operation id
// a client needs to resume a swap.
func (h *AdminHandler) failWith(c echo.Context, err error, extra echo.Map) error {
	lang := c.Request().Header.Get("Accept-Language")
	var re *requestError
	if errors.As(err, &re) {
		return c.JSON(re.status, echo.Map{"error": h.Tr.T(lang, re.id, re.data)})
	}

	body := echo.Map{}
	for k, v := range extra {
		body[k] = v
	}
	status, id, kind := http.StatusInternalServerError, i18n.MsgInternal, "internal"
	data := map[string]any{"Detail": err.Error()}
	switch allocation.KindOf(err) {
	case allocation.ErrValidation:
		status, id, kind = http.StatusUnprocessableEntity, i18n.MsgValidationFailed, "validation"
	case allocation.ErrNotFound:
		status, id, kind = http.StatusNotFound, i18n.MsgNotFound, "not_found"
	case allocation.ErrConflict:
		status, id, kind = http.StatusConflict, i18n.MsgConflict, "conflict"
	case allocation.ErrCommunication:
		status, id, kind = http.StatusServiceUnavailable, i18n.MsgUnavailable, "communication"
	}
	if step := allocation.FailedStep(err); step != allocation.StepNone {
		body["step"] = step.String()
		body["side"] = step.Side()
		if kind == "communication" {
			id = i18n.MsgSwapStepFailed
			data = map[string]any{"Step": step.String(), "Side": step.Side()}
		}
	}
	body["error"] = h.Tr.T(lang, id, data)
	body["kind"] = kind

	if status >= http.StatusInternalServerError {
		h.Log.Error("request failed", zap.String("method", c.Request().Method), zap.String("path", c.Path()), zap.Error(err))
	} else {
		h.Log.Debug("request rejected", zap.String("path", c.Path()), zap.Int("status", status), zap.Error(err))
	}
	return c.JSON(status, body)
}
