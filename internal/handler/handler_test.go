package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/retreat-allocation/internal/allocation"
	"github.com/iliyamo/retreat-allocation/internal/config"
	"github.com/iliyamo/retreat-allocation/internal/i18n"
	"github.com/iliyamo/retreat-allocation/internal/middleware"
	"github.com/iliyamo/retreat-allocation/internal/model"
	"github.com/iliyamo/retreat-allocation/internal/service"
	"github.com/iliyamo/retreat-allocation/internal/utils"
)

const secret = "handler-secret"

// stubAllocator answers the calls a test configures; any other call panics
// through the nil embedded interface.
type stubAllocator struct {
	Allocator

	status     service.StatusChange
	statusArgs [3]uint64
	dryRun     bool
	report     *service.AssignReport
	move       service.MoveInput
	moveRes    *allocation.SwapResult
	seating    model.SeatingConfig
	resources  []model.Resource
	err        error
}

func (s *stubAllocator) ChangeStatus(_ context.Context, courseID, pid, actorID uint64, req service.StatusChange) (*model.Participant, error) {
	s.status, s.statusArgs = req, [3]uint64{courseID, pid, actorID}
	if s.err != nil {
		return nil, s.err
	}
	return &model.Participant{ID: pid, CourseID: courseID, Status: req.Status}, nil
}

func (s *stubAllocator) AutoAssign(_ context.Context, courseID, _ uint64, dryRun bool) (*service.AssignReport, error) {
	s.dryRun = dryRun
	if s.err != nil {
		return nil, s.err
	}
	rep := *s.report
	rep.CourseID = courseID
	return &rep, nil
}

func (s *stubAllocator) Move(_ context.Context, _, _ uint64, in service.MoveInput) (*allocation.SwapResult, error) {
	s.move = in
	return s.moveRes, s.err
}

func (s *stubAllocator) UpdateSeating(_ context.Context, courseID uint64, cfg model.SeatingConfig) (*service.SeatingView, error) {
	s.seating = cfg
	if s.err != nil {
		return nil, s.err
	}
	return &service.SeatingView{CourseID: courseID, Source: "course", Seating: cfg}, nil
}

func (s *stubAllocator) ImportResources(_ context.Context, _ model.PoolType, rs []model.Resource) (int, error) {
	s.resources = rs
	return len(rs), s.err
}

func newServer(t *testing.T, stub *stubAllocator, rdb *redis.Client) *echo.Echo {
	t.Helper()
	cacheCfg := config.CacheConfig{Enabled: true, Prefix: "layout"}
	h := NewAdminHandler(stub, i18n.NewTranslator("en", nil), nil, cacheCfg, rdb)
	e := echo.New()
	g := e.Group("/v1", middleware.JWTAuth(secret), middleware.RequireRole(middleware.RoleAdmin))
	g.PATCH("/courses/:id/participants/:pid/status", h.ChangeStatus)
	g.PUT("/courses/:id/seating", h.PutSeating)
	g.POST("/courses/:id/seating/auto-assign", h.AutoAssign)
	g.POST("/courses/:id/pools/:pool/moves", h.Move)
	g.POST("/pools/:pool/resources", h.ImportResources)
	return e
}

func call(t *testing.T, e *echo.Echo, method, path, body string, hdr ...string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	tok, err := utils.NewAccessToken(secret, 9, middleware.RoleAdmin, 5)
	require.NoError(t, err)
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+tok.Token)
	for i := 0; i+1 < len(hdr); i += 2 {
		req.Header.Set(hdr[i], hdr[i+1])
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	out := map[string]any{}
	if strings.HasPrefix(rec.Header().Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec, out
}

func TestChangeStatus(t *testing.T) {
	stub := &stubAllocator{}
	e := newServer(t, stub, nil)

	rec, body := call(t, e, http.MethodPatch, "/v1/courses/7/participants/3/status", `{"status":"no-show","version":2}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "NO_SHOW", body["status"])
	require.Equal(t, model.StatusNoShow, stub.status.Status)
	require.Equal(t, uint32(2), *stub.status.Version)
	require.Equal(t, [3]uint64{7, 3, 9}, stub.statusArgs)

	rec, _ = call(t, e, http.MethodPatch, "/v1/courses/7/participants/3/status", `{"status":"GateCheckIn"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, model.StatusGateCheckIn, stub.status.Status)

	rec, body = call(t, e, http.MethodPatch, "/v1/courses/7/participants/3/status", `{"status":"on holiday"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, `Unknown participant status "on holiday".`, body["error"])

	rec, body = call(t, e, http.MethodPatch, "/v1/courses/x/participants/3/status", `{"status":"ATTENDING"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "Invalid course id.", body["error"])

	rec, _ = call(t, e, http.MethodPatch, "/v1/courses/7/participants/3/status", `{}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec, _ = call(t, e, http.MethodPatch, "/v1/courses/7/participants/3/status", `{"status":`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestErrorKindsMapToStatus(t *testing.T) {
	cases := []struct {
		kind   error
		status int
		name   string
	}{
		{allocation.ErrValidation, http.StatusUnprocessableEntity, "validation"},
		{allocation.ErrNotFound, http.StatusNotFound, "not_found"},
		{allocation.ErrConflict, http.StatusConflict, "conflict"},
		{allocation.ErrCommunication, http.StatusServiceUnavailable, "communication"},
		{errors.New("boom"), http.StatusInternalServerError, "internal"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			stub := &stubAllocator{err: &allocation.Error{Kind: tc.kind, Op: "change status"}}
			if tc.name == "internal" {
				stub.err = tc.kind
			}
			rec, body := call(t, newServer(t, stub, nil), http.MethodPatch, "/v1/courses/7/participants/3/status", `{"status":"ATTENDING"}`)
			require.Equal(t, tc.status, rec.Code)
			require.Equal(t, tc.name, body["kind"])
			require.NotEmpty(t, body["error"])
		})
	}
}

func TestMoveReportsFailedStep(t *testing.T) {
	stub := &stubAllocator{
		moveRes: &allocation.SwapResult{Kind: allocation.MoveSwap, OpID: "op-1"},
		err:     &allocation.Error{Kind: allocation.ErrCommunication, Op: "swap", Step: allocation.StepMoveTarget, ParticipantID: 2},
	}
	e := newServer(t, stub, nil)

	rec, body := call(t, e, http.MethodPost, "/v1/courses/7/pools/hall-seat/moves", `{"source":"MB1","target":"MA2","op_id":"op-1"}`)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.Equal(t, "op-1", body["op_id"])
	require.Equal(t, "move-target", body["step"])
	require.Equal(t, "target", body["side"])
	require.Equal(t, "The target write failed at step move-target. Retry with the same operation id to resume.", body["error"])
	require.Equal(t, model.PoolHallSeat, stub.move.Pool)
	require.Equal(t, "op-1", stub.move.OpID)

	rec, body = call(t, e, http.MethodPost, "/v1/courses/7/pools/hall-seat/moves", `{"source":"MB1","target":"MA2"}`, "Accept-Language", "hi")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.Contains(t, body["error"], "move-target")
	require.Contains(t, body["error"], "target")

	rec, _ = call(t, e, http.MethodPost, "/v1/courses/7/pools/hall-seat/moves", `{"source":"MB1"}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec, body = call(t, e, http.MethodPost, "/v1/courses/7/pools/kitchen/moves", `{"source":"MB1","target":"MA2"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, `Unknown resource pool "kitchen".`, body["error"])
}

func TestAutoAssignMessages(t *testing.T) {
	stub := &stubAllocator{report: &service.AssignReport{
		Outcome: service.OutcomeApplied,
		Persist: &allocation.Outcome{Planned: 3, Succeeded: 2, Failed: 1},
	}}
	e := newServer(t, stub, nil)

	rec, body := call(t, e, http.MethodPost, "/v1/courses/7/seating/auto-assign", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.False(t, stub.dryRun)
	require.Equal(t, "2 of 3 seats assigned.", body["message"])
	require.Equal(t, float64(7), body["course_id"])

	stub.report = &service.AssignReport{Outcome: service.OutcomeNoSeats}
	rec, body = call(t, e, http.MethodPost, "/v1/courses/7/seating/auto-assign?dry_run=true", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, stub.dryRun)
	require.Equal(t, "No hall seats are available. Check the seating configuration.", body["message"])

	rec, _ = call(t, e, http.MethodPost, "/v1/courses/7/seating/auto-assign?dry_run=maybe", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPutSeatingPurgesLayoutCache(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	ctx := context.Background()
	require.NoError(t, rdb.Set(ctx, "layout:course:7:abc", "x", 0).Err())
	require.NoError(t, rdb.Set(ctx, "layout:course:8:abc", "x", 0).Err())

	stub := &stubAllocator{}
	e := newServer(t, stub, rdb)
	rec, _ := call(t, e, http.MethodPut, "/v1/courses/7/seating", `{"male":{"columns":4,"chowky_columns":1,"rows":10,"prefix":"M"}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 4, stub.seating.Male.Columns)
	require.Equal(t, "M", stub.seating.Male.Prefix)
	require.False(t, mr.Exists("layout:course:7:abc"))
	require.True(t, mr.Exists("layout:course:8:abc"))

	rec, _ = call(t, e, http.MethodPut, "/v1/courses/7/seating", `{"female":{"rows":-1}}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestImportResources(t *testing.T) {
	stub := &stubAllocator{}
	e := newServer(t, stub, nil)

	rec, body := call(t, e, http.MethodPost, "/v1/pools/rooms/resources",
		`{"resources":[{"label":"A-101","wing":"m"},{"label":"B-201","wing":"female","is_active":false}]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, float64(2), body["stored"])
	require.Equal(t, []model.Resource{
		{PoolType: model.PoolRoom, Label: "A-101", Wing: model.GenderMale, IsActive: true},
		{PoolType: model.PoolRoom, Label: "B-201", Wing: model.GenderFemale, IsActive: false},
	}, stub.resources)

	rec, _ = call(t, e, http.MethodPost, "/v1/pools/rooms/resources", `{"resources":[{"label":"A-1","wing":"x"}]}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealth(t *testing.T) {
	e := echo.New()
	e.GET("/healthz", Health(nil))
	e.GET("/readyz", Health(map[string]Check{
		"db":    func(context.Context) error { return nil },
		"redis": func(context.Context) error { return errors.New("connection refused") },
	}))

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ok", rec.Body.String())

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.JSONEq(t, `{"status":"degraded","checks":{"db":"ok","redis":"connection refused"}}`, rec.Body.String())
}
