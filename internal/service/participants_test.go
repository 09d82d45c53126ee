package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/iliyamo/retreat-allocation/internal/allocation"
	"github.com/iliyamo/retreat-allocation/internal/model"
	"github.com/iliyamo/retreat-allocation/internal/queue"
)

func TestChangeStatus_CancelReleasesResources(t *testing.T) {
	p := seated(person(1, model.GenderMale, "OM1"), "MB1")
	p.RoomNo, p.DiningSeatNo, p.IsSeatLocked = "A-101", "D4", true
	f := newFixture(t, p)

	got, err := f.svc.ChangeStatus(context.Background(), courseID, 1, 5, StatusChange{Status: model.StatusCancelled})
	require.NoError(t, err)
	require.Equal(t, model.StatusCancelled, got.Status)
	stored := f.store.get(1)
	require.Empty(t, stored.RoomNo)
	require.Empty(t, stored.DiningSeatNo)
	require.Empty(t, stored.HallSeatNo)
	require.False(t, stored.IsSeatLocked)
	require.Equal(t, uint32(1), stored.Version)

	require.Len(t, f.events.events, 3)
	require.Equal(t, queue.KindRelease, f.events.events[0].Kind)
	require.Equal(t, string(model.PoolRoom), f.events.events[0].Pool)
	require.Equal(t, "A-101", f.events.events[0].Changes[0].From)
}

func TestChangeStatus_KeepsResourcesWhenConfigured(t *testing.T) {
	f := newFixture(t, seated(person(1, model.GenderMale, "OM1"), "MB1"))
	f.svc.cfg.ReleaseOnCancel = false

	_, err := f.svc.ChangeStatus(context.Background(), courseID, 1, 5, StatusChange{Status: model.StatusCancelled})
	require.NoError(t, err)
	require.Equal(t, "MB1", f.store.get(1).HallSeatNo)
	require.Empty(t, f.events.events)

	// Cancelled records never show up in the occupancy index.
	view, err := f.svc.Occupancy(context.Background(), courseID, model.PoolHallSeat)
	require.NoError(t, err)
	require.Empty(t, view.Occupants)
}

func TestChangeStatus_Errors(t *testing.T) {
	f := newFixture(t, person(1, model.GenderMale, "OM1"))
	ctx := context.Background()
	stale := uint32(3)

	_, err := f.svc.ChangeStatus(ctx, courseID, 1, 5, StatusChange{Status: "ON_HOLIDAY"})
	require.ErrorIs(t, err, allocation.ErrValidation)

	_, err = f.svc.ChangeStatus(ctx, courseID, 42, 5, StatusChange{Status: model.StatusNoShow})
	require.ErrorIs(t, err, allocation.ErrNotFound)

	_, err = f.svc.ChangeStatus(ctx, courseID+1, 1, 5, StatusChange{Status: model.StatusNoShow})
	require.ErrorIs(t, err, allocation.ErrNotFound)

	_, err = f.svc.ChangeStatus(ctx, courseID, 1, 5, StatusChange{Status: model.StatusNoShow, Version: &stale})
	require.ErrorIs(t, err, allocation.ErrConflict)
	require.Zero(t, f.store.writes)
}

func TestImport(t *testing.T) {
	existing := seated(person(1, model.GenderMale, "OM1"), "MB1")
	existing.IsSeatLocked = true
	f := newFixture(t, existing)

	rep, err := f.svc.Import(context.Background(), courseID, 5, []model.ImportCandidate{
		{ID: "r1", ConfNo: "OM1", FullName: "Renamed", Gender: "m", Status: "attending", Age: 50},
		{ID: "r2", ConfNo: "NF2", FullName: "New", Gender: "Female"},
		{ID: "r3", ConfNo: "NF2", FullName: "Twice", Gender: "F"},
		{ID: "r4", ConfNo: "X9", FullName: "Nobody", Gender: "other"},
		{ID: "r5", ConfNo: "", FullName: "No code", Gender: "M"},
		{ID: "r6", ConfNo: "X10", FullName: "Odd", Gender: "M", Status: "maybe"},
		{ID: "r7", ConfNo: "X11", FullName: "Old", Gender: "M", Age: 200},
	})
	require.NoError(t, err)
	require.Equal(t, 1, rep.Inserted)
	require.Equal(t, 1, rep.Updated)
	require.Len(t, rep.Rejected, 5)
	require.Equal(t, "r3", rep.Rejected[0].ID)

	stored := f.store.get(1)
	require.Equal(t, "Renamed", stored.FullName)
	require.Equal(t, "MB1", stored.HallSeatNo)
	require.True(t, stored.IsSeatLocked)

	fresh := f.store.get(2)
	require.Equal(t, model.StatusNoResponse, fresh.Status)
	require.Equal(t, model.GenderFemale, fresh.Gender)
}

func TestImport_StatusSpellings(t *testing.T) {
	f := newFixture(t)
	cases := map[string]model.Status{
		"GateCheckIn": model.StatusGateCheckIn,
		"NoResponse":  model.StatusNoResponse,
		"PendingId":   model.StatusPendingID,
		"NoShow":      model.StatusNoShow,
		"no-show":     model.StatusNoShow,
		"Attending":   model.StatusAttending,
	}
	var cands []model.ImportCandidate
	for in := range cases {
		cands = append(cands, model.ImportCandidate{ConfNo: "C-" + in, FullName: in, Gender: "M", Status: in})
	}

	rep, err := f.svc.Import(context.Background(), courseID, 5, cands)
	require.NoError(t, err)
	require.Empty(t, rep.Rejected)
	require.Equal(t, len(cases), rep.Inserted)
	for _, p := range f.store.rows {
		require.Equal(t, cases[p.FullName], p.Status, p.FullName)
	}
}

func TestImport_CancelReleasesLikeChangeStatus(t *testing.T) {
	a := seated(person(1, model.GenderMale, "OM1"), "MB1")
	a.RoomNo, a.IsSeatLocked = "A-101", true
	f := newFixture(t, a)
	ctx := context.Background()

	rep, err := f.svc.Import(ctx, courseID, 5, []model.ImportCandidate{{ConfNo: "OM1", FullName: "A", Gender: "M", Status: "CANCELLED"}})
	require.NoError(t, err)
	require.Equal(t, 2, rep.Released)
	require.Empty(t, rep.Unsettled)
	stored := f.store.get(1)
	require.Equal(t, model.StatusCancelled, stored.Status)
	require.Empty(t, stored.HallSeatNo)
	require.Empty(t, stored.RoomNo)
	require.False(t, stored.IsSeatLocked)
	require.Len(t, f.events.events, 2)
	for _, ev := range f.events.events {
		require.Equal(t, queue.KindRelease, ev.Kind)
		require.Equal(t, uint64(5), ev.ActorID)
	}

	// MB1 goes to someone else, then A is imported back.
	f.store.rows[2] = seated(person(2, model.GenderMale, "OM2"), "MB1")
	rep, err = f.svc.Import(ctx, courseID, 5, []model.ImportCandidate{{ConfNo: "OM1", FullName: "A", Gender: "M", Status: "ATTENDING"}})
	require.NoError(t, err)
	require.Zero(t, rep.Released)
	require.Equal(t, model.StatusAttending, f.store.get(1).Status)

	occ, err := f.svc.Occupancy(ctx, courseID, model.PoolHallSeat)
	require.NoError(t, err)
	require.Empty(t, occ.Collisions)
	require.Equal(t, []Occupant{{Label: "MB1", ParticipantID: 2, ConfNo: "OM2", FullName: "OM2", Gender: model.GenderMale}}, occ.Occupants)
}

func TestImport_RevivalDropsLabelsTakenMeanwhile(t *testing.T) {
	a := seated(person(1, model.GenderMale, "OM1"), "MB1")
	a.Status, a.RoomNo, a.IsSeatLocked = model.StatusCancelled, "A-101", true
	f := newFixture(t, a, seated(person(2, model.GenderMale, "OM2"), "mb1"))
	f.svc.cfg.ReleaseOnCancel = false
	ctx := context.Background()

	rep, err := f.svc.Import(ctx, courseID, 5, []model.ImportCandidate{{ConfNo: "OM1", FullName: "A", Gender: "M", Status: "GateCheckIn"}})
	require.NoError(t, err)
	require.Equal(t, 1, rep.Released)
	stored := f.store.get(1)
	require.Equal(t, model.StatusGateCheckIn, stored.Status)
	require.Empty(t, stored.HallSeatNo)
	require.False(t, stored.IsSeatLocked)
	require.Equal(t, "A-101", stored.RoomNo)
	require.Len(t, f.events.events, 1)
	require.Equal(t, string(model.PoolHallSeat), f.events.events[0].Pool)
	require.Equal(t, "MB1", f.events.events[0].Changes[0].From)

	occ, err := f.svc.Occupancy(ctx, courseID, model.PoolHallSeat)
	require.NoError(t, err)
	require.Empty(t, occ.Collisions)
	require.Len(t, occ.Occupants, 1)
}

func TestChangeStatus_RevivalDropsLabelsTakenMeanwhile(t *testing.T) {
	a := seated(person(1, model.GenderMale, "OM1"), "MB1")
	a.Status, a.RoomNo = model.StatusCancelled, "A-101"
	b := person(2, model.GenderMale, "OM2")
	b.RoomNo = "A-101"
	f := newFixture(t, a, b)
	f.svc.cfg.ReleaseOnCancel = false

	got, err := f.svc.ChangeStatus(context.Background(), courseID, 1, 5, StatusChange{Status: model.StatusAttending})
	require.NoError(t, err)
	require.Equal(t, "MB1", got.HallSeatNo)
	require.Empty(t, got.RoomNo)
	require.Len(t, f.events.events, 1)
	require.Equal(t, string(model.PoolRoom), f.events.events[0].Pool)
}

func TestOccupancyAndAvailable(t *testing.T) {
	dup := seated(person(3, model.GenderMale, "N3"), "mb-1")
	f := newFixture(t,
		seated(person(1, model.GenderMale, "OM1"), "MB1"),
		seated(person(2, model.GenderFemale, "OF2"), "FA2"),
		dup,
	)
	ctx := context.Background()

	occ, err := f.svc.Occupancy(ctx, courseID, model.PoolHallSeat)
	require.NoError(t, err)
	require.Len(t, occ.Occupants, 2)
	require.Equal(t, []CollisionView{{Label: "MB1", KeptID: 1, DroppedID: 3}}, occ.Collisions)

	av, err := f.svc.Available(ctx, courseID, model.PoolHallSeat, model.GenderMale)
	require.NoError(t, err)
	require.Equal(t, []string{"MCW-A1", "MCW-A2", "MA1", "MB2", "MA2"}, av.Labels)

	av, err = f.svc.Available(ctx, courseID, model.PoolRoom, "")
	require.NoError(t, err)
	require.Equal(t, []string{"A-101", "A-102", "B-201"}, av.Labels)

	av, err = f.svc.Available(ctx, courseID, model.PoolPagodaCell, "")
	require.NoError(t, err)
	require.Empty(t, av.Labels)
}

func TestImportResources(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	n, err := f.svc.ImportResources(ctx, model.PoolDiningSeat, []model.Resource{
		{Label: "D1", Wing: model.GenderMale, IsActive: true},
		{Label: "d-1", IsActive: true},
		{Label: " ", IsActive: true},
		{Label: "D2", IsActive: true},
	})
	require.NoError(t, err)
	require.Equal(t, 2, n)
	require.Empty(t, f.resources.byPool[model.PoolDiningSeat][0].Wing)

	_, err = f.svc.ImportResources(ctx, model.PoolHallSeat, nil)
	require.ErrorIs(t, err, allocation.ErrValidation)

	_, err = f.svc.ImportResources(ctx, model.PoolRoom, []model.Resource{{Label: "C-1", Wing: "BOTH"}})
	require.ErrorIs(t, err, allocation.ErrValidation)
}
