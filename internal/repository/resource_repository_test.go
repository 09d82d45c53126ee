package repository

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/retreat-allocation/internal/model"
)

func TestResourceRepo_ListByPool(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM resources")).
		WithArgs("ROOM").
		WillReturnRows(sqlmock.NewRows([]string{"id", "pool_type", "label", "wing", "is_active"}).
			AddRow(1, "ROOM", "A-101", "MALE", true).
			AddRow(2, "ROOM", "B-201", "", false))

	got, err := NewResourceRepo(db).ListByPool(context.Background(), model.PoolRoom)
	require.NoError(t, err)
	require.Equal(t, []model.Resource{
		{ID: 1, PoolType: model.PoolRoom, Label: "A-101", Wing: model.GenderMale, IsActive: true},
		{ID: 2, PoolType: model.PoolRoom, Label: "B-201"},
	}, got)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestResourceRepo_CreateBulk(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO resources (pool_type, label, wing, is_active) VALUES (?, ?, ?, ?),(?, ?, ?, ?) ON DUPLICATE KEY UPDATE")).
		WithArgs("DINING_SEAT", "D1", "", true, "DINING_SEAT", "D2", "", true).
		WillReturnResult(sqlmock.NewResult(2, 2))

	err := NewResourceRepo(db).CreateBulk(context.Background(), []model.Resource{
		{PoolType: model.PoolDiningSeat, Label: "D1", IsActive: true},
		{PoolType: model.PoolDiningSeat, Label: "D2", IsActive: true},
	})
	require.NoError(t, err)
	require.NoError(t, NewResourceRepo(db).CreateBulk(context.Background(), nil))
	require.NoError(t, mock.ExpectationsWereMet())
}
