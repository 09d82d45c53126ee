package repository

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/retreat-allocation/internal/allocation"
	"github.com/iliyamo/retreat-allocation/internal/model"
)

func TestCourseRepo_Get(t *testing.T) {
	db, mock := newMock(t)
	q := regexp.QuoteMeta("SELECT id, name, seating FROM courses WHERE id = ?")
	mock.ExpectQuery(q).WithArgs(1).WillReturnRows(sqlmock.NewRows([]string{"id", "name", "seating"}).
		AddRow(1, "10-day", `{"male":{"columns":2,"chowky_columns":1,"rows":3,"prefix":"M"}}`))
	mock.ExpectQuery(q).WithArgs(2).WillReturnRows(sqlmock.NewRows([]string{"id", "name", "seating"}).
		AddRow(2, "3-day", nil))
	mock.ExpectQuery(q).WithArgs(3).WillReturnRows(sqlmock.NewRows([]string{"id", "name", "seating"}))

	repo := NewCourseRepo(db)
	c, ok, err := repo.Get(context.Background(), 1)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, model.WingSeating{Columns: 2, ChowkyColumns: 1, Rows: 3, Prefix: "M"}, c.Seating.Male)

	c, ok, err = repo.Get(context.Background(), 2)
	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, "3-day", c.Name)

	_, _, err = repo.Get(context.Background(), 3)
	require.ErrorIs(t, err, allocation.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepo_UpdateSeating(t *testing.T) {
	db, mock := newMock(t)
	q := regexp.QuoteMeta("UPDATE courses SET seating = ? WHERE id = ?")
	mock.ExpectExec(q).WithArgs(sqlmock.AnyArg(), 1).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q).WithArgs(sqlmock.AnyArg(), 5).WillReturnResult(sqlmock.NewResult(0, 0))

	repo := NewCourseRepo(db)
	require.NoError(t, repo.UpdateSeating(context.Background(), 1, model.SeatingConfig{}))
	require.ErrorIs(t, repo.UpdateSeating(context.Background(), 5, model.SeatingConfig{}), ErrCourseNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}
