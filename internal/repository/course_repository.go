package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/retreat-allocation/internal/model"
)

// CourseRepo reads courses and stores their hall seating configuration.
// Creating and editing courses belongs to another part of the system.
type CourseRepo struct {
	db *sqlx.DB
}

// NewCourseRepo constructs a CourseRepo bound to db.
func NewCourseRepo(db *sqlx.DB) *CourseRepo { return &CourseRepo{db: db} }

type courseRow struct {
	ID      uint64         `db:"id"`
	Name    string         `db:"name"`
	Seating sql.NullString `db:"seating"`
}

// Get returns the course.  hasSeating is false when the course has no
// seating configuration of its own and the caller should use defaults.
func (r *CourseRepo) Get(ctx context.Context, id uint64) (course *model.Course, hasSeating bool, err error) {
	var row courseRow
	if err := r.db.GetContext(ctx, &row, `SELECT id, name, seating FROM courses WHERE id = ?`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, ErrCourseNotFound
		}
		return nil, false, err
	}
	c := &model.Course{ID: row.ID, Name: row.Name}
	if !row.Seating.Valid || row.Seating.String == "" {
		return c, false, nil
	}
	if err := json.Unmarshal([]byte(row.Seating.String), &c.Seating); err != nil {
		// A malformed stored layout degrades to no seats rather than failing reads.
		c.Seating = model.SeatingConfig{}
	}
	return c, true, nil
}

// UpdateSeating stores the seating configuration of a course.
func (r *CourseRepo) UpdateSeating(ctx context.Context, id uint64, cfg model.SeatingConfig) error {
	b, err := json.Marshal(cfg)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, `UPDATE courses SET seating = ? WHERE id = ?`, string(b), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrCourseNotFound
	}
	return nil
}
