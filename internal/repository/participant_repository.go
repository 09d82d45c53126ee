package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/retreat-allocation/internal/model"
)

const participantColumns = `id, course_id, full_name, gender, conf_no, courses_info, age, status,
	room_no, dining_seat_no, pagoda_cell_no, hall_seat_no, is_seat_locked, special_seating,
	version, created_at, updated_at`

// ParticipantRepo is the MySQL participant store.  Every write is a full
// record replace guarded by the version the record was read with.
type ParticipantRepo struct {
	db *sqlx.DB
}

// NewParticipantRepo constructs a ParticipantRepo bound to db.
func NewParticipantRepo(db *sqlx.DB) *ParticipantRepo {
	return &ParticipantRepo{db: db}
}

// ListByCourse returns the full snapshot of a course ordered by id.  The
// order is the snapshot order the occupancy index relies on.
func (r *ParticipantRepo) ListByCourse(ctx context.Context, courseID uint64) ([]model.Participant, error) {
	q := `SELECT ` + participantColumns + ` FROM participants WHERE course_id = ? ORDER BY id`
	out := []model.Participant{}
	if err := r.db.SelectContext(ctx, &out, q, courseID); err != nil {
		return nil, err
	}
	return out, nil
}

// GetByID fetches one participant.
func (r *ParticipantRepo) GetByID(ctx context.Context, id uint64) (*model.Participant, error) {
	q := `SELECT ` + participantColumns + ` FROM participants WHERE id = ?`
	var p model.Participant
	if err := r.db.GetContext(ctx, &p, q, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrParticipantNotFound
		}
		return nil, err
	}
	return &p, nil
}

// UpdateParticipant replaces every mutable column of p.  The write only
// applies while the stored version equals p.Version; on success the
// version is bumped on both sides.
func (r *ParticipantRepo) UpdateParticipant(ctx context.Context, p *model.Participant) error {
	const q = `UPDATE participants SET
	               full_name = :full_name, gender = :gender, conf_no = :conf_no,
	               courses_info = :courses_info, age = :age, status = :status,
	               room_no = :room_no, dining_seat_no = :dining_seat_no,
	               pagoda_cell_no = :pagoda_cell_no, hall_seat_no = :hall_seat_no,
	               is_seat_locked = :is_seat_locked, special_seating = :special_seating,
	               version = version + 1
	           WHERE id = :id AND version = :version`
	res, err := r.db.NamedExecContext(ctx, q, p)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return r.missingOrStale(ctx, r.db, p.ID)
	}
	p.Version++
	return nil
}

// missingOrStale tells a deleted row from a concurrent update after a
// guarded write matched nothing.
func (r *ParticipantRepo) missingOrStale(ctx context.Context, q sqlx.QueryerContext, id uint64) error {
	var version uint32
	err := sqlx.GetContext(ctx, q, &version, `SELECT version FROM participants WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrParticipantNotFound
	}
	if err != nil {
		return err
	}
	return ErrConflict
}

// SwapLabels exchanges the labels of two participants in one transaction.
// a and b already carry their new labels; both rows must still have the
// versions they were read with or nothing is written.
func (r *ParticipantRepo) SwapLabels(ctx context.Context, pool model.PoolType, a, b *model.Participant) error {
	col, err := poolColumn(pool)
	if err != nil {
		return err
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	q := `UPDATE participants SET ` + col + ` = ?, is_seat_locked = ?, version = version + 1
	      WHERE id = ? AND version = ?`
	for _, p := range []*model.Participant{a, b} {
		res, err := tx.ExecContext(ctx, q, p.Label(pool), p.IsSeatLocked, p.ID, p.Version)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n != 1 {
			return r.missingOrStale(ctx, tx, p.ID)
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	a.Version++
	b.Version++
	return nil
}

// UpsertResult counts what an import did.
type UpsertResult struct {
	Inserted int `json:"inserted"`
	Updated  int `json:"updated"`
}

// UpsertCandidates inserts new participants and refreshes the personal
// details of existing ones, matched by (course_id, conf_no).  Resource
// labels, the lock and the special seating request of existing rows are
// never touched.
func (r *ParticipantRepo) UpsertCandidates(ctx context.Context, courseID uint64, ps []model.Participant) (UpsertResult, error) {
	var out UpsertResult
	if len(ps) == 0 {
		return out, nil
	}
	existing := map[string]bool{}
	var confs []string
	if err := r.db.SelectContext(ctx, &confs, `SELECT conf_no FROM participants WHERE course_id = ?`, courseID); err != nil {
		return out, err
	}
	for _, c := range confs {
		existing[c] = true
	}

	query := `INSERT INTO participants (course_id, full_name, gender, conf_no, courses_info, age, status) VALUES `
	args := make([]interface{}, 0, len(ps)*7)
	for i, p := range ps {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?, ?, ?, ?, ?)"
		args = append(args, courseID, p.FullName, p.Gender, p.ConfNo, p.CoursesInfoText, p.Age, p.Status)
		if existing[p.ConfNo] {
			out.Updated++
		} else {
			out.Inserted++
		}
	}
	query += ` ON DUPLICATE KEY UPDATE full_name = VALUES(full_name), gender = VALUES(gender),
	          courses_info = VALUES(courses_info), age = VALUES(age), status = VALUES(status),
	          version = version + 1`
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return UpsertResult{}, err
	}
	return out, nil
}

func poolColumn(pool model.PoolType) (string, error) {
	switch pool {
	case model.PoolRoom:
		return "room_no", nil
	case model.PoolDiningSeat:
		return "dining_seat_no", nil
	case model.PoolPagodaCell:
		return "pagoda_cell_no", nil
	case model.PoolHallSeat:
		return "hall_seat_no", nil
	}
	return "", fmt.Errorf("unknown pool %q", pool)
}
