package repository // repository for the room / dining seat / pagoda cell catalog

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/retreat-allocation/internal/model"
)

// ResourceRepo reads and extends the resource catalog.  Hall seats are not
// stored here; they are generated from the course seating configuration.
type ResourceRepo struct {
	db *sqlx.DB
}

// NewResourceRepo constructs a ResourceRepo given a DB handle.
func NewResourceRepo(db *sqlx.DB) *ResourceRepo {
	return &ResourceRepo{db: db}
}

// ListByPool returns every resource of a pool, active or not, in label
// order.  Callers filter inactive rows when building a catalog.
func (r *ResourceRepo) ListByPool(ctx context.Context, pool model.PoolType) ([]model.Resource, error) {
	const q = `SELECT id, pool_type, label, wing, is_active
	           FROM resources
	           WHERE pool_type = ?
	           ORDER BY label`
	out := []model.Resource{}
	if err := r.db.SelectContext(ctx, &out, q, pool); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateBulk inserts resources in a single statement.  Existing labels of
// the same pool get their wing and active flag refreshed.
func (r *ResourceRepo) CreateBulk(ctx context.Context, resources []model.Resource) error {
	if len(resources) == 0 {
		return nil
	}
	query := `INSERT INTO resources (pool_type, label, wing, is_active) VALUES `
	args := make([]interface{}, 0, len(resources)*4)
	for i, res := range resources {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?, ?)"
		args = append(args, res.PoolType, res.Label, res.Wing, res.IsActive)
	}
	query += ` ON DUPLICATE KEY UPDATE wing = VALUES(wing), is_active = VALUES(is_active)`
	_, err := r.db.ExecContext(ctx, query, args...)
	return err
}
