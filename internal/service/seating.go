package service

import (
	"context"

	"github.com/iliyamo/retreat-allocation/internal/allocation"
	"github.com/iliyamo/retreat-allocation/internal/model"
)

// SeatingView is the effective seating configuration of a course.
type SeatingView struct {
	CourseID uint64              `json:"course_id"`
	Source   string              `json:"source"` // "course" or "default"
	Seating  model.SeatingConfig `json:"seating"`
}

// LayoutView holds the generated hall sequences of both wings.
type LayoutView struct {
	CourseID uint64                                 `json:"course_id"`
	Seating  model.SeatingConfig                    `json:"seating"`
	Wings    map[model.Gender]allocation.WingLayout `json:"wings"`
	Seats    int                                    `json:"seats"`
}

// Seating returns the configuration the grid generator will use.
func (s *AllocationService) Seating(ctx context.Context, courseID uint64) (*SeatingView, error) {
	c, own, err := s.course(ctx, courseID)
	if err != nil {
		return nil, err
	}
	src := "default"
	if own {
		src = "course"
	}
	return &SeatingView{CourseID: courseID, Source: src, Seating: c.Seating}, nil
}

// UpdateSeating stores a course specific configuration.
func (s *AllocationService) UpdateSeating(ctx context.Context, courseID uint64, cfg model.SeatingConfig) (*SeatingView, error) {
	const op = "update seating"
	for _, g := range model.Genders {
		w := cfg.Wing(g)
		if w.Columns < 0 || w.ChowkyColumns < 0 || w.Rows < 0 {
			return nil, invalid(op, "%s wing counts must not be negative", g)
		}
	}
	if err := checkWingsDisjoint(op, cfg); err != nil {
		return nil, err
	}
	if err := s.courses.UpdateSeating(ctx, courseID, cfg); err != nil {
		return nil, classify(op, err)
	}
	return &SeatingView{CourseID: courseID, Source: "course", Seating: cfg}, nil
}

// checkWingsDisjoint rejects a configuration whose wings generate the same
// hall seat label; the first wing would take every shared seat.
func checkWingsDisjoint(op string, cfg model.SeatingConfig) error {
	shared := allocation.SharedLabels(cfg)
	if len(shared) == 0 {
		return nil
	}
	return invalid(op, "male and female wings both generate %d labels (first %q); give the wings distinct prefixes", len(shared), shared[0])
}

// Layout generates the standard and special sequences of both wings.
func (s *AllocationService) Layout(ctx context.Context, courseID uint64) (*LayoutView, error) {
	c, _, err := s.course(ctx, courseID)
	if err != nil {
		return nil, err
	}
	wings := allocation.HallLayout(c.Seating)
	n := 0
	for _, l := range wings {
		n += len(l.Standard) + len(l.Special)
	}
	return &LayoutView{CourseID: courseID, Seating: c.Seating, Wings: wings, Seats: n}, nil
}

// catalog returns the labels that exist in pool for the course.  Hall
// seats come from the seating configuration, the other pools from the
// resource table.  A nil catalog means the pool has no catalog and moves
// are not restricted to known labels.
func (s *AllocationService) catalog(ctx context.Context, c *model.Course, pool model.PoolType) (*allocation.Catalog, error) {
	var cat *allocation.Catalog
	if pool == model.PoolHallSeat {
		cat = allocation.HallCatalog(c.Seating)
	} else {
		rs, err := s.resources.ListByPool(ctx, pool)
		if err != nil {
			return nil, classify("read resources", err)
		}
		cat = allocation.ResourceCatalog(pool, rs)
	}
	if cat.Len() == 0 {
		return nil, nil
	}
	return cat, nil
}

// ImportResources adds catalog entries for rooms, dining seats or pagoda
// cells.  Wings are only kept for gender partitioned pools.
func (s *AllocationService) ImportResources(ctx context.Context, pool model.PoolType, rs []model.Resource) (int, error) {
	const op = "import resources"
	if pool == model.PoolHallSeat {
		return 0, invalid(op, "hall seats are generated from the seating configuration")
	}
	out := make([]model.Resource, 0, len(rs))
	seen := map[string]bool{}
	for _, r := range rs {
		key := allocation.NormalizeLabel(r.Label)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		r.PoolType = pool
		if !pool.GenderPartitioned() {
			r.Wing = ""
		}
		if r.Wing != "" && r.Wing != model.GenderMale && r.Wing != model.GenderFemale {
			return 0, invalid(op, "unknown wing %q for %s", r.Wing, r.Label)
		}
		out = append(out, r)
	}
	if err := s.resources.CreateBulk(ctx, out); err != nil {
		return 0, classify(op, err)
	}
	return len(out), nil
}
