package model

// WingSeating is the administrator-adjustable hall layout of one wing.
// Standard and chowky columns share the row count.  Prefix is prepended to
// every generated label of the wing so that both wings can live in one
// label namespace.
type WingSeating struct {
	Columns       int    `json:"columns" toml:"columns"`
	ChowkyColumns int    `json:"chowky_columns" toml:"chowky_columns"`
	Rows          int    `json:"rows" toml:"rows"`
	Prefix        string `json:"prefix" toml:"prefix"`
}

// SeatingConfig holds the hall layout of both wings of a course.
type SeatingConfig struct {
	Male   WingSeating `json:"male" toml:"male"`
	Female WingSeating `json:"female" toml:"female"`
}

// Wing returns the layout of the given wing.
func (c SeatingConfig) Wing(g Gender) WingSeating {
	if g == GenderFemale {
		return c.Female
	}
	return c.Male
}

// Course is the subset of a course record the allocation service reads.
// Course CRUD itself belongs to another part of the system.
//
// Fields:
//
//	ID      – primary key.
//	Name    – course title, e.g. "10-day 2026-11-04".
//	Seating – hall layout of both wings.
type Course struct {
	ID      uint64        `json:"id"`
	Name    string        `json:"name"`
	Seating SeatingConfig `json:"seating"`
}

// ImportCandidate is the record shape produced by the CSV import
// collaborator.  ID is the collaborator's own row identifier and is only
// echoed back in import reports.
type ImportCandidate struct {
	ID              string `json:"id"`
	ConfNo          string `json:"conf_no" validate:"required,max=32"`
	FullName        string `json:"full_name" validate:"required,max=128"`
	Age             int    `json:"age" validate:"gte=0,lte=130"`
	Gender          string `json:"gender" validate:"required"`
	CoursesInfoText string `json:"courses_info" validate:"max=255"`
	Status          string `json:"status"`
}
