package model

import (
	"strings"
	"time"
)

// Gender identifies the wing a participant belongs to.  Rooms and hall
// seats are partitioned per wing.
type Gender string

const (
	GenderMale   Gender = "MALE"
	GenderFemale Gender = "FEMALE"
)

// Genders lists the wings in processing order.
var Genders = []Gender{GenderMale, GenderFemale}

// ParseGender accepts the long and the single letter spellings used by the
// import sheets ("M", "male", "F", "Female", ...).
func ParseGender(s string) (Gender, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "M", "MALE":
		return GenderMale, true
	case "F", "FEMALE":
		return GenderFemale, true
	}
	return "", false
}

// Status is the attendance state of a participant for a course.
type Status string

const (
	StatusNoResponse  Status = "NO_RESPONSE"
	StatusGateCheckIn Status = "GATE_CHECK_IN"
	StatusAttending   Status = "ATTENDING"
	StatusCancelled   Status = "CANCELLED"
	StatusNoShow      Status = "NO_SHOW"
	StatusPendingID   Status = "PENDING_ID"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusNoResponse, StatusGateCheckIn, StatusAttending, StatusCancelled, StatusNoShow, StatusPendingID:
		return true
	}
	return false
}

var statusKeys = map[string]Status{}

func init() {
	for _, st := range []Status{StatusNoResponse, StatusGateCheckIn, StatusAttending, StatusCancelled, StatusNoShow, StatusPendingID} {
		statusKeys[statusKey(string(st))] = st
	}
}

func statusKey(s string) string {
	return strings.NewReplacer("_", "", "-", "", " ", "").Replace(strings.ToUpper(strings.TrimSpace(s)))
}

// ParseStatus accepts a status in any case, with or without word
// separators: "GATE_CHECK_IN", "GateCheckIn" and "gate check-in" all
// name StatusGateCheckIn.
func ParseStatus(s string) (Status, bool) {
	st, ok := statusKeys[statusKey(s)]
	return st, ok
}

// SpecialSeating is a hall seating request that draws from the reserved
// chowky sub-pool.
type SpecialSeating string

const (
	SeatingNone     SpecialSeating = "NONE"
	SeatingChowky   SpecialSeating = "CHOWKY"
	SeatingChair    SpecialSeating = "CHAIR"
	SeatingBackRest SpecialSeating = "BACK_REST"
)

// Special reports whether the request needs a seat from the special sequence.
func (s SpecialSeating) Special() bool {
	return s == SeatingChowky || s == SeatingChair || s == SeatingBackRest
}

// Participant is a person registered for a course together with the four
// resource labels they currently hold.  It corresponds to a row of the
// `participants` table and is also the record the collaborator store
// replaces as a whole on every update.
//
// Fields:
//
//	ID              – primary key.
//	CourseID        – course the participant is registered for.
//	FullName        – display name.
//	Gender          – wing (MALE or FEMALE).
//	ConfNo          – confirmation code; its letter prefix encodes the category.
//	CoursesInfoText – free-text course history such as "S:3 L:1".
//	Age             – age in years, used as the last ordering tie-break.
//	Status          – attendance status.
//	RoomNo          – dormitory room label.
//	DiningSeatNo    – dining seat label.
//	PagodaCellNo    – pagoda cell label.
//	HallSeatNo      – meditation hall seat label.
//	IsSeatLocked    – set by a manual move; exempts the record from auto-assignment.
//	SpecialSeating  – chowky / chair / back-rest request.
//	Version         – optimistic concurrency token, bumped on every write.
type Participant struct {
	ID              uint64         `db:"id" json:"id"`
	CourseID        uint64         `db:"course_id" json:"course_id"`
	FullName        string         `db:"full_name" json:"full_name"`
	Gender          Gender         `db:"gender" json:"gender"`
	ConfNo          string         `db:"conf_no" json:"conf_no"`
	CoursesInfoText string         `db:"courses_info" json:"courses_info"`
	Age             int            `db:"age" json:"age"`
	Status          Status         `db:"status" json:"status"`
	RoomNo          string         `db:"room_no" json:"room_no"`
	DiningSeatNo    string         `db:"dining_seat_no" json:"dining_seat_no"`
	PagodaCellNo    string         `db:"pagoda_cell_no" json:"pagoda_cell_no"`
	HallSeatNo      string         `db:"hall_seat_no" json:"hall_seat_no"`
	IsSeatLocked    bool           `db:"is_seat_locked" json:"is_seat_locked"`
	SpecialSeating  SpecialSeating `db:"special_seating" json:"special_seating"`
	Version         uint32         `db:"version" json:"version"`
	CreatedAt       time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time      `db:"updated_at" json:"updated_at"`
}

// Label returns the label the participant holds in the given pool.
func (p *Participant) Label(pool PoolType) string {
	switch pool {
	case PoolRoom:
		return p.RoomNo
	case PoolDiningSeat:
		return p.DiningSeatNo
	case PoolPagodaCell:
		return p.PagodaCellNo
	case PoolHallSeat:
		return p.HallSeatNo
	}
	return ""
}

// SetLabel replaces the label the participant holds in the given pool.
func (p *Participant) SetLabel(pool PoolType, label string) {
	switch pool {
	case PoolRoom:
		p.RoomNo = label
	case PoolDiningSeat:
		p.DiningSeatNo = label
	case PoolPagodaCell:
		p.PagodaCellNo = label
	case PoolHallSeat:
		p.HallSeatNo = label
	}
}

// ReleaseResources clears every resource label and the manual lock.
func (p *Participant) ReleaseResources() {
	for _, pool := range Pools {
		p.SetLabel(pool, "")
	}
	p.IsSeatLocked = false
}
