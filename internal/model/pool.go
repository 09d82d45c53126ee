package model

import "strings"

// PoolType names one of the four scarce resource pools.
type PoolType string

const (
	PoolRoom       PoolType = "ROOM"
	PoolDiningSeat PoolType = "DINING_SEAT"
	PoolPagodaCell PoolType = "PAGODA_CELL"
	PoolHallSeat   PoolType = "HALL_SEAT"
)

// Pools lists every pool type.
var Pools = []PoolType{PoolRoom, PoolDiningSeat, PoolPagodaCell, PoolHallSeat}

// GenderPartitioned reports whether the pool is split into gender wings.
func (p PoolType) GenderPartitioned() bool {
	return p == PoolRoom || p == PoolHallSeat
}

// ParsePoolType accepts the URL spellings used by the admin API
// ("room", "dining-seat", "dining_seat", "hall-seat", ...).
func ParsePoolType(s string) (PoolType, bool) {
	v := strings.ToUpper(strings.TrimSpace(s))
	v = strings.ReplaceAll(v, "-", "_")
	switch PoolType(v) {
	case PoolRoom, PoolDiningSeat, PoolPagodaCell, PoolHallSeat:
		return PoolType(v), true
	}
	switch v {
	case "ROOMS":
		return PoolRoom, true
	case "DINING", "DINING_SEATS":
		return PoolDiningSeat, true
	case "PAGODA", "PAGODA_CELLS":
		return PoolPagodaCell, true
	case "HALL", "HALL_SEATS":
		return PoolHallSeat, true
	}
	return "", false
}

// Resource is a catalog entry for a labelled room, dining seat or pagoda
// cell.  Hall seats are not stored; they are generated from the course
// seating configuration.
//
// Fields:
//
//	ID       – primary key.
//	PoolType – pool the resource belongs to.
//	Label    – label as printed on the door / seat card.
//	Wing     – owning wing for gender partitioned pools, empty when shared.
//	IsActive – inactive resources are not offered for allocation.
type Resource struct {
	ID       uint64   `db:"id" json:"id"`
	PoolType PoolType `db:"pool_type" json:"pool_type"`
	Label    string   `db:"label" json:"label"`
	Wing     Gender   `db:"wing" json:"wing,omitempty"`
	IsActive bool     `db:"is_active" json:"is_active"`
}
