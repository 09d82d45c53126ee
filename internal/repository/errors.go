// Package repository implements the collaborator stores of the allocation
// service on MySQL and Redis.  The sentinel values below wrap the engine's
// error kinds so that a store error is classified correctly by the engine
// and can still be matched precisely by handlers.
package repository

import (
	"fmt"

	"github.com/iliyamo/retreat-allocation/internal/allocation"
)

// ErrConflict is returned when an update carries a participant version
// that no longer matches the stored row.  Handlers translate it into an
// HTTP 409 response.
var ErrConflict = fmt.Errorf("stale participant version: %w", allocation.ErrConflict)

// ErrParticipantNotFound is returned when a participant lookup or update
// matches no row.
var ErrParticipantNotFound = fmt.Errorf("participant not found: %w", allocation.ErrNotFound)

// ErrCourseNotFound is returned when the course does not exist.
var ErrCourseNotFound = fmt.Errorf("course not found: %w", allocation.ErrNotFound)
