package allocation

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds.  Every error returned by this package wraps exactly one of
// them so callers can branch with errors.Is.
var (
	ErrValidation    = errors.New("validation error")
	ErrConflict      = errors.New("conflict")
	ErrCommunication = errors.New("store unreachable")
	ErrNotFound      = errors.New("not found")
)

// Step identifies the write of a move or swap that an error belongs to.
type Step int

const (
	StepNone Step = iota
	// StepParkSource writes the swap sentinel to the source participant.
	StepParkSource
	// StepMoveTarget writes the vacated source label to the target occupant.
	StepMoveTarget
	// StepPlaceSource writes the target label to the source participant.
	StepPlaceSource
	// StepRelocate is the single write of a move to an empty label.
	StepRelocate
	// StepAtomicSwap is the single conditional swap of a transactional store.
	StepAtomicSwap
)

func (s Step) String() string {
	switch s {
	case StepParkSource:
		return "park-source"
	case StepMoveTarget:
		return "move-target"
	case StepPlaceSource:
		return "place-source"
	case StepRelocate:
		return "relocate"
	case StepAtomicSwap:
		return "atomic-swap"
	}
	return "none"
}

// MarshalText encodes the step by name.
func (s Step) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a step name; unknown names decode to StepNone.
func (s *Step) UnmarshalText(b []byte) error {
	*s = StepNone
	for _, st := range []Step{StepParkSource, StepMoveTarget, StepPlaceSource, StepRelocate, StepAtomicSwap} {
		if st.String() == string(b) {
			*s = st
		}
	}
	return nil
}

// Side reports which record the step writes: "source", "target" or "both".
func (s Step) Side() string {
	switch s {
	case StepParkSource, StepPlaceSource, StepRelocate:
		return "source"
	case StepMoveTarget:
		return "target"
	case StepAtomicSwap:
		return "both"
	}
	return ""
}

// Error is the error type of the engine.  Kind is one of the Err* values
// above; Step is set for failed writes so an operator knows which record
// needs manual recovery.
type Error struct {
	Kind          error
	Op            string
	Step          Step
	ParticipantID uint64
	Msg           string
	Err           error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	b.WriteString(": ")
	b.WriteString(e.Kind.Error())
	if e.Step != StepNone {
		fmt.Fprintf(&b, " at %s (%s write)", e.Step, e.Step.Side())
	}
	if e.ParticipantID != 0 {
		fmt.Fprintf(&b, " participant=%d", e.ParticipantID)
	}
	if e.Msg != "" {
		b.WriteString(": ")
		b.WriteString(e.Msg)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap exposes both the kind and the cause to errors.Is / errors.As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func newError(kind error, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// storeError classifies an error coming back from a collaborator store.
// Conflicts and missing records keep their kind; anything else means the
// store could not be reached or failed internally.
func storeError(op string, step Step, participantID uint64, err error) *Error {
	var ae *Error
	if errors.As(err, &ae) {
		if ae.Step == StepNone {
			ae.Step = step
		}
		return ae
	}
	kind := ErrCommunication
	switch {
	case errors.Is(err, ErrConflict):
		kind = ErrConflict
	case errors.Is(err, ErrNotFound):
		kind = ErrNotFound
	}
	return &Error{Kind: kind, Op: op, Step: step, ParticipantID: participantID, Err: err}
}

// KindOf returns the error kind wrapped by err, or nil when err does not
// carry one.
func KindOf(err error) error {
	for _, k := range []error{ErrValidation, ErrConflict, ErrNotFound, ErrCommunication} {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}

// FailedStep returns the step recorded on an engine error.
func FailedStep(err error) Step {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Step
	}
	return StepNone
}
