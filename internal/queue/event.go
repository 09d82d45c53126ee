// Package queue defines message payloads exchanged over the message broker.
package queue

// AllocationChangedQueue is the durable queue allocation events go to.
const AllocationChangedQueue = "allocation.changed"

// Event kinds.
const (
    KindAutoAssign = "auto_assign"
    KindMove       = "move"
    KindRelease    = "release"
)

// LabelChange is one participant whose label in Pool changed.
type LabelChange struct {
    ParticipantID uint64 `json:"participant_id"`
    ConfNo        string `json:"conf_no"`
    From          string `json:"from"`
    To            string `json:"to"`
}

// AllocationChangedEvent is published after an auto-assignment run that
// wrote at least one seat, after every completed move or swap and for
// every label released by a cancellation.  It
// carries enough for the notification collaborator to tell participants
// about their new labels without querying the primary database.
type AllocationChangedEvent struct {
    Kind       string        `json:"kind"`
    CourseID   uint64        `json:"course_id"`
    Pool       string        `json:"pool"`
    OpID       string        `json:"op_id,omitempty"`
    MoveKind   string        `json:"move_kind,omitempty"`
    ActorID    uint64        `json:"actor_id"`
    Changes    []LabelChange `json:"changes"`
    Succeeded  int           `json:"succeeded"`
    Failed     int           `json:"failed"`
    OccurredAt string        `json:"occurred_at"`
}
