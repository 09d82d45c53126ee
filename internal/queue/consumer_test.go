package queue

import (
    "encoding/json"
    "os"
    "path/filepath"
    "strings"
    "testing"

    "github.com/stretchr/testify/require"
)

func TestFormatLine(t *testing.T) {
    line := FormatLine(AllocationChangedEvent{
        Kind: KindMove, CourseID: 7, Pool: "HALL_SEAT", ActorID: 3, Succeeded: 2,
        OpID: "op-1", MoveKind: "SWAP", OccurredAt: "2026-10-19T08:00:00Z",
        Changes: []LabelChange{
            {ParticipantID: 1, From: "12C", To: "7F"},
            {ParticipantID: 2, From: "7F", To: "12C"},
        },
    })
    require.Equal(t,
        "[2026-10-19T08:00:00Z] Allocation changed | kind=move | course_id=7 | pool=HALL_SEAT | actor_id=3 | succeeded=2 | failed=0 | changes=[1:12C->7F,2:7F->12C] | op_id=op-1 | move=SWAP\n",
        line)

    line = FormatLine(AllocationChangedEvent{Kind: KindAutoAssign, Changes: []LabelChange{{ParticipantID: 5, To: "M1H"}}})
    require.Contains(t, line, "changes=[5:-->M1H]")
    require.NotContains(t, line, "op_id")
}

func TestHandleMessageAppends(t *testing.T) {
    dir := filepath.Join(t.TempDir(), "logs")
    c := NewConsumer("", dir, nil)

    body, err := json.Marshal(AllocationChangedEvent{Kind: KindAutoAssign, CourseID: 1, Pool: "HALL_SEAT"})
    require.NoError(t, err)
    require.NoError(t, c.HandleMessage(body))
    require.NoError(t, c.HandleMessage(body))

    data, err := os.ReadFile(filepath.Join(dir, "allocation.log"))
    require.NoError(t, err)
    require.Equal(t, 2, strings.Count(string(data), "Allocation changed"))

    require.Error(t, c.HandleMessage([]byte("{not json")))
}
