package queue

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "os"
    "path/filepath"
    "strings"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
    "go.uber.org/zap"
)

// Consumer listens to the allocation.changed queue and appends one line
// per event to <dir>/allocation.log.
type Consumer struct {
    url string
    dir string
    log *zap.Logger
}

// NewConsumer returns a consumer writing into dir ("logs" when empty).
func NewConsumer(url, dir string, log *zap.Logger) *Consumer {
    if dir == "" {
        dir = "logs"
    }
    if log == nil {
        log = zap.NewNop()
    }
    return &Consumer{url: url, dir: dir, log: log.Named("allocation-consumer")}
}

// Run connects, declares the queue and consumes until ctx is cancelled.
// Broker failures never end the loop; it reconnects with exponential
// backoff capped at 30s.
func (c *Consumer) Run(ctx context.Context) error {
    backoff := time.Second
    for {
        if ctx.Err() != nil {
            return ctx.Err()
        }
        conn, err := amqp.Dial(c.url)
        if err != nil {
            c.log.Warn("failed to dial broker", zap.Error(err), zap.Duration("retry_in", backoff))
            if !sleep(ctx, backoff) {
                return ctx.Err()
            }
            if backoff < 30*time.Second {
                backoff *= 2
            }
            continue
        }
        backoff = time.Second // reset after successful connect

        err = c.consumeLoop(ctx, conn)
        _ = conn.Close()
        if ctx.Err() != nil {
            return ctx.Err()
        }
        c.log.Warn("consume loop ended; reconnecting", zap.Error(err))
        if !sleep(ctx, 2*time.Second) {
            return ctx.Err()
        }
    }
}

func sleep(ctx context.Context, d time.Duration) bool {
    t := time.NewTimer(d)
    defer t.Stop()
    select {
    case <-ctx.Done():
        return false
    case <-t.C:
        return true
    }
}

func (c *Consumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
    ch, err := conn.Channel()
    if err != nil {
        return fmt.Errorf("channel open: %w", err)
    }
    defer func() { _ = ch.Close() }()

    if err := ch.Qos(50, 0, false); err != nil {
        c.log.Warn("set QoS failed", zap.Error(err))
    }

    if _, err := ch.QueueDeclare(AllocationChangedQueue, true, false, false, false, nil); err != nil {
        return fmt.Errorf("queue declare: %w", err)
    }

    msgs, err := ch.Consume(AllocationChangedQueue, "", false, false, false, false, nil)
    if err != nil {
        return fmt.Errorf("queue consume: %w", err)
    }

    for {
        select {
        case <-ctx.Done():
            return ctx.Err()
        case d, ok := <-msgs:
            if !ok {
                return errors.New("deliveries channel closed")
            }
            if err := c.HandleMessage(d.Body); err != nil {
                c.log.Error("handle message failed", zap.Error(err))
                _ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
                continue
            }
            _ = d.Ack(false)
        }
    }
}

// HandleMessage decodes one event and appends its log line.
func (c *Consumer) HandleMessage(body []byte) error {
    var ev AllocationChangedEvent
    if err := json.Unmarshal(body, &ev); err != nil {
        return fmt.Errorf("unmarshal: %w", err)
    }
    if err := os.MkdirAll(c.dir, 0o755); err != nil {
        return fmt.Errorf("mkdir logs: %w", err)
    }
    f, err := os.OpenFile(filepath.Join(c.dir, "allocation.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
    if err != nil {
        return fmt.Errorf("open log file: %w", err)
    }
    defer f.Close()

    if _, err := f.WriteString(FormatLine(ev)); err != nil {
        return fmt.Errorf("write log: %w", err)
    }
    return nil
}

// FormatLine renders ev as a single human friendly log line.
func FormatLine(ev AllocationChangedEvent) string {
    changes := make([]string, 0, len(ev.Changes))
    for _, ch := range ev.Changes {
        from := ch.From
        if from == "" {
            from = "-"
        }
        changes = append(changes, fmt.Sprintf("%d:%s->%s", ch.ParticipantID, from, ch.To))
    }
    line := fmt.Sprintf("[%s] Allocation changed | kind=%s | course_id=%d | pool=%s | actor_id=%d | succeeded=%d | failed=%d | changes=[%s]",
        ev.OccurredAt, ev.Kind, ev.CourseID, ev.Pool, ev.ActorID, ev.Succeeded, ev.Failed, strings.Join(changes, ","))
    if ev.OpID != "" {
        line += fmt.Sprintf(" | op_id=%s | move=%s", ev.OpID, ev.MoveKind)
    }
    return line + "\n"
}
