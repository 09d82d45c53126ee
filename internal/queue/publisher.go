package queue

import (
    "context"
    "encoding/json"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
    "go.uber.org/zap"
)

// Publisher sends allocation events to RabbitMQ, dialing per publish.
// Errors are logged and returned so the caller can ignore them without
// interrupting the request flow.
type Publisher struct {
    url string
    log *zap.Logger
}

// NewPublisher returns a publisher for the broker at url.
func NewPublisher(url string, log *zap.Logger) *Publisher {
    if log == nil {
        log = zap.NewNop()
    }
    return &Publisher{url: url, log: log.Named("publisher")}
}

// PublishAllocationChanged publishes ev to the allocation.changed queue
// as a persistent JSON message.
func (p *Publisher) PublishAllocationChanged(ctx context.Context, ev AllocationChangedEvent) error {
    conn, err := amqp.Dial(p.url)
    if err != nil {
        p.log.Warn("rabbitmq: dial failed", zap.Error(err))
        return err
    }
    defer func() { _ = conn.Close() }()

    ch, err := conn.Channel()
    if err != nil {
        p.log.Warn("rabbitmq: channel open failed", zap.Error(err))
        return err
    }
    defer func() { _ = ch.Close() }()

    // Ensure the queue exists (idempotent). Durable so messages survive broker restarts.
    if _, err := ch.QueueDeclare(
        AllocationChangedQueue, // name
        true,                   // durable
        false,                  // autoDelete
        false,                  // exclusive
        false,                  // noWait
        nil,                    // args
    ); err != nil {
        p.log.Warn("rabbitmq: queue declare failed", zap.Error(err))
        return err
    }

    body, err := json.Marshal(ev)
    if err != nil {
        return err
    }

    pub := amqp.Publishing{
        ContentType:  "application/json",
        DeliveryMode: amqp.Persistent, // store on disk
        Timestamp:    time.Now().UTC(),
        Body:         body,
    }

    if err := ch.PublishWithContext(ctx,
        "",                     // default exchange
        AllocationChangedQueue, // routing key = queue name
        false,                  // mandatory
        false,                  // immediate
        pub,
    ); err != nil {
        p.log.Warn("rabbitmq: publish failed", zap.Error(err))
        return err
    }

    p.log.Debug("allocation event published",
        zap.String("kind", ev.Kind), zap.Uint64("course_id", ev.CourseID), zap.Int("changes", len(ev.Changes)))
    return nil
}
