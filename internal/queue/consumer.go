package queue

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "io"
    "log"
    "strings"
    "sync"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
    "gopkg.in/natefinch/lumberjack.v2"
)

// NewActivityLog returns a size-rotated log file for activity lines.
func NewActivityLog(path string) *lumberjack.Logger {
    return &lumberjack.Logger{
        Filename:   path,
        MaxSize:    10, // megabytes
        MaxBackups: 5,
        MaxAge:     28, // days
    }
}

// ActivityConsumer binds a durable queue to every event on the exchange and
// appends one human-readable line per event to out.
type ActivityConsumer struct {
    url      string
    exchange string
    queue    string

    mu  sync.Mutex
    out io.Writer
}

func NewActivityConsumer(url, exchange, queue string, out io.Writer) *ActivityConsumer {
    return &ActivityConsumer{url: url, exchange: exchange, queue: queue, out: out}
}

// Run consumes until ctx is cancelled, reconnecting with exponential
// backoff when the broker is unreachable or the delivery channel closes.
func (c *ActivityConsumer) Run(ctx context.Context) error {
    backoff := time.Second
    for {
        if ctx.Err() != nil {
            return ctx.Err()
        }
        conn, err := amqp.Dial(c.url)
        if err != nil {
            log.Printf("activity-consumer: failed to dial broker: %v; retrying in %s", err, backoff)
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
        log.Printf("activity-consumer: consume loop ended: %v; reconnecting", err)
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

func (c *ActivityConsumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
    ch, err := conn.Channel()
    if err != nil {
        return fmt.Errorf("channel open: %w", err)
    }
    defer func() { _ = ch.Close() }()

    if err := ch.Qos(50, 0, false); err != nil {
        log.Printf("activity-consumer: set QoS failed: %v", err)
    }
    if err := declareExchange(ch, c.exchange); err != nil {
        return fmt.Errorf("exchange declare: %w", err)
    }
    if _, err := ch.QueueDeclare(c.queue, true, false, false, false, nil); err != nil {
        return fmt.Errorf("queue declare: %w", err)
    }
    if err := ch.QueueBind(c.queue, "#", c.exchange, false, nil); err != nil {
        return fmt.Errorf("queue bind: %w", err)
    }
    msgs, err := ch.Consume(c.queue, "", false, false, false, false, nil)
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
            if err := c.Handle(d.Body); err != nil {
                log.Printf("activity-consumer: handle message failed: %v", err)
                _ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
                continue
            }
            _ = d.Ack(false)
        }
    }
}

// Handle decodes one message body and writes its activity line.
func (c *ActivityConsumer) Handle(body []byte) error {
    var ev Event
    if err := json.Unmarshal(body, &ev); err != nil {
        return fmt.Errorf("unmarshal: %w", err)
    }
    if ev.Type == "" {
        return errors.New("event without type")
    }
    c.mu.Lock()
    defer c.mu.Unlock()
    if _, err := io.WriteString(c.out, FormatActivity(ev)+"\n"); err != nil {
        return fmt.Errorf("write log: %w", err)
    }
    return nil
}

// FormatActivity renders ev as a single line of key=value pairs.
func FormatActivity(ev Event) string {
    var b strings.Builder
    fmt.Fprintf(&b, "[%s] %s | reservation_id=%d", ev.OccurredAt, ev.Type, ev.ReservationID)
    if ev.ActorID != 0 {
        fmt.Fprintf(&b, " | actor_id=%d", ev.ActorID)
    }
    if ev.UserID != 0 {
        fmt.Fprintf(&b, " | user_id=%d", ev.UserID)
    }
    if ev.CourtID != 0 {
        fmt.Fprintf(&b, " | court_id=%d", ev.CourtID)
    }
    if ev.Name != "" {
        fmt.Fprintf(&b, " | name=%q", ev.Name)
    }
    if ev.StartsAt != "" {
        fmt.Fprintf(&b, " | span=%s/%s", ev.StartsAt, ev.EndsAt)
    }
    if ev.Email != "" {
        fmt.Fprintf(&b, " | email=%s", ev.Email)
    }
    if ev.Via != "" {
        fmt.Fprintf(&b, " | via=%s", ev.Via)
    }
    if ev.Field != "" && ev.Value != nil {
        fmt.Fprintf(&b, " | %s=%t", ev.Field, *ev.Value)
    }
    return b.String()
}
