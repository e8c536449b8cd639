package queue

import (
    "context"
    "encoding/json"
    "errors"
    "log"
    "sync"
    "time"

    "github.com/avast/retry-go/v4"
    amqp "github.com/rabbitmq/amqp091-go"
    "github.com/sourcegraph/conc"
)

// Publisher sends domain events.  Callers treat failures as non-fatal: the
// state change has already committed when an event is published.
type Publisher interface {
    Publish(ctx context.Context, ev Event) error
}

// NopPublisher drops every event.  Used when events are disabled.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }

// MemoryPublisher keeps events in memory; handy for local runs and tests.
type MemoryPublisher struct {
    mu     sync.Mutex
    events []Event
}

func (m *MemoryPublisher) Publish(_ context.Context, ev Event) error {
    m.mu.Lock()
    defer m.mu.Unlock()
    m.events = append(m.events, ev)
    return nil
}

// Events returns a copy of everything published so far.
func (m *MemoryPublisher) Events() []Event {
    m.mu.Lock()
    defer m.mu.Unlock()
    return append([]Event(nil), m.events...)
}

// Types returns the published event types in order.
func (m *MemoryPublisher) Types() []EventType {
    var out []EventType
    for _, ev := range m.Events() {
        out = append(out, ev.Type)
    }
    return out
}

// Errors returned by AMQPPublisher.Publish.
var (
    ErrPublisherFull   = errors.New("event buffer full")
    ErrPublisherClosed = errors.New("publisher closed")
)

// DefaultPublishBuffer is the number of events held while the broker is
// slow or unreachable.
const DefaultPublishBuffer = 256

// AMQPPublisher publishes JSON events to a durable topic exchange, keyed by
// event type.  Publish only enqueues; a single background loop owns the
// connection, dials lazily and re-dials after a failure, so a slow or absent
// broker never delays the request that produced the event.  Events that
// cannot be delivered are logged and dropped.
type AMQPPublisher struct {
    url      string
    exchange string

    events    chan Event
    done      chan struct{}
    closeOnce sync.Once
    ctx       context.Context
    cancel    context.CancelFunc
    wg        conc.WaitGroup

    // owned by the loop goroutine
    conn *amqp.Connection
    ch   *amqp.Channel
}

// NewAMQPPublisher starts the delivery loop.  buffer <= 0 selects
// DefaultPublishBuffer.  Call Close to flush and stop.
func NewAMQPPublisher(url, exchange string, buffer int) *AMQPPublisher {
    if buffer <= 0 {
        buffer = DefaultPublishBuffer
    }
    ctx, cancel := context.WithCancel(context.Background())
    p := &AMQPPublisher{
        url:      url,
        exchange: exchange,
        events:   make(chan Event, buffer),
        done:     make(chan struct{}),
        ctx:      ctx,
        cancel:   cancel,
    }
    p.wg.Go(p.loop)
    return p
}

// declareExchange is shared with the consumer so both sides agree on the
// topology.
func declareExchange(ch *amqp.Channel, name string) error {
    return ch.ExchangeDeclare(
        name,    // name
        "topic", // kind
        true,    // durable
        false,   // autoDelete
        false,   // internal
        false,   // noWait
        nil,     // args
    )
}

// Publish enqueues ev without blocking.  It fails only when the buffer is
// full or the publisher is closed.
func (p *AMQPPublisher) Publish(_ context.Context, ev Event) error {
    select {
    case <-p.done:
        return ErrPublisherClosed
    default:
    }
    select {
    case p.events <- ev:
        return nil
    default:
        return ErrPublisherFull
    }
}

func (p *AMQPPublisher) loop() {
    for {
        select {
        case <-p.done:
            for {
                select {
                case ev := <-p.events:
                    p.send(ev)
                default:
                    p.reset()
                    return
                }
            }
        case ev := <-p.events:
            p.send(ev)
        }
    }
}

func (p *AMQPPublisher) send(ev Event) {
    body, err := json.Marshal(ev)
    if err != nil {
        log.Printf("rabbitmq: encode %s: %v", ev.Type, err)
        return
    }
    ch, err := p.channel()
    if err != nil {
        log.Printf("rabbitmq: connect failed, dropping %s for reservation %d: %v", ev.Type, ev.ReservationID, err)
        return
    }
    pub := amqp.Publishing{
        ContentType:  "application/json",
        DeliveryMode: amqp.Persistent, // store on disk
        MessageId:    ev.ID.String(),
        Timestamp:    time.Now().UTC(),
        Type:         string(ev.Type),
        Body:         body,
    }
    ctx, cancel := context.WithTimeout(p.ctx, 5*time.Second)
    defer cancel()
    if err := ch.PublishWithContext(ctx, p.exchange, string(ev.Type), false, false, pub); err != nil {
        log.Printf("rabbitmq: publish %s failed: %v", ev.Type, err)
        p.reset()
    }
}

func (p *AMQPPublisher) channel() (*amqp.Channel, error) {
    if p.ch != nil && !p.ch.IsClosed() {
        return p.ch, nil
    }
    p.reset()
    return retry.DoWithData(func() (*amqp.Channel, error) {
        conn, err := amqp.Dial(p.url)
        if err != nil {
            return nil, err
        }
        ch, err := conn.Channel()
        if err != nil {
            _ = conn.Close()
            return nil, err
        }
        if err := declareExchange(ch, p.exchange); err != nil {
            _ = conn.Close()
            return nil, err
        }
        p.conn, p.ch = conn, ch
        return ch, nil
    },
        retry.Context(p.ctx),
        retry.Attempts(3),
        retry.Delay(200*time.Millisecond),
        retry.LastErrorOnly(true),
    )
}

func (p *AMQPPublisher) reset() {
    if p.ch != nil {
        _ = p.ch.Close()
    }
    if p.conn != nil {
        _ = p.conn.Close()
    }
    p.ch, p.conn = nil, nil
}

// Close stops accepting events, delivers what is still buffered and
// releases the broker connection.  It is safe to call more than once.
func (p *AMQPPublisher) Close() error {
    p.closeOnce.Do(func() {
        close(p.done)
        p.wg.Wait()
        p.cancel()
    })
    return nil
}
