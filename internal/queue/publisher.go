package queue

import (
    "context"
    "encoding/json"
    "fmt"
    "log"
    "sync"
    "time"

    "github.com/google/uuid"
    amqp "github.com/rabbitmq/amqp091-go"

    "github.com/iliyamo/resource-booking/internal/booking"
    "github.com/iliyamo/resource-booking/internal/config"
)

// channel is the subset of *amqp.Channel used for publishing.
type channel interface {
    QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
    PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
    Close() error
}

type dialFunc func() (channel, func(), error)

// Publisher keeps one broker connection open and reopens it after a
// failed publish.  It implements booking.Observer.
type Publisher struct {
    cfg  config.QueueConfig
    dial dialFunc

    mu       sync.Mutex
    ch       channel
    closeFn  func()
    declared map[string]bool
}

var _ booking.Observer = (*Publisher)(nil)

// NewPublisher returns a Publisher that dials cfg.URL lazily.  The dial and
// AMQP handshake are bounded by cfg.PublishTimeout so an unreachable broker
// cannot hold a request for the library's 30s default.
func NewPublisher(cfg config.QueueConfig) *Publisher {
    cfg = withDefaults(cfg)
    return newPublisher(cfg, func() (channel, func(), error) {
        conn, err := amqp.DialConfig(cfg.URL, dialConfig(cfg.PublishTimeout))
        if err != nil {
            return nil, nil, err
        }
        ch, err := conn.Channel()
        if err != nil {
            _ = conn.Close()
            return nil, nil, err
        }
        return ch, func() { _ = conn.Close() }, nil
    })
}

func newPublisher(cfg config.QueueConfig, dial dialFunc) *Publisher {
    return &Publisher{cfg: withDefaults(cfg), dial: dial, declared: map[string]bool{}}
}

func withDefaults(cfg config.QueueConfig) config.QueueConfig {
    if cfg.PublishTimeout <= 0 {
        cfg.PublishTimeout = 3 * time.Second
    }
    return cfg
}

// dialConfig mirrors amqp.Dial's defaults with a bounded TCP dial.
// amqp.DefaultDial also applies the timeout as the handshake deadline.
func dialConfig(timeout time.Duration) amqp.Config {
    return amqp.Config{
        Heartbeat: 10 * time.Second,
        Locale:    "en_US",
        Dial:      amqp.DefaultDial(timeout),
    }
}

// Publish sends v as a persistent JSON message to the named durable queue.
func (p *Publisher) Publish(ctx context.Context, queue string, v interface{}) error {
    body, err := json.Marshal(v)
    if err != nil {
        return fmt.Errorf("marshal %s event: %w", queue, err)
    }
    ctx, cancel := context.WithTimeout(ctx, p.cfg.PublishTimeout)
    defer cancel()

    p.mu.Lock()
    defer p.mu.Unlock()
    if err := p.connectLocked(); err != nil {
        return err
    }
    if !p.declared[queue] {
        if _, err := p.ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
            p.resetLocked()
            return fmt.Errorf("queue declare %s: %w", queue, err)
        }
        p.declared[queue] = true
    }
    err = p.ch.PublishWithContext(ctx, "", queue, false, false, amqp.Publishing{
        ContentType:  "application/json",
        DeliveryMode: amqp.Persistent,
        MessageId:    uuid.NewString(),
        Timestamp:    time.Now().UTC(),
        Body:         body,
    })
    if err != nil {
        p.resetLocked()
        return fmt.Errorf("publish %s: %w", queue, err)
    }
    return nil
}

// ReservationChanged publishes the lifecycle event.  Failures are logged
// only; the reservation change itself is already committed.
func (p *Publisher) ReservationChanged(ctx context.Context, ev booking.Event) {
    if err := p.Publish(ctx, p.cfg.TransitionQueue, newTransitionEvent(ev)); err != nil {
        log.Printf("queue: reservation %d %s->%s not published: %v", ev.ReservationID, ev.From, ev.To, err)
    }
}

// UserRegistered announces a new account on the user queue.
func (p *Publisher) UserRegistered(ctx context.Context, ev UserRegisteredEvent) error {
    if ev.EventID == "" {
        ev.EventID = uuid.NewString()
    }
    if ev.JoinedAt.IsZero() {
        ev.JoinedAt = time.Now().UTC()
    }
    return p.Publish(ctx, p.cfg.UserQueue, ev)
}

// PaymentRequested publishes a payment request for the gateway worker.
func (p *Publisher) PaymentRequested(ctx context.Context, ev PaymentRequestedEvent) error {
    if ev.EventID == "" {
        ev.EventID = uuid.NewString()
    }
    return p.Publish(ctx, p.cfg.PaymentQueue, ev)
}

// Close releases the broker connection.
func (p *Publisher) Close() {
    p.mu.Lock()
    defer p.mu.Unlock()
    p.resetLocked()
}

func (p *Publisher) connectLocked() error {
    if p.ch != nil {
        return nil
    }
    ch, closeFn, err := p.dial()
    if err != nil {
        return fmt.Errorf("rabbitmq dial: %w", err)
    }
    p.ch, p.closeFn = ch, closeFn
    p.declared = map[string]bool{}
    return nil
}

func (p *Publisher) resetLocked() {
    if p.ch != nil {
        _ = p.ch.Close()
    }
    if p.closeFn != nil {
        p.closeFn()
    }
    p.ch, p.closeFn = nil, nil
}
