package queue

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "log"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"

    "github.com/iliyamo/resource-booking/internal/config"
    "github.com/iliyamo/resource-booking/internal/model"
)

// Inbox stores notification messages for users.
type Inbox interface {
    Create(ctx context.Context, m *model.Message) error
}

// Admins lists the accounts told about new sign-ups.
type Admins interface {
    ListAdminIDs(ctx context.Context) ([]uint64, error)
}

// Consumer reads reservation.transitioned events and writes one inbox
// message per event to the reservation owner.  With an admin directory it
// also reads user.registered and writes one message per administrator.
type Consumer struct {
    cfg    config.QueueConfig
    inbox  Inbox
    admins Admins
}

// NewConsumer wires the inbox writer.  admins may be nil, in which case
// the user queue is not consumed.
func NewConsumer(cfg config.QueueConfig, inbox Inbox, admins Admins) *Consumer {
    return &Consumer{cfg: withDefaults(cfg), inbox: inbox, admins: admins}
}

// Run consumes until ctx is cancelled, reconnecting with exponential
// backoff capped at 30s.
func (c *Consumer) Run(ctx context.Context) error {
    backoff := time.Second
    for {
        conn, err := amqp.DialConfig(c.cfg.URL, dialConfig(c.cfg.PublishTimeout))
        if err != nil {
            log.Printf("queue: consumer dial failed: %v; retrying in %s", err, backoff)
            if !sleep(ctx, backoff) {
                return ctx.Err()
            }
            if backoff < 30*time.Second {
                backoff *= 2
            }
            continue
        }
        backoff = time.Second

        err = c.consume(ctx, conn)
        _ = conn.Close()
        if ctx.Err() != nil {
            return ctx.Err()
        }
        log.Printf("queue: consume loop ended: %v; reconnecting", err)
        if !sleep(ctx, 2*time.Second) {
            return ctx.Err()
        }
    }
}

func (c *Consumer) consume(ctx context.Context, conn *amqp.Connection) error {
    ch, err := conn.Channel()
    if err != nil {
        return fmt.Errorf("channel open: %w", err)
    }
    defer func() { _ = ch.Close() }()

    if err := ch.Qos(50, 0, false); err != nil {
        log.Printf("queue: set QoS failed: %v", err)
    }
    transitions, err := subscribe(ch, c.cfg.TransitionQueue)
    if err != nil {
        return err
    }
    // a nil channel never fires, so without admins the user queue is idle
    var users <-chan amqp.Delivery
    if c.admins != nil && c.cfg.UserQueue != "" {
        if users, err = subscribe(ch, c.cfg.UserQueue); err != nil {
            return err
        }
    }

    for {
        select {
        case <-ctx.Done():
            return ctx.Err()
        case d, ok := <-transitions:
            if !ok {
                return errors.New("transition deliveries closed")
            }
            settle(d, c.Handle(ctx, d.Body))
        case d, ok := <-users:
            if !ok {
                return errors.New("user deliveries closed")
            }
            settle(d, c.HandleUserRegistered(ctx, d.Body))
        }
    }
}

func subscribe(ch *amqp.Channel, queue string) (<-chan amqp.Delivery, error) {
    if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
        return nil, fmt.Errorf("queue declare %s: %w", queue, err)
    }
    msgs, err := ch.Consume(queue, "", false, false, false, false, nil)
    if err != nil {
        return nil, fmt.Errorf("queue consume %s: %w", queue, err)
    }
    return msgs, nil
}

func settle(d amqp.Delivery, err error) {
    if err != nil {
        log.Printf("queue: handle %s message failed: %v", d.RoutingKey, err)
        _ = d.Nack(false, false) // drop; requeue would spin on a poison message
        return
    }
    _ = d.Ack(false)
}

// Handle decodes one transition event and stores the owner's message.
func (c *Consumer) Handle(ctx context.Context, body []byte) error {
    var ev TransitionEvent
    if err := json.Unmarshal(body, &ev); err != nil {
        return fmt.Errorf("unmarshal: %w", err)
    }
    if ev.UserID == 0 || ev.ReservationID == 0 {
        return fmt.Errorf("event %q missing user or reservation", ev.EventID)
    }
    m := messageFor(ev)
    if err := c.inbox.Create(ctx, &m); err != nil {
        return fmt.Errorf("store message: %w", err)
    }
    return nil
}

// HandleUserRegistered decodes one sign-up and writes a notice to every
// administrator other than the new user.
func (c *Consumer) HandleUserRegistered(ctx context.Context, body []byte) error {
    var ev UserRegisteredEvent
    if err := json.Unmarshal(body, &ev); err != nil {
        return fmt.Errorf("unmarshal: %w", err)
    }
    if ev.UserID == 0 || ev.Username == "" {
        return fmt.Errorf("event %q missing user", ev.EventID)
    }
    if c.admins == nil {
        return errors.New("no admin directory")
    }
    ids, err := c.admins.ListAdminIDs(ctx)
    if err != nil {
        return fmt.Errorf("list admins: %w", err)
    }
    notice := newUserMessage(ev)
    for _, id := range ids {
        if id == ev.UserID {
            continue
        }
        m := notice
        m.RecipientID = id
        if err := c.inbox.Create(ctx, &m); err != nil {
            return fmt.Errorf("store message for admin %d: %w", id, err)
        }
    }
    return nil
}

func newUserMessage(ev UserRegisteredEvent) model.Message {
    return model.Message{
        Subject: "NEW USER JOINED: " + ev.Username,
        Body: fmt.Sprintf("A new standard user has registered:\n\nUsername: %s\nEmail: %s\nJoined: %s",
            ev.Username, ev.Email, ev.JoinedAt.UTC().Format("2006-01-02 15:04")),
    }
}

func messageFor(ev TransitionEvent) model.Message {
    const layout = "2006-01-02 15:04 UTC"
    window := fmt.Sprintf("%s to %s", ev.StartTime.UTC().Format(layout), ev.EndTime.UTC().Format(layout))
    var subject, body string
    switch {
    case ev.From == model.StatusPending && ev.To == model.StatusPending:
        subject = fmt.Sprintf("Reservation #%d updated", ev.ReservationID)
        body = fmt.Sprintf("Your reservation now runs %s and is still awaiting review.", window)
    case ev.To == model.StatusPending:
        subject = fmt.Sprintf("Reservation #%d received", ev.ReservationID)
        body = fmt.Sprintf("Your reservation for %s is awaiting review.", window)
    case ev.To == model.StatusApproved:
        subject = fmt.Sprintf("Reservation #%d approved", ev.ReservationID)
        body = fmt.Sprintf("Your reservation for %s has been approved.", window)
    case ev.To == model.StatusRejected:
        subject = fmt.Sprintf("Reservation #%d rejected", ev.ReservationID)
        body = fmt.Sprintf("Your reservation for %s was rejected.", window)
    case ev.To == model.StatusCancelled:
        subject = fmt.Sprintf("Reservation #%d cancelled", ev.ReservationID)
        body = fmt.Sprintf("Your reservation for %s was cancelled.", window)
    case ev.To == model.StatusCompleted:
        subject = fmt.Sprintf("Reservation #%d completed", ev.ReservationID)
        body = fmt.Sprintf("Your reservation for %s has ended.", window)
    default:
        subject = fmt.Sprintf("Reservation #%d is now %s", ev.ReservationID, ev.To)
        body = fmt.Sprintf("Your reservation for %s changed status to %s.", window, ev.To)
    }
    return model.Message{RecipientID: ev.UserID, Subject: subject, Body: body}
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
