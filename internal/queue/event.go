// Package queue carries reservation lifecycle, new-user and payment events
// over RabbitMQ.  Publishing never blocks a request on broker failures; the
// consumer turns lifecycle and new-user events into inbox messages.
package queue

import (
    "time"

    "github.com/google/uuid"

    "github.com/iliyamo/resource-booking/internal/booking"
    "github.com/iliyamo/resource-booking/internal/model"
)

// TransitionEvent is published after a reservation is created or changes
// status.  From is empty for a new reservation.
type TransitionEvent struct {
    EventID       string       `json:"event_id"`
    ReservationID uint64       `json:"reservation_id"`
    UserID        uint64       `json:"user_id"`
    ResourceID    uint64       `json:"resource_id"`
    From          model.Status `json:"from,omitempty"`
    To            model.Status `json:"to"`
    Actor         string       `json:"actor"`
    StartTime     time.Time    `json:"start_time"`
    EndTime       time.Time    `json:"end_time"`
    OccurredAt    time.Time    `json:"occurred_at"`
}

// UserRegisteredEvent is published when a new account signs up so that
// administrators can be told about it.
type UserRegisteredEvent struct {
    EventID  string    `json:"event_id"`
    UserID   uint64    `json:"user_id"`
    Username string    `json:"username"`
    Email    string    `json:"email"`
    JoinedAt time.Time `json:"joined_at"`
}

// PaymentRequestedEvent asks the payment gateway worker to push a
// mobile-money prompt to the payer's phone.
type PaymentRequestedEvent struct {
    EventID       string      `json:"event_id"`
    Reference     string      `json:"reference"`
    ReservationID uint64      `json:"reservation_id"`
    UserID        uint64      `json:"user_id"`
    PhoneNumber   string      `json:"phone_number"`
    Amount        model.Money `json:"amount"`
    AccountRef    string      `json:"account_ref"`
    RequestedAt   time.Time   `json:"requested_at"`
}

func newTransitionEvent(ev booking.Event) TransitionEvent {
    return TransitionEvent{
        EventID:       uuid.NewString(),
        ReservationID: ev.ReservationID,
        UserID:        ev.UserID,
        ResourceID:    ev.ResourceID,
        From:          ev.From,
        To:            ev.To,
        Actor:         ev.Actor.String(),
        StartTime:     ev.StartTime.UTC(),
        EndTime:       ev.EndTime.UTC(),
        OccurredAt:    ev.At.UTC(),
    }
}
