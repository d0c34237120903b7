package booking

import (
    "context"
    "time"

    "github.com/iliyamo/resource-booking/internal/model"
)

// Event describes a reservation being created or changing status.  From is
// empty for creations.
type Event struct {
    ReservationID uint64
    UserID        uint64
    ResourceID    uint64
    From          model.Status
    To            model.Status
    Actor         ActorKind
    StartTime     time.Time
    EndTime       time.Time
    At            time.Time
}

// Observer is notified after a transition has been committed.  Observers
// run on the request goroutine and should return quickly; failures are
// theirs to log.
type Observer interface {
    ReservationChanged(ctx context.Context, ev Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, ev Event)

func (f ObserverFunc) ReservationChanged(ctx context.Context, ev Event) { f(ctx, ev) }
