package handler

import (
    "context"
    "time"

    "github.com/iliyamo/resource-booking/internal/booking"
    "github.com/iliyamo/resource-booking/internal/model"
)

// Bookings is the booking engine surface used by the HTTP layer;
// *booking.Service implements it.
type Bookings interface {
    Evaluate(ctx context.Context, resourceID uint64, start, end time.Time, excludeID uint64) (booking.Decision, error)
    AvailableQuantity(ctx context.Context, resourceID uint64, start, end time.Time) (int, error)
    Create(ctx context.Context, in booking.CreateInput) (model.Reservation, error)
    Edit(ctx context.Context, actor booking.Actor, id uint64, in booking.EditInput) (model.Reservation, error)
    Transition(ctx context.Context, actor booking.Actor, id uint64, target model.Status) (model.Reservation, error)
    Cancel(ctx context.Context, actor booking.Actor, id uint64) (model.Reservation, error)
    Get(ctx context.Context, actor booking.Actor, id uint64) (model.Reservation, error)
    ListForUser(ctx context.Context, userID uint64) ([]model.Reservation, error)
    ListAll(ctx context.Context, status model.Status) ([]model.Reservation, error)
    CompleteExpired(ctx context.Context, userID uint64) (int, error)
}

var _ Bookings = (*booking.Service)(nil)

// ResourceStore is the resource ledger; *repository.ResourceRepo implements it.
type ResourceStore interface {
    Create(ctx context.Context, res *model.Resource) error
    GetByID(ctx context.Context, id uint64) (model.Resource, error)
    List(ctx context.Context, availableOnly bool) ([]model.Resource, error)
    Update(ctx context.Context, res *model.Resource) error
}
