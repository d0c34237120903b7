package booking

import (
    "context"
    "time"

    "github.com/iliyamo/resource-booking/internal/model"
)

// OverlapReader returns the reservations that occupy a resource during a
// window: same resource, status PENDING or APPROVED, and
// start < end AND end > start.  excludeID, when non-zero, is left out of
// the result.
type OverlapReader interface {
    OccupyingOverlaps(ctx context.Context, resourceID uint64, start, end time.Time, excludeID uint64) ([]model.Reservation, error)
}

// Tx is the unit of work in which an admission check and the write it
// guards must run.  Implementations lock the rows they return so that a
// concurrent Tx on the same resource waits.
type Tx interface {
    OverlapReader
    // LockResource loads the resource and holds it until the Tx ends.
    LockResource(ctx context.Context, resourceID uint64) (model.Resource, error)
    // LockReservation loads the reservation and holds it until the Tx ends.
    LockReservation(ctx context.Context, id uint64) (model.Reservation, error)
    InsertReservation(ctx context.Context, r *model.Reservation) error
    // UpdateReservationDetails persists resource, window and purpose.
    UpdateReservationDetails(ctx context.Context, r model.Reservation) error
    UpdateReservationStatus(ctx context.Context, id uint64, status model.Status) error
    UpdatePaymentStatus(ctx context.Context, id uint64, status model.PaymentStatus) error
}

// Store is the read side of the reservation data plus the ability to open
// a Tx.  The MySQL repository and the in-memory test store implement it.
type Store interface {
    OverlapReader
    GetResource(ctx context.Context, id uint64) (model.Resource, error)
    GetReservation(ctx context.Context, id uint64) (model.Reservation, error)
    ListReservationsByUser(ctx context.Context, userID uint64) ([]model.Reservation, error)
    ListReservations(ctx context.Context, status model.Status) ([]model.Reservation, error)
    // ExpiredApprovedIDs lists APPROVED reservations whose end is not after now.
    // A zero userID means every user.
    ExpiredApprovedIDs(ctx context.Context, userID uint64, now time.Time) ([]uint64, error)
    // WithTx runs fn in a transaction, committing when fn returns nil.
    WithTx(ctx context.Context, fn func(tx Tx) error) error
}
