// Package booking decides whether reservations may be admitted against a
// resource's capacity and governs how reservations move through their
// lifecycle.  Persistence is reached only through the Store interface.
package booking

import (
    "errors"
    "fmt"
    "time"
)

var (
    // ErrInvalidWindow means start is not strictly before end.
    ErrInvalidWindow = errors.New("invalid window: start must be before end")
    // ErrResourceFullyBooked is matched by *FullyBookedError.
    ErrResourceFullyBooked = errors.New("resource fully booked")
    // ErrInvalidTransition means the actor may not move the reservation to the target status.
    ErrInvalidTransition = errors.New("invalid status transition")
    // ErrNotCancellable means the reservation is not PENDING or APPROVED.
    ErrNotCancellable = errors.New("reservation cannot be cancelled")
    // ErrAlreadyPast means the reservation window has already ended.
    ErrAlreadyPast = errors.New("reservation window has already ended")
    // ErrNotOwner means the actor does not own the reservation.
    ErrNotOwner = errors.New("reservation belongs to another user")
    // ErrNotEditable means only PENDING reservations may be edited.
    ErrNotEditable = errors.New("only pending reservations can be edited")
    // ErrResourceUnavailable means the resource is not offered for booking.
    ErrResourceUnavailable = errors.New("resource is not available for booking")
    // ErrPurposeRequired is returned when purpose is configured as mandatory.
    ErrPurposeRequired = errors.New("purpose is required")
    // ErrInvalidPaymentTransition means the payment status change is not allowed.
    ErrInvalidPaymentTransition = errors.New("invalid payment status transition")

    ErrResourceNotFound    = errors.New("resource not found")
    ErrReservationNotFound = errors.New("reservation not found")
)

// FullyBookedError reports a capacity rejection with the occupancy numbers
// needed for user-facing messaging.
type FullyBookedError struct {
    ResourceID uint64
    Booked     int
    Capacity   int
    Start      time.Time
    End        time.Time
}

func (e *FullyBookedError) Error() string {
    return fmt.Sprintf("resource %d fully booked between %s and %s (%d of %d units booked)",
        e.ResourceID, e.Start.UTC().Format(time.RFC3339), e.End.UTC().Format(time.RFC3339), e.Booked, e.Capacity)
}

// Is lets errors.Is(err, ErrResourceFullyBooked) match.
func (e *FullyBookedError) Is(target error) bool { return target == ErrResourceFullyBooked }
