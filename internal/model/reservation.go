package model

import "time"

// Status is the lifecycle state of a reservation.  The string values are
// persisted as-is in reservations.status.
type Status string

const (
    StatusPending   Status = "PENDING"
    StatusApproved  Status = "APPROVED"
    StatusRejected  Status = "REJECTED"
    StatusCancelled Status = "CANCELLED"
    StatusArchived  Status = "ARCHIVED"
    StatusCompleted Status = "COMPLETED"
)

// OccupyingStatuses lists the statuses that count against resource capacity.
var OccupyingStatuses = []Status{StatusPending, StatusApproved}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
    switch s {
    case StatusPending, StatusApproved, StatusRejected, StatusCancelled, StatusArchived, StatusCompleted:
        return true
    }
    return false
}

// Occupying reports whether a reservation in this status holds a unit of its resource.
func (s Status) Occupying() bool { return s == StatusPending || s == StatusApproved }

// Terminal reports whether no further lifecycle transition is allowed, apart
// from archival bookkeeping.
func (s Status) Terminal() bool {
    switch s {
    case StatusRejected, StatusCancelled, StatusArchived, StatusCompleted:
        return true
    }
    return false
}

// PaymentStatus tracks settlement of a paid reservation.
type PaymentStatus string

const (
    PaymentNotRequired PaymentStatus = "NOT_REQUIRED"
    PaymentPending     PaymentStatus = "PENDING"
    PaymentPaid        PaymentStatus = "PAID"
    PaymentFailed      PaymentStatus = "FAILED"
)

// Valid reports whether p is a known payment status.
func (p PaymentStatus) Valid() bool {
    switch p {
    case PaymentNotRequired, PaymentPending, PaymentPaid, PaymentFailed:
        return true
    }
    return false
}

// Reservation is a user's request to hold one unit of a resource for the
// half-open window [StartTime, EndTime).
//
// Fields:
//  ID            – primary key identifier.
//  UserID        – user who requested the reservation.
//  ResourceID    – resource being reserved.
//  StartTime     – start of the window (inclusive).
//  EndTime       – end of the window (exclusive).
//  Status        – lifecycle state.
//  PaymentStatus – settlement state.
//  Purpose       – optional free text.
//  CreatedAt     – immutable creation timestamp.
//  UpdatedAt     – last update timestamp.
type Reservation struct {
    ID            uint64        // reservations.id
    UserID        uint64        // reservations.user_id
    ResourceID    uint64        // reservations.resource_id
    StartTime     time.Time     // reservations.start_time
    EndTime       time.Time     // reservations.end_time
    Status        Status        // reservations.status
    PaymentStatus PaymentStatus // reservations.payment_status
    Purpose       string        // reservations.purpose
    CreatedAt     time.Time     // reservations.created_at
    UpdatedAt     time.Time     // reservations.updated_at
}

// Ended reports whether the reservation window is over at now.
func (r Reservation) Ended(now time.Time) bool { return !r.EndTime.After(now) }
