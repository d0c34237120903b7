package booking

import (
    "time"

    "github.com/iliyamo/resource-booking/internal/model"
)

// ActorKind is the capacity in which a transition is requested.
type ActorKind int

const (
    // ActorOwner is the user who created the reservation.
    ActorOwner ActorKind = iota
    // ActorAdmin holds review capability.
    ActorAdmin
    // ActorSystem drives time-based transitions.
    ActorSystem
)

func (k ActorKind) String() string {
    switch k {
    case ActorOwner:
        return "owner"
    case ActorAdmin:
        return "admin"
    case ActorSystem:
        return "system"
    }
    return "unknown"
}

// Actor identifies who asks for a transition.
type Actor struct {
    UserID uint64
    Role   model.Role
}

// SystemActor is used by the completion sweep.
var SystemActor = Actor{}

// IsSystem reports whether a is the system actor.
func (a Actor) IsSystem() bool { return a.UserID == 0 && a.Role == "" }

// kindFor resolves the capacity an actor acts in for a given reservation.
// A user acting on a reservation that is not theirs has no owner rights.
func kindFor(a Actor, r model.Reservation, target model.Status) (ActorKind, error) {
    switch {
    case a.IsSystem():
        return ActorSystem, nil
    case a.Role == model.RoleAdmin && (target != model.StatusCancelled || a.UserID != r.UserID):
        return ActorAdmin, nil
    case a.UserID == r.UserID:
        return ActorOwner, nil
    }
    return 0, ErrNotOwner
}

// CheckTransition validates moving r to target on behalf of a at now.  It
// is the single state table for reservation status changes:
//
//	PENDING   owner  -> CANCELLED        (window not ended)
//	PENDING   admin  -> APPROVED|REJECTED (window not ended)
//	APPROVED  owner  -> CANCELLED        (window not ended)
//	APPROVED  system -> COMPLETED        (window ended)
//	terminal  admin  -> ARCHIVED
//	ended     admin  -> ARCHIVED
func CheckTransition(r model.Reservation, a Actor, target model.Status, now time.Time) error {
    if !target.Valid() {
        return ErrInvalidTransition
    }
    kind, err := kindFor(a, r, target)
    if err != nil {
        return err
    }
    ended := r.Ended(now)

    switch target {
    case model.StatusCancelled:
        if kind != ActorOwner {
            return ErrInvalidTransition
        }
        if !r.Status.Occupying() {
            return ErrNotCancellable
        }
        if ended {
            return ErrAlreadyPast
        }
        return nil

    case model.StatusApproved, model.StatusRejected:
        if kind != ActorAdmin || r.Status != model.StatusPending {
            return ErrInvalidTransition
        }
        if ended {
            return ErrAlreadyPast
        }
        return nil

    case model.StatusCompleted:
        if kind != ActorSystem || r.Status != model.StatusApproved || !ended {
            return ErrInvalidTransition
        }
        return nil

    case model.StatusArchived:
        if kind != ActorAdmin || r.Status == model.StatusArchived {
            return ErrInvalidTransition
        }
        if r.Status.Terminal() || ended {
            return nil
        }
        return ErrInvalidTransition
    }
    // PENDING is never a transition target; edits keep PENDING without one.
    return ErrInvalidTransition
}

// CheckPaymentTransition validates a payment status change.  NOT_REQUIRED
// and PAID are final; FAILED may be retried.
func CheckPaymentTransition(from, to model.PaymentStatus) error {
    if !to.Valid() {
        return ErrInvalidPaymentTransition
    }
    switch from {
    case model.PaymentPending:
        if to == model.PaymentPaid || to == model.PaymentFailed {
            return nil
        }
    case model.PaymentFailed:
        if to == model.PaymentPending || to == model.PaymentPaid {
            return nil
        }
    }
    return ErrInvalidPaymentTransition
}
