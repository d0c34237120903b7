package booking

import (
    "context"
    "errors"
    "log"
    "strings"
    "time"

    "github.com/iliyamo/resource-booking/internal/model"
)

// Options tune admission behaviour.
type Options struct {
    // PurposeRequired rejects reservations with an empty purpose.
    PurposeRequired bool
    // AutoApproveFree creates reservations on free resources as APPROVED.
    AutoApproveFree bool
    // CompleteOnRead completes ended APPROVED reservations when an owner lists them.
    CompleteOnRead bool
}

// Service is the entry point used by request handlers, the payment layer
// and the sweeper.  Every write goes through a Store transaction; admission
// additionally holds the per-resource Locker.
type Service struct {
    store     Store
    locker    Locker
    opts      Options
    observers []Observer
    now       func() time.Time
}

// NewService wires a Service.  A nil locker falls back to a LocalLocker.
func NewService(store Store, locker Locker, opts Options, observers ...Observer) *Service {
    if store == nil {
        panic("nil store passed to booking.NewService")
    }
    if locker == nil {
        locker = NewLocalLocker()
    }
    return &Service{store: store, locker: locker, opts: opts, observers: observers, now: func() time.Time { return time.Now().UTC() }}
}

// SetClock overrides the time source.
func (s *Service) SetClock(now func() time.Time) { s.now = now }

// CreateInput is a new reservation request.
type CreateInput struct {
    UserID     uint64
    ResourceID uint64
    Start      time.Time
    End        time.Time
    Purpose    string
}

// EditInput changes the window, resource or purpose of a PENDING
// reservation.  A zero ResourceID keeps the current resource.
type EditInput struct {
    ResourceID uint64
    Start      time.Time
    End        time.Time
    Purpose    string
}

// Evaluate returns the admission verdict for a candidate window without
// writing anything.
func (s *Service) Evaluate(ctx context.Context, resourceID uint64, start, end time.Time, excludeID uint64) (Decision, error) {
    w, err := NewWindow(start, end)
    if err != nil {
        return Decision{}, err
    }
    res, err := s.store.GetResource(ctx, resourceID)
    if err != nil {
        return Decision{}, err
    }
    return Evaluate(ctx, s.store, res, w.Start, w.End, excludeID)
}

// AvailableQuantity returns the number of free units of a resource in the window.
func (s *Service) AvailableQuantity(ctx context.Context, resourceID uint64, start, end time.Time) (int, error) {
    w, err := NewWindow(start, end)
    if err != nil {
        return 0, err
    }
    res, err := s.store.GetResource(ctx, resourceID)
    if err != nil {
        return 0, err
    }
    return Available(ctx, s.store, res, w.Start, w.End)
}

// Create admits and stores a new reservation.  The capacity check and the
// insert share one transaction under the resource lock.
func (s *Service) Create(ctx context.Context, in CreateInput) (model.Reservation, error) {
    w, err := NewWindow(in.Start, in.End)
    if err != nil {
        return model.Reservation{}, err
    }
    if !w.End.After(s.now()) {
        return model.Reservation{}, ErrAlreadyPast
    }
    purpose := strings.TrimSpace(in.Purpose)
    if s.opts.PurposeRequired && purpose == "" {
        return model.Reservation{}, ErrPurposeRequired
    }

    unlock, err := s.locker.Lock(ctx, in.ResourceID)
    if err != nil {
        return model.Reservation{}, err
    }
    defer unlock()

    var created model.Reservation
    err = s.store.WithTx(ctx, func(tx Tx) error {
        res, err := tx.LockResource(ctx, in.ResourceID)
        if err != nil {
            return err
        }
        if !res.IsAvailable {
            return ErrResourceUnavailable
        }
        d, err := Evaluate(ctx, tx, res, w.Start, w.End, 0)
        if err != nil {
            return err
        }
        if !d.Admit {
            return d.Err()
        }
        r := model.Reservation{
            UserID:        in.UserID,
            ResourceID:    res.ID,
            StartTime:     w.Start,
            EndTime:       w.End,
            Status:        model.StatusPending,
            PaymentStatus: initialPaymentStatus(res),
            Purpose:       purpose,
        }
        if s.opts.AutoApproveFree && !res.RequiresPayment() {
            r.Status = model.StatusApproved
        }
        if err := tx.InsertReservation(ctx, &r); err != nil {
            return err
        }
        created = r
        return nil
    })
    if err != nil {
        return model.Reservation{}, err
    }
    s.notify(ctx, created, "", ActorOwner)
    return created, nil
}

// Edit changes a PENDING reservation owned by actor.  The resolver runs
// again with the reservation itself excluded and the status stays PENDING.
// Observers see the edit as a PENDING to PENDING event.
func (s *Service) Edit(ctx context.Context, actor Actor, id uint64, in EditInput) (model.Reservation, error) {
    w, err := NewWindow(in.Start, in.End)
    if err != nil {
        return model.Reservation{}, err
    }
    if !w.End.After(s.now()) {
        return model.Reservation{}, ErrAlreadyPast
    }
    purpose := strings.TrimSpace(in.Purpose)
    if s.opts.PurposeRequired && purpose == "" {
        return model.Reservation{}, ErrPurposeRequired
    }
    current, err := s.store.GetReservation(ctx, id)
    if err != nil {
        return model.Reservation{}, err
    }
    target := in.ResourceID
    if target == 0 {
        target = current.ResourceID
    }

    unlock, err := s.locker.Lock(ctx, target)
    if err != nil {
        return model.Reservation{}, err
    }
    defer unlock()

    var updated model.Reservation
    err = s.store.WithTx(ctx, func(tx Tx) error {
        res, err := tx.LockResource(ctx, target)
        if err != nil {
            return err
        }
        r, err := tx.LockReservation(ctx, id)
        if err != nil {
            return err
        }
        if r.UserID != actor.UserID {
            return ErrNotOwner
        }
        if r.Status != model.StatusPending {
            return ErrNotEditable
        }
        if !res.IsAvailable {
            return ErrResourceUnavailable
        }
        d, err := Evaluate(ctx, tx, res, w.Start, w.End, r.ID)
        if err != nil {
            return err
        }
        if !d.Admit {
            return d.Err()
        }
        moved := r.ResourceID != res.ID
        r.ResourceID = res.ID
        r.StartTime = w.Start
        r.EndTime = w.End
        r.Purpose = purpose
        if err := tx.UpdateReservationDetails(ctx, r); err != nil {
            return err
        }
        if moved && r.PaymentStatus != model.PaymentPaid {
            if ps := initialPaymentStatus(res); ps != r.PaymentStatus {
                if err := tx.UpdatePaymentStatus(ctx, r.ID, ps); err != nil {
                    return err
                }
                r.PaymentStatus = ps
            }
        }
        updated = r
        return nil
    })
    if err != nil {
        return model.Reservation{}, err
    }
    s.notify(ctx, updated, model.StatusPending, ActorOwner)
    return updated, nil
}

// Transition applies a lifecycle change checked against CheckTransition.
// Refused transitions are logged and returned, never applied.
func (s *Service) Transition(ctx context.Context, actor Actor, id uint64, target model.Status) (model.Reservation, error) {
    var (
        before model.Reservation
        after  model.Reservation
        kind   ActorKind
    )
    err := s.store.WithTx(ctx, func(tx Tx) error {
        r, err := tx.LockReservation(ctx, id)
        if err != nil {
            return err
        }
        if err := CheckTransition(r, actor, target, s.now()); err != nil {
            log.Printf("booking: refused %s -> %s on reservation %d by user %d (%s): %v",
                r.Status, target, r.ID, actor.UserID, actor.Role, err)
            return err
        }
        kind, _ = kindFor(actor, r, target)
        if err := tx.UpdateReservationStatus(ctx, r.ID, target); err != nil {
            return err
        }
        before = r
        after = r
        after.Status = target
        return nil
    })
    if err != nil {
        return model.Reservation{}, err
    }
    s.notify(ctx, after, before.Status, kind)
    return after, nil
}

// Cancel is the owner cancellation shortcut.
func (s *Service) Cancel(ctx context.Context, actor Actor, id uint64) (model.Reservation, error) {
    return s.Transition(ctx, actor, id, model.StatusCancelled)
}

// Get returns a reservation visible to actor: their own, or any for admins.
func (s *Service) Get(ctx context.Context, actor Actor, id uint64) (model.Reservation, error) {
    r, err := s.store.GetReservation(ctx, id)
    if err != nil {
        return model.Reservation{}, err
    }
    if actor.Role != model.RoleAdmin && r.UserID != actor.UserID {
        return model.Reservation{}, ErrNotOwner
    }
    return r, nil
}

// ListForUser returns the user's reservations.  With CompleteOnRead set,
// ended APPROVED reservations are completed first.
func (s *Service) ListForUser(ctx context.Context, userID uint64) ([]model.Reservation, error) {
    if s.opts.CompleteOnRead {
        if _, err := s.CompleteExpired(ctx, userID); err != nil {
            return nil, err
        }
    }
    return s.store.ListReservationsByUser(ctx, userID)
}

// ListAll returns every reservation, optionally filtered by status.
func (s *Service) ListAll(ctx context.Context, status model.Status) ([]model.Reservation, error) {
    return s.store.ListReservations(ctx, status)
}

// CompleteExpired moves ended APPROVED reservations to COMPLETED.  A zero
// userID sweeps all users.  It returns how many were completed.
func (s *Service) CompleteExpired(ctx context.Context, userID uint64) (int, error) {
    ids, err := s.store.ExpiredApprovedIDs(ctx, userID, s.now())
    if err != nil {
        return 0, err
    }
    n := 0
    for _, id := range ids {
        if _, err := s.Transition(ctx, SystemActor, id, model.StatusCompleted); err != nil {
            // A concurrent cancel or sweep got there first.
            if errors.Is(err, ErrInvalidTransition) || errors.Is(err, ErrReservationNotFound) {
                continue
            }
            return n, err
        }
        n++
    }
    return n, nil
}

// SetPaymentStatus records a settlement outcome for a reservation.
func (s *Service) SetPaymentStatus(ctx context.Context, id uint64, status model.PaymentStatus) (model.Reservation, error) {
    var updated model.Reservation
    err := s.store.WithTx(ctx, func(tx Tx) error {
        r, err := tx.LockReservation(ctx, id)
        if err != nil {
            return err
        }
        if err := CheckPaymentTransition(r.PaymentStatus, status); err != nil {
            return err
        }
        if err := tx.UpdatePaymentStatus(ctx, r.ID, status); err != nil {
            return err
        }
        r.PaymentStatus = status
        updated = r
        return nil
    })
    return updated, err
}

func (s *Service) notify(ctx context.Context, r model.Reservation, from model.Status, kind ActorKind) {
    if len(s.observers) == 0 {
        return
    }
    ev := Event{
        ReservationID: r.ID,
        UserID:        r.UserID,
        ResourceID:    r.ResourceID,
        From:          from,
        To:            r.Status,
        Actor:         kind,
        StartTime:     r.StartTime,
        EndTime:       r.EndTime,
        At:            s.now(),
    }
    for _, o := range s.observers {
        o.ReservationChanged(ctx, ev)
    }
}

func initialPaymentStatus(res model.Resource) model.PaymentStatus {
    if res.RequiresPayment() {
        return model.PaymentPending
    }
    return model.PaymentNotRequired
}
