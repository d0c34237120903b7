// Package service holds application services that sit on top of the
// booking engine.  PaymentService drives mobile-money settlement of paid
// reservations: it records each attempt, hands it to the gateway worker
// through the queue and applies the gateway's callback.
package service

import (
    "context"
    "errors"
    "fmt"
    "log"
    "strings"
    "time"

    "github.com/google/uuid"

    "github.com/iliyamo/resource-booking/internal/booking"
    "github.com/iliyamo/resource-booking/internal/config"
    "github.com/iliyamo/resource-booking/internal/model"
    "github.com/iliyamo/resource-booking/internal/queue"
    "github.com/iliyamo/resource-booking/internal/repository"
)

var (
    ErrInvalidPhone       = errors.New("invalid phone number")
    ErrInvalidAmount      = errors.New("amount out of range")
    ErrPaymentNotRequired = errors.New("reservation does not require payment")
    ErrAlreadyPaid        = errors.New("reservation already paid")
    ErrNotPayable         = errors.New("reservation is not active")
    ErrAlreadyResolved    = errors.New("payment already resolved")
    ErrPaymentNotFound    = errors.New("payment not found")
    ErrGatewayUnavailable = errors.New("payment gateway unavailable")
)

// Reservations is the part of booking.Service payments rely on.
type Reservations interface {
    Get(ctx context.Context, actor booking.Actor, id uint64) (model.Reservation, error)
    SetPaymentStatus(ctx context.Context, id uint64, status model.PaymentStatus) (model.Reservation, error)
}

// Resources loads the resource a reservation points at.
type Resources interface {
    GetByID(ctx context.Context, id uint64) (model.Resource, error)
}

// Transactions persists payment attempts.
type Transactions interface {
    Create(ctx context.Context, p *model.PaymentTransaction) error
    GetByReference(ctx context.Context, ref string) (model.PaymentTransaction, error)
    Resolve(ctx context.Context, ref string, status model.TransactionStatus, externalID string) error
    ListByReservation(ctx context.Context, reservationID uint64) ([]model.PaymentTransaction, error)
}

// Gateway accepts payment requests for asynchronous delivery.
type Gateway interface {
    PaymentRequested(ctx context.Context, ev queue.PaymentRequestedEvent) error
}

type PaymentService struct {
    cfg          config.PaymentConfig
    reservations Reservations
    resources    Resources
    txs          Transactions
    gateway      Gateway
    now          func() time.Time
}

func NewPaymentService(cfg config.PaymentConfig, reservations Reservations, resources Resources, txs Transactions, gateway Gateway) *PaymentService {
    if reservations == nil || resources == nil || txs == nil || gateway == nil {
        panic("nil dependency passed to NewPaymentService")
    }
    return &PaymentService{cfg: cfg, reservations: reservations, resources: resources, txs: txs, gateway: gateway,
        now: func() time.Time { return time.Now().UTC() }}
}

// NormalizePhone strips spaces, dashes and a leading '+', then checks the
// configured country prefix and length.
func (s *PaymentService) NormalizePhone(raw string) (string, error) {
    phone := strings.NewReplacer(" ", "", "-", "", "+", "").Replace(strings.TrimSpace(raw))
    if phone == "" {
        return "", fmt.Errorf("%w: phone number is required", ErrInvalidPhone)
    }
    for _, r := range phone {
        if r < '0' || r > '9' {
            return "", fmt.Errorf("%w: digits only", ErrInvalidPhone)
        }
    }
    if !strings.HasPrefix(phone, s.cfg.PhonePrefix) {
        return "", fmt.Errorf("%w: must start with %s", ErrInvalidPhone, s.cfg.PhonePrefix)
    }
    if len(phone) != s.cfg.PhoneLength {
        return "", fmt.Errorf("%w: expected %d digits, got %d", ErrInvalidPhone, s.cfg.PhoneLength, len(phone))
    }
    return phone, nil
}

// Request starts a payment for the actor's reservation.  The amount is the
// resource cost; a FAILED reservation goes back to PENDING for the retry.
func (s *PaymentService) Request(ctx context.Context, actor booking.Actor, reservationID uint64, rawPhone string) (model.PaymentTransaction, error) {
    phone, err := s.NormalizePhone(rawPhone)
    if err != nil {
        return model.PaymentTransaction{}, err
    }
    r, err := s.reservations.Get(ctx, actor, reservationID)
    if err != nil {
        return model.PaymentTransaction{}, err
    }
    if r.UserID != actor.UserID {
        return model.PaymentTransaction{}, booking.ErrNotOwner
    }
    switch r.PaymentStatus {
    case model.PaymentNotRequired:
        return model.PaymentTransaction{}, ErrPaymentNotRequired
    case model.PaymentPaid:
        return model.PaymentTransaction{}, ErrAlreadyPaid
    }
    if !r.Status.Occupying() {
        return model.PaymentTransaction{}, ErrNotPayable
    }
    res, err := s.resources.GetByID(ctx, r.ResourceID)
    if err != nil {
        return model.PaymentTransaction{}, err
    }
    if units := res.Cost.Units(); units < s.cfg.MinAmount || units > s.cfg.MaxAmount {
        return model.PaymentTransaction{}, fmt.Errorf("%w: %d not within %d..%d", ErrInvalidAmount, units, s.cfg.MinAmount, s.cfg.MaxAmount)
    }
    if r.PaymentStatus == model.PaymentFailed {
        if _, err := s.reservations.SetPaymentStatus(ctx, r.ID, model.PaymentPending); err != nil {
            return model.PaymentTransaction{}, err
        }
    }

    tx := model.PaymentTransaction{
        UserID:        actor.UserID,
        ReservationID: r.ID,
        PhoneNumber:   phone,
        Amount:        res.Cost,
        Reference:     uuid.NewString(),
        Status:        model.TxPending,
    }
    if err := s.txs.Create(ctx, &tx); err != nil {
        return model.PaymentTransaction{}, err
    }
    err = s.gateway.PaymentRequested(ctx, queue.PaymentRequestedEvent{
        Reference:     tx.Reference,
        ReservationID: r.ID,
        UserID:        actor.UserID,
        PhoneNumber:   phone,
        Amount:        res.Cost,
        AccountRef:    s.cfg.AccountRef,
        RequestedAt:   s.now(),
    })
    if err != nil {
        log.Printf("payment: request %s for reservation %d not queued: %v", tx.Reference, r.ID, err)
        if rerr := s.txs.Resolve(ctx, tx.Reference, model.TxFailed, ""); rerr != nil {
            log.Printf("payment: mark %s failed: %v", tx.Reference, rerr)
        }
        return model.PaymentTransaction{}, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
    }
    return tx, nil
}

// CallbackInput is the gateway's verdict on one payment attempt.
type CallbackInput struct {
    Reference  string
    Success    bool
    ExternalID string
}

// HandleCallback resolves the attempt and sets the reservation's payment
// status to PAID or FAILED.  A repeated callback yields ErrAlreadyResolved.
func (s *PaymentService) HandleCallback(ctx context.Context, in CallbackInput) (model.Reservation, error) {
    tx, err := s.txs.GetByReference(ctx, in.Reference)
    if err != nil {
        if errors.Is(err, repository.ErrNotFound) {
            return model.Reservation{}, ErrPaymentNotFound
        }
        return model.Reservation{}, err
    }
    txStatus, payStatus := model.TxFailed, model.PaymentFailed
    if in.Success {
        txStatus, payStatus = model.TxSuccess, model.PaymentPaid
    }
    if err := s.txs.Resolve(ctx, in.Reference, txStatus, in.ExternalID); err != nil {
        if errors.Is(err, repository.ErrConflict) {
            return model.Reservation{}, ErrAlreadyResolved
        }
        return model.Reservation{}, err
    }
    r, err := s.reservations.SetPaymentStatus(ctx, tx.ReservationID, payStatus)
    if err != nil {
        log.Printf("payment: %s resolved %s but reservation %d not updated: %v", in.Reference, txStatus, tx.ReservationID, err)
        return model.Reservation{}, err
    }
    return r, nil
}

// History lists the payment attempts of a reservation visible to actor.
func (s *PaymentService) History(ctx context.Context, actor booking.Actor, reservationID uint64) ([]model.PaymentTransaction, error) {
    if _, err := s.reservations.Get(ctx, actor, reservationID); err != nil {
        return nil, err
    }
    return s.txs.ListByReservation(ctx, reservationID)
}
