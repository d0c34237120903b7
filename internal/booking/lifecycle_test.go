package booking

import (
    "errors"
    "testing"
    "time"

    "github.com/iliyamo/resource-booking/internal/model"
)

func TestCheckTransition(t *testing.T) {
    now := at(12, 0)
    owner := Actor{UserID: 10, Role: model.RoleUser}
    stranger := Actor{UserID: 11, Role: model.RoleUser}
    admin := Actor{UserID: 99, Role: model.RoleAdmin}

    future := func(s model.Status) model.Reservation {
        return model.Reservation{ID: 1, UserID: 10, StartTime: at(14, 0), EndTime: at(15, 0), Status: s}
    }
    past := func(s model.Status) model.Reservation {
        return model.Reservation{ID: 1, UserID: 10, StartTime: at(9, 0), EndTime: at(10, 0), Status: s}
    }

    cases := []struct {
        name   string
        res    model.Reservation
        actor  Actor
        target model.Status
        want   error
    }{
        {"owner cancels pending", future(model.StatusPending), owner, model.StatusCancelled, nil},
        {"owner cancels approved", future(model.StatusApproved), owner, model.StatusCancelled, nil},
        {"owner cancels twice", future(model.StatusCancelled), owner, model.StatusCancelled, ErrNotCancellable},
        {"owner cancels rejected", future(model.StatusRejected), owner, model.StatusCancelled, ErrNotCancellable},
        {"owner cancels ended", past(model.StatusApproved), owner, model.StatusCancelled, ErrAlreadyPast},
        {"stranger cancels", future(model.StatusPending), stranger, model.StatusCancelled, ErrNotOwner},
        {"admin cancels for owner", future(model.StatusPending), admin, model.StatusCancelled, ErrInvalidTransition},
        {"owner approves own", future(model.StatusPending), owner, model.StatusApproved, ErrInvalidTransition},
        {"admin approves pending", future(model.StatusPending), admin, model.StatusApproved, nil},
        {"admin rejects pending", future(model.StatusPending), admin, model.StatusRejected, nil},
        {"admin approves rejected", future(model.StatusRejected), admin, model.StatusApproved, ErrInvalidTransition},
        {"admin rejects approved", future(model.StatusApproved), admin, model.StatusRejected, ErrInvalidTransition},
        {"admin approves ended pending", past(model.StatusPending), admin, model.StatusApproved, ErrAlreadyPast},
        {"system completes ended approved", past(model.StatusApproved), SystemActor, model.StatusCompleted, nil},
        {"system completes running approved", future(model.StatusApproved), SystemActor, model.StatusCompleted, ErrInvalidTransition},
        {"system completes pending", past(model.StatusPending), SystemActor, model.StatusCompleted, ErrInvalidTransition},
        {"admin completes", past(model.StatusApproved), admin, model.StatusCompleted, ErrInvalidTransition},
        {"admin archives cancelled", future(model.StatusCancelled), admin, model.StatusArchived, nil},
        {"admin archives ended pending", past(model.StatusPending), admin, model.StatusArchived, nil},
        {"admin archives live approved", future(model.StatusApproved), admin, model.StatusArchived, ErrInvalidTransition},
        {"admin archives archived", past(model.StatusArchived), admin, model.StatusArchived, ErrInvalidTransition},
        {"owner archives", past(model.StatusCompleted), owner, model.StatusArchived, ErrInvalidTransition},
        {"back to pending", future(model.StatusCancelled), admin, model.StatusPending, ErrInvalidTransition},
        {"unknown target", future(model.StatusPending), admin, model.Status("BOGUS"), ErrInvalidTransition},
    }
    for _, tc := range cases {
        t.Run(tc.name, func(t *testing.T) {
            err := CheckTransition(tc.res, tc.actor, tc.target, now)
            if tc.want == nil {
                if err != nil {
                    t.Fatalf("expected success, got %v", err)
                }
                return
            }
            if !errors.Is(err, tc.want) {
                t.Fatalf("got %v, want %v", err, tc.want)
            }
        })
    }
}

func TestAdminCancelsOwnReservation(t *testing.T) {
    admin := Actor{UserID: 99, Role: model.RoleAdmin}
    r := model.Reservation{UserID: 99, StartTime: at(14, 0), EndTime: at(15, 0), Status: model.StatusPending}
    if err := CheckTransition(r, admin, model.StatusCancelled, at(12, 0)); err != nil {
        t.Fatalf("admin owning the reservation may cancel it: %v", err)
    }
}

func TestCheckPaymentTransition(t *testing.T) {
    cases := []struct {
        from, to model.PaymentStatus
        ok       bool
    }{
        {model.PaymentPending, model.PaymentPaid, true},
        {model.PaymentPending, model.PaymentFailed, true},
        {model.PaymentFailed, model.PaymentPending, true},
        {model.PaymentFailed, model.PaymentPaid, true},
        {model.PaymentPaid, model.PaymentFailed, false},
        {model.PaymentNotRequired, model.PaymentPaid, false},
        {model.PaymentPending, model.PaymentNotRequired, false},
        {model.PaymentPending, model.PaymentStatus("x"), false},
    }
    for _, tc := range cases {
        err := CheckPaymentTransition(tc.from, tc.to)
        if tc.ok && err != nil {
            t.Errorf("%s -> %s: unexpected %v", tc.from, tc.to, err)
        }
        if !tc.ok && !errors.Is(err, ErrInvalidPaymentTransition) {
            t.Errorf("%s -> %s: got %v", tc.from, tc.to, err)
        }
    }
}

func TestEndedBoundary(t *testing.T) {
    r := model.Reservation{EndTime: at(10, 0)}
    if !r.Ended(at(10, 0)) {
        t.Fatal("a window is over at its end instant")
    }
    if r.Ended(at(10, 0).Add(-time.Second)) {
        t.Fatal("a window is not over before its end")
    }
}
