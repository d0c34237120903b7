package booking

import (
    "context"
    "errors"
    "sync"
    "testing"
    "time"

    "github.com/iliyamo/resource-booking/internal/model"
)

type recorder struct {
    mu     sync.Mutex
    events []Event
}

func (r *recorder) ReservationChanged(_ context.Context, ev Event) {
    r.mu.Lock()
    r.events = append(r.events, ev)
    r.mu.Unlock()
}

func newTestService(opts Options, resources ...model.Resource) (*Service, *memStore, *recorder) {
    st := newMemStore(resources...)
    rec := &recorder{}
    svc := NewService(st, NewLocalLocker(), opts, rec)
    svc.SetClock(func() time.Time { return day.Add(-24 * time.Hour) })
    return svc, st, rec
}

var (
    alice = Actor{UserID: 10, Role: model.RoleUser}
    bob   = Actor{UserID: 20, Role: model.RoleUser}
    admin = Actor{UserID: 99, Role: model.RoleAdmin}
)

func TestCreateRejectsOverlapOnSingleUnit(t *testing.T) {
    ctx := context.Background()
    svc, _, rec := newTestService(Options{}, roomA())

    first, err := svc.Create(ctx, CreateInput{UserID: 10, ResourceID: 1, Start: at(10, 0), End: at(11, 0)})
    if err != nil {
        t.Fatal(err)
    }
    if first.Status != model.StatusPending || first.PaymentStatus != model.PaymentNotRequired {
        t.Fatalf("unexpected initial state: %+v", first)
    }

    _, err = svc.Create(ctx, CreateInput{UserID: 20, ResourceID: 1, Start: at(10, 30), End: at(11, 30)})
    var fb *FullyBookedError
    if !errors.As(err, &fb) || fb.Booked != 1 || fb.Capacity != 1 {
        t.Fatalf("expected fully booked, got %v", err)
    }

    if _, err := svc.Create(ctx, CreateInput{UserID: 20, ResourceID: 1, Start: at(11, 0), End: at(12, 0)}); err != nil {
        t.Fatalf("adjacent booking rejected: %v", err)
    }
    if len(rec.events) != 2 || rec.events[0].From != "" || rec.events[0].To != model.StatusPending {
        t.Fatalf("events = %+v", rec.events)
    }
}

func TestCreateValidations(t *testing.T) {
    ctx := context.Background()
    closed := roomA()
    closed.ID = 5
    closed.IsAvailable = false
    svc, _, _ := newTestService(Options{PurposeRequired: true}, roomA(), closed)

    if _, err := svc.Create(ctx, CreateInput{UserID: 10, ResourceID: 1, Start: at(11, 0), End: at(10, 0), Purpose: "x"}); !errors.Is(err, ErrInvalidWindow) {
        t.Fatalf("inverted window: %v", err)
    }
    if _, err := svc.Create(ctx, CreateInput{UserID: 10, ResourceID: 1, Start: at(10, 0), End: at(11, 0), Purpose: "  "}); !errors.Is(err, ErrPurposeRequired) {
        t.Fatalf("missing purpose: %v", err)
    }
    if _, err := svc.Create(ctx, CreateInput{UserID: 10, ResourceID: 5, Start: at(10, 0), End: at(11, 0), Purpose: "x"}); !errors.Is(err, ErrResourceUnavailable) {
        t.Fatalf("unavailable resource: %v", err)
    }
    if _, err := svc.Create(ctx, CreateInput{UserID: 10, ResourceID: 42, Start: at(10, 0), End: at(11, 0), Purpose: "x"}); !errors.Is(err, ErrResourceNotFound) {
        t.Fatalf("unknown resource: %v", err)
    }
    past := day.Add(-48 * time.Hour)
    if _, err := svc.Create(ctx, CreateInput{UserID: 10, ResourceID: 1, Start: past, End: past.Add(time.Hour), Purpose: "x"}); !errors.Is(err, ErrAlreadyPast) {
        t.Fatalf("ended window: %v", err)
    }
}

func TestCreatePaidAndAutoApprove(t *testing.T) {
    ctx := context.Background()
    paid := model.Resource{ID: 3, Name: "Van", Type: model.ResourceVehicle, Quantity: 1, Cost: 2500, IsAvailable: true}
    svc, _, _ := newTestService(Options{AutoApproveFree: true}, roomA(), paid)

    free, err := svc.Create(ctx, CreateInput{UserID: 10, ResourceID: 1, Start: at(10, 0), End: at(11, 0)})
    if err != nil {
        t.Fatal(err)
    }
    if free.Status != model.StatusApproved || free.PaymentStatus != model.PaymentNotRequired {
        t.Fatalf("free resource: %+v", free)
    }
    van, err := svc.Create(ctx, CreateInput{UserID: 10, ResourceID: 3, Start: at(10, 0), End: at(11, 0)})
    if err != nil {
        t.Fatal(err)
    }
    if van.Status != model.StatusPending || van.PaymentStatus != model.PaymentPending {
        t.Fatalf("paid resource: %+v", van)
    }
}

func TestProjectorScenario(t *testing.T) {
    ctx := context.Background()
    svc, _, _ := newTestService(Options{}, projector())

    var ids []uint64
    for i := 0; i < 3; i++ {
        r, err := svc.Create(ctx, CreateInput{UserID: 10, ResourceID: 2, Start: at(9, 0), End: at(10, 0)})
        if err != nil {
            t.Fatalf("booking %d: %v", i, err)
        }
        ids = append(ids, r.ID)
    }
    d, err := svc.Evaluate(ctx, 2, at(9, 30), at(9, 45), 0)
    if err != nil {
        t.Fatal(err)
    }
    if d.Admit || d.Booked != 3 || d.Capacity != 3 {
        t.Fatalf("fourth request: %+v", d)
    }
    if _, err := svc.Cancel(ctx, alice, ids[1]); err != nil {
        t.Fatal(err)
    }
    d, err = svc.Evaluate(ctx, 2, at(9, 30), at(9, 45), 0)
    if err != nil {
        t.Fatal(err)
    }
    if !d.Admit || d.Booked != 2 {
        t.Fatalf("after cancel: %+v", d)
    }
    free, err := svc.AvailableQuantity(ctx, 2, at(9, 30), at(9, 45))
    if err != nil || free != 1 {
        t.Fatalf("AvailableQuantity = %d, %v", free, err)
    }
}

func TestConcurrentAdmissionsNeverExceedQuantity(t *testing.T) {
    ctx := context.Background()
    svc, st, _ := newTestService(Options{}, projector())

    var wg sync.WaitGroup
    var mu sync.Mutex
    admitted := 0
    for i := 0; i < 20; i++ {
        wg.Add(1)
        go func(user uint64) {
            defer wg.Done()
            _, err := svc.Create(ctx, CreateInput{UserID: user, ResourceID: 2, Start: at(9, 0), End: at(10, 0)})
            if err == nil {
                mu.Lock()
                admitted++
                mu.Unlock()
                return
            }
            if !errors.Is(err, ErrResourceFullyBooked) {
                t.Errorf("unexpected error: %v", err)
            }
        }(uint64(i + 1))
    }
    wg.Wait()
    if admitted != 3 {
        t.Fatalf("admitted %d reservations, want 3", admitted)
    }
    n, _ := OccupiedCount(ctx, st, 2, at(9, 0), at(10, 0), 0)
    if n != 3 {
        t.Fatalf("occupied = %d", n)
    }
}

func TestFailedInsertLeavesNoPartialWrite(t *testing.T) {
    ctx := context.Background()
    svc, st, rec := newTestService(Options{}, roomA())
    st.failInsert = errors.New("disk full")
    if _, err := svc.Create(ctx, CreateInput{UserID: 10, ResourceID: 1, Start: at(10, 0), End: at(11, 0)}); err == nil {
        t.Fatal("expected store error")
    }
    all, _ := st.ListReservations(ctx, "")
    if len(all) != 0 || len(rec.events) != 0 {
        t.Fatalf("partial write: %v, events %v", all, rec.events)
    }
}

func TestEditExcludesItself(t *testing.T) {
    ctx := context.Background()
    svc, _, rec := newTestService(Options{}, roomA())
    r, err := svc.Create(ctx, CreateInput{UserID: 10, ResourceID: 1, Start: at(10, 0), End: at(11, 0)})
    if err != nil {
        t.Fatal(err)
    }
    edited, err := svc.Edit(ctx, alice, r.ID, EditInput{Start: at(10, 30), End: at(11, 30), Purpose: "moved"})
    if err != nil {
        t.Fatalf("self-overlapping edit rejected: %v", err)
    }
    if edited.Status != model.StatusPending || !edited.StartTime.Equal(at(10, 30)) || edited.Purpose != "moved" {
        t.Fatalf("edited = %+v", edited)
    }

    // observers such as the response cache must hear about the new window
    if len(rec.events) != 2 {
        t.Fatalf("edit did not notify observers: %+v", rec.events)
    }
    last := rec.events[1]
    if last.From != model.StatusPending || last.To != model.StatusPending || !last.StartTime.Equal(at(10, 30)) || last.Actor != ActorOwner {
        t.Fatalf("edit event = %+v", last)
    }
}

func TestEditRejectionDoesNotNotify(t *testing.T) {
    ctx := context.Background()
    svc, _, rec := newTestService(Options{}, roomA())
    r, err := svc.Create(ctx, CreateInput{UserID: 10, ResourceID: 1, Start: at(10, 0), End: at(11, 0)})
    if err != nil {
        t.Fatal(err)
    }
    if _, err := svc.Edit(ctx, bob, r.ID, EditInput{Start: at(12, 0), End: at(13, 0)}); !errors.Is(err, ErrNotOwner) {
        t.Fatalf("stranger edit: %v", err)
    }
    if len(rec.events) != 1 {
        t.Fatalf("rejected edit notified observers: %+v", rec.events)
    }
}

func TestSubSecondWindowIsInvalid(t *testing.T) {
    ctx := context.Background()
    svc, _, _ := newTestService(Options{}, roomA())
    start := at(10, 0).Add(200 * time.Millisecond)
    end := at(10, 0).Add(400 * time.Millisecond)

    if _, err := svc.Create(ctx, CreateInput{UserID: 10, ResourceID: 1, Start: start, End: end}); !errors.Is(err, ErrInvalidWindow) {
        t.Fatalf("sub-second create: %v", err)
    }
    if _, err := svc.Evaluate(ctx, 1, start, end, 0); !errors.Is(err, ErrInvalidWindow) {
        t.Fatalf("sub-second evaluate: %v", err)
    }
    if _, err := svc.AvailableQuantity(ctx, 1, start, end); !errors.Is(err, ErrInvalidWindow) {
        t.Fatalf("sub-second availability: %v", err)
    }

    r, err := svc.Create(ctx, CreateInput{UserID: 10, ResourceID: 1, Start: at(10, 0).Add(900 * time.Millisecond), End: at(11, 0)})
    if err != nil {
        t.Fatal(err)
    }
    if !r.StartTime.Equal(at(10, 0)) {
        t.Fatalf("start not truncated to the second: %v", r.StartTime)
    }
}

func TestEditRules(t *testing.T) {
    ctx := context.Background()
    paid := model.Resource{ID: 3, Name: "Van", Type: model.ResourceVehicle, Quantity: 1, Cost: 1000, IsAvailable: true}
    svc, _, _ := newTestService(Options{}, roomA(), paid)

    mine, err := svc.Create(ctx, CreateInput{UserID: 10, ResourceID: 1, Start: at(10, 0), End: at(11, 0)})
    if err != nil {
        t.Fatal(err)
    }
    if _, err := svc.Create(ctx, CreateInput{UserID: 20, ResourceID: 1, Start: at(12, 0), End: at(13, 0)}); err != nil {
        t.Fatal(err)
    }

    if _, err := svc.Edit(ctx, bob, mine.ID, EditInput{Start: at(10, 0), End: at(10, 30)}); !errors.Is(err, ErrNotOwner) {
        t.Fatalf("stranger edit: %v", err)
    }
    if _, err := svc.Edit(ctx, alice, mine.ID, EditInput{Start: at(12, 30), End: at(13, 30)}); !errors.Is(err, ErrResourceFullyBooked) {
        t.Fatalf("edit into occupied slot: %v", err)
    }
    moved, err := svc.Edit(ctx, alice, mine.ID, EditInput{ResourceID: 3, Start: at(12, 0), End: at(13, 0)})
    if err != nil {
        t.Fatal(err)
    }
    if moved.ResourceID != 3 || moved.PaymentStatus != model.PaymentPending {
        t.Fatalf("moved = %+v", moved)
    }

    if _, err := svc.Transition(ctx, admin, mine.ID, model.StatusApproved); err != nil {
        t.Fatal(err)
    }
    if _, err := svc.Edit(ctx, alice, mine.ID, EditInput{Start: at(14, 0), End: at(15, 0)}); !errors.Is(err, ErrNotEditable) {
        t.Fatalf("edit approved: %v", err)
    }
}

func TestCancelScenario(t *testing.T) {
    ctx := context.Background()
    svc, _, rec := newTestService(Options{}, roomA())
    r, err := svc.Create(ctx, CreateInput{UserID: 10, ResourceID: 1, Start: at(10, 0), End: at(11, 0)})
    if err != nil {
        t.Fatal(err)
    }
    if _, err := svc.Transition(ctx, admin, r.ID, model.StatusApproved); err != nil {
        t.Fatal(err)
    }
    got, err := svc.Cancel(ctx, alice, r.ID)
    if err != nil || got.Status != model.StatusCancelled {
        t.Fatalf("cancel: %+v, %v", got, err)
    }
    if _, err := svc.Cancel(ctx, alice, r.ID); !errors.Is(err, ErrNotCancellable) {
        t.Fatalf("second cancel: %v", err)
    }
    last := rec.events[len(rec.events)-1]
    if last.From != model.StatusApproved || last.To != model.StatusCancelled || last.Actor != ActorOwner {
        t.Fatalf("last event = %+v", last)
    }
}

func TestApproveRejectedIsInvalid(t *testing.T) {
    ctx := context.Background()
    svc, _, _ := newTestService(Options{}, roomA())
    r, err := svc.Create(ctx, CreateInput{UserID: 10, ResourceID: 1, Start: at(10, 0), End: at(11, 0)})
    if err != nil {
        t.Fatal(err)
    }
    if _, err := svc.Transition(ctx, admin, r.ID, model.StatusRejected); err != nil {
        t.Fatal(err)
    }
    if _, err := svc.Transition(ctx, admin, r.ID, model.StatusApproved); !errors.Is(err, ErrInvalidTransition) {
        t.Fatalf("approve rejected: %v", err)
    }
    if _, err := svc.Transition(ctx, admin, 404, model.StatusApproved); !errors.Is(err, ErrReservationNotFound) {
        t.Fatalf("unknown reservation: %v", err)
    }
}

func TestLazyCompletionOnRead(t *testing.T) {
    ctx := context.Background()
    svc, _, _ := newTestService(Options{CompleteOnRead: true}, roomA())
    r, err := svc.Create(ctx, CreateInput{UserID: 10, ResourceID: 1, Start: at(10, 0), End: at(11, 0)})
    if err != nil {
        t.Fatal(err)
    }
    other, err := svc.Create(ctx, CreateInput{UserID: 10, ResourceID: 1, Start: at(12, 0), End: at(13, 0)})
    if err != nil {
        t.Fatal(err)
    }
    if _, err := svc.Transition(ctx, admin, r.ID, model.StatusApproved); err != nil {
        t.Fatal(err)
    }

    svc.SetClock(func() time.Time { return at(11, 30) })
    list, err := svc.ListForUser(ctx, 10)
    if err != nil {
        t.Fatal(err)
    }
    statuses := map[uint64]model.Status{}
    for _, x := range list {
        statuses[x.ID] = x.Status
    }
    if statuses[r.ID] != model.StatusCompleted {
        t.Fatalf("approved ended reservation not completed: %v", statuses)
    }
    if statuses[other.ID] != model.StatusPending {
        t.Fatalf("future pending touched: %v", statuses)
    }
}

func TestCompleteExpiredSweep(t *testing.T) {
    ctx := context.Background()
    svc, _, rec := newTestService(Options{}, roomA(), projector())
    a, _ := svc.Create(ctx, CreateInput{UserID: 10, ResourceID: 1, Start: at(8, 0), End: at(9, 0)})
    b, _ := svc.Create(ctx, CreateInput{UserID: 20, ResourceID: 2, Start: at(8, 0), End: at(9, 0)})
    for _, id := range []uint64{a.ID, b.ID} {
        if _, err := svc.Transition(ctx, admin, id, model.StatusApproved); err != nil {
            t.Fatal(err)
        }
    }
    svc.SetClock(func() time.Time { return at(9, 0) })
    n, err := svc.CompleteExpired(ctx, 0)
    if err != nil || n != 2 {
        t.Fatalf("CompleteExpired = %d, %v", n, err)
    }
    if last := rec.events[len(rec.events)-1]; last.Actor != ActorSystem || last.To != model.StatusCompleted {
        t.Fatalf("last event = %+v", last)
    }
    n, err = svc.CompleteExpired(ctx, 0)
    if err != nil || n != 0 {
        t.Fatalf("second sweep = %d, %v", n, err)
    }
}

func TestGetVisibility(t *testing.T) {
    ctx := context.Background()
    svc, _, _ := newTestService(Options{}, roomA())
    r, _ := svc.Create(ctx, CreateInput{UserID: 10, ResourceID: 1, Start: at(10, 0), End: at(11, 0)})
    if _, err := svc.Get(ctx, alice, r.ID); err != nil {
        t.Fatal(err)
    }
    if _, err := svc.Get(ctx, admin, r.ID); err != nil {
        t.Fatal(err)
    }
    if _, err := svc.Get(ctx, bob, r.ID); !errors.Is(err, ErrNotOwner) {
        t.Fatalf("stranger read: %v", err)
    }
}

func TestSetPaymentStatus(t *testing.T) {
    ctx := context.Background()
    paid := model.Resource{ID: 3, Name: "Van", Type: model.ResourceVehicle, Quantity: 1, Cost: 1000, IsAvailable: true}
    svc, _, _ := newTestService(Options{}, roomA(), paid)
    van, _ := svc.Create(ctx, CreateInput{UserID: 10, ResourceID: 3, Start: at(10, 0), End: at(11, 0)})
    room, _ := svc.Create(ctx, CreateInput{UserID: 10, ResourceID: 1, Start: at(10, 0), End: at(11, 0)})

    got, err := svc.SetPaymentStatus(ctx, van.ID, model.PaymentPaid)
    if err != nil || got.PaymentStatus != model.PaymentPaid {
        t.Fatalf("pay van: %+v, %v", got, err)
    }
    if _, err := svc.SetPaymentStatus(ctx, van.ID, model.PaymentFailed); !errors.Is(err, ErrInvalidPaymentTransition) {
        t.Fatalf("paid -> failed: %v", err)
    }
    if _, err := svc.SetPaymentStatus(ctx, room.ID, model.PaymentPaid); !errors.Is(err, ErrInvalidPaymentTransition) {
        t.Fatalf("free resource paid: %v", err)
    }
}

func TestLocalLockerHonoursContext(t *testing.T) {
    l := NewLocalLocker()
    unlock, err := l.Lock(context.Background(), 7)
    if err != nil {
        t.Fatal(err)
    }
    ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
    defer cancel()
    if _, err := l.Lock(ctx, 7); !errors.Is(err, context.DeadlineExceeded) {
        t.Fatalf("expected deadline, got %v", err)
    }
    other, err := l.Lock(context.Background(), 8)
    if err != nil {
        t.Fatal(err)
    }
    other()
    unlock()
    unlock()
    again, err := l.Lock(context.Background(), 7)
    if err != nil {
        t.Fatal(err)
    }
    again()
    if len(l.locks) != 0 {
        t.Fatalf("locks leaked: %d", len(l.locks))
    }
}
