package booking

import (
    "context"
    "errors"
    "testing"
    "time"

    "github.com/iliyamo/resource-booking/internal/model"
)

var day = time.Date(2030, 3, 4, 0, 0, 0, 0, time.UTC)

func at(h, m int) time.Time { return day.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute) }

func roomA() model.Resource {
    return model.Resource{ID: 1, Name: "Room A", Type: model.ResourceRoom, Quantity: 1, IsAvailable: true}
}

func projector() model.Resource {
    return model.Resource{ID: 2, Name: "Projector", Type: model.ResourceEquipment, Quantity: 3, IsAvailable: true}
}

func pending(resourceID uint64, start, end time.Time) model.Reservation {
    return model.Reservation{UserID: 10, ResourceID: resourceID, StartTime: start, EndTime: end, Status: model.StatusPending}
}

func TestWindowOverlapIsHalfOpen(t *testing.T) {
    a := Window{Start: at(10, 0), End: at(11, 0)}
    cases := []struct {
        name string
        b    Window
        want bool
    }{
        {"inside", Window{at(10, 15), at(10, 45)}, true},
        {"straddles start", Window{at(9, 30), at(10, 30)}, true},
        {"straddles end", Window{at(10, 30), at(11, 30)}, true},
        {"covers", Window{at(9, 0), at(12, 0)}, true},
        {"touches end", Window{at(11, 0), at(12, 0)}, false},
        {"touches start", Window{at(9, 0), at(10, 0)}, false},
        {"disjoint", Window{at(13, 0), at(14, 0)}, false},
    }
    for _, tc := range cases {
        t.Run(tc.name, func(t *testing.T) {
            if got := a.Overlaps(tc.b); got != tc.want {
                t.Fatalf("Overlaps = %v, want %v", got, tc.want)
            }
            if got := tc.b.Overlaps(a); got != tc.want {
                t.Fatalf("Overlaps is not symmetric")
            }
        })
    }
}

func TestWindowValidate(t *testing.T) {
    if _, err := NewWindow(at(10, 0), at(10, 0)); !errors.Is(err, ErrInvalidWindow) {
        t.Fatalf("zero-length window: got %v", err)
    }
    if _, err := NewWindow(at(11, 0), at(10, 0)); !errors.Is(err, ErrInvalidWindow) {
        t.Fatalf("inverted window: got %v", err)
    }
    if _, err := NewWindow(time.Time{}, at(10, 0)); !errors.Is(err, ErrInvalidWindow) {
        t.Fatalf("zero start: got %v", err)
    }
    if _, err := NewWindow(at(10, 0).Add(200*time.Millisecond), at(10, 0).Add(400*time.Millisecond)); !errors.Is(err, ErrInvalidWindow) {
        t.Fatalf("sub-second window: got %v", err)
    }
    if _, err := NewWindow(at(10, 0), at(10, 1)); err != nil {
        t.Fatalf("valid window: %v", err)
    }
}

func TestEvaluateSingleUnitRoom(t *testing.T) {
    ctx := context.Background()
    st := newMemStore(roomA())
    st.put(pending(1, at(10, 0), at(11, 0)))

    d, err := Evaluate(ctx, st, roomA(), at(10, 30), at(11, 30), 0)
    if err != nil {
        t.Fatal(err)
    }
    if d.Admit || d.Booked != 1 || d.Capacity != 1 || d.Reason != ReasonFullyBooked {
        t.Fatalf("overlapping request: got %+v", d)
    }
    if len(d.Conflicts) != 1 || d.Conflicts[0] != 1 {
        t.Fatalf("conflicts = %v", d.Conflicts)
    }
    var fb *FullyBookedError
    if err := d.Err(); !errors.As(err, &fb) || !errors.Is(err, ErrResourceFullyBooked) {
        t.Fatalf("Err() = %v", err)
    }
    if fb.Booked != 1 || fb.Capacity != 1 {
        t.Fatalf("FullyBookedError = %+v", fb)
    }

    d, err = Evaluate(ctx, st, roomA(), at(11, 0), at(12, 0), 0)
    if err != nil {
        t.Fatal(err)
    }
    if !d.Admit || d.Booked != 0 {
        t.Fatalf("adjacent request should be admitted: %+v", d)
    }
}

func TestEvaluateIgnoresNonOccupyingStatuses(t *testing.T) {
    ctx := context.Background()
    st := newMemStore(roomA())
    for _, s := range []model.Status{model.StatusRejected, model.StatusCancelled, model.StatusArchived, model.StatusCompleted} {
        r := pending(1, at(10, 0), at(11, 0))
        r.Status = s
        st.put(r)
    }
    d, err := Evaluate(ctx, st, roomA(), at(10, 0), at(11, 0), 0)
    if err != nil {
        t.Fatal(err)
    }
    if !d.Admit {
        t.Fatalf("terminal reservations must not occupy: %+v", d)
    }
}

func TestEvaluateMultiUnitProjector(t *testing.T) {
    ctx := context.Background()
    st := newMemStore(projector())
    for i := 0; i < 3; i++ {
        st.put(pending(2, at(9, 0), at(10, 0)))
    }
    d, err := Evaluate(ctx, st, projector(), at(9, 30), at(9, 45), 0)
    if err != nil {
        t.Fatal(err)
    }
    if d.Admit || d.Booked != 3 || d.Capacity != 3 {
        t.Fatalf("fourth request: got %+v", d)
    }

    free, err := Available(ctx, st, projector(), at(9, 30), at(9, 45))
    if err != nil || free != 0 {
        t.Fatalf("Available = %d, %v", free, err)
    }
    free, err = Available(ctx, st, projector(), at(10, 0), at(11, 0))
    if err != nil || free != 3 {
        t.Fatalf("Available after window = %d, %v", free, err)
    }
}

func TestEvaluateExcludesEditedReservation(t *testing.T) {
    ctx := context.Background()
    st := newMemStore(roomA())
    r := st.put(pending(1, at(10, 0), at(11, 0)))

    d, err := Evaluate(ctx, st, roomA(), at(10, 30), at(11, 30), r.ID)
    if err != nil {
        t.Fatal(err)
    }
    if !d.Admit {
        t.Fatalf("self-conflict not excluded: %+v", d)
    }
    n, err := OccupiedCount(ctx, st, 1, at(10, 30), at(11, 30), 0)
    if err != nil || n != 1 {
        t.Fatalf("OccupiedCount = %d, %v", n, err)
    }
}

func TestEvaluateIsIdempotent(t *testing.T) {
    ctx := context.Background()
    st := newMemStore(projector())
    st.put(pending(2, at(9, 0), at(10, 0)))
    first, err := Evaluate(ctx, st, projector(), at(9, 0), at(9, 30), 0)
    if err != nil {
        t.Fatal(err)
    }
    second, err := Evaluate(ctx, st, projector(), at(9, 0), at(9, 30), 0)
    if err != nil {
        t.Fatal(err)
    }
    if first.Admit != second.Admit || first.Booked != second.Booked || first.Capacity != second.Capacity {
        t.Fatalf("decisions differ: %+v vs %+v", first, second)
    }
}

func TestEvaluateRejectsInvalidWindow(t *testing.T) {
    st := newMemStore(roomA())
    if _, err := Evaluate(context.Background(), st, roomA(), at(11, 0), at(10, 0), 0); !errors.Is(err, ErrInvalidWindow) {
        t.Fatalf("got %v", err)
    }
}

// looseReader returns every reservation regardless of filters.
type looseReader []model.Reservation

func (l looseReader) OccupyingOverlaps(context.Context, uint64, time.Time, time.Time, uint64) ([]model.Reservation, error) {
    return l, nil
}

func TestEvaluateRefiltersReaderResults(t *testing.T) {
    rows := looseReader{
        {ID: 1, ResourceID: 1, StartTime: at(8, 0), EndTime: at(9, 0), Status: model.StatusApproved},
        {ID: 2, ResourceID: 9, StartTime: at(10, 0), EndTime: at(11, 0), Status: model.StatusApproved},
        {ID: 3, ResourceID: 1, StartTime: at(10, 0), EndTime: at(11, 0), Status: model.StatusCancelled},
        {ID: 4, ResourceID: 1, StartTime: at(10, 0), EndTime: at(11, 0), Status: model.StatusApproved},
    }
    d, err := Evaluate(context.Background(), rows, roomA(), at(10, 0), at(11, 0), 4)
    if err != nil {
        t.Fatal(err)
    }
    if !d.Admit || d.Booked != 0 {
        t.Fatalf("expected all rows filtered out: %+v", d)
    }
}
