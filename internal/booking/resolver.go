package booking

import (
    "context"
    "time"

    "github.com/iliyamo/resource-booking/internal/model"
)

// Decision is the verdict for a candidate window.  When Admit is false,
// Reason is "RESOURCE_FULLY_BOOKED" and Conflicts lists the reservations
// occupying the window.
type Decision struct {
    Admit      bool      `json:"admit"`
    Reason     string    `json:"reason,omitempty"`
    ResourceID uint64    `json:"resource_id"`
    Booked     int       `json:"booked_quantity"`
    Capacity   int       `json:"quantity"`
    Start      time.Time `json:"start_time"`
    End        time.Time `json:"end_time"`
    Conflicts  []uint64  `json:"conflicting_reservation_ids,omitempty"`
}

// ReasonFullyBooked is the Decision.Reason for capacity rejections.
const ReasonFullyBooked = "RESOURCE_FULLY_BOOKED"

// Err converts a rejecting decision into a *FullyBookedError; admitted
// decisions return nil.
func (d Decision) Err() error {
    if d.Admit {
        return nil
    }
    return &FullyBookedError{ResourceID: d.ResourceID, Booked: d.Booked, Capacity: d.Capacity, Start: d.Start, End: d.End}
}

// Evaluate decides whether one more unit of res can be reserved for
// [start, end).  excludeID removes the reservation being edited from the
// conflict set.  It only reads, so repeated calls without intervening
// writes return the same Decision.
func Evaluate(ctx context.Context, r OverlapReader, res model.Resource, start, end time.Time, excludeID uint64) (Decision, error) {
    if err := (Window{Start: start, End: end}).Validate(); err != nil {
        return Decision{}, err
    }
    overlaps, err := occupying(ctx, r, res.ID, start, end, excludeID)
    if err != nil {
        return Decision{}, err
    }
    d := Decision{
        ResourceID: res.ID,
        Booked:     len(overlaps),
        Capacity:   int(res.Quantity),
        Start:      start,
        End:        end,
    }
    if d.Booked < d.Capacity {
        d.Admit = true
        return d, nil
    }
    d.Reason = ReasonFullyBooked
    d.Conflicts = make([]uint64, 0, len(overlaps))
    for _, o := range overlaps {
        d.Conflicts = append(d.Conflicts, o.ID)
    }
    return d, nil
}

// OccupiedCount returns how many occupying reservations overlap [start, end).
func OccupiedCount(ctx context.Context, r OverlapReader, resourceID uint64, start, end time.Time, excludeID uint64) (int, error) {
    if err := (Window{Start: start, End: end}).Validate(); err != nil {
        return 0, err
    }
    overlaps, err := occupying(ctx, r, resourceID, start, end, excludeID)
    if err != nil {
        return 0, err
    }
    return len(overlaps), nil
}

// Available returns res.Quantity minus the occupied count, never below zero.
func Available(ctx context.Context, r OverlapReader, res model.Resource, start, end time.Time) (int, error) {
    n, err := OccupiedCount(ctx, r, res.ID, start, end, 0)
    if err != nil {
        return 0, err
    }
    if free := int(res.Quantity) - n; free > 0 {
        return free, nil
    }
    return 0, nil
}

// occupying re-applies the status, overlap and exclusion filters to the
// reader's result so a loose implementation cannot widen the conflict set.
func occupying(ctx context.Context, r OverlapReader, resourceID uint64, start, end time.Time, excludeID uint64) ([]model.Reservation, error) {
    rows, err := r.OccupyingOverlaps(ctx, resourceID, start, end, excludeID)
    if err != nil {
        return nil, err
    }
    cand := Window{Start: start, End: end}
    out := rows[:0:0]
    for _, row := range rows {
        if row.ResourceID != resourceID || !row.Status.Occupying() {
            continue
        }
        if excludeID != 0 && row.ID == excludeID {
            continue
        }
        if !cand.Overlaps(Window{Start: row.StartTime, End: row.EndTime}) {
            continue
        }
        out = append(out, row)
    }
    return out, nil
}
