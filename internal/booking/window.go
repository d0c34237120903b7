package booking

import "time"

// Window is a half-open time interval [Start, End).
type Window struct {
    Start time.Time
    End   time.Time
}

// NewWindow returns the window truncated to whole seconds, matching the
// DATETIME precision of the store, or ErrInvalidWindow when start >= end.
func NewWindow(start, end time.Time) (Window, error) {
    w := Window{Start: start.Truncate(time.Second), End: end.Truncate(time.Second)}
    if err := w.Validate(); err != nil {
        return Window{}, err
    }
    return w, nil
}

// Validate enforces start < end.  Zero-length windows are invalid.
func (w Window) Validate() error {
    if w.Start.IsZero() || w.End.IsZero() || !w.Start.Before(w.End) {
        return ErrInvalidWindow
    }
    return nil
}

// Overlaps reports whether the two half-open windows share any instant.
// Touching endpoints do not overlap, so back-to-back bookings are allowed.
func (w Window) Overlaps(o Window) bool {
    return w.Start.Before(o.End) && o.Start.Before(w.End)
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
    return !t.Before(w.Start) && t.Before(w.End)
}
