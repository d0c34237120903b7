package booking

import (
    "context"
    "sort"
    "sync"
    "time"

    "github.com/iliyamo/resource-booking/internal/model"
)

// memStore is an in-memory Store.  Transactions are serialised and work on
// a copy of the reservations that replaces the original only on commit.
type memStore struct {
    txMu sync.Mutex
    mu   sync.RWMutex

    resources    map[uint64]model.Resource
    reservations map[uint64]model.Reservation
    nextID       uint64
    failInsert   error
}

func newMemStore(resources ...model.Resource) *memStore {
    s := &memStore{
        resources:    make(map[uint64]model.Resource),
        reservations: make(map[uint64]model.Reservation),
    }
    for _, r := range resources {
        s.resources[r.ID] = r
    }
    return s
}

func (s *memStore) put(r model.Reservation) model.Reservation {
    s.mu.Lock()
    defer s.mu.Unlock()
    s.nextID++
    r.ID = s.nextID
    s.reservations[r.ID] = r
    return r
}

func overlapsOf(rows map[uint64]model.Reservation, resourceID uint64, start, end time.Time, excludeID uint64) []model.Reservation {
    var out []model.Reservation
    for _, r := range rows {
        if r.ResourceID != resourceID || !r.Status.Occupying() || r.ID == excludeID {
            continue
        }
        if r.StartTime.Before(end) && r.EndTime.After(start) {
            out = append(out, r)
        }
    }
    sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
    return out
}

func (s *memStore) OccupyingOverlaps(_ context.Context, resourceID uint64, start, end time.Time, excludeID uint64) ([]model.Reservation, error) {
    s.mu.RLock()
    defer s.mu.RUnlock()
    return overlapsOf(s.reservations, resourceID, start, end, excludeID), nil
}

func (s *memStore) GetResource(_ context.Context, id uint64) (model.Resource, error) {
    s.mu.RLock()
    defer s.mu.RUnlock()
    r, ok := s.resources[id]
    if !ok {
        return model.Resource{}, ErrResourceNotFound
    }
    return r, nil
}

func (s *memStore) GetReservation(_ context.Context, id uint64) (model.Reservation, error) {
    s.mu.RLock()
    defer s.mu.RUnlock()
    r, ok := s.reservations[id]
    if !ok {
        return model.Reservation{}, ErrReservationNotFound
    }
    return r, nil
}

func (s *memStore) ListReservationsByUser(_ context.Context, userID uint64) ([]model.Reservation, error) {
    s.mu.RLock()
    defer s.mu.RUnlock()
    var out []model.Reservation
    for _, r := range s.reservations {
        if r.UserID == userID {
            out = append(out, r)
        }
    }
    sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
    return out, nil
}

func (s *memStore) ListReservations(_ context.Context, status model.Status) ([]model.Reservation, error) {
    s.mu.RLock()
    defer s.mu.RUnlock()
    var out []model.Reservation
    for _, r := range s.reservations {
        if status == "" || r.Status == status {
            out = append(out, r)
        }
    }
    sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
    return out, nil
}

func (s *memStore) ExpiredApprovedIDs(_ context.Context, userID uint64, now time.Time) ([]uint64, error) {
    s.mu.RLock()
    defer s.mu.RUnlock()
    var ids []uint64
    for _, r := range s.reservations {
        if r.Status == model.StatusApproved && !r.EndTime.After(now) && (userID == 0 || r.UserID == userID) {
            ids = append(ids, r.ID)
        }
    }
    sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
    return ids, nil
}

func (s *memStore) WithTx(ctx context.Context, fn func(tx Tx) error) error {
    s.txMu.Lock()
    defer s.txMu.Unlock()

    s.mu.RLock()
    work := make(map[uint64]model.Reservation, len(s.reservations))
    for k, v := range s.reservations {
        work[k] = v
    }
    next := s.nextID
    s.mu.RUnlock()

    tx := &memTx{store: s, rows: work, nextID: next}
    if err := fn(tx); err != nil {
        return err
    }
    s.mu.Lock()
    s.reservations = tx.rows
    s.nextID = tx.nextID
    s.mu.Unlock()
    return nil
}

type memTx struct {
    store  *memStore
    rows   map[uint64]model.Reservation
    nextID uint64
}

func (t *memTx) OccupyingOverlaps(_ context.Context, resourceID uint64, start, end time.Time, excludeID uint64) ([]model.Reservation, error) {
    return overlapsOf(t.rows, resourceID, start, end, excludeID), nil
}

func (t *memTx) LockResource(ctx context.Context, resourceID uint64) (model.Resource, error) {
    return t.store.GetResource(ctx, resourceID)
}

func (t *memTx) LockReservation(_ context.Context, id uint64) (model.Reservation, error) {
    r, ok := t.rows[id]
    if !ok {
        return model.Reservation{}, ErrReservationNotFound
    }
    return r, nil
}

func (t *memTx) InsertReservation(_ context.Context, r *model.Reservation) error {
    if t.store.failInsert != nil {
        return t.store.failInsert
    }
    t.nextID++
    r.ID = t.nextID
    r.CreatedAt = time.Now().UTC()
    r.UpdatedAt = r.CreatedAt
    t.rows[r.ID] = *r
    return nil
}

func (t *memTx) UpdateReservationDetails(_ context.Context, r model.Reservation) error {
    cur, ok := t.rows[r.ID]
    if !ok {
        return ErrReservationNotFound
    }
    cur.ResourceID, cur.StartTime, cur.EndTime, cur.Purpose = r.ResourceID, r.StartTime, r.EndTime, r.Purpose
    t.rows[r.ID] = cur
    return nil
}

func (t *memTx) UpdateReservationStatus(_ context.Context, id uint64, status model.Status) error {
    cur, ok := t.rows[id]
    if !ok {
        return ErrReservationNotFound
    }
    cur.Status = status
    t.rows[id] = cur
    return nil
}

func (t *memTx) UpdatePaymentStatus(_ context.Context, id uint64, status model.PaymentStatus) error {
    cur, ok := t.rows[id]
    if !ok {
        return ErrReservationNotFound
    }
    cur.PaymentStatus = status
    t.rows[id] = cur
    return nil
}
