package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/resource-booking/internal/booking"
	"github.com/iliyamo/resource-booking/internal/model"
)

// ReservationRepo is the MySQL implementation of booking.Store.  Admission
// transactions lock the resource row with SELECT ... FOR UPDATE, which
// serialises concurrent check-then-insert sequences on the same resource
// across every server instance.  All timestamps are stored in UTC.
type ReservationRepo struct {
	db *sql.DB
}

// NewReservationRepo returns a new ReservationRepo bound to the given database.
func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{db: db} }

var _ booking.Store = (*ReservationRepo)(nil)

// DB exposes the underlying sql.DB for callers that need their own transaction.
func (r *ReservationRepo) DB() *sql.DB { return r.db }

const reservationColumns = `id, user_id, resource_id, start_time, end_time, status, payment_status, purpose, created_at, updated_at`

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func scanReservation(s rowScanner) (model.Reservation, error) {
	var (
		r       model.Reservation
		purpose sql.NullString
	)
	err := s.Scan(&r.ID, &r.UserID, &r.ResourceID, &r.StartTime, &r.EndTime, &r.Status, &r.PaymentStatus, &purpose, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return model.Reservation{}, err
	}
	r.Purpose = purpose.String
	return r, nil
}

func listReservations(ctx context.Context, q queryer, query string, args ...interface{}) ([]model.Reservation, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Reservation{}
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

const overlapQuery = `SELECT ` + reservationColumns + `
	FROM reservations
	WHERE resource_id = ?
	  AND status IN ('PENDING', 'APPROVED')
	  AND start_time < ?
	  AND end_time > ?
	  AND id <> ?
	ORDER BY start_time, id`

func occupyingOverlaps(ctx context.Context, q queryer, resourceID uint64, start, end time.Time, excludeID uint64) ([]model.Reservation, error) {
	return listReservations(ctx, q, overlapQuery, resourceID, end.UTC(), start.UTC(), excludeID)
}

// OccupyingOverlaps implements booking.OverlapReader outside a transaction.
// It backs read-only evaluation and availability listings.
func (r *ReservationRepo) OccupyingOverlaps(ctx context.Context, resourceID uint64, start, end time.Time, excludeID uint64) ([]model.Reservation, error) {
	return occupyingOverlaps(ctx, r.db, resourceID, start, end, excludeID)
}

// GetResource loads a resource without locking it.
func (r *ReservationRepo) GetResource(ctx context.Context, id uint64) (model.Resource, error) {
	res, err := scanResource(r.db.QueryRowContext(ctx, `SELECT `+resourceColumns+` FROM resources WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Resource{}, booking.ErrResourceNotFound
	}
	return res, err
}

// GetReservation returns booking.ErrReservationNotFound when no row matches.
func (r *ReservationRepo) GetReservation(ctx context.Context, id uint64) (model.Reservation, error) {
	res, err := scanReservation(r.db.QueryRowContext(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Reservation{}, booking.ErrReservationNotFound
	}
	return res, err
}

// ListReservationsByUser returns a user's reservations ordered by start time.
func (r *ReservationRepo) ListReservationsByUser(ctx context.Context, userID uint64) ([]model.Reservation, error) {
	return listReservations(ctx, r.db,
		`SELECT `+reservationColumns+` FROM reservations WHERE user_id = ? ORDER BY start_time, id`, userID)
}

// ListReservations returns every reservation, newest window first.  An
// empty status disables the filter.
func (r *ReservationRepo) ListReservations(ctx context.Context, status model.Status) ([]model.Reservation, error) {
	if status == "" {
		return listReservations(ctx, r.db, `SELECT `+reservationColumns+` FROM reservations ORDER BY start_time DESC, id DESC`)
	}
	return listReservations(ctx, r.db,
		`SELECT `+reservationColumns+` FROM reservations WHERE status = ? ORDER BY start_time DESC, id DESC`, status)
}

// ExpiredApprovedIDs lists APPROVED reservations whose window ended at or
// before now.  userID 0 matches every user.
func (r *ReservationRepo) ExpiredApprovedIDs(ctx context.Context, userID uint64, now time.Time) ([]uint64, error) {
	q := `SELECT id FROM reservations WHERE status = 'APPROVED' AND end_time <= ?`
	args := []interface{}{now.UTC()}
	if userID != 0 {
		q += ` AND user_id = ?`
		args = append(args, userID)
	}
	q += ` ORDER BY id`
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []uint64
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// WithTx runs fn inside a transaction.  The transaction is rolled back when
// fn fails or panics and committed otherwise.
func (r *ReservationRepo) WithTx(ctx context.Context, fn func(tx booking.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(&reservationTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	committed = true
	return nil
}

// reservationTx implements booking.Tx on top of *sql.Tx.
type reservationTx struct {
	tx *sql.Tx
}

func (t *reservationTx) OccupyingOverlaps(ctx context.Context, resourceID uint64, start, end time.Time, excludeID uint64) ([]model.Reservation, error) {
	return occupyingOverlaps(ctx, t.tx, resourceID, start, end, excludeID)
}

func (t *reservationTx) LockResource(ctx context.Context, resourceID uint64) (model.Resource, error) {
	res, err := scanResource(t.tx.QueryRowContext(ctx,
		`SELECT `+resourceColumns+` FROM resources WHERE id = ? FOR UPDATE`, resourceID))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Resource{}, booking.ErrResourceNotFound
	}
	return res, err
}

func (t *reservationTx) LockReservation(ctx context.Context, id uint64) (model.Reservation, error) {
	res, err := scanReservation(t.tx.QueryRowContext(ctx,
		`SELECT `+reservationColumns+` FROM reservations WHERE id = ? FOR UPDATE`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Reservation{}, booking.ErrReservationNotFound
	}
	return res, err
}

// InsertReservation inserts the row and queries it back to populate the
// generated ID and timestamps.
func (t *reservationTx) InsertReservation(ctx context.Context, res *model.Reservation) error {
	const q = `INSERT INTO reservations (user_id, resource_id, start_time, end_time, status, payment_status, purpose)
	           VALUES (?, ?, ?, ?, ?, ?, ?)`
	out, err := t.tx.ExecContext(ctx, q, res.UserID, res.ResourceID, res.StartTime.UTC(), res.EndTime.UTC(),
		res.Status, res.PaymentStatus, nullString(res.Purpose))
	if err != nil {
		return err
	}
	id, err := out.LastInsertId()
	if err != nil {
		return err
	}
	stored, err := scanReservation(t.tx.QueryRowContext(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE id = ?`, id))
	if err != nil {
		return err
	}
	*res = stored
	return nil
}

func (t *reservationTx) UpdateReservationDetails(ctx context.Context, res model.Reservation) error {
	const q = `UPDATE reservations
	           SET resource_id = ?, start_time = ?, end_time = ?, purpose = ?, updated_at = CURRENT_TIMESTAMP
	           WHERE id = ?`
	return t.execOne(ctx, q, res.ResourceID, res.StartTime.UTC(), res.EndTime.UTC(), nullString(res.Purpose), res.ID)
}

func (t *reservationTx) UpdateReservationStatus(ctx context.Context, id uint64, status model.Status) error {
	return t.execOne(ctx, `UPDATE reservations SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, status, id)
}

func (t *reservationTx) UpdatePaymentStatus(ctx context.Context, id uint64, status model.PaymentStatus) error {
	return t.execOne(ctx, `UPDATE reservations SET payment_status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, status, id)
}

// execOne runs an UPDATE that must match exactly one locked row.
func (t *reservationTx) execOne(ctx context.Context, q string, args ...interface{}) error {
	out, err := t.tx.ExecContext(ctx, q, args...)
	if err != nil {
		return err
	}
	if n, err := out.RowsAffected(); err == nil && n == 0 {
		return booking.ErrReservationNotFound
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
