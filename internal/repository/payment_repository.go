package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/resource-booking/internal/model"
)

// PaymentRepo stores mobile-money payment attempts.  Each attempt is keyed
// by a locally generated reference that the gateway echoes back.
type PaymentRepo struct {
	db *sql.DB
}

// NewPaymentRepo returns a PaymentRepo bound to db.
func NewPaymentRepo(db *sql.DB) *PaymentRepo { return &PaymentRepo{db: db} }

const paymentColumns = `id, user_id, reservation_id, phone_number, amount, reference, external_id, status, created_at, updated_at`

func scanPayment(s rowScanner) (model.PaymentTransaction, error) {
	var (
		p   model.PaymentTransaction
		ext sql.NullString
	)
	if err := s.Scan(&p.ID, &p.UserID, &p.ReservationID, &p.PhoneNumber, &p.Amount, &p.Reference, &ext, &p.Status, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return model.PaymentTransaction{}, err
	}
	if ext.Valid {
		v := ext.String
		p.ExternalID = &v
	}
	return p, nil
}

// Create inserts a pending transaction and populates its ID.
func (r *PaymentRepo) Create(ctx context.Context, p *model.PaymentTransaction) error {
	const q = `INSERT INTO payment_transactions (user_id, reservation_id, phone_number, amount, reference, status)
	           VALUES (?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, p.UserID, p.ReservationID, p.PhoneNumber, p.Amount, p.Reference, p.Status)
	if err != nil {
		if isDuplicate(err) {
			return ErrConflict
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = uint64(id)
	return nil
}

// GetByReference returns ErrNotFound for unknown references.
func (r *PaymentRepo) GetByReference(ctx context.Context, ref string) (model.PaymentTransaction, error) {
	p, err := scanPayment(r.db.QueryRowContext(ctx, `SELECT `+paymentColumns+` FROM payment_transactions WHERE reference = ?`, ref))
	if errors.Is(err, sql.ErrNoRows) {
		return p, ErrNotFound
	}
	return p, err
}

// ListByReservation returns every attempt for a reservation, newest first.
func (r *PaymentRepo) ListByReservation(ctx context.Context, reservationID uint64) ([]model.PaymentTransaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+paymentColumns+` FROM payment_transactions WHERE reservation_id = ? ORDER BY created_at DESC, id DESC`, reservationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.PaymentTransaction{}
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Resolve moves a pending transaction to its final status.  It returns
// ErrConflict when the transaction was already resolved so duplicate
// gateway callbacks are not applied twice.
func (r *PaymentRepo) Resolve(ctx context.Context, ref string, status model.TransactionStatus, externalID string) error {
	const q = `UPDATE payment_transactions
	           SET status = ?, external_id = ?, updated_at = CURRENT_TIMESTAMP
	           WHERE reference = ? AND status = 'pending'`
	res, err := r.db.ExecContext(ctx, q, status, nullString(externalID), ref)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := r.GetByReference(ctx, ref); err != nil {
			return err
		}
		return ErrConflict
	}
	return nil
}
