package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/resource-booking/internal/booking"
	"github.com/iliyamo/resource-booking/internal/model"
)

// ResourceRepo provides persistence for the resource ledger.
type ResourceRepo struct {
	db *sql.DB
}

// NewResourceRepo constructs a ResourceRepo with the given DB handle.
func NewResourceRepo(db *sql.DB) *ResourceRepo { return &ResourceRepo{db: db} }

const resourceColumns = `id, name, type, description, quantity, cost, is_available, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanResource(s rowScanner) (model.Resource, error) {
	var r model.Resource
	err := s.Scan(&r.ID, &r.Name, &r.Type, &r.Description, &r.Quantity, &r.Cost, &r.IsAvailable, &r.CreatedAt, &r.UpdatedAt)
	return r, err
}

// Create inserts a resource and reads it back so defaults and timestamps
// are populated.  A duplicate name yields ErrConflict.
func (r *ResourceRepo) Create(ctx context.Context, res *model.Resource) error {
	const q = `INSERT INTO resources (name, type, description, quantity, cost, is_available) VALUES (?, ?, ?, ?, ?, ?)`
	out, err := r.db.ExecContext(ctx, q, res.Name, res.Type, res.Description, res.Quantity, res.Cost, res.IsAvailable)
	if err != nil {
		if isDuplicate(err) {
			return ErrConflict
		}
		return err
	}
	id, err := out.LastInsertId()
	if err != nil {
		return err
	}
	created, err := r.GetByID(ctx, uint64(id))
	if err != nil {
		return err
	}
	*res = created
	return nil
}

// GetByID returns booking.ErrResourceNotFound when no row matches.
func (r *ResourceRepo) GetByID(ctx context.Context, id uint64) (model.Resource, error) {
	res, err := scanResource(r.db.QueryRowContext(ctx, `SELECT `+resourceColumns+` FROM resources WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Resource{}, booking.ErrResourceNotFound
	}
	return res, err
}

// List returns resources ordered by name.  With availableOnly set, only
// resources currently offered for booking are returned.
func (r *ResourceRepo) List(ctx context.Context, availableOnly bool) ([]model.Resource, error) {
	q := `SELECT ` + resourceColumns + ` FROM resources`
	if availableOnly {
		q += ` WHERE is_available = TRUE`
	}
	q += ` ORDER BY name`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Resource{}
	for rows.Next() {
		res, err := scanResource(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

// Update overwrites the editable fields of a resource.  Lowering quantity
// does not touch existing reservations; it only constrains new admissions.
func (r *ResourceRepo) Update(ctx context.Context, res *model.Resource) error {
	const q = `UPDATE resources
	           SET name = ?, type = ?, description = ?, quantity = ?, cost = ?, is_available = ?, updated_at = CURRENT_TIMESTAMP
	           WHERE id = ?`
	out, err := r.db.ExecContext(ctx, q, res.Name, res.Type, res.Description, res.Quantity, res.Cost, res.IsAvailable, res.ID)
	if err != nil {
		if isDuplicate(err) {
			return ErrConflict
		}
		return err
	}
	if n, _ := out.RowsAffected(); n == 0 {
		// MySQL reports zero affected rows for no-op updates too.
		if _, err := r.GetByID(ctx, res.ID); err != nil {
			return err
		}
	}
	updated, err := r.GetByID(ctx, res.ID)
	if err != nil {
		return err
	}
	*res = updated
	return nil
}
