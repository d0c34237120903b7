package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/resource-booking/internal/model"
)

// MessageRepo persists inbox messages.
type MessageRepo struct {
	db *sql.DB
}

func NewMessageRepo(db *sql.DB) *MessageRepo { return &MessageRepo{db: db} }

// Create stores a new unread message.
func (r *MessageRepo) Create(ctx context.Context, m *model.Message) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO user_messages (recipient_id, subject, body) VALUES (?, ?, ?)`,
		m.RecipientID, m.Subject, m.Body)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	m.ID = uint64(id)
	return nil
}

// ListForRecipient returns the user's messages, newest first.
func (r *MessageRepo) ListForRecipient(ctx context.Context, userID uint64) ([]model.Message, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, recipient_id, subject, body, is_read, created_at
		 FROM user_messages WHERE recipient_id = ? ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Message{}
	for rows.Next() {
		var m model.Message
		if err := rows.Scan(&m.ID, &m.RecipientID, &m.Subject, &m.Body, &m.IsRead, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// UnreadCount returns how many unread messages the user has.
func (r *MessageRepo) UnreadCount(ctx context.Context, userID uint64) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM user_messages WHERE recipient_id = ? AND is_read = FALSE`, userID).Scan(&n)
	return n, err
}

// MarkRead flags a message as read.  It returns ErrNotFound when the
// message does not exist or belongs to someone else.
func (r *MessageRepo) MarkRead(ctx context.Context, id, userID uint64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE user_messages SET is_read = TRUE WHERE id = ? AND recipient_id = ?`, id, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
