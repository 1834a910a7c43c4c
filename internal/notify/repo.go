package notify

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repo struct{ DB *pgxpool.Pool }

func (r *Repo) Insert(ctx context.Context, n *Notification) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	_, err := r.DB.Exec(ctx, `
		INSERT INTO notifications(id, recipient, sender, type, message)
		VALUES ($1, $2, $3, $4, $5)`,
		n.ID, n.Recipient, n.Sender, n.Type, n.Message)
	return err
}

func (r *Repo) ListByRecipient(ctx context.Context, recipient string) ([]Notification, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id, recipient, sender, type, message, read, created_at
		  FROM notifications WHERE recipient = $1 ORDER BY created_at DESC`, recipient)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Notification
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.ID, &n.Recipient, &n.Sender, &n.Type, &n.Message, &n.Read, &n.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// MarkRead marks every unread notification for the recipient.
func (r *Repo) MarkRead(ctx context.Context, recipient string) (int, error) {
	ct, err := r.DB.Exec(ctx, `
		UPDATE notifications SET read = true WHERE recipient = $1 AND read = false`, recipient)
	if err != nil {
		return 0, err
	}
	return int(ct.RowsAffected()), nil
}
