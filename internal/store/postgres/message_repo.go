package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"campusmarket/internal/domain"
)

type MessageRepo struct {
	db *sql.DB
}

func NewMessageRepo(db *sql.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

var _ domain.MessageRepository = (*MessageRepo)(nil)

func (r *MessageRepo) Create(ctx context.Context, m *domain.Message) error {
	if _, err := r.db.ExecContext(ctx, `
		INSERT INTO messages (id, thread_id, sender_id, text, created_at, read_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, m.ID, m.ThreadID, m.SenderID, m.Text, m.CreatedAt, m.ReadAt); err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

func (r *MessageRepo) ListForThread(ctx context.Context, threadID string) ([]*domain.Message, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT m.id, m.thread_id, m.sender_id, m.text, m.created_at, m.read_at,
		       u.name, u.image
		FROM messages m
		JOIN users u ON u.id = m.sender_id
		WHERE m.thread_id = $1
		ORDER BY m.created_at ASC
	`, threadID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	res := []*domain.Message{}
	for rows.Next() {
		m := &domain.Message{Sender: &domain.UserSummary{}}
		if err := rows.Scan(
			&m.ID, &m.ThreadID, &m.SenderID, &m.Text, &m.CreatedAt, &m.ReadAt,
			&m.Sender.Name, &m.Sender.Image,
		); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		m.Sender.ID = m.SenderID
		res = append(res, m)
	}
	return res, rows.Err()
}

func (r *MessageRepo) MarkRead(ctx context.Context, threadID, readerID string, at time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE messages SET read_at = $1
		WHERE thread_id = $2 AND sender_id <> $3 AND read_at IS NULL
	`, at, threadID, readerID)
	if err != nil {
		return 0, fmt.Errorf("mark messages read: %w", err)
	}
	return res.RowsAffected()
}
