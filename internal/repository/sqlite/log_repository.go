package sqlite

import (
	"context"
	"fmt"
	"time"

	"giftbook/internal/domain"
	"giftbook/internal/repository"
)

const createLogsTable = `
CREATE TABLE IF NOT EXISTS logs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER NOT NULL REFERENCES users(id),
	event_id INTEGER NOT NULL REFERENCES events(id),
	action TEXT NOT NULL,
	created_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_logs_user_id ON logs(user_id);
`

type LogRepository struct {
	db Querier
}

func NewLogRepository(db Querier) repository.LogRepository {
	return &LogRepository{db: db}
}

func (r *LogRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createLogsTable); err != nil {
		return fmt.Errorf("create logs table: %w", err)
	}
	return nil
}

func (r *LogRepository) Append(ctx context.Context, entry *domain.LogEntry) (int64, error) {
	entry.CreatedAt = time.Now().UTC()

	res, err := r.db.ExecContext(ctx, `
INSERT INTO logs (user_id, event_id, action, created_at)
VALUES (?, ?, ?, ?)`,
		entry.UserID,
		entry.EventID,
		entry.Action,
		entry.CreatedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("insert log: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("log last insert id: %w", err)
	}
	entry.ID = id
	return id, nil
}

func (r *LogRepository) ListByUser(ctx context.Context, userID int64, limit int) ([]domain.LogEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, user_id, event_id, action, created_at
FROM logs
WHERE user_id = ?
ORDER BY id DESC
LIMIT ?`,
		userID,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query logs: %w", err)
	}
	defer rows.Close()

	entries := []domain.LogEntry{}
	for rows.Next() {
		var entry domain.LogEntry
		if err := rows.Scan(
			&entry.ID,
			&entry.UserID,
			&entry.EventID,
			&entry.Action,
			&entry.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan log: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
