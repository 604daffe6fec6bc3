package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"giftbook/internal/domain"
	"giftbook/internal/repository"
)

// The unique index is what keeps concurrent first accesses from creating two
// default events for one user.
const createEventsTable = `
CREATE TABLE IF NOT EXISTS events (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	title TEXT NOT NULL,
	user_id INTEGER NOT NULL REFERENCES users(id),
	created_at DATETIME NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_events_user_title ON events(user_id, title);
`

type EventRepository struct {
	db Querier
}

func NewEventRepository(db Querier) repository.EventRepository {
	return &EventRepository{db: db}
}

func (r *EventRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createEventsTable); err != nil {
		return fmt.Errorf("create events table: %w", err)
	}
	return nil
}

func (r *EventRepository) FindByOwnerAndTitle(ctx context.Context, userID int64, title string) (*domain.Event, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, title, user_id, created_at
FROM events
WHERE user_id = ? AND title = ?`,
		userID,
		title,
	)
	return scanEvent(row)
}

func (r *EventRepository) CreateIfAbsent(ctx context.Context, event *domain.Event) (bool, error) {
	event.CreatedAt = time.Now().UTC()

	res, err := r.db.ExecContext(ctx, `
INSERT INTO events (title, user_id, created_at)
VALUES (?, ?, ?)
ON CONFLICT(user_id, title) DO NOTHING`,
		event.Title,
		event.UserID,
		event.CreatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("insert event: %w", err)
	}

	aff, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("event rows affected: %w", err)
	}
	if aff == 0 {
		return false, nil
	}

	id, err := res.LastInsertId()
	if err != nil {
		return false, fmt.Errorf("event last insert id: %w", err)
	}
	event.ID = id
	return true, nil
}

func (r *EventRepository) ListByOwner(ctx context.Context, userID int64) ([]domain.Event, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, title, user_id, created_at
FROM events
WHERE user_id = ?
ORDER BY id ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var events []domain.Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, *event)
	}
	return events, rows.Err()
}

func scanEvent(row rowScanner) (*domain.Event, error) {
	var event domain.Event
	if err := row.Scan(
		&event.ID,
		&event.Title,
		&event.UserID,
		&event.CreatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("event: %w", repository.ErrNotFound)
		}
		return nil, fmt.Errorf("scan event: %w", err)
	}
	return &event, nil
}
