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

// amount is TEXT so decimal values round-trip without float conversion.
const createGiftsTable = `
CREATE TABLE IF NOT EXISTS gifts (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	event_id INTEGER NOT NULL REFERENCES events(id),
	name TEXT NOT NULL,
	amount TEXT NOT NULL,
	type TEXT NOT NULL DEFAULT '',
	remark TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_gifts_event_id ON gifts(event_id);
`

type GiftRepository struct {
	db Querier
}

func NewGiftRepository(db Querier) repository.GiftRepository {
	return &GiftRepository{db: db}
}

func (r *GiftRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createGiftsTable); err != nil {
		return fmt.Errorf("create gifts table: %w", err)
	}
	return nil
}

func (r *GiftRepository) Create(ctx context.Context, gift *domain.Gift) (int64, error) {
	if gift.CreatedAt.IsZero() {
		gift.CreatedAt = time.Now().UTC()
	}

	res, err := r.db.ExecContext(ctx, `
INSERT INTO gifts (event_id, name, amount, type, remark, created_at)
VALUES (?, ?, ?, ?, ?, ?)`,
		gift.EventID,
		gift.Name,
		gift.Amount.String(),
		gift.Type,
		gift.Remark,
		gift.CreatedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("insert gift: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("gift last insert id: %w", err)
	}
	gift.ID = id
	return id, nil
}

func (r *GiftRepository) ListByEvent(ctx context.Context, eventID int64) ([]domain.Gift, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, event_id, name, amount, type, remark, created_at
FROM gifts
WHERE event_id = ?
ORDER BY created_at DESC, id DESC`,
		eventID,
	)
	if err != nil {
		return nil, fmt.Errorf("query gifts: %w", err)
	}
	defer rows.Close()

	gifts := []domain.Gift{}
	for rows.Next() {
		var gift domain.Gift
		if err := scanGift(rows, &gift); err != nil {
			return nil, err
		}
		gifts = append(gifts, gift)
	}
	return gifts, rows.Err()
}

func (r *GiftRepository) GetWithOwner(ctx context.Context, id int64) (*repository.OwnedGift, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT g.id, g.event_id, g.name, g.amount, g.type, g.remark, g.created_at, e.user_id
FROM gifts g
JOIN events e ON g.event_id = e.id
WHERE g.id = ?`,
		id,
	)

	var owned repository.OwnedGift
	if err := scanGift(row, &owned.Gift, &owned.OwnerID); err != nil {
		return nil, err
	}
	return &owned, nil
}

func (r *GiftRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM gifts WHERE id=?`, id)
	if err != nil {
		return fmt.Errorf("delete gift: %w", err)
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("gift delete rows affected: %w", err)
	}
	if aff == 0 {
		return fmt.Errorf("gift %d: %w", id, repository.ErrNotFound)
	}
	return nil
}

func (r *GiftRepository) DeleteByEvent(ctx context.Context, eventID int64) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM gifts WHERE event_id=?`, eventID)
	if err != nil {
		return 0, fmt.Errorf("delete gifts by event: %w", err)
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("gifts delete rows affected: %w", err)
	}
	return aff, nil
}

func scanGift(row rowScanner, gift *domain.Gift, extra ...any) error {
	dest := []any{
		&gift.ID,
		&gift.EventID,
		&gift.Name,
		&gift.Amount,
		&gift.Type,
		&gift.Remark,
		&gift.CreatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("gift: %w", repository.ErrNotFound)
		}
		return fmt.Errorf("scan gift: %w", err)
	}
	return nil
}
