package repository

import (
	"context"

	"giftbook/internal/domain"
)

// EventRepository persists events and their ownership.
type EventRepository interface {
	Init(ctx context.Context) error
	// FindByOwnerAndTitle returns ErrNotFound when the user owns no such event.
	FindByOwnerAndTitle(ctx context.Context, userID int64, title string) (*domain.Event, error)
	// CreateIfAbsent inserts the event unless one with the same owner and
	// title already exists. It reports whether a row was inserted.
	CreateIfAbsent(ctx context.Context, event *domain.Event) (bool, error)
	ListByOwner(ctx context.Context, userID int64) ([]domain.Event, error)
}

// OwnedGift is a gift joined with the owner of its event.
type OwnedGift struct {
	domain.Gift
	OwnerID int64
}

// GiftRepository persists gifts scoped to events.
type GiftRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, gift *domain.Gift) (int64, error)
	// ListByEvent returns gifts newest first.
	ListByEvent(ctx context.Context, eventID int64) ([]domain.Gift, error)
	GetWithOwner(ctx context.Context, id int64) (*OwnedGift, error)
	Delete(ctx context.Context, id int64) error
	DeleteByEvent(ctx context.Context, eventID int64) (int64, error)
}

// LogRepository appends and reads audit entries. Entries are never updated
// or deleted.
type LogRepository interface {
	Init(ctx context.Context) error
	Append(ctx context.Context, entry *domain.LogEntry) (int64, error)
	ListByUser(ctx context.Context, userID int64, limit int) ([]domain.LogEntry, error)
}
