package repository

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned when a write violates a uniqueness constraint.
	ErrConflict = errors.New("record already exists")
)

// Repositories bundles the ledger repositories bound to one database handle,
// either the pool or a single transaction.
type Repositories struct {
	Events EventRepository
	Gifts  GiftRepository
	Logs   LogRepository
}

// TxRunner runs a unit of work inside a single database transaction.
// The transaction commits when fn returns nil and rolls back otherwise.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error
}
