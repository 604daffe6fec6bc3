package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	// DefaultEventTitle is the title of the event every user implicitly owns.
	DefaultEventTitle = "默认事项"
	// DefaultGiftType is used when a gift is recorded without a payment type.
	DefaultGiftType = "现金"
)

// Event groups gifts. A user may own many events; only the default one is
// materialized today.
type Event struct {
	ID        int64
	Title     string
	UserID    int64
	CreatedAt time.Time
}

// Gift is a single monetary gift recorded against an event.
type Gift struct {
	ID        int64
	EventID   int64
	Name      string
	Amount    decimal.Decimal
	Type      string
	Remark    string
	CreatedAt time.Time
}

// LogEntry is an append-only audit record of a mutating ledger action.
type LogEntry struct {
	ID        int64
	UserID    int64
	EventID   int64
	Action    string
	CreatedAt time.Time
}

// SumAmounts totals the amounts of the given gifts.
func SumAmounts(gifts []Gift) decimal.Decimal {
	total := decimal.Zero
	for i := range gifts {
		total = total.Add(gifts[i].Amount)
	}
	return total
}
