package storage

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"giftbook/internal/domain"
)

// SnapshotContentType is the content type of encoded ledger snapshots.
const SnapshotContentType = "text/csv; charset=utf-8"

var snapshotHeader = []string{"id", "name", "amount", "type", "remark", "created_at"}

// WriteSnapshot encodes gifts as CSV, one row per gift, in the given order.
func WriteSnapshot(w io.Writer, gifts []domain.Gift) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(snapshotHeader); err != nil {
		return fmt.Errorf("write snapshot header: %w", err)
	}
	for i := range gifts {
		g := gifts[i]
		record := []string{
			strconv.FormatInt(g.ID, 10),
			g.Name,
			g.Amount.String(),
			g.Type,
			g.Remark,
			g.CreatedAt.UTC().Format(time.RFC3339),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write snapshot row %d: %w", g.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// SnapshotKey builds a unique object key for a ledger snapshot.
func SnapshotKey(prefix string, userID, eventID int64, at time.Time) string {
	name := fmt.Sprintf("user-%d/event-%d/%s-%s.csv",
		userID,
		eventID,
		at.UTC().Format("20060102T150405Z"),
		uuid.NewString(),
	)
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return name
	}
	return prefix + "/" + name
}
