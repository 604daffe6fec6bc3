package storage

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"giftbook/internal/domain"
)

func TestWriteSnapshot(t *testing.T) {
	created := time.Date(2024, 2, 10, 8, 30, 0, 0, time.UTC)
	gifts := []domain.Gift{
		{ID: 2, Name: "李四", Amount: decimal.RequireFromString("200.50"), Type: "微信", Remark: "带, 逗号", CreatedAt: created},
		{ID: 1, Name: "张三", Amount: decimal.NewFromInt(100), Type: domain.DefaultGiftType, CreatedAt: created},
	}

	var buf bytes.Buffer
	if err := WriteSnapshot(&buf, gifts); err != nil {
		t.Fatalf("WriteSnapshot failed: %v", err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected header + 2 rows, got %d", len(records))
	}
	if strings.Join(records[0], ",") != "id,name,amount,type,remark,created_at" {
		t.Errorf("header = %v", records[0])
	}

	want := []string{"2", "李四", "200.5", "微信", "带, 逗号", "2024-02-10T08:30:00Z"}
	for i := range want {
		if records[1][i] != want[i] {
			t.Errorf("row[%d] = %q, want %q", i, records[1][i], want[i])
		}
	}
}

func TestSnapshotKey(t *testing.T) {
	at := time.Date(2024, 2, 10, 8, 30, 0, 0, time.UTC)

	tests := []struct {
		name   string
		prefix string
		want   string
	}{
		{name: "with prefix", prefix: "/archive/", want: "archive/user-7/event-3/20240210T083000Z-"},
		{name: "no prefix", prefix: "", want: "user-7/event-3/20240210T083000Z-"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := SnapshotKey(tt.prefix, 7, 3, at)
			if !strings.HasPrefix(key, tt.want) || !strings.HasSuffix(key, ".csv") {
				t.Errorf("key = %q, want prefix %q", key, tt.want)
			}
		})
	}

	if SnapshotKey("p", 1, 1, at) == SnapshotKey("p", 1, 1, at) {
		t.Error("keys for the same instant must differ")
	}
}
