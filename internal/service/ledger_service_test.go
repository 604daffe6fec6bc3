package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"giftbook/internal/domain"
)

type fakeArchiver struct {
	mu    sync.Mutex
	err   error
	keys  []string
	body  []byte
	onPut func(call int)
}

func (f *fakeArchiver) Put(ctx context.Context, key string, body io.Reader, contentType string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	f.keys = append(f.keys, key)
	f.body = data
	if f.onPut != nil {
		f.onPut(len(f.keys))
	}
	return "s3://test-bucket/" + key, nil
}

func amount(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func addGift(t *testing.T, ledger LedgerService, userID int64, name, value string) *domain.Gift {
	t.Helper()

	gift, err := ledger.Add(context.Background(), userID, AddGiftInput{Name: name, Amount: amount(value)})
	if err != nil {
		t.Fatalf("add gift %s: %v", name, err)
	}
	return gift
}

func TestLedgerService_AddAndList(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	alice := env.register(t, "alice")

	t.Run("first list creates the default event and is empty", func(t *testing.T) {
		gifts, err := env.ledger.List(ctx, alice)
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if len(gifts) != 0 {
			t.Fatalf("expected empty ledger, got %d", len(gifts))
		}
		if _, err := env.events.FindDefault(ctx, alice); err != nil {
			t.Fatalf("default event not created: %v", err)
		}
	})

	t.Run("missing name or amount is rejected", func(t *testing.T) {
		cases := []AddGiftInput{
			{Name: "", Amount: amount("100")},
			{Name: "  ", Amount: amount("100")},
			{Name: "张三"},
		}
		for _, in := range cases {
			if _, err := env.ledger.Add(ctx, alice, in); !errors.Is(err, ErrGiftFieldsRequired) {
				t.Errorf("Add(%+v) error = %v, want ErrGiftFieldsRequired", in, err)
			}
		}
	})

	t.Run("type defaults to cash and zero amount is accepted", func(t *testing.T) {
		gift, err := env.ledger.Add(ctx, alice, AddGiftInput{Name: "张三", Amount: amount("0")})
		if err != nil {
			t.Fatalf("Add failed: %v", err)
		}
		if gift.Type != domain.DefaultGiftType {
			t.Errorf("type = %q, want %q", gift.Type, domain.DefaultGiftType)
		}
	})

	addGift(t, env.ledger, alice, "李四", "200.50")
	addGift(t, env.ledger, alice, "王五", "100")

	t.Run("list is newest first with exact total", func(t *testing.T) {
		gifts, err := env.ledger.List(ctx, alice)
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if len(gifts) != 3 {
			t.Fatalf("expected 3 gifts, got %d", len(gifts))
		}
		if gifts[0].Name != "王五" {
			t.Errorf("first gift = %s, want 王五", gifts[0].Name)
		}
		if total := domain.SumAmounts(gifts); !total.Equal(decimal.RequireFromString("300.5")) {
			t.Errorf("total = %s, want 300.5", total)
		}
	})

	t.Run("adds are audited", func(t *testing.T) {
		entries, err := env.audit.Recent(ctx, alice, 0)
		if err != nil {
			t.Fatalf("Recent failed: %v", err)
		}
		if len(entries) != 3 {
			t.Fatalf("expected 3 log entries, got %d", len(entries))
		}
		if entries[0].Action != "新增礼金记录：王五 - 100元" {
			t.Errorf("action = %q", entries[0].Action)
		}
	})
}

func TestLedgerService_AddValidatesAmount(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	alice := env.register(t, "alice")

	t.Run("amounts outside currency bounds are rejected", func(t *testing.T) {
		for _, value := range []string{"1e400000", "1e-400000", "0.001", "1e12", "1234567890123", "0e40"} {
			_, err := env.ledger.Add(ctx, alice, AddGiftInput{Name: "张三", Amount: amount(value)})
			if !errors.Is(err, ErrInvalidAmount) || !errors.Is(err, ErrValidation) {
				t.Errorf("Add(%s) error = %v, want ErrInvalidAmount", value, err)
			}
		}

		var count int
		if err := env.db.QueryRow(`SELECT COUNT(*) FROM gifts`).Scan(&count); err != nil {
			t.Fatalf("count gifts: %v", err)
		}
		if count != 0 {
			t.Fatalf("rejected amounts stored %d gifts", count)
		}
	})

	t.Run("amounts within bounds are accepted", func(t *testing.T) {
		cases := []struct {
			in   string
			want string
		}{
			{in: "123456789012.34", want: "123456789012.34"},
			{in: "100.000", want: "100"},
			{in: "-5", want: "-5"},
		}
		for _, tc := range cases {
			gift, err := env.ledger.Add(ctx, alice, AddGiftInput{Name: "边界", Amount: amount(tc.in)})
			if err != nil {
				t.Fatalf("Add(%s) failed: %v", tc.in, err)
			}
			if !gift.Amount.Equal(decimal.RequireFromString(tc.want)) {
				t.Errorf("amount = %s, want %s", gift.Amount, tc.want)
			}
			if err := env.ledger.Delete(ctx, alice, gift.ID); err != nil {
				t.Fatalf("Delete failed: %v", err)
			}
		}
	})
}

func TestLedgerService_UsersAreIsolated(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	alice := env.register(t, "alice")
	bob := env.register(t, "bob")

	gift := addGift(t, env.ledger, alice, "张三", "100")

	t.Run("other users do not see the gift", func(t *testing.T) {
		gifts, err := env.ledger.List(ctx, bob)
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if len(gifts) != 0 {
			t.Fatalf("bob sees %d gifts", len(gifts))
		}
	})

	t.Run("other users cannot delete it", func(t *testing.T) {
		if err := env.ledger.Delete(ctx, bob, gift.ID); !errors.Is(err, ErrForbidden) {
			t.Fatalf("expected ErrForbidden, got %v", err)
		}
		gifts, err := env.ledger.List(ctx, alice)
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if len(gifts) != 1 {
			t.Fatalf("gift was removed by another user")
		}
	})

	t.Run("owner deletes it", func(t *testing.T) {
		if err := env.ledger.Delete(ctx, alice, gift.ID); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
		if err := env.ledger.Delete(ctx, alice, gift.ID); !errors.Is(err, ErrGiftNotFound) {
			t.Fatalf("expected ErrGiftNotFound, got %v", err)
		}
	})

	t.Run("unknown id", func(t *testing.T) {
		if err := env.ledger.Delete(ctx, alice, 424242); !errors.Is(err, ErrGiftNotFound) {
			t.Fatalf("expected ErrGiftNotFound, got %v", err)
		}
	})
}

func TestLedgerService_Clear(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	alice := env.register(t, "alice")
	bob := env.register(t, "bob")

	t.Run("no event yet", func(t *testing.T) {
		err := env.ledger.Clear(ctx, alice)
		if !errors.Is(err, ErrNoEvent) || !errors.Is(err, ErrNoRecords) {
			t.Fatalf("expected ErrNoEvent, got %v", err)
		}
	})

	addGift(t, env.ledger, alice, "张三", "100")
	addGift(t, env.ledger, alice, "李四", "200")
	addGift(t, env.ledger, bob, "赵六", "300")

	t.Run("clears only the caller's ledger", func(t *testing.T) {
		if err := env.ledger.Clear(ctx, alice); err != nil {
			t.Fatalf("Clear failed: %v", err)
		}

		gifts, err := env.ledger.List(ctx, alice)
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if len(gifts) != 0 {
			t.Fatalf("expected empty ledger, got %d", len(gifts))
		}

		others, err := env.ledger.List(ctx, bob)
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if len(others) != 1 {
			t.Fatalf("bob's ledger changed: %d gifts", len(others))
		}
	})

	t.Run("second clear reports nothing to clear", func(t *testing.T) {
		err := env.ledger.Clear(ctx, alice)
		if !errors.Is(err, ErrLedgerEmpty) || !errors.Is(err, ErrNoRecords) {
			t.Fatalf("expected ErrLedgerEmpty, got %v", err)
		}
	})

	t.Run("clear is audited once", func(t *testing.T) {
		entries, err := env.audit.Recent(ctx, alice, 10)
		if err != nil {
			t.Fatalf("Recent failed: %v", err)
		}
		if len(entries) == 0 || entries[0].Action != "清空所有礼金记录" {
			t.Fatalf("unexpected latest entry %+v", entries)
		}
	})
}

func TestLedgerService_ClearArchives(t *testing.T) {
	archiver := &fakeArchiver{}
	env := newTestEnv(t, archiver)
	ctx := context.Background()
	alice := env.register(t, "alice")

	addGift(t, env.ledger, alice, "张三", "100")

	if err := env.ledger.Clear(ctx, alice); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}

	if len(archiver.keys) != 1 || !strings.HasPrefix(archiver.keys[0], "test-archive/user-") {
		t.Fatalf("unexpected archive keys %v", archiver.keys)
	}
	if !bytes.Contains(archiver.body, []byte("张三,100,")) {
		t.Errorf("snapshot missing gift row: %s", archiver.body)
	}

	entries, err := env.audit.Recent(ctx, alice, 1)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if !strings.Contains(entries[0].Action, "s3://test-bucket/test-archive/") {
		t.Errorf("action does not mention archive: %q", entries[0].Action)
	}
}

func TestLedgerService_ClearKeepsGiftsWhenArchiveFails(t *testing.T) {
	archiver := &fakeArchiver{err: errors.New("bucket unavailable")}
	env := newTestEnv(t, archiver)
	ctx := context.Background()
	alice := env.register(t, "alice")

	addGift(t, env.ledger, alice, "张三", "100")

	if err := env.ledger.Clear(ctx, alice); err == nil {
		t.Fatal("expected Clear to fail")
	}

	gifts, err := env.ledger.List(ctx, alice)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(gifts) != 1 {
		t.Fatalf("expected gift to survive failed archive, got %d", len(gifts))
	}
}

func TestEventService_ConcurrentResolveCreatesOneEvent(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	alice := env.register(t, "alice")

	const workers = 8
	ids := make([]int64, workers)
	errs := make([]error, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ids[i], errs[i] = env.events.ResolveDefault(ctx, alice)
		}(i)
	}
	wg.Wait()

	for i := range ids {
		if errs[i] != nil {
			t.Fatalf("worker %d: %v", i, errs[i])
		}
		if ids[i] != ids[0] {
			t.Fatalf("workers resolved different events: %v", ids)
		}
	}

	var count int
	if err := env.db.QueryRow(`SELECT COUNT(*) FROM events WHERE user_id = ?`, alice).Scan(&count); err != nil {
		t.Fatalf("count events: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 event, got %d", count)
	}
}

func TestLedgerService_ClearRetriesWhenLedgerChangesDuringUpload(t *testing.T) {
	archiver := &fakeArchiver{}
	env := newTestEnv(t, archiver)
	ctx := context.Background()
	alice := env.register(t, "alice")

	addGift(t, env.ledger, alice, "张三", "100")

	// the upload runs while the store is free, so a concurrent add can land
	archiver.onPut = func(call int) {
		if call == 1 {
			addGift(t, env.ledger, alice, "李四", "200")
		}
	}

	if err := env.ledger.Clear(ctx, alice); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}

	if len(archiver.keys) != 2 {
		t.Fatalf("expected 2 uploads, got %d", len(archiver.keys))
	}
	if !bytes.Contains(archiver.body, []byte("李四,200,")) {
		t.Errorf("final snapshot missing late gift: %s", archiver.body)
	}

	gifts, err := env.ledger.List(ctx, alice)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(gifts) != 0 {
		t.Fatalf("expected empty ledger, got %d", len(gifts))
	}
}

func TestLedgerService_ClearGivesUpWhenLedgerKeepsChanging(t *testing.T) {
	archiver := &fakeArchiver{}
	env := newTestEnv(t, archiver)
	ctx := context.Background()
	alice := env.register(t, "alice")

	addGift(t, env.ledger, alice, "张三", "100")
	archiver.onPut = func(int) {
		addGift(t, env.ledger, alice, "李四", "200")
	}

	if err := env.ledger.Clear(ctx, alice); !errors.Is(err, ErrLedgerChanged) {
		t.Fatalf("expected ErrLedgerChanged, got %v", err)
	}
	if len(archiver.keys) != clearArchiveAttempts {
		t.Errorf("uploads = %d, want %d", len(archiver.keys), clearArchiveAttempts)
	}

	gifts, err := env.ledger.List(ctx, alice)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(gifts) != 1+clearArchiveAttempts {
		t.Fatalf("expected all gifts kept, got %d", len(gifts))
	}
}
