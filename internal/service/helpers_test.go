package service

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"giftbook/internal/auth"
	"giftbook/internal/repository/sqlite"
	"giftbook/internal/storage"
)

type testEnv struct {
	db     *sql.DB
	users  UserService
	events EventService
	ledger LedgerService
	audit  AuditService
	tokens *auth.TokenManager
}

func newTestEnv(t *testing.T, archiver storage.Archiver) *testEnv {
	t.Helper()

	db, err := sqlite.Open(filepath.Join(t.TempDir(), "giftbook.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := sqlite.Init(context.Background(), db); err != nil {
		t.Fatalf("init db: %v", err)
	}

	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)

	tokens := auth.NewTokenManager("test-secret", time.Hour)
	events := NewEventService(sqlite.NewEventRepository(db))
	return &testEnv{
		db:     db,
		users:  NewUserService(sqlite.NewUserRepository(db), tokens, bcrypt.MinCost),
		events: events,
		ledger: NewLedgerService(LedgerConfig{
			Archiver:      archiver,
			ArchivePrefix: "test-archive",
			Logger:        logger,
		}, events, sqlite.NewGiftRepository(db), sqlite.NewTxRunner(db)),
		audit:  NewAuditService(sqlite.NewLogRepository(db)),
		tokens: tokens,
	}
}

func (e *testEnv) register(t *testing.T, username string) int64 {
	t.Helper()

	user, err := e.users.Register(context.Background(), username, "secret1")
	if err != nil {
		t.Fatalf("register %s: %v", username, err)
	}
	return user.ID
}
