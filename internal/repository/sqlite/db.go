package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"giftbook/internal/repository"
)

// Querier is satisfied by both *sql.DB and *sql.Tx, so repositories can run
// against the pool or inside a transaction.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Open opens (or creates) a sqlite database at the given path and ensures directories exist.
func Open(path string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	// a single connection serializes writers; sqlite would otherwise return SQLITE_BUSY
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(`PRAGMA foreign_keys = ON;`); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	return db, nil
}

// Init creates every table the service needs. Order matters for foreign keys.
func Init(ctx context.Context, db *sql.DB) error {
	inits := []func(context.Context) error{
		NewUserRepository(db).Init,
		NewEventRepository(db).Init,
		NewGiftRepository(db).Init,
		NewLogRepository(db).Init,
	}
	for _, fn := range inits {
		if err := fn(ctx); err != nil {
			return err
		}
	}
	return nil
}

// NewRepositories binds the ledger repositories to q.
func NewRepositories(q Querier) repository.Repositories {
	return repository.Repositories{
		Events: NewEventRepository(q),
		Gifts:  NewGiftRepository(q),
		Logs:   NewLogRepository(q),
	}
}

type txRunner struct {
	db *sql.DB
}

// NewTxRunner returns a repository.TxRunner backed by db transactions.
func NewTxRunner(db *sql.DB) repository.TxRunner {
	return &txRunner{db: db}
}

func (r *txRunner) RunInTx(ctx context.Context, fn func(ctx context.Context, repos repository.Repositories) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(ctx, NewRepositories(tx)); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "unique")
}

type rowScanner interface {
	Scan(dest ...any) error
}
