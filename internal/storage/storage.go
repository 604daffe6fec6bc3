package storage

import (
	"context"
	"io"
)

// Archiver writes ledger snapshots to remote object storage.
type Archiver interface {
	// Put uploads body under key and returns the object location.
	Put(ctx context.Context, key string, body io.Reader, contentType string) (string, error)
}
