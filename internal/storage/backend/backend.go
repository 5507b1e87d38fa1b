// Package backend picks a storage implementation from a database URL.
package backend

import (
	"context"
	"fmt"
	"strings"

	"github.com/hoangvu1420/YummyZoom-sub001/internal/storage"
	"github.com/hoangvu1420/YummyZoom-sub001/internal/storage/postgres"
	"github.com/hoangvu1420/YummyZoom-sub001/internal/storage/sqlite"
)

// Open accepts postgres:// and postgresql:// URLs for Postgres, and
// sqlite:<path>, file:<path> or :memory: for SQLite.
func Open(ctx context.Context, url string) (storage.Storage, error) {
	switch {
	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"):
		s, err := postgres.Open(ctx, url)
		if err != nil {
			return nil, err
		}
		return s, nil
	case url == ":memory:", strings.HasPrefix(url, "file:"), strings.HasPrefix(url, "sqlite:"):
		s, err := sqlite.Open(ctx, sqliteDSN(url))
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unsupported database url %q", url)
	}
}

func sqliteDSN(url string) string {
	if rest, ok := strings.CutPrefix(url, "sqlite://"); ok {
		return rest
	}
	if rest, ok := strings.CutPrefix(url, "sqlite:"); ok {
		return rest
	}
	return url
}
