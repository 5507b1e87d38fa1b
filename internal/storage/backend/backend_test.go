package backend

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenSQLite(t *testing.T) {
	ctx := context.Background()
	for _, url := range []string{":memory:", "sqlite:" + filepath.Join(t.TempDir(), "orders.db")} {
		s, err := Open(ctx, url)
		require.NoError(t, err, url)
		assert.NoError(t, s.Close())
	}
}

func TestOpenRejectsUnknownScheme(t *testing.T) {
	_, err := Open(context.Background(), "mysql://localhost/db")
	assert.Error(t, err)
}
