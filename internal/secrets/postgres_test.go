package secrets

import (
	"bytes"
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/rail-scheduler/internal/crypto"
	"github.com/example/rail-scheduler/internal/db"
	"github.com/example/rail-scheduler/internal/migrate"
)

// Runs against a real database when RAILSCHED_TEST_DATABASE_URL is set.
func TestPostgresStore(t *testing.T) {
	url := os.Getenv("RAILSCHED_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("RAILSCHED_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	d, err := db.Open(ctx, url)
	require.NoError(t, err)
	t.Cleanup(d.Close)
	_, err = migrate.Up(ctx, d)
	require.NoError(t, err)

	a, err := crypto.New(bytes.Repeat([]byte{3}, 32))
	require.NoError(t, err)
	s := NewPostgres(d, a)

	require.NoError(t, s.Set(ctx, "test", "pass", "one"))
	require.NoError(t, s.Set(ctx, "test", "pass", "two"))
	v, err := s.Get(ctx, "test", "pass")
	require.NoError(t, err)
	assert.Equal(t, "two", v)

	require.NoError(t, s.Delete(ctx, "test", "pass"))
	_, err = s.Get(ctx, "test", "pass")
	assert.ErrorIs(t, err, ErrNotFound)
}
