// ABOUTME: Tests for the SQLite session cursor store
// ABOUTME: Covers save/load round-trip, monotonic upsert, reset, and reopen

package session

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "session.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_CursorRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, ok, err := s.Cursor(ctx, "conv-1")
	require.NoError(t, err)
	assert.False(t, ok, "fresh conversation has no cursor")

	require.NoError(t, s.SaveCursor(ctx, "conv-1", 42))

	id, ok, err := s.Cursor(ctx, "conv-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 42, id)
}

func TestStore_CursorIsMonotonic(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveCursor(ctx, "conv-1", 10))
	require.NoError(t, s.SaveCursor(ctx, "conv-1", 5))

	id, ok, err := s.Cursor(ctx, "conv-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 10, id, "lower id must not regress the cursor")

	require.NoError(t, s.SaveCursor(ctx, "conv-1", 11))
	id, _, err = s.Cursor(ctx, "conv-1")
	require.NoError(t, err)
	assert.Equal(t, 11, id)
}

func TestStore_CursorsAreScopedByConversation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveCursor(ctx, "conv-a", 3))
	require.NoError(t, s.SaveCursor(ctx, "conv-b", 7))

	id, ok, err := s.Cursor(ctx, "conv-a")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 3, id)

	id, ok, err = s.Cursor(ctx, "conv-b")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 7, id)
}

func TestStore_Reset(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveCursor(ctx, "conv-1", 42))
	require.NoError(t, s.Reset(ctx, "conv-1"))

	_, ok, err := s.Cursor(ctx, "conv-1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.db")
	ctx := context.Background()

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.SaveCursor(ctx, "conv-1", 9))
	require.NoError(t, s.Close())

	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()

	id, ok, err := s2.Cursor(ctx, "conv-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 9, id)
}

func TestStore_CreatesParentDirectories(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "deeper", "session.db")
	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.SaveCursor(context.Background(), "conv-1", 1))
}
