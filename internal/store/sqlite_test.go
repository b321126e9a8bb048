package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devaloi/toastbox/internal/domain"
)

func newTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteRecordAndRecent(t *testing.T) {
	t.Parallel()
	s := newTestSQLite(t)

	now := time.Now().UTC().Truncate(time.Second)
	for i, msg := range []string{"first", "second", "third"} {
		err := s.Record(domain.HistoryEntry{
			Provider: "main",
			ToastID:  int64(i + 1),
			Message:  msg,
			Type:     "default",
			Duration: 1000,
			Reason:   "expired",
			Created:  now.Add(time.Duration(i) * time.Second),
			Closed:   now.Add(time.Duration(i+1) * time.Second),
		})
		require.NoError(t, err)
	}

	recent, err := s.Recent("main", 50)
	require.NoError(t, err)
	require.Len(t, recent, 3)

	assert.Equal(t, "third", recent[0].Message)
	assert.Equal(t, "first", recent[2].Message)
	assert.NotEmpty(t, recent[0].ID)
	assert.Equal(t, int64(3), recent[0].ToastID)
	assert.Equal(t, "expired", recent[0].Reason)
	assert.True(t, recent[0].Closed.Equal(now.Add(3*time.Second)))
}

func TestSQLiteRecentLimit(t *testing.T) {
	t.Parallel()
	s := newTestSQLite(t)

	now := time.Now().UTC()
	for i := 0; i < 10; i++ {
		require.NoError(t, s.Record(domain.HistoryEntry{
			Provider: "main", ToastID: int64(i), Message: "msg", Type: "default",
			Reason: "closed", Created: now, Closed: now.Add(time.Duration(i) * time.Second),
		}))
	}

	recent, err := s.Recent("main", 5)
	require.NoError(t, err)
	assert.Len(t, recent, 5)
}

func TestSQLiteProviderIsolation(t *testing.T) {
	t.Parallel()
	s := newTestSQLite(t)

	require.NoError(t, s.Record(domain.HistoryEntry{Provider: "one", ToastID: 1, Message: "hi", Type: "default", Reason: "closed"}))
	require.NoError(t, s.Record(domain.HistoryEntry{Provider: "two", ToastID: 1, Message: "hi", Type: "default", Reason: "closed"}))

	h1, err := s.Recent("one", 50)
	require.NoError(t, err)
	h2, err := s.Recent("two", 50)
	require.NoError(t, err)

	assert.Len(t, h1, 1)
	assert.Len(t, h2, 1)
}

func TestSQLiteRecordKeepsExplicitID(t *testing.T) {
	t.Parallel()
	s := newTestSQLite(t)

	require.NoError(t, s.Record(domain.HistoryEntry{ID: "fixed", Provider: "main", ToastID: 1, Message: "hi", Type: "default", Reason: "closed"}))
	err := s.Record(domain.HistoryEntry{ID: "fixed", Provider: "main", ToastID: 2, Message: "dup", Type: "default", Reason: "closed"})
	assert.Error(t, err, "duplicate primary key")

	recent, err := s.Recent("main", 10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "fixed", recent[0].ID)
}

func TestSQLiteEmptyHistory(t *testing.T) {
	t.Parallel()
	s := newTestSQLite(t)

	recent, err := s.Recent("empty", 50)
	require.NoError(t, err)
	assert.Empty(t, recent)
}
