package history

import (
	"io"
	"log"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "history.db")
	store, err := NewStore(path, log.New(io.Discard, "", 0))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStore_EmptyTotals(t *testing.T) {
	store := testStore(t)
	totals, err := store.TotalsByExercise()
	require.NoError(t, err)
	assert.Empty(t, totals)
}

func TestStore_RecordAndTotal(t *testing.T) {
	store := testStore(t)
	now := time.Now()

	require.NoError(t, store.RecordRep("Squat", 1, now))
	require.NoError(t, store.RecordRep("Squat", 2, now))
	require.NoError(t, store.RecordRep("Push-up", 1, now))

	totals, err := store.TotalsByExercise()
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"Squat": 2, "Push-up": 1}, totals)
}

func TestStore_TotalsSurviveReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	logger := log.New(io.Discard, "", 0)

	store, err := NewStore(path, logger)
	require.NoError(t, err)
	require.NoError(t, store.RecordRep("Lunge", 1, time.Now()))
	require.NoError(t, store.Close())

	reopened, err := NewStore(path, logger)
	require.NoError(t, err)
	defer reopened.Close()

	totals, err := reopened.TotalsByExercise()
	require.NoError(t, err)
	assert.Equal(t, 1, totals["Lunge"])
}

func TestStore_NilLoggerPanics(t *testing.T) {
	assert.Panics(t, func() {
		NewStore(filepath.Join(t.TempDir(), "x.db"), nil)
	})
}
