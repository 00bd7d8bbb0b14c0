package bbolt

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/corey/aptlookup/internal/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// bbolt Table Store: import target and "bolt" data source
// Expectation: tables survive restarts, imports are transactional, and a
// second writer fails fast on the file lock instead of hanging.
// =============================================================================

// newTestStore creates a temporary bbolt store for testing.
func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "test.db")
	store, err := NewStore(path)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store, path
}

func makeTestRows() []ports.RawRow {
	return []ports.RawRow{
		{District: "Gangnam", SubDistrict: "Daechi", BuildingName: "Tower A", Info: "info-A", AliasSpec: "TA, 101-110"},
		{District: "Gangnam", SubDistrict: "Daechi", BuildingName: "Tower B", Info: "info-B", AliasSpec: "TB, 111-120"},
		{District: "Seocho", SubDistrict: "Banpo", BuildingName: "River Park", Text: "legacy text"},
	}
}

func TestStore_SaveLoadRows_Roundtrip(t *testing.T) {
	store, _ := newTestStore(t)
	rows := makeTestRows()

	require.NoError(t, store.SaveRows("buildings", rows))

	loaded, err := store.LoadRows("buildings")
	require.NoError(t, err)
	assert.Equal(t, rows, loaded, "rows keep field values and order")
}

func TestStore_LoadRows_Missing(t *testing.T) {
	store, _ := newTestStore(t)

	rows, err := store.LoadRows("nope")
	require.NoError(t, err)
	assert.Nil(t, rows)
}

func TestStore_SaveRows_Replaces(t *testing.T) {
	store, _ := newTestStore(t)
	require.NoError(t, store.SaveRows("buildings", makeTestRows()))
	require.NoError(t, store.SaveRows("buildings", makeTestRows()[:1]))

	loaded, err := store.LoadRows("buildings")
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, "Tower A", loaded[0].BuildingName)
}

func TestStore_SaveRows_EmptyTableIsNotMissing(t *testing.T) {
	store, _ := newTestStore(t)
	require.NoError(t, store.SaveRows("empty", nil))

	loaded, err := store.LoadRows("empty")
	require.NoError(t, err)
	assert.NotNil(t, loaded)
	assert.Empty(t, loaded)
}

func TestStore_SaveRows_RejectsEmptyName(t *testing.T) {
	store, _ := newTestStore(t)
	assert.Error(t, store.SaveRows("", makeTestRows()))
}

func TestStore_TablesScoped(t *testing.T) {
	store, _ := newTestStore(t)
	require.NoError(t, store.SaveRows("a", makeTestRows()[:1]))
	require.NoError(t, store.SaveRows("b", makeTestRows()))

	a, err := store.LoadRows("a")
	require.NoError(t, err)
	b, err := store.LoadRows("b")
	require.NoError(t, err)
	assert.Len(t, a, 1)
	assert.Len(t, b, 3)

	tables, err := store.Tables()
	require.NoError(t, err)
	require.Len(t, tables, 2)
	assert.Equal(t, "a", tables[0].Name)
	assert.Equal(t, 1, tables[0].Rows)
	assert.Equal(t, "b", tables[1].Name)
	assert.Equal(t, 3, tables[1].Rows)
	assert.False(t, tables[1].ImportedAt.IsZero())
}

func TestStore_DeleteTable(t *testing.T) {
	store, _ := newTestStore(t)
	require.NoError(t, store.SaveRows("buildings", makeTestRows()))

	require.NoError(t, store.DeleteTable("buildings"))
	rows, err := store.LoadRows("buildings")
	require.NoError(t, err)
	assert.Nil(t, rows)

	// Idempotent, including on a fresh database.
	assert.NoError(t, store.DeleteTable("buildings"))
	fresh, _ := newTestStore(t)
	assert.NoError(t, fresh.DeleteTable("anything"))
}

func TestStore_ConcurrentReads(t *testing.T) {
	store, _ := newTestStore(t)
	require.NoError(t, store.SaveRows("buildings", makeTestRows()))

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rows, err := store.LoadRows("buildings")
			if err != nil {
				errs <- err
				return
			}
			if len(rows) != 3 {
				errs <- fmt.Errorf("got %d rows", len(rows))
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

func TestStore_SurvivesRestart(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "restart.db")

	store1, err := NewStore(path)
	require.NoError(t, err)
	require.NoError(t, store1.SaveRows("buildings", makeTestRows()))
	require.NoError(t, store1.Close())

	store2, err := NewStore(path)
	require.NoError(t, err)
	defer store2.Close()

	rows, err := store2.LoadRows("buildings")
	require.NoError(t, err)
	assert.Equal(t, makeTestRows(), rows)
}

// =============================================================================
// Lock contention tests: verify the 1s timeout prevents hangs
// =============================================================================

func TestStore_OpenTimeout_DoesNotHang(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "locked.db")

	// First store holds the exclusive lock.
	store1, err := NewStore(path)
	require.NoError(t, err)
	defer store1.Close()

	start := time.Now()
	store2, err := NewStore(path)
	elapsed := time.Since(start)

	require.Error(t, err, "second open should fail with lock timeout")
	assert.Nil(t, store2)
	assert.Contains(t, err.Error(), "bbolt open")
	assert.Contains(t, err.Error(), "timeout")
	assert.Less(t, elapsed, 3*time.Second, "should complete within 3s, not hang")
	assert.GreaterOrEqual(t, elapsed, 900*time.Millisecond, "should wait ~1s for the configured timeout")
}

func TestStore_OpenAfterClose_Succeeds(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "released.db")

	store1, err := NewStore(path)
	require.NoError(t, err)
	require.NoError(t, store1.SaveRows("buildings", makeTestRows()))
	store1.Close()

	start := time.Now()
	store2, err := NewStore(path)
	elapsed := time.Since(start)

	require.NoError(t, err, "open after close should succeed")
	defer store2.Close()
	assert.Less(t, elapsed, 500*time.Millisecond, "should open instantly after lock released")
	assert.Equal(t, path, store2.Path())
}

// =============================================================================
// Source: "bolt" RowSource
// =============================================================================

func TestSource_Fetch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tables.db")
	store, err := NewStore(path)
	require.NoError(t, err)
	require.NoError(t, store.SaveRows("buildings", makeTestRows()))
	require.NoError(t, store.Close())

	src := NewSource(path, "buildings")
	rows, err := src.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, makeTestRows(), rows)
	assert.Contains(t, src.Describe(), "buildings")
}

func TestSource_Fetch_MissingTableIsShapeFailure(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tables.db")
	store, err := NewStore(path)
	require.NoError(t, err)
	require.NoError(t, store.SaveRows("other", makeTestRows()))
	require.NoError(t, store.Close())

	_, err = NewSource(path, "buildings").Fetch(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ports.ErrLoadShape))
	assert.False(t, ports.Retryable(err))
}

func TestSource_Fetch_MissingFileIsTransportFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.db")

	_, err := NewSource(path, "buildings").Fetch(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ports.ErrLoadTransport))
	assert.True(t, ports.Retryable(err))
}

func TestSource_Fetch_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewSource(filepath.Join(t.TempDir(), "x.db"), "t").Fetch(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}
