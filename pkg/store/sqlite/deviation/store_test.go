package deviation

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/qe-tools/quality-atlas/pkg/models/domain"
	"github.com/qe-tools/quality-atlas/pkg/models/store"
	"github.com/qe-tools/quality-atlas/pkg/store/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	db    *sql.DB
	store Store
}

func setupFixture(t *testing.T) *fixture {
	db, err := sqlite.NewDB(sqlite.Settings{DbPath: ":memory:"})
	require.NoError(t, err)

	st, err := NewStore(db)
	require.NoError(t, err)

	t.Cleanup(func() {
		db.Close()
	})

	return &fixture{db: db, store: st}
}

func testDeviation(id, devID string) *store.Deviation {
	return &store.Deviation{
		ID:                    id,
		DeviationID:           devID,
		BatchNumber:           "B-1001",
		ProductName:           "Amoxicillin 500mg",
		Area:                  "Filling Line 2",
		DateDiscovered:        time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
		CreatedAt:             time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC),
		Severity:              "major",
		ComplianceCheckStatus: "pending",
		Status:                "open",
	}
}

func TestNewStore(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		f := setupFixture(t)
		assert.NotNil(t, f.store)
	})

	t.Run("nil db", func(t *testing.T) {
		st, err := NewStore(nil)
		assert.Error(t, err)
		assert.Nil(t, st)
	})
}

func TestStore_CreateAndGet(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	d := testDeviation("dev-1", "DEV-2026-001")
	require.NoError(t, f.store.Create(ctx, d))
	assert.Equal(t, int64(1), d.Version)

	got, err := f.store.Get(ctx, "dev-1")
	require.NoError(t, err)
	assert.Equal(t, "DEV-2026-001", got.DeviationID)
	assert.Equal(t, "major", got.Severity)
	assert.Equal(t, int64(1), got.Version)
	assert.Nil(t, got.ClosedAt)
}

func TestStore_Get_NotFound(t *testing.T) {
	f := setupFixture(t)

	_, err := f.store.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStore_Update(t *testing.T) {
	ctx := context.Background()

	t.Run("increments version", func(t *testing.T) {
		f := setupFixture(t)
		d := testDeviation("dev-1", "DEV-2026-001")
		require.NoError(t, f.store.Create(ctx, d))

		d.Status = "investigation"
		require.NoError(t, f.store.Update(ctx, d, 1))
		assert.Equal(t, int64(2), d.Version)

		got, err := f.store.Get(ctx, "dev-1")
		require.NoError(t, err)
		assert.Equal(t, "investigation", got.Status)
		assert.Equal(t, int64(2), got.Version)
	})

	t.Run("stale version rejected", func(t *testing.T) {
		f := setupFixture(t)
		d := testDeviation("dev-1", "DEV-2026-001")
		require.NoError(t, f.store.Create(ctx, d))

		d.Status = "investigation"
		require.NoError(t, f.store.Update(ctx, d, 1))

		// second writer still holds version 1
		d.Status = "rca_progress"
		err := f.store.Update(ctx, d, 1)
		assert.ErrorIs(t, err, domain.ErrStaleWriteConflict)
	})

	t.Run("unknown record", func(t *testing.T) {
		f := setupFixture(t)
		err := f.store.Update(ctx, testDeviation("missing", "DEV-2026-999"), 1)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("persists closed_at", func(t *testing.T) {
		f := setupFixture(t)
		d := testDeviation("dev-1", "DEV-2026-001")
		require.NoError(t, f.store.Create(ctx, d))

		closedAt := time.Date(2026, 4, 20, 12, 0, 0, 0, time.UTC)
		d.Status = "closed"
		d.ClosedAt = &closedAt
		require.NoError(t, f.store.Update(ctx, d, 1))

		got, err := f.store.Get(ctx, "dev-1")
		require.NoError(t, err)
		require.NotNil(t, got.ClosedAt)
		assert.Equal(t, closedAt.Unix(), got.ClosedAt.Unix())
	})
}

func TestStore_List(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	open := testDeviation("dev-1", "DEV-2026-001")
	closed := testDeviation("dev-2", "DEV-2026-002")
	closed.Status = "closed"
	closed.DateDiscovered = time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, f.store.Create(ctx, open))
	require.NoError(t, f.store.Create(ctx, closed))

	t.Run("all", func(t *testing.T) {
		records, err := f.store.List(ctx, store.DeviationFilter{})
		require.NoError(t, err)
		assert.Len(t, records, 2)
	})

	t.Run("by status", func(t *testing.T) {
		records, err := f.store.List(ctx, store.DeviationFilter{Statuses: []string{"open"}})
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, "DEV-2026-001", records[0].DeviationID)
	})

	t.Run("by discovery window", func(t *testing.T) {
		after := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
		records, err := f.store.List(ctx, store.DeviationFilter{DiscoveredAfter: &after})
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, "DEV-2026-002", records[0].DeviationID)
	})
}
