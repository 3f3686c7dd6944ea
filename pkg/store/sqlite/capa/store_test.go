package capa

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

func testCapa(id, capaID string) *store.CapaAction {
	return &store.CapaAction{
		ID:          id,
		CapaID:      capaID,
		DeviationID: "dev-1",
		Title:       "Recalibrate filling pump",
		Owner:       "j.alvarez",
		DueDate:     time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC),
		Status:      "open",
		CreatedAt:   time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC),
	}
}

func TestStore_CreateAndGet(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	c := testCapa("capa-1", "CAPA-2026-001")
	require.NoError(t, f.store.Create(ctx, c))

	got, err := f.store.Get(ctx, "capa-1")
	require.NoError(t, err)
	assert.Equal(t, "CAPA-2026-001", got.CapaID)
	assert.Equal(t, "open", got.Status)
	assert.Equal(t, int64(1), got.Version)
}

func TestStore_Update(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	c := testCapa("capa-1", "CAPA-2026-001")
	require.NoError(t, f.store.Create(ctx, c))

	c.Status = "in_progress"
	require.NoError(t, f.store.Update(ctx, c, 1))

	err := f.store.Update(ctx, c, 1)
	assert.ErrorIs(t, err, domain.ErrStaleWriteConflict)
}

func TestStore_Delete(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	c := testCapa("capa-1", "CAPA-2026-001")
	require.NoError(t, f.store.Create(ctx, c))

	require.NoError(t, f.store.Delete(ctx, "capa-1"))

	_, err := f.store.Get(ctx, "capa-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	err = f.store.Delete(ctx, "capa-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStore_List(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	first := testCapa("capa-1", "CAPA-2026-001")
	second := testCapa("capa-2", "CAPA-2026-002")
	second.DeviationID = "dev-2"
	second.Status = "closed_verified"
	second.DueDate = time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, f.store.Create(ctx, first))
	require.NoError(t, f.store.Create(ctx, second))

	t.Run("by deviation", func(t *testing.T) {
		records, err := f.store.List(ctx, store.CapaFilter{DeviationID: "dev-1"})
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, "CAPA-2026-001", records[0].CapaID)
	})

	t.Run("by status and due date", func(t *testing.T) {
		due := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
		records, err := f.store.List(ctx, store.CapaFilter{
			Statuses:  []string{"closed_verified"},
			DueBefore: &due,
		})
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, "CAPA-2026-002", records[0].CapaID)
	})
}
