package audit

import (
	"context"
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/qe-tools/quality-atlas/pkg/models/store"
	"github.com/qe-tools/quality-atlas/pkg/store/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_AppendAndList(t *testing.T) {
	db, err := sqlite.NewDB(sqlite.Settings{DbPath: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	st, err := NewStore(db)
	require.NoError(t, err)
	ctx := context.Background()

	first := &store.AuditEntry{
		RecordID:  "dev-1",
		FromState: "open",
		ToState:   "investigation",
		Actor:     "qa.lead",
		CreatedAt: time.Date(2026, 3, 11, 10, 0, 0, 0, time.UTC),
	}
	second := &store.AuditEntry{
		RecordID:  "dev-1",
		FromState: "investigation",
		ToState:   "open",
		Actor:     "qa.manager",
		Override:  true,
		CreatedAt: time.Date(2026, 3, 12, 10, 0, 0, 0, time.UTC),
	}

	require.NoError(t, st.Append(ctx, first))
	require.NoError(t, st.Append(ctx, second))
	assert.Greater(t, second.ID, first.ID)

	entries, err := st.ListByRecord(ctx, "dev-1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "investigation", entries[0].ToState)
	assert.False(t, entries[0].Override)
	assert.True(t, entries[1].Override)

	entries, err = st.ListByRecord(ctx, "dev-2")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestStore_Append_ExecError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	st, err := NewStore(db)
	require.NoError(t, err)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO audit_entries")).
		WillReturnError(fmt.Errorf("disk I/O error"))

	appendErr := st.Append(context.Background(), &store.AuditEntry{
		RecordID:  "dev-1",
		FromState: "open",
		ToState:   "investigation",
		Actor:     "qa.lead",
		CreatedAt: time.Now(),
	})
	assert.Error(t, appendErr)
	assert.NoError(t, mock.ExpectationsWereMet())
}
