package postgres

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	v1 "github.com/aevon-lab/activity-archive/internal/api/v1"
	"github.com/aevon-lab/activity-archive/internal/core/storage"
	"github.com/aevon-lab/activity-archive/internal/core/window"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestAdapter_SaveActivity(t *testing.T) {
	now := time.Date(2026, 2, 8, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		item       *v1.ArchiveItem
		mockResult func(mock sqlmock.Sqlmock, item *v1.ArchiveItem)
		assertions func(t *testing.T, err error)
	}{
		{
			name: "success",
			item: &v1.ArchiveItem{
				ID:        "act-1",
				SubjectID: 7,
				OrderDate: now,
				Kind:      "match",
				Title:     "Friday doubles",
				Value:     decimal.RequireFromString("6.5"),
			},
			mockResult: func(mock sqlmock.Sqlmock, item *v1.ArchiveItem) {
				mock.ExpectQuery(regexp.QuoteMeta(querySaveActivity)).
					WithArgs(
						item.ID,
						item.SubjectID,
						sqlmock.AnyArg(),
						sqlmock.AnyArg(),
						item.Value,
						item.OrderDate,
						sqlmock.AnyArg(),
					).
					WillReturnRows(sqlmock.NewRows([]string{"ingest_seq"}).AddRow(int64(42)))
			},
			assertions: func(t *testing.T, err error) {
				require.NoError(t, err)
			},
		},
		{
			name: "duplicate maps to ErrDuplicate",
			item: &v1.ArchiveItem{ID: "act-dup", SubjectID: 7, OrderDate: now},
			mockResult: func(mock sqlmock.Sqlmock, item *v1.ArchiveItem) {
				mock.ExpectQuery(regexp.QuoteMeta(querySaveActivity)).
					WillReturnRows(sqlmock.NewRows([]string{"ingest_seq"}))
			},
			assertions: func(t *testing.T, err error) {
				require.ErrorIs(t, err, storage.ErrDuplicate)
			},
		},
		{
			name: "driver error is wrapped",
			item: &v1.ArchiveItem{ID: "act-err", SubjectID: 7, OrderDate: now},
			mockResult: func(mock sqlmock.Sqlmock, item *v1.ArchiveItem) {
				mock.ExpectQuery(regexp.QuoteMeta(querySaveActivity)).
					WillReturnError(errors.New("connection reset"))
			},
			assertions: func(t *testing.T, err error) {
				require.ErrorContains(t, err, "failed to save activity")
				require.NotErrorIs(t, err, storage.ErrDuplicate)
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			adapter, mock, db := newMockAdapter(t)
			defer db.Close()

			tc.mockResult(mock, tc.item)

			err := adapter.SaveActivity(context.Background(), tc.item)
			tc.assertions(t, err)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestAdapter_FetchRange(t *testing.T) {
	adapter, mock, db := newMockAdapter(t)
	defer db.Close()

	start := time.Date(2026, 2, 8, 0, 0, 0, 0, time.UTC)
	w := window.TimeWindow{Start: start, End: start.AddDate(0, 0, -7)}

	mock.ExpectQuery(regexp.QuoteMeta(queryFetchRange)).
		WithArgs(w.End, w.Start, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(activityRowColumns()).
			AddRow("act-2", int64(7), "match", "Doubles", "3.25", start.Add(-time.Hour)).
			AddRow("act-1", int64(8), nil, nil, "0", start.Add(-48*time.Hour)),
		).RowsWillBeClosed()

	record, err := adapter.FetchRange(context.Background(), w, []int64{7, 8})
	require.NoError(t, err)
	require.NotNil(t, record)
	require.Equal(t, w.Start, record.RangeStart)
	require.Equal(t, w.End, record.RangeEnd)
	require.Len(t, record.Items, 2)
	require.Equal(t, "act-2", record.Items[0].ID)
	require.Equal(t, "match", record.Items[0].Kind)
	require.True(t, decimal.RequireFromString("3.25").Equal(record.Items[0].Value))
	require.Equal(t, int64(8), record.Items[1].SubjectID)
	require.Empty(t, record.Items[1].Kind)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAdapter_FetchRangeEmptyWindowIsNoData(t *testing.T) {
	adapter, mock, db := newMockAdapter(t)
	defer db.Close()

	start := time.Date(2026, 2, 8, 0, 0, 0, 0, time.UTC)
	w := window.TimeWindow{Start: start, End: start.AddDate(0, -1, 0)}

	mock.ExpectQuery(regexp.QuoteMeta(queryFetchRange)).
		WithArgs(w.End, w.Start, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(activityRowColumns()))

	record, err := adapter.FetchRange(context.Background(), w, nil)
	require.NoError(t, err)
	require.Nil(t, record)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAdapter_ListActivities(t *testing.T) {
	adapter, mock, db := newMockAdapter(t)
	defer db.Close()

	before := time.Date(2026, 2, 8, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta(queryListActivities)).
		WithArgs(int64(7), before, 2).
		WillReturnRows(sqlmock.NewRows(activityRowColumns()).
			AddRow("act-9", int64(7), "drill", "Serve practice", "1", before.Add(-time.Hour)),
		)

	items, err := adapter.ListActivities(context.Background(), 7, before, 2)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, "Serve practice", items[0].Title)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAdapter_CloseReturnsDBCloseError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	dbCloseErr := errors.New("db close failed")

	adapter := &Adapter{
		db:                 db,
		stmtSaveActivity:   mustPrepareStmt(t, db, mock, querySaveActivity),
		stmtFetchRange:     mustPrepareStmt(t, db, mock, queryFetchRange),
		stmtListActivities: mustPrepareStmt(t, db, mock, queryListActivities),
	}
	mock.ExpectClose().WillReturnError(dbCloseErr)

	err = adapter.Close()
	require.Error(t, err)
	require.ErrorContains(t, err, "failed to close database")
	require.ErrorIs(t, err, dbCloseErr)
	require.NoError(t, mock.ExpectationsWereMet())
}

func newMockAdapter(t *testing.T) (*Adapter, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	adapter := &Adapter{
		db:                 db,
		stmtSaveActivity:   mustPrepareStmt(t, db, mock, querySaveActivity),
		stmtFetchRange:     mustPrepareStmt(t, db, mock, queryFetchRange),
		stmtListActivities: mustPrepareStmt(t, db, mock, queryListActivities),
	}

	return adapter, mock, db
}

func mustPrepareStmt(t *testing.T, db *sql.DB, mock sqlmock.Sqlmock, query string) *sql.Stmt {
	t.Helper()

	mock.ExpectPrepare(regexp.QuoteMeta(query))
	stmt, err := db.Prepare(query)
	require.NoError(t, err)

	return stmt
}

func activityRowColumns() []string {
	return []string{
		"id",
		"subject_id",
		"kind",
		"title",
		"value",
		"order_date",
	}
}
