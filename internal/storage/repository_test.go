package storage_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"billgen/internal/core"
	"billgen/internal/storage"
	"billgen/internal/testutil"
)

func fixtureRows() []testutil.Row {
	return []testutil.Row{
		{Time: "2024-12-30 18:00:00", Amount: 50.00, Info: "dinner", Source: "wechat", UpdatedAt: 90},
		{Time: "2025-03-05 12:10:00", Amount: 19.99, Info: "lunch", Source: "alipay", UpdatedAt: 100},
		{Time: "2025-03-14 09:30:45", Amount: 19.99, Info: "groceries", Note: "/", Source: "cmbcc", UpdatedAt: 150},
		{Time: "2025-03-20 20:05:00", Amount: 19.99, Info: "taxi", UpdatedAt: 120},
		{Time: "2025-05-01 08:00:00", Amount: 42.50, Info: "books", Source: "ALIPAY", UpdatedAt: 200},
		// Out-of-scope category: must be invisible to every query.
		{Time: "2025-03-10 10:00:00", Amount: 999, Info: "salary", Type: "收入", UpdatedAt: 500},
	}
}

func TestOpenMissingFile(t *testing.T) {
	_, err := storage.Open(filepath.Join(t.TempDir(), "absent.sqlite"))
	require.Error(t, err)
}

func TestMonthWatermarks(t *testing.T) {
	_, repo := testutil.SetupDB(t, fixtureRows())

	got, err := repo.MonthWatermarks(context.Background())
	require.NoError(t, err)

	want := []storage.MonthWatermark{
		{Year: 2024, Month: 12, UpdatedAt: 90},
		{Year: 2025, Month: 3, UpdatedAt: 150},
		{Year: 2025, Month: 5, UpdatedAt: 200},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("month watermarks mismatch (-want +got):\n%s", diff)
	}
}

func TestYearWatermarks(t *testing.T) {
	_, repo := testutil.SetupDB(t, fixtureRows())

	got, err := repo.YearWatermarks(context.Background())
	require.NoError(t, err)

	want := []storage.YearWatermark{
		{Year: 2024, UpdatedAt: 90},
		{Year: 2025, UpdatedAt: 200},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("year watermarks mismatch (-want +got):\n%s", diff)
	}
}

func TestSummaryWatermark(t *testing.T) {
	_, repo := testutil.SetupDB(t, fixtureRows())

	latest, ok, err := repo.SummaryWatermark(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(200), latest)
}

func TestSummaryWatermarkEmptyStore(t *testing.T) {
	_, repo := testutil.SetupDB(t, nil)

	_, ok, err := repo.SummaryWatermark(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMonthWatermarkSingleKey(t *testing.T) {
	_, repo := testutil.SetupDB(t, fixtureRows())

	latest, ok, err := repo.MonthWatermark(context.Background(), 2025, 3)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(150), latest)

	_, ok, err = repo.MonthWatermark(context.Background(), 2025, 4)
	require.NoError(t, err)
	assert.False(t, ok, "month with no rows must report an absent watermark")
}

func TestMonthTransactions(t *testing.T) {
	_, repo := testutil.SetupDB(t, fixtureRows())

	rows, err := repo.MonthTransactions(context.Background(), 2025, 3)
	require.NoError(t, err)
	require.Len(t, rows, 3, "out-of-scope categories must be filtered")

	assert.Equal(t, "2025-03-05 12:10:00", rows[0].Time)
	assert.Equal(t, "2025-03-14 09:30:45", rows[1].Time)
	assert.Equal(t, "2025-03-20 20:05:00", rows[2].Time)
	assert.Equal(t, "lunch", rows[0].Description)
	assert.Equal(t, "alipay", rows[0].Source)
	assert.Equal(t, "/", rows[1].Note)

	assert.Equal(t, "59.97", core.SumTransactions(rows).StringFixed(2))
}

func TestYearMonthlyTotals(t *testing.T) {
	_, repo := testutil.SetupDB(t, fixtureRows())

	got, err := repo.YearMonthlyTotals(context.Background(), 2025)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, 3, got[0].Month)
	assert.Equal(t, 3, got[0].Count)
	assert.Equal(t, int64(150), got[0].UpdatedAt)
	assert.InDelta(t, 59.97, got[0].Total, 0.001)

	assert.Equal(t, 5, got[1].Month)
	assert.Equal(t, 1, got[1].Count)
}

func TestYearlyTotals(t *testing.T) {
	_, repo := testutil.SetupDB(t, fixtureRows())

	got, err := repo.YearlyTotals(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)

	// Descending by year.
	assert.Equal(t, 2025, got[0].Year)
	assert.Equal(t, 4, got[0].Count)
	assert.Equal(t, 2024, got[1].Year)
	assert.Equal(t, 1, got[1].Count)
}

func TestRecentMonths(t *testing.T) {
	rows := []testutil.Row{
		{Time: "2025-05-02 10:00:00", Amount: 10, Info: "a", UpdatedAt: 10},
		{Time: "2025-07-15 10:00:00", Amount: 20, Info: "b", UpdatedAt: 20},
	}
	_, repo := testutil.SetupDB(t, rows)

	got, err := repo.RecentMonths(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 3)

	// Window is anchored at the latest record (2025-07), not at the
	// wall clock, descending, with zero-valued entries for empty months.
	assert.Equal(t, 2025, got[0].Year)
	assert.Equal(t, 7, got[0].Month)
	assert.Equal(t, 1, got[0].Count)

	assert.Equal(t, 6, got[1].Month)
	assert.Equal(t, 0, got[1].Count)
	assert.Equal(t, 0.0, got[1].Total)

	assert.Equal(t, 5, got[2].Month)
	assert.Equal(t, 1, got[2].Count)
}

func TestRecentMonthsCrossYearBoundary(t *testing.T) {
	rows := []testutil.Row{
		{Time: "2025-01-10 10:00:00", Amount: 5, Info: "jan", UpdatedAt: 10},
	}
	_, repo := testutil.SetupDB(t, rows)

	got, err := repo.RecentMonths(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, 2025, got[0].Year)
	assert.Equal(t, 1, got[0].Month)
	assert.Equal(t, 2024, got[1].Year)
	assert.Equal(t, 12, got[1].Month)
	assert.Equal(t, 2024, got[2].Year)
	assert.Equal(t, 11, got[2].Month)
}

func TestRecentMonthsEmptyStore(t *testing.T) {
	_, repo := testutil.SetupDB(t, nil)

	got, err := repo.RecentMonths(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got)
}
