package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"billgen/internal/core"

	_ "modernc.org/sqlite"
)

// expenseType is the category literal marking in-scope rows in the BILL
// table. Rows with any other TYPE are ignored by every query.
const expenseType = "消费"

// Repository provides read-only access to the transaction store. It issues
// no writes: the store is owned by an external ingestion process.
type Repository struct {
	db *sql.DB
}

// MonthWatermark is the freshness watermark of one calendar month.
type MonthWatermark struct {
	Year      int
	Month     int
	UpdatedAt int64
}

// YearWatermark is the freshness watermark of one calendar year.
type YearWatermark struct {
	Year      int
	UpdatedAt int64
}

// Open opens an existing store. A missing database file is an error: the
// sqlite driver would otherwise create an empty one, and this process must
// never bring a store into existence.
func Open(dbPath string) (*Repository, error) {
	if _, err := os.Stat(dbPath); err != nil {
		return nil, fmt.Errorf("database file %s: %w", dbPath, err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// MonthWatermarks returns the freshness watermark for every distinct month
// present among expense rows, ordered ascending. The key set is derived
// from the data on every call and never cached.
func (r *Repository) MonthWatermarks(ctx context.Context) ([]MonthWatermark, error) {
	const q = `
		SELECT CAST(SUBSTR(TIME, 1, 4) AS INTEGER) AS y,
		       CAST(SUBSTR(TIME, 6, 2) AS INTEGER) AS m,
		       MAX(UPDATE_TIME) AS latest
		FROM BILL
		WHERE TYPE = ?
		GROUP BY SUBSTR(TIME, 1, 7)
		HAVING MAX(UPDATE_TIME) IS NOT NULL
		ORDER BY SUBSTR(TIME, 1, 7)`

	rows, err := r.db.QueryContext(ctx, q, expenseType)
	if err != nil {
		return nil, fmt.Errorf("query month watermarks: %w", err)
	}
	defer rows.Close()

	var out []MonthWatermark
	for rows.Next() {
		var w MonthWatermark
		if err := rows.Scan(&w.Year, &w.Month, &w.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan month watermark: %w", err)
		}
		out = append(out, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate month watermarks: %w", err)
	}
	return out, nil
}

// YearWatermarks returns the freshness watermark for every distinct year
// present among expense rows, ordered ascending.
func (r *Repository) YearWatermarks(ctx context.Context) ([]YearWatermark, error) {
	const q = `
		SELECT CAST(SUBSTR(TIME, 1, 4) AS INTEGER) AS y,
		       MAX(UPDATE_TIME) AS latest
		FROM BILL
		WHERE TYPE = ?
		GROUP BY SUBSTR(TIME, 1, 4)
		HAVING MAX(UPDATE_TIME) IS NOT NULL
		ORDER BY SUBSTR(TIME, 1, 4)`

	rows, err := r.db.QueryContext(ctx, q, expenseType)
	if err != nil {
		return nil, fmt.Errorf("query year watermarks: %w", err)
	}
	defer rows.Close()

	var out []YearWatermark
	for rows.Next() {
		var w YearWatermark
		if err := rows.Scan(&w.Year, &w.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan year watermark: %w", err)
		}
		out = append(out, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate year watermarks: %w", err)
	}
	return out, nil
}

// SummaryWatermark returns the newest update time across all expense rows.
// The bool result is false when the store holds no expense rows at all.
func (r *Repository) SummaryWatermark(ctx context.Context) (int64, bool, error) {
	const q = `SELECT MAX(UPDATE_TIME) FROM BILL WHERE TYPE = ?`

	var latest sql.NullInt64
	if err := r.db.QueryRowContext(ctx, q, expenseType).Scan(&latest); err != nil {
		return 0, false, fmt.Errorf("query summary watermark: %w", err)
	}
	return latest.Int64, latest.Valid, nil
}

// MonthWatermark returns the freshness watermark for a single month.
func (r *Repository) MonthWatermark(ctx context.Context, year, month int) (int64, bool, error) {
	const q = `SELECT MAX(UPDATE_TIME) FROM BILL WHERE TIME LIKE ? AND TYPE = ?`

	var latest sql.NullInt64
	if err := r.db.QueryRowContext(ctx, q, monthPattern(year, month), expenseType).Scan(&latest); err != nil {
		return 0, false, fmt.Errorf("query watermark for %d-%02d: %w", year, month, err)
	}
	return latest.Int64, latest.Valid, nil
}

// YearWatermark returns the freshness watermark for a single year.
func (r *Repository) YearWatermark(ctx context.Context, year int) (int64, bool, error) {
	const q = `SELECT MAX(UPDATE_TIME) FROM BILL WHERE TIME LIKE ? AND TYPE = ?`

	var latest sql.NullInt64
	if err := r.db.QueryRowContext(ctx, q, yearPattern(year), expenseType).Scan(&latest); err != nil {
		return 0, false, fmt.Errorf("query watermark for %d: %w", year, err)
	}
	return latest.Int64, latest.Valid, nil
}

// MonthTransactions returns the detail rows for one month, ordered by time
// ascending.
func (r *Repository) MonthTransactions(ctx context.Context, year, month int) ([]core.Transaction, error) {
	const q = `
		SELECT TIME, AMOUNT,
		       COALESCE(INFO, ''), COALESCE(NOTE, ''), COALESCE(SOURCE, ''),
		       COALESCE(UPDATE_TIME, 0)
		FROM BILL
		WHERE TIME LIKE ? AND TYPE = ?
		ORDER BY TIME ASC`

	rows, err := r.db.QueryContext(ctx, q, monthPattern(year, month), expenseType)
	if err != nil {
		return nil, fmt.Errorf("query transactions for %d-%02d: %w", year, month, err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		var t core.Transaction
		if err := rows.Scan(&t.Time, &t.Amount, &t.Description, &t.Note, &t.Source, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return out, nil
}

// YearMonthlyTotals returns one aggregate row per distinct month of the
// given year, ordered by month ascending.
func (r *Repository) YearMonthlyTotals(ctx context.Context, year int) ([]core.MonthAggregate, error) {
	const q = `
		SELECT CAST(SUBSTR(TIME, 6, 2) AS INTEGER) AS m,
		       SUM(AMOUNT), COUNT(*), COALESCE(MAX(UPDATE_TIME), 0)
		FROM BILL
		WHERE TIME LIKE ? AND TYPE = ?
		GROUP BY SUBSTR(TIME, 6, 2)
		ORDER BY m ASC`

	rows, err := r.db.QueryContext(ctx, q, yearPattern(year), expenseType)
	if err != nil {
		return nil, fmt.Errorf("query monthly totals for %d: %w", year, err)
	}
	defer rows.Close()

	var out []core.MonthAggregate
	for rows.Next() {
		agg := core.MonthAggregate{Year: year}
		if err := rows.Scan(&agg.Month, &agg.Total, &agg.Count, &agg.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan monthly total: %w", err)
		}
		out = append(out, agg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate monthly totals: %w", err)
	}
	return out, nil
}

// YearlyTotals returns one aggregate row per distinct year, ordered by
// year descending.
func (r *Repository) YearlyTotals(ctx context.Context) ([]core.YearAggregate, error) {
	const q = `
		SELECT CAST(SUBSTR(TIME, 1, 4) AS INTEGER) AS y,
		       SUM(AMOUNT), COUNT(*)
		FROM BILL
		WHERE TYPE = ?
		GROUP BY SUBSTR(TIME, 1, 4)
		ORDER BY y DESC`

	rows, err := r.db.QueryContext(ctx, q, expenseType)
	if err != nil {
		return nil, fmt.Errorf("query yearly totals: %w", err)
	}
	defer rows.Close()

	var out []core.YearAggregate
	for rows.Next() {
		var agg core.YearAggregate
		if err := rows.Scan(&agg.Year, &agg.Total, &agg.Count); err != nil {
			return nil, fmt.Errorf("scan yearly total: %w", err)
		}
		out = append(out, agg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate yearly totals: %w", err)
	}
	return out, nil
}

// RecentMonths returns aggregates for the three calendar months ending at
// the month of the latest expense record, ordered descending by (year,
// month). Months without data appear as zero-valued entries. The window is
// anchored to the data, not to the wall clock.
func (r *Repository) RecentMonths(ctx context.Context) ([]core.MonthAggregate, error) {
	const latestQ = `SELECT MAX(TIME) FROM BILL WHERE TYPE = ?`

	var latest sql.NullString
	if err := r.db.QueryRowContext(ctx, latestQ, expenseType).Scan(&latest); err != nil {
		return nil, fmt.Errorf("query latest record time: %w", err)
	}
	if !latest.Valid || len(latest.String) < 7 {
		return nil, nil
	}

	year, month, err := parseYearMonth(latest.String)
	if err != nil {
		return nil, fmt.Errorf("parse latest record time %q: %w", latest.String, err)
	}

	const monthQ = `
		SELECT COALESCE(SUM(AMOUNT), 0), COUNT(*), COALESCE(MAX(UPDATE_TIME), 0)
		FROM BILL
		WHERE TIME LIKE ? AND TYPE = ?`

	out := make([]core.MonthAggregate, 0, 3)
	for i := 0; i < 3; i++ {
		agg := core.MonthAggregate{Year: year, Month: month}
		if err := r.db.QueryRowContext(ctx, monthQ, monthPattern(year, month), expenseType).
			Scan(&agg.Total, &agg.Count, &agg.UpdatedAt); err != nil {
			return nil, fmt.Errorf("query recent month %d-%02d: %w", year, month, err)
		}
		out = append(out, agg)

		month--
		if month < 1 {
			month = 12
			year--
		}
	}
	return out, nil
}

func monthPattern(year, month int) string {
	return fmt.Sprintf("%d-%02d-%%", year, month)
}

func yearPattern(year int) string {
	return fmt.Sprintf("%d-%%", year)
}

func parseYearMonth(s string) (int, int, error) {
	var year, month int
	if _, err := fmt.Sscanf(s[:7], "%4d-%2d", &year, &month); err != nil {
		return 0, 0, err
	}
	if month < 1 || month > 12 {
		return 0, 0, core.ErrInvalidMonth
	}
	return year, month, nil
}
