package core

import (
	"errors"
	"fmt"
	"time"
)

// KeyKind distinguishes the three reportable period shapes.
type KeyKind string

const (
	KindMonth   KeyKind = "month"
	KindYear    KeyKind = "year"
	KindSummary KeyKind = "summary"
)

// TimeLayout is the fixed-width timestamp format used by the transaction store.
const TimeLayout = "2006-01-02 15:04:05"

type (
	// Key identifies one reportable period: a month, a year, or the
	// all-time summary. Year and Month are zero for kinds that do not
	// use them.
	Key struct {
		Kind  KeyKind
		Year  int
		Month int // 1-12, KindMonth only
	}

	// Transaction is a single expense row as stored. Time keeps the raw
	// stored string so display code can fall back to it when parsing fails.
	Transaction struct {
		Time        string
		Amount      float64
		Description string
		Note        string
		Source      string
		UpdatedAt   int64 // Unix seconds of the row's last modification
	}

	// MonthAggregate is one month's summed expenses.
	MonthAggregate struct {
		Year      int
		Month     int // 1-12
		Total     float64
		Count     int
		UpdatedAt int64
	}

	// YearAggregate is one year's summed expenses.
	YearAggregate struct {
		Year  int
		Total float64
		Count int
	}
)

var (
	ErrInvalidMonth = errors.New("month must be between 1 and 12")
	ErrInvalidYear  = errors.New("invalid year")
	ErrNoData       = errors.New("no expense data for period")
)

// MonthKey builds the key for one calendar month.
func MonthKey(year, month int) Key {
	return Key{Kind: KindMonth, Year: year, Month: month}
}

// YearKey builds the key for one calendar year.
func YearKey(year int) Key {
	return Key{Kind: KindYear, Year: year}
}

// SummaryKey builds the all-time summary key.
func SummaryKey() Key {
	return Key{Kind: KindSummary}
}

func (k Key) Validate() error {
	switch k.Kind {
	case KindMonth:
		if k.Year <= 0 {
			return ErrInvalidYear
		}
		if k.Month < 1 || k.Month > 12 {
			return ErrInvalidMonth
		}
	case KindYear:
		if k.Year <= 0 {
			return ErrInvalidYear
		}
	case KindSummary:
		// No parameters.
	default:
		return fmt.Errorf("unknown key kind %q", k.Kind)
	}
	return nil
}

// Artifact returns the output file name for the key. The mapping is a pure
// function of the key: bill_2025_03.html, bill_2025_annual.html,
// bill_summary.html.
func (k Key) Artifact() string {
	switch k.Kind {
	case KindMonth:
		return fmt.Sprintf("bill_%d_%02d.html", k.Year, k.Month)
	case KindYear:
		return fmt.Sprintf("bill_%d_annual.html", k.Year)
	default:
		return "bill_summary.html"
	}
}

func (k Key) String() string {
	switch k.Kind {
	case KindMonth:
		return fmt.Sprintf("%d-%02d", k.Year, k.Month)
	case KindYear:
		return fmt.Sprintf("%d", k.Year)
	default:
		return "summary"
	}
}

// ParseTime parses a stored timestamp. The bool result is false when the
// value does not match the store's fixed-width layout.
func ParseTime(s string) (time.Time, bool) {
	t, err := time.Parse(TimeLayout, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
