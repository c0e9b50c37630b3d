package report

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"billgen/internal/core"
)

func newRenderer(t *testing.T) *Renderer {
	t.Helper()
	r, err := New()
	require.NoError(t, err)
	return r
}

func TestMonthExactTotal(t *testing.T) {
	r := newRenderer(t)

	rows := []core.Transaction{
		{Time: "2025-03-05 12:10:00", Amount: 19.99, Description: "lunch"},
		{Time: "2025-03-14 09:30:45", Amount: 19.99, Description: "groceries"},
		{Time: "2025-03-20 20:05:00", Amount: 19.99, Description: "taxi"},
	}

	out, err := r.Month(2025, 3, rows, 150)
	require.NoError(t, err)

	html := string(out)
	assert.Contains(t, html, "¥59.97", "total must be the exact decimal sum")
	assert.NotContains(t, html, "59.96999999999999")
	assert.NotContains(t, html, "59.98")
}

func TestMonthRowFormatting(t *testing.T) {
	r := newRenderer(t)

	rows := []core.Transaction{
		{Time: "2025-03-14 09:30:45", Amount: 12.34, Description: "coffee", Note: "with friends", Source: "Alipay"},
		{Time: "2025-03-15 18:00:00", Amount: 5, Description: "bus", Note: "/", Source: "wechat"},
		{Time: "not a timestamp", Amount: 1, Description: "odd", Source: "cash"},
	}

	out, err := r.Month(2025, 3, rows, 150)
	require.NoError(t, err)
	html := string(out)

	// Seconds are truncated from row times.
	assert.Contains(t, html, "03-14 09:30")
	assert.NotContains(t, html, "09:30:45")

	// Unparseable times render as stored.
	assert.Contains(t, html, "not a timestamp")

	// Known payment sources get their decoration class and uppercase label.
	assert.Contains(t, html, "transaction-decoration alipay")
	assert.Contains(t, html, "transaction-decoration wechat")
	assert.Contains(t, html, "ALIPAY")
	assert.Contains(t, html, "CASH")
	assert.NotContains(t, html, `class="transaction-decoration cash"`)

	// Placeholder notes are suppressed, real notes kept.
	assert.Contains(t, html, "with friends")
	assert.NotContains(t, html, `<span class="transaction-note">/</span>`)
}

func TestMonthWatermarkDisplay(t *testing.T) {
	r := newRenderer(t)

	// 2025-03-14 16:39:45 UTC.
	out, err := r.Month(2025, 3, nil, 1741970385)
	require.NoError(t, err)

	assert.Contains(t, string(out), "UTC", "watermark must carry an explicit timezone")
	assert.Contains(t, string(out), "2025-03-14")
}

func TestMonthDeterministic(t *testing.T) {
	r := newRenderer(t)

	rows := []core.Transaction{
		{Time: "2025-03-05 12:10:00", Amount: 19.99, Description: "lunch", Source: "alipay"},
	}

	first, err := r.Month(2025, 3, rows, 150)
	require.NoError(t, err)
	second, err := r.Month(2025, 3, rows, 150)
	require.NoError(t, err)

	assert.Equal(t, first, second, "identical inputs must render byte-identically")
}

func TestMonthEscapesUserText(t *testing.T) {
	r := newRenderer(t)

	rows := []core.Transaction{
		{Time: "2025-03-05 12:10:00", Amount: 1, Description: `<script>alert("x")</script>`},
	}

	out, err := r.Month(2025, 3, rows, 1)
	require.NoError(t, err)

	assert.NotContains(t, string(out), `<script>alert`)
}

func TestAnnual(t *testing.T) {
	r := newRenderer(t)

	months := []core.MonthAggregate{
		{Year: 2025, Month: 1, Total: 100.50, Count: 10},
		{Year: 2025, Month: 2, Total: 201.00, Count: 20},
	}

	out, err := r.Annual(2025, months, 999)
	require.NoError(t, err)
	html := string(out)

	assert.Contains(t, html, "Annual bill for 2025")
	assert.Contains(t, html, "¥301.50")
	assert.Contains(t, html, "January")
	assert.Contains(t, html, "February")
	assert.Contains(t, html, "bill_2025_01.html")
	assert.Contains(t, html, "bill_2025_02.html")

	// The widest bar belongs to the biggest month.
	assert.Contains(t, html, "width: 100%")
	assert.Contains(t, html, "width: 50%")
}

func TestSummary(t *testing.T) {
	r := newRenderer(t)

	years := []core.YearAggregate{
		{Year: 2025, Total: 500, Count: 40},
		{Year: 2024, Total: 1000, Count: 80},
	}
	recent := []core.MonthAggregate{
		{Year: 2025, Month: 7, Total: 70, Count: 7},
		{Year: 2025, Month: 6, Total: 0, Count: 0},
		{Year: 2025, Month: 5, Total: 50, Count: 5},
	}

	out, err := r.Summary(years, recent, 42)
	require.NoError(t, err)
	html := string(out)

	assert.Contains(t, html, "bill_2025_annual.html")
	assert.Contains(t, html, "bill_2024_annual.html")
	assert.Contains(t, html, "July 2025")
	assert.Contains(t, html, "June 2025")
	assert.Contains(t, html, "May 2025")

	// Zero-valued months render without a link.
	assert.Contains(t, html, "empty-month")
	assert.NotContains(t, html, `<a href="bill_2025_06.html">`)

	// Recent months keep their order: July before June before May.
	july := strings.Index(html, "July 2025")
	june := strings.Index(html, "June 2025")
	may := strings.Index(html, "May 2025")
	assert.Less(t, july, june)
	assert.Less(t, june, may)
}

func TestBarWidth(t *testing.T) {
	assert.Equal(t, 0.0, barWidth(10, 0))
	assert.Equal(t, 0.0, barWidth(0, 10))
	assert.Equal(t, 100.0, barWidth(10, 10))
	assert.Equal(t, 33.3, barWidth(1, 3))
}
