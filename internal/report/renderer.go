// Package report renders aggregated expense data into self-contained static
// HTML documents. Rendering is pure: all time values come from the caller,
// and identical inputs produce byte-identical output.
package report

import (
	"bytes"
	"fmt"
	"html/template"
	"math"
	"strings"
	"time"

	"billgen/internal/core"
	"billgen/web"
)

// watermarkLayout renders a freshness watermark with an explicit timezone so
// the same instant displays identically wherever the renderer runs.
const watermarkLayout = "2006-01-02 15:04:05 UTC"

// rowTimeLayout truncates per-transaction times to month-day hour:minute.
const rowTimeLayout = "01-02 15:04"

// sourceTags maps known payment-source identifiers (matched
// case-insensitively) to their visual decoration class. Anything else gets
// the neutral default.
var sourceTags = map[string]string{
	"alipay": "alipay",
	"wechat": "wechat",
	"cmbcc":  "cmbcc",
}

// Renderer holds the parsed template set. Construct once with New and share.
type Renderer struct {
	tmpl *template.Template
}

// New parses the embedded report templates.
func New() (*Renderer, error) {
	tmpl, err := template.ParseFS(web.TemplatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse report templates: %w", err)
	}
	return &Renderer{tmpl: tmpl}, nil
}

type monthRow struct {
	Time        string
	Description string
	Note        string
	Amount      string
	Source      string
	Tag         string
}

type monthPage struct {
	Period    string
	Total     string
	UpdatedAt string
	Rows      []monthRow
}

// Month renders the per-transaction page for one calendar month. The total
// is an exact-decimal reduction over the row amounts.
func (r *Renderer) Month(year, month int, rows []core.Transaction, updatedAt int64) ([]byte, error) {
	page := monthPage{
		Period:    fmt.Sprintf("%s %d", time.Month(month), year),
		Total:     core.FormatAmount(core.SumTransactions(rows)),
		UpdatedAt: formatWatermark(updatedAt),
		Rows:      make([]monthRow, 0, len(rows)),
	}

	for _, t := range rows {
		page.Rows = append(page.Rows, monthRow{
			Time:        displayTime(t.Time),
			Description: t.Description,
			Note:        displayNote(t.Note),
			Amount:      core.FormatFloatAmount(t.Amount),
			Source:      strings.ToUpper(t.Source),
			Tag:         sourceTag(t.Source),
		})
	}

	return r.execute("monthly", page)
}

type periodEntry struct {
	Label    string
	Link     string
	Amount   string
	Count    int
	BarWidth float64
	Empty    bool
}

type annualPage struct {
	Year      int
	Total     string
	UpdatedAt string
	Months    []periodEntry
}

// Annual renders the per-month aggregate page for one calendar year.
func (r *Renderer) Annual(year int, months []core.MonthAggregate, updatedAt int64) ([]byte, error) {
	amounts := make([]float64, len(months))
	maxTotal := 0.0
	for i, m := range months {
		amounts[i] = m.Total
		if m.Total > maxTotal {
			maxTotal = m.Total
		}
	}

	page := annualPage{
		Year:      year,
		Total:     core.FormatAmount(core.Sum(amounts)),
		UpdatedAt: formatWatermark(updatedAt),
		Months:    make([]periodEntry, 0, len(months)),
	}

	for _, m := range months {
		page.Months = append(page.Months, periodEntry{
			Label:    time.Month(m.Month).String(),
			Link:     core.MonthKey(m.Year, m.Month).Artifact(),
			Amount:   core.FormatFloatAmount(m.Total),
			Count:    m.Count,
			BarWidth: barWidth(m.Total, maxTotal),
		})
	}

	return r.execute("annual", page)
}

type summaryPage struct {
	UpdatedAt string
	Recent    []periodEntry
	Years     []periodEntry
}

// Summary renders the all-time page: the three most recent data months plus
// one aggregate row per year.
func (r *Renderer) Summary(years []core.YearAggregate, recent []core.MonthAggregate, updatedAt int64) ([]byte, error) {
	page := summaryPage{
		UpdatedAt: formatWatermark(updatedAt),
		Recent:    make([]periodEntry, 0, len(recent)),
		Years:     make([]periodEntry, 0, len(years)),
	}

	for _, m := range recent {
		page.Recent = append(page.Recent, periodEntry{
			Label:  fmt.Sprintf("%s %d", time.Month(m.Month), m.Year),
			Link:   core.MonthKey(m.Year, m.Month).Artifact(),
			Amount: core.FormatFloatAmount(m.Total),
			Count:  m.Count,
			Empty:  m.Count == 0,
		})
	}

	maxTotal := 0.0
	for _, y := range years {
		if y.Total > maxTotal {
			maxTotal = y.Total
		}
	}
	for _, y := range years {
		page.Years = append(page.Years, periodEntry{
			Label:    fmt.Sprintf("%d", y.Year),
			Link:     core.YearKey(y.Year).Artifact(),
			Amount:   core.FormatFloatAmount(y.Total),
			Count:    y.Count,
			BarWidth: barWidth(y.Total, maxTotal),
		})
	}

	return r.execute("summary", page)
}

func (r *Renderer) execute(name string, data any) ([]byte, error) {
	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return nil, fmt.Errorf("execute template %s: %w", name, err)
	}
	return buf.Bytes(), nil
}

func formatWatermark(unix int64) string {
	return time.Unix(unix, 0).UTC().Format(watermarkLayout)
}

// displayTime truncates a stored timestamp to month-day hour:minute,
// falling back to the raw stored string when it does not parse.
func displayTime(raw string) string {
	t, ok := core.ParseTime(raw)
	if !ok {
		return raw
	}
	return t.Format(rowTimeLayout)
}

// displayNote suppresses empty notes and the single-character placeholder.
func displayNote(note string) string {
	trimmed := strings.TrimSpace(note)
	if trimmed == "" || trimmed == "/" {
		return ""
	}
	return note
}

func sourceTag(source string) string {
	return sourceTags[strings.ToLower(source)]
}

// barWidth is a relative proportion for the bar chart. It is not a monetary
// total, so float arithmetic is fine here.
func barWidth(total, maxTotal float64) float64 {
	if maxTotal <= 0 || total <= 0 {
		return 0
	}
	return math.Round(total/maxTotal*1000) / 10
}
