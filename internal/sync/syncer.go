// Package sync implements the incremental regeneration loop: it enumerates
// the aggregation keys present in the store, compares each key's freshness
// watermark against the output artifact's last-write time, and regenerates
// only the stale artifacts.
package sync

import (
	"bytes"
	"context"
	"os"
	"path/filepath"

	"github.com/natefinch/atomic"

	"billgen/internal/core"
	"billgen/internal/log"
	"billgen/internal/storage"
)

// Source is the query surface the syncer needs from the transaction store.
type Source interface {
	MonthWatermarks(ctx context.Context) ([]storage.MonthWatermark, error)
	YearWatermarks(ctx context.Context) ([]storage.YearWatermark, error)
	SummaryWatermark(ctx context.Context) (int64, bool, error)
	MonthTransactions(ctx context.Context, year, month int) ([]core.Transaction, error)
	YearMonthlyTotals(ctx context.Context, year int) ([]core.MonthAggregate, error)
	YearlyTotals(ctx context.Context) ([]core.YearAggregate, error)
	RecentMonths(ctx context.Context) ([]core.MonthAggregate, error)
}

// Renderer produces the static document for each key kind.
type Renderer interface {
	Month(year, month int, rows []core.Transaction, updatedAt int64) ([]byte, error)
	Annual(year int, months []core.MonthAggregate, updatedAt int64) ([]byte, error)
	Summary(years []core.YearAggregate, recent []core.MonthAggregate, updatedAt int64) ([]byte, error)
}

// Stats tallies one sync run.
type Stats struct {
	Generated      int
	SkippedMonthly int
	SkippedAnnual  int
	SkippedSummary int
	Failed         int
}

// Syncer drives one incremental regeneration pass. It holds no state
// between runs: every decision is recomputed from the store and the
// filesystem.
type Syncer struct {
	src    Source
	rnd    Renderer
	outDir string
	logger *log.Logger
}

func New(src Source, rnd Renderer, outDir string, logger *log.Logger) *Syncer {
	return &Syncer{
		src:    src,
		rnd:    rnd,
		outDir: outDir,
		logger: logger.WithComponent(log.ComponentSync),
	}
}

// Stale reports whether the artifact at path must be regenerated for the
// given watermark. A missing artifact is always stale. An existing artifact
// is stale iff the watermark is strictly newer than its last-write time;
// equal timestamps count as fresh, which tolerates immediate re-runs.
func Stale(watermark int64, path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return true
	}
	return watermark > info.ModTime().Unix()
}

// Run executes one full pass: months ascending, then years ascending, then
// the summary. A failure on one key never blocks the remaining keys.
func (s *Syncer) Run(ctx context.Context) (Stats, error) {
	var stats Stats

	s.syncMonths(ctx, &stats)
	s.syncYears(ctx, &stats)
	s.syncSummary(ctx, &stats)

	s.logger.Info("sync complete",
		log.FieldGenerated, stats.Generated,
		"skipped_monthly", stats.SkippedMonthly,
		"skipped_annual", stats.SkippedAnnual,
		"skipped_summary", stats.SkippedSummary,
		log.FieldFailed, stats.Failed)

	return stats, nil
}

func (s *Syncer) syncMonths(ctx context.Context, stats *Stats) {
	watermarks, err := s.src.MonthWatermarks(ctx)
	if err != nil {
		// Treated as "no monthly keys": the run continues with the
		// other categories.
		s.logger.Error("month watermark query failed", log.FieldError, err)
		return
	}

	for _, w := range watermarks {
		key := core.MonthKey(w.Year, w.Month)
		path := s.artifactPath(key)

		if !Stale(w.UpdatedAt, path) {
			stats.SkippedMonthly++
			continue
		}

		rows, err := s.src.MonthTransactions(ctx, w.Year, w.Month)
		if err != nil {
			s.logger.Error("month detail query failed",
				log.FieldKey, key.String(), log.FieldError, err)
			stats.Failed++
			continue
		}
		if len(rows) == 0 {
			// Watermark said there is data but the detail query
			// disagrees. Write nothing rather than an empty page.
			s.logger.Warn("month has a watermark but no detail rows, skipping",
				log.FieldKey, key.String(), log.FieldWatermark, w.UpdatedAt)
			stats.Failed++
			continue
		}

		doc, err := s.rnd.Month(w.Year, w.Month, rows, w.UpdatedAt)
		if err != nil {
			s.logger.Error("month render failed",
				log.FieldKey, key.String(), log.FieldError, err)
			stats.Failed++
			continue
		}

		if err := writeArtifact(path, doc); err != nil {
			s.logger.Error("month artifact write failed",
				log.FieldKey, key.String(), log.FieldArtifact, path, log.FieldError, err)
			stats.Failed++
			continue
		}

		s.logger.Info("generated monthly bill",
			log.FieldKey, key.String(),
			log.FieldArtifact, key.Artifact(),
			log.FieldWatermark, w.UpdatedAt,
			log.FieldRows, len(rows))
		stats.Generated++
	}
}

func (s *Syncer) syncYears(ctx context.Context, stats *Stats) {
	watermarks, err := s.src.YearWatermarks(ctx)
	if err != nil {
		s.logger.Error("year watermark query failed", log.FieldError, err)
		return
	}

	for _, w := range watermarks {
		key := core.YearKey(w.Year)
		path := s.artifactPath(key)

		if !Stale(w.UpdatedAt, path) {
			stats.SkippedAnnual++
			continue
		}

		months, err := s.src.YearMonthlyTotals(ctx, w.Year)
		if err != nil {
			s.logger.Error("year detail query failed",
				log.FieldKey, key.String(), log.FieldError, err)
			stats.Failed++
			continue
		}
		if len(months) == 0 {
			s.logger.Warn("year has a watermark but no detail rows, skipping",
				log.FieldKey, key.String(), log.FieldWatermark, w.UpdatedAt)
			stats.Failed++
			continue
		}

		doc, err := s.rnd.Annual(w.Year, months, w.UpdatedAt)
		if err != nil {
			s.logger.Error("year render failed",
				log.FieldKey, key.String(), log.FieldError, err)
			stats.Failed++
			continue
		}

		if err := writeArtifact(path, doc); err != nil {
			s.logger.Error("year artifact write failed",
				log.FieldKey, key.String(), log.FieldArtifact, path, log.FieldError, err)
			stats.Failed++
			continue
		}

		s.logger.Info("generated annual bill",
			log.FieldKey, key.String(),
			log.FieldArtifact, key.Artifact(),
			log.FieldWatermark, w.UpdatedAt)
		stats.Generated++
	}
}

func (s *Syncer) syncSummary(ctx context.Context, stats *Stats) {
	watermark, ok, err := s.src.SummaryWatermark(ctx)
	if err != nil {
		s.logger.Error("summary watermark query failed", log.FieldError, err)
		return
	}
	if !ok {
		// No expense rows at all: the summary key does not exist.
		return
	}

	key := core.SummaryKey()
	path := s.artifactPath(key)

	if !Stale(watermark, path) {
		stats.SkippedSummary++
		return
	}

	years, err := s.src.YearlyTotals(ctx)
	if err != nil {
		s.logger.Error("yearly totals query failed", log.FieldError, err)
		stats.Failed++
		return
	}
	recent, err := s.src.RecentMonths(ctx)
	if err != nil {
		s.logger.Error("recent months query failed", log.FieldError, err)
		stats.Failed++
		return
	}
	if len(years) == 0 && len(recent) == 0 {
		s.logger.Warn("summary has a watermark but no detail rows, skipping",
			log.FieldWatermark, watermark)
		stats.Failed++
		return
	}

	doc, err := s.rnd.Summary(years, recent, watermark)
	if err != nil {
		s.logger.Error("summary render failed", log.FieldError, err)
		stats.Failed++
		return
	}

	if err := writeArtifact(path, doc); err != nil {
		s.logger.Error("summary artifact write failed",
			log.FieldArtifact, path, log.FieldError, err)
		stats.Failed++
		return
	}

	s.logger.Info("generated summary bill",
		log.FieldArtifact, key.Artifact(),
		log.FieldWatermark, watermark)
	stats.Generated++
}

func (s *Syncer) artifactPath(key core.Key) string {
	return filepath.Join(s.outDir, key.Artifact())
}

// writeArtifact replaces the artifact atomically (write to temp, then
// rename). A crash mid-write must never leave a truncated file with a fresh
// mtime, or the next run would wrongly judge the key fresh.
func writeArtifact(path string, doc []byte) error {
	return atomic.WriteFile(path, bytes.NewReader(doc))
}
