// Command billgen generates a single bill report on demand: a monthly
// detail page, an annual aggregate page, or the all-time summary.
//
// Usage:
//
//	billgen [year] [--month N] [--summary] [--db path]
//
// With no year and no --summary it defaults to summary mode. The report is
// always regenerated, freshness is not consulted.
package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/natefinch/atomic"
	"github.com/spf13/pflag"

	"billgen/internal/cli"
	"billgen/internal/config"
	"billgen/internal/core"
	"billgen/internal/log"
	"billgen/internal/report"
	"billgen/internal/storage"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	flags := pflag.NewFlagSet("billgen", pflag.ContinueOnError)
	month := flags.Int("month", 0, "month to generate (1-12, requires a year argument)")
	summary := flags.Bool("summary", false, "generate the all-time summary")
	dbPath := flags.String("db", config.DefaultDBPath, "path to the transaction store")
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	cfg := &config.Config{
		DBPath:    *dbPath,
		OutputDir: config.DefaultOutputDir,
		Month:     *month,
		Summary:   *summary,
	}

	if rest := flags.Args(); len(rest) > 0 {
		year, err := strconv.Atoi(rest[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid year argument %q\n", rest[0])
			return 2
		}
		cfg.Year = year
	}

	if err := cfg.ValidateGenerate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	logger := cli.SetupLogger()

	repo := cli.OpenStore(logger, cfg.DBPath)
	defer repo.Close()

	rnd, err := report.New()
	if err != nil {
		logger.Error("failed to load report templates", log.FieldError, err)
		return 1
	}

	if err := cli.EnsureDir(cfg.OutputDir); err != nil {
		logger.Error("failed to prepare output directory", log.FieldError, err)
		return 1
	}

	if err := generate(context.Background(), logger, repo, rnd, cfg); err != nil {
		logger.Error("report generation failed", log.FieldError, err)
		return 1
	}
	return 0
}

func generate(ctx context.Context, logger *log.Logger, repo *storage.Repository, rnd *report.Renderer, cfg *config.Config) error {
	switch cfg.GenerateMode() {
	case config.ModeMonthly:
		return generateMonthly(ctx, logger, repo, rnd, cfg)
	case config.ModeAnnual:
		return generateAnnual(ctx, logger, repo, rnd, cfg)
	default:
		return generateSummary(ctx, logger, repo, rnd, cfg)
	}
}

func generateMonthly(ctx context.Context, logger *log.Logger, repo *storage.Repository, rnd *report.Renderer, cfg *config.Config) error {
	rows, err := repo.MonthTransactions(ctx, cfg.Year, cfg.Month)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return fmt.Errorf("%d-%02d: %w", cfg.Year, cfg.Month, core.ErrNoData)
	}

	watermark, _, err := repo.MonthWatermark(ctx, cfg.Year, cfg.Month)
	if err != nil {
		return err
	}

	doc, err := rnd.Month(cfg.Year, cfg.Month, rows, watermark)
	if err != nil {
		return err
	}

	key := core.MonthKey(cfg.Year, cfg.Month)
	if err := writeArtifact(cfg.OutputDir, key, doc); err != nil {
		return err
	}

	logger.Info("generated monthly bill",
		log.FieldKey, key.String(),
		log.FieldArtifact, key.Artifact(),
		log.FieldRows, len(rows),
		log.FieldTotal, core.FormatAmount(core.SumTransactions(rows)))
	return nil
}

func generateAnnual(ctx context.Context, logger *log.Logger, repo *storage.Repository, rnd *report.Renderer, cfg *config.Config) error {
	months, err := repo.YearMonthlyTotals(ctx, cfg.Year)
	if err != nil {
		return err
	}
	if len(months) == 0 {
		return fmt.Errorf("%d: %w", cfg.Year, core.ErrNoData)
	}

	watermark, _, err := repo.YearWatermark(ctx, cfg.Year)
	if err != nil {
		return err
	}

	doc, err := rnd.Annual(cfg.Year, months, watermark)
	if err != nil {
		return err
	}

	key := core.YearKey(cfg.Year)
	if err := writeArtifact(cfg.OutputDir, key, doc); err != nil {
		return err
	}

	logger.Info("generated annual bill",
		log.FieldKey, key.String(),
		log.FieldArtifact, key.Artifact())
	return nil
}

func generateSummary(ctx context.Context, logger *log.Logger, repo *storage.Repository, rnd *report.Renderer, cfg *config.Config) error {
	years, err := repo.YearlyTotals(ctx)
	if err != nil {
		return err
	}
	recent, err := repo.RecentMonths(ctx)
	if err != nil {
		return err
	}
	if len(years) == 0 && len(recent) == 0 {
		return core.ErrNoData
	}

	watermark, _, err := repo.SummaryWatermark(ctx)
	if err != nil {
		return err
	}

	doc, err := rnd.Summary(years, recent, watermark)
	if err != nil {
		return err
	}

	key := core.SummaryKey()
	if err := writeArtifact(cfg.OutputDir, key, doc); err != nil {
		return err
	}

	logger.Info("generated summary bill", log.FieldArtifact, key.Artifact())
	return nil
}

func writeArtifact(outDir string, key core.Key, doc []byte) error {
	path := filepath.Join(outDir, key.Artifact())
	if err := atomic.WriteFile(path, bytes.NewReader(doc)); err != nil {
		return fmt.Errorf("write artifact %s: %w", path, err)
	}
	return nil
}
