// Command billgen-sync scans every aggregation key present in the
// transaction store and regenerates the report artifacts whose data changed
// since they were last written.
//
// Usage:
//
//	billgen-sync [--db path] [--output dir]
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"billgen/internal/cli"
	"billgen/internal/config"
	"billgen/internal/log"
	"billgen/internal/report"
	"billgen/internal/sync"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	flags := pflag.NewFlagSet("billgen-sync", pflag.ContinueOnError)
	dbPath := flags.String("db", config.DefaultDBPath, "path to the transaction store")
	outputDir := flags.String("output", config.DefaultOutputDir, "directory for generated report pages")
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	cfg := &config.Config{
		DBPath:    *dbPath,
		OutputDir: *outputDir,
	}
	if err := cfg.ValidateSync(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	logger := cli.SetupLogger()

	if err := cli.EnsureDir(cfg.OutputDir); err != nil {
		logger.Error("failed to prepare output directory", log.FieldError, err)
		return 1
	}

	repo := cli.OpenStore(logger, cfg.DBPath)
	defer repo.Close()

	rnd, err := report.New()
	if err != nil {
		logger.Error("failed to load report templates", log.FieldError, err)
		return 1
	}

	logger.Info("starting incremental sync",
		log.FieldPath, cfg.DBPath,
		log.FieldOutputDir, cfg.OutputDir)

	syncer := sync.New(repo, rnd, cfg.OutputDir, logger)
	if _, err := syncer.Run(context.Background()); err != nil {
		logger.Error("sync failed", log.FieldError, err)
		return 1
	}
	return 0
}
