// Package config holds the flag-driven configuration of the two binaries.
// There is no environment-variable configuration: everything arrives on the
// command line, with defaults matching the conventional store and output
// locations.
package config

import (
	"fmt"
	"os"
	"strings"
)

// Defaults for the CLI flags.
const (
	DefaultDBPath    = "billing.sqlite"
	DefaultOutputDir = "web"
)

// Config is the resolved invocation of either binary. Year and Month are
// zero when not requested.
type Config struct {
	DBPath    string
	OutputDir string
	Year      int
	Month     int
	Summary   bool
}

// Mode is what the on-demand generator was asked to produce.
type Mode string

const (
	ModeMonthly Mode = "monthly"
	ModeAnnual  Mode = "annual"
	ModeSummary Mode = "summary"
)

// GenerateMode resolves which report the on-demand generator should build.
// Omitting both the year and --summary defaults to summary mode.
func (c *Config) GenerateMode() Mode {
	switch {
	case c.Summary || c.Year == 0:
		return ModeSummary
	case c.Month != 0:
		return ModeMonthly
	default:
		return ModeAnnual
	}
}

// ValidateGenerate checks the on-demand generator's arguments. It collects
// every problem into one error so the invoker sees the full list at once.
// The database file check runs here, before any store I/O.
func (c *Config) ValidateGenerate() error {
	var errs []string

	if c.Month != 0 && (c.Month < 1 || c.Month > 12) {
		errs = append(errs, fmt.Sprintf("invalid month %d: must be between 1 and 12", c.Month))
	}
	if c.Month != 0 && c.Year == 0 {
		errs = append(errs, "--month requires a year argument")
	}
	if c.Summary && c.Year != 0 {
		errs = append(errs, "--summary cannot be combined with a year argument")
	}
	if c.Year < 0 {
		errs = append(errs, fmt.Sprintf("invalid year %d", c.Year))
	}

	errs = append(errs, c.checkDB()...)

	if len(errs) > 0 {
		return fmt.Errorf("invalid invocation:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}

// ValidateSync checks the incremental-sync arguments.
func (c *Config) ValidateSync() error {
	var errs []string

	if c.OutputDir == "" {
		errs = append(errs, "output directory cannot be empty")
	}

	errs = append(errs, c.checkDB()...)

	if len(errs) > 0 {
		return fmt.Errorf("invalid invocation:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}

func (c *Config) checkDB() []string {
	if c.DBPath == "" {
		return []string{"database path cannot be empty"}
	}
	if _, err := os.Stat(c.DBPath); err != nil {
		return []string{fmt.Sprintf("database file %s does not exist", c.DBPath)}
	}
	return nil
}
