package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/cohort/internal/store"
)

// SeedOptions holds flags for the seed command.
type SeedOptions struct {
	*RootOptions
	DB string // overrides COHORT_SQLITE_PATH
}

// SeedResult summarizes what was loaded.
type SeedResult struct {
	Database  string `json:"database"`
	Persons   int    `json:"persons"`
	Events    int    `json:"events"`
	Criteria  int    `json:"criteria"`
	Ancestors int    `json:"ancestors"`
}

// NewSeedCommand creates the seed command.
func NewSeedCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SeedOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "seed <fixtures.yaml>",
		Short: "Load fixture data into a SQLite warehouse",
		Long: `Create (if needed) a SQLite warehouse with the search schema and load a
YAML fixture file into it in one transaction.

The fixture format has four lists: persons, events, criteria, ancestors.
Unknown keys are rejected.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.DB, "db", "", "SQLite database path; default from COHORT_SQLITE_PATH")

	return cmd
}

func runSeed(opts *SeedOptions, fixturesFile string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	cfg, logger, err := loadConfig(opts.RootOptions, cmd.ErrOrStderr())
	if err != nil {
		return outputCommandError(formatter, ErrCodeConfig, err.Error())
	}
	path := opts.DB
	if path == "" {
		path = cfg.SQLitePath
	}

	fixtures, err := store.LoadFixtures(fixturesFile)
	if err != nil {
		return outputCommandError(formatter, ErrCodeDecodeFailed, err.Error())
	}

	wh, err := store.OpenSQLite(path)
	if err != nil {
		return outputCommandError(formatter, ErrCodeWarehouse, err.Error())
	}
	defer wh.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if err := wh.Seed(ctx, fixtures); err != nil {
		return outputCommandError(formatter, ErrCodeWarehouse, err.Error())
	}

	result := SeedResult{
		Database:  path,
		Persons:   len(fixtures.Persons),
		Events:    len(fixtures.Events),
		Criteria:  len(fixtures.Criteria),
		Ancestors: len(fixtures.Ancestors),
	}
	logger.Info().
		Str("database", path).
		Int("persons", result.Persons).
		Int("events", result.Events).
		Msg("warehouse seeded")

	return formatter.Result("", result, func(w io.Writer) error {
		_, err := fmt.Fprintf(w, "✓ Seeded %s: %d person(s), %d event(s), %d criteria, %d ancestor pair(s)\n",
			path, result.Persons, result.Events, result.Criteria, result.Ancestors)
		return err
	})
}
