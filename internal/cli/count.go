package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/cohort/internal/compiler"
	"github.com/roach88/cohort/internal/store"
)

// CountOptions holds flags for the count command.
type CountOptions struct {
	*RootOptions
	outputFlags
	Timeout time.Duration
}

// CountResult is the outcome of running one request.
type CountResult struct {
	Shape   compiler.Shape `json:"shape"`
	Count   *int64         `json:"count,omitempty"`
	Columns []string       `json:"columns,omitempty"`
	Rows    [][]any        `json:"rows,omitempty"`
}

// NewCountCommand creates the count command.
func NewCountCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CountOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "count <request-file>",
		Short: "Run a search request against the warehouse",
		Long: `Compile a cohort search request and run it against the configured
warehouse (COHORT_DIALECT with COHORT_SQLITE_PATH or COHORT_DATABASE_URL).

The default shape prints the number of distinct participants. Other shapes
print their rows: demographics (gender, race, age range, count),
person_ids (sorted ids) and domain_chart (top concepts of --domain).

Examples:
  cohort count request.yaml
  cohort count request.json --shape person_ids --limit 100
  cohort count request.cue --shape domain_chart --domain CONDITION
  COHORT_DIALECT=postgres COHORT_DATABASE_URL=postgres://... cohort count request.yaml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCount(opts, args[0], cmd)
		},
	}

	opts.outputFlags.register(cmd)
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", 5*time.Minute, "query timeout")

	return cmd
}

func runCount(opts *CountOptions, requestFile string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	cfg, logger, err := loadConfig(opts.RootOptions, cmd.ErrOrStderr())
	if err != nil {
		return outputCommandError(formatter, ErrCodeConfig, err.Error())
	}

	req, err := LoadRequest(requestFile)
	if err != nil {
		return outputLoadError(formatter, err)
	}

	out, err := opts.outputFlags.resolve()
	if err != nil {
		return outputCommandError(formatter, ErrCodeGeneric, err.Error())
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	runner, err := openRunner(ctx, cfg)
	if err != nil {
		return outputCommandError(formatter, ErrCodeWarehouse, err.Error())
	}
	defer runner.Close()

	c, err := newCompiler(cfg, runner.Dialect().Name(), logger)
	if err != nil {
		return outputCommandError(formatter, ErrCodeConfig, err.Error())
	}

	comp, err := c.Compile(req, out)
	if ve, ok := compiler.AsValidationError(err); ok {
		return outputRejection(formatter, ve)
	}
	if err != nil {
		return outputCommandError(formatter, ErrCodeGeneric, err.Error())
	}

	started := time.Now()
	result, err := execute(ctx, runner, comp)
	if err != nil {
		logger.Error().Err(err).Str("compilation_id", comp.ID).Msg("cohort query failed")
		return outputCommandError(formatter, ErrCodeWarehouse, err.Error())
	}
	logger.Info().
		Str("compilation_id", comp.ID).
		Str("shape", string(comp.Shape)).
		Dur("elapsed", time.Since(started)).
		Msg("cohort query finished")

	return outputCountSuccess(formatter, comp.ID, result)
}

// execute runs a compiled statement; the count shape returns one number.
func execute(ctx context.Context, runner store.Runner, comp *compiler.Compilation) (*CountResult, error) {
	result := &CountResult{Shape: comp.Shape}
	if comp.Shape == compiler.ShapeCount {
		n, err := runner.Count(ctx, comp.Statement)
		if err != nil {
			return nil, err
		}
		result.Count = &n
		return result, nil
	}

	rows, err := runner.Rows(ctx, comp.Statement)
	if err != nil {
		return nil, err
	}
	result.Columns = rows.Columns
	result.Rows = rows.Rows
	return result, nil
}

// outputCountSuccess prints the count, or the rows as an aligned table.
func outputCountSuccess(formatter *OutputFormatter, id string, result *CountResult) error {
	return formatter.Result(id, result, func(w io.Writer) error {
		return writeCountText(w, result)
	})
}

func writeCountText(w io.Writer, result *CountResult) error {
	if result.Count != nil {
		_, err := fmt.Fprintf(w, "%d\n", *result.Count)
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(result.Columns, "\t"))
	for _, row := range result.Rows {
		cells := make([]string, len(row))
		for i, v := range row {
			if v == nil {
				cells[i] = "-"
				continue
			}
			cells[i] = fmt.Sprint(v)
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "(%d row(s))\n", len(result.Rows))
	return err
}
