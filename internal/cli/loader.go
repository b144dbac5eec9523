package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/roach88/cohort/internal/compiler"
	"github.com/roach88/cohort/internal/config"
	"github.com/roach88/cohort/internal/criteria"
	"github.com/roach88/cohort/internal/querysql"
	"github.com/roach88/cohort/internal/store"
)

// Error code constants - unified across all CLI commands. Request
// validation failures keep the compiler's E2xx codes.
const (
	ErrCodeGeneric           = "E001" // Generic/unknown error
	ErrCodeUnsupportedFormat = "E003" // Request file extension not recognized
	ErrCodeDecodeFailed      = "E004" // Request or fixture file could not be decoded
	ErrCodeNotFound          = "E005" // Path not found
	ErrCodeConfig            = "E006" // Invalid configuration
	ErrCodeWriteFailed       = "E007" // File write error
	ErrCodeWarehouse         = "E008" // Warehouse connection or query failed
)

// LoadError represents an error that occurred while reading an input file.
type LoadError struct {
	Code    string
	Message string
	Err     error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// LoadRequest reads a search request from a .json, .yaml/.yml or .cue file.
func LoadRequest(path string) (*criteria.SearchRequest, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("request file not found: %s", path), Err: err}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing request file: %v", err), Err: err}
	}
	if info.IsDir() {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a file: %s", path)}
	}

	if _, err := criteria.FormatFromPath(path); err != nil {
		return nil, &LoadError{Code: ErrCodeUnsupportedFormat, Message: err.Error(), Err: err}
	}

	req, err := criteria.DecodeFile(path)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeDecodeFailed, Message: err.Error(), Err: err}
	}
	return req, nil
}

// outputFlags selects the compiled query's shape.
type outputFlags struct {
	Shape  string
	Limit  int
	Domain string
}

func (o *outputFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.Shape, "shape", string(compiler.ShapeCount), "output shape (count|demographics|person_ids|domain_chart)")
	cmd.Flags().IntVar(&o.Limit, "limit", 0, "row limit for person_ids and domain_chart (0: default)")
	cmd.Flags().StringVar(&o.Domain, "domain", "", "event domain charted by domain_chart, e.g. CONDITION")
}

func (o *outputFlags) resolve() (compiler.Output, error) {
	shape, err := compiler.ParseShape(o.Shape)
	if err != nil {
		return compiler.Output{}, err
	}
	return compiler.Output{
		Shape:  shape,
		Limit:  o.Limit,
		Domain: criteria.Domain(strings.ToUpper(o.Domain)),
	}, nil
}

// newFormatter builds the formatter for a command; diagnostics go to stderr
// to keep JSON output parseable.
func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}

// loadConfig reads configuration and builds the logger. Logs go to logOut;
// --verbose forces debug level.
func loadConfig(opts *RootOptions, logOut io.Writer) (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load(opts.ConfigFile)
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	if opts.Verbose {
		cfg.LogLevel = zerolog.LevelDebugValue
	}
	logger, err := cfg.Logger(logOut)
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	return cfg, logger, nil
}

// newCompiler builds a compiler for the configured tables. A non-empty
// dialect overrides the configured one.
func newCompiler(cfg *config.Config, dialect string, logger zerolog.Logger) (*compiler.Compiler, error) {
	if dialect == "" {
		dialect = cfg.Dialect
	}
	d, err := querysql.DialectByName(dialect)
	if err != nil {
		return nil, err
	}
	return compiler.New(
		compiler.WithDialect(d),
		compiler.WithTables(cfg.Tables()),
		compiler.WithLogger(logger),
	)
}

// openRunner connects to the configured warehouse.
func openRunner(ctx context.Context, cfg *config.Config) (store.Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Dialect {
	case "postgres":
		return store.OpenPostgres(ctx, cfg.Postgres())
	default:
		return store.OpenSQLite(cfg.SQLitePath)
	}
}

// outputCommandError reports a command-level failure (exit code 2).
func outputCommandError(formatter *OutputFormatter, code, message string) error {
	_ = formatter.Failure(code, message, nil)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}

// outputLoadError reports a LoadError, or any other error as generic.
func outputLoadError(formatter *OutputFormatter, err error) error {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		return outputCommandError(formatter, loadErr.Code, loadErr.Message)
	}
	return outputCommandError(formatter, ErrCodeGeneric, err.Error())
}

// outputRejection reports a request the compiler refused (exit code 1).
func outputRejection(formatter *OutputFormatter, ve *compiler.ValidationError) error {
	_ = formatter.Rejection(ve)
	return NewExitError(ExitFailure, ve.Error())
}
