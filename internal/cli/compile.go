package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/cohort/internal/compiler"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	outputFlags
	Dialect string // overrides COHORT_DIALECT
	Output  string // output file path
}

// CompiledParam is one bound parameter as the warehouse receives it.
type CompiledParam struct {
	Name  string `json:"name"`
	Type  string `json:"type"`
	Value any    `json:"value"`
}

// CompileResult is the rendered statement of one request.
type CompileResult struct {
	CompilationID string          `json:"compilation_id"`
	Fingerprint   string          `json:"fingerprint"`
	Shape         compiler.Shape  `json:"shape"`
	Dialect       string          `json:"dialect"`
	SQL           string          `json:"sql"`
	Params        []CompiledParam `json:"params"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <request-file>",
		Short: "Compile a search request to parameterized SQL",
		Long: `Compile a cohort search request to parameterized SQL without running it.

The request is read from a .json, .yaml/.yml or .cue file, validated, and
rendered for the configured dialect. Parameters are listed in placeholder
order with the values the warehouse driver will receive.

Exit codes:
  0 - Request compiled
  1 - Request rejected by validation
  2 - Command error (unreadable file, bad flags, etc.)`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	opts.outputFlags.register(cmd)
	cmd.Flags().StringVar(&opts.Dialect, "dialect", "", "SQL dialect (sqlite|postgres); default from COHORT_DIALECT")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write the JSON result to this file")

	return cmd
}

func runCompile(opts *CompileOptions, requestFile string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	cfg, logger, err := loadConfig(opts.RootOptions, cmd.ErrOrStderr())
	if err != nil {
		return outputCommandError(formatter, ErrCodeConfig, err.Error())
	}

	req, err := LoadRequest(requestFile)
	if err != nil {
		return outputLoadError(formatter, err)
	}
	formatter.Debugf("Loaded request from %s", requestFile)

	out, err := opts.outputFlags.resolve()
	if err != nil {
		return outputCommandError(formatter, ErrCodeGeneric, err.Error())
	}

	c, err := newCompiler(cfg, opts.Dialect, logger)
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

	result := newCompileResult(comp)

	if opts.Output != "" {
		if err := writeResultToFile(result, opts.Output); err != nil {
			return outputCommandError(formatter, ErrCodeWriteFailed, fmt.Sprintf("writing output file: %v", err))
		}
	}

	return outputCompileSuccess(formatter, result, opts.Output)
}

func newCompileResult(comp *compiler.Compilation) *CompileResult {
	stmt := comp.Statement
	result := &CompileResult{
		CompilationID: comp.ID,
		Fingerprint:   comp.Fingerprint,
		Shape:         comp.Shape,
		Dialect:       stmt.Dialect.Name(),
		SQL:           stmt.SQL,
		Params:        make([]CompiledParam, 0, len(stmt.Params)),
	}
	for _, p := range stmt.Params {
		result.Params = append(result.Params, CompiledParam{
			Name:  p.Name,
			Type:  string(p.Type),
			Value: stmt.Dialect.BindValue(p),
		})
	}
	return result
}

// outputCompileSuccess outputs the rendered statement.
func outputCompileSuccess(formatter *OutputFormatter, result *CompileResult, outputFile string) error {
	return formatter.Result(result.CompilationID, result, func(w io.Writer) error {
		return writeCompileText(w, result, outputFile)
	})
}

func writeCompileText(w io.Writer, result *CompileResult, outputFile string) error {
	fmt.Fprintf(w, "-- %s query (%s), compilation %s\n", result.Shape, result.Dialect, result.CompilationID)
	fmt.Fprintf(w, "-- fingerprint %s\n", result.Fingerprint)
	fmt.Fprintln(w, result.SQL)
	if len(result.Params) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Parameters:")
		for _, p := range result.Params {
			fmt.Fprintf(w, "  @%s %s = %v\n", p.Name, p.Type, p.Value)
		}
	}
	if outputFile != "" {
		fmt.Fprintf(w, "\nWrote compiled statement to %s\n", outputFile)
	}
	return nil
}

// writeResultToFile writes the result as indented JSON.
func writeResultToFile(result any, filename string) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling result: %w", err)
	}

	if err := os.WriteFile(filename, data, 0o644); err != nil {
		return fmt.Errorf("writing file: %w", err)
	}

	return nil
}
