package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/cohort/internal/compiler"
	"github.com/roach88/cohort/internal/criteria"
)

// FileValidation is the validation outcome of one request file.
type FileValidation struct {
	File        string                    `json:"file"`
	Valid       bool                      `json:"valid"`
	Fingerprint string                    `json:"fingerprint,omitempty"`
	Error       *compiler.ValidationError `json:"error,omitempty"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid bool             `json:"valid"`
	Files []FileValidation `json:"files"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <request-file>...",
		Short: "Validate search requests without compiling them",
		Long: `Validate one or more cohort search requests.

Runs the same checks as compile (structure, attributes, modifiers,
temporal groups, demographics) and reports the first violation of each
request with its E2xx code. Nothing is rendered and no warehouse is needed.

Exit codes:
  0 - All requests valid
  1 - One or more requests rejected
  2 - Command error (unreadable file, etc.)`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args, cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, files []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	result := ValidationResult{Valid: true, Files: make([]FileValidation, 0, len(files))}
	for _, file := range files {
		req, err := LoadRequest(file)
		if err != nil {
			return outputLoadError(formatter, err)
		}
		formatter.Debugf("Validating %s", file)

		fv, err := validateRequest(file, req)
		if err != nil {
			return outputCommandError(formatter, ErrCodeGeneric, err.Error())
		}
		if !fv.Valid {
			result.Valid = false
		}
		result.Files = append(result.Files, fv)
	}

	if result.Valid {
		return outputValidateSuccess(formatter, result)
	}
	return outputValidationErrors(formatter, result)
}

// validateRequest checks one request. A rule violation is reported in the
// result; only unexpected failures are returned as errors.
func validateRequest(file string, req *criteria.SearchRequest) (FileValidation, error) {
	fv := FileValidation{File: file}

	err := compiler.ValidateRequest(req)
	var ve *compiler.ValidationError
	switch {
	case err == nil:
	case errors.As(err, &ve):
		fv.Error = ve
		return fv, nil
	default:
		return fv, err
	}

	fp, err := criteria.Fingerprint(req)
	if err != nil {
		return fv, fmt.Errorf("%s: fingerprint request: %w", file, err)
	}
	fv.Valid = true
	fv.Fingerprint = fp
	return fv, nil
}

// outputValidateSuccess outputs success message.
func outputValidateSuccess(formatter *OutputFormatter, result ValidationResult) error {
	for _, f := range result.Files {
		formatter.Debugf("  %s fingerprint %s", f.File, f.Fingerprint)
	}
	return formatter.Result("", result, func(w io.Writer) error {
		_, err := fmt.Fprintf(w, "✓ %d request(s) valid\n", len(result.Files))
		return err
	})
}

// outputValidationErrors outputs validation errors (exit code 1).
func outputValidationErrors(formatter *OutputFormatter, result ValidationResult) error {
	var rejected int
	for _, f := range result.Files {
		if !f.Valid {
			rejected++
		}
	}

	if formatter.JSON() {
		var first *compiler.ValidationError
		for _, f := range result.Files {
			if f.Error != nil {
				first = f.Error
				break
			}
		}
		response := CLIResponse{
			Status: "error",
			Error: &CLIError{
				Code:    first.Code,
				Message: first.Message,
			},
			Data: result,
		}

		encoder := json.NewEncoder(formatter.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}
		return NewExitError(ExitFailure, fmt.Sprintf("%d request(s) rejected", rejected))
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)

	for _, f := range result.Files {
		if f.Valid {
			fmt.Fprintf(formatter.Writer, "%s: ok\n", f.File)
			continue
		}
		fmt.Fprintf(formatter.Writer, "%s\n", f.File)
		fmt.Fprintf(formatter.Writer, "  %s [%s]: %s\n", f.Error.Code, f.Error.Field, f.Error.Message)
		if f.Error.Operator != "" {
			fmt.Fprintf(formatter.Writer, "    operator: %s\n", f.Error.Operator)
		}
		fmt.Fprintln(formatter.Writer)
	}

	return NewExitError(ExitFailure, fmt.Sprintf("%d request(s) rejected", rejected))
}
