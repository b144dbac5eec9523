package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/roach88/cohort/internal/compiler"
)

// Process exit codes.
const (
	ExitSuccess      = 0
	ExitFailure      = 1 // request rejected, scenarios failed
	ExitCommandError = 2 // unreadable input, bad configuration, warehouse unreachable
)

// ExitError carries the process exit code out of a command.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *ExitError) Unwrap() error { return e.Err }

// NewExitError returns an ExitError without a cause.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError returns an ExitError caused by err.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode maps a command error to a process exit code. Errors that are
// not ExitErrors (flag parsing, unknown commands) exit with ExitFailure.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// CLIResponse is the envelope of every --format json document.
type CLIResponse struct {
	Status        string    `json:"status"` // "ok" or "error"
	Data          any       `json:"data,omitempty"`
	Error         *CLIError `json:"error,omitempty"`
	CompilationID string    `json:"compilation_id,omitempty"`
}

// CLIError is the error member of CLIResponse. Code is a CLI code (E0xx) or
// the compiler's validation code (E2xx).
type CLIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// OutputFormatter writes command results as text or as a CLIResponse.
// Diagnostics go to ErrWriter so stdout stays parseable.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer
	Verbose   bool
}

// JSON reports whether results are written as JSON documents.
func (f *OutputFormatter) JSON() bool {
	return f.Format == "json"
}

// Result writes a successful result. In text mode text renders it; a nil
// text prints data with its default format. id, when set, ties the output
// to the compiler's log lines.
func (f *OutputFormatter) Result(id string, data any, text func(w io.Writer) error) error {
	if f.JSON() {
		return f.encode(CLIResponse{Status: "ok", Data: data, CompilationID: id})
	}
	if text == nil {
		_, err := fmt.Fprintln(f.Writer, data)
		return err
	}
	return text(f.Writer)
}

// Failure writes a command-level error.
func (f *OutputFormatter) Failure(code, message string, details any) error {
	if f.JSON() {
		return f.encode(CLIResponse{
			Status: "error",
			Error:  &CLIError{Code: code, Message: message, Details: details},
		})
	}
	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", details)
	}
	return nil
}

// Rejection writes a request the compiler refused. The JSON details hold
// the full ValidationError.
func (f *OutputFormatter) Rejection(ve *compiler.ValidationError) error {
	if f.JSON() {
		return f.encode(CLIResponse{
			Status: "error",
			Error:  &CLIError{Code: ve.Code, Message: ve.Message, Details: ve},
		})
	}
	fmt.Fprintf(f.Writer, "Rejected [%s] %s: %s\n", ve.Code, ve.Field, ve.Message)
	if ve.Operator != "" {
		fmt.Fprintf(f.Writer, "  operator: %s\n", ve.Operator)
	}
	if f.Verbose {
		fmt.Fprintf(f.Writer, "  kind: %s\n", ve.Kind)
	}
	return nil
}

// Debugf writes a diagnostic line when --verbose is set.
func (f *OutputFormatter) Debugf(format string, args ...any) {
	if f.Verbose {
		fmt.Fprintf(f.errWriter(), format+"\n", args...)
	}
}

func (f *OutputFormatter) errWriter() io.Writer {
	if f.ErrWriter == nil {
		return f.Writer
	}
	return f.ErrWriter
}

func (f *OutputFormatter) encode(resp CLIResponse) error {
	return json.NewEncoder(f.Writer).Encode(resp)
}
