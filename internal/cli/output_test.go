package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cohort/internal/compiler"
)

func TestOutputFormatter_ResultJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	called := false
	err := formatter.Result("c-42", map[string]int{"count": 3}, func(io.Writer) error {
		called = true
		return nil
	})
	require.NoError(t, err)
	assert.False(t, called, "text renderer runs only in text mode")

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "c-42", resp.CompilationID)
	assert.Equal(t, map[string]any{"count": float64(3)}, resp.Data)
}

func TestOutputFormatter_ResultText(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "text", Writer: buf}

	err := formatter.Result("c-42", 3, func(w io.Writer) error {
		_, err := fmt.Fprintln(w, "3 participants")
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, "3 participants\n", buf.String())

	buf.Reset()
	require.NoError(t, formatter.Result("", "2 request(s) valid", nil))
	assert.Equal(t, "2 request(s) valid\n", buf.String())
}

func TestOutputFormatter_Failure(t *testing.T) {
	t.Run("json", func(t *testing.T) {
		buf := &bytes.Buffer{}
		formatter := &OutputFormatter{Format: "json", Writer: buf}
		require.NoError(t, formatter.Failure(ErrCodeWarehouse, "connection refused", map[string]string{"dialect": "postgres"}))

		var resp CLIResponse
		require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
		assert.Equal(t, "error", resp.Status)
		require.NotNil(t, resp.Error)
		assert.Equal(t, "E008", resp.Error.Code)
		assert.Equal(t, "connection refused", resp.Error.Message)
		assert.NotNil(t, resp.Error.Details)
	})

	t.Run("text", func(t *testing.T) {
		buf := &bytes.Buffer{}
		formatter := &OutputFormatter{Format: "text", Writer: buf}
		require.NoError(t, formatter.Failure(ErrCodeNotFound, "request file not found: x.yaml", map[string]string{"a": "b"}))
		assert.Equal(t, "Error [E005]: request file not found: x.yaml\n", buf.String())
	})

	t.Run("text verbose", func(t *testing.T) {
		buf := &bytes.Buffer{}
		formatter := &OutputFormatter{Format: "text", Writer: buf, Verbose: true}
		require.NoError(t, formatter.Failure(ErrCodeNotFound, "not found", map[string]string{"file": "request.yaml"}))
		assert.Contains(t, buf.String(), "Details: map[file:request.yaml]")
	})
}

func TestOutputFormatter_Rejection(t *testing.T) {
	ve := &compiler.ValidationError{
		Kind:     compiler.KindAttributeValidation,
		Code:     compiler.ErrBetweenOperands,
		Field:    "includes[0].items[0].searchParameters[0].attributes[0]",
		Operator: "BETWEEN",
		Message:  "BETWEEN requires exactly two operands, got 1",
	}

	t.Run("text", func(t *testing.T) {
		buf := &bytes.Buffer{}
		formatter := &OutputFormatter{Format: "text", Writer: buf}
		require.NoError(t, formatter.Rejection(ve))
		assert.Equal(t,
			"Rejected [E204] includes[0].items[0].searchParameters[0].attributes[0]: BETWEEN requires exactly two operands, got 1\n"+
				"  operator: BETWEEN\n",
			buf.String())
	})

	t.Run("text verbose names the kind", func(t *testing.T) {
		buf := &bytes.Buffer{}
		formatter := &OutputFormatter{Format: "text", Writer: buf, Verbose: true}
		require.NoError(t, formatter.Rejection(ve))
		assert.Contains(t, buf.String(), "  kind: "+string(compiler.KindAttributeValidation))
	})

	t.Run("json", func(t *testing.T) {
		buf := &bytes.Buffer{}
		formatter := &OutputFormatter{Format: "json", Writer: buf}
		require.NoError(t, formatter.Rejection(ve))

		var resp struct {
			Status string `json:"status"`
			Error  struct {
				Code    string                   `json:"code"`
				Details compiler.ValidationError `json:"details"`
			} `json:"error"`
		}
		require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
		assert.Equal(t, "error", resp.Status)
		assert.Equal(t, "E204", resp.Error.Code)
		assert.Equal(t, *ve, resp.Error.Details)
	})
}

func TestOutputFormatter_Debugf(t *testing.T) {
	tests := []struct {
		name    string
		verbose bool
		wantLog bool
	}{
		{"verbose_enabled", true, true},
		{"verbose_disabled", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := &bytes.Buffer{}
			errOut := &bytes.Buffer{}
			formatter := &OutputFormatter{Format: "json", Writer: out, ErrWriter: errOut, Verbose: tt.verbose}

			formatter.Debugf("Loaded request from %s", "request.yaml")

			assert.Empty(t, out.String())
			if tt.wantLog {
				assert.Equal(t, "Loaded request from request.yaml\n", errOut.String())
			} else {
				assert.Empty(t, errOut.String())
			}
		})
	}
}

func TestOutputFormatter_DebugfFallsBackToWriter(t *testing.T) {
	out := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "text", Writer: out, Verbose: true}

	formatter.Debugf("diagnostic")
	assert.Equal(t, "diagnostic\n", out.String())
}

func TestExitCodes(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"exit_error", NewExitError(ExitCommandError, "bad config"), ExitCommandError},
		{"wrapped_exit_error", fmt.Errorf("outer: %w", NewExitError(ExitFailure, "rejected")), ExitFailure},
		{"plain_error", errors.New("boom"), ExitFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GetExitCode(tt.err))
		})
	}
}

func TestWrapExitError(t *testing.T) {
	cause := errors.New("disk full")
	err := WrapExitError(ExitCommandError, "writing output", cause)

	assert.Equal(t, "writing output: disk full", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "bad flags", NewExitError(ExitCommandError, "bad flags").Error())
}
