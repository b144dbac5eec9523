package harness

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// Snapshot renders the deterministic part of a result: the compiled SQL and
// its bound parameters, or the rejection. Counts and rows are checked by
// assertions, not snapshots, so fixture edits don't churn golden files.
//
// Format:
//
//	-- <scenario name>
//	<SQL>
//	@p0 = <value>
//	...
func Snapshot(name string, result *Result) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "-- %s\n", name)

	if result.Rejection != nil {
		fmt.Fprintf(&buf, "rejected: %s\n", result.Rejection.Error())
		return buf.Bytes()
	}

	buf.WriteString(result.SQL)
	buf.WriteString("\n")
	for _, p := range result.Params {
		fmt.Fprintf(&buf, "@%s = %v\n", p.Name, p.Value)
	}
	return buf.Bytes()
}

// RunWithGolden executes a scenario and compares its snapshot against a
// golden file at testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns the result so callers can report assertion failures.
// Test failure (via goldie) occurs if the snapshot doesn't match.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(context.Background(), scenario)
	if err != nil {
		return nil, err
	}

	AssertGolden(t, scenario.Name, result)
	return result, nil
}

// AssertGolden compares an existing result's snapshot against a golden
// file without re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) {
	t.Helper()

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, Snapshot(scenarioName, result))
}
