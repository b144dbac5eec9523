package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeedText(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "warehouse.db")

	buf := &bytes.Buffer{}
	errBuf := &bytes.Buffer{}
	cmd := NewSeedCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetErr(errBuf)
	cmd.SetArgs([]string{warehouseFixtures, "--db", dbPath})

	require.NoError(t, cmd.Execute())
	assert.Equal(t, "✓ Seeded "+dbPath+": 3 person(s), 4 event(s), 0 criteria, 0 ancestor pair(s)\n", buf.String())
	assert.Contains(t, errBuf.String(), "warehouse seeded")

	_, err := os.Stat(dbPath)
	require.NoError(t, err)
}

func TestSeedJSONUsesConfiguredPath(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "configured.db")
	t.Setenv("COHORT_SQLITE_PATH", dbPath)

	buf := &bytes.Buffer{}
	cmd := NewSeedCommand(&RootOptions{Format: "json"})
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{warehouseFixtures})

	require.NoError(t, cmd.Execute())

	var resp struct {
		Status string     `json:"status"`
		Data   SeedResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, dbPath, resp.Data.Database)
	assert.Equal(t, 3, resp.Data.Persons)
	assert.Equal(t, 4, resp.Data.Events)
}

func TestSeedTwiceFails(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "warehouse.db")

	seed := func() error {
		cmd := NewSeedCommand(&RootOptions{Format: "text"})
		cmd.SetOut(&bytes.Buffer{})
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs([]string{warehouseFixtures, "--db", dbPath})
		return cmd.Execute()
	}

	require.NoError(t, seed())
	err := seed()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), ErrCodeWarehouse)
}

func TestSeedBadFixtures(t *testing.T) {
	fixtures := writeRequest(t, "fixtures.yaml", "persons:\n  - person_id: 1\n    shoe_size: 9\n")

	buf := &bytes.Buffer{}
	cmd := NewSeedCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{fixtures, "--db", filepath.Join(t.TempDir(), "w.db")})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, buf.String(), "Error [E004]")
}
