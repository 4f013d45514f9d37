package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestPortsCommand(t *testing.T) {
	out, err := run(t, "ports")
	require.NoError(t, err)
	assert.Contains(t, out, "olt")

	out, err = run(t, "ports", "olt")
	require.NoError(t, err)
	assert.Contains(t, out, "pon1")

	_, err = run(t, "ports", "toaster")
	assert.Error(t, err)
}

func TestImportExportCommands(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("TOPOMAP_CONFIG", "")
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	db := filepath.Join(dir, "topo.db")

	seed := filepath.Join(dir, "seed.yaml")
	require.NoError(t, os.WriteFile(seed, []byte(`nodes:
  - id: r1
    type: router
  - id: s1
    type: switch
links:
  - source: r1/ether1
    target: s1/port1
`), 0o644))

	out, err := run(t, "--db", db, "--log-level", "error", "import", seed)
	require.NoError(t, err)
	assert.Contains(t, out, "imported 2 nodes and 1 links")

	exported := filepath.Join(dir, "out.json")
	_, err = run(t, "--db", db, "--log-level", "error", "export", "-o", exported)
	require.NoError(t, err)

	data, err := os.ReadFile(exported)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"r1"`)
	assert.Contains(t, string(data), `"ether1"`)

	_, err = run(t, "--db", db, "import", filepath.Join(dir, "seed.txt"))
	assert.Error(t, err, "unknown extension")
}

func TestInitCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "topomap.yaml")

	out, err := run(t, "--config", path, "init")
	require.NoError(t, err)
	assert.Contains(t, out, path)
	assert.FileExists(t, path)

	_, err = run(t, "--config", path, "init")
	assert.Error(t, err, "refuses to overwrite")

	_, err = run(t, "--config", path, "init", "--force")
	assert.NoError(t, err)
}
