package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/JonMunkholm/taskimport/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const exportCSV = "Exported tasks\n\n\n\n\n\n" +
	"Title,Tags,List Name,Folder Name\n" +
	"Buy milk,\"errand,home\",Errands,Home\n" +
	",,Errands,Home\n"

// run executes the CLI against a SQLite store in dir.
func run(t *testing.T, dir string, stdin string, args ...string) (string, error) {
	t.Helper()

	t.Setenv("CONFIG_FILE", "")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_SQLITE_PATH", filepath.Join(dir, "tasks.db"))
	t.Setenv("LOG_LEVEL", "error")

	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)

	err := cmd.Execute()
	return out.String(), err
}

func writeExport(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "export.csv")
	require.NoError(t, os.WriteFile(path, []byte(exportCSV), 0o600))
	return path
}

func TestImportCommand(t *testing.T) {
	dir := t.TempDir()
	path := writeExport(t, dir)

	out, err := run(t, dir, "", "tags", "add", "errand")
	require.NoError(t, err)
	assert.Equal(t, "errand\n", out)

	out, err = run(t, dir, "", "import", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Import complete: export.csv")
	assert.Contains(t, out, "Created tasks:  1")
	assert.Contains(t, out, "line 9: missing required title")

	out, err = run(t, dir, "", "tags")
	require.NoError(t, err)
	assert.Equal(t, "errand\n", out)
}

func TestImportCommand_DryRun(t *testing.T) {
	dir := t.TempDir()
	path := writeExport(t, dir)

	out, err := run(t, dir, "", "import", "--dry-run", "--quiet", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Dry run complete")
	assert.Contains(t, out, "New folders:    Home")
	assert.Contains(t, out, "New projects:   Errands")
	assert.NotContains(t, out, "line 9")

	out, err = run(t, dir, "", "import", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Created tasks:  1", "dry run must not write to the store")
	assert.Contains(t, out, "New projects:   Errands")

	out, err = run(t, dir, "", "import", "--dry-run", path)
	require.NoError(t, err)
	assert.NotContains(t, out, "New folders", "existing folders are reused")
	assert.NotContains(t, out, "New projects")
}

func TestImportCommand_Prompt(t *testing.T) {
	dir := t.TempDir()
	writeExport(t, dir)

	out, err := run(t, dir, "1\n", "import", "--dry-run", "--dir", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "export.csv")

	out, err = run(t, dir, "\n", "import", "--dir", dir)
	require.ErrorIs(t, err, core.ErrNoFileSelected)
	assert.Empty(t, out)

	var buf bytes.Buffer
	printError(&buf, err)
	assert.Contains(t, buf.String(), "Code: FILE004")
}

func TestImportCommand_Errors(t *testing.T) {
	dir := t.TempDir()
	txt := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(txt, []byte("x"), 0o600))

	_, err := run(t, dir, "", "import", txt)
	require.Error(t, err)

	var buf bytes.Buffer
	printError(&buf, err)
	assert.Contains(t, buf.String(), "Code: FILE002")

	_, err = run(t, dir, "", "import", filepath.Join(dir, "missing.csv"))
	require.Error(t, err)
	buf.Reset()
	printError(&buf, err)
	assert.Contains(t, buf.String(), "Code: FILE003")
}
