package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/idilsaglam/tada/internal/model"
	"github.com/idilsaglam/tada/internal/store"
)

type result struct {
	code           int
	stdout, stderr string
}

// workspace points the file backend at a temp dir and returns a runner.
func workspace(t *testing.T) (string, func(args ...string) result) {
	t.Helper()
	dir := t.TempDir()
	for _, k := range []string{"TADA_BACKEND", "TADA_DB", "TADA_KEY", "TADA_POLICY", "TADA_THEME", "TADA_LOG_FILE"} {
		t.Setenv(k, "")
	}
	t.Setenv("TADA_DIR", dir)
	t.Setenv("TADA_LOG_LEVEL", "error")
	cfgPath := filepath.Join(dir, "tada.yaml")

	return dir, func(args ...string) result {
		var out, errb bytes.Buffer
		code := run(append([]string{"--config", cfgPath}, args...), &out, &errb)
		return result{code: code, stdout: out.String(), stderr: errb.String()}
	}
}

func readList(t *testing.T, dir string) []model.Item {
	t.Helper()
	b, err := os.ReadFile(filepath.Join(dir, "todos.json"))
	require.NoError(t, err)
	items, err := store.Decode(b)
	require.NoError(t, err)
	return items
}

func TestRun_NoArgs(t *testing.T) {
	var out, errb bytes.Buffer
	assert.Equal(t, ExitUsage, run(nil, &out, &errb))
	assert.Contains(t, out.String(), "tada")
}

func TestRun_AddToggleEditRemove(t *testing.T) {
	dir, tada := workspace(t)

	r := tada("add", "Buy", "milk")
	require.Equal(t, ExitOK, r.code, r.stderr)
	assert.Contains(t, r.stdout, "added")
	require.Equal(t, ExitOK, tada("add", "Walk dog").code)

	items := readList(t, dir)
	require.Len(t, items, 2)
	assert.Equal(t, "Buy milk", items[0].Text)
	assert.False(t, items[0].Completed)
	assert.NotEqual(t, items[0].ID, items[1].ID)

	require.Equal(t, ExitOK, tada("done", "1").code)
	assert.True(t, readList(t, dir)[0].Completed)

	require.Equal(t, ExitOK, tada("edit", "1", "Buy", "oat", "milk").code)
	items = readList(t, dir)
	assert.Equal(t, "Buy oat milk", items[0].Text)
	assert.True(t, items[0].Completed)

	require.Equal(t, ExitOK, tada("rm", "2").code)
	items = readList(t, dir)
	require.Len(t, items, 1)
	assert.Equal(t, "Buy oat milk", items[0].Text)
}

func TestRun_ListPlain(t *testing.T) {
	_, tada := workspace(t)
	tada("add", "A")
	tada("add", "B")
	tada("done", "2")

	r := tada("ls", "--plain")
	require.Equal(t, ExitOK, r.code, r.stderr)
	assert.Contains(t, r.stdout, "Total 2")
	assert.Contains(t, r.stdout, " 1.")
	assert.Contains(t, r.stdout, "A")

	r = tada("--group", "ls", "--plain")
	require.Equal(t, ExitOK, r.code)
	assert.Contains(t, r.stdout, "Pending")
	assert.Contains(t, r.stdout, "Done")
}

func TestRun_UsageErrors(t *testing.T) {
	_, tada := workspace(t)
	tada("add", "A")

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"add without text", []string{"add"}, "usage: tada add"},
		{"add blank text", []string{"add", "   "}, "add: empty text"},
		{"done not a number", []string{"done", "x"}, "done: not a number: x"},
		{"done out of range", []string{"done", "5"}, "index out of range: have 1, got 5"},
		{"rm zero", []string{"rm", "0"}, "index out of range"},
		{"edit missing text", []string{"edit", "1"}, "usage: tada edit"},
		{"unknown command", []string{"frobnicate"}, "unknown command"},
		{"bad backend", []string{"--backend", "redis", "ls"}, "storage.backend"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := tada(tt.args...)
			assert.Equal(t, ExitUsage, r.code)
			assert.Contains(t, r.stderr, tt.want)
		})
	}
}

func TestRun_OutOfRangeHint(t *testing.T) {
	_, tada := workspace(t)
	r := tada("done", "1")
	assert.Equal(t, ExitUsage, r.code)
	assert.Contains(t, r.stderr, "tada ls")
}

func TestRun_CorruptListIsLeftAlone(t *testing.T) {
	dir, tada := workspace(t)
	path := filepath.Join(dir, "todos.json")
	require.NoError(t, os.WriteFile(path, []byte("{broken"), 0o644))

	r := tada("add", "A")
	assert.Equal(t, ExitError, r.code)
	assert.Contains(t, r.stderr, "load:")

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "{broken", string(raw))
}

func TestRun_SQLiteBackend(t *testing.T) {
	dir, tada := workspace(t)
	t.Setenv("TADA_DB", filepath.Join(dir, "todos.db"))

	require.Equal(t, ExitOK, tada("--backend", "sqlite", "add", "A").code)
	require.Equal(t, ExitOK, tada("--backend", "sqlite", "add", "B").code)

	r := tada("--backend", "sqlite", "ls", "--plain")
	require.Equal(t, ExitOK, r.code, r.stderr)
	assert.Contains(t, r.stdout, "Total 2")
	assert.NoFileExists(t, filepath.Join(dir, "todos.json"))
}

func TestRun_Config(t *testing.T) {
	dir, tada := workspace(t)

	r := tada("config")
	require.Equal(t, ExitOK, r.code, r.stderr)
	assert.Contains(t, r.stdout, "backend: file")
	assert.Contains(t, r.stdout, "policy: immediate")

	r = tada("config", "--write")
	require.Equal(t, ExitOK, r.code, r.stderr)
	assert.FileExists(t, filepath.Join(dir, "tada.yaml"))
}

func TestRun_ManualPolicyStillWritesOnExit(t *testing.T) {
	dir, tada := workspace(t)
	t.Setenv("TADA_POLICY", "manual")

	require.Equal(t, ExitOK, tada("add", "A").code)
	assert.Len(t, readList(t, dir), 1)
}
