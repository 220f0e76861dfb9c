package scan

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectLanguage(t *testing.T) {
	var tests = []struct {
		path string
		want string
	}{
		{"app.py", "python"},
		{"src/handler.PY", "python"},
		{"web/index.js", "javascript"},
		{"web/app.tsx", "javascript"},
		{"main.go", "generic"},
		{"schema.sql", "generic"},
		{"README", "generic"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := detectLanguage(tt.path); got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestCollectUnitsWalksDirectories(t *testing.T) {
	dir := t.TempDir()
	mustWrite := func(rel, content string) {
		path := filepath.Join(dir, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
	mustWrite("app.py", "x = 1\n")
	mustWrite("web/index.js", "const y = 2\n")
	mustWrite("notes.txt", "not source\n")
	mustWrite(".git/config", "[core]\n")

	units, err := collectUnits([]string{dir})
	require.NoError(t, err)
	require.Len(t, units, 2)

	// walk output is sorted by path
	assert.Equal(t, "python", units[0].Language)
	assert.Contains(t, units[0].ID, "app.py")
	assert.Equal(t, "javascript", units[1].Language)
	assert.Contains(t, units[1].ID, "index.js")
	assert.Equal(t, "x = 1\n", units[0].Content)
}

func TestCollectUnitsSingleFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tool.py")
	require.NoError(t, os.WriteFile(path, []byte("a = 1\n"), 0644))

	units, err := collectUnits([]string{path})
	require.NoError(t, err)
	require.Len(t, units, 1)
	assert.Equal(t, "python", units[0].Language)
}

func TestCollectUnitsMissingPath(t *testing.T) {
	_, err := collectUnits([]string{filepath.Join(t.TempDir(), "absent")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot access")
}
