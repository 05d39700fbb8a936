package cli

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	root := NewRootCmd()
	flags := root.PersistentFlags()
	require.NoError(t, flags.Parse(args))
	return flags
}

func TestLoadSettingsDefaults(t *testing.T) {
	dir := t.TempDir()
	s, err := LoadSettings("", testFlags(t, "--workdir", dir))
	require.NoError(t, err)

	assert.Equal(t, dir, s.Workdir)
	assert.Equal(t, BackendJSON, s.StateBackend)
	assert.Equal(t, filepath.Join(dir, ".pkgtree", "state"), s.StatePath)
	assert.Equal(t, filepath.Join(dir, ".pkgtree", "cache"), s.CacheDir)
	assert.Equal(t, "expr", s.ExprEngine)
	assert.Empty(t, s.File)

	level, err := s.Level()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, level)
}

func TestLoadSettingsPrecedence(t *testing.T) {
	dir := t.TempDir()
	settings := `state_backend: sqlite
expr_engine: cel
log_level: info
actor: file-actor
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, SettingsFile), []byte(settings), 0o644))
	t.Setenv("PKGTREE_LOG_LEVEL", "debug")
	t.Setenv("PKGTREE_ACTIVITY", "true")

	s, err := LoadSettings("", testFlags(t, "-C", dir, "--engine", "js", "--state", "/var/lib/pkgtree"))
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, SettingsFile), s.File)
	assert.Equal(t, BackendSQLite, s.StateBackend, "from the settings file")
	assert.Equal(t, "file-actor", s.Actor)
	assert.Equal(t, "debug", s.LogLevel, "env beats the settings file")
	assert.True(t, s.Activity)
	assert.Equal(t, "js", s.ExprEngine, "flags beat everything")
	assert.Equal(t, "/var/lib/pkgtree", s.StatePath)
}

func TestLoadSettingsExplicitFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("state_backend: memory\n"), 0o644))

	s, err := LoadSettings(path, testFlags(t, "-C", t.TempDir()))
	require.NoError(t, err)
	assert.Equal(t, BackendMemory, s.StateBackend)
	assert.Equal(t, path, s.File)
}

func TestLoadSettingsRejectsUnknownValues(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "backend", args: []string{"--backend", "redis"}, want: "unknown state backend"},
		{name: "engine", args: []string{"--engine", "lua"}, want: "unknown expression engine"},
		{name: "level", args: []string{"--log-level", "loud"}, want: "invalid log level"},
		{name: "format", args: []string{"--log-format", "xml"}, want: "unknown log format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"-C", t.TempDir()}, tt.args...)
			_, err := LoadSettings("", testFlags(t, args...))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
