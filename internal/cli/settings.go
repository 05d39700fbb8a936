package cli

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	opts "github.com/goliatone/go-pkgtree"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// SettingsFile is looked up in the working directory when no settings file
// is given.
const SettingsFile = "pkgtree.settings.yaml"

// EnvPrefix prefixes the environment variables settings are read from.
const EnvPrefix = "PKGTREE_"

// State backends.
const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// Settings configures the command line tool. They are unrelated to the
// package documents a resolve reads.
type Settings struct {
	Workdir      string `koanf:"workdir"`
	StatePath    string `koanf:"state_path"`
	StateBackend string `koanf:"state_backend"`
	CacheDir     string `koanf:"cache_dir"`
	ExprEngine   string `koanf:"expr_engine"`
	LogLevel     string `koanf:"log_level"`
	LogFormat    string `koanf:"log_format"`
	Activity     bool   `koanf:"activity"`
	Actor        string `koanf:"actor"`

	// File is the settings file that was read, if any.
	File string `koanf:"-"`
}

// flagKeys maps flags whose name differs from their settings key.
var flagKeys = map[string]string{
	"state":   "state_path",
	"backend": "state_backend",
	"engine":  "expr_engine",
}

func defaultSettings() map[string]any {
	return map[string]any{
		"workdir":       ".",
		"state_path":    filepath.Join(".pkgtree", "state"),
		"state_backend": BackendJSON,
		"cache_dir":     filepath.Join(".pkgtree", "cache"),
		"expr_engine":   opts.EngineExpr,
		"log_level":     "warn",
		"log_format":    "text",
		"activity":      false,
	}
}

// LoadSettings reads settings from defaults, the settings file, PKGTREE_
// environment variables and the flags that were set, later sources winning.
// Relative state and cache paths are resolved against the working directory.
func LoadSettings(settingsFile string, flags *pflag.FlagSet) (*Settings, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaultSettings(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	workdir := "."
	if flags != nil && flags.Changed("workdir") {
		workdir, _ = flags.GetString("workdir")
	} else if v := os.Getenv(EnvPrefix + "WORKDIR"); v != "" {
		workdir = v
	}

	if settingsFile == "" {
		candidate := filepath.Join(workdir, SettingsFile)
		if _, err := os.Stat(candidate); err == nil {
			settingsFile = candidate
		}
	}
	if settingsFile != "" {
		if err := k.Load(file.Provider(settingsFile), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading settings file %s: %w", settingsFile, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			if !f.Changed {
				return "", nil
			}
			key := strings.ReplaceAll(f.Name, "-", "_")
			if mapped, ok := flagKeys[key]; ok {
				key = mapped
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var s Settings
	if err := k.Unmarshal("", &s); err != nil {
		return nil, fmt.Errorf("unable to decode settings: %w", err)
	}
	s.File = settingsFile
	s.StatePath = resolveRelative(s.StatePath, s.Workdir)
	s.CacheDir = resolveRelative(s.CacheDir, s.Workdir)
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks the enumerated settings.
func (s *Settings) Validate() error {
	switch s.StateBackend {
	case BackendJSON, BackendSQLite, BackendMemory:
	default:
		return fmt.Errorf("unknown state backend %q (want json, sqlite or memory)", s.StateBackend)
	}
	switch s.ExprEngine {
	case opts.EngineExpr, opts.EngineCEL, opts.EngineJS:
	default:
		return fmt.Errorf("unknown expression engine %q", s.ExprEngine)
	}
	if _, err := s.Level(); err != nil {
		return err
	}
	switch s.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", s.LogFormat)
	}
	return nil
}

// Level parses LogLevel.
func (s *Settings) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s.LogLevel)); err != nil {
		return level, fmt.Errorf("invalid log level %q: %w", s.LogLevel, err)
	}
	return level, nil
}

func resolveRelative(path, base string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(base, path)
}
