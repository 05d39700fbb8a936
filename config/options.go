package config

import (
	"log/slog"

	opts "github.com/goliatone/go-pkgtree"
	"github.com/goliatone/go-pkgtree/internal/ctxlog"
	"github.com/goliatone/go-pkgtree/kinds"
	"github.com/goliatone/go-pkgtree/plugins"
	"github.com/spf13/afero"
)

// Option configures a configuration tree.
type Option func(*settings)

type settings struct {
	fs     afero.Fs
	kinds  *kinds.Registry
	engine *opts.Engine
	logger *slog.Logger
}

// WithFs sets the filesystem documents are read from.
func WithFs(fs afero.Fs) Option {
	return func(s *settings) {
		s.fs = fs
	}
}

// WithKinds sets the plugin registry.
func WithKinds(registry *kinds.Registry) Option {
	return func(s *settings) {
		s.kinds = registry
	}
}

// WithEngine sets the engine guard expressions are evaluated with.
func WithEngine(engine *opts.Engine) Option {
	return func(s *settings) {
		s.engine = engine
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) {
		s.logger = logger
	}
}

func (s settings) apply(options []Option) (settings, error) {
	for _, option := range options {
		if option != nil {
			option(&s)
		}
	}
	if s.fs == nil {
		s.fs = afero.NewOsFs()
	}
	if s.kinds == nil {
		s.kinds = plugins.Default()
	}
	if s.logger == nil {
		s.logger = ctxlog.Discard()
	}
	if s.engine == nil {
		engine, err := opts.NewEngine(opts.EngineExpr, opts.WithEvaluatorLogger(opts.SlogEvaluatorLogger(s.logger)))
		if err != nil {
			return s, err
		}
		s.engine = engine
	}
	return s, nil
}
