package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	opts "github.com/goliatone/go-pkgtree"
	"github.com/goliatone/go-pkgtree/config"
	"github.com/goliatone/go-pkgtree/fetch"
	"github.com/goliatone/go-pkgtree/freezedry"
	"github.com/goliatone/go-pkgtree/pkg/activity"
	"github.com/goliatone/go-pkgtree/pkg/state"
	"github.com/goliatone/go-pkgtree/resolve"
)

// Runtime holds what the commands share: settings, a logger and a resolver
// backed by the configured store.
type Runtime struct {
	Settings *Settings
	Logger   *slog.Logger
	Resolver *resolve.Resolver

	engine  *opts.Engine
	closers []io.Closer
}

// NewRuntime builds the logger, store, engine and resolver for s. Logs are
// written to logOut.
func NewRuntime(ctx context.Context, s *Settings, logOut io.Writer) (*Runtime, error) {
	logger, err := newLogger(s, logOut)
	if err != nil {
		return nil, err
	}
	rt := &Runtime{Settings: s, Logger: logger}

	engine, err := opts.NewEngine(s.ExprEngine, opts.WithEvaluatorLogger(opts.SlogEvaluatorLogger(logger)))
	if err != nil {
		return nil, err
	}
	rt.engine = engine

	store, err := rt.openStore(ctx)
	if err != nil {
		return nil, err
	}

	rt.Resolver = resolve.New(
		resolve.WithFetcher(fetch.Default(s.CacheDir)),
		resolve.WithStore(store),
		resolve.WithEmitter(newEmitter(s, logger)),
		resolve.WithConfigOptions(config.WithEngine(engine)),
		resolve.WithLogger(logger),
	)
	return rt, nil
}

// ConfigOptions returns the options a configuration tree read outside a
// resolve should use.
func (rt *Runtime) ConfigOptions() []config.Option {
	return []config.Option{config.WithEngine(rt.engine), config.WithLogger(rt.Logger)}
}

// Close releases the store.
func (rt *Runtime) Close() error {
	var first error
	for _, closer := range rt.closers {
		if err := closer.Close(); err != nil && first == nil {
			first = err
		}
	}
	rt.closers = nil
	return first
}

func (rt *Runtime) openStore(ctx context.Context) (state.Store[freezedry.Envelope], error) {
	s := rt.Settings
	switch s.StateBackend {
	case BackendMemory:
		return state.NewMemoryStore[freezedry.Envelope](), nil
	case BackendSQLite:
		if err := os.MkdirAll(s.StatePath, 0o755); err != nil {
			return nil, fmt.Errorf("create state directory: %w", err)
		}
		store, err := state.OpenSQLiteStore[freezedry.Envelope](ctx, filepath.Join(s.StatePath, "state.db"))
		if err != nil {
			return nil, err
		}
		rt.closers = append(rt.closers, store)
		return store, nil
	default:
		return state.NewFileStore[freezedry.Envelope](nil, s.StatePath), nil
	}
}

func newLogger(s *Settings, out io.Writer) (*slog.Logger, error) {
	level, err := s.Level()
	if err != nil {
		return nil, err
	}
	options := &slog.HandlerOptions{Level: level}
	if s.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(out, options)), nil
	}
	return slog.New(slog.NewTextHandler(out, options)), nil
}

// newEmitter logs activity events when activity is enabled.
func newEmitter(s *Settings, logger *slog.Logger) *activity.Emitter {
	hook := activity.HookFunc(func(ctx context.Context, event activity.Event) error {
		logger.InfoContext(ctx, "activity",
			slog.String("verb", event.Verb),
			slog.String("object_type", event.ObjectType),
			slog.String("object_id", event.ObjectID),
			slog.String("channel", event.Channel),
			slog.String("actor", event.ActorID))
		return nil
	})
	return activity.NewEmitter(activity.Hooks{hook}, activity.Config{
		Enabled: s.Activity,
		ActorID: s.Actor,
	})
}
