// Package resolve drives a configuration tree through its phases: it reads
// the requested documents, fetches the packages whose build is not known
// depth-first in declaration order, merges the dependencies' trees,
// finalizes and persists the outcome.
package resolve

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/goliatone/go-pkgtree/config"
	"github.com/goliatone/go-pkgtree/fetch"
	"github.com/goliatone/go-pkgtree/freezedry"
	"github.com/goliatone/go-pkgtree/internal/ctxlog"
	"github.com/goliatone/go-pkgtree/internal/logfields"
	"github.com/goliatone/go-pkgtree/kinds"
	"github.com/goliatone/go-pkgtree/pkg/activity"
	"github.com/goliatone/go-pkgtree/pkg/state"
	"github.com/goliatone/go-pkgtree/plugins"
	"github.com/google/uuid"
)

// Domain is the state domain metadata snapshots are saved under.
const Domain = "metadata"

// Resolver resolves workspaces and keeps their metadata in a store.
type Resolver struct {
	fetcher fetch.Fetcher
	store   state.Store[freezedry.Envelope]
	kinds   *kinds.Registry
	emitter *activity.Emitter
	config  []config.Option
	logger  *slog.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithFetcher sets the fetch collaborator.
func WithFetcher(fetcher fetch.Fetcher) Option {
	return func(r *Resolver) {
		r.fetcher = fetcher
	}
}

// WithStore sets where metadata snapshots are kept.
func WithStore(store state.Store[freezedry.Envelope]) Option {
	return func(r *Resolver) {
		r.store = store
	}
}

// WithKinds sets the plugin registry used for parsing and persistence.
func WithKinds(registry *kinds.Registry) Option {
	return func(r *Resolver) {
		r.kinds = registry
	}
}

// WithEmitter sets the activity emitter.
func WithEmitter(emitter *activity.Emitter) Option {
	return func(r *Resolver) {
		r.emitter = emitter
	}
}

// WithConfigOptions passes options to every configuration tree.
func WithConfigOptions(options ...config.Option) Option {
	return func(r *Resolver) {
		r.config = append(r.config, options...)
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		r.logger = logger
	}
}

// New returns a resolver. Without options it fetches into a temporary
// cache and keeps snapshots in memory.
func New(options ...Option) *Resolver {
	r := &Resolver{}
	for _, option := range options {
		if option != nil {
			option(r)
		}
	}
	if r.fetcher == nil {
		r.fetcher = fetch.Default(filepath.Join(os.TempDir(), "pkgtree", "cache"))
	}
	if r.store == nil {
		r.store = state.NewMemoryStore[freezedry.Envelope]()
	}
	if r.kinds == nil {
		r.kinds = plugins.Default()
	}
	if r.logger == nil {
		r.logger = ctxlog.Discard()
	}
	return r
}

// Result is the outcome of one resolve.
type Result struct {
	ID       string
	Config   *config.Config
	Metadata *Metadata
	// Previous is the snapshot saved by the last resolve, or nil.
	Previous *Metadata
	Changed  []string
	Meta     state.Meta
}

// Resolve resolves the documents for paths as the workspace's
// configuration. Without paths the workspace directory itself is read.
// Nothing is saved unless every step succeeds.
func (r *Resolver) Resolve(ctx context.Context, workspace string, paths ...string) (*Result, error) {
	workspace = filepath.Clean(workspace)
	ctx, err := fetch.Enter(ctx, workspace)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		paths = []string{workspace}
	}

	id := uuid.NewString()
	logger := r.logger.With(logfields.ResolveID(id), logfields.Dir(workspace))
	ctx = ctxlog.WithLogger(ctx, logger)
	start := time.Now()

	r.emit(ctx, activity.BuildResolveStartedEvent(activity.ResolveEventInput{ResolveID: id, Workspace: workspace}))
	logger.Info("resolve started", slog.Any("paths", paths))

	result, err := r.resolve(ctx, id, workspace, paths)
	if err != nil {
		logger.Error("resolve failed", logfields.Error(err))
		r.emit(ctx, activity.BuildResolveFailedEvent(activity.ResolveEventInput{
			ResolveID: id,
			Workspace: workspace,
			Err:       err,
			Duration:  time.Since(start),
		}))
		return nil, err
	}

	logger.Info("resolve completed",
		slog.Int("packages", result.Metadata.Packages.Len()),
		slog.Int("changed", len(result.Changed)),
		logfields.DurationMS(float64(time.Since(start).Microseconds())/1000))
	r.emit(ctx, activity.BuildResolveCompletedEvent(activity.ResolveEventInput{
		ResolveID:  id,
		Workspace:  workspace,
		Files:      result.Metadata.Files,
		Packages:   result.Metadata.Names(),
		Changed:    result.Changed,
		SnapshotID: result.Meta.SnapshotID,
		Duration:   time.Since(start),
	}))
	return result, nil
}

func (r *Resolver) resolve(ctx context.Context, id, workspace string, paths []string) (*Result, error) {
	logger := ctxlog.FromContext(ctx)
	options := append([]config.Option{config.WithKinds(r.kinds), config.WithLogger(logger)}, r.config...)
	cfg, err := config.New(paths, options...)
	if err != nil {
		return nil, err
	}

	children, err := r.fetchAll(ctx, id, cfg, cfg)
	if err != nil {
		return nil, err
	}
	if err := cfg.AddChildren(children...); err != nil {
		return nil, err
	}
	if err := cfg.Finalize(); err != nil {
		return nil, err
	}

	codec := r.kinds.Codec()
	metadata := NewMetadata(cfg)
	env, err := codec.Dehydrate(metadata)
	if err != nil {
		return nil, fmt.Errorf("resolve: dehydrate metadata: %w", err)
	}

	previous, _, _, err := r.Load(ctx, workspace)
	if err != nil {
		logger.Warn("previous metadata unreadable, treating every package as changed", logfields.Error(err))
		previous = nil
	}

	ref := state.Ref{Domain: Domain, Workspace: workspace}
	meta := state.Meta{Extra: map[string]string{"resolve_id": id}}
	_, saved, err := state.Mutate(ctx, r.store, ref, meta, func(snapshot *freezedry.Envelope) error {
		*snapshot = env
		return nil
	})
	if err != nil {
		return nil, err
	}
	r.emit(ctx, activity.BuildStateSavedEvent(activity.ResolveEventInput{ResolveID: id, Workspace: workspace, SnapshotID: saved.SnapshotID}))

	return &Result{
		ID:       id,
		Config:   cfg,
		Metadata: metadata,
		Previous: previous,
		Changed:  Changed(codec, previous, metadata),
		Meta:     saved,
	}, nil
}

// pendingTree is what fetchAll needs of a Config or ChildConfig.
type pendingTree interface {
	config.Tree
	PendingNames() []string
	ResolvePackage(name string) (kinds.Package, bool, error)
}

// fetchAll resolves the pending packages of tree in declaration order and
// fetches those whose build is not known. Each returned child has merged
// its own children and is finalized.
func (r *Resolver) fetchAll(ctx context.Context, id string, root *config.Config, tree pendingTree) ([]*config.ChildConfig, error) {
	var children []*config.ChildConfig
	for _, name := range tree.PendingNames() {
		pkg, ok, err := tree.ResolvePackage(name)
		if err != nil {
			return nil, err
		}
		if !ok || !pkg.NeedsFetch() {
			continue
		}

		preview, err := root.Preview()
		if err != nil {
			return nil, err
		}
		pkg.SetOptions(preview)
		child, err := r.fetcher.Fetch(ctx, pkg, tree)
		if err != nil {
			return nil, fmt.Errorf("resolve: fetch %q: %w", name, err)
		}
		r.emit(ctx, activity.BuildPackageFetchedEvent(activity.PackageEventInput{
			ResolveID: id,
			Name:      name,
			Source:    pkg.FreezeDryTag(),
			Merged:    child != nil,
		}))
		if child == nil {
			continue
		}

		pkg.Base().ApplyExport(child.Export())
		grandchildren, err := r.fetchAll(ctx, id, root, child)
		if err != nil {
			return nil, err
		}
		if err := child.AddChildren(grandchildren...); err != nil {
			return nil, err
		}
		if err := child.Finalize(); err != nil {
			return nil, err
		}
		children = append(children, child)
	}
	return children, nil
}

// Load returns the metadata last saved for workspace.
func (r *Resolver) Load(ctx context.Context, workspace string) (*Metadata, state.Meta, bool, error) {
	ref := state.Ref{Domain: Domain, Workspace: filepath.Clean(workspace)}
	env, meta, ok, err := r.store.Load(ctx, ref)
	if err != nil || !ok {
		return nil, meta, ok, err
	}
	metadata, err := rehydrateMetadata(r.kinds.Codec(), env)
	if err != nil {
		return nil, meta, true, err
	}
	return metadata, meta, true, nil
}

// Codec returns the codec metadata is persisted with.
func (r *Resolver) Codec() *freezedry.Codec { return r.kinds.Codec() }

func (r *Resolver) emit(ctx context.Context, event activity.Event) {
	if err := r.emitter.Emit(ctx, event); err != nil {
		ctxlog.FromContext(ctx).Warn("activity hook failed", slog.String("verb", event.Verb), logfields.Error(err))
	}
}
