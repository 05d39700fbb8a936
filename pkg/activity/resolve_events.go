package activity

import (
	"strings"
	"time"
)

// Verbs emitted during a resolve.
const (
	VerbResolveStarted   = "resolve.started"
	VerbResolveCompleted = "resolve.completed"
	VerbResolveFailed    = "resolve.failed"
	VerbPackageFetched   = "package.fetched"
	VerbStateSaved       = "state.saved"
)

// Object types events refer to.
const (
	ObjectResolve = "resolve"
	ObjectPackage = "package"
)

// ResolveEventInput describes one resolve of a workspace.
type ResolveEventInput struct {
	ActorID    string
	ResolveID  string
	Workspace  string
	Files      []string
	Packages   []string
	Changed    []string
	SnapshotID string
	Err        error
	Duration   time.Duration
	Metadata   map[string]any
	OccurredAt time.Time
}

// PackageEventInput describes one package handled during a resolve.
type PackageEventInput struct {
	ResolveID string
	Name      string
	Source    string
	Dir       string
	// Merged is true when the package's directory held configuration
	// documents.
	Merged     bool
	OccurredAt time.Time
}

// BuildResolveStartedEvent constructs the event emitted before documents are
// read.
func BuildResolveStartedEvent(input ResolveEventInput) Event {
	return buildResolveEvent(VerbResolveStarted, input)
}

// BuildResolveCompletedEvent constructs the event emitted after the
// resolved tree was persisted.
func BuildResolveCompletedEvent(input ResolveEventInput) Event {
	return buildResolveEvent(VerbResolveCompleted, input)
}

// BuildResolveFailedEvent constructs the event emitted when a resolve aborts.
func BuildResolveFailedEvent(input ResolveEventInput) Event {
	return buildResolveEvent(VerbResolveFailed, input)
}

// BuildStateSavedEvent constructs the event emitted when a snapshot is
// written.
func BuildStateSavedEvent(input ResolveEventInput) Event {
	return buildResolveEvent(VerbStateSaved, input)
}

// BuildPackageFetchedEvent constructs the event emitted after a package's
// sources were fetched.
func BuildPackageFetchedEvent(input PackageEventInput) Event {
	metadata := map[string]any{"merged": input.Merged}
	if input.ResolveID != "" {
		metadata["resolve_id"] = input.ResolveID
	}
	if input.Source != "" {
		metadata["source"] = input.Source
	}
	if input.Dir != "" {
		metadata["dir"] = input.Dir
	}
	return Event{
		Verb:       VerbPackageFetched,
		ObjectType: ObjectPackage,
		ObjectID:   strings.TrimSpace(input.Name),
		Metadata:   metadata,
		OccurredAt: input.OccurredAt,
	}
}

func buildResolveEvent(verb string, input ResolveEventInput) Event {
	metadata := cloneMap(input.Metadata)
	if input.Workspace != "" {
		metadata = ensureMetadata(metadata)
		metadata["workspace"] = input.Workspace
	}
	if len(input.Files) > 0 {
		metadata = ensureMetadata(metadata)
		metadata["files"] = append([]string{}, input.Files...)
	}
	if input.Packages != nil {
		metadata = ensureMetadata(metadata)
		metadata["packages"] = append([]string{}, input.Packages...)
	}
	if input.Changed != nil {
		metadata = ensureMetadata(metadata)
		metadata["changed"] = append([]string{}, input.Changed...)
	}
	if input.SnapshotID != "" {
		metadata = ensureMetadata(metadata)
		metadata["snapshot_id"] = input.SnapshotID
	}
	if input.Err != nil {
		metadata = ensureMetadata(metadata)
		metadata["error"] = input.Err.Error()
	}
	if input.Duration > 0 {
		metadata = ensureMetadata(metadata)
		metadata["duration_ms"] = float64(input.Duration.Microseconds()) / 1000
	}

	objectID := strings.TrimSpace(input.ResolveID)
	if objectID == "" {
		objectID = strings.TrimSpace(input.Workspace)
	}
	if objectID == "" {
		objectID = "resolve"
	}

	return Event{
		Verb:       verb,
		ActorID:    strings.TrimSpace(input.ActorID),
		ObjectType: ObjectResolve,
		ObjectID:   objectID,
		Metadata:   metadata,
		OccurredAt: input.OccurredAt,
	}
}

func ensureMetadata(meta map[string]any) map[string]any {
	if meta == nil {
		return map[string]any{}
	}
	return meta
}
