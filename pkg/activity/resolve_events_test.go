package activity

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildResolveCompletedEvent(t *testing.T) {
	input := ResolveEventInput{
		ActorID:    " actor ",
		ResolveID:  "r-1",
		Workspace:  "/proj",
		Files:      []string{"/proj/pkgtree.yml"},
		Packages:   []string{"zlib", "fmt"},
		Changed:    []string{},
		SnapshotID: "snap-1",
		Duration:   1500 * time.Microsecond,
		Metadata:   map[string]any{"engine": "expr"},
	}

	event := BuildResolveCompletedEvent(input)

	assert.Equal(t, VerbResolveCompleted, event.Verb)
	assert.Equal(t, "resolve", event.ObjectType)
	assert.Equal(t, "r-1", event.ObjectID)
	assert.Equal(t, "actor", event.ActorID, "actor is trimmed")
	assert.Equal(t, "/proj", event.Metadata["workspace"])
	assert.Equal(t, "snap-1", event.Metadata["snapshot_id"])
	assert.Equal(t, "expr", event.Metadata["engine"])
	assert.Equal(t, []string{"zlib", "fmt"}, event.Metadata["packages"])
	assert.Equal(t, []string{}, event.Metadata["changed"], "an empty changed list is kept")
	assert.Equal(t, 1.5, event.Metadata["duration_ms"])

	input.Files[0] = "changed"
	files, ok := event.Metadata["files"].([]string)
	require.True(t, ok)
	assert.Equal(t, []string{"/proj/pkgtree.yml"}, files, "files are copied")
}

func TestBuildResolveFailedEventFallsBackToWorkspace(t *testing.T) {
	event := BuildResolveFailedEvent(ResolveEventInput{Workspace: "/proj", Err: errors.New("boom")})
	assert.Equal(t, VerbResolveFailed, event.Verb)
	assert.Equal(t, "/proj", event.ObjectID)
	assert.Equal(t, "boom", event.Metadata["error"])

	assert.Equal(t, "resolve", BuildResolveStartedEvent(ResolveEventInput{}).ObjectID, "object id falls back to the object type")
}

func TestBuildPackageFetchedEvent(t *testing.T) {
	event := BuildPackageFetchedEvent(PackageEventInput{ResolveID: "r-1", Name: " zlib ", Source: "git", Dir: "/cache/zlib", Merged: true})
	assert.Equal(t, VerbPackageFetched, event.Verb)
	assert.Equal(t, "package", event.ObjectType)
	assert.Equal(t, "zlib", event.ObjectID)
	assert.Equal(t, "git", event.Metadata["source"])
	assert.Equal(t, "/cache/zlib", event.Metadata["dir"])
	assert.Equal(t, true, event.Metadata["merged"])
}
