package usersink_test

import (
	"context"
	"testing"
	"time"

	"github.com/goliatone/go-pkgtree/pkg/activity"
	"github.com/goliatone/go-pkgtree/pkg/activity/usersink"
	usertypes "github.com/goliatone/go-users/pkg/types"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	records []usertypes.ActivityRecord
	err     error
}

func (s *recordingSink) Log(_ context.Context, record usertypes.ActivityRecord) error {
	s.records = append(s.records, record)
	return s.err
}

func TestHookNotifyMapsResolveEvent(t *testing.T) {
	sink := &recordingSink{}
	hook := usersink.Hook{Sink: sink}

	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	actorID := uuid.New()
	resolveID := uuid.New()

	event := activity.BuildResolveCompletedEvent(activity.ResolveEventInput{
		ActorID:    actorID.String(),
		ResolveID:  resolveID.String(),
		Workspace:  "/proj",
		OccurredAt: now,
	})
	event.Channel = "pkgtree"

	require.NoError(t, hook.Notify(context.Background(), event))
	require.Len(t, sink.records, 1)

	record := sink.records[0]
	assert.Equal(t, actorID, record.ActorID)
	assert.Equal(t, uuid.Nil, record.UserID)
	assert.Equal(t, activity.VerbResolveCompleted, record.Verb)
	assert.Equal(t, "resolve", record.ObjectType)
	assert.Equal(t, resolveID.String(), record.ObjectID)
	assert.Equal(t, "pkgtree", record.Channel)
	assert.True(t, record.OccurredAt.Equal(now), "occurred_at %v", record.OccurredAt)
	assert.Equal(t, "/proj", record.Data["workspace"], "metadata passes through")
	assert.Equal(t, resolveID.String(), record.Data["resolve_id"])
}

func TestHookNotifySkipsMissingVerb(t *testing.T) {
	sink := &recordingSink{}
	hook := usersink.Hook{Sink: sink}

	_ = hook.Notify(context.Background(), activity.Event{})
	assert.Empty(t, sink.records, "an empty event is not recorded")
}

func TestHookNotifyDefaultsTimestamp(t *testing.T) {
	sink := &recordingSink{}
	hook := usersink.Hook{Sink: sink}

	err := hook.Notify(context.Background(), activity.BuildPackageFetchedEvent(activity.PackageEventInput{Name: "zlib"}))
	require.NoError(t, err)
	require.Len(t, sink.records, 1)
	assert.False(t, sink.records[0].OccurredAt.IsZero(), "occurred_at is defaulted")
	assert.NotContains(t, sink.records[0].Data, "resolve_id", "package events carry no resolve_id unless set")
}
