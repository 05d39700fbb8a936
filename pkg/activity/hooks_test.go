package activity

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeEventTrimsClonesAndDefaults(t *testing.T) {
	meta := map[string]any{"k": "v"}
	evt := Event{
		Verb:       " resolve.started ",
		ActorID:    " actor ",
		UserID:     " user ",
		TenantID:   " tenant ",
		ObjectType: " resolve ",
		ObjectID:   " 42 ",
		Channel:    " pkgtree ",
		Metadata:   meta,
	}

	got := NormalizeEvent(evt)

	assert.Equal(t, "resolve.started", got.Verb)
	assert.Equal(t, "resolve", got.ObjectType)
	assert.Equal(t, "42", got.ObjectID)
	assert.Equal(t, "actor", got.ActorID)
	assert.Equal(t, "user", got.UserID)
	assert.Equal(t, "tenant", got.TenantID)
	assert.Equal(t, "pkgtree", got.Channel)
	assert.False(t, got.OccurredAt.IsZero(), "OccurredAt is defaulted")
	assert.Equal(t, "v", got.Metadata["k"])

	got.Metadata["k"] = "changed"
	assert.Equal(t, "v", evt.Metadata["k"], "the original metadata is untouched")
}

func TestHooksNotifyShortCircuitsMissingRequired(t *testing.T) {
	capture := &CaptureHook{}
	hooks := Hooks{capture}
	require.NoError(t, hooks.Notify(context.Background(), Event{}))
	assert.Empty(t, capture.Events)
}

func TestHooksNotifyFanOutAndJoinErrors(t *testing.T) {
	capture := &CaptureHook{}
	boom1 := errors.New("boom1")
	boom2 := errors.New("boom2")
	var ctxSeen bool
	hooks := Hooks{
		HookFunc(func(ctx context.Context, event Event) error {
			ctxSeen = ctx != nil
			return nil
		}),
		capture,
		HookFunc(func(_ context.Context, _ Event) error { return boom1 }),
		nil,
		HookFunc(func(_ context.Context, _ Event) error { return boom2 }),
	}

	err := hooks.Notify(nil, Event{Verb: "package.fetched", ObjectType: "package", ObjectID: "zlib"})
	assert.ErrorIs(t, err, boom1)
	assert.ErrorIs(t, err, boom2)
	assert.True(t, ctxSeen, "hooks see a non-nil context")
	assert.Len(t, capture.Events, 1)
}

func TestEmitterDisabledAndEnabled(t *testing.T) {
	capture := &CaptureHook{}
	event := Event{Verb: "resolve.started", ObjectType: "resolve", ObjectID: "1"}

	disabled := NewEmitter(Hooks{capture}, Config{Enabled: false})
	assert.False(t, disabled.Enabled())
	require.NoError(t, disabled.Emit(context.Background(), event))
	assert.Empty(t, capture.Events, "nothing is captured when disabled")

	enabled := NewEmitter(Hooks{capture}, Config{Enabled: true, Channel: ""})
	assert.True(t, enabled.Enabled())
	require.NoError(t, enabled.Emit(context.Background(), event))
	require.Len(t, capture.Events, 1)
	assert.Equal(t, DefaultChannel, capture.Events[0].Channel)
}

func TestEmitterPreservesExplicitChannel(t *testing.T) {
	capture := &CaptureHook{}
	emitter := NewEmitter(Hooks{capture}, Config{Enabled: true, Channel: "default"})
	occurred := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	err := emitter.Emit(context.Background(), Event{
		Verb:       "resolve.started",
		ObjectType: "resolve",
		ObjectID:   "1",
		Channel:    "custom",
		OccurredAt: occurred,
	})
	require.NoError(t, err)
	require.Len(t, capture.Events, 1)
	assert.Equal(t, "custom", capture.Events[0].Channel)
	assert.Equal(t, occurred, capture.Events[0].OccurredAt)
}

func TestEmitterFillsActor(t *testing.T) {
	capture := &CaptureHook{}
	emitter := NewEmitter(Hooks{capture}, Config{Enabled: true, ActorID: " ci "})

	require.NoError(t, emitter.Emit(context.Background(), Event{Verb: "resolve.started", ObjectType: "resolve", ObjectID: "1"}))
	require.NoError(t, emitter.Emit(context.Background(), Event{Verb: "resolve.started", ObjectType: "resolve", ObjectID: "2", ActorID: "me"}))
	require.Len(t, capture.Events, 2)
	assert.Equal(t, "ci", capture.Events[0].ActorID)
	assert.Equal(t, "me", capture.Events[1].ActorID)
}

func TestNilEmitterIsDisabled(t *testing.T) {
	var emitter *Emitter
	assert.False(t, emitter.Enabled())
	assert.NoError(t, emitter.Emit(context.Background(), Event{Verb: "resolve.started", ObjectType: "resolve", ObjectID: "1"}))
}
