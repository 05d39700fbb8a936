// Package usersink forwards resolve activity to a go-users ActivitySink.
package usersink

import (
	"context"

	"github.com/goliatone/go-pkgtree/pkg/activity"
	usertypes "github.com/goliatone/go-users/pkg/types"
	"github.com/google/uuid"
)

// Hook adapts activity events to ActivityRecords. A Hook without a sink
// drops everything.
type Hook struct {
	Sink usertypes.ActivitySink
}

// Notify records event unless it lacks a verb or object.
func (h Hook) Notify(ctx context.Context, event activity.Event) error {
	if h.Sink == nil {
		return nil
	}
	event = activity.NormalizeEvent(event)
	if event.Verb == "" || event.ObjectType == "" || event.ObjectID == "" {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return h.Sink.Log(ctx, Record(event))
}

// Record maps a normalized event. Actor, user and tenant ids that are not
// UUIDs become uuid.Nil. Resolve events also carry their id in Data so
// records can be grouped per resolve.
func Record(event activity.Event) usertypes.ActivityRecord {
	record := usertypes.ActivityRecord{
		ActorID:    toUUID(event.ActorID),
		UserID:     toUUID(event.UserID),
		TenantID:   toUUID(event.TenantID),
		Verb:       event.Verb,
		ObjectType: event.ObjectType,
		ObjectID:   event.ObjectID,
		Channel:    event.Channel,
		Data:       event.Metadata,
		OccurredAt: event.OccurredAt,
	}
	if event.ObjectType != activity.ObjectResolve {
		return record
	}
	if id := toUUID(event.ObjectID); id != uuid.Nil {
		if record.Data == nil {
			record.Data = map[string]any{}
		}
		record.Data["resolve_id"] = id.String()
	}
	return record
}

func toUUID(s string) uuid.UUID {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil
	}
	return id
}
