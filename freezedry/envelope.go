// Package freezedry persists live values as tagged, versioned attribute maps
// and restores them later, upgrading data written by older schema versions.
//
// Dehydrate walks the exported fields of a struct. Field names come from the
// `freezedry:"name"` tag or the snake_cased Go name; `freezedry:"-"` puts a
// field on the skip-list and `freezedry:",nocompare"` excludes it from Equal.
// Attributes whose name starts with MemoPrefix hold memoized derived values
// and are never persisted.
//
// Types opt into the rest of the protocol through small interfaces: Tagged
// (type tag resolved through a TypeResolver), Versioned and Upgrader (schema
// versions), Adapted (fields holding other freeze-dried values) and the
// Dehydrater/Rehydrater pair for values with a custom representation.
package freezedry

import (
	"encoding/json"
	"fmt"
	"maps"
)

// MemoPrefix marks attributes that cache derived values.
const MemoPrefix = "memo_"

// Envelope is the dehydrated form of a value.
type Envelope struct {
	Type    string         `json:"type,omitempty"`
	Version int            `json:"version,omitempty"`
	Fields  map[string]any `json:"fields"`
}

// Tagged types emit a type tag used to pick the concrete type on rehydrate.
type Tagged interface {
	FreezeDryTag() string
}

// Versioned types emit their current schema version.
type Versioned interface {
	FreezeDryVersion() int
}

// Upgrader converts fields saved by an older schema version. It is called at
// most once per rehydrate, with the version the data was saved with.
type Upgrader interface {
	Upgrade(fields map[string]any, version int) (map[string]any, error)
}

// Adapted types declare which fields hold nested freeze-dried values.
type Adapted interface {
	FreezeDryAdapters() Adapters
}

// Dehydrater is implemented by values with a custom dehydrated form.
type Dehydrater interface {
	Dehydrate(c *Codec) (any, error)
}

// Rehydrater restores a value from its custom dehydrated form.
type Rehydrater interface {
	Rehydrate(c *Codec, raw any) error
}

// MarshalJSON keeps Fields as an object even when empty.
func (e Envelope) MarshalJSON() ([]byte, error) {
	type alias Envelope
	out := alias(e)
	if out.Fields == nil {
		out.Fields = map[string]any{}
	}
	return json.Marshal(out)
}

// Clone returns a copy of e with a detached top-level field map.
func (e Envelope) Clone() Envelope {
	out := e
	out.Fields = maps.Clone(e.Fields)
	return out
}

// AsEnvelope converts raw persisted data into an Envelope. It accepts live
// envelopes as well as their decoded JSON form.
func AsEnvelope(raw any) (Envelope, error) {
	switch typed := raw.(type) {
	case Envelope:
		return typed, nil
	case *Envelope:
		if typed == nil {
			return Envelope{}, fmt.Errorf("freezedry: nil envelope")
		}
		return *typed, nil
	case map[string]any:
		env := Envelope{}
		if tag, ok := typed["type"]; ok && tag != nil {
			s, ok := tag.(string)
			if !ok {
				return Envelope{}, fmt.Errorf("freezedry: envelope type must be a string, got %T", tag)
			}
			env.Type = s
		}
		if version, ok := typed["version"]; ok && version != nil {
			v, err := asInt(version)
			if err != nil {
				return Envelope{}, fmt.Errorf("freezedry: envelope version: %w", err)
			}
			env.Version = v
		}
		switch fields := typed["fields"].(type) {
		case nil:
			env.Fields = map[string]any{}
		case map[string]any:
			env.Fields = fields
		default:
			return Envelope{}, fmt.Errorf("freezedry: envelope fields must be a map, got %T", fields)
		}
		return env, nil
	default:
		return Envelope{}, fmt.Errorf("freezedry: cannot read envelope from %T", raw)
	}
}

func asInt(v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		if n != float64(int(n)) {
			return 0, fmt.Errorf("non-integer %v", n)
		}
		return int(n), nil
	case json.Number:
		i, err := n.Int64()
		return int(i), err
	default:
		return 0, fmt.Errorf("unexpected %T", v)
	}
}
