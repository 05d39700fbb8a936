package freezedry

import (
	"fmt"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Adapter converts one field between its live and dehydrated form.
type Adapter interface {
	Dehydrate(c *Codec, v any) (any, error)
	Rehydrate(c *Codec, raw any) (any, error)
}

// Adapters maps attribute names to the adapter handling them.
type Adapters map[string]Adapter

type nested[T any] struct{}

// Nested handles a field holding a single freeze-dried value of type T.
// Interface types are resolved through the codec's TypeResolver.
func Nested[T any]() Adapter {
	return nested[T]{}
}

func (nested[T]) Dehydrate(c *Codec, v any) (any, error) {
	return c.DehydrateValue(v)
}

func (nested[T]) Rehydrate(c *Codec, raw any) (any, error) {
	return RehydrateValue[T](c, raw)
}

type listOf[T any] struct {
	elem Adapter
}

// ListOf handles a []T field. A nil elem adapter means Nested[T].
func ListOf[T any](elem Adapter) Adapter {
	if elem == nil {
		elem = Nested[T]()
	}
	return listOf[T]{elem: elem}
}

func (a listOf[T]) Dehydrate(c *Codec, v any) (any, error) {
	items, ok := v.([]T)
	if !ok {
		return nil, fmt.Errorf("expected %T, got %T", items, v)
	}
	out := make([]any, 0, len(items))
	for i, item := range items {
		value, err := a.elem.Dehydrate(c, item)
		if err != nil {
			return nil, wrapField(fmt.Sprintf("[%d]", i), err)
		}
		out = append(out, value)
	}
	return out, nil
}

func (a listOf[T]) Rehydrate(c *Codec, raw any) (any, error) {
	items, err := asList(raw)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(items))
	for i, item := range items {
		value, err := rehydrateElem[T](c, a.elem, item)
		if err != nil {
			return nil, wrapField(fmt.Sprintf("[%d]", i), err)
		}
		out = append(out, value)
	}
	return out, nil
}

type dictOf[T any] struct {
	elem Adapter
}

// DictOf handles a map[string]T field. A nil elem adapter means Nested[T].
func DictOf[T any](elem Adapter) Adapter {
	if elem == nil {
		elem = Nested[T]()
	}
	return dictOf[T]{elem: elem}
}

func (a dictOf[T]) Dehydrate(c *Codec, v any) (any, error) {
	items, ok := v.(map[string]T)
	if !ok {
		return nil, fmt.Errorf("expected %T, got %T", items, v)
	}
	out := make(map[string]any, len(items))
	for key, item := range items {
		value, err := a.elem.Dehydrate(c, item)
		if err != nil {
			return nil, wrapField(key, err)
		}
		out[key] = value
	}
	return out, nil
}

func (a dictOf[T]) Rehydrate(c *Codec, raw any) (any, error) {
	items, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expected a mapping, got %T", raw)
	}
	out := make(map[string]T, len(items))
	for key, item := range items {
		value, err := rehydrateElem[T](c, a.elem, item)
		if err != nil {
			return nil, wrapField(key, err)
		}
		out[key] = value
	}
	return out, nil
}

type dictToListOf[T any] struct {
	elem Adapter
	key  func(T) string
}

// DictToListOf handles an *orderedmap.OrderedMap[string, T] field. The map is
// dehydrated as a list in insertion order and rehydrated keyed by key(value).
func DictToListOf[T any](elem Adapter, key func(T) string) Adapter {
	if elem == nil {
		elem = Nested[T]()
	}
	return dictToListOf[T]{elem: elem, key: key}
}

func (a dictToListOf[T]) Dehydrate(c *Codec, v any) (any, error) {
	items, ok := v.(*orderedmap.OrderedMap[string, T])
	if !ok {
		return nil, fmt.Errorf("expected %T, got %T", items, v)
	}
	out := make([]any, 0, items.Len())
	for pair := items.Oldest(); pair != nil; pair = pair.Next() {
		value, err := a.elem.Dehydrate(c, pair.Value)
		if err != nil {
			return nil, wrapField(pair.Key, err)
		}
		out = append(out, value)
	}
	return out, nil
}

func (a dictToListOf[T]) Rehydrate(c *Codec, raw any) (any, error) {
	items, err := asList(raw)
	if err != nil {
		return nil, err
	}
	out := orderedmap.New[string, T](orderedmap.WithCapacity[string, T](len(items)))
	for i, item := range items {
		value, err := rehydrateElem[T](c, a.elem, item)
		if err != nil {
			return nil, wrapField(fmt.Sprintf("[%d]", i), err)
		}
		out.Set(a.key(value), value)
	}
	return out, nil
}

func rehydrateElem[T any](c *Codec, elem Adapter, raw any) (T, error) {
	var zero T
	if raw == nil {
		return zero, nil
	}
	value, err := elem.Rehydrate(c, raw)
	if err != nil || value == nil {
		return zero, err
	}
	typed, ok := value.(T)
	if !ok {
		return zero, fmt.Errorf("adapter returned %T, want %T", value, zero)
	}
	return typed, nil
}

func asList(raw any) ([]any, error) {
	switch items := raw.(type) {
	case []any:
		return items, nil
	case []map[string]any:
		out := make([]any, len(items))
		for i, item := range items {
			out[i] = item
		}
		return out, nil
	case []Envelope:
		out := make([]any, len(items))
		for i, item := range items {
			out[i] = item
		}
		return out, nil
	default:
		return nil, fmt.Errorf("expected a list, got %T", raw)
	}
}
