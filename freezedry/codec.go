package freezedry

import (
	"fmt"
	"maps"
	"reflect"

	"github.com/go-viper/mapstructure/v2"
)

// PreHook lets callers normalise fields before they are assigned. It runs
// after any version upgrade.
type PreHook func(t reflect.Type, fields map[string]any) (map[string]any, error)

// CodecOption configures a Codec instance.
type CodecOption func(*Codec)

// WithTypes configures the resolver used for tagged values.
func WithTypes(types TypeResolver) CodecOption {
	return func(c *Codec) {
		c.types = types
	}
}

// WithPreHook applies hook to every struct's fields prior to assignment.
func WithPreHook(hook PreHook) CodecOption {
	return func(c *Codec) {
		if hook != nil {
			c.preHooks = append(c.preHooks, hook)
		}
	}
}

// WithDecoderConfig lets callers tune how plain fields are decoded.
func WithDecoderConfig(configure func(*mapstructure.DecoderConfig)) CodecOption {
	return func(c *Codec) {
		if configure != nil {
			c.configureDec = append(c.configureDec, configure)
		}
	}
}

// Codec dehydrates and rehydrates values.
type Codec struct {
	types        TypeResolver
	preHooks     []PreHook
	configureDec []func(*mapstructure.DecoderConfig)
	compare      bool
}

// NewCodec constructs a Codec.
func NewCodec(opts ...CodecOption) *Codec {
	c := &Codec{}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

var defaultCodec = NewCodec()

// Dehydrate converts v (a struct or pointer to struct) into an Envelope.
func Dehydrate(v any) (Envelope, error) {
	return defaultCodec.Dehydrate(v)
}

// Dehydrate converts v (a struct or pointer to struct) into an Envelope.
func (c *Codec) Dehydrate(v any) (Envelope, error) {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return Envelope{}, fmt.Errorf("freezedry: cannot dehydrate nil %s", rv.Type())
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return Envelope{}, fmt.Errorf("freezedry: cannot dehydrate %T", v)
	}

	env := Envelope{Fields: map[string]any{}}
	if tagged, ok := v.(Tagged); ok {
		env.Type = tagged.FreezeDryTag()
	}
	if versioned, ok := v.(Versioned); ok {
		env.Version = versioned.FreezeDryVersion()
	}
	var adapters Adapters
	if adapted, ok := v.(Adapted); ok {
		adapters = adapted.FreezeDryAdapters()
	}

	for _, f := range structFields(rv.Type()) {
		if f.skip || (c.compare && f.nocompare) {
			continue
		}
		fv := rv.FieldByIndex(f.index)
		if adapter, ok := adapters[f.name]; ok {
			if isNil(fv) {
				env.Fields[f.name] = nil
				continue
			}
			out, err := adapter.Dehydrate(c, fv.Interface())
			if err != nil {
				return Envelope{}, wrapField(f.name, err)
			}
			env.Fields[f.name] = out
			continue
		}
		if d, ok := dehydrater(fv); ok {
			out, err := d.Dehydrate(c)
			if err != nil {
				return Envelope{}, wrapField(f.name, err)
			}
			env.Fields[f.name] = out
			continue
		}
		env.Fields[f.name] = plainValue(fv)
	}
	return env, nil
}

// DehydrateValue converts any value: freeze-dried structs become envelopes,
// custom values use their Dehydrater and everything else is returned as is.
func (c *Codec) DehydrateValue(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	rv := reflect.ValueOf(v)
	if isNil(rv) {
		return nil, nil
	}
	if d, ok := v.(Dehydrater); ok {
		return d.Dehydrate(c)
	}
	st := rv
	if st.Kind() == reflect.Pointer {
		st = st.Elem()
	}
	if st.Kind() == reflect.Struct {
		return c.Dehydrate(v)
	}
	return v, nil
}

// Rehydrate restores a value of type T from env using the default codec.
// Tagged interface types need a codec configured WithTypes.
func Rehydrate[T any](c *Codec, env Envelope) (T, error) {
	if c == nil {
		c = defaultCodec
	}
	return RehydrateValue[T](c, env)
}

// RehydrateValue restores a value of type T from raw dehydrated data.
func RehydrateValue[T any](c *Codec, raw any) (T, error) {
	var zero T
	if raw == nil {
		return zero, nil
	}
	out, err := c.rehydrate(reflect.TypeFor[T](), raw)
	if err != nil {
		return zero, err
	}
	if !out.IsValid() {
		return zero, nil
	}
	value, ok := out.Interface().(T)
	if !ok {
		return zero, fmt.Errorf("freezedry: rehydrated %s does not implement %s", out.Type(), reflect.TypeFor[T]())
	}
	return value, nil
}

var rehydraterType = reflect.TypeFor[Rehydrater]()

func (c *Codec) rehydrate(t reflect.Type, raw any) (reflect.Value, error) {
	if reflect.PointerTo(t).Implements(rehydraterType) {
		ptr := reflect.New(t)
		if err := ptr.Interface().(Rehydrater).Rehydrate(c, raw); err != nil {
			return reflect.Value{}, err
		}
		return ptr.Elem(), nil
	}
	if t.Kind() == reflect.Pointer && t.Implements(rehydraterType) {
		ptr := reflect.New(t.Elem())
		if err := ptr.Interface().(Rehydrater).Rehydrate(c, raw); err != nil {
			return reflect.Value{}, err
		}
		return ptr, nil
	}

	env, err := AsEnvelope(raw)
	if err != nil {
		return reflect.Value{}, err
	}

	switch {
	case t.Kind() == reflect.Interface:
		if env.Type == "" {
			return reflect.Value{}, fmt.Errorf("freezedry: %s envelope has no type tag", t)
		}
		if c.types == nil {
			return reflect.Value{}, fmt.Errorf("%w: %s tag %q (no type resolver)", ErrUnknownType, t, env.Type)
		}
		obj, err := c.types.ResolveType(t, env.Type)
		if err != nil {
			return reflect.Value{}, err
		}
		ptr := reflect.ValueOf(obj)
		if ptr.Kind() != reflect.Pointer || ptr.Elem().Kind() != reflect.Struct {
			return reflect.Value{}, fmt.Errorf("freezedry: factory for %q returned %T, want pointer to struct", env.Type, obj)
		}
		if err := c.fill(ptr, env); err != nil {
			return reflect.Value{}, err
		}
		return ptr, nil
	case t.Kind() == reflect.Pointer && t.Elem().Kind() == reflect.Struct:
		ptr := reflect.New(t.Elem())
		if err := c.fill(ptr, env); err != nil {
			return reflect.Value{}, err
		}
		return ptr, nil
	case t.Kind() == reflect.Struct:
		ptr := reflect.New(t)
		if err := c.fill(ptr, env); err != nil {
			return reflect.Value{}, err
		}
		return ptr.Elem(), nil
	default:
		return reflect.Value{}, fmt.Errorf("freezedry: cannot rehydrate into %s", t)
	}
}

// fill assigns env's fields directly onto the struct behind ptr.
func (c *Codec) fill(ptr reflect.Value, env Envelope) error {
	obj := ptr.Interface()
	fields := env.Fields
	if fields == nil {
		fields = map[string]any{}
	}

	if versioned, ok := obj.(Versioned); ok && env.Version != 0 {
		current := versioned.FreezeDryVersion()
		switch {
		case env.Version > current:
			return &VersionError{Type: ptr.Elem().Type().String(), Saved: env.Version, Current: current}
		case env.Version < current:
			if upgrader, ok := obj.(Upgrader); ok {
				upgraded, err := upgrader.Upgrade(maps.Clone(fields), env.Version)
				if err != nil {
					return fmt.Errorf("freezedry: upgrade %s from version %d: %w", ptr.Elem().Type(), env.Version, err)
				}
				fields = upgraded
			}
		}
	}

	for _, hook := range c.preHooks {
		next, err := hook(ptr.Elem().Type(), fields)
		if err != nil {
			return fmt.Errorf("freezedry: pre-hook for %s failed: %w", ptr.Elem().Type(), err)
		}
		if next != nil {
			fields = next
		}
	}

	var adapters Adapters
	if adapted, ok := obj.(Adapted); ok {
		adapters = adapted.FreezeDryAdapters()
	}

	sv := ptr.Elem()
	for _, f := range structFields(sv.Type()) {
		if f.skip {
			continue
		}
		raw, ok := fields[f.name]
		if !ok {
			continue
		}
		fv := sv.FieldByIndex(f.index)
		if adapter, ok := adapters[f.name]; ok {
			if raw == nil {
				continue
			}
			value, err := adapter.Rehydrate(c, raw)
			if err != nil {
				return wrapField(f.name, err)
			}
			if err := assign(fv, value); err != nil {
				return wrapField(f.name, err)
			}
			continue
		}
		if fv.Addr().Type().Implements(rehydraterType) {
			if raw == nil {
				fv.Set(reflect.Zero(fv.Type()))
				continue
			}
			if err := fv.Addr().Interface().(Rehydrater).Rehydrate(c, raw); err != nil {
				return wrapField(f.name, err)
			}
			continue
		}
		if err := c.decodePlain(raw, fv); err != nil {
			return wrapField(f.name, err)
		}
	}
	return nil
}

func (c *Codec) decodePlain(raw any, fv reflect.Value) error {
	if raw == nil {
		fv.Set(reflect.Zero(fv.Type()))
		return nil
	}
	cfg := &mapstructure.DecoderConfig{
		Result:           fv.Addr().Interface(),
		WeaklyTypedInput: true,
		TagName:          "freezedry",
	}
	for _, configure := range c.configureDec {
		configure(cfg)
	}
	dec, err := mapstructure.NewDecoder(cfg)
	if err != nil {
		return err
	}
	return dec.Decode(raw)
}

func assign(fv reflect.Value, value any) error {
	if value == nil {
		return nil
	}
	rv := reflect.ValueOf(value)
	switch {
	case rv.Type().AssignableTo(fv.Type()):
		fv.Set(rv)
	case rv.Type().ConvertibleTo(fv.Type()):
		fv.Set(rv.Convert(fv.Type()))
	default:
		return fmt.Errorf("cannot assign %s to %s", rv.Type(), fv.Type())
	}
	return nil
}

func dehydrater(fv reflect.Value) (Dehydrater, bool) {
	if isNil(fv) {
		return nil, false
	}
	d, ok := fv.Interface().(Dehydrater)
	return d, ok
}

func plainValue(fv reflect.Value) any {
	if isNil(fv) {
		return nil
	}
	return fv.Interface()
}

func isNil(v reflect.Value) bool {
	if !v.IsValid() {
		return true
	}
	switch v.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return v.IsNil()
	default:
		return false
	}
}
