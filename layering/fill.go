// Package layering fills option values first-write-wins. Documents are read
// from strongest to weakest, so the value already held always wins and every
// later fragment only supplies what is still unset.
package layering

import "reflect"

// Fill merges each fragment into dst in order. Zero values count as unset.
// A non-nil pointer to a scalar counts as set, which lets a fragment pin an
// explicit false or zero. Structs, maps and pointers to structs are merged
// field by field and key by key. Nothing in dst aliases a fragment
// afterwards.
func Fill[T any](dst *T, fragments ...T) {
	if dst == nil {
		return
	}
	target := reflect.ValueOf(dst).Elem()
	for i := range fragments {
		fill(target, reflect.ValueOf(&fragments[i]).Elem())
	}
}

func fill(dst, src reflect.Value) {
	if isUnset(src) {
		return
	}
	if isUnset(dst) {
		dst.Set(clone(src))
		return
	}
	merge(dst, src)
}

// merge fills the inside of dst, which is already set. Set scalars and
// slices are kept whole.
func merge(dst, src reflect.Value) {
	if dst.Type() != src.Type() {
		return
	}
	switch dst.Kind() {
	case reflect.Pointer:
		if dst.Elem().Kind() == reflect.Struct && !src.IsNil() {
			fillFields(dst.Elem(), src.Elem())
		}
	case reflect.Interface:
		if src.IsNil() {
			return
		}
		inner, other := dst.Elem(), src.Elem()
		if inner.Kind() == reflect.Map || inner.Kind() == reflect.Pointer {
			merge(inner, other)
		}
	case reflect.Struct:
		fillFields(dst, src)
	case reflect.Map:
		iter := src.MapRange()
		for iter.Next() {
			key, value := iter.Key(), iter.Value()
			existing := dst.MapIndex(key)
			if !existing.IsValid() {
				dst.SetMapIndex(key, clone(value))
				continue
			}
			held := reflect.New(existing.Type()).Elem()
			held.Set(existing)
			merge(held, value)
			dst.SetMapIndex(key, held)
		}
	case reflect.Array:
		for i := range dst.Len() {
			fill(dst.Index(i), src.Index(i))
		}
	}
}

func fillFields(dst, src reflect.Value) {
	for i := range dst.NumField() {
		if field := dst.Field(i); field.CanSet() {
			fill(field, src.Field(i))
		}
	}
}

func isUnset(v reflect.Value) bool {
	return !v.IsValid() || v.IsZero()
}

// clone deep-copies v. Unexported struct fields are left zero.
func clone(v reflect.Value) reflect.Value {
	out := reflect.New(v.Type()).Elem()
	switch v.Kind() {
	case reflect.Pointer:
		if !v.IsNil() {
			ptr := reflect.New(v.Type().Elem())
			ptr.Elem().Set(clone(v.Elem()))
			out.Set(ptr)
		}
	case reflect.Interface:
		if !v.IsNil() {
			out.Set(clone(v.Elem()))
		}
	case reflect.Struct:
		for i := range v.NumField() {
			if field := out.Field(i); field.CanSet() {
				field.Set(clone(v.Field(i)))
			}
		}
	case reflect.Map:
		if !v.IsNil() {
			m := reflect.MakeMapWithSize(v.Type(), v.Len())
			iter := v.MapRange()
			for iter.Next() {
				m.SetMapIndex(iter.Key(), clone(iter.Value()))
			}
			out.Set(m)
		}
	case reflect.Slice:
		if !v.IsNil() {
			s := reflect.MakeSlice(v.Type(), v.Len(), v.Len())
			for i := range v.Len() {
				s.Index(i).Set(clone(v.Index(i)))
			}
			out.Set(s)
		}
	case reflect.Array:
		for i := range v.Len() {
			out.Index(i).Set(clone(v.Index(i)))
		}
	default:
		out.Set(v)
	}
	return out
}
