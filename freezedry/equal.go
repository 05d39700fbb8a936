package freezedry

import (
	"reflect"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

var compareOptions = []cmp.Option{
	cmpopts.EquateEmpty(),
	cmp.Exporter(func(reflect.Type) bool { return true }),
}

// CompareForm dehydrates v the way Equal sees it: nocompare fields are dropped
// at every level and the named top-level attributes are removed.
func (c *Codec) CompareForm(v any, exclude ...string) (Envelope, error) {
	cmpCodec := *c
	cmpCodec.compare = true
	env, err := cmpCodec.Dehydrate(v)
	if err != nil {
		return Envelope{}, err
	}
	for _, name := range exclude {
		delete(env.Fields, name)
	}
	return env, nil
}

// Equal reports whether a and b have the same concrete type and identical
// attribute maps once nocompare fields and exclude are removed.
func (c *Codec) Equal(a, b any, exclude ...string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if reflect.TypeOf(a) != reflect.TypeOf(b) {
		return false
	}
	ea, err := c.CompareForm(a, exclude...)
	if err != nil {
		return false
	}
	eb, err := c.CompareForm(b, exclude...)
	if err != nil {
		return false
	}
	return cmp.Equal(ea, eb, compareOptions...)
}

// Diff renders the difference between the compare forms of a and b. An empty
// string means Equal would report true.
func (c *Codec) Diff(a, b any, exclude ...string) string {
	if reflect.TypeOf(a) != reflect.TypeOf(b) {
		return "type: " + typeName(reflect.TypeOf(a)) + " != " + typeName(reflect.TypeOf(b))
	}
	ea, errA := c.CompareForm(a, exclude...)
	eb, errB := c.CompareForm(b, exclude...)
	if errA != nil || errB != nil {
		return cmp.Diff(errString(errA), errString(errB))
	}
	return cmp.Diff(ea, eb, compareOptions...)
}

// Equal compares a and b with the default codec.
func Equal(a, b any, exclude ...string) bool {
	return defaultCodec.Equal(a, b, exclude...)
}

// Diff renders the difference between a and b with the default codec.
func Diff(a, b any, exclude ...string) string {
	return defaultCodec.Diff(a, b, exclude...)
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
