package freezedry

import (
	"errors"
	"fmt"
	"reflect"
)

// ErrUnknownType is returned by the built-in Registry when no factory is
// registered for a tag.
var ErrUnknownType = errors.New("freezedry: unknown type")

// VersionError reports persisted data newer than the running code.
type VersionError struct {
	Type    string
	Saved   int
	Current int
}

func (e *VersionError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("freezedry: %s saved with version %d, newer than supported version %d", e.Type, e.Saved, e.Current)
}

// FieldError locates a failure inside a nested value. Nested wrapping builds
// up the full attribute path.
type FieldError struct {
	Path []string
	Err  error
}

func (e *FieldError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("freezedry: field %s: %v", joinPath(e.Path), e.Err)
}

func (e *FieldError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func wrapField(name string, err error) error {
	if err == nil {
		return nil
	}
	var fieldErr *FieldError
	if errors.As(err, &fieldErr) {
		path := append([]string{name}, fieldErr.Path...)
		return &FieldError{Path: path, Err: fieldErr.Err}
	}
	return &FieldError{Path: []string{name}, Err: err}
}

func joinPath(path []string) string {
	out := ""
	for i, segment := range path {
		if i > 0 && segment != "" && segment[0] != '[' {
			out += "."
		}
		out += segment
	}
	return out
}

func typeName(t reflect.Type) string {
	if t == nil {
		return "nil"
	}
	return t.String()
}
