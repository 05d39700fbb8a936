package document

import (
	"errors"
	"fmt"
	"strings"
)

// FieldValueError reports a configuration value with the wrong shape or type.
// Path is the breadcrumb from the document root to the offending value.
type FieldValueError struct {
	Path []string
	Pos  Position
	Err  error
}

func (e *FieldValueError) Error() string {
	if e == nil {
		return "<nil>"
	}
	var sb strings.Builder
	if e.Pos.File != "" || e.Pos.Line > 0 {
		sb.WriteString(e.Pos.String())
		sb.WriteString(": ")
	}
	if len(e.Path) > 0 {
		fmt.Fprintf(&sb, "%s: ", JoinPath(e.Path))
	}
	if e.Err != nil {
		sb.WriteString(e.Err.Error())
	}
	return sb.String()
}

func (e *FieldValueError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Wrap prefixes the breadcrumb of a FieldValueError with field. Other errors
// become a FieldValueError rooted at field.
func Wrap(field string, err error) error {
	if err == nil {
		return nil
	}
	var fieldErr *FieldValueError
	if errors.As(err, &fieldErr) {
		out := *fieldErr
		out.Path = append([]string{field}, fieldErr.Path...)
		return &out
	}
	return &FieldValueError{Path: []string{field}, Err: err}
}

// JoinPath renders a breadcrumb as "a.b[0].c".
func JoinPath(path []string) string {
	var sb strings.Builder
	for i, segment := range path {
		if i > 0 && !strings.HasPrefix(segment, "[") {
			sb.WriteByte('.')
		}
		sb.WriteString(segment)
	}
	return sb.String()
}
