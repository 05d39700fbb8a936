package config

import (
	"errors"
	"fmt"

	"github.com/goliatone/go-pkgtree/document"
)

// ErrPhase reports an operation attempted in the wrong phase.
var ErrPhase = errors.New("config: operation out of phase")

func phaseError(op string, have Phase, want ...Phase) error {
	return fmt.Errorf("%w: %s needs %v, tree is %s", ErrPhase, op, want, have)
}

// MalformedCandidateListError reports a package candidate without a guard
// that is followed by more candidates.
type MalformedCandidateListError struct {
	Name  string
	Index int
	Pos   document.Position
}

func (e *MalformedCandidateListError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("config: %s: package %q candidate %d has no %q guard but is not the last candidate",
		e.Pos, e.Name, e.Index, guardKey)
}

// ConflictError reports two child trees resolving one package name to
// different definitions.
type ConflictError struct {
	Name  string
	Files [2]string
	Diff  string
}

func (e *ConflictError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("config: conflicting definitions of package %q in %s and %s:\n%s",
		e.Name, e.Files[0], e.Files[1], e.Diff)
}
