package shell

import (
	"fmt"
	"path"
	"path/filepath"
	"sort"
	"strings"
)

// Known base directory names a Path can be anchored to.
const (
	BaseCfgDir   = "cfgdir"
	BaseSrcDir   = "srcdir"
	BaseBuildDir = "builddir"
	BaseAbsolute = "absolute"
)

// MissingBaseError reports a Path whose base directory was not supplied.
type MissingBaseError struct {
	Base string
	Have []string
}

func (e *MissingBaseError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("shell: base %q not provided (have %s)", e.Base, strings.Join(e.Have, ", "))
}

// Path is a symbolic path: a fragment relative to a named base directory that
// is resolved later.
type Path struct {
	Base string `freezedry:"base"`
	Rel  string `freezedry:"path"`
}

// NewPath builds a Path, cleaning the relative fragment.
func NewPath(base, rel string) Path {
	if rel != "" {
		rel = path.Clean(filepath.ToSlash(rel))
		if rel == "." {
			rel = ""
		}
	}
	return Path{Base: base, Rel: rel}
}

// Fill resolves p against the supplied base directories.
func (p Path) Fill(bases map[string]string) (string, error) {
	if p.Base == BaseAbsolute {
		return filepath.FromSlash(p.Rel), nil
	}
	dir, ok := bases[p.Base]
	if !ok {
		return "", &MissingBaseError{Base: p.Base, Have: baseNames(bases)}
	}
	if p.Rel == "" {
		return dir, nil
	}
	return filepath.Join(dir, filepath.FromSlash(p.Rel)), nil
}

func (p Path) String() string {
	if p.Rel == "" {
		return "$" + p.Base
	}
	return "$" + p.Base + "/" + p.Rel
}

func baseNames(bases map[string]string) []string {
	names := make([]string, 0, len(bases))
	for name := range bases {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
