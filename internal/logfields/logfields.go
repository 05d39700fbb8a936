// Package logfields holds canonical slog attribute names.
package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyPackage    = "package"
	KeySource     = "source"
	KeyBuilder    = "builder"
	KeyFile       = "file"
	KeyPhase      = "phase"
	KeyKind       = "kind"
	KeyExpr       = "expr"
	KeyEngine     = "engine"
	KeyDir        = "dir"
	KeyDurationMS = "duration_ms"
	KeyResolveID  = "resolve_id"
	KeyURL        = "url"
	KeyCommit     = "commit"
	KeyError      = "error"
)

func Package(name string) slog.Attr   { return slog.String(KeyPackage, name) }
func Source(kind string) slog.Attr    { return slog.String(KeySource, kind) }
func Builder(kind string) slog.Attr   { return slog.String(KeyBuilder, kind) }
func File(path string) slog.Attr      { return slog.String(KeyFile, path) }
func Phase(name string) slog.Attr     { return slog.String(KeyPhase, name) }
func Kind(name string) slog.Attr      { return slog.String(KeyKind, name) }
func Expr(expr string) slog.Attr      { return slog.String(KeyExpr, expr) }
func Engine(name string) slog.Attr    { return slog.String(KeyEngine, name) }
func Dir(path string) slog.Attr       { return slog.String(KeyDir, path) }
func ResolveID(id string) slog.Attr   { return slog.String(KeyResolveID, id) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }
func URL(url string) slog.Attr        { return slog.String(KeyURL, url) }

// Commit shortens a hash to 8 characters.
func Commit(hash string) slog.Attr {
	if len(hash) > 8 {
		hash = hash[:8]
	}
	return slog.String(KeyCommit, hash)
}

func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
