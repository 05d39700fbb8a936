package fetch

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
)

// ErrReentrant aborts a resolve that would re-enter the resolution of a
// directory already being resolved further up the call chain.
var ErrReentrant = errors.New("fetch: re-entrant resolve")

type activeKey struct{}

// Enter marks dir as being resolved in the returned context. It fails with
// ErrReentrant when ctx already carries dir.
func Enter(ctx context.Context, dir string) (context.Context, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	dir = filepath.Clean(dir)
	active := Active(ctx)
	if slices.Contains(active, dir) {
		return ctx, fmt.Errorf("%w of %s", ErrReentrant, dir)
	}
	return context.WithValue(ctx, activeKey{}, append(slices.Clip(active), dir)), nil
}

// Active lists the directories being resolved, outermost first.
func Active(ctx context.Context) []string {
	if ctx == nil {
		return nil
	}
	active, _ := ctx.Value(activeKey{}).([]string)
	return active
}
