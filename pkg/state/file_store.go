package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/afero"
)

// FileStore keeps one JSON document per Ref under a root directory.
type FileStore[T any] struct {
	mu   sync.Mutex
	fs   afero.Fs
	root string
}

type fileRecord[T any] struct {
	Meta     Meta `json:"meta"`
	Snapshot T    `json:"snapshot"`
}

// NewFileStore returns a store writing below root on fs. A nil fs means the
// OS filesystem.
func NewFileStore[T any](fs afero.Fs, root string) *FileStore[T] {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &FileStore[T]{fs: fs, root: root}
}

// Path returns the file backing ref.
func (s *FileStore[T]) Path(ref Ref) (string, error) {
	key, err := ref.Identifier()
	if err != nil {
		return "", err
	}
	return filepath.Join(s.root, filepath.FromSlash(key)+".json"), nil
}

func (s *FileStore[T]) Load(_ context.Context, ref Ref) (T, Meta, bool, error) {
	var zero T
	path, err := s.Path(ref)
	if err != nil {
		return zero, Meta{}, false, err
	}

	s.mu.Lock()
	data, err := afero.ReadFile(s.fs, path)
	s.mu.Unlock()
	if errors.Is(err, os.ErrNotExist) {
		return zero, Meta{}, false, nil
	}
	if err != nil {
		return zero, Meta{}, false, fmt.Errorf("state: read %s: %w", path, err)
	}

	var record fileRecord[T]
	if err := json.Unmarshal(data, &record); err != nil {
		return zero, Meta{}, false, fmt.Errorf("state: decode %s: %w", path, err)
	}
	return record.Snapshot, record.Meta, true, nil
}

// Save writes through a temporary file renamed over the target.
func (s *FileStore[T]) Save(_ context.Context, ref Ref, snapshot T, meta Meta) (Meta, error) {
	path, err := s.Path(ref)
	if err != nil {
		return Meta{}, err
	}
	data, err := json.MarshalIndent(fileRecord[T]{Meta: meta, Snapshot: snapshot}, "", "  ")
	if err != nil {
		return Meta{}, fmt.Errorf("state: encode %s: %w", path, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return Meta{}, fmt.Errorf("state: %w", err)
	}
	tmp := path + ".tmp"
	if err := afero.WriteFile(s.fs, tmp, append(data, '\n'), 0o644); err != nil {
		return Meta{}, fmt.Errorf("state: write %s: %w", tmp, err)
	}
	if err := s.fs.Rename(tmp, path); err != nil {
		return Meta{}, fmt.Errorf("state: rename %s: %w", tmp, err)
	}
	return cloneMeta(meta), nil
}
