// Package staging stores upload bytes in temporary files until a
// background transfer has pushed them to the remote store.
package staging

import (
	"fmt"
	"io"
	"os"
)

// Store manages staged upload copies under a single directory.
type Store struct {
	dir string
}

// NewStore creates a staging store rooted at dir.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create staging dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the staging directory.
func (s *Store) Dir() string { return s.dir }

// Stage copies r into a temporary file and returns a seekable, reusable
// resource. declaredSize is the size announced by the source, or -1 when
// unknown; after staging the byte count actually written is authoritative.
func (s *Store) Stage(r io.Reader, declaredSize int64) (*Resource, error) {
	f, err := os.CreateTemp(s.dir, "stage-*")
	if err != nil {
		return nil, fmt.Errorf("create staging file: %w", err)
	}

	n, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(f.Name())
		return nil, fmt.Errorf("stage content: %w", err)
	}
	if declaredSize >= 0 && n != declaredSize {
		os.Remove(f.Name())
		return nil, fmt.Errorf("staged %d bytes, source declared %d", n, declaredSize)
	}

	return &Resource{path: f.Name(), size: n}, nil
}

// Resource is one staged copy. Its lifetime is owned by the transfer that
// created it.
type Resource struct {
	path string
	size int64
}

// Size returns the best-known size of the staged content in bytes.
func (r *Resource) Size() int64 { return r.size }

// Open returns a fresh read view of the staged bytes.
func (r *Resource) Open() (io.ReadSeekCloser, error) {
	f, err := os.Open(r.path)
	if err != nil {
		return nil, fmt.Errorf("open staged content: %w", err)
	}
	return f, nil
}

// Remove deletes the staged copy from disk.
func (r *Resource) Remove() error {
	return os.Remove(r.path)
}
