// Package drivefs presents the remote object store as a directory/file
// tree: list, resolve-by-name, create, move, delete, read, write and
// set-timestamps, with background uploads tracked so listings stay
// consistent while content is still in flight.
package drivefs

import (
	"errors"
	"path"
	"time"
)

var (
	// ErrAppendNotSupported is returned for any attempt to append to an
	// existing file. The remote store has no partial writes; this is a
	// permanent capability limit, not a transient failure.
	ErrAppendNotSupported = errors.New("drivefs: append to existing file not supported")

	// ErrNotAFile is returned when a file-only operation is applied to a
	// directory entry.
	ErrNotAFile = errors.New("drivefs: entry is not a file")

	// ErrNotADirectory is returned when a directory-only operation is
	// applied to a file entry.
	ErrNotADirectory = errors.New("drivefs: entry is not a directory")

	// ErrUploadInFlight is returned when a deferred write targets a file
	// whose previous background upload has not finished yet. The caller
	// may retry once the earlier transfer completes.
	ErrUploadInFlight = errors.New("drivefs: upload for this file still in flight")
)

// Kind discriminates the two entry variants.
type Kind int

const (
	KindDirectory Kind = iota
	KindFile
)

// Entry is the adapter-level view of one remote object. The full path is
// synthesized once, at construction, from the parent's path and the remote
// name; it is never recomputed from the remote store.
type Entry struct {
	Kind Kind
	ID   string
	Path string // slash-separated, "/" for the root

	// Root marks the single root directory entry.
	Root bool

	// Size is valid for files when SizeKnown is true. SizeKnown is false
	// when neither the remote store nor the transfer registry knows a
	// size for the object.
	Size      int64
	SizeKnown bool

	ModTime time.Time
}

// Name returns the entry's base name ("/" for the root).
func (e *Entry) Name() string {
	if e.Root {
		return "/"
	}
	return path.Base(e.Path)
}

// IsDir reports whether the entry is a directory.
func (e *Entry) IsDir() bool {
	return e.Kind == KindDirectory
}

func childPath(parentPath, name string) string {
	if parentPath == "/" {
		return "/" + name
	}
	return parentPath + "/" + name
}
