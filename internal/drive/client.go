// Package drive is the remote object client for Google Drive.
//
// It exposes the narrow boundary the filesystem adapter needs: paginated
// queries, ranged content reads, and metadata/content mutations that all
// request the same minimal field projection.
package drive

import (
	"context"
	"io"
	"strings"
	"time"
)

// FolderMimeType marks an object as a directory in the remote store.
const FolderMimeType = "application/vnd.google-apps.folder"

// MaxPageSize is the largest page the remote store will return per query.
const MaxPageSize = 1000

// Object is the minimal projection of a remote file or folder.
type Object struct {
	ID           string
	Name         string
	MimeType     string
	Size         *int64 // nil when the store reports no size
	Trashed      bool
	ModifiedTime time.Time
}

// IsFolder reports whether the object is a directory.
func (o *Object) IsFolder() bool {
	return o.MimeType == FolderMimeType
}

// Page is one page of query results plus the continuation token for the
// next page (empty on the last page).
type Page struct {
	Items         []*Object
	NextPageToken string
}

// Metadata describes a new object to create. No content is attached;
// content is pushed afterwards with Update.
type Metadata struct {
	Name     string
	MimeType string
	Parents  []string
}

// Update describes a mutation of an existing object. Zero-valued fields
// are left untouched by the remote store.
type Update struct {
	Name         string
	AddParent    string
	RemoveParent string
	Trashed      *bool
	ModifiedTime *time.Time
	AccessedTime *time.Time
	CreatedTime  *time.Time
	Content      io.Reader // non-nil replaces the object's content
	ContentSize  int64     // -1 when unknown
}

// Client executes queries and mutations against the remote store.
type Client interface {
	// Query returns one page of objects matching the filter expression.
	// pageToken is empty for the first page.
	Query(ctx context.Context, query, pageToken string) (*Page, error)

	// Get opens a content read starting at offset. It returns the stream
	// and the stream's length when known (-1 otherwise). A non-success
	// status fails before any bytes are handed to the caller.
	Get(ctx context.Context, id string, offset int64) (io.ReadCloser, int64, error)

	// Create makes a new metadata-only object.
	Create(ctx context.Context, meta Metadata) (*Object, error)

	// Update applies metadata and/or content changes to an object.
	Update(ctx context.Context, id string, upd Update) (*Object, error)
}

// EscapeQueryLiteral escapes a string for interpolation into a single-quoted
// Drive query literal.
func EscapeQueryLiteral(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `'`, `\'`)
}
