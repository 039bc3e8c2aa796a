package drivefs

import (
	"context"
	"fmt"
	"io"
	"path"
	"time"

	"go.uber.org/zap"

	"github.com/driveftp/driveftp/internal/drive"
	"github.com/driveftp/driveftp/internal/events"
	"github.com/driveftp/driveftp/internal/logging"
	"github.com/driveftp/driveftp/internal/metrics"
	"github.com/driveftp/driveftp/internal/staging"
)

// Options configure an Adapter at construction. They are immutable for
// the adapter's lifetime.
type Options struct {
	// RootID is the remote ID of the folder presented as "/".
	RootID string

	// DeferUploads selects background transfers for writes. When false,
	// content is pushed synchronously before the write returns.
	DeferUploads bool
}

// Adapter is the filesystem façade over the remote object client.
type Adapter struct {
	client    drive.Client
	staging   *staging.Store
	bus       *events.Broadcaster
	opts      Options
	transfers *transferRegistry
}

// New creates an adapter. bus may be nil when no one consumes transfer
// events.
func New(client drive.Client, store *staging.Store, bus *events.Broadcaster, opts Options) *Adapter {
	if opts.RootID == "" {
		opts.RootID = "root"
	}
	return &Adapter{
		client:    client,
		staging:   store,
		bus:       bus,
		opts:      opts,
		transfers: newTransferRegistry(),
	}
}

// Root returns the root directory entry.
func (a *Adapter) Root() *Entry {
	return &Entry{Kind: KindDirectory, ID: a.opts.RootID, Path: "/", Root: true}
}

// CanDeleteNonEmptyDirectory reports that trashing a directory trashes its
// whole subtree.
func (a *Adapter) CanDeleteNonEmptyDirectory() bool { return true }

// CanAppend reports that appending to existing files is unsupported.
func (a *Adapter) CanAppend() bool { return false }

// ActiveTransfers returns the number of registered background transfers.
func (a *Adapter) ActiveTransfers() int {
	return a.transfers.len()
}

// Close tears down the transfer registry. In-flight transfers continue
// and their completions are swallowed.
func (a *Adapter) Close() {
	a.transfers.close()
	metrics.SetTransfersActive(0)
}

func childrenQuery(parentID string) string {
	return fmt.Sprintf("'%s' in parents", parentID)
}

func childByNameQuery(parentID, name string) string {
	return fmt.Sprintf("name = '%s' and '%s' in parents", drive.EscapeQueryLiteral(name), parentID)
}

// queryAll drains every page of a query, in remote order, without
// reordering or deduplicating. Cancellation of ctx stops the chain.
func (a *Adapter) queryAll(ctx context.Context, query string) ([]*drive.Object, error) {
	var items []*drive.Object
	token := ""
	for {
		page, err := a.client.Query(ctx, query, token)
		if err != nil {
			return nil, err
		}
		items = append(items, page.Items...)
		if page.NextPageToken == "" {
			return items, nil
		}
		token = page.NextPageToken
	}
}

// convertEntries classifies raw objects into entries: trashed objects
// are skipped and file sizes are overlaid with the tracked size of a
// registered transfer. The registry snapshot is taken only after all
// pages are in hand so uploads are not blocked during page assembly.
func (a *Adapter) convertEntries(parentPath string, objs []*drive.Object) []Entry {
	pending := a.transfers.sizes()

	entries := make([]Entry, 0, len(objs))
	for _, o := range objs {
		if o.Trashed {
			continue
		}
		e := Entry{
			ID:      o.ID,
			Path:    childPath(parentPath, o.Name),
			ModTime: o.ModifiedTime,
		}
		if o.IsFolder() {
			e.Kind = KindDirectory
			entries = append(entries, e)
			continue
		}
		e.Kind = KindFile
		if sz, ok := pending[o.ID]; ok {
			// Display overlay only; the remote record is untouched.
			e.Size, e.SizeKnown = sz, true
		} else if o.Size != nil {
			e.Size, e.SizeKnown = *o.Size, true
		}
		entries = append(entries, e)
	}
	return entries
}

// entryFor converts a single mutation response into an entry, applying
// the same trash filter and size overlay as listings.
func (a *Adapter) entryFor(parentPath string, obj *drive.Object) *Entry {
	entries := a.convertEntries(parentPath, []*drive.Object{obj})
	if len(entries) == 0 {
		return nil
	}
	return &entries[0]
}

// ListChildren returns all non-trashed children of dir in the order the
// remote store yields them. An empty directory is an empty slice, not an
// error.
func (a *Adapter) ListChildren(ctx context.Context, dir *Entry) ([]Entry, error) {
	if dir.Kind != KindDirectory {
		return nil, ErrNotADirectory
	}
	objs, err := a.queryAll(ctx, childrenQuery(dir.ID))
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dir.Path, err)
	}
	return a.convertEntries(dir.Path, objs), nil
}

// FindChildByName resolves an exact-name child of dir. It returns
// (nil, nil) when no such child exists. With duplicate names under one
// parent, the first object the remote query returns wins.
func (a *Adapter) FindChildByName(ctx context.Context, dir *Entry, name string) (*Entry, error) {
	if dir.Kind != KindDirectory {
		return nil, ErrNotADirectory
	}
	objs, err := a.queryAll(ctx, childByNameQuery(dir.ID, name))
	if err != nil {
		return nil, fmt.Errorf("find %s in %s: %w", name, dir.Path, err)
	}
	entries := a.convertEntries(dir.Path, objs)
	if len(entries) == 0 {
		return nil, nil
	}
	return &entries[0], nil
}

// Move re-parents and renames entry in one remote call and returns a
// fresh entry with the path recomputed under dstParent.
func (a *Adapter) Move(ctx context.Context, srcParent, entry, dstParent *Entry, newName string) (*Entry, error) {
	obj, err := a.client.Update(ctx, entry.ID, drive.Update{
		Name:         newName,
		AddParent:    dstParent.ID,
		RemoveParent: srcParent.ID,
	})
	if err != nil {
		return nil, fmt.Errorf("move %s: %w", entry.Path, err)
	}
	moved := a.entryFor(dstParent.Path, obj)
	if moved == nil {
		return nil, fmt.Errorf("move %s: remote store returned no usable object", entry.Path)
	}
	logging.Debug("moved entry",
		zap.String("from", entry.Path),
		zap.String("to", moved.Path))
	return moved, nil
}

// Delete soft-deletes entry by marking it trashed. The remote ID stays
// allocated; listings filter trashed objects out on this side.
func (a *Adapter) Delete(ctx context.Context, entry *Entry) error {
	trashed := true
	if _, err := a.client.Update(ctx, entry.ID, drive.Update{Trashed: &trashed}); err != nil {
		return fmt.Errorf("delete %s: %w", entry.Path, err)
	}
	logging.Debug("trashed entry", zap.String("path", entry.Path))
	return nil
}

// CreateDirectory creates a metadata-only folder under parent.
func (a *Adapter) CreateDirectory(ctx context.Context, parent *Entry, name string) (*Entry, error) {
	if parent.Kind != KindDirectory {
		return nil, ErrNotADirectory
	}
	obj, err := a.client.Create(ctx, drive.Metadata{
		Name:     name,
		MimeType: drive.FolderMimeType,
		Parents:  []string{parent.ID},
	})
	if err != nil {
		return nil, fmt.Errorf("mkdir %s: %w", childPath(parent.Path, name), err)
	}
	created := a.entryFor(parent.Path, obj)
	if created == nil {
		return nil, fmt.Errorf("mkdir %s: remote store returned no usable object", childPath(parent.Path, name))
	}
	return created, nil
}

// OpenForRead opens a ranged content read starting at offset. The second
// return value is the stream's declared length: the file's size minus the
// offset when the size is known, otherwise whatever the remote store
// declares (-1 for unknown).
func (a *Adapter) OpenForRead(ctx context.Context, file *Entry, offset int64) (io.ReadCloser, int64, error) {
	if file.Kind != KindFile {
		return nil, 0, ErrNotAFile
	}
	rc, length, err := a.client.Get(ctx, file.ID, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("read %s: %w", file.Path, err)
	}
	if file.SizeKnown {
		length = file.Size - offset
		if length < 0 {
			// Offset past the known end: nothing left to stream.
			length = 0
		}
	}
	if length > 0 {
		metrics.RecordDownload(length)
	}
	return rc, length, nil
}

// Append always fails: the remote store has no partial writes to an
// existing object. No remote call is made.
func (a *Adapter) Append(ctx context.Context, file *Entry, offset int64, r io.Reader) error {
	return ErrAppendNotSupported
}

// CreateFile creates a metadata-only file under parent and then writes
// its content, either inline or as a background transfer depending on
// construction options. The returned transfer is nil for inline writes.
func (a *Adapter) CreateFile(ctx context.Context, parent *Entry, name string, r io.Reader) (*Transfer, error) {
	if parent.Kind != KindDirectory {
		return nil, ErrNotADirectory
	}
	obj, err := a.client.Create(ctx, drive.Metadata{
		Name:    name,
		Parents: []string{parent.ID},
	})
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", childPath(parent.Path, name), err)
	}
	return a.writeContent(ctx, childPath(parent.Path, obj.Name), obj.ID, r)
}

// ReplaceFile rewrites an existing file's content in place, with the same
// inline/background duality as CreateFile. While a background upload for
// the same file is still in flight, a second deferred write fails with
// ErrUploadInFlight instead of racing it.
func (a *Adapter) ReplaceFile(ctx context.Context, file *Entry, r io.Reader) (*Transfer, error) {
	if file.Kind != KindFile {
		return nil, ErrNotAFile
	}
	return a.writeContent(ctx, file.Path, file.ID, r)
}

func (a *Adapter) writeContent(ctx context.Context, fullPath, id string, r io.Reader) (*Transfer, error) {
	if !a.opts.DeferUploads {
		cr := &countingReader{r: r}
		if _, err := a.client.Update(ctx, id, drive.Update{Content: cr, ContentSize: -1}); err != nil {
			metrics.RecordUpload(0, false)
			return nil, fmt.Errorf("upload %s: %w", fullPath, err)
		}
		metrics.RecordUpload(cr.n, true)
		return nil, nil
	}

	res, err := a.staging.Stage(r, -1)
	if err != nil {
		return nil, fmt.Errorf("stage %s: %w", fullPath, err)
	}

	t := &Transfer{
		path:     fullPath,
		fileID:   id,
		res:      res,
		size:     res.Size(),
		done:     a.transferDone,
		finished: make(chan struct{}),
	}
	if !a.transfers.register(t) {
		if rmErr := res.Remove(); rmErr != nil {
			logging.Warn("staged content cleanup failed",
				zap.String("path", fullPath), zap.Error(rmErr))
		}
		return nil, fmt.Errorf("upload %s: %w", fullPath, ErrUploadInFlight)
	}
	metrics.SetTransfersActive(a.transfers.len())

	logging.Debug("background transfer registered",
		zap.String("path", fullPath),
		zap.String("file_id", id),
		zap.Int64("size", t.size))

	go a.push(t)
	return t, nil
}

// push streams the staged bytes to the remote store and de-registers the
// transfer on either outcome. It runs on its own context: a background
// transfer, once registered, is independent of the call that started it.
func (a *Adapter) push(t *Transfer) {
	defer close(t.finished)

	ctx := context.Background()

	body, err := t.res.Open()
	if err == nil {
		_, err = a.client.Update(ctx, t.fileID, drive.Update{Content: body, ContentSize: t.size})
		body.Close()
	}
	if rmErr := t.res.Remove(); rmErr != nil {
		logging.Warn("staged content cleanup failed",
			zap.String("path", t.path), zap.Error(rmErr))
	}

	// Removal happens regardless of outcome so listings never show a
	// phantom pending transfer.
	t.done(t.fileID)

	if err != nil {
		metrics.RecordUpload(0, false)
		logging.Warn("background upload failed",
			zap.String("path", t.path),
			zap.String("file_id", t.fileID),
			zap.Error(err))
		a.publish(events.Event{
			Type:   events.EventUploadFailed,
			Path:   t.path,
			FileID: t.fileID,
			Error:  err.Error(),
		})
		return
	}

	metrics.RecordUpload(t.size, true)
	logging.Debug("background upload complete",
		zap.String("path", t.path),
		zap.String("file_id", t.fileID),
		zap.Int64("size", t.size))
	a.publish(events.Event{
		Type:   events.EventUploadComplete,
		Path:   t.path,
		FileID: t.fileID,
		Size:   t.size,
	})
}

func (a *Adapter) transferDone(fileID string) {
	if !a.transfers.remove(fileID) {
		// Adapter was closed mid-transfer: the server is shutting down,
		// not a data-integrity problem.
		logging.Debug("transfer completion after close", zap.String("file_id", fileID))
		return
	}
	metrics.SetTransfersActive(a.transfers.len())
}

func (a *Adapter) publish(e events.Event) {
	if a.bus != nil {
		a.bus.Publish(e)
	}
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

// SetTimestamps updates only the timestamps supplied; nil pointers are
// left untouched. The returned entry reflects the store's post-update
// name, which may have been normalized.
func (a *Adapter) SetTimestamps(ctx context.Context, entry *Entry, modified, accessed, created *time.Time) (*Entry, error) {
	obj, err := a.client.Update(ctx, entry.ID, drive.Update{
		ModifiedTime: modified,
		AccessedTime: accessed,
		CreatedTime:  created,
	})
	if err != nil {
		return nil, fmt.Errorf("set timestamps %s: %w", entry.Path, err)
	}
	updated := a.entryFor(path.Dir(entry.Path), obj)
	if updated == nil {
		return nil, fmt.Errorf("set timestamps %s: remote store returned no usable object", entry.Path)
	}
	return updated, nil
}
