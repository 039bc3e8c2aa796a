// Package ftpserver exposes the drive filesystem over FTP using goftp.
package ftpserver

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
	"time"

	"goftp.io/server/v2"

	"github.com/driveftp/driveftp/internal/drivefs"
)

// Filesystem is the slice of the drivefs adapter the FTP driver consumes.
type Filesystem interface {
	Root() *drivefs.Entry
	ListChildren(ctx context.Context, dir *drivefs.Entry) ([]drivefs.Entry, error)
	FindChildByName(ctx context.Context, dir *drivefs.Entry, name string) (*drivefs.Entry, error)
	Move(ctx context.Context, srcParent, entry, dstParent *drivefs.Entry, newName string) (*drivefs.Entry, error)
	Delete(ctx context.Context, entry *drivefs.Entry) error
	CreateDirectory(ctx context.Context, parent *drivefs.Entry, name string) (*drivefs.Entry, error)
	OpenForRead(ctx context.Context, file *drivefs.Entry, offset int64) (io.ReadCloser, int64, error)
	Append(ctx context.Context, file *drivefs.Entry, offset int64, r io.Reader) error
	CreateFile(ctx context.Context, parent *drivefs.Entry, name string, r io.Reader) (*drivefs.Transfer, error)
	ReplaceFile(ctx context.Context, file *drivefs.Entry, r io.Reader) (*drivefs.Transfer, error)
}

// Driver implements goftp's server.Driver over the drive filesystem.
type Driver struct {
	fs Filesystem
}

// NewDriver creates an FTP driver over fs.
func NewDriver(fs Filesystem) *Driver {
	return &Driver{fs: fs}
}

// resolve walks a slash path from the root, one component at a time.
func (d *Driver) resolve(ctx context.Context, p string) (*drivefs.Entry, error) {
	p = path.Clean("/" + p)
	cur := d.fs.Root()
	if p == "/" {
		return cur, nil
	}
	for _, name := range strings.Split(p[1:], "/") {
		if !cur.IsDir() {
			return nil, fmt.Errorf("%s: %w", p, os.ErrNotExist)
		}
		next, err := d.fs.FindChildByName(ctx, cur, name)
		if err != nil {
			return nil, err
		}
		if next == nil {
			return nil, fmt.Errorf("%s: %w", p, os.ErrNotExist)
		}
		cur = next
	}
	return cur, nil
}

func (d *Driver) resolveParent(ctx context.Context, p string) (*drivefs.Entry, string, error) {
	p = path.Clean("/" + p)
	if p == "/" {
		return nil, "", fmt.Errorf("root has no parent")
	}
	parent, err := d.resolve(ctx, path.Dir(p))
	if err != nil {
		return nil, "", err
	}
	if !parent.IsDir() {
		return nil, "", fmt.Errorf("%s: %w", path.Dir(p), os.ErrNotExist)
	}
	return parent, path.Base(p), nil
}

// Stat implements server.Driver.
func (d *Driver) Stat(_ *server.Context, p string) (os.FileInfo, error) {
	e, err := d.resolve(context.Background(), p)
	if err != nil {
		return nil, err
	}
	return entryInfo{*e}, nil
}

// ListDir implements server.Driver.
func (d *Driver) ListDir(_ *server.Context, p string, cb func(os.FileInfo) error) error {
	ctx := context.Background()
	dir, err := d.resolve(ctx, p)
	if err != nil {
		return err
	}
	entries, err := d.fs.ListChildren(ctx, dir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if err := cb(entryInfo{e}); err != nil {
			return err
		}
	}
	return nil
}

// DeleteDir implements server.Driver.
func (d *Driver) DeleteDir(_ *server.Context, p string) error {
	ctx := context.Background()
	e, err := d.resolve(ctx, p)
	if err != nil {
		return err
	}
	if !e.IsDir() {
		return drivefs.ErrNotADirectory
	}
	return d.fs.Delete(ctx, e)
}

// DeleteFile implements server.Driver.
func (d *Driver) DeleteFile(_ *server.Context, p string) error {
	ctx := context.Background()
	e, err := d.resolve(ctx, p)
	if err != nil {
		return err
	}
	if e.IsDir() {
		return drivefs.ErrNotAFile
	}
	return d.fs.Delete(ctx, e)
}

// Rename implements server.Driver.
func (d *Driver) Rename(_ *server.Context, from, to string) error {
	ctx := context.Background()
	srcParent, fromName, err := d.resolveParent(ctx, from)
	if err != nil {
		return err
	}
	entry, err := d.fs.FindChildByName(ctx, srcParent, fromName)
	if err != nil {
		return err
	}
	if entry == nil {
		return fmt.Errorf("%s: %w", from, os.ErrNotExist)
	}
	dstParent, toName, err := d.resolveParent(ctx, to)
	if err != nil {
		return err
	}
	_, err = d.fs.Move(ctx, srcParent, entry, dstParent, toName)
	return err
}

// MakeDir implements server.Driver.
func (d *Driver) MakeDir(_ *server.Context, p string) error {
	ctx := context.Background()
	parent, name, err := d.resolveParent(ctx, p)
	if err != nil {
		return err
	}
	_, err = d.fs.CreateDirectory(ctx, parent, name)
	return err
}

// GetFile implements server.Driver.
func (d *Driver) GetFile(_ *server.Context, p string, offset int64) (int64, io.ReadCloser, error) {
	ctx := context.Background()
	e, err := d.resolve(ctx, p)
	if err != nil {
		return 0, nil, err
	}
	rc, length, err := d.fs.OpenForRead(ctx, e, offset)
	if err != nil {
		return 0, nil, err
	}
	return length, rc, nil
}

// PutFile implements server.Driver. offset 0 writes the whole file,
// -1 is append mode, >0 resumes mid-file; the remote store supports only
// whole-file writes, so resume and append onto existing content fail.
func (d *Driver) PutFile(_ *server.Context, p string, data io.Reader, offset int64) (int64, error) {
	ctx := context.Background()
	parent, name, err := d.resolveParent(ctx, p)
	if err != nil {
		return 0, err
	}
	existing, err := d.fs.FindChildByName(ctx, parent, name)
	if err != nil {
		return 0, err
	}

	if offset > 0 || (offset == -1 && existing != nil) {
		if existing == nil {
			return 0, fmt.Errorf("%s: %w", p, os.ErrNotExist)
		}
		if offset < 0 {
			offset = 0
		}
		return 0, d.fs.Append(ctx, existing, offset, data)
	}

	cr := &countingReader{r: data}
	if existing != nil {
		if _, err := d.fs.ReplaceFile(ctx, existing, cr); err != nil {
			return 0, err
		}
		return cr.n, nil
	}
	if _, err := d.fs.CreateFile(ctx, parent, name, cr); err != nil {
		return 0, err
	}
	return cr.n, nil
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

// entryInfo adapts a drivefs entry to os.FileInfo for goftp.
type entryInfo struct {
	e drivefs.Entry
}

func (i entryInfo) Name() string { return i.e.Name() }

func (i entryInfo) Size() int64 {
	if i.e.SizeKnown {
		return i.e.Size
	}
	return 0
}

func (i entryInfo) Mode() os.FileMode {
	if i.e.IsDir() {
		return os.ModeDir | 0755
	}
	return 0644
}

func (i entryInfo) ModTime() time.Time { return i.e.ModTime }
func (i entryInfo) IsDir() bool        { return i.e.IsDir() }
func (i entryInfo) Sys() interface{}   { return nil }
