package ftpserver

import (
	"context"
	"errors"
	"io"
	"os"
	"path"
	"strings"
	"testing"

	"github.com/driveftp/driveftp/internal/drivefs"
)

type moveCall struct {
	srcParent, entry, dstParent, newName string
}

// fakeFS is an in-memory Filesystem for driver tests.
type fakeFS struct {
	root     drivefs.Entry
	children map[string][]drivefs.Entry // parent ID -> children

	moves   []moveCall
	deleted []string
	files   []string // "parentID/name" of created files
	dirs    []string
	content string
}

func newFakeFS() *fakeFS {
	return &fakeFS{
		root:     drivefs.Entry{Kind: drivefs.KindDirectory, ID: "root", Path: "/", Root: true},
		children: make(map[string][]drivefs.Entry),
		content:  "hello world",
	}
}

func (f *fakeFS) add(parentID string, e drivefs.Entry) {
	f.children[parentID] = append(f.children[parentID], e)
}

func (f *fakeFS) Root() *drivefs.Entry {
	r := f.root
	return &r
}

func (f *fakeFS) ListChildren(_ context.Context, dir *drivefs.Entry) ([]drivefs.Entry, error) {
	return f.children[dir.ID], nil
}

func (f *fakeFS) FindChildByName(_ context.Context, dir *drivefs.Entry, name string) (*drivefs.Entry, error) {
	for _, e := range f.children[dir.ID] {
		if path.Base(e.Path) == name {
			c := e
			return &c, nil
		}
	}
	return nil, nil
}

func (f *fakeFS) Move(_ context.Context, srcParent, entry, dstParent *drivefs.Entry, newName string) (*drivefs.Entry, error) {
	f.moves = append(f.moves, moveCall{srcParent.ID, entry.ID, dstParent.ID, newName})
	moved := *entry
	moved.Path = path.Join(dstParent.Path, newName)
	return &moved, nil
}

func (f *fakeFS) Delete(_ context.Context, entry *drivefs.Entry) error {
	f.deleted = append(f.deleted, entry.ID)
	return nil
}

func (f *fakeFS) CreateDirectory(_ context.Context, parent *drivefs.Entry, name string) (*drivefs.Entry, error) {
	f.dirs = append(f.dirs, parent.ID+"/"+name)
	return &drivefs.Entry{Kind: drivefs.KindDirectory, ID: "new-dir", Path: path.Join(parent.Path, name)}, nil
}

func (f *fakeFS) OpenForRead(_ context.Context, file *drivefs.Entry, offset int64) (io.ReadCloser, int64, error) {
	rest := f.content[offset:]
	return io.NopCloser(strings.NewReader(rest)), int64(len(rest)), nil
}

func (f *fakeFS) Append(_ context.Context, file *drivefs.Entry, offset int64, r io.Reader) error {
	return drivefs.ErrAppendNotSupported
}

func (f *fakeFS) CreateFile(_ context.Context, parent *drivefs.Entry, name string, r io.Reader) (*drivefs.Transfer, error) {
	io.Copy(io.Discard, r)
	f.files = append(f.files, parent.ID+"/"+name)
	return nil, nil
}

func (f *fakeFS) ReplaceFile(_ context.Context, file *drivefs.Entry, r io.Reader) (*drivefs.Transfer, error) {
	io.Copy(io.Discard, r)
	f.files = append(f.files, "replace:"+file.ID)
	return nil, nil
}

// standard tree: /docs (d1) containing a.txt (f1), and /archive (d2).
func testTree() *fakeFS {
	fs := newFakeFS()
	fs.add("root", drivefs.Entry{Kind: drivefs.KindDirectory, ID: "d1", Path: "/docs"})
	fs.add("root", drivefs.Entry{Kind: drivefs.KindDirectory, ID: "d2", Path: "/archive"})
	fs.add("d1", drivefs.Entry{Kind: drivefs.KindFile, ID: "f1", Path: "/docs/a.txt", Size: 11, SizeKnown: true})
	return fs
}

func TestStatRoot(t *testing.T) {
	d := NewDriver(testTree())
	info, err := d.Stat(nil, "/")
	if err != nil {
		t.Fatalf("stat /: %v", err)
	}
	if !info.IsDir() {
		t.Error("root must be a directory")
	}
}

func TestStatNestedPath(t *testing.T) {
	d := NewDriver(testTree())
	info, err := d.Stat(nil, "/docs/a.txt")
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Name() != "a.txt" || info.IsDir() || info.Size() != 11 {
		t.Errorf("unexpected info: name=%s dir=%v size=%d", info.Name(), info.IsDir(), info.Size())
	}

	if _, err := d.Stat(nil, "/docs/missing.txt"); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected ErrNotExist, got %v", err)
	}
}

func TestListDir(t *testing.T) {
	d := NewDriver(testTree())
	var names []string
	err := d.ListDir(nil, "/", func(info os.FileInfo) error {
		names = append(names, info.Name())
		return nil
	})
	if err != nil {
		t.Fatalf("listdir: %v", err)
	}
	if len(names) != 2 || names[0] != "docs" || names[1] != "archive" {
		t.Errorf("unexpected listing: %v", names)
	}
}

func TestRenameMapsToMove(t *testing.T) {
	fs := testTree()
	d := NewDriver(fs)
	if err := d.Rename(nil, "/docs/a.txt", "/archive/b.txt"); err != nil {
		t.Fatalf("rename: %v", err)
	}
	if len(fs.moves) != 1 {
		t.Fatalf("expected 1 move, got %d", len(fs.moves))
	}
	want := moveCall{srcParent: "d1", entry: "f1", dstParent: "d2", newName: "b.txt"}
	if fs.moves[0] != want {
		t.Errorf("move args %+v, want %+v", fs.moves[0], want)
	}
}

func TestPutFileNew(t *testing.T) {
	fs := testTree()
	d := NewDriver(fs)
	n, err := d.PutFile(nil, "/docs/new.txt", strings.NewReader("12345"), 0)
	if err != nil {
		t.Fatalf("putfile: %v", err)
	}
	if n != 5 {
		t.Errorf("expected 5 bytes written, got %d", n)
	}
	if len(fs.files) != 1 || fs.files[0] != "d1/new.txt" {
		t.Errorf("unexpected creates: %v", fs.files)
	}
}

func TestPutFileReplacesExisting(t *testing.T) {
	fs := testTree()
	d := NewDriver(fs)
	n, err := d.PutFile(nil, "/docs/a.txt", strings.NewReader("xyz"), 0)
	if err != nil {
		t.Fatalf("putfile: %v", err)
	}
	if n != 3 {
		t.Errorf("expected 3 bytes written, got %d", n)
	}
	if len(fs.files) != 1 || fs.files[0] != "replace:f1" {
		t.Errorf("unexpected writes: %v", fs.files)
	}
}

func TestPutFileResumeRejected(t *testing.T) {
	d := NewDriver(testTree())
	if _, err := d.PutFile(nil, "/docs/a.txt", strings.NewReader("more"), 5); !errors.Is(err, drivefs.ErrAppendNotSupported) {
		t.Errorf("resume onto existing content: got %v", err)
	}
	if _, err := d.PutFile(nil, "/docs/a.txt", strings.NewReader("more"), -1); !errors.Is(err, drivefs.ErrAppendNotSupported) {
		t.Errorf("append onto existing content: got %v", err)
	}
}

func TestPutFileAppendModeCreatesMissing(t *testing.T) {
	fs := testTree()
	d := NewDriver(fs)
	// APPE to a file that does not exist yet is just a create.
	n, err := d.PutFile(nil, "/docs/log.txt", strings.NewReader("entry"), -1)
	if err != nil {
		t.Fatalf("putfile: %v", err)
	}
	if n != 5 || len(fs.files) != 1 || fs.files[0] != "d1/log.txt" {
		t.Errorf("append-create failed: n=%d files=%v", n, fs.files)
	}
}

func TestGetFileRange(t *testing.T) {
	d := NewDriver(testTree())
	length, rc, err := d.GetFile(nil, "/docs/a.txt", 6)
	if err != nil {
		t.Fatalf("getfile: %v", err)
	}
	defer rc.Close()
	data, _ := io.ReadAll(rc)
	if string(data) != "world" || length != 5 {
		t.Errorf("got %q (length %d)", data, length)
	}
}

func TestDeleteKindChecks(t *testing.T) {
	fs := testTree()
	d := NewDriver(fs)

	if err := d.DeleteDir(nil, "/docs/a.txt"); !errors.Is(err, drivefs.ErrNotADirectory) {
		t.Errorf("RMD on file: got %v", err)
	}
	if err := d.DeleteFile(nil, "/docs"); !errors.Is(err, drivefs.ErrNotAFile) {
		t.Errorf("DELE on directory: got %v", err)
	}
	if err := d.DeleteFile(nil, "/docs/a.txt"); err != nil {
		t.Fatalf("DELE: %v", err)
	}
	if len(fs.deleted) != 1 || fs.deleted[0] != "f1" {
		t.Errorf("unexpected deletions: %v", fs.deleted)
	}
}

func TestMakeDir(t *testing.T) {
	fs := testTree()
	d := NewDriver(fs)
	if err := d.MakeDir(nil, "/docs/sub"); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if len(fs.dirs) != 1 || fs.dirs[0] != "d1/sub" {
		t.Errorf("unexpected mkdirs: %v", fs.dirs)
	}
}
