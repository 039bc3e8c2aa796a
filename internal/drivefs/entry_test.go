package drivefs

import "testing"

func TestEntryName(t *testing.T) {
	root := &Entry{Kind: KindDirectory, ID: "root", Path: "/", Root: true}
	if root.Name() != "/" {
		t.Errorf("root name: got %q", root.Name())
	}

	file := &Entry{Kind: KindFile, ID: "f1", Path: "/docs/report.pdf"}
	if file.Name() != "report.pdf" {
		t.Errorf("file name: got %q", file.Name())
	}
	if file.IsDir() {
		t.Error("file must not be a directory")
	}
}

func TestChildPath(t *testing.T) {
	cases := []struct {
		parent, name, want string
	}{
		{"/", "a.txt", "/a.txt"},
		{"/docs", "a.txt", "/docs/a.txt"},
		{"/docs/sub", "x", "/docs/sub/x"},
	}
	for _, c := range cases {
		if got := childPath(c.parent, c.name); got != c.want {
			t.Errorf("childPath(%q, %q) = %q, want %q", c.parent, c.name, got, c.want)
		}
	}
}
