package layerfs

import (
	"errors"
	"io"
	"os"
	"testing"

	"github.com/absfs/memfs"
)

func newAbsMemBackend(t *testing.T) *AbsBackend {
	t.Helper()
	fs, err := memfs.NewFS()
	if err != nil {
		t.Fatal(err)
	}
	return NewAbsBackend(fs)
}

func absWriteFile(t *testing.T, b *AbsBackend, name, content string) {
	t.Helper()
	ch, err := b.NewByteChannel(NewSlashPath(name), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		t.Fatalf("open %s: %v", name, err)
	}
	if _, err := ch.Write([]byte(content)); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	if err := ch.Close(); err != nil {
		t.Fatalf("close %s: %v", name, err)
	}
}

func TestAbsBackendReadWrite(t *testing.T) {
	b := newAbsMemBackend(t)
	absWriteFile(t, b, "/f.txt", "hello")

	ch, err := b.NewByteChannel(NewSlashPath("/f.txt"), os.O_RDONLY, 0)
	if err != nil {
		t.Fatal(err)
	}
	defer ch.Close()
	data, err := io.ReadAll(ch)
	if err != nil || string(data) != "hello" {
		t.Errorf("read = %q, %v", data, err)
	}
}

func TestAbsBackendDirectories(t *testing.T) {
	b := newAbsMemBackend(t)

	if err := b.CreateDirectory(NewSlashPath("/dir"), 0755); err != nil {
		t.Fatal(err)
	}
	absWriteFile(t, b, "/dir/one.txt", "1")
	absWriteFile(t, b, "/dir/two.txt", "2")

	stream, err := b.NewDirectoryStream(NewSlashPath("/dir"), nil)
	if err != nil {
		t.Fatal(err)
	}
	names := collectStream(t, stream)
	seen := map[string]bool{}
	for _, n := range names {
		seen[n] = true
	}
	if !seen["/dir/one.txt"] || !seen["/dir/two.txt"] {
		t.Errorf("entries = %v, want /dir/one.txt and /dir/two.txt", names)
	}

	if err := b.Delete(NewSlashPath("/dir/one.txt")); err != nil {
		t.Fatal(err)
	}
	if err := b.CheckAccess(NewSlashPath("/dir/one.txt"), AccessExists); err == nil {
		t.Error("deleted file should not exist")
	}
}

func TestAbsBackendAttributes(t *testing.T) {
	b := newAbsMemBackend(t)
	absWriteFile(t, b, "/f.txt", "body")

	attrs, err := b.ReadAttributes(NewSlashPath("/f.txt"), "basic")
	if err != nil {
		t.Fatal(err)
	}
	if regular, _ := attrs["isRegularFile"].(bool); !regular {
		t.Error("f.txt should be a regular file")
	}
	if size, _ := attrs["size"].(int64); size != 4 {
		t.Errorf("size = %v", attrs["size"])
	}

	if err := b.SetAttribute(NewSlashPath("/f.txt"), "mode", os.FileMode(0600)); err != nil {
		t.Fatal(err)
	}
	attrs, err = b.ReadAttributes(NewSlashPath("/f.txt"), "basic:mode")
	if err != nil {
		t.Fatal(err)
	}
	if mode, _ := attrs["mode"].(os.FileMode); mode.Perm() != 0600 {
		t.Errorf("mode = %v", attrs["mode"])
	}
}

func TestAbsBackendWorkingDirectory(t *testing.T) {
	b := newAbsMemBackend(t)
	if err := b.CreateDirectory(NewSlashPath("/srv"), 0755); err != nil {
		t.Fatal(err)
	}
	absWriteFile(t, b, "/srv/f.txt", "x")

	if err := b.SetWorkingDirectory(NewSlashPath("/srv")); err != nil {
		t.Fatal(err)
	}
	if got := b.ToAbsolutePath(NewSlashPath("f.txt")).String(); got != "/srv/f.txt" {
		t.Errorf("relative resolution = %q", got)
	}
	if err := b.SetWorkingDirectory(NewSlashPath("/srv/f.txt")); err == nil {
		t.Error("chdir to a file should fail")
	}
}

func TestAbsBackendSeparators(t *testing.T) {
	b := newAbsMemBackend(t)
	if b.Separator() != "/" {
		t.Errorf("separator = %q", b.Separator())
	}
	if _, err := b.ParseURI("file:///x"); !errors.Is(err, ErrUnsupported) {
		t.Errorf("parse URI: %v", err)
	}
}

func TestAbsBackendAsOverlay(t *testing.T) {
	// Backends of different ecosystems mix freely: afero base, absfs
	// overlay.
	base, baseFs := newMemBackend()
	mustMkdirAll(t, baseFs, "/data")
	overlay := newAbsMemBackend(t)
	absWriteFile(t, overlay, "/notes.txt", "absfs notes")

	l := New(base, WithMount(mustMountPoint(t, base, "/data"), overlay))

	if got := readChannel(t, l, mustParse(t, l, "/data/notes.txt")); got != "absfs notes" {
		t.Errorf("read = %q", got)
	}
	stream, err := l.NewDirectoryStream(mustParse(t, l, "/data"), nil)
	if err != nil {
		t.Fatal(err)
	}
	names := collectStream(t, stream)
	found := false
	for _, n := range names {
		if n == "/data/notes.txt" {
			found = true
		}
	}
	if !found {
		t.Errorf("entries = %v, want /data/notes.txt", names)
	}
}
