package layerfs

import (
	"errors"
	"io"
	"log/slog"
	"path"
	"testing"

	"github.com/spf13/afero"
)

// newMemBackend returns an AferoBackend over a fresh in-memory filesystem,
// plus the raw filesystem for seeding and inspection.
func newMemBackend() (*AferoBackend, afero.Fs) {
	fs := afero.NewMemMapFs()
	return NewAferoBackend(fs), fs
}

// mustWriteFile writes a file, creating parents as needed.
func mustWriteFile(t *testing.T, fs afero.Fs, name, content string) {
	t.Helper()
	if dir := path.Dir(name); dir != "/" && dir != "." {
		if err := fs.MkdirAll(dir, 0755); err != nil {
			t.Fatalf("mkdir %s: %v", dir, err)
		}
	}
	if err := afero.WriteFile(fs, name, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

// mustMkdirAll creates a directory tree.
func mustMkdirAll(t *testing.T, fs afero.Fs, name string) {
	t.Helper()
	if err := fs.MkdirAll(name, 0755); err != nil {
		t.Fatalf("mkdir %s: %v", name, err)
	}
}

// mustParse parses a path through the router.
func mustParse(t *testing.T, l *LayerFS, s string) *LayeredPath {
	t.Helper()
	p, err := l.ParsePath(s)
	if err != nil {
		t.Fatalf("parse %s: %v", s, err)
	}
	return p.(*LayeredPath)
}

// mustMountPoint parses a mount point in a backend's namespace.
func mustMountPoint(t *testing.T, b Backend, s string) Path {
	t.Helper()
	p, err := b.ParsePath(s)
	if err != nil {
		t.Fatalf("parse mount point %s: %v", s, err)
	}
	return p
}

// newDataLayerFS builds the canonical fixture: an in-memory base with the
// mount point /data and a file /other/file.txt, and an in-memory overlay
// mounted at /data containing /notes.txt and /sub/deep.txt.
func newDataLayerFS(t *testing.T) (*LayerFS, afero.Fs, afero.Fs) {
	t.Helper()
	base, baseFs := newMemBackend()
	overlay, overlayFs := newMemBackend()

	mustMkdirAll(t, baseFs, "/data")
	mustWriteFile(t, baseFs, "/other/file.txt", "base content")
	mustWriteFile(t, overlayFs, "/notes.txt", "overlay notes")
	mustWriteFile(t, overlayFs, "/sub/deep.txt", "deep content")

	l := New(base, WithMount(mustMountPoint(t, base, "/data"), overlay))
	return l, baseFs, overlayFs
}

// newTestLogger returns a logger that exercises the dispatch tracing paths
// without producing output.
func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// readChannel drains a byte channel.
func readChannel(t *testing.T, l *LayerFS, p Path) string {
	t.Helper()
	ch, err := l.NewByteChannel(p, 0, 0) // os.O_RDONLY
	if err != nil {
		t.Fatalf("open %s: %v", p.String(), err)
	}
	defer ch.Close()
	data, err := io.ReadAll(ch)
	if err != nil {
		t.Fatalf("read %s: %v", p.String(), err)
	}
	return string(data)
}

// collectStream drains a directory stream into string form, closing it.
func collectStream(t *testing.T, stream DirectoryStream) []string {
	t.Helper()
	defer stream.Close()
	var names []string
	for {
		entry, err := stream.Next()
		if errors.Is(err, io.EOF) {
			return names
		}
		if err != nil {
			t.Fatalf("stream next: %v", err)
		}
		names = append(names, entry.String())
	}
}
