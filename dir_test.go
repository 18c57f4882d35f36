package layerfs

import (
	"errors"
	"io"
	"sort"
	"testing"
)

func TestDirectoryStreamWrapsOverlayEntries(t *testing.T) {
	l, _, _ := newDataLayerFS(t)

	stream, err := l.NewDirectoryStream(mustParse(t, l, "/data"), nil)
	if err != nil {
		t.Fatal(err)
	}
	defer stream.Close()

	seen := map[string]bool{}
	for {
		entry, err := stream.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatal(err)
		}
		lp := entry.(*LayeredPath)
		if got := lp.Base().String(); got != "/data" {
			t.Errorf("entry base = %q, want the mount point /data", got)
		}
		if !lp.InOverlay() {
			t.Errorf("entry %q should carry an overlay component", lp.String())
		}
		seen[lp.Overlay().String()] = true
	}
	if !seen["/notes.txt"] || !seen["/sub"] {
		t.Errorf("overlay entries = %v, want /notes.txt and /sub", seen)
	}
}

func TestDirectoryStreamPureBaseFolder(t *testing.T) {
	l, _, _ := newDataLayerFS(t)

	stream, err := l.NewDirectoryStream(mustParse(t, l, "/other"), nil)
	if err != nil {
		t.Fatal(err)
	}
	names := collectStream(t, stream)
	if len(names) != 1 || names[0] != "/other/file.txt" {
		t.Errorf("entries = %v, want [/other/file.txt]", names)
	}
}

func TestDirectoryStreamSubdirectoryOfMount(t *testing.T) {
	l, _, _ := newDataLayerFS(t)

	stream, err := l.NewDirectoryStream(mustParse(t, l, "/data/sub"), nil)
	if err != nil {
		t.Fatal(err)
	}
	names := collectStream(t, stream)
	if len(names) != 1 || names[0] != "/data/sub/deep.txt" {
		t.Errorf("entries = %v, want [/data/sub/deep.txt]", names)
	}
}

func TestDirectoryStreamCollapsedParentListsOverlayRoot(t *testing.T) {
	l, _, _ := newDataLayerFS(t)

	// Parent of /data/sub collapses the overlay component back to the pure
	// mount point; listing it must still target the overlay root.
	folder := mustParse(t, l, "/data/sub").Parent().(*LayeredPath)
	if folder.InOverlay() {
		t.Fatalf("parent of /data/sub should be the pure mount point, got %q", folder.String())
	}

	stream, err := l.NewDirectoryStream(folder, nil)
	if err != nil {
		t.Fatal(err)
	}
	names := collectStream(t, stream)
	sort.Strings(names)
	want := []string{"/data/notes.txt", "/data/sub"}
	if len(names) != len(want) || names[0] != want[0] || names[1] != want[1] {
		t.Errorf("entries = %v, want %v", names, want)
	}
}

func TestDirectoryStreamFilterSeesCompositePaths(t *testing.T) {
	l, _, _ := newDataLayerFS(t)

	filter := func(p Path) bool {
		lp := p.(*LayeredPath)
		if !lp.InOverlay() {
			t.Errorf("filter saw non-composite entry %q", p.String())
		}
		return lp.Overlay().String() == "/notes.txt"
	}
	stream, err := l.NewDirectoryStream(mustParse(t, l, "/data"), filter)
	if err != nil {
		t.Fatal(err)
	}
	names := collectStream(t, stream)
	if len(names) != 1 || names[0] != "/data/notes.txt" {
		t.Errorf("filtered entries = %v, want [/data/notes.txt]", names)
	}
}

func TestDirectoryStreamEntriesAreUsablePaths(t *testing.T) {
	l, _, _ := newDataLayerFS(t)

	stream, err := l.NewDirectoryStream(mustParse(t, l, "/data"), func(p Path) bool {
		return p.FileName() != nil && p.FileName().String() == "notes.txt"
	})
	if err != nil {
		t.Fatal(err)
	}
	defer stream.Close()

	entry, err := stream.Next()
	if err != nil {
		t.Fatal(err)
	}
	// Entries feed straight back into the router.
	if got := readChannel(t, l, entry); got != "overlay notes" {
		t.Errorf("read through listed entry = %q", got)
	}
}

func TestDirectoryStreamClose(t *testing.T) {
	l, _, _ := newDataLayerFS(t)

	stream, err := l.NewDirectoryStream(mustParse(t, l, "/data"), nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := stream.Close(); err != nil {
		t.Fatal(err)
	}
	if err := stream.Close(); err != nil {
		t.Errorf("second close: %v", err)
	}
	if _, err := stream.Next(); !errors.Is(err, ErrClosed) {
		t.Errorf("next after close: err = %v, want ErrClosed", err)
	}
}

func TestDirectoryStreamNotADirectory(t *testing.T) {
	l, _, _ := newDataLayerFS(t)

	if _, err := l.NewDirectoryStream(mustParse(t, l, "/other/file.txt"), nil); err == nil {
		t.Error("listing a regular file should fail")
	}
}
