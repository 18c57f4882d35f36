package layerfs

import (
	"bytes"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/klauspost/compress/zip"
)

// ZipBackend exposes a zip archive as a read-only Backend, so an archive
// can be mounted as a directory sub-tree of the base namespace. Entry
// paths are slash-separated SlashPaths rooted at the archive root.
//
// The archive's central directory is indexed once at construction;
// directories missing from the archive are synthesized from entry paths.
type ZipBackend struct {
	rc       *zip.ReadCloser
	files    map[string]*zip.File
	dirs     map[string]bool
	dirTimes map[string]time.Time
	children map[string][]string
}

var _ Backend = (*ZipBackend)(nil)

// NewZipBackend opens the archive at the given host path.
func NewZipBackend(name string) (*ZipBackend, error) {
	rc, err := zip.OpenReader(name)
	if err != nil {
		return nil, err
	}
	b := newZipBackend(&rc.Reader)
	b.rc = rc
	return b, nil
}

// NewZipBackendReader reads the archive from an io.ReaderAt.
func NewZipBackendReader(r io.ReaderAt, size int64) (*ZipBackend, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, err
	}
	return newZipBackend(zr), nil
}

func newZipBackend(zr *zip.Reader) *ZipBackend {
	b := &ZipBackend{
		files:    make(map[string]*zip.File),
		dirs:     map[string]bool{"/": true},
		dirTimes: make(map[string]time.Time),
		children: make(map[string][]string),
	}
	for _, f := range zr.File {
		name := toSlash(NewSlashPath("/" + f.Name).Normalize()).String()
		if name == "/" {
			continue
		}
		if f.FileInfo().IsDir() {
			b.dirs[name] = true
			b.dirTimes[name] = f.Modified
		} else {
			b.files[name] = f
		}
		b.addParents(name)
	}
	for _, names := range b.children {
		sort.Strings(names)
	}
	return b
}

// addParents records name under its parent and synthesizes missing
// ancestor directories up to the root.
func (b *ZipBackend) addParents(name string) {
	for name != "/" {
		parent := name[:strings.LastIndexByte(name, '/')]
		if parent == "" {
			parent = "/"
		}
		base := name[strings.LastIndexByte(name, '/')+1:]
		found := false
		for _, existing := range b.children[parent] {
			if existing == base {
				found = true
				break
			}
		}
		if !found {
			b.children[parent] = append(b.children[parent], base)
		}
		if parent != "/" && !b.dirs[parent] {
			b.dirs[parent] = true
		}
		name = parent
	}
}

// Close releases the archive handle, if the backend owns one.
func (b *ZipBackend) Close() error {
	if b.rc == nil {
		return nil
	}
	return b.rc.Close()
}

func (b *ZipBackend) ParsePath(s string) (Path, error) {
	return NewSlashPath(s), nil
}

func (b *ZipBackend) ParseURI(uri string) (Path, error) {
	return nil, &os.PathError{Op: "parse", Path: uri, Err: ErrUnsupported}
}

func (b *ZipBackend) native(p Path) string {
	return toSlash(b.ToAbsolutePath(p)).Normalize().String()
}

func (b *ZipBackend) CheckAccess(p Path, modes AccessMode) error {
	name := b.native(p)
	if _, ok := b.files[name]; !ok && !b.dirs[name] {
		return &os.PathError{Op: "access", Path: name, Err: os.ErrNotExist}
	}
	if modes&AccessWrite != 0 {
		return &os.PathError{Op: "access", Path: name, Err: ErrReadOnly}
	}
	return nil
}

func (b *ZipBackend) CreateDirectory(p Path, perm os.FileMode) error {
	return &os.PathError{Op: "mkdir", Path: b.native(p), Err: ErrReadOnly}
}

func (b *ZipBackend) Delete(p Path) error {
	return &os.PathError{Op: "remove", Path: b.native(p), Err: ErrReadOnly}
}

func (b *ZipBackend) NewByteChannel(p Path, flag int, perm os.FileMode) (Channel, error) {
	name := b.native(p)
	if flag&(os.O_WRONLY|os.O_RDWR|os.O_APPEND|os.O_CREATE|os.O_TRUNC) != 0 {
		return nil, &os.PathError{Op: "open", Path: name, Err: ErrReadOnly}
	}
	f, ok := b.files[name]
	if !ok {
		if b.dirs[name] {
			return nil, &os.PathError{Op: "open", Path: name, Err: os.ErrInvalid}
		}
		return nil, &os.PathError{Op: "open", Path: name, Err: os.ErrNotExist}
	}
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	data, err := io.ReadAll(rc)
	if cerr := rc.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return nil, err
	}
	return &zipChannel{name: name, r: bytes.NewReader(data)}, nil
}

func (b *ZipBackend) NewDirectoryStream(p Path, filter Filter) (DirectoryStream, error) {
	name := b.native(p)
	if !b.dirs[name] {
		if _, ok := b.files[name]; ok {
			return nil, &os.PathError{Op: "readdir", Path: name, Err: os.ErrInvalid}
		}
		return nil, &os.PathError{Op: "readdir", Path: name, Err: os.ErrNotExist}
	}
	names := make([]string, len(b.children[name]))
	copy(names, b.children[name])
	return &sliceDirStream{dir: NewSlashPath(name), names: names, filter: filter}, nil
}

func (b *ZipBackend) ToAbsolutePath(p Path) Path {
	sp := toSlash(p)
	if sp.IsAbsolute() {
		return sp
	}
	return NewSlashPath("/").Resolve(sp)
}

func (b *ZipBackend) ToRealPath(p Path) (Path, error) {
	name := b.native(p)
	if _, ok := b.files[name]; !ok && !b.dirs[name] {
		return nil, &os.PathError{Op: "realpath", Path: name, Err: os.ErrNotExist}
	}
	return NewSlashPath(name), nil
}

func (b *ZipBackend) ReadAttributes(p Path, spec string) (map[string]any, error) {
	name := b.native(p)
	if f, ok := b.files[name]; ok {
		return selectAttributes(spec, basicAttributes(f.FileInfo()))
	}
	if b.dirs[name] {
		attrs := map[string]any{
			"isRegularFile":    false,
			"isDirectory":      true,
			"isSymbolicLink":   false,
			"size":             int64(0),
			"lastModifiedTime": b.dirTimes[name],
			"mode":             os.ModeDir | 0555,
		}
		return selectAttributes(spec, attrs)
	}
	return nil, &os.PathError{Op: "readattrs", Path: name, Err: os.ErrNotExist}
}

func (b *ZipBackend) SetAttribute(p Path, name string, value any) error {
	return &os.PathError{Op: "setattr", Path: b.native(p), Err: ErrReadOnly}
}

func (b *ZipBackend) CreateLink(link, existing Path) error {
	return &os.LinkError{Op: "link", Old: existing.String(), New: link.String(), Err: ErrReadOnly}
}

func (b *ZipBackend) CreateSymbolicLink(link, target Path) error {
	return &os.LinkError{Op: "symlink", Old: target.String(), New: link.String(), Err: ErrReadOnly}
}

func (b *ZipBackend) ReadSymbolicLink(link Path) (Path, error) {
	return nil, &os.PathError{Op: "readlink", Path: b.native(link), Err: ErrUnsupported}
}

func (b *ZipBackend) SetWorkingDirectory(p Path) error {
	return &os.PathError{Op: "chdir", Path: b.native(p), Err: ErrUnsupported}
}

func (b *ZipBackend) Separator() string { return "/" }

func (b *ZipBackend) PathSeparator() string { return ":" }

func (b *ZipBackend) TempDirectory() Path { return NewSlashPath("/") }

// zipChannel is a read-only, seekable byte channel over a decompressed
// archive entry.
type zipChannel struct {
	name string
	r    *bytes.Reader
}

func (c *zipChannel) Read(p []byte) (int, error) { return c.r.Read(p) }

func (c *zipChannel) Seek(offset int64, whence int) (int64, error) {
	return c.r.Seek(offset, whence)
}

func (c *zipChannel) Write(p []byte) (int, error) {
	return 0, &os.PathError{Op: "write", Path: c.name, Err: ErrReadOnly}
}

func (c *zipChannel) Close() error { return nil }
