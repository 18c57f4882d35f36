package layerfs

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/spf13/afero"
)

// AferoBackend adapts an afero.Fs to the Backend capability contract,
// making every afero filesystem (OsFs, MemMapFs, BasePathFs, ReadOnlyFs,
// ...) usable as a base layer or as a mounted overlay. Paths are
// slash-separated SlashPaths.
type AferoBackend struct {
	fs  afero.Fs
	mu  sync.RWMutex
	cwd *SlashPath
}

var _ Backend = (*AferoBackend)(nil)

// NewAferoBackend wraps an afero filesystem. The working directory starts
// at the root.
func NewAferoBackend(fs afero.Fs) *AferoBackend {
	return &AferoBackend{fs: fs, cwd: NewSlashPath("/")}
}

// ParsePath parses a slash-separated path string.
func (b *AferoBackend) ParsePath(s string) (Path, error) {
	return NewSlashPath(s), nil
}

// ParseURI parses a file:// URI.
func (b *AferoBackend) ParseURI(uri string) (Path, error) {
	s, ok := strings.CutPrefix(uri, "file://")
	if !ok {
		return nil, &os.PathError{Op: "parse", Path: uri, Err: ErrUnsupported}
	}
	return NewSlashPath(s), nil
}

// native returns the cleaned absolute string form used for afero calls.
func (b *AferoBackend) native(p Path) string {
	return toSlash(b.ToAbsolutePath(p)).Normalize().String()
}

// CheckAccess verifies existence and, for write and execute requests, the
// corresponding permission bits.
func (b *AferoBackend) CheckAccess(p Path, modes AccessMode) error {
	name := b.native(p)
	info, err := b.fs.Stat(name)
	if err != nil {
		return err
	}
	perm := info.Mode().Perm()
	if modes&AccessWrite != 0 && perm&0200 == 0 {
		return &os.PathError{Op: "access", Path: name, Err: os.ErrPermission}
	}
	if modes&AccessExecute != 0 && perm&0100 == 0 {
		return &os.PathError{Op: "access", Path: name, Err: os.ErrPermission}
	}
	return nil
}

func (b *AferoBackend) CreateDirectory(p Path, perm os.FileMode) error {
	return b.fs.Mkdir(b.native(p), perm)
}

func (b *AferoBackend) Delete(p Path) error {
	return b.fs.Remove(b.native(p))
}

func (b *AferoBackend) NewByteChannel(p Path, flag int, perm os.FileMode) (Channel, error) {
	return b.fs.OpenFile(b.native(p), flag, perm)
}

// NewDirectoryStream opens a lazy entry stream over a directory. Entries
// are absolute children of the directory, read from the underlying handle
// in batches.
func (b *AferoBackend) NewDirectoryStream(p Path, filter Filter) (DirectoryStream, error) {
	name := b.native(p)
	info, err := b.fs.Stat(name)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, &os.PathError{Op: "readdir", Path: name, Err: os.ErrInvalid}
	}
	f, err := b.fs.Open(name)
	if err != nil {
		return nil, err
	}
	return &aferoDirStream{dir: NewSlashPath(name), f: f, filter: filter}, nil
}

// ToAbsolutePath resolves relative paths against the working directory.
func (b *AferoBackend) ToAbsolutePath(p Path) Path {
	sp := toSlash(p)
	if sp.IsAbsolute() {
		return sp
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.cwd.Resolve(sp)
}

// ToRealPath returns the normalized absolute path. Afero has no generic
// symlink resolution, so normalization is as canonical as it gets here.
func (b *AferoBackend) ToRealPath(p Path) (Path, error) {
	name := b.native(p)
	if _, err := b.fs.Stat(name); err != nil {
		return nil, err
	}
	return NewSlashPath(name), nil
}

func (b *AferoBackend) ReadAttributes(p Path, spec string) (map[string]any, error) {
	info, err := b.fs.Stat(b.native(p))
	if err != nil {
		return nil, err
	}
	return selectAttributes(spec, basicAttributes(info))
}

func (b *AferoBackend) SetAttribute(p Path, name string, value any) error {
	target := b.native(p)
	switch name {
	case "mode", "permissions":
		mode, ok := value.(os.FileMode)
		if !ok {
			return &os.PathError{Op: "setattr", Path: target, Err: os.ErrInvalid}
		}
		return b.fs.Chmod(target, mode)
	case "lastModifiedTime":
		t, ok := value.(time.Time)
		if !ok {
			return &os.PathError{Op: "setattr", Path: target, Err: os.ErrInvalid}
		}
		return b.fs.Chtimes(target, t, t)
	default:
		return &os.PathError{Op: "setattr", Path: target, Err: ErrUnsupported}
	}
}

// CreateLink creates a hard link where the filesystem supports one.
func (b *AferoBackend) CreateLink(link, existing Path) error {
	linkName, existingName := b.native(link), b.native(existing)
	if linker, ok := b.fs.(interface {
		Link(oldname, newname string) error
	}); ok {
		return linker.Link(existingName, linkName)
	}
	if _, ok := b.fs.(*afero.OsFs); ok {
		return os.Link(existingName, linkName)
	}
	return &os.LinkError{Op: "link", Old: existingName, New: linkName, Err: ErrUnsupported}
}

func (b *AferoBackend) CreateSymbolicLink(link, target Path) error {
	linkName := b.native(link)
	if linker, ok := b.fs.(afero.Linker); ok {
		return linker.SymlinkIfPossible(toSlash(target).String(), linkName)
	}
	return &os.LinkError{Op: "symlink", Old: target.String(), New: linkName, Err: ErrUnsupported}
}

func (b *AferoBackend) ReadSymbolicLink(link Path) (Path, error) {
	name := b.native(link)
	if reader, ok := b.fs.(afero.LinkReader); ok {
		target, err := reader.ReadlinkIfPossible(name)
		if err != nil {
			return nil, err
		}
		return NewSlashPath(target), nil
	}
	return nil, &os.PathError{Op: "readlink", Path: name, Err: ErrUnsupported}
}

func (b *AferoBackend) SetWorkingDirectory(p Path) error {
	name := b.native(p)
	info, err := b.fs.Stat(name)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return &os.PathError{Op: "chdir", Path: name, Err: os.ErrInvalid}
	}
	b.mu.Lock()
	b.cwd = NewSlashPath(name)
	b.mu.Unlock()
	return nil
}

func (b *AferoBackend) Separator() string { return "/" }

func (b *AferoBackend) PathSeparator() string { return ":" }

func (b *AferoBackend) TempDirectory() Path {
	return NewSlashPath(afero.GetTempDir(b.fs, ""))
}

// aferoDirStream reads directory entries lazily in batches from an open
// afero handle.
type aferoDirStream struct {
	dir    *SlashPath
	f      afero.File
	filter Filter
	buf    []os.FileInfo
	closed bool
}

func (s *aferoDirStream) Next() (Path, error) {
	if s.closed {
		return nil, &os.PathError{Op: "readdir", Path: s.dir.String(), Err: ErrClosed}
	}
	for {
		if len(s.buf) == 0 {
			infos, err := s.f.Readdir(64)
			if err != nil {
				return nil, err
			}
			if len(infos) == 0 {
				return nil, io.EOF
			}
			s.buf = infos
		}
		info := s.buf[0]
		s.buf = s.buf[1:]
		child := s.dir.Resolve(NewSlashPath(info.Name()))
		if s.filter != nil && !s.filter(child) {
			continue
		}
		return child, nil
	}
}

func (s *aferoDirStream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.f.Close()
}
