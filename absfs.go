package layerfs

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/absfs/absfs"
)

// AbsBackend adapts an absfs.FileSystem to the Backend capability
// contract, enabling integration with the absfs ecosystem (memfs, osfs,
// boltfs, ...). Paths are slash-separated SlashPaths.
//
// Link and symlink support is detected per filesystem: absfs filesystems
// expose those operations unevenly, so they are looked up by capability
// interface and reported as unsupported when absent.
type AbsBackend struct {
	fs  absfs.FileSystem
	mu  sync.RWMutex
	cwd *SlashPath
}

var _ Backend = (*AbsBackend)(nil)

// NewAbsBackend wraps an absfs filesystem. The working directory starts at
// the root.
func NewAbsBackend(fs absfs.FileSystem) *AbsBackend {
	return &AbsBackend{fs: fs, cwd: NewSlashPath("/")}
}

func (b *AbsBackend) ParsePath(s string) (Path, error) {
	return NewSlashPath(s), nil
}

func (b *AbsBackend) ParseURI(uri string) (Path, error) {
	return nil, &os.PathError{Op: "parse", Path: uri, Err: ErrUnsupported}
}

func (b *AbsBackend) native(p Path) string {
	return toSlash(b.ToAbsolutePath(p)).Normalize().String()
}

func (b *AbsBackend) CheckAccess(p Path, modes AccessMode) error {
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

func (b *AbsBackend) CreateDirectory(p Path, perm os.FileMode) error {
	return b.fs.Mkdir(b.native(p), perm)
}

func (b *AbsBackend) Delete(p Path) error {
	return b.fs.Remove(b.native(p))
}

func (b *AbsBackend) NewByteChannel(p Path, flag int, perm os.FileMode) (Channel, error) {
	return b.fs.OpenFile(b.native(p), flag, perm)
}

func (b *AbsBackend) NewDirectoryStream(p Path, filter Filter) (DirectoryStream, error) {
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
	infos, err := f.Readdir(-1)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(infos))
	for _, info := range infos {
		names = append(names, info.Name())
	}
	return &sliceDirStream{dir: NewSlashPath(name), names: names, filter: filter}, nil
}

func (b *AbsBackend) ToAbsolutePath(p Path) Path {
	sp := toSlash(p)
	if sp.IsAbsolute() {
		return sp
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.cwd.Resolve(sp)
}

func (b *AbsBackend) ToRealPath(p Path) (Path, error) {
	name := b.native(p)
	if _, err := b.fs.Stat(name); err != nil {
		return nil, err
	}
	return NewSlashPath(name), nil
}

func (b *AbsBackend) ReadAttributes(p Path, spec string) (map[string]any, error) {
	info, err := b.fs.Stat(b.native(p))
	if err != nil {
		return nil, err
	}
	return selectAttributes(spec, basicAttributes(info))
}

func (b *AbsBackend) SetAttribute(p Path, name string, value any) error {
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

func (b *AbsBackend) CreateLink(link, existing Path) error {
	linkName, existingName := b.native(link), b.native(existing)
	if linker, ok := b.fs.(interface {
		Link(oldname, newname string) error
	}); ok {
		return linker.Link(existingName, linkName)
	}
	return &os.LinkError{Op: "link", Old: existingName, New: linkName, Err: ErrUnsupported}
}

func (b *AbsBackend) CreateSymbolicLink(link, target Path) error {
	linkName := b.native(link)
	if linker, ok := b.fs.(interface {
		Symlink(oldname, newname string) error
	}); ok {
		return linker.Symlink(toSlash(target).String(), linkName)
	}
	return &os.LinkError{Op: "symlink", Old: target.String(), New: linkName, Err: ErrUnsupported}
}

func (b *AbsBackend) ReadSymbolicLink(link Path) (Path, error) {
	name := b.native(link)
	if reader, ok := b.fs.(interface {
		Readlink(name string) (string, error)
	}); ok {
		target, err := reader.Readlink(name)
		if err != nil {
			return nil, err
		}
		return NewSlashPath(target), nil
	}
	return nil, &os.PathError{Op: "readlink", Path: name, Err: ErrUnsupported}
}

func (b *AbsBackend) SetWorkingDirectory(p Path) error {
	name := b.native(p)
	info, err := b.fs.Stat(name)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return &os.PathError{Op: "chdir", Path: name, Err: os.ErrInvalid}
	}
	if chdirer, ok := b.fs.(interface {
		Chdir(name string) error
	}); ok {
		if err := chdirer.Chdir(name); err != nil {
			return err
		}
	}
	b.mu.Lock()
	b.cwd = NewSlashPath(name)
	b.mu.Unlock()
	return nil
}

func (b *AbsBackend) Separator() string {
	return string(b.fs.Separator())
}

func (b *AbsBackend) PathSeparator() string {
	return string(b.fs.ListSeparator())
}

func (b *AbsBackend) TempDirectory() Path {
	if tmp, ok := b.fs.(interface{ TempDir() string }); ok {
		return NewSlashPath(tmp.TempDir())
	}
	return NewSlashPath("/tmp")
}

// sliceDirStream serves directory entries from a snapshot taken at open.
// The backend handle is released before the stream is handed out, so Close
// only stops the iteration.
type sliceDirStream struct {
	dir    *SlashPath
	names  []string
	filter Filter
	closed bool
}

func (s *sliceDirStream) Next() (Path, error) {
	if s.closed {
		return nil, &os.PathError{Op: "readdir", Path: s.dir.String(), Err: ErrClosed}
	}
	for len(s.names) > 0 {
		name := s.names[0]
		s.names = s.names[1:]
		child := s.dir.Resolve(NewSlashPath(name))
		if s.filter != nil && !s.filter(child) {
			continue
		}
		return child, nil
	}
	return nil, io.EOF
}

func (s *sliceDirStream) Close() error {
	s.closed = true
	return nil
}
