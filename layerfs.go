package layerfs

import (
	"log/slog"
	"os"
)

// mount is one entry of the immutable mount table.
type mount struct {
	point   Path
	backend Backend
}

// LayerFS is a composite filesystem: a base backend with zero or more
// sub-trees redirected onto overlay backends mounted at fixed points in the
// base namespace. Every operation classifies its path against the mount
// table and delegates to exactly one backend.
//
// LayerFS holds no mutable state beyond the mount table fixed at
// construction and performs no synchronization; concurrency behavior is
// whatever the backends provide.
type LayerFS struct {
	base   Backend
	mounts []mount
	logger *slog.Logger
}

// Option is a functional option for configuring LayerFS.
type Option func(*LayerFS)

// WithMount mounts a backend at the given point in the base namespace.
// Mount points are matched in registration order and the first prefix match
// wins; there is no longest-prefix preference, so when mounts nest or
// overlap, register the more specific point first.
func WithMount(point Path, backend Backend) Option {
	return func(l *LayerFS) {
		l.mounts = append(l.mounts, mount{point: point, backend: backend})
	}
}

// WithLogger sets a logger for debug-level dispatch tracing.
func WithLogger(logger *slog.Logger) Option {
	return func(l *LayerFS) {
		l.logger = logger
	}
}

// New creates a LayerFS over the given base backend.
func New(base Backend, opts ...Option) *LayerFS {
	l := &LayerFS{
		base:   base,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// split classifies a base-namespace path against the mount table. It
// returns the owning mount point, the remainder relative to it, and the
// mounted backend, or (p, nil, nil) when the path lies outside every
// mount. The first registered prefix match wins.
func (l *LayerFS) split(p Path) (Path, Path, Backend) {
	for _, m := range l.mounts {
		if p.StartsWith(m.point) {
			rel, err := m.point.Relativize(p)
			if err != nil {
				// StartsWith guarantees same-namespace absolute paths.
				panic("layerfs: relativize under matching mount point: " + err.Error())
			}
			return m.point, rel, m.backend
		}
	}
	return p, nil, nil
}

// backendFor returns the backend mounted exactly at point, or nil.
func (l *LayerFS) backendFor(point Path) Backend {
	for _, m := range l.mounts {
		if m.point.Compare(point) == 0 {
			return m.backend
		}
	}
	return nil
}

// createLayeredPath classifies a base-namespace path and builds the
// composite path for it. Paths inside a mount get an overlay component in
// the mount backend's own absolute form.
func (l *LayerFS) createLayeredPath(basePath Path) (*LayeredPath, error) {
	point, rel, backend := l.split(basePath)
	if backend == nil {
		return &LayeredPath{base: basePath}, nil
	}
	op, err := backend.ParsePath(rel.String())
	if err != nil {
		return nil, err
	}
	lp := &LayeredPath{base: point, overlay: backend.ToAbsolutePath(op)}
	l.logger.Debug("classified into mount",
		"path", basePath.String(), "mount", point.String(), "overlay", lp.overlay.String())
	return lp, nil
}

// overlayBackend returns the backend owning an overlaid path's mount point.
func (l *LayerFS) overlayBackend(lp *LayeredPath) Backend {
	b := l.backendFor(lp.base)
	if b == nil {
		panic("layerfs: overlay component without a mounted backend")
	}
	return b
}

// ParsePath parses a base-namespace path string into a composite path.
func (l *LayerFS) ParsePath(s string) (Path, error) {
	bp, err := l.base.ParsePath(s)
	if err != nil {
		return nil, err
	}
	return l.createLayeredPath(bp)
}

// ParseURI parses a base-namespace URI into a composite path.
func (l *LayerFS) ParseURI(uri string) (Path, error) {
	bp, err := l.base.ParseURI(uri)
	if err != nil {
		return nil, err
	}
	return l.createLayeredPath(bp)
}

// CheckAccess verifies the path is accessible. The base side is always
// checked first: for an overlaid path the mount point itself must exist
// and be accessible in the base backend, and the overlay backend must
// additionally grant access to the overlay component.
func (l *LayerFS) CheckAccess(p Path, modes AccessMode) error {
	lp := asLayered(p)
	if err := l.base.CheckAccess(lp.base, modes); err != nil {
		return err
	}
	if lp.overlay != nil {
		return l.overlayBackend(lp).CheckAccess(lp.overlay, modes)
	}
	return nil
}

// CreateDirectory creates a directory in whichever backend owns the path.
func (l *LayerFS) CreateDirectory(p Path, perm os.FileMode) error {
	lp := asLayered(p)
	if lp.overlay != nil {
		return l.overlayBackend(lp).CreateDirectory(lp.overlay, perm)
	}
	return l.base.CreateDirectory(lp.base, perm)
}

// Delete removes a file or empty directory in whichever backend owns the
// path.
func (l *LayerFS) Delete(p Path) error {
	lp := asLayered(p)
	if lp.overlay != nil {
		return l.overlayBackend(lp).Delete(lp.overlay)
	}
	return l.base.Delete(lp.base)
}

// NewByteChannel opens a byte channel with os.O_* flags in whichever
// backend owns the path.
func (l *LayerFS) NewByteChannel(p Path, flag int, perm os.FileMode) (Channel, error) {
	lp := asLayered(p)
	l.logger.Debug("open byte channel", "path", lp.String(), "overlay", lp.overlay != nil)
	if lp.overlay != nil {
		return l.overlayBackend(lp).NewByteChannel(lp.overlay, flag, perm)
	}
	return l.base.NewByteChannel(lp.base, flag, perm)
}

// NewDirectoryStream enumerates a directory as composite paths. A folder
// inside a mount is listed by the overlay backend; the mount point itself
// (including a parent-derived path whose overlay component has collapsed)
// is listed from the overlay backend's root. The filter, if any, sees the
// wrapped composite paths.
func (l *LayerFS) NewDirectoryStream(p Path, filter Filter) (DirectoryStream, error) {
	lp := asLayered(p)
	backend := l.backendFor(lp.base)
	inOverlay := lp.overlay != nil || backend != nil

	var delegate DirectoryStream
	var err error
	if inOverlay {
		if backend == nil {
			backend = l.overlayBackend(lp)
		}
		target := lp.overlay
		if target == nil {
			target, err = backend.ParsePath(backend.Separator())
			if err != nil {
				return nil, err
			}
		}
		delegate, err = backend.NewDirectoryStream(target, nil)
	} else {
		delegate, err = l.base.NewDirectoryStream(lp.base, nil)
	}
	if err != nil {
		return nil, err
	}
	l.logger.Debug("directory stream", "path", lp.String(), "overlay", inOverlay)
	return &layeredDirectoryStream{
		folder:    lp,
		delegate:  delegate,
		inOverlay: inOverlay,
		filter:    filter,
	}, nil
}

// ToAbsolutePath resolves a relative composite path against the base
// backend's working directory and reclassifies it. Absolute paths are
// returned unchanged.
func (l *LayerFS) ToAbsolutePath(p Path) (Path, error) {
	lp := asLayered(p)
	if lp.IsAbsolute() {
		return lp, nil
	}
	if lp.overlay != nil {
		panic("layerfs: relative path carries an overlay component")
	}
	return l.createLayeredPath(l.base.ToAbsolutePath(lp.base))
}

// ToRealPath canonicalizes the path. For an overlaid path the overlay
// component is realized by its own backend; the base component stays the
// registered mount point so the result still classifies into the mount.
func (l *LayerFS) ToRealPath(p Path) (Path, error) {
	lp := asLayered(p)
	if lp.overlay != nil {
		ro, err := l.overlayBackend(lp).ToRealPath(lp.overlay)
		if err != nil {
			return nil, err
		}
		return &LayeredPath{base: lp.base, overlay: ro}, nil
	}
	rb, err := l.base.ToRealPath(lp.base)
	if err != nil {
		return nil, err
	}
	return l.createLayeredPath(rb)
}

// ReadAttributes reads attributes from whichever backend owns the path.
func (l *LayerFS) ReadAttributes(p Path, spec string) (map[string]any, error) {
	lp := asLayered(p)
	if lp.overlay != nil {
		return l.overlayBackend(lp).ReadAttributes(lp.overlay, spec)
	}
	return l.base.ReadAttributes(lp.base, spec)
}

// SetAttribute sets an attribute in whichever backend owns the path.
func (l *LayerFS) SetAttribute(p Path, name string, value any) error {
	lp := asLayered(p)
	if lp.overlay != nil {
		return l.overlayBackend(lp).SetAttribute(lp.overlay, name, value)
	}
	return l.base.SetAttribute(lp.base, name, value)
}

// CreateLink creates a hard link. Links are defined only within the base
// namespace; if either endpoint resolves into an overlay the operation
// fails with ErrCrossLayer.
func (l *LayerFS) CreateLink(link, existing Path) error {
	ll, el := asLayered(link), asLayered(existing)
	if ll.overlay != nil || el.overlay != nil {
		return &os.LinkError{Op: "link", Old: el.String(), New: ll.String(), Err: ErrCrossLayer}
	}
	return l.base.CreateLink(ll.base, el.base)
}

// CreateSymbolicLink creates a symbolic link. Like hard links, symlinks
// are defined only within the base namespace.
func (l *LayerFS) CreateSymbolicLink(link, target Path) error {
	ll, tl := asLayered(link), asLayered(target)
	if ll.overlay != nil || tl.overlay != nil {
		return &os.LinkError{Op: "symlink", Old: tl.String(), New: ll.String(), Err: ErrCrossLayer}
	}
	return l.base.CreateSymbolicLink(ll.base, tl.base)
}

// ReadSymbolicLink reads a symbolic link target in the base namespace.
func (l *LayerFS) ReadSymbolicLink(link Path) (Path, error) {
	ll := asLayered(link)
	if ll.overlay != nil {
		return nil, &os.PathError{Op: "readlink", Path: ll.String(), Err: ErrCrossLayer}
	}
	target, err := l.base.ReadSymbolicLink(ll.base)
	if err != nil {
		return nil, err
	}
	return &LayeredPath{base: target}, nil
}

// SetWorkingDirectory changes the base backend's working directory. The
// working directory must remain on the base backend; a target inside an
// overlay fails with ErrUnsupported.
func (l *LayerFS) SetWorkingDirectory(p Path) error {
	lp := asLayered(p)
	if lp.overlay != nil {
		return &os.PathError{Op: "chdir", Path: lp.String(), Err: ErrUnsupported}
	}
	return l.base.SetWorkingDirectory(lp.base)
}

// Separator returns the base backend's name separator.
func (l *LayerFS) Separator() string { return l.base.Separator() }

// PathSeparator returns the base backend's path-list separator.
func (l *LayerFS) PathSeparator() string { return l.base.PathSeparator() }

// MimeType always reports unknown; content types are not delegated.
func (l *LayerFS) MimeType(p Path) string { return "" }

// Encoding always reports unknown; encodings are not delegated.
func (l *LayerFS) Encoding(p Path) string { return "" }

// TempDirectory always delegates to the base backend.
func (l *LayerFS) TempDirectory() Path {
	return &LayeredPath{base: l.base.TempDirectory()}
}

// IsSameFile always reports false: file identity across unrelated backends
// is undefined, so this is a conservative answer, not a real identity test.
func (l *LayerFS) IsSameFile(a, b Path) bool { return false }

// Watch registers for change notification. Watching is unsupported; the
// returned handle is inert and never delivers events.
func (l *LayerFS) Watch(p Path) WatchHandle { return WatchHandle{} }
