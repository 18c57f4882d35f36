package layerfs

import (
	"os"
)

// LayeredPath is a composite path: a location in the base namespace paired
// with an optional location inside a mounted overlay backend. When the
// overlay component is present, the base component is exactly the mount
// point that owns the overlay, and the overlay component is an absolute
// path in the overlay backend's own namespace.
//
// LayeredPath values are immutable and are created by LayerFS (parsing,
// resolution, directory enumeration) or derived from other LayeredPaths.
type LayeredPath struct {
	base    Path
	overlay Path
}

// asLayered coerces a Path into a LayeredPath. Foreign paths are treated as
// pure base-namespace locations.
func asLayered(p Path) *LayeredPath {
	if lp, ok := p.(*LayeredPath); ok {
		return lp
	}
	return &LayeredPath{base: p}
}

// isRoot reports whether p is the root of its namespace.
func isRoot(p Path) bool {
	return p != nil && p.IsAbsolute() && p.NameCount() == 0
}

// Base returns the base-namespace component.
func (p *LayeredPath) Base() Path { return p.base }

// Overlay returns the overlay-namespace component, or nil when the path
// lies outside every mount.
func (p *LayeredPath) Overlay() Path { return p.overlay }

// InOverlay reports whether the path has crossed into a mounted overlay.
func (p *LayeredPath) InOverlay() bool { return p.overlay != nil }

// IsAbsolute delegates to the base component.
func (p *LayeredPath) IsAbsolute() bool { return p.base.IsAbsolute() }

// Root returns the base namespace's root, with no overlay component.
func (p *LayeredPath) Root() Path {
	root := p.base.Root()
	if root == nil {
		return nil
	}
	return &LayeredPath{base: root}
}

// FileName returns the last name component. For an overlaid path this is
// the overlay's last name re-expressed in base syntax; for the mount point
// itself (overlay at its root) it is the mount point's own last name.
func (p *LayeredPath) FileName() Path {
	if p.overlay != nil {
		if fn := p.overlay.FileName(); fn != nil {
			return &LayeredPath{base: p.adoptToBase(fn)}
		}
	}
	fn := p.base.FileName()
	if fn == nil {
		return nil
	}
	return &LayeredPath{base: fn}
}

// Parent returns the structural parent. The parent chain of an overlaid
// path collapses back to the pure mount point once the overlay component
// reaches the overlay root.
func (p *LayeredPath) Parent() Path {
	if p.overlay != nil {
		op := p.overlay.Parent()
		if op == nil || isRoot(op) {
			return &LayeredPath{base: p.base}
		}
		return &LayeredPath{base: p.base, overlay: op}
	}
	bp := p.base.Parent()
	if bp == nil {
		return nil
	}
	return &LayeredPath{base: bp}
}

// NameCount returns the number of name components across the concatenated
// base and overlay sequences. Roots are never counted.
func (p *LayeredPath) NameCount() int {
	count := p.base.NameCount()
	if p.overlay != nil {
		count += p.overlay.NameCount()
	}
	return count
}

// Name returns the name component at index i of the concatenated sequence.
// Indices at or past the base's name count select from the overlay's own
// name sequence, shifted down by the base's name count.
func (p *LayeredPath) Name(i int) Path {
	bc := p.base.NameCount()
	if i < bc {
		return &LayeredPath{base: p.base.Name(i)}
	}
	if p.overlay == nil {
		panic("layerfs: name index out of bounds")
	}
	return &LayeredPath{base: p.adoptToBase(p.overlay.Name(i - bc))}
}

// Subpath returns the relative path holding components [start, end) of the
// concatenated sequence. Ranges may lie in the base, in the overlay, or
// span the boundary; the overlay side uses the same base-shifted indexing
// as Name.
func (p *LayeredPath) Subpath(start, end int) Path {
	if start < 0 || end > p.NameCount() || start > end {
		panic("layerfs: subpath range out of bounds")
	}
	bc := p.base.NameCount()
	switch {
	case end <= bc:
		return &LayeredPath{base: p.base.Subpath(start, end)}
	case start >= bc:
		return &LayeredPath{base: p.adoptToBase(p.overlay.Subpath(start-bc, end-bc))}
	default:
		head := p.base.Subpath(start, bc)
		tail := p.adoptToBase(p.overlay.Subpath(0, end-bc))
		return &LayeredPath{base: head.Resolve(tail)}
	}
}

// StartsWith reports whether the path begins with other: the base must
// start with other's base, and if other carries an overlay this path must
// carry one that starts with it.
func (p *LayeredPath) StartsWith(other Path) bool {
	o := asLayered(other)
	if !p.base.StartsWith(o.base) {
		return false
	}
	if o.overlay == nil {
		return true
	}
	if p.overlay == nil {
		return false
	}
	return p.overlay.StartsWith(o.overlay)
}

// EndsWith reports whether the path ends with other. An absolute other
// matches only by exact equality; a relative other is compared name by
// name from the tail using the unified Name indexing.
func (p *LayeredPath) EndsWith(other Path) bool {
	o := asLayered(other)
	if o.IsAbsolute() {
		return p.Compare(o) == 0
	}
	pc, oc := p.NameCount(), o.NameCount()
	if pc < oc {
		return false
	}
	for i := 1; i <= oc; i++ {
		if p.Name(pc-i).Compare(o.Name(oc-i)) != 0 {
			return false
		}
	}
	return true
}

// Normalize normalizes the base and overlay components independently.
func (p *LayeredPath) Normalize() Path {
	lp := &LayeredPath{base: p.base.Normalize()}
	if p.overlay != nil {
		lp.overlay = p.overlay.Normalize()
	}
	return lp
}

// Resolve resolves other against this path. An absolute other wins
// outright. Relative paths never carry overlay state; Resolve panics if
// given one, since such a value can only come from a broken invariant.
func (p *LayeredPath) Resolve(other Path) Path {
	o := asLayered(other)
	if o.base.IsAbsolute() {
		return o
	}
	if o.overlay != nil {
		panic("layerfs: relative path carries an overlay component")
	}
	if p.overlay == nil {
		return &LayeredPath{base: p.base.Resolve(o.base)}
	}
	return &LayeredPath{
		base:    p.base,
		overlay: p.overlay.Resolve(p.adoptToOverlay(o.base)),
	}
}

// Relativize returns the relative path from this path to other. Paths on
// different mounts, or an overlaid path relativized against a pure one,
// cannot be related and fail with ErrCrossLayer.
func (p *LayeredPath) Relativize(other Path) (Path, error) {
	o := asLayered(other)
	switch {
	case p.overlay == nil && o.overlay == nil:
		rel, err := p.base.Relativize(o.base)
		if err != nil {
			return nil, err
		}
		return &LayeredPath{base: rel}, nil

	case p.overlay == nil:
		// Pure base to a point inside a mount: relativize to the mount
		// point, then descend along the overlay as trailing segments.
		rel, err := p.base.Relativize(o.base)
		if err != nil {
			return nil, err
		}
		ovRel, err := o.overlay.Root().Relativize(o.overlay)
		if err != nil {
			return nil, err
		}
		return &LayeredPath{base: rel.Resolve(ovRel)}, nil

	case o.overlay != nil && p.base.Compare(o.base) == 0:
		rel, err := p.overlay.Relativize(o.overlay)
		if err != nil {
			return nil, err
		}
		return &LayeredPath{base: p.adoptToBase(rel)}, nil

	default:
		return nil, &os.PathError{Op: "relativize", Path: o.String(), Err: ErrCrossLayer}
	}
}

// URI returns the base component's URI, or for an overlaid path an
// archive-style URI embedding the base URI and the overlay's absolute path.
func (p *LayeredPath) URI() string {
	uri := p.base.URI()
	if p.overlay != nil {
		uri = "zip:" + uri + "!" + p.overlay.String()
	}
	return uri
}

// Compare orders composite paths lexicographically: by base first; for
// equal bases a pure path sorts strictly before any overlaid path, and two
// overlaid paths compare by their overlay components.
func (p *LayeredPath) Compare(other Path) int {
	o := asLayered(other)
	if res := p.base.Compare(o.base); res != 0 {
		return res
	}
	switch {
	case p.overlay == nil && o.overlay == nil:
		return 0
	case p.overlay == nil:
		return -1
	case o.overlay == nil:
		return 1
	default:
		return p.overlay.Compare(o.overlay)
	}
}

// Equal reports whether the two paths are equal under Compare.
func (p *LayeredPath) Equal(other Path) bool { return p.Compare(other) == 0 }

// String concatenates the base and overlay string forms, which yields the
// path as the caller originally spelled it in the base namespace.
func (p *LayeredPath) String() string {
	s := p.base.String()
	if p.overlay != nil {
		s += p.overlay.String()
	}
	return s
}

// adoptToBase re-expresses a name or relative path from the overlay
// namespace in base syntax by round-tripping it through the base side's
// own parser: resolve against the base root, then relativize back. This
// honors the destination namespace's separator and escaping rules instead
// of doing string surgery.
func (p *LayeredPath) adoptToBase(q Path) Path {
	root := p.base.Root()
	if root == nil {
		panic("layerfs: adopt across namespaces requires an absolute base")
	}
	rel, err := root.Relativize(root.Resolve(q))
	if err != nil {
		panic("layerfs: adopt to base: " + err.Error())
	}
	return rel
}

// adoptToOverlay is the inverse adoption, into the overlay namespace.
func (p *LayeredPath) adoptToOverlay(q Path) Path {
	root := p.overlay.Root()
	if root == nil {
		panic("layerfs: overlay component has no root")
	}
	rel, err := root.Relativize(root.Resolve(q))
	if err != nil {
		panic("layerfs: adopt to overlay: " + err.Error())
	}
	return rel
}
