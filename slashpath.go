package layerfs

import (
	"os"
	"strings"
)

// SlashPath is a slash-separated Path in the style of POSIX and of Go's
// path package. It is the native path type of every backend bundled with
// this module. The zero value is the empty relative path.
//
// Unlike Go's path package, a SlashPath keeps "." and ".." components until
// Normalize is called, so structural operations (Parent, Subpath,
// Relativize) see the path exactly as written.
type SlashPath struct {
	abs   bool
	names []string
}

// NewSlashPath parses a slash-separated path string. Empty segments are
// dropped; "" parses to the empty relative path and "/" to the root.
func NewSlashPath(s string) *SlashPath {
	p := &SlashPath{abs: strings.HasPrefix(s, "/")}
	for _, seg := range strings.Split(s, "/") {
		if seg != "" {
			p.names = append(p.names, seg)
		}
	}
	return p
}

// toSlash adopts an arbitrary Path into slash syntax by re-parsing its
// string form.
func toSlash(p Path) *SlashPath {
	if sp, ok := p.(*SlashPath); ok {
		return sp
	}
	return NewSlashPath(p.String())
}

func (p *SlashPath) IsAbsolute() bool { return p.abs }

func (p *SlashPath) Root() Path {
	if !p.abs {
		return nil
	}
	return &SlashPath{abs: true}
}

func (p *SlashPath) FileName() Path {
	if len(p.names) == 0 {
		return nil
	}
	return &SlashPath{names: p.names[len(p.names)-1:]}
}

func (p *SlashPath) Parent() Path {
	if len(p.names) == 0 {
		return nil
	}
	if len(p.names) == 1 && !p.abs {
		return nil
	}
	return &SlashPath{abs: p.abs, names: p.names[:len(p.names)-1]}
}

func (p *SlashPath) NameCount() int { return len(p.names) }

func (p *SlashPath) Name(i int) Path {
	return &SlashPath{names: p.names[i : i+1]}
}

func (p *SlashPath) Subpath(start, end int) Path {
	if start < 0 || end > len(p.names) || start > end {
		panic("layerfs: subpath range out of bounds")
	}
	return &SlashPath{names: p.names[start:end]}
}

func (p *SlashPath) StartsWith(other Path) bool {
	o := toSlash(other)
	if p.abs != o.abs || len(o.names) > len(p.names) {
		return false
	}
	for i, name := range o.names {
		if p.names[i] != name {
			return false
		}
	}
	return true
}

func (p *SlashPath) EndsWith(other Path) bool {
	o := toSlash(other)
	if o.abs {
		return p.Compare(o) == 0
	}
	if len(o.names) > len(p.names) {
		return false
	}
	offset := len(p.names) - len(o.names)
	for i, name := range o.names {
		if p.names[offset+i] != name {
			return false
		}
	}
	return true
}

func (p *SlashPath) Normalize() Path {
	out := make([]string, 0, len(p.names))
	for _, name := range p.names {
		switch name {
		case ".":
		case "..":
			if n := len(out); n > 0 && out[n-1] != ".." {
				out = out[:n-1]
			} else if !p.abs {
				out = append(out, "..")
			}
			// ".." at an absolute root collapses into the root
		default:
			out = append(out, name)
		}
	}
	return &SlashPath{abs: p.abs, names: out}
}

func (p *SlashPath) Resolve(other Path) Path {
	o := toSlash(other)
	if o.abs {
		return o
	}
	if len(o.names) == 0 {
		return p
	}
	names := make([]string, 0, len(p.names)+len(o.names))
	names = append(names, p.names...)
	names = append(names, o.names...)
	return &SlashPath{abs: p.abs, names: names}
}

func (p *SlashPath) Relativize(other Path) (Path, error) {
	o := toSlash(other)
	if p.abs != o.abs {
		return nil, &os.PathError{Op: "relativize", Path: o.String(), Err: ErrUnsupported}
	}
	common := 0
	for common < len(p.names) && common < len(o.names) &&
		p.names[common] == o.names[common] {
		common++
	}
	names := make([]string, 0, len(p.names)-common+len(o.names)-common)
	for range p.names[common:] {
		names = append(names, "..")
	}
	names = append(names, o.names[common:]...)
	return &SlashPath{names: names}, nil
}

func (p *SlashPath) URI() string {
	if p.abs {
		return "file://" + p.String()
	}
	return p.String()
}

func (p *SlashPath) Compare(other Path) int {
	return strings.Compare(p.String(), other.String())
}

func (p *SlashPath) String() string {
	joined := strings.Join(p.names, "/")
	if p.abs {
		return "/" + joined
	}
	return joined
}
