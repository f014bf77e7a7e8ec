package pathutil

import (
	"github.com/google/gomemfs/vfserr"
)

// Path is an immutable value: an optional root Name and an ordered
// sequence of non-root Names. Absolute iff root is present.
type Path struct {
	pt    PathType
	norm  Normalizer
	root  *Name // nil if relative
	names []*Name
}

// newPath is the one constructor every other Path-producing method routes
// through, so the normalizer/PathType stay attached.
func newPath(pt PathType, norm Normalizer, root *Name, names []*Name) Path {
	return Path{pt: pt, norm: norm, root: root, names: names}
}

// IsAbsolute reports whether the path has a root component.
func (p Path) IsAbsolute() bool { return p.root != nil }

// Root returns the root Name and true, or (nil, false) if relative.
func (p Path) Root() (*Name, bool) {
	if p.root == nil {
		return nil, false
	}
	return p.root, true
}

// NameCount returns the number of non-root name components.
func (p Path) NameCount() int { return len(p.names) }

// GetName returns the i'th non-root name component.
func (p Path) GetName(i int) *Name { return p.names[i] }

// Subpath returns the slice of names [b, e) as a new relative path.
func (p Path) Subpath(b, e int) Path {
	names := make([]*Name, e-b)
	copy(names, p.names[b:e])
	return newPath(p.pt, p.norm, nil, names)
}

// GetParent returns the parent path and true, or (zero, false) if this
// path has no parent (it is a root, or an empty/single-component relative
// path).
func (p Path) GetParent() (Path, bool) {
	if len(p.names) == 0 {
		return Path{}, false
	}
	if len(p.names) == 1 && p.root == nil {
		return Path{}, false
	}
	return newPath(p.pt, p.norm, p.root, p.names[:len(p.names)-1]), true
}

// GetFileName returns the last name component and true, or (nil, false)
// if this path is a bare root with no names.
func (p Path) GetFileName() (*Name, bool) {
	if len(p.names) == 0 {
		return nil, false
	}
	return p.names[len(p.names)-1], true
}

// Normalize collapses "." and ".." components. Normalizing an absolute
// path never escapes the root: leading ".." components on an absolute
// path are dropped rather than producing a path above the root.
func (p Path) Normalize() Path {
	var out []*Name
	for _, n := range p.names {
		switch {
		case n.IsDot():
			continue
		case n.IsDotDot():
			if len(out) > 0 && !out[len(out)-1].IsDotDot() {
				out = out[:len(out)-1]
				continue
			}
			if p.root != nil {
				// Absolute: drop, never escape the root.
				continue
			}
			out = append(out, n)
		default:
			out = append(out, n)
		}
	}
	return newPath(p.pt, p.norm, p.root, out)
}

// Resolve resolves other against p following the usual rules: if other is
// absolute, it is returned; if other is the empty relative path, p is
// returned; otherwise the result is p's names followed by other's names,
// keeping p's root.
func (p Path) Resolve(other Path) Path {
	if other.IsAbsolute() {
		return other
	}
	if len(other.names) == 0 {
		return p
	}
	names := make([]*Name, 0, len(p.names)+len(other.names))
	names = append(names, p.names...)
	names = append(names, other.names...)
	return newPath(p.pt, p.norm, p.root, names)
}

// ResolveSibling resolves other against p's parent.
func (p Path) ResolveSibling(other Path) Path {
	parent, ok := p.GetParent()
	if !ok {
		return other
	}
	return parent.Resolve(other)
}

// Relativize computes a relative path r such that p.Resolve(r) denotes the
// same path as other, after normalization. Requires both paths to be
// absolute or both relative, and (if absolute) to share a root.
func (p Path) Relativize(other Path) (Path, error) {
	if p.IsAbsolute() != other.IsAbsolute() {
		return Path{}, vfserr.NewError(vfserr.InvalidArgument, "relativize", "")
	}
	if p.IsAbsolute() && !p.root.Equal(other.root) {
		return Path{}, vfserr.NewError(vfserr.InvalidArgument, "relativize", "")
	}

	a := p.Normalize()
	b := other.Normalize()

	common := 0
	for common < len(a.names) && common < len(b.names) && a.names[common].Equal(b.names[common]) {
		common++
	}

	var names []*Name
	for i := common; i < len(a.names); i++ {
		names = append(names, DotDot())
	}
	names = append(names, b.names[common:]...)

	return newPath(p.pt, p.norm, nil, names), nil
}

// StartsWith reports whether p begins with the same root (if any) and the
// same leading sequence of name components as other: component-wise, not
// a prefix-string comparison.
func (p Path) StartsWith(other Path) bool {
	if p.IsAbsolute() != other.IsAbsolute() {
		return false
	}
	if p.IsAbsolute() && !p.root.Equal(other.root) {
		return false
	}
	if len(other.names) > len(p.names) {
		return false
	}
	for i, n := range other.names {
		if !p.names[i].Equal(n) {
			return false
		}
	}
	return true
}

// EndsWith reports whether p ends with the same sequence of name
// components as other, component-wise. If other is absolute it must equal
// p exactly (root and all).
func (p Path) EndsWith(other Path) bool {
	if other.IsAbsolute() {
		return p.IsAbsolute() && p.root.Equal(other.root) &&
			len(p.names) == len(other.names) && p.StartsWith(other)
	}
	if len(other.names) > len(p.names) {
		return false
	}
	offset := len(p.names) - len(other.names)
	for i, n := range other.names {
		if !p.names[offset+i].Equal(n) {
			return false
		}
	}
	return true
}

// Format renders the path to its string form using the attached PathType.
func (p Path) Format() string {
	root := ""
	if p.root != nil {
		root = p.root.String()
	}
	names := make([]string, len(p.names))
	for i, n := range p.names {
		names[i] = n.String()
	}
	return p.pt.FormatPath(root, names)
}

func (p Path) String() string { return p.Format() }

// Equal reports whether p and other have the same root (if any) and the
// same sequence of names, component-wise.
func (p Path) Equal(other Path) bool {
	if p.IsAbsolute() != other.IsAbsolute() {
		return false
	}
	if p.IsAbsolute() && !p.root.Equal(other.root) {
		return false
	}
	if len(p.names) != len(other.names) {
		return false
	}
	for i, n := range p.names {
		if !n.Equal(other.names[i]) {
			return false
		}
	}
	return true
}
