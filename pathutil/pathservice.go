package pathutil

import "strings"

// PathService creates canonical Path values for a fixed PathType and
// normalization policy. Glob/regex matching is provided separately by
// CompilePattern.
type PathService struct {
	pt   PathType
	norm Normalizer
}

// NewPathService builds a PathService for the given flavor and name
// canonicalization policy. A nil normalizer means no canonicalization:
// names compare equal only when their display strings are identical.
func NewPathService(pt PathType, norm Normalizer) *PathService {
	return &PathService{pt: pt, norm: norm}
}

// PathType returns the flavor this service was built with.
func (s *PathService) PathType() PathType { return s.pt }

// Parse concatenates first with the elements of more using the canonical
// separator, then asks the PathType to split it into a root and sequence
// of names. Empty input produces a relative path with no root and zero
// names; it does not hold a single empty-string name.
func (s *PathService) Parse(first string, more ...string) (Path, error) {
	var b strings.Builder
	b.WriteString(first)
	for _, m := range more {
		if b.Len() > 0 && m != "" {
			b.WriteByte(s.pt.Separator())
		}
		b.WriteString(m)
	}

	root, segs, err := s.pt.ParsePath(b.String())
	if err != nil {
		return Path{}, err
	}

	var rootName *Name
	if root != "" {
		rootName = &Name{display: root, canonical: root}
	}

	names := make([]*Name, len(segs))
	for i, seg := range segs {
		names[i] = NewName(seg, s.norm)
	}

	return newPath(s.pt, s.norm, rootName, names), nil
}

// Name builds a single Name component using this service's normalization
// policy, for callers assembling a Path without going through Parse (e.g.
// the tree package naming a freshly created child).
func (s *PathService) Name(raw string) *Name { return NewName(raw, s.norm) }

// EmptyPath returns the canonical empty relative path.
func (s *PathService) EmptyPath() Path { return newPath(s.pt, s.norm, nil, nil) }

// RootPath returns the absolute path consisting of only the given root.
func (s *PathService) RootPath(root string) Path {
	return newPath(s.pt, s.norm, &Name{display: root, canonical: root}, nil)
}
