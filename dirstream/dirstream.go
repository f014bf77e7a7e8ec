// Package dirstream implements the directory-iteration layer: an
// immutable-snapshot DirectoryStream, and a SecureDirectoryStream that
// binds path-relative operations to a directory's inode rather than to a
// path string, so they keep working after the directory is renamed or
// moved elsewhere in the tree.
package dirstream

import (
	"github.com/google/gomemfs/inode"
	"github.com/google/gomemfs/pathutil"
	"github.com/google/gomemfs/vfserr"
)

// Filter decides whether an entry should surface during iteration. A nil
// Filter passed to New matches everything.
type Filter func(name *pathutil.Name) bool

// DirectoryStream iterates an immutable snapshot of a directory's
// user-visible entries taken at construction time.
type DirectoryStream struct {
	ps      *pathutil.PathService
	dirPath pathutil.Path
	entries []inode.Entry
	filter  Filter
	used    bool
}

// New takes an immediate snapshot of dir's entries (dir must be a
// directory inode). dirPath is the path the stream was opened against,
// used to build full paths for surfaced entries; ps builds the
// single-component relative path for each entry name.
func New(ps *pathutil.PathService, dir *inode.Inode, dirPath pathutil.Path, filter Filter) *DirectoryStream {
	if filter == nil {
		filter = func(*pathutil.Name) bool { return true }
	}
	return &DirectoryStream{
		ps:      ps,
		dirPath: dirPath,
		entries: dir.Directory().Entries(),
		filter:  filter,
	}
}

// Next is the iterator shape returned by Iterator: call repeatedly until
// ok is false.
type Next func() (path pathutil.Path, in *inode.Inode, ok bool)

// Iterator returns a pull-style iterator over the stream's snapshot,
// applying the filter lazily as Next is called. It may be called at most
// once; a second call fails UNSUPPORTED_OPERATION.
func (s *DirectoryStream) Iterator() (Next, error) {
	if s.used {
		return nil, vfserr.NewError(vfserr.UnsupportedOperation, "iterator", "")
	}
	s.used = true

	i := 0
	next := func() (pathutil.Path, *inode.Inode, bool) {
		for i < len(s.entries) {
			e := s.entries[i]
			i++
			if !s.filter(e.Name) {
				continue
			}
			p, err := s.childPath(e.Name)
			if err != nil {
				continue
			}
			return p, e.Inode, true
		}
		return pathutil.Path{}, nil, false
	}
	return next, nil
}

func (s *DirectoryStream) childPath(n *pathutil.Name) (pathutil.Path, error) {
	child, err := s.ps.Parse(n.String())
	if err != nil {
		return pathutil.Path{}, err
	}
	return s.dirPath.Resolve(child), nil
}
