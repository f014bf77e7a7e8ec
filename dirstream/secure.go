package dirstream

import (
	"github.com/google/gomemfs/inode"
	"github.com/google/gomemfs/pathutil"
	"github.com/google/gomemfs/tree"
	"github.com/google/gomemfs/vfschan"
)

// SecureDirectoryStream additionally supports path-relative operations
// bound to the directory's own inode, so that a name resolved through it
// keeps meaning the same thing even after the directory itself is renamed
// or moved elsewhere in the tree — only the inode's continued liveness
// matters, not any path string.
type SecureDirectoryStream struct {
	*DirectoryStream
	tree *tree.FileTree
	dir  *inode.Inode
}

// NewSecure wraps New, additionally binding path-relative operations to
// dir within ft.
func NewSecure(ft *tree.FileTree, ps *pathutil.PathService, dir *inode.Inode, dirPath pathutil.Path, filter Filter) *SecureDirectoryStream {
	return &SecureDirectoryStream{
		DirectoryStream: New(ps, dir, dirPath, filter),
		tree:            ft,
		dir:             dir,
	}
}

func (s *SecureDirectoryStream) rel(name string) (pathutil.Path, error) {
	return s.ps.Parse(name)
}

// NewByteChannel opens a channel onto the existing file named name within
// this stream's directory.
func (s *SecureDirectoryStream) NewByteChannel(name string, opts vfschan.OpenOptions) (*vfschan.SeekableByteChannel, error) {
	p, err := s.rel(name)
	if err != nil {
		return nil, err
	}
	in, err := s.tree.Lookup(s.dir, p, tree.Follow)
	if err != nil {
		return nil, err
	}
	return vfschan.NewSeekableByteChannel(in, opts)
}

// DeleteFile unlinks the non-directory entry named name within this
// stream's directory.
func (s *SecureDirectoryStream) DeleteFile(name string) error {
	p, err := s.rel(name)
	if err != nil {
		return err
	}
	return s.tree.Delete(s.dir, p, tree.DeleteNonDirOnly)
}

// DeleteDirectory unlinks the (empty) directory entry named name within
// this stream's directory.
func (s *SecureDirectoryStream) DeleteDirectory(name string) error {
	p, err := s.rel(name)
	if err != nil {
		return err
	}
	return s.tree.Delete(s.dir, p, tree.DeleteDirOnly)
}

// Move renames oldName to newName within this stream's directory. Moving
// into a different SecureDirectoryStream's directory is a façade-layer
// composition (resolve both names' parents, then a cross-parent rename),
// not exposed here; the CORE's Rename already resolves both source and
// destination relative to one starting inode, which a
// single bound directory naturally provides for the same-directory case.
func (s *SecureDirectoryStream) Move(oldName, newName string, opts tree.RenameOptions) error {
	src, err := s.rel(oldName)
	if err != nil {
		return err
	}
	dst, err := s.rel(newName)
	if err != nil {
		return err
	}
	return s.tree.Rename(s.dir, src, dst, opts)
}

// NewDirectoryStream opens a (non-secure) stream over the subdirectory
// named name within this stream's directory.
func (s *SecureDirectoryStream) NewDirectoryStream(name string, filter Filter) (*DirectoryStream, error) {
	p, err := s.rel(name)
	if err != nil {
		return nil, err
	}
	in, err := s.tree.Lookup(s.dir, p, tree.Follow)
	if err != nil {
		return nil, err
	}
	childPath := s.dirPath.Resolve(p)
	return New(s.ps, in, childPath, filter), nil
}

// GetFileAttributeView returns a handle for reading/writing the named
// view's attributes on the entry named name within this stream's
// directory.
func (s *SecureDirectoryStream) GetFileAttributeView(name, view string, follow tree.FollowMode) (*inode.AttributeView, error) {
	p, err := s.rel(name)
	if err != nil {
		return nil, err
	}
	in, err := s.tree.Lookup(s.dir, p, follow)
	if err != nil {
		return nil, err
	}
	return s.tree.Attributes().View(in, view)
}
