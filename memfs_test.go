package memfs_test

import (
	"testing"
	"time"

	"github.com/google/gomemfs/inode"
	"github.com/google/gomemfs/tree"
	"github.com/google/gomemfs/vfschan"
	"github.com/google/gomemfs/vfserr"
	"github.com/google/gomemfs/watch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	memfs "github.com/google/gomemfs"
)

type fakeClock struct{ now time.Time }

func newFakeClock() *fakeClock { return &fakeClock{now: time.Unix(1000000, 0)} }

func (c *fakeClock) Now() time.Time {
	c.now = c.now.Add(time.Millisecond)
	return c.now
}

func newUnixView(t *testing.T) *memfs.FileSystemView {
	cfg := memfs.UnixConfiguration()
	cfg.Clock = newFakeClock()
	v, err := memfs.New(cfg)
	require.NoError(t, err)
	return v
}

func TestNewCreatesWorkingDirectory(t *testing.T) {
	v := newUnixView(t)

	wd := v.WorkingDirectory()
	assert.Equal(t, "/work", wd.String())

	in, err := v.Lookup(wd, tree.Follow)
	require.NoError(t, err)
	assert.True(t, in.IsDirectory())
}

func TestCreateWriteReadRoundTrip(t *testing.T) {
	v := newUnixView(t)

	p, err := v.GetPath("greeting.txt")
	require.NoError(t, err)

	_, err = v.CreateFile(p, nil)
	require.NoError(t, err)

	ch, err := v.OpenChannel(p, memfs.ChannelOptions{
		OpenOptions: vfschan.OpenOptions{Read: true, Write: true},
		Follow:      tree.Follow,
	}, nil)
	require.NoError(t, err)
	defer ch.Close()

	n, err := ch.Write([]byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	require.NoError(t, ch.SetPosition(0))
	buf := make([]byte, 5)
	n, err = ch.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(buf[:n]))
}

func TestOpenChannelCreateIfMissing(t *testing.T) {
	v := newUnixView(t)

	p, err := v.GetPath("new.txt")
	require.NoError(t, err)

	_, err = v.Lookup(p, tree.Follow)
	require.Error(t, err)

	ch, err := v.OpenChannel(p, memfs.ChannelOptions{
		OpenOptions: vfschan.OpenOptions{Write: true},
		Create:      true,
		Follow:      tree.Follow,
	}, nil)
	require.NoError(t, err)
	defer ch.Close()

	in, err := v.Lookup(p, tree.Follow)
	require.NoError(t, err)
	assert.True(t, in.IsRegular())
}

func TestOpenChannelCreateNewFailsIfExists(t *testing.T) {
	v := newUnixView(t)

	p, err := v.GetPath("dup.txt")
	require.NoError(t, err)
	_, err = v.CreateFile(p, nil)
	require.NoError(t, err)

	_, err = v.OpenChannel(p, memfs.ChannelOptions{
		OpenOptions: vfschan.OpenOptions{Write: true},
		CreateNew:   true,
		Follow:      tree.Follow,
	}, nil)
	require.Error(t, err)
	code, ok := vfserr.CodeOf(err)
	require.True(t, ok)
	assert.Equal(t, vfserr.AlreadyExists, code)
}

func TestDeleteThenLookupFails(t *testing.T) {
	v := newUnixView(t)

	p, err := v.GetPath("gone.txt")
	require.NoError(t, err)
	_, err = v.CreateFile(p, nil)
	require.NoError(t, err)

	require.NoError(t, v.Delete(p, tree.DeleteAny))

	_, err = v.Lookup(p, tree.Follow)
	require.Error(t, err)
	code, ok := vfserr.CodeOf(err)
	require.True(t, ok)
	assert.Equal(t, vfserr.NotFound, code)
}

func TestHardLinkSurvivesOriginalDelete(t *testing.T) {
	v := newUnixView(t)

	existing, err := v.GetPath("original.txt")
	require.NoError(t, err)
	_, err = v.CreateFile(existing, nil)
	require.NoError(t, err)

	link, err := v.GetPath("alias.txt")
	require.NoError(t, err)
	require.NoError(t, v.Link(link, existing))

	require.NoError(t, v.Delete(existing, tree.DeleteAny))

	in, err := v.Lookup(link, tree.Follow)
	require.NoError(t, err)
	assert.True(t, in.IsRegular())
}

func TestSymlinkReadBack(t *testing.T) {
	v := newUnixView(t)

	target, err := v.GetPath("target.txt")
	require.NoError(t, err)
	_, err = v.CreateFile(target, nil)
	require.NoError(t, err)

	link, err := v.GetPath("link.txt")
	require.NoError(t, err)
	require.NoError(t, v.Symlink(link, target))

	got, err := v.ReadSymlink(link)
	require.NoError(t, err)
	assert.Equal(t, target.String(), got.String())

	resolved, err := v.Lookup(link, tree.Follow)
	require.NoError(t, err)
	assert.True(t, resolved.IsRegular())
}

func TestRenameDirectoryIntoDescendantFails(t *testing.T) {
	v := newUnixView(t)

	x, err := v.GetPath("x")
	require.NoError(t, err)
	_, err = v.CreateDirectory(x, nil)
	require.NoError(t, err)

	y, err := v.GetPath("x/y")
	require.NoError(t, err)
	_, err = v.CreateDirectory(y, nil)
	require.NoError(t, err)

	dst, err := v.GetPath("x/y/z")
	require.NoError(t, err)
	err = v.Move(x, dst, tree.RenameOptions{})
	require.Error(t, err)
	code, ok := vfserr.CodeOf(err)
	require.True(t, ok)
	assert.Equal(t, vfserr.InvalidArgument, code)
}

func TestCopyRecursiveDescendsIntoDirectories(t *testing.T) {
	v := newUnixView(t)

	src, err := v.GetPath("src")
	require.NoError(t, err)
	_, err = v.CreateDirectory(src, nil)
	require.NoError(t, err)

	nested, err := v.GetPath("src/nested")
	require.NoError(t, err)
	_, err = v.CreateDirectory(nested, nil)
	require.NoError(t, err)

	file, err := v.GetPath("src/nested/f.txt")
	require.NoError(t, err)
	in, err := v.CreateFile(file, nil)
	require.NoError(t, err)
	store := in.ByteStore()
	_, err = store.Write(0, []byte("data"))
	require.NoError(t, err)

	dst, err := v.GetPath("dst")
	require.NoError(t, err)
	require.NoError(t, v.CopyRecursive(src, dst, tree.CopyOptions{}))

	copiedFile, err := v.GetPath("dst/nested/f.txt")
	require.NoError(t, err)
	copiedInode, err := v.Lookup(copiedFile, tree.Follow)
	require.NoError(t, err)
	assert.True(t, copiedInode.IsRegular())

	buf := make([]byte, 4)
	n, err := copiedInode.ByteStore().Read(0, buf)
	require.NoError(t, err)
	assert.Equal(t, "data", string(buf[:n]))
}

func TestDirectoryStreamListsEntries(t *testing.T) {
	v := newUnixView(t)

	for _, name := range []string{"a.txt", "b.txt"} {
		p, err := v.GetPath(name)
		require.NoError(t, err)
		_, err = v.CreateFile(p, nil)
		require.NoError(t, err)
	}

	dot, err := v.GetPath(".")
	require.NoError(t, err)
	stream, err := v.NewDirectoryStream(dot, nil)
	require.NoError(t, err)

	next, err := stream.Iterator()
	require.NoError(t, err)

	var names []string
	for {
		p, _, ok := next()
		if !ok {
			break
		}
		fileName, _ := p.GetFileName()
		names = append(names, fileName.String())
	}
	assert.ElementsMatch(t, []string{"a.txt", "b.txt"}, names)
}

func TestSecureDirectoryStreamSurvivesMove(t *testing.T) {
	v := newUnixView(t)

	dirPath, err := v.GetPath("movable")
	require.NoError(t, err)
	_, err = v.CreateDirectory(dirPath, nil)
	require.NoError(t, err)

	filePath, err := v.GetPath("movable/inside.txt")
	require.NoError(t, err)
	_, err = v.CreateFile(filePath, nil)
	require.NoError(t, err)

	secure, err := v.NewSecureDirectoryStream(dirPath, nil)
	require.NoError(t, err)

	renamed, err := v.GetPath("relocated")
	require.NoError(t, err)
	require.NoError(t, v.Move(dirPath, renamed, tree.RenameOptions{}))

	ch, err := secure.NewByteChannel("inside.txt", vfschan.OpenOptions{Read: true})
	require.NoError(t, err)
	ch.Close()
}

func TestWatchServiceObservesCreate(t *testing.T) {
	v := newUnixView(t)

	dot, err := v.GetPath(".")
	require.NoError(t, err)
	key, err := v.Register(dot, []watch.EventKind{watch.Create, watch.Delete, watch.Modify})
	require.NoError(t, err)

	p, err := v.GetPath("watched.txt")
	require.NoError(t, err)
	_, err = v.CreateFile(p, nil)
	require.NoError(t, err)

	v.PollNow()

	assert.Equal(t, watch.Signalled, key.State())
	events := key.PollEvents()
	require.Len(t, events, 1)
	assert.Equal(t, watch.Create, events[0].Kind)
	assert.Equal(t, "watched.txt", events[0].Name)

	require.True(t, key.Reset())
	assert.Equal(t, watch.Ready, key.State())

	require.NoError(t, v.Delete(p, tree.DeleteAny))
	v.PollNow()
	assert.Equal(t, watch.Signalled, key.State())
	events = key.PollEvents()
	require.Len(t, events, 1)
	assert.Equal(t, watch.Delete, events[0].Kind)
}

func TestAttributeRoundTrip(t *testing.T) {
	v := newUnixView(t)

	p, err := v.GetPath("attributed.txt")
	require.NoError(t, err)
	_, err = v.CreateFile(p, nil)
	require.NoError(t, err)

	view, err := v.GetAttributeView(p, "posix", tree.Follow)
	require.NoError(t, err)
	require.NoError(t, view.Set("permissions", inode.PermissionSet(0)))

	got, err := view.Get("permissions")
	require.NoError(t, err)
	assert.Equal(t, inode.PermissionSet(0), got)
}

func TestGrantEphemeralAccessMintsUniquePrincipal(t *testing.T) {
	cfg := memfs.UnixConfiguration()
	cfg.Clock = newFakeClock()
	cfg.AttributeViews = append(cfg.AttributeViews, "acl")
	v, err := memfs.New(cfg)
	require.NoError(t, err)

	p, err := v.GetPath("shared.txt")
	require.NoError(t, err)
	_, err = v.CreateFile(p, nil)
	require.NoError(t, err)

	first, err := v.GrantEphemeralAccess(p, inode.AclAllow, inode.PermissionSet(0), 0, tree.Follow)
	require.NoError(t, err)
	second, err := v.GrantEphemeralAccess(p, inode.AclAllow, inode.PermissionSet(0), 0, tree.Follow)
	require.NoError(t, err)
	assert.NotEmpty(t, first)
	assert.NotEqual(t, first, second)

	view, err := v.GetAttributeView(p, "acl", tree.Follow)
	require.NoError(t, err)
	raw, err := view.Get("acl")
	require.NoError(t, err)
	entries, ok := raw.([]inode.AclEntry)
	require.True(t, ok)
	require.Len(t, entries, 2)
	assert.Equal(t, first, entries[0].Principal)
	assert.Equal(t, second, entries[1].Principal)
}

func TestSetGroupGatedByFeature(t *testing.T) {
	v := newUnixView(t)
	p, err := v.GetPath("grouped.txt")
	require.NoError(t, err)
	_, err = v.CreateFile(p, nil)
	require.NoError(t, err)
	require.NoError(t, v.SetGroup(p, "staff", tree.Follow))

	cfg := memfs.WindowsConfiguration()
	cfg.Clock = newFakeClock()
	win, err := memfs.New(cfg)
	require.NoError(t, err)
	wp, err := win.GetPath("grouped.txt")
	require.NoError(t, err)
	_, err = win.CreateFile(wp, nil)
	require.NoError(t, err)

	err = win.SetGroup(wp, "staff", tree.Follow)
	require.Error(t, err)
	code, ok := vfserr.CodeOf(err)
	require.True(t, ok)
	assert.Equal(t, vfserr.UnsupportedOperation, code)
}

func TestCloseFailsSubsequentOperations(t *testing.T) {
	v := newUnixView(t)
	require.NoError(t, v.Close())

	_, err := v.GetPath("anything")
	require.NoError(t, err) // path parsing does not touch the tree

	p, err := v.GetPath("anything")
	require.NoError(t, err)
	_, err = v.Lookup(p, tree.Follow)
	require.Error(t, err)
	code, ok := vfserr.CodeOf(err)
	require.True(t, ok)
	assert.Equal(t, vfserr.FileSystemClosed, code)
}

func TestWindowsConfigurationCaseInsensitiveNames(t *testing.T) {
	cfg := memfs.WindowsConfiguration()
	cfg.Clock = newFakeClock()
	v, err := memfs.New(cfg)
	require.NoError(t, err)

	lower, err := v.GetPath("Readme.txt")
	require.NoError(t, err)
	_, err = v.CreateFile(lower, nil)
	require.NoError(t, err)

	upper, err := v.GetPath("README.TXT")
	require.NoError(t, err)
	in, err := v.Lookup(upper, tree.Follow)
	require.NoError(t, err)
	assert.True(t, in.IsRegular())
}
