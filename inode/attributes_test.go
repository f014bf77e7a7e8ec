package inode_test

import (
	"testing"
	"time"

	"github.com/google/gomemfs/inode"
	"github.com/google/gomemfs/pathutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newService() *inode.Service {
	return inode.NewService(
		inode.BasicProvider{},
		inode.OwnerProvider{},
		inode.PosixProvider{},
		inode.NewUnixProvider(),
		inode.DosProvider{},
		inode.AclProvider{},
		inode.UserProvider{},
	)
}

func TestBasicAttributesReflectType(t *testing.T) {
	clock := newFakeClock()
	svc := newService()

	dir := inode.New(1, inode.Directory, clock, 0, pathutil.Path{})
	require.NoError(t, svc.SetInitialAttributes(dir, nil))

	v, err := svc.GetAttribute(dir, "basic:isDirectory")
	require.NoError(t, err)
	assert.Equal(t, true, v)

	v, err = svc.GetAttribute(dir, "basic:isRegularFile")
	require.NoError(t, err)
	assert.Equal(t, false, v)
}

func TestBasicTimesAreSettable(t *testing.T) {
	clock := newFakeClock()
	svc := newService()
	f := inode.New(1, inode.Regular, clock, 0, pathutil.Path{})
	require.NoError(t, svc.SetInitialAttributes(f, nil))

	want := time.Unix(12345, 0)
	require.NoError(t, svc.SetAttribute(f, "basic:lastModifiedTime", want, false))

	v, err := svc.GetAttribute(f, "basic:lastModifiedTime")
	require.NoError(t, err)
	got := v.(time.Time)
	assert.Equal(t, want.UnixMilli(), got.UnixMilli())
}

func TestBasicSizeAttributeIsReadOnly(t *testing.T) {
	clock := newFakeClock()
	svc := newService()
	f := inode.New(1, inode.Regular, clock, 0, pathutil.Path{})
	require.NoError(t, svc.SetInitialAttributes(f, nil))

	err := svc.SetAttribute(f, "basic:size", int64(5), false)
	assert.Error(t, err)
}

func TestPosixPermissionsDefaultAndSettable(t *testing.T) {
	clock := newFakeClock()
	svc := newService()
	f := inode.New(1, inode.Regular, clock, 0, pathutil.Path{})
	require.NoError(t, svc.SetInitialAttributes(f, nil))

	v, err := svc.GetAttribute(f, "posix:permissions")
	require.NoError(t, err)
	assert.Equal(t, inode.DefaultFilePermissions, v)

	newPerms := inode.PermissionSet(inode.OwnerRead | inode.OwnerWrite)
	require.NoError(t, svc.SetAttribute(f, "posix:permissions", newPerms, false))

	v, err = svc.GetAttribute(f, "posix:permissions")
	require.NoError(t, err)
	assert.Equal(t, newPerms, v)
}

func TestUnixModeDerivedFromPosixPermissions(t *testing.T) {
	clock := newFakeClock()
	svc := newService()
	dir := inode.New(1, inode.Directory, clock, 0, pathutil.Path{})
	require.NoError(t, svc.SetInitialAttributes(dir, nil))

	v, err := svc.GetAttribute(dir, "unix:mode")
	require.NoError(t, err)
	mode := v.(uint32)

	assert.Equal(t, uint32(0o040000), mode&0o170000, "directory bit should be set")
	assert.Equal(t, uint32(0o700), mode&0o700, "owner rwx from DefaultDirectoryPermissions")
}

func TestUnixViewIsReadOnly(t *testing.T) {
	clock := newFakeClock()
	svc := newService()
	f := inode.New(1, inode.Regular, clock, 0, pathutil.Path{})
	require.NoError(t, svc.SetInitialAttributes(f, nil))

	err := svc.SetAttribute(f, "unix:mode", uint32(0), false)
	assert.Error(t, err)
}

func TestUnixNlinkTracksInodeLinks(t *testing.T) {
	clock := newFakeClock()
	svc := newService()
	f := inode.New(1, inode.Regular, clock, 0, pathutil.Path{})
	require.NoError(t, svc.SetInitialAttributes(f, nil))

	f.IncrementLinks()
	f.IncrementLinks()

	v, err := svc.GetAttribute(f, "unix:nlink")
	require.NoError(t, err)
	assert.Equal(t, uint32(2), v)
}

func TestUserAttributeSizeCap(t *testing.T) {
	clock := newFakeClock()
	svc := newService()
	f := inode.New(1, inode.Regular, clock, 0, pathutil.Path{})
	require.NoError(t, svc.SetInitialAttributes(f, nil))

	tooBig := make([]byte, inode.MaxUserAttributeValueSize+1)
	err := svc.SetAttribute(f, "user:mime_type", tooBig, false)
	assert.Error(t, err)
}

func TestPosixViewAnswersInheritedBasicAndOwnerReads(t *testing.T) {
	clock := newFakeClock()
	svc := newService()
	f := inode.New(1, inode.Regular, clock, 0, pathutil.Path{})
	require.NoError(t, svc.SetInitialAttributes(f, nil))

	v, err := svc.GetAttribute(f, "posix:size")
	require.NoError(t, err)
	assert.Equal(t, int64(0), v)

	v, err = svc.GetAttribute(f, "posix:owner")
	require.NoError(t, err)
	assert.Equal(t, "nobody", v)

	all, err := svc.ReadAttributes(f, "posix")
	require.NoError(t, err)
	assert.Contains(t, all, "posix:group")
	assert.Contains(t, all, "posix:permissions")
	assert.Contains(t, all, "basic:size")
	assert.Contains(t, all, "owner:owner")
}

func TestUnixViewAnswersReadsThroughInheritedBasic(t *testing.T) {
	clock := newFakeClock()
	svc := newService()
	f := inode.New(1, inode.Regular, clock, 0, pathutil.Path{})
	require.NoError(t, svc.SetInitialAttributes(f, nil))

	// "unix" lists "basic" directly in its own Inherits(), so a read of
	// "unix:size" must resolve through it even though unix itself derives
	// only uid/gid/mode/nlink/ino/dev/rdev/ctime.
	v, err := svc.GetAttribute(f, "unix:size")
	require.NoError(t, err)
	assert.Equal(t, int64(0), v)
}

func TestUnsupportedViewReturnsStructuredError(t *testing.T) {
	clock := newFakeClock()
	svc := newService()
	f := inode.New(1, inode.Regular, clock, 0, pathutil.Path{})

	_, err := svc.GetAttribute(f, "nope:name")
	require.Error(t, err)
}
