package inode

import (
	"sync"

	"github.com/google/gomemfs/vfserr"
)

// principalInterner assigns stable small integers to user/group principal
// names, the way a real unix filesystem interns names to uid/gid. Shared
// across all inodes of a filesystem instance.
type principalInterner struct {
	mu   sync.Mutex
	ids  map[string]uint32
	next uint32
}

func newPrincipalInterner() *principalInterner {
	return &principalInterner{ids: make(map[string]uint32), next: 1}
}

func (p *principalInterner) intern(name string) uint32 {
	p.mu.Lock()
	defer p.mu.Unlock()

	if id, ok := p.ids[name]; ok {
		return id
	}
	id := p.next
	p.next++
	p.ids[name] = id
	return id
}

// UnixProvider implements the "unix" view: uid/gid interned from the
// owner/group principals, mode derived from posix permissions, nlink from
// the inode's link count, inode id from fileKey, dev=1/rdev=0 constants,
// ctime mirroring creationTime. Entirely derived and read-only.
type UnixProvider struct {
	interner *principalInterner
}

var _ Provider = (*UnixProvider)(nil)

// NewUnixProvider builds a unix view over a fresh principal interner.
func NewUnixProvider() *UnixProvider {
	return &UnixProvider{interner: newPrincipalInterner()}
}

func (*UnixProvider) ViewName() string { return "unix" }

func (*UnixProvider) Attributes() []string {
	return []string{"uid", "gid", "mode", "nlink", "ino", "dev", "rdev", "ctime"}
}

func (*UnixProvider) Inherits() []string { return []string{"basic", "owner", "posix"} }

func (*UnixProvider) InitialAttributes(in *Inode) {
	// Entirely derived; nothing to stamp.
}

// modeFromPermissions maps a PermissionSet + Type to the standard 0oXYZ
// encoding: 0o400 owner-read, 0o040 group-read, 0o004 other-read, etc.,
// with the high bits recording the file type the way POSIX st_mode does.
func modeFromPermissions(typ Type, perms PermissionSet) uint32 {
	var mode uint32
	if perms.Has(OwnerRead) {
		mode |= 0o400
	}
	if perms.Has(OwnerWrite) {
		mode |= 0o200
	}
	if perms.Has(OwnerExecute) {
		mode |= 0o100
	}
	if perms.Has(GroupRead) {
		mode |= 0o040
	}
	if perms.Has(GroupWrite) {
		mode |= 0o020
	}
	if perms.Has(GroupExecute) {
		mode |= 0o010
	}
	if perms.Has(OtherRead) {
		mode |= 0o004
	}
	if perms.Has(OtherWrite) {
		mode |= 0o002
	}
	if perms.Has(OtherExecute) {
		mode |= 0o001
	}

	switch typ {
	case Directory:
		mode |= 0o040000
	case Symlink:
		mode |= 0o120000
	default:
		mode |= 0o100000
	}
	return mode
}

func (p *UnixProvider) Get(in *Inode, name string) (interface{}, error) {
	switch name {
	case "uid":
		owner, _ := in.GetAttribute("owner", "owner")
		s, _ := owner.(string)
		return p.interner.intern(s), nil
	case "gid":
		group, _ := in.GetAttribute("posix", "group")
		s, _ := group.(string)
		return p.interner.intern(s), nil
	case "mode":
		permsVal, _ := in.GetAttribute("posix", "permissions")
		perms, _ := permsVal.(PermissionSet)
		return modeFromPermissions(in.Type(), perms), nil
	case "nlink":
		return uint32(in.Links()), nil
	case "ino":
		return uint64(in.ID()), nil
	case "dev":
		return uint64(1), nil
	case "rdev":
		return uint64(0), nil
	case "ctime":
		return in.CreationTime(), nil
	}
	return nil, errAttributeNotFound("unix", name)
}

func (*UnixProvider) Set(in *Inode, name string, value interface{}, create bool) error {
	return vfserr.NewError(vfserr.UnsupportedOperation, "set-attribute", "unix:"+name)
}
