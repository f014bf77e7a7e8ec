package inode

import "github.com/google/gomemfs/vfserr"

// Permission is one of the nine POSIX permission bits.
type Permission int

const (
	OwnerRead Permission = 1 << iota
	OwnerWrite
	OwnerExecute
	GroupRead
	GroupWrite
	GroupExecute
	OtherRead
	OtherWrite
	OtherExecute
)

// PermissionSet is a subset of the nine POSIX permission bits.
type PermissionSet Permission

// Has reports whether p includes perm.
func (p PermissionSet) Has(perm Permission) bool { return Permission(p)&perm != 0 }

// DefaultFilePermissions and DefaultDirectoryPermissions mirror the usual
// 0644/0755 POSIX defaults.
const (
	DefaultFilePermissions      = PermissionSet(OwnerRead | OwnerWrite | GroupRead | OtherRead)
	DefaultDirectoryPermissions = PermissionSet(OwnerRead | OwnerWrite | OwnerExecute |
		GroupRead | GroupExecute | OtherRead | OtherExecute)
)

// PosixProvider implements the "posix" view: group principal and
// permission set. Inherits basic and owner.
type PosixProvider struct {
	DefaultGroup    string
	DefaultFilePerms PermissionSet
	DefaultDirPerms  PermissionSet
}

var _ Provider = PosixProvider{}

func (PosixProvider) ViewName() string     { return "posix" }
func (PosixProvider) Attributes() []string { return []string{"group", "permissions"} }
func (PosixProvider) Inherits() []string   { return []string{"basic", "owner"} }

func (p PosixProvider) InitialAttributes(in *Inode) {
	group := p.DefaultGroup
	if group == "" {
		group = "nobody"
	}
	in.SetAttribute("posix", "group", group)

	perms := p.DefaultFilePerms
	if in.IsDirectory() {
		perms = p.DefaultDirPerms
		if perms == 0 {
			perms = DefaultDirectoryPermissions
		}
	} else if perms == 0 {
		perms = DefaultFilePermissions
	}
	in.SetAttribute("posix", "permissions", perms)
}

func (PosixProvider) Get(in *Inode, name string) (interface{}, error) {
	switch name {
	case "group":
		v, _ := in.GetAttribute("posix", "group")
		return v, nil
	case "permissions":
		v, _ := in.GetAttribute("posix", "permissions")
		return v, nil
	}
	return nil, errAttributeNotFound("posix", name)
}

func (PosixProvider) Set(in *Inode, name string, value interface{}, create bool) error {
	switch name {
	case "group":
		s, ok := value.(string)
		if !ok {
			return vfserr.NewError(vfserr.InvalidArgument, "set-attribute", "posix:group")
		}
		in.SetAttribute("posix", "group", s)
		return nil
	case "permissions":
		p, ok := value.(PermissionSet)
		if !ok {
			return vfserr.NewError(vfserr.InvalidArgument, "set-attribute", "posix:permissions")
		}
		in.SetAttribute("posix", "permissions", p)
		return nil
	}
	return errAttributeNotFound("posix", name)
}
