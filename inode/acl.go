package inode

import (
	"github.com/google/gomemfs/vfserr"
	"github.com/google/uuid"
)

// AclEntryType distinguishes an allow entry from a deny entry.
type AclEntryType int

const (
	AclAllow AclEntryType = iota
	AclDeny
)

// AclFlag are inheritance/propagation flags on an ACL entry.
type AclFlag int

const (
	AclFlagDirectoryInherit AclFlag = 1 << iota
	AclFlagFileInherit
	AclFlagNoPropagateInherit
	AclFlagInheritOnly
)

// AclEntry is one row of an access control list: type, flags, permission
// set, and the principal it applies to.
type AclEntry struct {
	Type        AclEntryType
	Flags       AclFlag
	Permissions PermissionSet
	Principal   string
}

// NewPrincipal mints a fresh opaque principal identifier, distinct from any
// inode id or login name, for granting an ACL entry to an identity that has
// no existing owner/group name to attach to (an ephemeral delegate, a
// one-off capability grant). Most AclEntry.Principal values are ordinary
// caller-supplied login or group names and never call this.
func NewPrincipal() string {
	return uuid.New().String()
}

// AclProvider implements the "acl" view: a list of AclEntry. Inherits
// owner.
type AclProvider struct{}

var _ Provider = AclProvider{}

func (AclProvider) ViewName() string     { return "acl" }
func (AclProvider) Attributes() []string { return []string{"acl"} }
func (AclProvider) Inherits() []string   { return []string{"owner"} }

func (AclProvider) InitialAttributes(in *Inode) {
	in.SetAttribute("acl", "acl", []AclEntry(nil))
}

func (AclProvider) Get(in *Inode, name string) (interface{}, error) {
	if name != "acl" {
		return nil, errAttributeNotFound("acl", name)
	}
	v, _ := in.GetAttribute("acl", "acl")
	return v, nil
}

func (AclProvider) Set(in *Inode, name string, value interface{}, create bool) error {
	if name != "acl" {
		return errAttributeNotFound("acl", name)
	}
	entries, ok := value.([]AclEntry)
	if !ok {
		return vfserr.NewError(vfserr.InvalidArgument, "set-attribute", "acl:acl")
	}
	in.SetAttribute("acl", "acl", entries)
	return nil
}
