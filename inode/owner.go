package inode

import "github.com/google/gomemfs/vfserr"

// OwnerProvider implements the "owner" view: a single owner user
// principal, settable at create.
type OwnerProvider struct {
	// Default is the owner stamped on inodes that don't specify one at
	// creation time.
	Default string
}

var _ Provider = OwnerProvider{}

func (OwnerProvider) ViewName() string      { return "owner" }
func (OwnerProvider) Attributes() []string  { return []string{"owner"} }
func (OwnerProvider) Inherits() []string    { return nil }

func (p OwnerProvider) InitialAttributes(in *Inode) {
	owner := p.Default
	if owner == "" {
		owner = "nobody"
	}
	in.SetAttribute("owner", "owner", owner)
}

func (OwnerProvider) Get(in *Inode, name string) (interface{}, error) {
	if name != "owner" {
		return nil, errAttributeNotFound("owner", name)
	}
	v, _ := in.GetAttribute("owner", "owner")
	return v, nil
}

func (OwnerProvider) Set(in *Inode, name string, value interface{}, create bool) error {
	if name != "owner" {
		return errAttributeNotFound("owner", name)
	}
	s, ok := value.(string)
	if !ok {
		return vfserr.NewError(vfserr.InvalidArgument, "set-attribute", "owner:owner")
	}
	in.SetAttribute("owner", "owner", s)
	return nil
}
