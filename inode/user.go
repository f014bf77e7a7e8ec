package inode

import "github.com/google/gomemfs/vfserr"

// MaxUserAttributeValueSize caps each "user" view value at 64 KiB, the
// jimfs-lineage bound on a single opaque attribute blob ; without it an attribute channel becomes an
// unbounded side-store for arbitrary memory.
const MaxUserAttributeValueSize = 64 * 1024

// UserProvider implements the "user" view: arbitrary user-defined
// attributes stored as opaque byte arrays, key-value only (no
// InitialAttributes defaults, no inheritance).
type UserProvider struct{}

var _ Provider = UserProvider{}

func (UserProvider) ViewName() string     { return "user" }
func (UserProvider) Attributes() []string { return nil } // open-ended; see ReadAttributes note below.
func (UserProvider) Inherits() []string   { return nil }

func (UserProvider) InitialAttributes(in *Inode) {}

func (UserProvider) Get(in *Inode, name string) (interface{}, error) {
	v, ok := in.GetAttribute("user", name)
	if !ok {
		return nil, errAttributeNotFound("user", name)
	}
	return v, nil
}

func (UserProvider) Set(in *Inode, name string, value interface{}, create bool) error {
	b, ok := value.([]byte)
	if !ok {
		return vfserr.NewError(vfserr.InvalidArgument, "set-attribute", "user:"+name)
	}
	if len(b) > MaxUserAttributeValueSize {
		return vfserr.NewError(vfserr.InvalidArgument, "set-attribute", "user:"+name)
	}
	in.SetAttribute("user", name, b)
	return nil
}

// Keys returns the currently-set user attribute names for in. Because
// UserProvider.Attributes() is open-ended (any key/value pair a caller
// chooses to set), Service.ReadAttributes("user") would otherwise report
// nothing; callers that need to enumerate user attributes should use this
// instead.
func (UserProvider) Keys(in *Inode) []string {
	full := in.AttributeKeys("user")
	out := make([]string, len(full))
	for i, k := range full {
		out[i] = k[len("user:"):]
	}
	return out
}
