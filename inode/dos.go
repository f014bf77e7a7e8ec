package inode

import "github.com/google/gomemfs/vfserr"

// DosProvider implements the "dos" view: readonly/hidden/archive/system
// booleans. Inherits basic and owner.
type DosProvider struct{}

var _ Provider = DosProvider{}

func (DosProvider) ViewName() string   { return "dos" }
func (DosProvider) Attributes() []string {
	return []string{"readonly", "hidden", "archive", "system"}
}
func (DosProvider) Inherits() []string { return []string{"basic", "owner"} }

func (p DosProvider) InitialAttributes(in *Inode) {
	names := p.Attributes()
	for _, name := range names {
		in.SetAttribute("dos", name, false)
	}
}

func (DosProvider) Get(in *Inode, name string) (interface{}, error) {
	switch name {
	case "readonly", "hidden", "archive", "system":
		v, _ := in.GetAttribute("dos", name)
		if v == nil {
			return false, nil
		}
		return v, nil
	}
	return nil, errAttributeNotFound("dos", name)
}

func (DosProvider) Set(in *Inode, name string, value interface{}, create bool) error {
	switch name {
	case "readonly", "hidden", "archive", "system":
		b, ok := value.(bool)
		if !ok {
			return vfserr.NewError(vfserr.InvalidArgument, "set-attribute", "dos:"+name)
		}
		in.SetAttribute("dos", name, b)
		return nil
	}
	return errAttributeNotFound("dos", name)
}
