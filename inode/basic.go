package inode

import (
	"time"

	"github.com/google/gomemfs/vfserr"
)

// BasicProvider implements the "basic" attribute view, always present
//. It is the only view every other view
// may assume is registered.
type BasicProvider struct{}

var _ Provider = BasicProvider{}

func (BasicProvider) ViewName() string { return "basic" }

func (BasicProvider) Attributes() []string {
	return []string{
		"size", "fileKey",
		"isDirectory", "isRegularFile", "isSymbolicLink", "isOther",
		"creationTime", "lastAccessTime", "lastModifiedTime",
	}
}

func (BasicProvider) Inherits() []string { return nil }

func (BasicProvider) InitialAttributes(in *Inode) {
	// Times are already stamped by inode.New; nothing else to default.
}

func (BasicProvider) Get(in *Inode, name string) (interface{}, error) {
	switch name {
	case "size":
		if in.IsRegular() {
			return in.ByteStore().Size(), nil
		}
		return int64(0), nil
	case "fileKey":
		return in.ID(), nil
	case "isDirectory":
		return in.IsDirectory(), nil
	case "isRegularFile":
		return in.IsRegular(), nil
	case "isSymbolicLink":
		return in.IsSymlink(), nil
	case "isOther":
		return false, nil
	case "creationTime":
		return time.UnixMilli(in.CreationTime()), nil
	case "lastAccessTime":
		return time.UnixMilli(in.AccessTime()), nil
	case "lastModifiedTime":
		return time.UnixMilli(in.ModifiedTime()), nil
	}
	return nil, errAttributeNotFound("basic", name)
}

func (BasicProvider) Set(in *Inode, name string, value interface{}, create bool) error {
	t, ok := value.(time.Time)
	switch name {
	case "creationTime":
		if !ok {
			return vfserr.NewError(vfserr.InvalidArgument, "set-attribute", "basic:creationTime")
		}
		in.SetCreationTime(t.UnixMilli())
		return nil
	case "lastAccessTime":
		if !ok {
			return vfserr.NewError(vfserr.InvalidArgument, "set-attribute", "basic:lastAccessTime")
		}
		in.SetAccessTime(t.UnixMilli())
		return nil
	case "lastModifiedTime":
		if !ok {
			return vfserr.NewError(vfserr.InvalidArgument, "set-attribute", "basic:lastModifiedTime")
		}
		in.SetModifiedTime(t.UnixMilli())
		return nil
	case "size", "fileKey", "isDirectory", "isRegularFile", "isSymbolicLink", "isOther":
		return vfserr.NewError(vfserr.UnsupportedOperation, "set-attribute", "basic:"+name)
	}
	return errAttributeNotFound("basic", name)
}
