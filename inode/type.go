// Copyright 2015 Google Inc. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package inode implements the in-memory file object model: Inode (identity
// plus metadata plus typed content), DirectoryTable (the content of a
// directory inode), ByteStore (the content of a regular-file inode), and
// the pluggable attribute-provider machinery layered over an Inode.
package inode

import "fmt"

// Type identifies the content variant an Inode holds.
type Type int

const (
	NoType Type = iota
	Directory
	Regular
	Symlink
)

const (
	noTypeString    = "none"
	regularString   = "file"
	directoryString = "directory"
	symlinkString   = "symlink"
)

func (t Type) String() string {
	switch t {
	case Directory:
		return directoryString
	case Regular:
		return regularString
	case Symlink:
		return symlinkString
	default:
		return noTypeString
	}
}

// ParseType parses the string form produced by Type.String.
func ParseType(value string) (Type, error) {
	switch value {
	case noTypeString:
		return NoType, nil
	case regularString:
		return Regular, nil
	case directoryString:
		return Directory, nil
	case symlinkString:
		return Symlink, nil
	}
	return NoType, fmt.Errorf("inode: unknown type %q", value)
}
