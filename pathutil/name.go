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

// Package pathutil implements the path-component and path-flavor layer of
// the in-memory filesystem: Name, Path, PathType (Unix/Windows) and
// PathService (parsing, formatting, glob/regex matching).
package pathutil

import (
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Normalizer canonicalizes a path component's display string into its
// canonical (equality/hashing) form. It is the pluggable collaborator the
// filesystem consumes in place of owning locale/ICU normalization tables
// itself.
type Normalizer func(s string) string

// Well-known normalizers, composable via ComposeNormalizers. These cover
// the name-canonicalization choices a Configuration can select.
var (
	NFC             Normalizer = func(s string) string { return norm.NFC.String(s) }
	NFD             Normalizer = func(s string) string { return norm.NFD.String(s) }
	NFKC            Normalizer = func(s string) string { return norm.NFKC.String(s) }
	CaseFoldUnicode Normalizer = func(s string) string { return cases.Fold().String(s) }
)

// CaseFoldASCII folds only ASCII letters to lower case, leaving all other
// bytes untouched. It is hand-rolled rather than routed through
// golang.org/x/text/cases because that package's Fold is Unicode-aware and
// does more work (and allocates more) than the ASCII-only policy calls
// for; see DESIGN.md.
var CaseFoldASCII Normalizer = func(s string) string {
	b := []byte(s)
	changed := false
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
			changed = true
		}
	}
	if !changed {
		return s
	}
	return string(b)
}

// ComposeNormalizers returns a Normalizer that applies each of ns in order.
// An empty list yields the identity normalizer (no canonicalization beyond
// raw string equality).
func ComposeNormalizers(ns ...Normalizer) Normalizer {
	if len(ns) == 0 {
		return func(s string) string { return s }
	}
	return func(s string) string {
		for _, n := range ns {
			s = n(s)
		}
		return s
	}
}

// dotName and dotDotName are the globally-unique singleton names for "."
// and ".." respectively. They compare equal only to themselves regardless
// of configured canonicalization.
var (
	dotName    = &Name{display: ".", canonical: "\x00.", singleton: true}
	dotDotName = &Name{display: "..", canonical: "\x00..", singleton: true}
)

// Name is a path component with a display face (preserved verbatim) and a
// canonical face (used for equality/hashing). Two names are equal iff
// their canonical forms are equal.
type Name struct {
	display   string
	canonical string
	singleton bool
}

// NewName builds a Name from raw for the given canonicalization policy.
// "." and "..", and ONLY those two exact raw strings, always map to the
// singleton Dot/DotDot names regardless of normalize.
func NewName(raw string, normalize Normalizer) *Name {
	switch raw {
	case ".":
		return dotName
	case "..":
		return dotDotName
	}

	canon := raw
	if normalize != nil {
		canon = normalize(raw)
	}
	return &Name{display: raw, canonical: canon}
}

// Dot returns the singleton "." name.
func Dot() *Name { return dotName }

// DotDot returns the singleton ".." name.
func DotDot() *Name { return dotDotName }

// String returns the display form.
func (n *Name) String() string { return n.display }

// Canonical returns the canonical (equality/hashing) form.
func (n *Name) Canonical() string { return n.canonical }

// IsDot reports whether n is the "." singleton.
func (n *Name) IsDot() bool { return n == dotName }

// IsDotDot reports whether n is the ".." singleton.
func (n *Name) IsDotDot() bool { return n == dotDotName }

// Equal reports whether n and other denote the same name: equal canonical
// forms, with the dot/dot-dot singletons only ever equal to themselves.
func (n *Name) Equal(other *Name) bool {
	if n == nil || other == nil {
		return n == other
	}
	if n.singleton || other.singleton {
		return n == other
	}
	return n.canonical == other.canonical
}
