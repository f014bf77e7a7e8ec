package pathutil

import (
	"strings"

	"github.com/google/gomemfs/vfserr"
)

// PathType is a strategy that parses a raw string into an optional root
// plus an ordered sequence of name strings, and formats a path back to a
// string. Two flavors are provided: Unix and Windows.
type PathType interface {
	// Name identifies the flavor, e.g. "unix" or "windows".
	Name() string

	// Separator is the canonical separator character.
	Separator() byte

	// IsRecognizedSeparator reports whether c is accepted as a separator
	// when parsing (the canonical one, or an alternate like '/' on Windows).
	IsRecognizedSeparator(c byte) bool

	// ParsePath splits raw into an optional root string and the remaining
	// sequence of non-empty name strings. It returns vfserr.InvalidPath on
	// malformed input (reserved characters, illegal Windows forms, etc).
	ParsePath(raw string) (root string, names []string, err error)

	// FormatPath renders root (possibly empty) and names back to a string.
	FormatPath(root string, names []string) string

	// IsValidRoot reports whether s is a well-formed root string for this
	// flavor (used to validate the "roots" configuration option).
	IsValidRoot(s string) bool
}

////////////////////////////////////////////////////////////////////////
// Unix
////////////////////////////////////////////////////////////////////////

type unixPathType struct{}

// Unix is the Unix PathType: separator '/', root "/", no reserved
// characters except NUL.
var Unix PathType = unixPathType{}

func (unixPathType) Name() string           { return "unix" }
func (unixPathType) Separator() byte        { return '/' }
func (unixPathType) IsRecognizedSeparator(c byte) bool { return c == '/' }

func (unixPathType) IsValidRoot(s string) bool { return s == "/" }

func (unixPathType) ParsePath(raw string) (root string, names []string, err error) {
	for i := 0; i < len(raw); i++ {
		if raw[i] == 0 {
			return "", nil, vfserr.NewError(vfserr.InvalidPath, "parse", raw)
		}
	}

	if strings.HasPrefix(raw, "/") {
		root = "/"
		raw = raw[1:]
	}

	for _, seg := range strings.Split(raw, "/") {
		if seg == "" {
			continue
		}
		names = append(names, seg)
	}

	return root, names, nil
}

func (unixPathType) FormatPath(root string, names []string) string {
	var b strings.Builder
	b.WriteString(root)
	b.WriteString(strings.Join(names, "/"))
	return b.String()
}

////////////////////////////////////////////////////////////////////////
// Windows
////////////////////////////////////////////////////////////////////////

type windowsPathType struct{}

// Windows is the Windows PathType: canonical separator '\', also accepts
// '/'; roots are "X:\" (drive) or "\\host\share\" (UNC); reserved
// characters <>:"|?* and control codes 0..31; trailing spaces before a
// separator are illegal; "X:relative" is rejected.
var Windows PathType = windowsPathType{}

func (windowsPathType) Name() string    { return "windows" }
func (windowsPathType) Separator() byte { return '\\' }
func (windowsPathType) IsRecognizedSeparator(c byte) bool {
	return c == '\\' || c == '/'
}

func (windowsPathType) IsValidRoot(s string) bool {
	if len(s) == 3 && isDriveLetter(s[0]) && s[1] == ':' && s[2] == '\\' {
		return true
	}
	if strings.HasPrefix(s, `\\`) && strings.HasSuffix(s, `\`) {
		rest := strings.Trim(s[2:len(s)-1], `\`)
		parts := strings.SplitN(rest, `\`, 2)
		return len(parts) == 2 && parts[0] != "" && parts[1] != ""
	}
	return false
}

func isDriveLetter(c byte) bool {
	return (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z')
}

const windowsReserved = `<>:"|?*`

func (windowsPathType) ParsePath(raw string) (root string, names []string, err error) {
	invalid := func() (string, []string, error) {
		return "", nil, vfserr.NewError(vfserr.InvalidPath, "parse", raw)
	}

	// Normalize alternate separators to canonical before root detection;
	// the "X:relative" check below also runs on the normalized string.
	norm := strings.ReplaceAll(raw, "/", `\`)

	switch {
	case len(norm) >= 2 && isDriveLetter(norm[0]) && norm[1] == ':':
		if len(norm) == 2 {
			// "X:" with nothing else is a relative-to-drive form; reject.
			return invalid()
		}
		if norm[2] != '\\' {
			// "X:relative" (drive letter with no root separator) is rejected.
			return invalid()
		}
		root = strings.ToUpper(norm[:1]) + `:\`
		norm = norm[3:]

	case strings.HasPrefix(norm, `\\`):
		rest := norm[2:]
		sep := strings.IndexByte(rest, '\\')
		if sep < 0 {
			return invalid()
		}
		host := rest[:sep]
		rest = rest[sep+1:]
		sep2 := strings.IndexByte(rest, '\\')
		var share string
		if sep2 < 0 {
			share = rest
			rest = ""
		} else {
			share = rest[:sep2]
			rest = rest[sep2+1:]
		}
		if host == "" || share == "" {
			return invalid()
		}
		root = `\\` + host + `\` + share + `\`
		norm = rest

	case strings.HasPrefix(norm, `\`):
		root = `\`
		norm = norm[1:]
	}

	segs := strings.Split(norm, `\`)
	for _, seg := range segs {
		if seg == "" {
			continue
		}
		if err := validateWindowsSegment(seg); err != nil {
			return invalid()
		}
		names = append(names, seg)
	}

	return root, names, nil
}

func validateWindowsSegment(seg string) error {
	for i := 0; i < len(seg); i++ {
		c := seg[i]
		if c < 32 || strings.IndexByte(windowsReserved, c) >= 0 {
			return vfserr.NewError(vfserr.InvalidPath, "parse", seg)
		}
	}
	// Trailing spaces before a separator are illegal; since seg is already
	// split on separators, this rejects a trailing space in every segment,
	// the final one included.
	if strings.HasSuffix(seg, " ") {
		return vfserr.NewError(vfserr.InvalidPath, "parse", seg)
	}
	return nil
}

func (windowsPathType) FormatPath(root string, names []string) string {
	var b strings.Builder
	b.WriteString(root)
	if root != "" && !strings.HasSuffix(root, `\`) && len(names) > 0 {
		b.WriteByte('\\')
	}
	b.WriteString(strings.Join(names, `\`))
	return b.String()
}
