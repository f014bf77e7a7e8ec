package pathutil

import (
	"regexp"
	"strings"

	"github.com/google/gomemfs/vfserr"
)

// Matcher reports whether a formatted path string matches a compiled
// pattern.
type Matcher struct {
	re *regexp.Regexp
}

// Matches reports whether s matches the compiled pattern.
func (m *Matcher) Matches(s string) bool { return m.re.MatchString(s) }

// CompilePattern compiles a "glob:" (implicit if no prefix) or "regex:"
// syntax pattern for the given PathType's separator set. Glob syntax:
//
//	*        any sequence not containing a separator
//	**       any sequence including separators
//	?        any single non-separator
//	[...]    a character class, with a leading '!' negating it
//	{a,b,c}  alternation (not nested)
//
// The separator in the pattern matches any of the PathType's recognized
// separators.
func CompilePattern(pattern string, pt PathType) (*Matcher, error) {
	if strings.HasPrefix(pattern, "regex:") {
		re, err := regexp.Compile(pattern[len("regex:"):])
		if err != nil {
			return nil, vfserr.WrapError(vfserr.InvalidArgument, "compile-pattern", pattern, err)
		}
		return &Matcher{re: re}, nil
	}

	glob := pattern
	if strings.HasPrefix(glob, "glob:") {
		glob = glob[len("glob:"):]
	}

	expr, err := globToRegex(glob, pt)
	if err != nil {
		return nil, err
	}

	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, vfserr.WrapError(vfserr.InvalidArgument, "compile-pattern", pattern, err)
	}
	return &Matcher{re: re}, nil
}

func separatorClass(pt PathType) string {
	var seps []byte
	for c := 0; c < 256; c++ {
		if pt.IsRecognizedSeparator(byte(c)) {
			seps = append(seps, byte(c))
		}
	}
	var b strings.Builder
	for _, c := range seps {
		b.WriteString(regexp.QuoteMeta(string(c)))
	}
	return b.String()
}

func globToRegex(glob string, pt PathType) (string, error) {
	sepClass := separatorClass(pt)
	notSep := "[^" + sepClass + "]"

	var out strings.Builder
	out.WriteByte('^')

	braceDepth := 0
	runes := []rune(glob)
	for i := 0; i < len(runes); i++ {
		c := runes[i]
		switch c {
		case '*':
			if i+1 < len(runes) && runes[i+1] == '*' {
				// "**" matches any sequence including separators (spec
				// section 4.1). When it is immediately followed by a
				// separator in the pattern, that separator is part of the
				// sequence "**" already covers, not an additional
				// mandatory one, so "**/*.ext" must also match a bare
				// "c.ext" with no separator at all.
				if i+2 < len(runes) && runes[i+2] < 256 && pt.IsRecognizedSeparator(byte(runes[i+2])) {
					out.WriteString("(?:.*[" + sepClass + "])?")
					i += 2
				} else {
					out.WriteString(".*")
					i++
				}
			} else {
				out.WriteString(notSep + "*")
			}
		case '?':
			out.WriteString(notSep)
		case '[':
			j := i + 1
			neg := false
			if j < len(runes) && runes[j] == '!' {
				neg = true
				j++
			}
			start := j
			for j < len(runes) && runes[j] != ']' {
				j++
			}
			if j >= len(runes) {
				return "", vfserr.NewError(vfserr.InvalidArgument, "compile-pattern", glob)
			}
			class := string(runes[start:j])
			out.WriteByte('[')
			if neg {
				out.WriteByte('^')
			}
			out.WriteString(regexp.QuoteMeta(class))
			// QuoteMeta leaves '-' unescaped, so ranges such as a-z keep
			// working; the metacharacters it does escape are valid escapes
			// inside a class. ']' never reaches here (it ends the class).
			out.WriteByte(']')
			i = j
		case '{':
			out.WriteByte('(')
			braceDepth++
		case '}':
			if braceDepth == 0 {
				return "", vfserr.NewError(vfserr.InvalidArgument, "compile-pattern", glob)
			}
			out.WriteByte(')')
			braceDepth--
		case ',':
			if braceDepth > 0 {
				out.WriteByte('|')
			} else {
				out.WriteString(regexp.QuoteMeta(","))
			}
		case '\\', '/':
			if pt.IsRecognizedSeparator(byte(c)) {
				out.WriteByte('[')
				out.WriteString(sepClass)
				out.WriteByte(']')
			} else {
				out.WriteString(regexp.QuoteMeta(string(c)))
			}
		default:
			out.WriteString(regexp.QuoteMeta(string(c)))
		}
	}

	if braceDepth != 0 {
		return "", vfserr.NewError(vfserr.InvalidArgument, "compile-pattern", glob)
	}

	out.WriteByte('$')
	return out.String(), nil
}
