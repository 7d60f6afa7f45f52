package chirouter

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnsupportedPattern is returned for patterns that cannot be expressed as
// chi routes.
var ErrUnsupportedPattern = errors.New("unsupported route pattern")

// maxOptionalGroups bounds the number of variants one pattern expands to.
const maxOptionalGroups = 8

// translation is one chi pattern derived from a route pattern.
type translation struct {
	chiPattern string
	splat      string
}

// translate expands optional groups and rewrites a route pattern into chi
// patterns. Supported syntax: ":name" (one segment), "*name" (the rest of the
// location, trailing only), "(...)" (optional part) and chi's own "{name}" /
// "{name:regexp}" placeholders, which are passed through.
func translate(pattern string) ([]translation, error) {
	variants, err := expandOptional(pattern, 0)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(variants))
	out := make([]translation, 0, len(variants))
	for _, v := range variants {
		tr, err := toChi(v)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %v", ErrUnsupportedPattern, pattern, err)
		}
		if _, dup := seen[tr.chiPattern]; dup {
			continue
		}
		seen[tr.chiPattern] = struct{}{}
		out = append(out, tr)
	}
	return out, nil
}

// expandOptional returns every variant of pattern with each optional group
// either kept or dropped. Groups do not nest.
func expandOptional(pattern string, depth int) ([]string, error) {
	open, end, err := findGroup(pattern)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrUnsupportedPattern, pattern, err)
	}
	if open < 0 {
		return []string{pattern}, nil
	}
	if depth >= maxOptionalGroups {
		return nil, fmt.Errorf("%w: %q: too many optional groups", ErrUnsupportedPattern, pattern)
	}

	head, body, tail := pattern[:open], pattern[open+1:end], pattern[end+1:]
	rest, err := expandOptional(tail, depth+1)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, 2*len(rest))
	for _, r := range rest {
		out = append(out, head+body+r)
	}
	for _, r := range rest {
		out = append(out, head+r)
	}
	return out, nil
}

// findGroup locates the first optional group outside chi placeholders.
func findGroup(pattern string) (int, int, error) {
	braces := 0
	open := -1
	for i := 0; i < len(pattern); i++ {
		switch c := pattern[i]; {
		case c == '{':
			braces++
		case c == '}':
			braces--
		case braces > 0:
		case c == '(' && open < 0:
			open = i
		case c == '(':
			return -1, -1, errors.New("nested optional group")
		case c == ')' && open < 0:
			return -1, -1, errors.New("unbalanced ')'")
		case c == ')':
			return open, i, nil
		}
	}
	if open >= 0 {
		return -1, -1, errors.New("unbalanced '('")
	}
	if braces != 0 {
		return -1, -1, errors.New("unbalanced '{'")
	}
	return -1, -1, nil
}

func toChi(variant string) (translation, error) {
	var b strings.Builder
	var tr translation
	if !strings.HasPrefix(variant, "/") {
		b.WriteByte('/')
	}

	for i := 0; i < len(variant); {
		c := variant[i]
		switch {
		case c == '{':
			end := closingBrace(variant[i:])
			if end < 0 {
				return tr, errors.New("unbalanced '{'")
			}
			b.WriteString(variant[i : i+end+1])
			i += end + 1
		case c == ':' && i+1 < len(variant) && isWordChar(variant[i+1]):
			name, n := readWord(variant[i+1:])
			b.WriteString("{" + name + "}")
			i += 1 + n
		case c == '*':
			name, n := readWord(variant[i+1:])
			if i+1+n != len(variant) {
				return tr, errors.New("splat must be the last part of the pattern")
			}
			if name == "" {
				name = "*"
			}
			tr.splat = name
			b.WriteByte('*')
			i += 1 + n
		default:
			b.WriteByte(c)
			i++
		}
	}
	tr.chiPattern = b.String()
	return tr, nil
}

// closingBrace returns the index of the brace closing s[0].
func closingBrace(s string) int {
	depth := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

func readWord(s string) (string, int) {
	n := 0
	for n < len(s) && isWordChar(s[n]) {
		n++
	}
	return s[:n], n
}

func isWordChar(c byte) bool {
	return c == '_' || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') || ('0' <= c && c <= '9')
}
