// Package pathvalidate accepts the restricted dotted/bracketed accessor
// path grammar used to key hooks and events (§4.4): an identifier, followed
// by any number of ".identifier", ["string"], ['string'], or [nonneg-int]
// segments. Validation is purely structural - no whitespace, no leading
// dots, no empty brackets.
package pathvalidate

import (
	"errors"
	"strings"
)

// ErrInvalidPath is returned for any path that does not match the grammar.
var ErrInvalidPath = errors.New("pathvalidate: invalid path")

func isIdentStart(b byte) bool {
	return b == '_' || b == '$' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func isIdentCont(b byte) bool {
	return isIdentStart(b) || (b >= '0' && b <= '9')
}

// Validate reports whether path conforms to the grammar in §4.4.
func Validate(path string) bool {
	return scan(path) == len(path) && len(path) > 0
}

// Check is Validate but returns ErrInvalidPath instead of a bool, for
// call sites that want to propagate the sandbox's InvalidPath error kind.
func Check(path string) error {
	if !Validate(path) {
		return ErrInvalidPath
	}
	return nil
}

// scan returns the length of the longest prefix of path that matches the
// grammar, starting from an identifier. A return value less than len(path)
// (or the identifier-start check failing) means the path is invalid.
func scan(path string) int {
	i := 0
	n := len(path)
	if n == 0 || !isIdentStart(path[0]) {
		return -1
	}
	i++
	for i < n && isIdentCont(path[i]) {
		i++
	}

	for i < n {
		switch path[i] {
		case '.':
			i++
			if i >= n || !isIdentStart(path[i]) {
				return -1
			}
			start := i
			i++
			for i < n && isIdentCont(path[i]) {
				i++
			}
			_ = start
		case '[':
			i++
			if i >= n {
				return -1
			}
			switch {
			case path[i] == '"' || path[i] == '\'':
				quote := path[i]
				i++
				strStart := i
				for i < n && path[i] != quote {
					if path[i] == '\\' && i+1 < n {
						i++
					}
					i++
				}
				if i >= n {
					return -1
				}
				if i == strStart {
					return -1 // empty bracket content is rejected
				}
				i++ // closing quote
			case path[i] >= '0' && path[i] <= '9':
				digStart := i
				for i < n && path[i] >= '0' && path[i] <= '9' {
					i++
				}
				if i == digStart {
					return -1
				}
			default:
				return -1
			}
			if i >= n || path[i] != ']' {
				return -1
			}
			i++
		default:
			return i
		}
	}
	return i
}

// HasWhitespace is a convenience check some callers use before Validate to
// produce a clearer error message. Validate alone already rejects whitespace
// outside quoted bracket keys; inside a key such as a["quoted key"] it is
// accepted.
func HasWhitespace(path string) bool {
	return strings.ContainsAny(path, " \t\n\r")
}
