package ignition

import (
	"fmt"
	"strings"
)

// percentEncode escapes s the way the Ignition spec's `data:` URIs do:
// every byte outside the unreserved set (ALPHA / DIGIT / "-" "." "_" "~" "!"
// "*" "'" "(" ")") becomes an uppercase %XX triplet. This matches the
// plain-text `data:,...` fixtures the upstream Ignition tooling produces,
// rather than net/url's form-encoding (which would escape a space as "+").
func percentEncode(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isUnreserved(c) {
			b.WriteByte(c)
			continue
		}
		fmt.Fprintf(&b, "%%%02X", c)
	}
	return b.String()
}

func isUnreserved(c byte) bool {
	switch {
	case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9':
		return true
	}
	switch c {
	case '-', '.', '_', '~', '!', '*', '\'', '(', ')':
		return true
	}
	return false
}

// inlineDataURI builds a bare `data:,<percent-encoded text>` URI from raw
// text, the form every `contents.inline` field takes once it reaches
// Ignition JSON.
func inlineDataURI(text string) string {
	return "data:," + percentEncode(text)
}
