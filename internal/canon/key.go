// Package canon converts heterogeneous raw values into canonical
// comparison forms: identifier keys and calendar dates.
package canon

import (
	"strings"

	"github.com/spf13/cast"
)

// Label tokens that sometimes precede an identifier when it was typed
// by hand ("NO. 42", "INV 1024"). A token is only treated as a label
// when whitespace separates it from the value; punctuation-joined
// forms like NOTA_42 are part of the identifier itself.
var keyLabels = []string{"INV", "NOTA", "NO.", "NO", "NP"}

// Key normalizes a raw identifier into a canonical comparison key:
// uppercase, leading label tokens removed, everything outside [0-9A-Z]
// stripped. Absent or unresolvable input degrades to "", which never
// matches anything. Key is idempotent and never fails.
func Key(raw any) string {
	s := strings.TrimSpace(cast.ToString(raw))
	if s == "" {
		return ""
	}
	s = strings.ToUpper(s)

	for {
		stripped := false
		for _, label := range keyLabels {
			rest, ok := strings.CutPrefix(s, label)
			if !ok {
				continue
			}
			trimmed := strings.TrimLeft(rest, " \t")
			if trimmed == rest || trimmed == "" {
				// No separating whitespace, or nothing left: the
				// token is the identifier, not a label.
				continue
			}
			s = trimmed
			stripped = true
			break
		}
		if !stripped {
			break
		}
	}

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' || r >= 'A' && r <= 'Z' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
