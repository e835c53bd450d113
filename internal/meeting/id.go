package meeting

import (
	"strings"
	"time"
)

// CleanName reduces a committee name to filename-safe characters.
// Runes outside [A-Za-z0-9._-] are dropped, not replaced, so
// "County Council" and "CountyCouncil" sanitize identically.
func CleanName(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '-', r == '_', r == '.':
			b.WriteRune(r)
		}
	}
	return b.String()
}

// NewID derives the stable meeting identifier from the UTC scheduled date
// and the sanitized name: "YYYY-MM-DD-<cleanname>".
func NewID(scheduledUTC time.Time, name string) string {
	return scheduledUTC.UTC().Format("2006-01-02") + "-" + CleanName(name)
}
