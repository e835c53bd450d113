// Package change classifies freshly fetched meetings against their stored
// state.
package change

import (
	"sort"
	"strings"

	"github.com/akkana/mtgmon/internal/meeting"
)

// AgendaBody is the sentinel field name reported when the converted agenda
// HTML differs between runs.
const AgendaBody = "agenda_body"

// Kind is the classification of one meeting in one run.
type Kind string

const (
	New       Kind = "new"
	Unchanged Kind = "unchanged"
	Changed   Kind = "changed"
)

// Change is the classification result. Fields is sorted and non-empty only
// for Changed.
type Change struct {
	Kind   Kind
	Fields []string
}

// Summary renders the changed field list for human-readable descriptions.
func (c Change) Summary() string {
	return strings.Join(c.Fields, ", ")
}

// Has reports whether the named field changed.
func (c Change) Has(field string) bool {
	for _, f := range c.Fields {
		if f == field {
			return true
		}
	}
	return false
}

// Classify compares a current meeting against its stored predecessor.
//
// A nil previous is New. Otherwise every observable attribute is compared:
// name, schedule, location, both agenda URLs, and the union of extra
// fields, with keys missing on one side comparing as empty strings. A field
// transitioning from present to absent is a change. The agenda body is
// compared by normalized-text fingerprint and reported under the
// AgendaBody sentinel.
func Classify(current, previous *meeting.Meeting) Change {
	if previous == nil {
		return Change{Kind: New}
	}

	var fields []string
	if current.Name != previous.Name {
		fields = append(fields, "name")
	}
	if !current.ScheduledAt.Equal(previous.ScheduledAt.Time) {
		fields = append(fields, "scheduled_at")
	}
	if current.Location != previous.Location {
		fields = append(fields, "location")
	}
	if current.AgendaURL != previous.AgendaURL {
		fields = append(fields, "agenda_url")
	}
	if current.AgendaPacketURL != previous.AgendaPacketURL {
		fields = append(fields, "agenda_packet_url")
	}
	for _, key := range extraKeys(current.Extra, previous.Extra) {
		if current.Extra[key] != previous.Extra[key] {
			fields = append(fields, key)
		}
	}
	if current.AgendaFingerprint != previous.AgendaFingerprint {
		fields = append(fields, AgendaBody)
	}

	if len(fields) == 0 {
		return Change{Kind: Unchanged}
	}
	sort.Strings(fields)
	return Change{Kind: Changed, Fields: fields}
}

// extraKeys returns the sorted union of both extra-field key sets.
func extraKeys(a, b map[string]string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	var keys []string
	for k := range a {
		if !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}
	for k := range b {
		if !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}
