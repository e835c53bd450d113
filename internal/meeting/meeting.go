// Package meeting defines the Meeting entity, its stable identifier, and
// the canonical timestamp format shared by the JSON store and the RSS feed.
package meeting

import (
	"fmt"
	"time"
)

// StampLayout is the canonical date format for every instant that crosses
// the persistence or feed boundary. All instants are serialized in GMT;
// no other timezone is ever emitted.
const StampLayout = "Mon, 02 Jan 2006 15:04 GMT"

// guidLayout is the last-modified suffix embedded in RSS GUIDs.
const guidLayout = "20060102-1504"

// Stamp is a UTC instant with minute resolution, serialized in StampLayout.
//
// Minute resolution is deliberate: the wire format carries no seconds, so a
// Stamp round-trips through JSON byte-identically.
type Stamp struct {
	time.Time
}

// NewStamp converts t to a canonical Stamp (UTC, truncated to the minute).
func NewStamp(t time.Time) Stamp {
	return Stamp{t.UTC().Truncate(time.Minute)}
}

// ParseStamp parses a canonical-format timestamp.
func ParseStamp(s string) (Stamp, error) {
	t, err := time.Parse(StampLayout, s)
	if err != nil {
		return Stamp{}, err
	}
	return Stamp{t.UTC()}, nil
}

// String formats the stamp in the canonical layout.
func (s Stamp) String() string {
	return s.UTC().Format(StampLayout)
}

// MarshalJSON encodes the stamp as a canonical-format JSON string.
func (s Stamp) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// UnmarshalJSON decodes a canonical-format JSON string.
func (s *Stamp) UnmarshalJSON(data []byte) error {
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return fmt.Errorf("stamp must be a JSON string: %s", data)
	}
	parsed, err := ParseStamp(string(data[1 : len(data)-1]))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Upstream calendar column names consumed into Meeting fields. Anything
// else lands in Extra verbatim.
const (
	ColName         = "Name"
	ColDate         = "Meeting Date"
	ColTime         = "Meeting Time"
	ColLocation     = "Meeting Location"
	ColAgenda       = "Agenda"
	ColAgendaPacket = "Agenda Packets"
)

// upstreamLayout is how Legistar formats the date and time cells.
const upstreamLayout = "1/2/2006 3:04 PM"

// Meeting is one scheduled public meeting.
//
// Field order here is the on-disk JSON field order; keep it stable so that
// unchanged meetings re-serialize byte-identically across runs.
type Meeting struct {
	// ID is YYYY-MM-DD (UTC scheduled date) + "-" + the sanitized name.
	// Stable across runs; used as the filename stem and primary key.
	ID string `json:"id"`

	// Name is the body/committee name as shown upstream.
	Name string `json:"name"`

	// ScheduledAt is the meeting start, converted from upstream local
	// time to UTC.
	ScheduledAt Stamp `json:"scheduled_at"`

	Location string `json:"location"`

	// AgendaURL is the absolute URL of the agenda PDF, empty when the
	// upstream row carries no agenda link.
	AgendaURL string `json:"agenda_url,omitempty"`

	// AgendaPacketURL is the absolute URL of the larger agenda packet.
	AgendaPacketURL string `json:"agenda_packet_url,omitempty"`

	// Extra holds all other upstream columns verbatim.
	Extra map[string]string `json:"extra_fields,omitempty"`

	// LastModified is when a change in this meeting's fields or agenda
	// body was last observed. Monotonically non-decreasing per ID.
	LastModified Stamp `json:"last_modified"`

	// AgendaFingerprint is the SHA-256 of the agenda's normalized text.
	// Agenda change detection compares fingerprints, not raw bytes,
	// because PDF converters embed nondeterministic output.
	AgendaFingerprint string `json:"agenda_fingerprint,omitempty"`

	// AgendaHTML is the converted agenda body. Stored in the companion
	// <id>.html file, never in the JSON.
	AgendaHTML []byte `json:"-"`
}

// FromRow builds a Meeting from one parsed calendar row. The date and time
// cells are interpreted in loc and converted to UTC.
//
// Returns an error when the row is missing its name, date, or time, or when
// the date/time cells do not parse; callers log and skip such rows.
func FromRow(fields map[string]string, loc *time.Location) (*Meeting, error) {
	name := fields[ColName]
	if name == "" {
		return nil, fmt.Errorf("row has no %q column", ColName)
	}
	date, timeOfDay := fields[ColDate], fields[ColTime]
	if date == "" || timeOfDay == "" {
		return nil, fmt.Errorf("row %q has no date or time", name)
	}
	local, err := time.ParseInLocation(upstreamLayout, date+" "+timeOfDay, loc)
	if err != nil {
		return nil, fmt.Errorf("row %q: %w", name, err)
	}
	scheduled := NewStamp(local)

	m := &Meeting{
		ID:              NewID(scheduled.Time, name),
		Name:            name,
		ScheduledAt:     scheduled,
		Location:        fields[ColLocation],
		AgendaURL:       fields[ColAgenda],
		AgendaPacketURL: fields[ColAgendaPacket],
	}
	for key, value := range fields {
		switch key {
		case ColName, ColDate, ColTime, ColLocation, ColAgenda, ColAgendaPacket:
			continue
		}
		if m.Extra == nil {
			m.Extra = make(map[string]string)
		}
		m.Extra[key] = value
	}
	return m, nil
}

// GUID returns the non-permalink RSS GUID: the ID plus the last-modified
// stamp, so feed readers treat a changed meeting as an updated item.
func (m *Meeting) GUID() string {
	return m.ID + "." + m.LastModified.UTC().Format(guidLayout)
}

// Title returns the feed item title, with the scheduled date rendered in
// the upstream's local zone.
func (m *Meeting) Title(loc *time.Location) string {
	return fmt.Sprintf("%s on %s", m.Name, m.ScheduledAt.In(loc).Format("01/02/2006"))
}
