// Package feed writes the published artifacts: per-meeting agenda and
// state files, agenda diff pages, the companion index.html, and the RSS
// 2.0 feed itself.
//
// Ordering within a run is load-bearing. Per-meeting files are written
// before index.rss, and garbage collection runs last, so a reader that
// fetches the feed and follows an entry link never sees a dangling target.
package feed

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/akkana/mtgmon/internal/agenda"
	"github.com/akkana/mtgmon/internal/change"
	"github.com/akkana/mtgmon/internal/faults"
	"github.com/akkana/mtgmon/internal/meeting"
	"github.com/akkana/mtgmon/internal/store"
)

// Status describes what happened to a meeting's agenda since the last run.
type Status string

const (
	// StatusNone: the meeting has no agenda, and had none before.
	StatusNone Status = "none"
	// StatusNew: an agenda appeared where there was none.
	StatusNew Status = "new"
	// StatusChanged: the agenda body differs from the stored copy.
	StatusChanged Status = "changed"
	// StatusUnchanged: the agenda body matches the stored copy.
	StatusUnchanged Status = "unchanged"
	// StatusRemoved: the upstream row lost its agenda link.
	StatusRemoved Status = "removed"
)

// DeriveStatus computes the agenda status from current and stored state.
func DeriveStatus(current, previous *meeting.Meeting, ch change.Change) Status {
	hasAgenda := current.AgendaURL != ""
	hadAgenda := previous != nil && previous.AgendaURL != ""
	switch {
	case !hasAgenda && hadAgenda:
		return StatusRemoved
	case !hasAgenda:
		return StatusNone
	case !hadAgenda:
		return StatusNew
	case ch.Has(change.AgendaBody):
		return StatusChanged
	default:
		return StatusUnchanged
	}
}

// Item is one meeting prepared for publication.
type Item struct {
	Meeting *meeting.Meeting
	Change  change.Change
	Status  Status

	// Note carries a per-run remark for the description, e.g. that the
	// agenda could not be fetched this run.
	Note string

	// PrevAgendaHTML is the stored agenda body, used to render the diff
	// page when the agenda changed.
	PrevAgendaHTML []byte

	// DiffName is set once a diff page has been written for this run.
	DiffName string
}

// Channel holds the RSS channel metadata.
type Channel struct {
	Title          string
	Description    string
	Language       string
	Copyright      string
	TTL            int
	Generator      string
	ManagingEditor string
}

// DefaultChannel is the Los Alamos meetings channel.
func DefaultChannel() Channel {
	return Channel{
		Title:          "Los Alamos County Government Meetings",
		Description:    "An Unofficial, Non-Sanctioned Listing of Los Alamos Government Meetings, provided by Akkana Peck.",
		Language:       "en",
		Copyright:      "Public Domain",
		TTL:            14,
		Generator:      "mtgmon",
		ManagingEditor: "akk at shallowsky dot com (Akkana Peck)",
	}
}

// Writer produces all output-directory artifacts.
type Writer struct {
	store   *store.Store
	baseURL string
	loc     *time.Location
	channel Channel
	logger  *slog.Logger
}

// NewWriter creates a Writer publishing under baseURL (must end with "/"),
// rendering upstream-local dates in loc.
func NewWriter(st *store.Store, baseURL string, loc *time.Location, ch Channel, logger *slog.Logger) *Writer {
	return &Writer{store: st, baseURL: baseURL, loc: loc, channel: ch, logger: logger}
}

// WriteMeeting persists the meeting's agenda and state files, and when the
// agenda body changed, a <id>-diff.html page highlighting the difference.
func (w *Writer) WriteMeeting(item *Item) error {
	if item.Status == StatusChanged && len(item.PrevAgendaHTML) > 0 {
		name := item.Meeting.ID + "-diff.html"
		page := agenda.DiffHTML(item.PrevAgendaHTML, item.Meeting.AgendaHTML, item.Meeting.Name)
		if err := w.store.WriteArtifact(name, page); err != nil {
			return err
		}
		item.DiffName = name
	}
	return w.store.Save(item.Meeting)
}

// WriteFeed renders index.rss for the given items, sorted by scheduled
// time ascending with ties broken by sanitized name. now becomes the
// channel pubDate.
func (w *Writer) WriteFeed(items []*Item, now meeting.Stamp) error {
	sortItems(items)
	data, err := w.renderRSS(items, now)
	if err != nil {
		return faults.Wrap(faults.Store, "render feed", err)
	}
	if err := w.store.WriteArtifact("index.rss", data); err != nil {
		return err
	}
	w.logger.Info("feed written", "items", len(items))
	return nil
}

// WriteIndexHTML renders the companion index.html listing the same
// meetings as the feed.
func (w *Writer) WriteIndexHTML(items []*Item, now meeting.Stamp) error {
	sortItems(items)
	data, err := w.renderIndexHTML(items, now)
	if err != nil {
		return faults.Wrap(faults.Store, "render index page", err)
	}
	return w.store.WriteArtifact("index.html", data)
}

// GC removes stale artifacts: any .html, .json, or .rss file whose name
// stem is not "index" and does not begin with an active meeting ID. Prefix
// matching covers the per-meeting diff pages.
func (w *Writer) GC(activeIDs map[string]bool) error {
	entries, err := os.ReadDir(w.store.Dir())
	if err != nil {
		return faults.Wrap(faults.Store, "list output directory", err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !hasGCExt(name) || strings.HasPrefix(name, "index") {
			continue
		}
		if isActive(name, activeIDs) {
			continue
		}
		w.logger.Info("removing stale artifact", "file", name)
		if err := os.Remove(w.store.Dir() + string(os.PathSeparator) + name); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return faults.Wrap(faults.Store, "remove stale artifact", err)
		}
	}
	return nil
}

func hasGCExt(name string) bool {
	for _, ext := range []string{".html", ".json", ".rss"} {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}

func isActive(name string, activeIDs map[string]bool) bool {
	for id := range activeIDs {
		if strings.HasPrefix(name, id) {
			return true
		}
	}
	return false
}

func sortItems(items []*Item) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i].Meeting, items[j].Meeting
		if !a.ScheduledAt.Equal(b.ScheduledAt.Time) {
			return a.ScheduledAt.Before(b.ScheduledAt.Time)
		}
		return meeting.CleanName(a.Name) < meeting.CleanName(b.Name)
	})
}

// description builds the item's HTML description: the schedule line, the
// agenda status, the location, what changed, and the relevant links.
func (w *Writer) description(item *Item) string {
	m := item.Meeting
	local := m.ScheduledAt.In(w.loc)
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s at %s<br />\n", m.Name, local.Format("01/02/2006"), local.Format("3:04 PM"))

	switch item.Status {
	case StatusNew:
		b.WriteString("<p><b>There is a new agenda.</b></p>\n")
	case StatusRemoved:
		b.WriteString("<p><b>The agenda has been removed.</b></p>\n")
	case StatusChanged:
		b.WriteString("<p><b>The agenda has changed.</b></p>\n")
	case StatusUnchanged:
		b.WriteString("<p>The agenda hasn't changed.</p>\n")
	default:
		b.WriteString("<p>" + agenda.PlaceholderText + "</p>\n")
	}

	if item.Note != "" {
		b.WriteString("<p><i>" + item.Note + "</i></p>\n")
	}

	if m.Location != "" {
		b.WriteString("<p>Location: " + m.Location + "</p>\n")
	}

	switch item.Change.Kind {
	case change.New:
		b.WriteString("<p><b>New listing.</b></p>\n")
	case change.Changed:
		b.WriteString("<p>Changed: " + item.Change.Summary() + "</p>\n")
	}

	if item.DiffName != "" {
		fmt.Fprintf(&b, "<p><a href=\"%s%s\">See what changed</a></p>\n", w.baseURL, item.DiffName)
	}
	if m.AgendaURL != "" {
		fmt.Fprintf(&b, "<p><a href=\"%s\">Agenda PDF</a></p>\n", m.AgendaURL)
	}
	if m.AgendaPacketURL != "" {
		fmt.Fprintf(&b, "<p><a href=\"%s\">Agenda Packet PDF</a></p>\n", m.AgendaPacketURL)
	}
	return b.String()
}
