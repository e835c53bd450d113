package monitor

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akkana/mtgmon/internal/config"
	"github.com/akkana/mtgmon/internal/faults"
	"github.com/akkana/mtgmon/internal/testutil"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// textConverter fakes pdftohtml: the "PDF" bytes become the body of a page
// dressed up with the theming the sanitizer strips.
type textConverter struct{}

func (textConverter) Convert(_ context.Context, pdfPath, htmlPath string) error {
	data, err := os.ReadFile(pdfPath)
	if err != nil {
		return err
	}
	page := `<html><head><style>p { color: red }</style></head>` +
		`<body bgcolor="#ffffff"><p>` + string(data) + `</p></body></html>`
	return os.WriteFile(htmlPath, []byte(page), 0o644)
}

// fakeUpstream is a mutable Legistar stand-in: a calendar page whose rows
// change between runs, and one agenda PDF endpoint.
type fakeUpstream struct {
	mu           sync.Mutex
	rows         []string
	agendaText   string
	agendaCode   int // non-zero forces an HTTP error on agenda fetches
	calendarCode int // non-zero forces an HTTP error on calendar fetches
	srv          *httptest.Server
}

func newFakeUpstream(t *testing.T) *fakeUpstream {
	t.Helper()
	f := &fakeUpstream{agendaText: "Item 1. Budget."}
	mux := http.NewServeMux()
	mux.HandleFunc("/calendar", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.calendarCode != 0 {
			http.Error(w, "unavailable", f.calendarCode)
			return
		}
		io.WriteString(w, calendarPage(f.rows...))
	})
	mux.HandleFunc("/agenda.pdf", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.agendaCode != 0 {
			http.Error(w, "unavailable", f.agendaCode)
			return
		}
		io.WriteString(w, f.agendaText)
	})
	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeUpstream) setRows(rows ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows = rows
}

func (f *fakeUpstream) setAgenda(text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.agendaText = text
}

func (f *fakeUpstream) fail(calendarCode, agendaCode int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calendarCode = calendarCode
	f.agendaCode = agendaCode
}

func calendarPage(rows ...string) string {
	return `<html><body><table id="grid"><thead><tr>` +
		`<th>Name</th><th>Meeting Date</th><th>Meeting Time</th>` +
		`<th>Meeting Location</th><th>Agenda</th>` +
		`</tr></thead><tbody>` + strings.Join(rows, "") + `</tbody></table></body></html>`
}

func row(name, date, timeOfDay, location, agendaHref string) string {
	cell := ""
	if agendaHref != "" {
		cell = `<a href="` + agendaHref + `">Agenda</a>`
	}
	return "<tr><td>" + name + "</td><td>" + date + "</td><td>" + timeOfDay +
		"</td><td>" + location + "</td><td>" + cell + "</td></tr>"
}

// councilRow is scheduled 2024-03-06 6:00 PM Denver time, which is 01:00
// UTC on the 7th, so the meeting ID is 2024-03-07-CountyCouncil.
func councilRow(agendaHref string) string {
	return row("County Council", "3/6/2024", "6:00 PM", "Council Chambers", agendaHref)
}

func newTestMonitor(t *testing.T, f *fakeUpstream) (*Monitor, *testutil.FixedClock) {
	t.Helper()
	clock := testutil.NewFixedClock(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))
	cfg := &config.Config{
		CalendarURL:    f.srv.URL + "/calendar",
		FeedBaseURL:    "https://example.com/mtgs/",
		OutputDir:      t.TempDir(),
		Interval:       time.Hour,
		LocalTimezone:  "America/Denver",
		TableID:        "grid",
		HTTPTimeout:    5 * time.Second,
		ConvertTimeout: 5 * time.Second,
	}
	m, err := NewWith(cfg, testLogger(), clock, textConverter{})
	require.NoError(t, err)
	return m, clock
}

func readArtifact(t *testing.T, m *Monitor, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(m.Store().Dir(), name))
	require.NoError(t, err)
	return string(data)
}

func TestRunOnce_EmptyCalendar(t *testing.T) {
	f := newFakeUpstream(t)
	m, _ := newTestMonitor(t, f)

	// A leftover meeting from an earlier run must be collected.
	require.NoError(t, m.Store().WriteArtifact("2023-01-01-OldBoard.json", []byte("{}")))
	require.NoError(t, m.Store().WriteArtifact("2023-01-01-OldBoard.html", []byte("<html></html>")))

	require.NoError(t, m.RunOnce(context.Background()))

	rss := readArtifact(t, m, "index.rss")
	assert.NotContains(t, rss, "<item>")
	assert.Contains(t, rss, "<pubDate>Fri, 01 Mar 2024 12:00 GMT</pubDate>")
	assert.NoFileExists(t, filepath.Join(m.Store().Dir(), "2023-01-01-OldBoard.json"))
	assert.NoFileExists(t, filepath.Join(m.Store().Dir(), "2023-01-01-OldBoard.html"))
	assert.FileExists(t, filepath.Join(m.Store().Dir(), "index.html"))
}

func TestRunOnce_FirstObservation(t *testing.T) {
	f := newFakeUpstream(t)
	f.setRows(councilRow("/agenda.pdf"))
	m, _ := newTestMonitor(t, f)

	require.NoError(t, m.RunOnce(context.Background()))

	stored, err := m.Store().Load("2024-03-07-CountyCouncil")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "County Council", stored.Name)
	assert.Equal(t, "Thu, 07 Mar 2024 01:00 GMT", stored.ScheduledAt.String())
	assert.Equal(t, "Fri, 01 Mar 2024 12:00 GMT", stored.LastModified.String())
	assert.Contains(t, string(stored.AgendaHTML), "Item 1. Budget.")

	rss := readArtifact(t, m, "index.rss")
	assert.Equal(t, 1, strings.Count(rss, "<item>"))
	assert.Contains(t, rss, "<guid isPermaLink=\"false\">2024-03-07-CountyCouncil.20240301-1200</guid>")
	assert.Contains(t, rss, "<link>https://example.com/mtgs/2024-03-07-CountyCouncil.html</link>")
	assert.Contains(t, rss, "There is a new agenda.")
	assert.Contains(t, rss, "New listing.")
	assert.Contains(t, readArtifact(t, m, "index.html"), "County Council on 03/06/2024")
}

func TestRunOnce_UnchangedRerun(t *testing.T) {
	f := newFakeUpstream(t)
	f.setRows(councilRow("/agenda.pdf"))
	m, clock := newTestMonitor(t, f)

	require.NoError(t, m.RunOnce(context.Background()))
	firstJSON := readArtifact(t, m, "2024-03-07-CountyCouncil.json")

	clock.Advance(6 * time.Hour)
	require.NoError(t, m.RunOnce(context.Background()))

	// Nothing changed, so the state file is byte-identical and the item
	// keeps its original pubDate; only the channel pubDate moves.
	assert.Equal(t, firstJSON, readArtifact(t, m, "2024-03-07-CountyCouncil.json"))
	rss := readArtifact(t, m, "index.rss")
	assert.Contains(t, rss, "<pubDate>Fri, 01 Mar 2024 18:00 GMT</pubDate>")
	assert.Contains(t, rss, "<pubDate>Fri, 01 Mar 2024 12:00 GMT</pubDate>")
	assert.Contains(t, rss, "The agenda hasn't changed.")
	assert.NotContains(t, rss, "New listing.")
}

func TestRunOnce_AgendaChanged(t *testing.T) {
	f := newFakeUpstream(t)
	f.setRows(councilRow("/agenda.pdf"))
	m, clock := newTestMonitor(t, f)

	require.NoError(t, m.RunOnce(context.Background()))

	f.setAgenda("Item 2. Road repairs.")
	clock.Advance(6 * time.Hour)
	require.NoError(t, m.RunOnce(context.Background()))

	rss := readArtifact(t, m, "index.rss")
	assert.Contains(t, rss, "The agenda has changed.")
	assert.Contains(t, rss, "Changed: agenda_body")
	assert.Contains(t, rss, "2024-03-07-CountyCouncil.20240301-1800")
	assert.Contains(t, rss, "https://example.com/mtgs/2024-03-07-CountyCouncil-diff.html\">See what changed")

	diff := readArtifact(t, m, "2024-03-07-CountyCouncil-diff.html")
	assert.Contains(t, diff, "<h1>County Council</h1>")
	assert.Contains(t, diff, "<ins")
	assert.Contains(t, diff, "<del")

	stored, err := m.Store().Load("2024-03-07-CountyCouncil")
	require.NoError(t, err)
	assert.Contains(t, string(stored.AgendaHTML), "Item 2. Road repairs.")
}

func TestRunOnce_AgendaRemoved(t *testing.T) {
	f := newFakeUpstream(t)
	f.setRows(councilRow("/agenda.pdf"))
	m, clock := newTestMonitor(t, f)

	require.NoError(t, m.RunOnce(context.Background()))

	f.setRows(councilRow(""))
	clock.Advance(6 * time.Hour)
	require.NoError(t, m.RunOnce(context.Background()))

	rss := readArtifact(t, m, "index.rss")
	assert.Contains(t, rss, "The agenda has been removed.")

	stored, err := m.Store().Load("2024-03-07-CountyCouncil")
	require.NoError(t, err)
	assert.Empty(t, stored.AgendaURL)
	assert.Contains(t, string(stored.AgendaHTML), "No agenda available.")
}

func TestRunOnce_MeetingDisappears(t *testing.T) {
	f := newFakeUpstream(t)
	f.setRows(
		councilRow("/agenda.pdf"),
		row("Planning Board", "3/12/2024", "5:30 PM", "Room 110", ""),
	)
	m, clock := newTestMonitor(t, f)

	require.NoError(t, m.RunOnce(context.Background()))
	assert.FileExists(t, filepath.Join(m.Store().Dir(), "2024-03-12-PlanningBoard.json"))

	f.setRows(councilRow("/agenda.pdf"))
	clock.Advance(6 * time.Hour)
	require.NoError(t, m.RunOnce(context.Background()))

	rss := readArtifact(t, m, "index.rss")
	assert.Equal(t, 1, strings.Count(rss, "<item>"))
	assert.NoFileExists(t, filepath.Join(m.Store().Dir(), "2024-03-12-PlanningBoard.json"))
	assert.NoFileExists(t, filepath.Join(m.Store().Dir(), "2024-03-12-PlanningBoard.html"))
	assert.FileExists(t, filepath.Join(m.Store().Dir(), "2024-03-07-CountyCouncil.json"))
}

func TestRunOnce_DuplicateRowsCollapse(t *testing.T) {
	f := newFakeUpstream(t)
	f.setRows(councilRow("/agenda.pdf"), councilRow("/agenda.pdf"))
	m, _ := newTestMonitor(t, f)

	require.NoError(t, m.RunOnce(context.Background()))

	rss := readArtifact(t, m, "index.rss")
	assert.Equal(t, 1, strings.Count(rss, "<item>"))
}

func TestRunOnce_CalendarFetchFailureLeavesStore(t *testing.T) {
	f := newFakeUpstream(t)
	f.setRows(councilRow("/agenda.pdf"))
	m, clock := newTestMonitor(t, f)

	require.NoError(t, m.RunOnce(context.Background()))
	beforeJSON := readArtifact(t, m, "2024-03-07-CountyCouncil.json")
	beforeRSS := readArtifact(t, m, "index.rss")

	f.fail(http.StatusInternalServerError, 0)
	clock.Advance(6 * time.Hour)
	err := m.RunOnce(context.Background())
	require.Error(t, err)
	assert.True(t, faults.IsNetwork(err))

	// The failed run must not have touched any artifact.
	assert.Equal(t, beforeJSON, readArtifact(t, m, "2024-03-07-CountyCouncil.json"))
	assert.Equal(t, beforeRSS, readArtifact(t, m, "index.rss"))
}

func TestRunOnce_AgendaFetchFailureKeepsStoredBody(t *testing.T) {
	f := newFakeUpstream(t)
	f.setRows(councilRow("/agenda.pdf"))
	m, clock := newTestMonitor(t, f)

	require.NoError(t, m.RunOnce(context.Background()))

	f.fail(0, http.StatusInternalServerError)
	clock.Advance(6 * time.Hour)
	require.NoError(t, m.RunOnce(context.Background()))

	stored, err := m.Store().Load("2024-03-07-CountyCouncil")
	require.NoError(t, err)
	assert.Contains(t, string(stored.AgendaHTML), "Item 1. Budget.")
	assert.Equal(t, "Fri, 01 Mar 2024 12:00 GMT", stored.LastModified.String())

	rss := readArtifact(t, m, "index.rss")
	assert.Contains(t, rss, "The agenda could not be fetched on the last check.")
	assert.Contains(t, rss, "The agenda hasn't changed.")
}

func TestRunOnce_OnlyFutureSkipsPastMeetings(t *testing.T) {
	f := newFakeUpstream(t)
	f.setRows(
		row("Old Board", "2/1/2024", "6:00 PM", "Room 110", ""),
		councilRow("/agenda.pdf"),
	)
	m, _ := newTestMonitor(t, f)
	m.cfg.OnlyFuture = true

	require.NoError(t, m.RunOnce(context.Background()))

	rss := readArtifact(t, m, "index.rss")
	assert.Equal(t, 1, strings.Count(rss, "<item>"))
	assert.Contains(t, rss, "County Council")
	assert.NotContains(t, rss, "Old Board")
}

func TestRunForever_StopsOnCancel(t *testing.T) {
	f := newFakeUpstream(t)
	m, _ := newTestMonitor(t, f)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- m.RunForever(ctx, time.Hour)
	}()

	// Let the first run complete, then stop the loop during the sleep.
	require.Eventually(t, func() bool {
		_, err := os.Stat(filepath.Join(m.Store().Dir(), "index.rss"))
		return err == nil
	}, 5*time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("RunForever did not stop after cancellation")
	}
}
