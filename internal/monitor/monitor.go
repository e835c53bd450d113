// Package monitor is the top-level driver: it fetches the calendar,
// retrieves and converts agendas, classifies changes against the store,
// and publishes the artifacts, once per run.
//
// The driver is deliberately single-threaded and sequential; at the scale
// of one municipal calendar there is nothing to parallelize, and the
// artifact ordering guarantees depend on it.
package monitor

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/akkana/mtgmon/internal/agenda"
	"github.com/akkana/mtgmon/internal/calendar"
	"github.com/akkana/mtgmon/internal/change"
	"github.com/akkana/mtgmon/internal/config"
	"github.com/akkana/mtgmon/internal/faults"
	"github.com/akkana/mtgmon/internal/feed"
	"github.com/akkana/mtgmon/internal/meeting"
	"github.com/akkana/mtgmon/internal/store"
)

// Clock supplies the run's notion of now. Injectable for tests.
type Clock interface {
	Now() time.Time
}

// RealClock is the wall clock.
type RealClock struct{}

// Now returns the current wall time.
func (RealClock) Now() time.Time { return time.Now() }

// Monitor wires the pipeline together and owns the run loop.
type Monitor struct {
	cfg       *config.Config
	fetcher   *calendar.Fetcher
	retriever *agenda.Retriever
	store     *store.Store
	writer    *feed.Writer
	loc       *time.Location
	clock     Clock
	logger    *slog.Logger
}

// New builds a Monitor from configuration with the wall clock and the
// configured pdftohtml converter.
func New(cfg *config.Config, logger *slog.Logger) (*Monitor, error) {
	conv := &agenda.PDFToHTML{Path: cfg.PDFToHTML, Timeout: cfg.ConvertTimeout}
	return NewWith(cfg, logger, RealClock{}, conv)
}

// NewWith builds a Monitor with an explicit clock and converter. Tests use
// this to freeze time and fake the PDF conversion.
func NewWith(cfg *config.Config, logger *slog.Logger, clock Clock, conv agenda.Converter) (*Monitor, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, faults.Wrap(faults.Config, "load local_timezone", err)
	}
	st, err := store.Open(cfg.OutputDir, logger)
	if err != nil {
		return nil, err
	}
	return &Monitor{
		cfg:       cfg,
		fetcher:   calendar.New(cfg.CalendarURL, cfg.TableID, cfg.HTTPTimeout, logger),
		retriever: agenda.NewRetriever(cfg.HTTPTimeout, conv, logger),
		store:     st,
		writer:    feed.NewWriter(st, cfg.FeedBaseURL, loc, feed.DefaultChannel(), logger),
		loc:       loc,
		clock:     clock,
		logger:    logger,
	}, nil
}

// Store exposes the underlying store, for tests and the check command.
func (m *Monitor) Store() *store.Store {
	return m.store
}

// RunOnce performs one complete fetch-classify-publish cycle.
//
// A calendar-level network or parse failure aborts the run before the
// store is touched. A store failure aborts at the point of failure; the
// feed is the last artifact written, so a partially processed run never
// publishes an inconsistent index.rss.
func (m *Monitor) RunOnce(ctx context.Context) error {
	now := meeting.NewStamp(m.clock.Now())
	logger := m.logger.With("run", uuid.NewString()[:8])
	logger.Info("run started", "now", now.String())

	scratch, err := os.MkdirTemp("", "mtgmon-*")
	if err != nil {
		return faults.Wrap(faults.Store, "create scratch directory", err)
	}
	defer os.RemoveAll(scratch)

	rows, err := m.fetcher.FetchUpcoming(ctx, m.clock.Now().In(m.loc))
	if err != nil {
		logger.Warn("calendar fetch failed, skipping run", "error", err)
		return err
	}
	logger.Info("calendar fetched", "rows", len(rows))

	items := make([]*feed.Item, 0, len(rows))
	active := make(map[string]bool)
	for _, row := range rows {
		// Safe cancellation boundary: between meetings.
		if err := ctx.Err(); err != nil {
			logger.Warn("run cancelled mid-loop", "error", err)
			return err
		}

		item, err := m.processRow(ctx, row, now, scratch, logger)
		if err != nil {
			return err
		}
		if item == nil || active[item.Meeting.ID] {
			continue
		}
		active[item.Meeting.ID] = true
		items = append(items, item)
	}

	if err := m.writer.WriteIndexHTML(items, now); err != nil {
		return err
	}
	if err := m.writer.WriteFeed(items, now); err != nil {
		return err
	}
	if err := m.writer.GC(active); err != nil {
		return err
	}
	logger.Info("run complete", "meetings", len(items))
	return nil
}

// processRow turns one calendar row into a written feed item. Returns
// (nil, nil) for rows that are skipped: unparseable, duplicate handled by
// the caller, or already past when only_future is set. Store failures
// propagate and abort the run.
func (m *Monitor) processRow(ctx context.Context, row calendar.Row, now meeting.Stamp, scratch string, logger *slog.Logger) (*feed.Item, error) {
	current, err := meeting.FromRow(row, m.loc)
	if err != nil {
		logger.Warn("skipping unparseable row", "error", err)
		return nil, nil
	}
	if m.cfg.OnlyFuture && current.ScheduledAt.Before(now.Time) {
		logger.Debug("skipping past meeting", "id", current.ID)
		return nil, nil
	}

	previous, err := m.store.Load(current.ID)
	if err != nil {
		return nil, err
	}

	note := m.attachAgenda(ctx, current, previous, scratch, logger)

	ch := change.Classify(current, previous)
	switch ch.Kind {
	case change.Unchanged:
		current.LastModified = previous.LastModified
	default:
		current.LastModified = now
	}
	logger.Info("meeting classified", "id", current.ID, "kind", string(ch.Kind), "fields", ch.Summary())

	item := &feed.Item{
		Meeting: current,
		Change:  ch,
		Status:  feed.DeriveStatus(current, previous, ch),
		Note:    note,
	}
	if previous != nil {
		item.PrevAgendaHTML = previous.AgendaHTML
	}
	if err := m.writer.WriteMeeting(item); err != nil {
		return nil, err
	}
	return item, nil
}

// attachAgenda fills in the meeting's agenda body and fingerprint. A
// meeting without an agenda link gets the placeholder. A retrieval or
// conversion failure is recovered locally: the stored body is kept (or the
// placeholder used when there is none) and the returned note says so.
func (m *Monitor) attachAgenda(ctx context.Context, current, previous *meeting.Meeting, scratch string, logger *slog.Logger) (note string) {
	if current.AgendaURL == "" {
		current.AgendaHTML = agenda.Placeholder()
		current.AgendaFingerprint = agenda.Fingerprint(current.AgendaHTML)
		return ""
	}

	html, err := m.retriever.Retrieve(ctx, current.AgendaURL, scratch)
	if err == nil {
		current.AgendaHTML = html
		current.AgendaFingerprint = agenda.Fingerprint(html)
		return ""
	}

	logger.Warn("agenda retrieval failed, using fallback", "id", current.ID, "error", err)
	if previous != nil && len(previous.AgendaHTML) > 0 {
		// Keep the stored body so a transient failure doesn't register
		// as an agenda change.
		current.AgendaHTML = previous.AgendaHTML
		current.AgendaFingerprint = previous.AgendaFingerprint
	} else {
		current.AgendaHTML = agenda.Placeholder()
		current.AgendaFingerprint = agenda.Fingerprint(current.AgendaHTML)
	}
	return "The agenda could not be fetched on the last check."
}

// RunForever invokes RunOnce on the configured interval until ctx is
// cancelled. A failed run is logged and retried on the next interval; the
// sleep itself is interruptible.
func (m *Monitor) RunForever(ctx context.Context, interval time.Duration) error {
	for {
		if err := m.RunOnce(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			m.logger.Warn("run failed, will retry", "error", err, "interval", interval)
		}

		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
