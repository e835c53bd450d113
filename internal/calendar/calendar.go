// Package calendar retrieves the upstream Legistar meetings calendar and
// parses it into ordered row records.
//
// The parser depends on three upstream contracts: the calendar table is
// identified by a configurable DOM id, its <thead> carries one <th> per
// column, and each <tbody> row carries matching <td> cells. Everything else
// about the page is ignored.
package calendar

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/akkana/mtgmon/internal/faults"
)

// Row maps column headers to trimmed cell text. For "Agenda"-prefixed
// columns the value is the cell link's absolute URL; cells without a link
// leave the key absent.
type Row map[string]string

// nextMonthCookie is the ASP.NET preference cookie that switches the
// calendar page to next month's listings. The page only ever shows one
// month at a time.
const nextMonthCookie = "Setting-69-Calendar Year=Next Month"

// Fetcher retrieves and parses the calendar page.
type Fetcher struct {
	client  *http.Client
	url     string
	tableID string
	logger  *slog.Logger
}

// New creates a Fetcher for the calendar at url, locating the meetings
// table by the id attribute tableID.
func New(url, tableID string, timeout time.Duration, logger *slog.Logger) *Fetcher {
	return &Fetcher{
		client:  &http.Client{Timeout: timeout},
		url:     url,
		tableID: tableID,
		logger:  logger,
	}
}

// Fetch retrieves the calendar page and returns its rows in upstream order.
// No filtering is performed here.
func (f *Fetcher) Fetch(ctx context.Context) ([]Row, error) {
	return f.fetchPage(ctx, false)
}

// FetchUpcoming retrieves this month's rows, and late in the month (after
// the 20th) also next month's, returned in chronological order overall.
// The page lists meetings latest-first, so each page's rows are reversed.
func (f *Fetcher) FetchUpcoming(ctx context.Context, now time.Time) ([]Row, error) {
	var rows []Row
	if now.Day() > 20 {
		next, err := f.fetchPage(ctx, true)
		if err != nil {
			return nil, err
		}
		rows = next
	}
	current, err := f.fetchPage(ctx, false)
	if err != nil {
		return nil, err
	}
	rows = append(rows, current...)
	reverse(rows)
	return rows, nil
}

func (f *Fetcher) fetchPage(ctx context.Context, nextMonth bool) ([]Row, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, faults.WrapURL(faults.Network, "build calendar request", f.url, err)
	}
	if nextMonth {
		// Set the raw header rather than http.Cookie: the upstream
		// cookie name contains a space, which AddCookie would mangle.
		req.Header.Set("Cookie", nextMonthCookie)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, faults.WrapURL(faults.Network, "fetch calendar", f.url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, faults.WrapURL(faults.Network, fmt.Sprintf("fetch calendar: status %d", resp.StatusCode), f.url, nil)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, faults.WrapURL(faults.Network, "read calendar body", f.url, err)
	}

	rows, err := parseCalendar(body, f.url, f.tableID, f.logger)
	if err != nil {
		return nil, err
	}
	f.logger.Debug("calendar page parsed", "rows", len(rows), "next_month", nextMonth)
	return rows, nil
}

func reverse(rows []Row) {
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
}
