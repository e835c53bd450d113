package calendar

import (
	"bytes"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/net/html"

	"github.com/akkana/mtgmon/internal/faults"
)

// parseCalendar locates the meetings table by its id anchor and converts
// each body row into a Row. Rows that cannot be read are logged and
// skipped; a missing anchor or headerless table is a faults.Parse error.
func parseCalendar(page []byte, pageURL, tableID string, logger *slog.Logger) ([]Row, error) {
	doc, err := html.Parse(bytes.NewReader(page))
	if err != nil {
		return nil, faults.Wrap(faults.Parse, "parse calendar page", err)
	}

	table := findByID(doc, tableID)
	if table == nil {
		return nil, faults.New(faults.Parse, "calendar table "+strconv.Quote(tableID)+" not found")
	}

	headers := headerNames(table)
	if len(headers) == 0 {
		return nil, faults.New(faults.Parse, "calendar table has no header row")
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, faults.Wrap(faults.Parse, "parse calendar URL", err)
	}

	var rows []Row
	for _, tr := range childElements(findChild(table, "tbody"), "tr") {
		cells := childElements(tr, "td")
		if len(cells) == 0 {
			logger.Warn("skipping calendar row with no cells")
			continue
		}
		row := make(Row, len(headers))
		for i, td := range cells {
			if i >= len(headers) {
				break
			}
			name := headers[i]
			if strings.HasPrefix(name, "Agenda") {
				if href := firstLink(td); href != "" {
					row[name] = absoluteURL(base, href)
				}
				continue
			}
			row[name] = cellText(td)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// headerNames reads the <thead> column names in order. Unnamed columns
// (e.g. the calendar icon) get synthetic names from their index.
func headerNames(table *html.Node) []string {
	thead := findChild(table, "thead")
	if thead == nil {
		return nil
	}
	var names []string
	for _, th := range descendants(thead, "th") {
		name := cellText(th)
		if name == "" {
			name = strconv.Itoa(len(names))
		}
		names = append(names, name)
	}
	return names
}

// cellText extracts the cell's text content with runs of whitespace
// (including the NBSPs Legistar pads cells with) collapsed to single
// spaces, trimmed. Formatting tags such as <br> become word breaks.
func cellText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteByte(' ')
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(strings.ReplaceAll(b.String(), " ", " ")), " ")
}

// firstLink returns the href of the first <a> under n, or "".
func firstLink(n *html.Node) string {
	for _, a := range descendants(n, "a") {
		for _, attr := range a.Attr {
			if attr.Key == "href" && attr.Val != "" {
				return attr.Val
			}
		}
	}
	return ""
}

func absoluteURL(base *url.URL, href string) string {
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}

// findByID finds the element with the given id attribute.
func findByID(n *html.Node, id string) *html.Node {
	if n.Type == html.ElementNode {
		for _, attr := range n.Attr {
			if attr.Key == "id" && attr.Val == id {
				return n
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findByID(c, id); found != nil {
			return found
		}
	}
	return nil
}

// findChild returns the first direct child element with the given tag.
func findChild(n *html.Node, tag string) *html.Node {
	if n == nil {
		return nil
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.Data == tag {
			return c
		}
	}
	return nil
}

// childElements returns the direct child elements with the given tag.
func childElements(n *html.Node, tag string) []*html.Node {
	if n == nil {
		return nil
	}
	var out []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.Data == tag {
			out = append(out, c)
		}
	}
	return out
}

// descendants returns all descendant elements with the given tag, in
// document order.
func descendants(n *html.Node, tag string) []*html.Node {
	if n == nil {
		return nil
	}
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == tag {
			out = append(out, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c)
	}
	return out
}
