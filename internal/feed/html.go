package feed

import (
	"bytes"
	"html/template"

	"github.com/akkana/mtgmon/internal/meeting"
)

// indexTemplate renders the human-readable companion to index.rss.
var indexTemplate = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html>
<head>
  <title>{{.Title}}</title>
  <link rel="alternate" type="application/rss+xml"
        title="{{.Title}}"
        href="{{.BaseURL}}index.rss" />
</head>
<body>
<h1>{{.Title}}</h1>
<p>As of: {{.Now}} .......... <a href="{{.BaseURL}}index.rss">RSS 2.0 feed</a></p>
{{range .Items}}
<h2>{{.Title}}</h2>
{{if .AgendaLink}}<p><b><a href="{{.AgendaLink}}">Agenda: {{.Title}}</a></b></p>
{{end}}<p>{{.Description}}</p>
{{end}}</body>
</html>
`))

type indexPage struct {
	Title   string
	BaseURL string
	Now     string
	Items   []indexItem
}

type indexItem struct {
	Title       string
	AgendaLink  string
	Description template.HTML
}

// renderIndexHTML produces the index.html bytes. Items must already be
// sorted.
func (w *Writer) renderIndexHTML(items []*Item, now meeting.Stamp) ([]byte, error) {
	page := indexPage{
		Title:   w.channel.Title,
		BaseURL: w.baseURL,
		Now:     now.String(),
	}
	for _, item := range items {
		m := item.Meeting
		entry := indexItem{
			Title:       m.Title(w.loc),
			Description: template.HTML(w.description(item)),
		}
		if m.AgendaURL != "" {
			entry.AgendaLink = w.baseURL + m.ID + ".html"
		}
		page.Items = append(page.Items, entry)
	}

	var out bytes.Buffer
	if err := indexTemplate.Execute(&out, page); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}
