package feed

import (
	"encoding/xml"

	"github.com/akkana/mtgmon/internal/meeting"
)

// RSS 2.0 document shape. Dates are carried as pre-formatted strings
// because the canonical format ("Mon, 02 Jan 2006 15:04 GMT") is part of
// the wire contract shared with the JSON store.
type rssDoc struct {
	XMLName xml.Name   `xml:"rss"`
	Version string     `xml:"version,attr"`
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title          string    `xml:"title"`
	Link           string    `xml:"link"`
	Description    string    `xml:"description"`
	Language       string    `xml:"language"`
	Copyright      string    `xml:"copyright"`
	TTL            int       `xml:"ttl"`
	PubDate        string    `xml:"pubDate"`
	Generator      string    `xml:"generator"`
	ManagingEditor string    `xml:"managingEditor"`
	Items          []rssItem `xml:"item"`
}

type rssItem struct {
	Title       string   `xml:"title"`
	GUID        rssGUID  `xml:"guid"`
	Link        string   `xml:"link"`
	Description rssCDATA `xml:"description"`
	PubDate     string   `xml:"pubDate"`
}

type rssGUID struct {
	IsPermaLink string `xml:"isPermaLink,attr"`
	Value       string `xml:",chardata"`
}

type rssCDATA struct {
	Value string `xml:",cdata"`
}

// renderRSS produces the complete index.rss bytes. Items must already be
// sorted.
func (w *Writer) renderRSS(items []*Item, now meeting.Stamp) ([]byte, error) {
	doc := rssDoc{
		Version: "2.0",
		Channel: rssChannel{
			Title:          w.channel.Title,
			Link:           w.baseURL,
			Description:    w.channel.Description,
			Language:       w.channel.Language,
			Copyright:      w.channel.Copyright,
			TTL:            w.channel.TTL,
			PubDate:        now.String(),
			Generator:      w.channel.Generator,
			ManagingEditor: w.channel.ManagingEditor,
		},
	}
	for _, item := range items {
		m := item.Meeting
		doc.Channel.Items = append(doc.Channel.Items, rssItem{
			Title:       m.Title(w.loc),
			GUID:        rssGUID{IsPermaLink: "false", Value: m.GUID()},
			Link:        w.baseURL + m.ID + ".html",
			Description: rssCDATA{Value: w.description(item)},
			PubDate:     m.LastModified.String(),
		})
	}

	out, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(append([]byte(xml.Header), out...), '\n'), nil
}
