package agenda

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/unicode/norm"
)

// colorAttrs are the body attributes pdftohtml uses for its hardcoded
// color theme.
var colorAttrs = map[string]bool{
	"bgcolor": true,
	"text":    true,
	"link":    true,
	"vlink":   true,
}

// Sanitize strips the converter's color theme and fixed-pixel layout from
// an agenda document: body color attributes, <style> elements, and inline
// style attributes on div and p blocks. The result renders with the
// client's own colors.
func Sanitize(doc []byte) ([]byte, error) {
	root, err := html.Parse(bytes.NewReader(doc))
	if err != nil {
		return nil, err
	}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; {
			next := c.NextSibling
			if c.Type == html.ElementNode && c.Data == "style" {
				n.RemoveChild(c)
			} else {
				walk(c)
			}
			c = next
		}
		if n.Type != html.ElementNode {
			return
		}
		switch n.Data {
		case "body":
			n.Attr = dropAttrs(n.Attr, colorAttrs)
		case "div", "p":
			n.Attr = dropAttrs(n.Attr, map[string]bool{"style": true})
		}
	}
	walk(root)

	var out bytes.Buffer
	if err := html.Render(&out, root); err != nil {
		return nil, err
	}
	out.WriteByte('\n')
	return out.Bytes(), nil
}

func dropAttrs(attrs []html.Attribute, names map[string]bool) []html.Attribute {
	kept := attrs[:0]
	for _, a := range attrs {
		if !names[strings.ToLower(a.Key)] {
			kept = append(kept, a)
		}
	}
	return kept
}

// Fingerprint hashes an agenda document's normalized text: NFC-normalized,
// whitespace collapsed. Change detection compares fingerprints instead of
// raw bytes so that converter nondeterminism (embedded timestamps, layout
// jitter) does not flap the feed.
func Fingerprint(doc []byte) string {
	text := Text(doc)
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// Text extracts the document's visible text with whitespace collapsed.
func Text(doc []byte) string {
	root, err := html.Parse(bytes.NewReader(doc))
	if err != nil {
		// Not parseable as HTML; normalize the raw bytes instead.
		return normalize(string(doc))
	}
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
			return
		}
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return normalize(b.String())
}

func normalize(s string) string {
	s = norm.NFC.String(strings.ReplaceAll(s, " ", " "))
	return strings.Join(strings.Fields(s), " ")
}

// decodeLatin1 maps converter output to UTF-8. pdftohtml emits ISO-8859-1
// NBSPs (0xA0) even when asked for UTF-8; already-valid UTF-8 is returned
// untouched.
func decodeLatin1(b []byte) []byte {
	if utf8.Valid(b) {
		return b
	}
	decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(b)
	if err != nil {
		return b
	}
	return decoded
}
