// Package dom wraps a parsed page into the restricted, read-only query
// surface exposed to extraction routines. The two query operations and
// the element projection are the entire API a routine can reach — no
// network, filesystem or process environment leaks through it.
package dom

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
)

// LogBuffer is an ordered, append-only log stream captured during one
// execution attempt. It is not safe for concurrent use; each attempt
// owns its own buffer.
type LogBuffer struct {
	lines []string
}

// Append adds one line to the buffer.
func (b *LogBuffer) Append(line string) {
	b.lines = append(b.lines, line)
}

// Lines returns the captured lines in order.
func (b *LogBuffer) Lines() []string {
	return b.lines
}

// Document is the read-only facade over one fetched page.
type Document struct {
	doc  *goquery.Document
	logs *LogBuffer
}

// Element is a lightweight projection of a matched node. All fields are
// captured at query time; there is no live handle back into the tree.
type Element struct {
	sel *goquery.Selection
}

// Parse builds a Document from raw HTML. Selector failures during later
// queries are reported into logs instead of raised.
func Parse(rawHTML string, logs *LogBuffer) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return nil, err
	}
	if logs == nil {
		logs = &LogBuffer{}
	}
	return &Document{doc: doc, logs: logs}, nil
}

// Query returns the first element matching the selector, or nil when
// nothing matches. A malformed selector degrades to nil plus a log line.
func (d *Document) Query(selector string) *Element {
	matches := d.QueryAll(selector)
	if len(matches) == 0 {
		return nil
	}
	return matches[0]
}

// QueryAll returns every element matching the selector in document
// order. A malformed selector degrades to an empty result plus a log
// line — never an error to the routine.
func (d *Document) QueryAll(selector string) []*Element {
	if _, err := cascadia.ParseGroup(selector); err != nil {
		d.logs.Append("selector error: " + selector + ": " + err.Error())
		return nil
	}
	var out []*Element
	d.doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		out = append(out, &Element{sel: s})
	})
	return out
}

// Count returns the number of nodes matching the selector; malformed
// selectors count as zero.
func (d *Document) Count(selector string) int {
	if _, err := cascadia.ParseGroup(selector); err != nil {
		return 0
	}
	return d.doc.Find(selector).Length()
}

// Title returns the page <title> text.
func (d *Document) Title() string {
	return strings.TrimSpace(d.doc.Find("title").First().Text())
}

// BodyText returns the whitespace-collapsed text content of <body>.
func (d *Document) BodyText() string {
	return strings.Join(strings.Fields(d.doc.Find("body").Text()), " ")
}

// Logs exposes the buffer shared with the executing routine.
func (d *Document) Logs() *LogBuffer {
	return d.logs
}

// Text returns the trimmed text content of the element.
func (e *Element) Text() string {
	return strings.TrimSpace(e.sel.Text())
}

// HTML returns the element's inner markup, or "" if rendering fails.
func (e *Element) HTML() string {
	h, err := e.sel.Html()
	if err != nil {
		return ""
	}
	return h
}

// Attr returns the named attribute value, or "" when absent.
func (e *Element) Attr(name string) string {
	v, _ := e.sel.Attr(name)
	return v
}

// Tag returns the lowercase tag name.
func (e *Element) Tag() string {
	if len(e.sel.Nodes) == 0 {
		return ""
	}
	return strings.ToLower(e.sel.Nodes[0].Data)
}

// Class returns the class attribute.
func (e *Element) Class() string {
	return e.Attr("class")
}

// ID returns the id attribute.
func (e *Element) ID() string {
	return e.Attr("id")
}
