package dom

import (
	"strings"
	"testing"
)

const samplePage = `<html><head><title> Sample Page </title></head><body>
<h1 id="main" class="headline big">Welcome</h1>
<ul>
  <li><a href="/one">First</a></li>
  <li><a href="/two">Second</a></li>
</ul>
<p>Some   body
text here.</p>
</body></html>`

func mustParse(t *testing.T, html string) *Document {
	t.Helper()
	doc, err := Parse(html, &LogBuffer{})
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	return doc
}

func TestQueryAll_DocumentOrder(t *testing.T) {
	doc := mustParse(t, samplePage)

	links := doc.QueryAll("li a")
	if len(links) != 2 {
		t.Fatalf("expected 2 links, got %d", len(links))
	}
	if links[0].Text() != "First" || links[1].Text() != "Second" {
		t.Errorf("links out of document order: %q, %q", links[0].Text(), links[1].Text())
	}
	if links[0].Attr("href") != "/one" {
		t.Errorf("Attr(href) = %q, want /one", links[0].Attr("href"))
	}
}

func TestQuery_FirstMatchOnly(t *testing.T) {
	doc := mustParse(t, samplePage)

	el := doc.Query("li a")
	if el == nil {
		t.Fatal("expected a match")
	}
	if el.Text() != "First" {
		t.Errorf("Query returned %q, want first match", el.Text())
	}
}

func TestQuery_NoMatch(t *testing.T) {
	doc := mustParse(t, samplePage)

	if el := doc.Query("table td"); el != nil {
		t.Errorf("expected nil for no match, got %v", el)
	}
}

func TestQueryAll_MalformedSelectorDegrades(t *testing.T) {
	logs := &LogBuffer{}
	doc, err := Parse(samplePage, logs)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	out := doc.QueryAll("li[[")
	if out != nil {
		t.Errorf("malformed selector should return nil, got %d elements", len(out))
	}
	lines := logs.Lines()
	if len(lines) != 1 || !strings.Contains(lines[0], "selector error") {
		t.Errorf("expected one selector error log line, got %v", lines)
	}
}

func TestCount(t *testing.T) {
	doc := mustParse(t, samplePage)

	if got := doc.Count("li"); got != 2 {
		t.Errorf("Count(li) = %d, want 2", got)
	}
	if got := doc.Count("li[["); got != 0 {
		t.Errorf("malformed selector should count 0, got %d", got)
	}
}

func TestTitle(t *testing.T) {
	doc := mustParse(t, samplePage)
	if got := doc.Title(); got != "Sample Page" {
		t.Errorf("Title() = %q, want trimmed title", got)
	}
}

func TestBodyText_CollapsesWhitespace(t *testing.T) {
	doc := mustParse(t, samplePage)
	text := doc.BodyText()
	if strings.Contains(text, "\n") || strings.Contains(text, "  ") {
		t.Errorf("body text not collapsed: %q", text)
	}
	if !strings.Contains(text, "Some body text here.") {
		t.Errorf("body text missing content: %q", text)
	}
}

func TestElement_Projection(t *testing.T) {
	doc := mustParse(t, samplePage)

	h1 := doc.Query("h1")
	if h1 == nil {
		t.Fatal("expected h1 match")
	}
	if h1.Tag() != "h1" {
		t.Errorf("Tag() = %q, want h1", h1.Tag())
	}
	if h1.ID() != "main" {
		t.Errorf("ID() = %q, want main", h1.ID())
	}
	if h1.Class() != "headline big" {
		t.Errorf("Class() = %q", h1.Class())
	}
	if h1.Attr("missing") != "" {
		t.Errorf("absent attribute should be empty, got %q", h1.Attr("missing"))
	}
}

func TestLogBuffer_Order(t *testing.T) {
	b := &LogBuffer{}
	b.Append("first")
	b.Append("second")

	lines := b.Lines()
	if len(lines) != 2 || lines[0] != "first" || lines[1] != "second" {
		t.Errorf("log order not preserved: %v", lines)
	}
}
