package browser

import (
	"strings"
	"testing"

	"github.com/skylarkhq/gleaner/models"
)

const renderedArticle = `<html><head><title>Release Notes</title></head><body>
<nav><a href="#top">Top</a><a href="javascript:void(0)">Noop</a></nav>
<article>
<h1>Version 2.0 Released</h1>
<p>The new release brings a reworked storage layer, faster startup and a number of
smaller fixes collected over the last months of development and testing.</p>
<p>Upgrading is seamless for most installations; the data directory is migrated in
place on first start and no manual steps are required for the common setups.</p>
</article>
<footer><a href="/changelog">Full changelog</a><a href="/download">Download</a></footer>
</body></html>`

func TestItemsFromRendered_ContentThenLinks(t *testing.T) {
	items, err := itemsFromRendered(renderedArticle, "Release Notes", "https://example.com/notes", 50)
	if err != nil {
		t.Fatalf("itemsFromRendered failed: %v", err)
	}
	if len(items) == 0 {
		t.Fatal("expected items")
	}

	if items[0]["kind"] != "content" {
		t.Fatalf("first item must be the main content, got %v", items[0]["kind"])
	}
	content, _ := items[0]["content"].(string)
	if !strings.Contains(content, "reworked storage layer") {
		t.Errorf("article text lost: %q", content)
	}

	var hrefs []string
	for _, it := range items[1:] {
		if it["kind"] != "link" {
			t.Errorf("trailing items must be links: %v", it)
		}
		hrefs = append(hrefs, it.Str("href"))
	}
	for _, href := range hrefs {
		if strings.HasPrefix(href, "#") || strings.HasPrefix(href, "javascript:") {
			t.Errorf("anchor/javascript links must be skipped: %q", href)
		}
	}
}

func TestItemsFromRendered_SourceTag(t *testing.T) {
	items, err := itemsFromRendered(renderedArticle, "", "https://example.com/notes", 50)
	if err != nil {
		t.Fatalf("itemsFromRendered failed: %v", err)
	}
	for _, it := range items {
		if it.Str(models.ItemKeySource) != "browser" {
			t.Errorf("item not tagged with source: %v", it)
		}
	}
}

func TestItemsFromRendered_MaxItemsCap(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("<html><body>")
	for i := 0; i < 30; i++ {
		sb.WriteString(`<a href="/p">page link text</a>`)
	}
	sb.WriteString("</body></html>")

	items, err := itemsFromRendered(sb.String(), "", "https://example.com", 5)
	if err != nil {
		t.Fatalf("itemsFromRendered failed: %v", err)
	}
	if len(items) > 5 {
		t.Errorf("cap not applied: %d items", len(items))
	}
}

func TestItemsFromRendered_NoArticleStillLinks(t *testing.T) {
	html := `<html><body><a href="/only">Only link</a></body></html>`
	items, err := itemsFromRendered(html, "", "https://example.com", 50)
	if err != nil {
		t.Fatalf("itemsFromRendered failed: %v", err)
	}
	if len(items) != 1 || items[0]["kind"] != "link" {
		t.Errorf("expected a single link item, got %v", items)
	}
}

func TestExtractArticle_TooShortRejected(t *testing.T) {
	if _, ok := extractArticle(`<html><body><p>tiny</p></body></html>`, "https://example.com"); ok {
		t.Error("short scaffolding must not count as an article")
	}
}
