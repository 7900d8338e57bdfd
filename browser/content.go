package browser

import (
	"log/slog"
	nurl "net/url"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"

	"github.com/skylarkhq/gleaner/models"
)

// minContentLength is the minimum readability TextContent length for
// the output to be considered a real article rather than scaffolding.
const minContentLength = 50

// mdConverter is goroutine-safe and reused across renders. The base
// plugin strips script/style/head noise; commonmark renders standard
// Markdown.
var mdConverter = converter.NewConverter(
	converter.WithPlugins(
		base.NewBasePlugin(),
		commonmark.NewCommonmarkPlugin(),
	),
)

// itemsFromRendered turns a rendered page into the canonical item list:
// one main-content item (when readability finds an article) followed by
// link items, all tagged source="browser".
func itemsFromRendered(rawHTML, title, pageURL string, maxItems int) ([]models.Item, error) {
	items := make([]models.Item, 0, maxItems)

	if article, ok := extractArticle(rawHTML, pageURL); ok {
		content := article.Content
		if md, err := mdConverter.ConvertString(content, converter.WithDomain(pageURL)); err == nil {
			content = md
		}
		heading := article.Title
		if heading == "" {
			heading = title
		}
		items = append(items, models.Item{
			"kind":    "content",
			"title":   heading,
			"content": content,
			"excerpt": article.Excerpt,
		})
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return nil, err
	}
	doc.Find("a[href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if len(items) >= maxItems {
			return false
		}
		text := strings.TrimSpace(s.Text())
		href, _ := s.Attr("href")
		if text == "" || href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(href, "javascript:") {
			return true
		}
		items = append(items, models.Item{"kind": "link", "text": text, "href": href})
		return true
	})

	for _, it := range items {
		it[models.ItemKeySource] = "browser"
	}
	return items, nil
}

// extractArticle runs the Mozilla Readability algorithm, reporting
// false when the result is too short to be the page's main content.
func extractArticle(rawHTML, pageURL string) (readability.Article, bool) {
	parsedURL, err := nurl.Parse(pageURL)
	if err != nil {
		return readability.Article{}, false
	}
	article, err := readability.FromReader(strings.NewReader(rawHTML), parsedURL)
	if err != nil {
		slog.Debug("readability extraction failed", "url", pageURL, "error", err)
		return readability.Article{}, false
	}
	if len(strings.TrimSpace(article.TextContent)) < minContentLength {
		return readability.Article{}, false
	}
	return article, true
}
