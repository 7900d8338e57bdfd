package analyze

import (
	"strings"
	"testing"

	"github.com/skylarkhq/gleaner/dom"
	"github.com/skylarkhq/gleaner/models"
)

func analyzed(t *testing.T, html string) *models.PageAnalysis {
	t.Helper()
	doc, err := dom.Parse(html, &dom.LogBuffer{})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return Analyze(html, doc)
}

func TestAnalyze_StructuralCounts(t *testing.T) {
	html := `<html><body>
		<h1>Title</h1><h2>Sub</h2>
		<p>one</p><p>two</p>
		<a href="/x">link</a>
		<img src="/i.png">
		<table><tr><td>c</td></tr></table>
		<ul><li>a</li></ul>
		<script></script>
		<style></style>
	</body></html>`
	analysis := analyzed(t, html)

	c := analysis.Counts
	if c.Headings != 2 || c.Paragraphs != 2 || c.Links != 1 || c.Images != 1 ||
		c.Tables != 1 || c.Lists != 1 || c.ScriptTags != 1 || c.StyleSheets != 1 {
		t.Errorf("counts wrong: %+v", c)
	}
	if c.Elements < 10 {
		t.Errorf("element tally too low: %d", c.Elements)
	}
}

func TestAnalyze_CloudflareChallengeStub(t *testing.T) {
	// A ~300 byte challenge page: named fingerprint wins over the
	// small-page heuristic and reports high severity.
	html := `<html><head><title>Just a moment...</title></head><body>` +
		`<div class="cf-browser-verification">Checking your browser</div>` +
		`<span>cf-ray: 8a2b3c4d5e6f</span></body></html>`
	if len(html) >= 500 {
		t.Fatalf("test page must stay under the small-page threshold, is %d bytes", len(html))
	}

	analysis := analyzed(t, html)
	if analysis.Antibot == nil {
		t.Fatal("expected antibot finding")
	}
	if analysis.Antibot.Service != "Cloudflare" {
		t.Errorf("service = %q, want Cloudflare", analysis.Antibot.Service)
	}
	if analysis.Antibot.Severity != models.SeverityHigh {
		t.Errorf("severity = %q, want high", analysis.Antibot.Severity)
	}
	if analysis.Antibot.Evidence == "" {
		t.Error("finding must carry evidence")
	}
}

func TestAnalyze_FirstMatchWins(t *testing.T) {
	// Page mentions both Cloudflare and reCAPTCHA; the table order picks
	// Cloudflare.
	html := `<html><body>` + strings.Repeat("<p>filler</p>", 60) +
		`<div class="g-recaptcha"></div><script src="https://x/cloudflare.js"></script></body></html>`
	analysis := analyzed(t, html)

	if analysis.Antibot == nil || analysis.Antibot.Service != "Cloudflare" {
		t.Errorf("expected Cloudflare to win, got %+v", analysis.Antibot)
	}
}

func TestAnalyze_SmallPageHeuristic(t *testing.T) {
	analysis := analyzed(t, `<html><body>hi</body></html>`)

	if analysis.Antibot == nil {
		t.Fatal("tiny page with no fingerprint should still flag a finding")
	}
	if analysis.Antibot.Service != "Unknown" || analysis.Antibot.Severity != models.SeverityLow {
		t.Errorf("heuristic finding wrong: %+v", analysis.Antibot)
	}
}

func TestAnalyze_CleanPageNoFinding(t *testing.T) {
	html := `<html><body>` + strings.Repeat("<p>real content paragraph</p>", 40) + `</body></html>`
	analysis := analyzed(t, html)

	if analysis.Antibot != nil {
		t.Errorf("clean page flagged: %+v", analysis.Antibot)
	}
}

func TestAnalyze_SPAHeuristic(t *testing.T) {
	scripts := strings.Repeat(`<script src="/chunk.js"></script>`, 6)
	spa := `<html><body><div id="root" data-reactroot></div>` + scripts + `</body></html>`
	analysis := analyzed(t, spa)

	if !analysis.LikelySPA {
		t.Errorf("react shell with %d scripts and %d paragraphs should be flagged SPA",
			analysis.Counts.ScriptTags, analysis.Counts.Paragraphs)
	}
	found := false
	for _, fw := range analysis.Frameworks {
		if fw == "React" {
			found = true
		}
	}
	if !found {
		t.Errorf("React not detected: %v", analysis.Frameworks)
	}
}

func TestAnalyze_ServerRenderedReactNotSPA(t *testing.T) {
	// Framework plus plenty of server-rendered paragraphs: not an SPA
	// problem, the content is right there.
	html := `<html><body data-reactroot>` + strings.Repeat("<p>content</p>", 20) +
		strings.Repeat(`<script src="/c.js"></script>`, 6) + `</body></html>`
	analysis := analyzed(t, html)

	if analysis.LikelySPA {
		t.Error("server-rendered page should not be flagged SPA")
	}
}

func TestAnalyze_FewScriptsNotSPA(t *testing.T) {
	html := `<html><body><div id="root" data-reactroot></div><script src="/a.js"></script></body></html>`
	analysis := analyzed(t, html)

	if analysis.LikelySPA {
		t.Error("framework shell with few scripts should not be flagged SPA")
	}
}
