package analyze

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/skylarkhq/gleaner/models"
)

// DetectIssues diagnoses a zero-item outcome. It only runs when the
// executor produced nothing — issues explain failure, they do not
// predict it. Detection order is fixed: antibot, empty page, SPA, low
// structure, HTTP evidence from logs, unusual structure. When nothing
// specific fires, a residual catch-all is emitted so a zero-item result
// always carries at least one issue.
func DetectIssues(rawHTML string, analysis *models.PageAnalysis, logs []string) []models.Issue {
	var issues []models.Issue

	if analysis.Antibot != nil {
		issues = append(issues, models.Issue{
			Kind:        models.IssueAntibot,
			Severity:    analysis.Antibot.Severity,
			Title:       "Bot protection detected",
			Description: fmt.Sprintf("%s appears to be blocking automated access to this page.", analysis.Antibot.Service),
			Evidence:    analysis.Antibot.Evidence,
			Suggestions: models.SuggestionsFor(models.CategoryAntibot),
		})
	}

	if len(rawHTML) < 1000 && analysis.Antibot == nil {
		issues = append(issues, models.Issue{
			Kind:        models.IssueEmptyPage,
			Severity:    models.SeverityMedium,
			Title:       "Page is empty or too small",
			Description: "The server returned almost no markup; this is usually an error stub or a redirect shell.",
			Evidence:    fmt.Sprintf("html length %d bytes", len(rawHTML)),
			Suggestions: models.SuggestionsFor(models.CategoryEmptyPage),
		})
	}

	if analysis.LikelySPA {
		issues = append(issues, models.Issue{
			Kind:        models.IssueSPA,
			Severity:    models.SeverityMedium,
			Title:       "Single-page application with no server-rendered content",
			Description: "The page is rendered client-side; the fetched markup contains scaffolding instead of content.",
			Evidence:    fmt.Sprintf("frameworks %v, %d paragraphs, %d script tags", analysis.Frameworks, analysis.Counts.Paragraphs, analysis.Counts.ScriptTags),
			Suggestions: models.SuggestionsFor(models.CategorySPA),
		})
	}

	if analysis.Counts.Elements < 50 && len(rawHTML) > 1000 {
		issues = append(issues, models.Issue{
			Kind:        models.IssueNoStructure,
			Severity:    models.SeverityLow,
			Title:       "Minimal page structure",
			Description: "The page parses into very few elements; selectors have almost nothing to match against.",
			Evidence:    fmt.Sprintf("%d elements in %d bytes of html", analysis.Counts.Elements, len(rawHTML)),
			Suggestions: models.SuggestionsFor(models.CategoryNoStructure),
		})
	}

	issues = append(issues, logIssues(logs)...)

	if analysis.Counts.Elements >= 50 && analysis.Counts.Links < 3 && analysis.Counts.Paragraphs < 3 {
		issues = append(issues, models.Issue{
			Kind:        models.IssueUnusualStructure,
			Severity:    models.SeverityLow,
			Title:       "Unusual page structure",
			Description: "The page has many elements but almost no links or paragraphs; content may live in attributes or embedded data.",
			Evidence:    fmt.Sprintf("%d elements, %d links, %d paragraphs", analysis.Counts.Elements, analysis.Counts.Links, analysis.Counts.Paragraphs),
			Suggestions: models.SuggestionsFor(models.CategoryUnusualStructure),
		})
	}

	// Residual: the page looks healthy, the extraction logic simply
	// matched nothing.
	if len(issues) == 0 {
		issues = append(issues, models.Issue{
			Kind:        models.IssueUnusualStructure,
			Severity:    models.SeverityLow,
			Title:       "No extractable content matched",
			Description: "The page structure looks normal but the extraction logic selected no elements.",
			Suggestions: models.SuggestionsFor(models.CategoryUnusualStructure),
		})
	}

	return issues
}

// statusEvidence anchors the digits to a status/http/error keyword so
// byte counts and URL paths that happen to contain "403" or "429" do
// not register as HTTP evidence.
var statusEvidence = regexp.MustCompile(`\b(?:status|http|error)[ :]+(403|429)\b`)

// logIssues scrapes captured logs for explicit HTTP 403/429 status
// evidence; the first match wins.
func logIssues(logs []string) []models.Issue {
	for _, line := range logs {
		m := statusEvidence.FindStringSubmatch(strings.ToLower(line))
		if m == nil {
			continue
		}
		switch m[1] {
		case "403":
			return []models.Issue{{
				Kind:        models.IssueHTTP403,
				Severity:    models.SeverityHigh,
				Title:       "Access forbidden (HTTP 403)",
				Description: "A captured log line indicates the server refused the request.",
				Evidence:    line,
				Suggestions: models.SuggestionsFor(models.CategoryHTTP),
			}}
		case "429":
			return []models.Issue{{
				Kind:        models.IssueHTTP429,
				Severity:    models.SeverityHigh,
				Title:       "Rate limited (HTTP 429)",
				Description: "A captured log line indicates the server is throttling requests.",
				Evidence:    line,
				Suggestions: models.SuggestionsFor(models.CategoryHTTP),
			}}
		}
	}
	return nil
}
