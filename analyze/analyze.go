// Package analyze computes structural signals from a fetched page:
// element tallies, client-framework fingerprints and bot-mitigation
// fingerprints. Analysis is a pure function of the page snapshot,
// recomputed per attempt and never cached.
package analyze

import (
	"fmt"
	"strings"

	"github.com/skylarkhq/gleaner/dom"
	"github.com/skylarkhq/gleaner/models"
)

// minPageBytes is the body size below which a page with no named
// anti-bot match is itself treated as a low-confidence block signal.
const minPageBytes = 500

// antibotFingerprint is one row of the detection table.
type antibotFingerprint struct {
	service  string
	severity string
	patterns []string
}

// antibotTable is matched first-match-wins against the lowercased HTML.
// Named services come before generic heuristics, so a Cloudflare
// challenge is never reported as a generic captcha.
var antibotTable = []antibotFingerprint{
	{"Cloudflare", models.SeverityHigh, []string{"cf-ray", "cf-browser-verification", "cf-challenge", "challenge-platform", "turnstile", "cloudflare"}},
	{"DataDome", models.SeverityHigh, []string{"datadome"}},
	{"PerimeterX", models.SeverityHigh, []string{"perimeterx", "_pxhd", "px-captcha"}},
	{"Imperva Incapsula", models.SeverityHigh, []string{"incapsula", "_incap_", "imperva"}},
	{"Akamai Bot Manager", models.SeverityMedium, []string{"akamai", "_abck", "ak_bmsc"}},
	{"reCAPTCHA", models.SeverityMedium, []string{"g-recaptcha", "recaptcha/api.js"}},
	{"hCaptcha", models.SeverityMedium, []string{"hcaptcha"}},
}

// frameworkFingerprint detects client-rendering frameworks.
type frameworkFingerprint struct {
	name     string
	patterns []string
}

var frameworkTable = []frameworkFingerprint{
	{"React", []string{"data-reactroot", "react-dom", "__next_data__", `id="root"`, "_react"}},
	{"Vue", []string{"data-v-app", "v-cloak", "__nuxt", `id="app"`, "vue.runtime"}},
	{"Angular", []string{"ng-app", "ng-version", "app-root"}},
	{"Svelte", []string{"svelte-", "__sveltekit"}},
	{"Ember", []string{"ember-application", "ember-view"}},
}

// Analyze computes the page analysis from raw HTML and its parsed
// document. SPA likelihood is a conjunction: a recognized framework
// fingerprint, under 10 paragraphs and over 5 script tags.
func Analyze(rawHTML string, doc *dom.Document) *models.PageAnalysis {
	counts := models.StructuralCounts{
		Elements:    doc.Count("*"),
		Headings:    doc.Count("h1, h2, h3, h4, h5, h6"),
		Links:       doc.Count("a"),
		Images:      doc.Count("img"),
		Paragraphs:  doc.Count("p"),
		Tables:      doc.Count("table"),
		Lists:       doc.Count("ul, ol"),
		ScriptTags:  doc.Count("script"),
		StyleSheets: doc.Count("link[rel=stylesheet], style"),
	}

	lower := strings.ToLower(rawHTML)

	var frameworks []string
	for _, fw := range frameworkTable {
		for _, pat := range fw.patterns {
			if strings.Contains(lower, pat) {
				frameworks = append(frameworks, fw.name)
				break
			}
		}
	}

	return &models.PageAnalysis{
		Counts:     counts,
		Frameworks: frameworks,
		Antibot:    detectAntibot(lower, len(rawHTML)),
		LikelySPA:  len(frameworks) > 0 && counts.Paragraphs < 10 && counts.ScriptTags > 5,
	}
}

// detectAntibot walks the fingerprint table first-match-wins, then
// applies the page-too-small heuristic.
func detectAntibot(lowerHTML string, sizeBytes int) *models.AntibotFinding {
	for _, fp := range antibotTable {
		for _, pat := range fp.patterns {
			if strings.Contains(lowerHTML, pat) {
				return &models.AntibotFinding{
					Service:  fp.service,
					Severity: fp.severity,
					Evidence: fmt.Sprintf("fingerprint %q found in page content", pat),
				}
			}
		}
	}
	if sizeBytes < minPageBytes {
		return &models.AntibotFinding{
			Service:  "Unknown",
			Severity: models.SeverityLow,
			Evidence: fmt.Sprintf("page body is only %d bytes with no recognizable content", sizeBytes),
		}
	}
	return nil
}
