// Package script compiles declarative extraction configs into typed
// plans and executes them against the DOM facade. A plan is structured
// data — ordered selector steps plus a structural-fallback ladder — run
// directly by the interpreter in this package; no routine text is ever
// synthesized or re-parsed.
package script

import (
	"fmt"

	"github.com/andybalholm/cascadia"

	"github.com/skylarkhq/gleaner/models"
)

// Step is one selector pass of a plan.
type Step struct {
	// Selector is the CSS selector queried by this step.
	Selector string

	// Fallback marks steps from the structural ladder; their items are
	// tagged with fallback_selector instead of selector and deduplicated
	// against everything collected so far.
	Fallback bool
}

// Plan is a self-contained extraction routine in structured form,
// together with its declared data dependencies. Plans carry no mutable
// state; generating twice from the same config yields equal plans.
type Plan struct {
	URL               string
	Steps             []Step
	Workflow          []string
	MaxItems          int
	FallbackThreshold int
}

// structuralLadder is the fixed, priority-ordered selector list tried
// when the primary pass yields too few items: semantic headings first,
// then article/main paragraphs, navigation links, generic class-name
// patterns, and a last-resort catch-all.
var structuralLadder = []string{
	"h1, h2, h3",
	"article p, main p",
	"nav a, header a",
	"[class*=title], [class*=item], [class*=card], [class*=product], [class*=entry]",
	"li, td, a, p, span",
}

// CheckSelectors rejects a config whose selector list is entirely
// unparseable. A single malformed selector among valid ones degrades at
// query time instead; only a list where nothing parses is an error,
// because such a plan can never match what the caller asked for.
func CheckSelectors(cfg *models.ExtractionConfig) error {
	if cfg == nil || len(cfg.Selectors) == 0 {
		return nil
	}
	var firstErr error
	for _, sel := range cfg.Selectors {
		_, err := cascadia.ParseGroup(sel)
		if err == nil {
			return nil
		}
		if firstErr == nil {
			firstErr = fmt.Errorf("%q: %w", sel, err)
		}
	}
	return fmt.Errorf("no selector in the config parses: %w", firstErr)
}

// FromConfig compiles a declarative config into a Plan. The structural
// ladder is always attached; the interpreter only walks it when the
// primary steps produce fewer than FallbackThreshold items.
func FromConfig(cfg *models.ExtractionConfig, url string, maxItems, fallbackThreshold int) *Plan {
	p := &Plan{
		URL:               url,
		MaxItems:          maxItems,
		FallbackThreshold: fallbackThreshold,
	}
	if cfg != nil {
		p.Workflow = cfg.Workflow
		for _, sel := range cfg.Selectors {
			p.Steps = append(p.Steps, Step{Selector: sel})
		}
	}
	for _, sel := range structuralLadder {
		p.Steps = append(p.Steps, Step{Selector: sel, Fallback: true})
	}
	return p
}
