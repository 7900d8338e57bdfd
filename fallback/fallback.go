// Package fallback decides whether and how an extraction task is
// re-attempted through a browser-driven provider, and runs the attempt.
package fallback

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	"github.com/skylarkhq/gleaner/dom"
	"github.com/skylarkhq/gleaner/models"
)

// Provider is one browser-driven extraction backend. Implemented by
// webagent.Client (external service) and browser.Engine (local Chrome).
type Provider interface {
	Name() string

	// Ready is the reachability probe. It must return quickly; its
	// timeout is independent of the main request budget.
	Ready(ctx context.Context) bool

	// Run performs the extraction and returns canonical items tagged
	// with their source.
	Run(ctx context.Context, pageURL string, maxItems int, workflow []string) ([]models.Item, error)
}

// Trigger is the orchestrator state for one request.
type Trigger int

const (
	// TriggerDisabled: no condition met; the primary result stands.
	TriggerDisabled Trigger = iota

	// TriggerDirect: the caller configured mode=browser. This is a
	// configured choice, not a fallback.
	TriggerDirect

	// TriggerReactive: the primary path produced zero items and the
	// diagnosis found bot mitigation.
	TriggerReactive
)

// Decide computes the trigger from the request config and the primary
// attempt's outcome. Only an antibot issue triggers the reactive path;
// every other failure category is reported, not retried, because
// re-running a syntax or selector error cannot succeed.
func Decide(cfg *models.ExtractionConfig, itemCount int, issues []models.Issue) Trigger {
	if cfg != nil && cfg.Mode == models.ModeBrowser {
		return TriggerDirect
	}
	if itemCount > 0 {
		return TriggerDisabled
	}
	for _, issue := range issues {
		if issue.Kind == models.IssueAntibot {
			return TriggerReactive
		}
	}
	return TriggerDisabled
}

// ErrUnavailable indicates no provider passed its reachability probe.
// The engine fails closed on this: it keeps the original result and
// appends a log line instead of raising.
var ErrUnavailable = errors.New("no fallback provider available")

// Result is a successful provider attempt.
type Result struct {
	Items    []models.Item
	Provider string
}

// Orchestrator tries providers sequentially; first success wins and the
// remaining candidates are not tried. A provider attempt is never
// repeated — its failure is reported verbatim to bound total latency.
type Orchestrator struct {
	providers []Provider
}

// NewOrchestrator creates an Orchestrator. Nil providers are skipped so
// callers can pass optional engines unconditionally.
func NewOrchestrator(providers ...Provider) *Orchestrator {
	o := &Orchestrator{}
	for _, p := range providers {
		if p != nil {
			o.providers = append(o.providers, p)
		}
	}
	return o
}

// Attempt runs the first ready provider. Probe failures and provider
// errors are recorded into logs; ErrUnavailable is returned when no
// provider was ready at all.
func (o *Orchestrator) Attempt(ctx context.Context, pageURL string, maxItems int, workflow []string, logs *dom.LogBuffer) (*Result, error) {
	var lastErr error
	probed := false

	for _, p := range o.providers {
		if !p.Ready(ctx) {
			logs.Append("fallback unavailable: provider " + p.Name() + " failed reachability check")
			continue
		}
		probed = true

		items, err := p.Run(ctx, pageURL, maxItems, workflow)
		if err != nil {
			lastErr = err
			logs.Append("fallback provider " + p.Name() + " failed: " + err.Error())
			slog.Warn("fallback provider failed", "provider", p.Name(), "url", pageURL, "error", err)
			continue
		}
		logs.Append("fallback provider " + p.Name() + " returned " + strconv.Itoa(len(items)) + " item(s)")
		return &Result{Items: items, Provider: p.Name()}, nil
	}

	if !probed {
		return nil, ErrUnavailable
	}
	if lastErr == nil {
		lastErr = ErrUnavailable
	}
	return nil, lastErr
}
