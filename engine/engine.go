// Package engine orchestrates one extraction execution end to end:
// fetch, parse, run the routine or plan, diagnose zero-item outcomes,
// drive the browser fallback and persist results. Every path funnels
// into the same response envelope.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/skylarkhq/gleaner/analyze"
	"github.com/skylarkhq/gleaner/config"
	"github.com/skylarkhq/gleaner/dom"
	"github.com/skylarkhq/gleaner/fallback"
	"github.com/skylarkhq/gleaner/fetch"
	"github.com/skylarkhq/gleaner/models"
	"github.com/skylarkhq/gleaner/sandbox"
	"github.com/skylarkhq/gleaner/script"
	"github.com/skylarkhq/gleaner/store"
)

// Engine holds the collaborators for request execution. All fields are
// injected at construction; the engine has no global state.
type Engine struct {
	cfg      *config.Config
	fetcher  *fetch.Fetcher
	executor *sandbox.Executor
	fallback *fallback.Orchestrator
	store    store.Store
}

// New wires an Engine from its collaborators.
func New(cfg *config.Config, fetcher *fetch.Fetcher, executor *sandbox.Executor, fb *fallback.Orchestrator, st store.Store) *Engine {
	if st == nil {
		st = store.Noop{}
	}
	return &Engine{
		cfg:      cfg,
		fetcher:  fetcher,
		executor: executor,
		fallback: fb,
		store:    st,
	}
}

// run carries the mutable state of one execution attempt.
type run struct {
	req      *models.ExecuteRequest
	logs     *dom.LogBuffer
	started  time.Time
	deadline time.Time
}

// Execute runs one extraction request and always returns a response
// envelope; transport-level concerns (status codes) are the handler's
// job. The effective deadline is min(request timeout, configured hard
// ceiling).
func (e *Engine) Execute(ctx context.Context, req *models.ExecuteRequest) *models.ExecuteResponse {
	req.Defaults()

	budget := time.Duration(req.Timeout) * time.Second
	if budget <= 0 || budget > e.cfg.Exec.MaxTimeout {
		budget = e.cfg.Exec.MaxTimeout
	}
	maxItems := req.MaxItems
	if maxItems <= 0 || maxItems > e.cfg.Exec.MaxItems {
		maxItems = e.cfg.Exec.MaxItems
	}
	req.MaxItems = maxItems

	ctx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	r := &run{
		req:      req,
		logs:     &dom.LogBuffer{},
		started:  time.Now(),
		deadline: time.Now().Add(budget),
	}
	r.logs.Append(fmt.Sprintf("execution started: kind=%s url=%s timeout=%s", req.ExecutionKind, req.URL, budget))
	if req.AgentName != "" {
		r.logs.Append("agent: " + req.AgentName)
	}

	slog.Info("execute",
		"url", req.URL,
		"kind", req.ExecutionKind,
		"mode", requestMode(req),
		"max_items", maxItems,
		"timeout", budget,
	)

	// Configured browser mode skips the fetch/sandbox path entirely.
	if req.Config != nil && req.Config.Mode == models.ModeBrowser {
		return e.runDirect(ctx, r)
	}
	return e.runSandbox(ctx, r)
}

// runSandbox is the primary path: fetch the page, run the routine or
// generated plan against the parsed DOM, and diagnose empty results.
func (e *Engine) runSandbox(ctx context.Context, r *run) *models.ExecuteResponse {
	req := r.req

	snapshot, err := e.fetcher.Fetch(ctx, req.URL, time.Until(r.deadline))
	if err != nil {
		r.logs.Append("fetch failed: " + err.Error())
		return e.failure(r, classifyFetchError(err), nil)
	}
	r.logs.Append(fmt.Sprintf("fetched %d bytes from %s (status %d)", len(snapshot.HTML), snapshot.FinalURL, snapshot.StatusCode))

	doc, err := dom.Parse(snapshot.HTML, r.logs)
	if err != nil {
		return e.failure(r, models.NewExecError(models.CategoryInternal, "failed to parse page", err), nil)
	}

	var items []models.Item
	if req.Script != "" {
		items, err = e.executor.Run(ctx, req.Script, doc, req.MaxItems, time.Until(r.deadline))
		if err != nil {
			r.logs.Append("routine failed: " + err.Error())
			return e.failure(r, classifyExecError(err), snapshot)
		}
	} else {
		if err := script.CheckSelectors(req.Config); err != nil {
			r.logs.Append("selector validation failed: " + err.Error())
			return e.failure(r, models.NewExecError(models.CategorySelector, err.Error(), nil), snapshot)
		}
		plan := script.FromConfig(req.Config, req.URL, req.MaxItems, e.cfg.Exec.FallbackThreshold)
		r.logs.Append(script.Describe(plan))
		items = script.Run(plan, doc)
	}

	// An antibot placeholder is a "successful" run that extracted the
	// block page, not content. Convert it to a zero-item outcome so the
	// diagnosis and fallback fire.
	items, blocked := stripAntibotPlaceholders(items, r.logs)

	if len(items) > 0 {
		return e.success(ctx, r, items, snapshot, doc, "")
	}

	analysis := analyze.Analyze(snapshot.HTML, doc)
	if blocked && analysis.Antibot == nil {
		analysis.Antibot = &models.AntibotFinding{
			Service:  "Unknown",
			Severity: models.SeverityHigh,
			Evidence: "extraction routine reported an antibot block marker",
		}
	}
	issues := analyze.DetectIssues(snapshot.HTML, analysis, r.logs.Lines())
	diagnostic := &models.Diagnostic{Issues: issues, PageAnalysis: analysis}

	if fallback.Decide(req.Config, 0, issues) == fallback.TriggerReactive {
		return e.runReactive(ctx, r, snapshot, doc, diagnostic)
	}

	return e.empty(r, snapshot, doc, diagnostic)
}

// runDirect serves config.mode=browser: the browser-driven backend is
// the chosen path, not a recovery.
func (e *Engine) runDirect(ctx context.Context, r *run) *models.ExecuteResponse {
	req := r.req
	r.logs.Append("mode=browser: routing to browser-driven backend")

	result, err := e.fallback.Attempt(ctx, req.URL, req.MaxItems, requestWorkflow(req), r.logs)
	if err != nil {
		if errors.Is(err, fallback.ErrUnavailable) {
			r.logs.Append("fallback unavailable: no browser-driven backend reachable")
			return e.failure(r, models.NewExecError(models.CategoryInternal, "browser-driven backend unavailable", err), nil)
		}
		return e.failure(r, models.NewExecError(models.CategoryInternal, "browser-driven execution failed", err), nil)
	}

	if len(result.Items) == 0 {
		diagnostic := &models.Diagnostic{
			Issues: []models.Issue{{
				Kind:        models.IssueUnusualStructure,
				Severity:    models.SeverityLow,
				Title:       "No extractable content matched",
				Description: "The browser-driven backend rendered the page but selected no elements.",
				Suggestions: models.SuggestionsFor(models.CategoryUnusualStructure),
			}},
			Method: "browser-driven",
		}
		resp := e.empty(r, nil, nil, diagnostic)
		resp.FallbackUsed = result.Provider
		return resp
	}

	return e.success(ctx, r, result.Items, nil, nil, result.Provider)
}

// runReactive re-attempts a blocked extraction through the browser
// providers. Unavailability fails closed: the original diagnostic
// result stands, with a log line noting why.
func (e *Engine) runReactive(ctx context.Context, r *run, snapshot *fetch.Snapshot, doc *dom.Document, diagnostic *models.Diagnostic) *models.ExecuteResponse {
	r.logs.Append("antibot detected with zero items: attempting browser-driven fallback")

	result, err := e.fallback.Attempt(ctx, r.req.URL, r.req.MaxItems, requestWorkflow(r.req), r.logs)
	if err != nil {
		if errors.Is(err, fallback.ErrUnavailable) {
			r.logs.Append("fallback unavailable: returning diagnostic result")
		}
		return e.empty(r, snapshot, doc, diagnostic)
	}

	if len(result.Items) == 0 {
		// The backend got past the block but still found nothing.
		diagnostic.Method = "browser-driven"
		diagnostic.AntibotBypassed = true
		resp := e.empty(r, snapshot, doc, diagnostic)
		resp.FallbackUsed = result.Provider
		return resp
	}

	resp := e.success(ctx, r, result.Items, snapshot, doc, result.Provider)
	return resp
}

// success assembles the non-empty-result envelope and runs persistence.
// Persistence failures degrade to rows_saved=0 plus a log line.
func (e *Engine) success(ctx context.Context, r *run, items []models.Item, snapshot *fetch.Snapshot, doc *dom.Document, fallbackUsed string) *models.ExecuteResponse {
	rowsSaved := 0
	if p := requestPersistence(r.req); p != nil && p.Enabled {
		table := p.Table
		if table == "" {
			table = "extracted_items"
		}
		n, err := e.store.InsertRows(ctx, table, items)
		if err != nil {
			r.logs.Append("persistence failed, items extracted but not saved: " + err.Error())
			slog.Warn("persistence failed", "table", table, "rows", len(items), "error", err)
		} else {
			rowsSaved = n
			r.logs.Append(fmt.Sprintf("persisted %d row(s) to %s", n, table))
		}
	}

	r.logs.Append(fmt.Sprintf("execution finished: %d item(s)", len(items)))
	return &models.ExecuteResponse{
		Success:         true,
		Items:           items,
		Logs:            r.logs.Lines(),
		PageInfo:        pageInfo(snapshot, doc, true),
		ExecutionTimeMs: time.Since(r.started).Milliseconds(),
		FallbackUsed:    fallbackUsed,
		RowsSaved:       rowsSaved,
	}
}

// empty assembles the zero-item envelope. The diagnostic explains the
// outcome; the error category mirrors its leading issue.
func (e *Engine) empty(r *run, snapshot *fetch.Snapshot, doc *dom.Document, diagnostic *models.Diagnostic) *models.ExecuteResponse {
	detail := &models.ErrorDetail{
		Category: models.CategoryUnusualStructure,
		Message:  "no items were extracted",
	}
	if len(diagnostic.Issues) > 0 {
		lead := diagnostic.Issues[0]
		detail.Category = lead.Kind
		detail.Message = lead.Title
		detail.Suggestions = lead.Suggestions
	}

	return &models.ExecuteResponse{
		Success:         false,
		Items:           []models.Item{},
		Logs:            r.logs.Lines(),
		PageInfo:        pageInfo(snapshot, doc, false),
		Diagnostic:      diagnostic,
		ExecutionTimeMs: time.Since(r.started).Milliseconds(),
		Error:           detail,
	}
}

// failure assembles the hard-error envelope (fetch, parse, routine or
// backend failure).
func (e *Engine) failure(r *run, execErr *models.ExecError, snapshot *fetch.Snapshot) *models.ExecuteResponse {
	slog.Warn("execution failed", "url", r.req.URL, "category", execErr.Category, "error", execErr)
	return &models.ExecuteResponse{
		Success:         false,
		Items:           []models.Item{},
		Logs:            r.logs.Lines(),
		PageInfo:        pageInfo(snapshot, nil, false),
		ExecutionTimeMs: time.Since(r.started).Milliseconds(),
		Error:           execErr.ToDetail(),
	}
}

// pageInfo builds the page metadata block; nil when no page was fetched.
func pageInfo(snapshot *fetch.Snapshot, doc *dom.Document, hasItems bool) *models.PageInfo {
	if snapshot == nil {
		return nil
	}
	hasContent := hasItems
	if !hasContent && doc != nil {
		hasContent = doc.BodyText() != ""
	}
	title := snapshot.Title
	if title == "" && doc != nil {
		title = doc.Title()
	}
	return models.NewPageInfo(title, snapshot.FinalURL, len(snapshot.HTML), hasContent)
}

// stripAntibotPlaceholders removes marker items and reports whether any
// were present.
func stripAntibotPlaceholders(items []models.Item, logs *dom.LogBuffer) ([]models.Item, bool) {
	kept := items[:0]
	blocked := false
	for _, it := range items {
		if it.IsAntibotPlaceholder() {
			blocked = true
			continue
		}
		kept = append(kept, it)
	}
	if blocked {
		logs.Append("routine reported antibot block marker; treating result as blocked")
	}
	return kept, blocked
}

// classifyFetchError maps fetch failures onto error categories.
func classifyFetchError(err error) *models.ExecError {
	var httpErr *fetch.HTTPError
	if errors.As(err, &httpErr) {
		return models.NewExecError(models.CategoryHTTP,
			fmt.Sprintf("server returned status %d %s", httpErr.Status, httpErr.StatusText), err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return models.NewExecError(models.CategoryTimeout, "fetch exceeded the time budget", err)
	}
	var netErr *fetch.NetworkError
	if errors.As(err, &netErr) {
		if errors.Is(netErr.Err, context.DeadlineExceeded) {
			return models.NewExecError(models.CategoryTimeout, "fetch exceeded the time budget", err)
		}
		return models.NewExecError(models.CategoryNetwork, "failed to reach the target", err)
	}
	return models.NewExecError(models.CategoryNetwork, "fetch failed", err)
}

// classifyExecError maps sandbox failures onto error categories.
func classifyExecError(err error) *models.ExecError {
	var syntaxErr *sandbox.SyntaxError
	if errors.As(err, &syntaxErr) {
		return models.NewExecError(models.CategorySyntax, syntaxErr.Msg, err)
	}
	var timeoutErr *sandbox.TimeoutError
	if errors.As(err, &timeoutErr) {
		return models.NewExecError(models.CategoryTimeout, timeoutErr.Error(), err)
	}
	var scriptErr *sandbox.ScriptError
	if errors.As(err, &scriptErr) {
		return models.NewExecError(models.CategoryScript, scriptErr.Msg, err)
	}
	return models.NewExecError(models.CategoryInternal, "routine execution failed", err)
}

func requestMode(req *models.ExecuteRequest) string {
	if req.Script != "" {
		return "script"
	}
	if req.Config != nil {
		return req.Config.Mode
	}
	return ""
}

func requestWorkflow(req *models.ExecuteRequest) []string {
	if req.Config != nil {
		return req.Config.Workflow
	}
	return nil
}

func requestPersistence(req *models.ExecuteRequest) *models.PersistenceConfig {
	if req.Config != nil {
		return req.Config.Persistence
	}
	return nil
}
