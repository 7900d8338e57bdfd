// Package webagent is the client for the external browser-driven
// extraction backend. The backend exposes several operation endpoints
// with one logical meaning but three different payload shapes; the
// normalization in payload.go shields the rest of the engine from that
// schema instability.
package webagent

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/skylarkhq/gleaner/config"
	"github.com/skylarkhq/gleaner/models"
)

// ErrUnavailable indicates the backend did not answer the reachability
// probe or every endpoint candidate failed.
var ErrUnavailable = errors.New("webagent backend unavailable")

// agentRequest is the request body shared by all operation endpoints.
type agentRequest struct {
	URL           string `json:"url"`
	Goal          string `json:"goal"`
	MaxSteps      int    `json:"maxSteps"`
	Screenshot    bool   `json:"screenshot"`
	SiteStructure string `json:"site_structure,omitempty"`
}

// endpoint is one operation mode candidate. Candidates are tried
// sequentially in order; the first 2xx response wins.
type endpoint struct {
	path string
	goal string
}

var endpoints = []endpoint{
	{path: "/agent/execute", goal: "extract all meaningful content, links and navigation from the page"},
	{path: "/agent/summarize", goal: "summarize the page content into discrete items"},
}

// Client talks to the backend. It is safe for concurrent use.
type Client struct {
	baseURL      string
	httpClient   *http.Client
	probeTimeout time.Duration
	maxSteps     int
}

// New creates a Client from config.
func New(cfg config.WebAgentConfig) *Client {
	maxSteps := cfg.MaxSteps
	if maxSteps < 1 {
		maxSteps = 1
	}
	if maxSteps > 10 {
		maxSteps = 10
	}
	probe := cfg.ProbeTimeout
	if probe <= 0 {
		probe = 3 * time.Second
	}
	reqTimeout := cfg.RequestTimeout
	if reqTimeout <= 0 {
		reqTimeout = 60 * time.Second
	}
	return &Client{
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		httpClient:   &http.Client{Timeout: reqTimeout},
		probeTimeout: probe,
		maxSteps:     maxSteps,
	}
}

// Name implements the fallback provider interface.
func (c *Client) Name() string { return "webagent" }

// Ready probes the backend health endpoint with a short fixed timeout,
// independent of the main request budget.
func (c *Client) Ready(ctx context.Context) bool {
	if c.baseURL == "" {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, c.probeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		slog.Debug("webagent probe failed", "error", err)
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode <= 299
}

// Run tries the operation endpoints in order and returns the normalized
// item list from the first that answers 2xx. Non-2xx and transport
// errors mean "try the next candidate"; exhausting all candidates
// returns ErrUnavailable.
func (c *Client) Run(ctx context.Context, pageURL string, maxItems int, workflow []string) ([]models.Item, error) {
	var lastErr error
	for _, ep := range endpoints {
		items, err := c.attempt(ctx, ep, pageURL, maxItems, workflow)
		if err != nil {
			lastErr = err
			slog.Debug("webagent endpoint failed", "path", ep.path, "error", err)
			continue
		}
		return items, nil
	}
	if lastErr == nil {
		lastErr = ErrUnavailable
	}
	return nil, fmt.Errorf("%w: %v", ErrUnavailable, lastErr)
}

func (c *Client) attempt(ctx context.Context, ep endpoint, pageURL string, maxItems int, workflow []string) ([]models.Item, error) {
	body, err := json.Marshal(agentRequest{
		URL:           pageURL,
		Goal:          ep.goal,
		MaxSteps:      c.maxSteps,
		Screenshot:    false,
		SiteStructure: strings.Join(workflow, "; "),
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+ep.path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("endpoint %s returned status %d", ep.path, resp.StatusCode)
	}

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	return normalize(respBody, maxItems)
}
