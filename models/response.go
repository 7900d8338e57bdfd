package models

import "fmt"

// ExecuteResponse is the unified result envelope for POST /api/v1/execute.
// Both the sandbox path and the browser-driven fallback path produce this
// same shape.
type ExecuteResponse struct {
	// Success reflects genuinely extracted content: true iff Items is
	// non-empty after placeholder markers have been filtered out.
	Success bool `json:"success"`

	// Items is the extracted item list, capped at the request's MaxItems.
	Items []Item `json:"items"`

	// Logs is the ordered captured log stream (console output, selector
	// warnings, fallback notes).
	Logs []string `json:"logs"`

	// PageInfo describes the fetched page. Omitted when the fetch itself
	// failed.
	PageInfo *PageInfo `json:"page_info,omitempty"`

	// Diagnostic explains a zero-item outcome. Omitted when Items is
	// non-empty.
	Diagnostic *Diagnostic `json:"diagnostic,omitempty"`

	// ExecutionTimeMs is the end-to-end duration in milliseconds.
	ExecutionTimeMs int64 `json:"execution_time_ms"`

	// FallbackUsed names the backend that produced the result when the
	// primary path was bypassed or re-attempted (e.g. "webagent").
	FallbackUsed string `json:"fallback_used,omitempty"`

	// RowsSaved reports how many items the storage collaborator accepted.
	// Zero with Success=true means "extracted, not saved".
	RowsSaved int `json:"rows_saved,omitempty"`

	// Error is populated only when Success is false.
	Error *ErrorDetail `json:"error,omitempty"`
}

// PageInfo holds page-level metadata for the response envelope.
type PageInfo struct {
	Title      string `json:"title"`
	URL        string `json:"url"`
	SizeBytes  int    `json:"size_bytes"`
	SizeText   string `json:"size_text"`
	HasContent bool   `json:"has_content"`
}

// NewPageInfo builds a PageInfo from raw page data.
func NewPageInfo(title, url string, sizeBytes int, hasContent bool) *PageInfo {
	return &PageInfo{
		Title:      title,
		URL:        url,
		SizeBytes:  sizeBytes,
		SizeText:   humanSize(sizeBytes),
		HasContent: hasContent,
	}
}

// humanSize renders a byte count as "512 B", "12.3 KB" or "1.2 MB".
func humanSize(n int) string {
	switch {
	case n < 1<<10:
		return fmt.Sprintf("%d B", n)
	case n < 1<<20:
		return fmt.Sprintf("%.1f KB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%.1f MB", float64(n)/(1<<20))
	}
}

// HealthResponse is the response for GET /api/v1/health.
type HealthResponse struct {
	Status    string     `json:"status"` // "healthy" or "degraded"
	Uptime    string     `json:"uptime"`
	PoolStats *PoolStats `json:"pool_stats,omitempty"`
	Version   string     `json:"version"`
}

// PoolStats reports the state of the local browser page pool, when the
// browser engine is enabled.
type PoolStats struct {
	MaxPages    int `json:"max_pages"`
	ActivePages int `json:"active_pages"`
}
