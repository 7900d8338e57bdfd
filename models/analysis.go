package models

// Issue kinds, in the fixed order the detector emits them.
const (
	IssueAntibot          = "antibot"
	IssueEmptyPage        = "empty_page"
	IssueSPA              = "spa_dynamic_content"
	IssueNoStructure      = "no_structure"
	IssueHTTP403          = "http_403"
	IssueHTTP429          = "http_429"
	IssueUnusualStructure = "unusual_structure"
)

// Severity levels shared by issues and anti-bot findings.
const (
	SeverityLow    = "low"
	SeverityMedium = "medium"
	SeverityHigh   = "high"
)

// Issue is a typed, human-readable diagnosis of a zero-item outcome.
// Issues are advisory: the only one that triggers engine behaviour is
// IssueAntibot (reactive fallback).
type Issue struct {
	Kind        string   `json:"kind"`
	Severity    string   `json:"severity"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Evidence    string   `json:"evidence,omitempty"`
	Suggestions []string `json:"suggestions,omitempty"`
}

// AntibotFinding is a detected bot-mitigation-service signature.
type AntibotFinding struct {
	Service  string `json:"service"`
	Severity string `json:"severity"`
	Evidence string `json:"evidence"`
}

// StructuralCounts are raw element tallies from the fetched page.
type StructuralCounts struct {
	Elements    int `json:"elements"`
	Headings    int `json:"headings"`
	Links       int `json:"links"`
	Images      int `json:"images"`
	Paragraphs  int `json:"paragraphs"`
	Tables      int `json:"tables"`
	Lists       int `json:"lists"`
	ScriptTags  int `json:"script_tags"`
	StyleSheets int `json:"style_sheets"`
}

// PageAnalysis holds the structural signals computed from one page
// snapshot. It is recomputed per attempt and never cached.
type PageAnalysis struct {
	Counts     StructuralCounts `json:"structural_counts"`
	Frameworks []string         `json:"frameworks_detected,omitempty"`
	Antibot    *AntibotFinding  `json:"antibot,omitempty"`
	LikelySPA  bool             `json:"is_likely_spa"`
}

// Diagnostic bundles the issues and analysis attached to a zero-item
// result. Method and AntibotBypassed describe a browser-driven fallback
// attempt that itself came back empty.
type Diagnostic struct {
	Issues          []Issue       `json:"issues"`
	PageAnalysis    *PageAnalysis `json:"page_analysis,omitempty"`
	Method          string        `json:"method,omitempty"`
	AntibotBypassed bool          `json:"antibot_bypassed,omitempty"`
}
