package models

import "errors"

// Execution kinds accepted by the engine. They only affect log verbosity
// and which suggestions are attached to failures; the execution path is
// identical for all three.
const (
	KindDebug = "debug"
	KindAgent = "agent"
	KindTest  = "test"
)

// Extraction modes for config-driven requests.
const (
	ModeSandbox = "sandbox"
	ModeBrowser = "browser"
)

// ExecuteRequest is the payload for POST /api/v1/execute.
//
// Exactly one of Script / Config must be set. A Config without a script
// is compiled into a typed extraction plan by the script package.
type ExecuteRequest struct {
	// URL is the target page. Required.
	URL string `json:"url" binding:"required,url"`

	// Script is a hand-written extraction routine (JavaScript). It runs
	// in an isolated interpreter whose only bindings are the DOM facade,
	// a captured console and an items container.
	Script string `json:"script,omitempty"`

	// Config is a declarative extraction configuration used when no
	// script is supplied.
	Config *ExtractionConfig `json:"config,omitempty"`

	// MaxItems caps the returned item list. Default: 50. Max: 500.
	MaxItems int `json:"max_items,omitempty" binding:"omitempty,min=1,max=500"`

	// Timeout is the maximum duration in seconds for the entire
	// execution (fetch + script + diagnostics). It is clamped to the
	// configured hard ceiling regardless of the value sent.
	// Default: 30.
	Timeout int `json:"timeout,omitempty" binding:"omitempty,min=1"`

	// ExecutionKind tags the request origin. Default: "agent".
	ExecutionKind string `json:"execution_kind,omitempty" binding:"omitempty,oneof=debug agent test"`

	// AgentName identifies the calling persona, echoed into logs only.
	AgentName string `json:"agent_name,omitempty"`
}

// ExtractionConfig is the declarative alternative to a hand-written script.
type ExtractionConfig struct {
	// Selectors are CSS selectors tried in order by the generated plan.
	Selectors []string `json:"selectors,omitempty"`

	// Workflow is an ordered list of free-form step descriptions. It is
	// forwarded to the browser-driven backend as site structure hints and
	// echoed into the plan for traceability.
	Workflow []string `json:"workflow,omitempty"`

	// Mode selects the execution backend. "sandbox" (default) runs the
	// generated plan against a fetched page; "browser" goes straight to
	// the browser-driven backend as a configured choice, not a fallback.
	Mode string `json:"mode,omitempty" binding:"omitempty,oneof=sandbox browser"`

	// Persistence, when set and enabled, saves extracted items to the
	// storage collaborator after a successful run.
	Persistence *PersistenceConfig `json:"persistence,omitempty"`
}

// PersistenceConfig names the destination table for extracted items.
// Storage unavailability degrades to "extracted, not saved" — it never
// fails the execution.
type PersistenceConfig struct {
	Enabled bool   `json:"enabled"`
	Table   string `json:"table,omitempty"`
}

// Defaults applies default values to unset fields.
func (r *ExecuteRequest) Defaults() {
	if r.MaxItems == 0 {
		r.MaxItems = 50
	}
	if r.Timeout == 0 {
		r.Timeout = 30
	}
	if r.ExecutionKind == "" {
		r.ExecutionKind = KindAgent
	}
	if r.Config != nil && r.Config.Mode == "" {
		r.Config.Mode = ModeSandbox
	}
}

// Validate enforces the script-xor-config contract.
func (r *ExecuteRequest) Validate() error {
	if r.Script == "" && r.Config == nil {
		return errors.New("one of script or config is required")
	}
	if r.Script != "" && r.Config != nil {
		return errors.New("script and config are mutually exclusive")
	}
	return nil
}
