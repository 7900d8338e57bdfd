package models

import "fmt"

// Error categories used in API responses and internal error handling.
// The first group are genuine exceptions; the second are diagnostic
// categories that describe why a page yielded nothing.
const (
	CategoryNetwork  = "network"
	CategoryTimeout  = "timeout"
	CategorySelector = "selector"
	CategoryScript   = "script"
	CategorySyntax   = "syntax"
	CategoryHTTP     = "http"
	CategoryInternal = "internal"

	CategoryAntibot          = "antibot"
	CategoryEmptyPage        = "empty_page"
	CategorySPA              = "spa_dynamic_content"
	CategoryNoStructure      = "no_structure"
	CategoryUnusualStructure = "unusual_structure"
)

// ErrorDetail is the structured error in API responses.
type ErrorDetail struct {
	Category    string   `json:"category"`
	Message     string   `json:"message"`
	Suggestions []string `json:"suggestions,omitempty"`
}

// ExecError is the internal error type carrying a category.
// It implements the error interface and supports wrapping via Unwrap.
type ExecError struct {
	Category string
	Message  string
	Err      error // wrapped original error
}

func (e *ExecError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Category, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Category, e.Message)
}

func (e *ExecError) Unwrap() error {
	return e.Err
}

// NewExecError creates a new ExecError.
func NewExecError(category, message string, err error) *ExecError {
	return &ExecError{Category: category, Message: message, Err: err}
}

// ToDetail converts an internal error to an API-facing ErrorDetail with
// the category's remediation list attached.
func (e *ExecError) ToDetail() *ErrorDetail {
	return &ErrorDetail{
		Category:    e.Category,
		Message:     e.Message,
		Suggestions: SuggestionsFor(e.Category),
	}
}

// SuggestionsFor returns the fixed remediation list for a category.
// This is advisory text for the caller, not engine behaviour: the only
// automatic corrective action is the antibot-triggered fallback.
func SuggestionsFor(category string) []string {
	switch category {
	case CategoryNetwork:
		return []string{
			"verify the URL is reachable from this network",
			"check DNS resolution and proxy settings",
			"retry once the target host is available",
		}
	case CategoryTimeout:
		return []string{
			"increase the request timeout (it is clamped to the server ceiling)",
			"simplify the extraction routine or reduce max_items",
			"check whether the target page loads slowly in a browser",
		}
	case CategorySelector:
		return []string{
			"verify the CSS selector syntax",
			"inspect the page markup for the expected elements",
		}
	case CategoryScript:
		return []string{
			"check the routine for runtime errors (see logs for the thrown message)",
			"the routine only sees document, console, utils and items — no network or filesystem",
		}
	case CategorySyntax:
		return []string{
			"fix the JavaScript syntax error reported in the message",
			"the routine is wrapped in a function body; top-level return is allowed",
		}
	case CategoryHTTP:
		return []string{
			"the server refused the request; check the status code in the message",
			"403/429 responses usually indicate bot mitigation — try config.mode=browser",
		}
	case CategoryAntibot:
		return []string{
			"use config.mode=browser to route through the browser-driven backend",
			"reduce request frequency for this domain",
			"the page may require cookies or JavaScript challenges a plain fetch cannot satisfy",
		}
	case CategoryEmptyPage:
		return []string{
			"the server returned almost no content; verify the URL",
			"the page may be an error or redirect stub",
		}
	case CategorySPA:
		return []string{
			"the page renders client-side; use config.mode=browser",
			"look for a JSON API the page itself calls",
		}
	case CategoryNoStructure:
		return []string{
			"the page has very few elements; selectors are unlikely to match",
			"check whether the content is inside frames or loaded later",
		}
	case CategoryUnusualStructure:
		return []string{
			"inspect the page manually and adjust selectors",
			"try the structural fallback by omitting selectors entirely",
		}
	default:
		return nil
	}
}
