package models

// Item is a single extracted record. The engine imposes no schema on the
// keys beyond capping the list length at the request's MaxItems; the
// reserved keys below are set by the generators and fallback providers.
type Item map[string]any

// Reserved item keys.
const (
	ItemKeySelector         = "selector"          // selector that produced the item
	ItemKeyFallbackSelector = "fallback_selector" // structural-fallback selector
	ItemKeySource           = "source"            // producing backend ("webagent", "browser")
	ItemKeyError            = "error"             // legacy placeholder marker
)

// AntibotMarker is the legacy placeholder value some backends put in an
// item's "error" field to signal a detected block instead of failing.
// The result builder recognizes it and converts the whole run to a
// failure with an antibot issue.
const AntibotMarker = "antibot_detected"

// Str returns the string value for key, or "" when absent or non-string.
func (it Item) Str(key string) string {
	s, _ := it[key].(string)
	return s
}

// IsAntibotPlaceholder reports whether the item is a disguised failure
// marker rather than real extracted content.
func (it Item) IsAntibotPlaceholder() bool {
	return it.Str(ItemKeyError) == AntibotMarker
}
