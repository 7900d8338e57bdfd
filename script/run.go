package script

import (
	"fmt"

	"github.com/skylarkhq/gleaner/dom"
	"github.com/skylarkhq/gleaner/models"
)

// Run executes a plan against the document and returns the extracted
// items in document order. It is deterministic: the same plan against
// the same document always selects the same items in the same order.
func Run(plan *Plan, doc *dom.Document) []models.Item {
	items := make([]models.Item, 0, plan.MaxItems)

	// Primary pass: explicit selectors, in config order.
	for _, step := range plan.Steps {
		if step.Fallback {
			continue
		}
		items = runStep(step, doc, items, plan.MaxItems, nil)
		if len(items) >= plan.MaxItems {
			return items
		}
	}

	// Structural fallback: only when the primary pass came up short.
	// Dedup by (text, href) across everything collected so far, so the
	// ladder never repeats a primary item.
	if len(items) < plan.FallbackThreshold {
		seen := make(map[[2]string]struct{}, len(items))
		for _, it := range items {
			seen[dedupKey(it)] = struct{}{}
		}
		for _, step := range plan.Steps {
			if !step.Fallback {
				continue
			}
			items = runStep(step, doc, items, plan.MaxItems, seen)
			if len(items) >= plan.MaxItems {
				break
			}
		}
	}

	return items
}

// runStep queries one selector and appends qualifying elements. An
// element qualifies when it has non-empty text or carries a link/source
// attribute. When seen is non-nil the step deduplicates against it.
func runStep(step Step, doc *dom.Document, items []models.Item, maxItems int, seen map[[2]string]struct{}) []models.Item {
	for _, el := range doc.QueryAll(step.Selector) {
		if len(items) >= maxItems {
			break
		}
		text := el.Text()
		href := el.Attr("href")
		src := el.Attr("src")
		if text == "" && href == "" && src == "" {
			continue
		}

		if seen != nil {
			key := [2]string{text, href}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
		}

		item := models.Item{"text": text, "tag": el.Tag()}
		if href != "" {
			item["href"] = href
		}
		if src != "" {
			item["src"] = src
		}
		if step.Fallback {
			item[models.ItemKeyFallbackSelector] = step.Selector
		} else {
			item[models.ItemKeySelector] = step.Selector
		}
		items = append(items, item)
	}
	return items
}

func dedupKey(it models.Item) [2]string {
	return [2]string{it.Str("text"), it.Str("href")}
}

// Describe renders a short human-readable summary of the plan for logs.
func Describe(plan *Plan) string {
	primary := 0
	for _, s := range plan.Steps {
		if !s.Fallback {
			primary++
		}
	}
	return fmt.Sprintf("plan: %d selector step(s), %d structural fallback step(s), max_items=%d",
		primary, len(plan.Steps)-primary, plan.MaxItems)
}
