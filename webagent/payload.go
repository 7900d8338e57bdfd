package webagent

import (
	"encoding/json"
	"fmt"

	"github.com/skylarkhq/gleaner/models"
)

// The backend returns one of three payload shapes for the same logical
// operation:
//
//	{"content": {"links": [...], "navElements": [...]}}
//	{"data": [...]}
//	{"steps": [...]}
//
// rawPayload decodes all three; variant() reports which one arrived so
// normalization is an explicit tagged switch instead of field sniffing
// scattered through the orchestrator.
type rawPayload struct {
	Content *contentPayload  `json:"content"`
	Data    []map[string]any `json:"data"`
	Steps   []stepPayload    `json:"steps"`
}

type contentPayload struct {
	Links       []linkPayload `json:"links"`
	NavElements []linkPayload `json:"navElements"`
}

type linkPayload struct {
	Text string `json:"text"`
	Href string `json:"href"`
	URL  string `json:"url"`
}

type stepPayload struct {
	Action string `json:"action"`
	Result string `json:"result"`
	Detail string `json:"detail"`
}

type payloadVariant int

const (
	variantUnknown payloadVariant = iota
	variantContent
	variantData
	variantSteps
)

func (p *rawPayload) variant() payloadVariant {
	switch {
	case p.Content != nil:
		return variantContent
	case p.Data != nil:
		return variantData
	case p.Steps != nil:
		return variantSteps
	default:
		return variantUnknown
	}
}

// normalize reshapes a backend response into the canonical item list,
// tagging every item with its source.
func normalize(body []byte, maxItems int) ([]models.Item, error) {
	var p rawPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}

	var items []models.Item
	switch p.variant() {
	case variantContent:
		for _, l := range p.Content.Links {
			items = appendCapped(items, linkItem(l, "link"), maxItems)
		}
		for _, l := range p.Content.NavElements {
			items = appendCapped(items, linkItem(l, "nav"), maxItems)
		}
	case variantData:
		for _, d := range p.Data {
			item := models.Item{}
			for k, v := range d {
				item[k] = v
			}
			items = appendCapped(items, item, maxItems)
		}
	case variantSteps:
		for i, s := range p.Steps {
			text := s.Result
			if text == "" {
				text = s.Detail
			}
			items = appendCapped(items, models.Item{
				"step":   i + 1,
				"action": s.Action,
				"text":   text,
			}, maxItems)
		}
	default:
		return nil, fmt.Errorf("unrecognized payload shape")
	}

	for _, it := range items {
		it[models.ItemKeySource] = "webagent"
	}
	return items, nil
}

func linkItem(l linkPayload, kind string) models.Item {
	href := l.Href
	if href == "" {
		href = l.URL
	}
	return models.Item{"kind": kind, "text": l.Text, "href": href}
}

func appendCapped(items []models.Item, item models.Item, maxItems int) []models.Item {
	if len(items) >= maxItems {
		return items
	}
	return append(items, item)
}
