package assistant

import (
	"strings"

	"github.com/yichen-ai/yichen/internal/jsonx"
)

// normalizeKnowledgeMap shapes extracted JSON into a KnowledgeMap. A map
// without a center label is useless to the renderer, so that is the one
// required field; absent relation arrays default to empty.
func normalizeKnowledgeMap(raw string) *KnowledgeMap {
	var km KnowledgeMap
	if !jsonx.ExtractInto(raw, &km) {
		return nil
	}
	if strings.TrimSpace(km.Center.Label) == "" {
		return nil
	}
	if km.Parents == nil {
		km.Parents = []KnowledgeNode{}
	}
	if km.Children == nil {
		km.Children = []KnowledgeNode{}
	}
	if km.Related == nil {
		km.Related = []KnowledgeNode{}
	}
	return &km
}

// normalizeTimeline requires a title and at least one event; there is no
// meaningful partial rendering below that.
func normalizeTimeline(raw string) *Timeline {
	var tl Timeline
	if !jsonx.ExtractInto(raw, &tl) {
		return nil
	}
	if strings.TrimSpace(tl.Title) == "" || len(tl.Events) == 0 {
		return nil
	}
	return &tl
}

// normalizeBatch shapes a batch-analysis response. When no JSON can be
// recovered the raw text becomes the summary with no items, so a prose
// worked-solution still reaches the user. Model-supplied image indexes
// are clamped into the valid range, never trusted.
func normalizeBatch(raw string, imageCount int) BatchResult {
	var parsed struct {
		ReplyText string      `json:"replyText"`
		Items     []BatchItem `json:"items"`
	}
	if !jsonx.ExtractInto(raw, &parsed) {
		return BatchResult{Summary: raw, Items: []BatchItem{}}
	}

	summary := parsed.ReplyText
	if strings.TrimSpace(summary) == "" {
		summary = "分析完成！"
	}

	items := make([]BatchItem, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		if imageCount > 0 {
			if item.ImageIndex < 0 {
				item.ImageIndex = 0
			}
			if item.ImageIndex >= imageCount {
				item.ImageIndex = imageCount - 1
			}
		} else {
			item.ImageIndex = 0
		}
		items = append(items, item)
	}
	return BatchResult{Summary: summary, Items: items}
}

// normalizeRecommendations shapes suggestion JSON, defaulting unknown
// difficulty strings to Basic. Unrecoverable input yields an empty list.
func normalizeRecommendations(raw string) []Recommendation {
	var parsed struct {
		Suggestions []struct {
			FocusArea  string `json:"focusArea"`
			Suggestion string `json:"suggestion"`
			Difficulty string `json:"difficulty"`
		} `json:"suggestions"`
	}
	if !jsonx.ExtractInto(raw, &parsed) {
		return []Recommendation{}
	}

	recs := make([]Recommendation, 0, len(parsed.Suggestions))
	for _, s := range parsed.Suggestions {
		if strings.TrimSpace(s.FocusArea) == "" && strings.TrimSpace(s.Suggestion) == "" {
			continue
		}
		recs = append(recs, Recommendation{
			FocusArea:  s.FocusArea,
			Suggestion: s.Suggestion,
			Difficulty: normalizeDifficulty(s.Difficulty),
		})
	}
	return recs
}

func normalizeDifficulty(s string) Difficulty {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "advanced":
		return DifficultyAdvanced
	case "elite":
		return DifficultyElite
	default:
		return DifficultyBasic
	}
}
