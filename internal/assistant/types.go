package assistant

import (
	"github.com/yichen-ai/yichen/internal/provider"
	"github.com/yichen-ai/yichen/internal/rag"
)

// Subject is one of the eight middle-school subjects the assistant tutors.
type Subject string

const (
	SubjectChinese   Subject = "语文"
	SubjectMath      Subject = "数学"
	SubjectEnglish   Subject = "英语"
	SubjectPhysics   Subject = "物理"
	SubjectChemistry Subject = "化学"
	SubjectHistory   Subject = "历史"
	SubjectGeography Subject = "地理"
	SubjectBiology   Subject = "生物"
)

// Difficulty grades a training recommendation.
type Difficulty string

const (
	DifficultyBasic    Difficulty = "Basic"
	DifficultyAdvanced Difficulty = "Advanced"
	DifficultyElite    Difficulty = "Elite"
)

// Answer is a plain-text result with whatever citations backed it.
type Answer struct {
	Text    string              `json:"text"`
	Sources []provider.Citation `json:"sources,omitempty"`
}

// KnowledgeNode is one labelled node of a knowledge map.
type KnowledgeNode struct {
	Label       string `json:"label"`
	Description string `json:"description"`
}

// KnowledgeMap places a concept among its prerequisites, extensions and
// siblings.
type KnowledgeMap struct {
	Center   KnowledgeNode   `json:"center"`
	Parents  []KnowledgeNode `json:"parents"`
	Children []KnowledgeNode `json:"children"`
	Related  []KnowledgeNode `json:"related"`
}

type TimelineEvent struct {
	Date        string `json:"date"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Timeline is an ordered sequence of dated events for a topic.
type Timeline struct {
	Title  string          `json:"title"`
	Events []TimelineEvent `json:"events"`
}

// BatchItem is the analysis of a single uploaded image. ImageIndex refers
// to a position in the originating image sequence and is clamped into
// range during normalization — the model's value is not trusted.
type BatchItem struct {
	ImageIndex int     `json:"imageIndex"`
	Subject    Subject `json:"subject"`
	Topic      string  `json:"topic"`
	Content    string  `json:"content"`
	Analysis   string  `json:"analysis"`
}

// BatchResult is the outcome of analyzing a batch of images. When the
// model's output could not be parsed as JSON, Summary carries the raw
// prose (often a worked solution) and Items is empty.
type BatchResult struct {
	Summary string      `json:"summaryText"`
	Items   []BatchItem `json:"items"`
}

// Recommendation is one personalized training suggestion derived from the
// wrong-question book.
type Recommendation struct {
	FocusArea  string     `json:"focusArea"`
	Suggestion string     `json:"suggestion"`
	Difficulty Difficulty `json:"difficulty"`
}

// ChatRequest is one user turn as the UI hands it over: prompt text,
// optional data-URI images, subject guideline text, and read-only provider
// and retrieval snapshots.
type ChatRequest struct {
	Prompt     string            `json:"prompt"`
	Images     []string          `json:"images,omitempty"`
	Guidelines map[string]string `json:"guidelines,omitempty"`
	AI         provider.Config   `json:"aiConfig"`
	Retrieval  rag.Config        `json:"ragConfig"`
}

// ChatReply is always renderable: Text is never empty on error paths, and
// the structured payloads are nil/empty whenever structure was
// unavailable.
type ChatReply struct {
	Text         string              `json:"text"`
	Sources      []provider.Citation `json:"sources,omitempty"`
	Batch        []BatchItem         `json:"batchData,omitempty"`
	Timeline     *Timeline           `json:"timelineData,omitempty"`
	KnowledgeMap *KnowledgeMap       `json:"knowledgeMap,omitempty"`
}
