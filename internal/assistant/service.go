// Package assistant orchestrates generation tasks: it decorates prompts
// with the tutoring persona and retrieval context, picks the configured
// provider adapter, and shapes raw model text into typed results with
// per-task fallback policies. Provider failures never escape as errors —
// they become renderable answer text.
package assistant

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/yichen-ai/yichen/internal/provider"
	"github.com/yichen-ai/yichen/internal/rag"
)

// TimelineKeyword in the user text routes the turn to timeline generation.
const TimelineKeyword = "时间轴"

// DefaultMapTriggerMaxRunes bounds the opportunistic knowledge-map
// heuristic: inputs shorter than this (but longer than one rune) look like
// concept names worth mapping. Tunable, not load-bearing.
const DefaultMapTriggerMaxRunes = 20

type Service struct {
	rag         *rag.Dispatcher
	mapMaxRunes int
	logger      *slog.Logger
}

func New(dispatcher *rag.Dispatcher, mapMaxRunes int, logger *slog.Logger) *Service {
	if mapMaxRunes <= 0 {
		mapMaxRunes = DefaultMapTriggerMaxRunes
	}
	return &Service{rag: dispatcher, mapMaxRunes: mapMaxRunes, logger: logger}
}

// Chat handles one user turn end to end. At most one primary provider call
// runs, followed sequentially by at most one opportunistic knowledge-map
// call; the reply is always renderable.
func (s *Service) Chat(ctx context.Context, req ChatRequest) ChatReply {
	prompt := strings.TrimSpace(req.Prompt)

	if len(req.Images) > 0 {
		if prompt == "" {
			prompt = "请分类整理这些知识内容"
		}
		result := s.AnalyzeImageBatch(ctx, req.Images, prompt, req.AI)
		return ChatReply{Text: result.Summary, Batch: result.Items}
	}

	if strings.Contains(prompt, TimelineKeyword) {
		if tl := s.GenerateTimeline(ctx, prompt, req.AI); tl != nil {
			return ChatReply{
				Text:     fmt.Sprintf("欧斯！小战士，关于“%s”的时空穿线图已经生成！历史的长河尽在掌握，你的历史战斗力要爆发了！", tl.Title),
				Timeline: tl,
			}
		}
		// No usable timeline; answer in prose. The map heuristic stays off
		// for this turn.
		answer, err := s.Respond(ctx, prompt, req.Guidelines, req.AI, rag.Config{})
		if err != nil {
			return ChatReply{Text: provider.UserMessage(err)}
		}
		return ChatReply{Text: answer.Text, Sources: answer.Sources}
	}

	if prompt == "" {
		prompt = "请分析"
	}

	answer, err := s.Respond(ctx, prompt, req.Guidelines, req.AI, req.Retrieval)
	if err != nil {
		return ChatReply{Text: provider.UserMessage(err)}
	}
	reply := ChatReply{Text: answer.Text, Sources: answer.Sources}

	if s.shouldMapConcept(prompt) && !retrievalActive(req.Retrieval) {
		if km := s.GenerateKnowledgeMap(ctx, prompt, req.AI); km != nil {
			reply.KnowledgeMap = km
		}
	}
	return reply
}

// Respond produces a plain answer, routing through the configured
// retrieval backend first. When client-side retrieval ran, its hits are
// the final citation list; the generation step contributes none.
func (s *Service) Respond(ctx context.Context, prompt string, guidelines map[string]string, ai provider.Config, rc rag.Config) (Answer, error) {
	augmented, err := s.rag.Augment(ctx, prompt, rc)
	if err != nil {
		s.logger.Error("retrieval augmentation failed", "provider", string(rc.Provider), "error", err)
		if rc.Provider == rag.ProviderTencent {
			return Answer{Text: "连接腾讯云知识库失败，请检查配置。"}, nil
		}
		return Answer{}, err
	}
	if augmented.Direct != nil {
		return Answer{Text: augmented.Direct.Text, Sources: augmented.Direct.Citations}, nil
	}

	inv, err := provider.New(ai)
	if err != nil {
		return Answer{}, err
	}

	out, err := inv.Invoke(ctx, provider.Envelope{
		SystemInstruction: systemPrompt(guidelines),
		UserPrompt:        augmented.Prompt,
		SearchTool:        augmented.SearchTool,
	})
	if err != nil {
		return Answer{}, err
	}

	s.logger.Info("answer generated",
		"provider", string(ai.Provider),
		"model", ai.ModelName,
		"prompt_len", len(prompt),
		"citations", len(out.Citations),
	)

	sources := out.Citations
	if len(augmented.Citations) > 0 {
		sources = augmented.Citations
	}
	return Answer{Text: out.Text, Sources: sources}, nil
}

// AnalyzeImageBatch classifies a batch of uploaded images into subjects
// and topics. It degrades instead of failing: provider errors and
// unparseable output both come back as summary text with no items.
func (s *Service) AnalyzeImageBatch(ctx context.Context, images []string, userPrompt string, ai provider.Config) BatchResult {
	if !provider.SupportsVision(ai.Provider) {
		return BatchResult{
			Summary: fmt.Sprintf("抱歉，批量图片分析当前不支持 %s，请切换到 Gemini、ChatGPT、DeepSeek 或 Alibaba。", ai.Provider),
			Items:   []BatchItem{},
		}
	}

	inv, err := provider.New(ai)
	if err != nil {
		return BatchResult{Summary: provider.UserMessage(err), Items: []BatchItem{}}
	}

	out, err := inv.Invoke(ctx, provider.Envelope{
		SystemInstruction: batchSystem,
		UserPrompt:        batchPrompt(len(images), userPrompt),
		Images:            imageParts(images),
	})
	if err != nil {
		s.logger.Error("batch analysis failed", "provider", string(ai.Provider), "images", len(images), "error", err)
		return BatchResult{Summary: provider.UserMessage(err), Items: []BatchItem{}}
	}

	result := normalizeBatch(out.Text, len(images))
	s.logger.Info("batch analysis complete", "images", len(images), "items", len(result.Items))
	return result
}

// GenerateKnowledgeMap asks for the concept's place in the subject's
// knowledge structure. Nil means no usable map; never an error.
func (s *Service) GenerateKnowledgeMap(ctx context.Context, concept string, ai provider.Config) *KnowledgeMap {
	raw, ok := s.structuredCall(ctx, ai, knowledgeMapPrompt(concept), "knowledge_map")
	if !ok {
		return nil
	}
	return normalizeKnowledgeMap(raw)
}

// GenerateTimeline asks for a dated event sequence for the topic. Nil
// means no usable timeline; never an error.
func (s *Service) GenerateTimeline(ctx context.Context, topic string, ai provider.Config) *Timeline {
	raw, ok := s.structuredCall(ctx, ai, timelinePrompt(topic), "timeline")
	if !ok {
		return nil
	}
	return normalizeTimeline(raw)
}

// Recommend turns the wrong-question topic list into training
// suggestions. Empty on any failure.
func (s *Service) Recommend(ctx context.Context, wrongTopics []string, ai provider.Config) []Recommendation {
	raw, ok := s.structuredCall(ctx, ai, recommendPrompt(wrongTopics), "recommendations")
	if !ok {
		return []Recommendation{}
	}
	return normalizeRecommendations(raw)
}

// structuredCall runs a JSON-only generation task, swallowing provider
// errors — structured tasks degrade, they do not surface failures.
func (s *Service) structuredCall(ctx context.Context, ai provider.Config, prompt, task string) (string, bool) {
	inv, err := provider.New(ai)
	if err != nil {
		s.logger.Warn("structured task skipped", "task", task, "error", err)
		return "", false
	}
	out, err := inv.Invoke(ctx, provider.Envelope{
		SystemInstruction: jsonOnlySystem,
		UserPrompt:        prompt,
	})
	if err != nil {
		s.logger.Warn("structured task failed", "task", task, "provider", string(ai.Provider), "error", err)
		return "", false
	}
	return out.Text, true
}

// shouldMapConcept reports whether the input looks like a short concept
// name worth mapping opportunistically.
func (s *Service) shouldMapConcept(prompt string) bool {
	n := utf8.RuneCountInString(prompt)
	return n > 1 && n < s.mapMaxRunes
}

// retrievalActive reports whether this turn actually used a retrieval
// backend (not just a selected-but-unconfigured one).
func retrievalActive(rc rag.Config) bool {
	switch rc.Provider {
	case rag.ProviderTencent:
		return rc.Tencent != nil && rc.Tencent.KnowledgeBaseID != ""
	case rag.ProviderAlibaba:
		return rc.Alibaba != nil && rc.Alibaba.AppID != ""
	case rag.ProviderGoogle:
		return rc.Vertex != nil && rc.Vertex.ProjectID != "" && rc.Vertex.DataStoreID != ""
	default:
		return false
	}
}

func imageParts(images []string) []provider.ImagePart {
	parts := make([]provider.ImagePart, 0, len(images))
	for _, img := range images {
		parts = append(parts, provider.ParseDataURI(img))
	}
	return parts
}
