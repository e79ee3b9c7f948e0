package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/yichen-ai/yichen/internal/assistant"
	"github.com/yichen-ai/yichen/internal/events"
	"github.com/yichen-ai/yichen/internal/provider"
	"github.com/yichen-ai/yichen/internal/rag"
	"github.com/yichen-ai/yichen/internal/store"
)

func (s *Server) chat(w http.ResponseWriter, r *http.Request) {
	var req assistant.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.AI = s.resolveAI(req.AI)
	req.Retrieval = s.resolveRetrieval(req.Retrieval)

	reply := s.assistant.Chat(r.Context(), req)

	s.persistTurn(r, req, reply)
	s.publishChatAnswered(req, reply)

	writeJSON(w, http.StatusOK, reply)
}

func (s *Server) knowledgeMap(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Concept string          `json:"concept"`
		AI      provider.Config `json:"aiConfig"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Concept == "" {
		writeError(w, http.StatusBadRequest, "concept is required")
		return
	}

	km := s.assistant.GenerateKnowledgeMap(r.Context(), req.Concept, s.resolveAI(req.AI))
	if km == nil {
		writeError(w, http.StatusUnprocessableEntity, "no usable knowledge map generated")
		return
	}
	writeJSON(w, http.StatusOK, km)
}

func (s *Server) timeline(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Topic string          `json:"topic"`
		AI    provider.Config `json:"aiConfig"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Topic == "" {
		writeError(w, http.StatusBadRequest, "topic is required")
		return
	}

	tl := s.assistant.GenerateTimeline(r.Context(), req.Topic, s.resolveAI(req.AI))
	if tl == nil {
		writeError(w, http.StatusUnprocessableEntity, "no usable timeline generated")
		return
	}
	writeJSON(w, http.StatusOK, tl)
}

func (s *Server) analyzeBatch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Images []string        `json:"images"`
		Prompt string          `json:"prompt"`
		AI     provider.Config `json:"aiConfig"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Images) == 0 {
		writeError(w, http.StatusBadRequest, "at least one image is required")
		return
	}
	if req.Prompt == "" {
		req.Prompt = "请分类整理这些知识内容"
	}

	result := s.assistant.AnalyzeImageBatch(r.Context(), req.Images, req.Prompt, s.resolveAI(req.AI))
	writeJSON(w, http.StatusOK, result)
}

// recommendations generates training suggestions. Topics come from the
// request, or from the wrong-question book when the request leaves them
// empty and a store is available.
func (s *Server) recommendations(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Topics []string        `json:"topics"`
		AI     provider.Config `json:"aiConfig"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	topics := req.Topics
	if len(topics) == 0 && s.store != nil {
		var err error
		topics, err = s.store.ListWrongTopics(r.Context())
		if err != nil {
			s.logger.Error("failed to load wrong topics", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to load wrong topics")
			return
		}
	}
	if len(topics) == 0 {
		writeError(w, http.StatusBadRequest, "no topics to recommend from")
		return
	}

	recs := s.assistant.Recommend(r.Context(), topics, s.resolveAI(req.AI))
	writeJSON(w, http.StatusOK, map[string]any{"recommendations": recs})
}

func (s *Server) listMessages(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, _ = strconv.Atoi(v)
	}
	messages, err := s.store.ListMessages(r.Context(), limit)
	if err != nil {
		s.logger.Error("failed to list messages", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list messages")
		return
	}
	if messages == nil {
		messages = []store.Message{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": messages})
}

func (s *Server) listWrongQuestions(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	questions, err := s.store.ListWrongQuestions(r.Context())
	if err != nil {
		s.logger.Error("failed to list wrong questions", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list wrong questions")
		return
	}
	if questions == nil {
		questions = []store.WrongQuestion{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"wrongQuestions": questions})
}

func (s *Server) addWrongQuestion(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	var q store.WrongQuestion
	if err := json.NewDecoder(r.Body).Decode(&q); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if q.Subject == "" || q.Content == "" {
		writeError(w, http.StatusBadRequest, "subject and content are required")
		return
	}

	id, err := s.store.AddWrongQuestion(r.Context(), q)
	if err != nil {
		s.logger.Error("failed to record wrong question", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to record wrong question")
		return
	}

	if s.events != nil {
		err := s.events.Publish(events.SubjectWrongQuestionRecorded, events.WrongQuestionRecorded{
			Subject: string(q.Subject),
			Topic:   q.Topic,
		})
		if err != nil {
			s.logger.Warn("failed to publish wrongbook event", "error", err)
		}
	}

	writeJSON(w, http.StatusCreated, map[string]string{"id": id.String()})
}

func (s *Server) stats(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	stats, err := s.store.GetStats(r.Context())
	if err != nil {
		s.logger.Error("failed to load stats", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load stats")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) updateSubjectScore(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	subject := chi.URLParam(r, "subject")
	var req struct {
		Score int `json:"score"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.store.UpsertSubjectScore(r.Context(), subject, req.Score); err != nil {
		s.logger.Error("failed to update subject score", "subject", subject, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update subject score")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// resolveAI falls back to the server's configured provider when the
// request carries none.
func (s *Server) resolveAI(ai provider.Config) provider.Config {
	if ai.Provider == "" {
		return s.defaults.AI
	}
	return ai
}

// resolveRetrieval falls back to the server's configured retrieval
// backend when the request carries none.
func (s *Server) resolveRetrieval(rc rag.Config) rag.Config {
	if rc.Provider == rag.ProviderNone {
		return s.defaults.Retrieval
	}
	return rc
}

func (s *Server) requireStore(w http.ResponseWriter) bool {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "persistence is not configured")
		return false
	}
	return true
}

// persistTurn saves the user and model messages. Best effort: history
// must never block an answer that was already generated.
func (s *Server) persistTurn(r *http.Request, req assistant.ChatRequest, reply assistant.ChatReply) {
	if s.store == nil {
		return
	}
	ctx := r.Context()

	_, err := s.store.SaveMessage(ctx, store.Message{Role: "user", Content: req.Prompt})
	if err != nil {
		s.logger.Warn("failed to persist user message", "error", err)
	}
	_, err = s.store.SaveMessage(ctx, store.Message{
		Role:     "model",
		Content:  reply.Text,
		Batch:    reply.Batch,
		Timeline: reply.Timeline,
		Sources:  reply.Sources,
	})
	if err != nil {
		s.logger.Warn("failed to persist model message", "error", err)
	}
}

func (s *Server) publishChatAnswered(req assistant.ChatRequest, reply assistant.ChatReply) {
	if s.events == nil {
		return
	}
	err := s.events.Publish(events.SubjectChatAnswered, events.ChatAnswered{
		Provider:    string(req.AI.Provider),
		Model:       req.AI.ModelName,
		PromptLen:   len(req.Prompt),
		ImageCount:  len(req.Images),
		HasMap:      reply.KnowledgeMap != nil,
		HasTimeline: reply.Timeline != nil,
		Citations:   len(reply.Sources),
	})
	if err != nil {
		s.logger.Warn("failed to publish chat event", "error", err)
	}
}
