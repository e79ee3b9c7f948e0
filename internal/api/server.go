package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/yichen-ai/yichen/internal/assistant"
	"github.com/yichen-ai/yichen/internal/config"
	"github.com/yichen-ai/yichen/internal/events"
	"github.com/yichen-ai/yichen/internal/store"
)

// Server exposes the assistant to the browser UI. The store and publisher
// are optional: without a database the history endpoints answer 503, and
// without a broker no events are published.
type Server struct {
	router    *chi.Mux
	port      int
	apiToken  string
	assistant *assistant.Service
	store     *store.Store
	events    *events.Publisher
	defaults  config.Config
	logger    *slog.Logger
}

func NewServer(cfg config.Config, svc *assistant.Service, db *store.Store, pub *events.Publisher, logger *slog.Logger) *Server {
	router := chi.NewRouter()
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	s := &Server{
		router:    router,
		port:      cfg.Port,
		apiToken:  cfg.APIToken,
		assistant: svc,
		store:     db,
		events:    pub,
		defaults:  cfg,
		logger:    logger,
	}

	router.Get("/health", s.health)

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(bearerAuth(cfg.APIToken))
		r.Post("/chat", s.chat)
		r.Post("/knowledge-map", s.knowledgeMap)
		r.Post("/timeline", s.timeline)
		r.Post("/analyze-batch", s.analyzeBatch)
		r.Post("/recommendations", s.recommendations)
		r.Get("/messages", s.listMessages)
		r.Get("/wrongbook", s.listWrongQuestions)
		r.Post("/wrongbook", s.addWrongQuestion)
		r.Get("/stats", s.stats)
		r.Put("/stats/{subject}", s.updateSubjectScore)
	})

	return s
}

func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.port)
	s.logger.Info("API server starting", "addr", addr)
	return http.ListenAndServe(addr, s.router)
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// bearerAuth rejects requests without the configured token. An empty
// token disables auth (local single-user setups).
func bearerAuth(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token != "" {
				got := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
				if got != token {
					writeError(w, http.StatusUnauthorized, "invalid token")
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
