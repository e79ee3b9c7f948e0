package config

import (
	"os"
	"strconv"

	"github.com/yichen-ai/yichen/internal/provider"
	"github.com/yichen-ai/yichen/internal/rag"
)

type Config struct {
	Port        int
	DatabaseURL string
	NatsURL     string
	NatsToken   string
	LogLevel    string
	APIToken    string

	// Default provider snapshot; a request may carry its own.
	AI provider.Config
	// Default retrieval snapshot; a request may carry its own.
	Retrieval rag.Config

	// MapTriggerMaxRunes bounds the opportunistic knowledge-map
	// heuristic. Zero means the built-in default.
	MapTriggerMaxRunes int
}

func Load() Config {
	cfg := Config{
		Port:        envInt("YICHEN_PORT", 8760),
		DatabaseURL: envStr("DATABASE_URL", ""),
		NatsURL:     envStr("NATS_URL", ""),
		NatsToken:   envStr("NATS_TOKEN", ""),
		LogLevel:    envStr("LOG_LEVEL", "info"),
		APIToken:    envStr("YICHEN_API_TOKEN", ""),
		AI: provider.Config{
			Provider:  provider.Kind(envStr("AI_PROVIDER", "gemini")),
			APIKey:    envStr("AI_API_KEY", ""),
			BaseURL:   envStr("AI_BASE_URL", ""),
			ModelName: envStr("AI_MODEL", "gemini-2.5-flash"),
		},
		Retrieval:          loadRetrieval(),
		MapTriggerMaxRunes: envInt("MAP_TRIGGER_MAX_RUNES", 0),
	}
	return cfg
}

func loadRetrieval() rag.Config {
	rc := rag.Config{Provider: rag.Provider(envStr("RAG_PROVIDER", ""))}
	switch rc.Provider {
	case rag.ProviderGoogle:
		rc.Vertex = &provider.SearchTool{
			ProjectID:   envStr("VERTEX_PROJECT_ID", ""),
			Location:    envStr("VERTEX_LOCATION", ""),
			DataStoreID: envStr("VERTEX_DATASTORE_ID", ""),
		}
	case rag.ProviderTencent:
		rc.Tencent = &rag.TencentConfig{
			SecretID:        envStr("TENCENT_SECRET_ID", ""),
			SecretKey:       envStr("TENCENT_SECRET_KEY", ""),
			KnowledgeBaseID: envStr("TENCENT_KNOWLEDGE_BASE_ID", ""),
			SearchURL:       envStr("TENCENT_SEARCH_URL", ""),
		}
	case rag.ProviderAlibaba:
		rc.Alibaba = &rag.AlibabaConfig{
			AppID:   envStr("ALIBABA_APP_ID", ""),
			APIKey:  envStr("ALIBABA_API_KEY", ""),
			BaseURL: envStr("ALIBABA_BASE_URL", ""),
		}
	}
	return rc
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
