// Package rag augments generation requests with retrieved context. Exactly
// one retrieval backend is active per request, selected by configuration,
// and each backend integrates differently: Alibaba answers retrieval and
// generation in one remote call, Tencent exposes a search endpoint whose
// hits are stuffed into the prompt, and Vertex AI Search rides along as a
// tool declaration on the gemini adapter.
package rag

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/yichen-ai/yichen/internal/provider"
)

// Provider selects the retrieval backend.
type Provider string

const (
	ProviderNone    Provider = ""
	ProviderGoogle  Provider = "google"
	ProviderTencent Provider = "tencent"
	ProviderAlibaba Provider = "alibaba"
)

// Config is the per-request retrieval snapshot.
type Config struct {
	Provider Provider             `json:"provider"`
	Vertex   *provider.SearchTool `json:"vertex,omitempty"`
	Tencent  *TencentConfig       `json:"tencent,omitempty"`
	Alibaba  *AlibabaConfig       `json:"alibaba,omitempty"`
}

// Augmented is the dispatcher's verdict for one request.
//
// When Direct is set the retrieval backend already produced the final text
// and citations; the caller must not invoke a provider adapter. Otherwise
// the caller generates from Prompt, declares SearchTool if non-nil, and
// merges Citations into the result.
type Augmented struct {
	Prompt     string
	Citations  []provider.Citation
	Direct     *provider.Output
	SearchTool *provider.SearchTool
}

type Dispatcher struct {
	client *http.Client
	logger *slog.Logger
}

func NewDispatcher(logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		client: &http.Client{Timeout: 60 * time.Second},
		logger: logger,
	}
}

// Augment routes prompt through the configured retrieval backend.
func (d *Dispatcher) Augment(ctx context.Context, prompt string, cfg Config) (Augmented, error) {
	switch cfg.Provider {
	case ProviderAlibaba:
		if cfg.Alibaba == nil || cfg.Alibaba.AppID == "" {
			return Augmented{Prompt: prompt}, nil
		}
		out, err := d.queryAlibabaApp(ctx, prompt, *cfg.Alibaba)
		if err != nil {
			return Augmented{}, err
		}
		return Augmented{Prompt: prompt, Direct: out}, nil

	case ProviderTencent:
		if cfg.Tencent == nil || cfg.Tencent.KnowledgeBaseID == "" {
			return Augmented{Prompt: prompt}, nil
		}
		hits, err := d.searchTencentKnowledgeBase(ctx, prompt, *cfg.Tencent)
		if err != nil {
			return Augmented{}, err
		}
		return Augmented{
			Prompt:    stuffPrompt(prompt, hits),
			Citations: hits,
		}, nil

	case ProviderGoogle:
		// Retrieval happens inside the gemini call as a tool; nothing to
		// fetch here.
		if cfg.Vertex != nil && cfg.Vertex.ProjectID != "" && cfg.Vertex.DataStoreID != "" {
			return Augmented{Prompt: prompt, SearchTool: cfg.Vertex}, nil
		}
		return Augmented{Prompt: prompt}, nil

	default:
		return Augmented{Prompt: prompt}, nil
	}
}

// stuffPrompt prepends retrieved snippets under stable [Document N] labels
// with an instruction to answer from that context.
func stuffPrompt(prompt string, hits []provider.Citation) string {
	var b strings.Builder
	b.WriteString("Based on the following retrieved context from the knowledge base, answer the user's question.\n\nContext:\n")
	for i, hit := range hits {
		fmt.Fprintf(&b, "[Document %d]: %s\n\n", i+1, hit.Snippet)
	}
	b.WriteString("User Question: ")
	b.WriteString(prompt)
	return b.String()
}
