package rag

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/yichen-ai/yichen/internal/provider"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestAugment_Disabled(t *testing.T) {
	d := NewDispatcher(testLogger())
	aug, err := d.Augment(context.Background(), "问题", Config{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if aug.Prompt != "问题" || aug.Direct != nil || aug.SearchTool != nil || len(aug.Citations) != 0 {
		t.Errorf("disabled retrieval should pass the prompt through untouched: %+v", aug)
	}
}

func TestAugment_GooglePassesToolThrough(t *testing.T) {
	d := NewDispatcher(testLogger())
	tool := &provider.SearchTool{ProjectID: "p", DataStoreID: "ds"}

	aug, err := d.Augment(context.Background(), "问题", Config{Provider: ProviderGoogle, Vertex: tool})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if aug.SearchTool != tool {
		t.Errorf("vertex config should pass through as the search tool")
	}
	if aug.Prompt != "问题" || aug.Direct != nil || len(aug.Citations) != 0 {
		t.Errorf("google path must not rewrite the prompt or pre-compute citations: %+v", aug)
	}

	// Incomplete vertex config degrades to plain generation.
	aug, err = d.Augment(context.Background(), "问题", Config{Provider: ProviderGoogle})
	if err != nil || aug.SearchTool != nil {
		t.Errorf("expected no tool without a datastore, got %+v, %v", aug, err)
	}
}

func TestAugment_TencentSearchStuffsPrompt(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			KnowledgeBaseID string `json:"knowledgeBaseId"`
			Query           string `json:"query"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.KnowledgeBaseID != "kb-1" || req.Query != "光合作用" {
			t.Errorf("unexpected search request: %+v", req)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"hits": []map[string]any{
				{"title": "生物课本.pdf", "uri": "doc://1", "snippet": "叶绿体片段"},
				{"title": "讲义.docx", "uri": "doc://2", "snippet": "光反应片段"},
			},
		})
	}))
	defer server.Close()

	d := NewDispatcher(testLogger())
	aug, err := d.Augment(context.Background(), "光合作用", Config{
		Provider: ProviderTencent,
		Tencent:  &TencentConfig{SecretID: "id", SecretKey: "key", KnowledgeBaseID: "kb-1", SearchURL: server.URL},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(aug.Citations) != 2 || aug.Citations[0].Title != "生物课本.pdf" {
		t.Fatalf("citations should be exactly the search hits: %+v", aug.Citations)
	}
	if !strings.Contains(aug.Prompt, "[Document 1]: 叶绿体片段") ||
		!strings.Contains(aug.Prompt, "[Document 2]: 光反应片段") {
		t.Errorf("prompt missing labelled context block:\n%s", aug.Prompt)
	}
	if !strings.Contains(aug.Prompt, "User Question: 光合作用") {
		t.Errorf("prompt missing original question:\n%s", aug.Prompt)
	}
	if aug.Direct != nil {
		t.Error("tencent path must still run the provider adapter")
	}
}

func TestAugment_TencentMissingCredentials(t *testing.T) {
	d := NewDispatcher(testLogger())
	_, err := d.Augment(context.Background(), "q", Config{
		Provider: ProviderTencent,
		Tencent:  &TencentConfig{KnowledgeBaseID: "kb-1", SearchURL: "http://unused"},
	})
	if err == nil {
		t.Fatal("expected error for missing credentials")
	}
}

func TestAugment_AlibabaShortCircuits(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/api/v1/apps/app-9/completion") {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer ali-key" {
			t.Errorf("expected bearer auth, got %q", got)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"output": map[string]any{
				"text": "组合回答",
				"doc_references": []map[string]any{
					{"title": "资料.pdf", "url": "https://doc", "snippet": "片段"},
				},
			},
		})
	}))
	defer server.Close()

	d := NewDispatcher(testLogger())
	aug, err := d.Augment(context.Background(), "问题", Config{
		Provider: ProviderAlibaba,
		Alibaba:  &AlibabaConfig{AppID: "app-9", APIKey: "ali-key", BaseURL: server.URL},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if aug.Direct == nil {
		t.Fatal("alibaba path must short-circuit with a direct result")
	}
	if aug.Direct.Text != "组合回答" || len(aug.Direct.Citations) != 1 {
		t.Errorf("unexpected direct result: %+v", aug.Direct)
	}
}
