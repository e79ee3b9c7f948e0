package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestGemini_PartsAndSystemInstruction(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/v1beta/models/gemini-2.5-flash:generateContent") {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if got := r.URL.Query().Get("key"); got != "test-key" {
			t.Errorf("expected key query param, got %q", got)
		}

		var req struct {
			SystemInstruction *struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"system_instruction"`
			Contents []struct {
				Parts []struct {
					Text       string `json:"text"`
					InlineData *struct {
						MIMEType string `json:"mime_type"`
						Data     string `json:"data"`
					} `json:"inline_data"`
				} `json:"parts"`
			} `json:"contents"`
			Tools []json.RawMessage `json:"tools"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.SystemInstruction == nil || req.SystemInstruction.Parts[0].Text != "sys" {
			t.Errorf("missing system instruction")
		}
		parts := req.Contents[0].Parts
		if len(parts) != 2 {
			t.Fatalf("expected image part + text part, got %d", len(parts))
		}
		if parts[0].InlineData == nil || parts[0].InlineData.MIMEType != "image/png" {
			t.Errorf("first part should be the image, got %+v", parts[0])
		}
		if parts[1].Text != "这是什么" {
			t.Errorf("last part should be the prompt, got %+v", parts[1])
		}
		if len(req.Tools) != 0 {
			t.Errorf("no tools expected without a search tool, got %d", len(req.Tools))
		}

		json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{{
				"content": map[string]any{"parts": []map[string]any{{"text": "一张图"}}},
			}},
		})
	}))
	defer server.Close()

	inv, err := New(Config{Provider: KindGemini, APIKey: "test-key", BaseURL: server.URL, ModelName: "gemini-2.5-flash"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	out, err := inv.Invoke(context.Background(), Envelope{
		SystemInstruction: "sys",
		UserPrompt:        "这是什么",
		Images:            []ImagePart{{MIMEType: "image/png", Data: "AAA"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Text != "一张图" {
		t.Errorf("text = %q", out.Text)
	}
}

func TestGemini_SearchToolAndCitations(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Tools []struct {
				Retrieval struct {
					VertexAISearch struct {
						Datastore string `json:"datastore"`
					} `json:"vertexAiSearch"`
				} `json:"retrieval"`
			} `json:"tools"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if len(req.Tools) != 1 {
			t.Fatalf("expected one retrieval tool, got %d", len(req.Tools))
		}
		want := "projects/proj/locations/global/collections/default_collection/dataStores/ds"
		if got := req.Tools[0].Retrieval.VertexAISearch.Datastore; got != want {
			t.Errorf("datastore = %q, want %q", got, want)
		}

		json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{{
				"content": map[string]any{"parts": []map[string]any{{"text": "答案"}}},
				"groundingMetadata": map[string]any{
					"groundingChunks": []map[string]any{
						{"retrievedContext": map[string]any{"title": "课本.pdf", "uri": "gs://x", "text": "片段"}},
						{"web": map[string]any{"uri": "https://ignored"}},
					},
				},
			}},
		})
	}))
	defer server.Close()

	inv, err := New(Config{Provider: KindGemini, APIKey: "k", BaseURL: server.URL, ModelName: "gemini-2.5-flash"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	out, err := inv.Invoke(context.Background(), Envelope{
		UserPrompt: "问题",
		SearchTool: &SearchTool{ProjectID: "proj", DataStoreID: "ds"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out.Citations) != 1 {
		t.Fatalf("expected 1 citation (web chunks skipped), got %d", len(out.Citations))
	}
	c := out.Citations[0]
	if c.Title != "课本.pdf" || c.URI != "gs://x" || c.Snippet != "片段" {
		t.Errorf("unexpected citation: %+v", c)
	}
}

func TestGemini_ModelNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":{"code":404,"message":"models/nope is not found"}}`))
	}))
	defer server.Close()

	inv, err := New(Config{Provider: KindGemini, APIKey: "k", BaseURL: server.URL, ModelName: "nope"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	_, err = inv.Invoke(context.Background(), Envelope{UserPrompt: "hi"})
	perr, ok := err.(*Error)
	if !ok || perr.Kind != ModelUnavailable {
		t.Fatalf("got %v, want ModelUnavailable", err)
	}
	if !strings.Contains(UserMessage(perr), "切换模型") {
		t.Errorf("user message should suggest switching models, got %q", UserMessage(perr))
	}
}
