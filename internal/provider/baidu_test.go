package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestBaidu_FlattensSystemInstruction(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/rpc/2.0/ai_custom/v1/wenxinworkshop/chat/ernie-3.5-8k") {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if got := r.URL.Query().Get("access_token"); got != "token-123" {
			t.Errorf("expected access_token query param, got %q", got)
		}

		var req struct {
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if len(req.Messages) != 1 || req.Messages[0].Role != "user" {
			t.Fatalf("expected a single user message, got %+v", req.Messages)
		}
		content := req.Messages[0].Content
		if !strings.HasPrefix(content, "system text") || !strings.Contains(content, "User Question: 问题") {
			t.Errorf("system instruction not flattened into user message: %q", content)
		}

		json.NewEncoder(w).Encode(map[string]any{"result": "回答"})
	}))
	defer server.Close()

	inv, err := New(Config{Provider: KindBaidu, APIKey: "token-123", BaseURL: server.URL, ModelName: "ernie-3.5-8k"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	out, err := inv.Invoke(context.Background(), Envelope{SystemInstruction: "system text", UserPrompt: "问题"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Text != "回答" {
		t.Errorf("text = %q", out.Text)
	}
}

func TestBaidu_ErrorBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"error_code": 110, "error_msg": "Access token invalid"})
	}))
	defer server.Close()

	inv, err := New(Config{Provider: KindBaidu, APIKey: "bad", BaseURL: server.URL, ModelName: "ernie-3.5-8k"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	_, err = inv.Invoke(context.Background(), Envelope{UserPrompt: "hi"})
	perr, ok := err.(*Error)
	if !ok {
		t.Fatalf("expected *Error, got %v", err)
	}
	if !strings.Contains(perr.Body, "Access token invalid") {
		t.Errorf("error body should carry error_msg, got %q", perr.Body)
	}
}

func TestParseDataURI(t *testing.T) {
	p := ParseDataURI("data:image/png;base64,AAAA")
	if p.MIMEType != "image/png" || p.Data != "AAAA" {
		t.Errorf("unexpected part: %+v", p)
	}

	p = ParseDataURI("AAAA")
	if p.MIMEType != "image/jpeg" || p.Data != "AAAA" {
		t.Errorf("bare base64 should default to jpeg: %+v", p)
	}
}
