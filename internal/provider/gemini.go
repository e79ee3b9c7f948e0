package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const geminiDefaultBaseURL = "https://generativelanguage.googleapis.com"

// gemini is the native multimodal adapter. It carries the system
// instruction and ordered image/text parts natively, and can declare a
// Vertex AI Search datastore as a retrieval tool, surfacing grounding
// citations from the response metadata.
type gemini struct {
	cfg    Config
	client *http.Client
}

func newGemini(cfg Config) *gemini {
	return &gemini{
		cfg:    cfg,
		client: &http.Client{Timeout: 120 * time.Second},
	}
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inline_data,omitempty"`
}

type geminiInlineData struct {
	MIMEType string `json:"mime_type"`
	Data     string `json:"data"`
}

type geminiRequest struct {
	SystemInstruction *geminiContent  `json:"system_instruction,omitempty"`
	Contents          []geminiContent `json:"contents"`
	GenerationConfig  geminiGenConfig `json:"generationConfig"`
	Tools             []geminiTool    `json:"tools,omitempty"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiGenConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type geminiTool struct {
	Retrieval geminiRetrieval `json:"retrieval"`
}

type geminiRetrieval struct {
	VertexAISearch geminiVertexSearch `json:"vertexAiSearch"`
}

type geminiVertexSearch struct {
	Datastore string `json:"datastore"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
		GroundingMetadata struct {
			GroundingChunks []struct {
				RetrievedContext *struct {
					Title string `json:"title"`
					URI   string `json:"uri"`
					Text  string `json:"text"`
				} `json:"retrievedContext"`
			} `json:"groundingChunks"`
		} `json:"groundingMetadata"`
	} `json:"candidates"`
}

func (g *gemini) Invoke(ctx context.Context, env Envelope) (Output, error) {
	reqBody := geminiRequest{
		Contents: []geminiContent{{Parts: geminiParts(env)}},
		GenerationConfig: geminiGenConfig{
			Temperature:     0.7,
			MaxOutputTokens: 8192,
		},
	}
	if env.SystemInstruction != "" {
		reqBody.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: env.SystemInstruction}}}
	}
	if env.SearchTool != nil {
		reqBody.Tools = []geminiTool{{
			Retrieval: geminiRetrieval{VertexAISearch: geminiVertexSearch{Datastore: env.SearchTool.Datastore()}},
		}}
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return Output{}, fmt.Errorf("marshal request: %w", err)
	}

	base := cleanBaseURL(g.cfg.BaseURL)
	if base == "" {
		base = geminiDefaultBaseURL
	}
	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", base, g.cfg.ModelName, g.cfg.APIKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return Output{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return Output{}, classifyTransport(g.cfg.Provider, g.cfg.ModelName, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return Output{}, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return Output{}, classifyHTTP(g.cfg.Provider, g.cfg.ModelName, resp.StatusCode, string(respBody))
	}

	var apiResp geminiResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return Output{}, fmt.Errorf("unmarshal response: %w", err)
	}
	if len(apiResp.Candidates) == 0 {
		return Output{}, fmt.Errorf("empty response candidates")
	}

	candidate := apiResp.Candidates[0]

	var text strings.Builder
	for _, part := range candidate.Content.Parts {
		text.WriteString(part.Text)
	}

	var citations []Citation
	for _, chunk := range candidate.GroundingMetadata.GroundingChunks {
		if chunk.RetrievedContext == nil {
			continue
		}
		title := chunk.RetrievedContext.Title
		if title == "" {
			title = "Unknown Source"
		}
		citations = append(citations, Citation{
			Title:   title,
			URI:     chunk.RetrievedContext.URI,
			Snippet: chunk.RetrievedContext.Text,
		})
	}

	return Output{Text: text.String(), Citations: citations}, nil
}

// geminiParts orders inline images ahead of the prompt text, matching the
// part order the vision models expect.
func geminiParts(env Envelope) []geminiPart {
	parts := make([]geminiPart, 0, len(env.Images)+1)
	for _, img := range env.Images {
		parts = append(parts, geminiPart{InlineData: &geminiInlineData{MIMEType: img.MIMEType, Data: img.Data}})
	}
	parts = append(parts, geminiPart{Text: env.UserPrompt})
	return parts
}
