package rag

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/yichen-ai/yichen/internal/provider"
)

const alibabaDefaultBaseURL = "https://dashscope.aliyuncs.com"

// AlibabaConfig addresses a Bailian/DashScope application that performs
// retrieval and generation as one atomic remote call.
type AlibabaConfig struct {
	AppID   string `json:"appId"`
	APIKey  string `json:"apiKey"`
	BaseURL string `json:"baseUrl,omitempty"`
}

type alibabaRequest struct {
	Input      alibabaInput      `json:"input"`
	Parameters alibabaParameters `json:"parameters"`
}

type alibabaInput struct {
	Prompt string `json:"prompt"`
}

type alibabaParameters struct {
	IncrementalOutput bool `json:"incremental_output"`
}

type alibabaResponse struct {
	Output struct {
		Text          string `json:"text"`
		DocReferences []struct {
			Title   string `json:"title"`
			URL     string `json:"url"`
			Snippet string `json:"snippet"`
		} `json:"doc_references"`
	} `json:"output"`
}

// queryAlibabaApp calls the application completion endpoint and returns
// its text and document references as a final, adapter-free result.
func (d *Dispatcher) queryAlibabaApp(ctx context.Context, prompt string, cfg AlibabaConfig) (*provider.Output, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("missing alibaba cloud credentials")
	}

	body, err := json.Marshal(alibabaRequest{
		Input:      alibabaInput{Prompt: prompt},
		Parameters: alibabaParameters{IncrementalOutput: false},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = alibabaDefaultBaseURL
	}
	url := fmt.Sprintf("%s/api/v1/apps/%s/completion", base, cfg.AppID)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+cfg.APIKey)

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("alibaba app call: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("alibaba api error %d: %s", resp.StatusCode, string(respBody))
	}

	var apiResp alibabaResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	out := &provider.Output{Text: apiResp.Output.Text}
	if out.Text == "" {
		out.Text = "No response text"
	}
	for _, ref := range apiResp.Output.DocReferences {
		title := ref.Title
		if title == "" {
			title = "Reference Doc"
		}
		out.Citations = append(out.Citations, provider.Citation{
			Title:   title,
			URI:     ref.URL,
			Snippet: ref.Snippet,
		})
	}
	return out, nil
}
