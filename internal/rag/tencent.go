package rag

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/yichen-ai/yichen/internal/provider"
)

// TencentConfig addresses a Tencent Cloud knowledge base through a search
// endpoint (typically a signing proxy, since the raw API wants TC3 request
// signing). The endpoint returns top-k text chunks for a query.
type TencentConfig struct {
	SecretID        string `json:"secretId"`
	SecretKey       string `json:"secretKey"`
	KnowledgeBaseID string `json:"knowledgeBaseId"`
	SearchURL       string `json:"searchUrl"`
}

type tencentSearchRequest struct {
	SecretID        string `json:"secretId"`
	SecretKey       string `json:"secretKey"`
	KnowledgeBaseID string `json:"knowledgeBaseId"`
	Query           string `json:"query"`
	TopK            int    `json:"topK"`
}

type tencentSearchResponse struct {
	Hits []struct {
		Title   string `json:"title"`
		URI     string `json:"uri"`
		Snippet string `json:"snippet"`
	} `json:"hits"`
}

// searchTencentKnowledgeBase runs the separate search step of the
// search-then-generate path and returns the hits as citations.
func (d *Dispatcher) searchTencentKnowledgeBase(ctx context.Context, query string, cfg TencentConfig) ([]provider.Citation, error) {
	if cfg.SecretID == "" || cfg.SecretKey == "" {
		return nil, fmt.Errorf("missing tencent credentials")
	}
	if cfg.SearchURL == "" {
		return nil, fmt.Errorf("missing tencent search endpoint")
	}

	body, err := json.Marshal(tencentSearchRequest{
		SecretID:        cfg.SecretID,
		SecretKey:       cfg.SecretKey,
		KnowledgeBaseID: cfg.KnowledgeBaseID,
		Query:           query,
		TopK:            5,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.SearchURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tencent search call: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tencent search error %d: %s", resp.StatusCode, string(respBody))
	}

	var apiResp tencentSearchResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	hits := make([]provider.Citation, 0, len(apiResp.Hits))
	for _, h := range apiResp.Hits {
		hits = append(hits, provider.Citation{Title: h.Title, URI: h.URI, Snippet: h.Snippet})
	}
	return hits, nil
}
