package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const baiduDefaultBaseURL = "https://aip.baidubce.com"

// baidu is the ERNIE adapter. The API authenticates with an access-token
// query parameter rather than a bearer header, and has no system role, so
// the system instruction is flattened into the user message.
type baidu struct {
	cfg    Config
	client *http.Client
}

func newBaidu(cfg Config) *baidu {
	return &baidu{
		cfg:    cfg,
		client: &http.Client{Timeout: 120 * time.Second},
	}
}

type baiduRequest struct {
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type baiduResponse struct {
	Result    string `json:"result"`
	ErrorCode int    `json:"error_code"`
	ErrorMsg  string `json:"error_msg"`
}

func (b *baidu) Invoke(ctx context.Context, env Envelope) (Output, error) {
	fullPrompt := env.UserPrompt
	if env.SystemInstruction != "" {
		fullPrompt = env.SystemInstruction + "\n\nUser Question: " + env.UserPrompt
	}

	body, err := json.Marshal(baiduRequest{
		Messages:    []chatMessage{{Role: "user", Content: fullPrompt}},
		Temperature: 0.7,
	})
	if err != nil {
		return Output{}, fmt.Errorf("marshal request: %w", err)
	}

	model := b.cfg.ModelName
	if model == "" {
		model = "completions_pro"
	}
	base := cleanBaseURL(b.cfg.BaseURL)
	if base == "" {
		base = baiduDefaultBaseURL
	}
	url := fmt.Sprintf("%s/rpc/2.0/ai_custom/v1/wenxinworkshop/chat/%s?access_token=%s", base, model, b.cfg.APIKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return Output{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return Output{}, classifyTransport(b.cfg.Provider, model, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return Output{}, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return Output{}, classifyHTTP(b.cfg.Provider, model, resp.StatusCode, string(respBody))
	}

	var apiResp baiduResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return Output{}, fmt.Errorf("unmarshal response: %w", err)
	}
	// Baidu reports auth and quota failures inside a 200 body.
	if apiResp.ErrorCode != 0 {
		return Output{}, classifyHTTP(b.cfg.Provider, model, resp.StatusCode,
			fmt.Sprintf("error_code %d: %s", apiResp.ErrorCode, apiResp.ErrorMsg))
	}

	return Output{Text: apiResp.Result}, nil
}
