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

// openAICompatible speaks the chat-completions dialect shared by OpenAI,
// DeepSeek, Alibaba compatible-mode and Tencent Hunyuan; the base URL
// selects the vendor. No native citation support — citations are always
// empty on this path.
type openAICompatible struct {
	cfg    Config
	client *http.Client
}

func newOpenAICompatible(cfg Config) *openAICompatible {
	return &openAICompatible{
		cfg:    cfg,
		client: &http.Client{Timeout: 120 * time.Second},
	}
}

type chatMessage struct {
	Role string `json:"role"`
	// Content is a plain string for text-only turns, or a part array
	// ({type:text} / {type:image_url}) when images are attached.
	Content any `json:"content"`
}

type chatContentPart struct {
	Type     string        `json:"type"`
	Text     string        `json:"text,omitempty"`
	ImageURL *chatImageURL `json:"image_url,omitempty"`
}

type chatImageURL struct {
	URL string `json:"url"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (o *openAICompatible) Invoke(ctx context.Context, env Envelope) (Output, error) {
	messages := []chatMessage{
		{Role: "system", Content: env.SystemInstruction},
		{Role: "user", Content: userContent(env)},
	}

	body, err := json.Marshal(chatRequest{
		Model:       o.cfg.ModelName,
		Messages:    messages,
		Temperature: 0.7,
	})
	if err != nil {
		return Output{}, fmt.Errorf("marshal request: %w", err)
	}

	url := cleanBaseURL(o.cfg.BaseURL) + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return Output{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.cfg.APIKey)

	resp, err := o.client.Do(req)
	if err != nil {
		return Output{}, classifyTransport(o.cfg.Provider, o.cfg.ModelName, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return Output{}, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return Output{}, classifyHTTP(o.cfg.Provider, o.cfg.ModelName, resp.StatusCode, string(respBody))
	}

	var apiResp chatResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return Output{}, fmt.Errorf("unmarshal response: %w", err)
	}
	if len(apiResp.Choices) == 0 {
		return Output{}, fmt.Errorf("empty response choices")
	}

	return Output{Text: apiResp.Choices[0].Message.Content}, nil
}

func userContent(env Envelope) any {
	if len(env.Images) == 0 {
		return env.UserPrompt
	}
	parts := []chatContentPart{{Type: "text", Text: env.UserPrompt}}
	for _, img := range env.Images {
		parts = append(parts, chatContentPart{
			Type:     "image_url",
			ImageURL: &chatImageURL{URL: img.DataURI()},
		})
	}
	return parts
}
