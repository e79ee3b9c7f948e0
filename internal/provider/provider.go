// Package provider translates prompt envelopes into vendor-specific LLM
// HTTP calls. Each supported vendor family implements Invoker; New resolves
// the configured family once, so call sites never branch on vendor.
package provider

import (
	"context"
	"regexp"
	"strings"
)

// Kind names a configured vendor. ChatGPT, DeepSeek, Alibaba and Tencent
// all speak the OpenAI chat-completions dialect and differ only in base URL.
type Kind string

const (
	KindGemini   Kind = "gemini"
	KindChatGPT  Kind = "chatgpt"
	KindDeepSeek Kind = "deepseek"
	KindAlibaba  Kind = "alibaba"
	KindTencent  Kind = "tencent"
	KindBaidu    Kind = "baidu"
)

// Config is the per-request provider snapshot. It is never mutated after a
// request is issued; later settings edits produce a fresh value.
type Config struct {
	Provider  Kind   `json:"provider"`
	APIKey    string `json:"apiKey"`
	BaseURL   string `json:"baseUrl,omitempty"`
	ModelName string `json:"modelName"`
}

// ImagePart is one inline image: a MIME type plus base64 payload.
type ImagePart struct {
	MIMEType string
	Data     string
}

// DataURI renders the part back into a data URI for APIs that want one.
func (p ImagePart) DataURI() string {
	return "data:" + p.MIMEType + ";base64," + p.Data
}

// SearchTool configures a Vertex AI Search datastore the gemini adapter
// declares as a retrieval tool.
type SearchTool struct {
	ProjectID   string `json:"projectId"`
	Location    string `json:"location,omitempty"`
	DataStoreID string `json:"dataStoreId"`
}

// Datastore returns the fully qualified datastore resource name.
func (t SearchTool) Datastore() string {
	location := t.Location
	if location == "" {
		location = "global"
	}
	return "projects/" + t.ProjectID + "/locations/" + location +
		"/collections/default_collection/dataStores/" + t.DataStoreID
}

// Envelope is one generation request. Immutable once handed to an adapter.
type Envelope struct {
	SystemInstruction string
	UserPrompt        string
	Images            []ImagePart
	SearchTool        *SearchTool
}

// Citation is a source document backing part of a generated answer.
type Citation struct {
	Title   string `json:"title"`
	URI     string `json:"uri"`
	Snippet string `json:"snippet"`
}

// Output is the untrusted raw result of one adapter call.
type Output struct {
	Text      string
	Citations []Citation
}

// Invoker performs a single generation call. No retries at this layer; a
// failed attempt surfaces immediately as a *Error.
type Invoker interface {
	Invoke(ctx context.Context, env Envelope) (Output, error)
}

// New resolves cfg into the adapter for its vendor family. Credential and
// base-URL requirements are checked here so no network call is ever
// attempted with an incomplete config.
func New(cfg Config) (Invoker, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, &Error{Kind: MissingCredential, Provider: cfg.Provider, Model: cfg.ModelName}
	}
	switch cfg.Provider {
	case KindGemini:
		return newGemini(cfg), nil
	case KindBaidu:
		return newBaidu(cfg), nil
	default:
		if cleanBaseURL(cfg.BaseURL) == "" {
			return nil, &Error{Kind: MissingCredential, Provider: cfg.Provider, Model: cfg.ModelName,
				Body: "missing base URL"}
		}
		return newOpenAICompatible(cfg), nil
	}
}

// SupportsVision reports whether the configured vendor can accept image
// parts. Baidu's chat endpoint is text-only.
func SupportsVision(k Kind) bool {
	return k != KindBaidu
}

var dataURIPattern = regexp.MustCompile(`^data:([^;]+);base64,(.+)$`)

// ParseDataURI splits a data URI into an ImagePart. Bare base64 strings
// without a data: header are assumed to be JPEG.
func ParseDataURI(uri string) ImagePart {
	if m := dataURIPattern.FindStringSubmatch(uri); m != nil {
		return ImagePart{MIMEType: m[1], Data: m[2]}
	}
	if i := strings.IndexByte(uri, ','); i != -1 {
		return ImagePart{MIMEType: "image/jpeg", Data: uri[i+1:]}
	}
	return ImagePart{MIMEType: "image/jpeg", Data: uri}
}

func cleanBaseURL(url string) string {
	return strings.TrimRight(strings.TrimSpace(url), "/")
}
