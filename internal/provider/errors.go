package provider

import (
	"errors"
	"fmt"
	"strings"
)

// ErrKind classifies an adapter failure so callers can render a specific,
// actionable message instead of a raw transport error.
type ErrKind int

const (
	// MissingCredential means a required API key, token or base URL is
	// absent; no network call was attempted.
	MissingCredential ErrKind = iota
	// NetworkUnreachable is a transport-level failure before any HTTP
	// status was received.
	NetworkUnreachable
	// HTTPFailure is a non-2xx response.
	HTTPFailure
	// ModelUnavailable is the 404 "model not found" case, split out so the
	// caller can suggest switching models.
	ModelUnavailable
)

// Error is the typed failure every adapter returns.
type Error struct {
	Kind     ErrKind
	Provider Kind
	Model    string
	Status   int
	Body     string
	cause    error
}

func (e *Error) Error() string {
	switch e.Kind {
	case MissingCredential:
		if e.Body != "" {
			return fmt.Sprintf("%s: %s", e.Provider, e.Body)
		}
		return fmt.Sprintf("%s: missing API key", e.Provider)
	case NetworkUnreachable:
		return fmt.Sprintf("%s: network unreachable: %v", e.Provider, e.cause)
	case ModelUnavailable:
		return fmt.Sprintf("%s: model %q unavailable (404)", e.Provider, e.Model)
	default:
		return fmt.Sprintf("%s: api error %d: %s", e.Provider, e.Status, e.Body)
	}
}

func (e *Error) Unwrap() error { return e.cause }

// classifyHTTP maps a non-2xx response onto the taxonomy. A 404, or any
// status whose body carries a "not found" marker on the model field, is
// treated as a missing model rather than a generic failure.
func classifyHTTP(p Kind, model string, status int, body string) *Error {
	if status == 404 || strings.Contains(strings.ToLower(body), "not found") {
		return &Error{Kind: ModelUnavailable, Provider: p, Model: model, Status: status, Body: body}
	}
	return &Error{Kind: HTTPFailure, Provider: p, Model: model, Status: status, Body: body}
}

// classifyTransport wraps a failed round trip. Browsers hit this as a CORS
// wall; server-side it is DNS, TLS or connection refusal.
func classifyTransport(p Kind, model string, err error) *Error {
	return &Error{Kind: NetworkUnreachable, Provider: p, Model: model, cause: err}
}

// UserMessage renders err as text a student-facing chat bubble can show.
// Typed adapter errors get specific guidance; anything else degrades to a
// generic error line.
func UserMessage(err error) string {
	var e *Error
	if !errors.As(err, &e) {
		return fmt.Sprintf("⚠️ 错误: %v", err)
	}
	switch e.Kind {
	case MissingCredential:
		return fmt.Sprintf("请在设置中配置 %s 的 API Key。", e.Provider)
	case NetworkUnreachable:
		return fmt.Sprintf("连接失败 - 无法访问 %s 接口。\n\n解决办法：\n1. 请切换到 \"Gemini\" (Google)\n2. 或配置一个可用的代理地址作为 Base URL。", e.Provider)
	case ModelUnavailable:
		return fmt.Sprintf("模型 %q 未找到或暂不可用 (404)。\n请在设置中切换模型（例如使用 gemini-1.5-flash）。", e.Model)
	default:
		return fmt.Sprintf("⚠️ 错误: API Error %d: %s", e.Status, e.Body)
	}
}
