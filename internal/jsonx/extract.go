// Package jsonx recovers JSON values from unreliable LLM output.
//
// Model responses routinely wrap JSON in prose or markdown fences, or
// truncate mid-object when an output-token limit is hit. Extract slices
// the widest plausible JSON span out of the text, and if that span does
// not parse as-is, applies a repair pass (fence stripping, trailing-comma
// removal, brace/bracket balancing) before giving up.
package jsonx

import (
	"encoding/json"
	"regexp"
	"strings"
)

var (
	openFence     = regexp.MustCompile("^```[a-zA-Z]*\\s*")
	closeFence    = regexp.MustCompile("\\s*```$")
	trailingComma = regexp.MustCompile(`,\s*([\]}])`)
)

// Extract locates and parses the first JSON object or array in raw.
// It never panics; unrecoverable input yields nil.
func Extract(raw string) any {
	var v any
	if !ExtractInto(raw, &v) {
		return nil
	}
	return v
}

// ExtractInto is Extract unmarshalling into dst instead of an any value.
// It reports whether a parse (direct or repaired) succeeded; on false,
// dst is meaningless.
func ExtractInto(raw string, dst any) bool {
	candidate, ok := locate(raw)
	if !ok {
		return false
	}
	if json.Unmarshal([]byte(candidate), dst) == nil {
		return true
	}
	return json.Unmarshal([]byte(repair(candidate)), dst) == nil
}

// locate slices the widest plausible JSON span: from the first opener
// ({ or [, whichever occurs first) to the last matching closer, or to the
// end of the string when no closer exists (truncated output).
func locate(raw string) (string, bool) {
	firstBrace := strings.IndexByte(raw, '{')
	firstBracket := strings.IndexByte(raw, '[')

	start := -1
	object := false
	if firstBrace != -1 && (firstBracket == -1 || firstBrace < firstBracket) {
		start = firstBrace
		object = true
	} else if firstBracket != -1 {
		start = firstBracket
	}
	if start == -1 {
		return "", false
	}

	end := -1
	if object {
		if i := strings.LastIndexByte(raw, '}'); i != -1 {
			end = i + 1
		}
	} else {
		if i := strings.LastIndexByte(raw, ']'); i != -1 {
			end = i + 1
		}
	}
	if end == -1 || end <= start {
		end = len(raw)
	}

	return raw[start:end], true
}

// repair applies best-effort string surgery to a candidate that failed to
// parse: strip code fences, drop trailing commas, then append whatever
// closers are needed to balance the openers. Quote balancing is
// deliberately not attempted.
func repair(candidate string) string {
	repaired := strings.TrimSpace(candidate)

	repaired = openFence.ReplaceAllString(repaired, "")
	repaired = closeFence.ReplaceAllString(repaired, "")
	repaired = trailingComma.ReplaceAllString(repaired, "$1")

	openBraces := strings.Count(repaired, "{") - strings.Count(repaired, "}")
	openBrackets := strings.Count(repaired, "[") - strings.Count(repaired, "]")

	switch {
	case strings.HasPrefix(repaired, "{"):
		// Close any array the truncation left open before closing the
		// object(s) around it.
		repaired += strings.Repeat("]", max(openBrackets, 0))
		repaired += strings.Repeat("}", max(openBraces, 0))
	case strings.HasPrefix(repaired, "["):
		repaired += strings.Repeat("]", max(openBrackets, 0))
		if openBraces > 0 {
			repaired += strings.Repeat("}", openBraces)
			if !strings.HasSuffix(repaired, "]") {
				repaired += "]"
			}
		}
	}

	return repaired
}
