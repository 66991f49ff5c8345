package domain

import (
	"encoding/json"
)

// NewTextResult builds a plain text tool result.
func NewTextResult(text string) *CallToolResult {
	return &CallToolResult{
		Content: []Content{{Type: "text", Text: text}},
	}
}

// NewStructuredResult builds a tool result whose structured content is the
// given value. Non-object values are wrapped under a "data" key so the
// structured content is always a JSON object. The text content mirrors the
// structured payload so clients that ignore structuredContent still see the
// data.
func NewStructuredResult(v any) *CallToolResult {
	structured := ensureObject(v)
	text := "{}"
	if raw, err := json.Marshal(structured); err == nil {
		text = string(raw)
	}
	return &CallToolResult{
		Content:           []Content{{Type: "text", Text: text}},
		StructuredContent: structured,
	}
}

// NewErrorResult builds an isError tool result carrying the error text.
func NewErrorResult(err error) *CallToolResult {
	return &CallToolResult{
		Content: []Content{{Type: "text", Text: err.Error()}},
		IsError: true,
	}
}

func ensureObject(v any) any {
	raw, err := json.Marshal(v)
	if err != nil {
		return map[string]any{"data": nil}
	}
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return map[string]any{"data": nil}
	}
	if _, ok := decoded.(map[string]any); ok {
		return decoded
	}
	return map[string]any{"data": decoded}
}
