package client

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// MaxToolTurns is the per-run iteration ceiling. Hitting it is not an
// error: the run degrades to TurnLimitContent.
const MaxToolTurns = 25

// TurnLimitContent is the sentinel returned when a run is still
// issuing tool calls at the iteration ceiling.
const TurnLimitContent = "Maximum tool call turns reached. Stopping here with the work staged so far; ask me to continue if more changes are needed."

// runTool executes one model-requested call through the runner. A call
// outside the allowed set gets a synthesized error result so the model
// can self-correct; the runner is never consulted for it.
func runTool(ctx context.Context, in RunInput, name string, args map[string]any) (map[string]any, error) {
	if !in.Allowed[name] {
		return map[string]any{
			"error": fmt.Sprintf("tool %s is not allowed in current mode", name),
		}, nil
	}
	return in.Runner.Execute(ctx, name, args)
}

// decodeArgs parses model-supplied JSON arguments. Malformed or empty
// input decodes to an empty object so one bad call cannot abort the
// run; the tool reports its own validation error instead.
func decodeArgs(raw json.RawMessage) map[string]any {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return map[string]any{}
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(trimmed), &args); err != nil || args == nil {
		return map[string]any{}
	}
	return args
}

// decodeArgsString handles providers that carry arguments as a JSON
// string rather than an embedded object.
func decodeArgsString(s string) map[string]any {
	return decodeArgs(json.RawMessage(s))
}

// marshalResult encodes a tool result for providers that carry results
// as strings.
func marshalResult(result map[string]any) string {
	data, err := json.Marshal(result)
	if err != nil {
		return `{"error":"unencodable tool result"}`
	}
	return string(data)
}

// schemaJSON converts a genai schema into plain JSON Schema for
// providers that take raw JSON tool parameters.
func schemaJSON(s *genai.Schema) map[string]any {
	if s == nil {
		return map[string]any{"type": "object", "properties": map[string]any{}}
	}
	out := map[string]any{}
	if s.Type != "" {
		out["type"] = strings.ToLower(string(s.Type))
	}
	if s.Description != "" {
		out["description"] = s.Description
	}
	if len(s.Properties) > 0 {
		props := make(map[string]any, len(s.Properties))
		for name, prop := range s.Properties {
			props[name] = schemaJSON(prop)
		}
		out["properties"] = props
	}
	if len(s.Required) > 0 {
		out["required"] = s.Required
	}
	if len(s.Enum) > 0 {
		out["enum"] = s.Enum
	}
	if s.Items != nil {
		out["items"] = schemaJSON(s.Items)
	}
	return out
}
