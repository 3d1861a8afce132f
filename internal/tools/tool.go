// Package tools declares the capabilities an agent run can invoke,
// gates them by mode, and dispatches model-issued tool calls against
// the run's file view.
package tools

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// Tool is a single named capability exposed to the model.
type Tool interface {
	// Name returns the unique name of the tool.
	Name() string

	// Declaration returns the function declaration sent to the model.
	Declaration() *genai.FunctionDeclaration

	// Execute runs the tool. Domain failures (not found, already
	// exists, search string absent) come back as an error Result; a
	// non-nil error is reserved for failures that abort the run.
	Execute(ctx context.Context, args map[string]any, rc *RunContext) (Result, error)
}

// RunContext carries the per-run state handlers execute against.
type RunContext struct {
	ProjectID string
	Mode      Mode
	// FS is the run's file view: the staging overlay in review mode,
	// or a direct store view otherwise.
	FS FileSystem
}

// Result is the tagged outcome of one tool call: either a success
// payload or an error message the model can react to.
type Result struct {
	Data map[string]any
	Err  string
}

// OK wraps a success payload.
func OK(data map[string]any) Result {
	return Result{Data: data}
}

// Text wraps plain text content as a success payload.
func Text(content string) Result {
	return Result{Data: map[string]any{"content": content}}
}

// Errf formats an error result.
func Errf(format string, args ...any) Result {
	return Result{Err: fmt.Sprintf(format, args...)}
}

// IsErr reports whether the result carries an error.
func (r Result) IsErr() bool { return r.Err != "" }

// ToMap converts the result to the wire shape fed back to the model.
func (r Result) ToMap() map[string]any {
	if r.IsErr() {
		return map[string]any{"success": false, "error": r.Err}
	}
	out := make(map[string]any, len(r.Data)+1)
	out["success"] = true
	for k, v := range r.Data {
		out[k] = v
	}
	return out
}

// GetString extracts a string argument from the args map.
func GetString(args map[string]any, key string) (string, bool) {
	val, ok := args[key]
	if !ok {
		return "", false
	}
	s, ok := val.(string)
	return s, ok
}

// GetStringDefault extracts a string argument with a default value.
func GetStringDefault(args map[string]any, key, defaultVal string) string {
	if s, ok := GetString(args, key); ok {
		return s
	}
	return defaultVal
}

// GetInt extracts an integer argument from the args map.
func GetInt(args map[string]any, key string) (int, bool) {
	switch v := args[key].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	// Models deliver numbers as JSON floats.
	case float64:
		return int(v), true
	}
	return 0, false
}

// GetIntDefault extracts an integer argument with a default value.
func GetIntDefault(args map[string]any, key string, defaultVal int) int {
	if n, ok := GetInt(args, key); ok {
		return n
	}
	return defaultVal
}
