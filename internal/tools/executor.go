package tools

import (
	"context"
	"time"

	"codeloom/internal/logging"
)

// CallRecord is one entry of the per-run tool call transcript.
type CallRecord struct {
	Tool   string         `json:"tool"`
	Args   map[string]any `json:"args"`
	Result map[string]any `json:"result"`
}

// Executor dispatches tool calls for one agent run and keeps the
// transcript. Calls execute strictly in the order they arrive: a later
// call in the same model turn must observe the mutations of earlier
// ones.
type Executor struct {
	registry   *Registry
	rc         *RunContext
	transcript []CallRecord
}

// NewExecutor creates an executor bound to one run's context.
func NewExecutor(registry *Registry, rc *RunContext) *Executor {
	return &Executor{registry: registry, rc: rc}
}

// Execute dispatches one named tool call and records it. Domain
// failures, unknown tools, and mode violations come back as error
// payloads the model can react to; a non-nil error aborts the run.
func (e *Executor) Execute(ctx context.Context, name string, args map[string]any) (map[string]any, error) {
	if args == nil {
		args = map[string]any{}
	}

	result, err := e.dispatch(ctx, name, args)
	if err != nil {
		logging.Error("tool call aborted run", "tool", name, "error", err)
		return nil, err
	}

	payload := result.ToMap()
	e.transcript = append(e.transcript, CallRecord{Tool: name, Args: args, Result: payload})
	if result.IsErr() {
		logging.Debug("tool call returned error result", "tool", name, "error", result.Err)
	}
	return payload, nil
}

func (e *Executor) dispatch(ctx context.Context, name string, args map[string]any) (Result, error) {
	tool, ok := e.registry.Get(name)
	if !ok {
		return Errf("unknown tool: %s", name), nil
	}

	// Second half of the mode gate. The declarations sent to the model
	// were already filtered, but a model may still hallucinate a
	// disallowed call; answer with an error result instead of failing
	// the run.
	if !e.rc.Mode.Allows(name) {
		return Errf("tool %s is not allowed in %s mode", name, e.rc.Mode), nil
	}

	start := time.Now()
	result, err := tool.Execute(ctx, args, e.rc)
	if err != nil {
		return Result{}, err
	}
	logging.Debug("tool executed",
		"tool", name,
		"success", !result.IsErr(),
		"duration", time.Since(start))
	return result, nil
}

// Transcript returns the calls executed so far, in issue order.
func (e *Executor) Transcript() []CallRecord {
	return e.transcript
}
