// Package engine orchestrates one agent request: it validates input,
// resolves the provider adapter, runs the bounded tool-call loop
// against a fresh file view, and reduces the result into a response.
package engine

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"codeloom/internal/client"
	"codeloom/internal/logging"
	"codeloom/internal/overlay"
	"codeloom/internal/tools"
	"codeloom/internal/workspace"
)

const (
	defaultMaxTokens int32 = 8192
	maxModeTokens    int32 = 16384
)

// Request is one orchestration request.
type Request struct {
	ProjectID string            `json:"projectId"`
	Prompt    string            `json:"prompt"`
	FileText  string            `json:"fileText,omitempty"`
	Model     string            `json:"model"`
	APIKeys   map[string]string `json:"apiKeys,omitempty"`
	Mode      string            `json:"mode"`
	Images    []ImagePayload    `json:"images,omitempty"`

	AutoMode          bool     `json:"autoMode,omitempty"`
	MaxMode           bool     `json:"maxMode,omitempty"`
	UseMultipleModels bool     `json:"useMultipleModels,omitempty"`
	SelectedModels    []string `json:"selectedModels,omitempty"`
	ReviewMode        bool     `json:"reviewMode,omitempty"`
}

// ImagePayload is an inline image attached to the prompt. Data is
// base64 on the wire.
type ImagePayload struct {
	MIMEType string `json:"mimeType"`
	Data     []byte `json:"data"`
}

// ModelResult is one slot of a fan-out response.
type ModelResult struct {
	Model   string  `json:"model"`
	Content *string `json:"content"`
	Error   string  `json:"error,omitempty"`
}

// Response is the engine's answer to one request.
type Response struct {
	Content         string                  `json:"content,omitempty"`
	UsedModel       string                  `json:"usedModel,omitempty"`
	ToolCalls       []tools.CallRecord      `json:"toolCalls,omitempty"`
	ProposedChanges []overlay.PendingChange `json:"proposedChanges,omitempty"`
	MultipleResults []ModelResult           `json:"multipleResults,omitempty"`
}

// ValidationError is a malformed request, rejected before any model
// call.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid request: %s %s", e.Field, e.Reason)
}

// ConfigError is a configuration gap (typically a missing API key),
// rejected before any model call.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string { return e.Reason }

// KeyResolver supplies an API key for a provider when the request does
// not carry one (config file, environment, OS keyring).
type KeyResolver func(provider string) string

// Engine runs orchestration requests against one workspace store.
type Engine struct {
	store    workspace.Store
	tools    *tools.Registry
	adapters *client.Registry
	resolve  KeyResolver
}

// New creates an engine with the default tool set and adapter catalog.
func New(store workspace.Store) *Engine {
	return &Engine{
		store:    store,
		tools:    tools.Default(),
		adapters: client.DefaultRegistry(),
	}
}

// SetAdapterRegistry swaps the adapter registry. Tests register stub
// adapters this way.
func (e *Engine) SetAdapterRegistry(r *client.Registry) { e.adapters = r }

// SetKeyResolver installs the fallback key lookup chain.
func (e *Engine) SetKeyResolver(r KeyResolver) { e.resolve = r }

// Run executes one orchestration request. Validation and configuration
// failures come back as typed errors before any provider call; a
// provider transport failure aborts and propagates.
func (e *Engine) Run(ctx context.Context, req Request) (Response, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return Response{}, &ValidationError{Field: "prompt", Reason: "is required"}
	}
	if strings.TrimSpace(req.ProjectID) == "" {
		return Response{}, &ValidationError{Field: "projectId", Reason: "is required"}
	}
	mode, err := tools.ParseMode(req.Mode)
	if err != nil {
		return Response{}, &ValidationError{Field: "mode", Reason: err.Error()}
	}

	if req.UseMultipleModels {
		return e.runFanOut(ctx, req)
	}

	model := req.Model
	if model == "" && req.AutoMode {
		model = e.autoSelect(req.APIKeys)
	}
	if model == "" {
		return Response{}, &ValidationError{Field: "model", Reason: "is required"}
	}
	if !e.adapters.Known(model) {
		return Response{}, &ValidationError{Field: "model", Reason: fmt.Sprintf("unknown model %q", model)}
	}
	key, err := e.resolveKey(model, req.APIKeys)
	if err != nil {
		return Response{}, err
	}
	adapter, err := e.adapters.Resolve(model, key)
	if err != nil {
		return Response{}, &ValidationError{Field: "model", Reason: err.Error()}
	}

	fs, ov, err := e.fileView(ctx, req)
	if err != nil {
		return Response{}, err
	}
	rc := &tools.RunContext{ProjectID: req.ProjectID, Mode: mode, FS: fs}
	executor := tools.NewExecutor(e.tools, rc)

	start := time.Now()
	result, err := adapter.Run(ctx, client.RunInput{
		SystemPrompt: systemPrompt(mode),
		Prompt:       userPrompt(req),
		Images:       images(req),
		Tools:        e.tools.DeclarationsFor(mode),
		Allowed:      mode.AllowedSet(),
		Runner:       executor,
		MaxTokens:    maxTokens(req),
	})
	if err != nil {
		return Response{}, err
	}

	resp := Response{
		Content:   result.Content,
		UsedModel: model,
		ToolCalls: executor.Transcript(),
	}
	if ov != nil {
		resp.ProposedChanges = overlay.BuildChangeset(ov.Staged())
	}
	logging.Info("agent run finished",
		"project", req.ProjectID,
		"model", model,
		"mode", string(mode),
		"toolCalls", len(resp.ToolCalls),
		"proposedChanges", len(resp.ProposedChanges),
		"duration", time.Since(start))
	return resp, nil
}

// fileView builds the run's file view: a fresh overlay in review mode,
// a direct store view otherwise.
func (e *Engine) fileView(ctx context.Context, req Request) (tools.FileSystem, *overlay.Overlay, error) {
	if req.ReviewMode {
		ov, err := overlay.New(ctx, e.store, req.ProjectID)
		if err != nil {
			return nil, nil, fmt.Errorf("loading project snapshot: %w", err)
		}
		return &tools.OverlayFS{Overlay: ov}, ov, nil
	}
	return &tools.StoreFS{Store: e.store, ProjectID: req.ProjectID}, nil, nil
}

// runFanOut issues N independent single-shot requests, one per
// selected model. Slots capture their own failures and never cancel
// each other.
func (e *Engine) runFanOut(ctx context.Context, req Request) (Response, error) {
	models := req.SelectedModels
	if len(models) == 0 {
		return Response{}, &ValidationError{Field: "selectedModels", Reason: "is required with useMultipleModels"}
	}
	for _, m := range models {
		if !e.adapters.Known(m) {
			return Response{}, &ValidationError{Field: "selectedModels", Reason: fmt.Sprintf("unknown model %q", m)}
		}
	}

	results := make([]ModelResult, len(models))
	var wg sync.WaitGroup
	for i, model := range models {
		wg.Add(1)
		go func(i int, model string) {
			defer wg.Done()
			results[i] = e.runSingleShot(ctx, req, model)
		}(i, model)
	}
	wg.Wait()
	return Response{MultipleResults: results}, nil
}

func (e *Engine) runSingleShot(ctx context.Context, req Request, model string) ModelResult {
	key, err := e.resolveKey(model, req.APIKeys)
	if err != nil {
		return ModelResult{Model: model, Error: err.Error()}
	}
	adapter, err := e.adapters.Resolve(model, key)
	if err != nil {
		return ModelResult{Model: model, Error: err.Error()}
	}

	result, err := adapter.Run(ctx, client.RunInput{
		SystemPrompt: systemPrompt(tools.ModeAsk),
		Prompt:       userPrompt(req),
		Images:       images(req),
		MaxTokens:    maxTokens(req),
	})
	if err != nil {
		logging.Warn("fan-out slot failed", "model", model, "error", err)
		return ModelResult{Model: model, Error: err.Error()}
	}
	return ModelResult{Model: model, Content: &result.Content}
}

// resolveKey finds the API key for a model: request override, then the
// configured fallback chain. Ollama models need no key.
func (e *Engine) resolveKey(model string, apiKeys map[string]string) (string, error) {
	provider, ok := client.ProviderFor(model)
	if !ok {
		return "", &ValidationError{Field: "model", Reason: fmt.Sprintf("unknown model %q", model)}
	}
	if provider == "ollama" {
		return "", nil
	}
	if key := apiKeys[provider]; key != "" {
		return key, nil
	}
	if e.resolve != nil {
		if key := e.resolve(provider); key != "" {
			return key, nil
		}
	}
	return "", &ConfigError{Reason: fmt.Sprintf("missing API key for provider %s", provider)}
}

// autoSelect picks the first catalog model whose provider has a key.
func (e *Engine) autoSelect(apiKeys map[string]string) string {
	for _, m := range client.AvailableModels {
		if apiKeys[m.Provider] != "" {
			return m.ID
		}
	}
	return ""
}

func maxTokens(req Request) int32 {
	if req.MaxMode {
		return maxModeTokens
	}
	return defaultMaxTokens
}

func images(req Request) []client.Image {
	out := make([]client.Image, 0, len(req.Images))
	for _, img := range req.Images {
		out = append(out, client.Image{MIMEType: img.MIMEType, Data: img.Data})
	}
	return out
}
