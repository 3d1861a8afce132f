// Package client contains the provider adapters. Each adapter speaks
// one provider's wire protocol and drives the same bounded tool-call
// loop against the run's tool runner.
package client

import (
	"context"

	"google.golang.org/genai"
)

// Image is an inline image attached to the user prompt.
type Image struct {
	MIMEType string
	Data     []byte
}

// ToolRunner executes one named tool call and returns the result
// payload fed back to the model. A non-nil error aborts the run.
type ToolRunner interface {
	Execute(ctx context.Context, name string, args map[string]any) (map[string]any, error)
}

// RunInput is the provider-independent half of one agent run.
type RunInput struct {
	SystemPrompt string
	Prompt       string
	Images       []Image

	// Tools are the declarations the model may call, already filtered
	// by mode.
	Tools []*genai.FunctionDeclaration
	// Allowed is the mode's allow set. A call outside it gets a
	// synthesized error result without reaching the runner.
	Allowed map[string]bool
	Runner  ToolRunner

	MaxTokens int32
}

// RunResult is the final outcome of an adapter run.
type RunResult struct {
	Content string
}

// Adapter runs one request/response cycle against a single provider.
type Adapter interface {
	// Model returns the model id this adapter was built for.
	Model() string

	// Run drives the bounded tool-call loop to completion.
	Run(ctx context.Context, in RunInput) (RunResult, error)
}

// ModelInfo describes one model in the catalog.
type ModelInfo struct {
	ID          string
	Name        string
	Description string
	Provider    string
}

// AvailableModels is the list of supported models across providers.
// Ollama models are addressed by namespace (ollama/<name>) and are not
// enumerated here.
var AvailableModels = []ModelInfo{
	{
		ID:          "gpt-4o",
		Name:        "GPT-4o",
		Description: "OpenAI flagship multimodal model",
		Provider:    "openai",
	},
	{
		ID:          "gpt-4o-mini",
		Name:        "GPT-4o mini",
		Description: "Fast and inexpensive",
		Provider:    "openai",
	},
	{
		ID:          "claude-sonnet-4-5",
		Name:        "Claude Sonnet 4.5",
		Description: "Strong coding model",
		Provider:    "anthropic",
	},
	{
		ID:          "claude-haiku-4-5",
		Name:        "Claude Haiku 4.5",
		Description: "Fast and inexpensive",
		Provider:    "anthropic",
	},
	{
		ID:          "gemini-2.5-flash",
		Name:        "Gemini 2.5 Flash",
		Description: "Fast model",
		Provider:    "gemini",
	},
	{
		ID:          "gemini-2.5-pro",
		Name:        "Gemini 2.5 Pro",
		Description: "Advanced model",
		Provider:    "gemini",
	},
}

// GetModelInfo returns catalog information for a model id.
func GetModelInfo(modelID string) (ModelInfo, bool) {
	for _, m := range AvailableModels {
		if m.ID == modelID {
			return m, true
		}
	}
	return ModelInfo{}, false
}
