package client

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"
	"time"
)

const (
	defaultAnthropicBaseURL = "https://api.anthropic.com"
	anthropicVersion        = "2023-06-01"
	defaultAnthropicTokens  = 8192
)

// AnthropicAdapter speaks the messages wire: tool calls arrive as
// tool_use content blocks, results go back as a user message of
// tool_result blocks keyed by tool_use_id.
type AnthropicAdapter struct {
	model   string
	apiKey  string
	baseURL string
	hc      *http.Client
	retry   RetryConfig
}

// NewAnthropicAdapter creates an adapter for the Anthropic messages API.
func NewAnthropicAdapter(model, apiKey string) *AnthropicAdapter {
	return &AnthropicAdapter{
		model:   model,
		apiKey:  apiKey,
		baseURL: defaultAnthropicBaseURL,
		hc:      &http.Client{Timeout: 120 * time.Second},
		retry:   DefaultRetryConfig(),
	}
}

// SetBaseURL points the adapter at a different endpoint. Used by tests
// and Anthropic-compatible gateways.
func (a *AnthropicAdapter) SetBaseURL(u string) { a.baseURL = strings.TrimSuffix(u, "/") }

// SetHTTPClient overrides the HTTP client.
func (a *AnthropicAdapter) SetHTTPClient(hc *http.Client) { a.hc = hc }

func (a *AnthropicAdapter) Model() string { return a.model }

type antRequest struct {
	Model     string       `json:"model"`
	MaxTokens int32        `json:"max_tokens"`
	System    string       `json:"system,omitempty"`
	Messages  []antMessage `json:"messages"`
	Tools     []antTool    `json:"tools,omitempty"`
}

type antMessage struct {
	Role    string     `json:"role"`
	Content []antBlock `json:"content"`
}

type antBlock struct {
	Type string `json:"type"`

	// type:"text"
	Text string `json:"text,omitempty"`

	// type:"image"
	Source *antImageSource `json:"source,omitempty"`

	// type:"tool_use"
	ID    string          `json:"id,omitempty"`
	Name  string          `json:"name,omitempty"`
	Input json.RawMessage `json:"input,omitempty"`

	// type:"tool_result"
	ToolUseID string `json:"tool_use_id,omitempty"`
	Content   string `json:"content,omitempty"`
}

type antImageSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

type antTool struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	InputSchema map[string]any `json:"input_schema"`
}

type antResponse struct {
	Content    []antBlock `json:"content"`
	StopReason string     `json:"stop_reason"`
}

func (a *AnthropicAdapter) Run(ctx context.Context, in RunInput) (RunResult, error) {
	messages := []antMessage{antUserMessage(in)}

	tools := make([]antTool, 0, len(in.Tools))
	for _, decl := range in.Tools {
		tools = append(tools, antTool{
			Name:        decl.Name,
			Description: decl.Description,
			InputSchema: schemaJSON(decl.Parameters),
		})
	}

	maxTokens := in.MaxTokens
	if maxTokens == 0 {
		maxTokens = defaultAnthropicTokens
	}
	headers := map[string]string{
		"x-api-key":         a.apiKey,
		"anthropic-version": anthropicVersion,
	}

	for turn := 0; turn < MaxToolTurns; turn++ {
		payload := antRequest{
			Model:     a.model,
			MaxTokens: maxTokens,
			System:    in.SystemPrompt,
			Messages:  messages,
		}
		if len(tools) > 0 {
			payload.Tools = tools
		}

		var resp antResponse
		err := postJSON(ctx, a.hc, a.retry, a.baseURL+"/v1/messages", headers, payload, &resp)
		if err != nil {
			return RunResult{}, err
		}

		var text strings.Builder
		var toolUses []antBlock
		for _, block := range resp.Content {
			switch block.Type {
			case "text":
				text.WriteString(block.Text)
			case "tool_use":
				toolUses = append(toolUses, block)
			}
		}

		if len(toolUses) == 0 {
			return RunResult{Content: text.String()}, nil
		}

		messages = append(messages, antMessage{Role: "assistant", Content: resp.Content})

		results := make([]antBlock, 0, len(toolUses))
		for _, use := range toolUses {
			args := decodeArgs(use.Input)
			result, err := runTool(ctx, in, use.Name, args)
			if err != nil {
				return RunResult{}, err
			}
			results = append(results, antBlock{
				Type:      "tool_result",
				ToolUseID: use.ID,
				Content:   marshalResult(result),
			})
		}
		messages = append(messages, antMessage{Role: "user", Content: results})
	}

	return RunResult{Content: TurnLimitContent}, nil
}

func antUserMessage(in RunInput) antMessage {
	blocks := []antBlock{}
	for _, img := range in.Images {
		blocks = append(blocks, antBlock{
			Type: "image",
			Source: &antImageSource{
				Type:      "base64",
				MediaType: img.MIMEType,
				Data:      base64.StdEncoding.EncodeToString(img.Data),
			},
		})
	}
	blocks = append(blocks, antBlock{Type: "text", Text: in.Prompt})
	return antMessage{Role: "user", Content: blocks}
}
