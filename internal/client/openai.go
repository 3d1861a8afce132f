package client

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const defaultOpenAIBaseURL = "https://api.openai.com"

// OpenAIAdapter speaks the chat-completions wire: tool calls arrive as
// tool_calls entries with string-encoded arguments, results go back as
// role:"tool" messages keyed by tool_call_id.
type OpenAIAdapter struct {
	model   string
	apiKey  string
	baseURL string
	hc      *http.Client
	retry   RetryConfig
}

// NewOpenAIAdapter creates an adapter for an OpenAI-compatible API.
func NewOpenAIAdapter(model, apiKey string) *OpenAIAdapter {
	return &OpenAIAdapter{
		model:   model,
		apiKey:  apiKey,
		baseURL: defaultOpenAIBaseURL,
		hc:      &http.Client{Timeout: 120 * time.Second},
		retry:   DefaultRetryConfig(),
	}
}

// SetBaseURL points the adapter at a different endpoint. Used by tests
// and OpenAI-compatible gateways.
func (a *OpenAIAdapter) SetBaseURL(u string) { a.baseURL = strings.TrimSuffix(u, "/") }

// SetHTTPClient overrides the HTTP client.
func (a *OpenAIAdapter) SetHTTPClient(hc *http.Client) { a.hc = hc }

func (a *OpenAIAdapter) Model() string { return a.model }

type oaiRequest struct {
	Model     string         `json:"model"`
	Messages  []oaiMessage   `json:"messages"`
	Tools     []oaiToolSpec  `json:"tools,omitempty"`
	MaxTokens int32          `json:"max_tokens,omitempty"`
}

type oaiMessage struct {
	Role       string        `json:"role"`
	Content    any           `json:"content,omitempty"`
	ToolCallID string        `json:"tool_call_id,omitempty"`
	ToolCalls  []oaiToolCall `json:"tool_calls,omitempty"`
}

type oaiContentPart struct {
	Type     string        `json:"type"`
	Text     string        `json:"text,omitempty"`
	ImageURL *oaiImageURL  `json:"image_url,omitempty"`
}

type oaiImageURL struct {
	URL string `json:"url"`
}

type oaiToolSpec struct {
	Type     string      `json:"type"`
	Function oaiFunction `json:"function"`
}

type oaiFunction struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters"`
}

type oaiToolCall struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Function struct {
		Name      string `json:"name"`
		Arguments string `json:"arguments"`
	} `json:"function"`
}

type oaiResponse struct {
	Choices []struct {
		Message struct {
			Content   json.RawMessage `json:"content"`
			ToolCalls []oaiToolCall   `json:"tool_calls"`
		} `json:"message"`
	} `json:"choices"`
}

func (a *OpenAIAdapter) Run(ctx context.Context, in RunInput) (RunResult, error) {
	messages := []oaiMessage{}
	if in.SystemPrompt != "" {
		messages = append(messages, oaiMessage{Role: "system", Content: in.SystemPrompt})
	}
	messages = append(messages, oaiUserMessage(in))

	tools := make([]oaiToolSpec, 0, len(in.Tools))
	for _, decl := range in.Tools {
		tools = append(tools, oaiToolSpec{
			Type: "function",
			Function: oaiFunction{
				Name:        decl.Name,
				Description: decl.Description,
				Parameters:  schemaJSON(decl.Parameters),
			},
		})
	}

	headers := map[string]string{"Authorization": "Bearer " + a.apiKey}

	for turn := 0; turn < MaxToolTurns; turn++ {
		payload := oaiRequest{
			Model:     a.model,
			Messages:  messages,
			MaxTokens: in.MaxTokens,
		}
		if len(tools) > 0 {
			payload.Tools = tools
		}

		var resp oaiResponse
		err := postJSON(ctx, a.hc, a.retry, a.baseURL+"/v1/chat/completions", headers, payload, &resp)
		if err != nil {
			return RunResult{}, err
		}
		if len(resp.Choices) == 0 {
			return RunResult{}, fmt.Errorf("empty response from %s", a.model)
		}

		msg := resp.Choices[0].Message
		if len(msg.ToolCalls) == 0 {
			return RunResult{Content: oaiText(msg.Content)}, nil
		}

		messages = append(messages, oaiMessage{
			Role:      "assistant",
			Content:   oaiText(msg.Content),
			ToolCalls: msg.ToolCalls,
		})
		for _, call := range msg.ToolCalls {
			args := decodeArgsString(call.Function.Arguments)
			result, err := runTool(ctx, in, call.Function.Name, args)
			if err != nil {
				return RunResult{}, err
			}
			messages = append(messages, oaiMessage{
				Role:       "tool",
				ToolCallID: call.ID,
				Content:    marshalResult(result),
			})
		}
	}

	return RunResult{Content: TurnLimitContent}, nil
}

// oaiUserMessage builds the user turn; images ride along as data URLs.
func oaiUserMessage(in RunInput) oaiMessage {
	if len(in.Images) == 0 {
		return oaiMessage{Role: "user", Content: in.Prompt}
	}
	parts := []oaiContentPart{{Type: "text", Text: in.Prompt}}
	for _, img := range in.Images {
		parts = append(parts, oaiContentPart{
			Type: "image_url",
			ImageURL: &oaiImageURL{
				URL: fmt.Sprintf("data:%s;base64,%s", img.MIMEType, base64.StdEncoding.EncodeToString(img.Data)),
			},
		})
	}
	return oaiMessage{Role: "user", Content: parts}
}

// oaiText extracts the text of a content field that may be a plain
// string, a block array, or null.
func oaiText(raw json.RawMessage) string {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return ""
	}
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return text
	}
	var blocks []struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(raw, &blocks); err == nil {
		var b strings.Builder
		for _, block := range blocks {
			b.WriteString(block.Text)
		}
		return b.String()
	}
	return ""
}
