package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"
	"google.golang.org/genai"
)

const defaultOllamaBaseURL = "http://localhost:11434"

// OllamaAdapter runs local models through the Ollama chat API. Same
// chat-completion shape as the OpenAI wire, delivered by the official
// SDK.
type OllamaAdapter struct {
	model  string
	client *api.Client
}

// NewOllamaAdapter creates an adapter for a local Ollama model. The
// model is the name Ollama knows it by ("llama3.2", "qwen2.5-coder").
func NewOllamaAdapter(model, baseURL string) (*OllamaAdapter, error) {
	if model == "" {
		return nil, fmt.Errorf("ollama model name is required")
	}
	if baseURL == "" {
		baseURL = defaultOllamaBaseURL
	}
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama base URL: %w", err)
	}
	hc := &http.Client{Timeout: 300 * time.Second}
	return &OllamaAdapter{
		model:  model,
		client: api.NewClient(parsed, hc),
	}, nil
}

func (a *OllamaAdapter) Model() string { return "ollama/" + a.model }

func (a *OllamaAdapter) Run(ctx context.Context, in RunInput) (RunResult, error) {
	messages := []api.Message{}
	if in.SystemPrompt != "" {
		messages = append(messages, api.Message{Role: "system", Content: in.SystemPrompt})
	}
	user := api.Message{Role: "user", Content: in.Prompt}
	for _, img := range in.Images {
		user.Images = append(user.Images, api.ImageData(img.Data))
	}
	messages = append(messages, user)

	tools := ollamaTools(in.Tools)

	for turn := 0; turn < MaxToolTurns; turn++ {
		req := &api.ChatRequest{
			Model:    a.model,
			Messages: messages,
			Stream:   ptr(false),
		}
		if in.MaxTokens > 0 {
			req.Options = map[string]any{"num_predict": in.MaxTokens}
		}
		if len(tools) > 0 {
			req.Tools = tools
		}

		var final api.ChatResponse
		err := a.client.Chat(ctx, req, func(resp api.ChatResponse) error {
			final = resp
			return nil
		})
		if err != nil {
			return RunResult{}, wrapOllamaErr(err)
		}

		msg := final.Message
		if len(msg.ToolCalls) == 0 {
			return RunResult{Content: msg.Content}, nil
		}

		messages = append(messages, msg)
		for i, call := range msg.ToolCalls {
			args := call.Function.Arguments.ToMap()
			if args == nil {
				args = map[string]any{}
			}
			result, err := runTool(ctx, in, call.Function.Name, args)
			if err != nil {
				return RunResult{}, err
			}
			callID := call.ID
			if callID == "" {
				callID = fmt.Sprintf("call_%d", i)
			}
			messages = append(messages, api.Message{
				Role:       "tool",
				Content:    marshalResult(result),
				ToolName:   call.Function.Name,
				ToolCallID: callID,
			})
		}
	}

	return RunResult{Content: TurnLimitContent}, nil
}

// ollamaTools converts genai declarations to the Ollama tool format.
func ollamaTools(decls []*genai.FunctionDeclaration) []api.Tool {
	tools := make([]api.Tool, 0, len(decls))
	for _, decl := range decls {
		params := api.ToolFunctionParameters{
			Type:       "object",
			Properties: api.NewToolPropertiesMap(),
		}
		if decl.Parameters != nil {
			params.Required = decl.Parameters.Required
			for name, schema := range decl.Parameters.Properties {
				prop := api.ToolProperty{Description: schema.Description}
				if schema.Type != "" {
					prop.Type = api.PropertyType{strings.ToLower(string(schema.Type))}
				}
				if len(schema.Enum) > 0 {
					enumVals := make([]any, len(schema.Enum))
					for i, v := range schema.Enum {
						enumVals[i] = v
					}
					prop.Enum = enumVals
				}
				params.Properties.Set(name, prop)
			}
		}
		tools = append(tools, api.Tool{
			Type: "function",
			Function: api.ToolFunction{
				Name:        decl.Name,
				Description: decl.Description,
				Parameters:  params,
			},
		})
	}
	return tools
}

// wrapOllamaErr maps SDK status errors onto the shared HTTP error type
// so the surface treats local and remote providers alike.
func wrapOllamaErr(err error) error {
	var statusErr *api.StatusError
	if errors.As(err, &statusErr) {
		return &HTTPError{StatusCode: statusErr.StatusCode, Message: statusErr.ErrorMessage}
	}
	if strings.Contains(err.Error(), "connection refused") {
		return fmt.Errorf("ollama server is not running (start it with `ollama serve`): %w", err)
	}
	return err
}

func ptr[T any](v T) *T { return &v }
