package client

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// GeminiAdapter speaks the generative-chat wire through the genai SDK:
// tool calls arrive as functionCall parts, results go back as inline
// functionResponse parts.
type GeminiAdapter struct {
	model  string
	apiKey string

	// newClient is swapped in tests to avoid real SDK construction.
	newClient func(ctx context.Context) (geminiModelCaller, error)
}

// geminiModelCaller is the slice of the genai SDK the adapter needs.
type geminiModelCaller interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

type sdkCaller struct{ client *genai.Client }

func (s *sdkCaller) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	return s.client.Models.GenerateContent(ctx, model, contents, config)
}

// NewGeminiAdapter creates an adapter for the Gemini API.
func NewGeminiAdapter(model, apiKey string) *GeminiAdapter {
	a := &GeminiAdapter{model: model, apiKey: apiKey}
	a.newClient = func(ctx context.Context) (geminiModelCaller, error) {
		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  apiKey,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			return nil, fmt.Errorf("creating gemini client: %w", err)
		}
		return &sdkCaller{client: client}, nil
	}
	return a
}

func (a *GeminiAdapter) Model() string { return a.model }

func (a *GeminiAdapter) Run(ctx context.Context, in RunInput) (RunResult, error) {
	caller, err := a.newClient(ctx)
	if err != nil {
		return RunResult{}, err
	}

	config := &genai.GenerateContentConfig{}
	if in.SystemPrompt != "" {
		config.SystemInstruction = genai.NewContentFromText(in.SystemPrompt, genai.RoleUser)
	}
	if in.MaxTokens > 0 {
		config.MaxOutputTokens = in.MaxTokens
	}
	if len(in.Tools) > 0 {
		config.Tools = []*genai.Tool{{FunctionDeclarations: in.Tools}}
	}

	userParts := []*genai.Part{genai.NewPartFromText(in.Prompt)}
	for _, img := range in.Images {
		userParts = append(userParts, &genai.Part{
			InlineData: &genai.Blob{MIMEType: img.MIMEType, Data: img.Data},
		})
	}
	history := []*genai.Content{{Role: genai.RoleUser, Parts: userParts}}

	for turn := 0; turn < MaxToolTurns; turn++ {
		resp, err := caller.GenerateContent(ctx, a.model, history, config)
		if err != nil {
			return RunResult{}, err
		}
		if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
			return RunResult{}, fmt.Errorf("empty response from %s", a.model)
		}

		content := resp.Candidates[0].Content
		var text strings.Builder
		var calls []*genai.FunctionCall
		for _, part := range content.Parts {
			if part.Text != "" {
				text.WriteString(part.Text)
			}
			if part.FunctionCall != nil {
				calls = append(calls, part.FunctionCall)
			}
		}

		if len(calls) == 0 {
			return RunResult{Content: text.String()}, nil
		}

		history = append(history, content)

		responseParts := make([]*genai.Part, 0, len(calls))
		for _, call := range calls {
			args := call.Args
			if args == nil {
				args = map[string]any{}
			}
			result, err := runTool(ctx, in, call.Name, args)
			if err != nil {
				return RunResult{}, err
			}
			part := genai.NewPartFromFunctionResponse(call.Name, result)
			part.FunctionResponse.ID = call.ID
			responseParts = append(responseParts, part)
		}
		history = append(history, &genai.Content{Role: genai.RoleUser, Parts: responseParts})
	}

	return RunResult{Content: TurnLimitContent}, nil
}
