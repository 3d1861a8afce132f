package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

type runnerFunc func(ctx context.Context, name string, args map[string]any) (map[string]any, error)

func (f runnerFunc) Execute(ctx context.Context, name string, args map[string]any) (map[string]any, error) {
	return f(ctx, name, args)
}

func echoRunner() (ToolRunner, *int32) {
	var calls int32
	return runnerFunc(func(ctx context.Context, name string, args map[string]any) (map[string]any, error) {
		atomic.AddInt32(&calls, 1)
		return map[string]any{"success": true, "tool": name}, nil
	}), &calls
}

func readFileDecl() *genai.FunctionDeclaration {
	return &genai.FunctionDeclaration{
		Name:        "read_file",
		Description: "Reads a file.",
		Parameters: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"path": {Type: genai.TypeString},
			},
			Required: []string{"path"},
		},
	}
}

func oaiToolCallResponse(name, args string) string {
	return fmt.Sprintf(`{"choices":[{"message":{"content":null,"tool_calls":[
		{"id":"call_1","type":"function","function":{"name":%q,"arguments":%q}}
	]}}]}`, name, args)
}

func TestOpenAITurnCeiling(t *testing.T) {
	var turns int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&turns, 1)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, oaiToolCallResponse("read_file", `{"path":"a.txt"}`))
	}))
	defer srv.Close()

	runner, calls := echoRunner()
	a := NewOpenAIAdapter("gpt-4o", "sk-test")
	a.SetBaseURL(srv.URL)
	a.SetHTTPClient(srv.Client())

	out, err := a.Run(context.Background(), RunInput{
		Prompt:  "loop forever",
		Tools:   []*genai.FunctionDeclaration{readFileDecl()},
		Allowed: map[string]bool{"read_file": true},
		Runner:  runner,
	})
	require.NoError(t, err)
	assert.Equal(t, TurnLimitContent, out.Content)
	assert.Equal(t, int32(MaxToolTurns), atomic.LoadInt32(&turns))
	assert.Equal(t, int32(MaxToolTurns), atomic.LoadInt32(calls))
}

func TestOpenAIFinalText(t *testing.T) {
	var sawToolResult bool
	step := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Messages []map[string]any `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		for _, m := range req.Messages {
			if m["role"] == "tool" {
				sawToolResult = true
				assert.Equal(t, "call_1", m["tool_call_id"])
			}
		}
		w.Header().Set("Content-Type", "application/json")
		if step == 0 {
			step++
			fmt.Fprint(w, oaiToolCallResponse("read_file", `{"path":"a.txt"}`))
			return
		}
		fmt.Fprint(w, `{"choices":[{"message":{"content":"all done"}}]}`)
	}))
	defer srv.Close()

	runner, _ := echoRunner()
	a := NewOpenAIAdapter("gpt-4o", "sk-test")
	a.SetBaseURL(srv.URL)
	a.SetHTTPClient(srv.Client())

	out, err := a.Run(context.Background(), RunInput{
		Prompt:  "read then finish",
		Tools:   []*genai.FunctionDeclaration{readFileDecl()},
		Allowed: map[string]bool{"read_file": true},
		Runner:  runner,
	})
	require.NoError(t, err)
	assert.Equal(t, "all done", out.Content)
	assert.True(t, sawToolResult)
}

func TestOpenAIDisallowedToolSynthesized(t *testing.T) {
	step := 0
	var toolResult string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Messages []struct {
				Role    string          `json:"role"`
				Content json.RawMessage `json:"content"`
			} `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		for _, m := range req.Messages {
			if m.Role == "tool" {
				var s string
				require.NoError(t, json.Unmarshal(m.Content, &s))
				toolResult = s
			}
		}
		w.Header().Set("Content-Type", "application/json")
		if step == 0 {
			step++
			fmt.Fprint(w, oaiToolCallResponse("create_file", `{"path":"a.txt","content":"x"}`))
			return
		}
		fmt.Fprint(w, `{"choices":[{"message":{"content":"understood"}}]}`)
	}))
	defer srv.Close()

	var runnerCalled bool
	runner := runnerFunc(func(ctx context.Context, name string, args map[string]any) (map[string]any, error) {
		runnerCalled = true
		return map[string]any{}, nil
	})

	a := NewOpenAIAdapter("gpt-4o", "sk-test")
	a.SetBaseURL(srv.URL)
	a.SetHTTPClient(srv.Client())

	out, err := a.Run(context.Background(), RunInput{
		Prompt:  "try a mutation",
		Allowed: map[string]bool{"read_file": true},
		Runner:  runner,
	})
	require.NoError(t, err)
	assert.Equal(t, "understood", out.Content)
	assert.False(t, runnerCalled, "disallowed call must not reach the runner")
	assert.Contains(t, toolResult, "not allowed in current mode")
}

func TestOpenAIMalformedArgsDecodeEmpty(t *testing.T) {
	step := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if step == 0 {
			step++
			fmt.Fprint(w, oaiToolCallResponse("read_file", `{not json`))
			return
		}
		fmt.Fprint(w, `{"choices":[{"message":{"content":"ok"}}]}`)
	}))
	defer srv.Close()

	var gotArgs map[string]any
	runner := runnerFunc(func(ctx context.Context, name string, args map[string]any) (map[string]any, error) {
		gotArgs = args
		return map[string]any{"success": false, "error": "path is required"}, nil
	})

	a := NewOpenAIAdapter("gpt-4o", "sk-test")
	a.SetBaseURL(srv.URL)
	a.SetHTTPClient(srv.Client())

	_, err := a.Run(context.Background(), RunInput{
		Prompt:  "bad args",
		Allowed: map[string]bool{"read_file": true},
		Runner:  runner,
	})
	require.NoError(t, err)
	require.NotNil(t, gotArgs)
	assert.Empty(t, gotArgs)
}

func TestOpenAIUpstreamErrorAborts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":{"message":"bad api key"}}`)
	}))
	defer srv.Close()

	a := NewOpenAIAdapter("gpt-4o", "sk-bad")
	a.SetBaseURL(srv.URL)
	a.SetHTTPClient(srv.Client())

	_, err := a.Run(context.Background(), RunInput{Prompt: "hi"})
	require.Error(t, err)
	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusUnauthorized, httpErr.StatusCode)
	assert.Equal(t, "bad api key", httpErr.Message)
}

func TestOpenAIRetriesOn503(t *testing.T) {
	var attempts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&attempts, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"choices":[{"message":{"content":"recovered"}}]}`)
	}))
	defer srv.Close()

	a := NewOpenAIAdapter("gpt-4o", "sk-test")
	a.SetBaseURL(srv.URL)
	a.SetHTTPClient(srv.Client())
	a.retry.RetryDelay = 0
	a.retry.MaxDelay = 1

	out, err := a.Run(context.Background(), RunInput{Prompt: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "recovered", out.Content)
	assert.Equal(t, int32(2), atomic.LoadInt32(&attempts))
}

func TestAnthropicToolLoop(t *testing.T) {
	step := 0
	var sawToolResult bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "sk-ant", r.Header.Get("x-api-key"))
		assert.NotEmpty(t, r.Header.Get("anthropic-version"))

		var req struct {
			Messages []struct {
				Role    string `json:"role"`
				Content []struct {
					Type      string `json:"type"`
					ToolUseID string `json:"tool_use_id"`
				} `json:"content"`
			} `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		for _, m := range req.Messages {
			for _, b := range m.Content {
				if b.Type == "tool_result" {
					sawToolResult = true
					assert.Equal(t, "toolu_1", b.ToolUseID)
				}
			}
		}

		w.Header().Set("Content-Type", "application/json")
		if step == 0 {
			step++
			fmt.Fprint(w, `{"content":[
				{"type":"text","text":"let me look"},
				{"type":"tool_use","id":"toolu_1","name":"read_file","input":{"path":"a.txt"}}
			],"stop_reason":"tool_use"}`)
			return
		}
		fmt.Fprint(w, `{"content":[{"type":"text","text":"done"}],"stop_reason":"end_turn"}`)
	}))
	defer srv.Close()

	runner, calls := echoRunner()
	a := NewAnthropicAdapter("claude-sonnet-4-5", "sk-ant")
	a.SetBaseURL(srv.URL)
	a.SetHTTPClient(srv.Client())

	out, err := a.Run(context.Background(), RunInput{
		Prompt:  "read the file",
		Tools:   []*genai.FunctionDeclaration{readFileDecl()},
		Allowed: map[string]bool{"read_file": true},
		Runner:  runner,
	})
	require.NoError(t, err)
	assert.Equal(t, "done", out.Content)
	assert.True(t, sawToolResult)
	assert.Equal(t, int32(1), atomic.LoadInt32(calls))
}

type fakeGemini struct {
	responses []*genai.GenerateContentResponse
	calls     int
}

func (f *fakeGemini) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	resp := f.responses[f.calls]
	if f.calls < len(f.responses)-1 {
		f.calls++
	}
	return resp, nil
}

func geminiResponse(parts ...*genai.Part) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Role: genai.RoleModel, Parts: parts},
		}},
	}
}

func TestGeminiFunctionResponseLoop(t *testing.T) {
	fake := &fakeGemini{responses: []*genai.GenerateContentResponse{
		geminiResponse(&genai.Part{FunctionCall: &genai.FunctionCall{
			ID: "fc_1", Name: "read_file", Args: map[string]any{"path": "a.txt"},
		}}),
		geminiResponse(genai.NewPartFromText("finished")),
	}}

	a := NewGeminiAdapter("gemini-2.5-flash", "key")
	a.newClient = func(ctx context.Context) (geminiModelCaller, error) { return fake, nil }

	runner, calls := echoRunner()
	out, err := a.Run(context.Background(), RunInput{
		Prompt:  "read it",
		Tools:   []*genai.FunctionDeclaration{readFileDecl()},
		Allowed: map[string]bool{"read_file": true},
		Runner:  runner,
	})
	require.NoError(t, err)
	assert.Equal(t, "finished", out.Content)
	assert.Equal(t, int32(1), atomic.LoadInt32(calls))
	assert.Equal(t, 1, fake.calls)
}

func TestDecodeArgs(t *testing.T) {
	assert.Equal(t, map[string]any{"path": "a"}, decodeArgs(json.RawMessage(`{"path":"a"}`)))
	assert.Empty(t, decodeArgs(json.RawMessage(`{broken`)))
	assert.Empty(t, decodeArgs(json.RawMessage(``)))
	assert.Empty(t, decodeArgs(json.RawMessage(`null`)))
	assert.Empty(t, decodeArgsString(`"not an object"`))
}

func TestSchemaJSON(t *testing.T) {
	got := schemaJSON(readFileDecl().Parameters)
	assert.Equal(t, "object", got["type"])
	props := got["properties"].(map[string]any)
	path := props["path"].(map[string]any)
	assert.Equal(t, "string", path["type"])
	assert.Equal(t, []string{"path"}, got["required"])
}

func TestRegistryResolution(t *testing.T) {
	r := DefaultRegistry()

	a, err := r.Resolve("gpt-4o-mini", "sk")
	require.NoError(t, err)
	assert.IsType(t, &OpenAIAdapter{}, a)

	a, err = r.Resolve("claude-haiku-4-5", "sk")
	require.NoError(t, err)
	assert.IsType(t, &AnthropicAdapter{}, a)

	a, err = r.Resolve("gemini-2.5-pro", "sk")
	require.NoError(t, err)
	assert.IsType(t, &GeminiAdapter{}, a)

	a, err = r.Resolve("ollama/llama3.2", "")
	require.NoError(t, err)
	assert.Equal(t, "ollama/llama3.2", a.Model())

	_, err = r.Resolve("davinci-003", "sk")
	require.Error(t, err)

	assert.True(t, r.Known("gpt-4o"))
	assert.True(t, r.Known("ollama/qwen2.5-coder"))
	assert.False(t, r.Known("ollama/"))
	assert.False(t, r.Known("mystery"))
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryableError(&HTTPError{StatusCode: 429}))
	assert.True(t, IsRetryableError(&HTTPError{StatusCode: 503}))
	assert.False(t, IsRetryableError(&HTTPError{StatusCode: 401}))
	assert.False(t, IsRetryableError(nil))
}
