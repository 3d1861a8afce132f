package engine

import (
	"context"
	"fmt"
	"testing"

	"codeloom/internal/client"
	"codeloom/internal/overlay"
	"codeloom/internal/workspace"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAdapter struct {
	model string
	run   func(ctx context.Context, in client.RunInput) (client.RunResult, error)
}

func (s *stubAdapter) Model() string { return s.model }

func (s *stubAdapter) Run(ctx context.Context, in client.RunInput) (client.RunResult, error) {
	return s.run(ctx, in)
}

// stubRegistry maps every catalog id (plus the ollama namespace) to the
// given run function.
func stubRegistry(run func(ctx context.Context, in client.RunInput) (client.RunResult, error)) *client.Registry {
	r := client.NewAdapterRegistry()
	factory := func(model, _ string) (client.Adapter, error) {
		return &stubAdapter{model: model, run: run}, nil
	}
	for _, m := range client.AvailableModels {
		r.Register(m.ID, factory)
	}
	r.RegisterNamespace("ollama/", factory)
	return r
}

func newTestEngine(t *testing.T, files map[string]string, run func(ctx context.Context, in client.RunInput) (client.RunResult, error)) (*Engine, *workspace.MemoryStore) {
	t.Helper()
	store := workspace.NewMemoryStore()
	require.NoError(t, store.Seed("p1", files))
	e := New(store)
	e.SetAdapterRegistry(stubRegistry(run))
	return e, store
}

func baseRequest() Request {
	return Request{
		ProjectID:  "p1",
		Prompt:     "do the thing",
		Model:      "gpt-4o",
		Mode:       "agent",
		APIKeys:    map[string]string{"openai": "sk-test"},
		ReviewMode: true,
	}
}

func TestRunWithoutToolCallsYieldsEmptyChangeset(t *testing.T) {
	e, _ := newTestEngine(t, map[string]string{"a.txt": "x"}, func(ctx context.Context, in client.RunInput) (client.RunResult, error) {
		return client.RunResult{Content: "nothing to change"}, nil
	})

	resp, err := e.Run(context.Background(), baseRequest())
	require.NoError(t, err)
	assert.Equal(t, "nothing to change", resp.Content)
	assert.Equal(t, "gpt-4o", resp.UsedModel)
	assert.Empty(t, resp.ToolCalls)
	assert.Empty(t, resp.ProposedChanges)
}

func TestCreateUpdateReadProducesSingleCreateEntry(t *testing.T) {
	e, _ := newTestEngine(t, nil, func(ctx context.Context, in client.RunInput) (client.RunResult, error) {
		steps := []struct {
			tool string
			args map[string]any
		}{
			{"create_file", map[string]any{"path": "hello.txt", "content": "hi"}},
			{"update_file", map[string]any{"path": "hello.txt", "content": "hi there"}},
			{"read_file", map[string]any{"path": "hello.txt"}},
		}
		for _, s := range steps {
			result, err := in.Runner.Execute(ctx, s.tool, s.args)
			if err != nil {
				return client.RunResult{}, err
			}
			if result["success"] != true {
				return client.RunResult{}, fmt.Errorf("step %s failed: %v", s.tool, result["error"])
			}
			if s.tool == "read_file" && result["content"] != "hi there" {
				return client.RunResult{}, fmt.Errorf("read saw %q", result["content"])
			}
		}
		return client.RunResult{Content: "created hello.txt"}, nil
	})

	resp, err := e.Run(context.Background(), baseRequest())
	require.NoError(t, err)
	require.Len(t, resp.ToolCalls, 3)
	require.Len(t, resp.ProposedChanges, 1)

	change := resp.ProposedChanges[0]
	assert.Equal(t, overlay.ActionCreate, change.Action)
	assert.Equal(t, "create:hello.txt", change.ID)
	assert.Equal(t, "hello.txt", change.FilePath)
	assert.Equal(t, "", change.OldContent)
	assert.Equal(t, "hi there", change.NewContent)
}

func TestAskModeMutationNeverStagesChanges(t *testing.T) {
	e, _ := newTestEngine(t, map[string]string{"a.txt": "x"}, func(ctx context.Context, in client.RunInput) (client.RunResult, error) {
		result, err := in.Runner.Execute(ctx, "create_file", map[string]any{"path": "b.txt", "content": "y"})
		if err != nil {
			return client.RunResult{}, err
		}
		if result["success"] == true {
			return client.RunResult{}, fmt.Errorf("mutation should have been rejected")
		}
		return client.RunResult{Content: "blocked as expected"}, nil
	})

	req := baseRequest()
	req.Mode = "ask"
	resp, err := e.Run(context.Background(), req)
	require.NoError(t, err)
	assert.Empty(t, resp.ProposedChanges)
}

func TestNonReviewModeWritesThroughStore(t *testing.T) {
	e, store := newTestEngine(t, nil, func(ctx context.Context, in client.RunInput) (client.RunResult, error) {
		_, err := in.Runner.Execute(ctx, "create_file", map[string]any{"path": "direct.txt", "content": "durable"})
		return client.RunResult{Content: "done"}, err
	})

	req := baseRequest()
	req.ReviewMode = false
	resp, err := e.Run(context.Background(), req)
	require.NoError(t, err)
	assert.Empty(t, resp.ProposedChanges)

	content, err := store.ReadFile(context.Background(), "p1", "direct.txt")
	require.NoError(t, err)
	assert.Equal(t, "durable", content)
}

func TestFanOutIsolatesFailures(t *testing.T) {
	e, _ := newTestEngine(t, nil, func(ctx context.Context, in client.RunInput) (client.RunResult, error) {
		return client.RunResult{Content: "slot ok"}, nil
	})

	// A registry where one model always fails.
	r := client.NewAdapterRegistry()
	r.Register("gpt-4o", func(model, _ string) (client.Adapter, error) {
		return &stubAdapter{model: model, run: func(ctx context.Context, in client.RunInput) (client.RunResult, error) {
			return client.RunResult{Content: "slot ok"}, nil
		}}, nil
	})
	r.Register("claude-sonnet-4-5", func(model, _ string) (client.Adapter, error) {
		return &stubAdapter{model: model, run: func(ctx context.Context, in client.RunInput) (client.RunResult, error) {
			return client.RunResult{}, &client.HTTPError{StatusCode: 500, Message: "upstream melted"}
		}}, nil
	})
	e.SetAdapterRegistry(r)

	req := baseRequest()
	req.UseMultipleModels = true
	req.SelectedModels = []string{"gpt-4o", "claude-sonnet-4-5"}
	req.APIKeys = map[string]string{"openai": "sk", "anthropic": "sk"}

	resp, err := e.Run(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, resp.MultipleResults, 2)

	ok := resp.MultipleResults[0]
	assert.Equal(t, "gpt-4o", ok.Model)
	require.NotNil(t, ok.Content)
	assert.Equal(t, "slot ok", *ok.Content)
	assert.Empty(t, ok.Error)

	failed := resp.MultipleResults[1]
	assert.Equal(t, "claude-sonnet-4-5", failed.Model)
	assert.Nil(t, failed.Content)
	assert.Contains(t, failed.Error, "upstream melted")
}

func TestValidationAndConfigErrors(t *testing.T) {
	e, _ := newTestEngine(t, nil, func(ctx context.Context, in client.RunInput) (client.RunResult, error) {
		t.Fatal("adapter must not be called")
		return client.RunResult{}, nil
	})
	ctx := context.Background()

	req := baseRequest()
	req.Prompt = "  "
	_, err := e.Run(ctx, req)
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "prompt", vErr.Field)

	req = baseRequest()
	req.Mode = "yolo"
	_, err = e.Run(ctx, req)
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "mode", vErr.Field)

	req = baseRequest()
	req.Model = "davinci-003"
	_, err = e.Run(ctx, req)
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "model", vErr.Field)

	req = baseRequest()
	req.APIKeys = nil
	_, err = e.Run(ctx, req)
	var cErr *ConfigError
	require.ErrorAs(t, err, &cErr)
	assert.Contains(t, cErr.Error(), "openai")
}

func TestKeyResolverFallback(t *testing.T) {
	e, _ := newTestEngine(t, nil, func(ctx context.Context, in client.RunInput) (client.RunResult, error) {
		return client.RunResult{Content: "ran"}, nil
	})
	e.SetKeyResolver(func(provider string) string {
		if provider == "openai" {
			return "sk-from-config"
		}
		return ""
	})

	req := baseRequest()
	req.APIKeys = nil
	resp, err := e.Run(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "ran", resp.Content)
}

func TestAutoModePicksKeyedModel(t *testing.T) {
	e, _ := newTestEngine(t, nil, func(ctx context.Context, in client.RunInput) (client.RunResult, error) {
		return client.RunResult{Content: "auto"}, nil
	})

	req := baseRequest()
	req.Model = ""
	req.AutoMode = true
	req.APIKeys = map[string]string{"anthropic": "sk-ant"}
	resp, err := e.Run(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "claude-sonnet-4-5", resp.UsedModel)
}
