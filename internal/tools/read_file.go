package tools

import (
	"context"

	"google.golang.org/genai"
)

// ReadFileTool returns the current content of a file, staged content
// included.
type ReadFileTool struct{}

func (t *ReadFileTool) Name() string { return "read_file" }

func (t *ReadFileTool) Declaration() *genai.FunctionDeclaration {
	return &genai.FunctionDeclaration{
		Name:        t.Name(),
		Description: "Reads the content of a file in the project.",
		Parameters: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"path": {
					Type:        genai.TypeString,
					Description: "Project-relative path of the file to read, e.g. \"src/app.ts\".",
				},
			},
			Required: []string{"path"},
		},
	}
}

func (t *ReadFileTool) Execute(ctx context.Context, args map[string]any, rc *RunContext) (Result, error) {
	path, ok := GetString(args, "path")
	if !ok || path == "" {
		return Errf("path is required"), nil
	}

	content, err := rc.FS.Read(ctx, path)
	if err != nil {
		return resultOrAbort(err)
	}
	return OK(map[string]any{"path": path, "content": content}), nil
}
