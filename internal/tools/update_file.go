package tools

import (
	"context"

	"google.golang.org/genai"
)

// UpdateFileTool replaces the full content of an existing file.
type UpdateFileTool struct{}

func (t *UpdateFileTool) Name() string { return "update_file" }

func (t *UpdateFileTool) Declaration() *genai.FunctionDeclaration {
	return &genai.FunctionDeclaration{
		Name:        t.Name(),
		Description: "Replaces the entire content of an existing file. For small changes prefer edit_file.",
		Parameters: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"path": {
					Type:        genai.TypeString,
					Description: "Project-relative path of the file to update.",
				},
				"content": {
					Type:        genai.TypeString,
					Description: "New full text content of the file.",
				},
			},
			Required: []string{"path", "content"},
		},
	}
}

func (t *UpdateFileTool) Execute(ctx context.Context, args map[string]any, rc *RunContext) (Result, error) {
	path, ok := GetString(args, "path")
	if !ok || path == "" {
		return Errf("path is required"), nil
	}
	content, ok := GetString(args, "content")
	if !ok {
		return Errf("content is required"), nil
	}

	if err := rc.FS.Update(ctx, path, content); err != nil {
		return resultOrAbort(err)
	}
	return OK(map[string]any{"path": path, "message": "file updated"}), nil
}
