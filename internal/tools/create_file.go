package tools

import (
	"context"

	"google.golang.org/genai"
)

// CreateFileTool stages a new file.
type CreateFileTool struct{}

func (t *CreateFileTool) Name() string { return "create_file" }

func (t *CreateFileTool) Declaration() *genai.FunctionDeclaration {
	return &genai.FunctionDeclaration{
		Name:        t.Name(),
		Description: "Creates a new file with the given content. Fails if the file already exists; use update_file to modify existing files.",
		Parameters: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"path": {
					Type:        genai.TypeString,
					Description: "Project-relative path of the file to create. Missing parent folders are created.",
				},
				"content": {
					Type:        genai.TypeString,
					Description: "Full text content of the new file.",
				},
			},
			Required: []string{"path"},
		},
	}
}

func (t *CreateFileTool) Execute(ctx context.Context, args map[string]any, rc *RunContext) (Result, error) {
	path, ok := GetString(args, "path")
	if !ok || path == "" {
		return Errf("path is required"), nil
	}
	content := GetStringDefault(args, "content", "")

	if err := rc.FS.Create(ctx, path, content); err != nil {
		return resultOrAbort(err)
	}
	return OK(map[string]any{"path": path, "message": "file created"}), nil
}
