package tools

import (
	"context"

	"google.golang.org/genai"
)

// DeleteFileTool stages a file deletion.
type DeleteFileTool struct{}

func (t *DeleteFileTool) Name() string { return "delete_file" }

func (t *DeleteFileTool) Declaration() *genai.FunctionDeclaration {
	return &genai.FunctionDeclaration{
		Name:        t.Name(),
		Description: "Deletes a file from the project.",
		Parameters: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"path": {
					Type:        genai.TypeString,
					Description: "Project-relative path of the file to delete.",
				},
			},
			Required: []string{"path"},
		},
	}
}

func (t *DeleteFileTool) Execute(ctx context.Context, args map[string]any, rc *RunContext) (Result, error) {
	path, ok := GetString(args, "path")
	if !ok || path == "" {
		return Errf("path is required"), nil
	}

	if err := rc.FS.Delete(ctx, path); err != nil {
		return resultOrAbort(err)
	}
	return OK(map[string]any{"path": path, "message": "file deleted"}), nil
}
