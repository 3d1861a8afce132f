package tools

import (
	"context"

	"google.golang.org/genai"
)

// CreateFolderTool records a new folder. Parent folders are created
// along the way, mkdir -p style.
type CreateFolderTool struct{}

func (t *CreateFolderTool) Name() string { return "create_folder" }

func (t *CreateFolderTool) Declaration() *genai.FunctionDeclaration {
	return &genai.FunctionDeclaration{
		Name:        t.Name(),
		Description: "Creates a folder. Missing parent folders are created as well.",
		Parameters: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"path": {
					Type:        genai.TypeString,
					Description: "Project-relative path of the folder to create.",
				},
			},
			Required: []string{"path"},
		},
	}
}

func (t *CreateFolderTool) Execute(ctx context.Context, args map[string]any, rc *RunContext) (Result, error) {
	path, ok := GetString(args, "path")
	if !ok || path == "" {
		return Errf("path is required"), nil
	}

	if err := rc.FS.CreateFolder(ctx, path); err != nil {
		return resultOrAbort(err)
	}
	return OK(map[string]any{"path": path, "message": "folder created"}), nil
}
