package tools

import (
	"context"

	"google.golang.org/genai"
)

// EditFileTool replaces one occurrence of a search string in a file.
type EditFileTool struct{}

func (t *EditFileTool) Name() string { return "edit_file" }

func (t *EditFileTool) Declaration() *genai.FunctionDeclaration {
	return &genai.FunctionDeclaration{
		Name:        t.Name(),
		Description: "Replaces the first occurrence of an exact search string in a file. The search string must match the current file content exactly, whitespace included.",
		Parameters: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"path": {
					Type:        genai.TypeString,
					Description: "Project-relative path of the file to edit.",
				},
				"search": {
					Type:        genai.TypeString,
					Description: "Exact text to find. Only the first occurrence is replaced.",
				},
				"replace": {
					Type:        genai.TypeString,
					Description: "Replacement text.",
				},
			},
			Required: []string{"path", "search", "replace"},
		},
	}
}

func (t *EditFileTool) Execute(ctx context.Context, args map[string]any, rc *RunContext) (Result, error) {
	path, ok := GetString(args, "path")
	if !ok || path == "" {
		return Errf("path is required"), nil
	}
	search, ok := GetString(args, "search")
	if !ok || search == "" {
		return Errf("search is required"), nil
	}
	replace := GetStringDefault(args, "replace", "")

	if err := rc.FS.Edit(ctx, path, search, replace); err != nil {
		return resultOrAbort(err)
	}
	return OK(map[string]any{"path": path, "message": "file edited"}), nil
}
