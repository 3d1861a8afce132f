package tools

import (
	"context"
	"strings"

	"codeloom/internal/overlay"
	"codeloom/internal/workspace"

	"google.golang.org/genai"
)

// ListFilesTool lists every file and folder in the project.
type ListFilesTool struct{}

func (t *ListFilesTool) Name() string { return "list_files" }

func (t *ListFilesTool) Declaration() *genai.FunctionDeclaration {
	return &genai.FunctionDeclaration{
		Name:        t.Name(),
		Description: "Lists all files and folders in the project, sorted by path. Folders end with a slash.",
		Parameters: &genai.Schema{
			Type:       genai.TypeObject,
			Properties: map[string]*genai.Schema{},
		},
	}
}

func (t *ListFilesTool) Execute(ctx context.Context, args map[string]any, rc *RunContext) (Result, error) {
	entries, err := rc.FS.List(ctx)
	if err != nil {
		return resultOrAbort(err)
	}
	return OK(map[string]any{
		"content": formatEntries(entries),
		"count":   len(entries),
	}), nil
}

// ListDirectoryTool lists the direct children of one folder.
type ListDirectoryTool struct{}

func (t *ListDirectoryTool) Name() string { return "list_directory" }

func (t *ListDirectoryTool) Declaration() *genai.FunctionDeclaration {
	return &genai.FunctionDeclaration{
		Name:        t.Name(),
		Description: "Lists the direct children of a folder. Defaults to the project root.",
		Parameters: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"path": {
					Type:        genai.TypeString,
					Description: "Project-relative folder path. Empty or \"/\" for the project root.",
				},
			},
		},
	}
}

func (t *ListDirectoryTool) Execute(ctx context.Context, args map[string]any, rc *RunContext) (Result, error) {
	dir := GetStringDefault(args, "path", "")

	entries, err := rc.FS.ListDir(ctx, dir)
	if err != nil {
		return resultOrAbort(err)
	}
	if len(entries) == 0 {
		return Text("(empty)"), nil
	}
	return OK(map[string]any{
		"content": formatEntries(entries),
		"count":   len(entries),
	}), nil
}

// formatEntries renders a listing one path per line, folders marked
// with a trailing slash.
func formatEntries(entries []overlay.Entry) string {
	var b strings.Builder
	for _, e := range entries {
		b.WriteString(e.Path)
		if e.Kind == workspace.KindFolder {
			b.WriteByte('/')
		}
		b.WriteByte('\n')
	}
	return strings.TrimSuffix(b.String(), "\n")
}
