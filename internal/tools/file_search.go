package tools

import (
	"context"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"google.golang.org/genai"
)

// FileSearchTool finds files by name: glob when the query contains
// glob metacharacters, substring match otherwise.
type FileSearchTool struct{}

func (t *FileSearchTool) Name() string { return "file_search" }

func (t *FileSearchTool) Declaration() *genai.FunctionDeclaration {
	return &genai.FunctionDeclaration{
		Name:        t.Name(),
		Description: "Finds files by path. Accepts a glob like \"src/**/*.ts\" or a plain substring of the path.",
		Parameters: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"query": {
					Type:        genai.TypeString,
					Description: "Glob pattern or path substring.",
				},
			},
			Required: []string{"query"},
		},
	}
}

func (t *FileSearchTool) Execute(ctx context.Context, args map[string]any, rc *RunContext) (Result, error) {
	query, ok := GetString(args, "query")
	if !ok || query == "" {
		return Errf("query is required"), nil
	}

	isGlob := strings.ContainsAny(query, "*?[{")
	if isGlob && !doublestar.ValidatePattern(query) {
		return Errf("invalid glob pattern: %s", query), nil
	}

	entries, err := rc.FS.List(ctx)
	if err != nil {
		return resultOrAbort(err)
	}

	var paths []string
	for _, e := range entries {
		if isGlob {
			if ok, _ := doublestar.Match(query, e.Path); ok {
				paths = append(paths, e.Path)
			}
			continue
		}
		if strings.Contains(strings.ToLower(e.Path), strings.ToLower(query)) {
			paths = append(paths, e.Path)
		}
	}

	if len(paths) == 0 {
		return Text("No files found."), nil
	}
	return OK(map[string]any{
		"content": strings.Join(paths, "\n"),
		"count":   len(paths),
	}), nil
}
