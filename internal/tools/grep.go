package tools

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"codeloom/internal/workspace"

	"github.com/bmatcuk/doublestar/v4"
	"google.golang.org/genai"
)

const (
	// maxGrepMatches caps output so one broad pattern cannot flood the
	// conversation.
	maxGrepMatches = 200
	maxGrepLine    = 500
)

// GrepTool searches file contents with a regular expression.
type GrepTool struct{}

func (t *GrepTool) Name() string { return "grep" }

func (t *GrepTool) Declaration() *genai.FunctionDeclaration {
	return &genai.FunctionDeclaration{
		Name:        t.Name(),
		Description: "Searches file contents with a regular expression and returns matching lines with file and line number.",
		Parameters: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"pattern": {
					Type:        genai.TypeString,
					Description: "Regular expression to search for (Go/RE2 syntax).",
				},
				"include": {
					Type:        genai.TypeString,
					Description: "Optional glob limiting which files are searched, e.g. \"**/*.ts\".",
				},
				"case_sensitive": {
					Type:        genai.TypeBoolean,
					Description: "Match case sensitively. Defaults to false.",
				},
			},
			Required: []string{"pattern"},
		},
	}
}

func (t *GrepTool) Execute(ctx context.Context, args map[string]any, rc *RunContext) (Result, error) {
	pattern, ok := GetString(args, "pattern")
	if !ok || pattern == "" {
		return Errf("pattern is required"), nil
	}
	include := GetStringDefault(args, "include", "")
	if include != "" && !doublestar.ValidatePattern(include) {
		return Errf("invalid include glob: %s", include), nil
	}
	if caseSensitive, _ := args["case_sensitive"].(bool); !caseSensitive {
		pattern = "(?i)" + pattern
	}

	re, err := regexp.Compile(pattern)
	if err != nil {
		return Errf("invalid pattern: %s", err), nil
	}

	entries, err := rc.FS.List(ctx)
	if err != nil {
		return resultOrAbort(err)
	}

	var b strings.Builder
	matches := 0
	truncated := false

scan:
	for _, e := range entries {
		if e.Kind != workspace.KindFile {
			continue
		}
		if include != "" {
			if ok, _ := doublestar.Match(include, e.Path); !ok {
				continue
			}
		}
		content, err := rc.FS.Read(ctx, e.Path)
		if err != nil {
			if IsDomainErr(err) {
				continue
			}
			return Result{}, err
		}
		for i, line := range strings.Split(content, "\n") {
			if !re.MatchString(line) {
				continue
			}
			if matches >= maxGrepMatches {
				truncated = true
				break scan
			}
			if len(line) > maxGrepLine {
				line = line[:maxGrepLine] + "..."
			}
			fmt.Fprintf(&b, "%s:%d: %s\n", e.Path, i+1, line)
			matches++
		}
	}

	if matches == 0 {
		return Text("No matches found."), nil
	}
	out := strings.TrimSuffix(b.String(), "\n")
	if truncated {
		out += fmt.Sprintf("\n... (truncated at %d matches)", maxGrepMatches)
	}
	return OK(map[string]any{"content": out, "count": matches}), nil
}
