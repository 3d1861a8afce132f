package tools

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"codeloom/internal/workspace"

	"google.golang.org/genai"
)

const maxCodebaseResults = 10

// CodebaseSearchTool ranks files by how many query terms they contain.
// It is a lexical relevance search, not an embedding index: good
// enough to point the model at candidate files without any external
// service.
type CodebaseSearchTool struct{}

func (t *CodebaseSearchTool) Name() string { return "codebase_search" }

func (t *CodebaseSearchTool) Declaration() *genai.FunctionDeclaration {
	return &genai.FunctionDeclaration{
		Name:        t.Name(),
		Description: "Searches the codebase for files relevant to a natural-language query and returns the best matches with a snippet.",
		Parameters: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"query": {
					Type:        genai.TypeString,
					Description: "What to look for, e.g. \"where is the login form submitted\".",
				},
			},
			Required: []string{"query"},
		},
	}
}

type scoredFile struct {
	path    string
	score   int
	snippet string
}

func (t *CodebaseSearchTool) Execute(ctx context.Context, args map[string]any, rc *RunContext) (Result, error) {
	query, ok := GetString(args, "query")
	if !ok || strings.TrimSpace(query) == "" {
		return Errf("query is required"), nil
	}

	terms := queryTerms(query)
	if len(terms) == 0 {
		return Errf("query has no searchable terms"), nil
	}

	entries, err := rc.FS.List(ctx)
	if err != nil {
		return resultOrAbort(err)
	}

	var scored []scoredFile
	for _, e := range entries {
		if e.Kind != workspace.KindFile {
			continue
		}
		content, err := rc.FS.Read(ctx, e.Path)
		if err != nil {
			if IsDomainErr(err) {
				continue
			}
			return Result{}, err
		}
		score, snippet := scoreContent(e.Path, content, terms)
		if score > 0 {
			scored = append(scored, scoredFile{path: e.Path, score: score, snippet: snippet})
		}
	}

	if len(scored) == 0 {
		return Text("No relevant files found."), nil
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].score != scored[j].score {
			return scored[i].score > scored[j].score
		}
		return scored[i].path < scored[j].path
	})
	if len(scored) > maxCodebaseResults {
		scored = scored[:maxCodebaseResults]
	}

	var b strings.Builder
	for _, s := range scored {
		fmt.Fprintf(&b, "%s (score %d)\n", s.path, s.score)
		if s.snippet != "" {
			fmt.Fprintf(&b, "  %s\n", s.snippet)
		}
	}
	return OK(map[string]any{
		"content": strings.TrimSuffix(b.String(), "\n"),
		"count":   len(scored),
	}), nil
}

// queryTerms lowercases the query and drops terms too short to carry
// signal.
func queryTerms(query string) []string {
	fields := strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9') && r != '_'
	})
	var terms []string
	for _, f := range fields {
		if len(f) >= 3 {
			terms = append(terms, f)
		}
	}
	return terms
}

// scoreContent counts term occurrences, weighting path hits higher,
// and returns the first matching line as a snippet.
func scoreContent(path, content string, terms []string) (int, string) {
	lowerPath := strings.ToLower(path)
	lowerContent := strings.ToLower(content)

	score := 0
	for _, term := range terms {
		score += 5 * strings.Count(lowerPath, term)
		score += strings.Count(lowerContent, term)
	}
	if score == 0 {
		return 0, ""
	}

	for _, line := range strings.Split(content, "\n") {
		lower := strings.ToLower(line)
		for _, term := range terms {
			if strings.Contains(lower, term) {
				snippet := strings.TrimSpace(line)
				if len(snippet) > 120 {
					snippet = snippet[:120] + "..."
				}
				return score, snippet
			}
		}
	}
	return score, ""
}
