package tools

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"
	"google.golang.org/genai"
)

// WebSearchTool searches the web through DuckDuckGo's HTML endpoint,
// which needs no API key. Results are scraped from the returned page.
type WebSearchTool struct {
	client     *http.Client
	baseURL    string
	maxResults int
}

// NewWebSearchTool creates a web search tool with sane defaults.
func NewWebSearchTool() *WebSearchTool {
	return &WebSearchTool{
		client:     &http.Client{Timeout: 30 * time.Second},
		baseURL:    "https://html.duckduckgo.com/html/",
		maxResults: 10,
	}
}

// SetBaseURL overrides the search endpoint. Used by tests.
func (t *WebSearchTool) SetBaseURL(u string) { t.baseURL = u }

// SetClient overrides the HTTP client.
func (t *WebSearchTool) SetClient(c *http.Client) { t.client = c }

func (t *WebSearchTool) Name() string { return "web_search" }

func (t *WebSearchTool) Declaration() *genai.FunctionDeclaration {
	return &genai.FunctionDeclaration{
		Name:        t.Name(),
		Description: "Searches the web and returns relevant results. Useful for finding current information or documentation.",
		Parameters: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"query": {
					Type:        genai.TypeString,
					Description: "The search query.",
				},
				"num_results": {
					Type:        genai.TypeInteger,
					Description: "Number of results to return (default 5, max 10).",
				},
			},
			Required: []string{"query"},
		},
	}
}

// SearchResult is one scraped search hit.
type SearchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

func (t *WebSearchTool) Execute(ctx context.Context, args map[string]any, rc *RunContext) (Result, error) {
	query, ok := GetString(args, "query")
	if !ok || strings.TrimSpace(query) == "" {
		return Errf("query is required"), nil
	}
	numResults := GetIntDefault(args, "num_results", 5)
	if numResults > t.maxResults {
		numResults = t.maxResults
	}
	if numResults < 1 {
		numResults = 5
	}

	results, err := t.search(ctx, query)
	if err != nil {
		return Errf("search failed: %s", err), nil
	}
	if len(results) > numResults {
		results = results[:numResults]
	}
	if len(results) == 0 {
		return Text("No results found for the query."), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Search results for: %s\n\n", query)
	for i, r := range results {
		fmt.Fprintf(&b, "%d. %s\n   %s\n", i+1, r.Title, r.URL)
		if r.Snippet != "" {
			fmt.Fprintf(&b, "   %s\n", r.Snippet)
		}
		b.WriteByte('\n')
	}
	return OK(map[string]any{
		"content": strings.TrimRight(b.String(), "\n"),
		"count":   len(results),
	}), nil
}

func (t *WebSearchTool) search(ctx context.Context, query string) ([]SearchResult, error) {
	params := url.Values{}
	params.Set("q", query)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "codeloom/1.0")

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("search endpoint returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	doc, err := html.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parsing result page: %w", err)
	}
	return parseResults(doc), nil
}

// parseResults walks the result page. DuckDuckGo marks each hit's link
// with class "result__a" and its summary with "result__snippet".
func parseResults(doc *html.Node) []SearchResult {
	var results []SearchResult

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" && hasClass(n, "result__a") {
			results = append(results, SearchResult{
				Title: strings.TrimSpace(nodeText(n)),
				URL:   resolveHref(attr(n, "href")),
			})
		}
		if n.Type == html.ElementNode && hasClass(n, "result__snippet") {
			if len(results) > 0 && results[len(results)-1].Snippet == "" {
				results[len(results)-1].Snippet = strings.TrimSpace(nodeText(n))
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return results
}

func attr(n *html.Node, name string) string {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val
		}
	}
	return ""
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

func nodeText(n *html.Node) string {
	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

// resolveHref unwraps DuckDuckGo's redirect links, which carry the
// target in a "uddg" query parameter.
func resolveHref(href string) string {
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if target := u.Query().Get("uddg"); target != "" {
		return target
	}
	return href
}
