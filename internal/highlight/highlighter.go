// Package highlight renders source text with terminal syntax colors.
package highlight

import (
	"bytes"
	"path/filepath"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
)

// Highlighter colorizes code for 256-color terminals.
type Highlighter struct {
	style     string
	formatter chroma.Formatter
}

// New creates a highlighter with the given chroma style name
// ("monokai", "dracula", "github-dark", ...). Empty picks monokai.
func New(style string) *Highlighter {
	if style == "" {
		style = "monokai"
	}
	return &Highlighter{
		style:     style,
		formatter: formatters.Get("terminal256"),
	}
}

// Code highlights source text for the given language. Unknown
// languages and tokenizer failures fall back to the plain text.
func (h *Highlighter) Code(code, lang string) string {
	lexer := lexers.Get(lang)
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	style := styles.Get(h.style)
	if style == nil {
		style = styles.Fallback
	}

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return code
	}
	var buf bytes.Buffer
	if err := h.formatter.Format(&buf, style, iterator); err != nil {
		return code
	}
	return buf.String()
}

// File highlights source text, picking the language from the file name.
func (h *Highlighter) File(code, filename string) string {
	return h.Code(code, DetectLanguage(filename))
}

// DetectLanguage maps a file name to a chroma lexer name. Unknown
// extensions return "" and render unhighlighted.
func DetectLanguage(filename string) string {
	base := strings.ToLower(filepath.Base(filename))
	switch base {
	case "dockerfile":
		return "docker"
	case "makefile":
		return "make"
	case "go.mod", "go.sum":
		return "gomod"
	}

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".go":
		return "go"
	case ".ts", ".tsx":
		return "typescript"
	case ".js", ".jsx", ".mjs":
		return "javascript"
	case ".py":
		return "python"
	case ".rb":
		return "ruby"
	case ".rs":
		return "rust"
	case ".java":
		return "java"
	case ".c", ".h":
		return "c"
	case ".cc", ".cpp", ".hpp":
		return "cpp"
	case ".cs":
		return "csharp"
	case ".sh", ".bash":
		return "bash"
	case ".sql":
		return "sql"
	case ".html", ".htm":
		return "html"
	case ".css":
		return "css"
	case ".scss":
		return "scss"
	case ".json":
		return "json"
	case ".yaml", ".yml":
		return "yaml"
	case ".toml":
		return "toml"
	case ".xml":
		return "xml"
	case ".md", ".markdown":
		return "markdown"
	case ".proto":
		return "protobuf"
	case ".kt":
		return "kotlin"
	case ".swift":
		return "swift"
	case ".php":
		return "php"
	}
	return ""
}
