package tools

import (
	"fmt"
	"sort"

	"google.golang.org/genai"
)

// Registry holds the tools available to an engine. Instances are
// constructed per engine; there is no package-level registry.
type Registry struct {
	tools map[string]Tool
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds a tool, rejecting duplicate names.
func (r *Registry) Register(tool Tool) error {
	name := tool.Name()
	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("tool already registered: %s", name)
	}
	r.tools[name] = tool
	return nil
}

// Get retrieves a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	tool, ok := r.tools[name]
	return tool, ok
}

// Names returns all registered tool names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DeclarationsFor returns the declarations of the tools the mode
// permits, sorted by name. This is the first half of the mode gate:
// the model never sees a declaration its mode disallows.
func (r *Registry) DeclarationsFor(mode Mode) []*genai.FunctionDeclaration {
	decls := make([]*genai.FunctionDeclaration, 0, len(r.tools))
	for _, name := range r.Names() {
		if !mode.Allows(name) {
			continue
		}
		decls = append(decls, r.tools[name].Declaration())
	}
	return decls
}

// Default builds a registry with the full tool set.
func Default() *Registry {
	r := NewRegistry()
	for _, tool := range []Tool{
		&ReadFileTool{},
		&CreateFileTool{},
		&UpdateFileTool{},
		&DeleteFileTool{},
		&EditFileTool{},
		&CreateFolderTool{},
		&ListFilesTool{},
		&ListDirectoryTool{},
		&GrepTool{},
		&FileSearchTool{},
		&CodebaseSearchTool{},
		NewWebSearchTool(),
	} {
		if err := r.Register(tool); err != nil {
			// Reachable only through a naming bug in this package.
			panic(err)
		}
	}
	return r
}
