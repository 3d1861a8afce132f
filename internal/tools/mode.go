package tools

import (
	"fmt"
	"sort"
)

// Mode gates which tools a run may see and execute.
type Mode string

const (
	// ModeAsk answers questions with read and search tools only.
	ModeAsk Mode = "ask"
	// ModePlan drafts plans with read and search tools only.
	ModePlan Mode = "plan"
	// ModeAgent may additionally stage file mutations.
	ModeAgent Mode = "agent"
)

// ParseMode validates a mode string.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeAsk, ModePlan, ModeAgent:
		return Mode(s), nil
	}
	return "", fmt.Errorf("unknown mode %q", s)
}

// readToolNames are available in every mode.
var readToolNames = []string{
	"read_file",
	"list_files",
	"list_directory",
	"grep",
	"file_search",
	"codebase_search",
	"web_search",
}

// mutatingToolNames are available in agent mode only.
var mutatingToolNames = []string{
	"create_file",
	"update_file",
	"delete_file",
	"edit_file",
	"create_folder",
}

var mutatingSet = func() map[string]bool {
	set := make(map[string]bool, len(mutatingToolNames))
	for _, name := range mutatingToolNames {
		set[name] = true
	}
	return set
}()

// IsMutating reports whether a tool stages or performs file mutations.
func IsMutating(name string) bool { return mutatingSet[name] }

// Allows reports whether the mode permits the named tool. The same
// check runs twice per call: once when filtering the declarations sent
// to the model, and again in the executor before dispatch.
func (m Mode) Allows(name string) bool {
	if IsMutating(name) {
		return m == ModeAgent
	}
	for _, n := range readToolNames {
		if n == name {
			return true
		}
	}
	return false
}

// AllowedNames returns the tool names the mode permits, sorted.
func (m Mode) AllowedNames() []string {
	names := make([]string, 0, len(readToolNames)+len(mutatingToolNames))
	names = append(names, readToolNames...)
	if m == ModeAgent {
		names = append(names, mutatingToolNames...)
	}
	sort.Strings(names)
	return names
}

// AllowedSet returns the permitted tool names as a set.
func (m Mode) AllowedSet() map[string]bool {
	names := m.AllowedNames()
	set := make(map[string]bool, len(names))
	for _, name := range names {
		set[name] = true
	}
	return set
}
