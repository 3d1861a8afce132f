package engine

import (
	"fmt"
	"strings"

	"codeloom/internal/tools"
)

const basePrompt = `You are a coding assistant working on the user's project. ` +
	`Use the available tools to inspect the project before answering; never ` +
	`guess at file contents. Keep answers concise and concrete.`

const agentPrompt = `You may stage file changes with the mutating tools. Stage ` +
	`the complete change before finishing, and prefer edit_file for small ` +
	`modifications so unrelated content is untouched. Changes are reviewed by ` +
	`the user before they are saved.`

const planPrompt = `Produce a step-by-step plan for the requested change. ` +
	`Read whatever you need, but do not propose tool calls that modify files; ` +
	`describe the intended edits instead.`

const askPrompt = `Answer the user's question about the project. Do not ` +
	`propose file modifications.`

// systemPrompt builds the instruction block for a mode.
func systemPrompt(mode tools.Mode) string {
	var b strings.Builder
	b.WriteString(basePrompt)
	b.WriteString("\n\n")
	switch mode {
	case tools.ModeAgent:
		b.WriteString(agentPrompt)
	case tools.ModePlan:
		b.WriteString(planPrompt)
	default:
		b.WriteString(askPrompt)
	}
	return b.String()
}

// userPrompt folds the optional focused-file text into the prompt so
// the model sees what the user is looking at.
func userPrompt(req Request) string {
	if strings.TrimSpace(req.FileText) == "" {
		return req.Prompt
	}
	return fmt.Sprintf("%s\n\nCurrently open file content:\n```\n%s\n```", req.Prompt, req.FileText)
}
