package agent

import (
	"fmt"
	"strings"
)

// PromptBuilder renders the exact text sent to the model: system
// instructions, the goal, the tool catalog, the output contract, and the
// trimmed history. Build is a pure function of its inputs and the
// construction-time environment facts, so the same state always produces the
// same prompt.
type PromptBuilder struct {
	workingDir string
	platform   string
}

// NewPromptBuilder creates a builder that embeds the given environment facts
// into every prompt.
func NewPromptBuilder(workingDir, platform string) *PromptBuilder {
	return &PromptBuilder{workingDir: workingDir, platform: platform}
}

// Build renders the full prompt. historyJSON is the already-trimmed canonical
// serialization produced by RenderHistory.
func (b *PromptBuilder) Build(goal string, catalog []ToolDefinition, historyJSON string) string {
	var sb strings.Builder

	sb.WriteString("You are an autonomous AI agent named 'Prometheus'. Your host computer is your body.\n")
	sb.WriteString("You interact with the world one action at a time and learn from the recorded results.\n\n")

	fmt.Fprintf(&sb, "**Your Goal:** %s\n\n", goal)

	sb.WriteString("**Your State:** You have a memory of your past actions. Your previous thoughts, commands, and their results are provided in the history. Learn from them.\n\n")

	sb.WriteString(b.environmentBlock())
	sb.WriteString("\n\n")

	sb.WriteString("**Available Tools:** You can only interact with the system using the following commands in a JSON format. You MUST respond with a JSON object, and nothing else.\n\n")
	sb.WriteString(renderCatalog(catalog))
	sb.WriteString("\n")

	sb.WriteString(`**Response Format:**
Your response must be a single JSON object with exactly two keys: "thoughts" and "command".
- "thoughts": A string containing your reasoning, plan, and self-critique. Be methodical.
- "command": An object containing the name of the command and its arguments.

Example:
{
    "thoughts": "I need to understand my environment. I will start by listing the files in the current directory.",
    "command": {
        "name": "list_directory",
        "args": {"path": "."}
    }
}
`)

	sb.WriteString("\n**History (Your previous actions):**\n")
	sb.WriteString(historyJSON)

	return sb.String()
}

func (b *PromptBuilder) environmentBlock() string {
	var sb strings.Builder
	sb.WriteString("<environment>\n")
	fmt.Fprintf(&sb, "Working directory: %s\n", b.workingDir)
	fmt.Fprintf(&sb, "Platform: %s\n", b.platform)
	sb.WriteString("</environment>")
	return sb.String()
}

// renderCatalog enumerates every tool: name, one-line description, and the
// argument name to type mapping. The model's entire action space is
// documented here; there is no external tool documentation.
func renderCatalog(catalog []ToolDefinition) string {
	var sb strings.Builder
	for _, def := range catalog {
		fmt.Fprintf(&sb, "- `%s`: %s\n  Args: {", def.Name, def.Description)
		for i, p := range def.Parameters {
			if i > 0 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(&sb, "%q: %q", p.Name, paramLabel(p))
		}
		sb.WriteString("}\n")
	}
	return sb.String()
}

func paramLabel(p Parameter) string {
	if p.Required {
		return string(p.Type)
	}
	return string(p.Type) + " (optional)"
}
