// ABOUTME: Prompt assembly: system prompt, history, tool results, generation cue.
// ABOUTME: Tool contributions are formatted per tool shape with a JSON fallback.

package orchestrator

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/strandlabs/strand/internal/store"
)

const defaultSystemPrompt = `You are a helpful AI assistant. You are informative, engaging, and concise.

Key capabilities:
- Answer questions using your knowledge and available tools
- Search the web for current information when needed
- Control music playback and store notes when asked
- Cite sources when using external information

Guidelines:
- If you need current information, use web search
- Always be helpful and polite
- Keep responses focused and relevant
- When using tools, explain what you're doing

Tool usage format:
When you need to use a tool, respond with: [TOOL: tool_name] parameters

Available tools: %s
`

// assemblePrompt builds the full generation prompt for a turn: system prompt
// with the enabled tool list, the trimmed history, successful tool results,
// and the generation cue.
func (o *Orchestrator) assemblePrompt(turn *turnState) string {
	var sb strings.Builder

	toolList := strings.Join(o.registry.EnabledNames(), ", ")
	if toolList == "" {
		toolList = "none"
	}
	if strings.Contains(o.systemPrompt, "%s") {
		fmt.Fprintf(&sb, o.systemPrompt, toolList)
	} else {
		sb.WriteString(o.systemPrompt)
		fmt.Fprintf(&sb, "\nAvailable tools: %s\n", toolList)
	}

	sb.WriteString("\n## Conversation History:\n")
	for _, msg := range turn.history {
		sb.WriteString(roleLabel(msg.Role))
		sb.WriteString(": ")
		sb.WriteString(msg.Content)
		sb.WriteString("\n")
	}

	if successful := successfulOutcomes(turn.outcomes); len(successful) > 0 {
		sb.WriteString("\n## Tool Results:\n")
		for _, outcome := range successful {
			fmt.Fprintf(&sb, "\n### %s Results:\n", outcome.name)
			sb.WriteString(formatToolData(outcome.name, outcome.result.Data))
			sb.WriteString("\n")
		}
	}

	sb.WriteString("\nAssistant: ")
	return sb.String()
}

// successfulOutcomes filters to outcomes whose tool run succeeded.
// Failed runs are omitted contributions; the turn continues without them.
func successfulOutcomes(outcomes []toolOutcome) []toolOutcome {
	var successful []toolOutcome
	for _, outcome := range outcomes {
		if outcome.result.Success {
			successful = append(successful, outcome)
		}
	}
	return successful
}

func roleLabel(role string) string {
	switch role {
	case store.RoleUser:
		return "Human"
	case store.RoleSystem:
		return "System"
	default:
		return "Assistant"
	}
}

// formatToolData renders tool result data for the prompt. Search-shaped
// results get a readable hit list; everything else falls back to JSON.
func formatToolData(toolName string, data map[string]any) string {
	if hits, ok := searchHits(data); ok {
		var sb strings.Builder
		for i, hit := range hits {
			if i == 3 {
				break
			}
			fmt.Fprintf(&sb, "%d. %s\n   URL: %s\n   Snippet: %s\n",
				i+1, hit["title"], hit["url"], truncate(fmt.Sprint(hit["snippet"]), 200))
		}
		return strings.TrimRight(sb.String(), "\n")
	}

	encoded, err := json.Marshal(data)
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(encoded)
}

// searchHits extracts a results list of title/url/snippet maps if present.
func searchHits(data map[string]any) ([]map[string]any, bool) {
	raw, ok := data["results"]
	if !ok {
		return nil, false
	}
	list, ok := raw.([]map[string]any)
	if !ok || len(list) == 0 {
		return nil, false
	}
	return list, true
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
