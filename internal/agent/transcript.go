package agent

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/samzong/gca/internal/llm"
)

const defaultTranscriptWidth = 60

// WriteTranscript prints every non-system message as a labeled block.
// Tool calls are rendered as name(args).
func WriteTranscript(w io.Writer, msgs []llm.Message, width int) error {
	if width <= 0 {
		width = defaultTranscriptWidth
	}

	for _, m := range msgs {
		if m.Role == llm.RoleSystem {
			continue
		}

		label := string(m.Role)
		if m.Role == llm.RoleTool && m.ToolCallID != "" {
			label = fmt.Sprintf("%s %s", m.Role, m.ToolCallID)
		}
		if _, err := fmt.Fprintln(w, separator(label, width)); err != nil {
			return err
		}

		var body []string
		if content := strings.TrimSpace(m.Content); content != "" {
			body = append(body, content)
		}
		for _, call := range m.ToolCalls {
			args := strings.TrimSpace(call.Arguments)
			if args == "" {
				args = "{}"
			}
			body = append(body, fmt.Sprintf("%s(%s)", call.Name, args))
		}
		if len(body) == 0 {
			body = append(body, "(empty)")
		}
		if _, err := fmt.Fprintln(w, strings.Join(body, "\n")); err != nil {
			return err
		}
	}
	return nil
}

func separator(label string, width int) string {
	head := "── " + label + " "
	rest := width - utf8.RuneCountInString(head)
	if rest < 3 {
		rest = 3
	}
	return head + strings.Repeat("─", rest)
}
