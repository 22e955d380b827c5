package formatter

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// CommitMessageSystemPrompt is the fixed instruction sent with every
// message-generation request.
const CommitMessageSystemPrompt = "You write git commit messages. " +
	"Summarize the changes you are given into one clear, concise commit-message sentence. " +
	"Reply with that single sentence only: no quotes, no markdown, no explanation."

// TruncationMarker is appended whenever content had to be cut to fit the budget.
const TruncationMarker = "...(content is too long, truncated)"

// BuildPrompt renders templateContent around the diff after fitting the diff
// into limit bytes. On a render failure the simple prompt is returned together
// with the error so callers can report it.
func BuildPrompt(templateContent string, diff string, limit int) (string, error) {
	diff = FitDiff(diff, limit)

	prompt, err := RenderTemplate(templateContent, TemplateData{Diff: diff})
	if err != nil {
		return buildSimplePrompt(diff), err
	}
	return prompt, nil
}

func buildSimplePrompt(diff string) string {
	var builder strings.Builder
	builder.WriteString("Summarize the following git changes as a single commit-message sentence.\n\n")
	fmt.Fprintf(&builder, "Changes:\n%s\n\n", diff)
	builder.WriteString("Use the imperative mood and keep it under 100 characters.")
	return builder.String()
}

// FormatCommitMessage reduces a model reply to one commit-message line: the
// first line that is not blank or a code fence, with wrapping quotes removed.
func FormatCommitMessage(message string) string {
	for _, line := range strings.Split(message, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "```") {
			continue
		}
		return stripWrapping(line)
	}
	return ""
}

func stripWrapping(line string) string {
	for _, pair := range [][2]string{{`"`, `"`}, {"'", "'"}, {"`", "`"}, {"“", "”"}} {
		if len(line) >= len(pair[0])+len(pair[1]) &&
			strings.HasPrefix(line, pair[0]) && strings.HasSuffix(line, pair[1]) {
			line = strings.TrimSpace(line[len(pair[0]) : len(line)-len(pair[1])])
		}
	}
	return line
}

func truncateToValidUTF8(input string, maxBytes int) string {
	if len(input) <= maxBytes {
		return input
	}

	end := maxBytes
	for end > 0 && !utf8.ValidString(input[:end]) {
		end--
	}

	if end == 0 {
		return ""
	}

	return input[:end]
}
