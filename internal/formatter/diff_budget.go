package formatter

import (
	"path/filepath"
	"strconv"
	"strings"
)

// sectionKind distinguishes git diff sections from untracked-file blocks.
type sectionKind int

const (
	kindPreamble sectionKind = iota
	kindDiff
	kindNewFile
)

const newFilePrefix = "--- New file: "

// section is one file's worth of the collected change text.
type section struct {
	Kind     sectionKind
	Path     string
	Header   string
	Body     []string // hunks for diffs, a single body for new files
	LowValue bool
	IsBinary bool
	Added    int
	Deleted  int
}

var (
	lowValuePatterns = []string{
		"go.sum", "package-lock.json", "yarn.lock", "pnpm-lock.yaml",
		"Pipfile.lock", "poetry.lock", "composer.lock", "Cargo.lock", "Gemfile.lock",
		"*.lock",
		"*.pb.go", "*_generated.go", "*_gen.go",
		"*.min.js", "*.min.css", "*.map", "*.svg",
	}
	lowValueDirs = []string{"vendor", "node_modules", "third_party", "dist"}
)

// FitDiff shrinks the collected change text to at most limit bytes plus a
// truncation marker. Sections for source files are kept whole when they fit,
// otherwise cut hunk by hunk; lock files, vendored and generated files are
// reduced to one summary line each.
func FitDiff(text string, limit int) string {
	if limit <= 0 || len(text) <= limit {
		return text
	}

	sections := splitSections(text)
	if len(sections) == 0 {
		return truncateToValidUTF8(text, limit) + TruncationMarker
	}

	var regular, lowValue []section
	for _, s := range sections {
		if s.LowValue || s.IsBinary {
			lowValue = append(lowValue, s)
		} else {
			regular = append(regular, s)
		}
	}

	var b strings.Builder
	for _, s := range regular {
		if appendSection(&b, s, limit) {
			continue
		}
		if !appendLine(&b, summarize(s), limit) {
			break
		}
	}
	for _, s := range lowValue {
		if !appendLine(&b, summarize(s), limit) {
			break
		}
	}

	return truncateToValidUTF8(b.String(), limit) + TruncationMarker
}

func splitSections(text string) []section {
	if !strings.Contains(text, "diff --") && !strings.Contains(text, newFilePrefix) {
		return nil
	}

	var sections []section
	var current *section
	inHunk := false

	flush := func() {
		if current != nil {
			current.Added, current.Deleted = countChanges(current)
			sections = append(sections, *current)
		}
	}

	for _, line := range strings.Split(text, "\n") {
		switch {
		case isDiffHeader(line):
			flush()
			current = &section{Kind: kindDiff, Header: line + "\n", Path: diffHeaderPath(line)}
			current.LowValue = isLowValue(current.Path)
			inHunk = false
			continue
		case strings.HasPrefix(line, newFilePrefix) && strings.HasSuffix(line, " ---"):
			flush()
			path := strings.TrimSuffix(strings.TrimPrefix(line, newFilePrefix), " ---")
			current = &section{Kind: kindNewFile, Header: line + "\n", Path: path, Body: []string{""}}
			current.LowValue = isLowValue(path)
			continue
		}

		if current == nil {
			current = &section{Kind: kindPreamble}
		}

		switch current.Kind {
		case kindNewFile:
			current.Body[0] += line + "\n"
			if strings.HasPrefix(line, "(binary file, ") {
				current.IsBinary = true
			}
		case kindDiff:
			if strings.HasPrefix(line, "@@ ") || strings.HasPrefix(line, "@@@ ") {
				inHunk = true
				current.Body = append(current.Body, line+"\n")
				continue
			}
			if inHunk {
				current.Body[len(current.Body)-1] += line + "\n"
				continue
			}
			current.Header += line + "\n"
			if strings.HasPrefix(line, "Binary files ") || strings.HasPrefix(line, "GIT binary patch") {
				current.IsBinary = true
			}
		default:
			current.Header += line + "\n"
		}
	}
	flush()

	return sections
}

func isDiffHeader(line string) bool {
	return strings.HasPrefix(line, "diff --git ") ||
		strings.HasPrefix(line, "diff --cc ") ||
		strings.HasPrefix(line, "diff --combined ")
}

func diffHeaderPath(line string) string {
	fields := strings.Fields(line)
	if len(fields) < 3 {
		return ""
	}
	path := fields[len(fields)-1]
	path = strings.Trim(path, "\"")
	return strings.TrimPrefix(path, "b/")
}

func isLowValue(path string) bool {
	if path == "" {
		return false
	}
	for _, seg := range strings.Split(path, "/") {
		for _, dir := range lowValueDirs {
			if seg == dir {
				return true
			}
		}
	}

	base := filepath.Base(path)
	for _, pattern := range lowValuePatterns {
		if matched, err := filepath.Match(pattern, base); err == nil && matched {
			return true
		}
	}
	return false
}

func countChanges(s *section) (int, int) {
	if s.Kind == kindNewFile {
		body := strings.TrimSuffix(s.Body[0], "\n")
		if body == "" {
			return 0, 0
		}
		return strings.Count(body, "\n") + 1, 0
	}

	added, deleted := 0, 0
	for _, hunk := range s.Body {
		for _, line := range strings.Split(hunk, "\n") {
			if strings.HasPrefix(line, "+++") || strings.HasPrefix(line, "---") {
				continue
			}
			if strings.HasPrefix(line, "+") {
				added++
			} else if strings.HasPrefix(line, "-") {
				deleted++
			}
		}
	}
	return added, deleted
}

func summarize(s section) string {
	label := s.Path
	if label == "" {
		label = "(header)"
	}
	if s.Kind == kindNewFile {
		label = "new file " + label
	}
	if s.IsBinary {
		return label + " (binary)\n"
	}
	return label + " (+" + strconv.Itoa(s.Added) + "/-" + strconv.Itoa(s.Deleted) + ")\n"
}

// appendSection writes s in full when it fits. A diff with several hunks is
// cut after the last hunk that fits. It reports false when nothing was written.
func appendSection(b *strings.Builder, s section, limit int) bool {
	if b.Len()+len(s.Header) > limit {
		return false
	}
	size := len(s.Header)
	for _, part := range s.Body {
		size += len(part)
	}
	if b.Len()+size <= limit {
		b.WriteString(s.Header)
		for _, part := range s.Body {
			b.WriteString(part)
		}
		return true
	}

	if s.Kind != kindDiff || len(s.Body) < 2 {
		return false
	}
	b.WriteString(s.Header)
	for _, hunk := range s.Body {
		if b.Len()+len(hunk) > limit {
			break
		}
		b.WriteString(hunk)
	}
	const cut = "... (hunks omitted)\n"
	if b.Len()+len(cut) <= limit {
		b.WriteString(cut)
	}
	return true
}

func appendLine(b *strings.Builder, line string, limit int) bool {
	if b.Len()+len(line) > limit {
		return false
	}
	b.WriteString(line)
	return true
}
