package logging

import (
	"io"
	"regexp"

	"github.com/rs/zerolog"
)

const RedactedValue = "[REDACTED]"

var sensitivePatterns = []*regexp.Regexp{
	regexp.MustCompile(`sk-ant-api[a-zA-Z0-9_-]+`),
	regexp.MustCompile(`sk-(?:proj-)?[a-zA-Z0-9_-]{20,}`),
	regexp.MustCompile(`(?i)bearer\s+[a-zA-Z0-9._-]{20,}`),
	regexp.MustCompile(`(?i)(api[_-]?key|apikey)(["']?\s*[:=]\s*["']?)[a-zA-Z0-9_-]{16,}`),
}

func ContainsSensitiveData(s string) bool {
	for _, pattern := range sensitivePatterns {
		if pattern.MatchString(s) {
			return true
		}
	}
	return false
}

// FilterSensitiveValue replaces API keys and bearer tokens in value.
func FilterSensitiveValue(value string) string {
	result := value
	for _, pattern := range sensitivePatterns {
		result = pattern.ReplaceAllString(result, RedactedValue)
	}
	return result
}

// FilteringWriter redacts sensitive values from everything written through it.
type FilteringWriter struct {
	w io.Writer
}

func NewFilteringWriter(w io.Writer) *FilteringWriter {
	return &FilteringWriter{w: w}
}

func (fw *FilteringWriter) Write(p []byte) (int, error) {
	if _, err := fw.w.Write([]byte(FilterSensitiveValue(string(p)))); err != nil {
		return 0, err
	}
	// report the original length; the filtered text may be shorter
	return len(p), nil
}

// SensitiveDataHook marks events whose message still contains a secret.
// Zerolog does not let hooks rewrite the message; FilteringWriter does that.
type SensitiveDataHook struct{}

func (SensitiveDataHook) Run(e *zerolog.Event, _ zerolog.Level, msg string) {
	if ContainsSensitiveData(msg) {
		e.Bool("contains_filtered_data", true)
	}
}
