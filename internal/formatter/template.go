package formatter

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"
)

var ErrTemplateNotFound = errors.New("prompt template not found")

// PromptTemplate is the on-disk YAML form of a custom prompt.
type PromptTemplate struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Template    string `yaml:"template"`
}

type TemplateData struct {
	Diff string
}

var builtinTemplates = map[string]string{
	"default": `Write a one-line git commit message for the following changes.

Changes:
{{.Diff}}

Respond with the message only. Use the imperative mood and stay under 100 characters.`,

	"detailed": `Read the following git changes carefully and write a single-line commit message for them.

Changes:
{{.Diff}}

Guidelines:
1. Start with a verb in the imperative mood ("Add", "Fix", "Refactor").
2. Name the component that changed when it is obvious from the paths.
3. Describe the most important change; leave out incidental edits such as formatting or lock files.
4. Stay under 100 characters and do not add issue numbers.

Respond with the message only.`,
}

// GetPromptTemplate resolves a builtin template name or a path to a template
// file. A file may hold a PromptTemplate document or the raw template text.
func GetPromptTemplate(nameOrPath string) (string, error) {
	if content, ok := builtinTemplates[nameOrPath]; ok {
		return content, nil
	}

	if _, err := os.Stat(nameOrPath); err != nil {
		return "", fmt.Errorf("%w: %s", ErrTemplateNotFound, nameOrPath)
	}

	content, err := os.ReadFile(nameOrPath)
	if err != nil {
		return "", fmt.Errorf("unable to read template file %s: %w", nameOrPath, err)
	}

	var tpl PromptTemplate
	if err := yaml.Unmarshal(content, &tpl); err != nil || strings.TrimSpace(tpl.Template) == "" {
		return string(content), nil
	}
	return tpl.Template, nil
}

func RenderTemplate(templateContent string, data TemplateData) (string, error) {
	tmpl, err := template.New("prompt").Option("missingkey=error").Parse(templateContent)
	if err != nil {
		return "", fmt.Errorf("template parsing error: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("template rendering error: %w", err)
	}

	return buf.String(), nil
}

func GetBuiltinTemplates() map[string]string {
	return builtinTemplates
}

func BuiltinTemplateNames() []string {
	names := make([]string, 0, len(builtinTemplates))
	for name := range builtinTemplates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
