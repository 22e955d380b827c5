package workflow

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/samzong/gca/internal/formatter"
	"github.com/samzong/gca/internal/ui"
)

var ErrNotInteractive = errors.New("stdin is not a terminal, use --yes to skip interactive confirmation")

// InteractivePrompter asks on ErrWriter before each commit and reads the
// answer from Stdin: y (default) commits, n cancels, e opens $EDITOR.
type InteractivePrompter struct {
	ErrWriter io.Writer
	Stdin     io.Reader
}

func (p *InteractivePrompter) ConfirmCommit(ctx context.Context, message string) (string, bool, error) {
	stdin := p.Stdin
	if stdin == nil {
		stdin = os.Stdin
	}

	if f, ok := stdin.(*os.File); ok && !ui.IsTerminal(f) {
		return "", false, ErrNotInteractive
	}

	fmt.Fprintf(p.ErrWriter, "\nCommit message:\n  %s\n", message)
	fmt.Fprint(p.ErrWriter, "Do you want to commit with this message? [y/n/e] (y/n/e=edit): ")
	reader := bufio.NewReader(stdin)
	response, err := reader.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && response != "") {
		return "", false, fmt.Errorf("failed to read user input: %w", err)
	}

	response = strings.ToLower(strings.TrimSpace(response))
	switch response {
	case "n":
		return "", false, nil
	case "e":
		edited, err := p.openEditor(ctx, message)
		if err != nil {
			return "", false, err
		}
		return edited, true, nil
	case "y", "":
		if response == "" {
			fmt.Fprintln(p.ErrWriter, "Using default option (yes)")
		}
		return message, true, nil
	default:
		fmt.Fprintln(p.ErrWriter, "Invalid input. Commit cancelled")
		return "", false, nil
	}
}

func (p *InteractivePrompter) openEditor(ctx context.Context, message string) (string, error) {
	fmt.Fprintln(p.ErrWriter, "Opening editor to modify commit message...")

	tmpFile, err := os.CreateTemp("", "gca-commit-")
	if err != nil {
		return "", fmt.Errorf("failed to create temporary file: %w", err)
	}

	tmpFileName := tmpFile.Name()
	defer os.Remove(tmpFileName)

	if _, err := tmpFile.WriteString(message); err != nil {
		tmpFile.Close()
		return "", fmt.Errorf("failed to write to temporary file: %w", err)
	}
	tmpFile.Close()

	editor := getEditor()
	cmd := exec.CommandContext(ctx, editor, tmpFileName)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("failed to open editor: %w", err)
	}

	editedBytes, err := os.ReadFile(tmpFileName)
	if err != nil {
		return "", fmt.Errorf("failed to read edited message: %w", err)
	}

	edited := formatter.FormatCommitMessage(string(editedBytes))
	if edited == "" {
		fmt.Fprintln(p.ErrWriter, "Empty message provided, using original message")
		return message, nil
	}

	fmt.Fprintln(p.ErrWriter, "Using edited message:")
	fmt.Fprintln(p.ErrWriter, edited)
	return edited, nil
}

func getEditor() string {
	if editor := os.Getenv("EDITOR"); editor != "" {
		return editor
	}
	if editor := os.Getenv("VISUAL"); editor != "" {
		return editor
	}
	return "vi"
}
