package gitutil

import (
	"context"
	"errors"
	"fmt"

	"github.com/samzong/gca/internal/gitcmd"
)

// WrapGitError builds an error message that prefers git stderr output when present.
// Context errors are returned unwrapped by stderr so callers can match them with errors.Is.
func WrapGitError(action string, result gitcmd.Result, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", action, err)
	}
	errMsg := result.StderrString(true)
	if errMsg != "" {
		return fmt.Errorf("%s: %s: %w", action, errMsg, err)
	}
	return fmt.Errorf("%s: %w", action, err)
}
