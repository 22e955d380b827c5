package git

import (
	"bytes"
	"context"
	"fmt"
	"strings"
)

// NoChangesSentinel is returned by CollectChanges when the working tree is clean.
const NoChangesSentinel = "No changes detected."

// binarySniffLen matches the window git itself inspects for NUL bytes.
const binarySniffLen = 8000

// CollectChanges concatenates the staged diff, the unstaged diff and one
// labeled block per untracked file. Individual git failures contribute
// nothing; only context cancellation is reported as an error.
func (c *Client) CollectChanges(ctx context.Context) (string, error) {
	var b strings.Builder

	staged, err := c.StagedDiff(ctx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		c.log.Debug().Err(err).Msg("staged diff unavailable")
	}
	b.WriteString(staged)

	unstaged, err := c.UnstagedDiff(ctx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		c.log.Debug().Err(err).Msg("unstaged diff unavailable")
	}
	b.WriteString(unstaged)

	untracked, err := c.UntrackedFiles(ctx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		c.log.Debug().Err(err).Msg("untracked files unavailable")
	}
	for _, path := range untracked {
		data, err := c.ReadWorkingFile(path)
		if err != nil {
			c.log.Debug().Err(err).Str("path", path).Msg("skipping unreadable untracked file")
			continue
		}
		writeNewFileBlock(&b, path, data)
	}

	if strings.TrimSpace(b.String()) == "" {
		return NoChangesSentinel, nil
	}
	return b.String(), nil
}

func writeNewFileBlock(b *strings.Builder, path string, data []byte) {
	if b.Len() > 0 && !strings.HasSuffix(b.String(), "\n") {
		b.WriteByte('\n')
	}
	fmt.Fprintf(b, "--- New file: %s ---\n", path)
	if isBinary(data) {
		fmt.Fprintf(b, "(binary file, %d bytes)\n", len(data))
		return
	}
	b.Write(data)
	if len(data) > 0 && data[len(data)-1] != '\n' {
		b.WriteByte('\n')
	}
}

func isBinary(data []byte) bool {
	window := data
	if len(window) > binarySniffLen {
		window = window[:binarySniffLen]
	}
	return bytes.IndexByte(window, 0) >= 0
}
