package ui

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/mattn/go-runewidth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSpinner_DisabledOffTerminal(t *testing.T) {
	var buf bytes.Buffer
	sp := NewSpinner(&buf, "Thinking...")

	assert.False(t, sp.Enabled())
	sp.Start()
	sp.UpdateMessage("Still thinking...")
	sp.Stop()
	assert.Empty(t, buf.String())
}

func TestNewSpinner_DisabledForRegularFile(t *testing.T) {
	f, err := os.Create(filepath.Join(t.TempDir(), "out"))
	require.NoError(t, err)
	defer f.Close()

	assert.False(t, NewSpinner(f, "x").Enabled())
	assert.False(t, IsTerminal(f))
}

func TestTranscriptWidth_NotTerminal(t *testing.T) {
	var buf bytes.Buffer
	assert.Equal(t, 0, TranscriptWidth(&buf))

	f, err := os.Create(filepath.Join(t.TempDir(), "out"))
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, 0, TranscriptWidth(f))
}

func TestFitLine(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		width int
		want  string
	}{
		{name: "fits", in: "Successfully pushed branch main", width: 40, want: "Successfully pushed branch main"},
		{name: "no limit", in: "abcdef", width: 0, want: "abcdef"},
		{name: "truncated", in: "abcdefghij", width: 6, want: "abcde…"},
		{name: "wide runes", in: "提交信息很长", width: 7, want: "提交信…"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := FitLine(tc.in, tc.width)
			assert.Equal(t, tc.want, got)
			if tc.width > 0 {
				assert.LessOrEqual(t, runewidth.StringWidth(got), tc.width)
			}
		})
	}
}
