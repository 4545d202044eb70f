package document

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecRunnerNamesFailingTool(t *testing.T) {
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	r := newExecRunner(quiet)

	_, _, err := r.Run(context.Background(), "no-such-tool-anywhere")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no-such-tool-anywhere")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))

	long := strings.Repeat("x", 20)
	got := truncate(long, 10)
	assert.True(t, strings.HasSuffix(got, "...(truncated)"))
	assert.Contains(t, got, strings.Repeat("x", 10))
}
