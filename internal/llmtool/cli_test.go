package llmtool

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTool writes an executable shell script standing in for the claude CLI.
func fakeTool(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts not supported")
	}
	path := filepath.Join(t.TempDir(), "claude")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755))
	return path
}

func TestNewCLI_BinPath(t *testing.T) {
	c := NewCLI("", "")
	assert.Equal(t, "claude", c.binPath)

	c = NewCLI("/opt/bin/claude", "/srv/docs")
	assert.Equal(t, "/opt/bin/claude", c.binPath)
	assert.Equal(t, "/srv/docs", c.workDir)
}

func TestCLIInvoker_PassesPromptAndTrims(t *testing.T) {
	bin := fakeTool(t, `printf '  %s|' "$@"; echo`)

	out, err := NewCLI(bin, "").Invoke(context.Background(), "Classify: fees?", 5*time.Second)
	require.NoError(t, err)
	assert.Equal(t, "-p|  Classify: fees?|  --output-format|  text|", out)
}

func TestCLIInvoker_RunsInWorkDir(t *testing.T) {
	bin := fakeTool(t, `pwd`)
	dir := t.TempDir()

	out, err := NewCLI(bin, dir).Invoke(context.Background(), "x", 5*time.Second)
	require.NoError(t, err)

	want, _ := filepath.EvalSymlinks(dir)
	got, _ := filepath.EvalSymlinks(out)
	assert.Equal(t, want, got)
}

func TestCLIInvoker_Timeout(t *testing.T) {
	bin := fakeTool(t, `exec sleep 5`)

	start := time.Now()
	_, err := NewCLI(bin, "").Invoke(context.Background(), "x", 100*time.Millisecond)
	require.Error(t, err)
	assert.Less(t, time.Since(start), 4*time.Second)

	var te *ToolError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, KindTimeout, te.Kind)
	assert.Equal(t, SentinelTimeout, te.Sentinel())
}

func TestCLIInvoker_NotFound(t *testing.T) {
	_, err := NewCLI(filepath.Join(t.TempDir(), "missing-claude"), "").Invoke(context.Background(), "x", time.Second)
	require.Error(t, err)

	var te *ToolError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, KindNotFound, te.Kind)
	assert.Equal(t, SentinelNotFound, te.Sentinel())
}

func TestCLIInvoker_NotFoundOnPath(t *testing.T) {
	_, err := NewCLI("definitely-not-a-real-claude-binary", "").Invoke(context.Background(), "x", time.Second)

	var te *ToolError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, KindNotFound, te.Kind)
}

func TestCLIInvoker_NonZeroExit(t *testing.T) {
	bin := fakeTool(t, `echo "rate limited" >&2; exit 3`)

	_, err := NewCLI(bin, "").Invoke(context.Background(), "x", 5*time.Second)
	require.Error(t, err)

	var te *ToolError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, KindFailed, te.Kind)
	assert.Equal(t, "[ERROR: rate limited]", te.Sentinel())
}

func TestCLIInvoker_NonZeroExitWithoutStderr(t *testing.T) {
	bin := fakeTool(t, `exit 2`)

	_, err := NewCLI(bin, "").Invoke(context.Background(), "x", 5*time.Second)

	var te *ToolError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, KindFailed, te.Kind)
	assert.Contains(t, te.Sentinel(), "exit status 2")
}

func TestCLIInvoker_ParentCancelIsFailure(t *testing.T) {
	bin := fakeTool(t, `exec sleep 5`)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewCLI(bin, "").Invoke(ctx, "x", time.Minute)

	var te *ToolError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, KindFailed, te.Kind)
}
