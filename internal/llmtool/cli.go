package llmtool

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"
)

// CLIInvoker runs the claude command-line tool in print mode. The working
// directory is where the tool finds the knowledge documents.
type CLIInvoker struct {
	binPath string
	workDir string
}

// NewCLI creates a CLIInvoker. If binPath is empty, "claude" is used.
func NewCLI(binPath, workDir string) *CLIInvoker {
	if binPath == "" {
		binPath = "claude"
	}
	return &CLIInvoker{binPath: binPath, workDir: workDir}
}

// Invoke runs `claude -p <prompt> --output-format text` and returns its
// trimmed stdout. A non-zero exit is a failure.
func (c *CLIInvoker) Invoke(ctx context.Context, prompt string, timeout time.Duration) (string, error) {
	runCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, c.binPath, "-p", prompt, "--output-format", "text")
	cmd.Dir = c.workDir
	cmd.WaitDelay = 2 * time.Second

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	if err != nil {
		switch {
		case errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil:
			zap.L().Warn("llmtool: timed out",
				zap.String("bin", c.binPath),
				zap.Duration("timeout", timeout),
			)
			return "", &ToolError{Kind: KindTimeout, Err: err}
		case errors.Is(err, exec.ErrNotFound), errors.Is(err, fs.ErrNotExist):
			return "", &ToolError{Kind: KindNotFound, Msg: c.binPath, Err: err}
		}
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return "", &ToolError{Kind: KindFailed, Msg: msg, Err: err}
	}

	zap.L().Debug("llmtool: cli call complete",
		zap.Duration("elapsed", time.Since(start)),
		zap.Int("prompt_len", len(prompt)),
		zap.Int("reply_len", stdout.Len()),
	)
	return strings.TrimSpace(stdout.String()), nil
}
