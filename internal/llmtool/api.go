package llmtool

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/RishavT/iitmdocs/pkg/anthropic"
)

const apiInstructions = `You are assisting with the analysis of chatbot logs for the IIT Madras BS Degree program.
The documents that follow are the contents of the src/ folder. Whenever a request asks you to read the src/ folder, use these documents as the source of truth.`

// APIInvoker sends prompts to the Anthropic Messages API with the
// knowledge documents attached as a cached system block.
type APIInvoker struct {
	client    anthropic.Client
	model     string
	maxTokens int64
	system    []anthropic.SystemBlock
}

// NewAPI creates an APIInvoker. knowledge may be empty.
func NewAPI(client anthropic.Client, model string, maxTokens int, knowledge string) *APIInvoker {
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	return &APIInvoker{
		client:    client,
		model:     model,
		maxTokens: int64(maxTokens),
		system:    anthropic.KnowledgeSystem(apiInstructions, knowledge),
	}
}

// Invoke sends prompt as a single user message.
func (a *APIInvoker) Invoke(ctx context.Context, prompt string, timeout time.Duration) (string, error) {
	callCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	reply, err := a.client.Complete(callCtx, anthropic.Request{
		Model:     a.model,
		MaxTokens: a.maxTokens,
		System:    a.system,
		Prompt:    prompt,
	})
	if err != nil {
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return "", &ToolError{Kind: KindTimeout, Err: err}
		}
		return "", &ToolError{Kind: KindFailed, Msg: err.Error(), Err: err}
	}

	reply.Usage.Log(a.model, "invoke")
	return strings.TrimSpace(reply.Text), nil
}

// LoadKnowledge concatenates the Markdown and text documents under dir,
// each prefixed with its relative path. A missing directory yields an
// empty string.
func LoadKnowledge(dir string) (string, error) {
	if _, err := os.Stat(dir); errors.Is(err, fs.ErrNotExist) {
		zap.L().Warn("llmtool: knowledge dir not found", zap.String("dir", dir))
		return "", nil
	}

	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".md", ".txt":
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return "", eris.Wrapf(err, "llmtool: walk knowledge dir %s", dir)
	}
	sort.Strings(paths)

	var b strings.Builder
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return "", eris.Wrapf(err, "llmtool: read %s", p)
		}
		rel, _ := filepath.Rel(dir, p)
		b.WriteString("=== src/")
		b.WriteString(filepath.ToSlash(rel))
		b.WriteString(" ===\n")
		b.Write(data)
		b.WriteString("\n\n")
	}

	zap.L().Info("llmtool: loaded knowledge documents",
		zap.String("dir", dir),
		zap.Int("files", len(paths)),
		zap.Int("bytes", b.Len()),
	)
	return b.String(), nil
}

func resolveDir(workDir, dir string) string {
	if filepath.IsAbs(dir) || workDir == "" {
		return dir
	}
	return filepath.Join(workDir, dir)
}
