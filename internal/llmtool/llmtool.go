// Package llmtool runs prompts through the external text-generation tool.
package llmtool

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/RishavT/iitmdocs/internal/config"
	"github.com/RishavT/iitmdocs/internal/metrics"
	"github.com/RishavT/iitmdocs/pkg/anthropic"
)

// Sentinel prefixes returned in place of a reply when a call fails.
const (
	SentinelTimeout     = "[TIMEOUT]"
	SentinelNotFound    = "[ERROR: tool not found]"
	sentinelErrorPrefix = "[ERROR"
)

// Kind classifies a tool failure.
type Kind int

const (
	KindFailed Kind = iota
	KindTimeout
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindTimeout:
		return "timeout"
	case KindNotFound:
		return "not_found"
	default:
		return "failed"
	}
}

// ToolError is the only error type returned by an Invoker.
type ToolError struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *ToolError) Error() string {
	if e.Msg == "" {
		return "llmtool: " + e.Kind.String()
	}
	return fmt.Sprintf("llmtool: %s: %s", e.Kind, e.Msg)
}

func (e *ToolError) Unwrap() error { return e.Err }

// Sentinel renders the failure as the out-of-band reply string.
func (e *ToolError) Sentinel() string {
	switch e.Kind {
	case KindTimeout:
		return SentinelTimeout
	case KindNotFound:
		return SentinelNotFound
	default:
		return fmt.Sprintf("[ERROR: %s]", e.Msg)
	}
}

// Invoker sends one prompt to the tool and returns its text reply.
// Errors are always *ToolError.
type Invoker interface {
	Invoke(ctx context.Context, prompt string, timeout time.Duration) (string, error)
}

// Run invokes the tool and never fails: errors are collapsed to their
// sentinel string.
func Run(ctx context.Context, inv Invoker, prompt string, timeout time.Duration) string {
	out, err := inv.Invoke(ctx, prompt, timeout)
	if err != nil {
		var te *ToolError
		if errors.As(err, &te) {
			return te.Sentinel()
		}
		return fmt.Sprintf("[ERROR: %s]", err.Error())
	}
	return out
}

// IsSentinel reports whether a reply is a failure sentinel.
func IsSentinel(reply string) bool {
	reply = strings.TrimSpace(reply)
	return strings.HasPrefix(reply, SentinelTimeout) || strings.HasPrefix(reply, sentinelErrorPrefix)
}

// New creates an Invoker based on config, instrumented with metrics.
func New(cfg config.LLMConfig) (Invoker, error) {
	switch cfg.Provider {
	case "cli", "":
		return Instrument(NewCLI(cfg.Binary, cfg.WorkDir), "cli"), nil
	case "api":
		if cfg.Key == "" {
			return nil, eris.New("llmtool: api provider requires llm.key")
		}
		docs, err := LoadKnowledge(resolveDir(cfg.WorkDir, cfg.KnowledgeDir))
		if err != nil {
			return nil, err
		}
		client := anthropic.NewClient(cfg.Key)
		return Instrument(NewAPI(client, cfg.Model, cfg.MaxTokens, docs), "api"), nil
	default:
		return nil, eris.Errorf("llmtool: unknown provider %q", cfg.Provider)
	}
}

// Instrument wraps inv so every call is counted by outcome.
func Instrument(inv Invoker, provider string) Invoker {
	return &instrumented{next: inv, provider: provider}
}

type instrumented struct {
	next     Invoker
	provider string
}

func (i *instrumented) Invoke(ctx context.Context, prompt string, timeout time.Duration) (string, error) {
	out, err := i.next.Invoke(ctx, prompt, timeout)
	outcome := "ok"
	if err != nil {
		outcome = KindFailed.String()
		var te *ToolError
		if errors.As(err, &te) {
			outcome = te.Kind.String()
		}
	}
	metrics.IncToolInvocation(i.provider, outcome)
	return out, err
}
