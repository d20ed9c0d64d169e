// Package anthropic is a narrow wrapper over anthropic-sdk-go for one-shot
// prompt completions with a cached system prompt.
package anthropic

import (
	"context"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// StopMaxTokens is the stop reason of a reply cut off by the token limit.
const StopMaxTokens = "max_tokens"

// Client completes single prompts.
type Client interface {
	Complete(ctx context.Context, req Request) (*Reply, error)
}

// Request is one prompt sent as a single user turn.
type Request struct {
	Model     string
	MaxTokens int64
	System    []SystemBlock
	Prompt    string
}

// SystemBlock is one system prompt block. A non-nil Cache marks the end
// of the cached prefix.
type SystemBlock struct {
	Text  string
	Cache *CacheControl
}

// CacheControl sets the cache lifetime ("5m" or "1h").
type CacheControl struct {
	TTL string
}

// Reply is the text of a completion and its accounting.
type Reply struct {
	ID         string
	Model      string
	Text       string
	StopReason string
	Usage      Usage
}

// Truncated reports whether the reply hit the token limit. Batched replies
// cut short this way lose their trailing records.
func (r *Reply) Truncated() bool {
	return r.StopReason == StopMaxTokens
}

// Usage is the token accounting of one completion.
type Usage struct {
	Input      int64
	Output     int64
	CacheWrite int64
	CacheRead  int64
}

// pricing is USD per million input and output tokens.
var pricing = map[string][2]float64{
	"claude-haiku-4-5-20251001":  {1.00, 5.00},
	"claude-sonnet-4-5-20250929": {3.00, 15.00},
	"claude-opus-4-1-20250805":   {15.00, 75.00},
}

// Cost estimates the USD cost of u. Unknown models cost 0. Cache writes
// bill at 1.25x input, cache reads at 0.1x.
func (u Usage) Cost(model string) float64 {
	p, ok := pricing[model]
	if !ok {
		return 0
	}
	in := float64(u.Input) + float64(u.CacheWrite)*1.25 + float64(u.CacheRead)*0.1
	return (in*p[0] + float64(u.Output)*p[1]) / 1e6
}

// Log records the usage of one completion for a task.
func (u Usage) Log(model, task string) {
	zap.L().Debug("anthropic: usage",
		zap.String("model", model),
		zap.String("task", task),
		zap.Int64("input_tokens", u.Input),
		zap.Int64("output_tokens", u.Output),
		zap.Int64("cache_write_tokens", u.CacheWrite),
		zap.Int64("cache_read_tokens", u.CacheRead),
		zap.Float64("estimated_cost_usd", u.Cost(model)),
	)
}

type sdkClient struct {
	client sdk.Client
}

// NewClient creates a Client backed by the SDK. opts pass through to the
// SDK (base URL, HTTP client, retries).
func NewClient(apiKey string, opts ...option.RequestOption) Client {
	all := append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &sdkClient{client: sdk.NewClient(all...)}
}

func (c *sdkClient) Complete(ctx context.Context, req Request) (*Reply, error) {
	params := sdk.MessageNewParams{
		Model:     sdk.Model(req.Model),
		MaxTokens: req.MaxTokens,
		Messages:  []sdk.MessageParam{sdk.NewUserMessage(sdk.NewTextBlock(req.Prompt))},
		System:    systemParams(req.System),
	}

	msg, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return nil, eris.Wrap(err, "anthropic: complete")
	}

	reply := toReply(msg)
	if reply.Truncated() {
		zap.L().Warn("anthropic: reply truncated at max tokens",
			zap.String("model", reply.Model),
			zap.Int64("max_tokens", req.MaxTokens),
		)
	}
	return reply, nil
}

func systemParams(blocks []SystemBlock) []sdk.TextBlockParam {
	if len(blocks) == 0 {
		return nil
	}
	out := make([]sdk.TextBlockParam, len(blocks))
	for i, b := range blocks {
		out[i] = sdk.TextBlockParam{Text: b.Text}
		if b.Cache != nil {
			cc := sdk.NewCacheControlEphemeralParam()
			if b.Cache.TTL != "" {
				cc.TTL = sdk.CacheControlEphemeralTTL(b.Cache.TTL)
			}
			out[i].CacheControl = cc
		}
	}
	return out
}

// toReply keeps only text content; tool-use blocks never occur for plain
// prompts.
func toReply(msg *sdk.Message) *Reply {
	var text strings.Builder
	for _, b := range msg.Content {
		if b.Type == "text" {
			text.WriteString(b.Text)
		}
	}
	return &Reply{
		ID:         msg.ID,
		Model:      string(msg.Model),
		Text:       text.String(),
		StopReason: string(msg.StopReason),
		Usage: Usage{
			Input:      msg.Usage.InputTokens,
			Output:     msg.Usage.OutputTokens,
			CacheWrite: msg.Usage.CacheCreationInputTokens,
			CacheRead:  msg.Usage.CacheReadInputTokens,
		},
	}
}
