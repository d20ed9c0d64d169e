// Package chatbot provides a client for the admissions chatbot's streaming
// answer endpoint.
package chatbot

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Client asks the live chatbot questions.
type Client interface {
	// Ask sends one question and waits for the complete streamed answer.
	Ask(ctx context.Context, question string) (*Answer, error)
}

// Answer is a fully assembled streamed reply.
type Answer struct {
	Text string
	// Documents is the number of knowledge documents the bot cited.
	Documents int
}

type askRequest struct {
	Q     string `json:"q"`
	NDocs int    `json:"ndocs"`
}

// chunk is one SSE data payload.
type chunk struct {
	Choices []struct {
		Delta struct {
			Content   string `json:"content"`
			ToolCalls []struct {
				Function struct {
					Name string `json:"name"`
				} `json:"function"`
			} `json:"tool_calls"`
		} `json:"delta"`
	} `json:"choices"`
}

// Option configures the chatbot client.
type Option func(*httpClient)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithNDocs sets how many documents the bot may retrieve per question.
func WithNDocs(n int) Option {
	return func(c *httpClient) {
		if n > 0 {
			c.ndocs = n
		}
	}
}

// WithTimeout bounds each question, including the streamed read.
func WithTimeout(d time.Duration) Option {
	return func(c *httpClient) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithRateLimit caps questions per second. The client slows below the cap
// while the bot answers 429. Zero or less disables pacing.
func WithRateLimit(perSec float64) Option {
	return func(c *httpClient) {
		if perSec <= 0 {
			c.limiter = nil
			return
		}
		c.limiter = newPacer(rate.Limit(perSec))
	}
}

// WithRetry sets the total attempts per question. Throttled, gateway and
// server errors and network resets are retried with backoff.
func WithRetry(attempts int) Option {
	return func(c *httpClient) {
		if attempts > 0 {
			c.retry.attempts = attempts
		}
	}
}

type httpClient struct {
	baseURL string
	ndocs   int
	timeout time.Duration
	limiter *pacer
	retry   retryPolicy
	http    *http.Client
}

// NewClient creates a client for the chatbot at baseURL.
func NewClient(baseURL string, opts ...Option) Client {
	c := &httpClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		ndocs:   5,
		timeout: 30 * time.Second,
		limiter: newPacer(2),
		retry:   retryPolicy{attempts: 1, backoff: 500 * time.Millisecond, maxBackoff: 10 * time.Second},
		http: &http.Client{
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) Ask(ctx context.Context, question string) (*Answer, error) {
	return c.retry.do(ctx, func(ctx context.Context) (*Answer, error) {
		return c.ask(ctx, question)
	})
}

func (c *httpClient) ask(ctx context.Context, question string) (*Answer, error) {
	if c.limiter != nil {
		if err := c.limiter.wait(ctx); err != nil {
			return nil, eris.Wrap(err, "chatbot: rate limit wait")
		}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, err := json.Marshal(askRequest{Q: question, NDocs: c.ndocs})
	if err != nil {
		return nil, eris.Wrap(err, "chatbot: marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/answer", bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "chatbot: create request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "chatbot: request failed")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode == http.StatusTooManyRequests && c.limiter != nil {
		c.limiter.throttled()
	}
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
	}

	answer, err := readStream(resp.Body)
	if err != nil {
		return nil, err
	}
	if c.limiter != nil {
		c.limiter.answered()
	}

	zap.L().Debug("chatbot: answered",
		zap.Int("chars", len(answer.Text)),
		zap.Int("documents", answer.Documents),
	)
	return answer, nil
}

// readStream assembles the SSE body into an Answer, stopping at [DONE].
// Malformed data lines are skipped.
func readStream(r io.Reader) (*Answer, error) {
	var (
		text strings.Builder
		docs int
	)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		data, ok := strings.CutPrefix(line, "data:")
		if !ok {
			continue
		}
		data = strings.TrimSpace(data)
		if data == "[DONE]" {
			break
		}

		var ch chunk
		if err := json.Unmarshal([]byte(data), &ch); err != nil {
			continue
		}
		if len(ch.Choices) == 0 {
			continue
		}
		delta := ch.Choices[0].Delta
		text.WriteString(delta.Content)
		for _, tc := range delta.ToolCalls {
			if tc.Function.Name == "document" {
				docs++
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, eris.Wrap(err, "chatbot: read stream")
	}

	return &Answer{Text: text.String(), Documents: docs}, nil
}
