package chatbot

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func sse(w http.ResponseWriter, lines ...string) {
	w.Header().Set("Content-Type", "text/event-stream")
	for _, l := range lines {
		fmt.Fprintf(w, "%s\n\n", l)
	}
}

func TestAsk_AssemblesStream(t *testing.T) {
	var got askRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/answer", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		sse(w,
			`data: {"choices":[{"delta":{"tool_calls":[{"function":{"name":"document"}}]}}]}`,
			`data: {"choices":[{"delta":{"tool_calls":[{"function":{"name":"document"}},{"function":{"name":"search"}}]}}]}`,
			`data: {"choices":[{"delta":{"content":"The fee is "}}]}`,
			`: keep-alive comment`,
			`data: not json`,
			`data: {"choices":[]}`,
			`data: {"choices":[{"delta":{"content":"Rs 3000."}}]}`,
			`data: [DONE]`,
			`data: {"choices":[{"delta":{"content":" ignored"}}]}`,
		)
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", WithNDocs(7), WithRateLimit(0))
	ans, err := c.Ask(context.Background(), "What is the fee?")
	require.NoError(t, err)

	assert.Equal(t, "The fee is Rs 3000.", ans.Text)
	assert.Equal(t, 2, ans.Documents)
	assert.Equal(t, askRequest{Q: "What is the fee?", NDocs: 7}, got)
}

func TestAsk_NoDoneMarker(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sse(w, `data: {"choices":[{"delta":{"content":"partial"}}]}`)
	}))
	defer srv.Close()

	ans, err := NewClient(srv.URL, WithRateLimit(0)).Ask(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, "partial", ans.Text)
}

func TestAsk_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, WithRateLimit(0)).Ask(context.Background(), "q")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status 500")
	assert.Contains(t, err.Error(), "boom")
}

func TestAsk_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, WithTimeout(50*time.Millisecond), WithRateLimit(0)).Ask(context.Background(), "q")
	assert.Error(t, err)
}

func TestAsk_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewClient(url, WithRateLimit(0)).Ask(context.Background(), "q")
	assert.Error(t, err)
}

func TestAsk_RateLimitedBacksOff(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, WithRateLimit(100)).(*httpClient)
	_, err := c.Ask(context.Background(), "q")
	require.Error(t, err)
	assert.Equal(t, rate.Limit(50), c.limiter.pace())
}

func TestAsk_CancelledWhileWaiting(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewClient(srv.URL, WithRateLimit(1)).Ask(ctx, "q")
	assert.Error(t, err)
}

func TestReadStream_LongLine(t *testing.T) {
	long := strings.Repeat("x", 100_000)
	in := fmt.Sprintf("data: {\"choices\":[{\"delta\":{\"content\":%q}}]}\n\ndata: [DONE]\n", long)
	ans, err := readStream(strings.NewReader(in))
	require.NoError(t, err)
	assert.Len(t, ans.Text, 100_000)
}

func TestPacer(t *testing.T) {
	p := newPacer(10)

	p.answered()
	assert.Equal(t, rate.Limit(10), p.pace(), "never exceeds the configured rate")

	p.throttled()
	assert.Equal(t, rate.Limit(5), p.pace())
	for range 10 {
		p.throttled()
	}
	assert.Equal(t, rate.Limit(2.5), p.pace())

	p.answered()
	assert.InDelta(t, 3.0, float64(p.pace()), 1e-9)
	for range 20 {
		p.answered()
	}
	assert.Equal(t, rate.Limit(10), p.pace())

	require.NoError(t, p.wait(context.Background()))
}

func TestAsk_RecoversPaceAfterAnswers(t *testing.T) {
	var throttle atomic.Bool
	throttle.Store(true)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if throttle.Load() {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		sse(w, `data: {"choices":[{"delta":{"content":"ok"}}]}`, "data: [DONE]")
	}))
	defer srv.Close()

	c := NewClient(srv.URL, WithRateLimit(100)).(*httpClient)
	_, err := c.Ask(context.Background(), "q")
	require.Error(t, err)
	assert.Equal(t, rate.Limit(50), c.limiter.pace())

	throttle.Store(false)
	_, err = c.Ask(context.Background(), "q")
	require.NoError(t, err)
	assert.InDelta(t, 60.0, float64(c.limiter.pace()), 1e-9)
}

func TestNewClientDefaults(t *testing.T) {
	c := NewClient("http://bot.example.com/").(*httpClient)
	assert.Equal(t, "http://bot.example.com", c.baseURL)
	assert.Equal(t, 5, c.ndocs)
	assert.Equal(t, 30*time.Second, c.timeout)
	assert.NotNil(t, c.limiter)

	hc := &http.Client{}
	c = NewClient("x", WithHTTPClient(hc), WithNDocs(0), WithTimeout(0)).(*httpClient)
	assert.Same(t, hc, c.http)
	assert.Equal(t, 5, c.ndocs)
	assert.Equal(t, 30*time.Second, c.timeout)
}
