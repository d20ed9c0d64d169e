package chatbot

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetry(c Client, attempts int) *httpClient {
	hc := c.(*httpClient)
	hc.retry = retryPolicy{attempts: attempts, backoff: time.Millisecond, maxBackoff: 5 * time.Millisecond}
	return hc
}

func TestAsk_RetriesTransientStatus(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		sse(w, `data: {"choices":[{"delta":{"content":"ok"}}]}`, "data: [DONE]")
	}))
	defer srv.Close()

	c := fastRetry(NewClient(srv.URL, WithRateLimit(0)), 3)
	ans, err := c.Ask(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, "ok", ans.Text)
	assert.Equal(t, int32(3), calls.Load())
}

func TestAsk_GivesUpAfterAttempts(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := fastRetry(NewClient(srv.URL, WithRateLimit(0)), 2)
	_, err := c.Ask(context.Background(), "q")
	require.Error(t, err)

	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusBadGateway, se.Code)
	assert.Equal(t, "down", se.Body)
	assert.Equal(t, int32(2), calls.Load())
}

func TestAsk_NoRetryOnClientError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "bad", http.StatusBadRequest)
	}))
	defer srv.Close()

	c := fastRetry(NewClient(srv.URL, WithRateLimit(0)), 3)
	_, err := c.Ask(context.Background(), "q")
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestWithRetry(t *testing.T) {
	c := NewClient("http://bot", WithRetry(4)).(*httpClient)
	assert.Equal(t, 4, c.retry.attempts)

	c = NewClient("http://bot", WithRetry(0)).(*httpClient)
	assert.Equal(t, 1, c.retry.attempts)
}

func TestRetryPolicy_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := retryPolicy{attempts: 5, backoff: time.Hour}

	calls := 0
	_, err := p.do(ctx, func(context.Context) (*Answer, error) {
		calls++
		cancel()
		return nil, &StatusError{Code: http.StatusServiceUnavailable}
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetryPolicy_Delay(t *testing.T) {
	p := retryPolicy{backoff: 100 * time.Millisecond, maxBackoff: 300 * time.Millisecond}

	d0 := p.delay(0)
	assert.GreaterOrEqual(t, d0, 75*time.Millisecond)
	assert.LessOrEqual(t, d0, 125*time.Millisecond)

	d5 := p.delay(5)
	assert.GreaterOrEqual(t, d5, 225*time.Millisecond)
	assert.LessOrEqual(t, d5, 375*time.Millisecond)
}

func TestTransient(t *testing.T) {
	assert.True(t, transient(&StatusError{Code: 429}))
	assert.True(t, transient(&StatusError{Code: 504}))
	assert.False(t, transient(&StatusError{Code: 404}))
	assert.True(t, transient(syscall.ECONNRESET))
	assert.False(t, transient(errors.New("malformed")))
}
