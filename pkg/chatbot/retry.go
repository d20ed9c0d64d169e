package chatbot

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"net"
	"net/http"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// StatusError is a non-200 reply from the chatbot.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("chatbot: unexpected status %d: %s", e.Code, e.Body)
}

// retryPolicy retries transient failures with exponential backoff and
// ±25% jitter. attempts counts the first try.
type retryPolicy struct {
	attempts   int
	backoff    time.Duration
	maxBackoff time.Duration
}

func (p retryPolicy) do(ctx context.Context, fn func(context.Context) (*Answer, error)) (*Answer, error) {
	attempts := max(1, p.attempts)

	var lastErr error
	for attempt := range attempts {
		ans, err := fn(ctx)
		if err == nil {
			return ans, nil
		}
		lastErr = err

		if ctx.Err() != nil || !transient(err) || attempt == attempts-1 {
			return nil, lastErr
		}

		zap.L().Warn("chatbot: retrying",
			zap.Int("attempt", attempt+1),
			zap.Error(err),
		)

		timer := time.NewTimer(p.delay(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, lastErr
		case <-timer.C:
		}
	}
	return nil, lastErr
}

func (p retryPolicy) delay(attempt int) time.Duration {
	d := float64(p.backoff) * math.Pow(2, float64(attempt))
	if p.maxBackoff > 0 {
		d = min(d, float64(p.maxBackoff))
	}
	d += (rand.Float64()*2 - 1) * d * 0.25
	return time.Duration(max(d, 0))
}

// transient reports whether err is worth retrying: throttling, gateway
// and server errors, or a network timeout or reset.
func transient(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		switch se.Code {
		case http.StatusRequestTimeout, http.StatusTooManyRequests,
			http.StatusInternalServerError, http.StatusBadGateway,
			http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return true
		}
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED)
}
