package chatbot

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// pacer spaces questions to the bot. The configured rate is a ceiling:
// a 429 halves the pace, down to a quarter of the ceiling, and each
// streamed answer recovers it by a fifth.
type pacer struct {
	mu      sync.Mutex
	limiter *rate.Limiter
	ceiling rate.Limit
	floor   rate.Limit
	current rate.Limit
}

func newPacer(perSec rate.Limit) *pacer {
	return &pacer{
		limiter: rate.NewLimiter(perSec, 1),
		ceiling: perSec,
		floor:   perSec / 4,
		current: perSec,
	}
}

func (p *pacer) wait(ctx context.Context) error {
	return p.limiter.Wait(ctx)
}

func (p *pacer) answered() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == p.ceiling {
		return
	}
	p.set(min(p.current*1.2, p.ceiling))
}

func (p *pacer) throttled() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.set(max(p.current/2, p.floor))
	zap.L().Warn("chatbot: bot is throttling, slowing down",
		zap.Float64("questions_per_sec", float64(p.current)),
		zap.Float64("configured_per_sec", float64(p.ceiling)),
	)
}

// set updates the pace. Callers hold p.mu.
func (p *pacer) set(l rate.Limit) {
	p.current = l
	p.limiter.SetLimit(l)
}

func (p *pacer) pace() rate.Limit {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}
