// Package primer provides best-effort conversation channel warm-up.
package primer

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/neozepron/dmOverlay/internal/host"
)

// Primer pre-populates a channel's local message cache so that a
// subsequent reply send has correct context server-side. Warm-ups are
// rate limited per channel and every step is best-effort: no failure
// propagates to the caller.
type Primer struct {
	mu         sync.Mutex
	channels   host.Channels
	logger     *slog.Logger
	ttl        time.Duration
	fetchLimit int

	lastWarm map[string]time.Time // channel id -> last warm-up time
	now      func() time.Time     // injectable clock for tests
}

// New creates a Primer with the given TTL and fetch limit.
func New(channels host.Channels, ttl time.Duration, fetchLimit int, logger *slog.Logger) *Primer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Primer{
		channels:   channels,
		logger:     logger,
		ttl:        ttl,
		fetchLimit: fetchLimit,
		lastWarm:   make(map[string]time.Time),
		now:        time.Now,
	}
}

// Warm primes the channel's local cache. Idempotent within the TTL window:
// a channel warmed recently is skipped, never queued. Safe to invoke
// fire-and-forget; it never returns an error and never blocks on failures.
func (p *Primer) Warm(ctx context.Context, channelID string) {
	if p.channels == nil {
		p.logger.Debug("channel capability unavailable", "channel", channelID)
		return
	}
	if !p.claim(channelID) {
		p.logger.Debug("prime skipped, ttl not elapsed", "channel", channelID)
		return
	}

	// Each step tolerates failure of the others.
	if err := p.channels.JumpToPresent(ctx, channelID); err != nil {
		p.logger.Debug("jump to present failed", "channel", channelID, "error", err)
	}
	if err := p.channels.FetchMessages(ctx, channelID, p.fetchLimit); err != nil {
		p.logger.Debug("fetch messages failed", "channel", channelID, "error", err)
	}
	if count, err := p.channels.CachedMessageCount(ctx, channelID); err != nil {
		p.logger.Debug("cache probe failed", "channel", channelID, "error", err)
	} else {
		p.logger.Debug("channel primed", "channel", channelID, "cached", count)
	}
}

// claim records a warm-up attempt, returning false when the channel was
// already warmed within the TTL window.
func (p *Primer) claim(channelID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	if last, ok := p.lastWarm[channelID]; ok && now.Sub(last) < p.ttl {
		return false
	}
	p.lastWarm[channelID] = now
	return true
}

// WarmCount returns how many channels have been warmed. Used by status
// reporting.
func (p *Primer) WarmCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.lastWarm)
}
