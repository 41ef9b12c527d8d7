package httpapi

import (
	"context"
	"net/http"
	"net/netip"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"watchshop/backend/internal/cache"
)

// loginLimiter caps login attempts per client address. Counts live in an
// AttemptCounter so several server instances can share them through Redis.
type loginLimiter struct {
	counter cache.AttemptCounter
	max     int64
	window  time.Duration
}

func newLoginLimiter(counter cache.AttemptCounter, max int, window time.Duration) *loginLimiter {
	if counter == nil {
		counter = cache.NewMemoryAttemptCounter()
	}
	if max < 1 {
		max = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &loginLimiter{counter: counter, max: int64(max), window: window}
}

// Allow counts one attempt for key. If the counter store is unreachable the
// attempt is let through and the failure logged; credentials are still checked.
func (l *loginLimiter) Allow(ctx context.Context, log zerolog.Logger, key string) bool {
	count, err := l.counter.Hit(ctx, key, l.window)
	if err != nil {
		log.Error().Err(err).Str("client", key).Msg("login attempt counter unavailable")
		return true
	}
	return count <= l.max
}

func (l *loginLimiter) Reset(ctx context.Context, log zerolog.Logger, key string) {
	if err := l.counter.Reset(ctx, key); err != nil {
		log.Warn().Err(err).Str("client", key).Msg("failed to reset login attempts")
	}
}

func clientKey(r *http.Request) string {
	host := strings.TrimSpace(r.RemoteAddr)
	if host == "" {
		return "unknown"
	}
	if addr, err := netip.ParseAddrPort(host); err == nil {
		return addr.Addr().String()
	}
	if idx := strings.LastIndex(host, ":"); idx > 0 {
		return host[:idx]
	}
	return host
}
