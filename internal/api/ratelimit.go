package api

import (
	"net"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/listenupapp/artfetch/internal/ratelimit"
)

// RateLimiter limits inbound requests per client.
type RateLimiter = ratelimit.KeyedRateLimiter

// clientLimiterIdle is how long a client IP may stay quiet before its
// bucket is dropped.
const clientLimiterIdle = 10 * time.Minute

// NewRateLimiter creates a limiter allowing ratePerInterval requests per
// interval with the given burst. Keys idle for clientLimiterIdle are evicted.
// For example: 60 per minute = 1 rps.
func NewRateLimiter(ratePerInterval int, interval time.Duration, burst int) *RateLimiter {
	rps := float64(ratePerInterval) / interval.Seconds()
	return ratelimit.New(rps, burst).EvictIdle(clientLimiterIdle)
}

// rateLimit is a huma middleware limiting requests by client IP.
// A cold search fans out to every provider, so this shields them.
func (s *Server) rateLimit(ctx huma.Context, next func(huma.Context)) {
	if s.limiter == nil {
		next(ctx)
		return
	}

	key := clientIP(ctx.RemoteAddr())
	if !s.limiter.Allow(key) {
		s.logger.Warn("Rate limit exceeded",
			"ip", key,
			"path", ctx.URL().Path,
		)
		_ = huma.WriteErr(s.api, ctx, http.StatusTooManyRequests, "Too many requests. Please try again later.")
		return
	}

	next(ctx)
}

// clientIP strips the port from a remote address. RealIP middleware has
// already applied X-Forwarded-For and X-Real-IP.
func clientIP(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}
