package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"commonthread/internal/auth"
	apperrors "commonthread/pkg/errors"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"
)

const (
	headerRateLimit     = "X-RateLimit-Limit"
	headerRateRemaining = "X-RateLimit-Remaining"
	headerRetryAfter    = "Retry-After"
	retryAfterSeconds   = "1"
	msgRateLimited      = "rate limit exceeded"

	strictRate  = 5
	strictBurst = 10
	globalRate  = 100
	globalBurst = 200
	limiterIdle = 10 * time.Minute
	sweepEvery  = 1000
)

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter implements token bucket rate limiting per caller. Callers are
// keyed by principal once the access guard has run, by client IP otherwise.
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*limiterEntry
	rate     rate.Limit
	burst    int
	calls    int
	now      func() time.Time
}

// NewRateLimiter creates a limiter allowing requestsPerSecond with the given
// burst per key.
func NewRateLimiter(requestsPerSecond int, burst int) *RateLimiter {
	return &RateLimiter{
		limiters: make(map[string]*limiterEntry),
		rate:     rate.Limit(requestsPerSecond),
		burst:    burst,
		now:      time.Now,
	}
}

func (rl *RateLimiter) getLimiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	rl.calls++
	if rl.calls%sweepEvery == 0 {
		rl.sweepLocked(now)
	}

	e, ok := rl.limiters[key]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(rl.rate, rl.burst)}
		rl.limiters[key] = e
	}
	e.lastSeen = now
	return e.limiter
}

// sweepLocked drops limiters idle for longer than limiterIdle.
func (rl *RateLimiter) sweepLocked(now time.Time) {
	for k, e := range rl.limiters {
		if now.Sub(e.lastSeen) > limiterIdle {
			delete(rl.limiters, k)
		}
	}
}

func (rl *RateLimiter) Allow(key string) bool {
	return rl.getLimiter(key).Allow()
}

// Len reports how many keys are tracked.
func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.limiters)
}

func (rl *RateLimiter) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			limiter := rl.getLimiter(keyFor(c))
			limit := strconv.Itoa(rl.burst)

			if !limiter.Allow() {
				c.Response().Header().Set(headerRateLimit, limit)
				c.Response().Header().Set(headerRateRemaining, "0")
				c.Response().Header().Set(headerRetryAfter, retryAfterSeconds)
				return c.JSON(http.StatusTooManyRequests, apperrors.NewResponse(apperrors.CodeRateLimited, msgRateLimited))
			}

			c.Response().Header().Set(headerRateLimit, limit)
			c.Response().Header().Set(headerRateRemaining, strconv.Itoa(int(limiter.Tokens())))
			return next(c)
		}
	}
}

func keyFor(c echo.Context) string {
	if id, err := auth.GetPrincipalID(c); err == nil {
		return "user:" + strconv.FormatInt(id, 10)
	}
	return "ip:" + c.RealIP()
}

// NewStrictRateLimiter is used on credential endpoints.
func NewStrictRateLimiter() *RateLimiter {
	return NewRateLimiter(strictRate, strictBurst)
}

func NewGlobalRateLimiter() *RateLimiter {
	return NewRateLimiter(globalRate, globalBurst)
}
