package server

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/TobiSchelling/solutionlab/internal/auth"
	"github.com/TobiSchelling/solutionlab/internal/config"
)

// corsMiddleware answers preflight requests on any path.
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.Writer.Header()
		header.Set("Access-Control-Allow-Origin", "*")
		header.Set("Access-Control-Allow-Headers", "authorization, x-client-info, apikey, content-type")
		header.Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// requestLogger logs method, path, status and latency.
func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}

// authRequired validates the bearer token and stores the principal on the
// request context.
func (s *Server) authRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.verifier == nil {
			respondError(c, "authentication is not configured", http.StatusUnauthorized)
			c.Abort()
			return
		}
		token, err := auth.BearerToken(c.GetHeader("Authorization"))
		if err != nil {
			respondError(c, "unauthorized", http.StatusUnauthorized)
			c.Abort()
			return
		}
		p, err := s.verifier.Verify(token)
		if err != nil {
			msg := "unauthorized"
			if errors.Is(err, auth.ErrTokenExpired) {
				msg = "token expired"
			}
			respondError(c, msg, http.StatusUnauthorized)
			c.Abort()
			return
		}

		c.Request = c.Request.WithContext(auth.WithPrincipal(c.Request.Context(), p))
		c.Next()
	}
}

func principal(c *gin.Context) auth.Principal {
	p, _ := auth.FromContext(c.Request.Context())
	return p
}

// rateLimited applies the per-user limiter. It must run after authRequired.
func (s *Server) rateLimited() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.limiter.allow(principal(c).UserID) {
			respondError(c, "too many submissions, please wait a moment", http.StatusTooManyRequests)
			c.Abort()
			return
		}
		c.Next()
	}
}

// userLimiter keeps one token bucket per user. A nil limiter allows
// everything. Buckets idle for longer than it takes them to refill are
// swept, so the map holds only users active within the last idleTTL.
type userLimiter struct {
	mu        sync.Mutex
	limit     rate.Limit
	burst     int
	idleTTL   time.Duration
	lastSweep time.Time
	limiters  map[string]*limiterEntry
	now       func() time.Time
}

type limiterEntry struct {
	lim  *rate.Limiter
	seen time.Time
}

const minLimiterIdleTTL = 10 * time.Minute

func newUserLimiter(cfg config.RateLimit) *userLimiter {
	if cfg.PerMinute <= 0 {
		return nil
	}
	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}
	interval := time.Minute / time.Duration(cfg.PerMinute)
	ttl := time.Duration(burst) * interval
	if ttl < minLimiterIdleTTL {
		ttl = minLimiterIdleTTL
	}
	return &userLimiter{
		limit:    rate.Every(interval),
		burst:    burst,
		idleTTL:  ttl,
		limiters: make(map[string]*limiterEntry),
		now:      time.Now,
	}
}

func (l *userLimiter) allow(userID string) bool {
	if l == nil {
		return true
	}
	l.mu.Lock()
	now := l.now()
	if now.Sub(l.lastSweep) >= l.idleTTL {
		l.sweep(now)
	}
	e, ok := l.limiters[userID]
	if !ok {
		e = &limiterEntry{lim: rate.NewLimiter(l.limit, l.burst)}
		l.limiters[userID] = e
	}
	e.seen = now
	l.mu.Unlock()
	return e.lim.AllowN(now, 1)
}

// sweep drops buckets unused for idleTTL. A dropped bucket was full again,
// so recreating it later changes nothing. Callers hold mu.
func (l *userLimiter) sweep(now time.Time) {
	for id, e := range l.limiters {
		if now.Sub(e.seen) >= l.idleTTL {
			delete(l.limiters, id)
		}
	}
	l.lastSweep = now
}
