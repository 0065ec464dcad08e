package http

import (
	"math"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/tixit/internal/config"
	"github.com/spec-kit/tixit/internal/observability"
	"github.com/spec-kit/tixit/internal/ratelimit"
	apperrors "github.com/spec-kit/tixit/pkg/util/errorutil"
)

// Policies groups the per endpoint-class budgets.
type Policies struct {
	Auth         ratelimit.Policy
	TicketCreate ratelimit.Policy
	TicketList   ratelimit.Policy
}

// PoliciesFromConfig builds the budgets from configuration.
func PoliciesFromConfig(cfg config.RateLimitConfig) Policies {
	return Policies{
		Auth: ratelimit.Policy{
			Name:   "auth",
			Max:    cfg.AuthMax,
			Window: time.Duration(cfg.AuthWindowMinutes) * time.Minute,
		},
		TicketCreate: ratelimit.Policy{
			Name:   "ticket-create",
			Max:    cfg.TicketCreateMax,
			Window: time.Duration(cfg.TicketCreateWindowMin) * time.Minute,
		},
		TicketList: ratelimit.Policy{
			Name:   "ticket-list",
			Max:    cfg.TicketListMax,
			Window: time.Duration(cfg.TicketListWindowMinutes) * time.Minute,
		},
	}
}

// RateLimiter turns policies into fiber middleware.
type RateLimiter struct {
	limiter *ratelimit.Limiter
	logger  *zap.Logger
	metrics *observability.Metrics
	now     func() time.Time
}

// NewRateLimiter wraps a counter backend.
func NewRateLimiter(counter ratelimit.Counter, logger *zap.Logger, metrics *observability.Metrics) *RateLimiter {
	return &RateLimiter{
		limiter: ratelimit.NewLimiter(counter),
		logger:  logger,
		metrics: metrics,
		now:     time.Now,
	}
}

// Limit enforces policy per client IP. A failing counter backend lets the
// request through.
func (rl *RateLimiter) Limit(policy ratelimit.Policy) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if policy.Max <= 0 || policy.Window <= 0 {
			return c.Next()
		}

		decision, err := rl.limiter.Allow(c.UserContext(), policy, c.IP())
		if err != nil {
			rl.logger.Warn("rate limit backend unavailable; allowing request",
				zap.String("policy", policy.Name), zap.Error(err))
			return c.Next()
		}

		c.Set("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
		c.Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
		c.Set("X-RateLimit-Reset", strconv.FormatInt(decision.ResetAt.Unix(), 10))

		if !decision.Allowed {
			retryAfter := int(math.Ceil(decision.ResetAt.Sub(rl.now()).Seconds()))
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(retryAfter))
			rl.metrics.RecordRateLimited(policy.Name)
			return apperrors.NewRateLimited()
		}
		return c.Next()
	}
}
