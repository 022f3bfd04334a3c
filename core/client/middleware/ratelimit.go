package middleware

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/spyword/undercover/core/client"
	"github.com/spyword/undercover/providers/ai"
	"github.com/spyword/undercover/providers/observability"
)

// NewRateLimitMiddleware makes every call wait for a token from a limiter
// allowing requestsPerSecond calls with the given burst.
// requestsPerSecond <= 0 disables limiting.
func NewRateLimitMiddleware(requestsPerSecond float64, burst int) client.MiddlewareConfig {
	if requestsPerSecond <= 0 {
		return client.MiddlewareConfig{
			Send:   func(next client.SendFunc) client.SendFunc { return next },
			Stream: func(next client.StreamFunc) client.StreamFunc { return next },
		}
	}
	return NewRateLimitMiddlewareWithLimiter(rate.NewLimiter(rate.Limit(requestsPerSecond), max(burst, 1)))
}

// NewRateLimitMiddlewareWithLimiter uses a caller-owned limiter, e.g. one
// shared by several clients hitting the same endpoint.
func NewRateLimitMiddlewareWithLimiter(limiter *rate.Limiter) client.MiddlewareConfig {
	return client.MiddlewareConfig{
		Send: func(next client.SendFunc) client.SendFunc {
			return func(ctx context.Context, request ai.ChatRequest) (*ai.ChatResponse, error) {
				if err := wait(ctx, limiter); err != nil {
					return nil, err
				}
				return next(ctx, request)
			}
		},
		Stream: func(next client.StreamFunc) client.StreamFunc {
			return func(ctx context.Context, request ai.ChatRequest) (*ai.ChatStream, error) {
				if err := wait(ctx, limiter); err != nil {
					return nil, err
				}
				return next(ctx, request)
			}
		},
	}
}

func wait(ctx context.Context, limiter *rate.Limiter) error {
	start := time.Now()
	if err := limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	if span := observability.SpanFromContext(ctx); span != nil {
		span.SetAttributes(observability.Duration(observability.AttrClientWaitDuration, time.Since(start)))
	}
	return nil
}
