// Package middleware provides ready-made [client.MiddlewareConfig] values:
// a per-call timeout, a token-bucket rate limiter and slog request logging.
package middleware
