// Package svcctx provides service context for dependency injection via context.
// This package is separate from server to avoid import cycles with endpoints.
package svcctx

import (
	"context"
	"log/slog"

	"github.com/papertrail/papertrail/internal/config"
	"github.com/papertrail/papertrail/internal/service"
)

// Services holds the core services that flow through context.
// Endpoints extract what they need via the individual extractors.
type Services struct {
	Paper     *service.Paper
	Suggester *service.Suggester
	Config    *config.Config
	Logger    *slog.Logger
}

type servicesKey struct{}

// WithServices returns a new context with services attached.
func WithServices(ctx context.Context, s *Services) context.Context {
	return context.WithValue(ctx, servicesKey{}, s)
}

// ServicesFrom extracts the full Services struct from context.
// Returns nil if not present.
func ServicesFrom(ctx context.Context) *Services {
	s, _ := ctx.Value(servicesKey{}).(*Services)
	return s
}

// PaperFrom extracts the paper service from context.
func PaperFrom(ctx context.Context) *service.Paper {
	if s := ServicesFrom(ctx); s != nil {
		return s.Paper
	}
	return nil
}

// SuggesterFrom extracts the citation suggester from context.
func SuggesterFrom(ctx context.Context) *service.Suggester {
	if s := ServicesFrom(ctx); s != nil {
		return s.Suggester
	}
	return nil
}

// ConfigFrom extracts the runtime configuration from context.
func ConfigFrom(ctx context.Context) *config.Config {
	if s := ServicesFrom(ctx); s != nil {
		return s.Config
	}
	return nil
}

// LoggerFrom extracts the logger from context.
func LoggerFrom(ctx context.Context) *slog.Logger {
	if s := ServicesFrom(ctx); s != nil {
		return s.Logger
	}
	return nil
}
