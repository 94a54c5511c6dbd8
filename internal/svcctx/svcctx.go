// Package svcctx provides service context for dependency injection via context.
// This package is separate from server to avoid import cycles with endpoints.
package svcctx

import (
	"context"
	"log/slog"

	"github.com/danbryan/redline/internal/config"
	"github.com/danbryan/redline/internal/home"
	"github.com/danbryan/redline/internal/jobs"
	"github.com/danbryan/redline/internal/providers"
	"github.com/danbryan/redline/internal/report"
	"github.com/danbryan/redline/internal/stages"
)

// Services holds all core services that flow through context.
// Components extract what they need via the individual extractors.
type Services struct {
	ConfigManager *config.Manager
	Home          *home.Dir
	Logger        *slog.Logger
	JobRegistry   *jobs.Registry
	Runner        *jobs.Runner
	Providers     *providers.Registry
	Reports       *report.Store
	Alerter       stages.Alerter
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

// ConfigManagerFrom extracts the config manager from context.
func ConfigManagerFrom(ctx context.Context) *config.Manager {
	if s := ServicesFrom(ctx); s != nil {
		return s.ConfigManager
	}
	return nil
}

// HomeFrom extracts the home directory from context.
func HomeFrom(ctx context.Context) *home.Dir {
	if s := ServicesFrom(ctx); s != nil {
		return s.Home
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

// JobRegistryFrom extracts the job registry from context.
func JobRegistryFrom(ctx context.Context) *jobs.Registry {
	if s := ServicesFrom(ctx); s != nil {
		return s.JobRegistry
	}
	return nil
}

// RunnerFrom extracts the job runner from context.
func RunnerFrom(ctx context.Context) *jobs.Runner {
	if s := ServicesFrom(ctx); s != nil {
		return s.Runner
	}
	return nil
}

// ProvidersFrom extracts the provider registry from context.
func ProvidersFrom(ctx context.Context) *providers.Registry {
	if s := ServicesFrom(ctx); s != nil {
		return s.Providers
	}
	return nil
}

// ReportsFrom extracts the report store from context.
func ReportsFrom(ctx context.Context) *report.Store {
	if s := ServicesFrom(ctx); s != nil {
		return s.Reports
	}
	return nil
}

// AlerterFrom extracts the alert sender from context.
func AlerterFrom(ctx context.Context) stages.Alerter {
	if s := ServicesFrom(ctx); s != nil {
		return s.Alerter
	}
	return nil
}
