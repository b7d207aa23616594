package app

import (
	"context"
	"time"

	"github.com/uber-go/tally"
	"github.com/uber/mzn-playground/src/playground/controller/annotations"
	"github.com/uber/mzn-playground/src/playground/controller/check"
	"github.com/uber/mzn-playground/src/playground/gateway/checker"
	"github.com/uber/mzn-playground/src/playground/gateway/storage"
	"github.com/uber/mzn-playground/src/playground/handler/watch"
	"github.com/uber/mzn-playground/src/playground/internal/clock"
	"github.com/uber/mzn-playground/src/playground/internal/core"
	"github.com/uber/mzn-playground/src/playground/internal/executor"
	"github.com/uber/mzn-playground/src/playground/internal/fs"
	"github.com/uber/mzn-playground/src/playground/repository/settings"
	"go.uber.org/fx"
)

// Module defines the mzn-playground application module.
var Module = fx.Options(
	checker.Module, // outbounds
	storage.Module,
	settings.Module,
	annotations.Module,
	check.Module,
	fx.Invoke(registerClosers),
	watch.Module, // inbounds
	fs.Module,
	clock.Module,
	executor.Module,
	core.ConfigModule,
	core.LoggerModule,
	fx.Provide(func(lc fx.Lifecycle) tally.Scope {
		rs, closer := tally.NewRootScope(tally.ScopeOptions{
			Tags: map[string]string{
				"service": "mzn-playground",
			},
		}, 1*time.Second)

		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				return closer.Close()
			},
		})

		return rs
	}),
	fx.Decorate(decorateEnvContext),
	fx.Decorate(decorateConfigProvider),
	fx.Provide(func() Context {
		return Context{
			Environment: EnvLocal,
		}
	}),
)

// registerClosers stops pending checks and the settings subscription once the watch handler
// has stopped.
func registerClosers(lc fx.Lifecycle, checks check.Controller, repo settings.Repository) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return repo.Close()
		},
	})
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return checks.Close()
		},
	})
}
