package http

import (
	"context"
	"log/slog"

	"go.uber.org/fx"

	"github.com/priyaranjankumar/linkly/config"
	"github.com/priyaranjankumar/linkly/internal/server"
)

// ServerParams holds the parameters needed for HTTP server lifecycle management
type ServerParams struct {
	fx.In

	Server server.Server
	Config *config.Config
	Logger *slog.Logger
}

// RegisterHTTPServerHooks registers HTTP server lifecycle hooks with FX
func RegisterHTTPServerHooks(lc fx.Lifecycle, params ServerParams) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := params.Server.Start(ctx); err != nil {
				params.Logger.Error("Failed to bind HTTP server", "addr", params.Server.Addr(), "error", err)
				return err
			}
			params.Logger.Info("HTTP server listening",
				"addr", params.Server.Addr(),
				"database", params.Config.Database.Type,
				"cache", params.Config.Cache.Type,
				"visits", params.Config.Visits.Mode,
				"base_url", params.Config.App.BaseURL,
			)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			params.Logger.Info("Draining HTTP server")
			if err := params.Server.Stop(ctx); err != nil {
				params.Logger.Error("Failed to shutdown HTTP server", "error", err)
				return err
			}
			params.Logger.Info("HTTP server shutdown completed")
			return nil
		},
	})
}
