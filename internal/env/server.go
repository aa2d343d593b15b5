package environment

import (
	"context"
	"log/slog"
	"net/http"

	"tgadmin/internal/api"
	"tgadmin/internal/config"
)

type Servers struct {
	HTTP struct {
		Observability *http.Server
	}
	API *api.Server
}

func newServers(ctx context.Context, cfg config.Config, logger *slog.Logger, clients *Clients, services *Services) *Servers {
	var servers Servers

	servers.API = api.NewServer(
		cfg.API,
		logger.WithGroup("api"),
		services.AdminState,
		services.BotConfig,
		services.Tariffs,
		services.Broadcasts,
		services.Promos,
		services.Conversations,
	)
	servers.HTTP.Observability = initObservability(ctx, logger.WithGroup("http"), clients, cfg)

	return &servers
}
