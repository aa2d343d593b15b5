package botconfig

import "context"

type (
	Storage interface {
		GetBotConfig(ctx context.Context) (*Config, error)
		SaveBotConfig(ctx context.Context, cfg Config) (*Config, error)
	}
)
