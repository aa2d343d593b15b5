package telegram

import (
	"context"

	"tgadmin/internal/stories/botconfig"
	"tgadmin/internal/stories/conversations"
	"tgadmin/internal/stories/promos"
	"tgadmin/internal/stories/tariffs"
)

type (
	configProvider interface {
		Get(ctx context.Context) (*botconfig.Config, error)
	}

	tariffProvider interface {
		ListActive(ctx context.Context) ([]*tariffs.Tariff, error)
		Get(ctx context.Context, id int64) (*tariffs.Tariff, error)
	}

	promoRedeemer interface {
		Redeem(ctx context.Context, code string) (*promos.Promo, error)
	}

	inboundRecorder interface {
		RecordInbound(ctx context.Context, input *conversations.Inbound) error
	}
)
