package environment

import (
	"context"
	"log/slog"

	"tgadmin/internal/config"
	"tgadmin/internal/localization"
	"tgadmin/internal/storage"
	"tgadmin/internal/stories/adminstate"
	"tgadmin/internal/stories/botconfig"
	"tgadmin/internal/stories/broadcasts"
	"tgadmin/internal/stories/changefeed"
	"tgadmin/internal/stories/conversations"
	"tgadmin/internal/stories/promos"
	"tgadmin/internal/stories/tariffs"
	"tgadmin/internal/telegram"
	"tgadmin/internal/workers"
	"tgadmin/internal/workers/deliveryretry"
	"tgadmin/internal/workers/promoexpiry"

	"github.com/pkg/errors"
)

type Services struct {
	BotConfig     *botconfig.Service
	Tariffs       *tariffs.Service
	Broadcasts    *broadcasts.Service
	Promos        *promos.Service
	Conversations *conversations.Service
	AdminState    *adminstate.Service

	BotManager *telegram.Manager
	Workers    *workers.Manager
}

func newServices(ctx context.Context, clients *Clients, cfg *config.Config, logger *slog.Logger) (*Services, error) {
	var s Services

	storageImpl := storage.New(clients.SQLiteDB.DB)
	if err := storageImpl.Migrate(ctx); err != nil {
		return nil, errors.Wrap(err, "migrate storage")
	}

	loc, err := localization.NewService()
	if err != nil {
		return nil, errors.Wrap(err, "load translations")
	}

	// Изменения конфига и тарифов дёргают менеджера бота
	changes := changefeed.New()

	// Общая точка отправки: живёт дольше конкретного клиента бота
	messenger := telegram.NewMessenger()

	s.BotConfig = botconfig.NewService(storageImpl, changes)
	s.Tariffs = tariffs.NewService(storageImpl, changes)
	s.Promos = promos.NewService(storageImpl)
	s.Conversations = conversations.NewService(storageImpl, messenger)
	s.Broadcasts = broadcasts.NewService(storageImpl, s.Conversations, s.Conversations, messenger, logger)
	s.AdminState = adminstate.NewService(s.BotConfig, s.Tariffs, s.Broadcasts, s.Promos, s.Conversations)

	router := telegram.NewRouter(s.BotConfig, s.Tariffs, s.Promos, s.Conversations, loc, logger)
	s.BotManager = telegram.NewManager(cfg.Telegram, s.BotConfig, router, messenger, logger)
	changes.Register(s.BotManager.TriggerRefresh)

	s.Workers = workers.NewManager(logger,
		deliveryretry.NewWorker(s.Broadcasts, logger),
		promoexpiry.NewWorker(s.Promos, logger),
	)

	return &s, nil
}
