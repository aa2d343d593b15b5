package telegram

import (
	"context"
	"log/slog"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"tgadmin/internal/config"
	infratg "tgadmin/internal/infra/telegram"
)

// Manager держит жизненный цикл бота в согласии с сохранённым
// конфигом: включили в панели — поднимает клиента, выключили или
// сменили токен — останавливает и пересоздаёт. Изменения приходят
// через TriggerRefresh (changefeed) и страховочный resync-таймер.
type Manager struct {
	cfg       config.TelegramConfig
	configSvc configProvider
	router    *Router
	messenger *Messenger
	logger    *slog.Logger

	refreshCh chan struct{}

	mu         sync.Mutex
	client     *infratg.Client
	token      string
	stopClient context.CancelFunc
}

func NewManager(
	cfg config.TelegramConfig,
	configSvc configProvider,
	router *Router,
	messenger *Messenger,
	logger *slog.Logger,
) *Manager {
	return &Manager{
		cfg:       cfg,
		configSvc: configSvc,
		router:    router,
		messenger: messenger,
		logger:    logger,
		refreshCh: make(chan struct{}, 1),
	}
}

// TriggerRefresh просит менеджера перечитать конфиг. Неблокирующий:
// лишние сигналы схлопываются в один.
func (m *Manager) TriggerRefresh() {
	select {
	case m.refreshCh <- struct{}{}:
	default:
	}
}

// Run крутит цикл синхронизации до отмены контекста.
func (m *Manager) Run(ctx context.Context) {
	m.refresh(ctx)

	ticker := time.NewTicker(m.cfg.SyncInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.shutdown()
			return
		case <-m.refreshCh:
			m.refresh(ctx)
		case <-ticker.C:
			m.refresh(ctx)
		}
	}
}

func (m *Manager) refresh(ctx context.Context) {
	cfg, err := m.configSvc.Get(ctx)
	if err != nil {
		m.logger.Error("bot config read failed", slog.Any("error", err))
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	wantRunning := cfg.Enabled && cfg.BotToken != ""
	if !wantRunning {
		m.stopLocked()
		return
	}
	if m.client != nil && m.token == cfg.BotToken {
		return
	}

	// Токен сменился — старый клиент глушим перед стартом нового
	m.stopLocked()

	client, err := infratg.NewClient(cfg.BotToken, m.logger)
	if err != nil {
		m.logger.Error("bot start failed", slog.Any("error", err))
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	if err := client.Start(runCtx); err != nil {
		cancel()
		m.logger.Error("bot polling start failed", slog.Any("error", err))
		return
	}

	m.client = client
	m.token = cfg.BotToken
	m.stopClient = cancel
	m.messenger.set(client)

	go m.consume(runCtx, client)
}

func (m *Manager) consume(ctx context.Context, client *infratg.Client) {
	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-client.GetUpdates():
			if !ok {
				return
			}
			m.route(ctx, client, &update)
		}
	}
}

func (m *Manager) route(ctx context.Context, client *infratg.Client, update *tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("update handler panicked", slog.Any("panic", r))
		}
	}()

	if err := m.router.Route(ctx, client, update); err != nil {
		m.logger.Error("update handling failed", slog.Any("error", err))
	}
}

func (m *Manager) shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopLocked()
}

func (m *Manager) stopLocked() {
	if m.client == nil {
		return
	}
	m.messenger.set(nil)
	if m.stopClient != nil {
		m.stopClient()
	}
	m.client.Stop()
	m.client = nil
	m.token = ""
	m.stopClient = nil
}
