package botconfig

import (
	"context"
	"errors"
	"strings"

	"tgadmin/internal/stories/changefeed"
)

type Service struct {
	storage Storage
	changes *changefeed.Feed
}

func NewService(storage Storage, changes *changefeed.Feed) *Service {
	return &Service{
		storage: storage,
		changes: changes,
	}
}

// Get возвращает сохранённый конфиг, создавая пустую строку при первом
// обращении. Содержит секреты — наружу уходит только через DTO.
func (s *Service) Get(ctx context.Context) (*Config, error) {
	cfg, err := s.storage.GetBotConfig(ctx)
	if err != nil {
		return nil, err
	}
	if cfg != nil {
		return cfg, nil
	}
	return s.storage.SaveBotConfig(ctx, Config{DownloadLinks: map[string]string{}})
}

func (s *Service) GetDTO(ctx context.Context) (*DTO, error) {
	cfg, err := s.Get(ctx)
	if err != nil {
		return nil, err
	}
	return newDTO(cfg), nil
}

// Update сливает payload с сохранённым конфигом. Пустой токен или
// секретный ключ означают "не менять" — консоль их никогда не предзаполняет.
func (s *Service) Update(ctx context.Context, payload *Payload) (*DTO, error) {
	if payload == nil {
		return nil, errors.New("payload is required")
	}
	cfg, err := s.Get(ctx)
	if err != nil {
		return nil, err
	}

	cfg.Enabled = payload.Enabled
	if token := strings.TrimSpace(payload.BotToken); token != "" {
		cfg.BotToken = token
	}
	if key := strings.TrimSpace(payload.YooKassaSecretKey); key != "" {
		cfg.YooKassaSecretKey = key
	}
	cfg.WebhookDomain = strings.TrimSpace(payload.WebhookDomain)
	cfg.WebhookSecret = strings.TrimSpace(payload.WebhookSecret)
	cfg.YooKassaShopID = strings.TrimSpace(payload.YooKassaShopID)
	cfg.SuccessRedirectURL = strings.TrimSpace(payload.SuccessRedirectURL)
	cfg.FailureRedirectURL = strings.TrimSpace(payload.FailureRedirectURL)
	cfg.MiniAppURL = strings.TrimSpace(payload.MiniAppURL)
	cfg.DownloadLinks = cleanLinks(payload.DownloadLinks)

	if err := validateMerged(cfg); err != nil {
		return nil, err
	}

	saved, err := s.storage.SaveBotConfig(ctx, *cfg)
	if err != nil {
		return nil, err
	}
	s.changes.Notify()
	return newDTO(saved), nil
}

func cleanLinks(links map[string]string) map[string]string {
	result := map[string]string{}
	for platform, url := range links {
		platform = strings.TrimSpace(platform)
		url = strings.TrimSpace(url)
		if platform == "" || url == "" {
			continue
		}
		result[platform] = url
	}
	return result
}
