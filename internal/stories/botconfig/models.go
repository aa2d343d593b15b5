package botconfig

import (
	"errors"
	"strings"
	"time"
)

// Config — единственная строка конфигурации бота (id = 1).
type Config struct {
	ID                 int64
	Enabled            bool
	BotToken           string
	WebhookDomain      string
	WebhookSecret      string
	YooKassaShopID     string
	YooKassaSecretKey  string
	SuccessRedirectURL string
	FailureRedirectURL string
	MiniAppURL         string
	DownloadLinks      map[string]string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Payload приходит из консоли. BotToken и YooKassaSecretKey write-only:
// пустое значение означает "оставить как есть", а не "очистить".
type Payload struct {
	Enabled            bool              `json:"enabled"`
	BotToken           string            `json:"botToken"`
	WebhookDomain      string            `json:"webhookDomain"`
	WebhookSecret      string            `json:"webhookSecret"`
	YooKassaShopID     string            `json:"yooKassaShopId"`
	YooKassaSecretKey  string            `json:"yooKassaSecretKey"`
	SuccessRedirectURL string            `json:"successRedirectUrl"`
	FailureRedirectURL string            `json:"failureRedirectUrl"`
	MiniAppURL         string            `json:"miniAppUrl"`
	DownloadLinks      map[string]string `json:"downloadLinks"`
}

// DTO отдаётся наружу: секретов нет, токен только в маскированном виде.
type DTO struct {
	Enabled            bool              `json:"enabled"`
	BotTokenMasked     string            `json:"botTokenMasked"`
	WebhookDomain      string            `json:"webhookDomain"`
	WebhookSecret      string            `json:"webhookSecret"`
	YooKassaShopID     string            `json:"yooKassaShopId"`
	SuccessRedirectURL string            `json:"successRedirectUrl"`
	FailureRedirectURL string            `json:"failureRedirectUrl"`
	MiniAppURL         string            `json:"miniAppUrl"`
	DownloadLinks      map[string]string `json:"downloadLinks"`
}

// validateMerged проверяет конфиг после слияния payload с сохранённым
// состоянием: включённый бот обязан иметь токен и платёжные реквизиты.
func validateMerged(cfg *Config) error {
	if !cfg.Enabled {
		return nil
	}
	if strings.TrimSpace(cfg.BotToken) == "" {
		return errors.New("bot token is required when bot is enabled")
	}
	if strings.TrimSpace(cfg.YooKassaShopID) == "" {
		return errors.New("yookassa shop id is required when bot is enabled")
	}
	if strings.TrimSpace(cfg.YooKassaSecretKey) == "" {
		return errors.New("yookassa secret key is required when bot is enabled")
	}
	return nil
}

func maskToken(token string) string {
	if token == "" {
		return ""
	}
	if len(token) <= 8 {
		return strings.Repeat("*", len(token))
	}
	return token[:4] + "***" + token[len(token)-4:]
}

func newDTO(cfg *Config) *DTO {
	if cfg == nil {
		return nil
	}
	links := cfg.DownloadLinks
	if links == nil {
		links = map[string]string{}
	}
	return &DTO{
		Enabled:            cfg.Enabled,
		BotTokenMasked:     maskToken(cfg.BotToken),
		WebhookDomain:      cfg.WebhookDomain,
		WebhookSecret:      cfg.WebhookSecret,
		YooKassaShopID:     cfg.YooKassaShopID,
		SuccessRedirectURL: cfg.SuccessRedirectURL,
		FailureRedirectURL: cfg.FailureRedirectURL,
		MiniAppURL:         cfg.MiniAppURL,
		DownloadLinks:      links,
	}
}
