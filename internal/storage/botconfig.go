package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"tgadmin/internal/stories/botconfig"
)

const botConfigTable = "bot_config"

// Конфигурация живёт в единственной строке с фиксированным id.
const botConfigRowID = 1

var botConfigRowFields = fields(botConfigRow{})

type botConfigRow struct {
	ID                 int64     `db:"id"`
	Enabled            bool      `db:"enabled"`
	BotToken           string    `db:"bot_token"`
	WebhookDomain      string    `db:"webhook_domain"`
	WebhookSecret      string    `db:"webhook_secret"`
	YooKassaShopID     string    `db:"yookassa_shop_id"`
	YooKassaSecretKey  string    `db:"yookassa_secret_key"`
	SuccessRedirectURL string    `db:"success_redirect_url"`
	FailureRedirectURL string    `db:"failure_redirect_url"`
	MiniAppURL         string    `db:"mini_app_url"`
	DownloadLinks      string    `db:"download_links"`
	CreatedAt          time.Time `db:"created_at"`
	UpdatedAt          time.Time `db:"updated_at"`
}

func (r botConfigRow) ToModel() *botconfig.Config {
	links := map[string]string{}
	if r.DownloadLinks != "" {
		// битый blob не валит чтение конфига
		_ = json.Unmarshal([]byte(r.DownloadLinks), &links)
	}
	return &botconfig.Config{
		ID:                 r.ID,
		Enabled:            r.Enabled,
		BotToken:           r.BotToken,
		WebhookDomain:      r.WebhookDomain,
		WebhookSecret:      r.WebhookSecret,
		YooKassaShopID:     r.YooKassaShopID,
		YooKassaSecretKey:  r.YooKassaSecretKey,
		SuccessRedirectURL: r.SuccessRedirectURL,
		FailureRedirectURL: r.FailureRedirectURL,
		MiniAppURL:         r.MiniAppURL,
		DownloadLinks:      links,
		CreatedAt:          r.CreatedAt,
		UpdatedAt:          r.UpdatedAt,
	}
}

func (s *storageImpl) GetBotConfig(ctx context.Context) (*botconfig.Config, error) {
	q, args, err := s.stmpBuilder().
		Select(botConfigRowFields).
		From(botConfigTable).
		Where(sq.Eq{"id": botConfigRowID}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build sql query: %w", err)
	}

	row := s.db.QueryRowContext(ctx, q, args...)

	var r botConfigRow
	err = row.Scan(&r.ID, &r.Enabled, &r.BotToken, &r.WebhookDomain, &r.WebhookSecret,
		&r.YooKassaShopID, &r.YooKassaSecretKey, &r.SuccessRedirectURL, &r.FailureRedirectURL,
		&r.MiniAppURL, &r.DownloadLinks, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("row.Scan: %w", err)
	}

	return r.ToModel(), nil
}

func (s *storageImpl) SaveBotConfig(ctx context.Context, cfg botconfig.Config) (*botconfig.Config, error) {
	links := cfg.DownloadLinks
	if links == nil {
		links = map[string]string{}
	}
	rawLinks, err := json.Marshal(links)
	if err != nil {
		return nil, fmt.Errorf("marshal download links: %w", err)
	}

	existing, err := s.GetBotConfig(ctx)
	if err != nil {
		return nil, err
	}

	params := map[string]interface{}{
		"enabled":              cfg.Enabled,
		"bot_token":            cfg.BotToken,
		"webhook_domain":       cfg.WebhookDomain,
		"webhook_secret":       cfg.WebhookSecret,
		"yookassa_shop_id":     cfg.YooKassaShopID,
		"yookassa_secret_key":  cfg.YooKassaSecretKey,
		"success_redirect_url": cfg.SuccessRedirectURL,
		"failure_redirect_url": cfg.FailureRedirectURL,
		"mini_app_url":         cfg.MiniAppURL,
		"download_links":       string(rawLinks),
		"updated_at":           s.now(),
	}

	var q string
	var args []interface{}
	if existing == nil {
		params["id"] = botConfigRowID
		params["created_at"] = s.now()
		q, args, err = s.stmpBuilder().
			Insert(botConfigTable).
			SetMap(params).
			ToSql()
	} else {
		q, args, err = s.stmpBuilder().
			Update(botConfigTable).
			SetMap(params).
			Where(sq.Eq{"id": botConfigRowID}).
			ToSql()
	}
	if err != nil {
		return nil, fmt.Errorf("build sql query: %w", err)
	}

	if _, err = s.db.ExecContext(ctx, q, args...); err != nil {
		return nil, fmt.Errorf("db.ExecContext: %w", err)
	}

	return s.GetBotConfig(ctx)
}
