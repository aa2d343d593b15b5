package storage

import (
	"context"
	"fmt"
)

// schema применяется на старте; оригинальная установка мигрировала
// таблицы автоматически, поэтому отдельного каталога миграций нет.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS bot_config (
		id INTEGER PRIMARY KEY,
		enabled INTEGER NOT NULL DEFAULT 0,
		bot_token TEXT NOT NULL DEFAULT '',
		webhook_domain TEXT NOT NULL DEFAULT '',
		webhook_secret TEXT NOT NULL DEFAULT '',
		yookassa_shop_id TEXT NOT NULL DEFAULT '',
		yookassa_secret_key TEXT NOT NULL DEFAULT '',
		success_redirect_url TEXT NOT NULL DEFAULT '',
		failure_redirect_url TEXT NOT NULL DEFAULT '',
		mini_app_url TEXT NOT NULL DEFAULT '',
		download_links TEXT NOT NULL DEFAULT '{}',
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS tariffs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		price_minor INTEGER NOT NULL,
		currency TEXT NOT NULL,
		duration_days INTEGER NOT NULL DEFAULT 0,
		sort_order INTEGER NOT NULL DEFAULT 0,
		is_active INTEGER NOT NULL DEFAULT 1,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS tariff_buttons (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		tariff_id INTEGER NOT NULL REFERENCES tariffs(id) ON DELETE CASCADE,
		label TEXT NOT NULL,
		action TEXT NOT NULL,
		payload TEXT NOT NULL DEFAULT '',
		sort_order INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS broadcasts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT NOT NULL,
		body TEXT NOT NULL,
		editable INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL DEFAULT 'draft',
		audience TEXT NOT NULL DEFAULT '',
		sent_at TIMESTAMP,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS broadcast_deliveries (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		broadcast_id INTEGER NOT NULL REFERENCES broadcasts(id) ON DELETE CASCADE,
		user_id INTEGER NOT NULL,
		telegram_message_id TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		error_message TEXT NOT NULL DEFAULT '',
		sent_at TIMESTAMP,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL,
		UNIQUE(broadcast_id, user_id)
	)`,
	`CREATE TABLE IF NOT EXISTS promo_codes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		code TEXT NOT NULL UNIQUE,
		description TEXT NOT NULL DEFAULT '',
		discount_percent INTEGER NOT NULL DEFAULT 0,
		free_days INTEGER NOT NULL DEFAULT 0,
		max_uses INTEGER NOT NULL DEFAULT 0,
		used_count INTEGER NOT NULL DEFAULT 0,
		is_active INTEGER NOT NULL DEFAULT 1,
		expires_at TIMESTAMP,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS user_profiles (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		telegram_id INTEGER NOT NULL UNIQUE,
		username TEXT NOT NULL DEFAULT '',
		first_name TEXT NOT NULL DEFAULT '',
		last_name TEXT NOT NULL DEFAULT '',
		language TEXT NOT NULL DEFAULT '',
		ever_paid INTEGER NOT NULL DEFAULT 0,
		active_subscription INTEGER NOT NULL DEFAULT 0,
		subscription_expires_at TIMESTAMP,
		last_tariff_id INTEGER,
		last_interaction_at TIMESTAMP NOT NULL,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS user_messages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL REFERENCES user_profiles(id) ON DELETE CASCADE,
		direction TEXT NOT NULL,
		body TEXT NOT NULL,
		telegram_message_id TEXT NOT NULL DEFAULT '',
		seen INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_user_messages_user ON user_messages(user_id, created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_deliveries_status ON broadcast_deliveries(status)`,
}

func (s *storageImpl) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
