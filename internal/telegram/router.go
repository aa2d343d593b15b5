package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	infratg "tgadmin/internal/infra/telegram"
	"tgadmin/internal/infra/yookassa"
	"tgadmin/internal/localization"
	"tgadmin/internal/stories/conversations"
	"tgadmin/internal/stories/promos"
	"tgadmin/internal/stories/tariffs"
)

const buyCallbackPrefix = "buy:"

// Router разбирает обновления запущенного бота: /start, /promo,
// callback покупки тарифа и произвольный текст в поддержку.
type Router struct {
	config        configProvider
	tariffs       tariffProvider
	promos        promoRedeemer
	conversations inboundRecorder
	loc           *localization.Service
	logger        *slog.Logger
}

func NewRouter(
	config configProvider,
	tariffService tariffProvider,
	promoService promoRedeemer,
	conversationService inboundRecorder,
	loc *localization.Service,
	logger *slog.Logger,
) *Router {
	return &Router{
		config:        config,
		tariffs:       tariffService,
		promos:        promoService,
		conversations: conversationService,
		loc:           loc,
		logger:        logger,
	}
}

func (r *Router) Route(ctx context.Context, client *infratg.Client, update *tgbotapi.Update) error {
	if update.CallbackQuery != nil {
		return r.handleCallback(ctx, client, update.CallbackQuery)
	}
	if update.Message == nil {
		return nil
	}

	msg := update.Message
	lang := ""
	if msg.From != nil {
		lang = msg.From.LanguageCode
	}

	if msg.IsCommand() {
		switch msg.Command() {
		case "start":
			return r.handleStart(ctx, client, msg, lang)
		case "promo":
			return r.handlePromo(ctx, client, msg, lang)
		}
	}

	return r.handleText(ctx, client, msg, lang)
}

func (r *Router) handleStart(ctx context.Context, client *infratg.Client, msg *tgbotapi.Message, lang string) error {
	name := ""
	if msg.From != nil {
		name = msg.From.FirstName
	}

	active, err := r.tariffs.ListActive(ctx)
	if err != nil {
		return err
	}
	if len(active) == 0 {
		_, err = client.SendMessage(ctx, msg.Chat.ID, r.loc.Get(lang, "start.no_tariffs", nil))
		return err
	}

	var lines []string
	lines = append(lines, r.loc.Get(lang, "start.greeting", map[string]interface{}{"name": name}))
	for _, tariff := range active {
		lines = append(lines, r.loc.Get(lang, "tariffs.price_line", map[string]interface{}{
			"title":    tariff.Title,
			"price":    formatPrice(tariff.PriceMinor),
			"currency": tariff.Currency,
			"days":     tariff.DurationDays,
		}))
	}

	return client.SendKeyboard(ctx, msg.Chat.ID, strings.Join(lines, "\n"), r.tariffKeyboard(ctx, active, lang))
}

// tariffKeyboard собирает inline-клавиатуру: кнопка покупки на тариф,
// его настроенные кнопки и общие ссылки на скачивание из конфига.
func (r *Router) tariffKeyboard(ctx context.Context, active []*tariffs.Tariff, lang string) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, tariff := range active {
		buy := tgbotapi.NewInlineKeyboardButtonData(
			r.loc.Get(lang, "tariffs.buy_button", map[string]interface{}{"title": tariff.Title}),
			fmt.Sprintf("%s%d", buyCallbackPrefix, tariff.ID),
		)
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(buy))

		var custom []tgbotapi.InlineKeyboardButton
		for _, button := range tariff.Buttons {
			if button.Action == "url" && button.Payload != "" {
				custom = append(custom, tgbotapi.NewInlineKeyboardButtonURL(button.Label, button.Payload))
				continue
			}
			custom = append(custom, tgbotapi.NewInlineKeyboardButtonData(
				button.Label,
				fmt.Sprintf("%s:%s", button.Action, button.Payload),
			))
		}
		if len(custom) > 0 {
			rows = append(rows, custom)
		}
	}

	if cfg, err := r.config.Get(ctx); err == nil {
		var links []tgbotapi.InlineKeyboardButton
		for platform, url := range cfg.DownloadLinks {
			links = append(links, tgbotapi.NewInlineKeyboardButtonURL(platform, url))
		}
		if len(links) > 0 {
			rows = append(rows, links)
		}
	}

	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func (r *Router) handleCallback(ctx context.Context, client *infratg.Client, query *tgbotapi.CallbackQuery) error {
	// Снимаем "часики" на кнопке в любом случае
	defer func() {
		if _, err := client.Request(tgbotapi.NewCallback(query.ID, "")); err != nil {
			r.logger.Warn("callback ack failed", slog.Any("error", err))
		}
	}()

	if !strings.HasPrefix(query.Data, buyCallbackPrefix) || query.Message == nil {
		return nil
	}

	lang := query.From.LanguageCode
	chatID := query.Message.Chat.ID

	tariffID, err := strconv.ParseInt(strings.TrimPrefix(query.Data, buyCallbackPrefix), 10, 64)
	if err != nil {
		return fmt.Errorf("parse tariff id: %w", err)
	}

	url, err := r.createPaymentLink(ctx, tariffID, query.From.ID)
	if err != nil {
		r.logger.Error("payment link failed",
			slog.Int64("tariff_id", tariffID),
			slog.Any("error", err))
		_, sendErr := client.SendMessage(ctx, chatID, r.loc.Get(lang, "payment.failed", nil))
		return sendErr
	}

	_, err = client.SendMessage(ctx, chatID, r.loc.Get(lang, "payment.link", map[string]interface{}{"url": url}))
	return err
}

// createPaymentLink создаёт платёж в ЮKassa на сумму тарифа.
// Клиент собирается на месте: реквизиты живут в конфиге и могут
// поменяться между покупками.
func (r *Router) createPaymentLink(ctx context.Context, tariffID, telegramID int64) (string, error) {
	tariff, err := r.tariffs.Get(ctx, tariffID)
	if err != nil {
		return "", err
	}
	if tariff == nil || !tariff.Active {
		return "", fmt.Errorf("tariff %d is not available", tariffID)
	}

	cfg, err := r.config.Get(ctx)
	if err != nil {
		return "", err
	}
	if cfg.YooKassaShopID == "" || cfg.YooKassaSecretKey == "" {
		return "", errors.New("payment credentials are not configured")
	}

	kassa := yookassa.NewClient(cfg.YooKassaShopID, cfg.YooKassaSecretKey, cfg.SuccessRedirectURL, r.logger)
	payment, err := kassa.CreatePayment(ctx, float64(tariff.PriceMinor)/100, tariff.Currency, tariff.Title, map[string]string{
		"tariff_id":   strconv.FormatInt(tariff.ID, 10),
		"telegram_id": strconv.FormatInt(telegramID, 10),
	})
	if err != nil {
		return "", err
	}

	url := yookassa.ExtractPaymentURL(payment)
	if url == "" {
		return "", errors.New("payment confirmation url is empty")
	}
	return url, nil
}

func (r *Router) handlePromo(ctx context.Context, client *infratg.Client, msg *tgbotapi.Message, lang string) error {
	code := strings.TrimSpace(msg.CommandArguments())
	if code == "" {
		_, err := client.SendMessage(ctx, msg.Chat.ID, r.loc.Get(lang, "promo.usage", nil))
		return err
	}

	promo, err := r.promos.Redeem(ctx, code)
	if err != nil {
		key := "errors.generic"
		switch {
		case errors.Is(err, promos.ErrNotFound):
			key = "promo.not_found"
		case errors.Is(err, promos.ErrNotActive):
			key = "promo.not_active"
		case errors.Is(err, promos.ErrExpired):
			key = "promo.expired"
		case errors.Is(err, promos.ErrExhausted):
			key = "promo.exhausted"
		default:
			r.logger.Error("promo redeem failed", slog.Any("error", err))
		}
		_, sendErr := client.SendMessage(ctx, msg.Chat.ID, r.loc.Get(lang, key, nil))
		return sendErr
	}

	_, err = client.SendMessage(ctx, msg.Chat.ID, r.loc.Get(lang, "promo.applied", map[string]interface{}{
		"code":     promo.Code,
		"discount": promo.DiscountPercent,
		"days":     promo.FreeDays,
	}))
	return err
}

// handleText пишет любое текстовое сообщение во входящие поддержки.
func (r *Router) handleText(ctx context.Context, client *infratg.Client, msg *tgbotapi.Message, lang string) error {
	if msg.From == nil || strings.TrimSpace(msg.Text) == "" {
		return nil
	}

	input := &conversations.Inbound{
		TelegramID: msg.From.ID,
		Username:   msg.From.UserName,
		FirstName:  msg.From.FirstName,
		LastName:   msg.From.LastName,
		Language:   lang,
		Message:    msg.Text,
		MessageID:  strconv.Itoa(msg.MessageID),
	}
	if err := r.conversations.RecordInbound(ctx, input); err != nil {
		return err
	}

	_, err := client.SendMessage(ctx, msg.Chat.ID, r.loc.Get(lang, "support.received", nil))
	return err
}

func formatPrice(minor int64) string {
	return fmt.Sprintf("%d.%02d", minor/100, minor%100)
}
