package console

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"tgadmin/internal/stories/botconfig"
	"tgadmin/internal/stories/broadcasts"
	"tgadmin/internal/stories/promos"
	"tgadmin/internal/stories/tariffs"
)

// dateInputLayout — формат полей даты, как у <input type="date">.
const dateInputLayout = "2006-01-02"

// FormatPrice переводит минорные единицы в десятичную строку: 1999 → "19.99".
func FormatPrice(minor int64) string {
	return fmt.Sprintf("%d.%02d", minor/100, minor%100)
}

// ParsePrice — обратное преобразование; цена обязана быть
// положительным числом.
func ParsePrice(value string) (int64, error) {
	value = strings.TrimSpace(strings.ReplaceAll(value, ",", "."))
	if value == "" {
		return 0, errors.New("price is required")
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, errors.New("price must be a number")
	}
	minor := int64(math.Round(parsed * 100))
	if minor <= 0 {
		return 0, errors.New("price must be greater than zero")
	}
	return minor, nil
}

// LinkRow — строка редактора ссылок на скачивание.
type LinkRow struct {
	Platform string
	URL      string
}

// ConfigForm повторяет форму настроек. Токен и секретный ключ
// write-only: Populate их никогда не заполняет, пустая отправка
// означает "оставить как есть".
type ConfigForm struct {
	Enabled            bool
	BotToken           string
	WebhookDomain      string
	WebhookSecret      string
	YooKassaShopID     string
	YooKassaSecretKey  string
	SuccessRedirectURL string
	FailureRedirectURL string
	MiniAppURL         string
	Links              []LinkRow
}

func (f *ConfigForm) Reset() {
	*f = ConfigForm{Links: []LinkRow{{}}}
}

func (f *ConfigForm) Populate(dto *botconfig.DTO) {
	f.Reset()
	if dto == nil {
		return
	}
	f.Enabled = dto.Enabled
	f.WebhookDomain = dto.WebhookDomain
	f.WebhookSecret = dto.WebhookSecret
	f.YooKassaShopID = dto.YooKassaShopID
	f.SuccessRedirectURL = dto.SuccessRedirectURL
	f.FailureRedirectURL = dto.FailureRedirectURL
	f.MiniAppURL = dto.MiniAppURL

	if len(dto.DownloadLinks) > 0 {
		platforms := make([]string, 0, len(dto.DownloadLinks))
		for platform := range dto.DownloadLinks {
			platforms = append(platforms, platform)
		}
		sort.Strings(platforms)

		f.Links = f.Links[:0]
		for _, platform := range platforms {
			f.Links = append(f.Links, LinkRow{Platform: platform, URL: dto.DownloadLinks[platform]})
		}
	}
}

// AddLinkRow добавляет пустую строку редактора.
func (f *ConfigForm) AddLinkRow() {
	f.Links = append(f.Links, LinkRow{})
}

// RemoveLinkRow убирает строку; редактор никогда не остаётся без
// строк — на месте последней появляется пустая.
func (f *ConfigForm) RemoveLinkRow(index int) {
	if index < 0 || index >= len(f.Links) {
		return
	}
	f.Links = append(f.Links[:index], f.Links[index+1:]...)
	if len(f.Links) == 0 {
		f.Links = []LinkRow{{}}
	}
}

// Collect собирает payload; пустые строки редактора отбрасываются.
func (f *ConfigForm) Collect() *botconfig.Payload {
	links := map[string]string{}
	for _, row := range f.Links {
		platform := strings.TrimSpace(row.Platform)
		url := strings.TrimSpace(row.URL)
		if platform == "" || url == "" {
			continue
		}
		links[platform] = url
	}

	return &botconfig.Payload{
		Enabled:            f.Enabled,
		BotToken:           strings.TrimSpace(f.BotToken),
		WebhookDomain:      strings.TrimSpace(f.WebhookDomain),
		WebhookSecret:      strings.TrimSpace(f.WebhookSecret),
		YooKassaShopID:     strings.TrimSpace(f.YooKassaShopID),
		YooKassaSecretKey:  strings.TrimSpace(f.YooKassaSecretKey),
		SuccessRedirectURL: strings.TrimSpace(f.SuccessRedirectURL),
		FailureRedirectURL: strings.TrimSpace(f.FailureRedirectURL),
		MiniAppURL:         strings.TrimSpace(f.MiniAppURL),
		DownloadLinks:      links,
	}
}

// TariffForm — форма тарифа; цена хранится строкой, как в поле ввода.
type TariffForm struct {
	ID           int64
	Title        string
	Description  string
	Price        string
	Currency     string
	DurationDays int
	SortOrder    int
	Active       bool
}

func (f *TariffForm) Reset() {
	*f = TariffForm{Currency: "RUB", Active: true}
}

func (f *TariffForm) Populate(dto *tariffs.DTO) {
	f.Reset()
	if dto == nil {
		return
	}
	f.ID = dto.ID
	f.Title = dto.Title
	f.Description = dto.Description
	f.Price = FormatPrice(dto.PriceMinor)
	f.Currency = dto.Currency
	f.DurationDays = dto.DurationDays
	f.SortOrder = dto.SortOrder
	f.Active = dto.Active
}

// Collect валидирует до сети: нулевая цена или пустой заголовок не
// доходят до сервера.
func (f *TariffForm) Collect() (*tariffs.Payload, error) {
	if strings.TrimSpace(f.Title) == "" {
		return nil, errors.New("tariff title is required")
	}
	if strings.TrimSpace(f.Currency) == "" {
		return nil, errors.New("currency is required")
	}
	minor, err := ParsePrice(f.Price)
	if err != nil {
		return nil, err
	}
	if f.DurationDays < 0 {
		return nil, errors.New("duration must be zero or positive")
	}

	return &tariffs.Payload{
		ID:           f.ID,
		Title:        strings.TrimSpace(f.Title),
		Description:  strings.TrimSpace(f.Description),
		PriceMinor:   minor,
		Currency:     strings.ToUpper(strings.TrimSpace(f.Currency)),
		DurationDays: f.DurationDays,
		SortOrder:    f.SortOrder,
		Active:       f.Active,
	}, nil
}

type ButtonForm struct {
	ID        int64
	TariffID  int64
	Label     string
	Action    string
	Payload   string
	SortOrder int
}

func (f *ButtonForm) Reset(tariffID int64) {
	*f = ButtonForm{TariffID: tariffID}
}

func (f *ButtonForm) Populate(dto *tariffs.ButtonDTO) {
	if dto == nil {
		return
	}
	f.ID = dto.ID
	f.TariffID = dto.TariffID
	f.Label = dto.Label
	f.Action = dto.Action
	f.Payload = dto.Payload
	f.SortOrder = dto.SortOrder
}

func (f *ButtonForm) Collect() (*tariffs.ButtonPayload, error) {
	if strings.TrimSpace(f.Label) == "" {
		return nil, errors.New("button label is required")
	}
	if strings.TrimSpace(f.Action) == "" {
		return nil, errors.New("button action is required")
	}
	if f.ID == 0 && f.TariffID == 0 {
		return nil, errors.New("select a tariff first")
	}

	return &tariffs.ButtonPayload{
		ID:        f.ID,
		TariffID:  f.TariffID,
		Label:     strings.TrimSpace(f.Label),
		Action:    strings.TrimSpace(f.Action),
		Payload:   strings.TrimSpace(f.Payload),
		SortOrder: f.SortOrder,
	}, nil
}

// BroadcastForm — черновик рассылки. Чекбокс "всем пользователям"
// не очищает галочки тарифов: они остаются в payload, сервер их
// игнорирует при allUsers.
type BroadcastForm struct {
	ID                     int64
	Title                  string
	Body                   string
	Editable               bool
	AllUsers               bool
	TariffIDs              map[int64]bool
	IncludeNeverSubscribed bool
	IncludeExpired         bool
}

func (f *BroadcastForm) Reset() {
	*f = BroadcastForm{TariffIDs: map[int64]bool{}}
}

func (f *BroadcastForm) Populate(dto *broadcasts.DTO) {
	f.Reset()
	if dto == nil {
		return
	}
	f.ID = dto.ID
	f.Title = dto.Title
	f.Body = dto.Body
	f.Editable = dto.Editable
	f.AllUsers = dto.Audience.AllUsers
	f.IncludeNeverSubscribed = dto.Audience.IncludeNeverSubscribed
	f.IncludeExpired = dto.Audience.IncludeExpired
	for _, id := range dto.Audience.TariffIDs {
		f.TariffIDs[id] = true
	}
}

func (f *BroadcastForm) Collect() (*broadcasts.Payload, error) {
	if strings.TrimSpace(f.Title) == "" {
		return nil, errors.New("broadcast title is required")
	}
	if strings.TrimSpace(f.Body) == "" {
		return nil, errors.New("broadcast body is required")
	}

	var ids []int64
	for id, checked := range f.TariffIDs {
		if checked && id != 0 {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	if !f.AllUsers && len(ids) == 0 && !f.IncludeNeverSubscribed && !f.IncludeExpired {
		return nil, errors.New("select at least one audience filter")
	}

	return &broadcasts.Payload{
		ID:       f.ID,
		Title:    strings.TrimSpace(f.Title),
		Body:     strings.TrimSpace(f.Body),
		Editable: f.Editable,
		Audience: broadcasts.Audience{
			AllUsers:               f.AllUsers,
			TariffIDs:              ids,
			IncludeNeverSubscribed: f.IncludeNeverSubscribed,
			IncludeExpired:         f.IncludeExpired,
		},
	}, nil
}

// PromoForm — форма промокода. Чекбокс "бессрочный" заставляет
// Collect игнорировать поле даты, что бы в нём ни осталось.
type PromoForm struct {
	ID              int64
	Code            string
	Description     string
	DiscountPercent int
	FreeDays        int
	MaxUses         int
	Active          bool
	NoExpiry        bool
	ExpiresAt       string
}

func (f *PromoForm) Reset() {
	*f = PromoForm{Active: true, NoExpiry: true}
}

func (f *PromoForm) Populate(dto *promos.DTO) {
	f.Reset()
	if dto == nil {
		return
	}
	f.ID = dto.ID
	f.Code = dto.Code
	f.Description = dto.Description
	f.DiscountPercent = dto.DiscountPercent
	f.FreeDays = dto.FreeDays
	f.MaxUses = dto.MaxUses
	f.Active = dto.Active
	if dto.ExpiresAt != nil {
		f.NoExpiry = false
		f.ExpiresAt = dto.ExpiresAt.Format(dateInputLayout)
	}
}

func (f *PromoForm) Collect() (*promos.Payload, error) {
	if strings.TrimSpace(f.Code) == "" {
		return nil, errors.New("promo code is required")
	}
	if f.DiscountPercent < 0 || f.DiscountPercent > 100 {
		return nil, errors.New("discount percent must be between 0 and 100")
	}
	if f.FreeDays < 0 {
		return nil, errors.New("free days must be zero or greater")
	}
	if f.MaxUses < 0 {
		return nil, errors.New("max uses must be zero or greater")
	}

	payload := &promos.Payload{
		ID:              f.ID,
		Code:            strings.TrimSpace(f.Code),
		Description:     strings.TrimSpace(f.Description),
		DiscountPercent: f.DiscountPercent,
		FreeDays:        f.FreeDays,
		MaxUses:         f.MaxUses,
		Active:          f.Active,
		NoExpiry:        f.NoExpiry,
	}
	if !f.NoExpiry {
		raw := strings.TrimSpace(f.ExpiresAt)
		if raw == "" {
			return nil, errors.New("expiration date is required or explicitly mark as no expiry")
		}
		parsed, err := time.Parse(dateInputLayout, raw)
		if err != nil {
			return nil, errors.New("invalid expiration date")
		}
		payload.ExpiresAt = &parsed
	}

	return payload, nil
}

// ReplyForm — поле ответа в переписке.
type ReplyForm struct {
	ConversationID int64
	Text           string
}

func (f *ReplyForm) Reset(conversationID int64) {
	*f = ReplyForm{ConversationID: conversationID}
}

func (f *ReplyForm) Collect() (int64, string, error) {
	if f.ConversationID == 0 {
		return 0, "", errors.New("select a conversation first")
	}
	text := strings.TrimSpace(f.Text)
	if text == "" {
		return 0, "", errors.New("reply text is required")
	}
	return f.ConversationID, text, nil
}
