package broadcasts

import (
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"time"
)

const (
	StatusDraft = "draft"
	StatusSent  = "sent"
)

const (
	DeliverySent   = "sent"
	DeliveryFailed = "failed"
)

type Broadcast struct {
	ID         int64
	Title      string
	Body       string
	Editable   bool
	Status     string
	Audience   string
	SentAt     *time.Time
	Deliveries []Delivery
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type Delivery struct {
	ID                int64
	BroadcastID       int64
	UserID            int64
	TelegramMessageID string
	Status            string
	ErrorMessage      string
	SentAt            *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Audience — правило таргетинга рассылки. Хранится в колонке audience
// как JSON, формат совместим с экспортом состояния панели.
type Audience struct {
	AllUsers               bool    `json:"allUsers"`
	TariffIDs              []int64 `json:"tariffIds"`
	IncludeNeverSubscribed bool    `json:"includeNeverSubscribed"`
	IncludeExpired         bool    `json:"includeExpired"`
}

type Payload struct {
	ID       int64    `json:"id"`
	Title    string   `json:"title"`
	Body     string   `json:"body"`
	Editable bool     `json:"editable"`
	Audience Audience `json:"audience"`
}

type EditPayload struct {
	BroadcastID int64  `json:"broadcastId"`
	Body        string `json:"body"`
}

type DTO struct {
	ID         int64      `json:"id"`
	Title      string     `json:"title"`
	Body       string     `json:"body"`
	Editable   bool       `json:"editable"`
	Status     string     `json:"status"`
	Audience   Audience   `json:"audience"`
	SentAt     *time.Time `json:"sentAt"`
	Deliveries int        `json:"deliveries"`
	Success    int        `json:"success"`
	Failed     int        `json:"failed"`
}

type DeliveryDTO struct {
	ID                int64      `json:"id"`
	BroadcastID       int64      `json:"broadcastId"`
	UserID            int64      `json:"userId"`
	TelegramMessageID string     `json:"telegramMessageId"`
	Status            string     `json:"status"`
	ErrorMessage      string     `json:"errorMessage"`
	SentAt            *time.Time `json:"sentAt"`
}

func (a Audience) Validate() error {
	if a.AllUsers {
		return nil
	}
	if len(a.TariffIDs) == 0 && !a.IncludeNeverSubscribed && !a.IncludeExpired {
		return errors.New("select at least one audience filter")
	}
	for _, id := range a.TariffIDs {
		if id == 0 {
			return errors.New("invalid tariff id in audience")
		}
	}
	return nil
}

func (p *Payload) Validate() error {
	if strings.TrimSpace(p.Title) == "" {
		return errors.New("broadcast title is required")
	}
	if strings.TrimSpace(p.Body) == "" {
		return errors.New("broadcast body is required")
	}
	return p.Audience.Validate()
}

func (p *EditPayload) Validate() error {
	if p.BroadcastID == 0 {
		return errors.New("broadcast id is required")
	}
	if strings.TrimSpace(p.Body) == "" {
		return errors.New("updated text is required")
	}
	return nil
}

// normalizeAudience выбрасывает нулевые и повторяющиеся id тарифов
// и сортирует их по возрастанию, чтобы blob был детерминированным.
func normalizeAudience(a Audience) Audience {
	result := a
	if len(result.TariffIDs) > 0 {
		ids := make([]int64, 0, len(result.TariffIDs))
		seen := make(map[int64]struct{})
		for _, id := range result.TariffIDs {
			if id == 0 {
				continue
			}
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		result.TariffIDs = ids
	}
	return result
}

func EncodeAudience(a Audience) (string, error) {
	raw, err := json.Marshal(normalizeAudience(a))
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// DecodeAudience терпима к мусору: пустой или битый blob трактуется
// как "все пользователи", чтобы старая рассылка не потеряла адресатов.
func DecodeAudience(raw string) Audience {
	if strings.TrimSpace(raw) == "" {
		return Audience{AllUsers: true}
	}
	var audience Audience
	if err := json.Unmarshal([]byte(raw), &audience); err != nil {
		return Audience{AllUsers: true}
	}
	return normalizeAudience(audience)
}

func NewDTO(b *Broadcast) *DTO {
	if b == nil {
		return nil
	}
	dto := &DTO{
		ID:       b.ID,
		Title:    b.Title,
		Body:     b.Body,
		Editable: b.Editable,
		Status:   b.Status,
		Audience: DecodeAudience(b.Audience),
		SentAt:   b.SentAt,
	}
	for _, d := range b.Deliveries {
		switch d.Status {
		case DeliverySent:
			dto.Success++
		case DeliveryFailed:
			dto.Failed++
		}
	}
	dto.Deliveries = len(b.Deliveries)
	return dto
}

func NewDeliveryDTO(d *Delivery) DeliveryDTO {
	return DeliveryDTO{
		ID:                d.ID,
		BroadcastID:       d.BroadcastID,
		UserID:            d.UserID,
		TelegramMessageID: d.TelegramMessageID,
		Status:            d.Status,
		ErrorMessage:      d.ErrorMessage,
		SentAt:            d.SentAt,
	}
}
