package tariffs

import (
	"errors"
	"strings"
	"time"
)

type Tariff struct {
	ID           int64
	Title        string
	Description  string
	PriceMinor   int64
	Currency     string
	DurationDays int
	SortOrder    int
	Active       bool
	Buttons      []Button
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Button struct {
	ID        int64
	TariffID  int64
	Label     string
	Action    string
	Payload   string
	SortOrder int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Payload тарифа из консоли; ID == 0 означает создание.
type Payload struct {
	ID           int64  `json:"id"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	PriceMinor   int64  `json:"priceMinor"`
	Currency     string `json:"currency"`
	DurationDays int    `json:"durationDays"`
	SortOrder    int    `json:"sortOrder"`
	Active       bool   `json:"active"`
}

type ButtonPayload struct {
	ID        int64  `json:"id"`
	TariffID  int64  `json:"tariffId"`
	Label     string `json:"label"`
	Action    string `json:"action"`
	Payload   string `json:"payload"`
	SortOrder int    `json:"sortOrder"`
}

type DTO struct {
	ID           int64       `json:"id"`
	Title        string      `json:"title"`
	Description  string      `json:"description"`
	PriceMinor   int64       `json:"priceMinor"`
	Currency     string      `json:"currency"`
	DurationDays int         `json:"durationDays"`
	SortOrder    int         `json:"sortOrder"`
	Active       bool        `json:"active"`
	Buttons      []ButtonDTO `json:"buttons"`
}

type ButtonDTO struct {
	ID        int64  `json:"id"`
	TariffID  int64  `json:"tariffId"`
	Label     string `json:"label"`
	Action    string `json:"action"`
	Payload   string `json:"payload"`
	SortOrder int    `json:"sortOrder"`
}

func (p *Payload) Validate() error {
	if strings.TrimSpace(p.Title) == "" {
		return errors.New("tariff title is required")
	}
	if strings.TrimSpace(p.Currency) == "" {
		return errors.New("currency is required")
	}
	if p.PriceMinor <= 0 {
		return errors.New("price must be greater than zero")
	}
	if p.DurationDays < 0 {
		return errors.New("duration must be zero or positive")
	}
	return nil
}

func (p *ButtonPayload) Validate() error {
	if strings.TrimSpace(p.Label) == "" {
		return errors.New("button label is required")
	}
	if strings.TrimSpace(p.Action) == "" {
		return errors.New("button action is required")
	}
	return nil
}

func NewDTO(t *Tariff) *DTO {
	if t == nil {
		return nil
	}
	dto := &DTO{
		ID:           t.ID,
		Title:        t.Title,
		Description:  t.Description,
		PriceMinor:   t.PriceMinor,
		Currency:     t.Currency,
		DurationDays: t.DurationDays,
		SortOrder:    t.SortOrder,
		Active:       t.Active,
		Buttons:      make([]ButtonDTO, 0, len(t.Buttons)),
	}
	for _, btn := range t.Buttons {
		dto.Buttons = append(dto.Buttons, NewButtonDTO(&btn))
	}
	return dto
}

func NewButtonDTO(b *Button) ButtonDTO {
	return ButtonDTO{
		ID:        b.ID,
		TariffID:  b.TariffID,
		Label:     b.Label,
		Action:    b.Action,
		Payload:   b.Payload,
		SortOrder: b.SortOrder,
	}
}
