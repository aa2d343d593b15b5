package promos

import (
	"errors"
	"strings"
	"time"
)

type Promo struct {
	ID              int64
	Code            string
	Description     string
	DiscountPercent int
	FreeDays        int
	MaxUses         int
	UsedCount       int
	Active          bool
	ExpiresAt       *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type Payload struct {
	ID              int64      `json:"id"`
	Code            string     `json:"code"`
	Description     string     `json:"description"`
	DiscountPercent int        `json:"discountPercent"`
	FreeDays        int        `json:"freeDays"`
	MaxUses         int        `json:"maxUses"`
	Active          bool       `json:"active"`
	ExpiresAt       *time.Time `json:"expiresAt"`
	NoExpiry        bool       `json:"noExpiry"`
}

type DTO struct {
	ID              int64      `json:"id"`
	Code            string     `json:"code"`
	Description     string     `json:"description"`
	DiscountPercent int        `json:"discountPercent"`
	FreeDays        int        `json:"freeDays"`
	MaxUses         int        `json:"maxUses"`
	UsedCount       int        `json:"usedCount"`
	Active          bool       `json:"active"`
	ExpiresAt       *time.Time `json:"expiresAt"`
}

func (p *Payload) Validate() error {
	if strings.TrimSpace(p.Code) == "" {
		return errors.New("promo code is required")
	}
	if p.DiscountPercent < 0 || p.DiscountPercent > 100 {
		return errors.New("discount percent must be between 0 and 100")
	}
	if p.FreeDays < 0 {
		return errors.New("free days must be zero or greater")
	}
	if p.MaxUses < 0 {
		return errors.New("max uses must be zero or greater")
	}
	if !p.NoExpiry {
		if p.ExpiresAt == nil || p.ExpiresAt.IsZero() {
			return errors.New("expiration date is required or explicitly mark as no expiry")
		}
	}
	return nil
}

func NewDTO(m *Promo) *DTO {
	if m == nil {
		return nil
	}
	return &DTO{
		ID:              m.ID,
		Code:            m.Code,
		Description:     m.Description,
		DiscountPercent: m.DiscountPercent,
		FreeDays:        m.FreeDays,
		MaxUses:         m.MaxUses,
		UsedCount:       m.UsedCount,
		Active:          m.Active,
		ExpiresAt:       m.ExpiresAt,
	}
}
