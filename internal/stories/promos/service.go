package promos

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrNotFound  = errors.New("promo code not found")
	ErrNotActive = errors.New("promo code is not active")
	ErrExpired   = errors.New("promo code has expired")
	ErrExhausted = errors.New("promo code usage limit reached")
)

type Service struct {
	storage Storage
	now     func() time.Time
}

func NewService(storage Storage) *Service {
	return &Service{
		storage: storage,
		now:     time.Now,
	}
}

func (s *Service) List(ctx context.Context) ([]*Promo, error) {
	return s.storage.ListPromos(ctx)
}

func (s *Service) Upsert(ctx context.Context, payload *Payload) (*DTO, error) {
	if payload == nil {
		return nil, errors.New("payload is required")
	}
	if err := payload.Validate(); err != nil {
		return nil, err
	}

	code := strings.ToUpper(strings.TrimSpace(payload.Code))

	existing, err := s.storage.GetPromoByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if existing != nil && existing.ID != payload.ID {
		return nil, fmt.Errorf("promo code %s already exists", code)
	}

	promo := Promo{
		ID:              payload.ID,
		Code:            code,
		Description:     strings.TrimSpace(payload.Description),
		DiscountPercent: payload.DiscountPercent,
		FreeDays:        payload.FreeDays,
		MaxUses:         payload.MaxUses,
		Active:          payload.Active,
	}
	if !payload.NoExpiry && payload.ExpiresAt != nil {
		exp := *payload.ExpiresAt
		promo.ExpiresAt = &exp
	}

	var saved *Promo
	if payload.ID == 0 {
		saved, err = s.storage.CreatePromo(ctx, promo)
	} else {
		current, getErr := s.storage.GetPromo(ctx, payload.ID)
		if getErr != nil {
			return nil, getErr
		}
		if current == nil {
			return nil, fmt.Errorf("promo %d not found", payload.ID)
		}
		promo.UsedCount = current.UsedCount
		saved, err = s.storage.UpdatePromo(ctx, promo)
	}
	if err != nil {
		return nil, err
	}
	return NewDTO(saved), nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if id == 0 {
		return errors.New("promo code id is required")
	}
	return s.storage.DeletePromo(ctx, id)
}

// Redeem применяет код со стороны бота: активность, срок, лимит
// использований (MaxUses == 0 — без лимита).
func (s *Service) Redeem(ctx context.Context, code string) (*Promo, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, ErrNotFound
	}
	promo, err := s.storage.GetPromoByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if promo == nil {
		return nil, ErrNotFound
	}
	if !promo.Active {
		return nil, ErrNotActive
	}
	if promo.ExpiresAt != nil && promo.ExpiresAt.Before(s.now()) {
		return nil, ErrExpired
	}
	if promo.MaxUses > 0 && promo.UsedCount >= promo.MaxUses {
		return nil, ErrExhausted
	}
	if err := s.storage.IncrementPromoUse(ctx, promo.ID); err != nil {
		return nil, err
	}
	promo.UsedCount++
	return promo, nil
}

// DeactivateExpired гасит активные коды с прошедшим сроком.
func (s *Service) DeactivateExpired(ctx context.Context) (int64, error) {
	return s.storage.DeactivateExpiredPromos(ctx, s.now())
}
