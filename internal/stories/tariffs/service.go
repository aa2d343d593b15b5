package tariffs

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/samber/lo"

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

// List возвращает тарифы с кнопками в порядке sort_order, id.
func (s *Service) List(ctx context.Context) ([]*Tariff, error) {
	return s.storage.ListTariffs(ctx, ListCriteria{})
}

func (s *Service) ListActive(ctx context.Context) ([]*Tariff, error) {
	return s.storage.ListTariffs(ctx, ListCriteria{Active: lo.ToPtr(true)})
}

func (s *Service) Get(ctx context.Context, id int64) (*Tariff, error) {
	return s.storage.GetTariff(ctx, id)
}

func (s *Service) Upsert(ctx context.Context, payload *Payload) (*DTO, error) {
	if payload == nil {
		return nil, errors.New("payload is required")
	}
	if err := payload.Validate(); err != nil {
		return nil, err
	}

	tariff := Tariff{
		ID:           payload.ID,
		Title:        strings.TrimSpace(payload.Title),
		Description:  strings.TrimSpace(payload.Description),
		PriceMinor:   payload.PriceMinor,
		Currency:     strings.ToUpper(strings.TrimSpace(payload.Currency)),
		DurationDays: payload.DurationDays,
		SortOrder:    payload.SortOrder,
		Active:       payload.Active,
	}

	var (
		saved *Tariff
		err   error
	)
	if payload.ID == 0 {
		saved, err = s.storage.CreateTariff(ctx, tariff)
	} else {
		existing, getErr := s.storage.GetTariff(ctx, payload.ID)
		if getErr != nil {
			return nil, getErr
		}
		if existing == nil {
			return nil, fmt.Errorf("tariff %d not found", payload.ID)
		}
		saved, err = s.storage.UpdateTariff(ctx, tariff)
	}
	if err != nil {
		return nil, err
	}

	s.changes.Notify()
	return NewDTO(saved), nil
}

// Delete удаляет тариф; кнопки уходят каскадом на уровне БД.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if id == 0 {
		return errors.New("tariff id is required")
	}
	if err := s.storage.DeleteTariff(ctx, id); err != nil {
		return err
	}
	s.changes.Notify()
	return nil
}

func (s *Service) UpsertButton(ctx context.Context, payload *ButtonPayload) (*ButtonDTO, error) {
	if payload == nil {
		return nil, errors.New("payload is required")
	}
	if err := payload.Validate(); err != nil {
		return nil, err
	}

	button := Button{
		ID:        payload.ID,
		TariffID:  payload.TariffID,
		Label:     strings.TrimSpace(payload.Label),
		Action:    strings.TrimSpace(payload.Action),
		Payload:   strings.TrimSpace(payload.Payload),
		SortOrder: payload.SortOrder,
	}

	var (
		saved *Button
		err   error
	)
	if payload.ID == 0 {
		if payload.TariffID == 0 {
			return nil, errors.New("tariff id is required")
		}
		tariff, getErr := s.storage.GetTariff(ctx, payload.TariffID)
		if getErr != nil {
			return nil, getErr
		}
		if tariff == nil {
			return nil, fmt.Errorf("tariff %d not found", payload.TariffID)
		}
		saved, err = s.storage.CreateButton(ctx, button)
	} else {
		existing, getErr := s.storage.GetButton(ctx, payload.ID)
		if getErr != nil {
			return nil, getErr
		}
		if existing == nil {
			return nil, fmt.Errorf("button %d not found", payload.ID)
		}
		if button.TariffID == 0 {
			button.TariffID = existing.TariffID
		}
		saved, err = s.storage.UpdateButton(ctx, button)
	}
	if err != nil {
		return nil, err
	}

	s.changes.Notify()
	dto := NewButtonDTO(saved)
	return &dto, nil
}

func (s *Service) DeleteButton(ctx context.Context, id int64) error {
	if id == 0 {
		return errors.New("button id is required")
	}
	if err := s.storage.DeleteButton(ctx, id); err != nil {
		return err
	}
	s.changes.Notify()
	return nil
}
