package broadcasts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"tgadmin/internal/stories/conversations"
)

type Service struct {
	storage   Storage
	audience  Audienced
	recorder  Recorder
	messenger Messenger
	logger    *slog.Logger
	now       func() time.Time
}

func NewService(storage Storage, audience Audienced, recorder Recorder, messenger Messenger, logger *slog.Logger) *Service {
	return &Service{
		storage:   storage,
		audience:  audience,
		recorder:  recorder,
		messenger: messenger,
		logger:    logger,
		now:       time.Now,
	}
}

func (s *Service) List(ctx context.Context) ([]*Broadcast, error) {
	return s.storage.ListBroadcasts(ctx)
}

// Upsert создаёт или правит черновик. Отправленная рассылка через
// upsert не меняется — для неё есть EditBody.
func (s *Service) Upsert(ctx context.Context, payload *Payload) (*DTO, error) {
	if payload == nil {
		return nil, errors.New("payload is required")
	}
	if err := payload.Validate(); err != nil {
		return nil, err
	}

	audienceRaw, err := EncodeAudience(payload.Audience)
	if err != nil {
		return nil, err
	}

	broadcast := Broadcast{
		ID:       payload.ID,
		Title:    strings.TrimSpace(payload.Title),
		Body:     strings.TrimSpace(payload.Body),
		Editable: payload.Editable,
		Status:   StatusDraft,
		Audience: audienceRaw,
	}

	var saved *Broadcast
	if payload.ID == 0 {
		saved, err = s.storage.CreateBroadcast(ctx, broadcast)
	} else {
		existing, getErr := s.getExisting(ctx, payload.ID)
		if getErr != nil {
			return nil, getErr
		}
		if existing.Status != StatusDraft {
			return nil, errors.New("only draft broadcasts can be edited")
		}
		saved, err = s.storage.UpdateBroadcast(ctx, broadcast)
	}
	if err != nil {
		return nil, err
	}
	return NewDTO(saved), nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if id == 0 {
		return errors.New("broadcast id is required")
	}
	existing, err := s.getExisting(ctx, id)
	if err != nil {
		return err
	}
	if existing.Status != StatusDraft {
		return errors.New("only draft broadcasts can be deleted")
	}
	return s.storage.DeleteBroadcast(ctx, id)
}

// Send переводит черновик в sent и раскатывает сообщение по аудитории.
// Ошибка отправки одному адресату не прерывает рассылку: такая доставка
// остаётся в статусе failed и подбирается воркером повторной отправки.
func (s *Service) Send(ctx context.Context, id int64) (*DTO, error) {
	if id == 0 {
		return nil, errors.New("broadcast id is required")
	}
	broadcast, err := s.getExisting(ctx, id)
	if err != nil {
		return nil, err
	}
	if broadcast.Status == StatusSent {
		return nil, errors.New("broadcast already sent")
	}

	users, err := s.selectAudience(ctx, DecodeAudience(broadcast.Audience))
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, errors.New("no users match broadcast audience")
	}

	now := s.now()
	if err := s.storage.MarkBroadcastSent(ctx, broadcast.ID, now); err != nil {
		return nil, err
	}

	for _, user := range users {
		s.deliver(ctx, broadcast, user, now)
	}

	updated, err := s.getExisting(ctx, broadcast.ID)
	if err != nil {
		return nil, err
	}
	return NewDTO(updated), nil
}

func (s *Service) deliver(ctx context.Context, broadcast *Broadcast, user *conversations.Profile, now time.Time) {
	delivery := Delivery{
		BroadcastID: broadcast.ID,
		UserID:      user.ID,
		Status:      DeliverySent,
		SentAt:      &now,
	}

	messageID, err := s.messenger.SendText(ctx, user.TelegramID, broadcast.Body)
	if err != nil {
		s.logger.Warn("broadcast delivery failed",
			slog.Int64("broadcast_id", broadcast.ID),
			slog.Int64("user_id", user.ID),
			slog.Any("error", err))
		delivery.Status = DeliveryFailed
		delivery.ErrorMessage = err.Error()
	} else {
		delivery.TelegramMessageID = messageID
		if err := s.recorder.RecordOutbound(ctx, user.ID, broadcast.Body, messageID); err != nil {
			s.logger.Warn("broadcast thread record failed",
				slog.Int64("user_id", user.ID),
				slog.Any("error", err))
		}
	}

	if _, err := s.storage.UpsertDelivery(ctx, delivery); err != nil {
		s.logger.Error("broadcast delivery row write failed",
			slog.Int64("broadcast_id", broadcast.ID),
			slog.Int64("user_id", user.ID),
			slog.Any("error", err))
	}
}

// EditBody правит текст отправленной рассылки и дотягивает правку до
// каждой успешно доставленной копии.
func (s *Service) EditBody(ctx context.Context, payload *EditPayload) (*DTO, error) {
	if payload == nil {
		return nil, errors.New("payload is required")
	}
	if err := payload.Validate(); err != nil {
		return nil, err
	}

	broadcast, err := s.getExisting(ctx, payload.BroadcastID)
	if err != nil {
		return nil, err
	}
	if !broadcast.Editable {
		return nil, errors.New("broadcast is not marked as editable")
	}

	body := strings.TrimSpace(payload.Body)
	broadcast.Body = body
	if _, err := s.storage.UpdateBroadcast(ctx, *broadcast); err != nil {
		return nil, err
	}

	profiles, err := s.profilesByID(ctx)
	if err != nil {
		return nil, err
	}
	for _, delivery := range broadcast.Deliveries {
		if delivery.Status != DeliverySent {
			continue
		}
		if profile, ok := profiles[delivery.UserID]; ok && delivery.TelegramMessageID != "" {
			if err := s.messenger.EditText(ctx, profile.TelegramID, delivery.TelegramMessageID, body); err != nil {
				s.logger.Warn("broadcast message edit failed",
					slog.Int64("user_id", delivery.UserID),
					slog.Any("error", err))
			}
		}
		if err := s.recorder.UpdateOutboundBody(ctx, delivery.UserID, delivery.TelegramMessageID, body); err != nil {
			return nil, err
		}
	}

	updated, err := s.getExisting(ctx, broadcast.ID)
	if err != nil {
		return nil, err
	}
	return NewDTO(updated), nil
}

func (s *Service) ListDeliveries(ctx context.Context, broadcastID int64) ([]DeliveryDTO, error) {
	if broadcastID == 0 {
		return nil, errors.New("broadcast id is required")
	}
	deliveries, err := s.storage.ListDeliveries(ctx, broadcastID)
	if err != nil {
		return nil, err
	}
	dtos := make([]DeliveryDTO, 0, len(deliveries))
	for _, d := range deliveries {
		dtos = append(dtos, NewDeliveryDTO(d))
	}
	return dtos, nil
}

// RetryFailed пробует повторно отправить неудачные доставки.
// Используется воркером; возвращает число починенных доставок.
func (s *Service) RetryFailed(ctx context.Context, limit int) (int, error) {
	failed, err := s.storage.ListFailedDeliveries(ctx, limit)
	if err != nil {
		return 0, err
	}

	recovered := 0
	for _, delivery := range failed {
		broadcast, err := s.storage.GetBroadcast(ctx, delivery.BroadcastID)
		if err != nil {
			return recovered, err
		}
		if broadcast == nil || broadcast.Status != StatusSent {
			continue
		}
		profile, err := s.profileByID(ctx, delivery.UserID)
		if err != nil {
			return recovered, err
		}
		if profile == nil {
			continue
		}

		messageID, err := s.messenger.SendText(ctx, profile.TelegramID, broadcast.Body)
		if err != nil {
			continue
		}

		now := s.now()
		delivery.Status = DeliverySent
		delivery.ErrorMessage = ""
		delivery.TelegramMessageID = messageID
		delivery.SentAt = &now
		if _, err := s.storage.UpsertDelivery(ctx, *delivery); err != nil {
			return recovered, err
		}
		if err := s.recorder.RecordOutbound(ctx, profile.ID, broadcast.Body, messageID); err != nil {
			s.logger.Warn("retry thread record failed", slog.Any("error", err))
		}
		recovered++
	}
	return recovered, nil
}

func (s *Service) getExisting(ctx context.Context, id int64) (*Broadcast, error) {
	broadcast, err := s.storage.GetBroadcast(ctx, id)
	if err != nil {
		return nil, err
	}
	if broadcast == nil {
		return nil, fmt.Errorf("broadcast %d not found", id)
	}
	return broadcast, nil
}

// selectAudience фильтрует профили по правилу таргетинга: явные тарифы,
// никогда не платившие, истёкшие подписки.
func (s *Service) selectAudience(ctx context.Context, a Audience) ([]*conversations.Profile, error) {
	users, err := s.audience.ListProfiles(ctx)
	if err != nil {
		return nil, err
	}
	if a.AllUsers {
		return users, nil
	}

	now := s.now()
	selected := make([]*conversations.Profile, 0, len(users))
	for _, user := range users {
		include := false
		if len(a.TariffIDs) > 0 && user.LastTariffID != nil {
			for _, id := range a.TariffIDs {
				if *user.LastTariffID == id {
					include = true
					break
				}
			}
		}
		if !include && a.IncludeNeverSubscribed && !user.EverPaid {
			include = true
		}
		if !include && a.IncludeExpired {
			if !user.ActiveSubscription && user.SubscriptionExpiresAt != nil && user.SubscriptionExpiresAt.Before(now) {
				include = true
			}
		}
		if include {
			selected = append(selected, user)
		}
	}
	return selected, nil
}

func (s *Service) profilesByID(ctx context.Context) (map[int64]*conversations.Profile, error) {
	users, err := s.audience.ListProfiles(ctx)
	if err != nil {
		return nil, err
	}
	byID := make(map[int64]*conversations.Profile, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}
	return byID, nil
}

func (s *Service) profileByID(ctx context.Context, id int64) (*conversations.Profile, error) {
	profiles, err := s.profilesByID(ctx)
	if err != nil {
		return nil, err
	}
	return profiles[id], nil
}
