package conversations

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrSenderUnavailable возвращает Sender, когда бот остановлен.
// Ответ в этом случае сохраняется в переписке с синтетическим id —
// так вела себя панель и до подключения живого бота.
var ErrSenderUnavailable = errors.New("telegram sender is unavailable")

type Service struct {
	storage Storage
	sender  Sender
}

func NewService(storage Storage, sender Sender) *Service {
	return &Service{
		storage: storage,
		sender:  sender,
	}
}

// ListSummaries возвращает переписки в порядке последней активности.
func (s *Service) ListSummaries(ctx context.Context, limit int) ([]SummaryDTO, error) {
	profiles, err := s.storage.ListProfiles(ctx, limit)
	if err != nil {
		return nil, err
	}

	summaries := make([]SummaryDTO, 0, len(profiles))
	for _, profile := range profiles {
		last, err := s.storage.LastMessage(ctx, profile.ID)
		if err != nil {
			return nil, err
		}
		unread, err := s.storage.CountUnread(ctx, profile.ID)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, SummaryDTO{
			User:        NewUserDTO(profile),
			LastMessage: NewMessageDTO(last),
			UnreadCount: unread,
		})
	}
	return summaries, nil
}

// GetDetail возвращает полную переписку и помечает входящие прочитанными.
func (s *Service) GetDetail(ctx context.Context, userID int64) (*DetailDTO, error) {
	if userID == 0 {
		return nil, errors.New("user id is required")
	}
	profile, err := s.storage.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, fmt.Errorf("conversation %d not found", userID)
	}

	messages, err := s.storage.ListMessages(ctx, userID)
	if err != nil {
		return nil, err
	}

	dto := &DetailDTO{
		User:     NewUserDTO(profile),
		Messages: make([]MessageDTO, 0, len(messages)),
	}
	for _, msg := range messages {
		dto.Messages = append(dto.Messages, *NewMessageDTO(msg))
	}

	if err := s.storage.MarkInboundSeen(ctx, userID); err != nil {
		return nil, err
	}
	return dto, nil
}

// Reply отправляет ответ админа и возвращает обновлённую переписку.
func (s *Service) Reply(ctx context.Context, userID int64, text string) (*DetailDTO, error) {
	if userID == 0 {
		return nil, errors.New("user id is required")
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errors.New("message body is required")
	}

	profile, err := s.storage.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, fmt.Errorf("conversation %d not found", userID)
	}

	messageID, err := s.sender.SendText(ctx, profile.TelegramID, text)
	if err != nil {
		if !errors.Is(err, ErrSenderUnavailable) {
			return nil, fmt.Errorf("send reply: %w", err)
		}
		messageID = "admin-" + uuid.NewString()
	}

	if _, err := s.storage.CreateMessage(ctx, Message{
		UserID:            profile.ID,
		Direction:         DirectionOutbound,
		Body:              text,
		TelegramMessageID: messageID,
		Seen:              true,
	}); err != nil {
		return nil, err
	}
	if err := s.storage.TouchProfile(ctx, profile.ID); err != nil {
		return nil, err
	}

	return s.GetDetail(ctx, userID)
}

// RecordInbound создаёт или обновляет профиль и пишет непрочитанное
// входящее сообщение.
func (s *Service) RecordInbound(ctx context.Context, input *Inbound) error {
	if input == nil {
		return errors.New("input is required")
	}
	if input.TelegramID == 0 {
		return errors.New("telegram id is required")
	}
	body := strings.TrimSpace(input.Message)
	if body == "" {
		return errors.New("message body is required")
	}

	profile, err := s.storage.GetProfileByTelegramID(ctx, input.TelegramID)
	if err != nil {
		return err
	}

	now := time.Now()
	merged := Profile{
		TelegramID:            input.TelegramID,
		Username:              input.Username,
		FirstName:             input.FirstName,
		LastName:              input.LastName,
		Language:              input.Language,
		EverPaid:              input.EverPaid,
		ActiveSubscription:    input.ActiveSubscription,
		SubscriptionExpiresAt: input.SubscriptionExpiresAt,
		LastTariffID:          input.TariffID,
		LastInteractionAt:     now,
	}
	if profile == nil {
		profile, err = s.storage.CreateProfile(ctx, merged)
	} else {
		merged.ID = profile.ID
		merged.EverPaid = profile.EverPaid || input.EverPaid
		profile, err = s.storage.UpdateProfile(ctx, merged)
	}
	if err != nil {
		return err
	}

	_, err = s.storage.CreateMessage(ctx, Message{
		UserID:            profile.ID,
		Direction:         DirectionInbound,
		Body:              body,
		TelegramMessageID: input.MessageID,
		Seen:              false,
	})
	return err
}

// ListProfiles отдаёт профили для выборки аудитории рассылок.
func (s *Service) ListProfiles(ctx context.Context) ([]*Profile, error) {
	return s.storage.ListProfiles(ctx, 0)
}

// RecordOutbound пишет доставленное сообщение рассылки в ленту переписки.
func (s *Service) RecordOutbound(ctx context.Context, userID int64, body, telegramMessageID string) error {
	if _, err := s.storage.CreateMessage(ctx, Message{
		UserID:            userID,
		Direction:         DirectionOutbound,
		Body:              body,
		TelegramMessageID: telegramMessageID,
		Seen:              true,
	}); err != nil {
		return err
	}
	return s.storage.TouchProfile(ctx, userID)
}

// UpdateOutboundBody правит текст ранее доставленного сообщения;
// если строки нет (доставка была до появления ленты) — создаёт её.
func (s *Service) UpdateOutboundBody(ctx context.Context, userID int64, telegramMessageID, body string) error {
	updated, err := s.storage.UpdateMessageBody(ctx, userID, telegramMessageID, body)
	if err != nil {
		return err
	}
	if updated {
		return nil
	}
	_, err = s.storage.CreateMessage(ctx, Message{
		UserID:            userID,
		Direction:         DirectionOutbound,
		Body:              body,
		TelegramMessageID: telegramMessageID,
		Seen:              true,
	})
	return err
}
