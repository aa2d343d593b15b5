package conversations

import "context"

type (
	Storage interface {
		GetProfile(ctx context.Context, id int64) (*Profile, error)
		GetProfileByTelegramID(ctx context.Context, telegramID int64) (*Profile, error)
		CreateProfile(ctx context.Context, profile Profile) (*Profile, error)
		UpdateProfile(ctx context.Context, profile Profile) (*Profile, error)
		ListProfiles(ctx context.Context, limit int) ([]*Profile, error)
		TouchProfile(ctx context.Context, id int64) error

		CreateMessage(ctx context.Context, message Message) (*Message, error)
		ListMessages(ctx context.Context, userID int64) ([]*Message, error)
		LastMessage(ctx context.Context, userID int64) (*Message, error)
		CountUnread(ctx context.Context, userID int64) (int, error)
		MarkInboundSeen(ctx context.Context, userID int64) error
		UpdateMessageBody(ctx context.Context, userID int64, telegramMessageID, body string) (bool, error)
	}

	// Sender доставляет ответ админа пользователю, когда бот запущен.
	// Возвращает telegram message id отправленного сообщения.
	Sender interface {
		SendText(ctx context.Context, telegramID int64, text string) (string, error)
	}
)
