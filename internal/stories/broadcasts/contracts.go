package broadcasts

import (
	"context"
	"time"

	"tgadmin/internal/stories/conversations"
)

type (
	Storage interface {
		CreateBroadcast(ctx context.Context, broadcast Broadcast) (*Broadcast, error)
		GetBroadcast(ctx context.Context, id int64) (*Broadcast, error)
		UpdateBroadcast(ctx context.Context, broadcast Broadcast) (*Broadcast, error)
		MarkBroadcastSent(ctx context.Context, id int64, sentAt time.Time) error
		ListBroadcasts(ctx context.Context) ([]*Broadcast, error)
		DeleteBroadcast(ctx context.Context, id int64) error

		UpsertDelivery(ctx context.Context, delivery Delivery) (*Delivery, error)
		ListDeliveries(ctx context.Context, broadcastID int64) ([]*Delivery, error)
		ListFailedDeliveries(ctx context.Context, limit int) ([]*Delivery, error)
	}

	// Audienced отдаёт профили, по которым считается аудитория.
	Audienced interface {
		ListProfiles(ctx context.Context) ([]*conversations.Profile, error)
	}

	// Recorder дублирует доставленные сообщения в ленту переписки.
	Recorder interface {
		RecordOutbound(ctx context.Context, userID int64, body, telegramMessageID string) error
		UpdateOutboundBody(ctx context.Context, userID int64, telegramMessageID, body string) error
	}

	// Messenger доставляет текст подписчику. Возвращает telegram
	// message id, по которому потом правится отправленная копия.
	Messenger interface {
		SendText(ctx context.Context, telegramID int64, text string) (string, error)
		EditText(ctx context.Context, telegramID int64, messageID, text string) error
	}
)
