package conversations

import "time"

const (
	DirectionInbound  = "inbound"
	DirectionOutbound = "outbound"
)

// Profile — карточка пользователя бота; одна на telegram id.
type Profile struct {
	ID                    int64
	TelegramID            int64
	Username              string
	FirstName             string
	LastName              string
	Language              string
	EverPaid              bool
	ActiveSubscription    bool
	SubscriptionExpiresAt *time.Time
	LastTariffID          *int64
	LastInteractionAt     time.Time
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

type Message struct {
	ID                int64
	UserID            int64
	Direction         string
	Body              string
	TelegramMessageID string
	Seen              bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Inbound приходит из бота при любом сообщении пользователя.
type Inbound struct {
	TelegramID            int64
	Username              string
	FirstName             string
	LastName              string
	Language              string
	Message               string
	MessageID             string
	TariffID              *int64
	EverPaid              bool
	ActiveSubscription    bool
	SubscriptionExpiresAt *time.Time
}

type UserDTO struct {
	ID                 int64      `json:"id"`
	TelegramID         int64      `json:"telegramId"`
	Username           string     `json:"username"`
	FirstName          string     `json:"firstName"`
	LastName           string     `json:"lastName"`
	Language           string     `json:"language"`
	EverPaid           bool       `json:"everPaid"`
	ActiveSubscription bool       `json:"activeSubscription"`
	SubscriptionEnds   *time.Time `json:"subscriptionEnds"`
	LastTariffID       *int64     `json:"lastTariffId"`
}

type MessageDTO struct {
	ID                int64     `json:"id"`
	Direction         string    `json:"direction"`
	Body              string    `json:"body"`
	TelegramMessageID string    `json:"telegramMessageId"`
	Seen              bool      `json:"seen"`
	CreatedAt         time.Time `json:"createdAt"`
}

type DetailDTO struct {
	User     UserDTO      `json:"user"`
	Messages []MessageDTO `json:"messages"`
}

type SummaryDTO struct {
	User        UserDTO     `json:"user"`
	LastMessage *MessageDTO `json:"lastMessage"`
	UnreadCount int         `json:"unreadCount"`
}

func NewUserDTO(p *Profile) UserDTO {
	if p == nil {
		return UserDTO{}
	}
	return UserDTO{
		ID:                 p.ID,
		TelegramID:         p.TelegramID,
		Username:           p.Username,
		FirstName:          p.FirstName,
		LastName:           p.LastName,
		Language:           p.Language,
		EverPaid:           p.EverPaid,
		ActiveSubscription: p.ActiveSubscription,
		SubscriptionEnds:   p.SubscriptionExpiresAt,
		LastTariffID:       p.LastTariffID,
	}
}

func NewMessageDTO(m *Message) *MessageDTO {
	if m == nil {
		return nil
	}
	return &MessageDTO{
		ID:                m.ID,
		Direction:         m.Direction,
		Body:              m.Body,
		TelegramMessageID: m.TelegramMessageID,
		Seen:              m.Seen,
		CreatedAt:         m.CreatedAt,
	}
}
