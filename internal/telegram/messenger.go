package telegram

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	infratg "tgadmin/internal/infra/telegram"
	"tgadmin/internal/stories/conversations"
)

// Messenger — общая точка отправки для рассылок и ответов поддержки.
// Пока бот остановлен, живого клиента нет и отправка возвращает
// conversations.ErrSenderUnavailable.
type Messenger struct {
	mu     sync.RWMutex
	client *infratg.Client
}

func NewMessenger() *Messenger {
	return &Messenger{}
}

func (m *Messenger) set(client *infratg.Client) {
	m.mu.Lock()
	m.client = client
	m.mu.Unlock()
}

func (m *Messenger) get() *infratg.Client {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.client
}

func (m *Messenger) SendText(ctx context.Context, telegramID int64, text string) (string, error) {
	client := m.get()
	if client == nil {
		return "", conversations.ErrSenderUnavailable
	}
	return client.SendMessage(ctx, telegramID, text)
}

func (m *Messenger) EditText(ctx context.Context, telegramID int64, messageID, text string) error {
	client := m.get()
	if client == nil {
		return conversations.ErrSenderUnavailable
	}
	id, err := strconv.Atoi(messageID)
	if err != nil {
		return fmt.Errorf("parse message id %q: %w", messageID, err)
	}
	return client.EditMessage(ctx, telegramID, id, text)
}
