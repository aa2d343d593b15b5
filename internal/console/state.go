package console

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"tgadmin/internal/stories/adminstate"
	"tgadmin/internal/stories/botconfig"
	"tgadmin/internal/stories/broadcasts"
	"tgadmin/internal/stories/conversations"
	"tgadmin/internal/stories/promos"
	"tgadmin/internal/stories/tariffs"
)

// ErrSubmitInFlight не даёт отправить форму, пока не завершился
// предыдущий запрос.
var ErrSubmitInFlight = errors.New("another submission is in flight")

// Store — клиентское зеркало состояния панели плюс UI-выбор:
// выделенный тариф, выделенная рассылка, открытая переписка.
type Store struct {
	client *Client

	mu sync.Mutex

	Config        *botconfig.DTO
	Tariffs       []tariffs.DTO
	Broadcasts    []broadcasts.DTO
	PromoCodes    []promos.DTO
	Conversations []conversations.SummaryDTO

	SelectedTariffID     int64
	SelectedBroadcastID  int64
	ActiveConversationID int64
	ActiveDetail         *conversations.DetailDTO

	busy bool
}

func NewStore(client *Client) *Store {
	return &Store{client: client}
}

// Reload забирает агрегат одним запросом, заменяет коллекции и
// сверяет выбор с новыми данными:
//   - тариф: при preserveSelection сохраняется, если ещё существует,
//     иначе первый из списка;
//   - рассылка: всегда перепроверяется (флага preserve нет);
//   - открытая переписка перечитывается без второго индикатора
//     загрузки, пропавшая — закрывается.
//
// При ошибке прежнее состояние остаётся нетронутым.
func (s *Store) Reload(ctx context.Context, preserveSelection bool) error {
	raw, err := s.client.Call(ctx, http.MethodGet, "/api/telegramState", nil)
	if err != nil {
		return err
	}

	var state adminstate.State
	if err := json.Unmarshal(raw, &state); err != nil {
		return errors.New(fallbackMsg)
	}

	s.mu.Lock()
	s.Config = state.Config
	s.Tariffs = state.Tariffs
	s.Broadcasts = state.Broadcasts
	s.PromoCodes = state.PromoCodes
	s.Conversations = state.Conversations

	s.SelectedTariffID = reconcileTariff(s.SelectedTariffID, preserveSelection, state.Tariffs)
	s.SelectedBroadcastID = reconcileBroadcast(s.SelectedBroadcastID, state.Broadcasts)

	activeID := s.ActiveConversationID
	if activeID != 0 && !conversationPresent(activeID, state.Conversations) {
		s.ActiveConversationID = 0
		s.ActiveDetail = nil
		activeID = 0
	}
	s.mu.Unlock()

	if activeID != 0 {
		return s.refreshDetail(ctx, activeID)
	}
	return nil
}

func reconcileTariff(current int64, preserve bool, list []tariffs.DTO) int64 {
	if preserve && current != 0 {
		for _, t := range list {
			if t.ID == current {
				return current
			}
		}
	}
	if len(list) > 0 {
		return list[0].ID
	}
	return 0
}

func reconcileBroadcast(current int64, list []broadcasts.DTO) int64 {
	if current != 0 {
		for _, b := range list {
			if b.ID == current {
				return current
			}
		}
	}
	if len(list) > 0 {
		return list[0].ID
	}
	return 0
}

func conversationPresent(id int64, list []conversations.SummaryDTO) bool {
	for _, c := range list {
		if c.User.ID == id {
			return true
		}
	}
	return false
}

// SelectTariff выделяет тариф; несуществующий id сбрасывает выбор.
func (s *Store) SelectTariff(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.Tariffs {
		if t.ID == id {
			s.SelectedTariffID = id
			return
		}
	}
	s.SelectedTariffID = 0
}

func (s *Store) SelectBroadcast(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.Broadcasts {
		if b.ID == id {
			s.SelectedBroadcastID = id
			return
		}
	}
	s.SelectedBroadcastID = 0
}

// SelectedTariff возвращает выделенный тариф или nil.
func (s *Store) SelectedTariff() *tariffs.DTO {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.Tariffs {
		if s.Tariffs[i].ID == s.SelectedTariffID {
			return &s.Tariffs[i]
		}
	}
	return nil
}

func (s *Store) SelectedBroadcast() *broadcasts.DTO {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.Broadcasts {
		if s.Broadcasts[i].ID == s.SelectedBroadcastID {
			return &s.Broadcasts[i]
		}
	}
	return nil
}

// SelectedButtons — кнопки выделенного тарифа; список кнопок всегда
// живёт в контексте выбора.
func (s *Store) SelectedButtons() []tariffs.ButtonDTO {
	tariff := s.SelectedTariff()
	if tariff == nil {
		return nil
	}
	return tariff.Buttons
}

// OpenConversation открывает переписку и забирает её содержимое.
func (s *Store) OpenConversation(ctx context.Context, id int64) error {
	if err := s.refreshDetail(ctx, id); err != nil {
		return err
	}
	s.mu.Lock()
	s.ActiveConversationID = id
	s.mu.Unlock()
	return nil
}

func (s *Store) refreshDetail(ctx context.Context, id int64) error {
	raw, err := s.client.Call(ctx, http.MethodGet, fmt.Sprintf("/api/telegramConversation?id=%d", id), nil)
	if err != nil {
		return err
	}
	var detail conversations.DetailDTO
	if err := json.Unmarshal(raw, &detail); err != nil {
		return errors.New(fallbackMsg)
	}
	s.mu.Lock()
	s.ActiveDetail = &detail
	s.mu.Unlock()
	return nil
}

// submit оборачивает мутацию busy-флагом и полной перезагрузкой
// состояния после успеха.
func (s *Store) submit(ctx context.Context, path string, body any, preserveSelection bool) error {
	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		return ErrSubmitInFlight
	}
	s.busy = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.busy = false
		s.mu.Unlock()
	}()

	if _, err := s.client.Call(ctx, http.MethodPost, path, body); err != nil {
		return err
	}
	return s.Reload(ctx, preserveSelection)
}

func (s *Store) SaveConfig(ctx context.Context, payload *botconfig.Payload) error {
	return s.submit(ctx, "/api/telegramConfig", payload, true)
}

func (s *Store) SaveTariff(ctx context.Context, payload *tariffs.Payload) error {
	return s.submit(ctx, "/api/telegramTariff", payload, true)
}

func (s *Store) DeleteTariff(ctx context.Context, id int64) error {
	return s.submit(ctx, "/api/telegramTariffDelete", map[string]int64{"id": id}, false)
}

func (s *Store) SaveButton(ctx context.Context, payload *tariffs.ButtonPayload) error {
	return s.submit(ctx, "/api/telegramButton", payload, true)
}

func (s *Store) DeleteButton(ctx context.Context, id int64) error {
	return s.submit(ctx, "/api/telegramButtonDelete", map[string]int64{"id": id}, true)
}

func (s *Store) SaveBroadcast(ctx context.Context, payload *broadcasts.Payload) error {
	return s.submit(ctx, "/api/telegramBroadcast", payload, true)
}

func (s *Store) DeleteBroadcast(ctx context.Context, id int64) error {
	return s.submit(ctx, "/api/telegramBroadcastDelete", map[string]int64{"id": id}, true)
}

func (s *Store) SendBroadcast(ctx context.Context, id int64) error {
	return s.submit(ctx, "/api/telegramBroadcastSend", map[string]int64{"id": id}, true)
}

func (s *Store) EditBroadcastBody(ctx context.Context, payload *broadcasts.EditPayload) error {
	return s.submit(ctx, "/api/telegramBroadcastEdit", payload, true)
}

func (s *Store) SavePromo(ctx context.Context, payload *promos.Payload) error {
	return s.submit(ctx, "/api/telegramPromo", payload, true)
}

func (s *Store) DeletePromo(ctx context.Context, id int64) error {
	return s.submit(ctx, "/api/telegramPromoDelete", map[string]int64{"id": id}, true)
}

// BroadcastDeliveries возвращает строки доставки для рассылки.
func (s *Store) BroadcastDeliveries(ctx context.Context, id int64) ([]broadcasts.DeliveryDTO, error) {
	raw, err := s.client.Call(ctx, http.MethodGet, fmt.Sprintf("/api/telegramBroadcastDeliveries?id=%d", id), nil)
	if err != nil {
		return nil, err
	}
	var deliveries []broadcasts.DeliveryDTO
	if err := json.Unmarshal(raw, &deliveries); err != nil {
		return nil, errors.New(fallbackMsg)
	}
	return deliveries, nil
}

// Reply отправляет ответ в переписку. Запрос помечен id переписки:
// если за время полёта открыли другую, пришедший тред не применяется.
func (s *Store) Reply(ctx context.Context, conversationID int64, text string) error {
	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		return ErrSubmitInFlight
	}
	s.busy = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.busy = false
		s.mu.Unlock()
	}()

	raw, err := s.client.Call(ctx, http.MethodPost, "/api/telegramConversationReply", map[string]any{
		"id":   conversationID,
		"text": text,
	})
	if err != nil {
		return err
	}

	var detail conversations.DetailDTO
	if err := json.Unmarshal(raw, &detail); err != nil {
		return errors.New(fallbackMsg)
	}

	s.mu.Lock()
	if s.ActiveConversationID == conversationID {
		s.ActiveDetail = &detail
	}
	s.mu.Unlock()

	return s.Reload(ctx, true)
}
