package adminstate

import (
	"context"

	"tgadmin/internal/stories/botconfig"
	"tgadmin/internal/stories/broadcasts"
	"tgadmin/internal/stories/conversations"
	"tgadmin/internal/stories/promos"
	"tgadmin/internal/stories/tariffs"
)

// conversationsLimit ограничивает размер инбокса в агрегате: консоль
// всё равно показывает только свежие переписки.
const conversationsLimit = 200

// State — снимок всего состояния панели, который консоль забирает
// одним запросом и из которого перерисовывает все списки.
type State struct {
	Config        *botconfig.DTO             `json:"config"`
	Tariffs       []tariffs.DTO              `json:"tariffs"`
	Broadcasts    []broadcasts.DTO           `json:"broadcasts"`
	PromoCodes    []promos.DTO               `json:"promoCodes"`
	Conversations []conversations.SummaryDTO `json:"conversations"`
}

type (
	configProvider interface {
		GetDTO(ctx context.Context) (*botconfig.DTO, error)
	}
	tariffProvider interface {
		List(ctx context.Context) ([]*tariffs.Tariff, error)
	}
	broadcastProvider interface {
		List(ctx context.Context) ([]*broadcasts.Broadcast, error)
	}
	promoProvider interface {
		List(ctx context.Context) ([]*promos.Promo, error)
	}
	conversationProvider interface {
		ListSummaries(ctx context.Context, limit int) ([]conversations.SummaryDTO, error)
	}
)

type Service struct {
	config        configProvider
	tariffs       tariffProvider
	broadcasts    broadcastProvider
	promos        promoProvider
	conversations conversationProvider
}

func NewService(
	config configProvider,
	tariffService tariffProvider,
	broadcastService broadcastProvider,
	promoService promoProvider,
	conversationService conversationProvider,
) *Service {
	return &Service{
		config:        config,
		tariffs:       tariffService,
		broadcasts:    broadcastService,
		promos:        promoService,
		conversations: conversationService,
	}
}

func (s *Service) Get(ctx context.Context) (*State, error) {
	cfg, err := s.config.GetDTO(ctx)
	if err != nil {
		return nil, err
	}
	tariffList, err := s.tariffs.List(ctx)
	if err != nil {
		return nil, err
	}
	broadcastList, err := s.broadcasts.List(ctx)
	if err != nil {
		return nil, err
	}
	promoList, err := s.promos.List(ctx)
	if err != nil {
		return nil, err
	}
	summaries, err := s.conversations.ListSummaries(ctx, conversationsLimit)
	if err != nil {
		return nil, err
	}

	state := &State{
		Config:        cfg,
		Tariffs:       make([]tariffs.DTO, 0, len(tariffList)),
		Broadcasts:    make([]broadcasts.DTO, 0, len(broadcastList)),
		PromoCodes:    make([]promos.DTO, 0, len(promoList)),
		Conversations: summaries,
	}
	for _, t := range tariffList {
		state.Tariffs = append(state.Tariffs, *tariffs.NewDTO(t))
	}
	for _, b := range broadcastList {
		state.Broadcasts = append(state.Broadcasts, *broadcasts.NewDTO(b))
	}
	for _, p := range promoList {
		state.PromoCodes = append(state.PromoCodes, *promos.NewDTO(p))
	}
	return state, nil
}
