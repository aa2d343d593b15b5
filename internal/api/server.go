package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"tgadmin/internal/config"
)

// Server — HTTP сервер админ-панели поверх chi.
type Server struct {
	srv    *http.Server
	logger *slog.Logger
}

func NewServer(
	cfg config.APIConfig,
	logger *slog.Logger,
	state stateProvider,
	configService configService,
	tariffService tariffService,
	broadcastService broadcastService,
	promoService promoService,
	conversationService conversationService,
) *Server {
	auth := newAuthenticator(cfg, logger)
	h := &handlers{
		state:         state,
		config:        configService,
		tariffs:       tariffService,
		broadcasts:    broadcastService,
		promos:        promoService,
		conversations: conversationService,
		logger:        logger,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(metricsMiddleware)

	r.Route("/api", func(r chi.Router) {
		r.Post("/login", auth.handleLogin)
		r.Post("/logout", auth.handleLogout)

		r.Group(func(r chi.Router) {
			r.Use(auth.middleware)

			r.Get("/telegramState", h.handleState)
			r.Get("/telegramConversation", h.handleConversation)
			r.Get("/telegramBroadcastDeliveries", h.handleBroadcastDeliveries)

			r.Post("/telegramConfig", h.handleConfig)
			r.Post("/telegramTariff", h.handleTariff)
			r.Post("/telegramTariffDelete", h.handleTariffDelete)
			r.Post("/telegramButton", h.handleButton)
			r.Post("/telegramButtonDelete", h.handleButtonDelete)
			r.Post("/telegramBroadcast", h.handleBroadcast)
			r.Post("/telegramBroadcastDelete", h.handleBroadcastDelete)
			r.Post("/telegramBroadcastSend", h.handleBroadcastSend)
			r.Post("/telegramBroadcastEdit", h.handleBroadcastEdit)
			r.Post("/telegramPromo", h.handlePromo)
			r.Post("/telegramPromoDelete", h.handlePromoDelete)
			r.Post("/telegramConversationReply", h.handleConversationReply)
		})
	})

	return &Server{
		srv: &http.Server{
			Addr:         cfg.ADDR(),
			Handler:      r,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  cfg.IdleTimeout,
		},
		logger: logger,
	}
}

func (s *Server) Start() error {
	s.logger.Info("admin api listening", slog.String("addr", s.srv.Addr))
	return s.srv.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
