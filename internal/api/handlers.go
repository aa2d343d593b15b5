package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"tgadmin/internal/stories/adminstate"
	"tgadmin/internal/stories/botconfig"
	"tgadmin/internal/stories/broadcasts"
	"tgadmin/internal/stories/conversations"
	"tgadmin/internal/stories/promos"
	"tgadmin/internal/stories/tariffs"
)

type (
	stateProvider interface {
		Get(ctx context.Context) (*adminstate.State, error)
	}
	configService interface {
		Update(ctx context.Context, payload *botconfig.Payload) (*botconfig.DTO, error)
	}
	tariffService interface {
		Upsert(ctx context.Context, payload *tariffs.Payload) (*tariffs.DTO, error)
		Delete(ctx context.Context, id int64) error
		UpsertButton(ctx context.Context, payload *tariffs.ButtonPayload) (*tariffs.ButtonDTO, error)
		DeleteButton(ctx context.Context, id int64) error
	}
	broadcastService interface {
		Upsert(ctx context.Context, payload *broadcasts.Payload) (*broadcasts.DTO, error)
		Delete(ctx context.Context, id int64) error
		Send(ctx context.Context, id int64) (*broadcasts.DTO, error)
		EditBody(ctx context.Context, payload *broadcasts.EditPayload) (*broadcasts.DTO, error)
		ListDeliveries(ctx context.Context, broadcastID int64) ([]broadcasts.DeliveryDTO, error)
	}
	promoService interface {
		Upsert(ctx context.Context, payload *promos.Payload) (*promos.DTO, error)
		Delete(ctx context.Context, id int64) error
	}
	conversationService interface {
		GetDetail(ctx context.Context, userID int64) (*conversations.DetailDTO, error)
		Reply(ctx context.Context, userID int64, text string) (*conversations.DetailDTO, error)
	}
)

type handlers struct {
	state         stateProvider
	config        configService
	tariffs       tariffService
	broadcasts    broadcastService
	promos        promoService
	conversations conversationService
	logger        *slog.Logger
}

// idPayload — тело POST-запросов, которым достаточно идентификатора.
type idPayload struct {
	ID int64 `json:"id"`
}

type replyPayload struct {
	ID   int64  `json:"id"`
	Text string `json:"text"`
}

func (h *handlers) handleState(w http.ResponseWriter, r *http.Request) {
	state, err := h.state.Get(r.Context())
	if err != nil {
		writeErr(w, h.logger, err)
		return
	}
	writeObj(w, h.logger, state)
}

func (h *handlers) handleConversation(w http.ResponseWriter, r *http.Request) {
	id, err := queryID(r)
	if err != nil {
		writeErr(w, h.logger, err)
		return
	}
	detail, err := h.conversations.GetDetail(r.Context(), id)
	if err != nil {
		writeErr(w, h.logger, err)
		return
	}
	writeObj(w, h.logger, detail)
}

func (h *handlers) handleConfig(w http.ResponseWriter, r *http.Request) {
	var payload botconfig.Payload
	if err := decodeBody(r, &payload); err != nil {
		writeErr(w, h.logger, err)
		return
	}
	dto, err := h.config.Update(r.Context(), &payload)
	if err != nil {
		writeErr(w, h.logger, err)
		return
	}
	writeObj(w, h.logger, dto)
}

func (h *handlers) handleTariff(w http.ResponseWriter, r *http.Request) {
	var payload tariffs.Payload
	if err := decodeBody(r, &payload); err != nil {
		writeErr(w, h.logger, err)
		return
	}
	dto, err := h.tariffs.Upsert(r.Context(), &payload)
	if err != nil {
		writeErr(w, h.logger, err)
		return
	}
	writeObj(w, h.logger, dto)
}

func (h *handlers) handleTariffDelete(w http.ResponseWriter, r *http.Request) {
	h.deleteByID(w, r, h.tariffs.Delete, "tariff deleted")
}

func (h *handlers) handleButton(w http.ResponseWriter, r *http.Request) {
	var payload tariffs.ButtonPayload
	if err := decodeBody(r, &payload); err != nil {
		writeErr(w, h.logger, err)
		return
	}
	dto, err := h.tariffs.UpsertButton(r.Context(), &payload)
	if err != nil {
		writeErr(w, h.logger, err)
		return
	}
	writeObj(w, h.logger, dto)
}

func (h *handlers) handleButtonDelete(w http.ResponseWriter, r *http.Request) {
	h.deleteByID(w, r, h.tariffs.DeleteButton, "button deleted")
}

func (h *handlers) handleBroadcast(w http.ResponseWriter, r *http.Request) {
	var payload broadcasts.Payload
	if err := decodeBody(r, &payload); err != nil {
		writeErr(w, h.logger, err)
		return
	}
	dto, err := h.broadcasts.Upsert(r.Context(), &payload)
	if err != nil {
		writeErr(w, h.logger, err)
		return
	}
	writeObj(w, h.logger, dto)
}

func (h *handlers) handleBroadcastDelete(w http.ResponseWriter, r *http.Request) {
	h.deleteByID(w, r, h.broadcasts.Delete, "broadcast deleted")
}

func (h *handlers) handleBroadcastSend(w http.ResponseWriter, r *http.Request) {
	var payload idPayload
	if err := decodeBody(r, &payload); err != nil {
		writeErr(w, h.logger, err)
		return
	}
	dto, err := h.broadcasts.Send(r.Context(), payload.ID)
	if err != nil {
		writeErr(w, h.logger, err)
		return
	}
	writeObj(w, h.logger, dto)
}

func (h *handlers) handleBroadcastEdit(w http.ResponseWriter, r *http.Request) {
	var payload broadcasts.EditPayload
	if err := decodeBody(r, &payload); err != nil {
		writeErr(w, h.logger, err)
		return
	}
	dto, err := h.broadcasts.EditBody(r.Context(), &payload)
	if err != nil {
		writeErr(w, h.logger, err)
		return
	}
	writeObj(w, h.logger, dto)
}

func (h *handlers) handleBroadcastDeliveries(w http.ResponseWriter, r *http.Request) {
	id, err := queryID(r)
	if err != nil {
		writeErr(w, h.logger, err)
		return
	}
	deliveries, err := h.broadcasts.ListDeliveries(r.Context(), id)
	if err != nil {
		writeErr(w, h.logger, err)
		return
	}
	writeObj(w, h.logger, deliveries)
}

func (h *handlers) handlePromo(w http.ResponseWriter, r *http.Request) {
	var payload promos.Payload
	if err := decodeBody(r, &payload); err != nil {
		writeErr(w, h.logger, err)
		return
	}
	dto, err := h.promos.Upsert(r.Context(), &payload)
	if err != nil {
		writeErr(w, h.logger, err)
		return
	}
	writeObj(w, h.logger, dto)
}

func (h *handlers) handlePromoDelete(w http.ResponseWriter, r *http.Request) {
	h.deleteByID(w, r, h.promos.Delete, "promo code deleted")
}

func (h *handlers) handleConversationReply(w http.ResponseWriter, r *http.Request) {
	var payload replyPayload
	if err := decodeBody(r, &payload); err != nil {
		writeErr(w, h.logger, err)
		return
	}
	detail, err := h.conversations.Reply(r.Context(), payload.ID, payload.Text)
	if err != nil {
		writeErr(w, h.logger, err)
		return
	}
	writeObj(w, h.logger, detail)
}

func (h *handlers) deleteByID(w http.ResponseWriter, r *http.Request, del func(context.Context, int64) error, msg string) {
	var payload idPayload
	if err := decodeBody(r, &payload); err != nil {
		writeErr(w, h.logger, err)
		return
	}
	if err := del(r.Context(), payload.ID); err != nil {
		writeErr(w, h.logger, err)
		return
	}
	writeMsg(w, h.logger, msg)
}

func decodeBody(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return errors.New("invalid request body")
	}
	return nil
}

func queryID(r *http.Request) (int64, error) {
	raw := r.URL.Query().Get("id")
	if raw == "" {
		return 0, errors.New("id is required")
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("invalid id")
	}
	return id, nil
}
