package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// Envelope — формат каждого ответа API: и данных, и ошибок приложения.
// Ошибки авторизации в конверт не заворачиваются, клиент получает
// голый 401.
type Envelope struct {
	Success bool   `json:"success"`
	Msg     string `json:"msg"`
	Obj     any    `json:"obj,omitempty"`
}

func writeObj(w http.ResponseWriter, logger *slog.Logger, obj any) {
	writeEnvelope(w, logger, Envelope{Success: true, Obj: obj})
}

func writeMsg(w http.ResponseWriter, logger *slog.Logger, msg string) {
	writeEnvelope(w, logger, Envelope{Success: true, Msg: msg})
}

func writeErr(w http.ResponseWriter, logger *slog.Logger, err error) {
	logger.Warn("request failed", slog.Any("error", err))
	writeEnvelope(w, logger, Envelope{Success: false, Msg: err.Error()})
}

func writeEnvelope(w http.ResponseWriter, logger *slog.Logger, envelope Envelope) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(envelope); err != nil {
		logger.Error("write response", slog.Any("error", err))
	}
}
