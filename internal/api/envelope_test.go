package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestWriteObjEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()
	writeObj(rec, discardLogger(), map[string]int{"id": 7})

	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(rec.Body.Bytes(), &raw); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if string(raw["success"]) != "true" {
		t.Errorf("success = %s, want true", raw["success"])
	}
	if string(raw["msg"]) != `""` {
		t.Errorf("msg = %s, want empty string always present", raw["msg"])
	}
	if string(raw["obj"]) != `{"id":7}` {
		t.Errorf("obj = %s, want the payload", raw["obj"])
	}
}

func TestWriteMsgOmitsObj(t *testing.T) {
	rec := httptest.NewRecorder()
	writeMsg(rec, discardLogger(), "saved")

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(rec.Body.Bytes(), &raw); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if string(raw["msg"]) != `"saved"` {
		t.Errorf("msg = %s, want saved", raw["msg"])
	}
	if _, ok := raw["obj"]; ok {
		t.Error("obj must be omitted when empty")
	}
}

func TestWriteErrEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()
	writeErr(rec, discardLogger(), errors.New("tariff not found"))

	var env Envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Success {
		t.Error("Success = true on an error response")
	}
	if env.Msg != "tariff not found" {
		t.Errorf("Msg = %q, want the error text", env.Msg)
	}
	// Ошибки приложения уходят с кодом 200, клиент смотрит на success.
	if rec.Code != 200 {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}
