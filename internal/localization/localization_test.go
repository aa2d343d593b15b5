package localization

import (
	"strings"
	"testing"
)

func TestGet(t *testing.T) {
	svc, err := NewService()
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	tests := []struct {
		name     string
		lang     string
		key      string
		params   map[string]interface{}
		contains string
	}{
		{
			name:     "english greeting with placeholder",
			lang:     "en",
			key:      "start.greeting",
			params:   map[string]interface{}{"name": "Ivan"},
			contains: "Hi, Ivan!",
		},
		{
			name:     "russian fallback for empty language",
			lang:     "",
			key:      "promo.not_found",
			contains: "промокод",
		},
		{
			name:     "unknown language falls back to russian",
			lang:     "de",
			key:      "promo.not_found",
			contains: "промокод",
		},
		{
			name:     "numeric placeholder",
			lang:     "en",
			key:      "promo.applied",
			params:   map[string]interface{}{"code": "SUMMER", "discount": 10, "days": 7},
			contains: "10% off, 7 free days",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := svc.Get(tt.lang, tt.key, tt.params)
			if !strings.Contains(strings.ToLower(got), strings.ToLower(tt.contains)) {
				t.Errorf("Get(%q, %q) = %q, want it to contain %q", tt.lang, tt.key, got, tt.contains)
			}
			if strings.Contains(got, "{{") {
				t.Errorf("Get(%q, %q) = %q, placeholder left unreplaced", tt.lang, tt.key, got)
			}
		})
	}
}

func TestGetUnknownKeyReturnsKey(t *testing.T) {
	svc, err := NewService()
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	if got := svc.Get("en", "no.such.key", nil); got != "no.such.key" {
		t.Errorf("Get of an unknown key = %q, want the key itself", got)
	}
}

func TestAllLanguagesShareKeys(t *testing.T) {
	svc, err := NewService()
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	keys := []string{
		"start.greeting", "start.no_tariffs",
		"tariffs.price_line", "tariffs.buy_button",
		"payment.link", "payment.failed",
		"promo.usage", "promo.applied", "promo.not_found",
		"promo.not_active", "promo.expired", "promo.exhausted",
		"support.received",
		"errors.generic",
	}
	for _, lang := range []string{"ru", "en"} {
		for _, key := range keys {
			if got := svc.Get(lang, key, nil); got == key {
				t.Errorf("language %q is missing key %q", lang, key)
			}
		}
	}
}
