package promos

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeStorage struct {
	promos map[int64]*Promo
	nextID int64
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{promos: map[int64]*Promo{}}
}

func (f *fakeStorage) CreatePromo(_ context.Context, promo Promo) (*Promo, error) {
	f.nextID++
	promo.ID = f.nextID
	f.promos[promo.ID] = &promo
	copied := promo
	return &copied, nil
}

func (f *fakeStorage) GetPromo(_ context.Context, id int64) (*Promo, error) {
	stored, ok := f.promos[id]
	if !ok {
		return nil, nil
	}
	copied := *stored
	return &copied, nil
}

func (f *fakeStorage) GetPromoByCode(_ context.Context, code string) (*Promo, error) {
	for _, p := range f.promos {
		if p.Code == code {
			copied := *p
			return &copied, nil
		}
	}
	return nil, nil
}

func (f *fakeStorage) UpdatePromo(_ context.Context, promo Promo) (*Promo, error) {
	f.promos[promo.ID] = &promo
	copied := promo
	return &copied, nil
}

func (f *fakeStorage) ListPromos(context.Context) ([]*Promo, error) {
	var out []*Promo
	for _, p := range f.promos {
		copied := *p
		out = append(out, &copied)
	}
	return out, nil
}

func (f *fakeStorage) DeletePromo(_ context.Context, id int64) error {
	delete(f.promos, id)
	return nil
}

func (f *fakeStorage) IncrementPromoUse(_ context.Context, id int64) error {
	stored, ok := f.promos[id]
	if !ok {
		return errors.New("promo not found")
	}
	stored.UsedCount++
	return nil
}

func (f *fakeStorage) DeactivateExpiredPromos(_ context.Context, now time.Time) (int64, error) {
	var count int64
	for _, p := range f.promos {
		if p.Active && p.ExpiresAt != nil && p.ExpiresAt.Before(now) {
			p.Active = false
			count++
		}
	}
	return count, nil
}

var testNow = time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

func newTestService(storage *fakeStorage) *Service {
	svc := NewService(storage)
	svc.now = func() time.Time { return testNow }
	return svc
}

func createPromo(t *testing.T, svc *Service, payload Payload) *DTO {
	t.Helper()
	dto, err := svc.Upsert(context.Background(), &payload)
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	return dto
}

func TestUpsertUppercasesCode(t *testing.T) {
	svc := newTestService(newFakeStorage())
	dto := createPromo(t, svc, Payload{Code: " summer ", FreeDays: 7, Active: true, NoExpiry: true})
	if dto.Code != "SUMMER" {
		t.Errorf("Code = %q, want SUMMER", dto.Code)
	}
}

func TestUpsertDuplicateCodeRejected(t *testing.T) {
	svc := newTestService(newFakeStorage())
	createPromo(t, svc, Payload{Code: "SUMMER", FreeDays: 7, Active: true, NoExpiry: true})

	_, err := svc.Upsert(context.Background(), &Payload{Code: "summer", FreeDays: 3, Active: true, NoExpiry: true})
	if err == nil {
		t.Fatal("Upsert with a duplicate code must fail")
	}
}

func TestUpsertUpdateKeepsOwnCode(t *testing.T) {
	svc := newTestService(newFakeStorage())
	dto := createPromo(t, svc, Payload{Code: "SUMMER", FreeDays: 7, Active: true, NoExpiry: true})

	// Обновление самого себя под тем же кодом — не дубликат.
	updated, err := svc.Upsert(context.Background(), &Payload{
		ID: dto.ID, Code: "SUMMER", FreeDays: 14, Active: true, NoExpiry: true,
	})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if updated.FreeDays != 14 {
		t.Errorf("FreeDays = %d, want 14", updated.FreeDays)
	}
}

func TestUpsertUpdatePreservesUsedCount(t *testing.T) {
	storage := newFakeStorage()
	svc := newTestService(storage)
	dto := createPromo(t, svc, Payload{Code: "SUMMER", FreeDays: 7, Active: true, NoExpiry: true})

	if _, err := svc.Redeem(context.Background(), "SUMMER"); err != nil {
		t.Fatalf("Redeem: %v", err)
	}

	updated, err := svc.Upsert(context.Background(), &Payload{
		ID: dto.ID, Code: "SUMMER", FreeDays: 7, Active: true, NoExpiry: true,
	})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if updated.UsedCount != 1 {
		t.Errorf("UsedCount = %d, want 1 preserved across edits", updated.UsedCount)
	}
}

func TestUpsertNoExpiryDropsDate(t *testing.T) {
	svc := newTestService(newFakeStorage())
	stale := testNow.Add(24 * time.Hour)
	dto := createPromo(t, svc, Payload{
		Code:      "SUMMER",
		FreeDays:  7,
		Active:    true,
		NoExpiry:  true,
		ExpiresAt: &stale, // осталась от прежнего редактирования
	})
	if dto.ExpiresAt != nil {
		t.Errorf("ExpiresAt = %v, want nil when NoExpiry is set", dto.ExpiresAt)
	}
}

func TestRedeem(t *testing.T) {
	expired := testNow.Add(-time.Hour)
	valid := testNow.Add(24 * time.Hour)

	tests := []struct {
		name    string
		promo   *Payload
		code    string
		uses    int
		wantErr error
	}{
		{
			name:  "valid code",
			promo: &Payload{Code: "OK", FreeDays: 7, Active: true, NoExpiry: true},
			code:  "ok",
		},
		{
			name:    "unknown code",
			promo:   &Payload{Code: "OK", FreeDays: 7, Active: true, NoExpiry: true},
			code:    "NOPE",
			wantErr: ErrNotFound,
		},
		{
			name:    "blank code",
			promo:   &Payload{Code: "OK", FreeDays: 7, Active: true, NoExpiry: true},
			code:    "   ",
			wantErr: ErrNotFound,
		},
		{
			name:    "inactive code",
			promo:   &Payload{Code: "OFF", FreeDays: 7, NoExpiry: true},
			code:    "OFF",
			wantErr: ErrNotActive,
		},
		{
			name:    "expired code",
			promo:   &Payload{Code: "OLD", FreeDays: 7, Active: true, ExpiresAt: &expired},
			code:    "OLD",
			wantErr: ErrExpired,
		},
		{
			name:  "dated but still valid",
			promo: &Payload{Code: "SOON", FreeDays: 7, Active: true, ExpiresAt: &valid},
			code:  "SOON",
		},
		{
			name:    "usage limit reached",
			promo:   &Payload{Code: "LIM", FreeDays: 7, Active: true, NoExpiry: true, MaxUses: 2},
			code:    "LIM",
			uses:    2,
			wantErr: ErrExhausted,
		},
		{
			name:  "zero max uses means unlimited",
			promo: &Payload{Code: "FREE", FreeDays: 7, Active: true, NoExpiry: true},
			code:  "FREE",
			uses:  50,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			storage := newFakeStorage()
			svc := newTestService(storage)
			created := createPromo(t, svc, *tt.promo)
			for i := 0; i < tt.uses; i++ {
				if err := storage.IncrementPromoUse(context.Background(), created.ID); err != nil {
					t.Fatalf("IncrementPromoUse: %v", err)
				}
			}

			promo, err := svc.Redeem(context.Background(), tt.code)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Redeem(%q) = %v, want %v", tt.code, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Redeem(%q): %v", tt.code, err)
			}
			if promo.UsedCount != tt.uses+1 {
				t.Errorf("UsedCount = %d, want %d", promo.UsedCount, tt.uses+1)
			}
		})
	}
}

func TestDeactivateExpired(t *testing.T) {
	storage := newFakeStorage()
	svc := newTestService(storage)

	expired := testNow.Add(-time.Hour)
	valid := testNow.Add(24 * time.Hour)
	createPromo(t, svc, Payload{Code: "OLD", FreeDays: 1, Active: true, ExpiresAt: &expired})
	createPromo(t, svc, Payload{Code: "SOON", FreeDays: 1, Active: true, ExpiresAt: &valid})
	createPromo(t, svc, Payload{Code: "FOREVER", FreeDays: 1, Active: true, NoExpiry: true})

	count, err := svc.DeactivateExpired(context.Background())
	if err != nil {
		t.Fatalf("DeactivateExpired: %v", err)
	}
	if count != 1 {
		t.Errorf("deactivated %d promos, want 1", count)
	}

	if _, err := svc.Redeem(context.Background(), "OLD"); !errors.Is(err, ErrNotActive) {
		t.Errorf("Redeem(OLD) after deactivation = %v, want ErrNotActive", err)
	}
	if _, err := svc.Redeem(context.Background(), "SOON"); err != nil {
		t.Errorf("Redeem(SOON): %v", err)
	}
}

func TestPayloadValidate(t *testing.T) {
	valid := testNow.Add(time.Hour)
	tests := []struct {
		name    string
		payload Payload
		wantErr bool
	}{
		{
			name:    "valid with date",
			payload: Payload{Code: "A", ExpiresAt: &valid},
		},
		{
			name:    "valid no expiry",
			payload: Payload{Code: "A", NoExpiry: true},
		},
		{
			name:    "blank code",
			payload: Payload{Code: "  ", NoExpiry: true},
			wantErr: true,
		},
		{
			name:    "discount over limit",
			payload: Payload{Code: "A", DiscountPercent: 101, NoExpiry: true},
			wantErr: true,
		},
		{
			name:    "negative free days",
			payload: Payload{Code: "A", FreeDays: -1, NoExpiry: true},
			wantErr: true,
		},
		{
			name:    "missing date without no-expiry",
			payload: Payload{Code: "A"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.payload.Validate()
			if tt.wantErr && err == nil {
				t.Error("Validate() = nil, want error")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("Validate() = %v, want nil", err)
			}
		})
	}
}
