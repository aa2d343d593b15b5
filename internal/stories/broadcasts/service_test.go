package broadcasts

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"tgadmin/internal/stories/conversations"
)

type fakeStorage struct {
	broadcasts map[int64]*Broadcast
	deliveries []Delivery
	nextID     int64
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{broadcasts: map[int64]*Broadcast{}}
}

func (f *fakeStorage) CreateBroadcast(_ context.Context, broadcast Broadcast) (*Broadcast, error) {
	f.nextID++
	broadcast.ID = f.nextID
	f.broadcasts[broadcast.ID] = &broadcast
	return f.GetBroadcast(context.Background(), broadcast.ID)
}

func (f *fakeStorage) GetBroadcast(_ context.Context, id int64) (*Broadcast, error) {
	stored, ok := f.broadcasts[id]
	if !ok {
		return nil, nil
	}
	copied := *stored
	copied.Deliveries = nil
	for _, d := range f.deliveries {
		if d.BroadcastID == id {
			copied.Deliveries = append(copied.Deliveries, d)
		}
	}
	return &copied, nil
}

func (f *fakeStorage) UpdateBroadcast(_ context.Context, broadcast Broadcast) (*Broadcast, error) {
	stored, ok := f.broadcasts[broadcast.ID]
	if !ok {
		return nil, fmt.Errorf("broadcast %d not found", broadcast.ID)
	}
	stored.Title = broadcast.Title
	stored.Body = broadcast.Body
	stored.Editable = broadcast.Editable
	stored.Audience = broadcast.Audience
	return f.GetBroadcast(context.Background(), broadcast.ID)
}

func (f *fakeStorage) MarkBroadcastSent(_ context.Context, id int64, sentAt time.Time) error {
	stored, ok := f.broadcasts[id]
	if !ok || stored.Status != StatusDraft {
		return fmt.Errorf("broadcast %d is not a draft", id)
	}
	stored.Status = StatusSent
	stored.SentAt = &sentAt
	return nil
}

func (f *fakeStorage) ListBroadcasts(ctx context.Context) ([]*Broadcast, error) {
	var out []*Broadcast
	for id := range f.broadcasts {
		b, _ := f.GetBroadcast(ctx, id)
		out = append(out, b)
	}
	return out, nil
}

func (f *fakeStorage) DeleteBroadcast(_ context.Context, id int64) error {
	delete(f.broadcasts, id)
	return nil
}

func (f *fakeStorage) UpsertDelivery(_ context.Context, delivery Delivery) (*Delivery, error) {
	for i := range f.deliveries {
		if f.deliveries[i].BroadcastID == delivery.BroadcastID && f.deliveries[i].UserID == delivery.UserID {
			delivery.ID = f.deliveries[i].ID
			f.deliveries[i] = delivery
			return &delivery, nil
		}
	}
	delivery.ID = int64(len(f.deliveries) + 1)
	f.deliveries = append(f.deliveries, delivery)
	return &delivery, nil
}

func (f *fakeStorage) ListDeliveries(_ context.Context, broadcastID int64) ([]*Delivery, error) {
	var out []*Delivery
	for i := range f.deliveries {
		if f.deliveries[i].BroadcastID == broadcastID {
			d := f.deliveries[i]
			out = append(out, &d)
		}
	}
	return out, nil
}

func (f *fakeStorage) ListFailedDeliveries(_ context.Context, limit int) ([]*Delivery, error) {
	var out []*Delivery
	for i := range f.deliveries {
		if f.deliveries[i].Status == DeliveryFailed {
			d := f.deliveries[i]
			out = append(out, &d)
		}
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

type fakeAudience struct {
	profiles []*conversations.Profile
}

func (f *fakeAudience) ListProfiles(context.Context) ([]*conversations.Profile, error) {
	return f.profiles, nil
}

type fakeRecorder struct {
	outbound []string
	updates  []string
}

func (f *fakeRecorder) RecordOutbound(_ context.Context, userID int64, body, telegramMessageID string) error {
	f.outbound = append(f.outbound, fmt.Sprintf("%d:%s:%s", userID, telegramMessageID, body))
	return nil
}

func (f *fakeRecorder) UpdateOutboundBody(_ context.Context, userID int64, telegramMessageID, body string) error {
	f.updates = append(f.updates, fmt.Sprintf("%d:%s:%s", userID, telegramMessageID, body))
	return nil
}

type fakeMessenger struct {
	failFor map[int64]bool
	sent    []int64
	edits   []string
	nextID  int
}

func (f *fakeMessenger) SendText(_ context.Context, telegramID int64, _ string) (string, error) {
	if f.failFor[telegramID] {
		return "", errors.New("chat not found")
	}
	f.sent = append(f.sent, telegramID)
	f.nextID++
	return fmt.Sprintf("msg-%d", f.nextID), nil
}

func (f *fakeMessenger) EditText(_ context.Context, telegramID int64, messageID, text string) error {
	f.edits = append(f.edits, fmt.Sprintf("%d:%s:%s", telegramID, messageID, text))
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func profile(id, telegramID int64) *conversations.Profile {
	return &conversations.Profile{ID: id, TelegramID: telegramID}
}

func newTestService(storage *fakeStorage, audience *fakeAudience, recorder *fakeRecorder, messenger *fakeMessenger) *Service {
	svc := NewService(storage, audience, recorder, messenger, testLogger())
	svc.now = func() time.Time { return time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC) }
	return svc
}

func draftBroadcast(t *testing.T, svc *Service) *DTO {
	t.Helper()
	dto, err := svc.Upsert(context.Background(), &Payload{
		Title:    "News",
		Body:     "Hello everyone",
		Audience: Audience{AllUsers: true},
	})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	return dto
}

func TestSendMarksSentAndWritesDeliveries(t *testing.T) {
	storage := newFakeStorage()
	audience := &fakeAudience{profiles: []*conversations.Profile{
		profile(1, 100), profile(2, 200), profile(3, 300),
	}}
	recorder := &fakeRecorder{}
	messenger := &fakeMessenger{failFor: map[int64]bool{200: true}}
	svc := newTestService(storage, audience, recorder, messenger)

	draft := draftBroadcast(t, svc)

	dto, err := svc.Send(context.Background(), draft.ID)
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if dto.Status != StatusSent {
		t.Errorf("Status = %q, want sent", dto.Status)
	}
	if dto.Deliveries != 3 || dto.Success != 2 || dto.Failed != 1 {
		t.Errorf("counters = %d/%d/%d, want 3 total, 2 ok, 1 failed", dto.Deliveries, dto.Success, dto.Failed)
	}
	// Переписка пополняется только успешными доставками.
	if len(recorder.outbound) != 2 {
		t.Errorf("recorded %d outbound messages, want 2", len(recorder.outbound))
	}

	failed, _ := storage.ListFailedDeliveries(context.Background(), 0)
	if len(failed) != 1 || failed[0].UserID != 2 {
		t.Errorf("failed deliveries = %+v, want one row for user 2", failed)
	}
	if failed[0].ErrorMessage == "" {
		t.Error("failed delivery must keep the error message")
	}
}

func TestSendAlreadySentRejected(t *testing.T) {
	storage := newFakeStorage()
	audience := &fakeAudience{profiles: []*conversations.Profile{profile(1, 100)}}
	svc := newTestService(storage, audience, &fakeRecorder{}, &fakeMessenger{})

	draft := draftBroadcast(t, svc)
	if _, err := svc.Send(context.Background(), draft.ID); err != nil {
		t.Fatalf("first Send: %v", err)
	}
	if _, err := svc.Send(context.Background(), draft.ID); err == nil {
		t.Fatal("second Send must fail")
	}
}

func TestSendEmptyAudienceRejected(t *testing.T) {
	storage := newFakeStorage()
	svc := newTestService(storage, &fakeAudience{}, &fakeRecorder{}, &fakeMessenger{})

	draft := draftBroadcast(t, svc)
	if _, err := svc.Send(context.Background(), draft.ID); err == nil {
		t.Fatal("Send with no matching users must fail")
	}

	// Рассылка остаётся черновиком и может быть отправлена позже.
	stored, _ := storage.GetBroadcast(context.Background(), draft.ID)
	if stored.Status != StatusDraft {
		t.Errorf("Status = %q, want draft kept", stored.Status)
	}
}

func TestUpsertSentBroadcastRejected(t *testing.T) {
	storage := newFakeStorage()
	audience := &fakeAudience{profiles: []*conversations.Profile{profile(1, 100)}}
	svc := newTestService(storage, audience, &fakeRecorder{}, &fakeMessenger{})

	draft := draftBroadcast(t, svc)
	if _, err := svc.Send(context.Background(), draft.ID); err != nil {
		t.Fatalf("Send: %v", err)
	}

	_, err := svc.Upsert(context.Background(), &Payload{
		ID:       draft.ID,
		Title:    "Changed",
		Body:     "Changed",
		Audience: Audience{AllUsers: true},
	})
	if err == nil {
		t.Fatal("Upsert of a sent broadcast must fail")
	}
}

func TestDeleteOnlyDrafts(t *testing.T) {
	storage := newFakeStorage()
	audience := &fakeAudience{profiles: []*conversations.Profile{profile(1, 100)}}
	svc := newTestService(storage, audience, &fakeRecorder{}, &fakeMessenger{})

	draft := draftBroadcast(t, svc)
	second := draftBroadcast(t, svc)

	if err := svc.Delete(context.Background(), draft.ID); err != nil {
		t.Fatalf("Delete draft: %v", err)
	}

	if _, err := svc.Send(context.Background(), second.ID); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if err := svc.Delete(context.Background(), second.ID); err == nil {
		t.Fatal("Delete of a sent broadcast must fail")
	}
}

func TestEditBodyRequiresEditableFlag(t *testing.T) {
	storage := newFakeStorage()
	audience := &fakeAudience{profiles: []*conversations.Profile{profile(1, 100)}}
	svc := newTestService(storage, audience, &fakeRecorder{}, &fakeMessenger{})

	draft := draftBroadcast(t, svc)
	if _, err := svc.Send(context.Background(), draft.ID); err != nil {
		t.Fatalf("Send: %v", err)
	}

	_, err := svc.EditBody(context.Background(), &EditPayload{BroadcastID: draft.ID, Body: "Updated"})
	if err == nil {
		t.Fatal("EditBody without editable flag must fail")
	}
}

func TestEditBodyUpdatesDeliveredCopies(t *testing.T) {
	storage := newFakeStorage()
	audience := &fakeAudience{profiles: []*conversations.Profile{
		profile(1, 100), profile(2, 200),
	}}
	recorder := &fakeRecorder{}
	messenger := &fakeMessenger{failFor: map[int64]bool{200: true}}
	svc := newTestService(storage, audience, recorder, messenger)

	dto, err := svc.Upsert(context.Background(), &Payload{
		Title:    "News",
		Body:     "Hello",
		Editable: true,
		Audience: Audience{AllUsers: true},
	})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if _, err := svc.Send(context.Background(), dto.ID); err != nil {
		t.Fatalf("Send: %v", err)
	}

	updated, err := svc.EditBody(context.Background(), &EditPayload{BroadcastID: dto.ID, Body: "Updated"})
	if err != nil {
		t.Fatalf("EditBody: %v", err)
	}
	if updated.Body != "Updated" {
		t.Errorf("Body = %q, want Updated", updated.Body)
	}
	// Правится только успешно доставленная копия, failed не трогается.
	if len(messenger.edits) != 1 {
		t.Fatalf("edited %d telegram messages, want 1", len(messenger.edits))
	}
	if messenger.edits[0] != "100:msg-1:Updated" {
		t.Errorf("edit = %q, want the first user's message", messenger.edits[0])
	}
}

func TestRetryFailedRecoversDelivery(t *testing.T) {
	storage := newFakeStorage()
	audience := &fakeAudience{profiles: []*conversations.Profile{
		profile(1, 100), profile(2, 200),
	}}
	recorder := &fakeRecorder{}
	messenger := &fakeMessenger{failFor: map[int64]bool{200: true}}
	svc := newTestService(storage, audience, recorder, messenger)

	draft := draftBroadcast(t, svc)
	if _, err := svc.Send(context.Background(), draft.ID); err != nil {
		t.Fatalf("Send: %v", err)
	}

	// Адресат снова доступен.
	messenger.failFor = nil

	recovered, err := svc.RetryFailed(context.Background(), 100)
	if err != nil {
		t.Fatalf("RetryFailed: %v", err)
	}
	if recovered != 1 {
		t.Errorf("recovered = %d, want 1", recovered)
	}

	failed, _ := storage.ListFailedDeliveries(context.Background(), 0)
	if len(failed) != 0 {
		t.Errorf("still %d failed deliveries after retry", len(failed))
	}

	dto := NewDTO(mustGet(t, storage, draft.ID))
	if dto.Success != 2 || dto.Failed != 0 {
		t.Errorf("counters = %d ok / %d failed, want 2/0", dto.Success, dto.Failed)
	}
}

func mustGet(t *testing.T, storage *fakeStorage, id int64) *Broadcast {
	t.Helper()
	b, err := storage.GetBroadcast(context.Background(), id)
	if err != nil || b == nil {
		t.Fatalf("GetBroadcast(%d) = %v, %v", id, b, err)
	}
	return b
}

func TestRetryFailedSkipsDrafts(t *testing.T) {
	storage := newFakeStorage()
	svc := newTestService(storage, &fakeAudience{}, &fakeRecorder{}, &fakeMessenger{})

	draft := draftBroadcast(t, svc)
	_, _ = storage.UpsertDelivery(context.Background(), Delivery{
		BroadcastID: draft.ID,
		UserID:      1,
		Status:      DeliveryFailed,
	})

	recovered, err := svc.RetryFailed(context.Background(), 100)
	if err != nil {
		t.Fatalf("RetryFailed: %v", err)
	}
	if recovered != 0 {
		t.Errorf("recovered = %d, want 0 for a draft broadcast", recovered)
	}
}

func TestSelectAudience(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-24 * time.Hour)
	future := now.Add(24 * time.Hour)
	tariffMonth := int64(2)

	profiles := []*conversations.Profile{
		{ID: 1, TelegramID: 100},                                                                               // никогда не платил
		{ID: 2, TelegramID: 200, EverPaid: true, LastTariffID: &tariffMonth, ActiveSubscription: true},         // активный на тарифе 2
		{ID: 3, TelegramID: 300, EverPaid: true, SubscriptionExpiresAt: &past},                                 // истёк
		{ID: 4, TelegramID: 400, EverPaid: true, SubscriptionExpiresAt: &future, ActiveSubscription: true},     // активный
	}

	tests := []struct {
		name     string
		audience Audience
		wantIDs  []int64
	}{
		{
			name:     "all users",
			audience: Audience{AllUsers: true},
			wantIDs:  []int64{1, 2, 3, 4},
		},
		{
			name:     "by tariff",
			audience: Audience{TariffIDs: []int64{2}},
			wantIDs:  []int64{2},
		},
		{
			name:     "never subscribed",
			audience: Audience{IncludeNeverSubscribed: true},
			wantIDs:  []int64{1},
		},
		{
			name:     "expired only",
			audience: Audience{IncludeExpired: true},
			wantIDs:  []int64{3},
		},
		{
			name:     "combined filters",
			audience: Audience{TariffIDs: []int64{2}, IncludeNeverSubscribed: true, IncludeExpired: true},
			wantIDs:  []int64{1, 2, 3},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(newFakeStorage(), &fakeAudience{profiles: profiles}, &fakeRecorder{}, &fakeMessenger{})
			svc.now = func() time.Time { return now }

			selected, err := svc.selectAudience(context.Background(), tt.audience)
			if err != nil {
				t.Fatalf("selectAudience: %v", err)
			}

			got := make([]int64, 0, len(selected))
			for _, p := range selected {
				got = append(got, p.ID)
			}
			if len(got) != len(tt.wantIDs) {
				t.Fatalf("selected %v, want %v", got, tt.wantIDs)
			}
			for i := range got {
				if got[i] != tt.wantIDs[i] {
					t.Errorf("selected %v, want %v", got, tt.wantIDs)
					break
				}
			}
		})
	}
}
