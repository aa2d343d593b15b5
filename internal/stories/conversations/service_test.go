package conversations

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"testing"
	"time"
)

type fakeStorage struct {
	profiles map[int64]*Profile
	messages []Message
	nextUser int64
	nextMsg  int64
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{profiles: map[int64]*Profile{}}
}

func (f *fakeStorage) GetProfile(_ context.Context, id int64) (*Profile, error) {
	stored, ok := f.profiles[id]
	if !ok {
		return nil, nil
	}
	copied := *stored
	return &copied, nil
}

func (f *fakeStorage) GetProfileByTelegramID(_ context.Context, telegramID int64) (*Profile, error) {
	for _, p := range f.profiles {
		if p.TelegramID == telegramID {
			copied := *p
			return &copied, nil
		}
	}
	return nil, nil
}

func (f *fakeStorage) CreateProfile(_ context.Context, profile Profile) (*Profile, error) {
	f.nextUser++
	profile.ID = f.nextUser
	f.profiles[profile.ID] = &profile
	copied := profile
	return &copied, nil
}

func (f *fakeStorage) UpdateProfile(_ context.Context, profile Profile) (*Profile, error) {
	if _, ok := f.profiles[profile.ID]; !ok {
		return nil, fmt.Errorf("profile %d not found", profile.ID)
	}
	f.profiles[profile.ID] = &profile
	copied := profile
	return &copied, nil
}

func (f *fakeStorage) ListProfiles(_ context.Context, limit int) ([]*Profile, error) {
	var out []*Profile
	for _, p := range f.profiles {
		copied := *p
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeStorage) TouchProfile(_ context.Context, id int64) error {
	stored, ok := f.profiles[id]
	if !ok {
		return fmt.Errorf("profile %d not found", id)
	}
	stored.LastInteractionAt = time.Now()
	return nil
}

func (f *fakeStorage) CreateMessage(_ context.Context, message Message) (*Message, error) {
	f.nextMsg++
	message.ID = f.nextMsg
	message.CreatedAt = time.Now()
	f.messages = append(f.messages, message)
	copied := message
	return &copied, nil
}

func (f *fakeStorage) ListMessages(_ context.Context, userID int64) ([]*Message, error) {
	var out []*Message
	for i := range f.messages {
		if f.messages[i].UserID == userID {
			m := f.messages[i]
			out = append(out, &m)
		}
	}
	return out, nil
}

func (f *fakeStorage) LastMessage(_ context.Context, userID int64) (*Message, error) {
	var last *Message
	for i := range f.messages {
		if f.messages[i].UserID == userID {
			m := f.messages[i]
			last = &m
		}
	}
	return last, nil
}

func (f *fakeStorage) CountUnread(_ context.Context, userID int64) (int, error) {
	count := 0
	for i := range f.messages {
		if f.messages[i].UserID == userID && f.messages[i].Direction == DirectionInbound && !f.messages[i].Seen {
			count++
		}
	}
	return count, nil
}

func (f *fakeStorage) MarkInboundSeen(_ context.Context, userID int64) error {
	for i := range f.messages {
		if f.messages[i].UserID == userID && f.messages[i].Direction == DirectionInbound {
			f.messages[i].Seen = true
		}
	}
	return nil
}

func (f *fakeStorage) UpdateMessageBody(_ context.Context, userID int64, telegramMessageID, body string) (bool, error) {
	for i := range f.messages {
		if f.messages[i].UserID == userID &&
			f.messages[i].Direction == DirectionOutbound &&
			f.messages[i].TelegramMessageID == telegramMessageID {
			f.messages[i].Body = body
			return true, nil
		}
	}
	return false, nil
}

type fakeSender struct {
	err    error
	sent   []int64
	nextID int
}

func (f *fakeSender) SendText(_ context.Context, telegramID int64, _ string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.sent = append(f.sent, telegramID)
	f.nextID++
	return fmt.Sprintf("%d", 1000+f.nextID), nil
}

func recordInbound(t *testing.T, svc *Service, telegramID int64, text string) {
	t.Helper()
	if err := svc.RecordInbound(context.Background(), &Inbound{
		TelegramID: telegramID,
		Username:   "ivan",
		Message:    text,
	}); err != nil {
		t.Fatalf("RecordInbound: %v", err)
	}
}

func TestRecordInboundCreatesProfileAndUnread(t *testing.T) {
	storage := newFakeStorage()
	svc := NewService(storage, &fakeSender{})

	recordInbound(t, svc, 100, "hello")
	recordInbound(t, svc, 100, "anyone there?")

	if len(storage.profiles) != 1 {
		t.Fatalf("%d profiles created, want 1", len(storage.profiles))
	}

	summaries, err := svc.ListSummaries(context.Background(), 0)
	if err != nil {
		t.Fatalf("ListSummaries: %v", err)
	}
	if len(summaries) != 1 {
		t.Fatalf("%d summaries, want 1", len(summaries))
	}
	if summaries[0].UnreadCount != 2 {
		t.Errorf("UnreadCount = %d, want 2", summaries[0].UnreadCount)
	}
	if summaries[0].LastMessage == nil || summaries[0].LastMessage.Body != "anyone there?" {
		t.Errorf("LastMessage = %+v, want the newest inbound", summaries[0].LastMessage)
	}
}

func TestRecordInboundEverPaidNeverDowngrades(t *testing.T) {
	storage := newFakeStorage()
	svc := NewService(storage, &fakeSender{})

	if err := svc.RecordInbound(context.Background(), &Inbound{
		TelegramID: 100,
		Message:    "paid once",
		EverPaid:   true,
	}); err != nil {
		t.Fatalf("RecordInbound: %v", err)
	}

	// Следующее сообщение без флага оплаты не должно его сбросить.
	if err := svc.RecordInbound(context.Background(), &Inbound{
		TelegramID: 100,
		Message:    "just a question",
	}); err != nil {
		t.Fatalf("RecordInbound: %v", err)
	}

	profile, err := storage.GetProfileByTelegramID(context.Background(), 100)
	if err != nil {
		t.Fatalf("GetProfileByTelegramID: %v", err)
	}
	if !profile.EverPaid {
		t.Error("EverPaid reset to false by a later message")
	}
}

func TestRecordInboundValidation(t *testing.T) {
	svc := NewService(newFakeStorage(), &fakeSender{})

	if err := svc.RecordInbound(context.Background(), nil); err == nil {
		t.Error("nil input must fail")
	}
	if err := svc.RecordInbound(context.Background(), &Inbound{Message: "hi"}); err == nil {
		t.Error("missing telegram id must fail")
	}
	if err := svc.RecordInbound(context.Background(), &Inbound{TelegramID: 1, Message: "  "}); err == nil {
		t.Error("blank message must fail")
	}
}

func TestGetDetailMarksInboundSeen(t *testing.T) {
	storage := newFakeStorage()
	svc := NewService(storage, &fakeSender{})

	recordInbound(t, svc, 100, "hello")

	detail, err := svc.GetDetail(context.Background(), 1)
	if err != nil {
		t.Fatalf("GetDetail: %v", err)
	}
	if len(detail.Messages) != 1 {
		t.Fatalf("%d messages, want 1", len(detail.Messages))
	}

	unread, _ := storage.CountUnread(context.Background(), 1)
	if unread != 0 {
		t.Errorf("unread = %d after opening the thread, want 0", unread)
	}
}

func TestGetDetailUnknownConversation(t *testing.T) {
	svc := NewService(newFakeStorage(), &fakeSender{})
	if _, err := svc.GetDetail(context.Background(), 42); err == nil {
		t.Fatal("GetDetail of a missing conversation must fail")
	}
}

func TestReplyDeliversThroughSender(t *testing.T) {
	storage := newFakeStorage()
	sender := &fakeSender{}
	svc := NewService(storage, sender)

	recordInbound(t, svc, 100, "hello")

	detail, err := svc.Reply(context.Background(), 1, "  hi there  ")
	if err != nil {
		t.Fatalf("Reply: %v", err)
	}
	if len(sender.sent) != 1 || sender.sent[0] != 100 {
		t.Errorf("sender.sent = %v, want the user's telegram id", sender.sent)
	}
	if len(detail.Messages) != 2 {
		t.Fatalf("%d messages in the thread, want 2", len(detail.Messages))
	}
	reply := detail.Messages[1]
	if reply.Direction != DirectionOutbound || reply.Body != "hi there" {
		t.Errorf("reply = %+v, want trimmed outbound message", reply)
	}
	if reply.TelegramMessageID == "" {
		t.Error("reply must keep the telegram message id")
	}
}

func TestReplyFallsBackWhenSenderUnavailable(t *testing.T) {
	storage := newFakeStorage()
	svc := NewService(storage, &fakeSender{err: ErrSenderUnavailable})

	recordInbound(t, svc, 100, "hello")

	detail, err := svc.Reply(context.Background(), 1, "hi")
	if err != nil {
		t.Fatalf("Reply with stopped bot: %v", err)
	}
	reply := detail.Messages[len(detail.Messages)-1]
	if !strings.HasPrefix(reply.TelegramMessageID, "admin-") {
		t.Errorf("TelegramMessageID = %q, want synthetic admin- id", reply.TelegramMessageID)
	}
}

func TestReplyOtherSenderErrorsPropagate(t *testing.T) {
	storage := newFakeStorage()
	svc := NewService(storage, &fakeSender{err: errors.New("flood limit")})

	recordInbound(t, svc, 100, "hello")

	if _, err := svc.Reply(context.Background(), 1, "hi"); err == nil {
		t.Fatal("real sender errors must not be swallowed")
	}
	if len(storage.messages) != 1 {
		t.Errorf("%d messages stored, failed reply must not be recorded", len(storage.messages))
	}
}

func TestUpdateOutboundBodyInsertsWhenMissing(t *testing.T) {
	storage := newFakeStorage()
	svc := NewService(storage, &fakeSender{})

	recordInbound(t, svc, 100, "hello")

	if err := svc.RecordOutbound(context.Background(), 1, "broadcast text", "msg-7"); err != nil {
		t.Fatalf("RecordOutbound: %v", err)
	}
	if err := svc.UpdateOutboundBody(context.Background(), 1, "msg-7", "edited text"); err != nil {
		t.Fatalf("UpdateOutboundBody: %v", err)
	}

	last, _ := storage.LastMessage(context.Background(), 1)
	if last.Body != "edited text" {
		t.Errorf("Body = %q, want the edited copy", last.Body)
	}

	// Строки нет — правка превращается во вставку.
	if err := svc.UpdateOutboundBody(context.Background(), 1, "msg-unknown", "late copy"); err != nil {
		t.Fatalf("UpdateOutboundBody insert: %v", err)
	}
	last, _ = storage.LastMessage(context.Background(), 1)
	if last.Body != "late copy" || last.TelegramMessageID != "msg-unknown" {
		t.Errorf("inserted message = %+v, want the late copy row", last)
	}
}
