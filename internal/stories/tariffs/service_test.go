package tariffs

import (
	"context"
	"sort"
	"testing"

	"tgadmin/internal/stories/changefeed"
)

type fakeStorage struct {
	tariffs      map[int64]*Tariff
	buttons      map[int64]*Button
	nextTariffID int64
	nextButtonID int64
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{
		tariffs: map[int64]*Tariff{},
		buttons: map[int64]*Button{},
	}
}

func (f *fakeStorage) CreateTariff(ctx context.Context, tariff Tariff) (*Tariff, error) {
	f.nextTariffID++
	tariff.ID = f.nextTariffID
	f.tariffs[tariff.ID] = &tariff
	return f.GetTariff(ctx, tariff.ID)
}

func (f *fakeStorage) GetTariff(_ context.Context, id int64) (*Tariff, error) {
	stored, ok := f.tariffs[id]
	if !ok {
		return nil, nil
	}
	copied := *stored
	copied.Buttons = nil
	for _, b := range f.buttons {
		if b.TariffID == id {
			copied.Buttons = append(copied.Buttons, *b)
		}
	}
	sort.Slice(copied.Buttons, func(i, j int) bool { return copied.Buttons[i].ID < copied.Buttons[j].ID })
	return &copied, nil
}

func (f *fakeStorage) UpdateTariff(ctx context.Context, tariff Tariff) (*Tariff, error) {
	stored := f.tariffs[tariff.ID]
	buttons := stored.Buttons
	tariff.Buttons = buttons
	f.tariffs[tariff.ID] = &tariff
	return f.GetTariff(ctx, tariff.ID)
}

func (f *fakeStorage) ListTariffs(ctx context.Context, criteria ListCriteria) ([]*Tariff, error) {
	var out []*Tariff
	for id, t := range f.tariffs {
		if criteria.Active != nil && t.Active != *criteria.Active {
			continue
		}
		loaded, _ := f.GetTariff(ctx, id)
		out = append(out, loaded)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SortOrder != out[j].SortOrder {
			return out[i].SortOrder < out[j].SortOrder
		}
		return out[i].ID < out[j].ID
	})
	if criteria.Limit > 0 && len(out) > criteria.Limit {
		out = out[:criteria.Limit]
	}
	return out, nil
}

func (f *fakeStorage) DeleteTariff(_ context.Context, id int64) error {
	delete(f.tariffs, id)
	// Каскад кнопок, как в схеме БД.
	for bid, b := range f.buttons {
		if b.TariffID == id {
			delete(f.buttons, bid)
		}
	}
	return nil
}

func (f *fakeStorage) CreateButton(_ context.Context, button Button) (*Button, error) {
	f.nextButtonID++
	button.ID = f.nextButtonID
	f.buttons[button.ID] = &button
	copied := button
	return &copied, nil
}

func (f *fakeStorage) GetButton(_ context.Context, id int64) (*Button, error) {
	stored, ok := f.buttons[id]
	if !ok {
		return nil, nil
	}
	copied := *stored
	return &copied, nil
}

func (f *fakeStorage) UpdateButton(_ context.Context, button Button) (*Button, error) {
	f.buttons[button.ID] = &button
	copied := button
	return &copied, nil
}

func (f *fakeStorage) DeleteButton(_ context.Context, id int64) error {
	delete(f.buttons, id)
	return nil
}

func newTestService(storage *fakeStorage) (*Service, *int) {
	feed := changefeed.New()
	notified := 0
	feed.Register(func() { notified++ })
	return NewService(storage, feed), &notified
}

func validPayload() *Payload {
	return &Payload{
		Title:        "Monthly",
		PriceMinor:   1999,
		Currency:     "rub",
		DurationDays: 30,
		Active:       true,
	}
}

func TestUpsertCreatesAndNotifies(t *testing.T) {
	svc, notified := newTestService(newFakeStorage())

	dto, err := svc.Upsert(context.Background(), validPayload())
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if dto.ID == 0 {
		t.Error("created tariff must get an id")
	}
	if dto.Currency != "RUB" {
		t.Errorf("Currency = %q, want normalized RUB", dto.Currency)
	}
	if *notified != 1 {
		t.Errorf("change feed notified %d times, want 1", *notified)
	}
}

func TestUpsertValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Payload)
	}{
		{
			name:   "blank title",
			mutate: func(p *Payload) { p.Title = " " },
		},
		{
			name:   "zero price",
			mutate: func(p *Payload) { p.PriceMinor = 0 },
		},
		{
			name:   "negative price",
			mutate: func(p *Payload) { p.PriceMinor = -100 },
		},
		{
			name:   "blank currency",
			mutate: func(p *Payload) { p.Currency = "" },
		},
		{
			name:   "negative duration",
			mutate: func(p *Payload) { p.DurationDays = -1 },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, notified := newTestService(newFakeStorage())
			payload := validPayload()
			tt.mutate(payload)

			if _, err := svc.Upsert(context.Background(), payload); err == nil {
				t.Fatal("Upsert must fail validation")
			}
			if *notified != 0 {
				t.Error("failed upsert must not notify listeners")
			}
		})
	}
}

func TestUpsertUnknownTariffRejected(t *testing.T) {
	svc, _ := newTestService(newFakeStorage())

	payload := validPayload()
	payload.ID = 42
	if _, err := svc.Upsert(context.Background(), payload); err == nil {
		t.Fatal("Upsert of a missing tariff must fail")
	}
}

func TestListActiveFiltersInactive(t *testing.T) {
	svc, _ := newTestService(newFakeStorage())

	if _, err := svc.Upsert(context.Background(), validPayload()); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	inactive := validPayload()
	inactive.Title = "Hidden"
	inactive.Active = false
	if _, err := svc.Upsert(context.Background(), inactive); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	active, err := svc.ListActive(context.Background())
	if err != nil {
		t.Fatalf("ListActive: %v", err)
	}
	if len(active) != 1 || active[0].Title != "Monthly" {
		t.Errorf("ListActive = %+v, want only the active tariff", active)
	}

	all, err := svc.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("List returned %d tariffs, want 2", len(all))
	}
}

func TestUpsertButtonRequiresExistingTariff(t *testing.T) {
	svc, _ := newTestService(newFakeStorage())

	_, err := svc.UpsertButton(context.Background(), &ButtonPayload{
		TariffID: 42,
		Label:    "Site",
		Action:   "url",
	})
	if err == nil {
		t.Fatal("UpsertButton for a missing tariff must fail")
	}

	_, err = svc.UpsertButton(context.Background(), &ButtonPayload{
		Label:  "Site",
		Action: "url",
	})
	if err == nil {
		t.Fatal("UpsertButton without a tariff must fail on create")
	}
}

func TestUpsertButtonUpdateKeepsOwner(t *testing.T) {
	storage := newFakeStorage()
	svc, _ := newTestService(storage)

	tariff, err := svc.Upsert(context.Background(), validPayload())
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	created, err := svc.UpsertButton(context.Background(), &ButtonPayload{
		TariffID: tariff.ID,
		Label:    "Site",
		Action:   "url",
		Payload:  "https://example.com",
	})
	if err != nil {
		t.Fatalf("UpsertButton: %v", err)
	}

	// Обновление без tariffId не отвязывает кнопку от тарифа.
	updated, err := svc.UpsertButton(context.Background(), &ButtonPayload{
		ID:     created.ID,
		Label:  "Website",
		Action: "url",
	})
	if err != nil {
		t.Fatalf("UpsertButton update: %v", err)
	}
	if updated.TariffID != tariff.ID {
		t.Errorf("TariffID = %d, want kept %d", updated.TariffID, tariff.ID)
	}
	if updated.Label != "Website" {
		t.Errorf("Label = %q, want Website", updated.Label)
	}
}

func TestDeleteCascadesButtons(t *testing.T) {
	storage := newFakeStorage()
	svc, notified := newTestService(storage)

	tariff, err := svc.Upsert(context.Background(), validPayload())
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if _, err := svc.UpsertButton(context.Background(), &ButtonPayload{
		TariffID: tariff.ID,
		Label:    "Site",
		Action:   "url",
	}); err != nil {
		t.Fatalf("UpsertButton: %v", err)
	}

	before := *notified
	if err := svc.Delete(context.Background(), tariff.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if len(storage.buttons) != 0 {
		t.Errorf("%d buttons left after tariff delete, want cascade", len(storage.buttons))
	}
	if *notified != before+1 {
		t.Error("delete must notify the change feed")
	}
}
