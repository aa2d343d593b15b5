package tariffs

import "context"

type (
	Storage interface {
		CreateTariff(ctx context.Context, tariff Tariff) (*Tariff, error)
		GetTariff(ctx context.Context, id int64) (*Tariff, error)
		UpdateTariff(ctx context.Context, tariff Tariff) (*Tariff, error)
		ListTariffs(ctx context.Context, criteria ListCriteria) ([]*Tariff, error)
		DeleteTariff(ctx context.Context, id int64) error

		CreateButton(ctx context.Context, button Button) (*Button, error)
		GetButton(ctx context.Context, id int64) (*Button, error)
		UpdateButton(ctx context.Context, button Button) (*Button, error)
		DeleteButton(ctx context.Context, id int64) error
	}
)

// Критерии для списка тарифов
type ListCriteria struct {
	Active *bool
	Limit  int
}
