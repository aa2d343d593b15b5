package promos

import (
	"context"
	"time"
)

type (
	Storage interface {
		CreatePromo(ctx context.Context, promo Promo) (*Promo, error)
		GetPromo(ctx context.Context, id int64) (*Promo, error)
		GetPromoByCode(ctx context.Context, code string) (*Promo, error)
		UpdatePromo(ctx context.Context, promo Promo) (*Promo, error)
		ListPromos(ctx context.Context) ([]*Promo, error)
		DeletePromo(ctx context.Context, id int64) error
		IncrementPromoUse(ctx context.Context, id int64) error
		DeactivateExpiredPromos(ctx context.Context, now time.Time) (int64, error)
	}
)
