package promoexpiry

import "context"

type Promos interface {
	DeactivateExpired(ctx context.Context) (int64, error)
}
