package deliveryretry

import "context"

type Broadcasts interface {
	RetryFailed(ctx context.Context, limit int) (int, error)
}
