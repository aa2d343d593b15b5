package deliveryretry

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// За один прогон воркер разбирает не больше этого числа доставок,
// чтобы не упереться в лимиты Telegram.
const retryBatchSize = 100

// Worker повторно отправляет неудачные доставки рассылок
type Worker struct {
	broadcasts Broadcasts
	logger     *slog.Logger
	cron       *cron.Cron
}

func NewWorker(broadcasts Broadcasts, logger *slog.Logger) *Worker {
	return &Worker{
		broadcasts: broadcasts,
		logger:     logger,
		cron:       cron.New(),
	}
}

// Name returns the worker name
func (w *Worker) Name() string {
	return "deliveryretry"
}

// Start starts the retry worker
func (w *Worker) Start() error {
	// Каждые 5 минут
	_, err := w.cron.AddFunc("*/5 * * * *", func() {
		ctx := context.Background()
		if err := w.run(ctx); err != nil {
			w.logger.Error("delivery retry failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("schedule delivery retry worker: %w", err)
	}

	w.cron.Start()
	return nil
}

// Stop stops the worker
func (w *Worker) Stop() {
	w.cron.Stop()
}

func (w *Worker) run(ctx context.Context) error {
	recovered, err := w.broadcasts.RetryFailed(ctx, retryBatchSize)
	if err != nil {
		return fmt.Errorf("retry failed deliveries: %w", err)
	}
	if recovered > 0 {
		w.logger.Info("deliveries recovered", "count", recovered)
	}
	return nil
}
