package promoexpiry

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// Worker деактивирует промокоды с истёкшим сроком
type Worker struct {
	promos Promos
	logger *slog.Logger
	cron   *cron.Cron
}

func NewWorker(promos Promos, logger *slog.Logger) *Worker {
	return &Worker{
		promos: promos,
		logger: logger,
		cron:   cron.New(),
	}
}

// Name returns the worker name
func (w *Worker) Name() string {
	return "promoexpiry"
}

// Start starts the expiry worker
func (w *Worker) Start() error {
	// Ежедневно в 00:30
	_, err := w.cron.AddFunc("30 0 * * *", func() {
		ctx := context.Background()
		if err := w.run(ctx); err != nil {
			w.logger.Error("promo expiry failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("schedule promo expiry worker: %w", err)
	}

	w.cron.Start()
	return nil
}

// Stop stops the worker
func (w *Worker) Stop() {
	w.cron.Stop()
}

func (w *Worker) run(ctx context.Context) error {
	deactivated, err := w.promos.DeactivateExpired(ctx)
	if err != nil {
		return fmt.Errorf("deactivate expired promos: %w", err)
	}
	if deactivated > 0 {
		w.logger.Info("promo codes deactivated", "count", deactivated)
	}
	return nil
}
