// Package expiry runs the background sweep that lapses overdue alerts.
// Lazy expiry on read already guarantees no query reports a stale active
// alert; the sweeper exists so alerts nobody reads still lapse.
package expiry

import (
	"context"
	"log/slog"
	"time"

	"bloodlink/internal/lifecycle"
	"bloodlink/internal/metrics"
)

// Sweeper periodically expires overdue alerts.
type Sweeper struct {
	service  *lifecycle.Service
	interval time.Duration
	logger   *slog.Logger
}

// NewSweeper creates a sweeper. A zero interval defaults to one minute.
func NewSweeper(service *lifecycle.Service, interval time.Duration, logger *slog.Logger) *Sweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Sweeper{service: service, interval: interval, logger: logger}
}

// Run sweeps on the configured interval until the context is canceled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("expiry sweeper started", "interval", s.interval)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("expiry sweeper stopped")
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	expired, err := s.service.ExpireDue(ctx, time.Now().UTC())
	if err != nil {
		s.logger.Error("expiry sweep failed", "error", err)
		return
	}
	metrics.ExpirySweepsTotal.Inc()
	if expired > 0 {
		s.logger.Info("expiry sweep completed", "expired", expired)
	}
}
