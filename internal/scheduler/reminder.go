// Package scheduler runs the daily rates-staleness reminder. It only
// observes and logs; notifying operators is the admin bot's job.
package scheduler

import (
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"pricescout/internal/config"
	"pricescout/internal/rates"
)

// Reminder checks on a cron schedule whether the exchange-rate file has
// gone without an update for longer than the staleness window.
type Reminder struct {
	cron       *cron.Cron
	rates      *rates.Store
	schedule   string
	staleAfter time.Duration
	logger     *slog.Logger
}

// NewReminder creates a Reminder from config.
func NewReminder(cfg *config.ReminderConfig, rateStore *rates.Store, logger *slog.Logger) *Reminder {
	return &Reminder{
		cron:       cron.New(),
		rates:      rateStore,
		schedule:   cfg.Schedule,
		staleAfter: cfg.StaleAfter,
		logger:     logger.With("component", "rates_reminder"),
	}
}

// Start schedules the check and starts the cron loop.
func (r *Reminder) Start() error {
	if _, err := r.cron.AddFunc(r.schedule, r.check); err != nil {
		return err
	}
	r.cron.Start()
	r.logger.Info("rates reminder scheduled", "schedule", r.schedule, "stale_after", r.staleAfter)
	return nil
}

// Stop halts the cron loop, waiting for a running check to finish.
func (r *Reminder) Stop() {
	ctx := r.cron.Stop()
	<-ctx.Done()
}

func (r *Reminder) check() {
	mod, err := r.rates.ModTime()
	if err != nil {
		r.logger.Warn("exchange rates need attention: rate file unreadable", "error", err)
		return
	}

	age := time.Since(mod)
	if age > r.staleAfter {
		r.logger.Warn("exchange rates look stale, update them",
			"last_updated", mod.Format(time.RFC3339),
			"age", age.Round(time.Minute),
		)
		return
	}
	r.logger.Debug("exchange rates are fresh", "age", age.Round(time.Minute))
}
