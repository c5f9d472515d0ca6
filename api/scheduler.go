/*
scheduler.go - Pending escalation reminder scheduler

PURPOSE:
  Periodically sweeps the escalation queue and re-notifies managers about
  requests that have sat in pending too long without a decision.

DESIGN:
  - Runs on a cron schedule (default: hourly)
  - A request is stale once it has been pending longer than StaleAfter
  - Reminders are best-effort; a failed notification never fails the sweep
  - Sweeps are serialized so a slow sweep cannot overlap the next one

CONFIGURATION:
  - Schedule:   Cron expression (default: "0 * * * *")
  - StaleAfter: How long a pending request may wait (default: 24h)

USAGE:
  scheduler := NewReminderScheduler(service, store, logger, cfg)
  scheduler.Start(ctx)
  // ... later
  scheduler.Stop()

SEE ALSO:
  - approval/notify.go: Notifier interface
  - handlers.go: ListPendingEscalations (the queue being swept)
*/
package api

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/warp/approval-engine/approval"
	"github.com/warp/approval-engine/store/sqlite"
	"go.uber.org/zap"
)

// ReminderScheduler re-notifies managers about stale pending requests.
type ReminderScheduler struct {
	Store      *sqlite.Store
	Service    *approval.Service
	Logger     *zap.Logger
	Schedule   string
	StaleAfter time.Duration

	cron    *cron.Cron
	mu      sync.Mutex
	running bool
}

// NewReminderScheduler creates a scheduler with the given sweep settings.
func NewReminderScheduler(store *sqlite.Store, service *approval.Service, logger *zap.Logger, schedule string, staleAfter time.Duration) *ReminderScheduler {
	if schedule == "" {
		schedule = "0 * * * *"
	}
	if staleAfter <= 0 {
		staleAfter = 24 * time.Hour
	}
	return &ReminderScheduler{
		Store:      store,
		Service:    service,
		Logger:     logger,
		Schedule:   schedule,
		StaleAfter: staleAfter,
		cron:       cron.New(),
	}
}

// Start begins the scheduled sweep. The scheduler stops itself when the
// context is cancelled.
func (s *ReminderScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	if _, err := cron.ParseStandard(s.Schedule); err != nil {
		return fmt.Errorf("invalid reminder schedule %q: %w", s.Schedule, err)
	}

	if _, err := s.cron.AddFunc(s.Schedule, func() {
		s.sweep(ctx)
	}); err != nil {
		return fmt.Errorf("failed to schedule reminder sweep: %w", err)
	}

	s.cron.Start()
	s.running = true

	s.Logger.Info("reminder scheduler started",
		zap.String("schedule", s.Schedule),
		zap.Duration("stale_after", s.StaleAfter))

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	return nil
}

// Stop halts the scheduler and waits for an in-flight sweep to finish.
func (s *ReminderScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}

	stopCtx := s.cron.Stop()
	<-stopCtx.Done()
	s.running = false

	s.Logger.Info("reminder scheduler stopped")
}

// Sweep runs one reminder pass immediately. Exposed for manual triggering
// and tests.
func (s *ReminderScheduler) Sweep(ctx context.Context) (int, error) {
	return s.sweepOnce(ctx)
}

func (s *ReminderScheduler) sweep(ctx context.Context) {
	reminded, err := s.sweepOnce(ctx)
	if err != nil {
		s.Logger.Error("reminder sweep failed", zap.Error(err))
		return
	}
	if reminded > 0 {
		s.Logger.Info("reminder sweep complete", zap.Int("reminded", reminded))
	}
}

func (s *ReminderScheduler) sweepOnce(ctx context.Context) (int, error) {
	pending, err := s.Store.ListPendingRequests(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("listing pending requests: %w", err)
	}

	cutoff := time.Now().Add(-s.StaleAfter)
	reminded := 0
	for _, req := range pending {
		if req.ManagerID == nil {
			continue
		}
		if req.UpdatedAt.After(cutoff) {
			continue
		}
		s.Service.Remind(ctx, req)
		reminded++
	}

	return reminded, nil
}
