package bot

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pathakanu/chronobot/internal/chat"
	"github.com/pathakanu/chronobot/internal/model"
	"github.com/pathakanu/chronobot/internal/recurrence"
	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// DueStore is the persistence the scheduler needs.
type DueStore interface {
	ListDue(ctx context.Context, now time.Time) ([]model.Reminder, error)
	UpdateDue(ctx context.Context, id int64, due time.Time) (bool, error)
	DeleteReminder(ctx context.Context, id int64) (bool, error)
}

// Scheduler periodically delivers due reminders, then reschedules recurring
// ones and deletes the rest.
type Scheduler struct {
	store     DueStore
	messenger chat.Messenger
	loc       *time.Location
	interval  time.Duration
	logger    *zap.Logger
	now       func() time.Time

	cron *cron.Cron
	job  cron.Job
	wg   sync.WaitGroup
}

// NewScheduler creates a scheduler that ticks every interval.
func NewScheduler(store DueStore, messenger chat.Messenger, loc *time.Location, interval time.Duration, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		store:     store,
		messenger: messenger,
		loc:       loc,
		interval:  interval,
		logger:    logger,
		now:       time.Now,
	}
}

// Start registers the polling job, runs one tick right away and starts the
// cron loop. Ticks never overlap; a tick that is still running when the
// next one is due causes that one to be skipped.
func (s *Scheduler) Start(ctx context.Context) {
	cronLogger := cronLogger{s.logger}
	s.cron = cron.New(cron.WithLocation(s.loc), cron.WithLogger(cronLogger))
	s.job = cron.NewChain(cron.SkipIfStillRunning(cronLogger)).Then(cron.FuncJob(func() {
		_ = s.Tick(ctx)
	}))
	s.cron.Schedule(cron.Every(s.interval), s.job)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.job.Run()
	}()
	s.cron.Start()
	s.logger.Info("notificator online", zap.Duration("interval", s.interval))
}

// Stop halts the cron loop and waits for any running tick to finish.
func (s *Scheduler) Stop() {
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
	s.wg.Wait()
	s.logger.Info("notificator stopped")
}

// Tick delivers every reminder due before now. Each reminder is handled
// independently; a failed send leaves the reminder due so the next tick
// retries it. All failures are logged and returned combined.
func (s *Scheduler) Tick(ctx context.Context) error {
	logger := s.logger.With(zap.String("run", uuid.NewString()))
	now := s.now()

	due, err := s.store.ListDue(ctx, now)
	if err != nil {
		logger.Error("failed to load due reminders", zap.Error(err))
		return err
	}
	if len(due) == 0 {
		return nil
	}

	var errs error
	for _, r := range due {
		if err := s.deliver(ctx, r); err != nil {
			logger.Error("reminder delivery failed",
				zap.Int64("id", r.ID),
				zap.Int64("chat", int64(r.ChatID)),
				zap.Error(err),
			)
			errs = multierr.Append(errs, err)
		}
	}

	logger.Info("notification run finished",
		zap.Int("due", len(due)),
		zap.Int("failed", len(multierr.Errors(errs))),
	)
	return errs
}

func (s *Scheduler) deliver(ctx context.Context, r model.Reminder) error {
	rec, recurring, err := r.Repeat()
	if err != nil {
		return err
	}

	if err := s.messenger.Send(ctx, r.ChatID, r.Message); err != nil {
		return fmt.Errorf("reminder %d: %w", r.ID, err)
	}

	if !recurring {
		if _, err := s.store.DeleteReminder(ctx, r.ID); err != nil {
			return fmt.Errorf("reminder %d delivered but not deleted: %w", r.ID, err)
		}
		return nil
	}

	next := recurrence.Advance(r.DueAt(s.loc), rec)
	if _, err := s.store.UpdateDue(ctx, r.ID, next); err != nil {
		return fmt.Errorf("reminder %d delivered but not rescheduled: %w", r.ID, err)
	}
	return nil
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct {
	logger *zap.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Sugar().Debugw("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Sugar().Errorw("cron: "+msg, append(keysAndValues, "error", err)...)
}
