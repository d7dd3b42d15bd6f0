package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	service "github.com/honeynil/AdaPayAcquirer/internal/services"
	"github.com/robfig/cron/v3"
)

const syncLockKey = "adapay:cron:sync:lock"

type Syncer interface {
	SyncPayments(ctx context.Context) (*service.SyncResult, error)
}

type Locker interface {
	TryAcquire(ctx context.Context, key string) (token string, ok bool, err error)
	Release(ctx context.Context, key, token string) error
}

// SyncScheduler runs the polling synchronisation pass on a cron schedule.
// Only the instance holding the Redis lock runs a given pass, so the lock TTL
// must outlast the pass timeout.
type SyncScheduler struct {
	cron    *cron.Cron
	syncer  Syncer
	locker  Locker
	timeout time.Duration
}

func NewSyncScheduler(syncer Syncer, locker Locker, timeout time.Duration) *SyncScheduler {
	if timeout <= 0 {
		timeout = time.Minute
	}
	return &SyncScheduler{
		cron:    cron.New(),
		syncer:  syncer,
		locker:  locker,
		timeout: timeout,
	}
}

func (s *SyncScheduler) Start(schedule string) error {
	if _, err := s.cron.AddFunc(schedule, s.RunOnce); err != nil {
		return fmt.Errorf("invalid sync schedule %q: %w", schedule, err)
	}
	s.cron.Start()
	slog.Info("sync scheduler started", "schedule", schedule)
	return nil
}

// Stop waits for a running pass to finish or ctx to expire.
func (s *SyncScheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
	slog.Info("sync scheduler stopped")
}

func (s *SyncScheduler) RunOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	token, locked, err := s.locker.TryAcquire(ctx, syncLockKey)
	if err != nil || !locked {
		slog.Debug("sync pass skipped, lock not acquired", "error", err)
		return
	}
	defer func() {
		if err := s.locker.Release(context.Background(), syncLockKey, token); err != nil {
			slog.Error("failed to release sync lock", "error", err)
		}
	}()

	result, err := s.syncer.SyncPayments(ctx)
	if err != nil {
		slog.Error("scheduled sync failed", "error", err)
		return
	}
	slog.Info("scheduled sync finished", "listed", result.Listed, "processed", result.Processed)
}
