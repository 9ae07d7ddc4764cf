package workers

import (
	"context"
	"fmt"
	"time"

	"github.com/alimgiray/perfguide/internal/metrics"
	"github.com/alimgiray/perfguide/pkg/logger"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

const DefaultCleanupSchedule = "@every 15m"

// ExpiredSessionStore removes sessions whose expiry has passed
type ExpiredSessionStore interface {
	DeleteExpired(before time.Time) (int64, error)
}

// SessionCleanupWorker purges expired sessions on a cron schedule
type SessionCleanupWorker struct {
	*BaseWorker
	sessions ExpiredSessionStore
	recorder metrics.Recorder
	schedule cron.Schedule
	expr     string
	now      func() time.Time
}

// NewSessionCleanupWorker parses expr as a standard cron expression or a
// descriptor such as "@every 15m". An empty expr uses DefaultCleanupSchedule.
func NewSessionCleanupWorker(workerID, expr string, sessions ExpiredSessionStore, recorder metrics.Recorder) (*SessionCleanupWorker, error) {
	if expr == "" {
		expr = DefaultCleanupSchedule
	}
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	schedule, err := parser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid cleanup schedule %q: %w", expr, err)
	}
	if recorder == nil {
		recorder = metrics.Nop{}
	}

	return &SessionCleanupWorker{
		BaseWorker: NewBaseWorker(workerID),
		sessions:   sessions,
		recorder:   recorder,
		schedule:   schedule,
		expr:       expr,
		now:        time.Now,
	}, nil
}

// Start runs the purge on schedule until ctx is cancelled or Stop is called
func (w *SessionCleanupWorker) Start(ctx context.Context) error {
	c := cron.New()
	c.Schedule(w.schedule, cron.FuncJob(func() {
		if _, err := w.RunOnce(ctx); err != nil {
			logger.WithError(err).WithField("worker_id", w.WorkerID).Error("Session cleanup failed")
		}
	}))

	w.setRunning(true)
	defer w.setRunning(false)
	c.Start()
	logger.WithFields(logrus.Fields{
		"worker_id": w.WorkerID,
		"schedule":  w.expr,
	}).Info("Session cleanup worker started")

	var err error
	select {
	case <-ctx.Done():
		err = ctx.Err()
	case <-w.StopChan:
	}

	// Wait for an in-flight purge to finish.
	<-c.Stop().Done()
	logger.WithField("worker_id", w.WorkerID).Info("Session cleanup worker stopped")
	return err
}

// RunOnce deletes every session that has expired by now
func (w *SessionCleanupWorker) RunOnce(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	purged, err := w.sessions.DeleteExpired(w.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}

	w.recorder.RecordSessionsPurged(purged)
	if purged > 0 {
		logger.WithFields(logrus.Fields{
			"worker_id": w.WorkerID,
			"purged":    purged,
		}).Info("Purged expired sessions")
	}
	return purged, nil
}
