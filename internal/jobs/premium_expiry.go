package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const runTimeout = time.Minute

// PremiumExpirer clears premium flags whose window has closed.
type PremiumExpirer interface {
	ExpirePremium(ctx context.Context, now time.Time) (int64, error)
}

// PremiumExpiryJob periodically downgrades lapsed subscriptions.
type PremiumExpiryJob struct {
	users  PremiumExpirer
	logger *zap.Logger
	now    func() time.Time

	mu   sync.Mutex
	cron *cron.Cron
}

// NewPremiumExpiryJob builds the job.
func NewPremiumExpiryJob(users PremiumExpirer, logger *zap.Logger) *PremiumExpiryJob {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PremiumExpiryJob{users: users, logger: logger, now: time.Now}
}

// RunOnce expires lapsed subscriptions and returns how many were changed.
func (j *PremiumExpiryJob) RunOnce(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, runTimeout)
	defer cancel()

	expired, err := j.users.ExpirePremium(ctx, j.now().UTC())
	if err != nil {
		j.logger.Warn("premium expiry failed", zap.Error(err))
		return 0, err
	}
	if expired > 0 {
		j.logger.Info("premium subscriptions expired", zap.Int64("count", expired))
	}
	return expired, nil
}

// Start schedules the job on spec, a standard cron expression or descriptor such as "@every 1h".
// Calling Start twice is a no-op.
func (j *PremiumExpiryJob) Start(ctx context.Context, spec string) error {
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return fmt.Errorf("invalid premium expiry schedule %q: %w", spec, err)
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	if j.cron != nil {
		return nil
	}

	c := cron.New()
	c.Schedule(schedule, cron.FuncJob(func() {
		if ctx.Err() != nil {
			return
		}
		_, _ = j.RunOnce(ctx)
	}))
	c.Start()
	j.cron = c
	j.logger.Info("premium expiry job scheduled", zap.String("spec", spec))
	return nil
}

// Stop halts scheduling and waits for a running pass to finish.
func (j *PremiumExpiryJob) Stop() {
	j.mu.Lock()
	c := j.cron
	j.cron = nil
	j.mu.Unlock()

	if c == nil {
		return
	}
	<-c.Stop().Done()
}
