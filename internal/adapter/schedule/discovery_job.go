package schedule

import (
	"context"
	"fmt"

	"github.com/berfenger/growattext2mqtt/internal/core/domain"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/reugn/go-quartz/quartz"
	"go.uber.org/zap"
)

const DEFAULT_DISCOVERY_REFRESH_CRON = "0 0 * * * *"

// DiscoveryRefreshJob asks the target actor to republish the discovery config.
type DiscoveryRefreshJob struct {
	root   *actor.RootContext
	target *actor.PID
	logger *zap.Logger
}

func NewDiscoveryRefreshJob(root *actor.RootContext, target *actor.PID, logger *zap.Logger) *DiscoveryRefreshJob {
	return &DiscoveryRefreshJob{
		root:   root,
		target: target,
		logger: logger,
	}
}

func (job *DiscoveryRefreshJob) Execute(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	job.logger.Debug("schedule: discovery refresh")
	job.root.Send(job.target, domain.RefreshDiscoveryRequest{})
	return nil
}

func (job *DiscoveryRefreshJob) Description() string {
	return fmt.Sprintf("DiscoveryRefreshJob::%s", job.target.Id)
}

// StartDiscoveryRefresh schedules job on cronExpression and starts the scheduler.
// The scheduler stops when ctx is done.
func StartDiscoveryRefresh(ctx context.Context, cronExpression string, job *DiscoveryRefreshJob) (quartz.Scheduler, error) {
	if cronExpression == "" {
		cronExpression = DEFAULT_DISCOVERY_REFRESH_CRON
	}
	trigger, err := quartz.NewCronTrigger(cronExpression)
	if err != nil {
		return nil, fmt.Errorf("invalid discovery refresh cron %q: %w", cronExpression, err)
	}
	sched := quartz.NewStdScheduler()
	sched.Start(ctx)
	if err := sched.ScheduleJob(quartz.NewJobDetail(job, quartz.NewJobKey("discovery_refresh")), trigger); err != nil {
		sched.Stop()
		return nil, err
	}
	return sched, nil
}
