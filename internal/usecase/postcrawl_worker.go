package usecase

import (
	"context"
	"fmt"

	"github.com/panjf2000/ants/v2"

	"gitlab.com/hexaretail/api/onboarding-orchestrator/internal/apperrors"
	"gitlab.com/hexaretail/api/onboarding-orchestrator/internal/config"
	"gitlab.com/hexaretail/api/onboarding-orchestrator/internal/observer"
	"gitlab.com/hexaretail/api/onboarding-orchestrator/internal/taskqueue"
	"gitlab.com/hexaretail/api/onboarding-orchestrator/pkg/utils"
)

// postCrawlJob is one queued pipeline invocation.
type postCrawlJob struct {
	ctx  context.Context
	task taskqueue.PostCrawlTask
}

// postCrawlPool bounds concurrent pipeline runs. Pipelines block their
// worker for minutes (file-status polling), so the pool size caps how
// many accounts are onboarded in parallel per instance.
type postCrawlPool struct {
	pool *ants.PoolWithFunc
}

func newPostCrawlPool(cfg config.PostCrawlWorkerPoolConfig, run func(context.Context, taskqueue.PostCrawlTask)) (*postCrawlPool, error) {
	p := &postCrawlPool{}

	pool, err := ants.NewPoolWithFunc(cfg.PoolSize, func(payload interface{}) {
		job, ok := payload.(*postCrawlJob)
		if !ok {
			return
		}
		// A panicking pipeline stage must not take the worker down with it.
		defer utils.RecoverWithLog(job.ctx, "post-crawl pipeline")
		defer observer.SetPipelineQueueLength(p.pool.Waiting())
		run(job.ctx, job.task)
	},
		ants.WithExpiryDuration(cfg.ExpiryTime),
		ants.WithMaxBlockingTasks(cfg.QueueSize),
		ants.WithNonblocking(false),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create post-crawl worker pool: %w", err)
	}

	p.pool = pool
	return p, nil
}

// Submit hands a task to the pool. The detached context keeps the
// submitter's logger but not its cancellation. A saturated pool is a
// retryable condition for the queue layer.
func (p *postCrawlPool) Submit(ctx context.Context, task taskqueue.PostCrawlTask) error {
	job := &postCrawlJob{ctx: detach(ctx), task: task}
	if err := p.pool.Invoke(job); err != nil {
		return apperrors.NewRetryable(err, "post-crawl pool rejected task")
	}
	observer.SetPipelineQueueLength(p.pool.Waiting())
	return nil
}

// Release stops the pool. Queued jobs are dropped; their locks expire
// on the TTL and a later completion webhook reschedules them.
func (p *postCrawlPool) Release() {
	p.pool.Release()
}
