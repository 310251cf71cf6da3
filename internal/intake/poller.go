// Package intake feeds work items to the worker pool: from the status store
// (Poller) or from local directories (Scan, Watch).
package intake

import (
	"context"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/store-extractor/internal/core/async"
	"github.com/joseph-ayodele/store-extractor/internal/entity"
	"github.com/joseph-ayodele/store-extractor/internal/repository"
)

// Poller claims UPLOADED rows and enqueues them. A claim is a lease, so two
// pollers never hand out the same upload; status is left to the processor.
type Poller struct {
	claimer  repository.UploadClaimer
	queue    async.Queue
	interval time.Duration
	batch    int
	logger   *slog.Logger
}

func NewPoller(claimer repository.UploadClaimer, queue async.Queue, interval time.Duration, batch int, logger *slog.Logger) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = 5 * time.Second
	}
	if batch <= 0 {
		batch = 10
	}
	return &Poller{claimer: claimer, queue: queue, interval: interval, batch: batch, logger: logger}
}

// Run polls until ctx is done. A full batch polls again right away.
func (p *Poller) Run(ctx context.Context) error {
	p.logger.Info("intake.poller.started", "interval", p.interval.String(), "batch", p.batch)
	t := time.NewTicker(p.interval)
	defer t.Stop()
	for {
		n, err := p.PollOnce(ctx)
		if err != nil {
			p.logger.Error("intake.poll.failed", "error", err)
		}
		if err == nil && n == p.batch && ctx.Err() == nil {
			continue
		}
		select {
		case <-ctx.Done():
			p.logger.Info("intake.poller.stopped")
			return ctx.Err()
		case <-t.C:
		}
	}
}

// release hands back claims that never reached the queue. The status store
// may outlive ctx, so releases run detached with their own deadline.
func (p *Poller) release(ctx context.Context, ups []entity.Upload) {
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	for _, u := range ups {
		if err := p.claimer.ReleaseClaim(rctx, u.StoreID, u.UploadID); err != nil {
			// the lease still expires on its own
			p.logger.Warn("intake.release.failed", "upload_id", u.UploadID, "store_id", u.StoreID, "error", err)
			continue
		}
		p.logger.Info("intake.claim.released", "upload_id", u.UploadID, "store_id", u.StoreID)
	}
}

// PollOnce claims up to one batch and enqueues it, returning how many rows
// were claimed.
func (p *Poller) PollOnce(ctx context.Context) (int, error) {
	ups, err := p.claimer.ClaimUploaded(ctx, p.batch)
	if err != nil {
		return 0, err
	}
	for i, u := range ups {
		job := async.Job{Item: u.WorkItem(), SubmittedAt: time.Now()}
		if err := p.queue.Enqueue(ctx, job); err != nil {
			p.logger.Error("intake.enqueue.failed", "upload_id", u.UploadID, "store_id", u.StoreID, "error", err)
			p.release(ctx, ups[i:])
			return len(ups), err
		}
	}
	if len(ups) > 0 {
		p.logger.Info("intake.poll.claimed", "count", len(ups))
	}
	return len(ups), nil
}
