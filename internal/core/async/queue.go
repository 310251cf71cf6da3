// Package async runs work items on a fixed pool of workers.
package async

import (
	"context"
	"time"

	"github.com/joseph-ayodele/store-extractor/internal/entity"
)

// Job is one queued work item.
type Job struct {
	Item        entity.WorkItem
	SubmittedAt time.Time
}

type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Shutdown(ctx context.Context)
}
