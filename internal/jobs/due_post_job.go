package job

import (
	"context"
	"log/slog"
	"time"

	"github.com/agencykit/instaflow/internal/repository"
	"github.com/agencykit/instaflow/internal/service"
	"github.com/agencykit/instaflow/internal/transfer"
)

// DuePostJob sweeps over posts whose scheduled time has passed and publishes
// them one at a time. It is the backstop behind the queue: a task lost to a
// crash or a Redis flush still gets published by the next sweep.
type DuePostJob struct {
	sp        repository.ScheduledPostRepository
	publisher service.PublishService
	postDelay time.Duration
}

func NewDuePostJob(sp repository.ScheduledPostRepository, publisher service.PublishService, postDelay time.Duration) *DuePostJob {
	if postDelay <= 0 {
		postDelay = time.Second
	}
	return &DuePostJob{
		sp:        sp,
		publisher: publisher,
		postDelay: postDelay,
	}
}

// Run is the cron entry point.
func (j *DuePostJob) Run() {
	result, err := j.ProcessDuePosts(context.Background())
	if err != nil {
		slog.Info(err.Error())
		return
	}
	if result.Processed > 0 {
		slog.Info("due post sweep finished",
			"processed", result.Processed,
			"succeeded", result.Succeeded,
			"failed", result.Failed)
	}
}

// ProcessDuePosts publishes every due post sequentially. One post's failure
// never stops the batch; the fixed delay between posts keeps the sweep under
// Meta's per-account publish ceiling.
func (j *DuePostJob) ProcessDuePosts(ctx context.Context) (*transfer.DuePostRunResult, error) {
	posts, err := j.sp.ListDue(ctx, time.Now())
	if err != nil {
		return nil, err
	}

	result := &transfer.DuePostRunResult{StartedAt: time.Now()}

	for i, post := range posts {
		if i > 0 {
			time.Sleep(j.postDelay)
		}

		result.Processed++
		if err := j.publisher.PublishScheduledPost(ctx, post); err != nil {
			slog.Info("scheduled publish failed", "post_id", post.ID, "error", err.Error())
			result.Failed++
			result.Results = append(result.Results, transfer.DuePostResult{
				PostID: post.ID,
				Error:  err.Error(),
			})
			continue
		}

		result.Succeeded++
		result.Results = append(result.Results, transfer.DuePostResult{
			PostID:  post.ID,
			Success: true,
		})
	}

	return result, nil
}
