package queue

import (
	"context"
	"encoding/json"
	"log"

	"github.com/hibiken/asynq"
)

func (q *Queue) HandlePublishPostTask(ctx context.Context, task *asynq.Task) error {
	var payload PublishPostPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return err
	}

	post, err := q.sp.GetByID(ctx, payload.PostID)
	if err != nil {
		return err
	}
	if post == nil {
		log.Printf("Post %d no longer exists; dropping task", payload.PostID)
		return nil
	}
	if post.IsTerminal() {
		// The due-post sweep (or a cancel) already resolved this one.
		return nil
	}

	if err := q.publisher.PublishScheduledPost(ctx, post); err != nil {
		// Already recorded on the post; don't let asynq retry a publish
		// the pipeline has marked failed.
		log.Printf("Error publishing post %d: %v", payload.PostID, err)
	}

	return nil
}
