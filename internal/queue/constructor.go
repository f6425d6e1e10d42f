package queue

import (
	"github.com/agencykit/instaflow/internal/repository"
	"github.com/agencykit/instaflow/internal/service"
)

type Queue struct {
	sp        repository.ScheduledPostRepository
	publisher service.PublishService
}

func NewQueue(sp repository.ScheduledPostRepository, publisher service.PublishService) *Queue {
	return &Queue{
		sp:        sp,
		publisher: publisher,
	}
}

const TaskTypePublishPost = "publish:scheduled_post"

type PublishPostPayload struct {
	PostID int64 `json:"post_id"`
}
