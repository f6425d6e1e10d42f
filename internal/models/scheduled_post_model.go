package models

import (
	"errors"
	"time"
)

type ScheduledPost struct {
	ID               int64     `db:"id" json:"id"`
	AccountID        int64     `db:"account_id" json:"account_id"`
	UserID           int64     `db:"user_id" json:"user_id"`
	MediaURLs        []string  `db:"media_urls" json:"media_urls"`
	Caption          string    `db:"caption" json:"caption"`
	MediaType        string    `db:"media_type" json:"media_type"`
	ThumbnailURL     string    `db:"thumbnail_url" json:"thumbnail_url,omitempty"`
	ScheduledFor     time.Time `db:"scheduled_for" json:"scheduled_for"`
	Timezone         string    `db:"timezone" json:"timezone"`
	Status           string    `db:"status" json:"status"`
	ContainerID      string    `db:"container_id" json:"container_id,omitempty"`
	PublishedMediaID string    `db:"published_media_id" json:"published_media_id,omitempty"`
	PublishedAt      time.Time `db:"published_at" json:"published_at,omitempty"`
	ErrorMessage     string    `db:"error_message" json:"error_message,omitempty"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
}

const (
	MediaTypeImage    = "IMAGE"
	MediaTypeVideo    = "VIDEO"
	MediaTypeReel     = "REEL"
	MediaTypeCarousel = "CAROUSEL"
	MediaTypeStory    = "STORY"
)

const (
	PostStatusDraft      = "draft"
	PostStatusPending    = "pending"
	PostStatusProcessing = "processing"
	PostStatusPublished  = "published"
	PostStatusFailed     = "failed"
	PostStatusCancelled  = "cancelled"
)

var ErrInvalidTransition = errors.New("invalid post status transition")

// publishable reports whether the post may still enter the publish pipeline.
func (p *ScheduledPost) publishable() bool {
	return p.Status == PostStatusDraft || p.Status == PostStatusPending
}

func (p *ScheduledPost) IsTerminal() bool {
	switch p.Status {
	case PostStatusPublished, PostStatusFailed, PostStatusCancelled:
		return true
	}
	return false
}

// MarkProcessing records the container id and moves the post into the
// publish pipeline. Only draft/pending posts may enter.
func (p *ScheduledPost) MarkProcessing(containerID string) error {
	if !p.publishable() {
		return ErrInvalidTransition
	}
	p.Status = PostStatusProcessing
	p.ContainerID = containerID
	return nil
}

func (p *ScheduledPost) MarkPublished(mediaID string, publishedAt time.Time) error {
	if p.Status != PostStatusProcessing {
		return ErrInvalidTransition
	}
	p.Status = PostStatusPublished
	p.PublishedMediaID = mediaID
	p.PublishedAt = publishedAt
	p.ErrorMessage = ""
	return nil
}

func (p *ScheduledPost) MarkFailed(message string) error {
	if p.Status != PostStatusPending && p.Status != PostStatusDraft && p.Status != PostStatusProcessing {
		return ErrInvalidTransition
	}
	p.Status = PostStatusFailed
	p.ErrorMessage = message
	return nil
}

// Cancel is only legal before publishing starts. A processing or published
// post can never be cancelled.
func (p *ScheduledPost) Cancel() error {
	if !p.publishable() {
		return ErrInvalidTransition
	}
	p.Status = PostStatusCancelled
	return nil
}
