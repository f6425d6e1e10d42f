package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/agencykit/instaflow/internal/models"
	"github.com/agencykit/instaflow/internal/repository"
	"github.com/agencykit/instaflow/internal/transfer"
)

type PostService interface {
	Create(ctx context.Context, userID int64, pc *transfer.PostCreation) (int64, time.Duration, error)
	List(ctx context.Context, userID int64) ([]*models.ScheduledPost, error)
	Info(ctx context.Context, postID, userID int64) (*models.ScheduledPost, error)
	Cancel(ctx context.Context, userID, postID int64) error
}

type postService struct {
	sp repository.ScheduledPostRepository
	ca repository.ConnectedAccountRepository
}

func NewPostService(sp repository.ScheduledPostRepository, ca repository.ConnectedAccountRepository) PostService {
	return &postService{sp: sp, ca: ca}
}

func (s *postService) Create(ctx context.Context, userID int64, pc *transfer.PostCreation) (int64, time.Duration, error) {
	if pc == nil {
		err := errors.New("post creation data is nil")
		slog.Error(err.Error())
		return 0, 0, err
	}
	if len(pc.MediaURLs) == 0 {
		return 0, 0, newError(ErrKindValidation, "no media urls provided")
	}
	if !isSupportedMediaType(pc.MediaType) {
		return 0, 0, newError(ErrKindValidation, fmt.Sprintf("unsupported media type: %s", pc.MediaType))
	}

	account, err := s.ca.GetByID(ctx, pc.AccountID)
	if err != nil {
		return 0, 0, err
	}
	if account == nil || account.UserID != userID || !account.IsActive {
		return 0, 0, newError(ErrKindAccountNotFound, "connected account not found for this user")
	}

	timezone := pc.Timezone
	if timezone == "" {
		timezone = "UTC"
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return 0, 0, newError(ErrKindValidation, fmt.Sprintf("invalid timezone: %s", pc.Timezone))
	}

	scheduledFor, err := time.ParseInLocation("2006-01-02T15:04", pc.ScheduledFor, loc)
	if err != nil {
		err = fmt.Errorf("invalid scheduled time format: %w", err)
		slog.Error(err.Error())
		return 0, 0, err
	}

	post := &models.ScheduledPost{
		AccountID:    pc.AccountID,
		UserID:       userID,
		MediaURLs:    pc.MediaURLs,
		Caption:      pc.Caption,
		MediaType:    pc.MediaType,
		ThumbnailURL: pc.ThumbnailURL,
		ScheduledFor: scheduledFor,
		Timezone:     timezone,
		Status:       models.PostStatusPending,
	}

	postID, err := s.sp.Create(ctx, nil, post)
	if err != nil {
		return 0, 0, fmt.Errorf("error creating post: %w", err)
	}

	delay := time.Until(scheduledFor)
	if delay < 0 {
		delay = 0
	}

	return postID, delay, nil
}

func (s *postService) List(ctx context.Context, userID int64) ([]*models.ScheduledPost, error) {
	posts, err := s.sp.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error listing posts: %w", err)
	}
	return posts, nil
}

func (s *postService) Info(ctx context.Context, postID, userID int64) (*models.ScheduledPost, error) {
	post, err := s.sp.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post == nil || post.UserID != userID {
		return nil, errors.New("post doesn't exist")
	}
	return post, nil
}

// Cancel moves a pending post to cancelled. Processing and published posts
// are past the point of no return; the row-level status guard rejects them.
func (s *postService) Cancel(ctx context.Context, userID, postID int64) error {
	cancelled, err := s.sp.Cancel(ctx, postID, userID)
	if err != nil {
		return err
	}
	if !cancelled {
		return newError(ErrKindValidation, "post cannot be cancelled")
	}
	return nil
}
