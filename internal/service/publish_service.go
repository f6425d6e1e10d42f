package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	config "github.com/agencykit/instaflow/configs"
	"github.com/agencykit/instaflow/internal/meta"
	"github.com/agencykit/instaflow/internal/models"
	"github.com/agencykit/instaflow/internal/repository"
	"github.com/agencykit/instaflow/internal/transfer"
	"github.com/agencykit/instaflow/pkg/utils"
)

type PublishService interface {
	PublishNow(ctx context.Context, userID int64, req *transfer.PublishRequest) *transfer.PublishResult
	PublishScheduledPost(ctx context.Context, post *models.ScheduledPost) error
}

type publishService struct {
	graph           meta.Client
	ca              repository.ConnectedAccountRepository
	sp              repository.ScheduledPostRepository
	cipher          *utils.TokenCipher
	pollInterval    time.Duration
	pollMaxAttempts int
}

func NewPublishService(
	cfg config.Config,
	graph meta.Client,
	ca repository.ConnectedAccountRepository,
	sp repository.ScheduledPostRepository,
	cipher *utils.TokenCipher) PublishService {
	interval := time.Duration(cfg.PollIntervalSec) * time.Second
	if interval <= 0 {
		interval = 2 * time.Second
	}
	attempts := cfg.PollMaxAttempts
	if attempts <= 0 {
		attempts = 30
	}
	return &publishService{
		graph:           graph,
		ca:              ca,
		sp:              sp,
		cipher:          cipher,
		pollInterval:    interval,
		pollMaxAttempts: attempts,
	}
}

// PublishNow runs the container state machine for an immediate publish.
// Failures come back as a structured result, never as a raised error, so a
// caller can show the message without special handling.
func (s *publishService) PublishNow(ctx context.Context, userID int64, req *transfer.PublishRequest) *transfer.PublishResult {
	account, token, err := s.resolveAccount(ctx, userID, req.AccountID)
	if err != nil {
		return &transfer.PublishResult{Success: false, Error: err.Error()}
	}

	containerID, err := s.createContainer(ctx, account.IGAccountID, req.MediaURLs, req.Caption,
		req.MediaType, req.ThumbnailURL, token)
	if err != nil {
		return &transfer.PublishResult{Success: false, Error: err.Error()}
	}

	mediaID, permalink, err := s.awaitAndPublish(ctx, account.IGAccountID, containerID, token)
	if err != nil {
		return &transfer.PublishResult{Success: false, ContainerID: containerID, Error: err.Error()}
	}

	return &transfer.PublishResult{
		Success:     true,
		MediaID:     mediaID,
		Permalink:   permalink,
		ContainerID: containerID,
	}
}

// PublishScheduledPost runs the same state machine for a scheduled post.
// Every transition is persisted immediately: PROCESSING (with container id)
// before polling begins, PUBLISHED or FAILED once the outcome is known. The
// returned error is informational for the caller's tally; it has already
// been recorded on the post.
func (s *publishService) PublishScheduledPost(ctx context.Context, post *models.ScheduledPost) error {
	if post == nil {
		return newError(ErrKindValidation, "post is nil")
	}
	if post.IsTerminal() || post.Status == models.PostStatusProcessing {
		return newError(ErrKindValidation,
			fmt.Sprintf("post %d is not publishable in status %s", post.ID, post.Status))
	}

	account, token, err := s.resolveAccount(ctx, post.UserID, post.AccountID)
	if err != nil {
		return s.failPost(ctx, post, err)
	}

	containerID, err := s.createContainer(ctx, account.IGAccountID, post.MediaURLs, post.Caption,
		post.MediaType, post.ThumbnailURL, token)
	if err != nil {
		return s.failPost(ctx, post, err)
	}

	if err := post.MarkProcessing(containerID); err != nil {
		return s.failPost(ctx, post, err)
	}
	if err := s.sp.SetProcessing(ctx, post.ID, containerID); err != nil {
		return s.failPost(ctx, post, err)
	}

	mediaID, _, err := s.awaitAndPublish(ctx, account.IGAccountID, containerID, token)
	if err != nil {
		return s.failPost(ctx, post, err)
	}

	publishedAt := time.Now()
	if err := post.MarkPublished(mediaID, publishedAt); err != nil {
		return s.failPost(ctx, post, err)
	}
	if err := s.sp.SetPublished(ctx, post.ID, mediaID, publishedAt); err != nil {
		slog.Info(err.Error())
		return err
	}

	return nil
}

// failPost records the failure on the post before handing the error back.
func (s *publishService) failPost(ctx context.Context, post *models.ScheduledPost, cause error) error {
	if markErr := post.MarkFailed(cause.Error()); markErr != nil {
		slog.Info(markErr.Error())
	}
	if saveErr := s.sp.SetFailed(ctx, post.ID, cause.Error()); saveErr != nil {
		slog.Info(saveErr.Error())
	}
	return cause
}

// resolveAccount loads the target account, checks ownership, activity and
// token expiry (locally, no network round-trip), and decrypts the token.
func (s *publishService) resolveAccount(ctx context.Context, userID, accountID int64) (*models.ConnectedAccount, string, error) {
	account, err := s.ca.GetByID(ctx, accountID)
	if err != nil {
		return nil, "", wrapError(ErrKindMetaAPI, err)
	}
	if account == nil || !account.IsActive {
		return nil, "", newError(ErrKindAccountNotFound, "connected account not found or inactive")
	}
	if userID != 0 && account.UserID != userID {
		return nil, "", newError(ErrKindAccountNotFound, "connected account not found for this user")
	}
	if account.TokenExpired(time.Now()) {
		return nil, "", newError(ErrKindTokenExpired, "access token has expired; reconnect the account")
	}

	token, err := s.cipher.Decrypt(account.AccessToken)
	if err != nil {
		return nil, "", wrapError(ErrKindTokenExpired, err)
	}

	return account, token, nil
}

// createContainer dispatches on media type and returns the id of the single
// container that will be published. Unsupported types fail before any
// network call.
func (s *publishService) createContainer(ctx context.Context, igUserID string, mediaURLs []string, caption, mediaType, thumbnailURL, token string) (string, error) {
	if len(mediaURLs) == 0 {
		return "", newError(ErrKindValidation, "post has no media urls")
	}
	if !isSupportedMediaType(mediaType) {
		return "", newError(ErrKindContainerCreation,
			fmt.Sprintf("unsupported media type: %s", mediaType))
	}

	var containerID string
	var err error

	switch mediaType {
	case models.MediaTypeImage:
		containerID, err = s.graph.CreateImageContainer(ctx, igUserID, mediaURLs[0], caption, token)

	case models.MediaTypeVideo:
		containerID, err = s.graph.CreateVideoContainer(ctx, igUserID, mediaURLs[0], caption, thumbnailURL, false, token)

	case models.MediaTypeReel:
		containerID, err = s.graph.CreateVideoContainer(ctx, igUserID, mediaURLs[0], caption, thumbnailURL, true, token)

	case models.MediaTypeCarousel:
		containerID, err = s.createCarousel(ctx, igUserID, mediaURLs, caption, token)

	case models.MediaTypeStory:
		containerID, err = s.graph.CreateStoryContainer(ctx, igUserID, mediaURLs[0], isVideoURL(mediaURLs[0]), token)
	}

	if err != nil {
		return "", wrapError(ErrKindContainerCreation, err)
	}
	return containerID, nil
}

// createCarousel builds one child container per media URL, then wraps the
// children into a single carousel container. The caption lives only on the
// wrapper.
func (s *publishService) createCarousel(ctx context.Context, igUserID string, mediaURLs []string, caption, token string) (string, error) {
	children := make([]string, 0, len(mediaURLs))
	for _, mediaURL := range mediaURLs {
		childID, err := s.graph.CreateCarouselItemContainer(ctx, igUserID, mediaURL, isVideoURL(mediaURL), token)
		if err != nil {
			return "", err
		}
		children = append(children, childID)
	}

	return s.graph.CreateCarouselContainer(ctx, igUserID, children, caption, token)
}

// awaitAndPublish polls the container to a terminal status, publishes it,
// and fetches the permalink.
func (s *publishService) awaitAndPublish(ctx context.Context, igUserID, containerID, token string) (string, string, error) {
	if err := s.waitForContainer(ctx, containerID, token); err != nil {
		return "", "", err
	}

	mediaID, err := s.graph.PublishMedia(ctx, igUserID, containerID, token)
	if err != nil {
		return "", "", wrapError(ErrKindMediaPublishFailed, err)
	}

	permalink := ""
	details, err := s.graph.GetMediaDetails(ctx, mediaID, token)
	if err != nil {
		// The post is live; a missing permalink is not worth failing over.
		slog.Info(err.Error())
	} else {
		permalink = details.Permalink
	}

	return mediaID, permalink, nil
}

// waitForContainer polls at a fixed cadence up to the attempt ceiling. No
// backoff: Meta's processing time is bounded for the media sizes supported
// here, so a fixed wait with a hard ceiling is the intended behavior.
func (s *publishService) waitForContainer(ctx context.Context, containerID, token string) error {
	for attempt := 0; attempt < s.pollMaxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(s.pollInterval):
			case <-ctx.Done():
				return wrapError(ErrKindContainerNotReady, ctx.Err())
			}
		}

		status, err := s.graph.GetContainerStatus(ctx, containerID, token)
		if err != nil {
			return wrapError(ErrKindMetaAPI, err)
		}

		switch status.StatusCode {
		case meta.ContainerStatusFinished:
			return nil
		case meta.ContainerStatusError, meta.ContainerStatusExpired:
			message := status.Status
			if message == "" {
				message = fmt.Sprintf("container reported status %s", status.StatusCode)
			}
			return newError(ErrKindMediaPublishFailed, message)
		}
	}

	return newError(ErrKindContainerNotReady,
		fmt.Sprintf("container %s not ready after %d attempts", containerID, s.pollMaxAttempts))
}
