package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/agencykit/instaflow/internal/models"
	"github.com/lib/pq"
)

type ScheduledPostRepository interface {
	Create(ctx context.Context, tx *sql.Tx, post *models.ScheduledPost) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.ScheduledPost, error)
	ListByUserID(ctx context.Context, userID int64) ([]*models.ScheduledPost, error)
	ListDue(ctx context.Context, now time.Time) ([]*models.ScheduledPost, error)
	SetProcessing(ctx context.Context, id int64, containerID string) error
	SetPublished(ctx context.Context, id int64, mediaID string, publishedAt time.Time) error
	SetFailed(ctx context.Context, id int64, message string) error
	Cancel(ctx context.Context, id, userID int64) (bool, error)
}

type scheduledPostRepository struct {
	db *sql.DB
}

func NewScheduledPostRepository(db *sql.DB) ScheduledPostRepository {
	return &scheduledPostRepository{db: db}
}

const postColumns = `id, account_id, user_id, media_urls, caption, media_type, thumbnail_url,
	scheduled_for, timezone, status, container_id, published_media_id, published_at,
	error_message, created_at`

func scanPost(row interface{ Scan(...interface{}) error }) (*models.ScheduledPost, error) {
	var p models.ScheduledPost
	var publishedAt sql.NullTime
	err := row.Scan(&p.ID, &p.AccountID, &p.UserID, pq.Array(&p.MediaURLs), &p.Caption,
		&p.MediaType, &p.ThumbnailURL, &p.ScheduledFor, &p.Timezone, &p.Status,
		&p.ContainerID, &p.PublishedMediaID, &publishedAt, &p.ErrorMessage, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	if publishedAt.Valid {
		p.PublishedAt = publishedAt.Time
	}
	return &p, nil
}

func (r *scheduledPostRepository) Create(ctx context.Context, tx *sql.Tx, post *models.ScheduledPost) (int64, error) {
	query := `
		INSERT INTO scheduled_posts (account_id, user_id, media_urls, caption, media_type,
			thumbnail_url, scheduled_for, timezone, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`

	var id int64
	var err error

	args := []interface{}{
		post.AccountID,
		post.UserID,
		pq.Array(post.MediaURLs),
		post.Caption,
		post.MediaType,
		post.ThumbnailURL,
		post.ScheduledFor,
		post.Timezone,
		post.Status,
	}

	if tx != nil {
		err = tx.QueryRowContext(ctx, query, args...).Scan(&id)
	} else {
		err = r.db.QueryRowContext(ctx, query, args...).Scan(&id)
	}
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	return id, nil
}

func (r *scheduledPostRepository) GetByID(ctx context.Context, id int64) (*models.ScheduledPost, error) {
	query := `SELECT ` + postColumns + ` FROM scheduled_posts WHERE id = $1`
	p, err := scanPost(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return p, nil
}

func (r *scheduledPostRepository) ListByUserID(ctx context.Context, userID int64) ([]*models.ScheduledPost, error) {
	query := `SELECT ` + postColumns + ` FROM scheduled_posts WHERE user_id = $1 ORDER BY scheduled_for DESC`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var posts []*models.ScheduledPost
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

// ListDue returns posts whose scheduled time has passed and whose status
// still permits publishing, oldest first.
func (r *scheduledPostRepository) ListDue(ctx context.Context, now time.Time) ([]*models.ScheduledPost, error) {
	query := `SELECT ` + postColumns + `
		FROM scheduled_posts
		WHERE scheduled_for <= $1 AND status IN ($2, $3)
		ORDER BY scheduled_for ASC`
	rows, err := r.db.QueryContext(ctx, query, now, models.PostStatusPending, models.PostStatusDraft)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var posts []*models.ScheduledPost
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		posts = append(posts, p)
	}

	if err := rows.Err(); err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	return posts, nil
}

func (r *scheduledPostRepository) SetProcessing(ctx context.Context, id int64, containerID string) error {
	query := `
		UPDATE scheduled_posts
		SET status = $2, container_id = $3
		WHERE id = $1 AND status IN ($4, $5)
	`
	_, err := r.db.ExecContext(ctx, query, id, models.PostStatusProcessing, containerID,
		models.PostStatusPending, models.PostStatusDraft)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *scheduledPostRepository) SetPublished(ctx context.Context, id int64, mediaID string, publishedAt time.Time) error {
	query := `
		UPDATE scheduled_posts
		SET status = $2, published_media_id = $3, published_at = $4, error_message = ''
		WHERE id = $1 AND status = $5
	`
	_, err := r.db.ExecContext(ctx, query, id, models.PostStatusPublished, mediaID, publishedAt,
		models.PostStatusProcessing)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *scheduledPostRepository) SetFailed(ctx context.Context, id int64, message string) error {
	query := `
		UPDATE scheduled_posts
		SET status = $2, error_message = $3
		WHERE id = $1 AND status IN ($4, $5, $6)
	`
	_, err := r.db.ExecContext(ctx, query, id, models.PostStatusFailed, message,
		models.PostStatusPending, models.PostStatusDraft, models.PostStatusProcessing)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

// Cancel succeeds only while the post has not entered the pipeline. The
// status guard in SQL keeps a racing publisher from being overridden.
func (r *scheduledPostRepository) Cancel(ctx context.Context, id, userID int64) (bool, error) {
	query := `
		UPDATE scheduled_posts
		SET status = $3
		WHERE id = $1 AND user_id = $2 AND status IN ($4, $5)
	`
	result, err := r.db.ExecContext(ctx, query, id, userID, models.PostStatusCancelled,
		models.PostStatusPending, models.PostStatusDraft)
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}

	return affected == 1, nil
}
