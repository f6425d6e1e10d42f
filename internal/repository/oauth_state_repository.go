package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/agencykit/instaflow/internal/models"
)

type OAuthStateRepository interface {
	Create(ctx context.Context, s *models.OAuthState) (int64, error)
	GetByState(ctx context.Context, state string) (*models.OAuthState, error)
	MarkUsed(ctx context.Context, id int64) error
	Delete(ctx context.Context, id int64) error
}

type oauthStateRepository struct {
	db *sql.DB
}

func NewOAuthStateRepository(db *sql.DB) OAuthStateRepository {
	return &oauthStateRepository{db: db}
}

func (r *oauthStateRepository) Create(ctx context.Context, s *models.OAuthState) (int64, error) {
	query := `
		INSERT INTO oauth_states (state, user_id, organization_id, redirect_url, is_valid)
		VALUES ($1, $2, $3, $4, TRUE)
		RETURNING id
	`

	var id int64
	err := r.db.QueryRowContext(ctx, query, s.State, s.UserID, s.OrganizationID, s.RedirectURL).Scan(&id)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	return id, nil
}

// GetByState returns only states that are still valid; a consumed or deleted
// state reads as absent.
func (r *oauthStateRepository) GetByState(ctx context.Context, state string) (*models.OAuthState, error) {
	query := `SELECT id, state, user_id, organization_id, redirect_url, is_valid, created_at
			FROM oauth_states WHERE state = $1 AND is_valid = TRUE`
	row := r.db.QueryRowContext(ctx, query, state)

	var s models.OAuthState
	err := row.Scan(&s.ID, &s.State, &s.UserID, &s.OrganizationID, &s.RedirectURL, &s.IsValid, &s.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}

	return &s, nil
}

func (r *oauthStateRepository) MarkUsed(ctx context.Context, id int64) error {
	query := `UPDATE oauth_states SET is_valid = FALSE WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *oauthStateRepository) Delete(ctx context.Context, id int64) error {
	query := `DELETE FROM oauth_states WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}
