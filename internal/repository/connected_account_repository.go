package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/agencykit/instaflow/internal/models"
)

type ConnectedAccountRepository interface {
	Create(ctx context.Context, tx *sql.Tx, ca *models.ConnectedAccount) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.ConnectedAccount, error)
	GetByOwnerAndIGAccount(ctx context.Context, userID int64, igAccountID string) (*models.ConnectedAccount, error)
	ListByUserID(ctx context.Context, userID int64) ([]*models.ConnectedAccount, error)
	ListExpiringBefore(ctx context.Context, deadline time.Time) ([]*models.ConnectedAccount, error)
	Update(ctx context.Context, ca *models.ConnectedAccount) error
	SetToken(ctx context.Context, id int64, encryptedToken string, expiresAt time.Time) error
	Deactivate(ctx context.Context, id, userID int64) error
}

type connectedAccountRepository struct {
	db *sql.DB
}

func NewConnectedAccountRepository(db *sql.DB) ConnectedAccountRepository {
	return &connectedAccountRepository{db: db}
}

const accountColumns = `id, user_id, organization_id, ig_account_id, username, profile_picture_url,
	followers_count, account_type, page_id, page_name, access_token, token_expires_at,
	is_active, connected_at, updated_at`

func scanAccount(row interface{ Scan(...interface{}) error }) (*models.ConnectedAccount, error) {
	var ca models.ConnectedAccount
	err := row.Scan(&ca.ID, &ca.UserID, &ca.OrganizationID, &ca.IGAccountID, &ca.Username,
		&ca.ProfilePictureURL, &ca.FollowersCount, &ca.AccountType, &ca.PageID, &ca.PageName,
		&ca.AccessToken, &ca.TokenExpiresAt, &ca.IsActive, &ca.ConnectedAt, &ca.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &ca, nil
}

func (r *connectedAccountRepository) Create(ctx context.Context, tx *sql.Tx, ca *models.ConnectedAccount) (int64, error) {
	var err error
	var id int64

	var insertQuery = `
			INSERT INTO connected_accounts(
				user_id,
				organization_id,
				ig_account_id,
				username,
				profile_picture_url,
				followers_count,
				account_type,
				page_id,
				page_name,
				access_token,
				token_expires_at,
				is_active
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, TRUE)
			RETURNING id
		`

	args := []interface{}{
		ca.UserID,
		ca.OrganizationID,
		ca.IGAccountID,
		ca.Username,
		ca.ProfilePictureURL,
		ca.FollowersCount,
		ca.AccountType,
		ca.PageID,
		ca.PageName,
		ca.AccessToken,
		ca.TokenExpiresAt,
	}

	if tx != nil {
		err = tx.QueryRowContext(ctx, insertQuery, args...).Scan(&id)
	} else {
		err = r.db.QueryRowContext(ctx, insertQuery, args...).Scan(&id)
	}

	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	return id, nil
}

func (r *connectedAccountRepository) GetByID(ctx context.Context, id int64) (*models.ConnectedAccount, error) {
	query := `SELECT ` + accountColumns + ` FROM connected_accounts WHERE id = $1`
	ca, err := scanAccount(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return ca, nil
}

func (r *connectedAccountRepository) GetByOwnerAndIGAccount(ctx context.Context, userID int64, igAccountID string) (*models.ConnectedAccount, error) {
	query := `SELECT ` + accountColumns + ` FROM connected_accounts WHERE user_id = $1 AND ig_account_id = $2`
	ca, err := scanAccount(r.db.QueryRowContext(ctx, query, userID, igAccountID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return ca, nil
}

func (r *connectedAccountRepository) ListByUserID(ctx context.Context, userID int64) ([]*models.ConnectedAccount, error) {
	query := `SELECT ` + accountColumns + ` FROM connected_accounts WHERE user_id = $1 AND is_active = TRUE`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var accounts []*models.ConnectedAccount
	for rows.Next() {
		ca, err := scanAccount(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		accounts = append(accounts, ca)
	}
	return accounts, rows.Err()
}

func (r *connectedAccountRepository) ListExpiringBefore(ctx context.Context, deadline time.Time) ([]*models.ConnectedAccount, error) {
	query := `SELECT ` + accountColumns + `
			FROM connected_accounts
			WHERE is_active = TRUE AND token_expires_at <= $1`
	rows, err := r.db.QueryContext(ctx, query, deadline)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var accounts []*models.ConnectedAccount
	for rows.Next() {
		ca, err := scanAccount(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		accounts = append(accounts, ca)
	}

	if err := rows.Err(); err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	return accounts, nil
}

func (r *connectedAccountRepository) Update(ctx context.Context, ca *models.ConnectedAccount) error {
	query := `
		UPDATE connected_accounts
		SET username = $2,
			profile_picture_url = $3,
			followers_count = $4,
			account_type = $5,
			page_id = $6,
			page_name = $7,
			access_token = $8,
			token_expires_at = $9,
			is_active = $10,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
	`
	_, err := r.db.ExecContext(ctx, query, ca.ID, ca.Username, ca.ProfilePictureURL,
		ca.FollowersCount, ca.AccountType, ca.PageID, ca.PageName, ca.AccessToken,
		ca.TokenExpiresAt, ca.IsActive)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *connectedAccountRepository) SetToken(ctx context.Context, id int64, encryptedToken string, expiresAt time.Time) error {
	query := `
		UPDATE connected_accounts
		SET access_token = $2,
			token_expires_at = $3,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
	`
	_, err := r.db.ExecContext(ctx, query, id, encryptedToken, expiresAt)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *connectedAccountRepository) Deactivate(ctx context.Context, id, userID int64) error {
	query := `
		UPDATE connected_accounts
		SET is_active = FALSE,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $1 AND user_id = $2
	`
	_, err := r.db.ExecContext(ctx, query, id, userID)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}
