package service

import (
	"context"
	"log/slog"
	"time"

	config "github.com/agencykit/instaflow/configs"
	"github.com/agencykit/instaflow/internal/meta"
	"github.com/agencykit/instaflow/internal/repository"
	"github.com/agencykit/instaflow/internal/transfer"
	"github.com/agencykit/instaflow/pkg/utils"
)

type TokenService interface {
	RefreshAccountToken(ctx context.Context, accountID int64) error
	RefreshExpiringTokens(ctx context.Context, daysThreshold int) (*transfer.BulkRefreshResult, error)
}

type tokenService struct {
	cfg    config.Config
	graph  meta.Client
	ca     repository.ConnectedAccountRepository
	cipher *utils.TokenCipher
}

func NewTokenService(
	cfg config.Config,
	graph meta.Client,
	ca repository.ConnectedAccountRepository,
	cipher *utils.TokenCipher) TokenService {
	return &tokenService{
		cfg:    cfg,
		graph:  graph,
		ca:     ca,
		cipher: cipher,
	}
}

// RefreshAccountToken rotates one account's long-lived token. Not retried
// internally; the caller decides whether to try again.
func (s *tokenService) RefreshAccountToken(ctx context.Context, accountID int64) error {
	account, err := s.ca.GetByID(ctx, accountID)
	if err != nil {
		return wrapError(ErrKindTokenRefreshFailed, err)
	}
	if account == nil {
		return newError(ErrKindAccountNotFound, "connected account not found")
	}

	currentToken, err := s.cipher.Decrypt(account.AccessToken)
	if err != nil {
		return wrapError(ErrKindTokenRefreshFailed, err)
	}

	refreshed, err := s.graph.RefreshLongLivedToken(ctx, currentToken)
	if err != nil {
		return wrapError(ErrKindTokenRefreshFailed, err)
	}

	expiresAt := time.Now().Add(time.Duration(refreshed.ExpiresIn) * time.Second)
	if refreshed.ExpiresIn <= 0 {
		days := s.cfg.TokenExpiryDays
		if days <= 0 {
			days = 60
		}
		expiresAt = time.Now().Add(time.Duration(days) * 24 * time.Hour)
	}

	encryptedToken, err := s.cipher.Encrypt(refreshed.AccessToken)
	if err != nil {
		return wrapError(ErrKindTokenRefreshFailed, err)
	}

	if err := s.ca.SetToken(ctx, account.ID, encryptedToken, expiresAt); err != nil {
		return wrapError(ErrKindTokenRefreshFailed, err)
	}

	return nil
}

// RefreshExpiringTokens refreshes every account whose token expires within
// daysThreshold days. Accounts are refreshed independently; one failure
// never aborts the batch.
func (s *tokenService) RefreshExpiringTokens(ctx context.Context, daysThreshold int) (*transfer.BulkRefreshResult, error) {
	deadline := time.Now().Add(time.Duration(daysThreshold) * 24 * time.Hour)

	accounts, err := s.ca.ListExpiringBefore(ctx, deadline)
	if err != nil {
		return nil, err
	}

	result := &transfer.BulkRefreshResult{}
	for _, account := range accounts {
		if err := s.RefreshAccountToken(ctx, account.ID); err != nil {
			slog.Info("token refresh failed", "account_id", account.ID, "error", err.Error())
			result.Failed++
			result.Errors = append(result.Errors, transfer.RefreshFailure{
				AccountID: account.ID,
				Error:     err.Error(),
			})
			continue
		}
		result.Refreshed++
	}

	return result, nil
}
