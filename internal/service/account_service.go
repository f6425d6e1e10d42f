package service

import (
	"context"
	"fmt"

	"github.com/agencykit/instaflow/internal/models"
	"github.com/agencykit/instaflow/internal/repository"
)

type AccountService interface {
	List(ctx context.Context, userID int64) ([]*models.ConnectedAccount, error)
	Disconnect(ctx context.Context, userID, accountID int64) error
}

type accountService struct {
	ca repository.ConnectedAccountRepository
}

func NewAccountService(ca repository.ConnectedAccountRepository) AccountService {
	return &accountService{ca: ca}
}

func (s *accountService) List(ctx context.Context, userID int64) ([]*models.ConnectedAccount, error) {
	accounts, err := s.ca.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error listing connected accounts: %w", err)
	}
	return accounts, nil
}

// Disconnect deactivates the account so it can never be selected for
// publishing again; the row is kept for audit.
func (s *accountService) Disconnect(ctx context.Context, userID, accountID int64) error {
	account, err := s.ca.GetByID(ctx, accountID)
	if err != nil {
		return err
	}
	if account == nil || account.UserID != userID {
		return newError(ErrKindAccountNotFound, "connected account not found for this user")
	}

	return s.ca.Deactivate(ctx, accountID, userID)
}
