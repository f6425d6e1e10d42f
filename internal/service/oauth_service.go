package service

import (
	"context"
	"log/slog"
	"time"

	config "github.com/agencykit/instaflow/configs"
	"github.com/agencykit/instaflow/internal/meta"
	"github.com/agencykit/instaflow/internal/models"
	"github.com/agencykit/instaflow/internal/repository"
	"github.com/agencykit/instaflow/internal/transfer"
	"github.com/agencykit/instaflow/pkg/utils"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

type OAuthService interface {
	GetAuthURL(ctx context.Context, userID, orgID int64, redirectURL string) (string, error)
	HandleCallback(ctx context.Context, code, state string) (*transfer.OAuthCallbackResult, error)
}

type oauthService struct {
	cfg    config.Config
	graph  meta.Client
	ca     repository.ConnectedAccountRepository
	states repository.OAuthStateRepository
	cipher *utils.TokenCipher
}

func NewOAuthService(
	cfg config.Config,
	graph meta.Client,
	ca repository.ConnectedAccountRepository,
	states repository.OAuthStateRepository,
	cipher *utils.TokenCipher) OAuthService {
	return &oauthService{
		cfg:    cfg,
		graph:  graph,
		ca:     ca,
		states: states,
		cipher: cipher,
	}
}

// GetAuthURL persists a fresh single-use state row and returns the Facebook
// login dialog URL carrying it.
func (s *oauthService) GetAuthURL(ctx context.Context, userID, orgID int64, redirectURL string) (string, error) {
	stateValue, err := gonanoid.New(32)
	if err != nil {
		slog.Info(err.Error())
		return "", err
	}

	state := &models.OAuthState{
		State:          stateValue,
		UserID:         userID,
		OrganizationID: orgID,
		RedirectURL:    redirectURL,
	}
	if _, err := s.states.Create(ctx, state); err != nil {
		return "", err
	}

	return s.graph.AuthCodeURL(stateValue), nil
}

// HandleCallback exchanges the authorization code, discovers every Instagram
// business account the token reaches, and upserts a ConnectedAccount per
// account. The state row is the CSRF guard: consumed on success, deleted on
// failure so a legitimate retry can start over.
func (s *oauthService) HandleCallback(ctx context.Context, code, state string) (*transfer.OAuthCallbackResult, error) {
	if code == "" || state == "" {
		return nil, newError(ErrKindValidation, "code or state is empty")
	}

	stateRow, err := s.states.GetByState(ctx, state)
	if err != nil {
		return nil, err
	}
	if stateRow == nil {
		return nil, newError(ErrKindInvalidState, "oauth state not found or already used")
	}

	result, err := s.connectAccounts(ctx, code, stateRow)
	if err != nil {
		// Delete rather than invalidate so the user can retry the flow.
		if delErr := s.states.Delete(ctx, stateRow.ID); delErr != nil {
			slog.Info(delErr.Error())
		}
		return nil, wrapError(ErrKindOAuthFailed, err)
	}

	if err := s.states.MarkUsed(ctx, stateRow.ID); err != nil {
		slog.Info(err.Error())
	}

	result.RedirectURL = stateRow.RedirectURL
	return result, nil
}

func (s *oauthService) connectAccounts(ctx context.Context, code string, stateRow *models.OAuthState) (*transfer.OAuthCallbackResult, error) {
	token, err := s.graph.ExchangeCodeForToken(ctx, code)
	if err != nil {
		return nil, err
	}

	longLived, err := s.graph.ExchangeForLongLivedToken(ctx, token.AccessToken)
	if err != nil {
		return nil, err
	}

	pages, err := s.graph.GetFacebookPages(ctx, longLived.AccessToken)
	if err != nil {
		return nil, err
	}
	if len(pages) == 0 {
		return nil, newError(ErrKindNoInstagramAccount, "no facebook pages available to this token")
	}

	result := &transfer.OAuthCallbackResult{}

	for _, page := range pages {
		igAccountID, err := s.graph.GetInstagramAccount(ctx, page.ID, longLived.AccessToken)
		if err != nil {
			return nil, err
		}
		if igAccountID == "" {
			// An agency may manage pages with no Instagram account; skip.
			continue
		}

		summary, err := s.connectOne(ctx, stateRow, page, igAccountID, longLived)
		if err != nil {
			return nil, err
		}

		result.Accounts = append(result.Accounts, *summary)
		result.AccountsConnected++
	}

	if result.AccountsConnected == 0 {
		return nil, newError(ErrKindNoInstagramAccount, "no instagram business account linked to any page")
	}

	return result, nil
}

func (s *oauthService) connectOne(ctx context.Context, stateRow *models.OAuthState, page meta.Page, igAccountID string, token *meta.TokenResponse) (*transfer.ConnectedAccountSummary, error) {
	details, err := s.graph.GetInstagramAccountDetails(ctx, igAccountID, token.AccessToken)
	if err != nil {
		return nil, err
	}

	pageToken := page.AccessToken
	if pageToken == "" {
		pageToken = token.AccessToken
	}

	encryptedToken, err := s.cipher.Encrypt(pageToken)
	if err != nil {
		return nil, err
	}

	expiresAt := s.tokenExpiry(token.ExpiresIn)

	accountType := details.AccountType
	if accountType == "" {
		accountType = models.AccountTypeBusiness
	}

	existing, err := s.ca.GetByOwnerAndIGAccount(ctx, stateRow.UserID, igAccountID)
	if err != nil {
		return nil, err
	}

	if existing != nil {
		existing.Username = details.Username
		existing.ProfilePictureURL = details.ProfilePictureURL
		existing.FollowersCount = details.FollowersCount
		existing.AccountType = accountType
		existing.PageID = page.ID
		existing.PageName = page.Name
		existing.IsActive = true
		existing.RotateToken(encryptedToken, expiresAt)

		if err := s.ca.Update(ctx, existing); err != nil {
			return nil, err
		}

		return &transfer.ConnectedAccountSummary{
			ID:          existing.ID,
			IGAccountID: igAccountID,
			Username:    details.Username,
			PageName:    page.Name,
		}, nil
	}

	account := &models.ConnectedAccount{
		UserID:            stateRow.UserID,
		OrganizationID:    stateRow.OrganizationID,
		IGAccountID:       igAccountID,
		Username:          details.Username,
		ProfilePictureURL: details.ProfilePictureURL,
		FollowersCount:    details.FollowersCount,
		AccountType:       accountType,
		PageID:            page.ID,
		PageName:          page.Name,
		AccessToken:       encryptedToken,
		TokenExpiresAt:    expiresAt,
	}

	id, err := s.ca.Create(ctx, nil, account)
	if err != nil {
		return nil, err
	}

	return &transfer.ConnectedAccountSummary{
		ID:          id,
		IGAccountID: igAccountID,
		Username:    details.Username,
		PageName:    page.Name,
	}, nil
}

// tokenExpiry computes the stored expiry. Page tokens are treated as
// long-lived (~60 days); when the provider reports expires_in, that wins.
func (s *oauthService) tokenExpiry(expiresIn int64) time.Time {
	if expiresIn > 0 {
		return time.Now().Add(time.Duration(expiresIn) * time.Second)
	}
	days := s.cfg.TokenExpiryDays
	if days <= 0 {
		days = 60
	}
	return time.Now().Add(time.Duration(days) * 24 * time.Hour)
}
