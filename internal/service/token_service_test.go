package service

import (
	"context"
	"testing"
	"time"

	config "github.com/agencykit/instaflow/configs"
	"github.com/agencykit/instaflow/internal/meta"
	"github.com/agencykit/instaflow/internal/models"
	"github.com/agencykit/instaflow/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func seedExpiringAccount(t *testing.T, accounts *fakeAccountRepo, userID int64, token string, expiresIn time.Duration) int64 {
	t.Helper()
	encrypted, err := utils.NewTokenCipher(testSecretKey).Encrypt(token)
	require.NoError(t, err)

	id, err := accounts.Create(context.Background(), nil, &models.ConnectedAccount{
		UserID:         userID,
		IGAccountID:    token, // distinct per fixture
		AccessToken:    encrypted,
		TokenExpiresAt: time.Now().Add(expiresIn),
	})
	require.NoError(t, err)
	return id
}

func TestRefreshAccountToken_RotatesTokenAndExpiry(t *testing.T) {
	accounts := newFakeAccountRepo()
	graph := new(MockGraphClient)
	id := seedExpiringAccount(t, accounts, 7, "old-token", 48*time.Hour)

	graph.On("RefreshLongLivedToken", mock.Anything, "old-token").
		Return(&meta.TokenResponse{AccessToken: "fresh-token", ExpiresIn: 5184000}, nil)

	s := NewTokenService(config.Config{TokenExpiryDays: 60}, graph, accounts, utils.NewTokenCipher(testSecretKey))
	require.NoError(t, s.RefreshAccountToken(context.Background(), id))

	stored, err := accounts.GetByID(context.Background(), id)
	require.NoError(t, err)
	decrypted, err := utils.NewTokenCipher(testSecretKey).Decrypt(stored.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "fresh-token", decrypted)
	assert.True(t, stored.TokenExpiresAt.After(time.Now().Add(30*24*time.Hour)))
}

func TestRefreshAccountToken_MissingAccount(t *testing.T) {
	s := NewTokenService(config.Config{}, new(MockGraphClient), newFakeAccountRepo(), utils.NewTokenCipher(testSecretKey))

	err := s.RefreshAccountToken(context.Background(), 42)
	require.Error(t, err)
	assert.Equal(t, ErrKindAccountNotFound, KindOf(err))
}

func TestRefreshAccountToken_UpstreamRejection(t *testing.T) {
	accounts := newFakeAccountRepo()
	graph := new(MockGraphClient)
	id := seedExpiringAccount(t, accounts, 7, "revoked-token", 48*time.Hour)

	graph.On("RefreshLongLivedToken", mock.Anything, "revoked-token").
		Return(nil, &meta.APIError{Message: "Error validating access token", Code: 190})

	s := NewTokenService(config.Config{}, graph, accounts, utils.NewTokenCipher(testSecretKey))
	err := s.RefreshAccountToken(context.Background(), id)
	require.Error(t, err)
	assert.Equal(t, ErrKindTokenRefreshFailed, KindOf(err))
	assert.Contains(t, err.Error(), "Error validating access token")
}

func TestRefreshExpiringTokens_OneFailureDoesNotAbortBatch(t *testing.T) {
	accounts := newFakeAccountRepo()
	graph := new(MockGraphClient)

	seedExpiringAccount(t, accounts, 7, "token-1", 24*time.Hour)
	badID := seedExpiringAccount(t, accounts, 7, "token-2", 48*time.Hour)
	seedExpiringAccount(t, accounts, 8, "token-3", 72*time.Hour)

	graph.On("RefreshLongLivedToken", mock.Anything, "token-1").
		Return(&meta.TokenResponse{AccessToken: "token-1b", ExpiresIn: 5184000}, nil)
	graph.On("RefreshLongLivedToken", mock.Anything, "token-2").
		Return(nil, &meta.APIError{Message: "Session has expired", Code: 190})
	graph.On("RefreshLongLivedToken", mock.Anything, "token-3").
		Return(&meta.TokenResponse{AccessToken: "token-3b", ExpiresIn: 5184000}, nil)

	s := NewTokenService(config.Config{}, graph, accounts, utils.NewTokenCipher(testSecretKey))
	result, err := s.RefreshExpiringTokens(context.Background(), 7)
	require.NoError(t, err)

	assert.Equal(t, 2, result.Refreshed)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, badID, result.Errors[0].AccountID)
	assert.Contains(t, result.Errors[0].Error, "Session has expired")
}

func TestRefreshExpiringTokens_OnlyExpiringAccountsSelected(t *testing.T) {
	accounts := newFakeAccountRepo()
	graph := new(MockGraphClient)

	seedExpiringAccount(t, accounts, 7, "soon-token", 24*time.Hour)
	seedExpiringAccount(t, accounts, 7, "later-token", 30*24*time.Hour)

	graph.On("RefreshLongLivedToken", mock.Anything, "soon-token").
		Return(&meta.TokenResponse{AccessToken: "soon-token-b", ExpiresIn: 5184000}, nil)

	s := NewTokenService(config.Config{}, graph, accounts, utils.NewTokenCipher(testSecretKey))
	result, err := s.RefreshExpiringTokens(context.Background(), 7)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Refreshed)
	assert.Zero(t, result.Failed)
	graph.AssertNotCalled(t, "RefreshLongLivedToken", mock.Anything, "later-token")
}
