package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/agencykit/instaflow/internal/meta"
	"github.com/agencykit/instaflow/internal/models"
	"github.com/stretchr/testify/mock"
)

const testSecretKey = "0123456789abcdef0123456789abcdef"

// MockGraphClient is a mock implementation of the meta.Client interface.
type MockGraphClient struct {
	mock.Mock
}

func (m *MockGraphClient) AuthCodeURL(state string) string {
	args := m.Called(state)
	return args.String(0)
}

func (m *MockGraphClient) ExchangeCodeForToken(ctx context.Context, code string) (*meta.TokenResponse, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*meta.TokenResponse), args.Error(1)
}

func (m *MockGraphClient) ExchangeForLongLivedToken(ctx context.Context, token string) (*meta.TokenResponse, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*meta.TokenResponse), args.Error(1)
}

func (m *MockGraphClient) RefreshLongLivedToken(ctx context.Context, token string) (*meta.TokenResponse, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*meta.TokenResponse), args.Error(1)
}

func (m *MockGraphClient) GetFacebookPages(ctx context.Context, accessToken string) ([]meta.Page, error) {
	args := m.Called(ctx, accessToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]meta.Page), args.Error(1)
}

func (m *MockGraphClient) GetInstagramAccount(ctx context.Context, pageID, accessToken string) (string, error) {
	args := m.Called(ctx, pageID, accessToken)
	return args.String(0), args.Error(1)
}

func (m *MockGraphClient) GetInstagramAccountDetails(ctx context.Context, igUserID, accessToken string) (*meta.AccountDetails, error) {
	args := m.Called(ctx, igUserID, accessToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*meta.AccountDetails), args.Error(1)
}

func (m *MockGraphClient) CreateImageContainer(ctx context.Context, igUserID, imageURL, caption, accessToken string) (string, error) {
	args := m.Called(ctx, igUserID, imageURL, caption, accessToken)
	return args.String(0), args.Error(1)
}

func (m *MockGraphClient) CreateVideoContainer(ctx context.Context, igUserID, videoURL, caption, thumbnailURL string, isReel bool, accessToken string) (string, error) {
	args := m.Called(ctx, igUserID, videoURL, caption, thumbnailURL, isReel, accessToken)
	return args.String(0), args.Error(1)
}

func (m *MockGraphClient) CreateCarouselItemContainer(ctx context.Context, igUserID, mediaURL string, isVideo bool, accessToken string) (string, error) {
	args := m.Called(ctx, igUserID, mediaURL, isVideo, accessToken)
	return args.String(0), args.Error(1)
}

func (m *MockGraphClient) CreateCarouselContainer(ctx context.Context, igUserID string, children []string, caption, accessToken string) (string, error) {
	args := m.Called(ctx, igUserID, children, caption, accessToken)
	return args.String(0), args.Error(1)
}

func (m *MockGraphClient) CreateStoryContainer(ctx context.Context, igUserID, mediaURL string, isVideo bool, accessToken string) (string, error) {
	args := m.Called(ctx, igUserID, mediaURL, isVideo, accessToken)
	return args.String(0), args.Error(1)
}

func (m *MockGraphClient) GetContainerStatus(ctx context.Context, containerID, accessToken string) (*meta.ContainerStatus, error) {
	args := m.Called(ctx, containerID, accessToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*meta.ContainerStatus), args.Error(1)
}

func (m *MockGraphClient) PublishMedia(ctx context.Context, igUserID, containerID, accessToken string) (string, error) {
	args := m.Called(ctx, igUserID, containerID, accessToken)
	return args.String(0), args.Error(1)
}

func (m *MockGraphClient) GetMediaDetails(ctx context.Context, mediaID, accessToken string) (*meta.MediaDetails, error) {
	args := m.Called(ctx, mediaID, accessToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*meta.MediaDetails), args.Error(1)
}

// fakeAccountRepo is an in-memory ConnectedAccountRepository.
type fakeAccountRepo struct {
	accounts map[int64]*models.ConnectedAccount
	nextID   int64
}

func newFakeAccountRepo() *fakeAccountRepo {
	return &fakeAccountRepo{accounts: make(map[int64]*models.ConnectedAccount), nextID: 1}
}

func (r *fakeAccountRepo) Create(ctx context.Context, tx *sql.Tx, ca *models.ConnectedAccount) (int64, error) {
	id := r.nextID
	r.nextID++
	stored := *ca
	stored.ID = id
	if stored.ConnectedAt.IsZero() {
		stored.ConnectedAt = time.Now()
	}
	stored.IsActive = true
	r.accounts[id] = &stored
	return id, nil
}

func (r *fakeAccountRepo) GetByID(ctx context.Context, id int64) (*models.ConnectedAccount, error) {
	ca, ok := r.accounts[id]
	if !ok {
		return nil, nil
	}
	copied := *ca
	return &copied, nil
}

func (r *fakeAccountRepo) GetByOwnerAndIGAccount(ctx context.Context, userID int64, igAccountID string) (*models.ConnectedAccount, error) {
	for _, ca := range r.accounts {
		if ca.UserID == userID && ca.IGAccountID == igAccountID {
			copied := *ca
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *fakeAccountRepo) ListByUserID(ctx context.Context, userID int64) ([]*models.ConnectedAccount, error) {
	var out []*models.ConnectedAccount
	for _, ca := range r.accounts {
		if ca.UserID == userID && ca.IsActive {
			copied := *ca
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *fakeAccountRepo) ListExpiringBefore(ctx context.Context, deadline time.Time) ([]*models.ConnectedAccount, error) {
	var out []*models.ConnectedAccount
	for _, ca := range r.accounts {
		if ca.IsActive && !ca.TokenExpiresAt.After(deadline) {
			copied := *ca
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *fakeAccountRepo) Update(ctx context.Context, ca *models.ConnectedAccount) error {
	copied := *ca
	r.accounts[ca.ID] = &copied
	return nil
}

func (r *fakeAccountRepo) SetToken(ctx context.Context, id int64, encryptedToken string, expiresAt time.Time) error {
	if ca, ok := r.accounts[id]; ok {
		ca.AccessToken = encryptedToken
		ca.TokenExpiresAt = expiresAt
	}
	return nil
}

func (r *fakeAccountRepo) Deactivate(ctx context.Context, id, userID int64) error {
	if ca, ok := r.accounts[id]; ok && ca.UserID == userID {
		ca.IsActive = false
	}
	return nil
}

// fakeStateRepo is an in-memory OAuthStateRepository.
type fakeStateRepo struct {
	states  map[string]*models.OAuthState
	nextID  int64
	deleted []int64
}

func newFakeStateRepo() *fakeStateRepo {
	return &fakeStateRepo{states: make(map[string]*models.OAuthState), nextID: 1}
}

func (r *fakeStateRepo) Create(ctx context.Context, s *models.OAuthState) (int64, error) {
	id := r.nextID
	r.nextID++
	stored := *s
	stored.ID = id
	stored.IsValid = true
	stored.CreatedAt = time.Now()
	r.states[s.State] = &stored
	return id, nil
}

func (r *fakeStateRepo) GetByState(ctx context.Context, state string) (*models.OAuthState, error) {
	s, ok := r.states[state]
	if !ok || !s.IsValid {
		return nil, nil
	}
	copied := *s
	return &copied, nil
}

func (r *fakeStateRepo) MarkUsed(ctx context.Context, id int64) error {
	for _, s := range r.states {
		if s.ID == id {
			s.IsValid = false
		}
	}
	return nil
}

func (r *fakeStateRepo) Delete(ctx context.Context, id int64) error {
	for key, s := range r.states {
		if s.ID == id {
			delete(r.states, key)
			r.deleted = append(r.deleted, id)
		}
	}
	return nil
}

// fakePostRepo is an in-memory ScheduledPostRepository.
type fakePostRepo struct {
	posts  map[int64]*models.ScheduledPost
	nextID int64
}

func newFakePostRepo() *fakePostRepo {
	return &fakePostRepo{posts: make(map[int64]*models.ScheduledPost), nextID: 1}
}

func (r *fakePostRepo) Create(ctx context.Context, tx *sql.Tx, post *models.ScheduledPost) (int64, error) {
	id := r.nextID
	r.nextID++
	stored := *post
	stored.ID = id
	stored.CreatedAt = time.Now()
	r.posts[id] = &stored
	return id, nil
}

func (r *fakePostRepo) GetByID(ctx context.Context, id int64) (*models.ScheduledPost, error) {
	p, ok := r.posts[id]
	if !ok {
		return nil, nil
	}
	copied := *p
	return &copied, nil
}

func (r *fakePostRepo) ListByUserID(ctx context.Context, userID int64) ([]*models.ScheduledPost, error) {
	var out []*models.ScheduledPost
	for _, p := range r.posts {
		if p.UserID == userID {
			copied := *p
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *fakePostRepo) ListDue(ctx context.Context, now time.Time) ([]*models.ScheduledPost, error) {
	var out []*models.ScheduledPost
	for _, p := range r.posts {
		if !p.ScheduledFor.After(now) && (p.Status == models.PostStatusPending || p.Status == models.PostStatusDraft) {
			copied := *p
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *fakePostRepo) SetProcessing(ctx context.Context, id int64, containerID string) error {
	if p, ok := r.posts[id]; ok && (p.Status == models.PostStatusPending || p.Status == models.PostStatusDraft) {
		p.Status = models.PostStatusProcessing
		p.ContainerID = containerID
	}
	return nil
}

func (r *fakePostRepo) SetPublished(ctx context.Context, id int64, mediaID string, publishedAt time.Time) error {
	if p, ok := r.posts[id]; ok && p.Status == models.PostStatusProcessing {
		p.Status = models.PostStatusPublished
		p.PublishedMediaID = mediaID
		p.PublishedAt = publishedAt
		p.ErrorMessage = ""
	}
	return nil
}

func (r *fakePostRepo) SetFailed(ctx context.Context, id int64, message string) error {
	if p, ok := r.posts[id]; ok && !terminalStatus(p.Status) {
		p.Status = models.PostStatusFailed
		p.ErrorMessage = message
	}
	return nil
}

func (r *fakePostRepo) Cancel(ctx context.Context, id, userID int64) (bool, error) {
	p, ok := r.posts[id]
	if !ok || p.UserID != userID {
		return false, nil
	}
	if p.Status != models.PostStatusPending && p.Status != models.PostStatusDraft {
		return false, nil
	}
	p.Status = models.PostStatusCancelled
	return true, nil
}

func terminalStatus(status string) bool {
	switch status {
	case models.PostStatusPublished, models.PostStatusFailed, models.PostStatusCancelled:
		return true
	}
	return false
}
