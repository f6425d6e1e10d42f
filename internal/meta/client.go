package meta

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	config "github.com/agencykit/instaflow/configs"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/facebook"
)

// Container status codes reported by the Graph API.
const (
	ContainerStatusExpired    = "EXPIRED"
	ContainerStatusError      = "ERROR"
	ContainerStatusFinished   = "FINISHED"
	ContainerStatusInProgress = "IN_PROGRESS"
	ContainerStatusPublished  = "PUBLISHED"
)

const oauthScopes = "instagram_basic,instagram_content_publish,pages_show_list,pages_read_engagement"

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

type Page struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	AccessToken string `json:"access_token"`
}

type AccountDetails struct {
	ID                string `json:"id"`
	Username          string `json:"username"`
	ProfilePictureURL string `json:"profile_picture_url"`
	FollowersCount    int64  `json:"followers_count"`
	MediaCount        int64  `json:"media_count"`
	AccountType       string `json:"account_type"`
}

type ContainerStatus struct {
	ID         string `json:"id"`
	StatusCode string `json:"status_code"`
	Status     string `json:"status"`
}

type MediaDetails struct {
	ID        string `json:"id"`
	Permalink string `json:"permalink"`
	Timestamp string `json:"timestamp"`
	MediaType string `json:"media_type"`
}

// Client is the stateless adapter over the Meta Graph API surface the
// publishing pipeline depends on.
type Client interface {
	AuthCodeURL(state string) string
	ExchangeCodeForToken(ctx context.Context, code string) (*TokenResponse, error)
	ExchangeForLongLivedToken(ctx context.Context, token string) (*TokenResponse, error)
	RefreshLongLivedToken(ctx context.Context, token string) (*TokenResponse, error)
	GetFacebookPages(ctx context.Context, accessToken string) ([]Page, error)
	GetInstagramAccount(ctx context.Context, pageID, accessToken string) (string, error)
	GetInstagramAccountDetails(ctx context.Context, igUserID, accessToken string) (*AccountDetails, error)
	CreateImageContainer(ctx context.Context, igUserID, imageURL, caption, accessToken string) (string, error)
	CreateVideoContainer(ctx context.Context, igUserID, videoURL, caption, thumbnailURL string, isReel bool, accessToken string) (string, error)
	CreateCarouselItemContainer(ctx context.Context, igUserID, mediaURL string, isVideo bool, accessToken string) (string, error)
	CreateCarouselContainer(ctx context.Context, igUserID string, children []string, caption, accessToken string) (string, error)
	CreateStoryContainer(ctx context.Context, igUserID, mediaURL string, isVideo bool, accessToken string) (string, error)
	GetContainerStatus(ctx context.Context, containerID, accessToken string) (*ContainerStatus, error)
	PublishMedia(ctx context.Context, igUserID, containerID, accessToken string) (string, error)
	GetMediaDetails(ctx context.Context, mediaID, accessToken string) (*MediaDetails, error)
}

type client struct {
	baseURL string
	http    *http.Client
	conf    *oauth2.Config
	cfg     config.Config
}

func NewClient(cfg config.Config) Client {
	return &client{
		baseURL: cfg.GraphAPIBaseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
		conf: &oauth2.Config{
			ClientID:     cfg.MetaAppID,
			ClientSecret: cfg.MetaAppSecret,
			RedirectURL:  cfg.MetaRedirectURI,
			Endpoint:     facebook.Endpoint,
		},
		cfg: cfg,
	}
}

func (c *client) AuthCodeURL(state string) string {
	return c.conf.AuthCodeURL(state, oauth2.SetAuthURLParam("scope", oauthScopes))
}

func (c *client) ExchangeCodeForToken(ctx context.Context, code string) (*TokenResponse, error) {
	token, err := c.conf.Exchange(ctx, code)
	if err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("failed to exchange code: %w", err)
	}

	resp := &TokenResponse{
		AccessToken: token.AccessToken,
		TokenType:   token.TokenType,
	}
	if !token.Expiry.IsZero() {
		resp.ExpiresIn = int64(time.Until(token.Expiry).Seconds())
	}
	return resp, nil
}

func (c *client) ExchangeForLongLivedToken(ctx context.Context, token string) (*TokenResponse, error) {
	params := url.Values{}
	params.Set("grant_type", "fb_exchange_token")
	params.Set("client_id", c.cfg.MetaAppID)
	params.Set("client_secret", c.cfg.MetaAppSecret)
	params.Set("fb_exchange_token", token)

	var result TokenResponse
	if err := c.doGet(ctx, fmt.Sprintf("%s/oauth/access_token?%s", c.baseURL, params.Encode()), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// RefreshLongLivedToken re-runs the long-lived exchange against the current
// token; Meta does not have a separate refresh grant for page tokens.
func (c *client) RefreshLongLivedToken(ctx context.Context, token string) (*TokenResponse, error) {
	return c.ExchangeForLongLivedToken(ctx, token)
}

func (c *client) GetFacebookPages(ctx context.Context, accessToken string) ([]Page, error) {
	reqURL := fmt.Sprintf("%s/me/accounts?fields=id,name,access_token&access_token=%s",
		c.baseURL, url.QueryEscape(accessToken))

	var result struct {
		Data []Page `json:"data"`
	}
	if err := c.doGet(ctx, reqURL, &result); err != nil {
		return nil, err
	}
	return result.Data, nil
}

// GetInstagramAccount returns the Instagram business account id linked to a
// page, or "" when the page has none.
func (c *client) GetInstagramAccount(ctx context.Context, pageID, accessToken string) (string, error) {
	reqURL := fmt.Sprintf("%s/%s?fields=instagram_business_account&access_token=%s",
		c.baseURL, pageID, url.QueryEscape(accessToken))

	var result struct {
		InstagramBusinessAccount *struct {
			ID string `json:"id"`
		} `json:"instagram_business_account"`
	}
	if err := c.doGet(ctx, reqURL, &result); err != nil {
		return "", err
	}
	if result.InstagramBusinessAccount == nil {
		return "", nil
	}
	return result.InstagramBusinessAccount.ID, nil
}

func (c *client) GetInstagramAccountDetails(ctx context.Context, igUserID, accessToken string) (*AccountDetails, error) {
	reqURL := fmt.Sprintf("%s/%s?fields=id,username,profile_picture_url,followers_count,media_count,account_type&access_token=%s",
		c.baseURL, igUserID, url.QueryEscape(accessToken))

	var details AccountDetails
	if err := c.doGet(ctx, reqURL, &details); err != nil {
		return nil, err
	}
	return &details, nil
}

func (c *client) CreateImageContainer(ctx context.Context, igUserID, imageURL, caption, accessToken string) (string, error) {
	payload := map[string]interface{}{
		"image_url":    imageURL,
		"caption":      caption,
		"access_token": accessToken,
	}
	return c.createContainer(ctx, igUserID, payload)
}

func (c *client) CreateVideoContainer(ctx context.Context, igUserID, videoURL, caption, thumbnailURL string, isReel bool, accessToken string) (string, error) {
	payload := map[string]interface{}{
		"video_url":    videoURL,
		"caption":      caption,
		"access_token": accessToken,
		"media_type":   "VIDEO",
	}
	if isReel {
		payload["media_type"] = "REELS"
	}
	if thumbnailURL != "" {
		payload["thumb_offset"] = 0
		payload["cover_url"] = thumbnailURL
	}
	return c.createContainer(ctx, igUserID, payload)
}

func (c *client) CreateCarouselItemContainer(ctx context.Context, igUserID, mediaURL string, isVideo bool, accessToken string) (string, error) {
	payload := map[string]interface{}{
		"is_carousel_item": true,
		"access_token":     accessToken,
	}
	if isVideo {
		payload["video_url"] = mediaURL
		payload["media_type"] = "VIDEO"
	} else {
		payload["image_url"] = mediaURL
	}
	return c.createContainer(ctx, igUserID, payload)
}

func (c *client) CreateCarouselContainer(ctx context.Context, igUserID string, children []string, caption, accessToken string) (string, error) {
	payload := map[string]interface{}{
		"media_type":   "CAROUSEL",
		"caption":      caption,
		"children":     children,
		"access_token": accessToken,
	}
	return c.createContainer(ctx, igUserID, payload)
}

func (c *client) CreateStoryContainer(ctx context.Context, igUserID, mediaURL string, isVideo bool, accessToken string) (string, error) {
	payload := map[string]interface{}{
		"media_type":   "STORIES",
		"access_token": accessToken,
	}
	if isVideo {
		payload["video_url"] = mediaURL
	} else {
		payload["image_url"] = mediaURL
	}
	return c.createContainer(ctx, igUserID, payload)
}

func (c *client) GetContainerStatus(ctx context.Context, containerID, accessToken string) (*ContainerStatus, error) {
	reqURL := fmt.Sprintf("%s/%s?fields=id,status_code,status&access_token=%s",
		c.baseURL, containerID, url.QueryEscape(accessToken))

	var status ContainerStatus
	if err := c.doGet(ctx, reqURL, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

func (c *client) PublishMedia(ctx context.Context, igUserID, containerID, accessToken string) (string, error) {
	reqURL := fmt.Sprintf("%s/%s/media_publish", c.baseURL, igUserID)
	payload := map[string]interface{}{
		"creation_id":  containerID,
		"access_token": accessToken,
	}

	var result struct {
		ID string `json:"id"`
	}
	if err := c.doPost(ctx, reqURL, payload, &result); err != nil {
		return "", err
	}
	if result.ID == "" {
		return "", &APIError{Message: "no media id returned from publish call"}
	}
	return result.ID, nil
}

func (c *client) GetMediaDetails(ctx context.Context, mediaID, accessToken string) (*MediaDetails, error) {
	reqURL := fmt.Sprintf("%s/%s?fields=id,permalink,timestamp,media_type&access_token=%s",
		c.baseURL, mediaID, url.QueryEscape(accessToken))

	var details MediaDetails
	if err := c.doGet(ctx, reqURL, &details); err != nil {
		return nil, err
	}
	return &details, nil
}

func (c *client) createContainer(ctx context.Context, igUserID string, payload map[string]interface{}) (string, error) {
	reqURL := fmt.Sprintf("%s/%s/media", c.baseURL, igUserID)

	var result struct {
		ID string `json:"id"`
	}
	if err := c.doPost(ctx, reqURL, payload, &result); err != nil {
		return "", err
	}
	if result.ID == "" {
		return "", &APIError{Message: "no container id returned from Instagram"}
	}
	return result.ID, nil
}

func (c *client) doGet(ctx context.Context, reqURL string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, "GET", reqURL, nil)
	if err != nil {
		return fmt.Errorf("error creating request: %w", err)
	}
	return c.do(req, out)
}

func (c *client) doPost(ctx context.Context, reqURL string, payload interface{}, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("error marshalling payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", reqURL, bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *client) do(req *http.Request, out interface{}) error {
	resp, err := c.http.Do(req)
	if err != nil {
		slog.Info(err.Error())
		return fmt.Errorf("HTTP request error: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("error reading response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp errorResponse
		if jsonErr := json.Unmarshal(respBody, &errResp); jsonErr == nil && errResp.Error.Message != "" {
			apiErr := errResp.Error
			apiErr.HTTPStatus = resp.StatusCode
			slog.Info(apiErr.Message)
			return &apiErr
		}
		return &APIError{
			Message:    fmt.Sprintf("unexpected status code from Graph API: %d", resp.StatusCode),
			HTTPStatus: resp.StatusCode,
		}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("error parsing response: %w", err)
	}
	return nil
}
