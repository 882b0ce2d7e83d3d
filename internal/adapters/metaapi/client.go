package metaapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"smm-analytics/internal/domain"
	"smm-analytics/internal/infra/metrics"
)

const defaultBaseURL = "https://graph.facebook.com/v19.0"

const mediaFields = "id,caption,media_type,timestamp,like_count,comments_count,permalink,media_url"

const profileFields = "name,username,followers_count,follows_count,media_count,profile_picture_url"

// Client выполняет запросы к Graph API за собственной аналитикой.
type Client struct {
	http        *http.Client
	baseURL     string
	pageID      string
	accessToken string
}

// NewClient создаёт клиента Graph API.
func NewClient(pageID, accessToken, baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	baseURL = strings.TrimRight(baseURL, "/")
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	httpClient := &http.Client{Timeout: timeout + 5*time.Second}
	return &Client{http: httpClient, baseURL: baseURL, pageID: pageID, accessToken: accessToken}
}

// Configured сообщает, заданы ли учётные данные провайдера.
func (c *Client) Configured() bool {
	return c.pageID != "" && c.accessToken != ""
}

type profileResponse struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	Username          string `json:"username"`
	FollowersCount    int    `json:"followers_count"`
	FollowsCount      int    `json:"follows_count"`
	MediaCount        int    `json:"media_count"`
	ProfilePictureURL string `json:"profile_picture_url"`
}

// FetchProfile запрашивает профиль страницы.
func (c *Client) FetchProfile(ctx context.Context) (domain.ProviderProfile, error) {
	if !c.Configured() {
		return domain.ProviderProfile{}, fmt.Errorf("meta: учётные данные не заданы")
	}
	params := url.Values{}
	params.Set("fields", profileFields)
	params.Set("access_token", c.accessToken)

	var profile profileResponse
	if err := c.get(ctx, "profile", "/"+c.pageID, params, &profile); err != nil {
		return domain.ProviderProfile{}, err
	}
	return domain.ProviderProfile{
		PageID:         c.pageID,
		Name:           profile.Name,
		Username:       profile.Username,
		FollowersCount: profile.FollowersCount,
		FollowsCount:   profile.FollowsCount,
		MediaCount:     profile.MediaCount,
		ProfilePicURL:  profile.ProfilePictureURL,
	}, nil
}

type mediaResponse struct {
	Data []domain.RawPost `json:"data"`
}

// FetchRecentMedia запрашивает свежие посты страницы.
func (c *Client) FetchRecentMedia(ctx context.Context, limit int) ([]domain.RawPost, error) {
	if !c.Configured() {
		return nil, fmt.Errorf("meta: учётные данные не заданы")
	}
	if limit <= 0 {
		limit = 25
	}
	params := url.Values{}
	params.Set("fields", mediaFields)
	params.Set("limit", strconv.Itoa(limit))
	params.Set("access_token", c.accessToken)

	var media mediaResponse
	if err := c.get(ctx, "media", "/"+c.pageID+"/media", params, &media); err != nil {
		return nil, err
	}
	return media.Data, nil
}

func (c *Client) get(ctx context.Context, operation, path string, params url.Values, out any) error {
	endpoint := c.baseURL + path + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("meta: build request: %w", err)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		metrics.ObserveNetworkRequest("meta_api", operation, c.pageID, start, err)
		return fmt.Errorf("meta: do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.ObserveNetworkRequest("meta_api", operation, c.pageID, start, err)
		return fmt.Errorf("meta: read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		var apiErr apiErrorResponse
		if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error.Message != "" {
			err = fmt.Errorf("meta: %s", apiErr.Error.Message)
		} else {
			err = fmt.Errorf("meta: unexpected status %d", resp.StatusCode)
		}
		metrics.ObserveNetworkRequest("meta_api", operation, c.pageID, start, err)
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		metrics.ObserveNetworkRequest("meta_api", operation, c.pageID, start, err)
		return fmt.Errorf("meta: decode response: %w", err)
	}
	metrics.ObserveNetworkRequest("meta_api", operation, c.pageID, start, nil)
	return nil
}

type apiErrorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}
