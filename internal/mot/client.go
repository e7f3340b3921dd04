package mot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"motchat/internal/config"
	"motchat/internal/utils"
	"motchat/pkg/logger"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

var ErrVehicleNotFound = errors.New("vehicle not found")

// Fetcher 查询车辆 MOT 历史
type Fetcher interface {
	VehicleHistory(ctx context.Context, registration string) (*Vehicle, error)
}

// Client MOT 历史 API 客户端，令牌通过 OAuth2 client credentials 获取并自动续期
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

var _ Fetcher = (*Client)(nil)

func NewClient(cfg config.MOTConfig) *Client {
	base := utils.NewDebugHTTPClient(cfg.Timeout, cfg.DebugRequest)
	if cfg.TokenURL == "" {
		logger.Warn("MOT token_url not set, requests are sent without a bearer token")
		return &Client{
			baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
			apiKey:     cfg.APIKey,
			httpClient: base,
		}
	}

	cc := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     cfg.TokenURL,
	}
	if cfg.Scope != "" {
		cc.Scopes = []string{cfg.Scope}
	}

	// 令牌请求复用同一个底层客户端
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, base)
	httpClient := cc.Client(ctx)
	httpClient.Timeout = cfg.Timeout

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: httpClient,
	}
}

func (c *Client) VehicleHistory(ctx context.Context, registration string) (*Vehicle, error) {
	endpoint := c.baseURL + "/" + url.PathEscape(registration)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Api-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch vehicle data: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrVehicleNotFound, registration)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("vehicle lookup failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var vehicle Vehicle
	if err := json.NewDecoder(resp.Body).Decode(&vehicle); err != nil {
		return nil, fmt.Errorf("failed to decode vehicle data: %w", err)
	}

	return &vehicle, nil
}
