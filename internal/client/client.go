package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"motchat/internal/config"
	"motchat/internal/model"
	"motchat/internal/utils"
)

const (
	ChatPath   = "/chat"
	StreamPath = "/stream"
)

// Client 访问 /chat 和 /stream 两个端点
type Client struct {
	baseURL      string
	httpClient   *http.Client
	streamClient *http.Client
	correlate    bool
}

type Option func(*Client)

// WithHTTPClient 同时用于提交请求和推送连接
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
		c.streamClient = httpClient
	}
}

// WithRequestTimeout 只作用于 /chat 请求，推送连接始终不限时
func WithRequestTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient = utils.NewHTTPClient(timeout)
	}
}

// WithCorrelation 开启后 /stream 携带 /chat 返回的 session_id
func WithCorrelation(enabled bool) Option {
	return func(c *Client) {
		c.correlate = enabled
	}
}

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		httpClient:   utils.NewHTTPClient(0),
		streamClient: utils.NewHTTPClient(0),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func NewClientFromConfig(cfg config.ClientConfig) *Client {
	return NewClient(cfg.ServerURL,
		WithRequestTimeout(cfg.RequestTimeout),
		WithCorrelation(cfg.Correlate),
	)
}

// PostChat 提交一次消息。非 2xx 响应同样按 JSON 解析，由 success 字段决定结果
func (c *Client) PostChat(ctx context.Context, registration string) (*model.ChatResponse, error) {
	payload, err := json.Marshal(model.ChatRequest{Registration: registration})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+ChatPath, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	var out model.ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode response (status %d): %w", resp.StatusCode, err)
	}
	return &out, nil
}

// StreamURL 推送端点地址，只有开启关联时才带上 session_id
func (c *Client) StreamURL(sessionID string) string {
	u := c.baseURL + StreamPath
	if c.correlate && sessionID != "" {
		u += "?" + url.Values{"session_id": {sessionID}}.Encode()
	}
	return u
}

// NewSession 创建一个尚未启动的会话，ctx 取消时会话关闭
func (c *Client) NewSession(ctx context.Context, view View, output Node, sessionID string) *StreamSession {
	return newStreamSession(ctx, c.streamClient, c.StreamURL(sessionID), view, output)
}
