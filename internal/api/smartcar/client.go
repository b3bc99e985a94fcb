package smartcar

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// 错误定义
var (
	ErrUnauthorized = fmt.Errorf("unauthorized")
	ErrRateLimited  = fmt.Errorf("rate limited")
)

// Client Smartcar API 客户端
type Client struct {
	httpClient   *http.Client
	authHost     string
	apiHost      string
	connectHost  string
	clientID     string
	clientSecret string
	redirectURI  string
	mode         string
}

// NewClient 创建新的 Smartcar API 客户端
func NewClient(authHost, apiHost, connectHost, clientID, clientSecret, redirectURI, mode string) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		authHost:     authHost,
		apiHost:      apiHost,
		connectHost:  connectHost,
		clientID:     clientID,
		clientSecret: clientSecret,
		redirectURI:  redirectURI,
		mode:         mode,
	}
}

// AuthURL 构造 Smartcar Connect 授权页 URL
func (c *Client) AuthURL(state string) string {
	params := url.Values{}
	params.Set("response_type", "code")
	params.Set("client_id", c.clientID)
	params.Set("redirect_uri", c.redirectURI)
	params.Set("scope", "read_vehicle_info")
	params.Set("mode", c.mode)
	if state != "" {
		params.Set("state", state)
	}
	return c.connectHost + "/oauth/authorize?" + params.Encode()
}

// ExchangeCode 用授权码换取访问/刷新令牌
func (c *Client) ExchangeCode(ctx context.Context, code string) (*Token, error) {
	data := url.Values{}
	data.Set("grant_type", "authorization_code")
	data.Set("code", code)
	data.Set("redirect_uri", c.redirectURI)

	return c.tokenRequest(ctx, data)
}

// ExchangeRefreshToken 用刷新令牌换取新令牌
func (c *Client) ExchangeRefreshToken(ctx context.Context, refreshToken string) (*Token, error) {
	data := url.Values{}
	data.Set("grant_type", "refresh_token")
	data.Set("refresh_token", refreshToken)

	return c.tokenRequest(ctx, data)
}

// tokenRequest 执行 OAuth token 端点请求
func (c *Client) tokenRequest(ctx context.Context, data url.Values) (*Token, error) {
	req, err := http.NewRequestWithContext(ctx, "POST", c.authHost+"/oauth/token", strings.NewReader(data.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create token request: %w", err)
	}

	req.SetBasicAuth(c.clientID, c.clientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("token exchange failed: status=%d body=%s", resp.StatusCode, string(body))
	}

	var token Token
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return nil, fmt.Errorf("decode token response: %w", err)
	}

	return &token, nil
}

// ListVehicles 获取访问令牌可访问的车辆 ID 列表
func (c *Client) ListVehicles(ctx context.Context, accessToken string) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", c.apiHost+"/v2.0/vehicles", nil)
	if err != nil {
		return nil, fmt.Errorf("create vehicles request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("list vehicles request: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		// 正常
	case http.StatusUnauthorized:
		return nil, ErrUnauthorized
	case http.StatusTooManyRequests:
		return nil, ErrRateLimited
	default:
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("list vehicles failed: status=%d body=%s", resp.StatusCode, string(body))
	}

	var vehiclesResp vehiclesResponse
	if err := json.NewDecoder(resp.Body).Decode(&vehiclesResp); err != nil {
		return nil, fmt.Errorf("decode vehicles response: %w", err)
	}

	return vehiclesResp.Vehicles, nil
}
