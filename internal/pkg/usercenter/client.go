package usercenter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/qs3c/imgproc_go_server/config"
	"github.com/qs3c/imgproc_go_server/internal/model"
)

// 扣费操作类型
const (
	OperationRefundAll  = "REFUND_ALL"
	OperationChargeMore = "CHARGE_MORE"
)

// ErrUserNotResolved 凭证无法解析为用户
type ErrUserNotResolved struct {
	Message string
}

func (e *ErrUserNotResolved) Error() string {
	return fmt.Sprintf("用户凭证解析失败: %s", e.Message)
}

// ChargeError 用户中心拒绝扣费（code != 200）
type ChargeError struct {
	Code    int
	Message string
}

func (e *ChargeError) Error() string {
	return fmt.Sprintf("用户中心扣费失败 [%d]: %s", e.Code, e.Message)
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// ChargeRequest 预扣费请求体
type ChargeRequest struct {
	APIToken        string `json:"api_token"`
	APIPath         string `json:"api_path"`
	Context         string `json:"context"`
	CallType        string `json:"call_type"`
	EstimatedTokens int64  `json:"estimated_tokens"`
	RequestID       string `json:"request_id"`
	Request         string `json:"request"`
	Response        string `json:"response"`
	Remark          string `json:"remark"`
}

// ActualChargeRequest 实扣/退款请求体
type ActualChargeRequest struct {
	CallID           string `json:"call_id"`
	OperationType    string `json:"operation_type"`
	AdditionalTokens int64  `json:"additional_tokens,omitempty"`
	Remark           string `json:"remark"`
}

// ChargeData 用户中心计费接口返回的数据
type ChargeData struct {
	CallID           string `json:"callId"`
	Status           string `json:"status"`
	Message          string `json:"message"`
	RemainingBalance int64  `json:"remainingBalance"`
}

// Client 用户中心内部 API 客户端
type Client struct {
	baseURL       string
	internalToken string
	httpClient    *http.Client
}

func NewClient(cfg *config.UserCenterConfig) *Client {
	return &Client{
		baseURL:       cfg.BaseURL,
		internalToken: cfg.InternalToken,
		httpClient:    &http.Client{Timeout: cfg.Timeout},
	}
}

// ResolveAPIToken 按 API Token 解析用户
func (c *Client) ResolveAPIToken(ctx context.Context, token string) (*model.User, error) {
	return c.resolve(ctx, "/api/internal/users/by-api-token/", token)
}

// ResolveJWTToken 按 JWT Token 解析用户
func (c *Client) ResolveJWTToken(ctx context.Context, token string) (*model.User, error) {
	return c.resolve(ctx, "/api/internal/users/by-jwt-token/", token)
}

func (c *Client) resolve(ctx context.Context, path, token string) (*model.User, error) {
	endpoint := c.baseURL + path + url.PathEscape(token)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("用户中心请求失败: %w", err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("用户中心响应解析失败: %w", err)
	}

	if env.Code != 200 || len(env.Data) == 0 || string(env.Data) == "null" {
		return nil, &ErrUserNotResolved{Message: env.Message}
	}

	var user model.User
	if err := json.Unmarshal(env.Data, &user); err != nil {
		return nil, fmt.Errorf("用户数据解析失败: %w", err)
	}
	return &user, nil
}

// Charge 提交预扣费
func (c *Client) Charge(ctx context.Context, req *ChargeRequest) (*ChargeData, error) {
	return c.postBilling(ctx, "/api/internal/billing/charge", req)
}

// ActualCharge 提交实扣（退款或补扣）
func (c *Client) ActualCharge(ctx context.Context, req *ActualChargeRequest) (*ChargeData, error) {
	return c.postBilling(ctx, "/api/internal/billing/actual-charge", req)
}

func (c *Client) postBilling(ctx context.Context, path string, body interface{}) (*ChargeData, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("用户中心请求失败: %w", err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("用户中心响应解析失败: %w", err)
	}

	if env.Code != 200 {
		return nil, &ChargeError{Code: env.Code, Message: env.Message}
	}

	var data ChargeData
	if len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return nil, fmt.Errorf("计费数据解析失败: %w", err)
		}
	}
	return &data, nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("X-Internal-API-Token", c.internalToken)
	req.Header.Set("Content-Type", "application/json")
}
