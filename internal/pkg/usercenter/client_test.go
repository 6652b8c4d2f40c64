package usercenter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qs3c/imgproc_go_server/config"
)

func newTestClient(serverURL string) *Client {
	return NewClient(&config.UserCenterConfig{
		BaseURL:       serverURL,
		InternalToken: "internal-secret",
		Timeout:       2 * time.Second,
	})
}

func TestResolveAPIToken_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/internal/users/by-api-token/tok-1", r.URL.Path)
		assert.Equal(t, "internal-secret", r.Header.Get("X-Internal-API-Token"))
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"code": 200, "message": "ok",
			"data": map[string]interface{}{
				"id": 42, "nickname": "小明", "token_balance": 8000,
				"status": "ACTIVE", "api_token": "tok-1",
			},
		})
	}))
	defer server.Close()

	user, err := newTestClient(server.URL).ResolveAPIToken(context.Background(), "tok-1")
	require.NoError(t, err)
	assert.Equal(t, int64(42), user.ID)
	assert.Equal(t, "小明", user.Nickname)
	assert.Equal(t, int64(8000), user.TokenBalance)
	assert.True(t, user.CanBill())
}

func TestResolveAPIToken_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"code": 404, "message": "用户不存在"})
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).ResolveAPIToken(context.Background(), "nope")
	require.Error(t, err)
	var notResolved *ErrUserNotResolved
	assert.ErrorAs(t, err, &notResolved)
}

func TestResolveAPIToken_NullData(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"code": 200, "message": "ok", "data": nil})
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).ResolveAPIToken(context.Background(), "tok-1")
	var notResolved *ErrUserNotResolved
	assert.ErrorAs(t, err, &notResolved)
}

func TestResolveJWTToken_PathEscaped(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.EscapedPath(), "/by-jwt-token/a%2Fb")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"code": 404, "message": "用户不存在"})
	}))
	defer server.Close()

	_, _ = newTestClient(server.URL).ResolveJWTToken(context.Background(), "a/b")
}

func TestCharge_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/internal/billing/charge", r.URL.Path)
		var body ChargeRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "SIMPLE", body.CallType)
		assert.Equal(t, int64(250), body.EstimatedTokens)

		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"code": 200, "message": "ok",
			"data": map[string]interface{}{"callId": "call-9", "status": "PRE_CHARGED", "remainingBalance": 750},
		})
	}))
	defer server.Close()

	data, err := newTestClient(server.URL).Charge(context.Background(), &ChargeRequest{
		APIToken:        "tok-1",
		APIPath:         "/api/v1/resize",
		CallType:        "SIMPLE",
		EstimatedTokens: 250,
		RequestID:       "req-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "call-9", data.CallID)
	assert.Equal(t, int64(750), data.RemainingBalance)
}

func TestCharge_RejectedBecomesChargeError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"code": 402, "message": "余额不足"})
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Charge(context.Background(), &ChargeRequest{APIToken: "tok-1"})
	require.Error(t, err)

	var chargeErr *ChargeError
	require.ErrorAs(t, err, &chargeErr)
	assert.Equal(t, 402, chargeErr.Code)
	assert.Equal(t, "余额不足", chargeErr.Message)
}

func TestActualCharge_RefundPayload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/internal/billing/actual-charge", r.URL.Path)
		var body ActualChargeRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "call-9", body.CallID)
		assert.Equal(t, OperationRefundAll, body.OperationType)

		_ = json.NewEncoder(w).Encode(map[string]interface{}{"code": 200, "message": "ok"})
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).ActualCharge(context.Background(), &ActualChargeRequest{
		CallID:        "call-9",
		OperationType: OperationRefundAll,
		Remark:        "处理失败",
	})
	assert.NoError(t, err)
}

func TestCharge_ServerUnreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	_, err := newTestClient(server.URL).Charge(context.Background(), &ChargeRequest{APIToken: "tok-1"})
	assert.Error(t, err)
}
