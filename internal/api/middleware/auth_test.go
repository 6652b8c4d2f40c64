package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qs3c/imgproc_go_server/config"
	"github.com/qs3c/imgproc_go_server/internal/model"
	"github.com/qs3c/imgproc_go_server/internal/pkg/usercenter"
)

// fakeResolver 用户中心解析端点假服务
type fakeResolver struct {
	hits   int
	users  map[string]*model.User // token -> user
	server *httptest.Server
}

func newFakeResolver(t *testing.T) *fakeResolver {
	f := &fakeResolver{users: map[string]*model.User{}}
	mux := http.NewServeMux()
	handle := func(prefix string) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			f.hits++
			token := r.URL.Path[len(prefix):]
			user, ok := f.users[token]
			if !ok {
				_ = json.NewEncoder(w).Encode(map[string]interface{}{"code": 404, "message": "用户不存在"})
				return
			}
			_ = json.NewEncoder(w).Encode(map[string]interface{}{"code": 200, "message": "ok", "data": user})
		}
	}
	mux.HandleFunc("/api/internal/users/by-api-token/", handle("/api/internal/users/by-api-token/"))
	mux.HandleFunc("/api/internal/users/by-jwt-token/", handle("/api/internal/users/by-jwt-token/"))

	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

func newAuthRouter(f *fakeResolver) *gin.Engine {
	gin.SetMode(gin.TestMode)
	uc := usercenter.NewClient(&config.UserCenterConfig{
		BaseURL: f.server.URL,
		Timeout: 2 * time.Second,
	})

	r := gin.New()
	r.Use(Auth(uc, "jwt_token"))
	register := func(path string) {
		r.GET(path, func(c *gin.Context) {
			user, _ := GetUser(c)
			token, _ := GetAPIToken(c)
			c.JSON(200, gin.H{"nickname": user.Nickname, "api_token": token})
		})
	}
	register("/api/v1/whoami")
	r.GET("/api/health", func(c *gin.Context) { c.JSON(200, gin.H{"status": "ok"}) })
	r.GET("/", func(c *gin.Context) { c.JSON(200, gin.H{}) })
	return r
}

func activeUser(token string) *model.User {
	return &model.User{ID: 7, Nickname: "阿狸", TokenBalance: 5000, Status: model.UserStatusActive, APIToken: token}
}

func TestAuth_BearerToken(t *testing.T) {
	f := newFakeResolver(t)
	f.users["tok-1"] = activeUser("tok-1")
	r := newAuthRouter(f)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/whoami", nil)
	req.Header.Set("Authorization", "Bearer tok-1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "阿狸")
	assert.Contains(t, w.Body.String(), "tok-1")
}

func TestAuth_BearerPrefixCaseInsensitive(t *testing.T) {
	f := newFakeResolver(t)
	f.users["tok-1"] = activeUser("tok-1")
	r := newAuthRouter(f)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/whoami", nil)
	req.Header.Set("Authorization", "bearer tok-1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuth_RawTokenWithoutPrefix(t *testing.T) {
	f := newFakeResolver(t)
	f.users["tok-1"] = activeUser("tok-1")
	r := newAuthRouter(f)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/whoami", nil)
	req.Header.Set("Authorization", "tok-1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuth_JWTCookieFallback(t *testing.T) {
	f := newFakeResolver(t)
	user := activeUser("resolved-api-token")
	f.users["jwt-abc"] = user
	r := newAuthRouter(f)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/whoami", nil)
	req.AddCookie(&http.Cookie{Name: "jwt_token", Value: "jwt-abc"})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	// Cookie 路径下计费 token 取用户自身的 api_token
	assert.Contains(t, w.Body.String(), "resolved-api-token")
}

func TestAuth_NoCredentials(t *testing.T) {
	f := newFakeResolver(t)
	r := newAuthRouter(f)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/whoami", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, float64(401), body["code"])
}

func TestAuth_UnknownToken(t *testing.T) {
	f := newFakeResolver(t)
	r := newAuthRouter(f)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/whoami", nil)
	req.Header.Set("Authorization", "Bearer nope")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuth_SuspendedUserRejected(t *testing.T) {
	f := newFakeResolver(t)
	suspended := activeUser("tok-1")
	suspended.Status = model.UserStatusSuspended
	f.users["tok-1"] = suspended
	r := newAuthRouter(f)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/whoami", nil)
	req.Header.Set("Authorization", "Bearer tok-1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuth_ExemptPathsSkipUserCenter(t *testing.T) {
	f := newFakeResolver(t)
	r := newAuthRouter(f)

	for _, path := range []string{"/", "/api/health"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code, path)
	}
	// 免认证路径不得触达用户中心
	assert.Equal(t, 0, f.hits)
}

func TestAuthExempt(t *testing.T) {
	assert.True(t, AuthExempt("/"))
	assert.True(t, AuthExempt("/api/health"))
	assert.True(t, AuthExempt("/docs"))
	assert.True(t, AuthExempt("/static/examples/cat.jpg"))
	assert.False(t, AuthExempt("/api/v1/resize"))
}

func TestBearerToken(t *testing.T) {
	assert.Equal(t, "abc", bearerToken("Bearer abc"))
	assert.Equal(t, "abc", bearerToken("BEARER abc"))
	assert.Equal(t, "abc", bearerToken("abc"))
	assert.Equal(t, "abc", bearerToken("  Bearer abc  "))
	assert.Equal(t, "", bearerToken(""))
}
