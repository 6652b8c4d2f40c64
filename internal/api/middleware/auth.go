package middleware

import (
	"log"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/imgproc_go_server/internal/model"
	"github.com/qs3c/imgproc_go_server/internal/pkg/response"
	"github.com/qs3c/imgproc_go_server/internal/pkg/usercenter"
)

const (
	UserKey     = "user"
	APITokenKey = "apiToken"
)

// 免认证路径，这些路径不得触达用户中心
var exemptPaths = map[string]bool{
	"/":             true,
	"/api/health":   true,
	"/docs":         true,
	"/openapi.json": true,
	"/redoc":        true,
	"/favicon.ico":  true,
}

// AuthExempt 判断路径是否免认证
func AuthExempt(path string) bool {
	return exemptPaths[path] || strings.HasPrefix(path, "/static")
}

// Auth 认证中间件：先试 Authorization 头（可带 Bearer 前缀），
// 失败后回退 JWT Cookie，两者都由用户中心解析
func Auth(uc *usercenter.Client, jwtCookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if AuthExempt(c.Request.URL.Path) {
			c.Next()
			return
		}

		if token := bearerToken(c.GetHeader("Authorization")); token != "" {
			if user, err := uc.ResolveAPIToken(c.Request.Context(), token); err == nil {
				attachUser(c, user, token)
				return
			}
		}

		if cookie, err := c.Cookie(jwtCookieName); err == nil && cookie != "" {
			if user, err := uc.ResolveJWTToken(c.Request.Context(), cookie); err == nil {
				attachUser(c, user, user.APIToken)
				return
			}
		}

		response.AuthError(c, "请提供有效的认证信息")
		c.Abort()
	}
}

func attachUser(c *gin.Context, user *model.User, apiToken string) {
	if !user.CanBill() {
		response.AuthError(c, "账号状态异常，无法使用服务")
		c.Abort()
		return
	}

	log.Printf("[auth] resolved user %s", user.Nickname)
	c.Set(UserKey, user)
	c.Set(APITokenKey, apiToken)
	c.Next()
}

// bearerToken 提取令牌，bearer 前缀大小写不敏感
func bearerToken(header string) string {
	token := strings.TrimSpace(header)
	if len(token) >= 7 && strings.EqualFold(token[:7], "bearer ") {
		token = strings.TrimSpace(token[7:])
	}
	return token
}

// GetUser 从上下文获取用户快照
func GetUser(c *gin.Context) (*model.User, bool) {
	value, exists := c.Get(UserKey)
	if !exists {
		return nil, false
	}
	user, ok := value.(*model.User)
	return user, ok
}

// GetAPIToken 从上下文获取计费用的 api_token
func GetAPIToken(c *gin.Context) (string, bool) {
	value, exists := c.Get(APITokenKey)
	if !exists {
		return "", false
	}
	token, ok := value.(string)
	return token, ok
}
