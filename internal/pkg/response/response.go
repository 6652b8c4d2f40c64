package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// 错误码与 HTTP 状态码一致
const (
	CodeSuccess       = 200
	CodeParamError    = http.StatusBadRequest
	CodeAuthFailed    = http.StatusUnauthorized
	CodePaymentError  = http.StatusPaymentRequired
	CodeNotFound      = http.StatusNotFound
	CodeUnprocessable = http.StatusUnprocessableEntity
	CodeServerError   = http.StatusInternalServerError
)

// 错误码对应的默认消息
var codeMessages = map[int]string{
	CodeSuccess:       "success",
	CodeParamError:    "参数错误",
	CodeAuthFailed:    "认证失败",
	CodePaymentError:  "余额不足或预扣费失败",
	CodeNotFound:      "资源不存在",
	CodeUnprocessable: "请求无法处理",
	CodeServerError:   "服务器内部错误",
}

// Response 统一响应结构
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
}

// Success 成功响应
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    CodeSuccess,
		Message: "success",
		Data:    data,
	})
}

// Error 错误响应，HTTP 状态码与 body code 一致，data 恒为 null
func Error(c *gin.Context, code int, message string) {
	if message == "" {
		message = codeMessages[code]
	}
	c.JSON(code, Response{
		Code:    code,
		Message: message,
		Data:    nil,
	})
}

// ParamError 参数错误
func ParamError(c *gin.Context, message string) {
	Error(c, CodeParamError, message)
}

// AuthError 认证失败
func AuthError(c *gin.Context, message string) {
	Error(c, CodeAuthFailed, message)
}

// PaymentError 余额不足或计费不可用
func PaymentError(c *gin.Context, message string) {
	Error(c, CodePaymentError, message)
}

// UnprocessableError 请求格式合法但内容无法处理
func UnprocessableError(c *gin.Context, message string) {
	Error(c, CodeUnprocessable, message)
}

// NotFoundError 资源不存在
func NotFoundError(c *gin.Context, message string) {
	Error(c, CodeNotFound, message)
}

// ServerError 服务器错误
func ServerError(c *gin.Context, message string) {
	Error(c, CodeServerError, message)
}
