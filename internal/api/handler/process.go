package handler

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/imgproc_go_server/internal/api/middleware"
	"github.com/qs3c/imgproc_go_server/internal/imageop"
	"github.com/qs3c/imgproc_go_server/internal/model"
	"github.com/qs3c/imgproc_go_server/internal/pkg/response"
	"github.com/qs3c/imgproc_go_server/internal/service"
)

// 主图 multipart 字段名，按序尝试
var primaryFields = []string{"file", "image"}

// 副图 multipart 字段别名
var secondaryFields = []string{"watermark_image", "secondary_image"}

// ProcessHandler 图片处理端点的通用处理器，按注册表逐操作挂载
type ProcessHandler struct {
	processService *service.ProcessService
	fetcher        *imageop.Fetcher
	maxSize        int64
}

func NewProcessHandler(processService *service.ProcessService, fetcher *imageop.Fetcher, maxSize int64) *ProcessHandler {
	return &ProcessHandler{
		processService: processService,
		fetcher:        fetcher,
		maxSize:        maxSize,
	}
}

// HandleUpload 处理 multipart 上传端点
// POST /api/v1/<op>
func (h *ProcessHandler) HandleUpload(spec *imageop.Spec) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, apiToken, ok := requireUser(c)
		if !ok {
			return
		}

		primary, primaryName, primaryType, downloaded, ok := h.readPrimary(c)
		if !ok {
			return
		}

		var secondary []byte
		if spec.SecondaryField != "" {
			data, ok := h.readSecondary(c, spec.NeedsSecondary)
			if !ok {
				return
			}
			secondary = data
		}

		params := formParams(c)

		h.process(c, &service.ProcessInput{
			User:        user,
			APIToken:    apiToken,
			APIPath:     c.Request.URL.Path,
			OpName:      spec.Name,
			Params:      params,
			Primary:     primary,
			PrimaryName: primaryName,
			PrimaryType: primaryType,
			Secondary:   secondary,
			Downloaded:  downloaded,
		})
	}
}

// HandleByURL 处理 JSON body 的 by-url 端点
// POST /api/v1/<op>-by-url
func (h *ProcessHandler) HandleByURL(spec *imageop.Spec) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, apiToken, ok := requireUser(c)
		if !ok {
			return
		}

		var body map[string]interface{}
		if err := c.ShouldBindJSON(&body); err != nil {
			response.ParamError(c, "请求体格式错误")
			return
		}

		imageURL, _ := body["image_url"].(string)
		if imageURL == "" {
			response.ParamError(c, "缺少 image_url")
			return
		}

		primary, primaryType, err := h.fetcher.Fetch(c.Request.Context(), imageURL)
		if err != nil {
			mapError(c, err)
			return
		}

		var secondary []byte
		if secondaryURL, _ := body["secondary_url"].(string); secondaryURL != "" {
			secondary, _, err = h.fetcher.Fetch(c.Request.Context(), secondaryURL)
			if err != nil {
				mapError(c, err)
				return
			}
		}
		if spec.NeedsSecondary && len(secondary) == 0 {
			response.ParamError(c, "缺少 secondary_url")
			return
		}

		h.process(c, &service.ProcessInput{
			User:        user,
			APIToken:    apiToken,
			APIPath:     c.Request.URL.Path,
			OpName:      spec.Name,
			Params:      jsonParams(body),
			Primary:     primary,
			PrimaryName: imageURL,
			PrimaryType: primaryType,
			Secondary:   secondary,
			Downloaded:  true,
		})
	}
}

func (h *ProcessHandler) process(c *gin.Context, in *service.ProcessInput) {
	result, err := h.processService.Process(c.Request.Context(), in)
	if err != nil {
		mapError(c, err)
		return
	}
	response.Success(c, result)
}

// readPrimary 读取主图：file/image 文件部分，或回退到 image_url 表单字段
func (h *ProcessHandler) readPrimary(c *gin.Context) (data []byte, name, contentType string, downloaded, ok bool) {
	for _, field := range primaryFields {
		file, header, err := c.Request.FormFile(field)
		if err != nil {
			continue
		}
		data, name, contentType, ok = h.readPart(c, file, header)
		return data, name, contentType, false, ok
	}

	// 表单带 image_url 时走下载路径（混合模式）
	if imageURL := c.PostForm("image_url"); imageURL != "" {
		data, contentType, err := h.fetcher.Fetch(c.Request.Context(), imageURL)
		if err != nil {
			mapError(c, err)
			return nil, "", "", false, false
		}
		return data, imageURL, contentType, true, true
	}

	response.ParamError(c, "请上传图片文件")
	return nil, "", "", false, false
}

func (h *ProcessHandler) readSecondary(c *gin.Context, required bool) ([]byte, bool) {
	for _, field := range secondaryFields {
		file, header, err := c.Request.FormFile(field)
		if err != nil {
			continue
		}
		data, _, _, ok := h.readPart(c, file, header)
		return data, ok
	}

	if required {
		response.ParamError(c, "请上传第二张图片")
		return nil, false
	}
	return nil, true
}

func (h *ProcessHandler) readPart(c *gin.Context, file multipart.File, header *multipart.FileHeader) ([]byte, string, string, bool) {
	defer file.Close()

	if header.Size == 0 {
		response.ParamError(c, "上传文件为空")
		return nil, "", "", false
	}
	if header.Size > h.maxSize {
		response.ParamError(c, fmt.Sprintf("文件过大，最大支持 %d MB", h.maxSize/(1024*1024)))
		return nil, "", "", false
	}

	data, err := io.ReadAll(file)
	if err != nil || len(data) == 0 {
		response.ParamError(c, "文件读取失败")
		return nil, "", "", false
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "image/jpeg"
	}
	return data, header.Filename, contentType, true
}

func requireUser(c *gin.Context) (*model.User, string, bool) {
	user, ok := middleware.GetUser(c)
	if !ok {
		response.AuthError(c, "")
		return nil, "", false
	}
	apiToken, ok := middleware.GetAPIToken(c)
	if !ok {
		response.AuthError(c, "")
		return nil, "", false
	}
	return user, apiToken, true
}

// formParams 收集除文件与 URL 字段外的所有表单字段
func formParams(c *gin.Context) imageop.Params {
	params := make(imageop.Params)
	if c.Request.MultipartForm != nil {
		for key, values := range c.Request.MultipartForm.Value {
			if key == "image_url" || len(values) == 0 {
				continue
			}
			params[key] = values[0]
		}
	}
	return params
}

// jsonParams 将 JSON body 中的标量参数拍平为字符串
func jsonParams(body map[string]interface{}) imageop.Params {
	params := make(imageop.Params)
	for key, value := range body {
		if key == "image_url" || key == "secondary_url" {
			continue
		}
		switch v := value.(type) {
		case string:
			params[key] = v
		case float64:
			params[key] = strconv.FormatFloat(v, 'f', -1, 64)
		case bool:
			params[key] = strconv.FormatBool(v)
		}
	}
	return params
}

// mapError 服务错误 -> 响应码
func mapError(c *gin.Context, err error) {
	var badParam *imageop.BadParamError
	switch {
	case errors.Is(err, imageop.ErrUnknownOperation):
		response.NotFoundError(c, err.Error())
	case errors.As(err, &badParam):
		response.ParamError(c, err.Error())
	case errors.Is(err, imageop.ErrBadInput):
		// 请求本身合法，图片内容无法解码
		response.UnprocessableError(c, err.Error())
	case errors.Is(err, imageop.ErrNotImage),
		errors.Is(err, imageop.ErrSecondaryRequired):
		response.ParamError(c, err.Error())
	case errors.Is(err, imageop.ErrNotFound):
		response.NotFoundError(c, err.Error())
	case errors.Is(err, service.ErrInsufficientFunds),
		errors.Is(err, service.ErrBillingUnavailable):
		response.PaymentError(c, err.Error())
	case errors.Is(err, service.ErrUploadFailed):
		response.ServerError(c, err.Error())
	case errors.Is(err, imageop.ErrOperationFailed):
		response.ServerError(c, "图片操作执行失败")
	default:
		response.ServerError(c, "图片处理失败")
	}
}
