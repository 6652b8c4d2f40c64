package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"

	"github.com/qs3c/imgproc_go_server/config"
	"github.com/qs3c/imgproc_go_server/internal/model/dto"
)

// UploadRequest 主存储上传请求
type UploadRequest struct {
	APIToken    string
	Filename    string
	ContentType string
	Data        []byte
	Description string
	CategoryID  string
	Tags        string
}

type uploadResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    struct {
		File *dto.FileInfo `json:"file"`
	} `json:"data"`
}

// Client 主存储服务客户端
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(cfg *config.StorageConfig) *Client {
	return &Client{
		baseURL:    cfg.BaseURL,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// Upload 上传处理结果到主存储，返回其 file 对象
func (c *Client) Upload(ctx context.Context, req *UploadRequest) (*dto.FileInfo, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name="file"; filename="%s"`, quoteEscaper.Replace(req.Filename)))
	header.Set("Content-Type", req.ContentType)
	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(req.Data); err != nil {
		return nil, err
	}

	fields := map[string]string{
		"filename":    req.Filename,
		"description": req.Description,
		"category_id": req.CategoryID,
		"tags":        req.Tags,
	}
	for name, value := range fields {
		if err := writer.WriteField(name, value); err != nil {
			return nil, err
		}
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/files", body)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", writer.FormDataContentType())
	httpReq.Header.Set("X-API-Token", req.APIToken)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("主存储请求失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("主存储返回状态 %d", resp.StatusCode)
	}

	var parsed uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("主存储响应解析失败: %w", err)
	}
	if parsed.Data.File == nil || parsed.Data.File.URL == "" {
		return nil, fmt.Errorf("主存储响应缺少文件信息")
	}

	return parsed.Data.File, nil
}
