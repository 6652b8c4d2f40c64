package imageop

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/qs3c/imgproc_go_server/config"
)

const browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"

// Fetcher 拉取待处理的输入图片：HTTP URL 或本地示例文件
type Fetcher struct {
	httpClient   *http.Client
	examplesRoot string
	maxSize      int64
}

func NewFetcher(cfg *config.UploadConfig) *Fetcher {
	return &Fetcher{
		httpClient:   &http.Client{Timeout: cfg.DownloadTimeout},
		examplesRoot: cfg.ExamplesRoot,
		maxSize:      cfg.MaxSize,
	}
}

// NewFetcherWithClient 测试用
func NewFetcherWithClient(client *http.Client, examplesRoot string, maxSize int64) *Fetcher {
	if client.Timeout == 0 {
		client.Timeout = 30 * time.Second
	}
	return &Fetcher{httpClient: client, examplesRoot: examplesRoot, maxSize: maxSize}
}

// Fetch 下载 URL 指向的图片。以 / 开头的相对路径映射到本地示例目录。
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) ([]byte, string, error) {
	if strings.HasPrefix(rawURL, "/") {
		return f.fetchLocal(rawURL)
	}
	return f.fetchRemote(ctx, rawURL)
}

func (f *Fetcher) fetchRemote(ctx context.Context, rawURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrBadInput, err)
	}
	req.Header.Set("User-Agent", browserUserAgent)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("图片下载失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("%w: 下载返回状态 %d", ErrBadInput, resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		return nil, "", fmt.Errorf("%w: content-type %s", ErrNotImage, contentType)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxSize+1))
	if err != nil {
		return nil, "", fmt.Errorf("图片下载失败: %w", err)
	}
	if int64(len(data)) > f.maxSize {
		return nil, "", fmt.Errorf("%w: 图片超过大小限制", ErrBadInput)
	}
	if len(data) == 0 {
		return nil, "", fmt.Errorf("%w: 空响应", ErrBadInput)
	}

	return data, contentType, nil
}

// fetchLocal 示例资源兼容：/static/examples/x.jpg 之类的相对路径
func (f *Fetcher) fetchLocal(rawURL string) ([]byte, string, error) {
	cleaned := filepath.Clean("/" + strings.TrimPrefix(rawURL, "/"))
	path := filepath.Join(f.examplesRoot, strings.TrimPrefix(cleaned, "/"))
	// 解析后的路径不得越出示例目录
	if !strings.HasPrefix(path, filepath.Clean(f.examplesRoot)+string(os.PathSeparator)) {
		return nil, "", fmt.Errorf("%w: %s", ErrNotFound, rawURL)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, "", fmt.Errorf("%w: %s", ErrNotFound, rawURL)
		}
		return nil, "", err
	}

	contentType := mime.TypeByExtension(filepath.Ext(path))
	if !strings.HasPrefix(contentType, "image/") {
		contentType = "image/jpeg"
	}
	return data, contentType, nil
}
