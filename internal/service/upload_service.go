package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/qs3c/imgproc_go_server/config"
	"github.com/qs3c/imgproc_go_server/internal/imageop"
	"github.com/qs3c/imgproc_go_server/internal/model/dto"
	"github.com/qs3c/imgproc_go_server/internal/pkg/storage"
)

var ErrUploadFailed = errors.New("存储服务不可用")

// FallbackStore 备份对象存储，主存储失败时兜底。实现见 pkg/oss。
type FallbackStore interface {
	UploadProcessed(opName, filename string, data []byte, contentType string) (string, error)
}

// UploadInput 结果上传入参
type UploadInput struct {
	Data         []byte
	APIToken     string
	OpName       string
	OpLabel      string
	Params       map[string]string
	OriginalName string
	ContentType  string
}

// UploadService 两级上传管道：先主存储，失败后最多一次备份存储，严格串行
type UploadService struct {
	primary  *storage.Client
	fallback FallbackStore
	cfg      *config.StorageConfig
}

func NewUploadService(primary *storage.Client, fallback FallbackStore, cfg *config.StorageConfig) *UploadService {
	return &UploadService{
		primary:  primary,
		fallback: fallback,
		cfg:      cfg,
	}
}

// Upload 上传处理结果，返回的 FileInfo 保证 URL 非空可访问
func (s *UploadService) Upload(ctx context.Context, in *UploadInput) (*dto.FileInfo, error) {
	ext := imageop.ExtensionForContentType(in.ContentType)
	filename := fmt.Sprintf("processed_%s.%s", uuid.NewString(), ext)
	description := buildDescription(in.OpLabel, in.Params)
	tags := s.cfg.DefaultTags + "," + in.OpName

	fileInfo, err := s.primary.Upload(ctx, &storage.UploadRequest{
		APIToken:    in.APIToken,
		Filename:    filename,
		ContentType: in.ContentType,
		Data:        in.Data,
		Description: description,
		CategoryID:  s.cfg.DefaultCategoryID,
		Tags:        tags,
	})
	if err == nil {
		return fileInfo, nil
	}
	log.Printf("[upload] primary storage failed: %v", err)

	if s.fallback == nil {
		return nil, fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}

	url, fbErr := s.fallback.UploadProcessed(in.OpName, filename, in.Data, in.ContentType)
	if fbErr != nil {
		log.Printf("[upload] fallback storage failed: %v", fbErr)
		return nil, fmt.Errorf("%w: 主存储与备份存储均失败", ErrUploadFailed)
	}

	return &dto.FileInfo{
		ID:           "oss_" + strings.ReplaceAll(uuid.NewString(), "-", ""),
		Filename:     filename,
		OriginalName: in.OriginalName,
		FileSize:     int64(len(in.Data)),
		FileType:     in.ContentType,
		URL:          url,
		PreviewURL:   url,
		Description:  description,
		UploadTime:   time.Now().Format(time.RFC3339),
		UploadSource: "oss_backup",
	}, nil
}

// buildDescription 由操作与参数生成人类可读描述，最多取 3 个参数
func buildDescription(opLabel string, params map[string]string) string {
	description := opLabel + "处理结果"
	if len(params) == 0 {
		return description
	}

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if len(keys) > 3 {
		keys = keys[:3]
	}

	var kvs []string
	for _, k := range keys {
		kvs = append(kvs, fmt.Sprintf("%s=%s", k, params[k]))
	}
	return description + " (" + strings.Join(kvs, ", ") + ")"
}
