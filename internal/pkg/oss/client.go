package oss

import (
	"bytes"
	"fmt"
	"path"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"

	"github.com/qs3c/imgproc_go_server/config"
)

// Client 备份对象存储客户端，主存储失败时兜底
type Client struct {
	client         *oss.Client
	bucket         *oss.Bucket
	bucketName     string
	examplesPrefix string
}

func NewClient(cfg *config.OSSConfig) (*Client, error) {
	client, err := oss.New(cfg.Endpoint, cfg.AccessKeyID, cfg.AccessKeySecret)
	if err != nil {
		return nil, fmt.Errorf("failed to create OSS client: %w", err)
	}

	bucket, err := client.Bucket(cfg.BucketName)
	if err != nil {
		return nil, fmt.Errorf("failed to get bucket: %w", err)
	}

	return &Client{
		client:         client,
		bucket:         bucket,
		bucketName:     cfg.BucketName,
		examplesPrefix: cfg.ExamplesPrefix,
	}, nil
}

// UploadProcessed 上传处理结果，返回公开可访问的 URL
func (c *Client) UploadProcessed(opName, filename string, data []byte, contentType string) (string, error) {
	objectKey := path.Join(c.examplesPrefix, "processed", opName, filename)

	err := c.bucket.PutObject(objectKey, bytes.NewReader(data), oss.ContentType(contentType))
	if err != nil {
		return "", fmt.Errorf("failed to upload processed file: %w", err)
	}

	return c.GetURL(objectKey), nil
}

// GetURL 获取文件访问 URL
func (c *Client) GetURL(objectKey string) string {
	return fmt.Sprintf("https://%s.%s/%s", c.bucketName, c.client.Config.Endpoint, objectKey)
}
