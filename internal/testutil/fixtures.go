package testutil

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/qs3c/imgproc_go_server/internal/model"
)

// TestUser 构造用户快照，不落库（用户不在本地持久化）
func TestUser(opts ...func(*model.User)) *model.User {
	user := &model.User{
		ID:           1001,
		Nickname:     "测试用户",
		TokenBalance: 100000,
		Status:       model.UserStatusActive,
		APIToken:     "test-api-token",
	}
	for _, opt := range opts {
		opt(user)
	}
	return user
}

// WithStatus 设置用户状态
func WithStatus(status string) func(*model.User) {
	return func(u *model.User) {
		u.Status = status
	}
}

// TestCall 创建计费流水记录
func TestCall(t *testing.T, db *gorm.DB, state string, opts ...func(*model.BillingCall)) *model.BillingCall {
	t.Helper()

	call := &model.BillingCall{
		CallID:          fmt.Sprintf("call_%d", time.Now().UnixNano()),
		RequestID:       fmt.Sprintf("req_%d", time.Now().UnixNano()),
		State:           state,
		EstimatedTokens: 200,
		APIPath:         "/api/v1/filter",
	}

	for _, opt := range opts {
		opt(call)
	}

	if err := db.Create(call).Error; err != nil {
		t.Fatalf("Failed to create test billing call: %v", err)
	}

	return call
}

// WithCallID 设置 call_id
func WithCallID(callID string) func(*model.BillingCall) {
	return func(c *model.BillingCall) {
		c.CallID = callID
	}
}

// PNGImage 生成测试 PNG 图片
func PNGImage(t *testing.T, width, height int) []byte {
	t.Helper()

	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x * 17), G: uint8(y * 31), B: 128, A: 255})
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("Failed to encode test PNG: %v", err)
	}
	return buf.Bytes()
}

// JPEGImage 生成测试 JPEG 图片
func JPEGImage(t *testing.T, width, height int) []byte {
	t.Helper()

	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 200, A: 255})
		}
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 85}); err != nil {
		t.Fatalf("Failed to encode test JPEG: %v", err)
	}
	return buf.Bytes()
}
