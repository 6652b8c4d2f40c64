package imageop

import (
	"errors"
	"fmt"
)

var (
	// ErrBadInput 图片字节无法解码
	ErrBadInput = errors.New("图片数据无法解析")
	// ErrUnknownOperation 操作名不在注册表中
	ErrUnknownOperation = errors.New("未知的图片操作")
	// ErrNotFound 相对路径示例文件不存在
	ErrNotFound = errors.New("示例文件不存在")
	// ErrNotImage 下载内容不是图片
	ErrNotImage = errors.New("URL 内容不是图片")
	// ErrSecondaryRequired 操作需要第二张图片
	ErrSecondaryRequired = errors.New("该操作需要第二张图片")
	// ErrOperationFailed 操作执行内部失败
	ErrOperationFailed = errors.New("图片操作执行失败")
)

// BadParamError 参数越界或取值非法
type BadParamError struct {
	Name   string
	Reason string
}

func (e *BadParamError) Error() string {
	return fmt.Sprintf("参数 %s 非法: %s", e.Name, e.Reason)
}

func badParam(name, reason string) error {
	return &BadParamError{Name: name, Reason: reason}
}
