package service

import (
	"fmt"
	"sort"
	"strings"

	"github.com/qs3c/imgproc_go_server/internal/model/dto"
)

// 计费常量，全端点统一
const (
	BaseCost          int64 = 100 // 基础调用费用
	DownloadRatePerMB int64 = 100 // 下载计费 Token/MB
	UploadRatePerMB   int64 = 50  // 上传计费 Token/MB
)

// PricingMode 计价模式，闭合集合
type PricingMode string

const (
	ModeUploadOnly  PricingMode = "upload_only"
	ModeURLDownload PricingMode = "url_download"
	ModeDualUpload  PricingMode = "dual_upload"
	ModeMixed       PricingMode = "mixed"
)

// BreakdownOrder 明细键的稳定顺序
var BreakdownOrder = []string{"base", "download", "primary", "secondary", "result"}

// Sizes 参与计价的各路字节数，不参与的留 0
type Sizes struct {
	Download  int64
	Primary   int64
	Secondary int64
	Result    int64
}

// Quote 计价结果
type Quote struct {
	BaseCost      int64
	DownloadCost  int64
	PrimaryCost   int64
	SecondaryCost int64
	ResultCost    int64
	TotalCost     int64
	Breakdown     map[string]string
	Mode          PricingMode
}

// BillingInfo 转换为响应中的计费信息
func (q *Quote) BillingInfo(callID string) *dto.BillingInfo {
	return &dto.BillingInfo{
		CallID:    callID,
		TotalCost: q.TotalCost,
		Breakdown: q.Breakdown,
		Mode:      string(q.Mode),
	}
}

// PricingService 纯函数计价器，同输入必得同输出
type PricingService struct{}

func NewPricingService() *PricingService {
	return &PricingService{}
}

// Price 按模式计算报价。total = base + Σ组件，各组件非负。
func (s *PricingService) Price(mode PricingMode, sizes Sizes) *Quote {
	q := &Quote{
		BaseCost:  BaseCost,
		Mode:      mode,
		Breakdown: make(map[string]string),
	}

	switch mode {
	case ModeUploadOnly:
		q.PrimaryCost = TokensFor(sizes.Primary, UploadRatePerMB)
		q.ResultCost = TokensFor(sizes.Result, UploadRatePerMB)
	case ModeURLDownload:
		q.DownloadCost = TokensFor(sizes.Download, DownloadRatePerMB)
		q.ResultCost = TokensFor(sizes.Result, UploadRatePerMB)
	case ModeDualUpload:
		q.PrimaryCost = TokensFor(sizes.Primary, UploadRatePerMB)
		q.SecondaryCost = TokensFor(sizes.Secondary, UploadRatePerMB)
		q.ResultCost = TokensFor(sizes.Result, UploadRatePerMB)
	case ModeMixed:
		q.DownloadCost = TokensFor(sizes.Download, DownloadRatePerMB)
		q.PrimaryCost = TokensFor(sizes.Primary, UploadRatePerMB)
		q.ResultCost = TokensFor(sizes.Result, UploadRatePerMB)
	}

	q.TotalCost = q.BaseCost + q.DownloadCost + q.PrimaryCost + q.SecondaryCost + q.ResultCost

	q.Breakdown["base"] = fmt.Sprintf("%d Token (基础调用费用)", q.BaseCost)
	if q.DownloadCost > 0 {
		q.Breakdown["download"] = fmt.Sprintf("%d Token (下载文件 %s)", q.DownloadCost, FormatSize(sizes.Download))
	}
	if q.PrimaryCost > 0 {
		q.Breakdown["primary"] = fmt.Sprintf("%d Token (主文件 %s)", q.PrimaryCost, FormatSize(sizes.Primary))
	}
	if q.SecondaryCost > 0 {
		q.Breakdown["secondary"] = fmt.Sprintf("%d Token (副文件 %s)", q.SecondaryCost, FormatSize(sizes.Secondary))
	}
	if q.ResultCost > 0 {
		q.Breakdown["result"] = fmt.Sprintf("%d Token (结果文件 %s)", q.ResultCost, FormatSize(sizes.Result))
	}

	return q
}

// TokensFor 字节数折算 Token：不足 1KB 按 1KB 计，tokens = ceil(rate * KB / 1024)
func TokensFor(bytes, ratePerMB int64) int64 {
	if bytes <= 0 {
		return 0
	}
	kb := (bytes + 1023) / 1024
	return (ratePerMB*kb + 1023) / 1024
}

// FormatSize 人类可读大小：B、KB（1 位小数）、MB（2 位小数）
func FormatSize(bytes int64) string {
	switch {
	case bytes < 1024:
		return fmt.Sprintf("%d B", bytes)
	case bytes < 1024*1024:
		return fmt.Sprintf("%.1f KB", float64(bytes)/1024)
	default:
		return fmt.Sprintf("%.2f MB", float64(bytes)/(1024*1024))
	}
}

// BuildRemark 生成预扣费备注，协调器原样透传给用户中心
func BuildRemark(apiPath, opName string, q *Quote, params map[string]string) string {
	costs := map[string]int64{
		"base":      q.BaseCost,
		"download":  q.DownloadCost,
		"primary":   q.PrimaryCost,
		"secondary": q.SecondaryCost,
		"result":    q.ResultCost,
	}

	var parts []string
	for _, key := range BreakdownOrder {
		if costs[key] > 0 {
			parts = append(parts, fmt.Sprintf("%s %d", key, costs[key]))
		}
	}

	remark := fmt.Sprintf("%s - %s - %s = 总计%dToken", apiPath, opName, strings.Join(parts, " + "), q.TotalCost)

	if len(params) > 0 {
		keys := make([]string, 0, len(params))
		for k := range params {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var kvs []string
		for _, k := range keys {
			kvs = append(kvs, fmt.Sprintf("%s=%s", k, params[k]))
		}
		remark += " | " + strings.Join(kvs, ",")
	}

	return remark
}
