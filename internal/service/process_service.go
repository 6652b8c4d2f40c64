package service

import (
	"context"
	"encoding/json"
	"log"

	"github.com/qs3c/imgproc_go_server/internal/imageop"
	"github.com/qs3c/imgproc_go_server/internal/model"
	"github.com/qs3c/imgproc_go_server/internal/model/dto"
)

// ProcessInput 一次图片处理请求的全部上下文
type ProcessInput struct {
	User        *model.User
	APIToken    string
	APIPath     string
	OpName      string
	Params      imageop.Params
	Primary     []byte
	PrimaryName string
	PrimaryType string
	Secondary   []byte
	// Downloaded 主图来自 URL 下载而非表单上传
	Downloaded bool
}

// ProcessService 补偿式请求协调器。预扣费之后的任何失败都会触发退款，
// 任何路径都不会带着未决的 call_id 返回。
type ProcessService struct {
	registry *imageop.Registry
	pricing  *PricingService
	billing  *BillingService
	upload   *UploadService
}

func NewProcessService(registry *imageop.Registry, pricing *PricingService, billing *BillingService, upload *UploadService) *ProcessService {
	return &ProcessService{
		registry: registry,
		pricing:  pricing,
		billing:  billing,
		upload:   upload,
	}
}

// Process 执行 计价 -> 预扣费 -> 变换 -> 上传 -> 补扣 -> 确认 的完整事务
func (s *ProcessService) Process(ctx context.Context, in *ProcessInput) (resp *dto.ProcessResponse, err error) {
	spec, err := s.registry.Get(in.OpName)
	if err != nil {
		return nil, err
	}

	mode, sizes := resolvePricing(in)
	quote := s.pricing.Price(mode, sizes)

	contextJSON := buildContext(in, quote)
	remark := BuildRemark(in.APIPath, in.OpName, quote, map[string]string(in.Params))

	callID, err := s.billing.PreCharge(ctx, in.APIToken, in.APIPath, contextJSON, quote.TotalCost, remark)
	if err != nil {
		return nil, err
	}

	// 退款守卫：预扣费之后任何出错分支都在返回前退款
	committed := false
	defer func() {
		if committed {
			return
		}
		reason := "处理失败"
		if err != nil {
			reason = err.Error()
		}
		s.billing.Refund(ctx, callID, reason)
	}()

	result, resultType, err := s.registry.Run(in.OpName, in.Params, in.Primary, in.Secondary)
	if err != nil {
		return nil, err
	}

	fileInfo, err := s.upload.Upload(ctx, &UploadInput{
		Data:         result,
		APIToken:     in.APIToken,
		OpName:       in.OpName,
		OpLabel:      spec.Label,
		Params:       map[string]string(in.Params),
		OriginalName: in.PrimaryName,
		ContentType:  resultType,
	})
	if err != nil {
		return nil, err
	}

	if extra := TokensFor(int64(len(result)), UploadRatePerMB) - quote.ResultCost; extra > 0 {
		s.billing.TopUp(ctx, callID, extra, "结果文件超出预估")
	}

	if err = s.billing.Confirm(ctx, callID); err != nil {
		log.Printf("[process] confirm failed for %s: %v", callID, err)
		return nil, err
	}
	committed = true

	return &dto.ProcessResponse{
		File: fileInfo,
		ProcessingInfo: &dto.ProcessingInfo{
			Operation:   in.OpName,
			Parameters:  map[string]string(in.Params),
			BillingInfo: quote.BillingInfo(callID),
		},
	}, nil
}

// resolvePricing 由输入来源推出计价模式与参与的字节数。
// 结果大小以主图大小预估，差额在上传后补扣。
func resolvePricing(in *ProcessInput) (PricingMode, Sizes) {
	primaryLen := int64(len(in.Primary))
	secondaryLen := int64(len(in.Secondary))

	switch {
	case in.Downloaded && secondaryLen > 0:
		return ModeMixed, Sizes{Download: primaryLen, Primary: secondaryLen, Result: primaryLen}
	case in.Downloaded:
		return ModeURLDownload, Sizes{Download: primaryLen, Result: primaryLen}
	case secondaryLen > 0:
		return ModeDualUpload, Sizes{Primary: primaryLen, Secondary: secondaryLen, Result: primaryLen}
	default:
		return ModeUploadOnly, Sizes{Primary: primaryLen, Result: primaryLen}
	}
}

func buildContext(in *ProcessInput, quote *Quote) string {
	payload := map[string]interface{}{
		"operation":    in.OpName,
		"parameters":   in.Params,
		"mode":         string(quote.Mode),
		"primary_size": len(in.Primary),
		"total_cost":   quote.TotalCost,
	}
	if in.User != nil {
		payload["user_id"] = in.User.ID
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return "{}"
	}
	return string(data)
}
