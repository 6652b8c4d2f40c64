package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"

	"github.com/qs3c/imgproc_go_server/config"
	"github.com/qs3c/imgproc_go_server/internal/model"
	"github.com/qs3c/imgproc_go_server/internal/pkg/usercenter"
	"github.com/qs3c/imgproc_go_server/internal/repository"
)

var (
	ErrInsufficientFunds  = errors.New("余额不足")
	ErrBillingUnavailable = errors.New("预扣费失败")
)

// DevCallIDPrefix 合成 call_id 前缀，带此前缀的调用不会发往用户中心
const DevCallIDPrefix = "dev_call_"

// BillingService 管理 call_id 生命周期：预扣费、确认、退款、补扣。
// 开发模式旁路只存在于本服务内。
type BillingService struct {
	uc       *usercenter.Client
	callRepo *repository.CallRepository
	cfg      *config.UserCenterConfig
}

func NewBillingService(uc *usercenter.Client, callRepo *repository.CallRepository, cfg *config.UserCenterConfig) *BillingService {
	return &BillingService{
		uc:       uc,
		callRepo: callRepo,
		cfg:      cfg,
	}
}

// PreCharge 提交预扣费，成功返回 call_id 并在本地记为 PRE_CHARGED
func (s *BillingService) PreCharge(ctx context.Context, apiToken, apiPath, contextJSON string, estimatedTokens int64, remark string) (string, error) {
	if estimatedTokens <= 0 {
		// 防御性兜底，正常流程中报价不为 0
		estimatedTokens = int64(s.cfg.DefaultTokenCost)
	}

	requestID := uuid.NewString()

	var callID string
	if s.cfg.DevelopmentMode {
		callID = DevCallIDPrefix + uuid.NewString()
		log.Printf("[billing] dev mode pre-charge %s tokens=%d path=%s", callID, estimatedTokens, apiPath)
	} else {
		data, err := s.uc.Charge(ctx, &usercenter.ChargeRequest{
			APIToken:        apiToken,
			APIPath:         apiPath,
			Context:         contextJSON,
			CallType:        "SIMPLE",
			EstimatedTokens: estimatedTokens,
			RequestID:       requestID,
			Remark:          remark,
		})
		if err != nil {
			var chargeErr *usercenter.ChargeError
			if errors.As(err, &chargeErr) {
				if strings.Contains(chargeErr.Message, "余额") {
					return "", fmt.Errorf("%w: %s", ErrInsufficientFunds, chargeErr.Message)
				}
				return "", fmt.Errorf("%w: %s", ErrBillingUnavailable, chargeErr.Message)
			}
			return "", fmt.Errorf("%w: %v", ErrBillingUnavailable, err)
		}
		callID = data.CallID
	}

	call := &model.BillingCall{
		CallID:          callID,
		RequestID:       requestID,
		State:           model.CallStatePreCharged,
		EstimatedTokens: estimatedTokens,
		APIPath:         apiPath,
		Context:         contextJSON,
		Remark:          remark,
	}
	if err := s.callRepo.Create(call); err != nil {
		// 本地流水写失败不能让用户被白扣，先退款再报不可用
		s.remoteRefund(ctx, callID, "本地流水写入失败")
		return "", fmt.Errorf("%w: %v", ErrBillingUnavailable, err)
	}

	return callID, nil
}

// Confirm 落 CONFIRMED 终态。预扣费已实际扣减余额，确认无需再调用用户中心，
// 只在本地流水记录终态。重复确认为空操作。
func (s *BillingService) Confirm(ctx context.Context, callID string) error {
	moved, err := s.callRepo.Transition(callID, model.CallStateConfirmed, "")
	if err != nil {
		return err
	}
	if !moved {
		log.Printf("[billing] confirm on terminal call %s ignored", callID)
	}
	return nil
}

// Refund 全额退款并落 REFUNDED 终态。补偿路径永不失败：
// 用户中心错误只记日志。已 CONFIRMED 的调用上退款是非法的，忽略。
func (s *BillingService) Refund(ctx context.Context, callID, reason string) {
	moved, err := s.callRepo.Transition(callID, model.CallStateRefunded, reason)
	if err != nil {
		log.Printf("[billing] refund transition failed for %s: %v", callID, err)
		return
	}
	if !moved {
		log.Printf("[billing] refund on terminal call %s ignored", callID)
		return
	}

	s.remoteRefund(ctx, callID, reason)
}

func (s *BillingService) remoteRefund(ctx context.Context, callID, reason string) {
	if strings.HasPrefix(callID, DevCallIDPrefix) {
		log.Printf("[billing] dev mode refund %s: %s", callID, reason)
		return
	}

	// 补偿必须在调用方断连后仍然送达用户中心，脱离请求上下文的取消，
	// 时长由客户端自身的超时约束
	_, err := s.uc.ActualCharge(context.WithoutCancel(ctx), &usercenter.ActualChargeRequest{
		CallID:        callID,
		OperationType: usercenter.OperationRefundAll,
		Remark:        reason,
	})
	if err != nil {
		log.Printf("[billing] refund call to user center failed for %s: %v", callID, err)
	}
}

// TopUp 实际产物超出预估时补扣差额。失败降级为告警，预扣费已覆盖预估部分。
func (s *BillingService) TopUp(ctx context.Context, callID string, extraTokens int64, remark string) {
	if extraTokens <= 0 {
		return
	}

	call, err := s.callRepo.GetByCallID(callID)
	if err != nil || call.State != model.CallStatePreCharged {
		log.Printf("[billing] top-up skipped for %s", callID)
		return
	}

	if !strings.HasPrefix(callID, DevCallIDPrefix) {
		// 与退款同理，补扣不随请求上下文一起取消
		_, err = s.uc.ActualCharge(context.WithoutCancel(ctx), &usercenter.ActualChargeRequest{
			CallID:           callID,
			OperationType:    usercenter.OperationChargeMore,
			AdditionalTokens: extraTokens,
			Remark:           remark,
		})
		if err != nil {
			log.Printf("[billing] top-up failed for %s (+%d): %v", callID, extraTokens, err)
			return
		}
	} else {
		log.Printf("[billing] dev mode top-up %s +%d", callID, extraTokens)
	}

	if err := s.callRepo.AddExtraTokens(callID, extraTokens); err != nil {
		log.Printf("[billing] failed to record extra tokens for %s: %v", callID, err)
	}
}
