package repository

import (
	"errors"

	"gorm.io/gorm"

	"github.com/qs3c/imgproc_go_server/internal/model"
)

var ErrCallNotFound = errors.New("计费记录不存在")

type CallRepository struct {
	db *gorm.DB
}

func NewCallRepository(db *gorm.DB) *CallRepository {
	return &CallRepository{db: db}
}

func (r *CallRepository) Create(call *model.BillingCall) error {
	return r.db.Create(call).Error
}

func (r *CallRepository) GetByCallID(callID string) (*model.BillingCall, error) {
	var call model.BillingCall
	err := r.db.Where("call_id = ?", callID).First(&call).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrCallNotFound
	}
	if err != nil {
		return nil, err
	}
	return &call, nil
}

// Transition 仅当当前状态为 PRE_CHARGED 时落终态，返回是否真正发生了转移。
// 条件更新保证每个 call_id 恰好一次终态转移。
func (r *CallRepository) Transition(callID, toState, refundReason string) (bool, error) {
	updates := map[string]interface{}{"state": toState}
	if refundReason != "" {
		updates["refund_reason"] = refundReason
	}

	result := r.db.Model(&model.BillingCall{}).
		Where("call_id = ? AND state = ?", callID, model.CallStatePreCharged).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// AddExtraTokens 补扣成功后累计追加的 Token 数
func (r *CallRepository) AddExtraTokens(callID string, extra int64) error {
	return r.db.Model(&model.BillingCall{}).
		Where("call_id = ? AND state = ?", callID, model.CallStatePreCharged).
		Update("extra_tokens", gorm.Expr("extra_tokens + ?", extra)).Error
}

// CountByState 统计某状态的流水数，测试与对账用
func (r *CallRepository) CountByState(state string) (int64, error) {
	var count int64
	err := r.db.Model(&model.BillingCall{}).Where("state = ?", state).Count(&count).Error
	return count, err
}
