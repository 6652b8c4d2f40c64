package model

import (
	"time"
)

// 计费调用状态机：PRE_CHARGED -> {CONFIRMED | REFUNDED}，终态不可再变
const (
	CallStatePreCharged = "PRE_CHARGED"
	CallStateConfirmed  = "CONFIRMED"
	CallStateRefunded   = "REFUNDED"
)

// BillingCall 本地计费流水，记录每个 call_id 的生命周期
type BillingCall struct {
	ID              int64     `gorm:"primaryKey" json:"id"`
	CallID          string    `gorm:"size:100;uniqueIndex;not null" json:"call_id"`
	RequestID       string    `gorm:"size:100;index" json:"request_id"`
	State           string    `gorm:"size:20;not null" json:"state"`
	EstimatedTokens int64     `gorm:"default:0" json:"estimated_tokens"`
	ExtraTokens     int64     `gorm:"default:0" json:"extra_tokens"`
	APIPath         string    `gorm:"size:200" json:"api_path"`
	Context         string    `gorm:"type:text" json:"context"`
	Remark          string    `gorm:"type:text" json:"remark"`
	RefundReason    string    `gorm:"size:500" json:"refund_reason,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (BillingCall) TableName() string {
	return "billing_calls"
}

// Terminal 是否已到达终态
func (c *BillingCall) Terminal() bool {
	return c.State == CallStateConfirmed || c.State == CallStateRefunded
}
