package model

// 用户状态，由用户中心定义
const (
	UserStatusActive    = "ACTIVE"
	UserStatusInactive  = "INACTIVE"
	UserStatusSuspended = "SUSPENDED"
)

// User 用户中心解析出的用户快照，请求内只读，不在本地持久化
type User struct {
	ID           int64  `json:"id"`
	Nickname     string `json:"nickname"`
	TokenBalance int64  `json:"token_balance"`
	Status       string `json:"status"`
	APIToken     string `json:"api_token"`
}

// CanBill 仅 ACTIVE 用户可以发起计费调用
func (u *User) CanBill() bool {
	return u.Status == UserStatusActive
}
