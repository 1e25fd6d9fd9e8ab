package models

import "time"

// UsageQuota 用户月度用量配额
// UsageLimit 为空表示不限量；UsageCurrent <= UsageLimit 由
// 配额层的条件更新保证，而不是读后写
type UsageQuota struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	UserID       string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"user_id"`
	PlanName     string    `gorm:"type:varchar(50);not null;default:'free'" json:"plan_name"`
	UsageCurrent int64     `gorm:"not null;default:0" json:"usage_current"`
	UsageLimit   *int64    `json:"usage_limit,omitempty"` // null = 不限量
	PeriodStart  time.Time `json:"period_start"`          // 当前计费周期起点
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TableName 指定表名
func (UsageQuota) TableName() string {
	return "usage_quotas"
}
