package models

import "time"

// UserPreference 用户选中的模型偏好
// 写入采用 last-write-wins，UpdatedAt 即写入时间戳；
// 路由器和状态监控读取时允许短暂的陈旧窗口
type UserPreference struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	UserID     string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"user_id"`
	ProviderID uint      `gorm:"not null;index" json:"provider_id"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// TableName 指定表名
func (UserPreference) TableName() string {
	return "user_preferences"
}
