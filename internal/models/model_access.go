package models

import "time"

// ModelAccess 用户模型访问授权
// 记录某个用户可以使用哪些供应商
type ModelAccess struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	UserID     string    `gorm:"type:varchar(64);not null;uniqueIndex:idx_user_provider" json:"user_id"`
	ProviderID uint      `gorm:"not null;uniqueIndex:idx_user_provider;index" json:"provider_id"`
	Enabled    bool      `gorm:"default:true;not null" json:"enabled"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`

	// 外键关系
	Provider Provider `gorm:"foreignKey:ProviderID;constraint:OnDelete:CASCADE" json:"provider,omitempty"`
}

// TableName 指定表名
func (ModelAccess) TableName() string {
	return "model_access"
}
