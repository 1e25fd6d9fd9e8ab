package models

import "time"

// ChatSettingID 聊天配置单例行 ID
const ChatSettingID uint = 1

// ChatSetting 聊天配置（单例，管理员维护）
// 路由器每次请求都会读取该配置
type ChatSetting struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	DefaultProviderID *uint     `json:"default_provider_id,omitempty"` // 管理员配置的默认供应商
	SystemPrompt      string    `gorm:"type:text" json:"system_prompt"`
	MaxTokens         int       `gorm:"not null;default:1024" json:"max_tokens"`
	Temperature       float64   `gorm:"not null;default:0.7" json:"temperature"`
	Enabled           bool      `gorm:"not null;default:true" json:"enabled"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// TableName 指定表名
func (ChatSetting) TableName() string {
	return "chat_settings"
}
