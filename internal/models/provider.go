package models

import (
	"time"

	"gorm.io/gorm"
)

// ProviderType 供应商类型
type ProviderType string

const (
	// ProviderTypeOpenAI OpenAI 兼容接口
	ProviderTypeOpenAI ProviderType = "openai"
	// ProviderTypeMistral Mistral 兼容接口
	ProviderTypeMistral ProviderType = "mistral"
)

// Provider 供应商模型
// 用于存储上游 LLM 服务的配置信息
type Provider struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	Name         string         `gorm:"type:varchar(100);not null" json:"name"`
	Type         ProviderType   `gorm:"type:varchar(20);not null;default:'openai'" json:"type"`
	Model        string         `gorm:"type:varchar(100);not null" json:"model"` // 上游模型名称
	BaseURL      string         `gorm:"type:varchar(255)" json:"base_url"`       // 为空时使用供应商默认地址
	APIKey       string         `gorm:"type:text;not null" json:"api_key"`       // 加密存储
	AgentID      string         `gorm:"type:varchar(100)" json:"agent_id"`       // Agent 调用模式（可选）
	Enabled      bool           `gorm:"not null" json:"enabled"`
	HealthStatus string         `gorm:"type:varchar(20);default:'unknown'" json:"health_status"` // healthy/unhealthy/unknown
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"` // 软删除支持
}

// TableName 指定表名
func (Provider) TableName() string {
	return "providers"
}
