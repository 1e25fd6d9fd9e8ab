package provider

import (
	"time"

	"github.com/kaelis/Aegisx-AI/internal/models"
)

// CreateProviderRequest 创建供应商请求
type CreateProviderRequest struct {
	Name    string `json:"name" binding:"required"`
	Type    string `json:"type" binding:"required"`
	Model   string `json:"model" binding:"required"`
	BaseURL string `json:"base_url" binding:"omitempty,url"`
	APIKey  string `json:"api_key" binding:"required"`
	AgentID string `json:"agent_id"`
	Enabled *bool  `json:"enabled"`
}

// UpdateProviderRequest 更新供应商请求
type UpdateProviderRequest struct {
	Name    *string `json:"name"`
	Type    *string `json:"type"`
	Model   *string `json:"model"`
	BaseURL *string `json:"base_url" binding:"omitempty,url"`
	APIKey  *string `json:"api_key"`
	AgentID *string `json:"agent_id"`
	Enabled *bool   `json:"enabled"`
}

// ProviderResponse 供应商响应（API Key 脱敏）
type ProviderResponse struct {
	ID           uint      `json:"id"`
	Name         string    `json:"name"`
	Type         string    `json:"type"`
	Model        string    `json:"model"`
	BaseURL      string    `json:"base_url"`
	APIKey       string    `json:"api_key"` // 脱敏显示
	AgentID      string    `json:"agent_id,omitempty"`
	Enabled      bool      `json:"enabled"`
	HealthStatus string    `json:"health_status"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ProviderListResponse 供应商列表响应（带分页）
type ProviderListResponse struct {
	Data       []ProviderResponse `json:"data"`
	Pagination PaginationMeta     `json:"pagination"`
}

// PaginationMeta 分页元数据
type PaginationMeta struct {
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalPages int   `json:"total_pages"`
}

// ErrorResponse 错误响应
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail 错误详情
type ErrorDetail struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// MaskAPIKey API Key 脱敏
// 格式: 前3位 + **** + 后4位
func MaskAPIKey(apiKey string) string {
	if len(apiKey) <= 8 {
		return "****"
	}
	return apiKey[:3] + "****" + apiKey[len(apiKey)-4:]
}

// ToProviderResponse 转换为响应（API Key 脱敏）
func ToProviderResponse(provider *models.Provider) *ProviderResponse {
	return &ProviderResponse{
		ID:           provider.ID,
		Name:         provider.Name,
		Type:         string(provider.Type),
		Model:        provider.Model,
		BaseURL:      provider.BaseURL,
		APIKey:       MaskAPIKey(provider.APIKey),
		AgentID:      provider.AgentID,
		Enabled:      provider.Enabled,
		HealthStatus: provider.HealthStatus,
		CreatedAt:    provider.CreatedAt,
		UpdatedAt:    provider.UpdatedAt,
	}
}
