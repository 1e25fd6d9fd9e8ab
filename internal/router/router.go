package router

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/kaelis/Aegisx-AI/internal/models"
	"github.com/kaelis/Aegisx-AI/internal/provider"
	"gorm.io/gorm"
)

// ==================== 错误定义 ====================

var (
	// ErrNoProviderAvailable 四级兜底全部落空，配置问题
	ErrNoProviderAvailable = errors.New("no provider available")
	// ErrChatDisabled 管理员关闭了 AI 聊天
	ErrChatDisabled = errors.New("ai chat is disabled")
)

// ==================== 类型定义 ====================

// Tier 命中的选择档位
type Tier string

const (
	// TierExplicit 请求显式指定的供应商
	TierExplicit Tier = "explicit"
	// TierPreference 用户保存的偏好
	TierPreference Tier = "preference"
	// TierDefault 管理员配置的默认供应商
	TierDefault Tier = "default"
	// TierFirstActive 第一个可用的启用供应商
	TierFirstActive Tier = "first_active"
)

// Resolution 路由解析结果
// Provider 是实际将要服务请求的供应商，调用方必须原样上报，
// 绝不允许偷偷换用未上报的供应商
type Resolution struct {
	Provider *models.Provider `json:"provider"`
	Tier     Tier             `json:"tier"`
	Fallback *models.Provider `json:"fallback,omitempty"` // 故障转移候选
}

// Availability 供应商可用性判定（由故障检测器实现）
type Availability interface {
	IsAvailable(providerID uint) bool
}

// Router 供应商路由器
// 按固定优先级把一次请求解析到具体供应商：
// 显式指定 → 用户偏好 → 管理员默认 → 第一个可用
type Router struct {
	db           *gorm.DB
	providers    *provider.Repository
	availability Availability // 可为 nil
}

// New 创建路由器
func New(db *gorm.DB, providers *provider.Repository, availability Availability) *Router {
	return &Router{
		db:           db,
		providers:    providers,
		availability: availability,
	}
}

// ==================== 路由解析 ====================

// ChatSetting 读取聊天配置单例
func (r *Router) ChatSetting(ctx context.Context) (*models.ChatSetting, error) {
	var setting models.ChatSetting
	err := r.db.WithContext(ctx).First(&setting, models.ChatSettingID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: chat setting missing", ErrNoProviderAvailable)
	}
	if err != nil {
		return nil, err
	}
	return &setting, nil
}

// Resolve 解析本次请求的有效供应商
// 优先级固定且确定：同样的输入永远得到同一个供应商
func (r *Router) Resolve(ctx context.Context, userID string, selectedProviderID uint) (*Resolution, error) {
	// 1. 显式指定且仍在启用中
	if selectedProviderID != 0 {
		prov, err := r.providers.FindActiveByID(selectedProviderID)
		if err == nil {
			return r.resolution(prov, TierExplicit), nil
		}
		if !errors.Is(err, provider.ErrProviderNotFound) {
			return nil, err
		}
		// 指定的供应商已停用/删除，继续向下兜底
	}

	// 2. 用户保存的偏好（仍有效且供应商启用中）
	if userID != "" {
		prov, err := r.resolvePreference(ctx, userID)
		if err != nil {
			return nil, err
		}
		if prov != nil {
			return r.resolution(prov, TierPreference), nil
		}
	}

	// 3. 管理员配置的默认供应商
	// 配置单例缺失继续向下兜底，存储错误直接上抛
	setting, err := r.ChatSetting(ctx)
	if err != nil && !errors.Is(err, ErrNoProviderAvailable) {
		return nil, err
	}
	if err == nil && setting.DefaultProviderID != nil {
		prov, err := r.providers.FindActiveByID(*setting.DefaultProviderID)
		if err == nil {
			return r.resolution(prov, TierDefault), nil
		}
		if !errors.Is(err, provider.ErrProviderNotFound) {
			return nil, err
		}
	}

	// 4. 第一个可用的启用供应商（跳过冷却中的）
	prov, err := r.firstActive(0)
	if err != nil {
		return nil, err
	}
	if prov != nil {
		return r.resolution(prov, TierFirstActive), nil
	}

	log.Printf("🚨 [router] 无可用供应商: user=%s selected=%d", userID, selectedProviderID)
	return nil, ErrNoProviderAvailable
}

// resolvePreference 解析用户偏好档位
// 偏好失效的情况：供应商停用，或访问授权被显式禁用
func (r *Router) resolvePreference(ctx context.Context, userID string) (*models.Provider, error) {
	var pref models.UserPreference
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&pref).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	prov, err := r.providers.FindActiveByID(pref.ProviderID)
	if errors.Is(err, provider.ErrProviderNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	// 访问授权被禁用时偏好同样失效
	var access models.ModelAccess
	err = r.db.WithContext(ctx).
		Where("user_id = ? AND provider_id = ?", userID, pref.ProviderID).
		First(&access).Error
	if err == nil && !access.Enabled {
		return nil, nil
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	return prov, nil
}

// firstActive 第一个可用的启用供应商，排除指定 ID
func (r *Router) firstActive(excludeID uint) (*models.Provider, error) {
	providers, err := r.providers.FindActive()
	if err != nil {
		return nil, err
	}

	for _, prov := range providers {
		if prov.ID == excludeID {
			continue
		}
		if r.availability != nil && !r.availability.IsAvailable(prov.ID) {
			continue
		}
		return prov, nil
	}

	return nil, nil
}

// resolution 组装解析结果，附带故障转移候选
func (r *Router) resolution(prov *models.Provider, tier Tier) *Resolution {
	res := &Resolution{
		Provider: prov,
		Tier:     tier,
	}

	if fallback, err := r.firstActive(prov.ID); err == nil && fallback != nil {
		res.Fallback = fallback
	}

	return res
}
