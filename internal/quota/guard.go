package quota

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kaelis/Aegisx-AI/internal/config"
	"github.com/kaelis/Aegisx-AI/internal/models"
	"gorm.io/gorm"
)

var (
	// ErrQuotaExceeded 用量已达上限
	ErrQuotaExceeded = errors.New("quota exceeded")
	// ErrUsageCheck 用量检查本身失败（网络/存储错误）
	// 必须与"配额耗尽"区分开，调用方需要 fail closed
	ErrUsageCheck = errors.New("usage check failed")
)

// Status 配额检查结果
type Status struct {
	Allowed   bool   `json:"allowed"`
	Current   int64  `json:"current"`
	Limit     int64  `json:"limit"`     // Unlimited 时无意义
	Unlimited bool   `json:"unlimited"` // usage_limit 为 NULL
	PlanName  string `json:"plan_name"`
}

// Guard 配额守卫
// 在放行 AI 请求前检查并递增用户的月度用量计数
type Guard struct {
	db           *gorm.DB
	defaultLimit int64
	defaultPlan  string
}

// NewGuard 创建配额守卫
func NewGuard(db *gorm.DB, cfg *config.QuotaConfig) *Guard {
	defaultLimit := int64(50)
	defaultPlan := "free"
	if cfg != nil {
		defaultLimit = cfg.DefaultLimit
		defaultPlan = cfg.DefaultPlanName
	}

	return &Guard{
		db:           db,
		defaultLimit: defaultLimit,
		defaultPlan:  defaultPlan,
	}
}

// Check 检查用户当前配额
// 首次访问的用户会按默认套餐建立配额记录；
// 跨月后用量计数自动归零
func (g *Guard) Check(ctx context.Context, userID string) (*Status, error) {
	record, err := g.ensureRecord(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUsageCheck, err)
	}

	status := &Status{
		Current:   record.UsageCurrent,
		Unlimited: record.UsageLimit == nil,
		PlanName:  record.PlanName,
	}

	if record.UsageLimit == nil {
		status.Allowed = true
		return status, nil
	}

	status.Limit = *record.UsageLimit
	status.Allowed = record.UsageCurrent < *record.UsageLimit
	return status, nil
}

// Increment 原子递增用量
// 检查和递增必须是同一条带上限条件的 UPDATE，
// 并发请求不可能同时越过上限；返回 false 表示递增被上限拒绝
func (g *Guard) Increment(ctx context.Context, userID string) (bool, error) {
	result := g.db.WithContext(ctx).Model(&models.UsageQuota{}).
		Where("user_id = ? AND (usage_limit IS NULL OR usage_current < usage_limit)", userID).
		UpdateColumn("usage_current", gorm.Expr("usage_current + 1"))

	if result.Error != nil {
		return false, fmt.Errorf("%w: %v", ErrUsageCheck, result.Error)
	}

	if result.RowsAffected > 0 {
		return true, nil
	}

	// 没有命中任何行：要么用量已到上限，要么记录不存在
	var count int64
	if err := g.db.WithContext(ctx).Model(&models.UsageQuota{}).
		Where("user_id = ?", userID).Count(&count).Error; err != nil {
		return false, fmt.Errorf("%w: %v", ErrUsageCheck, err)
	}
	if count == 0 {
		return false, fmt.Errorf("%w: quota record not found for user %s", ErrUsageCheck, userID)
	}

	return false, nil
}

// ensureRecord 获取配额记录，不存在时创建，跨月时重置
func (g *Guard) ensureRecord(ctx context.Context, userID string) (*models.UsageQuota, error) {
	periodStart := currentPeriodStart()

	var record models.UsageQuota
	err := g.db.WithContext(ctx).Where("user_id = ?", userID).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		limit := g.defaultLimit
		record = models.UsageQuota{
			UserID:      userID,
			PlanName:    g.defaultPlan,
			UsageLimit:  &limit,
			PeriodStart: periodStart,
		}
		if err := g.db.WithContext(ctx).Create(&record).Error; err != nil {
			return nil, err
		}
		return &record, nil
	}
	if err != nil {
		return nil, err
	}

	// 月度滚动：新周期用量归零
	if record.PeriodStart.Before(periodStart) {
		result := g.db.WithContext(ctx).Model(&models.UsageQuota{}).
			Where("user_id = ? AND period_start < ?", userID, periodStart).
			Updates(map[string]interface{}{
				"usage_current": 0,
				"period_start":  periodStart,
			})
		if result.Error != nil {
			return nil, result.Error
		}
		record.UsageCurrent = 0
		record.PeriodStart = periodStart
	}

	return &record, nil
}

// currentPeriodStart 当前计费周期起点（UTC 月初）
func currentPeriodStart() time.Time {
	now := time.Now().UTC()
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
}
