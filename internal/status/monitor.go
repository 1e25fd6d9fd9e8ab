package status

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/kaelis/Aegisx-AI/internal/metrics"
	"github.com/kaelis/Aegisx-AI/internal/modelstore"
	"github.com/kaelis/Aegisx-AI/internal/provider"
	"github.com/kaelis/Aegisx-AI/internal/router"
)

// Monitor 状态监控器
// 三类触发都走同一条只读重算路径：手动刷新、周期轮询、
// 模型选择变更推送；重算本身幂等无副作用
type Monitor struct {
	router    *router.Router
	providers *provider.Repository
	store     *modelstore.Store
	reducer   *Reducer
	metrics   *metrics.Metrics

	pollInterval time.Duration
}

// MonitorConfig 监控器配置
type MonitorConfig struct {
	OptimisticWindow time.Duration    // 默认 250ms
	PollInterval     time.Duration    // 默认 30s
	Metrics          *metrics.Metrics // 可为 nil
}

// NewMonitor 创建状态监控器
func NewMonitor(rt *router.Router, providers *provider.Repository, store *modelstore.Store, cfg *MonitorConfig) *Monitor {
	if cfg == nil {
		cfg = &MonitorConfig{}
	}
	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = 30 * time.Second
	}

	return &Monitor{
		router:       rt,
		providers:    providers,
		store:        store,
		reducer:      NewReducer(cfg.OptimisticWindow),
		metrics:      cfg.Metrics,
		pollInterval: pollInterval,
	}
}

// Current 当前对外可见的状态
func (m *Monitor) Current() Status {
	return m.reducer.Current()
}

// Refresh 手动触发一次权威重算
func (m *Monitor) Refresh(ctx context.Context, userID string) Status {
	s := m.compute(ctx, userID)
	m.reducer.ApplyAuthoritative(s)
	return s
}

// NoteSelection 用户切换模型后的乐观反馈
// 先写入乐观状态让 UI 立即更新，权威重算随后覆盖
func (m *Monitor) NoteSelection(userID string, providerID uint, providerName, providerType string) {
	if m.store != nil {
		m.store.Set(userID, providerID, providerName)
	}
	m.reducer.SetOptimistic(Status{
		State:        StateOperational,
		Message:      fmt.Sprintf("已切换到 %s", providerName),
		ProviderName: providerName,
		ProviderType: providerType,
	})
}

// Watch 订阅选择变更并周期轮询，阻塞直到 ctx 取消
// 每次触发都做一次权威重算
func (m *Monitor) Watch(ctx context.Context, userID string) {
	var changes <-chan modelstore.Snapshot
	cancelSub := func() {}
	if m.store != nil {
		changes, cancelSub = m.store.Subscribe(userID)
	}
	defer cancelSub()

	ticker := time.NewTicker(m.pollInterval)
	defer ticker.Stop()

	m.Refresh(ctx, userID)

	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-changes:
			if !ok {
				changes = nil
				continue
			}
			m.Refresh(ctx, userID)
		case <-ticker.C:
			m.Refresh(ctx, userID)
		}
	}
}

// compute 只读重算：配置启用 → 有活跃供应商 → 路由可解析
func (m *Monitor) compute(ctx context.Context, userID string) Status {
	now := time.Now()

	setting, err := m.router.ChatSetting(ctx)
	if err != nil {
		return Status{
			State:     StateNotConfigured,
			Message:   "聊天配置缺失",
			CheckedAt: now,
		}
	}
	if !setting.Enabled {
		return Status{
			State:     StateNotConfigured,
			Message:   "AI 聊天已关闭",
			CheckedAt: now,
		}
	}

	count, err := m.providers.CountActive()
	if err != nil {
		log.Printf("⚠️ [status] 查询供应商失败: %v", err)
		return Status{
			State:     StateIssues,
			Message:   "无法查询供应商状态",
			CheckedAt: now,
		}
	}
	if m.metrics != nil {
		m.metrics.ActiveProviders.Set(float64(count))
	}
	if count == 0 {
		return Status{
			State:     StateNotConfigured,
			Message:   "未配置任何可用供应商",
			CheckedAt: now,
		}
	}

	res, err := m.router.Resolve(ctx, userID, 0)
	if err != nil {
		if errors.Is(err, router.ErrNoProviderAvailable) {
			return Status{
				State:     StateIssues,
				Message:   "所有供应商均不可用",
				CheckedAt: now,
			}
		}
		return Status{
			State:     StateIssues,
			Message:   fmt.Sprintf("路由解析失败: %v", err),
			CheckedAt: now,
		}
	}

	return Status{
		State:        StateOperational,
		Message:      fmt.Sprintf("服务正常（%s）", res.Provider.Name),
		ProviderName: res.Provider.Name,
		ProviderType: string(res.Provider.Type),
		CheckedAt:    now,
	}
}
