package status

import (
	"sync"
	"time"
)

// State 健康状态枚举
type State string

const (
	// StateOperational 正常服务中
	StateOperational State = "operational"
	// StateIssues 存在问题（有配置但解析不出可用供应商）
	StateIssues State = "issues"
	// StateNotConfigured 未配置或未启用
	StateNotConfigured State = "not-configured"
)

// Status 健康状态汇总
// 派生数据，永远不作为事实源持久化；事实源是供应商表和聊天配置
type Status struct {
	State        State     `json:"state"`
	Message      string    `json:"message"`
	ProviderName string    `json:"provider_name,omitempty"`
	ProviderType string    `json:"provider_type,omitempty"`
	CheckedAt    time.Time `json:"checked_at"`
}

// defaultOptimisticWindow 乐观状态的确认窗口
// 窗口内等待权威重算覆盖，超时后乐观值自动失效
const defaultOptimisticWindow = 250 * time.Millisecond

// Reducer 状态归约器
// 用户切换模型后 UI 需要立即反馈（乐观状态），随后的权威重算
// 必须能覆盖它；乐观状态只在确认窗口内可见，保证最终收敛到权威值
type Reducer struct {
	mu            sync.RWMutex
	authoritative Status
	pending       *Status
	pendingAt     time.Time
	window        time.Duration
}

// NewReducer 创建归约器
func NewReducer(window time.Duration) *Reducer {
	if window <= 0 {
		window = defaultOptimisticWindow
	}
	return &Reducer{
		authoritative: Status{State: StateNotConfigured, Message: "尚未检查"},
		window:        window,
	}
}

// SetOptimistic 写入乐观状态（等待确认）
func (r *Reducer) SetOptimistic(s Status) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s.CheckedAt = time.Now()
	r.pending = &s
	r.pendingAt = s.CheckedAt
}

// ApplyAuthoritative 写入权威重算结果
// 权威值总是获胜：同时清除未确认的乐观状态
func (r *Reducer) ApplyAuthoritative(s Status) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s.CheckedAt.IsZero() {
		s.CheckedAt = time.Now()
	}
	r.authoritative = s
	r.pending = nil
}

// Current 读取当前对外可见的状态
// 确认窗口内返回乐观值，窗口过后回落到权威值
func (r *Reducer) Current() Status {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.pending != nil && time.Since(r.pendingAt) < r.window {
		return *r.pending
	}
	return r.authoritative
}
