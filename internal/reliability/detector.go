package reliability

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/kaelis/Aegisx-AI/internal/upstream"
)

// ==================== 类型定义 ====================

// FailureType 故障类型枚举
type FailureType string

const (
	TimeoutFailure    FailureType = "timeout"
	ConnectionFailure FailureType = "connection"
	ServerError       FailureType = "server_error"
	RateLimitFailure  FailureType = "rate_limit"
	UnknownFailure    FailureType = "unknown"
)

// providerState 单个供应商的故障状态
type providerState struct {
	ConsecutiveFailures int
	TotalFailures       int64
	TotalRequests       int64
	LastFailureTime     time.Time
	LastSuccessTime     time.Time
	CooldownUntil       time.Time
	InCooldown          bool
	FailureTypes        map[FailureType]int64
}

// FailureStats 供应商故障统计（对外快照）
type FailureStats struct {
	ProviderID          uint                  `json:"provider_id"`
	ConsecutiveFailures int                   `json:"consecutive_failures"`
	TotalFailures       int64                 `json:"total_failures"`
	TotalRequests       int64                 `json:"total_requests"`
	InCooldown          bool                  `json:"in_cooldown"`
	CooldownUntil       time.Time             `json:"cooldown_until"`
	FailureTypes        map[FailureType]int64 `json:"failure_types"`
}

// DetectorConfig 故障检测器配置
type DetectorConfig struct {
	FailureThreshold int           // 连续故障阈值，默认 3
	CooldownDuration time.Duration // 冷却时长，默认 5 分钟
}

// DefaultDetectorConfig 默认故障检测配置
func DefaultDetectorConfig() *DetectorConfig {
	return &DetectorConfig{
		FailureThreshold: 3,
		CooldownDuration: 5 * time.Minute,
	}
}

// ==================== 故障检测器 ====================

// Detector 供应商故障检测器
// 连续故障达到阈值后让供应商进入冷却期，
// 路由器的兜底档位会跳过冷却中的供应商
type Detector struct {
	mu     sync.RWMutex
	states map[uint]*providerState
	config *DetectorConfig
}

// NewDetector 创建故障检测器
func NewDetector(config *DetectorConfig) *Detector {
	if config == nil {
		config = DefaultDetectorConfig()
	}
	if config.FailureThreshold <= 0 {
		config.FailureThreshold = 3
	}
	if config.CooldownDuration <= 0 {
		config.CooldownDuration = 5 * time.Minute
	}

	return &Detector{
		states: make(map[uint]*providerState),
		config: config,
	}
}

// RecordFailure 记录供应商故障
func (d *Detector) RecordFailure(providerID uint, failureType FailureType) {
	d.mu.Lock()
	defer d.mu.Unlock()

	state := d.getOrCreate(providerID)
	state.ConsecutiveFailures++
	state.TotalFailures++
	state.TotalRequests++
	state.LastFailureTime = time.Now()
	state.FailureTypes[failureType]++

	if state.ConsecutiveFailures >= d.config.FailureThreshold && !state.InCooldown {
		state.InCooldown = true
		state.CooldownUntil = time.Now().Add(d.config.CooldownDuration)
	}
}

// RecordSuccess 记录供应商成功，重置连续故障计数
func (d *Detector) RecordSuccess(providerID uint) {
	d.mu.Lock()
	defer d.mu.Unlock()

	state := d.getOrCreate(providerID)
	state.ConsecutiveFailures = 0
	state.TotalRequests++
	state.LastSuccessTime = time.Now()
	state.InCooldown = false
	state.CooldownUntil = time.Time{}
}

// IsAvailable 检查供应商是否可用（不在冷却期）
func (d *Detector) IsAvailable(providerID uint) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	state, exists := d.states[providerID]
	if !exists {
		// 新供应商默认可用
		return true
	}

	if state.InCooldown {
		if time.Now().After(state.CooldownUntil) {
			state.InCooldown = false
			state.CooldownUntil = time.Time{}
			return true
		}
		return false
	}

	return true
}

// GetStats 获取供应商故障统计快照
func (d *Detector) GetStats(providerID uint) *FailureStats {
	d.mu.RLock()
	defer d.mu.RUnlock()

	stats := &FailureStats{
		ProviderID:   providerID,
		FailureTypes: make(map[FailureType]int64),
	}

	state, exists := d.states[providerID]
	if !exists {
		return stats
	}

	stats.ConsecutiveFailures = state.ConsecutiveFailures
	stats.TotalFailures = state.TotalFailures
	stats.TotalRequests = state.TotalRequests
	stats.InCooldown = state.InCooldown
	stats.CooldownUntil = state.CooldownUntil
	for ft, count := range state.FailureTypes {
		stats.FailureTypes[ft] = count
	}

	return stats
}

// Reset 重置供应商状态
func (d *Detector) Reset(providerID uint) {
	d.mu.Lock()
	defer d.mu.Unlock()

	delete(d.states, providerID)
}

// getOrCreate 获取或创建供应商状态（调用方持锁）
func (d *Detector) getOrCreate(providerID uint) *providerState {
	state, exists := d.states[providerID]
	if !exists {
		state = &providerState{
			FailureTypes: make(map[FailureType]int64),
		}
		d.states[providerID] = state
	}
	return state
}

// ==================== 故障分类 ====================

// ClassifyError 根据错误确定故障类型
func ClassifyError(err error) FailureType {
	if err == nil {
		return UnknownFailure
	}

	var upErr *upstream.Error
	if errors.As(err, &upErr) {
		switch {
		case upErr.StatusCode == http.StatusTooManyRequests:
			return RateLimitFailure
		case upErr.StatusCode >= 500 && upErr.StatusCode < 600:
			return ServerError
		}
		return UnknownFailure
	}

	if isTimeoutError(err) {
		return TimeoutFailure
	}
	if isConnectionError(err) {
		return ConnectionFailure
	}

	return UnknownFailure
}

// isTimeoutError 检查是否为超时错误
func isTimeoutError(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	errMsg := strings.ToLower(err.Error())
	for _, keyword := range []string{"timeout", "deadline exceeded", "timed out"} {
		if strings.Contains(errMsg, keyword) {
			return true
		}
	}

	return false
}

// isConnectionError 检查是否为连接错误
func isConnectionError(err error) bool {
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}

	errMsg := strings.ToLower(err.Error())
	connectionKeywords := []string{
		"connection refused", "connection reset", "connection aborted",
		"network is unreachable", "no route to host", "broken pipe", "dial",
	}
	for _, keyword := range connectionKeywords {
		if strings.Contains(errMsg, keyword) {
			return true
		}
	}

	return false
}
