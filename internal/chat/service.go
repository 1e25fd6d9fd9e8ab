package chat

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/kaelis/Aegisx-AI/internal/config"
	"github.com/kaelis/Aegisx-AI/internal/events"
	"github.com/kaelis/Aegisx-AI/internal/metrics"
	"github.com/kaelis/Aegisx-AI/internal/modelstore"
	"github.com/kaelis/Aegisx-AI/internal/models"
	"github.com/kaelis/Aegisx-AI/internal/quota"
	"github.com/kaelis/Aegisx-AI/internal/reliability"
	"github.com/kaelis/Aegisx-AI/internal/router"
	"github.com/kaelis/Aegisx-AI/internal/upstream"
	"gorm.io/gorm"
)

// ==================== 类型定义 ====================

// Input 一次聊天发送的归一化输入
type Input struct {
	UserID             string             `json:"-"`
	SessionID          string             `json:"session_id"`
	Message            string             `json:"message"`
	Messages           []upstream.Message `json:"messages,omitempty"`
	SelectedProviderID uint               `json:"selected_provider_id,omitempty"`
}

// Result 聊天发送结果
// Provider 是实际服务本次请求的供应商名称
type Result struct {
	Message    string      `json:"message"`
	Model      string      `json:"model"`
	Provider   string      `json:"provider"`
	TokensUsed int         `json:"tokensUsed"`
	Tier       router.Tier `json:"-"`
}

// QuotaExceededError 配额用尽
// 携带套餐名和上限，前端据此提示用户升级
type QuotaExceededError struct {
	PlanName string
	Current  int64
	Limit    int64
}

// Error 实现 error 接口
func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("quota exceeded: plan %s, usage %d/%d", e.PlanName, e.Current, e.Limit)
}

// Unwrap 对齐配额守卫的哨兵错误
func (e *QuotaExceededError) Unwrap() error {
	return quota.ErrQuotaExceeded
}

// StatusNotifier 接收模型选择变更的状态组件
type StatusNotifier interface {
	NoteSelection(userID string, providerID uint, providerName, providerType string)
}

// Deps 聊天服务的依赖集合
type Deps struct {
	DB          *gorm.DB
	Guard       *quota.Guard
	Router      *router.Router
	Dispatcher  *router.Dispatcher
	Preferences *router.PreferenceStore
	Detector    *reliability.Detector
	Events      *events.Service
	Store       *modelstore.Store
	Status      StatusNotifier
	Metrics     *metrics.Metrics
}

// Service 聊天编排服务
// 一次发送的完整链路：配置检查 → 配额检查与原子扣减 → 路由解析 →
// 可靠发送（主供应商 + 故障转移候选，重试 × 退避 × 健康探测）
type Service struct {
	deps        Deps
	policy      reliability.Policy
	sendTimeout time.Duration

	// 同一会话内的发送按提交顺序串行处理
	sessionLocks sync.Map
}

// NewService 创建聊天服务
func NewService(deps Deps, cfg *config.ReliabilityConfig) *Service {
	policy := reliability.DefaultPolicy()
	sendTimeout := 120 * time.Second

	if cfg != nil {
		if cfg.MaxRetries > 0 {
			policy.MaxRetries = cfg.MaxRetries
		}
		if cfg.BaseDelay > 0 {
			policy.BaseDelay = cfg.BaseDelay
		}
		if cfg.SendTimeout > 0 {
			sendTimeout = cfg.SendTimeout
		}
	}

	return &Service{
		deps:        deps,
		policy:      policy,
		sendTimeout: sendTimeout,
	}
}

// ==================== 发送链路 ====================

// Send 执行一次逻辑发送
func (s *Service) Send(ctx context.Context, input *Input) (*Result, error) {
	if input.Message == "" && len(input.Messages) == 0 {
		return nil, upstream.ErrEmptyRequest
	}

	// 会话内串行，保证同一会话的消息按提交顺序处理
	if input.SessionID != "" {
		unlock := s.lockSession(input.SessionID)
		defer unlock()
	}

	ctx, cancel := context.WithTimeout(ctx, s.sendTimeout)
	defer cancel()

	started := time.Now()

	result, err := s.send(ctx, input)
	if err != nil {
		s.countRequest("", outcomeOf(err))
		return nil, err
	}

	s.countRequest(result.Provider, "success")
	if s.deps.Metrics != nil {
		s.deps.Metrics.ChatDuration.WithLabelValues(result.Provider).Observe(time.Since(started).Seconds())
	}
	return result, nil
}

func (s *Service) send(ctx context.Context, input *Input) (*Result, error) {
	// 1. 配置开关
	setting, err := s.deps.Router.ChatSetting(ctx)
	if err != nil {
		return nil, err
	}
	if !setting.Enabled {
		return nil, router.ErrChatDisabled
	}

	// 2. 配额检查（失败关闭：检查本身出错同样拒绝）
	st, err := s.deps.Guard.Check(ctx, input.UserID)
	if err != nil {
		return nil, err
	}
	if !st.Allowed {
		return nil, s.denyQuota(input.UserID, st)
	}

	// 3. 原子扣减，扣减成功才允许调用上游
	ok, err := s.deps.Guard.Increment(ctx, input.UserID)
	if err != nil {
		return nil, err
	}
	if !ok {
		// 并发发送挤掉了最后的名额
		return nil, s.denyQuota(input.UserID, st)
	}

	// 4. 路由解析
	res, err := s.deps.Router.Resolve(ctx, input.UserID, input.SelectedProviderID)
	if err != nil {
		if errors.Is(err, router.ErrNoProviderAvailable) {
			s.logEvent(func() error { return s.deps.Events.LogNoProvider(input.UserID) })
		}
		return nil, err
	}

	// 5. 显式选择成功后固化为用户偏好，并广播给状态订阅者
	if input.SelectedProviderID != 0 && res.Tier == router.TierExplicit {
		s.persistSelection(ctx, input.UserID, res.Provider)
	}

	// 6. 组装上游请求，管理员配置提供系统提示词和生成参数
	req := &upstream.ChatRequest{
		Message:      input.Message,
		Messages:     input.Messages,
		SystemPrompt: setting.SystemPrompt,
		MaxTokens:    setting.MaxTokens,
		Temperature:  setting.Temperature,
	}

	// 7. 可靠发送：主供应商优先，故障转移候选兜底
	transports := []reliability.Transport{s.transport(res.Provider)}
	if res.Fallback != nil {
		transports = append(transports, s.transport(res.Fallback))
	}

	sender := reliability.NewSender(&reliability.SenderConfig{
		Policy:  s.policy,
		Probe:   s.probe,
		OnRetry: s.countRetry,
	}, transports...)

	resp, err := sender.Send(ctx, req)
	if err != nil {
		return nil, err
	}

	// 实际服务的供应商与解析结果不同说明发生了故障转移
	if resp.Provider != res.Provider.Name {
		log.Printf("🔄 [chat] 故障转移: %s -> %s", res.Provider.Name, resp.Provider)
		s.logEvent(func() error {
			return s.deps.Events.LogFailover(input.UserID, res.Provider.Name, resp.Provider, "primary provider failed")
		})
		if s.deps.Metrics != nil {
			s.deps.Metrics.FailoverTotal.WithLabelValues(res.Provider.Name).Inc()
		}
	}

	return &Result{
		Message:    resp.Message,
		Model:      resp.Model,
		Provider:   resp.Provider,
		TokensUsed: resp.TokensUsed,
		Tier:       res.Tier,
	}, nil
}

// ==================== 内部辅助 ====================

// providerTransport 把一个供应商包装成发送方法
type providerTransport struct {
	svc      *Service
	provider *models.Provider
}

// Name 方法名称
func (t *providerTransport) Name() string {
	return t.provider.Name
}

// Send 分发到供应商适配器，并向故障检测器上报结果
// 网络和序列化层面的失败包装为传输错误，让发送器换方法重试
func (t *providerTransport) Send(ctx context.Context, req *upstream.ChatRequest) (*upstream.ChatResponse, error) {
	resp, err := t.svc.deps.Dispatcher.Dispatch(ctx, t.provider, req)
	if err != nil {
		if t.svc.deps.Detector != nil {
			t.svc.deps.Detector.RecordFailure(t.provider.ID, reliability.ClassifyError(err))
		}

		var upErr *upstream.Error
		if errors.As(err, &upErr) {
			t.svc.logEvent(func() error {
				return t.svc.deps.Events.LogProviderError(t.provider.Name, upErr.StatusCode, upErr.Message)
			})
			if t.svc.deps.Metrics != nil {
				t.svc.deps.Metrics.UpstreamErrorsTotal.
					WithLabelValues(t.provider.Name, fmt.Sprintf("%d", upErr.StatusCode)).Inc()
			}
			return nil, err
		}

		// 适配器缺失是配置错误，重试和换方法都不会改变结果
		if errors.Is(err, router.ErrUnknownProviderType) {
			return nil, err
		}

		return nil, &reliability.TransportError{Method: t.provider.Name, Err: err}
	}

	if t.svc.deps.Detector != nil {
		t.svc.deps.Detector.RecordSuccess(t.provider.ID)
	}
	return resp, nil
}

func (s *Service) transport(prov *models.Provider) reliability.Transport {
	return &providerTransport{svc: s, provider: prov}
}

// probe 重试前的轻量健康探测：数据库连通性
func (s *Service) probe(ctx context.Context) error {
	sqlDB, err := s.deps.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// lockSession 获取会话锁
func (s *Service) lockSession(sessionID string) func() {
	val, _ := s.sessionLocks.LoadOrStore(sessionID, &sync.Mutex{})
	mu := val.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// denyQuota 记录并返回配额拒绝
func (s *Service) denyQuota(userID string, st *quota.Status) error {
	limit := st.Limit
	s.logEvent(func() error { return s.deps.Events.LogQuotaDenied(userID, st.Current, &limit) })
	if s.deps.Metrics != nil {
		s.deps.Metrics.QuotaDeniedTotal.Inc()
	}
	return &QuotaExceededError{
		PlanName: st.PlanName,
		Current:  st.Current,
		Limit:    st.Limit,
	}
}

// persistSelection 固化显式选择为偏好并广播
func (s *Service) persistSelection(ctx context.Context, userID string, prov *models.Provider) {
	if s.deps.Preferences != nil {
		if err := s.deps.Preferences.Set(ctx, userID, prov.ID); err != nil {
			log.Printf("⚠️ [chat] 保存用户偏好失败: %v", err)
		}
	}

	// 状态监视器先乐观展示新选择，随后由权威刷新确认
	if s.deps.Status != nil {
		s.deps.Status.NoteSelection(userID, prov.ID, prov.Name, string(prov.Type))
		return
	}
	if s.deps.Store != nil {
		s.deps.Store.Set(userID, prov.ID, prov.Name)
	}
}

// logEvent 事件落库失败只打日志，不影响主链路
func (s *Service) logEvent(fn func() error) {
	if s.deps.Events == nil {
		return
	}
	if err := fn(); err != nil {
		log.Printf("⚠️ [chat] 记录事件失败: %v", err)
	}
}

// countRetry 每次重试尝试计入指标
func (s *Service) countRetry(attempt int, lastErr error) {
	if s.deps.Metrics != nil {
		s.deps.Metrics.RetryAttemptsTotal.Inc()
	}
}

func (s *Service) countRequest(provider, outcome string) {
	if s.deps.Metrics == nil {
		return
	}
	if provider == "" {
		provider = "none"
	}
	s.deps.Metrics.ChatRequestsTotal.WithLabelValues(provider, outcome).Inc()
}

// outcomeOf 把错误映射到指标的结果标签
func outcomeOf(err error) string {
	switch {
	case errors.Is(err, quota.ErrQuotaExceeded):
		return "quota_denied"
	case errors.Is(err, quota.ErrUsageCheck):
		return "usage_error"
	case errors.Is(err, router.ErrNoProviderAvailable):
		return "no_provider"
	case errors.Is(err, router.ErrChatDisabled):
		return "disabled"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return "error"
	}
}
