package reliability

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/kaelis/Aegisx-AI/internal/upstream"
	"github.com/sethvargo/go-retry"
)

// ==================== 类型定义 ====================

// Transport 一种发送方法
// 一次尝试内按固定顺序逐个方法试过去，第一个拿到非空结果的方法获胜
type Transport interface {
	// Name 方法名称（用于日志和错误上下文）
	Name() string

	// Send 执行一次发送
	Send(ctx context.Context, req *upstream.ChatRequest) (*upstream.ChatResponse, error)
}

// Probe 轻量健康探测
// 在重试尝试（attempt > 0）开始前执行，探测失败则直接进入退避等待
type Probe func(ctx context.Context) error

// Policy 重试策略
// 退避延迟 = BaseDelay * 2^attemptIndex（attemptIndex 从 0 开始）
type Policy struct {
	MaxRetries int           // 最大尝试次数，默认 3
	BaseDelay  time.Duration // 退避基准延迟，默认 1s
}

// DefaultPolicy 默认重试策略
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries: 3,
		BaseDelay:  time.Second,
	}
}

// SenderConfig 发送器配置
type SenderConfig struct {
	Policy    Policy
	Probe     Probe                            // 可为 nil
	Retryable func(error) bool                 // 可为 nil，默认 DefaultRetryable
	OnRetry   func(attempt int, lastErr error) // 可为 nil，每次重试尝试开始时回调
}

// Sender 可靠发送器
// 将一次逻辑发送包装为 多方法 × 多次尝试 的重试循环
type Sender struct {
	transports []Transport
	policy     Policy
	probe      Probe
	retryable  func(error) bool
	onRetry    func(attempt int, lastErr error)
}

// ==================== 错误类型 ====================

var (
	// ErrNoTransports 未配置任何发送方法
	ErrNoTransports = errors.New("no transports configured")
	// ErrEmptyReply 方法成功返回但结果为空
	ErrEmptyReply = errors.New("transport returned empty reply")
	// errProbeFailed 健康探测失败（内部哨兵，始终可重试）
	errProbeFailed = errors.New("health probe failed")
)

// TransportError 传输层错误（网络/序列化），可重试
type TransportError struct {
	Method string
	Err    error
}

// Error 实现 error 接口
func (e *TransportError) Error() string {
	return fmt.Sprintf("transport %s: %v", e.Method, e.Err)
}

// Unwrap 返回底层错误
func (e *TransportError) Unwrap() error {
	return e.Err
}

// AllRetriesFailedError 重试预算耗尽后的聚合终态
type AllRetriesFailedError struct {
	Attempts int
	LastErr  error
}

// Error 实现 error 接口
func (e *AllRetriesFailedError) Error() string {
	return fmt.Sprintf("all %d attempts failed, last error: %v", e.Attempts, e.LastErr)
}

// Unwrap 返回最后一次的底层错误
func (e *AllRetriesFailedError) Unwrap() error {
	return e.LastErr
}

// DefaultRetryable 默认的可重试判定
// 上游错误和传输错误可重试；配额/认证/配置类错误重试不会改变结果
func DefaultRetryable(err error) bool {
	var upErr *upstream.Error
	if errors.As(err, &upErr) {
		return true
	}

	var trErr *TransportError
	if errors.As(err, &trErr) {
		return true
	}

	// 未包装的网络层错误同样可重试：换方法或等待网络恢复都可能成功
	if isTimeoutError(err) || isConnectionError(err) {
		return true
	}

	return errors.Is(err, ErrEmptyReply)
}

// ==================== 发送器实现 ====================

// NewSender 创建可靠发送器
func NewSender(cfg *SenderConfig, transports ...Transport) *Sender {
	policy := DefaultPolicy()
	var probe Probe
	retryable := DefaultRetryable
	var onRetry func(attempt int, lastErr error)

	if cfg != nil {
		if cfg.Policy.MaxRetries > 0 {
			policy.MaxRetries = cfg.Policy.MaxRetries
		}
		if cfg.Policy.BaseDelay > 0 {
			policy.BaseDelay = cfg.Policy.BaseDelay
		}
		if cfg.Probe != nil {
			probe = cfg.Probe
		}
		if cfg.Retryable != nil {
			retryable = cfg.Retryable
		}
		if cfg.OnRetry != nil {
			onRetry = cfg.OnRetry
		}
	}

	return &Sender{
		transports: transports,
		policy:     policy,
		probe:      probe,
		retryable:  retryable,
		onRetry:    onRetry,
	}
}

// Send 执行一次逻辑发送
// 终态要么是某个方法的非空结果，要么是携带尝试次数的聚合错误；
// ctx 取消会中止在途调用并停止后续重试
func (s *Sender) Send(ctx context.Context, req *upstream.ChatRequest) (*upstream.ChatResponse, error) {
	if len(s.transports) == 0 {
		return nil, ErrNoTransports
	}

	backoff := retry.WithMaxRetries(uint64(s.policy.MaxRetries-1), retry.NewExponential(s.policy.BaseDelay))

	var result *upstream.ChatResponse
	var lastErr error
	attempts := 0

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attemptIndex := attempts
		attempts++

		if attemptIndex > 0 && s.onRetry != nil {
			s.onRetry(attemptIndex, lastErr)
		}

		// 重试尝试先做健康探测；探测不过直接退避，省掉一次注定失败的调用
		if attemptIndex > 0 && s.probe != nil {
			if perr := s.probe(ctx); perr != nil {
				lastErr = perr
				log.Printf("⚠️ [reliability] 第 %d 次尝试健康探测失败，跳过本次调用: %v", attemptIndex+1, perr)
				return retry.RetryableError(fmt.Errorf("%w: %v", errProbeFailed, perr))
			}
		}

		for _, transport := range s.transports {
			resp, err := transport.Send(ctx, req)
			if err == nil && resp != nil && resp.Message != "" {
				result = resp
				return nil
			}
			if err == nil {
				err = ErrEmptyReply
			}
			lastErr = err
			log.Printf("⚠️ [reliability] 方法 %s 第 %d 次尝试失败: %v", transport.Name(), attemptIndex+1, err)

			// 致命错误立即终止，不再尝试后续方法
			if !s.retryable(err) {
				return err
			}
		}

		return retry.RetryableError(lastErr)
	})

	if err == nil {
		return result, nil
	}

	// 调用方取消优先于聚合错误
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil, err
	}

	// 可重试错误耗尽预算后聚合；致命错误原样返回
	if s.retryable(err) || errors.Is(err, errProbeFailed) {
		return nil, &AllRetriesFailedError{Attempts: attempts, LastErr: lastErr}
	}

	return nil, err
}
