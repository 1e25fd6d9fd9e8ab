package reliability

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/kaelis/Aegisx-AI/internal/upstream"
	"github.com/stretchr/testify/assert"
)

func TestDetector_CooldownAfterThreshold(t *testing.T) {
	detector := NewDetector(&DetectorConfig{
		FailureThreshold: 3,
		CooldownDuration: time.Minute,
	})

	// 前两次故障不触发冷却
	detector.RecordFailure(1, ServerError)
	detector.RecordFailure(1, ServerError)
	assert.True(t, detector.IsAvailable(1))

	// 第三次进入冷却期
	detector.RecordFailure(1, ServerError)
	assert.False(t, detector.IsAvailable(1))

	stats := detector.GetStats(1)
	assert.True(t, stats.InCooldown)
	assert.Equal(t, 3, stats.ConsecutiveFailures)
	assert.Equal(t, int64(3), stats.FailureTypes[ServerError])
}

func TestDetector_SuccessResetsConsecutiveFailures(t *testing.T) {
	detector := NewDetector(&DetectorConfig{
		FailureThreshold: 3,
		CooldownDuration: time.Minute,
	})

	detector.RecordFailure(1, TimeoutFailure)
	detector.RecordFailure(1, TimeoutFailure)
	detector.RecordSuccess(1)
	detector.RecordFailure(1, TimeoutFailure)
	detector.RecordFailure(1, TimeoutFailure)

	// 中间的成功打断了连续计数
	assert.True(t, detector.IsAvailable(1))
	assert.Equal(t, 2, detector.GetStats(1).ConsecutiveFailures)
}

func TestDetector_CooldownExpires(t *testing.T) {
	detector := NewDetector(&DetectorConfig{
		FailureThreshold: 1,
		CooldownDuration: 30 * time.Millisecond,
	})

	detector.RecordFailure(1, ConnectionFailure)
	assert.False(t, detector.IsAvailable(1))

	time.Sleep(50 * time.Millisecond)
	assert.True(t, detector.IsAvailable(1))
}

func TestDetector_UnknownProviderIsAvailable(t *testing.T) {
	detector := NewDetector(nil)
	assert.True(t, detector.IsAvailable(42))
}

func TestDetector_Reset(t *testing.T) {
	detector := NewDetector(&DetectorConfig{FailureThreshold: 1, CooldownDuration: time.Hour})

	detector.RecordFailure(1, ServerError)
	assert.False(t, detector.IsAvailable(1))

	detector.Reset(1)
	assert.True(t, detector.IsAvailable(1))
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want FailureType
	}{
		{"rate limit", &upstream.Error{Provider: "openai", StatusCode: 429, Message: "slow down"}, RateLimitFailure},
		{"server error", &upstream.Error{Provider: "openai", StatusCode: 502, Message: "bad gateway"}, ServerError},
		{"upstream 4xx", &upstream.Error{Provider: "openai", StatusCode: 400, Message: "bad request"}, UnknownFailure},
		{"deadline", context.DeadlineExceeded, TimeoutFailure},
		{"timeout keyword", errors.New("request timed out"), TimeoutFailure},
		{"connection keyword", errors.New("dial tcp: connection refused"), ConnectionFailure},
		{"wrapped upstream", fmt.Errorf("send: %w", &upstream.Error{StatusCode: 500}), ServerError},
		{"other", errors.New("boom"), UnknownFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyError(tt.err))
		})
	}
}
