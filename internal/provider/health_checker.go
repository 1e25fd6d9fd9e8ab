package provider

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// HealthChecker 供应商健康检查器
type HealthChecker struct {
	client  *http.Client
	timeout time.Duration
}

// NewHealthChecker 创建健康检查器
func NewHealthChecker(timeout time.Duration) *HealthChecker {
	if timeout == 0 {
		timeout = 5 * time.Second // 默认 5 秒超时
	}

	return &HealthChecker{
		client: &http.Client{
			Timeout: timeout,
		},
		timeout: timeout,
	}
}

// HealthCheckResult 健康检查结果
type HealthCheckResult struct {
	Healthy        bool      `json:"healthy"`
	ResponseTimeMs int64     `json:"response_time_ms"`
	StatusCode     int       `json:"status_code,omitempty"`
	Error          string    `json:"error,omitempty"`
	CheckedAt      time.Time `json:"checked_at"`
}

// CheckHealth 执行健康检查
// 调用供应商的 /v1/models 端点验证可用性
func (hc *HealthChecker) CheckHealth(ctx context.Context, baseURL, apiKey string) (*HealthCheckResult, error) {
	startTime := time.Now()
	result := &HealthCheckResult{
		CheckedAt: startTime,
	}

	checkURL := strings.TrimSuffix(baseURL, "/") + "/v1/models"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, checkURL, nil)
	if err != nil {
		result.Error = fmt.Sprintf("创建请求失败: %v", err)
		return result, nil
	}

	// 添加认证头
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}
	req.Header.Set("User-Agent", "Aegisx-AI/1.0")

	// 执行请求
	resp, err := hc.client.Do(req)
	if err != nil {
		result.Error = fmt.Sprintf("请求失败: %v", err)
		result.ResponseTimeMs = time.Since(startTime).Milliseconds()
		return result, nil
	}
	defer resp.Body.Close()

	result.ResponseTimeMs = time.Since(startTime).Milliseconds()
	result.StatusCode = resp.StatusCode

	// 2xx 状态码视为健康
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		result.Healthy = true
	} else {
		result.Error = fmt.Sprintf("HTTP %d", resp.StatusCode)
	}

	return result, nil
}

// CheckHealthSimple 简化的健康检查（不需要 context）
func (hc *HealthChecker) CheckHealthSimple(baseURL, apiKey string) (*HealthCheckResult, error) {
	ctx, cancel := context.WithTimeout(context.Background(), hc.timeout)
	defer cancel()

	return hc.CheckHealth(ctx, baseURL, apiKey)
}
