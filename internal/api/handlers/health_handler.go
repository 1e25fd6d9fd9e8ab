package handlers

import (
	"net/http"
	"time"

	"github.com/kaelis/Aegisx-AI/internal/models"
	"github.com/kaelis/Aegisx-AI/internal/provider"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Version 服务版本，构建时通过 ldflags 注入
var Version = "dev"

// HealthHandler 聚合健康检查处理器
type HealthHandler struct {
	db      *gorm.DB
	repo    *provider.Repository
	service *provider.Service
	checker *provider.HealthChecker
}

// NewHealthHandler 创建 HealthHandler 实例
func NewHealthHandler(db *gorm.DB, repo *provider.Repository, service *provider.Service) *HealthHandler {
	return &HealthHandler{
		db:      db,
		repo:    repo,
		service: service,
		checker: provider.NewHealthChecker(5 * time.Second),
	}
}

// providerCheck 单个供应商的探测结果
type providerCheck struct {
	Name           string `json:"name"`
	Healthy        bool   `json:"healthy"`
	ResponseTimeMs int64  `json:"response_time_ms"`
	Error          string `json:"error,omitempty"`
}

// Check 聚合健康检查
// 数据库连通性探测 + 最多两个供应商的采样探测；
// 全部通过返回 200 healthy，部分失败 503 degraded，数据库不通 503 unhealthy
func (h *HealthHandler) Check(c *gin.Context) {
	started := time.Now()

	dbHealthy := h.checkDatabase(c)

	var total, active int64
	h.db.WithContext(c.Request.Context()).Table("providers").Where("deleted_at IS NULL").Count(&total)
	active, _ = h.countActive()

	tested := h.probeProviders(c)

	status := "healthy"
	if !dbHealthy {
		status = "unhealthy"
	} else {
		for _, check := range tested {
			if !check.Healthy {
				status = "degraded"
				break
			}
		}
	}

	httpStatus := http.StatusOK
	if status != "healthy" {
		httpStatus = http.StatusServiceUnavailable
	}

	c.JSON(httpStatus, gin.H{
		"status":       status,
		"responseTime": time.Since(started).Milliseconds(),
		"checks": gin.H{
			"database": dbHealthy,
			"providers": gin.H{
				"total":  total,
				"active": active,
				"tested": tested,
			},
			"functions": []string{"ai-chat-router", "ai-chat-openai", "ai-chat-mistral"},
		},
		"version": Version,
	})
}

// defaultBaseURL 未配置 base_url 时按类型取官方地址
func defaultBaseURL(providerType models.ProviderType) string {
	switch providerType {
	case models.ProviderTypeMistral:
		return "https://api.mistral.ai"
	default:
		return "https://api.openai.com"
	}
}

func (h *HealthHandler) checkDatabase(c *gin.Context) bool {
	sqlDB, err := h.db.DB()
	if err != nil {
		return false
	}
	return sqlDB.PingContext(c.Request.Context()) == nil
}

func (h *HealthHandler) countActive() (int64, error) {
	return h.repo.CountActive()
}

// probeProviders 对最多两个启用供应商做采样探测
func (h *HealthHandler) probeProviders(c *gin.Context) []providerCheck {
	providers, err := h.repo.FindActive()
	if err != nil {
		return nil
	}

	const maxProbes = 2
	checks := make([]providerCheck, 0, maxProbes)

	for _, prov := range providers {
		if len(checks) == maxProbes {
			break
		}

		apiKey := prov.APIKey
		if h.service != nil {
			if key, err := h.service.ResolveCredentials(prov); err == nil {
				apiKey = key
			}
		}

		baseURL := prov.BaseURL
		if baseURL == "" {
			baseURL = defaultBaseURL(prov.Type)
		}

		result, err := h.checker.CheckHealth(c.Request.Context(), baseURL, apiKey)
		check := providerCheck{Name: prov.Name}
		if err != nil {
			check.Error = err.Error()
		} else {
			check.Healthy = result.Healthy
			check.ResponseTimeMs = result.ResponseTimeMs
			check.Error = result.Error
		}
		checks = append(checks, check)
	}

	return checks
}
