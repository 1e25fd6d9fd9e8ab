package handlers

import (
	"errors"
	"log"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/kaelis/Aegisx-AI/internal/provider"
	"github.com/gin-gonic/gin"
)

// ProviderHandler 供应商 HTTP 处理器
type ProviderHandler struct {
	service *provider.Service
}

// NewProviderHandler 创建 ProviderHandler 实例
func NewProviderHandler(service *provider.Service) *ProviderHandler {
	return &ProviderHandler{service: service}
}

// CreateProvider 创建供应商
// @Summary 创建供应商
// @Tags providers
// @Accept json
// @Produce json
// @Param provider body provider.CreateProviderRequest true "供应商信息"
// @Success 201 {object} provider.ProviderResponse
// @Failure 400 {object} provider.ErrorResponse
// @Failure 409 {object} provider.ErrorResponse
// @Router /api/providers [post]
func (h *ProviderHandler) CreateProvider(c *gin.Context) {
	var req provider.CreateProviderRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, provider.ErrorResponse{
			Error: provider.ErrorDetail{
				Code:    "VALIDATION_ERROR",
				Message: "Invalid request parameters",
				Details: err.Error(),
			},
		})
		return
	}

	prov, err := h.service.CreateProvider(req)
	if err != nil {
		h.respondServiceError(c, err, "Failed to create provider")
		return
	}

	// 返回响应（API Key 脱敏）
	c.JSON(http.StatusCreated, provider.ToProviderResponse(prov))
}

// GetProvider 获取单个供应商
// @Summary 获取单个供应商
// @Tags providers
// @Produce json
// @Param id path int true "供应商 ID"
// @Success 200 {object} provider.ProviderResponse
// @Failure 404 {object} provider.ErrorResponse
// @Router /api/providers/{id} [get]
func (h *ProviderHandler) GetProvider(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	prov, err := h.service.GetProvider(id)
	if err != nil {
		h.respondServiceError(c, err, "Failed to get provider")
		return
	}

	c.JSON(http.StatusOK, provider.ToProviderResponse(prov))
}

// ListProviders 获取供应商列表
// @Summary 获取供应商列表
// @Tags providers
// @Produce json
// @Param page query int false "页码（默认 1）"
// @Param page_size query int false "每页数量（默认 10，最大 100）"
// @Success 200 {object} provider.ProviderListResponse
// @Router /api/providers [get]
func (h *ProviderHandler) ListProviders(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "10"))

	providers, total, err := h.service.ListProviders(page, pageSize)
	if err != nil {
		c.JSON(http.StatusInternalServerError, provider.ErrorResponse{
			Error: provider.ErrorDetail{
				Code:    "INTERNAL_ERROR",
				Message: "Failed to list providers",
			},
		})
		return
	}

	data := make([]provider.ProviderResponse, len(providers))
	for i, p := range providers {
		data[i] = *provider.ToProviderResponse(p)
	}

	totalPages := int(math.Ceil(float64(total) / float64(pageSize)))

	c.JSON(http.StatusOK, provider.ProviderListResponse{
		Data: data,
		Pagination: provider.PaginationMeta{
			Total:      total,
			Page:       page,
			PageSize:   pageSize,
			TotalPages: totalPages,
		},
	})
}

// UpdateProvider 更新供应商
// @Summary 更新供应商
// @Tags providers
// @Accept json
// @Produce json
// @Param id path int true "供应商 ID"
// @Param provider body provider.UpdateProviderRequest true "更新信息"
// @Success 200 {object} provider.ProviderResponse
// @Failure 400 {object} provider.ErrorResponse
// @Failure 404 {object} provider.ErrorResponse
// @Router /api/providers/{id} [put]
func (h *ProviderHandler) UpdateProvider(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	var req provider.UpdateProviderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, provider.ErrorResponse{
			Error: provider.ErrorDetail{
				Code:    "VALIDATION_ERROR",
				Message: "Invalid request parameters",
				Details: err.Error(),
			},
		})
		return
	}

	prov, err := h.service.UpdateProvider(id, req)
	if err != nil {
		h.respondServiceError(c, err, "Failed to update provider")
		return
	}

	c.JSON(http.StatusOK, provider.ToProviderResponse(prov))
}

// DeleteProvider 删除供应商（软删除）
// @Summary 删除供应商
// @Tags providers
// @Param id path int true "供应商 ID"
// @Success 204 "No Content"
// @Failure 404 {object} provider.ErrorResponse
// @Router /api/providers/{id} [delete]
func (h *ProviderHandler) DeleteProvider(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	if err := h.service.DeleteProvider(id); err != nil {
		h.respondServiceError(c, err, "Failed to delete provider")
		return
	}

	c.Status(http.StatusNoContent)
}

// ToggleProviderEnabled 启用/禁用供应商
// @Summary 启用/禁用供应商
// @Tags providers
// @Accept json
// @Produce json
// @Param id path int true "供应商 ID"
// @Param request body ToggleEnabledRequest true "启用状态"
// @Success 200 {object} provider.ProviderResponse
// @Failure 404 {object} provider.ErrorResponse
// @Router /api/providers/{id}/enabled [patch]
func (h *ProviderHandler) ToggleProviderEnabled(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	var req ToggleEnabledRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, provider.ErrorResponse{
			Error: provider.ErrorDetail{
				Code:    "VALIDATION_ERROR",
				Message: "Invalid request parameters",
				Details: err.Error(),
			},
		})
		return
	}

	prov, err := h.service.UpdateProvider(id, provider.UpdateProviderRequest{
		Enabled: &req.Enabled,
	})
	if err != nil {
		h.respondServiceError(c, err, "Failed to update provider")
		return
	}

	c.JSON(http.StatusOK, provider.ToProviderResponse(prov))
}

// HealthCheckProvider 手动触发供应商健康检查
// @Summary 手动触发供应商健康检查
// @Tags providers
// @Produce json
// @Param id path int true "供应商 ID"
// @Success 200 {object} HealthCheckResponse
// @Failure 404 {object} provider.ErrorResponse
// @Router /api/providers/{id}/health-check [post]
func (h *ProviderHandler) HealthCheckProvider(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	prov, err := h.service.GetProvider(id)
	if err != nil {
		h.respondServiceError(c, err, "Failed to get provider")
		return
	}

	checker := provider.NewHealthChecker(15 * time.Second)

	baseURL := prov.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL(prov.Type)
	}

	checkResult, err := checker.CheckHealthSimple(baseURL, prov.APIKey)
	if err != nil {
		c.JSON(http.StatusInternalServerError, provider.ErrorResponse{
			Error: provider.ErrorDetail{
				Code:    "HEALTH_CHECK_FAILED",
				Message: "健康检查执行失败",
				Details: err.Error(),
			},
		})
		return
	}

	newHealthStatus := "unhealthy"
	if checkResult.Healthy {
		newHealthStatus = "healthy"
	}

	if !checkResult.Healthy {
		log.Printf("⚠️ 健康检查失败 [Provider: %s (ID: %d)] StatusCode: %d, Error: %s, ResponseTime: %dms",
			prov.Name, prov.ID, checkResult.StatusCode, checkResult.Error, checkResult.ResponseTimeMs)
	} else {
		log.Printf("✅ 健康检查成功 [Provider: %s (ID: %d)] ResponseTime: %dms",
			prov.Name, prov.ID, checkResult.ResponseTimeMs)
	}

	// 健康状态变化时更新数据库
	if prov.HealthStatus != newHealthStatus {
		if err := h.service.UpdateProviderHealthStatus(prov.ID, newHealthStatus); err != nil {
			c.Error(err)
		}
	}

	c.JSON(http.StatusOK, HealthCheckResponse{
		ProviderID:     prov.ID,
		Healthy:        checkResult.Healthy,
		ResponseTimeMs: int(checkResult.ResponseTimeMs),
		StatusCode:     checkResult.StatusCode,
		Error:          checkResult.Error,
		CheckedAt:      checkResult.CheckedAt,
	})
}

// HealthCheckResponse 健康检查响应
type HealthCheckResponse struct {
	ProviderID     uint      `json:"provider_id"`
	Healthy        bool      `json:"healthy"`
	ResponseTimeMs int       `json:"response_time_ms"`
	StatusCode     int       `json:"status_code,omitempty"`
	Error          string    `json:"error,omitempty"`
	CheckedAt      time.Time `json:"checked_at"`
}

// ToggleEnabledRequest 启用/禁用请求
type ToggleEnabledRequest struct {
	Enabled bool `json:"enabled"`
}

// parseID 解析路径中的供应商 ID
func (h *ProviderHandler) parseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, provider.ErrorResponse{
			Error: provider.ErrorDetail{
				Code:    "INVALID_ID",
				Message: "Invalid provider ID",
			},
		})
		return 0, false
	}
	return uint(id), true
}

// respondServiceError 把 Service 错误映射为 HTTP 响应
func (h *ProviderHandler) respondServiceError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, provider.ErrProviderNotFound):
		c.JSON(http.StatusNotFound, provider.ErrorResponse{
			Error: provider.ErrorDetail{
				Code:    "NOT_FOUND",
				Message: "Provider not found",
			},
		})
	case errors.Is(err, provider.ErrProviderNameExists):
		c.JSON(http.StatusConflict, provider.ErrorResponse{
			Error: provider.ErrorDetail{
				Code:    "NAME_CONFLICT",
				Message: "Provider name already exists",
			},
		})
	case errors.Is(err, provider.ErrInvalidInput),
		errors.Is(err, provider.ErrInvalidURL),
		errors.Is(err, provider.ErrInvalidType):
		c.JSON(http.StatusBadRequest, provider.ErrorResponse{
			Error: provider.ErrorDetail{
				Code:    "VALIDATION_ERROR",
				Message: err.Error(),
			},
		})
	default:
		c.JSON(http.StatusInternalServerError, provider.ErrorResponse{
			Error: provider.ErrorDetail{
				Code:    "INTERNAL_ERROR",
				Message: fallback,
			},
		})
	}
}
