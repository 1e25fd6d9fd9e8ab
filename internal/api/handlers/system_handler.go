package handlers

import (
	"net/http"
	"strconv"

	"github.com/kaelis/Aegisx-AI/internal/api/middleware"
	"github.com/kaelis/Aegisx-AI/internal/events"
	"github.com/kaelis/Aegisx-AI/internal/stats"
	"github.com/kaelis/Aegisx-AI/internal/status"
	"github.com/gin-gonic/gin"
)

// SystemHandler 系统状态与事件处理器
type SystemHandler struct {
	counter *stats.RequestCounter
	events  *events.Service
	monitor *status.Monitor
}

// NewSystemHandler 创建 SystemHandler 实例
func NewSystemHandler(counter *stats.RequestCounter, eventService *events.Service, monitor *status.Monitor) *SystemHandler {
	return &SystemHandler{
		counter: counter,
		events:  eventService,
		monitor: monitor,
	}
}

// GetStats 获取请求统计
// @Summary 获取请求统计
// @Tags system
// @Produce json
// @Success 200 {object} stats.RequestStats
// @Router /api/stats [get]
func (h *SystemHandler) GetStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.counter.GetStats())
}

// GetStatus 获取系统健康状态汇总
// 触发一次权威重算并返回结果
// @Summary 获取系统健康状态
// @Tags system
// @Produce json
// @Success 200 {object} status.Status
// @Router /api/status [get]
func (h *SystemHandler) GetStatus(c *gin.Context) {
	s := h.monitor.Refresh(c.Request.Context(), middleware.UserID(c))
	c.JSON(http.StatusOK, s)
}

// ListEvents 获取系统事件
// @Summary 获取系统事件
// @Tags system
// @Produce json
// @Param type query string false "事件类型过滤"
// @Param level query string false "级别过滤"
// @Param limit query int false "数量上限（默认 50）"
// @Success 200 {object} map[string]interface{}
// @Router /api/events [get]
func (h *SystemHandler) ListEvents(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if limit <= 0 || limit > 500 {
		limit = 50
	}

	eventType := c.Query("type")
	level := c.Query("level")

	var list interface{}
	var err error

	switch {
	case eventType != "":
		list, err = h.events.GetEventsByType(eventType, limit)
	case level != "":
		list, err = h.events.GetEventsByLevel(level, limit)
	default:
		list, err = h.events.GetRecentEvents(limit)
	}

	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": gin.H{
				"code":    "INTERNAL_ERROR",
				"message": "Failed to list events",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": list})
}
