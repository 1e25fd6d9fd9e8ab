package handlers

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/kaelis/Aegisx-AI/internal/api/middleware"
	"github.com/kaelis/Aegisx-AI/internal/chat"
	"github.com/kaelis/Aegisx-AI/internal/quota"
	"github.com/kaelis/Aegisx-AI/internal/router"
	"github.com/kaelis/Aegisx-AI/internal/upstream"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ChatHandler 聊天路由端点处理器
type ChatHandler struct {
	service *chat.Service
}

// NewChatHandler 创建 ChatHandler 实例
func NewChatHandler(service *chat.Service) *ChatHandler {
	return &ChatHandler{service: service}
}

// chatRequestBody 聊天请求体
type chatRequestBody struct {
	Message         string             `json:"message"`
	Messages        []upstream.Message `json:"messages"`
	SelectedModelID string             `json:"selectedModelId"`
	SessionID       string             `json:"sessionId"`
}

// Chat 处理一次聊天发送
// 错误契约固定为 500 {"error": ...}：认证失败、缺少消息、
// 配额用尽、无可用供应商都走这个形状
func (h *ChatHandler) Chat(c *gin.Context) {
	input, err := h.parseInput(c)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	result, err := h.service.Send(c.Request.Context(), input)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":    result.Message,
		"model":      result.Model,
		"provider":   result.Provider,
		"tokensUsed": result.TokensUsed,
	})
}

// Health 聊天端点的健康探测
// GET 或带 /health 的路径返回固定响应
func (h *ChatHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// parseInput 解析聊天输入
// 请求体为空时回退到 URL 编码的自定义头
func (h *ChatHandler) parseInput(c *gin.Context) (*chat.Input, error) {
	var body chatRequestBody
	// 请求体可能为空，绑定失败不致命
	_ = c.ShouldBindJSON(&body)

	message := body.Message
	modelID := body.SelectedModelID
	sessionID := body.SessionID

	// 头部回退：X-Message / X-Model-Id / X-Session-Id（URL 编码）
	if message == "" && len(body.Messages) == 0 {
		message = decodeHeader(c, "X-Message")
	}
	if modelID == "" {
		modelID = decodeHeader(c, "X-Model-Id")
	}
	if sessionID == "" {
		sessionID = decodeHeader(c, "X-Session-Id")
	}

	if message == "" && len(body.Messages) == 0 {
		return nil, errors.New("Message is required")
	}
	if sessionID == "" {
		sessionID = uuid.New().String()
	}

	input := &chat.Input{
		UserID:    middleware.UserID(c),
		SessionID: sessionID,
		Message:   message,
		Messages:  body.Messages,
	}

	if modelID != "" {
		id, err := strconv.ParseUint(modelID, 10, 32)
		if err != nil {
			return nil, errors.New("Invalid model id")
		}
		input.SelectedProviderID = uint(id)
	}

	return input, nil
}

// respondError 把链路错误映射为统一的 500 {"error"} 响应
func (h *ChatHandler) respondError(c *gin.Context, err error) {
	var message string

	var quotaErr *chat.QuotaExceededError
	switch {
	case errors.As(err, &quotaErr):
		message = quotaErr.Error()
	case errors.Is(err, quota.ErrUsageCheck):
		message = "Unable to verify usage. Please try again later."
	case errors.Is(err, router.ErrNoProviderAvailable):
		message = "No AI provider available. Please contact an administrator."
	case errors.Is(err, router.ErrChatDisabled):
		message = "AI chat is currently disabled."
	case errors.Is(err, upstream.ErrEmptyRequest):
		message = "Message is required"
	default:
		message = err.Error()
	}

	c.JSON(http.StatusInternalServerError, gin.H{"error": message})
}

// decodeHeader 读取并解码 URL 编码的头
func decodeHeader(c *gin.Context, name string) string {
	raw := c.GetHeader(name)
	if raw == "" {
		return ""
	}
	decoded, err := url.QueryUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}
