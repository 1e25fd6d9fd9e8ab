package handlers

import (
	"net/http"

	"github.com/kaelis/Aegisx-AI/internal/models"
	"github.com/kaelis/Aegisx-AI/internal/provider"
	"github.com/kaelis/Aegisx-AI/internal/router"
	"github.com/kaelis/Aegisx-AI/internal/upstream"
	"github.com/gin-gonic/gin"
)

// UpstreamHandler 单供应商直连端点处理器
// 绕过路由和配额编排，直接调用指定类型的上游适配器；
// 凭据取自第一个匹配类型的启用供应商
type UpstreamHandler struct {
	repo       *provider.Repository
	dispatcher *router.Dispatcher
}

// NewUpstreamHandler 创建 UpstreamHandler 实例
func NewUpstreamHandler(repo *provider.Repository, dispatcher *router.Dispatcher) *UpstreamHandler {
	return &UpstreamHandler{repo: repo, dispatcher: dispatcher}
}

// upstreamRequestBody 直连请求体
type upstreamRequestBody struct {
	Message        string             `json:"message"`
	Messages       []upstream.Message `json:"messages"`
	Model          string             `json:"model"`
	SystemPrompt   string             `json:"systemPrompt"`
	MaxTokens      int                `json:"maxTokens"`
	Temperature    float64            `json:"temperature"`
	AgentID        string             `json:"agentId"`
	ConversationID string             `json:"conversationId"`
	BaseURL        string             `json:"baseUrl"`
}

// ChatOpenAI OpenAI 直连端点
func (h *UpstreamHandler) ChatOpenAI(c *gin.Context) {
	h.chat(c, models.ProviderTypeOpenAI)
}

// ChatMistral Mistral 直连端点
func (h *UpstreamHandler) ChatMistral(c *gin.Context) {
	h.chat(c, models.ProviderTypeMistral)
}

func (h *UpstreamHandler) chat(c *gin.Context, providerType models.ProviderType) {
	var body upstreamRequestBody
	_ = c.ShouldBindJSON(&body)

	// 头部回退与聊天路由端点一致
	if body.Message == "" && len(body.Messages) == 0 {
		body.Message = decodeHeader(c, "X-Message")
	}
	if body.Message == "" && len(body.Messages) == 0 {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":    "Message is required",
			"provider": string(providerType),
		})
		return
	}

	prov, err := h.findProvider(providerType)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":    "No active provider configured for type " + string(providerType),
			"provider": string(providerType),
		})
		return
	}

	req := &upstream.ChatRequest{
		Message:        body.Message,
		Messages:       body.Messages,
		Model:          body.Model,
		SystemPrompt:   body.SystemPrompt,
		MaxTokens:      body.MaxTokens,
		Temperature:    body.Temperature,
		AgentID:        body.AgentID,
		ConversationID: body.ConversationID,
		BaseURL:        body.BaseURL,
	}

	resp, err := h.dispatcher.Dispatch(c.Request.Context(), prov, req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":    err.Error(),
			"provider": string(providerType),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":    resp.Message,
		"model":      resp.Model,
		"provider":   resp.Provider,
		"tokensUsed": resp.TokensUsed,
	})
}

// findProvider 第一个匹配类型的启用供应商
func (h *UpstreamHandler) findProvider(providerType models.ProviderType) (*models.Provider, error) {
	providers, err := h.repo.FindActive()
	if err != nil {
		return nil, err
	}
	for _, prov := range providers {
		if prov.Type == providerType {
			return prov, nil
		}
	}
	return nil, provider.ErrProviderNotFound
}
