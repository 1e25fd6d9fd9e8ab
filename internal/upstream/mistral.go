package upstream

import (
	"context"
	"net/http"
	"strings"
	"time"
)

// defaultMistralBaseURL Mistral 默认接口地址
const defaultMistralBaseURL = "https://api.mistral.ai"

// MistralAdapter Mistral 兼容适配器
// 支持标准聊天模式和 Agent 调用模式（通过 agent_id 路由，不带模型名）
type MistralAdapter struct {
	client *http.Client
}

// NewMistralAdapter 创建 Mistral 适配器
func NewMistralAdapter(client *http.Client) *MistralAdapter {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &MistralAdapter{client: client}
}

// Name 适配器名称
func (a *MistralAdapter) Name() string {
	return "mistral"
}

// Chat 执行一次聊天调用
func (a *MistralAdapter) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	messages, err := BuildMessages(req)
	if err != nil {
		return nil, err
	}

	payload := map[string]interface{}{
		"messages": messages,
	}

	base := req.BaseURL
	if base == "" {
		base = defaultMistralBaseURL
	}
	base = strings.TrimSuffix(base, "/")

	// Agent 模式：用 agent_id 路由，不携带模型名
	var endpoint string
	if req.AgentID != "" {
		payload["agent_id"] = req.AgentID
		if req.ConversationID != "" {
			payload["conversation_id"] = req.ConversationID
		}
		endpoint = base + "/v1/agents/completions"
	} else {
		payload["model"] = req.Model
		if req.MaxTokens > 0 {
			payload["max_tokens"] = req.MaxTokens
		}
		if req.Temperature > 0 {
			payload["temperature"] = req.Temperature
		}
		endpoint = base + "/v1/chat/completions"
	}

	reply, err := postJSON(ctx, a.client, a.Name(), endpoint, req.APIKey, payload)
	if err != nil {
		return nil, err
	}

	return &ChatResponse{
		Message:    reply.Text,
		Model:      req.Model,
		Provider:   a.Name(),
		TokensUsed: reply.Tokens,
	}, nil
}
