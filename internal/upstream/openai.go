package upstream

import (
	"context"
	"net/http"
	"strings"
	"time"
)

// defaultOpenAIBaseURL OpenAI 默认接口地址
const defaultOpenAIBaseURL = "https://api.openai.com"

// OpenAIAdapter OpenAI 兼容适配器
// 覆盖 OpenAI 本身以及所有 chat/completions 兼容服务
type OpenAIAdapter struct {
	client *http.Client
}

// NewOpenAIAdapter 创建 OpenAI 适配器
func NewOpenAIAdapter(client *http.Client) *OpenAIAdapter {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &OpenAIAdapter{client: client}
}

// Name 适配器名称
func (a *OpenAIAdapter) Name() string {
	return "openai"
}

// Chat 执行一次聊天调用
func (a *OpenAIAdapter) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	messages, err := BuildMessages(req)
	if err != nil {
		return nil, err
	}

	payload := map[string]interface{}{
		"model":    req.Model,
		"messages": messages,
	}
	if req.MaxTokens > 0 {
		payload["max_tokens"] = req.MaxTokens
	}
	if req.Temperature > 0 {
		payload["temperature"] = req.Temperature
	}

	base := req.BaseURL
	if base == "" {
		base = defaultOpenAIBaseURL
	}
	endpoint := strings.TrimSuffix(base, "/") + "/v1/chat/completions"

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
