package upstream

import (
	"context"
	"errors"
	"fmt"
)

// ==================== 请求/响应类型 ====================

// Message 带角色标注的对话消息
type Message struct {
	Role    string `json:"role"` // system / user / assistant
	Content string `json:"content"`
}

// ChatRequest 归一化的聊天请求
// Message 和 Messages 同时存在时，Messages（完整对话历史）优先，
// 单条 Message 被忽略
type ChatRequest struct {
	Message        string    `json:"message,omitempty"`
	Messages       []Message `json:"messages,omitempty"`
	Model          string    `json:"model"`
	SystemPrompt   string    `json:"system_prompt,omitempty"`
	MaxTokens      int       `json:"max_tokens,omitempty"`
	Temperature    float64   `json:"temperature,omitempty"`
	AgentID        string    `json:"agent_id,omitempty"`        // Agent 调用模式（Mistral）
	ConversationID string    `json:"conversation_id,omitempty"` // Agent 会话延续
	BaseURL        string    `json:"base_url,omitempty"`        // 覆盖供应商默认地址
	APIKey         string    `json:"-"`
}

// ChatResponse 归一化的聊天响应
type ChatResponse struct {
	Message    string `json:"message"`
	Model      string `json:"model"`
	Provider   string `json:"provider"`
	TokensUsed int    `json:"tokens_used"`
}

// Adapter 上游适配器接口
// 将归一化请求翻译为具体供应商的 HTTP 调用，并归一化响应
type Adapter interface {
	// Name 适配器名称（与 Provider.Type 对应）
	Name() string

	// Chat 执行一次聊天调用
	Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error)
}

// ==================== 错误类型 ====================

var (
	// ErrUnrecognizedResponse 上游响应不匹配任何已知形状
	ErrUnrecognizedResponse = errors.New("unrecognized upstream response shape")
	// ErrEmptyRequest 请求中既没有 message 也没有 messages
	ErrEmptyRequest = errors.New("chat request has no message")
)

// Error 上游供应商错误
// Message 保留上游返回的原始错误文本，供重试层做决策
type Error struct {
	Provider   string
	StatusCode int
	Message    string
}

// Error 实现 error 接口
func (e *Error) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s upstream error (HTTP %d): %s", e.Provider, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s upstream error: %s", e.Provider, e.Message)
}

// ==================== 消息构建 ====================

// BuildMessages 构建发往上游的消息列表
// 规则：有历史消息时使用历史消息并忽略单条消息；
// 系统提示词（若有且历史中没有 system 开头）前置
func BuildMessages(req *ChatRequest) ([]Message, error) {
	var messages []Message

	if req.SystemPrompt != "" {
		if len(req.Messages) == 0 || req.Messages[0].Role != "system" {
			messages = append(messages, Message{Role: "system", Content: req.SystemPrompt})
		}
	}

	if len(req.Messages) > 0 {
		messages = append(messages, req.Messages...)
		return messages, nil
	}

	if req.Message == "" {
		return nil, ErrEmptyRequest
	}

	messages = append(messages, Message{Role: "user", Content: req.Message})
	return messages, nil
}
