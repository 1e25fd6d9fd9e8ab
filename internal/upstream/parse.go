package upstream

import (
	"encoding/json"
	"fmt"
)

// Reply 解析后的上游回复
type Reply struct {
	Text   string
	Tokens int
}

// ParseReply 解析上游响应体
// 上游实现五花八门，按固定顺序尝试四种已知形状：
//  1. choices[0].message.content （OpenAI 标准）
//  2. content
//  3. message （字符串或 {content} 对象）
//  4. text
//
// 都不匹配时返回显式错误，绝不静默返回空串
func ParseReply(body []byte) (*Reply, error) {
	var probe struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
		Content string          `json:"content"`
		Message json.RawMessage `json:"message"`
		Text    string          `json:"text"`
		Usage   struct {
			TotalTokens int `json:"total_tokens"`
		} `json:"usage"`
	}

	if err := json.Unmarshal(body, &probe); err != nil {
		return nil, fmt.Errorf("decode upstream response: %w", err)
	}

	reply := &Reply{Tokens: probe.Usage.TotalTokens}

	switch {
	case len(probe.Choices) > 0 && probe.Choices[0].Message.Content != "":
		reply.Text = probe.Choices[0].Message.Content
	case probe.Content != "":
		reply.Text = probe.Content
	case len(probe.Message) > 0:
		reply.Text = parseMessageField(probe.Message)
	}

	if reply.Text == "" && probe.Text != "" {
		reply.Text = probe.Text
	}

	if reply.Text == "" {
		return nil, ErrUnrecognizedResponse
	}

	return reply, nil
}

// parseMessageField message 字段可能是字符串，也可能是嵌套对象
func parseMessageField(raw json.RawMessage) string {
	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		return asString
	}

	var asObject struct {
		Content string `json:"content"`
	}
	if err := json.Unmarshal(raw, &asObject); err == nil {
		return asObject.Content
	}

	return ""
}

// ParseErrorMessage 从上游错误响应中提取原文
// 提取不到结构化错误时，原样返回响应体
func ParseErrorMessage(body []byte) string {
	var probe struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
		Message string `json:"message"`
	}

	if err := json.Unmarshal(body, &probe); err == nil {
		if probe.Error.Message != "" {
			return probe.Error.Message
		}
		if probe.Message != "" {
			return probe.Message
		}
	}

	return string(body)
}
