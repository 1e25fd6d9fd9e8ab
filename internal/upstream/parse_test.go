package upstream

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseReply_OpenAIShape(t *testing.T) {
	body := []byte(`{
		"choices": [{"message": {"role": "assistant", "content": "hello"}}],
		"usage": {"total_tokens": 42}
	}`)

	reply, err := ParseReply(body)
	require.NoError(t, err)
	assert.Equal(t, "hello", reply.Text)
	assert.Equal(t, 42, reply.Tokens)
}

func TestParseReply_ContentShape(t *testing.T) {
	reply, err := ParseReply([]byte(`{"content": "direct content"}`))
	require.NoError(t, err)
	assert.Equal(t, "direct content", reply.Text)
	assert.Equal(t, 0, reply.Tokens)
}

func TestParseReply_MessageStringShape(t *testing.T) {
	reply, err := ParseReply([]byte(`{"message": "plain message"}`))
	require.NoError(t, err)
	assert.Equal(t, "plain message", reply.Text)
}

func TestParseReply_MessageObjectShape(t *testing.T) {
	reply, err := ParseReply([]byte(`{"message": {"content": "nested message"}}`))
	require.NoError(t, err)
	assert.Equal(t, "nested message", reply.Text)
}

func TestParseReply_TextShape(t *testing.T) {
	reply, err := ParseReply([]byte(`{"text": "legacy text"}`))
	require.NoError(t, err)
	assert.Equal(t, "legacy text", reply.Text)
}

func TestParseReply_ShapePriority(t *testing.T) {
	// choices 优先于其他形状
	body := []byte(`{
		"choices": [{"message": {"content": "from choices"}}],
		"content": "from content",
		"text": "from text"
	}`)

	reply, err := ParseReply(body)
	require.NoError(t, err)
	assert.Equal(t, "from choices", reply.Text)
}

func TestParseReply_UnrecognizedShapeFailsExplicitly(t *testing.T) {
	reply, err := ParseReply([]byte(`{"something": "else"}`))
	assert.Nil(t, reply)
	assert.ErrorIs(t, err, ErrUnrecognizedResponse)
}

func TestParseReply_InvalidJSON(t *testing.T) {
	reply, err := ParseReply([]byte(`not json`))
	assert.Nil(t, reply)
	assert.Error(t, err)
}

func TestParseErrorMessage(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"openai-style", `{"error": {"message": "model not found"}}`, "model not found"},
		{"flat message", `{"message": "rate limited"}`, "rate limited"},
		{"raw body", `service unavailable`, "service unavailable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseErrorMessage([]byte(tt.body)))
		})
	}
}

func TestBuildMessages_SingleMessage(t *testing.T) {
	req := &ChatRequest{
		Message:      "hi",
		SystemPrompt: "be helpful",
	}

	messages, err := BuildMessages(req)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, Message{Role: "system", Content: "be helpful"}, messages[0])
	assert.Equal(t, Message{Role: "user", Content: "hi"}, messages[1])
}

func TestBuildMessages_HistoryTakesPrecedence(t *testing.T) {
	history := []Message{
		{Role: "user", Content: "first"},
		{Role: "assistant", Content: "reply"},
		{Role: "user", Content: "second"},
	}
	req := &ChatRequest{
		Message:      "ignored legacy field",
		Messages:     history,
		SystemPrompt: "be helpful",
	}

	messages, err := BuildMessages(req)
	require.NoError(t, err)

	// 系统提示词前置，历史消息原样保留，单条消息被忽略
	require.Len(t, messages, 4)
	assert.Equal(t, "system", messages[0].Role)
	assert.Equal(t, history, messages[1:])
	for _, m := range messages {
		assert.NotEqual(t, "ignored legacy field", m.Content)
	}
}

func TestBuildMessages_HistoryWithOwnSystemPrompt(t *testing.T) {
	history := []Message{
		{Role: "system", Content: "custom system"},
		{Role: "user", Content: "hi"},
	}
	req := &ChatRequest{
		Messages:     history,
		SystemPrompt: "default system",
	}

	messages, err := BuildMessages(req)
	require.NoError(t, err)

	// 历史自带 system 时不重复前置
	require.Len(t, messages, 2)
	assert.Equal(t, "custom system", messages[0].Content)
}

func TestBuildMessages_EmptyRequest(t *testing.T) {
	messages, err := BuildMessages(&ChatRequest{})
	assert.Nil(t, messages)
	assert.ErrorIs(t, err, ErrEmptyRequest)
}
