package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// maxResponseBytes 上游响应体读取上限
const maxResponseBytes = 4 << 20

// postJSON 发送 JSON 请求并返回解析后的回复
// 非 2xx 响应转换为 *Error，错误文本逐字保留
func postJSON(ctx context.Context, client *http.Client, providerName, endpoint, apiKey string, payload map[string]interface{}) (*Reply, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", providerName, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", providerName, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s request failed: %w", providerName, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", providerName, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &Error{
			Provider:   providerName,
			StatusCode: resp.StatusCode,
			Message:    ParseErrorMessage(respBody),
		}
	}

	reply, err := ParseReply(respBody)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", providerName, err)
	}

	return reply, nil
}
