package router

import (
	"context"
	"errors"
	"fmt"

	"github.com/kaelis/Aegisx-AI/internal/models"
	"github.com/kaelis/Aegisx-AI/internal/upstream"
)

// ErrUnknownProviderType 供应商类型没有对应的适配器，视为配置致命错误
var ErrUnknownProviderType = errors.New("unknown provider type")

// CredentialResolver 解出供应商的明文 API Key
type CredentialResolver interface {
	ResolveCredentials(provider *models.Provider) (string, error)
}

// Dispatcher 按供应商类型分发到上游适配器
type Dispatcher struct {
	adapters    map[models.ProviderType]upstream.Adapter
	credentials CredentialResolver
}

// NewDispatcher 创建分发器，内置 OpenAI 和 Mistral 适配器
func NewDispatcher(credentials CredentialResolver) *Dispatcher {
	return &Dispatcher{
		adapters: map[models.ProviderType]upstream.Adapter{
			models.ProviderTypeOpenAI:  upstream.NewOpenAIAdapter(nil),
			models.ProviderTypeMistral: upstream.NewMistralAdapter(nil),
		},
		credentials: credentials,
	}
}

// Register 注册或替换某类型的适配器
func (d *Dispatcher) Register(providerType models.ProviderType, adapter upstream.Adapter) {
	d.adapters[providerType] = adapter
}

// Dispatch 把请求分发给供应商对应的适配器
// 请求中未填写的字段由供应商配置补齐
func (d *Dispatcher) Dispatch(ctx context.Context, prov *models.Provider, req *upstream.ChatRequest) (*upstream.ChatResponse, error) {
	adapter, ok := d.adapters[prov.Type]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProviderType, prov.Type)
	}

	apiKey := prov.APIKey
	if d.credentials != nil {
		key, err := d.credentials.ResolveCredentials(prov)
		if err != nil {
			return nil, fmt.Errorf("resolve credentials for provider %d: %w", prov.ID, err)
		}
		apiKey = key
	}

	dispatch := *req
	dispatch.APIKey = apiKey
	if dispatch.Model == "" {
		dispatch.Model = prov.Model
	}
	if dispatch.BaseURL == "" {
		dispatch.BaseURL = prov.BaseURL
	}
	if dispatch.AgentID == "" {
		dispatch.AgentID = prov.AgentID
	}

	resp, err := adapter.Chat(ctx, &dispatch)
	if err != nil {
		return nil, err
	}

	// 上报实际服务请求的供应商
	resp.Provider = prov.Name
	if resp.Model == "" {
		resp.Model = dispatch.Model
	}
	return resp, nil
}
