package provider

import (
	"testing"

	"github.com/kaelis/Aegisx-AI/internal/crypto"
	"github.com/kaelis/Aegisx-AI/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) *Service {
	return NewService(NewRepository(setupTestDB(t)))
}

func TestService_CreateProvider(t *testing.T) {
	service := newTestService(t)

	enabled := true
	provider, err := service.CreateProvider(CreateProviderRequest{
		Name:    "openai-main",
		Type:    "openai",
		Model:   "gpt-4o-mini",
		APIKey:  "sk-secret",
		Enabled: &enabled,
	})
	require.NoError(t, err)

	assert.NotZero(t, provider.ID)
	assert.Equal(t, models.ProviderTypeOpenAI, provider.Type)
	assert.True(t, provider.Enabled)
	assert.Equal(t, "unknown", provider.HealthStatus)
}

func TestService_CreateProvider_DefaultsEnabled(t *testing.T) {
	service := newTestService(t)

	provider, err := service.CreateProvider(CreateProviderRequest{
		Name:   "mistral-main",
		Type:   "mistral",
		Model:  "mistral-small-latest",
		APIKey: "sk-secret",
	})
	require.NoError(t, err)
	assert.True(t, provider.Enabled)
}

func TestService_CreateProvider_Validation(t *testing.T) {
	service := newTestService(t)

	tests := []struct {
		name string
		req  CreateProviderRequest
		want error
	}{
		{"missing name", CreateProviderRequest{Type: "openai", Model: "m", APIKey: "k"}, ErrInvalidInput},
		{"missing model", CreateProviderRequest{Name: "p", Type: "openai", APIKey: "k"}, ErrInvalidInput},
		{"missing key", CreateProviderRequest{Name: "p", Type: "openai", Model: "m"}, ErrInvalidInput},
		{"bad type", CreateProviderRequest{Name: "p", Type: "claude", Model: "m", APIKey: "k"}, ErrInvalidType},
		{"bad url", CreateProviderRequest{Name: "p", Type: "openai", Model: "m", APIKey: "k", BaseURL: "ftp://x"}, ErrInvalidURL},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := service.CreateProvider(tt.req)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestService_CreateProvider_DuplicateName(t *testing.T) {
	service := newTestService(t)

	req := CreateProviderRequest{Name: "dup", Type: "openai", Model: "m", APIKey: "k"}
	_, err := service.CreateProvider(req)
	require.NoError(t, err)

	_, err = service.CreateProvider(req)
	assert.ErrorIs(t, err, ErrProviderNameExists)
}

func TestService_EncryptionRoundTrip(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)

	keyStr, err := crypto.GenerateEncryptionKey()
	require.NoError(t, err)
	key, err := crypto.DecodeEncryptionKey(keyStr)
	require.NoError(t, err)

	service := NewServiceWithEncryption(repo, key)

	provider, err := service.CreateProvider(CreateProviderRequest{
		Name:   "encrypted",
		Type:   "openai",
		Model:  "gpt-4o-mini",
		APIKey: "sk-plaintext-secret",
	})
	require.NoError(t, err)
	// Service 返回明文
	assert.Equal(t, "sk-plaintext-secret", provider.APIKey)

	// 数据库里是密文
	var stored models.Provider
	require.NoError(t, db.First(&stored, provider.ID).Error)
	assert.NotEqual(t, "sk-plaintext-secret", stored.APIKey)

	// GetProvider 解密
	loaded, err := service.GetProvider(provider.ID)
	require.NoError(t, err)
	assert.Equal(t, "sk-plaintext-secret", loaded.APIKey)

	// ResolveCredentials 同样解密
	apiKey, err := service.ResolveCredentials(&stored)
	require.NoError(t, err)
	assert.Equal(t, "sk-plaintext-secret", apiKey)
}

func TestService_UpdateProvider_DisableExcludesFromActive(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)
	service := NewService(repo)

	provider, err := service.CreateProvider(CreateProviderRequest{
		Name: "p", Type: "openai", Model: "m", APIKey: "k",
	})
	require.NoError(t, err)

	disabled := false
	_, err = service.UpdateProvider(provider.ID, UpdateProviderRequest{Enabled: &disabled})
	require.NoError(t, err)

	// 停用后立即从可选集中消失
	_, err = repo.FindActiveByID(provider.ID)
	assert.ErrorIs(t, err, ErrProviderNotFound)
}

func TestMaskAPIKey(t *testing.T) {
	assert.Equal(t, "****", MaskAPIKey("short"))
	assert.Equal(t, "sk-****cdef", MaskAPIKey("sk-1234567890abcdef"))
}
