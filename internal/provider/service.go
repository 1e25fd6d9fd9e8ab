package provider

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/kaelis/Aegisx-AI/internal/crypto"
	"github.com/kaelis/Aegisx-AI/internal/models"
)

var (
	// ErrInvalidInput 无效输入
	ErrInvalidInput = errors.New("invalid input")
	// ErrInvalidURL 无效 URL
	ErrInvalidURL = errors.New("invalid URL")
	// ErrInvalidType 不支持的供应商类型
	ErrInvalidType = errors.New("unsupported provider type")
)

// Service 供应商业务逻辑层
type Service struct {
	repo          *Repository
	encryptionKey []byte
}

// NewService 创建 Service 实例
func NewService(repo *Repository) *Service {
	return &Service{repo: repo}
}

// NewServiceWithEncryption 创建带加密密钥的 Service 实例
func NewServiceWithEncryption(repo *Repository, encryptionKey []byte) *Service {
	return &Service{
		repo:          repo,
		encryptionKey: encryptionKey,
	}
}

// CreateProvider 创建供应商
func (s *Service) CreateProvider(req CreateProviderRequest) (*models.Provider, error) {
	// 验证参数
	if err := s.validateCreateRequest(req); err != nil {
		return nil, err
	}

	// 检查名称是否已存在
	exists, err := s.repo.CheckNameExists(req.Name, 0)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrProviderNameExists
	}

	provider := &models.Provider{
		Name:         req.Name,
		Type:         models.ProviderType(req.Type),
		Model:        req.Model,
		BaseURL:      req.BaseURL,
		APIKey:       req.APIKey,
		AgentID:      req.AgentID,
		HealthStatus: "unknown",
	}

	// 应用 Enabled（默认值 true）
	if req.Enabled != nil {
		provider.Enabled = *req.Enabled
	} else {
		provider.Enabled = true
	}

	// 加密 API Key（如果配置了加密密钥）
	plaintextKey := provider.APIKey
	if s.encryptionKey != nil {
		encryptedKey, err := crypto.EncryptString(provider.APIKey, s.encryptionKey)
		if err != nil {
			return nil, fmt.Errorf("failed to encrypt API key: %w", err)
		}
		provider.APIKey = encryptedKey
	}

	if err := s.repo.Create(provider); err != nil {
		return nil, err
	}

	// 返回前恢复明文 API Key（Handler 负责脱敏）
	provider.APIKey = plaintextKey

	return provider, nil
}

// GetProvider 获取单个供应商（解密 API Key）
func (s *Service) GetProvider(id uint) (*models.Provider, error) {
	provider, err := s.repo.FindByID(id)
	if err != nil {
		return nil, err
	}

	if err := s.decryptKey(provider); err != nil {
		return nil, err
	}

	return provider, nil
}

// ResolveCredentials 解密供应商的 API Key（适配器调用前使用）
func (s *Service) ResolveCredentials(provider *models.Provider) (string, error) {
	if s.encryptionKey == nil || provider.APIKey == "" {
		return provider.APIKey, nil
	}

	decrypted, err := crypto.DecryptString(provider.APIKey, s.encryptionKey)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt API key: %w", err)
	}
	return decrypted, nil
}

// ListProviders 获取供应商列表（分页）
func (s *Service) ListProviders(page, pageSize int) ([]*models.Provider, int64, error) {
	// 参数验证
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 10
	}
	if pageSize > 100 {
		pageSize = 100
	}

	return s.repo.FindAll(page, pageSize)
}

// UpdateProvider 更新供应商
func (s *Service) UpdateProvider(id uint, req UpdateProviderRequest) (*models.Provider, error) {
	if err := s.validateUpdateRequest(req); err != nil {
		return nil, err
	}

	provider, err := s.repo.FindByID(id)
	if err != nil {
		return nil, err
	}

	// 如果要更新名称，检查名称是否已存在
	if req.Name != nil && *req.Name != provider.Name {
		exists, err := s.repo.CheckNameExists(*req.Name, id)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, ErrProviderNameExists
		}
		provider.Name = *req.Name
	}

	if req.Type != nil {
		provider.Type = models.ProviderType(*req.Type)
	}
	if req.Model != nil {
		provider.Model = *req.Model
	}
	if req.BaseURL != nil {
		provider.BaseURL = *req.BaseURL
	}
	if req.AgentID != nil {
		provider.AgentID = *req.AgentID
	}

	var plaintextKey string
	if req.APIKey != nil {
		plaintextKey = *req.APIKey
		if s.encryptionKey != nil {
			encryptedKey, err := crypto.EncryptString(*req.APIKey, s.encryptionKey)
			if err != nil {
				return nil, fmt.Errorf("failed to encrypt API key: %w", err)
			}
			provider.APIKey = encryptedKey
		} else {
			provider.APIKey = *req.APIKey
		}
	}

	if req.Enabled != nil {
		provider.Enabled = *req.Enabled
	}

	if err := s.repo.Update(provider); err != nil {
		return nil, err
	}

	// 返回前恢复/解密 API Key（Handler 负责脱敏）
	if req.APIKey != nil {
		provider.APIKey = plaintextKey
	} else if err := s.decryptKey(provider); err != nil {
		return nil, err
	}

	return provider, nil
}

// DeleteProvider 删除供应商
func (s *Service) DeleteProvider(id uint) error {
	return s.repo.Delete(id)
}

// UpdateProviderHealthStatus 更新供应商健康状态
func (s *Service) UpdateProviderHealthStatus(id uint, healthStatus string) error {
	return s.repo.UpdateHealthStatus(id, healthStatus)
}

// decryptKey 解密 Provider 上的 API Key 字段
func (s *Service) decryptKey(provider *models.Provider) error {
	if s.encryptionKey == nil || provider.APIKey == "" {
		return nil
	}

	decrypted, err := crypto.DecryptString(provider.APIKey, s.encryptionKey)
	if err != nil {
		return fmt.Errorf("failed to decrypt API key: %w", err)
	}
	provider.APIKey = decrypted
	return nil
}

// validateCreateRequest 验证创建请求
func (s *Service) validateCreateRequest(req CreateProviderRequest) error {
	if strings.TrimSpace(req.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidInput)
	}

	if err := validateProviderType(req.Type); err != nil {
		return err
	}

	if strings.TrimSpace(req.Model) == "" {
		return fmt.Errorf("%w: model is required", ErrInvalidInput)
	}

	if strings.TrimSpace(req.APIKey) == "" {
		return fmt.Errorf("%w: api_key is required", ErrInvalidInput)
	}

	// BaseURL 可选，填了就要合法
	if req.BaseURL != "" {
		if err := validateURL(req.BaseURL); err != nil {
			return err
		}
	}

	return nil
}

// validateUpdateRequest 验证更新请求
func (s *Service) validateUpdateRequest(req UpdateProviderRequest) error {
	if req.Name != nil && strings.TrimSpace(*req.Name) == "" {
		return fmt.Errorf("%w: name cannot be empty", ErrInvalidInput)
	}

	if req.Type != nil {
		if err := validateProviderType(*req.Type); err != nil {
			return err
		}
	}

	if req.Model != nil && strings.TrimSpace(*req.Model) == "" {
		return fmt.Errorf("%w: model cannot be empty", ErrInvalidInput)
	}

	if req.BaseURL != nil && *req.BaseURL != "" {
		if err := validateURL(*req.BaseURL); err != nil {
			return err
		}
	}

	return nil
}

// validateProviderType 验证供应商类型
func validateProviderType(providerType string) error {
	switch models.ProviderType(providerType) {
	case models.ProviderTypeOpenAI, models.ProviderTypeMistral:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrInvalidType, providerType)
	}
}

// validateURL 验证 URL 格式
func validateURL(rawURL string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%w: scheme must be http or https", ErrInvalidURL)
	}
	if parsed.Host == "" {
		return fmt.Errorf("%w: missing host", ErrInvalidURL)
	}
	return nil
}
