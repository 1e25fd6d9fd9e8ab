package token

import (
	"testing"
	"time"

	"github.com/kaelis/Aegisx-AI/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	err = db.AutoMigrate(&models.Token{})
	require.NoError(t, err)

	return db
}

func newTestService(t *testing.T) *Service {
	return NewService(NewRepository(setupTestDB(t)))
}

func TestGenerateTokenValue(t *testing.T) {
	value, err := GenerateTokenValue()
	require.NoError(t, err)
	assert.Equal(t, "sk-", value[:3])

	// 连续生成不重复
	other, err := GenerateTokenValue()
	require.NoError(t, err)
	assert.NotEqual(t, value, other)
}

func TestService_CreateToken(t *testing.T) {
	service := newTestService(t)

	token, err := service.CreateToken("ci-token", "user-1", nil, "")
	require.NoError(t, err)

	assert.NotZero(t, token.ID)
	assert.Equal(t, "user-1", token.UserID)
	assert.True(t, token.Enabled)
	assert.Equal(t, "sk-", token.Token[:3])
}

func TestService_CreateToken_RequiresUserID(t *testing.T) {
	service := newTestService(t)

	_, err := service.CreateToken("orphan", "", nil, "")
	assert.ErrorIs(t, err, ErrMissingUserID)
}

func TestService_CreateToken_PastExpiry(t *testing.T) {
	service := newTestService(t)

	past := time.Now().Add(-time.Hour)
	_, err := service.CreateToken("expired", "user-1", &past, "")
	assert.ErrorIs(t, err, ErrInvalidExpiresAt)
}

func TestService_CreateToken_Custom(t *testing.T) {
	service := newTestService(t)

	token, err := service.CreateToken("custom", "user-1", nil, "sk-my-custom-token")
	require.NoError(t, err)
	assert.Equal(t, "sk-my-custom-token", token.Token)

	// 重复的自定义值被拒绝
	_, err = service.CreateToken("custom2", "user-2", nil, "sk-my-custom-token")
	assert.ErrorIs(t, err, ErrTokenValueExists)
}

func TestValidateCustomToken(t *testing.T) {
	assert.NoError(t, ValidateCustomToken("sk-12345678"))
	assert.ErrorIs(t, ValidateCustomToken("sk-1"), ErrInvalidCustomToken)
	assert.ErrorIs(t, ValidateCustomToken("pk-12345678"), ErrInvalidCustomToken)
}

func TestService_ValidateToken(t *testing.T) {
	service := newTestService(t)

	created, err := service.CreateToken("ci-token", "user-1", nil, "")
	require.NoError(t, err)

	// 验证通过后返回绑定的用户身份
	token, err := service.ValidateToken(created.Token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", token.UserID)

	// 不存在的 Token
	_, err = service.ValidateToken("sk-nonexistent")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestService_ValidateToken_Expired(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)
	service := NewService(repo)

	expired := &models.Token{
		Name:    "expired",
		Token:   "sk-expired-token",
		UserID:  "user-1",
		Enabled: true,
	}
	require.NoError(t, repo.Create(expired))

	past := time.Now().Add(-time.Minute)
	require.NoError(t, db.Model(expired).Update("expires_at", past).Error)

	_, err := service.ValidateToken("sk-expired-token")
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestService_ValidateToken_Disabled(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)
	service := NewService(repo)

	created, err := service.CreateToken("ci-token", "user-1", nil, "")
	require.NoError(t, err)

	require.NoError(t, db.Model(&models.Token{}).
		Where("id = ?", created.ID).
		Update("enabled", false).Error)

	_, err = service.ValidateToken(created.Token)
	assert.ErrorIs(t, err, ErrTokenDisabled)
}

func TestService_ListUserTokens(t *testing.T) {
	service := newTestService(t)

	_, err := service.CreateToken("t1", "user-1", nil, "")
	require.NoError(t, err)
	_, err = service.CreateToken("t2", "user-1", nil, "")
	require.NoError(t, err)
	_, err = service.CreateToken("t3", "user-2", nil, "")
	require.NoError(t, err)

	tokens, err := service.ListUserTokens("user-1")
	require.NoError(t, err)
	assert.Len(t, tokens, 2)
}

func TestService_DeleteToken(t *testing.T) {
	service := newTestService(t)

	created, err := service.CreateToken("ci-token", "user-1", nil, "")
	require.NoError(t, err)

	require.NoError(t, service.DeleteToken(created.ID))
	assert.ErrorIs(t, service.DeleteToken(created.ID), ErrTokenNotFound)
}

func TestMaskToken(t *testing.T) {
	assert.Equal(t, "****", MaskToken("short"))
	assert.Equal(t, "sk-****cdef", MaskToken("sk-1234567890abcdef"))
}
