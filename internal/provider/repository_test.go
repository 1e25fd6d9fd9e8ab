package provider

import (
	"testing"

	"github.com/kaelis/Aegisx-AI/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	// 直接创建内存数据库
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	err = db.AutoMigrate(&models.Provider{})
	require.NoError(t, err)

	return db
}

func newTestProvider(name string, enabled bool) *models.Provider {
	return &models.Provider{
		Name:         name,
		Type:         models.ProviderTypeOpenAI,
		Model:        "gpt-4o-mini",
		APIKey:       "sk-test-key",
		Enabled:      enabled,
		HealthStatus: "unknown",
	}
}

func TestRepository_Create(t *testing.T) {
	repo := NewRepository(setupTestDB(t))

	provider := newTestProvider("openai-main", true)
	err := repo.Create(provider)
	assert.NoError(t, err)
	assert.NotZero(t, provider.ID)
}

func TestRepository_FindActiveByID(t *testing.T) {
	repo := NewRepository(setupTestDB(t))

	active := newTestProvider("active", true)
	disabled := newTestProvider("disabled", false)
	require.NoError(t, repo.Create(active))
	require.NoError(t, repo.Create(disabled))

	found, err := repo.FindActiveByID(active.ID)
	assert.NoError(t, err)
	assert.Equal(t, "active", found.Name)

	// 停用的供应商立即被排除
	_, err = repo.FindActiveByID(disabled.ID)
	assert.ErrorIs(t, err, ErrProviderNotFound)
}

func TestRepository_FindActive_OrderedByID(t *testing.T) {
	repo := NewRepository(setupTestDB(t))

	require.NoError(t, repo.Create(newTestProvider("p1", true)))
	require.NoError(t, repo.Create(newTestProvider("p2", false)))
	require.NoError(t, repo.Create(newTestProvider("p3", true)))

	providers, err := repo.FindActive()
	require.NoError(t, err)
	require.Len(t, providers, 2)
	assert.Equal(t, "p1", providers[0].Name)
	assert.Equal(t, "p3", providers[1].Name)
	assert.Less(t, providers[0].ID, providers[1].ID)
}

func TestRepository_CountActive(t *testing.T) {
	repo := NewRepository(setupTestDB(t))

	require.NoError(t, repo.Create(newTestProvider("p1", true)))
	require.NoError(t, repo.Create(newTestProvider("p2", false)))

	count, err := repo.CountActive()
	assert.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestRepository_UpdateHealthStatus(t *testing.T) {
	repo := NewRepository(setupTestDB(t))

	provider := newTestProvider("p1", true)
	require.NoError(t, repo.Create(provider))

	err := repo.UpdateHealthStatus(provider.ID, "healthy")
	assert.NoError(t, err)

	found, err := repo.FindByID(provider.ID)
	require.NoError(t, err)
	assert.Equal(t, "healthy", found.HealthStatus)
}

func TestRepository_Delete(t *testing.T) {
	repo := NewRepository(setupTestDB(t))

	provider := newTestProvider("p1", true)
	require.NoError(t, repo.Create(provider))

	assert.NoError(t, repo.Delete(provider.ID))

	_, err := repo.FindByID(provider.ID)
	assert.ErrorIs(t, err, ErrProviderNotFound)

	// 再删一次报不存在
	assert.ErrorIs(t, repo.Delete(provider.ID), ErrProviderNotFound)
}

func TestRepository_CheckNameExists(t *testing.T) {
	repo := NewRepository(setupTestDB(t))

	provider := newTestProvider("dup", true)
	require.NoError(t, repo.Create(provider))

	exists, err := repo.CheckNameExists("dup", 0)
	require.NoError(t, err)
	assert.True(t, exists)

	// 排除自身
	exists, err = repo.CheckNameExists("dup", provider.ID)
	require.NoError(t, err)
	assert.False(t, exists)
}
