package router

import (
	"context"
	"errors"

	"github.com/kaelis/Aegisx-AI/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PreferenceStore 用户供应商偏好存储
// 写入采用 last-write-wins：同一用户并发保存时以最后一次提交为准
type PreferenceStore struct {
	db *gorm.DB
}

// NewPreferenceStore 创建偏好存储
func NewPreferenceStore(db *gorm.DB) *PreferenceStore {
	return &PreferenceStore{db: db}
}

// Get 读取用户偏好，不存在返回 nil
func (s *PreferenceStore) Get(ctx context.Context, userID string) (*models.UserPreference, error) {
	var pref models.UserPreference
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&pref).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &pref, nil
}

// Set 保存用户偏好（upsert）
func (s *PreferenceStore) Set(ctx context.Context, userID string, providerID uint) error {
	pref := models.UserPreference{
		UserID:     userID,
		ProviderID: providerID,
	}

	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"provider_id", "updated_at"}),
	}).Create(&pref).Error
}

// Clear 清除用户偏好
func (s *PreferenceStore) Clear(ctx context.Context, userID string) error {
	return s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&models.UserPreference{}).Error
}
