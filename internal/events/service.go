package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/kaelis/Aegisx-AI/internal/models"
	"gorm.io/gorm"
)

// Service 事件日志服务
// 聊天链路的关键节点（故障转移、配额拒绝、无可用供应商）都会落一条事件，
// 供管理端排查线上问题
type Service struct {
	db *gorm.DB
}

// NewService 创建事件日志服务实例
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// LogEvent 记录事件
func (s *Service) LogEvent(eventType, message, level string, metadata map[string]interface{}) error {
	// 序列化元数据为 JSON
	var metadataJSON string
	if metadata != nil {
		data, err := json.Marshal(metadata)
		if err != nil {
			return fmt.Errorf("序列化元数据失败: %w", err)
		}
		metadataJSON = string(data)
	}

	event := &models.SystemEvent{
		Type:      eventType,
		Message:   message,
		Level:     level,
		Metadata:  metadataJSON,
		CreatedAt: time.Now(),
	}

	if err := s.db.Create(event).Error; err != nil {
		return fmt.Errorf("保存事件失败: %w", err)
	}

	return nil
}

// LogInfo 记录信息级别事件
func (s *Service) LogInfo(eventType, message string, metadata map[string]interface{}) error {
	return s.LogEvent(eventType, message, models.EventLevelInfo, metadata)
}

// LogWarning 记录警告级别事件
func (s *Service) LogWarning(eventType, message string, metadata map[string]interface{}) error {
	return s.LogEvent(eventType, message, models.EventLevelWarning, metadata)
}

// LogError 记录错误级别事件
func (s *Service) LogError(eventType, message string, metadata map[string]interface{}) error {
	return s.LogEvent(eventType, message, models.EventLevelError, metadata)
}

// ==================== 聊天链路事件 ====================

// LogFailover 记录一次故障转移
func (s *Service) LogFailover(userID, fromProvider, toProvider, reason string) error {
	return s.LogWarning(models.EventTypeFailover,
		fmt.Sprintf("供应商 %s 失败，切换到 %s", fromProvider, toProvider),
		map[string]interface{}{
			"user_id": userID,
			"from":    fromProvider,
			"to":      toProvider,
			"reason":  reason,
		})
}

// LogQuotaDenied 记录一次配额拒绝
func (s *Service) LogQuotaDenied(userID string, current int64, limit *int64) error {
	metadata := map[string]interface{}{
		"user_id": userID,
		"current": current,
	}
	if limit != nil {
		metadata["limit"] = *limit
	}
	return s.LogWarning(models.EventTypeQuotaDenied, "用户配额已用尽", metadata)
}

// LogNoProvider 记录无可用供应商
func (s *Service) LogNoProvider(userID string) error {
	return s.LogError(models.EventTypeNoProvider, "无可用供应商，请检查配置",
		map[string]interface{}{"user_id": userID})
}

// LogProviderError 记录供应商调用失败
func (s *Service) LogProviderError(providerName string, statusCode int, message string) error {
	return s.LogError(models.EventTypeProviderError,
		fmt.Sprintf("供应商 %s 调用失败: %s", providerName, message),
		map[string]interface{}{
			"provider":    providerName,
			"status_code": statusCode,
		})
}

// ==================== 查询 ====================

// GetRecentEvents 获取最近的事件
func (s *Service) GetRecentEvents(limit int) ([]models.SystemEvent, error) {
	var events []models.SystemEvent

	err := s.db.Order("created_at DESC").Limit(limit).Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("查询事件失败: %w", err)
	}

	return events, nil
}

// GetEventsByType 按类型获取事件
func (s *Service) GetEventsByType(eventType string, limit int) ([]models.SystemEvent, error) {
	var events []models.SystemEvent

	err := s.db.Where("type = ?", eventType).
		Order("created_at DESC").
		Limit(limit).
		Find(&events).Error

	if err != nil {
		return nil, fmt.Errorf("查询事件失败: %w", err)
	}

	return events, nil
}

// GetEventsByLevel 按级别获取事件
func (s *Service) GetEventsByLevel(level string, limit int) ([]models.SystemEvent, error) {
	var events []models.SystemEvent

	err := s.db.Where("level = ?", level).
		Order("created_at DESC").
		Limit(limit).
		Find(&events).Error

	if err != nil {
		return nil, fmt.Errorf("查询事件失败: %w", err)
	}

	return events, nil
}

// CleanupOldEvents 清理旧事件（保留最近N天）
func (s *Service) CleanupOldEvents(days int) (int64, error) {
	cutoffTime := time.Now().AddDate(0, 0, -days)

	result := s.db.Where("created_at < ?", cutoffTime).Delete(&models.SystemEvent{})
	if result.Error != nil {
		return 0, fmt.Errorf("清理旧事件失败: %w", result.Error)
	}

	return result.RowsAffected, nil
}
