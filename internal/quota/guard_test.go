package quota

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/kaelis/Aegisx-AI/internal/config"
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

	// 串行化写入，避免内存库并发写冲突
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	err = db.AutoMigrate(&models.UsageQuota{})
	require.NoError(t, err)

	return db
}

func newTestGuard(t *testing.T, db *gorm.DB) *Guard {
	return NewGuard(db, &config.QuotaConfig{
		DefaultLimit:    50,
		DefaultPlanName: "free",
	})
}

func createQuota(t *testing.T, db *gorm.DB, userID string, current int64, limit *int64) {
	record := &models.UsageQuota{
		UserID:       userID,
		PlanName:     "pro",
		UsageCurrent: current,
		UsageLimit:   limit,
		PeriodStart:  currentPeriodStart(),
	}
	require.NoError(t, db.Create(record).Error)
}

func int64Ptr(v int64) *int64 {
	return &v
}

func TestGuard_Check_NewUserGetsDefaultPlan(t *testing.T) {
	db := setupTestDB(t)
	guard := newTestGuard(t, db)

	status, err := guard.Check(context.Background(), "user-1")
	require.NoError(t, err)

	assert.True(t, status.Allowed)
	assert.Equal(t, int64(0), status.Current)
	assert.Equal(t, int64(50), status.Limit)
	assert.Equal(t, "free", status.PlanName)
	assert.False(t, status.Unlimited)
}

func TestGuard_Check_AtLimitDenied(t *testing.T) {
	db := setupTestDB(t)
	guard := newTestGuard(t, db)

	createQuota(t, db, "user-1", 20, int64Ptr(20))

	status, err := guard.Check(context.Background(), "user-1")
	require.NoError(t, err)

	assert.False(t, status.Allowed)
	assert.Equal(t, int64(20), status.Current)
	assert.Equal(t, int64(20), status.Limit)
	assert.Equal(t, "pro", status.PlanName)
}

func TestGuard_Check_UnlimitedPlan(t *testing.T) {
	db := setupTestDB(t)
	guard := newTestGuard(t, db)

	createQuota(t, db, "user-1", 99999, nil)

	status, err := guard.Check(context.Background(), "user-1")
	require.NoError(t, err)

	assert.True(t, status.Allowed)
	assert.True(t, status.Unlimited)
}

func TestGuard_Check_FailsClosedOnStorageError(t *testing.T) {
	db := setupTestDB(t)
	guard := newTestGuard(t, db)

	// 关闭底层连接，模拟存储不可达
	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	status, err := guard.Check(context.Background(), "user-1")
	assert.Nil(t, status)
	// 必须是"用量检查失败"，而不是"配额耗尽"
	assert.ErrorIs(t, err, ErrUsageCheck)
}

func TestGuard_Check_MonthlyRollover(t *testing.T) {
	db := setupTestDB(t)
	guard := newTestGuard(t, db)

	// 上个月的记录，用量已满
	lastMonth := currentPeriodStart().AddDate(0, -1, 0)
	record := &models.UsageQuota{
		UserID:       "user-1",
		PlanName:     "free",
		UsageCurrent: 50,
		UsageLimit:   int64Ptr(50),
		PeriodStart:  lastMonth,
	}
	require.NoError(t, db.Create(record).Error)

	status, err := guard.Check(context.Background(), "user-1")
	require.NoError(t, err)

	// 新周期用量归零
	assert.True(t, status.Allowed)
	assert.Equal(t, int64(0), status.Current)
}

func TestGuard_Increment_Basic(t *testing.T) {
	db := setupTestDB(t)
	guard := newTestGuard(t, db)

	createQuota(t, db, "user-1", 0, int64Ptr(3))

	for i := 0; i < 3; i++ {
		ok, err := guard.Increment(context.Background(), "user-1")
		require.NoError(t, err)
		assert.True(t, ok)
	}

	// 第 4 次被上限拒绝
	ok, err := guard.Increment(context.Background(), "user-1")
	require.NoError(t, err)
	assert.False(t, ok)

	var record models.UsageQuota
	require.NoError(t, db.Where("user_id = ?", "user-1").First(&record).Error)
	assert.Equal(t, int64(3), record.UsageCurrent)
}

func TestGuard_Increment_LastSlotThenDenied(t *testing.T) {
	db := setupTestDB(t)
	guard := newTestGuard(t, db)

	// usage-current=19, usage-limit=20
	createQuota(t, db, "user-1", 19, int64Ptr(20))

	status, err := guard.Check(context.Background(), "user-1")
	require.NoError(t, err)
	assert.True(t, status.Allowed)

	ok, err := guard.Increment(context.Background(), "user-1")
	require.NoError(t, err)
	assert.True(t, ok)

	var record models.UsageQuota
	require.NoError(t, db.Where("user_id = ?", "user-1").First(&record).Error)
	assert.Equal(t, int64(20), record.UsageCurrent)

	// 紧接着的第二次发送被拒绝
	status, err = guard.Check(context.Background(), "user-1")
	require.NoError(t, err)
	assert.False(t, status.Allowed)

	ok, err = guard.Increment(context.Background(), "user-1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGuard_Increment_Unlimited(t *testing.T) {
	db := setupTestDB(t)
	guard := newTestGuard(t, db)

	createQuota(t, db, "user-1", 0, nil)

	for i := 0; i < 10; i++ {
		ok, err := guard.Increment(context.Background(), "user-1")
		require.NoError(t, err)
		assert.True(t, ok)
	}

	var record models.UsageQuota
	require.NoError(t, db.Where("user_id = ?", "user-1").First(&record).Error)
	assert.Equal(t, int64(10), record.UsageCurrent)
}

func TestGuard_Increment_MissingRecordIsUsageError(t *testing.T) {
	db := setupTestDB(t)
	guard := newTestGuard(t, db)

	ok, err := guard.Increment(context.Background(), "ghost-user")
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrUsageCheck)
}

func TestGuard_Increment_ConcurrentNeverOvercounts(t *testing.T) {
	db := setupTestDB(t)
	guard := newTestGuard(t, db)

	// 上限 20，已用 15：10 个并发请求最多只能成功 5 个
	createQuota(t, db, "user-1", 15, int64Ptr(20))

	var wg sync.WaitGroup
	results := make(chan bool, 10)

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			ok, err := guard.Increment(ctx, "user-1")
			assert.NoError(t, err)
			results <- ok && err == nil
		}()
	}

	wg.Wait()
	close(results)

	succeeded := 0
	for ok := range results {
		if ok {
			succeeded++
		}
	}
	assert.Equal(t, 5, succeeded)

	var record models.UsageQuota
	require.NoError(t, db.Where("user_id = ?", "user-1").First(&record).Error)
	assert.Equal(t, int64(20), record.UsageCurrent)
}
