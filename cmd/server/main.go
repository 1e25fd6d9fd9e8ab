package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kaelis/Aegisx-AI/internal/api"
	"github.com/kaelis/Aegisx-AI/internal/config"
	"github.com/kaelis/Aegisx-AI/internal/crypto"
	"github.com/kaelis/Aegisx-AI/internal/db"
	"github.com/kaelis/Aegisx-AI/internal/token"
	"gorm.io/gorm"
)

const (
	// Version 项目版本
	Version = "1.0.0"
	// AppName 应用名称
	AppName = "Aegisx-AI"
)

func main() {
	log.Printf("=== %s v%s ===\n", AppName, Version)
	log.Println("AI 聊天可靠路由网关")

	// 1. 加载配置
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("🚨 加载配置失败: %v", err)
	}

	// 2. 加载加密密钥（可选）
	encryptionKey, err := crypto.LoadEncryptionKey()
	if err != nil {
		if errors.Is(err, crypto.ErrMissingEncryptionKey) {
			log.Println("⚠️ 未配置 ENCRYPTION_KEY，供应商 API Key 将明文存储")
			encryptionKey = nil
		} else {
			log.Fatalf("🚨 加载加密密钥失败: %v", err)
		}
	}

	// 3. 初始化数据库
	database, err := db.InitDatabase(&cfg.Database)
	if err != nil {
		log.Fatalf("🚨 初始化数据库失败: %v", err)
	}
	defer func() {
		if err := db.CloseDatabase(database); err != nil {
			log.Printf("⚠️ 关闭数据库失败: %v", err)
		}
	}()

	if cfg.Database.AutoMigrate {
		if err := db.AutoMigrate(database); err != nil {
			log.Fatalf("🚨 数据库迁移失败: %v", err)
		}
	}

	if err := db.EnsureChatSetting(database); err != nil {
		log.Fatalf("🚨 初始化聊天配置失败: %v", err)
	}

	// 4. 引导管理员令牌（可选）
	bootstrapAdminToken(database)

	// 5. 装配路由
	engine := api.SetupRouter(database, cfg, &api.Options{
		EncryptionKey: encryptionKey,
	})

	// 6. 启动服务并等待退出信号
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: engine,
	}

	go func() {
		log.Printf("🚀 服务启动: http://localhost:%d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("🚨 服务启动失败: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("🔄 正在优雅关闭...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("⚠️ 关闭服务失败: %v", err)
	}
	log.Println("👋 服务已退出")
}

// bootstrapAdminToken 从环境变量引导管理员令牌
// 首次部署时通过 ADMIN_TOKEN 预置一个可用令牌，避免管理 API 无法进入
func bootstrapAdminToken(database *gorm.DB) {
	adminToken := os.Getenv("ADMIN_TOKEN")
	if adminToken == "" {
		return
	}

	adminUser := os.Getenv("ADMIN_USER_ID")
	if adminUser == "" {
		adminUser = "admin"
	}

	service := token.NewService(token.NewRepository(database))
	_, err := service.CreateToken("bootstrap-admin", adminUser, nil, adminToken)
	if err != nil {
		if errors.Is(err, token.ErrTokenValueExists) {
			return // 已引导过
		}
		log.Printf("⚠️ 引导管理员令牌失败: %v", err)
		return
	}

	log.Printf("✅ 已引导管理员令牌 (user=%s)", adminUser)
}
