package api

import (
	"github.com/kaelis/Aegisx-AI/internal/api/handlers"
	"github.com/kaelis/Aegisx-AI/internal/api/middleware"
	"github.com/kaelis/Aegisx-AI/internal/chat"
	"github.com/kaelis/Aegisx-AI/internal/config"
	"github.com/kaelis/Aegisx-AI/internal/events"
	"github.com/kaelis/Aegisx-AI/internal/metrics"
	"github.com/kaelis/Aegisx-AI/internal/modelstore"
	"github.com/kaelis/Aegisx-AI/internal/provider"
	"github.com/kaelis/Aegisx-AI/internal/quota"
	"github.com/kaelis/Aegisx-AI/internal/reliability"
	"github.com/kaelis/Aegisx-AI/internal/router"
	"github.com/kaelis/Aegisx-AI/internal/stats"
	"github.com/kaelis/Aegisx-AI/internal/status"
	"github.com/kaelis/Aegisx-AI/internal/token"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
)

// Options 路由装配选项
type Options struct {
	EncryptionKey []byte // 供应商 API Key 的加密密钥，可为空
}

// SetupRouter 配置路由并装配整条聊天链路
func SetupRouter(db *gorm.DB, cfg *config.Config, opts *Options) *gin.Engine {
	if opts == nil {
		opts = &Options{}
	}

	engine := gin.Default()

	// CORS 必须在认证之前，OPTIONS 预检不做认证
	engine.Use(middleware.CORSMiddleware())

	counter := stats.NewRequestCounter(0)
	engine.Use(middleware.RequestCounterMiddleware(counter))

	// ==================== 依赖装配 ====================

	repo := provider.NewRepository(db)

	var providerService *provider.Service
	if len(opts.EncryptionKey) > 0 {
		providerService = provider.NewServiceWithEncryption(repo, opts.EncryptionKey)
	} else {
		providerService = provider.NewService(repo)
	}

	tokenService := token.NewService(token.NewRepository(db))
	eventService := events.NewService(db)
	detector := reliability.NewDetector(nil)
	store := modelstore.New()

	routerService := router.New(db, repo, detector)
	dispatcher := router.NewDispatcher(providerService)
	prefs := router.NewPreferenceStore(db)
	guard := quota.NewGuard(db, &cfg.Quota)
	monitor := status.NewMonitor(routerService, repo, store, &status.MonitorConfig{
		Metrics: metrics.Global(),
	})

	chatService := chat.NewService(chat.Deps{
		DB:          db,
		Guard:       guard,
		Router:      routerService,
		Dispatcher:  dispatcher,
		Preferences: prefs,
		Detector:    detector,
		Events:      eventService,
		Store:       store,
		Status:      monitor,
		Metrics:     metrics.Global(),
	}, &cfg.Reliability)

	chatHandler := handlers.NewChatHandler(chatService)
	upstreamHandler := handlers.NewUpstreamHandler(repo, dispatcher)
	healthHandler := handlers.NewHealthHandler(db, repo, providerService)
	providerHandler := handlers.NewProviderHandler(providerService)
	tokenHandler := handlers.NewTokenHandler(tokenService)
	systemHandler := handlers.NewSystemHandler(counter, eventService, monitor)

	// ==================== 公共端点 ====================

	engine.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "healthy",
			"service": "Aegisx-AI",
		})
	})

	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 聚合健康检查：数据库探测 + 供应商采样探测
	engine.GET("/ai-health-check", healthHandler.Check)

	// 聊天端点的健康探测不做认证
	engine.GET("/ai-chat-router", chatHandler.Health)
	engine.GET("/ai-chat-router/health", chatHandler.Health)
	engine.POST("/ai-chat-router/health", chatHandler.Health)

	// ==================== 聊天端点 ====================

	chatAuth := middleware.ChatAuthMiddleware(tokenService)
	engine.POST("/ai-chat-router", chatAuth, chatHandler.Chat)
	engine.POST("/ai-chat-openai", chatAuth, upstreamHandler.ChatOpenAI)
	engine.POST("/ai-chat-mistral", chatAuth, upstreamHandler.ChatMistral)

	// ==================== 管理端点 ====================

	apiGroup := engine.Group("/api")
	apiGroup.Use(middleware.TokenAuthMiddleware(tokenService))
	{
		providers := apiGroup.Group("/providers")
		{
			providers.POST("", providerHandler.CreateProvider)
			providers.GET("", providerHandler.ListProviders)
			providers.GET("/:id", providerHandler.GetProvider)
			providers.PUT("/:id", providerHandler.UpdateProvider)
			providers.DELETE("/:id", providerHandler.DeleteProvider)
			providers.PATCH("/:id/enabled", providerHandler.ToggleProviderEnabled)
			providers.POST("/:id/health-check", providerHandler.HealthCheckProvider)
		}

		tokens := apiGroup.Group("/tokens")
		{
			tokens.POST("", tokenHandler.CreateToken)
			tokens.GET("", tokenHandler.ListTokens)
			tokens.DELETE("/:id", tokenHandler.DeleteToken)
		}

		apiGroup.GET("/events", systemHandler.ListEvents)
		apiGroup.GET("/stats", systemHandler.GetStats)
		apiGroup.GET("/status", systemHandler.GetStatus)
	}

	return engine
}
