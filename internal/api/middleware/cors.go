package middleware

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// CORSMiddleware 跨域中间件
// 放行任意来源和聊天端点使用的自定义头；
// 必须挂在认证中间件之前，OPTIONS 预检不做认证
func CORSMiddleware() gin.HandlerFunc {
	config := cors.DefaultConfig()
	config.AllowAllOrigins = true
	config.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	config.AllowHeaders = []string{
		"Origin",
		"Content-Type",
		"Authorization",
		"X-Message",
		"X-Model-Id",
		"X-Session-Id",
	}

	return cors.New(config)
}
