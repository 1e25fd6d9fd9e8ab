package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/kaelis/Aegisx-AI/internal/token"
	"github.com/gin-gonic/gin"
)

// ContextKeyUserID 认证通过后请求者身份在 gin.Context 里的键
const ContextKeyUserID = "user_id"

// TokenAuthMiddleware 管理端 Token 验证中间件
// 验证失败返回 401 和结构化错误码
func TokenAuthMiddleware(tokenService *token.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		tok, err := authenticate(c, tokenService)
		if err != nil {
			handleAuthError(c, err)
			c.Abort()
			return
		}

		c.Set("token_id", tok.ID)
		c.Set("token", tok)
		c.Set(ContextKeyUserID, tok.UserID)

		c.Next()
	}
}

// ChatAuthMiddleware 聊天端点的 Token 验证中间件
// 聊天端点的错误契约是统一的 500 {"error": ...}，
// 认证失败也走这个形状，前端据此提示重新登录
func ChatAuthMiddleware(tokenService *token.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		tok, err := authenticate(c, tokenService)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Authentication failed. Please sign in again.",
			})
			c.Abort()
			return
		}

		c.Set("token_id", tok.ID)
		c.Set("token", tok)
		c.Set(ContextKeyUserID, tok.UserID)

		c.Next()
	}
}

// UserID 从上下文取出请求者身份
func UserID(c *gin.Context) string {
	return c.GetString(ContextKeyUserID)
}

// authenticate 提取并验证 Bearer Token
func authenticate(c *gin.Context, tokenService *token.Service) (*tokenResult, error) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return nil, errMissingAuthHeader
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" || strings.TrimSpace(parts[1]) == "" {
		return nil, errInvalidAuthFormat
	}

	tok, err := tokenService.ValidateToken(parts[1])
	if err != nil {
		return nil, err
	}

	return &tokenResult{ID: tok.ID, UserID: tok.UserID}, nil
}

type tokenResult struct {
	ID     uint
	UserID string
}

var (
	errMissingAuthHeader = errors.New("missing authorization header")
	errInvalidAuthFormat = errors.New("invalid authorization format")
)

// handleAuthError 处理认证错误
func handleAuthError(c *gin.Context, err error) {
	var code, message string

	switch {
	case errors.Is(err, errMissingAuthHeader):
		code = "MISSING_AUTH_HEADER"
		message = "Missing authorization header"
	case errors.Is(err, errInvalidAuthFormat):
		code = "INVALID_AUTH_FORMAT"
		message = "Invalid authorization format. Expected: Bearer <token>"
	case errors.Is(err, token.ErrInvalidToken):
		code = "INVALID_TOKEN"
		message = "Invalid token"
	case errors.Is(err, token.ErrTokenDisabled):
		code = "TOKEN_DISABLED"
		message = "Token disabled"
	case errors.Is(err, token.ErrTokenExpired):
		code = "TOKEN_EXPIRED"
		message = "Token expired"
	default:
		code = "AUTH_ERROR"
		message = "Authentication failed"
	}

	c.JSON(http.StatusUnauthorized, gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}
