package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/kaelis/Aegisx-AI/internal/models"
	"github.com/kaelis/Aegisx-AI/internal/token"
	"github.com/gin-gonic/gin"
)

// TokenHandler Token HTTP 处理器
type TokenHandler struct {
	service *token.Service
}

// NewTokenHandler 创建 TokenHandler 实例
func NewTokenHandler(service *token.Service) *TokenHandler {
	return &TokenHandler{service: service}
}

// CreateToken 创建 Token
// @Summary 创建 Token
// @Tags tokens
// @Accept json
// @Produce json
// @Param token body token.CreateTokenRequest true "Token 信息"
// @Success 201 {object} token.TokenDTO
// @Failure 400 {object} map[string]interface{}
// @Router /api/tokens [post]
func (h *TokenHandler) CreateToken(c *gin.Context) {
	var req token.CreateTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "Invalid request parameters",
				"details": err.Error(),
			},
		})
		return
	}

	tok, err := h.service.CreateToken(req.Name, req.UserID, req.ExpiresAt, req.CustomToken)
	if err != nil {
		switch {
		case errors.Is(err, token.ErrInvalidExpiresAt),
			errors.Is(err, token.ErrMissingUserID),
			errors.Is(err, token.ErrInvalidCustomToken):
			c.JSON(http.StatusBadRequest, gin.H{
				"error": gin.H{
					"code":    "VALIDATION_ERROR",
					"message": err.Error(),
				},
			})
		case errors.Is(err, token.ErrTokenValueExists):
			c.JSON(http.StatusConflict, gin.H{
				"error": gin.H{
					"code":    "TOKEN_CONFLICT",
					"message": "Token value already exists",
				},
			})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": gin.H{
					"code":    "INTERNAL_ERROR",
					"message": "Failed to create token",
				},
			})
		}
		return
	}

	// 创建时返回完整 Token，之后只展示脱敏值
	c.JSON(http.StatusCreated, token.ToTokenDTO(tok, true))
}

// ListTokens 获取 Token 列表
// @Summary 获取 Token 列表
// @Tags tokens
// @Produce json
// @Param user_id query string false "按用户过滤"
// @Success 200 {array} token.TokenDTO
// @Router /api/tokens [get]
func (h *TokenHandler) ListTokens(c *gin.Context) {
	userID := c.Query("user_id")

	var tokens []*models.Token
	var err error

	if userID != "" {
		tokens, err = h.service.ListUserTokens(userID)
	} else {
		tokens, err = h.service.ListTokens()
	}

	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": gin.H{
				"code":    "INTERNAL_ERROR",
				"message": "Failed to list tokens",
			},
		})
		return
	}

	data := make([]*token.TokenDTO, len(tokens))
	for i, tok := range tokens {
		data[i] = token.ToTokenDTO(tok, false)
	}

	c.JSON(http.StatusOK, gin.H{"data": data})
}

// DeleteToken 删除 Token
// @Summary 删除 Token
// @Tags tokens
// @Param id path int true "Token ID"
// @Success 204 "No Content"
// @Failure 404 {object} map[string]interface{}
// @Router /api/tokens/{id} [delete]
func (h *TokenHandler) DeleteToken(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{
				"code":    "INVALID_ID",
				"message": "Invalid token ID",
			},
		})
		return
	}

	if err := h.service.DeleteToken(uint(id)); err != nil {
		if errors.Is(err, token.ErrTokenNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": gin.H{
					"code":    "NOT_FOUND",
					"message": "Token not found",
				},
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": gin.H{
				"code":    "INTERNAL_ERROR",
				"message": "Failed to delete token",
			},
		})
		return
	}

	c.Status(http.StatusNoContent)
}
