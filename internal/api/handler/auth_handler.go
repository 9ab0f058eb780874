package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Cryptobal/GardOps-sub016/internal/api/middleware"
	"github.com/Cryptobal/GardOps-sub016/pkg/jwt"
	"github.com/Cryptobal/GardOps-sub016/pkg/response"
)

// TokenRevoker Token 吊销（Redis 黑名单）
type TokenRevoker interface {
	BlacklistToken(ctx context.Context, jti string, ttl time.Duration) error
}

// AuthHandler 认证模块 HTTP 处理器
// Token 由外部身份服务签发，此处只负责吊销
type AuthHandler struct {
	revoker TokenRevoker
	logger  *zap.Logger
}

// NewAuthHandler 创建 AuthHandler，revoker 为 nil 时登出不可用
func NewAuthHandler(revoker TokenRevoker, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{revoker: revoker, logger: logger}
}

// Logout 吊销当前 Access Token
// POST /api/v1/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	v, exists := c.Get(middleware.CtxClaims)
	claims, ok := v.(*jwt.Claims)
	if !exists || !ok {
		response.Unauthorized(c, 10002, "未认证")
		return
	}
	if h.revoker == nil {
		response.Error(c, http.StatusServiceUnavailable, 10503, "Token 吊销服务不可用")
		return
	}

	if err := h.revoker.BlacklistToken(c.Request.Context(), claims.ID, claims.Remaining(time.Now())); err != nil {
		h.logger.Error("吊销 Token 失败", zap.String("user_id", claims.UserID), zap.Error(err))
		response.InternalError(c)
		return
	}

	response.OK(c, nil)
}
