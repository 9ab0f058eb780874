package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Cryptobal/GardOps-sub016/internal/api/middleware"
	"github.com/Cryptobal/GardOps-sub016/internal/service"
	"github.com/Cryptobal/GardOps-sub016/pkg/response"
)

// MustGetCaller 从 Gin 上下文中提取调用方身份（租户 + 用户）。
// JWT 中间件未注入租户时写入 401，调用方应在 ok=false 时直接 return。
func MustGetCaller(c *gin.Context) (service.Caller, bool) {
	tenantID := c.GetString(middleware.CtxTenantID)
	if tenantID == "" {
		response.Unauthorized(c, 10002, "未认证")
		return service.Caller{}, false
	}
	return service.Caller{
		TenantID: tenantID,
		UserID:   c.GetString(middleware.CtxUserID),
	}, true
}

// badParams 请求参数绑定失败
func badParams(c *gin.Context, err error) {
	response.ErrorWithDetails(c, http.StatusBadRequest, 10001, "参数校验失败", err.Error())
}

// idParam 读取路径参数 :id 并校验为 UUID，不合法时写入 400
func idParam(c *gin.Context) (string, bool) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, 10001, "参数校验失败", "id 不是合法的 UUID: "+id)
		return "", false
	}
	return id, true
}
