package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Cryptobal/GardOps-sub016/pkg/response"
)

// Authorizer 能力校验
// capability 形如 "resource:action"
type Authorizer interface {
	Allowed(role, resource, action string) bool
}

// capabilityAuthorizer 角色 → 能力列表，支持 "*" 与 "resource:*"
type capabilityAuthorizer struct {
	grants map[string]map[string]bool
}

// NewCapabilityAuthorizer 由配置 auth.capabilities 构建
func NewCapabilityAuthorizer(capabilities map[string][]string) Authorizer {
	grants := make(map[string]map[string]bool, len(capabilities))
	for role, caps := range capabilities {
		set := make(map[string]bool, len(caps))
		for _, capability := range caps {
			set[strings.ToLower(strings.TrimSpace(capability))] = true
		}
		grants[strings.ToLower(role)] = set
	}
	return &capabilityAuthorizer{grants: grants}
}

func (a *capabilityAuthorizer) Allowed(role, resource, action string) bool {
	set, ok := a.grants[strings.ToLower(role)]
	if !ok {
		return false
	}
	return set["*"] || set[resource+":*"] || set[resource+":"+action]
}

// Can 能力校验中间件，须挂在 JWTAuth 之后
func Can(authz Authorizer, resource, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, exists := c.Get(CtxRole)
		if !exists {
			response.Unauthorized(c, 10002, "未认证")
			c.Abort()
			return
		}

		if !authz.Allowed(role.(string), resource, action) {
			response.Forbidden(c, 10003, "无权限访问: "+resource+":"+action)
			c.Abort()
			return
		}

		c.Next()
	}
}
