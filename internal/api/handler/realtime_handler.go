package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/Cryptobal/GardOps-sub016/internal/realtime"
	"github.com/Cryptobal/GardOps-sub016/pkg/response"
)

// RealtimeHandler 日视图实时推送
type RealtimeHandler struct {
	hub      *realtime.Hub
	upgrader *websocket.Upgrader
}

// NewRealtimeHandler 创建 RealtimeHandler
// allowOrigins 与 CORS 配置一致，空列表时只接受同源
func NewRealtimeHandler(hub *realtime.Hub, allowOrigins []string) *RealtimeHandler {
	allowed := make(map[string]struct{}, len(allowOrigins))
	for _, o := range allowOrigins {
		allowed[strings.TrimRight(o, "/")] = struct{}{}
	}
	return &RealtimeHandler{
		hub: hub,
		upgrader: &websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true
				}
				if _, ok := allowed[origin]; ok {
					return true
				}
				return strings.EqualFold(strings.TrimPrefix(strings.TrimPrefix(origin, "https://"), "http://"), r.Host)
			},
		},
	}
}

// Subscribe 订阅某安装点的排班格变更
// GET /api/v1/ws/installations/:id
func (h *RealtimeHandler) Subscribe(c *gin.Context) {
	if h.hub == nil {
		response.NotFound(c, 24404, "实时推送未启用")
		return
	}
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}
	id, ok := idParam(c)
	if !ok {
		return
	}

	if err := h.hub.Serve(c.Writer, c.Request, h.upgrader, caller.TenantID, id); err != nil {
		// 升级失败时 upgrader 已写回错误响应
		_ = c.Error(err)
	}
}
