package realtime

import (
	"context"
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"github.com/Cryptobal/GardOps-sub016/internal/dto"
)

// Hub 维护 WebSocket 连接并按租户 / 设施分发排班格变更
type Hub struct {
	clients    map[*Client]struct{}
	broadcast  chan dto.CellEvent
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	logger     *zap.Logger

	mu      sync.RWMutex
	dropped int
}

// NewHub 创建 Hub；需调用 Run 才会开始分发
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]struct{}),
		broadcast:  make(chan dto.CellEvent, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run 事件主循环，ctx 取消后关闭所有连接
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			h.mu.Lock()
			for c := range h.clients {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()
			return

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = struct{}{}
			total := len(h.clients)
			h.mu.Unlock()
			h.logger.Info("WebSocket 客户端已连接",
				zap.String("tenant_id", c.TenantID),
				zap.String("installation_id", c.InstallationID),
				zap.Int("total", total),
			)

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()

		case ev := <-h.broadcast:
			h.dispatch(ev)
		}
	}
}

func (h *Hub) dispatch(ev dto.CellEvent) {
	data, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error("序列化变更事件失败", zap.Error(err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		if !c.subscribed(ev) {
			continue
		}
		select {
		case c.send <- data:
		default:
			// 发送缓冲已满，断开慢客户端
			delete(h.clients, c)
			close(c.send)
			h.logger.Warn("WebSocket 客户端缓冲已满，断开连接",
				zap.String("tenant_id", c.TenantID),
				zap.String("installation_id", c.InstallationID),
			)
		}
	}
}

// Publish 投递变更事件，不阻塞调用方；队列满时丢弃
func (h *Hub) Publish(ev dto.CellEvent) {
	select {
	case h.broadcast <- ev:
	default:
		h.mu.Lock()
		h.dropped++
		h.mu.Unlock()
		h.logger.Warn("变更事件队列已满，丢弃", zap.String("type", ev.Type), zap.String("cell_id", ev.CellID))
	}
}

// ClientCount 当前连接数
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Dropped 因队列满而丢弃的事件数
func (h *Hub) Dropped() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.dropped
}
