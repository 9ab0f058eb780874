package router

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Cryptobal/GardOps-sub016/config"
	"github.com/Cryptobal/GardOps-sub016/internal/api/handler"
	"github.com/Cryptobal/GardOps-sub016/internal/api/middleware"
	"github.com/Cryptobal/GardOps-sub016/pkg/jwt"
)

// Deps 路由可选依赖，Redis 不可用时均为 nil（降级为不吊销 / 不限流）
type Deps struct {
	Blacklist middleware.TokenBlacklist
	Limiter   middleware.RateLimiter
}

// Setup 初始化并返回 Gin 路由引擎
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, deps Deps, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.BodyLimit(cfg.Server.MaxBodyBytes))

	// ── 健康检查 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	authz := middleware.NewCapabilityAuthorizer(cfg.Auth.Capabilities)
	can := func(resource, action string) gin.HandlerFunc {
		return middleware.Can(authz, resource, action)
	}
	limit := middleware.RateLimit(deps.Limiter, cfg.Server.RateLimit, cfg.Server.RateWindow)

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	v1.Use(middleware.TokenFromQuery())
	v1.Use(middleware.JWTAuth(jwtMgr, deps.Blacklist, logger))
	{
		// 认证模块
		v1.POST("/auth/logout", h.Auth.Logout)

		// 排班模块
		rosters := v1.Group("/rosters")
		{
			rosters.POST("/generate", can("roster", "generate"), limit, h.Roster.Generate)
			rosters.GET("/cells/:id", can("roster", "read"), h.Roster.GetCell)
			rosters.POST("/cells/:id/attendance", can("roster", "mark_attendance"), limit, h.Roster.MarkAttendance)
			rosters.POST("/cells/:id/revoke", can("coverage", "revoke"), limit, h.Coverage.Revoke)
			rosters.POST("/periods/close", can("roster", "close_period"), limit, h.Roster.ClosePeriod)
		}

		// 缺岗模块
		vacancies := v1.Group("/vacancies")
		{
			vacancies.POST("/resolve", can("vacancy", "resolve"), limit, h.Vacancy.Resolve)
			vacancies.GET("", can("vacancy", "read"), h.Vacancy.List)
		}

		// 顶班模块
		v1.POST("/coverage", can("coverage", "assign"), limit, h.Coverage.Assign)

		// 加班结算模块
		v1.GET("/overtime/shifts/unbatched", can("settlement", "read"), h.Settlement.ListUnbatched)
		batches := v1.Group("/payment-batches")
		{
			batches.POST("", can("settlement", "create"), limit, h.Settlement.CreateBatch)
			batches.GET("", can("settlement", "read"), h.Settlement.ListBatches)
			batches.GET("/:id", can("settlement", "read"), h.Settlement.GetBatch)
			batches.POST("/:id/pay", can("settlement", "pay"), limit, h.Settlement.MarkPaid)
			batches.DELETE("/:id", can("settlement", "delete"), limit, h.Settlement.DeleteBatch)
			batches.GET("/:id/export", can("settlement", "read"), h.Export.ExportBatch)
		}

		// 投影视图与对账
		views := v1.Group("/views")
		{
			views.GET("/monthly", can("roster", "read"), h.View.Monthly)
			views.GET("/daily", can("roster", "read"), h.View.Daily)
		}
		v1.POST("/sync/reconcile", can("vacancy", "resolve"), limit, h.View.Reconcile)

		// 保安加班日历
		v1.GET("/guards/:id/overtime.ics", can("roster", "read"), h.Export.GuardCalendar)

		// 实时推送
		v1.GET("/ws/installations/:id", can("roster", "read"), h.Realtime.Subscribe)
	}

	return r
}
