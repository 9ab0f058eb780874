package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/Cryptobal/GardOps-sub016/config"
	"github.com/Cryptobal/GardOps-sub016/internal/api/handler"
	"github.com/Cryptobal/GardOps-sub016/internal/api/router"
	"github.com/Cryptobal/GardOps-sub016/internal/realtime"
	"github.com/Cryptobal/GardOps-sub016/internal/repository"
	"github.com/Cryptobal/GardOps-sub016/internal/service"
	"github.com/Cryptobal/GardOps-sub016/pkg/database"
	"github.com/Cryptobal/GardOps-sub016/pkg/jwt"
	applogger "github.com/Cryptobal/GardOps-sub016/pkg/logger"
	"github.com/Cryptobal/GardOps-sub016/pkg/redis"
)

func main() {
	// 0. 加载 .env（不存在时忽略）
	_ = godotenv.Load()

	// 1. 加载配置
	cfg, err := config.Load(os.Getenv("GARDOPS_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	// 2. 初始化日志
	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("应用启动中...",
		zap.Int("port", cfg.Server.Port),
		zap.String("log_level", cfg.Log.Level),
		zap.String("timezone", cfg.Roster.Timezone),
	)

	// 3. 连接数据库
	db, err := database.NewDB(&cfg.Database, applogger.GormLevel(cfg.Log.Level), logger)
	if err != nil {
		logger.Fatal("数据库连接失败", zap.Error(err))
	}
	logger.Info("数据库连接成功")

	// 3.1 执行数据库迁移
	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("获取底层 sql.DB 失败", zap.Error(err))
	}
	if err := database.RunMigrations(sqlDB, logger); err != nil {
		logger.Fatal("数据库迁移失败", zap.Error(err))
	}

	// 4. 连接 Redis（可选：失败时不缓存视图、不吊销 Token、不限流）
	var (
		cache   service.ViewCache
		revoker handler.TokenRevoker
		deps    router.Deps
	)
	rdb, err := redis.NewClient(&cfg.Redis, logger)
	if err != nil {
		logger.Warn("Redis 连接失败，降级运行", zap.Error(err))
		rdb = nil
	} else {
		cache = rdb
		revoker = rdb
		deps = router.Deps{Blacklist: rdb, Limiter: rdb}
	}

	// 5. 实时推送
	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	var (
		hub      *realtime.Hub
		notifier service.ChangeNotifier
	)
	if cfg.Feature.RealtimeEnabled {
		hub = realtime.NewHub(logger)
		notifier = hub
		go hub.Run(ctx)
	}

	// 6. 依赖注入: Repository → Service → Handler
	jwtMgr := jwt.NewManager(&cfg.Auth)
	repo := repository.NewRepository(db)
	svc := service.NewService(cfg, repo, cache, notifier, logger)
	h := handler.NewHandler(svc, hub, revoker, cfg.Server.CORS.AllowOrigins, logger)

	// 7. 初始化路由
	engine := router.Setup(cfg, h, jwtMgr, deps, logger)

	// 8. 启动 HTTP 服务器（优雅关闭）
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("HTTP 服务器已启动", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP 服务器异常", zap.Error(err))
		}
	}()

	// 9. 监听系统信号，优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("收到关闭信号，开始优雅关闭...", zap.String("signal", sig.String()))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("服务器关闭异常", zap.Error(err))
	}

	// 断开 WebSocket 订阅
	stop()

	if err := sqlDB.Close(); err != nil {
		logger.Warn("关闭数据库连接失败", zap.Error(err))
	}
	if rdb != nil {
		_ = rdb.Close()
	}

	logger.Info("服务器已关闭")
}
