// rosterjob 供定时任务调用的批处理入口：生成排班、重算缺岗、对账、关闭周期。
//
//	rosterjob -tenant t-1 -year 2025 -month 8 -generate -resolve
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/Cryptobal/GardOps-sub016/config"
	"github.com/Cryptobal/GardOps-sub016/internal/dto"
	"github.com/Cryptobal/GardOps-sub016/internal/model"
	"github.com/Cryptobal/GardOps-sub016/internal/repository"
	"github.com/Cryptobal/GardOps-sub016/internal/service"
	"github.com/Cryptobal/GardOps-sub016/pkg/database"
	applogger "github.com/Cryptobal/GardOps-sub016/pkg/logger"
)

// 批处理以零值 UUID 作为操作人写入审计
var operatorID = uuid.Nil.String()

type options struct {
	tenant    string
	period    model.Period
	generate  bool
	resolve   bool
	reconcile bool
	close     bool
}

func main() {
	_ = godotenv.Load()

	configPath := flag.String("config", os.Getenv("GARDOPS_CONFIG"), "配置文件路径")
	tenant := flag.String("tenant", "", "租户 ID（必填）")
	year := flag.Int("year", 0, "年份，默认为当前月")
	month := flag.Int("month", 0, "月份，默认为当前月")
	generate := flag.Bool("generate", false, "为全部启用岗位生成排班（已生成的跳过）")
	resolve := flag.Bool("resolve", false, "重算缺岗集合与优先级")
	reconcile := flag.Bool("reconcile", false, "对账并修复偏差")
	closePeriod := flag.Bool("close", false, "关闭周期")
	flag.Parse()

	if *tenant == "" {
		die("-tenant 不能为空")
	}
	if !*generate && !*resolve && !*reconcile && !*closePeriod {
		die("至少指定 -generate / -resolve / -reconcile / -close 之一")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		die("加载配置失败: %v", err)
	}

	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		die("初始化日志失败: %v", err)
	}
	defer logger.Sync()

	opts := options{
		tenant:    *tenant,
		period:    defaultPeriod(*year, *month, cfg.Roster.Location()),
		generate:  *generate,
		resolve:   *resolve,
		reconcile: *reconcile,
		close:     *closePeriod,
	}
	if !opts.period.Valid() {
		die("周期无效: %s", opts.period)
	}

	db, err := database.NewDB(&cfg.Database, applogger.GormLevel(cfg.Log.Level), logger)
	if err != nil {
		logger.Fatal("数据库连接失败", zap.Error(err))
	}
	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("获取底层 sql.DB 失败", zap.Error(err))
	}
	defer sqlDB.Close()

	// 批处理不推送、不缓存
	svc := service.NewService(cfg, repository.NewRepository(db), nil, nil, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, svc, opts, logger); err != nil {
		logger.Error("批处理失败", zap.String("period", opts.period.String()), zap.Error(err))
		os.Exit(1)
	}
}

// run 按 生成 → 重算 → 对账 → 关闭 的顺序执行所选步骤，任一步失败即停止
func run(ctx context.Context, svc *service.Service, opts options, logger *zap.Logger) error {
	caller := service.Caller{TenantID: opts.tenant, UserID: operatorID}
	log := logger.With(zap.String("tenant_id", opts.tenant), zap.String("period", opts.period.String()))

	if opts.generate {
		res, err := svc.Roster.GenerateRoster(ctx, caller, &dto.GenerateRosterRequest{
			Year:         opts.period.Year,
			Month:        opts.period.Month,
			SkipExisting: true,
		})
		if err != nil {
			return fmt.Errorf("生成排班: %w", err)
		}
		log.Info("排班已生成", zap.Int("cells", res.CellsCreated), zap.Int("vacancies", res.VacanciesOpened))
	}

	if opts.resolve {
		res, err := svc.Vacancy.ResolveVacancies(ctx, caller, opts.period)
		if err != nil {
			return fmt.Errorf("重算缺岗: %w", err)
		}
		log.Info("缺岗已重算",
			zap.Int("created", res.Created),
			zap.Int("refreshed", res.Refreshed),
			zap.Int("retired", res.Retired),
			zap.Int("open", res.Open),
		)
	}

	if opts.reconcile {
		report, err := svc.Sync.Reconcile(ctx, caller, opts.period)
		if err != nil {
			return fmt.Errorf("对账: %w", err)
		}
		log.Info("对账完成", zap.Int("scanned", report.CellsScanned), zap.Int("discrepancies", len(report.Discrepancies)))
	}

	if opts.close {
		if _, err := svc.Roster.ClosePeriod(ctx, caller, opts.period); err != nil {
			return fmt.Errorf("关闭周期: %w", err)
		}
		log.Info("周期已关闭")
	}
	return nil
}

// defaultPeriod 未指定年月时取业务时区的当前月
func defaultPeriod(year, month int, loc *time.Location) model.Period {
	now := time.Now().In(loc)
	if year == 0 {
		year = now.Year()
	}
	if month == 0 {
		month = int(now.Month())
	}
	return model.Period{Year: year, Month: month}
}

func die(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(2)
}
