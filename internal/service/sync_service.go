package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Cryptobal/GardOps-sub016/config"
	"github.com/Cryptobal/GardOps-sub016/internal/dto"
	"github.com/Cryptobal/GardOps-sub016/internal/model"
	"github.com/Cryptobal/GardOps-sub016/internal/repository"
)

// ViewCache 投影缓存（Redis 实现见 pkg/redis）
type ViewCache interface {
	// Get 未命中返回 nil, nil
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
}

// SyncService 投影视图与对账接口
//
// 视图均由 RosterCell + OvertimeShift + Vacancy 现算，经同一投影函数生成；
// 月视图按修订指纹缓存，指纹变化即失效
type SyncService interface {
	MonthlyView(ctx context.Context, caller Caller, req *dto.MonthlyViewRequest) (*dto.MonthlyView, error)
	DailyView(ctx context.Context, caller Caller, req *dto.DailyViewRequest) (*dto.DailyView, error)
	// Reconcile 重算缺岗并报告修复的不一致
	Reconcile(ctx context.Context, caller Caller, period model.Period) (*dto.ReconcileReport, error)
}

type syncService struct {
	repo     *repository.Repository
	cache    ViewCache
	cacheTTL time.Duration
	rules    vacancyRules
	notifier ChangeNotifier
	logger   *zap.Logger
	now      func() time.Time
}

// NewSyncService 创建 SyncService 实例；cache 为 nil 时不缓存
func NewSyncService(repo *repository.Repository, cfg *config.RosterConfig, cache ViewCache, notifier ChangeNotifier, logger *zap.Logger) SyncService {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &syncService{
		repo:     repo,
		cache:    cache,
		cacheTTL: cfg.MonthlyViewCacheTTL,
		rules:    newVacancyRules(cfg),
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
}

// 对账差异类型
const (
	DiscrepancyMissingVacancy       = "missing_vacancy"
	DiscrepancyStaleVacancy         = "stale_vacancy"
	DiscrepancyStrayShift           = "stray_shift"
	DiscrepancyCoveringWithoutShift = "covering_without_shift"
	DiscrepancyShiftGuardMismatch   = "shift_guard_mismatch"
)

// ════════════════════════════════════════════════════════════
// 投影
// ════════════════════════════════════════════════════════════

// projection 投影输入
type projection struct {
	cells     []model.RosterCell
	posts     map[string]*model.OperationalPost
	guards    map[string]*model.Guard
	vacancies map[string]*model.Vacancy       // roster_cell_id → open vacancy
	shifts    map[string]*model.OvertimeShift // roster_cell_id → active shift
}

// project 月视图与日视图共用的投影函数
func project(in projection) ([]dto.ViewCell, dto.ViewSummary) {
	cells := make([]dto.ViewCell, 0, len(in.cells))
	summary := dto.ViewSummary{OvertimeAmount: decimal.Zero}

	for i := range in.cells {
		c := &in.cells[i]
		vc := dto.ViewCell{
			CellID:          c.RosterCellID,
			PostID:          c.PostID,
			WorkDate:        formatDate(c.WorkDate),
			Day:             c.Day,
			CoverageState:   string(c.CoverageState),
			Legacy:          toLegacyDTO(c.CoverageState.ToLegacy()),
			PlannedGuard:    guardBrief(in.guards, c.PlannedGuardID),
			Occupant:        guardBrief(in.guards, c.OccupantGuardID),
			MonitoringState: string(c.Meta.MonitoringState),
			Notes:           c.Meta.Notes,
			Version:         c.Version,
		}
		if p, ok := in.posts[c.PostID]; ok {
			vc.PostName = p.Name
		}
		if v, ok := in.vacancies[c.RosterCellID]; ok {
			vc.Vacancy = &dto.VacancyBrief{ID: v.VacancyID, Reason: string(v.Reason), Priority: string(v.Priority)}
			summary.OpenVacancies++
		}
		if sh, ok := in.shifts[c.RosterCellID]; ok {
			vc.Shift = &dto.ShiftBrief{
				ID:             sh.ShiftID,
				Amount:         sh.Amount,
				Origin:         string(sh.Origin),
				Paid:           sh.Paid,
				Preserved:      sh.Preserved,
				PaymentBatchID: sh.PaymentBatchID,
			}
			summary.OvertimeAmount = summary.OvertimeAmount.Add(sh.Amount)
		}

		switch c.CoverageState {
		case model.StateDayOff:
			summary.DayOff++
		case model.StatePlanned:
			summary.Planned++
		case model.StateWorked:
			summary.Worked++
		case model.StateAbsentUncovered:
			summary.AbsentUncovered++
		case model.StateCovered:
			summary.Covered++
		case model.StateOvertimeAssigned:
			summary.OvertimeAssigned++
		}
		cells = append(cells, vc)
	}
	return cells, summary
}

func guardBrief(guards map[string]*model.Guard, id *string) *dto.GuardBrief {
	if id == nil {
		return nil
	}
	if g, ok := guards[*id]; ok {
		return &dto.GuardBrief{ID: g.GuardID, Name: g.Name, RUT: g.RUT}
	}
	return &dto.GuardBrief{ID: *id}
}

// load 补齐投影所需的保安、缺岗与加班
func (s *syncService) load(ctx context.Context, tenantID string, in *projection, vf repository.VacancyFilter, sf repository.ShiftFilter) error {
	ids := make([]string, 0, len(in.cells))
	seen := make(map[string]bool)
	cellIDs := make(map[string]bool, len(in.cells))
	for i := range in.cells {
		c := &in.cells[i]
		cellIDs[c.RosterCellID] = true
		for _, id := range []*string{c.PlannedGuardID, c.OccupantGuardID} {
			if id != nil && !seen[*id] {
				seen[*id] = true
				ids = append(ids, *id)
			}
		}
	}

	guards, err := s.repo.Guard.ListByIDs(ctx, tenantID, ids)
	if err != nil {
		return err
	}
	in.guards = make(map[string]*model.Guard, len(guards))
	for i := range guards {
		in.guards[guards[i].GuardID] = &guards[i]
	}

	vf.Status = model.VacancyStatusOpen
	vacancies, _, err := s.repo.Vacancy.List(ctx, tenantID, vf, 0, 0)
	if err != nil {
		return err
	}
	in.vacancies = make(map[string]*model.Vacancy, len(vacancies))
	for i := range vacancies {
		if cellIDs[vacancies[i].RosterCellID] {
			in.vacancies[vacancies[i].RosterCellID] = &vacancies[i]
		}
	}

	shifts, err := s.repo.Shift.List(ctx, tenantID, sf)
	if err != nil {
		return err
	}
	in.shifts = make(map[string]*model.OvertimeShift, len(shifts))
	for i := range shifts {
		in.shifts[shifts[i].RosterCellID] = &shifts[i]
	}
	return nil
}

// ════════════════════════════════════════════════════════════
// MonthlyView
// ════════════════════════════════════════════════════════════

func (s *syncService) MonthlyView(ctx context.Context, caller Caller, req *dto.MonthlyViewRequest) (*dto.MonthlyView, error) {
	if err := caller.validate(); err != nil {
		return nil, err
	}
	period := model.Period{Year: req.Year, Month: req.Month}
	if !period.Valid() {
		return nil, ErrInvalidPeriod
	}

	post, err := s.repo.Post.GetByID(ctx, caller.TenantID, req.PostID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPostNotFound
		}
		s.logger.Error("查询岗位失败", zap.Error(err))
		return nil, err
	}

	// 1. 修订指纹 → 缓存键
	revision, err := s.revision(ctx, caller.TenantID, post.PostID, period)
	if err != nil {
		s.logger.Error("计算视图修订失败", zap.Error(err))
		return nil, err
	}
	key := monthlyViewKey(caller.TenantID, post.PostID, period, revision)
	if view := s.cached(ctx, key); view != nil {
		return view, nil
	}

	// 2. 现算
	cells, err := s.repo.Cell.ListByPostPeriod(ctx, caller.TenantID, post.PostID, period.Year, period.Month)
	if err != nil {
		s.logger.Error("查询排班格失败", zap.Error(err))
		return nil, err
	}
	in := projection{cells: cells, posts: map[string]*model.OperationalPost{post.PostID: post}}
	err = s.load(ctx, caller.TenantID, &in,
		repository.VacancyFilter{PostID: post.PostID, From: period.FirstDay(), To: period.LastDay()},
		repository.ShiftFilter{PostID: post.PostID, From: period.FirstDay(), To: period.LastDay()},
	)
	if err != nil {
		s.logger.Error("加载投影数据失败", zap.Error(err))
		return nil, err
	}

	viewCells, summary := project(in)
	view := &dto.MonthlyView{
		PostID:         post.PostID,
		PostName:       post.Name,
		InstallationID: post.InstallationID,
		Period:         period.String(),
		Revision:       revision,
		Cells:          viewCells,
		Summary:        summary,
	}

	// 3. 回填缓存（尽力而为）
	s.store(ctx, key, view)
	return view, nil
}

func (s *syncService) revision(ctx context.Context, tenantID, postID string, period model.Period) (string, error) {
	cellRev, err := s.repo.Cell.Revision(ctx, tenantID, postID, period.Year, period.Month)
	if err != nil {
		return "", err
	}
	shiftRev, err := s.repo.Shift.Revision(ctx, tenantID, postID, period.FirstDay(), period.LastDay())
	if err != nil {
		return "", err
	}
	vacRev, err := s.repo.Vacancy.Revision(ctx, tenantID, postID, period.FirstDay(), period.LastDay())
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("c%d.%d.%d-s%d.%d.%d-v%d.%d",
		cellRev.Rows, cellRev.VersionSum, cellRev.LastUpdate.UnixMicro(),
		shiftRev.Rows, shiftRev.VersionSum, shiftRev.LastUpdate.UnixMicro(),
		vacRev.Rows, vacRev.LastUpdate.UnixMicro(),
	), nil
}

func monthlyViewKey(tenantID, postID string, period model.Period, revision string) string {
	return fmt.Sprintf("roster:view:monthly:%s:%s:%s:%s", tenantID, postID, period, revision)
}

func (s *syncService) cached(ctx context.Context, key string) *dto.MonthlyView {
	if s.cache == nil {
		return nil
	}
	data, err := s.cache.Get(ctx, key)
	if err != nil {
		s.logger.Warn("读取视图缓存失败", zap.String("key", key), zap.Error(err))
		return nil
	}
	if data == nil {
		return nil
	}
	var view dto.MonthlyView
	if err := json.Unmarshal(data, &view); err != nil {
		s.logger.Warn("视图缓存内容无效", zap.String("key", key), zap.Error(err))
		return nil
	}
	return &view
}

func (s *syncService) store(ctx context.Context, key string, view *dto.MonthlyView) {
	if s.cache == nil {
		return
	}
	data, err := json.Marshal(view)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, data, s.cacheTTL); err != nil {
		s.logger.Warn("写入视图缓存失败", zap.String("key", key), zap.Error(err))
	}
}

// ════════════════════════════════════════════════════════════
// DailyView
// ════════════════════════════════════════════════════════════

func (s *syncService) DailyView(ctx context.Context, caller Caller, req *dto.DailyViewRequest) (*dto.DailyView, error) {
	if err := caller.validate(); err != nil {
		return nil, err
	}
	date, err := parseDate(req.Date)
	if err != nil {
		return nil, err
	}
	filter, err := stateFilter(req)
	if err != nil {
		return nil, err
	}

	inst, err := s.repo.Installation.GetByID(ctx, caller.TenantID, req.InstallationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInstallationNotFound
		}
		s.logger.Error("查询安装点失败", zap.Error(err))
		return nil, err
	}

	posts, err := s.repo.Post.ListByInstallation(ctx, caller.TenantID, inst.InstallationID)
	if err != nil {
		s.logger.Error("查询岗位失败", zap.Error(err))
		return nil, err
	}
	cells, err := s.repo.Cell.ListByInstallationDate(ctx, caller.TenantID, inst.InstallationID, date)
	if err != nil {
		s.logger.Error("查询排班格失败", zap.Error(err))
		return nil, err
	}

	in := projection{cells: cells, posts: make(map[string]*model.OperationalPost, len(posts))}
	for i := range posts {
		in.posts[posts[i].PostID] = &posts[i]
	}
	err = s.load(ctx, caller.TenantID, &in,
		repository.VacancyFilter{From: date, To: date},
		repository.ShiftFilter{InstallationID: inst.InstallationID, From: date, To: date},
	)
	if err != nil {
		s.logger.Error("加载投影数据失败", zap.Error(err))
		return nil, err
	}

	viewCells, summary := project(in)
	// 汇总始终覆盖全天，筛选只作用于明细
	if filter != "" {
		kept := viewCells[:0]
		for _, c := range viewCells {
			if c.CoverageState == string(filter) {
				kept = append(kept, c)
			}
		}
		viewCells = kept
	}
	return &dto.DailyView{
		InstallationID:   inst.InstallationID,
		InstallationName: inst.Name,
		Date:             formatDate(date),
		Cells:            viewCells,
		Summary:          summary,
	}, nil
}

// stateFilter 解析日视图状态筛选，未指定时返回空
// 旧版 token 经 model.FromLegacy 映射，筛选不区分休息日
func stateFilter(req *dto.DailyViewRequest) (model.CoverageState, error) {
	if req.State != "" {
		state := model.CoverageState(req.State)
		if !state.Valid() {
			return "", ErrInvalidStateFilter
		}
		return state, nil
	}
	if req.Estado == "" && req.EstadoUI == "" && req.TipoCobertura == "" {
		return "", nil
	}
	state, ok := model.FromLegacy(model.LegacyTokens{
		Estado:        req.Estado,
		EstadoUI:      req.EstadoUI,
		TipoCobertura: req.TipoCobertura,
	}, false)
	if !ok {
		return "", fmt.Errorf("%w: estado=%q estado_ui=%q", ErrInvalidStateFilter, req.Estado, req.EstadoUI)
	}
	return state, nil
}

// ════════════════════════════════════════════════════════════
// Reconcile
// ════════════════════════════════════════════════════════════

func (s *syncService) Reconcile(ctx context.Context, caller Caller, period model.Period) (*dto.ReconcileReport, error) {
	if err := caller.validate(); err != nil {
		return nil, err
	}
	if !period.Valid() {
		return nil, ErrInvalidPeriod
	}

	posts, err := s.repo.Post.List(ctx, caller.TenantID, false)
	if err != nil {
		s.logger.Error("查询岗位失败", zap.Error(err))
		return nil, err
	}
	active := make(map[string]bool, len(posts))
	for _, p := range posts {
		active[p.PostID] = p.IsActive
	}

	now := s.now()
	report := &dto.ReconcileReport{Period: period.String(), Discrepancies: []dto.Discrepancy{}}
	var touched []model.RosterCell

	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		cells, err := tx.Cell.ListByPeriodForUpdate(ctx, caller.TenantID, period.Year, period.Month)
		if err != nil {
			return err
		}
		report.CellsScanned = len(cells)

		shifts, err := tx.Shift.List(ctx, caller.TenantID, repository.ShiftFilter{From: period.FirstDay(), To: period.LastDay()})
		if err != nil {
			return err
		}
		byCell := make(map[string]*model.OvertimeShift, len(shifts))
		for i := range shifts {
			byCell[shifts[i].RosterCellID] = &shifts[i]
		}

		for i := range cells {
			c := &cells[i]
			note := func(kind, detail string, fixed bool) {
				report.Discrepancies = append(report.Discrepancies, dto.Discrepancy{
					Kind:     kind,
					CellID:   c.RosterCellID,
					PostID:   c.PostID,
					WorkDate: formatDate(c.WorkDate),
					Detail:   detail,
					Fixed:    fixed,
				})
			}

			// 1. 排班格 ↔ 加班记录
			shift := byCell[c.RosterCellID]
			covering := c.CoverageState == model.StateCovered || c.CoverageState == model.StateOvertimeAssigned
			switch {
			case covering && shift == nil:
				note(DiscrepancyCoveringWithoutShift, "在岗排班格缺少有效加班记录，需人工处理", false)
			case !covering && shift != nil:
				if shift.Preserved || shift.PaymentBatchID != nil {
					note(DiscrepancyStrayShift, fmt.Sprintf("加班记录 %s 已入批或已保全，未作废", shift.ShiftID), false)
					break
				}
				if err := tx.Shift.Void(ctx, shift, "reconcile: 排班格状态为 "+string(c.CoverageState), caller.UserID); err != nil {
					return err
				}
				err := tx.ChangeLog.Create(ctx, &model.RosterChangeLog{
					TenantID:     caller.TenantID,
					RosterCellID: c.RosterCellID,
					FromState:    c.CoverageState,
					ToState:      c.CoverageState,
					ShiftID:      &shift.ShiftID,
					Action:       model.ActionReconcileShift,
					Reason:       "作废孤立加班记录",
					OperatorID:   caller.UserID,
				})
				if err != nil {
					return err
				}
				note(DiscrepancyStrayShift, fmt.Sprintf("已作废加班记录 %s", shift.ShiftID), true)
				touched = append(touched, *c)
			case covering && (c.OccupantGuardID == nil || shift.SubstituteGuardID != *c.OccupantGuardID):
				note(DiscrepancyShiftGuardMismatch, fmt.Sprintf("加班记录保安 %s 与在岗保安不一致", shift.SubstituteGuardID), false)
			}

			// 2. 排班格 ↔ 缺岗
			change, err := s.rules.apply(ctx, tx, c, active[c.PostID], now, caller.UserID)
			if err != nil {
				return err
			}
			switch change {
			case vacancyCreated:
				note(DiscrepancyMissingVacancy, "补建缺岗记录", true)
			case vacancyRetired:
				note(DiscrepancyStaleVacancy, "退役过期缺岗记录", true)
			case vacancyRefreshed:
				report.Refreshed++
			}
		}
		return nil
	})
	if err != nil {
		return nil, internalErr(s.logger, "对账失败", err, zap.String("period", period.String()))
	}

	for i := range touched {
		s.notifier.Publish(cellEvent("cell.changed", caller.TenantID, &touched[i], now))
	}
	s.logger.Info("对账完成",
		zap.String("tenant_id", caller.TenantID),
		zap.String("period", period.String()),
		zap.Int("cells", report.CellsScanned),
		zap.Int("discrepancies", len(report.Discrepancies)),
	)
	return report, nil
}
