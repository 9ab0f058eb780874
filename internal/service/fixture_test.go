package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Cryptobal/GardOps-sub016/config"
	"github.com/Cryptobal/GardOps-sub016/internal/dto"
	"github.com/Cryptobal/GardOps-sub016/internal/model"
	"github.com/Cryptobal/GardOps-sub016/internal/repository"
	pkgerrors "github.com/Cryptobal/GardOps-sub016/pkg/errors"
)

// ── 测试辅助 ──

const testTenant = "tenant-1"

var (
	testCaller = Caller{TenantID: testTenant, UserID: "user-1"}
	aug2025    = model.Period{Year: 2025, Month: 8}
	// 2025-08-29 12:00 America/Santiago（UTC-4）
	testNow = time.Date(2025, 8, 29, 16, 0, 0, 0, time.UTC)
)

func testRosterConfig() *config.RosterConfig {
	return &config.RosterConfig{
		Timezone:            "America/Santiago",
		DefaultOvertimeRate: "25000",
		HighPriorityDays:    1,
		MediumPriorityDays:  3,
		MonthlyViewCacheTTL: time.Minute,
	}
}

// recordingNotifier 记录推送事件
type recordingNotifier struct {
	mu     sync.Mutex
	events []dto.CellEvent
}

func (n *recordingNotifier) Publish(ev dto.CellEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
}

func (n *recordingNotifier) count(eventType string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	c := 0
	for _, ev := range n.events {
		if ev.Type == eventType {
			c++
		}
	}
	return c
}

// memoryViewCache 内存视图缓存
type memoryViewCache struct {
	mu   sync.Mutex
	data map[string][]byte
	hits int
}

func newMemoryViewCache() *memoryViewCache {
	return &memoryViewCache{data: make(map[string][]byte)}
}

func (c *memoryViewCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	if !ok {
		return nil, nil
	}
	c.hits++
	return v, nil
}

func (c *memoryViewCache) Set(_ context.Context, key string, val []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = val
	return nil
}

// testEnv 聚合所有 mock repo 与 service 便于 seed 数据
type testEnv struct {
	installs  *mockInstallationRepo
	guards    *mockGuardRepo
	posts     *mockPostRepo
	periods   *mockPeriodRepo
	cells     *mockCellRepo
	logs      *mockChangeLogRepo
	vacancies *mockVacancyRepo
	shifts    *mockShiftRepo
	batches   *mockBatchRepo
	rates     *mockRateRepo

	notifier *recordingNotifier
	cache    *memoryViewCache

	roster     *rosterService
	vacancy    *vacancyService
	coverage   *coverageService
	settlement *settlementService
	sync       *syncService
	export     ExportService
	calendar   *calendarService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		installs:  newMockInstallationRepo(),
		guards:    newMockGuardRepo(),
		posts:     newMockPostRepo(),
		periods:   newMockPeriodRepo(),
		cells:     newMockCellRepo(),
		logs:      newMockChangeLogRepo(),
		vacancies: newMockVacancyRepo(),
		shifts:    newMockShiftRepo(),
		batches:   newMockBatchRepo(),
		rates:     newMockRateRepo(),
		notifier:  &recordingNotifier{},
		cache:     newMemoryViewCache(),
	}
	tx := &memTx{env: env}
	repo := &repository.Repository{
		Installation: env.installs,
		Guard:        env.guards,
		Post:         env.posts,
		Period:       env.periods,
		Cell:         env.cells,
		ChangeLog:    env.logs,
		Vacancy:      env.vacancies,
		Shift:        env.shifts,
		Batch:        env.batches,
		Rate:         env.rates,
	}
	repo.WithTxRunner(tx.run)
	env.shifts.guards = env.guards
	cfg := testRosterConfig()
	logger := zap.NewNop()
	clock := func() time.Time { return testNow }

	env.roster = NewRosterService(repo, cfg, env.notifier, logger).(*rosterService)
	env.roster.now = clock
	env.vacancy = NewVacancyService(repo, cfg, logger).(*vacancyService)
	env.vacancy.now = clock
	env.coverage = NewCoverageService(repo, cfg, nil, env.notifier, logger).(*coverageService)
	env.coverage.now = clock
	env.settlement = NewSettlementService(repo, cfg, env.notifier, logger).(*settlementService)
	env.settlement.now = clock
	env.sync = NewSyncService(repo, cfg, env.cache, env.notifier, logger).(*syncService)
	env.sync.now = clock
	env.export = NewExportService(repo, logger)
	env.calendar = NewCalendarService(repo, cfg, logger).(*calendarService)
	env.calendar.now = clock

	seedRegistry(env)
	return env
}

// ── 内存事务 ──

// memTx 内存事务执行器：事务串行执行（等同行锁），fn 出错或 panic 时把各 mock 恢复到事务开始前
type memTx struct {
	mu  sync.Mutex
	env *testEnv
}

func (m *memTx) run(_ context.Context, repo *repository.Repository, fn func(tx *repository.Repository) error) (err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := m.env.snapshot()
	defer func() {
		if p := recover(); p != nil {
			m.env.restore(snap)
			panic(p)
		}
	}()

	// 事务内的嵌套事务直接执行
	tx := *repo
	tx.WithTxRunner(func(_ context.Context, r *repository.Repository, fn func(*repository.Repository) error) error {
		return fn(r)
	})
	if err = fn(&tx); err != nil {
		m.env.restore(snap)
	}
	return err
}

// memSnapshot 可变 mock 的值拷贝
type memSnapshot struct {
	periods   map[string]model.RosterPeriod
	cells     map[string]model.RosterCell
	logs      []model.RosterChangeLog
	vacancies map[string]model.Vacancy
	vacSeq    int
	shifts    map[string]model.OvertimeShift
	shiftSeq  int
	batches   map[string]model.PaymentBatch
	batchSeqs map[string]int
}

func copyValues[T any](src map[string]*T) map[string]T {
	dst := make(map[string]T, len(src))
	for k, v := range src {
		dst[k] = *v
	}
	return dst
}

func restoreValues[T any](dst map[string]*T, snap map[string]T) {
	clear(dst)
	for k, v := range snap {
		dst[k] = &v
	}
}

func (env *testEnv) snapshot() memSnapshot {
	var s memSnapshot

	env.periods.mu.Lock()
	s.periods = copyValues(env.periods.periods)
	env.periods.mu.Unlock()

	env.cells.mu.Lock()
	s.cells = copyValues(env.cells.cells)
	env.cells.mu.Unlock()

	env.logs.mu.Lock()
	s.logs = append([]model.RosterChangeLog(nil), env.logs.logs...)
	env.logs.mu.Unlock()

	env.vacancies.mu.Lock()
	s.vacancies, s.vacSeq = copyValues(env.vacancies.vacancies), env.vacancies.seq
	env.vacancies.mu.Unlock()

	env.shifts.mu.Lock()
	s.shifts, s.shiftSeq = copyValues(env.shifts.shifts), env.shifts.seq
	env.shifts.mu.Unlock()

	env.batches.mu.Lock()
	s.batches = copyValues(env.batches.batches)
	s.batchSeqs = make(map[string]int, len(env.batches.seqs))
	for k, v := range env.batches.seqs {
		s.batchSeqs[k] = v
	}
	env.batches.mu.Unlock()
	return s
}

func (env *testEnv) restore(s memSnapshot) {
	env.periods.mu.Lock()
	restoreValues(env.periods.periods, s.periods)
	env.periods.mu.Unlock()

	env.cells.mu.Lock()
	restoreValues(env.cells.cells, s.cells)
	env.cells.mu.Unlock()

	env.logs.mu.Lock()
	env.logs.logs = s.logs
	env.logs.mu.Unlock()

	env.vacancies.mu.Lock()
	restoreValues(env.vacancies.vacancies, s.vacancies)
	env.vacancies.seq = s.vacSeq
	env.vacancies.mu.Unlock()

	env.shifts.mu.Lock()
	restoreValues(env.shifts.shifts, s.shifts)
	env.shifts.seq = s.shiftSeq
	env.shifts.mu.Unlock()

	env.batches.mu.Lock()
	clear(env.batches.seqs)
	for k, v := range s.batchSeqs {
		env.batches.seqs[k] = v
	}
	restoreValues(env.batches.batches, s.batches)
	env.batches.mu.Unlock()
}

// seedRegistry 种子数据：1个安装点 + 3个岗位 + 5名保安
//   - post-p：默认保安 g-1，周日休息
//   - post-p2：默认保安 g-2，无休息日
//   - post-v：常设缺岗，无默认保安
func seedRegistry(env *testEnv) {
	env.installs.items["inst-1"] = &model.Installation{InstallationID: "inst-1", TenantID: testTenant, Name: "Mall Plaza Oeste"}

	for _, g := range []model.Guard{
		{GuardID: "g-1", Name: "Juan Pérez", RUT: "11.111.111-1", IsActive: true},
		{GuardID: "g-2", Name: "Ana Soto", RUT: "22.222.222-2", IsActive: true},
		{GuardID: "g-sub", Name: "Pedro Rojas", RUT: "33.333.333-3", IsActive: true},
		{GuardID: "g-sub2", Name: "María Díaz", RUT: "44.444.444-4", IsActive: true},
		{GuardID: "g-off", Name: "Luis Vera", RUT: "55.555.555-5", IsActive: false},
	} {
		g := g
		g.TenantID = testTenant
		env.guards.guards[g.GuardID] = &g
	}

	g1, g2 := "g-1", "g-2"
	env.posts.posts["post-p"] = &model.OperationalPost{
		PostID: "post-p", TenantID: testTenant, InstallationID: "inst-1", Name: "Acceso Norte",
		IsActive: true, DefaultGuardID: &g1, RestWeekdays: model.IntArray{0},
	}
	env.posts.posts["post-p2"] = &model.OperationalPost{
		PostID: "post-p2", TenantID: testTenant, InstallationID: "inst-1", Name: "Acceso Sur",
		IsActive: true, DefaultGuardID: &g2,
	}
	env.posts.posts["post-v"] = &model.OperationalPost{
		PostID: "post-v", TenantID: testTenant, InstallationID: "inst-1", Name: "Estacionamiento",
		IsActive: true, IsVacant: true,
	}
}

// generate 生成 2025-08 全部岗位排班
func (env *testEnv) generate(t *testing.T) *dto.GenerateRosterResponse {
	t.Helper()
	resp, err := env.roster.GenerateRoster(context.Background(), testCaller, &dto.GenerateRosterRequest{Year: 2025, Month: 8})
	if err != nil {
		t.Fatalf("GenerateRoster 应成功: %v", err)
	}
	return resp
}

func (env *testEnv) cell(t *testing.T, postID string, day int) *model.RosterCell {
	t.Helper()
	c, err := env.cells.GetByPostDateForUpdate(context.Background(), testTenant, postID, model.Date(2025, time.August, day))
	if err != nil {
		t.Fatalf("排班格 %s/%d 不存在: %v", postID, day, err)
	}
	return c
}

func (env *testEnv) markAbsent(t *testing.T, postID string, day int) *model.RosterCell {
	t.Helper()
	c := env.cell(t, postID, day)
	_, err := env.roster.MarkAttendance(context.Background(), testCaller, c.RosterCellID, &dto.MarkAttendanceRequest{Outcome: "absent"})
	if err != nil {
		t.Fatalf("标记缺勤应成功: %v", err)
	}
	return env.cell(t, postID, day)
}

func (env *testEnv) assign(t *testing.T, postID string, day int, guardID string) *dto.CoverageResponse {
	t.Helper()
	resp, err := env.coverage.AssignCoverage(context.Background(), testCaller, &dto.AssignCoverageRequest{
		PostID:            postID,
		Date:              model.Date(2025, time.August, day).Format(dto.DateLayout),
		SubstituteGuardID: guardID,
	})
	if err != nil {
		t.Fatalf("AssignCoverage %s/%d 应成功: %v", postID, day, err)
	}
	return resp
}

func (env *testEnv) createBatch(t *testing.T, shiftIDs ...string) *dto.PaymentBatchResponse {
	t.Helper()
	resp, err := env.settlement.CreateBatch(context.Background(), testCaller, &dto.CreateBatchRequest{ShiftIDs: shiftIDs})
	if err != nil {
		t.Fatalf("CreateBatch 应成功: %v", err)
	}
	return resp
}

// postDay 岗位 + 日期
type postDay struct {
	postID string
	date   string
}

// assertCoveragePartition 逐格检查启用岗位的每个排班日恰好落入一类：
// 休息日、有人在岗、或恰有一条 open 缺岗
func (env *testEnv) assertCoveragePartition(t *testing.T) {
	t.Helper()

	env.cells.mu.Lock()
	cells := make([]model.RosterCell, 0, len(env.cells.cells))
	for _, c := range env.cells.cells {
		cells = append(cells, *c)
	}
	env.cells.mu.Unlock()

	open := make(map[postDay]int)
	env.vacancies.mu.Lock()
	for _, v := range env.vacancies.vacancies {
		if v.Status == model.VacancyStatusOpen {
			open[postDay{v.PostID, v.WorkDate.Format(dto.DateLayout)}]++
		}
	}
	env.vacancies.mu.Unlock()

	active := func(postID string) bool {
		p, ok := env.posts.posts[postID]
		return ok && p.IsActive
	}

	for _, c := range cells {
		if !active(c.PostID) {
			continue
		}
		key := postDay{c.PostID, c.WorkDate.Format(dto.DateLayout)}
		n := open[key]
		delete(open, key)

		switch {
		case c.CoverageState == model.StateDayOff:
			if n != 0 || c.OccupantGuardID != nil {
				t.Errorf("%s %s 休息日不应有缺岗或在岗保安 (缺岗=%d)", key.postID, key.date, n)
			}
		case c.CoverageState.Occupied():
			if n != 0 || c.OccupantGuardID == nil {
				t.Errorf("%s %s 状态 %s 应有在岗保安且无缺岗 (缺岗=%d)", key.postID, key.date, c.CoverageState, n)
			}
		case c.CoverageState.Vacant():
			if n != 1 || c.OccupantGuardID != nil {
				t.Errorf("%s %s 状态 %s 应恰有一条 open 缺岗，实际 %d", key.postID, key.date, c.CoverageState, n)
			}
		default:
			t.Errorf("%s %s 未知状态 %s", key.postID, key.date, c.CoverageState)
		}
	}

	for key, n := range open {
		if active(key.postID) {
			t.Errorf("%s %s 有 %d 条 open 缺岗但没有对应排班格", key.postID, key.date, n)
		}
	}
}

// openVacancyIDs 当前 open 缺岗 ID 集合
func (env *testEnv) openVacancyIDs() map[string]bool {
	env.vacancies.mu.Lock()
	defer env.vacancies.mu.Unlock()
	ids := make(map[string]bool)
	for id, v := range env.vacancies.vacancies {
		if v.Status == model.VacancyStatusOpen {
			ids[id] = true
		}
	}
	return ids
}

// assertErr 断言错误链包含 want
func assertErr(t *testing.T, err, want error) {
	t.Helper()
	if err == nil {
		t.Fatalf("期望错误 %v，实际为 nil", want)
	}
	if !errors.Is(err, want) {
		t.Fatalf("期望错误 %v，实际=%v", want, err)
	}
}

func assertKind(t *testing.T, err error, want pkgerrors.Kind) {
	t.Helper()
	if got := pkgerrors.KindOf(err); got != want {
		t.Fatalf("期望错误类型 %s，实际=%s (%v)", want, got, err)
	}
}

func mustDecimal(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
