package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/Cryptobal/GardOps-sub016/internal/model"
	"github.com/Cryptobal/GardOps-sub016/internal/repository"
	pkgerrors "github.com/Cryptobal/GardOps-sub016/pkg/errors"
)

// 内存 mock 均存储值副本，调用方修改返回对象不会写穿，需经 Update 落库；
// 部分唯一索引与版本号校验按数据库约束模拟

// ── Mock InstallationRepository ──

type mockInstallationRepo struct {
	items map[string]*model.Installation
}

func newMockInstallationRepo() *mockInstallationRepo {
	return &mockInstallationRepo{items: make(map[string]*model.Installation)}
}

func (m *mockInstallationRepo) GetByID(_ context.Context, tenantID, id string) (*model.Installation, error) {
	if i, ok := m.items[id]; ok && i.TenantID == tenantID {
		cp := *i
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

// ── Mock GuardRepository ──

type mockGuardRepo struct {
	guards map[string]*model.Guard
}

func newMockGuardRepo() *mockGuardRepo {
	return &mockGuardRepo{guards: make(map[string]*model.Guard)}
}

func (m *mockGuardRepo) GetByID(_ context.Context, tenantID, id string) (*model.Guard, error) {
	if g, ok := m.guards[id]; ok && g.TenantID == tenantID {
		cp := *g
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockGuardRepo) ListByIDs(_ context.Context, tenantID string, ids []string) ([]model.Guard, error) {
	var result []model.Guard
	for _, id := range ids {
		if g, ok := m.guards[id]; ok && g.TenantID == tenantID {
			result = append(result, *g)
		}
	}
	return result, nil
}

// ── Mock PostRepository ──

type mockPostRepo struct {
	posts map[string]*model.OperationalPost
}

func newMockPostRepo() *mockPostRepo {
	return &mockPostRepo{posts: make(map[string]*model.OperationalPost)}
}

func (m *mockPostRepo) GetByID(_ context.Context, tenantID, id string) (*model.OperationalPost, error) {
	if p, ok := m.posts[id]; ok && p.TenantID == tenantID {
		cp := *p
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockPostRepo) List(_ context.Context, tenantID string, activeOnly bool) ([]model.OperationalPost, error) {
	var result []model.OperationalPost
	for _, p := range m.posts {
		if p.TenantID != tenantID || (activeOnly && !p.IsActive) {
			continue
		}
		result = append(result, *p)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].PostID < result[j].PostID })
	return result, nil
}

func (m *mockPostRepo) ListByInstallation(_ context.Context, tenantID, installationID string) ([]model.OperationalPost, error) {
	var result []model.OperationalPost
	for _, p := range m.posts {
		if p.TenantID == tenantID && p.InstallationID == installationID {
			result = append(result, *p)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].PostID < result[j].PostID })
	return result, nil
}

// ── Mock RosterPeriodRepository ──

type mockPeriodRepo struct {
	mu      sync.Mutex
	periods map[string]*model.RosterPeriod // tenant:yyyy-mm
}

func newMockPeriodRepo() *mockPeriodRepo {
	return &mockPeriodRepo{periods: make(map[string]*model.RosterPeriod)}
}

func periodKey(tenantID string, year, month int) string {
	return fmt.Sprintf("%s:%04d-%02d", tenantID, year, month)
}

func (m *mockPeriodRepo) get(tenantID string, year, month int) (*model.RosterPeriod, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.periods[periodKey(tenantID, year, month)]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockPeriodRepo) GetForShare(_ context.Context, tenantID string, year, month int) (*model.RosterPeriod, error) {
	return m.get(tenantID, year, month)
}

func (m *mockPeriodRepo) GetForUpdate(_ context.Context, tenantID string, year, month int) (*model.RosterPeriod, error) {
	return m.get(tenantID, year, month)
}

func (m *mockPeriodRepo) Ensure(_ context.Context, tenantID string, year, month int, _ string) (*model.RosterPeriod, error) {
	m.mu.Lock()
	key := periodKey(tenantID, year, month)
	if _, ok := m.periods[key]; !ok {
		m.periods[key] = &model.RosterPeriod{
			PeriodID: "period-" + key,
			TenantID: tenantID,
			Year:     year,
			Month:    month,
			Status:   model.PeriodStatusOpen,
		}
	}
	m.mu.Unlock()
	return m.get(tenantID, year, month)
}

func (m *mockPeriodRepo) Update(_ context.Context, period *model.RosterPeriod) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *period
	m.periods[periodKey(period.TenantID, period.Year, period.Month)] = &cp
	return nil
}

// ── Mock RosterCellRepository ──

type mockCellRepo struct {
	mu    sync.Mutex
	cells map[string]*model.RosterCell
}

func newMockCellRepo() *mockCellRepo {
	return &mockCellRepo{cells: make(map[string]*model.RosterCell)}
}

func (m *mockCellRepo) BatchCreate(_ context.Context, cells []model.RosterCell) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	// uq (post_id, work_date)
	for i := range cells {
		for _, c := range m.cells {
			if c.PostID == cells[i].PostID && c.WorkDate.Equal(cells[i].WorkDate) {
				return gorm.ErrDuplicatedKey
			}
		}
	}
	for i := range cells {
		if cells[i].RosterCellID == "" {
			cells[i].RosterCellID = fmt.Sprintf("cell-%s-%s", cells[i].PostID, cells[i].WorkDate.Format("20060102"))
		}
		if cells[i].Version == 0 {
			cells[i].Version = 1
		}
		cp := cells[i]
		m.cells[cp.RosterCellID] = &cp
	}
	return nil
}

func (m *mockCellRepo) CountByPostPeriod(_ context.Context, tenantID, postID string, year, month int) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, c := range m.cells {
		if c.TenantID == tenantID && c.PostID == postID && c.Year == year && c.Month == month {
			n++
		}
	}
	return n, nil
}

func (m *mockCellRepo) GetByID(_ context.Context, tenantID, id string) (*model.RosterCell, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.cells[id]; ok && c.TenantID == tenantID {
		cp := *c
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockCellRepo) GetForUpdate(ctx context.Context, tenantID, id string) (*model.RosterCell, error) {
	return m.GetByID(ctx, tenantID, id)
}

func (m *mockCellRepo) GetByPostDateForUpdate(_ context.Context, tenantID, postID string, date time.Time) (*model.RosterCell, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.cells {
		if c.TenantID == tenantID && c.PostID == postID && c.WorkDate.Equal(date) {
			cp := *c
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockCellRepo) FindOccupied(_ context.Context, tenantID, guardID string, date time.Time) (*model.RosterCell, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.cells {
		if c.TenantID == tenantID && c.OccupantGuardID != nil && *c.OccupantGuardID == guardID && c.WorkDate.Equal(date) {
			cp := *c
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockCellRepo) Update(_ context.Context, cell *model.RosterCell) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.cells[cell.RosterCellID]
	if !ok || cur.Version != cell.Version {
		return pkgerrors.ErrOptimisticLock
	}
	// uq (tenant_id, occupant_guard_id, work_date) WHERE occupant_guard_id IS NOT NULL
	if cell.OccupantGuardID != nil {
		for id, c := range m.cells {
			if id != cell.RosterCellID && c.TenantID == cell.TenantID && c.OccupantGuardID != nil &&
				*c.OccupantGuardID == *cell.OccupantGuardID && c.WorkDate.Equal(cell.WorkDate) {
				return fmt.Errorf("update roster_cells: %w", gorm.ErrDuplicatedKey)
			}
		}
	}
	cell.Version++
	cp := *cell
	m.cells[cell.RosterCellID] = &cp
	return nil
}

func (m *mockCellRepo) list(match func(c *model.RosterCell) bool) []model.RosterCell {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.RosterCell
	for _, c := range m.cells {
		if match(c) {
			result = append(result, *c)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].PostID != result[j].PostID {
			return result[i].PostID < result[j].PostID
		}
		return result[i].WorkDate.Before(result[j].WorkDate)
	})
	return result
}

func (m *mockCellRepo) ListByPeriodForUpdate(_ context.Context, tenantID string, year, month int) ([]model.RosterCell, error) {
	return m.list(func(c *model.RosterCell) bool {
		return c.TenantID == tenantID && c.Year == year && c.Month == month
	}), nil
}

func (m *mockCellRepo) ListByPostPeriod(_ context.Context, tenantID, postID string, year, month int) ([]model.RosterCell, error) {
	return m.list(func(c *model.RosterCell) bool {
		return c.TenantID == tenantID && c.PostID == postID && c.Year == year && c.Month == month
	}), nil
}

func (m *mockCellRepo) ListByInstallationDate(_ context.Context, tenantID, installationID string, date time.Time) ([]model.RosterCell, error) {
	return m.list(func(c *model.RosterCell) bool {
		return c.TenantID == tenantID && c.InstallationID == installationID && c.WorkDate.Equal(date)
	}), nil
}

func (m *mockCellRepo) Revision(_ context.Context, tenantID, postID string, year, month int) (repository.Revision, error) {
	var rev repository.Revision
	for _, c := range m.list(func(c *model.RosterCell) bool {
		return c.TenantID == tenantID && c.PostID == postID && c.Year == year && c.Month == month
	}) {
		rev.Rows++
		rev.VersionSum += int64(c.Version)
	}
	return rev, nil
}

// ── Mock RosterChangeLogRepository ──

type mockChangeLogRepo struct {
	mu   sync.Mutex
	logs []model.RosterChangeLog

	failCreate error // 非 nil 时 Create 返回该错误
}

func newMockChangeLogRepo() *mockChangeLogRepo {
	return &mockChangeLogRepo{}
}

func (m *mockChangeLogRepo) Create(_ context.Context, log *model.RosterChangeLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failCreate != nil {
		return m.failCreate
	}
	log.ChangeLogID = fmt.Sprintf("log-%d", len(m.logs)+1)
	m.logs = append(m.logs, *log)
	return nil
}

func (m *mockChangeLogRepo) ListByCell(_ context.Context, tenantID, cellID string) ([]model.RosterChangeLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.RosterChangeLog
	for _, l := range m.logs {
		if l.TenantID == tenantID && l.RosterCellID == cellID {
			result = append(result, l)
		}
	}
	return result, nil
}

// ── Mock VacancyRepository ──

type mockVacancyRepo struct {
	mu        sync.Mutex
	vacancies map[string]*model.Vacancy
	seq       int
}

func newMockVacancyRepo() *mockVacancyRepo {
	return &mockVacancyRepo{vacancies: make(map[string]*model.Vacancy)}
}

func (m *mockVacancyRepo) Create(_ context.Context, v *model.Vacancy) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	// ON CONFLICT (post_id, work_date) WHERE status = 'open' DO NOTHING
	for _, cur := range m.vacancies {
		if cur.Status == model.VacancyStatusOpen && cur.PostID == v.PostID && cur.WorkDate.Equal(v.WorkDate) {
			return false, nil
		}
	}
	m.seq++
	v.VacancyID = fmt.Sprintf("vac-%d", m.seq)
	cp := *v
	m.vacancies[v.VacancyID] = &cp
	return true, nil
}

func (m *mockVacancyRepo) GetOpenByPostDate(_ context.Context, tenantID, postID string, date time.Time) (*model.Vacancy, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, v := range m.vacancies {
		if v.TenantID == tenantID && v.PostID == postID && v.WorkDate.Equal(date) && v.Status == model.VacancyStatusOpen {
			cp := *v
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockVacancyRepo) Update(_ context.Context, v *model.Vacancy) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *v
	m.vacancies[v.VacancyID] = &cp
	return nil
}

func (m *mockVacancyRepo) List(_ context.Context, tenantID string, f repository.VacancyFilter, offset, limit int) ([]model.Vacancy, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.Vacancy
	for _, v := range m.vacancies {
		if v.TenantID != tenantID ||
			(f.Status != "" && v.Status != f.Status) ||
			(f.PostID != "" && v.PostID != f.PostID) ||
			(f.Priority != "" && v.Priority != f.Priority) ||
			(!f.From.IsZero() && v.WorkDate.Before(f.From)) ||
			(!f.To.IsZero() && v.WorkDate.After(f.To)) {
			continue
		}
		result = append(result, *v)
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].WorkDate.Equal(result[j].WorkDate) {
			return result[i].WorkDate.Before(result[j].WorkDate)
		}
		return result[i].PostID < result[j].PostID
	})
	total := int64(len(result))
	if limit > 0 {
		if offset > len(result) {
			offset = len(result)
		}
		end := offset + limit
		if end > len(result) {
			end = len(result)
		}
		result = result[offset:end]
	}
	return result, total, nil
}

func (m *mockVacancyRepo) Revision(_ context.Context, tenantID, postID string, from, to time.Time) (repository.Revision, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var rev repository.Revision
	for _, v := range m.vacancies {
		if v.TenantID == tenantID && v.PostID == postID && !v.WorkDate.Before(from) && !v.WorkDate.After(to) {
			rev.Rows++
			if v.Status == model.VacancyStatusResolved {
				rev.VersionSum++
			}
		}
	}
	return rev, nil
}

// openCount 测试辅助：当前 open 缺岗数量
func (m *mockVacancyRepo) openCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, v := range m.vacancies {
		if v.Status == model.VacancyStatusOpen {
			n++
		}
	}
	return n
}

// ── Mock OvertimeShiftRepository ──

type mockShiftRepo struct {
	mu     sync.Mutex
	shifts map[string]*model.OvertimeShift
	seq    int
	guards *mockGuardRepo // 模拟 Preload("SubstituteGuard")
}

func newMockShiftRepo() *mockShiftRepo {
	return &mockShiftRepo{shifts: make(map[string]*model.OvertimeShift)}
}

func (m *mockShiftRepo) Create(_ context.Context, shift *model.OvertimeShift) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	// uq (roster_cell_id) WHERE deleted_at IS NULL
	for _, s := range m.shifts {
		if s.RosterCellID == shift.RosterCellID && !s.DeletedAt.Valid {
			return fmt.Errorf("insert overtime_shifts: %w", gorm.ErrDuplicatedKey)
		}
	}
	m.seq++
	shift.ShiftID = fmt.Sprintf("shift-%d", m.seq)
	if shift.Version == 0 {
		shift.Version = 1
	}
	cp := *shift
	m.shifts[shift.ShiftID] = &cp
	return nil
}

func (m *mockShiftRepo) GetByID(_ context.Context, tenantID, id string) (*model.OvertimeShift, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.shifts[id]; ok && s.TenantID == tenantID && !s.DeletedAt.Valid {
		cp := *s
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockShiftRepo) GetActiveByCell(_ context.Context, tenantID, cellID string) (*model.OvertimeShift, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.shifts {
		if s.TenantID == tenantID && s.RosterCellID == cellID && !s.DeletedAt.Valid {
			cp := *s
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockShiftRepo) GetActiveByCellForUpdate(ctx context.Context, tenantID, cellID string) (*model.OvertimeShift, error) {
	return m.GetActiveByCell(ctx, tenantID, cellID)
}

func (m *mockShiftRepo) ListByIDsForUpdate(_ context.Context, tenantID string, ids []string) ([]model.OvertimeShift, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.OvertimeShift
	for _, id := range ids {
		if s, ok := m.shifts[id]; ok && s.TenantID == tenantID {
			result = append(result, *s)
		}
	}
	return result, nil
}

func (m *mockShiftRepo) ListByBatch(ctx context.Context, tenantID, batchID string) ([]model.OvertimeShift, error) {
	result := m.list(func(s *model.OvertimeShift) bool {
		return s.TenantID == tenantID && s.PaymentBatchID != nil && *s.PaymentBatchID == batchID
	})
	if m.guards != nil {
		for i := range result {
			if g, err := m.guards.GetByID(ctx, tenantID, result[i].SubstituteGuardID); err == nil {
				result[i].SubstituteGuard = g
			}
		}
	}
	return result, nil
}

func (m *mockShiftRepo) List(_ context.Context, tenantID string, f repository.ShiftFilter) ([]model.OvertimeShift, error) {
	return m.list(func(s *model.OvertimeShift) bool {
		return s.TenantID == tenantID && !s.DeletedAt.Valid &&
			(f.PostID == "" || s.PostID == f.PostID) &&
			(f.InstallationID == "" || s.InstallationID == f.InstallationID) &&
			(f.GuardID == "" || s.SubstituteGuardID == f.GuardID) &&
			(f.From.IsZero() || !s.WorkDate.Before(f.From)) &&
			(f.To.IsZero() || !s.WorkDate.After(f.To)) &&
			(!f.UnbatchedOnly || (s.PaymentBatchID == nil && !s.Paid))
	}), nil
}

func (m *mockShiftRepo) list(match func(s *model.OvertimeShift) bool) []model.OvertimeShift {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.OvertimeShift
	for _, s := range m.shifts {
		if match(s) {
			result = append(result, *s)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ShiftID < result[j].ShiftID })
	return result
}

func (m *mockShiftRepo) AttachToBatch(_ context.Context, tenantID string, ids []string, batchID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, id := range ids {
		s, ok := m.shifts[id]
		if !ok || s.TenantID != tenantID || s.PaymentBatchID != nil || s.Paid || s.DeletedAt.Valid {
			continue
		}
		b := batchID
		s.PaymentBatchID = &b
		s.Version++
		n++
	}
	return n, nil
}

func (m *mockShiftRepo) MarkPaidByBatch(_ context.Context, tenantID, batchID string, paidAt time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, s := range m.shifts {
		if s.TenantID == tenantID && s.PaymentBatchID != nil && *s.PaymentBatchID == batchID {
			at := paidAt
			s.Paid, s.Preserved, s.PaymentDate = true, true, &at
			s.Version++
			n++
		}
	}
	return n, nil
}

func (m *mockShiftRepo) ReleaseBatch(_ context.Context, tenantID, batchID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, s := range m.shifts {
		if s.TenantID == tenantID && s.PaymentBatchID != nil && *s.PaymentBatchID == batchID && !s.Paid {
			s.PaymentBatchID = nil
			s.Version++
			n++
		}
	}
	return n, nil
}

func (m *mockShiftRepo) Void(_ context.Context, shift *model.OvertimeShift, reason, operatorID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.shifts[shift.ShiftID]
	if !ok || cur.Version != shift.Version || cur.Preserved || cur.PaymentBatchID != nil || cur.DeletedAt.Valid {
		return pkgerrors.ErrOptimisticLock
	}
	shift.Version++
	shift.VoidReason = reason
	shift.DeletedAt = gorm.DeletedAt{Time: time.Now(), Valid: true}
	shift.DeletedBy = &operatorID
	cp := *shift
	m.shifts[shift.ShiftID] = &cp
	return nil
}

func (m *mockShiftRepo) Revision(_ context.Context, tenantID, postID string, from, to time.Time) (repository.Revision, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var rev repository.Revision
	for _, s := range m.shifts {
		if s.TenantID == tenantID && s.PostID == postID && !s.WorkDate.Before(from) && !s.WorkDate.After(to) {
			rev.Rows++
			rev.VersionSum += int64(s.Version)
		}
	}
	return rev, nil
}

// active 测试辅助：某排班格的未作废加班
func (m *mockShiftRepo) active(cellID string) []model.OvertimeShift {
	return m.list(func(s *model.OvertimeShift) bool { return s.RosterCellID == cellID && !s.DeletedAt.Valid })
}

// ── Mock PaymentBatchRepository ──

type mockBatchRepo struct {
	mu      sync.Mutex
	batches map[string]*model.PaymentBatch
	seqs    map[string]int
}

func newMockBatchRepo() *mockBatchRepo {
	return &mockBatchRepo{batches: make(map[string]*model.PaymentBatch), seqs: make(map[string]int)}
}

func (m *mockBatchRepo) NextSequence(_ context.Context, tenantID string, year, month int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := periodKey(tenantID, year, month)
	m.seqs[key]++
	return m.seqs[key], nil
}

func (m *mockBatchRepo) Create(_ context.Context, batch *model.PaymentBatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.batches {
		if b.TenantID == batch.TenantID && b.Code == batch.Code {
			return gorm.ErrDuplicatedKey
		}
	}
	cp := *batch
	cp.Shifts = nil
	m.batches[batch.BatchID] = &cp
	return nil
}

func (m *mockBatchRepo) GetByID(_ context.Context, tenantID, id string) (*model.PaymentBatch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b, ok := m.batches[id]; ok && b.TenantID == tenantID {
		cp := *b
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockBatchRepo) GetForUpdate(ctx context.Context, tenantID, id string) (*model.PaymentBatch, error) {
	return m.GetByID(ctx, tenantID, id)
}

func (m *mockBatchRepo) Update(_ context.Context, batch *model.PaymentBatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.batches[batch.BatchID]
	if !ok || cur.Version != batch.Version {
		return pkgerrors.ErrOptimisticLock
	}
	batch.Version++
	cp := *batch
	cp.Shifts = nil
	m.batches[batch.BatchID] = &cp
	return nil
}

func (m *mockBatchRepo) Delete(_ context.Context, batch *model.PaymentBatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.batches[batch.BatchID]
	if !ok || cur.Version != batch.Version || cur.State != model.BatchPending {
		return pkgerrors.ErrOptimisticLock
	}
	delete(m.batches, batch.BatchID)
	return nil
}

func (m *mockBatchRepo) List(_ context.Context, tenantID string, state model.BatchState, offset, limit int) ([]model.PaymentBatch, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.PaymentBatch
	for _, b := range m.batches {
		if b.TenantID == tenantID && (state == "" || b.State == state) {
			result = append(result, *b)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Code > result[j].Code })
	total := int64(len(result))
	if offset > len(result) {
		offset = len(result)
	}
	end := offset + limit
	if limit <= 0 || end > len(result) {
		end = len(result)
	}
	return result[offset:end], total, nil
}

// ── Mock OvertimeRateRepository ──

type mockRateRepo struct {
	rates []model.OvertimeRate
}

func newMockRateRepo() *mockRateRepo {
	return &mockRateRepo{}
}

func (m *mockRateRepo) FindEffective(_ context.Context, tenantID, postID, installationID string, date time.Time) (*model.OvertimeRate, error) {
	var best *model.OvertimeRate
	score := func(r *model.OvertimeRate) int {
		n := 0
		if r.PostID != nil {
			n += 2
		}
		if r.InstallationID != nil {
			n++
		}
		return n
	}
	for i := range m.rates {
		r := &m.rates[i]
		if r.TenantID != tenantID || r.EffectiveFrom.After(date) ||
			(r.PostID != nil && *r.PostID != postID) ||
			(r.InstallationID != nil && *r.InstallationID != installationID) {
			continue
		}
		if best == nil || score(r) > score(best) ||
			(score(r) == score(best) && r.EffectiveFrom.After(best.EffectiveFrom)) {
			best = r
		}
	}
	if best == nil {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *best
	return &cp, nil
}
