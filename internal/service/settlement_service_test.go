package service

import (
	"context"
	"testing"

	"github.com/Cryptobal/GardOps-sub016/internal/dto"
	"github.com/Cryptobal/GardOps-sub016/internal/model"
	pkgerrors "github.com/Cryptobal/GardOps-sub016/pkg/errors"
)

// seedShifts 生成排班并产生三条加班：post-p/30 顶班、post-v/10、post-v/20
func seedShifts(t *testing.T) (*testEnv, []string) {
	t.Helper()
	env := newTestEnv(t)
	env.generate(t)
	env.markAbsent(t, "post-p", 30)
	ids := []string{
		env.assign(t, "post-p", 30, "g-sub").Shift.ID,
		env.assign(t, "post-v", 10, "g-sub").Shift.ID,
		env.assign(t, "post-v", 20, "g-sub2").Shift.ID,
	}
	return env, ids
}

// ════════════════════════════════════════════════════════════
// CreateBatch
// ════════════════════════════════════════════════════════════

func TestSettlementService_CreateBatch_Success(t *testing.T) {
	env, ids := seedShifts(t)

	b := env.createBatch(t, ids[0], ids[1])
	if b.Code != "TE-2025-08-0001" {
		t.Errorf("期望编号 TE-2025-08-0001，实际=%s", b.Code)
	}
	if b.State != string(model.BatchPending) || b.ShiftCount != 2 {
		t.Errorf("批次状态不符: %+v", b)
	}
	if !b.TotalAmount.Equal(mustDecimal("50000")) {
		t.Errorf("期望合计 50000，实际=%s", b.TotalAmount)
	}
	for _, sh := range b.Shifts {
		if sh.PaymentBatchID == nil || *sh.PaymentBatchID != b.ID {
			t.Errorf("加班 %s 应挂接到批次", sh.ID)
		}
	}

	second := env.createBatch(t, ids[2])
	if second.Code != "TE-2025-08-0002" {
		t.Errorf("期望编号递增为 TE-2025-08-0002，实际=%s", second.Code)
	}
}

func TestSettlementService_CreateBatch_Rejections(t *testing.T) {
	env, ids := seedShifts(t)
	ctx := context.Background()
	create := func(shiftIDs ...string) error {
		_, err := env.settlement.CreateBatch(ctx, testCaller, &dto.CreateBatchRequest{ShiftIDs: shiftIDs})
		return err
	}

	assertErr(t, create(), ErrEmptyBatch)
	assertErr(t, create(ids[0], ids[0]), ErrDuplicateShift)

	err := create(ids[0], "shift-missing")
	assertErr(t, err, ErrShiftNotFound)
	assertKind(t, err, pkgerrors.KindNotFound)

	// 撤销后加班作废
	cell := env.cell(t, "post-v", 20)
	if _, err := env.coverage.RevokeSubstitute(ctx, testCaller, cell.RosterCellID, &dto.RevokeSubstituteRequest{}); err != nil {
		t.Fatalf("RevokeSubstitute 应成功: %v", err)
	}
	err = create(ids[2])
	assertErr(t, err, ErrShiftVoided)
	assertKind(t, err, pkgerrors.KindConflict)

	env.createBatch(t, ids[0])
	err = create(ids[0], ids[1])
	assertErr(t, err, ErrShiftAlreadyBatched)

	// 拒绝后 ids[1] 不应被挂接
	sh, _ := env.shifts.GetByID(ctx, testTenant, ids[1])
	if sh.PaymentBatchID != nil {
		t.Error("失败的批次不应挂接任何加班")
	}
}

// ════════════════════════════════════════════════════════════
// MarkBatchPaid
// ════════════════════════════════════════════════════════════

func TestSettlementService_MarkBatchPaid(t *testing.T) {
	env, ids := seedShifts(t)
	b := env.createBatch(t, ids[0], ids[1])

	paid, err := env.settlement.MarkBatchPaid(context.Background(), testCaller, b.ID)
	if err != nil {
		t.Fatalf("MarkBatchPaid 应成功: %v", err)
	}
	if paid.State != string(model.BatchPaid) || paid.PaidAt == nil {
		t.Errorf("批次应为 paid: %+v", paid)
	}
	for _, sh := range paid.Shifts {
		if !sh.Paid || !sh.Preserved || sh.PaymentDate == nil {
			t.Errorf("加班 %s 应已支付并保全", sh.ID)
		}
	}
	if got := env.notifier.count("cell.changed"); got < 2 {
		t.Errorf("支付后应推送排班格变更，实际=%d", got)
	}

	// 未入批的加班不受影响
	other, _ := env.shifts.GetByID(context.Background(), testTenant, ids[2])
	if other.Paid {
		t.Error("未入批的加班不应被标记支付")
	}
}

// 重复支付：第二次返回 Conflict，金额与支付时间不变
func TestSettlementService_MarkBatchPaid_Twice(t *testing.T) {
	env, ids := seedShifts(t)
	b := env.createBatch(t, ids[0], ids[1])
	ctx := context.Background()

	first, err := env.settlement.MarkBatchPaid(ctx, testCaller, b.ID)
	if err != nil {
		t.Fatalf("首次支付应成功: %v", err)
	}

	_, err = env.settlement.MarkBatchPaid(ctx, testCaller, b.ID)
	assertErr(t, err, ErrBatchAlreadyPaid)
	assertKind(t, err, pkgerrors.KindConflict)

	again, err := env.settlement.GetBatch(ctx, testCaller, b.ID)
	if err != nil {
		t.Fatalf("GetBatch 应成功: %v", err)
	}
	if !again.TotalAmount.Equal(first.TotalAmount) || *again.PaidAt != *first.PaidAt || again.Version != first.Version {
		t.Error("重复支付不应改变批次")
	}
	if len(again.Shifts) != 2 {
		t.Errorf("期望 2 条加班，实际=%d", len(again.Shifts))
	}
}

func TestSettlementService_PaidShiftIsPreserved(t *testing.T) {
	env, ids := seedShifts(t)
	b := env.createBatch(t, ids[0])
	if _, err := env.settlement.MarkBatchPaid(context.Background(), testCaller, b.ID); err != nil {
		t.Fatalf("MarkBatchPaid 应成功: %v", err)
	}

	cell := env.cell(t, "post-p", 30)
	_, err := env.coverage.RevokeSubstitute(context.Background(), testCaller, cell.RosterCellID, &dto.RevokeSubstituteRequest{})
	assertErr(t, err, ErrShiftPreserved)
	if env.cell(t, "post-p", 30).CoverageState != model.StateCovered {
		t.Error("已支付的顶班排班格不应回退")
	}
}

// ════════════════════════════════════════════════════════════
// DeleteBatch
// ════════════════════════════════════════════════════════════

func TestSettlementService_DeleteBatch_ReleasesShifts(t *testing.T) {
	env, ids := seedShifts(t)
	ctx := context.Background()
	b := env.createBatch(t, ids[0], ids[1])

	if err := env.settlement.DeleteBatch(ctx, testCaller, b.ID); err != nil {
		t.Fatalf("DeleteBatch 应成功: %v", err)
	}
	_, err := env.settlement.GetBatch(ctx, testCaller, b.ID)
	assertErr(t, err, ErrBatchNotFound)

	for _, id := range ids[:2] {
		sh, _ := env.shifts.GetByID(ctx, testTenant, id)
		if sh.PaymentBatchID != nil {
			t.Errorf("加班 %s 应已释放", id)
		}
	}

	// 释放后可重新入批，编号继续递增
	again := env.createBatch(t, ids[0], ids[1])
	if again.Code != "TE-2025-08-0002" {
		t.Errorf("期望编号 TE-2025-08-0002，实际=%s", again.Code)
	}
}

func TestSettlementService_DeleteBatch_PaidRejected(t *testing.T) {
	env, ids := seedShifts(t)
	ctx := context.Background()
	b := env.createBatch(t, ids[0])
	if _, err := env.settlement.MarkBatchPaid(ctx, testCaller, b.ID); err != nil {
		t.Fatalf("MarkBatchPaid 应成功: %v", err)
	}

	err := env.settlement.DeleteBatch(ctx, testCaller, b.ID)
	assertErr(t, err, ErrBatchAlreadyPaid)
	assertKind(t, err, pkgerrors.KindConflict)

	err = env.settlement.DeleteBatch(ctx, testCaller, "batch-missing")
	assertErr(t, err, ErrBatchNotFound)
}

// ════════════════════════════════════════════════════════════
// 查询
// ════════════════════════════════════════════════════════════

func TestSettlementService_ListUnbatchedShifts(t *testing.T) {
	env, ids := seedShifts(t)
	env.createBatch(t, ids[0])

	resp, err := env.settlement.ListUnbatchedShifts(context.Background(), testCaller, &dto.UnbatchedShiftListRequest{Year: 2025, Month: 8})
	if err != nil {
		t.Fatalf("ListUnbatchedShifts 应成功: %v", err)
	}
	if resp.Count != 2 || !resp.TotalAmount.Equal(mustDecimal("50000")) {
		t.Errorf("期望 2 条共 50000，实际=%d/%s", resp.Count, resp.TotalAmount)
	}
	if resp.Period != "2025-08" {
		t.Errorf("期望周期 2025-08，实际=%s", resp.Period)
	}

	byPost, err := env.settlement.ListUnbatchedShifts(context.Background(), testCaller, &dto.UnbatchedShiftListRequest{Year: 2025, Month: 8, PostID: "post-p"})
	if err != nil {
		t.Fatalf("ListUnbatchedShifts 应成功: %v", err)
	}
	if byPost.Count != 0 {
		t.Errorf("post-p 的加班已入批，期望 0，实际=%d", byPost.Count)
	}

	_, err = env.settlement.ListUnbatchedShifts(context.Background(), testCaller, &dto.UnbatchedShiftListRequest{Year: 2025, Month: 13})
	assertErr(t, err, ErrInvalidPeriod)
}

func TestSettlementService_ListBatches(t *testing.T) {
	env, ids := seedShifts(t)
	ctx := context.Background()
	first := env.createBatch(t, ids[0])
	env.createBatch(t, ids[1])
	if _, err := env.settlement.MarkBatchPaid(ctx, testCaller, first.ID); err != nil {
		t.Fatalf("MarkBatchPaid 应成功: %v", err)
	}

	all, total, err := env.settlement.ListBatches(ctx, testCaller, &dto.BatchListRequest{})
	if err != nil {
		t.Fatalf("ListBatches 应成功: %v", err)
	}
	if total != 2 || len(all) != 2 {
		t.Fatalf("期望 2 个批次，实际=%d", total)
	}
	if all[0].Code != "TE-2025-08-0002" {
		t.Errorf("期望按编号倒序，首个为 %s", all[0].Code)
	}

	paid, total, err := env.settlement.ListBatches(ctx, testCaller, &dto.BatchListRequest{State: "paid"})
	if err != nil {
		t.Fatalf("ListBatches 应成功: %v", err)
	}
	if total != 1 || paid[0].ID != first.ID {
		t.Error("按状态过滤应只返回已支付批次")
	}
}
