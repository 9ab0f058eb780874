package service

import (
	pkgerrors "github.com/Cryptobal/GardOps-sub016/pkg/errors"
)

// 错误码：前两位为模块号（20 排班 / 21 缺岗 / 22 顶班 / 23 结算 / 24 视图），
// 第三位 0=参数 4=不存在 9=冲突

// ── 通用 ──

var (
	ErrTenantRequired = pkgerrors.New(pkgerrors.KindValidation, 10010, "tenant_required", "缺少租户上下文")
	ErrInvalidDate    = pkgerrors.New(pkgerrors.KindValidation, 10011, "invalid_date", "日期格式无效，应为 YYYY-MM-DD")
)

// ── 排班模块业务错误 ──

var (
	ErrInvalidPeriod          = pkgerrors.New(pkgerrors.KindValidation, 20001, "invalid_period", "排班周期无效")
	ErrPeriodClosed           = pkgerrors.New(pkgerrors.KindValidation, 20002, "period_closed", "排班周期已关闭，不可修改")
	ErrInvalidRestPattern     = pkgerrors.New(pkgerrors.KindValidation, 20003, "invalid_rest_pattern", "岗位休息规则无效")
	ErrPostInactive           = pkgerrors.New(pkgerrors.KindValidation, 20004, "post_inactive", "岗位已停用")
	ErrInvalidAbsenceReason   = pkgerrors.New(pkgerrors.KindValidation, 20005, "invalid_absence_reason", "缺勤原因无效")
	ErrInvalidOutcome         = pkgerrors.New(pkgerrors.KindValidation, 20006, "invalid_outcome", "出勤结果无效")
	ErrCellNotFound           = pkgerrors.New(pkgerrors.KindNotFound, 20401, "cell_not_found", "排班格不存在")
	ErrPostNotFound           = pkgerrors.New(pkgerrors.KindNotFound, 20402, "post_not_found", "岗位不存在")
	ErrPeriodNotFound         = pkgerrors.New(pkgerrors.KindNotFound, 20403, "period_not_found", "排班周期不存在")
	ErrRosterAlreadyGenerated = pkgerrors.New(pkgerrors.KindConflict, 20901, "roster_already_generated", "该岗位本月排班已生成")
	ErrInvalidTransition      = pkgerrors.New(pkgerrors.KindConflict, 20902, "invalid_transition", "当前状态不允许该操作")
	ErrGuardDoubleBooked      = pkgerrors.New(pkgerrors.KindConflict, 20903, "guard_double_booked", "该保安当日已在其他岗位值守")
	ErrPeriodAlreadyClosed    = pkgerrors.New(pkgerrors.KindConflict, 20904, "period_already_closed", "排班周期已关闭")
	ErrCellVersionMismatch    = pkgerrors.New(pkgerrors.KindConflict, 20905, "cell_version_mismatch", "排班格已被其他操作修改，请刷新后重试")
)

// ── 顶班模块业务错误 ──

var (
	ErrGuardInactive          = pkgerrors.New(pkgerrors.KindValidation, 22001, "guard_inactive", "保安已停用")
	ErrSubstituteIsPlanned    = pkgerrors.New(pkgerrors.KindValidation, 22002, "substitute_is_planned_guard", "顶班保安不能是缺勤的原排班保安")
	ErrCoverageTargetRequired = pkgerrors.New(pkgerrors.KindValidation, 22003, "coverage_target_required", "需指定 cell_id 或 post_id + date")
	ErrGuardNotFound          = pkgerrors.New(pkgerrors.KindNotFound, 22401, "guard_not_found", "保安不存在")
	ErrCellDayOff             = pkgerrors.New(pkgerrors.KindConflict, 22901, "cell_day_off", "休息日不可安排顶班")
	ErrCellAlreadyCovered     = pkgerrors.New(pkgerrors.KindConflict, 22902, "cell_already_covered", "该排班格已有人在岗")
	ErrCellHasPlannedGuard    = pkgerrors.New(pkgerrors.KindConflict, 22903, "cell_has_planned_guard", "该排班格已有排班保安，需先标记缺勤")
	ErrShiftPreserved         = pkgerrors.New(pkgerrors.KindConflict, 22904, "shift_preserved", "加班记录已支付保全，不可撤销")
	ErrShiftInBatch           = pkgerrors.New(pkgerrors.KindConflict, 22905, "shift_in_pending_batch", "加班记录已在支付批次中，需先删除批次")
)

// ── 结算模块业务错误 ──

var (
	ErrEmptyBatch          = pkgerrors.New(pkgerrors.KindValidation, 23001, "empty_batch", "支付批次至少包含一条加班记录")
	ErrDuplicateShift      = pkgerrors.New(pkgerrors.KindValidation, 23002, "duplicate_shift", "加班记录重复")
	ErrShiftNotFound       = pkgerrors.New(pkgerrors.KindNotFound, 23401, "shift_not_found", "加班记录不存在")
	ErrBatchNotFound       = pkgerrors.New(pkgerrors.KindNotFound, 23402, "batch_not_found", "支付批次不存在")
	ErrShiftAlreadyPaid    = pkgerrors.New(pkgerrors.KindConflict, 23901, "shift_already_paid", "加班记录已支付")
	ErrShiftAlreadyBatched = pkgerrors.New(pkgerrors.KindConflict, 23902, "shift_already_batched", "加班记录已在其他支付批次中")
	ErrShiftVoided         = pkgerrors.New(pkgerrors.KindConflict, 23903, "shift_voided", "加班记录已作废")
	ErrBatchAlreadyPaid    = pkgerrors.New(pkgerrors.KindConflict, 23904, "batch_already_paid", "支付批次已支付")
	ErrExportGenerateFail  = pkgerrors.New(pkgerrors.KindInternal, 23501, "export_failed", "生成 Excel 文件失败")
)

// ── 视图模块业务错误 ──

var (
	ErrInvalidStateFilter   = pkgerrors.New(pkgerrors.KindValidation, 24001, "invalid_state_filter", "无法识别的状态筛选")
	ErrInstallationNotFound = pkgerrors.New(pkgerrors.KindNotFound, 24401, "installation_not_found", "安装点不存在")
	ErrCalendarGenerateFail = pkgerrors.New(pkgerrors.KindInternal, 24501, "calendar_failed", "生成日历失败")
)
