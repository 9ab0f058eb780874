package dto

import "github.com/shopspring/decimal"

// ── 排班模块 DTO ──

// GenerateRosterRequest 生成月度排班请求
// PostIDs 为空时生成租户下全部启用岗位
type GenerateRosterRequest struct {
	Year         int      `json:"year"          binding:"required,min=2000,max=2100"`
	Month        int      `json:"month"         binding:"required,min=1,max=12"`
	PostIDs      []string `json:"post_ids"      binding:"omitempty,dive,uuid"`
	SkipExisting bool     `json:"skip_existing"` // 已生成的岗位跳过而非报冲突
}

// MarkAttendanceRequest 标记出勤请求
type MarkAttendanceRequest struct {
	Outcome string `json:"outcome" binding:"required,oneof=attended absent"`
	Reason  string `json:"reason"  binding:"omitempty,oneof=absence_with_notice temporary_leave resignation no_assignment"`
	Notes   string `json:"notes"   binding:"omitempty,max=500"`
	Version *int   `json:"version" binding:"omitempty,min=1"` // 客户端持有的版本号，不一致返回冲突
}

// PeriodRequest 周期请求（关闭周期 / 重算缺岗 / 对账）
type PeriodRequest struct {
	Year  int `json:"year"  form:"year"  binding:"required,min=2000,max=2100"`
	Month int `json:"month" form:"month" binding:"required,min=1,max=12"`
}

// ── 响应 ──

// GenerateRosterResponse 排班生成结果
type GenerateRosterResponse struct {
	Period          string                 `json:"period"`
	CellsCreated    int                    `json:"cells_created"`
	VacanciesOpened int                    `json:"vacancies_opened"`
	Posts           []PostGenerationResult `json:"posts"`
}

// PostGenerationResult 单岗位生成结果
type PostGenerationResult struct {
	PostID  string `json:"post_id"`
	Skipped bool   `json:"skipped,omitempty"`
	Planned int    `json:"planned"`
	DayOff  int    `json:"day_off"`
}

// RosterCellResponse 排班格响应
type RosterCellResponse struct {
	ID              string                 `json:"id"`
	PostID          string                 `json:"post_id"`
	InstallationID  string                 `json:"installation_id"`
	WorkDate        string                 `json:"work_date"`
	PlannedGuardID  *string                `json:"planned_guard_id,omitempty"`
	OccupantGuardID *string                `json:"occupant_guard_id,omitempty"`
	CoverageState   string                 `json:"coverage_state"`
	Legacy          LegacyTokens           `json:"legacy"`
	AbsenceReason   *string                `json:"absence_reason,omitempty"`
	Metadata        CellMetadataResponse   `json:"metadata"`
	Extra           map[string]interface{} `json:"extra,omitempty"`
	Version         int                    `json:"version"`
	UpdatedAt       string                 `json:"updated_at"`
	Shift           *OvertimeShiftResponse `json:"shift,omitempty"`
}

// CellMetadataResponse 排班格元数据
type CellMetadataResponse struct {
	SubstituteGuardID *string `json:"substitute_guard_id,omitempty"`
	MonitoringState   string  `json:"monitoring_state"`
	Notes             string  `json:"notes,omitempty"`
	LastUpdateAt      *string `json:"last_update_at,omitempty"`
}

// RosterPeriodResponse 排班周期响应
type RosterPeriodResponse struct {
	ID       string  `json:"id"`
	Year     int     `json:"year"`
	Month    int     `json:"month"`
	Status   string  `json:"status"`
	ClosedAt *string `json:"closed_at,omitempty"`
}

// ── 顶班 DTO ──

// AssignCoverageRequest 指派顶班请求
// 目标排班格二选一：CellID，或 PostID + Date
type AssignCoverageRequest struct {
	CellID            string `json:"cell_id"             binding:"omitempty,uuid"`
	PostID            string `json:"post_id"             binding:"omitempty,uuid"`
	Date              string `json:"date"                binding:"omitempty,datetime=2006-01-02"`
	SubstituteGuardID string `json:"substitute_guard_id" binding:"required,uuid"`
	Notes             string `json:"notes"               binding:"omitempty,max=500"`
	Version           *int   `json:"version"             binding:"omitempty,min=1"`
}

// RevokeSubstituteRequest 撤销顶班请求
type RevokeSubstituteRequest struct {
	Reason  string `json:"reason"  binding:"omitempty,max=200"`
	Version *int   `json:"version" binding:"omitempty,min=1"`
}

// CoverageResponse 顶班结果
type CoverageResponse struct {
	Cell  RosterCellResponse    `json:"cell"`
	Shift OvertimeShiftResponse `json:"shift"`
}

// ── 加班记录 ──

// OvertimeShiftResponse 加班记录响应
type OvertimeShiftResponse struct {
	ID                string          `json:"id"`
	RosterCellID      string          `json:"roster_cell_id"`
	SubstituteGuardID string          `json:"substitute_guard_id"`
	SubstituteGuard   *GuardBrief     `json:"substitute_guard,omitempty"`
	PostID            string          `json:"post_id"`
	InstallationID    string          `json:"installation_id"`
	WorkDate          string          `json:"work_date"`
	Amount            decimal.Decimal `json:"amount"`
	Origin            string          `json:"origin"`
	Paid              bool            `json:"paid"`
	Preserved         bool            `json:"preserved"`
	PaymentDate       *string         `json:"payment_date,omitempty"`
	PaymentBatchID    *string         `json:"payment_batch_id,omitempty"`
	Voided            bool            `json:"voided,omitempty"`
	VoidReason        string          `json:"void_reason,omitempty"`
}
