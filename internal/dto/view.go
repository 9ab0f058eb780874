package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// ── 投影视图 DTO ──

// MonthlyViewRequest 月视图查询参数
type MonthlyViewRequest struct {
	PostID string `form:"post_id" binding:"required,uuid"`
	Year   int    `form:"year"    binding:"required,min=2000,max=2100"`
	Month  int    `form:"month"   binding:"required,min=1,max=12"`
}

// DailyViewRequest 日视图查询参数
// state 为当前状态 token；estado / estado_ui / tipo_cobertura 为旧版 token，二者择一
type DailyViewRequest struct {
	InstallationID string `form:"installation_id" binding:"required,uuid"`
	Date           string `form:"date"            binding:"required,datetime=2006-01-02"`
	State          string `form:"state"           binding:"omitempty,oneof=day_off planned worked absent_uncovered covered overtime_assigned"`
	Estado         string `form:"estado"`
	EstadoUI       string `form:"estado_ui"`
	TipoCobertura  string `form:"tipo_cobertura"`
}

// GuardCalendarRequest 保安加班日历查询参数
type GuardCalendarRequest struct {
	From string `form:"from" binding:"omitempty,datetime=2006-01-02"`
	To   string `form:"to"   binding:"omitempty,datetime=2006-01-02"`
}

// ViewCell 投影中的单个排班格
type ViewCell struct {
	CellID          string        `json:"cell_id"`
	PostID          string        `json:"post_id"`
	PostName        string        `json:"post_name,omitempty"`
	WorkDate        string        `json:"work_date"`
	Day             int           `json:"day"`
	CoverageState   string        `json:"coverage_state"`
	Legacy          LegacyTokens  `json:"legacy"`
	PlannedGuard    *GuardBrief   `json:"planned_guard,omitempty"`
	Occupant        *GuardBrief   `json:"occupant,omitempty"`
	MonitoringState string        `json:"monitoring_state"`
	Notes           string        `json:"notes,omitempty"`
	Vacancy         *VacancyBrief `json:"vacancy,omitempty"`
	Shift           *ShiftBrief   `json:"shift,omitempty"`
	Version         int           `json:"version"`
}

// VacancyBrief 缺岗简要信息
type VacancyBrief struct {
	ID       string `json:"id"`
	Reason   string `json:"reason"`
	Priority string `json:"priority"`
}

// ShiftBrief 加班简要信息
type ShiftBrief struct {
	ID             string          `json:"id"`
	Amount         decimal.Decimal `json:"amount"`
	Origin         string          `json:"origin"`
	Paid           bool            `json:"paid"`
	Preserved      bool            `json:"preserved"`
	PaymentBatchID *string         `json:"payment_batch_id,omitempty"`
}

// ViewSummary 状态汇总
type ViewSummary struct {
	DayOff           int             `json:"day_off"`
	Planned          int             `json:"planned"`
	Worked           int             `json:"worked"`
	AbsentUncovered  int             `json:"absent_uncovered"`
	Covered          int             `json:"covered"`
	OvertimeAssigned int             `json:"overtime_assigned"`
	OpenVacancies    int             `json:"open_vacancies"`
	OvertimeAmount   decimal.Decimal `json:"overtime_amount"`
}

// MonthlyView 岗位月视图
type MonthlyView struct {
	PostID         string      `json:"post_id"`
	PostName       string      `json:"post_name"`
	InstallationID string      `json:"installation_id"`
	Period         string      `json:"period"`
	Revision       string      `json:"revision"`
	Cells          []ViewCell  `json:"cells"`
	Summary        ViewSummary `json:"summary"`
}

// DailyView 安装点日视图（运营看板）
type DailyView struct {
	InstallationID   string      `json:"installation_id"`
	InstallationName string      `json:"installation_name"`
	Date             string      `json:"date"`
	Cells            []ViewCell  `json:"cells"`
	Summary          ViewSummary `json:"summary"`
}

// Discrepancy 对账发现的不一致
type Discrepancy struct {
	Kind     string `json:"kind"`
	CellID   string `json:"cell_id"`
	PostID   string `json:"post_id"`
	WorkDate string `json:"work_date"`
	Detail   string `json:"detail"`
	Fixed    bool   `json:"fixed"`
}

// ReconcileReport 对账报告
type ReconcileReport struct {
	Period        string        `json:"period"`
	CellsScanned  int           `json:"cells_scanned"`
	Refreshed     int           `json:"refreshed"`
	Discrepancies []Discrepancy `json:"discrepancies"`
}

// CellEvent 排班格变更事件（WebSocket 推送）
type CellEvent struct {
	Type           string    `json:"type"` // cell.changed | roster.generated | period.closed
	TenantID       string    `json:"tenant_id"`
	InstallationID string    `json:"installation_id"`
	PostID         string    `json:"post_id,omitempty"`
	CellID         string    `json:"cell_id,omitempty"`
	WorkDate       string    `json:"work_date,omitempty"`
	CoverageState  string    `json:"coverage_state,omitempty"`
	Version        int       `json:"version,omitempty"`
	At             time.Time `json:"at"`
}
