package model

import (
	"time"

	"gorm.io/datatypes"
)

// RosterPeriod 排班周期，对应 roster_periods
// 首次生成该月排班时创建（open）；关闭后该月所有排班格冻结
type RosterPeriod struct {
	PeriodID string     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"period_id"`
	TenantID string     `gorm:"type:uuid;not null"                             json:"tenant_id"`
	Year     int        `gorm:"type:smallint;not null"                         json:"year"`
	Month    int        `gorm:"type:smallint;not null"                         json:"month"`
	Status   string     `gorm:"type:varchar(20);not null;default:'open'"       json:"status"` // open | closed
	ClosedAt *time.Time `json:"closed_at,omitempty"`
	BaseModel
}

func (RosterPeriod) TableName() string { return "roster_periods" }

const (
	PeriodStatusOpen   = "open"
	PeriodStatusClosed = "closed"
)

// CellMetadata 引擎读写的排班格元数据（列前缀 meta_）
type CellMetadata struct {
	SubstituteGuardID *string         `gorm:"type:uuid"                                json:"substitute_guard_id,omitempty"`
	MonitoringState   MonitoringState `gorm:"type:varchar(20);not null;default:'none'" json:"monitoring_state"`
	Notes             string          `gorm:"type:varchar(500)"                        json:"notes,omitempty"`
	LastUpdateAt      *time.Time      `json:"last_update_at,omitempty"`
}

// RosterCell 排班格，对应 roster_cells，(post_id, work_date) 唯一，永不物理删除
//
// OccupantGuardID 由状态派生：仅 worked / covered / overtime_assigned 时非空，
// 并受 (tenant_id, occupant_guard_id, work_date) 部分唯一索引约束
type RosterCell struct {
	RosterCellID    string            `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"roster_cell_id"`
	TenantID        string            `gorm:"type:uuid;not null"                             json:"tenant_id"`
	PostID          string            `gorm:"type:uuid;not null"                             json:"post_id"`
	InstallationID  string            `gorm:"type:uuid;not null"                             json:"installation_id"`
	WorkDate        time.Time         `gorm:"type:date;not null"                             json:"work_date"`
	Year            int               `gorm:"type:smallint;not null"                         json:"year"`
	Month           int               `gorm:"type:smallint;not null"                         json:"month"`
	Day             int               `gorm:"type:smallint;not null"                         json:"day"`
	PlannedGuardID  *string           `gorm:"type:uuid"                                      json:"planned_guard_id,omitempty"`
	OccupantGuardID *string           `gorm:"type:uuid"                                      json:"occupant_guard_id,omitempty"`
	CoverageState   CoverageState     `gorm:"type:varchar(20);not null"                      json:"coverage_state"`
	AbsenceReason   *VacancyReason    `gorm:"type:varchar(30)"                               json:"absence_reason,omitempty"`
	Meta            CellMetadata      `gorm:"embedded;embeddedPrefix:meta_"                  json:"metadata"`
	Extra           datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'"               json:"extra,omitempty"`
	VersionedModel
}

func (RosterCell) TableName() string { return "roster_cells" }

// SetState 切换状态并同步派生的在岗保安
// occupant 仅在在岗状态下保留
func (c *RosterCell) SetState(state CoverageState, occupant *string) {
	c.CoverageState = state
	if state.Occupied() {
		c.OccupantGuardID = occupant
	} else {
		c.OccupantGuardID = nil
	}
}

// RosterChangeLog 排班格变更审计，对应 roster_change_logs（纯追加）
type RosterChangeLog struct {
	ChangeLogID  string        `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"change_log_id"`
	TenantID     string        `gorm:"type:uuid;not null"                             json:"tenant_id"`
	RosterCellID string        `gorm:"type:uuid;not null"                             json:"roster_cell_id"`
	FromState    CoverageState `gorm:"type:varchar(20);not null"                      json:"from_state"`
	ToState      CoverageState `gorm:"type:varchar(20);not null"                      json:"to_state"`
	GuardID      *string       `gorm:"type:uuid"                                      json:"guard_id,omitempty"`
	ShiftID      *string       `gorm:"type:uuid"                                      json:"shift_id,omitempty"`
	Action       string        `gorm:"type:varchar(30);not null"                      json:"action"`
	Reason       string        `gorm:"type:varchar(500)"                              json:"reason,omitempty"`
	OperatorID   string        `gorm:"type:uuid;not null"                             json:"operator_id"`
	CreatedAt    time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"created_at"`
}

func (RosterChangeLog) TableName() string { return "roster_change_logs" }

// 变更动作
const (
	ActionAttended       = "mark_attended"
	ActionAbsent         = "mark_absent"
	ActionAssign         = "assign_substitute"
	ActionRevoke         = "revoke_substitute"
	ActionReconcileShift = "reconcile_shift"
)
