package model

import "time"

// Vacancy 缺岗记录（PPC），对应 vacancies
// 可由排班格与岗位状态完全推导；同一 (post_id, work_date) 至多一条 open 记录
type Vacancy struct {
	VacancyID    string        `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"vacancy_id"`
	TenantID     string        `gorm:"type:uuid;not null"                             json:"tenant_id"`
	PostID       string        `gorm:"type:uuid;not null"                             json:"post_id"`
	RosterCellID string        `gorm:"type:uuid;not null"                             json:"roster_cell_id"`
	WorkDate     time.Time     `gorm:"type:date;not null"                             json:"work_date"`
	Reason       VacancyReason `gorm:"type:varchar(30);not null"                      json:"reason"`
	Priority     Priority      `gorm:"type:varchar(10);not null"                      json:"priority"`
	Status       string        `gorm:"type:varchar(20);not null;default:'open'"       json:"status"` // open | resolved
	ResolvedAt   *time.Time    `json:"resolved_at,omitempty"`
	BaseModel
}

func (Vacancy) TableName() string { return "vacancies" }

const (
	VacancyStatusOpen     = "open"
	VacancyStatusResolved = "resolved"
)

// Priority 缺岗优先级
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)
