package model

import "time"

// Installation 客户安装点，对应 installations（外部主数据，只读）
type Installation struct {
	InstallationID string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"installation_id"`
	TenantID       string `gorm:"type:uuid;not null"                             json:"tenant_id"`
	Name           string `gorm:"type:varchar(200);not null"                     json:"name"`
	Address        string `gorm:"type:varchar(500)"                              json:"address,omitempty"`
	BaseModel
}

func (Installation) TableName() string { return "installations" }

// Guard 保安，对应 guards（外部主数据，只读）
type Guard struct {
	GuardID  string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"guard_id"`
	TenantID string `gorm:"type:uuid;not null"                             json:"tenant_id"`
	Name     string `gorm:"type:varchar(200);not null"                     json:"name"`
	RUT      string `gorm:"column:rut;type:varchar(20)"                    json:"rut,omitempty"`
	IsActive bool   `gorm:"not null;default:true"                          json:"is_active"`
	BaseModel
}

func (Guard) TableName() string { return "guards" }

// OperationalPost 岗位，对应 operational_posts（外部主数据，只读）
//
// 休息日判定优先级：RestRule（CEL 表达式）> PatternCode（NxM 轮班）> RestWeekdays
type OperationalPost struct {
	PostID         string     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"post_id"`
	TenantID       string     `gorm:"type:uuid;not null"                             json:"tenant_id"`
	InstallationID string     `gorm:"type:uuid;not null"                             json:"installation_id"`
	Name           string     `gorm:"type:varchar(200);not null"                     json:"name"`
	RoleCode       string     `gorm:"type:varchar(50)"                               json:"role_code,omitempty"`
	IsActive       bool       `gorm:"not null;default:true"                          json:"is_active"`
	IsVacant       bool       `gorm:"not null;default:false"                         json:"is_vacant"` // 常设缺岗
	DefaultGuardID *string    `gorm:"type:uuid"                                      json:"default_guard_id,omitempty"`
	PatternCode    string     `gorm:"type:varchar(20)"                               json:"pattern_code,omitempty"` // 4x4 | 5x2 | 7x7 ...
	PatternAnchor  *time.Time `gorm:"type:date"                                      json:"pattern_anchor,omitempty"`
	RestWeekdays   IntArray   `gorm:"type:int[]"                                     json:"rest_weekdays,omitempty"` // 0=周日
	RestRule       string     `gorm:"type:text"                                      json:"rest_rule,omitempty"`
	BaseModel

	Installation *Installation `gorm:"foreignKey:InstallationID;references:InstallationID" json:"installation,omitempty"`
}

func (OperationalPost) TableName() string { return "operational_posts" }
