package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ShiftOrigin 加班来源
type ShiftOrigin string

const (
	OriginAbsence ShiftOrigin = "absence" // 顶替缺勤
	OriginVacancy ShiftOrigin = "vacancy" // 填补无人排班的岗位
)

// OvertimeShift 加班记录（Turno Extra），对应 overtime_shifts
//
// 每个排班格至多一条未作废记录；Preserved=true 后不可作废或修改，
// Paid=true 蕴含 Preserved=true
type OvertimeShift struct {
	ShiftID           string          `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"shift_id"`
	TenantID          string          `gorm:"type:uuid;not null"                             json:"tenant_id"`
	RosterCellID      string          `gorm:"type:uuid;not null"                             json:"roster_cell_id"`
	SubstituteGuardID string          `gorm:"type:uuid;not null"                             json:"substitute_guard_id"`
	PostID            string          `gorm:"type:uuid;not null"                             json:"post_id"`
	InstallationID    string          `gorm:"type:uuid;not null"                             json:"installation_id"`
	WorkDate          time.Time       `gorm:"type:date;not null"                             json:"work_date"`
	Amount            decimal.Decimal `gorm:"type:numeric(12,2);not null"                    json:"amount"`
	Origin            ShiftOrigin     `gorm:"type:varchar(20);not null"                      json:"origin"`
	Paid              bool            `gorm:"not null;default:false"                         json:"paid"`
	Preserved         bool            `gorm:"not null;default:false"                         json:"preserved"`
	PaymentDate       *time.Time      `json:"payment_date,omitempty"`
	PaymentBatchID    *string         `gorm:"type:uuid"                                      json:"payment_batch_id,omitempty"`
	VoidReason        string          `gorm:"type:varchar(200)"                              json:"void_reason,omitempty"`
	VoidableModel

	SubstituteGuard *Guard `gorm:"foreignKey:SubstituteGuardID;references:GuardID" json:"substitute_guard,omitempty"`
}

func (OvertimeShift) TableName() string { return "overtime_shifts" }

// Batchable 是否可加入支付批次
func (s *OvertimeShift) Batchable() bool {
	return !s.Paid && s.PaymentBatchID == nil && !s.DeletedAt.Valid
}

// PaymentBatch 支付批次，对应 payment_batches
type PaymentBatch struct {
	BatchID     string          `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"batch_id"`
	TenantID    string          `gorm:"type:uuid;not null"                             json:"tenant_id"`
	Code        string          `gorm:"type:varchar(20);not null"                      json:"code"`
	GeneratedAt time.Time       `gorm:"not null"                                       json:"generated_at"`
	TotalAmount decimal.Decimal `gorm:"type:numeric(14,2);not null"                    json:"total_amount"`
	ShiftCount  int             `gorm:"not null"                                       json:"shift_count"`
	State       BatchState      `gorm:"type:varchar(20);not null;default:'pending'"    json:"state"`
	PaidAt      *time.Time      `json:"paid_at,omitempty"`
	PaidBy      *string         `gorm:"type:uuid"                                      json:"paid_by,omitempty"`
	VersionedModel

	Shifts []OvertimeShift `gorm:"foreignKey:PaymentBatchID;references:BatchID" json:"shifts,omitempty"`
}

func (PaymentBatch) TableName() string { return "payment_batches" }

// BatchState 支付批次状态
type BatchState string

const (
	BatchPending BatchState = "pending"
	BatchPaid    BatchState = "paid"
)

// PaymentBatchSequence 批次编号序列，对应 payment_batch_sequences，按租户和自然月重置
type PaymentBatchSequence struct {
	TenantID  string `gorm:"type:uuid;primaryKey"     json:"tenant_id"`
	Year      int    `gorm:"type:smallint;primaryKey" json:"year"`
	Month     int    `gorm:"type:smallint;primaryKey" json:"month"`
	LastValue int    `gorm:"not null;default:0"       json:"last_value"`
}

func (PaymentBatchSequence) TableName() string { return "payment_batch_sequences" }

// BatchCode 生成批次编号 TE-YYYY-MM-NNNN
func BatchCode(year, month, seq int) string {
	return fmt.Sprintf("TE-%04d-%02d-%04d", year, month, seq)
}

// OvertimeRate 加班费率，对应 overtime_rates
// 匹配优先级：岗位 > 安装点 > 租户默认；同级取 effective_from 最近的一条
type OvertimeRate struct {
	RateID         string          `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"rate_id"`
	TenantID       string          `gorm:"type:uuid;not null"                             json:"tenant_id"`
	InstallationID *string         `gorm:"type:uuid"                                      json:"installation_id,omitempty"`
	PostID         *string         `gorm:"type:uuid"                                      json:"post_id,omitempty"`
	Amount         decimal.Decimal `gorm:"type:numeric(12,2);not null"                    json:"amount"`
	EffectiveFrom  time.Time       `gorm:"type:date;not null"                             json:"effective_from"`
	BaseModel
}

func (OvertimeRate) TableName() string { return "overtime_rates" }
