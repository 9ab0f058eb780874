package dto

import "github.com/shopspring/decimal"

// ── 加班结算模块 DTO ──

// CreateBatchRequest 创建支付批次请求
type CreateBatchRequest struct {
	ShiftIDs []string `json:"shift_ids" binding:"required,min=1,dive,uuid"`
}

// BatchListRequest 批次列表查询参数
type BatchListRequest struct {
	State string `form:"state" binding:"omitempty,oneof=pending paid"`
	PaginationRequest
}

// UnbatchedShiftListRequest 待结算加班查询参数
type UnbatchedShiftListRequest struct {
	Year   int    `form:"year"    binding:"required,min=2000,max=2100"`
	Month  int    `form:"month"   binding:"required,min=1,max=12"`
	PostID string `form:"post_id" binding:"omitempty,uuid"`
}

// PaymentBatchResponse 支付批次响应
type PaymentBatchResponse struct {
	ID          string                  `json:"id"`
	Code        string                  `json:"code"`
	GeneratedAt string                  `json:"generated_at"`
	TotalAmount decimal.Decimal         `json:"total_amount"`
	ShiftCount  int                     `json:"shift_count"`
	State       string                  `json:"state"`
	PaidAt      *string                 `json:"paid_at,omitempty"`
	PaidBy      *string                 `json:"paid_by,omitempty"`
	Version     int                     `json:"version"`
	Shifts      []OvertimeShiftResponse `json:"shifts,omitempty"`
}

// UnbatchedShiftsResponse 待结算加班汇总
type UnbatchedShiftsResponse struct {
	Period      string                  `json:"period"`
	Count       int                     `json:"count"`
	TotalAmount decimal.Decimal         `json:"total_amount"`
	Shifts      []OvertimeShiftResponse `json:"shifts"`
}

// ExportFile 导出文件
type ExportFile struct {
	Filename    string
	ContentType string
	Content     []byte
}
