package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/Cryptobal/GardOps-sub016/internal/dto"
	"github.com/Cryptobal/GardOps-sub016/internal/service"
	"github.com/Cryptobal/GardOps-sub016/pkg/response"
)

// SettlementHandler 加班结算模块 HTTP 处理器
type SettlementHandler struct {
	settlementSvc service.SettlementService
}

// NewSettlementHandler 创建 SettlementHandler
func NewSettlementHandler(settlementSvc service.SettlementService) *SettlementHandler {
	return &SettlementHandler{settlementSvc: settlementSvc}
}

// ListUnbatched 待结算加班记录
// GET /api/v1/overtime/shifts/unbatched
func (h *SettlementHandler) ListUnbatched(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	var req dto.UnbatchedShiftListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		badParams(c, err)
		return
	}

	result, err := h.settlementSvc.ListUnbatchedShifts(c.Request.Context(), caller, &req)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.OK(c, result)
}

// CreateBatch 创建支付批次
// POST /api/v1/payment-batches
func (h *SettlementHandler) CreateBatch(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	var req dto.CreateBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badParams(c, err)
		return
	}

	batch, err := h.settlementSvc.CreateBatch(c.Request.Context(), caller, &req)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Created(c, batch)
}

// ListBatches 支付批次列表
// GET /api/v1/payment-batches
func (h *SettlementHandler) ListBatches(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	var req dto.BatchListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		badParams(c, err)
		return
	}

	list, total, err := h.settlementSvc.ListBatches(c.Request.Context(), caller, &req)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.OKPage(c, list, total, req.GetPage(), req.GetPageSize())
}

// GetBatch 批次详情（含加班明细）
// GET /api/v1/payment-batches/:id
func (h *SettlementHandler) GetBatch(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}
	id, ok := idParam(c)
	if !ok {
		return
	}

	batch, err := h.settlementSvc.GetBatch(c.Request.Context(), caller, id)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.OK(c, batch)
}

// MarkPaid 标记批次已支付
// POST /api/v1/payment-batches/:id/pay
func (h *SettlementHandler) MarkPaid(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}
	id, ok := idParam(c)
	if !ok {
		return
	}

	batch, err := h.settlementSvc.MarkBatchPaid(c.Request.Context(), caller, id)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.OK(c, batch)
}

// DeleteBatch 删除未支付批次，释放其中加班记录
// DELETE /api/v1/payment-batches/:id
func (h *SettlementHandler) DeleteBatch(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}
	id, ok := idParam(c)
	if !ok {
		return
	}

	if err := h.settlementSvc.DeleteBatch(c.Request.Context(), caller, id); err != nil {
		response.FromError(c, err)
		return
	}

	response.OK(c, nil)
}
