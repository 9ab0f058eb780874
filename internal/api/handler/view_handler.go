package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/Cryptobal/GardOps-sub016/internal/dto"
	"github.com/Cryptobal/GardOps-sub016/internal/model"
	"github.com/Cryptobal/GardOps-sub016/internal/service"
	"github.com/Cryptobal/GardOps-sub016/pkg/response"
)

// ViewHandler 投影视图与对账 HTTP 处理器
type ViewHandler struct {
	syncSvc service.SyncService
}

// NewViewHandler 创建 ViewHandler
func NewViewHandler(syncSvc service.SyncService) *ViewHandler {
	return &ViewHandler{syncSvc: syncSvc}
}

// Monthly 岗位月视图
// GET /api/v1/views/monthly?post_id=&year=&month=
func (h *ViewHandler) Monthly(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	var req dto.MonthlyViewRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		badParams(c, err)
		return
	}

	view, err := h.syncSvc.MonthlyView(c.Request.Context(), caller, &req)
	if err != nil {
		response.FromError(c, err)
		return
	}

	// 客户端可据 revision 判断视图是否变化
	c.Header("ETag", `"`+view.Revision+`"`)
	response.OK(c, view)
}

// Daily 安装点日视图
// GET /api/v1/views/daily?installation_id=&date=
func (h *ViewHandler) Daily(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	var req dto.DailyViewRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		badParams(c, err)
		return
	}

	view, err := h.syncSvc.DailyView(c.Request.Context(), caller, &req)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.OK(c, view)
}

// Reconcile 对账并修复排班格 / 加班记录 / 缺岗之间的偏差
// POST /api/v1/sync/reconcile
func (h *ViewHandler) Reconcile(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	var req dto.PeriodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badParams(c, err)
		return
	}

	report, err := h.syncSvc.Reconcile(c.Request.Context(), caller, model.Period{Year: req.Year, Month: req.Month})
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.OK(c, report)
}
