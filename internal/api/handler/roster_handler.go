package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/Cryptobal/GardOps-sub016/internal/dto"
	"github.com/Cryptobal/GardOps-sub016/internal/model"
	"github.com/Cryptobal/GardOps-sub016/internal/service"
	"github.com/Cryptobal/GardOps-sub016/pkg/response"
)

// RosterHandler 排班模块 HTTP 处理器
type RosterHandler struct {
	rosterSvc service.RosterService
}

// NewRosterHandler 创建 RosterHandler
func NewRosterHandler(rosterSvc service.RosterService) *RosterHandler {
	return &RosterHandler{rosterSvc: rosterSvc}
}

// Generate 生成月度排班
// POST /api/v1/rosters/generate
func (h *RosterHandler) Generate(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	var req dto.GenerateRosterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badParams(c, err)
		return
	}

	result, err := h.rosterSvc.GenerateRoster(c.Request.Context(), caller, &req)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Created(c, result)
}

// GetCell 查询单个排班格
// GET /api/v1/rosters/cells/:id
func (h *RosterHandler) GetCell(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}
	id, ok := idParam(c)
	if !ok {
		return
	}

	cell, err := h.rosterSvc.GetCell(c.Request.Context(), caller, id)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.OK(c, cell)
}

// MarkAttendance 标记出勤 / 缺勤
// POST /api/v1/rosters/cells/:id/attendance
func (h *RosterHandler) MarkAttendance(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}
	id, ok := idParam(c)
	if !ok {
		return
	}

	var req dto.MarkAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badParams(c, err)
		return
	}

	cell, err := h.rosterSvc.MarkAttendance(c.Request.Context(), caller, id, &req)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.OK(c, cell)
}

// ClosePeriod 关闭排班周期
// POST /api/v1/rosters/periods/close
func (h *RosterHandler) ClosePeriod(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	var req dto.PeriodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badParams(c, err)
		return
	}

	period, err := h.rosterSvc.ClosePeriod(c.Request.Context(), caller, model.Period{Year: req.Year, Month: req.Month})
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.OK(c, period)
}
