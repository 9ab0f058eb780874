package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/Cryptobal/GardOps-sub016/internal/dto"
	"github.com/Cryptobal/GardOps-sub016/internal/service"
	"github.com/Cryptobal/GardOps-sub016/pkg/response"
)

// CoverageHandler 顶班模块 HTTP 处理器
type CoverageHandler struct {
	coverageSvc service.CoverageService
}

// NewCoverageHandler 创建 CoverageHandler
func NewCoverageHandler(coverageSvc service.CoverageService) *CoverageHandler {
	return &CoverageHandler{coverageSvc: coverageSvc}
}

// Assign 指派顶班保安
// POST /api/v1/coverage
func (h *CoverageHandler) Assign(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	var req dto.AssignCoverageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badParams(c, err)
		return
	}

	result, err := h.coverageSvc.AssignCoverage(c.Request.Context(), caller, &req)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Created(c, result)
}

// Revoke 撤销顶班，作废对应加班记录
// POST /api/v1/rosters/cells/:id/revoke
func (h *CoverageHandler) Revoke(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}
	id, ok := idParam(c)
	if !ok {
		return
	}

	var req dto.RevokeSubstituteRequest
	// 请求体可省略
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badParams(c, err)
			return
		}
	}

	cell, err := h.coverageSvc.RevokeSubstitute(c.Request.Context(), caller, id, &req)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.OK(c, cell)
}
