package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/Cryptobal/GardOps-sub016/internal/dto"
	"github.com/Cryptobal/GardOps-sub016/internal/model"
	"github.com/Cryptobal/GardOps-sub016/internal/service"
	"github.com/Cryptobal/GardOps-sub016/pkg/response"
)

// VacancyHandler 缺岗（PPC）模块 HTTP 处理器
type VacancyHandler struct {
	vacancySvc service.VacancyService
}

// NewVacancyHandler 创建 VacancyHandler
func NewVacancyHandler(vacancySvc service.VacancyService) *VacancyHandler {
	return &VacancyHandler{vacancySvc: vacancySvc}
}

// Resolve 重算指定周期的缺岗集合
// POST /api/v1/vacancies/resolve
func (h *VacancyHandler) Resolve(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	var req dto.PeriodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badParams(c, err)
		return
	}

	result, err := h.vacancySvc.ResolveVacancies(c.Request.Context(), caller, model.Period{Year: req.Year, Month: req.Month})
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.OK(c, result)
}

// List 缺岗列表
// GET /api/v1/vacancies
func (h *VacancyHandler) List(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	var req dto.VacancyListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		badParams(c, err)
		return
	}

	list, total, err := h.vacancySvc.ListVacancies(c.Request.Context(), caller, &req)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.OKPage(c, list, total, req.GetPage(), req.GetPageSize())
}
