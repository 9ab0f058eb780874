package handler

import (
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/Cryptobal/GardOps-sub016/internal/dto"
	"github.com/Cryptobal/GardOps-sub016/internal/service"
	"github.com/Cryptobal/GardOps-sub016/pkg/response"
)

// ExportHandler 导出模块 HTTP 处理器
type ExportHandler struct {
	exportSvc   service.ExportService
	calendarSvc service.CalendarService
}

// NewExportHandler 创建 ExportHandler
func NewExportHandler(exportSvc service.ExportService, calendarSvc service.CalendarService) *ExportHandler {
	return &ExportHandler{exportSvc: exportSvc, calendarSvc: calendarSvc}
}

// ExportBatch 导出支付批次工资单
// GET /api/v1/payment-batches/:id/export
func (h *ExportHandler) ExportBatch(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}
	id, ok := idParam(c)
	if !ok {
		return
	}

	file, err := h.exportSvc.ExportBatch(c.Request.Context(), caller, id)
	if err != nil {
		response.FromError(c, err)
		return
	}

	sendFile(c, file)
}

// GuardCalendar 保安加班日历（iCalendar）
// GET /api/v1/guards/:id/overtime.ics?from=&to=
func (h *ExportHandler) GuardCalendar(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}
	id, ok := idParam(c)
	if !ok {
		return
	}

	var req dto.GuardCalendarRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		badParams(c, err)
		return
	}

	file, err := h.calendarSvc.GuardOvertimeCalendar(c.Request.Context(), caller, id, &req)
	if err != nil {
		response.FromError(c, err)
		return
	}

	sendFile(c, file)
}

// sendFile 设置下载响应头并写出文件
func sendFile(c *gin.Context, file *dto.ExportFile) {
	encodedFilename := url.QueryEscape(file.Filename)
	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+encodedFilename)
	c.Data(http.StatusOK, file.ContentType, file.Content)
}
