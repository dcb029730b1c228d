package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/Djomab/activity-weekly-report/internal/dto"
	"github.com/Djomab/activity-weekly-report/internal/service"
	"github.com/Djomab/activity-weekly-report/pkg/response"
)

const (
	mimeXLSX     = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	mimeCalendar = "text/calendar; charset=utf-8"
)

// ExportHandler 导出模块 HTTP 处理器
type ExportHandler struct {
	exportSvc service.ExportService
}

// NewExportHandler 创建 ExportHandler
func NewExportHandler(exportSvc service.ExportService) *ExportHandler {
	return &ExportHandler{exportSvc: exportSvc}
}

// ExportReports 导出周报 Excel
// GET /api/v1/export/reports?year=2024&week=2
func (h *ExportHandler) ExportReports(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	var req dto.ExportReportsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	buf, filename, err := h.exportSvc.ExportReports(c.Request.Context(), actor, &req)
	if err != nil {
		h.handleExportError(c, err)
		return
	}

	response.File(c, filename, mimeXLSX, buf.Bytes())
}

// ExportCalendar 导出周报活动日历（iCalendar）
// GET /api/v1/reports/:id/calendar
func (h *ExportHandler) ExportCalendar(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	buf, filename, err := h.exportSvc.ExportCalendar(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		h.handleExportError(c, err)
		return
	}

	response.File(c, filename, mimeCalendar, buf.Bytes())
}

func (h *ExportHandler) handleExportError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrExportNoReports):
		response.NotFound(c, 17001, "没有符合条件的周报")
	case errors.Is(err, service.ErrReportNotFound):
		response.NotFound(c, 15001, "周报不存在")
	default:
		response.InternalError(c)
	}
}
