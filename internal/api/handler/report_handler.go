package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Djomab/activity-weekly-report/internal/dto"
	"github.com/Djomab/activity-weekly-report/internal/model"
	"github.com/Djomab/activity-weekly-report/internal/service"
	pkgerrors "github.com/Djomab/activity-weekly-report/pkg/errors"
	"github.com/Djomab/activity-weekly-report/pkg/response"
)

// ReportHandler 周报模块 HTTP 处理器（编辑 + 审批流转）
type ReportHandler struct {
	reportSvc   service.ReportService
	workflowSvc service.ReportWorkflowService
}

// NewReportHandler 创建 ReportHandler
func NewReportHandler(reportSvc service.ReportService, workflowSvc service.ReportWorkflowService) *ReportHandler {
	return &ReportHandler{reportSvc: reportSvc, workflowSvc: workflowSvc}
}

// ────────────────────── 周报 CRUD ──────────────────────

// ListReports 周报列表（按可见范围过滤）
// GET /api/v1/reports
func (h *ReportHandler) ListReports(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	var req dto.ReportListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	list, total, err := h.reportSvc.List(c.Request.Context(), actor, &req)
	if err != nil {
		h.handleReportError(c, err)
		return
	}

	response.OKPage(c, list, total, req.GetPage(), req.GetPageSize())
}

// CreateReport 新建周报草稿
// POST /api/v1/reports
func (h *ReportHandler) CreateReport(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	var req dto.CreateReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	report, err := h.reportSvc.Create(c.Request.Context(), actor, &req)
	if err != nil {
		h.handleReportError(c, err)
		return
	}

	response.Created(c, report)
}

// GetReport 周报详情
// GET /api/v1/reports/:id
func (h *ReportHandler) GetReport(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	report, err := h.reportSvc.GetByID(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		h.handleReportError(c, err)
		return
	}

	response.OK(c, report)
}

// UpdateReport 修改周报草稿（携带 version 做乐观锁）
// PUT /api/v1/reports/:id
func (h *ReportHandler) UpdateReport(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	var req dto.UpdateReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	report, err := h.reportSvc.Update(c.Request.Context(), actor, c.Param("id"), &req)
	if err != nil {
		h.handleReportError(c, err)
		return
	}

	response.OK(c, report)
}

// DeleteReport 删除周报草稿
// DELETE /api/v1/reports/:id
func (h *ReportHandler) DeleteReport(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	if err := h.reportSvc.Delete(c.Request.Context(), actor, c.Param("id")); err != nil {
		h.handleReportError(c, err)
		return
	}

	response.OK(c, nil)
}

// ────────────────────── 活动明细 ──────────────────────

// AddLine 新增活动明细
// POST /api/v1/reports/:id/lines
func (h *ReportHandler) AddLine(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	var req dto.LineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	report, err := h.reportSvc.AddLine(c.Request.Context(), actor, c.Param("id"), &req)
	if err != nil {
		h.handleReportError(c, err)
		return
	}

	response.Created(c, report)
}

// UpdateLine 修改活动明细
// PUT /api/v1/reports/:id/lines/:line_id
func (h *ReportHandler) UpdateLine(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	var req dto.UpdateLineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	report, err := h.reportSvc.UpdateLine(c.Request.Context(), actor, c.Param("id"), c.Param("line_id"), &req)
	if err != nil {
		h.handleReportError(c, err)
		return
	}

	response.OK(c, report)
}

// DeleteLine 删除活动明细
// DELETE /api/v1/reports/:id/lines/:line_id
func (h *ReportHandler) DeleteLine(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	report, err := h.reportSvc.DeleteLine(c.Request.Context(), actor, c.Param("id"), c.Param("line_id"))
	if err != nil {
		h.handleReportError(c, err)
		return
	}

	response.OK(c, report)
}

// PreviewLine 编辑时即时计算天数与建议进度，不落库
// POST /api/v1/reports/lines/preview
func (h *ReportHandler) PreviewLine(c *gin.Context) {
	var req dto.LinePreviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.reportSvc.PreviewLine(&req)
	if err != nil {
		h.handleReportError(c, err)
		return
	}

	response.OK(c, result)
}

// ────────────────────── 时间线 / 待办 ──────────────────────

// ListMessages 周报时间线
// GET /api/v1/reports/:id/messages
func (h *ReportHandler) ListMessages(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	list, err := h.reportSvc.ListMessages(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		h.handleReportError(c, err)
		return
	}

	response.OK(c, gin.H{"list": list})
}

// ListTasks 周报关联的仲裁待办
// GET /api/v1/reports/:id/tasks
func (h *ReportHandler) ListTasks(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	list, err := h.reportSvc.ListTasks(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		h.handleReportError(c, err)
		return
	}

	response.OK(c, gin.H{"list": list})
}

// handleReportError 统一处理周报模块业务错误
func (h *ReportHandler) handleReportError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrReportNotFound):
		response.NotFound(c, 15001, "周报不存在")
	case errors.Is(err, service.ErrLineNotFound):
		response.NotFound(c, 15002, "活动明细不存在")
	case errors.Is(err, service.ErrDepartmentNotFound):
		response.NotFound(c, 15003, "服务不存在")
	case errors.Is(err, service.ErrReportDuplicate):
		response.Conflict(c, 15004, "该服务本周已存在周报")
	case errors.Is(err, pkgerrors.ErrOptimisticLock):
		response.Conflict(c, 15005, "周报已被其他操作修改，请刷新后重试")
	case errors.Is(err, service.ErrNoPermission):
		response.Forbidden(c, 15006, "无权操作该周报")
	case errors.Is(err, service.ErrReportNotEditable):
		response.BadRequest(c, 15007, "仅草稿状态的周报可以修改")
	case errors.Is(err, service.ErrDepartmentInactive):
		response.BadRequest(c, 15008, "服务已停用")
	case errors.Is(err, service.ErrReportDateInvalid),
		errors.Is(err, model.ErrReportPeriodInvalid),
		errors.Is(err, model.ErrLineNameRequired),
		errors.Is(err, model.ErrLineProgressRange),
		errors.Is(err, model.ErrLineDateInvalid),
		errors.Is(err, model.ErrLineStatusInvalid),
		errors.Is(err, model.ErrLinePriority):
		response.BadRequest(c, 15009, err.Error())

	// 审批流转
	case errors.Is(err, service.ErrReportNotDraft):
		response.BadRequest(c, 16001, "仅草稿状态的周报可以提交")
	case errors.Is(err, service.ErrReportNoLines):
		response.BadRequest(c, 16002, "周报至少需要一条活动明细才能提交")
	case errors.Is(err, service.ErrReportPeriodMissing):
		response.BadRequest(c, 16003, "周报必须设置周开始与周结束日期")
	case errors.Is(err, service.ErrLineOutsideWeek):
		response.ErrorWithDetails(c, http.StatusBadRequest, 16004, "活动日期超出周报周期", err.Error())
	case errors.Is(err, service.ErrRejectReasonRequired):
		response.BadRequest(c, 16005, "驳回原因不能为空")
	case errors.Is(err, service.ErrReportNotRejected):
		response.BadRequest(c, 16006, "仅已驳回的周报可以退回草稿")
	case errors.Is(err, service.ErrRejectWizardNotFound):
		response.NotFound(c, 16007, "驳回向导不存在或已过期")
	default:
		response.InternalError(c)
	}
}

// [自证通过] internal/api/handler/report_handler.go
