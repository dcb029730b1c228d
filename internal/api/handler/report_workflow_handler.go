package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/Djomab/activity-weekly-report/internal/dto"
	"github.com/Djomab/activity-weekly-report/pkg/response"
)

// SubmitReport 提交周报
// POST /api/v1/reports/:id/submit
func (h *ReportHandler) SubmitReport(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	report, err := h.workflowSvc.Submit(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		h.handleReportError(c, err)
		return
	}

	response.OK(c, report)
}

// ValidateReport 审核通过；非已提交状态时原样返回
// POST /api/v1/reports/:id/validate
func (h *ReportHandler) ValidateReport(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	report, err := h.workflowSvc.Validate(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		h.handleReportError(c, err)
		return
	}

	response.OK(c, report)
}

// RejectReport 直接驳回，原因可为空
// POST /api/v1/reports/:id/reject
func (h *ReportHandler) RejectReport(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	var req dto.RejectReportRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, 10001, "参数校验失败")
			return
		}
	}

	report, err := h.workflowSvc.Reject(c.Request.Context(), actor, c.Param("id"), &req)
	if err != nil {
		h.handleReportError(c, err)
		return
	}

	response.OK(c, report)
}

// OpenRejectWizard 打开驳回向导
// POST /api/v1/reports/:id/reject-wizard
func (h *ReportHandler) OpenRejectWizard(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	wizard, err := h.workflowSvc.OpenRejectWizard(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		h.handleReportError(c, err)
		return
	}

	response.Created(c, wizard)
}

// ConfirmReject 确认驳回向导，原因必填
// POST /api/v1/reject-wizards/:id/confirm
func (h *ReportHandler) ConfirmReject(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	var req dto.ConfirmRejectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	report, err := h.workflowSvc.ConfirmReject(c.Request.Context(), actor, c.Param("id"), &req)
	if err != nil {
		h.handleReportError(c, err)
		return
	}

	response.OK(c, report)
}

// ReturnToDraft 已驳回的周报退回草稿
// POST /api/v1/reports/:id/draft
func (h *ReportHandler) ReturnToDraft(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	report, err := h.workflowSvc.ReturnToDraft(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		h.handleReportError(c, err)
		return
	}

	response.OK(c, report)
}
