package dto

// ── 周报模块 DTO ──

// CreateReportRequest 创建周报请求（可同时带入活动明细）
type CreateReportRequest struct {
	DepartmentID        string        `json:"department_id"        binding:"required,uuid"`
	WeekStart           string        `json:"week_start"           binding:"required,datetime=2006-01-02"`
	WeekEnd             string        `json:"week_end"             binding:"required,datetime=2006-01-02"`
	BlockingPoints      string        `json:"blocking_points"      binding:"omitempty,max=5000"`
	CorrectiveActions   string        `json:"corrective_actions"   binding:"omitempty,max=5000"`
	ArbitrationRequired bool          `json:"arbitration_required"`
	Lines               []LineRequest `json:"lines"                binding:"omitempty,dive"`
}

// UpdateReportRequest 更新周报请求（仅草稿状态可改）
type UpdateReportRequest struct {
	DepartmentID        *string `json:"department_id"        binding:"omitempty,uuid"`
	WeekStart           *string `json:"week_start"           binding:"omitempty,datetime=2006-01-02"`
	WeekEnd             *string `json:"week_end"             binding:"omitempty,datetime=2006-01-02"`
	BlockingPoints      *string `json:"blocking_points"      binding:"omitempty,max=5000"`
	CorrectiveActions   *string `json:"corrective_actions"   binding:"omitempty,max=5000"`
	ArbitrationRequired *bool   `json:"arbitration_required"`
	Version             int     `json:"version"              binding:"required,min=1"`
}

// LineRequest 新增活动明细请求
// Priority 使用名称：low | normal | high | critical
type LineRequest struct {
	Name      string `json:"name"       binding:"required,max=255"`
	DateStart string `json:"date_start" binding:"omitempty,datetime=2006-01-02"`
	DateEnd   string `json:"date_end"   binding:"omitempty,datetime=2006-01-02"`
	Status    string `json:"status"     binding:"omitempty,oneof=todo in_progress done blocked"`
	Priority  string `json:"priority"   binding:"omitempty,oneof=low normal high critical"`
	Progress  *int   `json:"progress"`
}

// UpdateLineRequest 修改活动明细请求；日期传空串表示清空
type UpdateLineRequest struct {
	Name      *string `json:"name"       binding:"omitempty,max=255"`
	DateStart *string `json:"date_start" binding:"omitempty,max=10"`
	DateEnd   *string `json:"date_end"   binding:"omitempty,max=10"`
	Status    *string `json:"status"     binding:"omitempty,oneof=todo in_progress done blocked"`
	Priority  *string `json:"priority"   binding:"omitempty,oneof=low normal high critical"`
	Progress  *int    `json:"progress"`
}

// LinePreviewRequest 活动明细编辑时的联动提示请求
type LinePreviewRequest struct {
	DateStart string `json:"date_start" binding:"omitempty,datetime=2006-01-02"`
	DateEnd   string `json:"date_end"   binding:"omitempty,datetime=2006-01-02"`
	Status    string `json:"status"     binding:"omitempty,oneof=todo in_progress done blocked"`
	Progress  int    `json:"progress"   binding:"min=0,max=100"`
}

// LinePreviewResponse 联动提示：天数与建议进度（不强制写入）
type LinePreviewResponse struct {
	Duration          int `json:"duration"`
	SuggestedProgress int `json:"suggested_progress"`
}

// ReportListRequest 周报列表查询参数
type ReportListRequest struct {
	PaginationRequest
	DepartmentID string `form:"department_id" binding:"omitempty,uuid"`
	State        string `form:"state"         binding:"omitempty,oneof=draft submitted validated rejected"`
	Year         int    `form:"year"          binding:"omitempty,min=2000,max=2100"`
	Week         int    `form:"week"          binding:"omitempty,min=1,max=53"`
}

// RejectReportRequest 直接驳回请求（原因可选）
type RejectReportRequest struct {
	Reason string `json:"reason" binding:"omitempty,max=2000"`
}

// ConfirmRejectRequest 驳回向导确认请求（原因必填，服务层去空白后再校验）
type ConfirmRejectRequest struct {
	Reason string `json:"reason" binding:"max=2000"`
}

// ExportReportsRequest 周报 Excel 导出参数
type ExportReportsRequest struct {
	DepartmentID string `form:"department_id" binding:"omitempty,uuid"`
	State        string `form:"state"         binding:"omitempty,oneof=draft submitted validated rejected"`
	Year         int    `form:"year"          binding:"omitempty,min=2000,max=2100"`
	Week         int    `form:"week"          binding:"omitempty,min=1,max=53"`
}

// ── 响应 ──

// ReportSummaryResponse 周报列表项
type ReportSummaryResponse struct {
	ID                  string           `json:"id"`
	Name                string           `json:"name"`
	Department          *DepartmentBrief `json:"department,omitempty"`
	Direction           *DepartmentBrief `json:"direction,omitempty"`
	WeekStart           string           `json:"week_start"`
	WeekEnd             string           `json:"week_end"`
	Year                *int             `json:"year,omitempty"`
	State               string           `json:"state"`
	GlobalProgress      float64          `json:"global_progress"`
	ArbitrationRequired bool             `json:"arbitration_required"`
	UpdatedAt           string           `json:"updated_at"`
}

// ReportResponse 周报详情
type ReportResponse struct {
	ReportSummaryResponse
	EmployeeID        string         `json:"employee_id,omitempty"`
	EmployeeName      string         `json:"employee_name,omitempty"`
	UserID            string         `json:"user_id"`
	BlockingPoints    string         `json:"blocking_points,omitempty"`
	CorrectiveActions string         `json:"corrective_actions,omitempty"`
	RejectionReason   string         `json:"rejection_reason,omitempty"`
	Version           int            `json:"version"`
	Lines             []LineResponse `json:"lines"`
}

// LineResponse 活动明细
type LineResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	DateStart string `json:"date_start,omitempty"`
	DateEnd   string `json:"date_end,omitempty"`
	Status    string `json:"status"`
	Priority  string `json:"priority"`
	Progress  int    `json:"progress"`
	Duration  int    `json:"duration"`
}

// ReportMessageResponse 时间线条目
type ReportMessageResponse struct {
	ID          string `json:"id"`
	AuthorID    string `json:"author_id,omitempty"`
	AuthorName  string `json:"author_name"`
	Subject     string `json:"subject"`
	Body        string `json:"body"`
	MessageType string `json:"message_type"`
	Subtype     string `json:"subtype"`
	CreatedAt   string `json:"created_at"`
}

// ReportTaskResponse 跟进任务
type ReportTaskResponse struct {
	ID         string `json:"id"`
	AssigneeID string `json:"assignee_id"`
	Purpose    string `json:"purpose"`
	Summary    string `json:"summary"`
	Note       string `json:"note,omitempty"`
	DueDate    string `json:"due_date"`
	Status     string `json:"status"`
	DoneAt     string `json:"done_at,omitempty"`
}

// RejectWizardResponse 驳回向导
type RejectWizardResponse struct {
	WizardID   string `json:"wizard_id"`
	ReportID   string `json:"report_id"`
	ReportName string `json:"report_name"`
	ExpiresIn  int    `json:"expires_in"` // 秒
}

// [自证通过] internal/dto/report.go
