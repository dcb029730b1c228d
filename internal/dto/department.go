package dto

// ── 组织单元模块 DTO ──

// CreateDepartmentRequest 创建组织单元请求（局或服务）
type CreateDepartmentRequest struct {
	Name      string  `json:"name"       binding:"required,min=2,max=100"`
	Code      string  `json:"code"       binding:"omitempty,max=20"`
	ParentID  *string `json:"parent_id"  binding:"omitempty,uuid"`
	ManagerID *string `json:"manager_id" binding:"omitempty,uuid"`
}

// UpdateDepartmentRequest 更新组织单元请求
// ParentID / ManagerID 传空串表示清空
type UpdateDepartmentRequest struct {
	Name      *string `json:"name"       binding:"omitempty,min=2,max=100"`
	Code      *string `json:"code"       binding:"omitempty,max=20"`
	ParentID  *string `json:"parent_id"  binding:"omitempty,max=36"`
	ManagerID *string `json:"manager_id" binding:"omitempty,max=36"`
	IsActive  *bool   `json:"is_active"`
}

// DepartmentListRequest 组织单元列表查询参数
type DepartmentListRequest struct {
	IncludeInactive bool   `form:"include_inactive"`
	ParentID        string `form:"parent_id" binding:"omitempty,uuid"`
}

// DepartmentDetailResponse 组织单元详细信息响应
type DepartmentDetailResponse struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Code        string           `json:"code,omitempty"`
	Parent      *DepartmentBrief `json:"parent,omitempty"`
	ManagerID   string           `json:"manager_id,omitempty"`
	ManagerName string           `json:"manager_name,omitempty"`
	IsActive    bool             `json:"is_active"`
	ReportCount int64            `json:"report_count"`
	CreatedAt   string           `json:"created_at"`
	UpdatedAt   string           `json:"updated_at"`
}
