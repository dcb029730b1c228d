package dto

// ── 员工模块 DTO ──

// CreateEmployeeRequest 创建员工请求
type CreateEmployeeRequest struct {
	Name         string  `json:"name"          binding:"required,min=2,max=100"`
	JobTitle     string  `json:"job_title"     binding:"omitempty,max=100"`
	UserID       *string `json:"user_id"       binding:"omitempty,uuid"`
	DepartmentID *string `json:"department_id" binding:"omitempty,uuid"`
}

// EmployeeListRequest 员工列表查询参数
type EmployeeListRequest struct {
	DepartmentID string `form:"department_id" binding:"omitempty,uuid"`
}

// EmployeeResponse 员工信息响应
type EmployeeResponse struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	JobTitle     string `json:"job_title,omitempty"`
	UserID       string `json:"user_id,omitempty"`
	DepartmentID string `json:"department_id,omitempty"`
}
