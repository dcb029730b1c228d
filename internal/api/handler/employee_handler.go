package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/Djomab/activity-weekly-report/internal/dto"
	"github.com/Djomab/activity-weekly-report/internal/service"
	"github.com/Djomab/activity-weekly-report/pkg/response"
)

// EmployeeHandler 员工模块 HTTP 处理器
type EmployeeHandler struct {
	empSvc service.EmployeeService
}

// NewEmployeeHandler 创建 EmployeeHandler
func NewEmployeeHandler(empSvc service.EmployeeService) *EmployeeHandler {
	return &EmployeeHandler{empSvc: empSvc}
}

// ListEmployees 员工列表
// GET /api/v1/employees
func (h *EmployeeHandler) ListEmployees(c *gin.Context) {
	var req dto.EmployeeListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	list, err := h.empSvc.List(c.Request.Context(), &req)
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OK(c, gin.H{"list": list})
}

// CreateEmployee 创建员工（管理员）
// POST /api/v1/employees
func (h *EmployeeHandler) CreateEmployee(c *gin.Context) {
	var req dto.CreateEmployeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	emp, err := h.empSvc.Create(c.Request.Context(), &req, callerID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmployeeUserLinked):
			response.Conflict(c, 14001, "该账号已关联其他员工")
		case errors.Is(err, service.ErrUserNotFound):
			response.NotFound(c, 14002, "关联账号不存在")
		case errors.Is(err, service.ErrDepartmentNotFound):
			response.NotFound(c, 14003, "所属组织单元不存在")
		default:
			response.InternalError(c)
		}
		return
	}

	response.Created(c, emp)
}
