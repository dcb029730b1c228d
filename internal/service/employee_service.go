package service

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Djomab/activity-weekly-report/internal/dto"
	"github.com/Djomab/activity-weekly-report/internal/model"
	"github.com/Djomab/activity-weekly-report/internal/repository"
)

var (
	ErrEmployeeNotFound   = errors.New("员工不存在")
	ErrEmployeeUserLinked = errors.New("该账号已关联其他员工")
)

// EmployeeService 员工业务接口
type EmployeeService interface {
	Create(ctx context.Context, req *dto.CreateEmployeeRequest, callerID string) (*dto.EmployeeResponse, error)
	List(ctx context.Context, req *dto.EmployeeListRequest) ([]dto.EmployeeResponse, error)
}

type employeeService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewEmployeeService 创建 EmployeeService 实例
func NewEmployeeService(repo *repository.Repository, logger *zap.Logger) EmployeeService {
	return &employeeService{repo: repo, logger: logger}
}

func (s *employeeService) Create(ctx context.Context, req *dto.CreateEmployeeRequest, callerID string) (*dto.EmployeeResponse, error) {
	if req.UserID != nil && *req.UserID != "" {
		if _, err := s.repo.User.GetByID(ctx, *req.UserID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrUserNotFound
			}
			return nil, err
		}
	}
	if req.DepartmentID != nil && *req.DepartmentID != "" {
		if _, err := s.repo.Department.GetByID(ctx, *req.DepartmentID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrDepartmentNotFound
			}
			return nil, err
		}
	}

	emp := &model.Employee{
		Name:         req.Name,
		JobTitle:     req.JobTitle,
		UserID:       req.UserID,
		DepartmentID: req.DepartmentID,
	}
	emp.CreatedBy = &callerID
	emp.UpdatedBy = &callerID

	if err := s.repo.Employee.Create(ctx, emp); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrEmployeeUserLinked
		}
		s.logger.Error("创建员工失败", zap.Error(err))
		return nil, err
	}
	return toEmployeeResponse(emp), nil
}

func (s *employeeService) List(ctx context.Context, req *dto.EmployeeListRequest) ([]dto.EmployeeResponse, error) {
	emps, err := s.repo.Employee.List(ctx, req.DepartmentID)
	if err != nil {
		s.logger.Error("查询员工列表失败", zap.Error(err))
		return nil, err
	}
	result := make([]dto.EmployeeResponse, 0, len(emps))
	for i := range emps {
		result = append(result, *toEmployeeResponse(&emps[i]))
	}
	return result, nil
}

func toEmployeeResponse(e *model.Employee) *dto.EmployeeResponse {
	resp := &dto.EmployeeResponse{
		ID:       e.EmployeeID,
		Name:     e.Name,
		JobTitle: e.JobTitle,
	}
	if e.UserID != nil {
		resp.UserID = *e.UserID
	}
	if e.DepartmentID != nil {
		resp.DepartmentID = *e.DepartmentID
	}
	return resp
}
