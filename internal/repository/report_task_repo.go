package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/Djomab/activity-weekly-report/internal/model"
)

// ReportTaskRepository 周报跟进任务数据访问接口
type ReportTaskRepository interface {
	Create(ctx context.Context, task *model.ReportTask) error
	FindOpen(ctx context.Context, reportID, assigneeID, purpose string) (*model.ReportTask, error)
	ListByReport(ctx context.Context, reportID string) ([]model.ReportTask, error)
	MarkDoneByReport(ctx context.Context, reportID, doneBy string) (int64, error)
}

type reportTaskRepo struct {
	db *gorm.DB
}

// NewReportTaskRepo 创建 ReportTaskRepository 实例
func NewReportTaskRepo(db *gorm.DB) ReportTaskRepository {
	return &reportTaskRepo{db: db}
}

func (r *reportTaskRepo) Create(ctx context.Context, task *model.ReportTask) error {
	return r.db.WithContext(ctx).Create(task).Error
}

// FindOpen 按幂等键查找未完成任务；不存在时返回 gorm.ErrRecordNotFound
func (r *reportTaskRepo) FindOpen(ctx context.Context, reportID, assigneeID, purpose string) (*model.ReportTask, error) {
	var task model.ReportTask
	err := r.db.WithContext(ctx).
		Where("report_id = ? AND assignee_id = ? AND purpose = ? AND status = ?",
			reportID, assigneeID, purpose, model.TaskStatusOpen).
		First(&task).Error
	if err != nil {
		return nil, err
	}
	return &task, nil
}

func (r *reportTaskRepo) ListByReport(ctx context.Context, reportID string) ([]model.ReportTask, error) {
	var tasks []model.ReportTask
	err := r.db.WithContext(ctx).
		Where("report_id = ?", reportID).
		Order("created_at ASC").
		Find(&tasks).Error
	return tasks, err
}

// MarkDoneByReport 关闭周报下所有未完成任务，返回关闭数量
func (r *reportTaskRepo) MarkDoneByReport(ctx context.Context, reportID, doneBy string) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&model.ReportTask{}).
		Where("report_id = ? AND status = ?", reportID, model.TaskStatusOpen).
		Updates(map[string]interface{}{
			"status":     model.TaskStatusDone,
			"done_at":    time.Now(),
			"done_by":    doneBy,
			"updated_by": doneBy,
			"updated_at": gorm.Expr("NOW()"),
		})
	return result.RowsAffected, result.Error
}
