package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/Djomab/activity-weekly-report/internal/model"
)

// ReportLineRepository 活动明细数据访问接口
type ReportLineRepository interface {
	BatchCreate(ctx context.Context, lines []model.ActivityReportLine) error
	Create(ctx context.Context, line *model.ActivityReportLine) error
	GetByID(ctx context.Context, id string) (*model.ActivityReportLine, error)
	ListByReport(ctx context.Context, reportID string) ([]model.ActivityReportLine, error)
	Update(ctx context.Context, line *model.ActivityReportLine) error
	Delete(ctx context.Context, id string) error
}

type reportLineRepo struct {
	db *gorm.DB
}

// NewReportLineRepo 创建 ReportLineRepository 实例
func NewReportLineRepo(db *gorm.DB) ReportLineRepository {
	return &reportLineRepo{db: db}
}

func (r *reportLineRepo) BatchCreate(ctx context.Context, lines []model.ActivityReportLine) error {
	if len(lines) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).CreateInBatches(lines, 100).Error
}

func (r *reportLineRepo) Create(ctx context.Context, line *model.ActivityReportLine) error {
	return r.db.WithContext(ctx).Create(line).Error
}

func (r *reportLineRepo) GetByID(ctx context.Context, id string) (*model.ActivityReportLine, error) {
	var line model.ActivityReportLine
	err := r.db.WithContext(ctx).
		Where("line_id = ?", id).
		First(&line).Error
	if err != nil {
		return nil, err
	}
	return &line, nil
}

func (r *reportLineRepo) ListByReport(ctx context.Context, reportID string) ([]model.ActivityReportLine, error) {
	var lines []model.ActivityReportLine
	err := r.db.WithContext(ctx).
		Where("report_id = ?", reportID).
		Order(model.LineOrder).
		Find(&lines).Error
	return lines, err
}

func (r *reportLineRepo) Update(ctx context.Context, line *model.ActivityReportLine) error {
	return r.db.WithContext(ctx).
		Model(&model.ActivityReportLine{}).
		Where("line_id = ?", line.LineID).
		Updates(map[string]interface{}{
			"name":       line.Name,
			"date_start": line.DateStart,
			"date_end":   line.DateEnd,
			"status":     line.Status,
			"priority":   line.Priority,
			"progress":   line.Progress,
			"duration":   line.Duration,
			"updated_by": line.UpdatedBy,
			"updated_at": gorm.Expr("NOW()"),
		}).Error
}

func (r *reportLineRepo) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).
		Where("line_id = ?", id).
		Delete(&model.ActivityReportLine{}).Error
}
