package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/Djomab/activity-weekly-report/internal/model"
)

// ReportMessageRepository 周报时间线数据访问接口（仅追加）
type ReportMessageRepository interface {
	Create(ctx context.Context, msg *model.ReportMessage) error
	ListByReport(ctx context.Context, reportID string) ([]model.ReportMessage, error)
}

type reportMessageRepo struct {
	db *gorm.DB
}

// NewReportMessageRepo 创建 ReportMessageRepository 实例
func NewReportMessageRepo(db *gorm.DB) ReportMessageRepository {
	return &reportMessageRepo{db: db}
}

func (r *reportMessageRepo) Create(ctx context.Context, msg *model.ReportMessage) error {
	return r.db.WithContext(ctx).Create(msg).Error
}

func (r *reportMessageRepo) ListByReport(ctx context.Context, reportID string) ([]model.ReportMessage, error) {
	var msgs []model.ReportMessage
	err := r.db.WithContext(ctx).
		Where("report_id = ?", reportID).
		Order("created_at ASC").
		Find(&msgs).Error
	return msgs, err
}
