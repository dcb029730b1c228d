package model

import "time"

// RejectWizard 驳回向导（临时对象，不落库，存于 Redis 并带 TTL）
// ReportID 创建后只读；驳回原因仅在确认时提交
type RejectWizard struct {
	WizardID  string    `json:"wizard_id"`
	ReportID  string    `json:"report_id"`
	OpenedBy  string    `json:"opened_by"`
	CreatedAt time.Time `json:"created_at"`
}
