package service

import (
	"bytes"
	"context"
	"text/template"

	"go.uber.org/zap"

	"github.com/Djomab/activity-weekly-report/config"
	"github.com/Djomab/activity-weekly-report/internal/dto"
	"github.com/Djomab/activity-weekly-report/internal/model"
	"github.com/Djomab/activity-weekly-report/internal/repository"
)

// 通知模板名
const (
	NotifyReportSubmitted = "report_submitted"
	NotifyReportValidated = "report_validated"
	NotifyReportRejected  = "report_rejected"
)

// Notifier 周报通知分发
// 在事务提交后调用：模板缺失时静默跳过，写入失败只记录日志，不影响周报状态
type Notifier interface {
	Notify(ctx context.Context, event string, recipientID *string, report *model.ActivityReport, actor dto.Actor, reason string)
}

// notificationData 模板可用字段
type notificationData struct {
	ReportName string
	ActorName  string
	WeekStart  string
	WeekEnd    string
	Reason     string
}

type compiledTemplate struct {
	title *template.Template
	body  *template.Template
}

type templateNotifier struct {
	enabled   bool
	templates map[string]compiledTemplate
	repo      *repository.Repository
	logger    *zap.Logger
}

// NewTemplateNotifier 预编译配置中的模板；语法错误的模板记录警告后视为未配置
func NewTemplateNotifier(cfg *config.NotificationConfig, repo *repository.Repository, logger *zap.Logger) Notifier {
	n := &templateNotifier{
		enabled:   cfg.Enabled,
		templates: make(map[string]compiledTemplate, len(cfg.Templates)),
		repo:      repo,
		logger:    logger,
	}

	for name, tc := range cfg.Templates {
		if tc.Title == "" && tc.Body == "" {
			continue
		}
		title, err := template.New(name + ".title").Parse(tc.Title)
		if err != nil {
			logger.Warn("通知模板标题解析失败，已跳过", zap.String("template", name), zap.Error(err))
			continue
		}
		body, err := template.New(name + ".body").Parse(tc.Body)
		if err != nil {
			logger.Warn("通知模板正文解析失败，已跳过", zap.String("template", name), zap.Error(err))
			continue
		}
		n.templates[name] = compiledTemplate{title: title, body: body}
	}
	return n
}

func (n *templateNotifier) Notify(ctx context.Context, event string, recipientID *string, report *model.ActivityReport, actor dto.Actor, reason string) {
	if !n.enabled || recipientID == nil || *recipientID == "" {
		return
	}
	tmpl, ok := n.templates[event]
	if !ok {
		return
	}

	data := notificationData{
		ReportName: report.Name,
		ActorName:  actor.Name,
		WeekStart:  model.FormatDate(&report.WeekStart),
		WeekEnd:    model.FormatDate(&report.WeekEnd),
		Reason:     reason,
	}

	var title, body bytes.Buffer
	if err := tmpl.title.Execute(&title, data); err != nil {
		n.logger.Warn("渲染通知标题失败", zap.String("template", event), zap.Error(err))
		return
	}
	if err := tmpl.body.Execute(&body, data); err != nil {
		n.logger.Warn("渲染通知正文失败", zap.String("template", event), zap.Error(err))
		return
	}

	relatedType := model.NotificationRelatedReport
	reportID := report.ReportID
	notification := &model.Notification{
		UserID:      *recipientID,
		Type:        event,
		Title:       title.String(),
		Content:     body.String(),
		RelatedType: &relatedType,
		RelatedID:   &reportID,
	}
	notification.CreatedBy = &actor.UserID

	if err := n.repo.Notification.Create(ctx, notification); err != nil {
		n.logger.Warn("写入周报通知失败",
			zap.String("template", event),
			zap.String("report_id", report.ReportID),
			zap.Error(err))
	}
}
