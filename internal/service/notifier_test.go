package service

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/Djomab/activity-weekly-report/config"
	"github.com/Djomab/activity-weekly-report/internal/dto"
	"github.com/Djomab/activity-weekly-report/internal/model"
)

func testReport() *model.ActivityReport {
	return &model.ActivityReport{
		ReportID:  "r-1",
		Name:      "Report W2 - 网络服务",
		WeekStart: time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC),
		WeekEnd:   time.Date(2024, 1, 12, 0, 0, 0, 0, time.UTC),
	}
}

func TestNotifier_RendersTemplate(t *testing.T) {
	store := newMockStore()
	n := NewTemplateNotifier(&config.NotificationConfig{
		Enabled:   true,
		Templates: config.DefaultNotificationTemplates(),
	}, newMockRepository(store), zap.NewNop())

	n.Notify(context.Background(), NotifyReportRejected, strPtr("u-mgr"), testReport(), directorActor, "数据缺失")

	if len(store.notifications) != 1 {
		t.Fatalf("期望写入 1 条通知，实际=%d", len(store.notifications))
	}
	for _, got := range store.notifications {
		if got.Title != "周报已驳回：Report W2 - 网络服务" {
			t.Errorf("标题不正确，实际=%s", got.Title)
		}
		if got.Content != "王局长 驳回了 Report W2 - 网络服务，原因：数据缺失" {
			t.Errorf("正文不正确，实际=%s", got.Content)
		}
		if got.RelatedID == nil || *got.RelatedID != "r-1" {
			t.Errorf("关联周报不正确: %v", got.RelatedID)
		}
	}
}

func TestNotifier_SkipCases(t *testing.T) {
	tests := []struct {
		name      string
		cfg       config.NotificationConfig
		recipient *string
	}{
		{"通知关闭", config.NotificationConfig{Enabled: false, Templates: config.DefaultNotificationTemplates()}, strPtr("u-1")},
		{"模板缺失", config.NotificationConfig{Enabled: true}, strPtr("u-1")},
		{"无接收人", config.NotificationConfig{Enabled: true, Templates: config.DefaultNotificationTemplates()}, nil},
		{"模板语法错误", config.NotificationConfig{Enabled: true, Templates: map[string]config.NotificationTemplateConfig{
			NotifyReportSubmitted: {Title: "{{.ReportName", Body: "x"},
		}}, strPtr("u-1")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMockStore()
			n := NewTemplateNotifier(&tt.cfg, newMockRepository(store), zap.NewNop())
			n.Notify(context.Background(), NotifyReportSubmitted, tt.recipient, testReport(), managerActor, "")
			if len(store.notifications) != 0 {
				t.Errorf("期望不写入通知，实际=%d", len(store.notifications))
			}
		})
	}
}

// ── 通知服务 ──

func TestNotificationService_ListAndMarkRead(t *testing.T) {
	store := newMockStore()
	svc := NewNotificationService(newMockRepository(store), zap.NewNop())
	store.notifications["n-1"] = &model.Notification{NotificationID: "n-1", UserID: "u-1", Title: "甲"}
	store.notifications["n-2"] = &model.Notification{NotificationID: "n-2", UserID: "u-1", Title: "乙"}
	store.notifications["n-3"] = &model.Notification{NotificationID: "n-3", UserID: "u-2", Title: "丙"}
	ctx := context.Background()

	if err := svc.MarkRead(ctx, "u-1", "n-1"); err != nil {
		t.Fatalf("MarkRead 应成功: %v", err)
	}
	if err := svc.MarkRead(ctx, "u-1", "n-3"); err != ErrNotificationNotFound {
		t.Errorf("他人通知期望 ErrNotificationNotFound，实际: %v", err)
	}

	list, total, err := svc.List(ctx, "u-1", &dto.NotificationListRequest{UnreadOnly: true})
	if err != nil {
		t.Fatalf("List 应成功: %v", err)
	}
	if total != 1 || list[0].ID != "n-2" {
		t.Errorf("仅未读期望 n-2，实际 total=%d", total)
	}
}
