package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/Djomab/activity-weekly-report/internal/dto"
	"github.com/Djomab/activity-weekly-report/internal/model"
)

// ── Excel 导出 ──

func TestExportReports_Excel(t *testing.T) {
	env := setupReportEnv()
	env.createDraft(t,
		dto.LineRequest{Name: "交换机巡检", DateStart: "2024-01-08", DateEnd: "2024-01-10", Priority: "high", Progress: intPtr(20)},
		dto.LineRequest{Name: "机房整理", Progress: intPtr(60)},
	)

	buf, filename, err := env.export.ExportReports(context.Background(), adminActor, &dto.ExportReportsRequest{Year: 2024, Week: 2})
	if err != nil {
		t.Fatalf("ExportReports 应成功: %v", err)
	}
	if filename != "周报_2024_W02.xlsx" {
		t.Errorf("文件名不正确，实际=%s", filename)
	}

	f, err := excelize.OpenReader(buf)
	if err != nil {
		t.Fatalf("导出内容应为合法 xlsx: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows("周报")
	if err != nil {
		t.Fatalf("读取「周报」Sheet 失败: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("期望表头 + 1 行，实际=%d", len(rows))
	}
	if rows[1][0] != "Report W2 - 网络服务" || rows[1][1] != "网络服务" || rows[1][2] != "信息局" {
		t.Errorf("周报行内容不正确: %v", rows[1])
	}
	if rows[1][5] != "草稿" || rows[1][6] != "40" {
		t.Errorf("状态或整体进度不正确: %v", rows[1])
	}

	lines, _ := f.GetRows("活动明细")
	if len(lines) != 3 {
		t.Fatalf("期望表头 + 2 行明细，实际=%d", len(lines))
	}
	if lines[1][1] != "交换机巡检" || lines[1][4] != "3" || lines[1][6] != "high" {
		t.Errorf("明细行内容不正确: %v", lines[1])
	}
}

func TestExportReports_Empty(t *testing.T) {
	env := setupReportEnv()
	env.createDraft(t)

	_, _, err := env.export.ExportReports(context.Background(), otherActor, &dto.ExportReportsRequest{})
	if !errors.Is(err, ErrExportNoReports) {
		t.Errorf("不可见范围内无周报时期望 ErrExportNoReports，实际: %v", err)
	}
}

// ── iCalendar 导出 ──

func TestExportCalendar(t *testing.T) {
	env := setupReportEnv()
	draft := env.createDraft(t,
		dto.LineRequest{Name: "交换机巡检", DateStart: "2024-01-09", DateEnd: "2024-01-11"},
		dto.LineRequest{Name: "应急演练", DateStart: "2024-01-12"},
		dto.LineRequest{Name: "待定事项"},
	)

	buf, filename, err := env.export.ExportCalendar(context.Background(), managerActor, draft.ID)
	if err != nil {
		t.Fatalf("ExportCalendar 应成功: %v", err)
	}
	if filename != "report_2024_W02.ics" {
		t.Errorf("文件名不正确，实际=%s", filename)
	}

	out := buf.String()
	if n := strings.Count(out, "BEGIN:VEVENT"); n != 2 {
		t.Errorf("无日期的明细应跳过，期望 2 个事件，实际=%d", n)
	}
	for _, want := range []string{
		"DTSTART;VALUE=DATE:20240109",
		"DTEND;VALUE=DATE:20240112",
		"DTSTART;VALUE=DATE:20240112",
		"DTEND;VALUE=DATE:20240113",
		"SUMMARY:交换机巡检",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("日历内容应包含 %q", want)
		}
	}
	if strings.Contains(out, "待定事项") {
		t.Error("无日期的明细不应导出")
	}
}

func TestExportCalendar_InvisibleReport(t *testing.T) {
	env := setupReportEnv()
	draft := env.createDraft(t)

	_, _, err := env.export.ExportCalendar(context.Background(), otherActor, draft.ID)
	if !errors.Is(err, ErrReportNotFound) {
		t.Errorf("期望 ErrReportNotFound，实际: %v", err)
	}
}

func TestBuildReportCalendar_Priority(t *testing.T) {
	start := time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC)
	report := &model.ActivityReport{
		Name: "Report W2 - 网络服务",
		Lines: []model.ActivityReportLine{
			{LineID: "l-1", Name: "紧急修复", DateStart: &start, Priority: model.LinePriorityCritical, Status: model.LineStatusInProgress},
		},
	}

	out := buildReportCalendar(report, start).Serialize()
	if !strings.Contains(out, "PRIORITY:3") {
		t.Errorf("critical 应映射为 PRIORITY:3，实际=%s", out)
	}
	if !strings.Contains(out, "CATEGORIES:critical") {
		t.Errorf("应包含优先级分类，实际=%s", out)
	}
}
