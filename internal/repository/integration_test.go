//go:build integration

package repository_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Djomab/activity-weekly-report/internal/model"
	"github.com/Djomab/activity-weekly-report/internal/repository"
	"github.com/Djomab/activity-weekly-report/pkg/database"
	pkgerrors "github.com/Djomab/activity-weekly-report/pkg/errors"
)

// ═══════════════════════════════════════════════════════════
// Test Setup
// ═══════════════════════════════════════════════════════════

var testDB *gorm.DB

func TestMain(m *testing.M) {
	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		dsn = "host=localhost port=5433 user=postgres password=postgres dbname=activity_report_test sslmode=disable TimeZone=UTC"
	}

	var err error
	testDB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "无法连接测试数据库: %v\n", err)
		os.Exit(1)
	}

	// 使用正式迁移脚本建表，约束与生产一致
	sqlDB, err := testDB.DB()
	if err != nil {
		fmt.Fprintf(os.Stderr, "获取 sql.DB 失败: %v\n", err)
		os.Exit(1)
	}
	if err := database.RunMigrations(sqlDB, zap.NewNop()); err != nil {
		fmt.Fprintf(os.Stderr, "迁移失败: %v\n", err)
		os.Exit(1)
	}

	code := m.Run()
	os.Exit(code)
}

// setupTestData 创建基础测试数据（账号、局、服务）并返回清理函数
func setupTestData(t *testing.T) (user *model.User, direction, service *model.Department, cleanup func()) {
	t.Helper()
	ctx := context.Background()
	suffix := time.Now().UnixNano()

	user = &model.User{
		Name:         "测试负责人",
		Email:        fmt.Sprintf("manager%d@example.org", suffix),
		PasswordHash: "$2a$10$placeholder",
		Role:         model.RoleManager,
		IsActive:     true,
	}
	if err := testDB.WithContext(ctx).Create(user).Error; err != nil {
		t.Fatalf("创建用户失败: %v", err)
	}

	direction = &model.Department{Name: fmt.Sprintf("测试局-%d", suffix), IsActive: true}
	if err := testDB.WithContext(ctx).Omit("Parent", "Manager").Create(direction).Error; err != nil {
		t.Fatalf("创建局失败: %v", err)
	}

	service = &model.Department{
		Name:     fmt.Sprintf("测试服务-%d", suffix),
		ParentID: &direction.DepartmentID,
		IsActive: true,
	}
	if err := testDB.WithContext(ctx).Omit("Parent", "Manager").Create(service).Error; err != nil {
		t.Fatalf("创建服务失败: %v", err)
	}

	cleanup = func() {
		testDB.Where("department_id = ?", service.DepartmentID).Delete(&model.ActivityReport{})
		testDB.Where("department_id = ?", service.DepartmentID).Delete(&model.Department{})
		testDB.Where("department_id = ?", direction.DepartmentID).Delete(&model.Department{})
		testDB.Where("user_id = ?", user.UserID).Delete(&model.User{})
	}
	return
}

func newReport(user *model.User, service *model.Department, weekStart time.Time) *model.ActivityReport {
	r := &model.ActivityReport{
		DepartmentID: service.DepartmentID,
		UserID:       user.UserID,
		WeekStart:    weekStart,
		WeekEnd:      weekStart.AddDate(0, 0, 6),
		State:        model.ReportStateDraft,
	}
	r.Version = 1
	r.RecomputeIdentity(service)
	return r
}

// ═══════════════════════════════════════════════════════════
// Test: Unique (service, week_start)
// ═══════════════════════════════════════════════════════════

func TestReport_DuplicateServiceWeek(t *testing.T) {
	user, _, service, cleanup := setupTestData(t)
	defer cleanup()

	repo := repository.NewRepository(testDB)
	ctx := context.Background()
	monday := time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC)

	if err := repo.Report.Create(ctx, newReport(user, service, monday)); err != nil {
		t.Fatalf("首次创建应成功: %v", err)
	}

	err := repo.Report.Create(ctx, newReport(user, service, monday))
	if !errors.Is(err, gorm.ErrDuplicatedKey) {
		t.Errorf("期望 gorm.ErrDuplicatedKey，实际: %v", err)
	}

	exists, err := repo.Report.ExistsByDepartmentWeek(ctx, service.DepartmentID, monday, "")
	if err != nil || !exists {
		t.Errorf("ExistsByDepartmentWeek 应返回 true，实际: %v, %v", exists, err)
	}
}

// ═══════════════════════════════════════════════════════════
// Test: CHECK constraints
// ═══════════════════════════════════════════════════════════

func TestReport_WeekEndBeforeStartRejected(t *testing.T) {
	user, _, service, cleanup := setupTestData(t)
	defer cleanup()

	repo := repository.NewRepository(testDB)
	ctx := context.Background()

	r := newReport(user, service, time.Date(2024, 2, 5, 0, 0, 0, 0, time.UTC))
	r.WeekEnd = r.WeekStart.AddDate(0, 0, -1)
	if err := repo.Report.Create(ctx, r); err == nil {
		t.Fatal("期望 CHECK 约束拒绝结束早于开始的周报")
	}
}

func TestLine_ProgressOutOfRangeRejected(t *testing.T) {
	user, _, service, cleanup := setupTestData(t)
	defer cleanup()

	repo := repository.NewRepository(testDB)
	ctx := context.Background()

	r := newReport(user, service, time.Date(2024, 2, 12, 0, 0, 0, 0, time.UTC))
	if err := repo.Report.Create(ctx, r); err != nil {
		t.Fatalf("创建周报失败: %v", err)
	}

	line := model.NewActivityReportLine("越界进度")
	line.ReportID = r.ReportID
	line.Progress = 120
	if err := repo.ReportLine.Create(ctx, line); err == nil {
		t.Fatal("期望 CHECK 约束拒绝进度 120")
	}
}

// ═══════════════════════════════════════════════════════════
// Test: Cascade delete & preload order
// ═══════════════════════════════════════════════════════════

func TestReport_DeleteCascadesLines(t *testing.T) {
	user, _, service, cleanup := setupTestData(t)
	defer cleanup()

	repo := repository.NewRepository(testDB)
	ctx := context.Background()

	r := newReport(user, service, time.Date(2024, 2, 19, 0, 0, 0, 0, time.UTC))
	if err := repo.Report.Create(ctx, r); err != nil {
		t.Fatalf("创建周报失败: %v", err)
	}

	low := model.NewActivityReportLine("低优先级")
	low.ReportID = r.ReportID
	low.Priority = model.LinePriorityLow
	high := model.NewActivityReportLine("高优先级")
	high.ReportID = r.ReportID
	high.Priority = model.LinePriorityHigh
	if err := repo.ReportLine.BatchCreate(ctx, []model.ActivityReportLine{*low, *high}); err != nil {
		t.Fatalf("创建明细失败: %v", err)
	}

	got, err := repo.Report.GetByID(ctx, r.ReportID)
	if err != nil {
		t.Fatalf("查询周报失败: %v", err)
	}
	if len(got.Lines) != 2 || got.Lines[0].Name != "高优先级" {
		t.Errorf("明细应按优先级降序排列，实际: %+v", got.Lines)
	}
	if got.Direction == nil {
		t.Error("应预加载上级单元")
	}

	if err := repo.Report.Delete(ctx, r.ReportID); err != nil {
		t.Fatalf("删除周报失败: %v", err)
	}
	lines, err := repo.ReportLine.ListByReport(ctx, r.ReportID)
	if err != nil {
		t.Fatalf("查询明细失败: %v", err)
	}
	if len(lines) != 0 {
		t.Errorf("删除周报后明细应级联删除，剩余 %d 条", len(lines))
	}
}

// ═══════════════════════════════════════════════════════════
// Test: Transaction Rollback
// ═══════════════════════════════════════════════════════════

func TestTransaction_Rollback(t *testing.T) {
	user, _, service, cleanup := setupTestData(t)
	defer cleanup()

	repo := repository.NewRepository(testDB)
	ctx := context.Background()

	tx, err := repo.BeginTx(ctx)
	if err != nil {
		t.Fatalf("BeginTx 失败: %v", err)
	}
	txRepo := repo.WithTx(tx)

	r := newReport(user, service, time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC))
	if err := txRepo.Report.Create(ctx, r); err != nil {
		tx.Rollback()
		t.Fatalf("事务内创建周报失败: %v", err)
	}

	tx.Rollback()

	if _, err := repo.Report.GetByID(ctx, r.ReportID); err == nil {
		t.Fatal("期望回滚后查不到周报，但实际查到了")
	}
}

// ═══════════════════════════════════════════════════════════
// Test: Optimistic Lock
// ═══════════════════════════════════════════════════════════

func TestOptimisticLock_Report_ConflictDetected(t *testing.T) {
	user, _, service, cleanup := setupTestData(t)
	defer cleanup()

	repo := repository.NewRepository(testDB)
	ctx := context.Background()

	r := newReport(user, service, time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC))
	if err := repo.Report.Create(ctx, r); err != nil {
		t.Fatalf("创建周报失败: %v", err)
	}

	copy1, _ := repo.Report.GetByID(ctx, r.ReportID)
	copy2, _ := repo.Report.GetByID(ctx, r.ReportID)

	copy1.BlockingPoints = "网络中断"
	if err := repo.Report.Update(ctx, copy1); err != nil {
		t.Fatalf("第一次更新应成功: %v", err)
	}
	if copy1.Version != 2 {
		t.Errorf("期望 version=2，得到: %d", copy1.Version)
	}

	copy2.CorrectiveActions = "更换设备"
	if err := repo.Report.Update(ctx, copy2); !errors.Is(err, pkgerrors.ErrOptimisticLock) {
		t.Errorf("期望 ErrOptimisticLock，得到: %v", err)
	}
}

// ═══════════════════════════════════════════════════════════
// Test: Department re-parent refreshes report copies
// ═══════════════════════════════════════════════════════════

func TestReport_SyncDepartmentRefs(t *testing.T) {
	user, direction, service, cleanup := setupTestData(t)
	defer cleanup()

	repo := repository.NewRepository(testDB)
	ctx := context.Background()

	r := newReport(user, service, time.Date(2024, 3, 18, 0, 0, 0, 0, time.UTC))
	if err := repo.Report.Create(ctx, r); err != nil {
		t.Fatalf("创建周报失败: %v", err)
	}

	other := &model.Department{Name: fmt.Sprintf("新局-%d", time.Now().UnixNano()), IsActive: true}
	if err := testDB.WithContext(ctx).Omit("Parent", "Manager").Create(other).Error; err != nil {
		t.Fatalf("创建局失败: %v", err)
	}
	defer testDB.Where("department_id = ?", other.DepartmentID).Delete(&model.Department{})

	n, err := repo.Report.SyncDepartmentRefs(ctx, service.DepartmentID, &other.DepartmentID, nil)
	if err != nil {
		t.Fatalf("刷新周报冗余字段失败: %v", err)
	}
	if n != 1 {
		t.Errorf("期望刷新 1 条周报，得到: %d", n)
	}

	got, _ := repo.Report.GetByID(ctx, r.ReportID)
	if got.DirectionID == nil || *got.DirectionID != other.DepartmentID {
		t.Errorf("期望 direction_id=%s，得到: %v", other.DepartmentID, got.DirectionID)
	}
	if got.Version != r.Version+1 {
		t.Errorf("刷新后 version 应递增，得到: %d", got.Version)
	}
	if count, _ := repo.Department.CountReports(ctx, direction.DepartmentID); count != 0 {
		t.Errorf("原局不应再计入该周报，得到: %d", count)
	}
}

// ═══════════════════════════════════════════════════════════
// Test: Escalation task idempotency key
// ═══════════════════════════════════════════════════════════

func TestReportTask_OpenTaskUnique(t *testing.T) {
	user, _, service, cleanup := setupTestData(t)
	defer cleanup()

	repo := repository.NewRepository(testDB)
	ctx := context.Background()

	r := newReport(user, service, time.Date(2024, 3, 18, 0, 0, 0, 0, time.UTC))
	if err := repo.Report.Create(ctx, r); err != nil {
		t.Fatalf("创建周报失败: %v", err)
	}

	task := func() *model.ReportTask {
		return &model.ReportTask{
			ReportID:   r.ReportID,
			AssigneeID: user.UserID,
			Purpose:    model.TaskPurposeArbitration,
			Summary:    "仲裁",
			DueDate:    time.Now(),
			Status:     model.TaskStatusOpen,
		}
	}

	if err := repo.Task.Create(ctx, task()); err != nil {
		t.Fatalf("创建任务失败: %v", err)
	}
	if err := repo.Task.Create(ctx, task()); !errors.Is(err, gorm.ErrDuplicatedKey) {
		t.Errorf("同一幂等键的第二个未完成任务应被拒绝，实际: %v", err)
	}

	n, err := repo.Task.MarkDoneByReport(ctx, r.ReportID, user.UserID)
	if err != nil || n != 1 {
		t.Fatalf("期望关闭 1 个任务，实际: %d, %v", n, err)
	}
	if _, err := repo.Task.FindOpen(ctx, r.ReportID, user.UserID, model.TaskPurposeArbitration); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Errorf("关闭后不应再有未完成任务，实际: %v", err)
	}
	if err := repo.Task.Create(ctx, task()); err != nil {
		t.Errorf("已完成任务不占用幂等键，应可再次创建: %v", err)
	}
}
