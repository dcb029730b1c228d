package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/Djomab/activity-weekly-report/internal/model"
	"github.com/Djomab/activity-weekly-report/internal/repository"
	pkgerrors "github.com/Djomab/activity-weekly-report/pkg/errors"
)

// mockStore 所有 mock repository 共享的内存数据
// 读取一律返回副本，写入失败时不修改已有数据，行为与数据库一致
type mockStore struct {
	seq int

	users         map[string]*model.User
	departments   map[string]*model.Department
	employees     map[string]*model.Employee
	reports       map[string]*model.ActivityReport
	lines         map[string]*model.ActivityReportLine
	messages      []model.ReportMessage
	tasks         map[string]*model.ReportTask
	notifications map[string]*model.Notification

	// 注入错误
	notificationErr error
}

func newMockStore() *mockStore {
	return &mockStore{
		users:         make(map[string]*model.User),
		departments:   make(map[string]*model.Department),
		employees:     make(map[string]*model.Employee),
		reports:       make(map[string]*model.ActivityReport),
		lines:         make(map[string]*model.ActivityReportLine),
		tasks:         make(map[string]*model.ReportTask),
		notifications: make(map[string]*model.Notification),
	}
}

func (s *mockStore) nextID(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s-%d", prefix, s.seq)
}

// newMockRepository 组装使用共享 store 的 Repository（db 为 nil，事务退化为直接执行）
func newMockRepository(store *mockStore) *repository.Repository {
	return &repository.Repository{
		User:         &mockUserRepo{store},
		Department:   &mockDepartmentRepo{store},
		Employee:     &mockEmployeeRepo{store},
		Report:       &mockReportRepo{store},
		ReportLine:   &mockReportLineRepo{store},
		Message:      &mockMessageRepo{store},
		Task:         &mockTaskRepo{store},
		Notification: &mockNotificationRepo{store},
	}
}

// ── Mock UserRepository ──

type mockUserRepo struct{ s *mockStore }

func (m *mockUserRepo) Create(_ context.Context, user *model.User) error {
	for _, u := range m.s.users {
		if strings.EqualFold(u.Email, user.Email) {
			return gorm.ErrDuplicatedKey
		}
	}
	if user.UserID == "" {
		user.UserID = m.s.nextID("user")
	}
	user.CreatedAt = time.Now()
	cp := *user
	m.s.users[user.UserID] = &cp
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	if u, ok := m.s.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range m.s.users {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) List(_ context.Context, filter repository.UserFilter, offset, limit int) ([]model.User, int64, error) {
	var all []model.User
	for _, u := range m.s.users {
		if filter.Role != "" && u.Role != filter.Role {
			continue
		}
		if filter.Keyword != "" && !strings.Contains(u.Name, filter.Keyword) && !strings.Contains(u.Email, filter.Keyword) {
			continue
		}
		all = append(all, *u)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Name < all[j].Name })
	return paginate(all, offset, limit), int64(len(all)), nil
}

// ── Mock DepartmentRepository ──

type mockDepartmentRepo struct{ s *mockStore }

func (m *mockDepartmentRepo) nameTaken(name, excludeID string) bool {
	for _, d := range m.s.departments {
		if d.DepartmentID != excludeID && d.Name == name {
			return true
		}
	}
	return false
}

func (m *mockDepartmentRepo) Create(_ context.Context, dept *model.Department) error {
	if m.nameTaken(dept.Name, "") {
		return gorm.ErrDuplicatedKey
	}
	if dept.DepartmentID == "" {
		dept.DepartmentID = m.s.nextID("dept")
	}
	cp := *dept
	cp.Parent, cp.Manager = nil, nil
	m.s.departments[dept.DepartmentID] = &cp
	return nil
}

// load 返回带 Parent / Manager 的副本
func (m *mockDepartmentRepo) load(id string) *model.Department {
	d, ok := m.s.departments[id]
	if !ok {
		return nil
	}
	cp := *d
	if cp.ParentID != nil {
		if p, ok := m.s.departments[*cp.ParentID]; ok {
			parent := *p
			cp.Parent = &parent
		}
	}
	if cp.ManagerID != nil {
		if e, ok := m.s.employees[*cp.ManagerID]; ok {
			emp := *e
			cp.Manager = &emp
		}
	}
	return &cp
}

func (m *mockDepartmentRepo) GetByID(_ context.Context, id string) (*model.Department, error) {
	if d := m.load(id); d != nil {
		return d, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockDepartmentRepo) List(_ context.Context, includeInactive bool, parentID string) ([]model.Department, error) {
	var result []model.Department
	for id, d := range m.s.departments {
		if !includeInactive && !d.IsActive {
			continue
		}
		if parentID != "" && (d.ParentID == nil || *d.ParentID != parentID) {
			continue
		}
		result = append(result, *m.load(id))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (m *mockDepartmentRepo) ListManagedBy(_ context.Context, userID string) ([]model.Department, error) {
	var result []model.Department
	for id, d := range m.s.departments {
		if d.ManagerID == nil {
			continue
		}
		e, ok := m.s.employees[*d.ManagerID]
		if ok && e.UserID != nil && *e.UserID == userID {
			result = append(result, *m.load(id))
		}
	}
	return result, nil
}

func (m *mockDepartmentRepo) ListChildren(_ context.Context, parentIDs []string) ([]model.Department, error) {
	var result []model.Department
	for id, d := range m.s.departments {
		if d.ParentID == nil {
			continue
		}
		for _, pid := range parentIDs {
			if *d.ParentID == pid {
				result = append(result, *m.load(id))
				break
			}
		}
	}
	return result, nil
}

func (m *mockDepartmentRepo) Update(_ context.Context, dept *model.Department) error {
	if _, ok := m.s.departments[dept.DepartmentID]; !ok {
		return gorm.ErrRecordNotFound
	}
	if m.nameTaken(dept.Name, dept.DepartmentID) {
		return gorm.ErrDuplicatedKey
	}
	cp := *dept
	cp.Parent, cp.Manager = nil, nil
	m.s.departments[dept.DepartmentID] = &cp
	return nil
}

func (m *mockDepartmentRepo) Delete(_ context.Context, id string) error {
	delete(m.s.departments, id)
	return nil
}

func (m *mockDepartmentRepo) CountReports(_ context.Context, departmentID string) (int64, error) {
	var n int64
	for _, r := range m.s.reports {
		if r.DepartmentID == departmentID || (r.DirectionID != nil && *r.DirectionID == departmentID) {
			n++
		}
	}
	return n, nil
}

func (m *mockDepartmentRepo) CountChildren(_ context.Context, departmentID string) (int64, error) {
	var n int64
	for _, d := range m.s.departments {
		if d.ParentID != nil && *d.ParentID == departmentID {
			n++
		}
	}
	return n, nil
}

// ── Mock EmployeeRepository ──

type mockEmployeeRepo struct{ s *mockStore }

func (m *mockEmployeeRepo) Create(_ context.Context, emp *model.Employee) error {
	if emp.UserID != nil {
		for _, e := range m.s.employees {
			if e.UserID != nil && *e.UserID == *emp.UserID {
				return gorm.ErrDuplicatedKey
			}
		}
	}
	if emp.EmployeeID == "" {
		emp.EmployeeID = m.s.nextID("emp")
	}
	cp := *emp
	m.s.employees[emp.EmployeeID] = &cp
	return nil
}

func (m *mockEmployeeRepo) GetByID(_ context.Context, id string) (*model.Employee, error) {
	if e, ok := m.s.employees[id]; ok {
		cp := *e
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockEmployeeRepo) List(_ context.Context, departmentID string) ([]model.Employee, error) {
	var result []model.Employee
	for _, e := range m.s.employees {
		if departmentID != "" && (e.DepartmentID == nil || *e.DepartmentID != departmentID) {
			continue
		}
		result = append(result, *e)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

// ── Mock ReportRepository ──

type mockReportRepo struct{ s *mockStore }

func (m *mockReportRepo) weekTaken(departmentID string, weekStart time.Time, excludeID string) bool {
	for _, r := range m.s.reports {
		if r.ReportID != excludeID && r.DepartmentID == departmentID &&
			model.DateOnly(r.WeekStart).Equal(model.DateOnly(weekStart)) {
			return true
		}
	}
	return false
}

func (m *mockReportRepo) Create(_ context.Context, report *model.ActivityReport) error {
	if m.weekTaken(report.DepartmentID, report.WeekStart, "") {
		return gorm.ErrDuplicatedKey
	}
	if report.ReportID == "" {
		report.ReportID = m.s.nextID("report")
	}
	now := time.Now()
	report.CreatedAt, report.UpdatedAt = now, now
	m.s.reports[report.ReportID] = stripReport(report)
	return nil
}

// stripReport 仅保存周报自身字段
func stripReport(r *model.ActivityReport) *model.ActivityReport {
	cp := *r
	cp.Department, cp.Direction, cp.Employee, cp.Lines = nil, nil, nil, nil
	return &cp
}

// load 按 GetByID 的预加载规则组装周报副本
func (m *mockReportRepo) load(id string) *model.ActivityReport {
	r, ok := m.s.reports[id]
	if !ok {
		return nil
	}
	cp := *r
	depts := &mockDepartmentRepo{m.s}
	cp.Department = depts.load(cp.DepartmentID)
	if cp.DirectionID != nil {
		cp.Direction = depts.load(*cp.DirectionID)
	}
	if cp.EmployeeID != nil {
		if e, ok := m.s.employees[*cp.EmployeeID]; ok {
			emp := *e
			cp.Employee = &emp
		}
	}
	cp.Lines, _ = (&mockReportLineRepo{m.s}).ListByReport(context.Background(), id)
	return &cp
}

func (m *mockReportRepo) GetByID(_ context.Context, id string) (*model.ActivityReport, error) {
	if r := m.load(id); r != nil {
		return r, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockReportRepo) filtered(scope repository.ReportScope, filter repository.ReportFilter) []model.ActivityReport {
	var result []model.ActivityReport
	for id, r := range m.s.reports {
		if !scope.Allows(r) {
			continue
		}
		if filter.DepartmentID != "" && r.DepartmentID != filter.DepartmentID {
			continue
		}
		if filter.State != "" && r.State != filter.State {
			continue
		}
		if filter.Year > 0 && (r.Year == nil || *r.Year != filter.Year) {
			continue
		}
		if filter.Week > 0 {
			if _, w := r.WeekStart.ISOWeek(); w != filter.Week {
				continue
			}
		}
		result = append(result, *m.load(id))
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].WeekStart.Equal(result[j].WeekStart) {
			return result[i].WeekStart.After(result[j].WeekStart)
		}
		return result[i].Name < result[j].Name
	})
	return result
}

func (m *mockReportRepo) List(_ context.Context, scope repository.ReportScope, filter repository.ReportFilter, offset, limit int) ([]model.ActivityReport, int64, error) {
	all := m.filtered(scope, filter)
	return paginate(all, offset, limit), int64(len(all)), nil
}

func (m *mockReportRepo) ListWithLines(_ context.Context, scope repository.ReportScope, filter repository.ReportFilter) ([]model.ActivityReport, error) {
	return m.filtered(scope, filter), nil
}

func (m *mockReportRepo) Update(_ context.Context, report *model.ActivityReport) error {
	current, ok := m.s.reports[report.ReportID]
	if !ok || current.Version != report.Version {
		return pkgerrors.ErrOptimisticLock
	}
	if m.weekTaken(report.DepartmentID, report.WeekStart, report.ReportID) {
		return gorm.ErrDuplicatedKey
	}
	report.Version++
	report.UpdatedAt = time.Now()
	stored := stripReport(report)
	stored.CreatedAt = current.CreatedAt
	m.s.reports[report.ReportID] = stored
	return nil
}

func (m *mockReportRepo) Delete(_ context.Context, id string) error {
	delete(m.s.reports, id)
	for lid, l := range m.s.lines {
		if l.ReportID == id {
			delete(m.s.lines, lid)
		}
	}
	for tid, t := range m.s.tasks {
		if t.ReportID == id {
			delete(m.s.tasks, tid)
		}
	}
	return nil
}

func (m *mockReportRepo) ExistsByDepartmentWeek(_ context.Context, departmentID string, weekStart time.Time, excludeID string) (bool, error) {
	return m.weekTaken(departmentID, weekStart, excludeID), nil
}

func (m *mockReportRepo) SyncDepartmentRefs(_ context.Context, departmentID string, directionID, employeeID *string) (int64, error) {
	var n int64
	for _, r := range m.s.reports {
		if r.DepartmentID != departmentID {
			continue
		}
		r.DirectionID = copyStrPtr(directionID)
		r.EmployeeID = copyStrPtr(employeeID)
		r.Version++
		r.UpdatedAt = time.Now()
		n++
	}
	return n, nil
}

func copyStrPtr(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// ── Mock ReportLineRepository ──

type mockReportLineRepo struct{ s *mockStore }

func (m *mockReportLineRepo) BatchCreate(ctx context.Context, lines []model.ActivityReportLine) error {
	for i := range lines {
		if err := m.Create(ctx, &lines[i]); err != nil {
			return err
		}
	}
	return nil
}

func (m *mockReportLineRepo) Create(_ context.Context, line *model.ActivityReportLine) error {
	if line.LineID == "" {
		line.LineID = m.s.nextID("line")
	}
	cp := *line
	m.s.lines[line.LineID] = &cp
	return nil
}

func (m *mockReportLineRepo) GetByID(_ context.Context, id string) (*model.ActivityReportLine, error) {
	if l, ok := m.s.lines[id]; ok {
		cp := *l
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

// ListByReport 与 model.LineOrder 一致：priority DESC, date_start ASC NULLS LAST
func (m *mockReportLineRepo) ListByReport(_ context.Context, reportID string) ([]model.ActivityReportLine, error) {
	var result []model.ActivityReportLine
	for _, l := range m.s.lines {
		if l.ReportID == reportID {
			result = append(result, *l)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		a, b := result[i], result[j]
		if a.Priority != b.Priority {
			return a.Priority > b.Priority
		}
		switch {
		case a.DateStart == nil && b.DateStart == nil:
			return a.LineID < b.LineID
		case a.DateStart == nil:
			return false
		case b.DateStart == nil:
			return true
		}
		return a.DateStart.Before(*b.DateStart)
	})
	return result, nil
}

func (m *mockReportLineRepo) Update(_ context.Context, line *model.ActivityReportLine) error {
	if _, ok := m.s.lines[line.LineID]; !ok {
		return gorm.ErrRecordNotFound
	}
	cp := *line
	m.s.lines[line.LineID] = &cp
	return nil
}

func (m *mockReportLineRepo) Delete(_ context.Context, id string) error {
	delete(m.s.lines, id)
	return nil
}

// ── Mock ReportMessageRepository ──

type mockMessageRepo struct{ s *mockStore }

func (m *mockMessageRepo) Create(_ context.Context, msg *model.ReportMessage) error {
	msg.MessageID = m.s.nextID("msg")
	msg.CreatedAt = time.Now()
	m.s.messages = append(m.s.messages, *msg)
	return nil
}

func (m *mockMessageRepo) ListByReport(_ context.Context, reportID string) ([]model.ReportMessage, error) {
	var result []model.ReportMessage
	for _, msg := range m.s.messages {
		if msg.ReportID == reportID {
			result = append(result, msg)
		}
	}
	return result, nil
}

// ── Mock ReportTaskRepository ──

type mockTaskRepo struct{ s *mockStore }

func (m *mockTaskRepo) Create(_ context.Context, task *model.ReportTask) error {
	for _, t := range m.s.tasks {
		if t.IsOpen() && t.ReportID == task.ReportID && t.AssigneeID == task.AssigneeID && t.Purpose == task.Purpose {
			return gorm.ErrDuplicatedKey
		}
	}
	task.TaskID = m.s.nextID("task")
	cp := *task
	m.s.tasks[task.TaskID] = &cp
	return nil
}

func (m *mockTaskRepo) FindOpen(_ context.Context, reportID, assigneeID, purpose string) (*model.ReportTask, error) {
	for _, t := range m.s.tasks {
		if t.IsOpen() && t.ReportID == reportID && t.AssigneeID == assigneeID && t.Purpose == purpose {
			cp := *t
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockTaskRepo) ListByReport(_ context.Context, reportID string) ([]model.ReportTask, error) {
	var result []model.ReportTask
	for _, t := range m.s.tasks {
		if t.ReportID == reportID {
			result = append(result, *t)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].TaskID < result[j].TaskID })
	return result, nil
}

func (m *mockTaskRepo) MarkDoneByReport(_ context.Context, reportID, doneBy string) (int64, error) {
	var n int64
	now := time.Now()
	for _, t := range m.s.tasks {
		if t.ReportID == reportID && t.IsOpen() {
			t.Status = model.TaskStatusDone
			t.DoneAt = &now
			by := doneBy
			t.DoneBy = &by
			n++
		}
	}
	return n, nil
}

// ── Mock NotificationRepository ──

type mockNotificationRepo struct{ s *mockStore }

func (m *mockNotificationRepo) Create(_ context.Context, n *model.Notification) error {
	if m.s.notificationErr != nil {
		return m.s.notificationErr
	}
	n.NotificationID = m.s.nextID("notif")
	n.CreatedAt = time.Now()
	cp := *n
	m.s.notifications[n.NotificationID] = &cp
	return nil
}

func (m *mockNotificationRepo) ListByUser(_ context.Context, userID string, unreadOnly bool, offset, limit int) ([]model.Notification, int64, error) {
	var all []model.Notification
	for _, n := range m.s.notifications {
		if n.UserID != userID || (unreadOnly && n.IsRead) {
			continue
		}
		all = append(all, *n)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].NotificationID < all[j].NotificationID })
	return paginate(all, offset, limit), int64(len(all)), nil
}

func (m *mockNotificationRepo) MarkRead(_ context.Context, id, userID string) (int64, error) {
	n, ok := m.s.notifications[id]
	if !ok || n.UserID != userID {
		return 0, nil
	}
	n.IsRead = true
	return 1, nil
}

// ── 辅助函数 ──

func paginate[T any](all []T, offset, limit int) []T {
	if offset >= len(all) {
		return nil
	}
	end := offset + limit
	if limit <= 0 || end > len(all) {
		end = len(all)
	}
	return all[offset:end]
}

func strPtr(s string) *string { return &s }

func intPtr(i int) *int { return &i }
