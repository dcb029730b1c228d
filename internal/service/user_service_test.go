package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/Djomab/activity-weekly-report/internal/dto"
	"github.com/Djomab/activity-weekly-report/internal/model"
)

func setupTestUserService() (UserService, *mockStore) {
	store := newMockStore()
	return NewUserService(newMockRepository(store), zap.NewNop()), store
}

func TestCreateUser_WithPassword(t *testing.T) {
	svc, store := setupTestUserService()

	result, err := svc.CreateUser(context.Background(), &dto.CreateUserRequest{
		Name:     "王局长",
		Email:    " Wang@Test.com ",
		Password: "password123",
		Role:     model.RoleDirector,
	}, "u-admin")
	if err != nil {
		t.Fatalf("CreateUser 应成功: %v", err)
	}
	if result.TempPassword != "" {
		t.Errorf("指定密码时不应返回临时密码")
	}
	if result.User.Email != "wang@test.com" {
		t.Errorf("邮箱应统一为小写，实际=%s", result.User.Email)
	}

	stored := store.users[result.User.ID]
	if bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("password123")) != nil {
		t.Error("密码哈希与原密码不匹配")
	}
}

func TestCreateUser_TempPassword(t *testing.T) {
	svc, store := setupTestUserService()

	result, err := svc.CreateUser(context.Background(), &dto.CreateUserRequest{
		Name:  "李经理",
		Email: "li@test.com",
		Role:  model.RoleManager,
	}, "u-admin")
	if err != nil {
		t.Fatalf("CreateUser 应成功: %v", err)
	}
	if len(result.TempPassword) != 10 {
		t.Fatalf("临时密码长度期望 10，实际=%d", len(result.TempPassword))
	}
	stored := store.users[result.User.ID]
	if bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte(result.TempPassword)) != nil {
		t.Error("临时密码应可用于登录")
	}
}

func TestCreateUser_DuplicateEmail(t *testing.T) {
	svc, _ := setupTestUserService()
	req := &dto.CreateUserRequest{Name: "甲", Email: "dup@test.com", Password: "password123", Role: model.RoleManager}

	if _, err := svc.CreateUser(context.Background(), req, "u-admin"); err != nil {
		t.Fatalf("首次创建应成功: %v", err)
	}
	req.Email = "DUP@test.com"
	if _, err := svc.CreateUser(context.Background(), req, "u-admin"); !errors.Is(err, ErrEmailExists) {
		t.Errorf("期望 ErrEmailExists，实际: %v", err)
	}
}

func TestListUsers_FilterByRole(t *testing.T) {
	svc, store := setupTestUserService()
	store.users["1"] = &model.User{UserID: "1", Name: "甲", Email: "a@test.com", Role: model.RoleDirector}
	store.users["2"] = &model.User{UserID: "2", Name: "乙", Email: "b@test.com", Role: model.RoleManager}
	store.users["3"] = &model.User{UserID: "3", Name: "丙", Email: "c@test.com", Role: model.RoleManager}

	list, total, err := svc.List(context.Background(), &dto.UserListRequest{Role: model.RoleManager})
	if err != nil {
		t.Fatalf("List 应成功: %v", err)
	}
	if total != 2 || len(list) != 2 {
		t.Errorf("期望 2 个 manager，实际=%d", total)
	}
}

func TestGenerateTempPassword(t *testing.T) {
	for i := 0; i < 20; i++ {
		pw, err := generateTempPassword(6)
		if err != nil {
			t.Fatalf("生成临时密码失败: %v", err)
		}
		if len(pw) != 8 {
			t.Fatalf("长度不足 8 时应补足为 8，实际=%d", len(pw))
		}
		if !strings.ContainsFunc(pw, unicode.IsDigit) || !strings.ContainsFunc(pw, unicode.IsLetter) {
			t.Errorf("临时密码应同时包含字母和数字，实际=%s", pw)
		}
	}
}
