package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/Djomab/activity-weekly-report/config"
	"github.com/Djomab/activity-weekly-report/internal/dto"
	"github.com/Djomab/activity-weekly-report/internal/model"
	"github.com/Djomab/activity-weekly-report/pkg/jwt"
)

func setupTestAuthService() (AuthService, *mockStore, *jwt.Manager) {
	cfg := &config.Config{
		Auth: config.AuthConfig{
			JWTSecret:       "test-secret-key-for-unit-tests",
			AccessTokenTTL:  15 * time.Minute,
			RefreshTokenTTL: 24 * time.Hour,
		},
	}
	store := newMockStore()
	repo := newMockRepository(store)
	jwtMgr := jwt.NewManager(&cfg.Auth)

	return NewAuthService(cfg, repo, jwtMgr, nil, zap.NewNop()), store, jwtMgr
}

func createTestUser(store *mockStore, email, password, role string) *model.User {
	hash, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	user := &model.User{
		UserID:       "user-" + email,
		Name:         "测试用户",
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
		IsActive:     true,
	}
	store.users[user.UserID] = user
	return user
}

// ── 登录测试 ──

func TestLogin_Success(t *testing.T) {
	svc, store, jwtMgr := setupTestAuthService()
	createTestUser(store, "director@test.com", "password123", model.RoleDirector)

	result, err := svc.Login(context.Background(), &dto.LoginRequest{
		Email:    "Director@Test.com",
		Password: "password123",
	})

	if err != nil {
		t.Fatalf("Login 应成功，但返回错误: %v", err)
	}
	if result.AccessToken == "" {
		t.Error("AccessToken 不应为空")
	}
	if result.RefreshToken == "" {
		t.Error("RefreshToken 不应为空")
	}
	if result.ExpiresIn != 900 {
		t.Errorf("期望 ExpiresIn=900，实际=%d", result.ExpiresIn)
	}

	claims, err := jwtMgr.ParseToken(result.AccessToken)
	if err != nil {
		t.Fatalf("AccessToken 应可解析: %v", err)
	}
	if claims.Role != model.RoleDirector || claims.Name != "测试用户" {
		t.Errorf("Token 中的身份不正确: role=%s name=%s", claims.Role, claims.Name)
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	svc, store, _ := setupTestAuthService()
	createTestUser(store, "a@test.com", "password123", model.RoleManager)

	_, err := svc.Login(context.Background(), &dto.LoginRequest{
		Email:    "a@test.com",
		Password: "wrong_password",
	})

	if !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("期望 ErrInvalidCredentials，实际: %v", err)
	}
}

func TestLogin_UserNotFound(t *testing.T) {
	svc, _, _ := setupTestAuthService()

	_, err := svc.Login(context.Background(), &dto.LoginRequest{
		Email:    "nobody@test.com",
		Password: "password123",
	})

	if !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("期望 ErrInvalidCredentials，实际: %v", err)
	}
}

func TestLogin_Disabled(t *testing.T) {
	svc, store, _ := setupTestAuthService()
	user := createTestUser(store, "off@test.com", "password123", model.RoleManager)
	user.IsActive = false

	_, err := svc.Login(context.Background(), &dto.LoginRequest{
		Email:    "off@test.com",
		Password: "password123",
	})

	if !errors.Is(err, ErrUserDisabled) {
		t.Errorf("期望 ErrUserDisabled，实际: %v", err)
	}
}

// ── 退出与当前用户 ──

func TestLogout_WithoutRedis(t *testing.T) {
	svc, _, _ := setupTestAuthService()

	err := svc.Logout(context.Background(), &dto.LogoutRequest{JTI: "jti-1", ExpiresAt: time.Now().Add(time.Minute).Unix()})
	if err != nil {
		t.Errorf("未启用 Redis 时 Logout 应直接成功: %v", err)
	}
}

func TestGetCurrentUser_Success(t *testing.T) {
	svc, store, _ := setupTestAuthService()
	user := createTestUser(store, "me@test.com", "password123", model.RoleAdmin)

	result, err := svc.GetCurrentUser(context.Background(), user.UserID)
	if err != nil {
		t.Fatalf("GetCurrentUser 应成功: %v", err)
	}
	if result.Email != "me@test.com" || result.Role != model.RoleAdmin {
		t.Errorf("用户信息不正确: %+v", result)
	}
}

func TestGetCurrentUser_NotFound(t *testing.T) {
	svc, _, _ := setupTestAuthService()

	_, err := svc.GetCurrentUser(context.Background(), "nonexistent")
	if !errors.Is(err, ErrUserNotFound) {
		t.Errorf("期望 ErrUserNotFound，实际: %v", err)
	}
}
