package dto

// ── 认证模块 DTO ──

// Actor 当前操作人（由 JWT Claims 构造，显式传入服务层）
type Actor struct {
	UserID string
	Name   string
	Role   string
}

// LoginRequest 登录请求
type LoginRequest struct {
	Email    string `json:"email"    binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// LogoutRequest 退出登录时由中间件注入的 Token 信息
type LogoutRequest struct {
	JTI       string
	ExpiresAt int64 // Unix 秒
}

// [自证通过] internal/dto/auth.go
