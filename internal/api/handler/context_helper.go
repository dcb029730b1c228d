package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/Djomab/activity-weekly-report/internal/dto"
	"github.com/Djomab/activity-weekly-report/pkg/response"
)

// MustGetUserID 从 Gin 上下文中安全提取 user_id。
// 如果 JWT 中间件未正确注入 user_id，返回 false 并写入 401 响应。
// 调用方应在 ok=false 时直接 return。
func MustGetUserID(c *gin.Context) (string, bool) {
	return mustGetString(c, "user_id")
}

// MustGetRole 从 Gin 上下文中安全提取 role。
func MustGetRole(c *gin.Context) (string, bool) {
	return mustGetString(c, "role")
}

// MustGetActor 构造当前操作人，供服务层做可见范围与审计。
func MustGetActor(c *gin.Context) (dto.Actor, bool) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return dto.Actor{}, false
	}
	role, ok := MustGetRole(c)
	if !ok {
		return dto.Actor{}, false
	}
	return dto.Actor{UserID: userID, Name: c.GetString("user_name"), Role: role}, true
}

func mustGetString(c *gin.Context, key string) (string, bool) {
	v, exists := c.Get(key)
	if !exists {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	return s, true
}
