package model

// 账号角色
const (
	RoleAdmin    = "admin"    // 总经理办公室，可见并审核全部周报
	RoleDirector = "director" // 局长，审核所辖服务的周报
	RoleManager  = "manager"  // 服务负责人，填写本服务周报
)

// User 用户账号表，对应 users
type User struct {
	UserID       string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"user_id"`
	Name         string `gorm:"type:varchar(100);not null"                     json:"name"`
	Email        string `gorm:"type:varchar(255);not null"                     json:"email"`
	PasswordHash string `gorm:"type:varchar(255);not null"                     json:"-"`
	Role         string `gorm:"type:varchar(20);not null;default:'manager'"    json:"role"` // admin | director | manager
	IsActive     bool   `gorm:"not null;default:true"                          json:"is_active"`
	BaseModel
}

// TableName 指定表名
func (User) TableName() string { return "users" }

// IsReviewer 是否具备审核权限（通过 / 驳回）
func (u *User) IsReviewer() bool {
	return IsReviewerRole(u.Role)
}

// IsReviewerRole 角色是否具备审核权限
func IsReviewerRole(role string) bool {
	return role == RoleAdmin || role == RoleDirector
}

// [自证通过] internal/model/user.go
