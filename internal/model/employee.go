package model

// Employee 员工表，对应 employees
type Employee struct {
	EmployeeID   string  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"employee_id"`
	Name         string  `gorm:"type:varchar(100);not null"                     json:"name"`
	JobTitle     string  `gorm:"type:varchar(100)"                              json:"job_title,omitempty"`
	UserID       *string `gorm:"type:uuid"                                      json:"user_id,omitempty"`
	DepartmentID *string `gorm:"type:uuid"                                      json:"department_id,omitempty"`
	BaseModel

	// 关联
	User *User `gorm:"foreignKey:UserID;references:UserID" json:"user,omitempty"`
}

// TableName 指定表名
func (Employee) TableName() string { return "employees" }
