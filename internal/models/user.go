package models

import "time"

// User пользователь хост-системы, на которого сопоставляются исполнители Azure DevOps.
type User struct {
	ID        uint      `gorm:"column:id;primaryKey" json:"-"`
	UserID    int64     `gorm:"column:user_id;uniqueIndex;not null" json:"userId"`
	Username  string    `gorm:"column:username;index" json:"username"`
	Email     string    `gorm:"column:email;index" json:"email"`
	FullName  string    `gorm:"column:full_name;index" json:"fullName"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"-"`
}

func (User) TableName() string {
	return "users"
}

// ProjectMember участие пользователя в проекте хост-системы.
type ProjectMember struct {
	ID        uint  `gorm:"column:id;primaryKey"`
	ProjectID int64 `gorm:"column:project_id;uniqueIndex:idx_project_user;not null"`
	UserID    int64 `gorm:"column:user_id;uniqueIndex:idx_project_user;not null"`
}

func (ProjectMember) TableName() string {
	return "project_members"
}
