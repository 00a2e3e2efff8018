package models

// User represents a registered account
type User struct {
	ID        int64  `json:"user_id" gorm:"column:user_id;primaryKey;autoIncrement"`
	Username  string `json:"user_name" gorm:"column:user_name;unique;not null"`
	Password  string `json:"-" gorm:"not null"`
	AvatarURL string `json:"avatar_url" gorm:"column:avatar_url"`
}

// TableName specifies the table name for the User model
func (User) TableName() string {
	return "users"
}
