package entities

// User is a reviewer. Usernames are not unique.
type User struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	Username string `gorm:"size:255;not null" json:"username"`
}

// TableName returns the table name for GORM.
func (User) TableName() string {
	return "users"
}
