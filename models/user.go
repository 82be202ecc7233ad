package models

import "time"

type User struct {
	ID           uint      `gorm:"column:id;primaryKey" json:"id"`
	FirstName    string    `gorm:"column:first_name;size:100;not null" json:"first_name"`
	LastName     string    `gorm:"column:last_name;size:100;not null" json:"last_name"`
	Email        string    `gorm:"column:email;size:255;uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"column:password_hash;size:255;not null" json:"-"`
	CreatedAt    time.Time `gorm:"column:created_at" json:"created_at"`

	Images         []Image         `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	VolunteerPosts []VolunteerPost `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

func (User) TableName() string { return "users" }
