package models

import (
	"gorm.io/gorm"
)

// User is an organizer/admin account, created on first Discord login.
type User struct {
	gorm.Model
	DiscordID string `gorm:"uniqueIndex"`
	Username  string
	Email     string
	Avatar    string
}
