package models

import (
	"time"

	"gorm.io/gorm"
)

// ScannerKey authenticates a trailhead scanner device. Name identifies the
// operator and is recorded as checked_in_by on every check-in made with it.
type ScannerKey struct {
	gorm.Model
	Name        string     `json:"name"`
	Key         string     `json:"key" gorm:"uniqueIndex"`
	CreatedByID uint       `json:"created_by_id"`
	ExpiresAt   *time.Time `json:"expires_at"`
	LastUsedAt  *time.Time `json:"last_used_at"`
}
