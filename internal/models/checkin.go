package models

import "time"

// CheckIn is one recorded admission event. Append-only; the unique index
// backs the at-most-one-per-(participant, day) invariant for concrete days.
// A nil DayNumber means the operator scanned without picking a day, and
// deduplication for that case is handled at the store level (SQLite treats
// NULLs as distinct in unique indexes).
type CheckIn struct {
	ID              uint      `json:"-" gorm:"primarykey"`
	RegistrationID  string    `json:"-" gorm:"uniqueIndex:idx_reg_participant_day"`
	ParticipantKey  string    `json:"participant_key" gorm:"uniqueIndex:idx_reg_participant_day"`
	ParticipantName string    `json:"participant_name"`
	DayNumber       *int      `json:"day_number" gorm:"uniqueIndex:idx_reg_participant_day"`
	CheckedInAt     time.Time `json:"checked_in_at"`
	CheckedInBy     string    `json:"checked_in_by"`
}

// DayEditLog is an audit snapshot appended whenever a registration's
// selected days are revised, by the registrant or an admin.
type DayEditLog struct {
	ID             uint      `json:"-" gorm:"primarykey"`
	RegistrationID string    `json:"registration_id" gorm:"index"`
	PreviousDays   DayList   `json:"previous_days" gorm:"type:text"`
	NewDays        DayList   `json:"new_days" gorm:"type:text"`
	EditedBy       string    `json:"edited_by"`
	CreatedAt      time.Time `json:"created_at"`
}
