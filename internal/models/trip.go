package models

import "time"

// Trip is the event being registered for. Its Participants field is the
// canonical merged roster built from confirmed registrations.
type Trip struct {
	ID           string            `json:"id" gorm:"primaryKey"`
	Name         string            `json:"name"`
	StartDate    time.Time         `json:"start_date"`
	DayCount     int               `json:"day_count"`
	Participants []TripParticipant `json:"participants" gorm:"foreignKey:TripID"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

// TripParticipant is one row of the merged roster. MergeKey is unique per
// trip so a retried webhook cannot append the same person twice.
type TripParticipant struct {
	ID                   uint          `json:"-" gorm:"primarykey"`
	TripID               string        `json:"-" gorm:"uniqueIndex:idx_trip_merge_key"`
	MergeKey             string        `json:"merge_key" gorm:"uniqueIndex:idx_trip_merge_key"`
	Name                 string        `json:"name"`
	IDNumber             string        `json:"id_number"`
	Phone                string        `json:"phone"`
	Email                string        `json:"email,omitempty"`
	RegistrationID       string        `json:"registration_id"`
	SelectedDays         DayList       `json:"selected_days" gorm:"type:text"`
	PaymentStatus        PaymentStatus `json:"payment_status"`
	PaymentAmount        float64       `json:"payment_amount"`
	PaymentTransactionID string        `json:"payment_transaction_id"`
	CreatedAt            time.Time     `json:"created_at"`
}
