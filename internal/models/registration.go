package models

import (
	"fmt"
	"strings"
	"time"
)

type RegistrationStatus string

const (
	RegistrationPendingPayment RegistrationStatus = "pending_payment"
	RegistrationCompleted      RegistrationStatus = "completed"
	RegistrationFailed         RegistrationStatus = "failed"
	RegistrationCancelled      RegistrationStatus = "cancelled"
)

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	// PaymentExempt marks a registration that is never charged but counts
	// as paid for check-in and roster purposes.
	PaymentExempt PaymentStatus = "exempt"
)

// Registration is one purchase attempt: one or more participants signing up
// for a subset of the trip's days. Rows are never deleted, only cancelled.
type Registration struct {
	ID            string             `json:"id" gorm:"primaryKey"`
	TripID        string             `json:"trip_id" gorm:"index"`
	Participants  []Participant      `json:"participants" gorm:"foreignKey:RegistrationID"`
	SelectedDays  DayList            `json:"selected_days" gorm:"type:text"`
	Amount        float64            `json:"amount"`
	AmountPaid    float64            `json:"amount_paid"`
	Status        RegistrationStatus `json:"status" gorm:"index"`
	PaymentStatus PaymentStatus      `json:"payment_status"`
	// TransactionID is set exactly once, when a gateway confirms payment.
	TransactionID string     `json:"transaction_id"`
	CompletedAt   *time.Time `json:"completed_at"`
	EditToken     string     `json:"-" gorm:"index"`
	CheckIns      []CheckIn  `json:"check_ins" gorm:"foreignKey:RegistrationID"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// Paid reports whether the registration is admissible at a trailhead.
func (r *Registration) Paid() bool {
	return r.PaymentStatus == PaymentCompleted || r.PaymentStatus == PaymentExempt
}

type Participant struct {
	ID             uint   `json:"-" gorm:"primarykey"`
	RegistrationID string `json:"-" gorm:"index"`
	Position       int    `json:"position"`
	Name           string `json:"name"`
	IDNumber       string `json:"id_number"`
	Phone          string `json:"phone"`
	Email          string `json:"email,omitempty"`
}

// Key is the participant's identity within a registration, used to
// deduplicate check-ins. Position is a last resort for rows that carry
// neither an id number nor an email.
func (p Participant) Key() string {
	if p.IDNumber != "" {
		return p.IDNumber
	}
	if p.Email != "" {
		return strings.ToLower(p.Email)
	}
	return fmt.Sprintf("pos:%d", p.Position)
}

// MergeKey identifies the participant across registrations of the same trip.
// Email wins; without one the key is scoped to the registration so two
// email-less participants never collapse into a single roster row.
func (p Participant) MergeKey() string {
	if p.Email != "" {
		return strings.ToLower(p.Email)
	}
	if p.IDNumber != "" {
		return "id:" + p.IDNumber
	}
	return fmt.Sprintf("reg:%s:%d", p.RegistrationID, p.Position)
}
