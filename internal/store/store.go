// Package store is the narrow adapter over the entity store holding
// Registration and Trip records. Every mutation that backs an idempotency
// gate is a conditional update or a transactional check-then-insert, so a
// retried webhook or a double scan cannot apply a side effect twice.
package store

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/nifgashim/trek-api/internal/models"
	"gorm.io/gorm"
)

var (
	ErrRegistrationNotFound = errors.New("registration not found")
	ErrTripNotFound         = errors.New("trip not found")
)

type Store struct {
	db    *gorm.DB
	locks *registrationLocker
}

func New(db *gorm.DB) *Store {
	return &Store{db: db, locks: newRegistrationLocker()}
}

// Lock serializes work on one registration; the returned function releases.
func (s *Store) Lock(registrationID string) func() {
	return s.locks.lock(registrationID)
}

func (s *Store) CreateTrip(ctx context.Context, trip *models.Trip) error {
	if trip.ID == "" {
		trip.ID = uuid.NewString()
	}
	return s.db.WithContext(ctx).Create(trip).Error
}

func (s *Store) GetTrip(ctx context.Context, id string) (*models.Trip, error) {
	var trip models.Trip
	err := s.db.WithContext(ctx).Preload("Participants").First(&trip, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTripNotFound
	}
	if err != nil {
		return nil, err
	}
	return &trip, nil
}

// CreateRegistration persists a new purchase attempt. Status starts at
// pending_payment and the amount is fixed here for the registration's life.
func (s *Store) CreateRegistration(ctx context.Context, reg *models.Registration) error {
	if reg.ID == "" {
		reg.ID = uuid.NewString()
	}
	if reg.Status == "" {
		reg.Status = models.RegistrationPendingPayment
	}
	if reg.PaymentStatus == "" {
		reg.PaymentStatus = models.PaymentPending
	}
	for i := range reg.Participants {
		reg.Participants[i].Position = i
	}
	return s.db.WithContext(ctx).Create(reg).Error
}

func (s *Store) GetRegistration(ctx context.Context, id string) (*models.Registration, error) {
	var reg models.Registration
	err := s.db.WithContext(ctx).
		Preload("Participants", func(db *gorm.DB) *gorm.DB { return db.Order("position") }).
		Preload("CheckIns").
		First(&reg, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRegistrationNotFound
	}
	if err != nil {
		return nil, err
	}
	return &reg, nil
}

// Filter narrows FilterRegistrations. Zero values mean "any".
type Filter struct {
	TripID        string
	Status        models.RegistrationStatus
	PaymentStatus models.PaymentStatus
}

func (s *Store) FilterRegistrations(ctx context.Context, f Filter) ([]models.Registration, error) {
	q := s.db.WithContext(ctx).
		Preload("Participants", func(db *gorm.DB) *gorm.DB { return db.Order("position") }).
		Preload("CheckIns")
	if f.TripID != "" {
		q = q.Where("trip_id = ?", f.TripID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.PaymentStatus != "" {
		q = q.Where("payment_status = ?", f.PaymentStatus)
	}
	var regs []models.Registration
	if err := q.Order("created_at").Find(&regs).Error; err != nil {
		return nil, err
	}
	return regs, nil
}

// CompleteRegistration is the idempotency gate for payment reconciliation:
// a conditional update that only fires while the registration is still
// pending_payment. The returned bool reports whether this call performed the
// transition; false means another delivery already did, or the registration
// is in a terminal state.
func (s *Store) CompleteRegistration(ctx context.Context, id, transactionID string, amount float64, at time.Time) (bool, error) {
	res := s.db.WithContext(ctx).Model(&models.Registration{}).
		Where("id = ? AND status = ?", id, models.RegistrationPendingPayment).
		Updates(map[string]interface{}{
			"status":         models.RegistrationCompleted,
			"payment_status": models.PaymentCompleted,
			"transaction_id": transactionID,
			"amount_paid":    amount,
			"completed_at":   at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// MarkFailed records a declined payment. Terminal for this attempt; a later
// success callback for the same registration is not honored.
func (s *Store) MarkFailed(ctx context.Context, id, transactionID string) (bool, error) {
	res := s.db.WithContext(ctx).Model(&models.Registration{}).
		Where("id = ? AND status = ?", id, models.RegistrationPendingPayment).
		Updates(map[string]interface{}{
			"status":         models.RegistrationFailed,
			"transaction_id": transactionID,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// MarkExempt waives payment for a registration while keeping it admissible
// at check-in and eligible for the trip roster.
func (s *Store) MarkExempt(ctx context.Context, id string, at time.Time) (bool, error) {
	res := s.db.WithContext(ctx).Model(&models.Registration{}).
		Where("id = ? AND status = ?", id, models.RegistrationPendingPayment).
		Updates(map[string]interface{}{
			"status":         models.RegistrationCompleted,
			"payment_status": models.PaymentExempt,
			"completed_at":   at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (s *Store) MarkCancelled(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Model(&models.Registration{}).
		Where("id = ?", id).
		Update("status", models.RegistrationCancelled)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrRegistrationNotFound
	}
	return nil
}

// MergeTripParticipants appends roster rows whose merge key is not yet
// present on the trip, in one transaction. The unique index on
// (trip_id, merge_key) backs the check. Returns how many rows were added.
func (s *Store) MergeTripParticipants(ctx context.Context, tripID string, entries []models.TripParticipant) (int, error) {
	added := 0
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var trip models.Trip
		if err := tx.First(&trip, "id = ?", tripID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTripNotFound
			}
			return err
		}
		for i := range entries {
			entries[i].TripID = tripID
			var count int64
			if err := tx.Model(&models.TripParticipant{}).
				Where("trip_id = ? AND merge_key = ?", tripID, entries[i].MergeKey).
				Count(&count).Error; err != nil {
				return err
			}
			if count > 0 {
				continue
			}
			if err := tx.Create(&entries[i]).Error; err != nil {
				return err
			}
			added++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return added, nil
}

// AppendCheckIn records one admission event unless the participant already
// has one for the requested day (or any day, when dayNumber is nil). The
// existing entry is returned instead so the caller can report the original
// timestamp. Callers hold the registration lock.
func (s *Store) AppendCheckIn(ctx context.Context, entry models.CheckIn) (created bool, result *models.CheckIn, err error) {
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx.Where("registration_id = ? AND participant_key = ?", entry.RegistrationID, entry.ParticipantKey)
		if entry.DayNumber != nil {
			q = q.Where("day_number = ?", *entry.DayNumber)
		}
		var existing models.CheckIn
		findErr := q.First(&existing).Error
		if findErr == nil {
			result = &existing
			return nil
		}
		if !errors.Is(findErr, gorm.ErrRecordNotFound) {
			return findErr
		}
		if err := tx.Create(&entry).Error; err != nil {
			return err
		}
		created = true
		result = &entry
		return nil
	})
	if err != nil {
		return false, nil, err
	}
	return created, result, nil
}

// UpdateSelectedDays replaces the day selection and appends an audit row.
// It deliberately touches nothing else: amount, amount_paid and
// payment_status stay exactly as they were.
func (s *Store) UpdateSelectedDays(ctx context.Context, id string, days models.DayList, editedBy string) (*models.Registration, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var reg models.Registration
		if err := tx.First(&reg, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRegistrationNotFound
			}
			return err
		}
		if err := tx.Model(&models.Registration{}).
			Where("id = ?", id).
			Update("selected_days", days).Error; err != nil {
			return err
		}
		audit := models.DayEditLog{
			RegistrationID: id,
			PreviousDays:   reg.SelectedDays,
			NewDays:        days,
			EditedBy:       editedBy,
		}
		return tx.Create(&audit).Error
	})
	if err != nil {
		return nil, err
	}
	return s.GetRegistration(ctx, id)
}

// EnsureEditToken lazily generates the capability token that lets the
// registrant revise selected days without logging in.
func (s *Store) EnsureEditToken(ctx context.Context, id string) (string, error) {
	var reg models.Registration
	err := s.db.WithContext(ctx).First(&reg, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", ErrRegistrationNotFound
	}
	if err != nil {
		return "", err
	}
	if reg.EditToken != "" {
		return reg.EditToken, nil
	}
	tokenBytes := make([]byte, 16)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", err
	}
	token := hex.EncodeToString(tokenBytes)
	res := s.db.WithContext(ctx).Model(&models.Registration{}).
		Where("id = ? AND (edit_token = '' OR edit_token IS NULL)", id).
		Update("edit_token", token)
	if res.Error != nil {
		return "", res.Error
	}
	if res.RowsAffected == 0 {
		// Lost the race to a concurrent caller; use theirs.
		return s.EnsureEditToken(ctx, id)
	}
	return token, nil
}
