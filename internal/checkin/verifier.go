// Package checkin validates scanned admission tokens against live
// registration state. Its consumer is volunteer staff at a trailhead, so
// every rejection carries enough context to be self-explanatory on the
// scanner screen.
package checkin

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nifgashim/trek-api/internal/models"
	"github.com/nifgashim/trek-api/internal/store"
	"github.com/nifgashim/trek-api/internal/token"
	"github.com/sirupsen/logrus"
)

type Status string

const (
	StatusInvalid          Status = "invalid"
	StatusNotFound         Status = "not_found"
	StatusWrongDay         Status = "wrong_day"
	StatusAlreadyCheckedIn Status = "already_checked_in"
	StatusVerified         Status = "verified"
)

// Outcome is always structured and human-readable, never a bare error.
type Outcome struct {
	Status          Status               `json:"status"`
	Message         string               `json:"message"`
	RegistrationID  string               `json:"registration_id,omitempty"`
	ParticipantName string               `json:"participant_name,omitempty"`
	ParticipantKey  string               `json:"participant_key,omitempty"`
	PaymentStatus   models.PaymentStatus `json:"payment_status,omitempty"`
	AmountPaid      float64              `json:"amount_paid,omitempty"`
	GroupSize       int                  `json:"group_size,omitempty"`
	DayNumber       *int                 `json:"day_number,omitempty"`
	RegisteredDays  []int                `json:"registered_days,omitempty"`
	CheckedInAt     *time.Time           `json:"checked_in_at,omitempty"`
	// ResolvedByPosition flags the positional-index fallback used when
	// a token's pid matches no participant. Those check-ins should be
	// reviewed manually.
	ResolvedByPosition bool `json:"resolved_by_position,omitempty"`
}

// Store is the slice of the registration store the verifier needs.
type Store interface {
	GetRegistration(ctx context.Context, id string) (*models.Registration, error)
	AppendCheckIn(ctx context.Context, entry models.CheckIn) (bool, *models.CheckIn, error)
	Lock(registrationID string) func()
}

type Verifier struct {
	store Store
	codec *token.Codec
	log   *logrus.Logger
	now   func() time.Time
}

func NewVerifier(s Store, codec *token.Codec, log *logrus.Logger) *Verifier {
	return &Verifier{store: s, codec: codec, log: log, now: time.Now}
}

// Verify runs the scan state machine: invalid → not_found → wrong_day →
// already_checked_in → verified. The registration lock makes steps 4-6 of
// the flow act on a single consistent read, so two concurrent scans of the
// same participant and day cannot both succeed. The returned error is only
// for infrastructure failures; every business rejection is an Outcome.
func (v *Verifier) Verify(ctx context.Context, tokenString string, requestedDay *int, operatorID string) (Outcome, error) {
	payload, err := v.codec.Decode(tokenString)
	if err != nil {
		return Outcome{Status: StatusInvalid, Message: "This code could not be read. Ask the participant for their confirmation email."}, nil
	}

	unlock := v.store.Lock(payload.RegistrationID)
	defer unlock()

	reg, err := v.store.GetRegistration(ctx, payload.RegistrationID)
	if errors.Is(err, store.ErrRegistrationNotFound) {
		return Outcome{Status: StatusNotFound, Message: "No registration matches this code."}, nil
	}
	if err != nil {
		return Outcome{}, err
	}

	if reg.Status == models.RegistrationCancelled {
		return Outcome{
			Status:         StatusNotFound,
			RegistrationID: reg.ID,
			Message:        "This registration was cancelled.",
		}, nil
	}
	if !reg.Paid() {
		return Outcome{
			Status:         StatusNotFound,
			RegistrationID: reg.ID,
			PaymentStatus:  reg.PaymentStatus,
			Message:        "This registration has not been paid. Refer the participant to the organizers.",
		}, nil
	}

	participant, byPosition, ok := resolveParticipant(reg, payload)
	if !ok {
		return Outcome{
			Status:         StatusNotFound,
			RegistrationID: reg.ID,
			Message:        "This code does not match any participant on the registration.",
		}, nil
	}
	key := participant.Key()

	log := v.log.WithFields(logrus.Fields{
		"registration_id": reg.ID,
		"participant_key": key,
		"operator":        operatorID,
	})

	if requestedDay != nil && !reg.SelectedDays.Contains(*requestedDay) {
		log.WithField("day", *requestedDay).Info("wrong-day scan")
		return Outcome{
			Status:          StatusWrongDay,
			RegistrationID:  reg.ID,
			ParticipantName: participant.Name,
			ParticipantKey:  key,
			DayNumber:       requestedDay,
			RegisteredDays:  reg.SelectedDays,
			Message:         fmt.Sprintf("%s is not registered for day %d. Registered days: %s.", participant.Name, *requestedDay, formatDays(reg.SelectedDays)),
		}, nil
	}

	created, entry, err := v.store.AppendCheckIn(ctx, models.CheckIn{
		RegistrationID:  reg.ID,
		ParticipantKey:  key,
		ParticipantName: participant.Name,
		DayNumber:       requestedDay,
		CheckedInAt:     v.now(),
		CheckedInBy:     operatorID,
	})
	if err != nil {
		return Outcome{}, err
	}

	if !created {
		at := entry.CheckedInAt
		return Outcome{
			Status:          StatusAlreadyCheckedIn,
			RegistrationID:  reg.ID,
			ParticipantName: participant.Name,
			ParticipantKey:  key,
			DayNumber:       entry.DayNumber,
			CheckedInAt:     &at,
			Message:         fmt.Sprintf("%s was already checked in at %s by %s.", participant.Name, at.Format("15:04"), entry.CheckedInBy),
		}, nil
	}

	log.Info("check-in recorded")
	at := entry.CheckedInAt
	return Outcome{
		Status:             StatusVerified,
		RegistrationID:     reg.ID,
		ParticipantName:    participant.Name,
		ParticipantKey:     key,
		PaymentStatus:      reg.PaymentStatus,
		AmountPaid:         reg.AmountPaid,
		GroupSize:          len(reg.Participants),
		DayNumber:          requestedDay,
		RegisteredDays:     reg.SelectedDays,
		CheckedInAt:        &at,
		ResolvedByPosition: byPosition,
		Message:            fmt.Sprintf("Welcome, %s!", participant.Name),
	}, nil
}

// resolveParticipant matches the token's pid against id numbers, then
// emails, then falls back to the positional index for registrations that
// carry neither. The fallback is flagged so the operator can double-check.
func resolveParticipant(reg *models.Registration, payload token.Payload) (models.Participant, bool, bool) {
	for _, p := range reg.Participants {
		if p.IDNumber != "" && p.IDNumber == payload.ParticipantID {
			return p, false, true
		}
	}
	for _, p := range reg.Participants {
		if p.Email != "" && strings.EqualFold(p.Email, payload.ParticipantID) {
			return p, false, true
		}
	}
	if payload.Index >= 0 && payload.Index < len(reg.Participants) {
		return reg.Participants[payload.Index], true, true
	}
	return models.Participant{}, false, false
}

func formatDays(days models.DayList) string {
	parts := make([]string, len(days))
	for i, d := range days {
		parts[i] = fmt.Sprintf("%d", d)
	}
	return strings.Join(parts, ", ")
}
