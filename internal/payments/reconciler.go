package payments

import (
	"context"
	"fmt"
	"time"

	"github.com/nifgashim/trek-api/internal/models"
	"github.com/nifgashim/trek-api/internal/token"
	"github.com/sirupsen/logrus"
)

// Store is the slice of the registration store the reconciler needs.
type Store interface {
	GetRegistration(ctx context.Context, id string) (*models.Registration, error)
	GetTrip(ctx context.Context, id string) (*models.Trip, error)
	CompleteRegistration(ctx context.Context, id, transactionID string, amount float64, at time.Time) (bool, error)
	MarkFailed(ctx context.Context, id, transactionID string) (bool, error)
	MarkExempt(ctx context.Context, id string, at time.Time) (bool, error)
	MergeTripParticipants(ctx context.Context, tripID string, entries []models.TripParticipant) (int, error)
	Lock(registrationID string) func()
}

// IssuedToken pairs a participant with their QR payload string.
type IssuedToken struct {
	Participant models.Participant
	Token       string
}

// Mailer delivers admission tokens to the registrant. Failures are logged
// by the reconciler and never undo a committed payment.
type Mailer interface {
	SendTokens(ctx context.Context, reg *models.Registration, trip *models.Trip, tokens []IssuedToken) error
}

// Announcer is the optional organizer-facing notification channel.
type Announcer interface {
	AnnouncePayment(reg *models.Registration, trip *models.Trip, succeeded bool)
}

type Result struct {
	RegistrationID    string                    `json:"registration_id"`
	Status            models.RegistrationStatus `json:"status"`
	AlreadyProcessed  bool                      `json:"already_processed"`
	ParticipantsAdded int                       `json:"participants_added"`
}

type Reconciler struct {
	store     Store
	codec     *token.Codec
	mailer    Mailer
	announcer Announcer
	log       *logrus.Logger
}

func NewReconciler(store Store, codec *token.Codec, mailer Mailer, announcer Announcer, log *logrus.Logger) *Reconciler {
	return &Reconciler{store: store, codec: codec, mailer: mailer, announcer: announcer, log: log}
}

// HandleCallback applies one normalized gateway event. Webhook delivery is
// at-least-once, so every downstream effect here must be at-most-once: the
// status check plus the conditional update in CompleteRegistration form the
// idempotency gate, and the roster merge deduplicates by merge key on top
// of that.
func (r *Reconciler) HandleCallback(ctx context.Context, ev Event) (Result, error) {
	log := r.log.WithFields(logrus.Fields{
		"gateway":         ev.Gateway,
		"registration_id": ev.RegistrationID,
		"transaction_id":  ev.TransactionID,
	})

	unlock := r.store.Lock(ev.RegistrationID)
	defer unlock()

	reg, err := r.store.GetRegistration(ctx, ev.RegistrationID)
	if err != nil {
		return Result{}, fmt.Errorf("callback for registration %s: %w", ev.RegistrationID, err)
	}

	if reg.Status == models.RegistrationCompleted {
		log.Info("replayed callback absorbed")
		return Result{RegistrationID: reg.ID, Status: reg.Status, AlreadyProcessed: true}, nil
	}

	if ev.Outcome == OutcomeFailure {
		transitioned, err := r.store.MarkFailed(ctx, reg.ID, ev.TransactionID)
		if err != nil {
			return Result{}, fmt.Errorf("mark registration %s failed: %w", reg.ID, err)
		}
		if !transitioned {
			// Retried failure webhook; the decline was already recorded
			// and announced once.
			log.Info("replayed failure callback absorbed")
			return Result{RegistrationID: reg.ID, Status: reg.Status, AlreadyProcessed: true}, nil
		}
		log.Warn("payment declined")
		r.announce(reg, false)
		return Result{RegistrationID: reg.ID, Status: models.RegistrationFailed}, nil
	}

	paid := ev.RawAmount
	if paid == 0 {
		paid = reg.Amount
	}
	transitioned, err := r.store.CompleteRegistration(ctx, reg.ID, ev.TransactionID, paid, time.Now())
	if err != nil {
		return Result{}, fmt.Errorf("complete registration %s: %w", reg.ID, err)
	}

	reg, err = r.store.GetRegistration(ctx, reg.ID)
	if err != nil {
		return Result{}, fmt.Errorf("reload registration %s: %w", ev.RegistrationID, err)
	}

	if !transitioned {
		if reg.Status == models.RegistrationCompleted {
			log.Info("lost completion race, callback absorbed")
			return Result{RegistrationID: reg.ID, Status: reg.Status, AlreadyProcessed: true}, nil
		}
		log.WithField("status", reg.Status).Warn("success callback for terminal registration ignored")
		return Result{RegistrationID: reg.ID, Status: reg.Status}, nil
	}

	// The payment fact is committed. Everything below is best effort and
	// recoverable through the resend path.
	result := Result{RegistrationID: reg.ID, Status: reg.Status}

	added, err := r.store.MergeTripParticipants(ctx, reg.TripID, rosterEntries(reg))
	if err != nil {
		log.WithError(err).Error("participant merge failed")
	} else {
		result.ParticipantsAdded = added
	}

	if err := r.SendConfirmation(ctx, reg); err != nil {
		log.WithError(err).Error("token delivery failed")
	}

	r.announce(reg, true)
	log.WithField("participants_added", result.ParticipantsAdded).Info("payment reconciled")
	return result, nil
}

// HandleExemption waives payment for a registration. Exempt registrations
// are never charged but join the trip roster and check in like paid ones,
// so the flow mirrors a success callback minus the transaction.
func (r *Reconciler) HandleExemption(ctx context.Context, registrationID, grantedBy string) (Result, error) {
	log := r.log.WithFields(logrus.Fields{
		"registration_id": registrationID,
		"granted_by":      grantedBy,
	})

	unlock := r.store.Lock(registrationID)
	defer unlock()

	reg, err := r.store.GetRegistration(ctx, registrationID)
	if err != nil {
		return Result{}, fmt.Errorf("exempt registration %s: %w", registrationID, err)
	}
	if reg.Status == models.RegistrationCompleted {
		return Result{RegistrationID: reg.ID, Status: reg.Status, AlreadyProcessed: true}, nil
	}

	transitioned, err := r.store.MarkExempt(ctx, reg.ID, time.Now())
	if err != nil {
		return Result{}, fmt.Errorf("mark registration %s exempt: %w", reg.ID, err)
	}
	reg, err = r.store.GetRegistration(ctx, reg.ID)
	if err != nil {
		return Result{}, err
	}
	if !transitioned {
		return Result{RegistrationID: reg.ID, Status: reg.Status, AlreadyProcessed: reg.Status == models.RegistrationCompleted}, nil
	}

	result := Result{RegistrationID: reg.ID, Status: reg.Status}
	added, err := r.store.MergeTripParticipants(ctx, reg.TripID, rosterEntries(reg))
	if err != nil {
		log.WithError(err).Error("participant merge failed")
	} else {
		result.ParticipantsAdded = added
	}
	if err := r.SendConfirmation(ctx, reg); err != nil {
		log.WithError(err).Error("token delivery failed")
	}
	log.Info("registration exempted")
	return result, nil
}

// SendConfirmation issues fresh tokens for every participant and mails them.
// Used after reconciliation, after day edits, and by the admin resend path.
func (r *Reconciler) SendConfirmation(ctx context.Context, reg *models.Registration) error {
	trip, err := r.store.GetTrip(ctx, reg.TripID)
	if err != nil {
		return err
	}
	return r.mailer.SendTokens(ctx, reg, trip, r.IssueTokens(reg))
}

// IssueTokens produces one token per participant, embedding the current day
// selection.
func (r *Reconciler) IssueTokens(reg *models.Registration) []IssuedToken {
	tokens := make([]IssuedToken, 0, len(reg.Participants))
	for _, p := range reg.Participants {
		pid := p.IDNumber
		if pid == "" {
			pid = p.Email
		}
		tokens = append(tokens, IssuedToken{
			Participant: p,
			Token:       r.codec.Issue(reg.ID, pid, p.Position, reg.SelectedDays),
		})
	}
	return tokens
}

func (r *Reconciler) announce(reg *models.Registration, succeeded bool) {
	if r.announcer == nil {
		return
	}
	trip, err := r.store.GetTrip(context.Background(), reg.TripID)
	if err != nil {
		trip = &models.Trip{ID: reg.TripID}
	}
	r.announcer.AnnouncePayment(reg, trip, succeeded)
}

func rosterEntries(reg *models.Registration) []models.TripParticipant {
	entries := make([]models.TripParticipant, 0, len(reg.Participants))
	for _, p := range reg.Participants {
		entries = append(entries, models.TripParticipant{
			MergeKey:             p.MergeKey(),
			Name:                 p.Name,
			IDNumber:             p.IDNumber,
			Phone:                p.Phone,
			Email:                p.Email,
			RegistrationID:       reg.ID,
			SelectedDays:         reg.SelectedDays,
			PaymentStatus:        reg.PaymentStatus,
			PaymentAmount:        reg.AmountPaid,
			PaymentTransactionID: reg.TransactionID,
		})
	}
	return entries
}
