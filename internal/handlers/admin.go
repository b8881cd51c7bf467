package handlers

import (
	"context"
	"errors"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/nifgashim/trek-api/internal/auth"
	"github.com/nifgashim/trek-api/internal/models"
	"github.com/nifgashim/trek-api/internal/notifier"
	"github.com/nifgashim/trek-api/internal/payments"
	"github.com/nifgashim/trek-api/internal/store"
	"github.com/sirupsen/logrus"
)

type AdminHandler struct {
	store       *store.Store
	reconciler  *payments.Reconciler
	mailer      *notifier.TokenMailer
	authHandler *auth.AuthHandler
	log         *logrus.Logger
}

func NewAdminHandler(s *store.Store, reconciler *payments.Reconciler, mailer *notifier.TokenMailer, authHandler *auth.AuthHandler, log *logrus.Logger) *AdminHandler {
	return &AdminHandler{store: s, reconciler: reconciler, mailer: mailer, authHandler: authHandler, log: log}
}

type CreateTripRequest struct {
	auth.AuthInput
	Body struct {
		Name      string    `json:"name" required:"true"`
		StartDate time.Time `json:"start_date"`
		DayCount  int       `json:"day_count" required:"true"`
	}
}

type CreateTripResponse struct {
	Body struct {
		ID string `json:"id"`
	}
}

func (h *AdminHandler) HandleCreateTrip(ctx context.Context, input *CreateTripRequest) (*CreateTripResponse, error) {
	if _, err := h.authHandler.Authorize(ctx, input.Cookie); err != nil {
		return nil, err
	}
	trip := &models.Trip{
		Name:      input.Body.Name,
		StartDate: input.Body.StartDate,
		DayCount:  input.Body.DayCount,
	}
	if err := h.store.CreateTrip(ctx, trip); err != nil {
		return nil, huma.Error500InternalServerError("Failed to create trip: " + err.Error())
	}
	res := &CreateTripResponse{}
	res.Body.ID = trip.ID
	return res, nil
}

type ResendTokensRequest struct {
	auth.AuthInput
	ID string `path:"id"`
}

type MessageResponse struct {
	Body struct {
		Message string `json:"message"`
	}
}

// HandleResendTokens is the recovery path for lost confirmation emails:
// payment truth lives in the registration, delivery is repeatable.
func (h *AdminHandler) HandleResendTokens(ctx context.Context, input *ResendTokensRequest) (*MessageResponse, error) {
	if _, err := h.authHandler.Authorize(ctx, input.Cookie); err != nil {
		return nil, err
	}
	reg, err := h.store.GetRegistration(ctx, input.ID)
	if err != nil {
		return nil, huma.Error404NotFound("Registration not found")
	}
	if !reg.Paid() {
		return nil, huma.Error400BadRequest("Registration is not paid; nothing to resend")
	}
	if err := h.reconciler.SendConfirmation(ctx, reg); err != nil {
		return nil, huma.Error500InternalServerError("Failed to resend tokens: " + err.Error())
	}

	res := &MessageResponse{}
	res.Body.Message = "Tokens resent"
	return res, nil
}

type NotifyPendingRequest struct {
	auth.AuthInput
	Body struct {
		TripID string `json:"trip_id" required:"true"`
	}
}

type NotifyPendingResponse struct {
	Body struct {
		Notified int `json:"notified"`
		Skipped  int `json:"skipped"`
	}
}

// HandleNotifyPending emails every pending_payment registration of a trip a
// payment reminder. Per-registration failures are logged and skipped.
func (h *AdminHandler) HandleNotifyPending(ctx context.Context, input *NotifyPendingRequest) (*NotifyPendingResponse, error) {
	if _, err := h.authHandler.Authorize(ctx, input.Cookie); err != nil {
		return nil, err
	}
	trip, err := h.store.GetTrip(ctx, input.Body.TripID)
	if err != nil {
		return nil, huma.Error404NotFound("Trip not found")
	}
	regs, err := h.store.FilterRegistrations(ctx, store.Filter{
		TripID: trip.ID,
		Status: models.RegistrationPendingPayment,
	})
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to list registrations: " + err.Error())
	}

	res := &NotifyPendingResponse{}
	for i := range regs {
		if err := h.mailer.SendPaymentReminder(ctx, &regs[i], trip); err != nil {
			h.log.WithError(err).WithField("registration_id", regs[i].ID).Warn("payment reminder failed")
			res.Body.Skipped++
			continue
		}
		res.Body.Notified++
	}
	return res, nil
}

type ExemptRequest struct {
	auth.AuthInput
	ID string `path:"id"`
}

type ExemptResponse struct {
	Body payments.Result
}

func (h *AdminHandler) HandleExempt(ctx context.Context, input *ExemptRequest) (*ExemptResponse, error) {
	userID, err := h.authHandler.Authorize(ctx, input.Cookie)
	if err != nil {
		return nil, err
	}
	result, err := h.reconciler.HandleExemption(ctx, input.ID, adminActor(userID))
	if err != nil {
		if errors.Is(err, store.ErrRegistrationNotFound) {
			return nil, huma.Error404NotFound("Registration not found")
		}
		return nil, huma.Error500InternalServerError("Failed to exempt: " + err.Error())
	}
	return &ExemptResponse{Body: result}, nil
}

type CancelRequest struct {
	auth.AuthInput
	ID string `path:"id"`
}

func (h *AdminHandler) HandleCancel(ctx context.Context, input *CancelRequest) (*MessageResponse, error) {
	if _, err := h.authHandler.Authorize(ctx, input.Cookie); err != nil {
		return nil, err
	}
	if err := h.store.MarkCancelled(ctx, input.ID); err != nil {
		if errors.Is(err, store.ErrRegistrationNotFound) {
			return nil, huma.Error404NotFound("Registration not found")
		}
		return nil, huma.Error500InternalServerError("Failed to cancel: " + err.Error())
	}
	res := &MessageResponse{}
	res.Body.Message = "Registration cancelled"
	return res, nil
}
