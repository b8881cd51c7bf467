package handlers

import (
	"context"
	"strconv"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/nifgashim/trek-api/internal/auth"
	"github.com/nifgashim/trek-api/internal/models"
	"github.com/nifgashim/trek-api/internal/payments"
	"github.com/nifgashim/trek-api/internal/store"
	"github.com/sirupsen/logrus"
)

type RegistrationHandler struct {
	store       *store.Store
	reconciler  *payments.Reconciler
	authHandler *auth.AuthHandler
	log         *logrus.Logger
}

func NewRegistrationHandler(s *store.Store, reconciler *payments.Reconciler, authHandler *auth.AuthHandler, log *logrus.Logger) *RegistrationHandler {
	return &RegistrationHandler{store: s, reconciler: reconciler, authHandler: authHandler, log: log}
}

type ParticipantInput struct {
	Name     string `json:"name" required:"true" doc:"Full name"`
	IDNumber string `json:"id_number,omitempty" doc:"National id number"`
	Phone    string `json:"phone,omitempty"`
	Email    string `json:"email,omitempty"`
}

type CreateRegistrationRequest struct {
	Body struct {
		TripID       string             `json:"trip_id" required:"true"`
		Participants []ParticipantInput `json:"participants" required:"true"`
		SelectedDays []int              `json:"selected_days" required:"true" doc:"1-based day numbers"`
		Amount       float64            `json:"amount" required:"true" doc:"Total price, fixed at creation"`
	}
}

type CreateRegistrationResponse struct {
	Body struct {
		ID           string                    `json:"id"`
		Status       models.RegistrationStatus `json:"status"`
		Amount       float64                   `json:"amount"`
		EditToken    string                    `json:"edit_token" doc:"Capability token for revising selected days"`
		SelectedDays []int                     `json:"selected_days"`
	}
}

func (h *RegistrationHandler) HandleCreate(ctx context.Context, input *CreateRegistrationRequest) (*CreateRegistrationResponse, error) {
	trip, err := h.store.GetTrip(ctx, input.Body.TripID)
	if err != nil {
		return nil, huma.Error404NotFound("Trip not found")
	}
	if len(input.Body.Participants) == 0 {
		return nil, huma.Error400BadRequest("At least one participant is required")
	}
	if err := validateDays(input.Body.SelectedDays, trip); err != nil {
		return nil, err
	}

	reg := &models.Registration{
		TripID:       trip.ID,
		SelectedDays: models.DayList(input.Body.SelectedDays),
		Amount:       input.Body.Amount,
	}
	for _, p := range input.Body.Participants {
		reg.Participants = append(reg.Participants, models.Participant{
			Name:     p.Name,
			IDNumber: p.IDNumber,
			Phone:    p.Phone,
			Email:    p.Email,
		})
	}

	if err := h.store.CreateRegistration(ctx, reg); err != nil {
		return nil, huma.Error500InternalServerError("Failed to create registration: " + err.Error())
	}
	editToken, err := h.store.EnsureEditToken(ctx, reg.ID)
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to create edit token: " + err.Error())
	}

	h.log.WithFields(logrus.Fields{
		"registration_id": reg.ID,
		"trip_id":         trip.ID,
		"participants":    len(reg.Participants),
	}).Info("registration created")

	res := &CreateRegistrationResponse{}
	res.Body.ID = reg.ID
	res.Body.Status = reg.Status
	res.Body.Amount = reg.Amount
	res.Body.EditToken = editToken
	res.Body.SelectedDays = reg.SelectedDays
	return res, nil
}

type GetRegistrationRequest struct {
	ID        string `path:"id"`
	EditToken string `query:"edit_token" required:"true"`
}

type RegistrationView struct {
	ID            string                    `json:"id"`
	TripID        string                    `json:"trip_id"`
	Participants  []models.Participant      `json:"participants"`
	SelectedDays  []int                     `json:"selected_days"`
	Amount        float64                   `json:"amount"`
	AmountPaid    float64                   `json:"amount_paid"`
	Status        models.RegistrationStatus `json:"status"`
	PaymentStatus models.PaymentStatus      `json:"payment_status"`
	CompletedAt   *time.Time                `json:"completed_at,omitempty"`
	CheckIns      []models.CheckIn          `json:"check_ins"`
}

type GetRegistrationResponse struct {
	Body RegistrationView
}

func (h *RegistrationHandler) HandleGet(ctx context.Context, input *GetRegistrationRequest) (*GetRegistrationResponse, error) {
	reg, err := h.loadWithEditToken(ctx, input.ID, input.EditToken)
	if err != nil {
		return nil, err
	}
	return &GetRegistrationResponse{Body: registrationView(reg)}, nil
}

type UpdateDaysRequest struct {
	ID   string `path:"id"`
	Body struct {
		EditToken    string `json:"edit_token" required:"true"`
		SelectedDays []int  `json:"selected_days" required:"true"`
	}
}

type UpdateDaysResponse struct {
	Body struct {
		ID           string  `json:"id"`
		SelectedDays []int   `json:"selected_days"`
		Amount       float64 `json:"amount"`
	}
}

// HandleUpdateDays revises the day selection via the edit-token capability.
// It must never change amount, amount_paid or payment_status; the price
// was fixed when the registration was created.
func (h *RegistrationHandler) HandleUpdateDays(ctx context.Context, input *UpdateDaysRequest) (*UpdateDaysResponse, error) {
	reg, err := h.loadWithEditToken(ctx, input.ID, input.Body.EditToken)
	if err != nil {
		return nil, err
	}
	return h.updateDays(ctx, reg, input.Body.SelectedDays, "registrant")
}

type AdminUpdateDaysRequest struct {
	auth.AuthInput
	ID   string `path:"id"`
	Body struct {
		SelectedDays []int `json:"selected_days" required:"true"`
	}
}

// HandleAdminUpdateDays is the organizer-side variant: no edit token, same
// no-amount-mutation rule.
func (h *RegistrationHandler) HandleAdminUpdateDays(ctx context.Context, input *AdminUpdateDaysRequest) (*UpdateDaysResponse, error) {
	userID, err := h.authHandler.Authorize(ctx, input.Cookie)
	if err != nil {
		return nil, err
	}
	reg, err := h.store.GetRegistration(ctx, input.ID)
	if err != nil {
		return nil, huma.Error404NotFound("Registration not found")
	}
	return h.updateDays(ctx, reg, input.Body.SelectedDays, adminActor(userID))
}

func (h *RegistrationHandler) updateDays(ctx context.Context, reg *models.Registration, days []int, editedBy string) (*UpdateDaysResponse, error) {
	trip, err := h.store.GetTrip(ctx, reg.TripID)
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to load trip: " + err.Error())
	}
	if err := validateDays(days, trip); err != nil {
		return nil, err
	}

	updated, err := h.store.UpdateSelectedDays(ctx, reg.ID, models.DayList(days), editedBy)
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to update days: " + err.Error())
	}

	// Tokens embed the day selection, so a paid registration gets fresh
	// ones. Delivery failure is logged and recoverable via resend.
	if updated.Paid() {
		if err := h.reconciler.SendConfirmation(ctx, updated); err != nil {
			h.log.WithError(err).WithField("registration_id", updated.ID).Error("token reissue failed")
		}
	}

	res := &UpdateDaysResponse{}
	res.Body.ID = updated.ID
	res.Body.SelectedDays = updated.SelectedDays
	res.Body.Amount = updated.Amount
	return res, nil
}

func (h *RegistrationHandler) loadWithEditToken(ctx context.Context, id, editToken string) (*models.Registration, error) {
	reg, err := h.store.GetRegistration(ctx, id)
	if err != nil {
		return nil, huma.Error404NotFound("Registration not found")
	}
	if reg.EditToken == "" || editToken == "" || reg.EditToken != editToken {
		return nil, huma.Error403Forbidden("Invalid edit token")
	}
	return reg, nil
}

func validateDays(days []int, trip *models.Trip) error {
	if len(days) == 0 {
		return huma.Error400BadRequest("At least one day must be selected")
	}
	seen := map[int]bool{}
	for _, d := range days {
		if d < 1 {
			return huma.Error400BadRequest("Day numbers start at 1")
		}
		if trip.DayCount > 0 && d > trip.DayCount {
			return huma.Error400BadRequest("Day number exceeds trip length")
		}
		if seen[d] {
			return huma.Error400BadRequest("Duplicate day number")
		}
		seen[d] = true
	}
	return nil
}

func registrationView(reg *models.Registration) RegistrationView {
	return RegistrationView{
		ID:            reg.ID,
		TripID:        reg.TripID,
		Participants:  reg.Participants,
		SelectedDays:  reg.SelectedDays,
		Amount:        reg.Amount,
		AmountPaid:    reg.AmountPaid,
		Status:        reg.Status,
		PaymentStatus: reg.PaymentStatus,
		CompletedAt:   reg.CompletedAt,
		CheckIns:      reg.CheckIns,
	}
}

func adminActor(userID uint) string {
	return "admin:" + strconv.FormatUint(uint64(userID), 10)
}
