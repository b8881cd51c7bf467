package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/nifgashim/trek-api/internal/models"
	"github.com/nifgashim/trek-api/internal/payments"
)

func newWebhookEnv(t *testing.T) (*testEnv, *WebhookHandler, string) {
	t.Helper()
	env := newTestEnv(t)
	env.seedTrip(t)

	reg := &models.Registration{
		TripID:       "trip-1",
		SelectedDays: models.DayList{1, 2},
		Amount:       255,
		Participants: []models.Participant{
			{Name: "Dana Cohen", IDNumber: "123456789", Email: "dana@example.com"},
			{Name: "Yuval Cohen", Email: "yuval@example.com"},
		},
	}
	if err := env.store.CreateRegistration(context.Background(), reg); err != nil {
		t.Fatalf("CreateRegistration returned error: %v", err)
	}

	h := NewWebhookHandler(
		payments.TranzilaAdapter{Terminal: "test"},
		payments.MeshulamAdapter{PageCode: "test"},
		env.reconciler, env.log,
	)
	return env, h, reg.ID
}

func postTranzila(h *WebhookHandler, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/webhooks/tranzila", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	h.HandleTranzila(w, req)
	return w
}

func TestTranzilaWebhookReplayIsIdempotent(t *testing.T) {
	env, h, regID := newWebhookEnv(t)

	form := url.Values{}
	form.Set("registration_id", regID)
	form.Set("Response", "000")
	form.Set("ConfirmationCode", "T1")
	form.Set("sum", "255")

	w := postTranzila(h, form)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	reg, err := env.store.GetRegistration(context.Background(), regID)
	if err != nil {
		t.Fatalf("GetRegistration returned error: %v", err)
	}
	if reg.Status != models.RegistrationCompleted || reg.TransactionID != "T1" {
		t.Errorf("unexpected state after payment: status=%q txn=%q", reg.Status, reg.TransactionID)
	}
	if reg.AmountPaid != 255 {
		t.Errorf("expected amount_paid 255, got %v", reg.AmountPaid)
	}
	emailsAfterFirst := len(env.sender.emails)
	if emailsAfterFirst != 1 {
		t.Fatalf("expected 1 confirmation email, got %d", emailsAfterFirst)
	}

	// The gateway retries the exact same callback.
	w = postTranzila(h, form)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 on replay, got %d", w.Code)
	}

	reg, _ = env.store.GetRegistration(context.Background(), regID)
	if reg.TransactionID != "T1" {
		t.Errorf("replay changed transaction id to %q", reg.TransactionID)
	}
	if len(env.sender.emails) != emailsAfterFirst {
		t.Errorf("replay sent %d extra emails", len(env.sender.emails)-emailsAfterFirst)
	}

	var roster []models.TripParticipant
	env.db.Where("trip_id = ?", "trip-1").Find(&roster)
	if len(roster) != 2 {
		t.Errorf("expected 2 roster entries after replay, got %d", len(roster))
	}
}

func TestTranzilaWebhookUnknownRegistration(t *testing.T) {
	_, h, _ := newWebhookEnv(t)

	form := url.Values{}
	form.Set("registration_id", "no-such-registration")
	form.Set("Response", "000")
	form.Set("ConfirmationCode", "T9")

	w := postTranzila(h, form)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown registration, got %d", w.Code)
	}
}

func TestTranzilaWebhookMissingRegistrationID(t *testing.T) {
	_, h, _ := newWebhookEnv(t)

	form := url.Values{}
	form.Set("Response", "000")

	w := postTranzila(h, form)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for unrecognized callback, got %d", w.Code)
	}
}

func TestMeshulamWebhookCompletesPayment(t *testing.T) {
	env, h, regID := newWebhookEnv(t)

	body := `{
		"status": "success",
		"data": {
			"transactionId": "M42",
			"sum": "255",
			"customFields": {"registrationId": "` + regID + `"}
		}
	}`
	req := httptest.NewRequest(http.MethodPost, "/webhooks/meshulam", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.HandleMeshulam(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	reg, err := env.store.GetRegistration(context.Background(), regID)
	if err != nil {
		t.Fatalf("GetRegistration returned error: %v", err)
	}
	if reg.Status != models.RegistrationCompleted || reg.TransactionID != "M42" {
		t.Errorf("unexpected state after payment: status=%q txn=%q", reg.Status, reg.TransactionID)
	}
}

func TestTranzilaWebhookDecline(t *testing.T) {
	env, h, regID := newWebhookEnv(t)

	form := url.Values{}
	form.Set("registration_id", regID)
	form.Set("Response", "004")

	w := postTranzila(h, form)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 for an acknowledged decline, got %d", w.Code)
	}

	reg, _ := env.store.GetRegistration(context.Background(), regID)
	if reg.Status != models.RegistrationFailed {
		t.Errorf("expected status failed, got %q", reg.Status)
	}
	if len(env.sender.emails) != 0 {
		t.Errorf("decline should not send email, got %d", len(env.sender.emails))
	}
}
